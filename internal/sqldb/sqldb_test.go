package sqldb

import (
	"testing"
)

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE b = ? AND c = ?"

	if got := Rebind(SQLite, q); got != q {
		t.Fatalf("sqlite query should be unchanged, got %q", got)
	}
	want := "SELECT a FROM t WHERE b = $1 AND c = $2"
	if got := Rebind(Postgres, q); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{
		"":           SQLite,
		"sqlite":     SQLite,
		"Postgres":   Postgres,
		"postgresql": Postgres,
	}
	for in, want := range cases {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Fatalf("ParseDialect(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Fatal("expected mysql to be rejected")
	}
}

func TestUniqueViolationFromSQLite(t *testing.T) {
	db, err := Open(SQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE t (id TEXT PRIMARY KEY, v TEXT UNIQUE)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO t (id, v) VALUES ('a', 'x')`); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err = db.Exec(`INSERT INTO t (id, v) VALUES ('b', 'x')`)
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(nil) {
		t.Fatal("nil must not be a unique violation")
	}
}
