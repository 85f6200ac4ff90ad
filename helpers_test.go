package authcore

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/internal/sqldb"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/otp/sqlstore"
	"github.com/MrEthical07/authcore/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "correct-horse-42"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockUserDirectory struct {
	mu      sync.Mutex
	hasher  password.Hasher
	byEmail map[string]*storedUser
	nextID  int

	deleteCalls int
	deleteErr   error
	findErr     error
}

type storedUser struct {
	principal Principal
	hash      string
}

func newMockUserDirectory(h password.Hasher) *mockUserDirectory {
	return &mockUserDirectory{hasher: h, byEmail: map[string]*storedUser{}}
}

func (m *mockUserDirectory) FindByEmail(_ context.Context, email string) (Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return Principal{}, m.findErr
	}
	u, ok := m.byEmail[email]
	if !ok {
		return Principal{}, ErrPrincipalNotFound
	}
	return u.principal, nil
}

func (m *mockUserDirectory) FindByID(_ context.Context, id string) (Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.byIDLocked(id); u != nil {
		return u.principal, nil
	}
	return Principal{}, ErrPrincipalNotFound
}

func (m *mockUserDirectory) byIDLocked(id string) *storedUser {
	for _, u := range m.byEmail {
		if u.principal.ID == id {
			return u
		}
	}
	return nil
}

func (m *mockUserDirectory) CreateUser(_ context.Context, in NewUser) (Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[in.Email]; ok {
		return Principal{}, ErrDuplicatePrincipal
	}
	m.nextID++
	p := Principal{
		ID:        "u" + strconv.Itoa(m.nextID),
		Email:     in.Email,
		Firstname: in.Firstname,
		Lastname:  in.Lastname,
		Active:    true,
	}
	m.byEmail[in.Email] = &storedUser{principal: p, hash: in.PasswordHash}
	return p, nil
}

func (m *mockUserDirectory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if u := m.byIDLocked(id); u != nil {
		delete(m.byEmail, u.principal.Email)
	}
	return nil
}

func (m *mockUserDirectory) MarkVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byIDLocked(id)
	if u == nil {
		return ErrPrincipalNotFound
	}
	u.principal.Verified = true
	return nil
}

func (m *mockUserDirectory) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byIDLocked(id)
	if u == nil {
		return ErrPrincipalNotFound
	}
	u.hash = hash
	return nil
}

func (m *mockUserDirectory) CheckCredential(_ context.Context, id, plaintext string) (bool, error) {
	m.mu.Lock()
	u := m.byIDLocked(id)
	m.mu.Unlock()
	if u == nil {
		return false, ErrPrincipalNotFound
	}
	return m.hasher.Verify(plaintext, u.hash)
}

// seed adds a user with testPassword directly.
func (m *mockUserDirectory) seed(t *testing.T, email string, verified, active bool) Principal {
	t.Helper()
	hash, err := m.hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	p, err := m.CreateUser(context.Background(), NewUser{Email: email, PasswordHash: hash, Firstname: "Ada", Lastname: "Lovelace"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	m.mu.Lock()
	m.byEmail[email].principal.Verified = verified
	m.byEmail[email].principal.Active = active
	p = m.byEmail[email].principal
	m.mu.Unlock()
	return p
}

type mailbox struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (b *mailbox) Send(_ context.Context, msg notify.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, msg)
	return nil
}

func (b *mailbox) fail(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// lastCode returns the code from the newest mail to email.
func (b *mailbox) lastCode(t *testing.T, email string) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.sent) - 1; i >= 0; i-- {
		if b.sent[i].To == email {
			if code := codePattern.FindString(b.sent[i].Text); code != "" {
				return code
			}
		}
	}
	t.Fatalf("no code mailed to %s", email)
	return ""
}

type testEnv struct {
	engine *Engine
	users  *mockUserDirectory
	mail   *mailbox
	redis  *miniredis.Miniredis
	clock  *testClock
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.AccessKey = []byte("access-secret-access-secret-0123")
	cfg.Token.RefreshKey = []byte("refresh-secret-refresh-secret-01")
	cfg.Token.Issuer = "authcore-test"
	return cfg
}

func newTestEnv(t *testing.T, tweak func(*Config, *Builder)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	codes, err := sqlstore.Open(sqldb.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open code store: %v", err)
	}
	t.Cleanup(func() { _ = codes.Close() })

	hasher, err := password.NewBcrypt(4)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}

	env := &testEnv{
		users: newMockUserDirectory(hasher),
		mail:  &mailbox{},
		redis: mr,
		clock: newTestClock(),
	}

	cfg := testConfig()
	b := New().
		WithRedis(client).
		WithUserDirectory(env.users).
		WithCodeRepository(codes).
		WithNotifier(env.mail).
		WithHasher(hasher).
		WithClock(env.clock.Now)
	if tweak != nil {
		tweak(&cfg, b)
	}
	b.WithConfig(cfg)

	env.engine, err = b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(env.engine.Close)
	return env
}

// login seeds a verified, active user and logs in with a password.
func (env *testEnv) login(t *testing.T, email string) LoginResult {
	t.Helper()
	env.users.seed(t, email, true, true)
	res, err := env.engine.LoginWithPassword(context.Background(), email, testPassword)
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return res
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", kind)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if e.Kind != kind {
		t.Fatalf("expected %s, got %s (%v)", kind, e.Kind, err)
	}
	return e
}
