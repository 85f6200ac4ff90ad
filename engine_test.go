package authcore

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/internal/sqldb"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/otp/sqlstore"
	"github.com/MrEthical07/authcore/password"
)

func TestRegisterVerifyLoginFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	p, err := env.engine.Register(ctx, RegisterInput{
		Email:     " New@Example.com ",
		Password:  testPassword,
		Firstname: "Grace",
		Lastname:  "Hopper",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if p.Email != "new@example.com" || p.Verified {
		t.Fatalf("unexpected principal %+v", p)
	}

	env.mail.mu.Lock()
	welcome := env.mail.sent[0]
	env.mail.mu.Unlock()
	if welcome.Template != notify.TemplateWelcome || welcome.Data["firstname"] != "Grace" {
		t.Fatalf("unexpected welcome mail %+v", welcome)
	}

	_, err = env.engine.LoginWithPassword(ctx, "new@example.com", testPassword)
	requireKind(t, err, KindUnauthorized)

	code := env.mail.lastCode(t, "new@example.com")
	if err := env.engine.VerifyAccount(ctx, "new@example.com", code); err != nil {
		t.Fatalf("VerifyAccount: %v", err)
	}
	if err := env.engine.VerifyAccount(ctx, "new@example.com", code); err != nil {
		t.Fatalf("second VerifyAccount on verified account should succeed: %v", err)
	}

	res, err := env.engine.LoginWithPassword(ctx, "new@example.com", testPassword)
	if err != nil {
		t.Fatalf("LoginWithPassword: %v", err)
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatal("expected token pair")
	}

	id, err := env.engine.Authenticate(ctx, res.Tokens.AccessToken)
	if err != nil || id != p.ID {
		t.Fatalf("Authenticate = %q, %v", id, err)
	}
}

func TestRegisterRejectsDuplicateAndInvalidInput(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.users.seed(t, "taken@example.com", true, true)

	_, err := env.engine.Register(ctx, RegisterInput{Email: "taken@example.com", Password: testPassword, Firstname: "a", Lastname: "b"})
	if e := requireKind(t, err, KindConflict); e.Message != msgEmailTaken {
		t.Fatalf("unexpected message %q", e.Message)
	}

	cases := []RegisterInput{
		{Email: "", Password: testPassword, Firstname: "a", Lastname: "b"},
		{Email: "not-an-email", Password: testPassword, Firstname: "a", Lastname: "b"},
		{Email: "ok@example.com", Password: "short", Firstname: "a", Lastname: "b"},
		{Email: "ok@example.com", Password: testPassword, Firstname: " ", Lastname: "b"},
		{Email: "ok@example.com", Password: strings.Repeat("x", 100), Firstname: "a", Lastname: "b"},
	}
	for _, in := range cases {
		_, err := env.engine.Register(ctx, in)
		requireKind(t, err, KindValidation)
	}
	if _, err := env.users.FindByEmail(ctx, "ok@example.com"); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatal("invalid registrations must not create users")
	}
}

func TestRegisterRollsBackWhenMailFails(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mail.fail(errors.New("queue down"))

	_, err := env.engine.Register(context.Background(), RegisterInput{
		Email: "x@example.com", Password: testPassword, Firstname: "a", Lastname: "b",
	})
	if e := requireKind(t, err, KindServiceUnavailable); e.Message != msgWelcomeMailFailed {
		t.Fatalf("unexpected message %q", e.Message)
	}
	if _, err := env.users.FindByEmail(context.Background(), "x@example.com"); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatal("expected principal to be deleted")
	}
	if env.users.deleteCalls != 1 {
		t.Fatalf("expected one delete, got %d", env.users.deleteCalls)
	}
}

func TestRegisterRollbackFailureIsLoggedNotReturned(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mail.fail(errors.New("queue down"))
	env.users.deleteErr = errors.New("db gone")

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	_, err := env.engine.Register(context.Background(), RegisterInput{
		Email: "x@example.com", Password: testPassword, Firstname: "a", Lastname: "b",
	})
	requireKind(t, err, KindServiceUnavailable)
	if strings.Contains(err.Error(), "db gone") {
		t.Fatalf("rollback failure leaked into result: %v", err)
	}
	if !strings.Contains(buf.String(), "register rollback failed") {
		t.Fatalf("expected rollback failure in log, got %q", buf.String())
	}
}

func TestLoginUnauthorizedMessagesAreIdentical(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.users.seed(t, "ok@example.com", true, true)
	env.users.seed(t, "unverified@example.com", false, true)
	env.users.seed(t, "inactive@example.com", true, false)

	var messages []string
	for _, tc := range []struct{ email, password string }{
		{"missing@example.com", testPassword},
		{"ok@example.com", "wrong-password"},
		{"unverified@example.com", testPassword},
	} {
		_, err := env.engine.LoginWithPassword(ctx, tc.email, tc.password)
		messages = append(messages, requireKind(t, err, KindUnauthorized).Message)
	}
	for _, m := range messages[1:] {
		if m != messages[0] {
			t.Fatalf("messages differ: %q", messages)
		}
	}

	_, err := env.engine.LoginWithPassword(ctx, "inactive@example.com", testPassword)
	if e := requireKind(t, err, KindForbidden); e.Message != msgInactiveAccount {
		t.Fatalf("unexpected message %q", e.Message)
	}

	_, err = env.engine.LoginWithPassword(ctx, "inactive@example.com", "wrong-password")
	requireKind(t, err, KindUnauthorized)
}

func TestLoginWithOTP(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.users.seed(t, "ok@example.com", true, true)

	if err := env.engine.RequestLoginOTP(ctx, "ok@example.com"); err != nil {
		t.Fatalf("RequestLoginOTP: %v", err)
	}
	code := env.mail.lastCode(t, "ok@example.com")

	_, errUnknown := env.engine.LoginWithOTP(ctx, "missing@example.com", code)
	_, errWrong := env.engine.LoginWithOTP(ctx, "ok@example.com", "000000x")
	a := requireKind(t, errUnknown, KindUnauthorized)
	b := requireKind(t, errWrong, KindUnauthorized)
	if a.Message != b.Message {
		t.Fatalf("messages differ: %q vs %q", a.Message, b.Message)
	}

	res, err := env.engine.LoginWithOTP(ctx, "ok@example.com", code)
	if err != nil {
		t.Fatalf("LoginWithOTP: %v", err)
	}
	if res.Principal.Email != "ok@example.com" {
		t.Fatalf("unexpected principal %+v", res.Principal)
	}

	_, err = env.engine.LoginWithOTP(ctx, "ok@example.com", code)
	if e := requireKind(t, err, KindUnauthorized); e.Message != a.Message {
		t.Fatalf("reused code message %q", e.Message)
	}
}

func TestLoginWithExpiredOTP(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.users.seed(t, "ok@example.com", true, true)

	if err := env.engine.RequestLoginOTP(ctx, "ok@example.com"); err != nil {
		t.Fatalf("RequestLoginOTP: %v", err)
	}
	code := env.mail.lastCode(t, "ok@example.com")
	env.clock.Advance(5*time.Minute + time.Millisecond)

	_, err := env.engine.LoginWithOTP(ctx, "ok@example.com", code)
	requireKind(t, err, KindUnauthorized)
}

func TestRequestCodeAccountChecks(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.users.seed(t, "unverified@example.com", false, true)
	env.users.seed(t, "inactive@example.com", true, false)

	for _, request := range []func(context.Context, string) error{
		env.engine.RequestLoginOTP,
		env.engine.ForgotPassword,
	} {
		if e := requireKind(t, request(ctx, "missing@example.com"), KindNotFound); e.Message != msgUserNotFound {
			t.Fatalf("unexpected message %q", e.Message)
		}
		if e := requireKind(t, request(ctx, "unverified@example.com"), KindUnauthorized); e.Message != msgUnverifiedAccount {
			t.Fatalf("unexpected message %q", e.Message)
		}
		requireKind(t, request(ctx, "inactive@example.com"), KindForbidden)
		requireKind(t, request(ctx, ""), KindValidation)
	}
	if len(env.mail.sent) != 0 {
		t.Fatalf("no mail expected, got %d", len(env.mail.sent))
	}
}

func TestRequestCodeDeliveryFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.users.seed(t, "ok@example.com", true, true)
	env.mail.fail(errors.New("queue down"))

	err := env.engine.ForgotPassword(context.Background(), "ok@example.com")
	if e := requireKind(t, err, KindServiceUnavailable); e.Message != msgCodeDeliveryFailed {
		t.Fatalf("unexpected message %q", e.Message)
	}
}

func TestRefreshRotatesAndKillsOldToken(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	first := env.login(t, "ok@example.com")

	env.clock.Advance(time.Second)
	second, err := env.engine.Refresh(ctx, first.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.RefreshToken == first.Tokens.RefreshToken {
		t.Fatal("expected a new refresh token")
	}

	_, err = env.engine.Refresh(ctx, first.Tokens.RefreshToken)
	requireKind(t, err, KindUnauthorized)
	if _, err := env.engine.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("Refresh with new token: %v", err)
	}

	_, err = env.engine.Refresh(ctx, "")
	requireKind(t, err, KindValidation)
	_, err = env.engine.Refresh(ctx, first.Tokens.AccessToken)
	requireKind(t, err, KindUnauthorized)
}

func TestSecondLoginReplacesRefreshSlot(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	first := env.login(t, "ok@example.com")

	env.clock.Advance(time.Second)
	second, err := env.engine.LoginWithPassword(ctx, "ok@example.com", testPassword)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	_, err = env.engine.Refresh(ctx, first.Tokens.RefreshToken)
	requireKind(t, err, KindUnauthorized)
	if _, err := env.engine.Refresh(ctx, second.Tokens.RefreshToken); err != nil {
		t.Fatalf("latest refresh token must work: %v", err)
	}
}

func TestLogoutCrossCheckLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	a := env.login(t, "a@example.com")
	b := env.login(t, "b@example.com")

	err := env.engine.Logout(ctx, a.Tokens.AccessToken, b.Tokens.RefreshToken)
	requireKind(t, err, KindUnauthorized)

	if _, err := env.engine.Authenticate(ctx, a.Tokens.AccessToken); err != nil {
		t.Fatalf("access token of A must stay valid: %v", err)
	}
	if keys := env.redis.Keys(); len(keys) != 2 {
		t.Fatalf("expected only the two pins, got %v", keys)
	}
	if _, err := env.engine.Refresh(ctx, b.Tokens.RefreshToken); err != nil {
		t.Fatalf("refresh token of B must stay valid: %v", err)
	}
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	res := env.login(t, "ok@example.com")

	if err := env.engine.Logout(ctx, res.Tokens.AccessToken, res.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	_, err := env.engine.Authenticate(ctx, res.Tokens.AccessToken)
	requireKind(t, err, KindUnauthorized)
	_, err = env.engine.Refresh(ctx, res.Tokens.RefreshToken)
	requireKind(t, err, KindUnauthorized)

	err = env.engine.Logout(ctx, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	requireKind(t, err, KindUnauthorized)
	requireKind(t, env.engine.Logout(ctx, "", res.Tokens.RefreshToken), KindValidation)
}

func TestResetPasswordFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	session := env.login(t, "ok@example.com")

	if err := env.engine.ForgotPassword(ctx, "ok@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	code := env.mail.lastCode(t, "ok@example.com")

	requireKind(t, env.engine.ResetPassword(ctx, "ok@example.com", code, "short"), KindValidation)
	if err := env.engine.ResetPassword(ctx, "ok@example.com", code, "brand-new-password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	_, err := env.engine.Refresh(ctx, session.Tokens.RefreshToken)
	requireKind(t, err, KindUnauthorized)

	_, err = env.engine.LoginWithPassword(ctx, "ok@example.com", testPassword)
	requireKind(t, err, KindUnauthorized)
	if _, err := env.engine.LoginWithPassword(ctx, "ok@example.com", "brand-new-password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	err = env.engine.ResetPassword(ctx, "ok@example.com", code, "another-password")
	unknown := env.engine.ResetPassword(ctx, "missing@example.com", code, "another-password")
	if requireKind(t, err, KindUnauthorized).Message != requireKind(t, unknown, KindUnauthorized).Message {
		t.Fatal("reset failures must share one message")
	}
}

func TestResetPasswordRefusesInactiveAndUnverifiedAccounts(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	p := env.users.seed(t, "ok@example.com", true, true)

	if err := env.engine.ForgotPassword(ctx, "ok@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	code := env.mail.lastCode(t, "ok@example.com")

	env.users.mu.Lock()
	env.users.byEmail["ok@example.com"].principal.Active = false
	env.users.mu.Unlock()

	e := requireKind(t, env.engine.ResetPassword(ctx, "ok@example.com", code, "brand-new-password"), KindForbidden)
	if e.Message != msgInactiveAccount {
		t.Fatalf("message = %q", e.Message)
	}
	if ok, _ := env.users.CheckCredential(ctx, p.ID, testPassword); !ok {
		t.Fatal("password changed on an inactive account")
	}

	env.users.mu.Lock()
	env.users.byEmail["ok@example.com"].principal.Active = true
	env.users.byEmail["ok@example.com"].principal.Verified = false
	env.users.mu.Unlock()

	unverified := requireKind(t, env.engine.ResetPassword(ctx, "ok@example.com", code, "brand-new-password"), KindUnauthorized)
	wrong := requireKind(t, env.engine.ResetPassword(ctx, "missing@example.com", code, "brand-new-password"), KindUnauthorized)
	if unverified.Message != wrong.Message {
		t.Fatalf("messages differ: %q vs %q", unverified.Message, wrong.Message)
	}

	// The refused attempts left the code redeemable.
	env.users.mu.Lock()
	env.users.byEmail["ok@example.com"].principal.Verified = true
	env.users.mu.Unlock()
	if err := env.engine.ResetPassword(ctx, "ok@example.com", code, "brand-new-password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
}

func TestUnknownEmailCostsAsMuchAsWrongPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("runs bcrypt at production cost")
	}
	hasher, err := password.NewBcrypt(password.DefaultBcryptCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	env := newTestEnv(t, func(_ *Config, b *Builder) { b.WithHasher(hasher) })
	if env.engine.config.Security.FailureDelay != 0 {
		t.Fatalf("expected no failure delay, got %v", env.engine.config.Security.FailureDelay)
	}
	env.users.hasher = hasher
	env.users.seed(t, "known@example.com", true, true)

	ctx := context.Background()
	average := func(email string) time.Duration {
		const rounds = 4
		start := time.Now()
		for i := 0; i < rounds; i++ {
			_, err := env.engine.LoginWithPassword(ctx, email, "wrong-password-1")
			requireKind(t, err, KindUnauthorized)
		}
		return time.Since(start) / rounds
	}

	average("known@example.com")
	known := average("known@example.com")
	unknown := average("nobody@example.com")
	if unknown*3 < known || known*3 < unknown {
		t.Fatalf("unknown email avg=%v, wrong password avg=%v", unknown, known)
	}
}

type countingRepository struct {
	*sqlstore.Store

	mu      sync.Mutex
	lookups int
}

func (r *countingRepository) FindValid(ctx context.Context, principalID, code string, purpose otp.Purpose) (otp.Code, error) {
	r.mu.Lock()
	r.lookups++
	r.mu.Unlock()
	return r.Store.FindValid(ctx, principalID, code, purpose)
}

func (r *countingRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

func TestUnknownEmailStillLooksUpCode(t *testing.T) {
	store, err := sqlstore.Open(sqldb.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open code store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	repo := &countingRepository{Store: store}

	env := newTestEnv(t, func(_ *Config, b *Builder) { b.WithCodeRepository(repo) })
	env.users.seed(t, "known@example.com", true, true)
	ctx := context.Background()

	_, known := env.engine.LoginWithOTP(ctx, "known@example.com", "123456")
	afterKnown := repo.count()
	_, unknown := env.engine.LoginWithOTP(ctx, "nobody@example.com", "123456")
	if repo.count()-afterKnown != afterKnown {
		t.Fatalf("lookups: known=%d unknown=%d", afterKnown, repo.count()-afterKnown)
	}
	if requireKind(t, known, KindUnauthorized).Message != requireKind(t, unknown, KindUnauthorized).Message {
		t.Fatal("otp login failures must share one message")
	}

	before := repo.count()
	requireKind(t, env.engine.ResetPassword(ctx, "nobody@example.com", "123456", "brand-new-password"), KindUnauthorized)
	if repo.count() != before+1 {
		t.Fatalf("reset for unknown email did not look up a code")
	}
}

func TestAuthenticateExpiry(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	res := env.login(t, "ok@example.com")

	env.clock.Advance(time.Hour - time.Second)
	if _, err := env.engine.Authenticate(ctx, res.Tokens.AccessToken); err != nil {
		t.Fatalf("token should be valid before expiry: %v", err)
	}
	env.clock.Advance(2 * time.Second)
	_, err := env.engine.Authenticate(ctx, res.Tokens.AccessToken)
	requireKind(t, err, KindUnauthorized)

	_, err = env.engine.Authenticate(ctx, "")
	requireKind(t, err, KindUnauthorized)
}

func TestStoreOutageFailsClosed(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	res := env.login(t, "ok@example.com")

	env.redis.Close()

	_, err := env.engine.Authenticate(ctx, res.Tokens.AccessToken)
	if err == nil {
		t.Fatal("authentication must not succeed without the store")
	}
	requireKind(t, err, KindServiceUnavailable)

	_, err = env.engine.Refresh(ctx, res.Tokens.RefreshToken)
	if err == nil {
		t.Fatal("refresh must not succeed without the store")
	}

	_, err = env.engine.LoginWithPassword(ctx, "ok@example.com", testPassword)
	requireKind(t, err, KindServiceUnavailable)
}

func TestDirectoryOutageIsServiceUnavailable(t *testing.T) {
	env := newTestEnv(t, nil)
	env.users.findErr = errors.New("connection refused")

	_, err := env.engine.LoginWithPassword(context.Background(), "ok@example.com", testPassword)
	requireKind(t, err, KindServiceUnavailable)
	_, err = env.engine.Register(context.Background(), RegisterInput{Email: "n@example.com", Password: testPassword, Firstname: "a", Lastname: "b"})
	requireKind(t, err, KindServiceUnavailable)
}

func TestFailureDelayPadsUnauthorized(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, _ *Builder) {
		cfg.Security.FailureDelay = 200 * time.Millisecond
	})
	var slept []time.Duration
	env.engine.sleep = func(d time.Duration) { slept = append(slept, d) }
	env.users.seed(t, "ok@example.com", true, true)

	_, err := env.engine.LoginWithPassword(context.Background(), "ok@example.com", "wrong-password")
	requireKind(t, err, KindUnauthorized)
	if len(slept) != 1 || slept[0] <= 0 || slept[0] > 200*time.Millisecond {
		t.Fatalf("expected one padded sleep, got %v", slept)
	}

	if _, err := env.engine.LoginWithPassword(context.Background(), "ok@example.com", testPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(slept) != 1 {
		t.Fatalf("success must not be delayed, got %v", slept)
	}
}

func TestMetricsAndAudit(t *testing.T) {
	sink := NewChannelSink(64)
	env := newTestEnv(t, func(cfg *Config, b *Builder) {
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true
		cfg.Audit.Enabled = true
		cfg.Audit.DropIfFull = false
		b.WithAuditSink(sink)
	})
	ctx := WithClientIP(context.Background(), "203.0.113.7")
	env.users.seed(t, "ok@example.com", true, true)

	_, _ = env.engine.LoginWithPassword(ctx, "ok@example.com", "wrong-password")
	res, err := env.engine.LoginWithPassword(ctx, "ok@example.com", testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, res.Tokens.AccessToken); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricLoginFailure] != 1 || snap.Counters[MetricLoginSuccess] != 1 || snap.Counters[MetricAuthenticateSuccess] != 1 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}
	var observed uint64
	for _, v := range snap.Histograms[MetricAuthenticateLatency] {
		observed += v
	}
	if observed != 1 {
		t.Fatalf("expected one latency sample, got %d", observed)
	}

	env.engine.Close()
	var events []AuditEvent
	for len(sink.Events()) > 0 {
		events = append(events, <-sink.Events())
	}
	if len(events) != 2 {
		t.Fatalf("expected two audit events, got %+v", events)
	}
	if events[0].EventType != auditEventLoginFailure || events[0].Error != "unauthorized" || events[0].IP != "203.0.113.7" {
		t.Fatalf("unexpected failure event %+v", events[0])
	}
	if events[1].EventType != auditEventLoginSuccess || !events[1].Success || events[1].PrincipalID != res.Principal.ID {
		t.Fatalf("unexpected success event %+v", events[1])
	}
}

func TestOperationTimeoutDeniesVerification(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.login(t, "ok@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := env.engine.Authenticate(ctx, res.Tokens.AccessToken)
	requireKind(t, err, KindUnauthorized)
}

func TestPrincipalLookup(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	seeded := env.users.seed(t, "me@example.com", true, true)

	p, err := env.engine.Principal(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("Principal failed: %v", err)
	}
	if p != seeded {
		t.Fatalf("expected %+v, got %+v", seeded, p)
	}

	_, err = env.engine.Principal(ctx, "gone")
	if e := requireKind(t, err, KindUnauthorized); e.Message != msgInvalidSession {
		t.Fatalf("unexpected message %q", e.Message)
	}
}
