package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const (
	testAccessKey  = "0123456789abcdef0123456789abcdef"
	testRefreshKey = "fedcba9876543210fedcba9876543210"
)

func setKeys(t *testing.T) {
	t.Helper()
	t.Setenv("AUTHCORE_ACCESS_TOKEN_KEY", testAccessKey)
	t.Setenv("AUTHCORE_REFRESH_TOKEN_KEY", testRefreshKey)
}

func TestLoadServerDefaults(t *testing.T) {
	setKeys(t)

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer failed: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.SQLDialect != "sqlite" || cfg.EmailQueue != "email_queue" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	core, err := cfg.Core()
	if err != nil {
		t.Fatalf("Core failed: %v", err)
	}
	if core.Token.SigningMethod != jwt.MethodHS256 {
		t.Fatalf("expected hs256, got %q", core.Token.SigningMethod)
	}
	if core.Token.PinTTL != 31536000*time.Second || core.Token.BlacklistTTL != 2592000*time.Second {
		t.Fatalf("unexpected key retention %v %v", core.Token.PinTTL, core.Token.BlacklistTTL)
	}
	if core.OTP.Length != 6 || core.OTP.Lifetime != 5*time.Minute {
		t.Fatalf("unexpected otp config %+v", core.OTP)
	}
	if string(core.Token.AccessKey) != testAccessKey || !core.Metrics.Enabled {
		t.Fatalf("unexpected core config %+v", core)
	}
}

func TestLoadServerOverrides(t *testing.T) {
	setKeys(t)
	t.Setenv("AUTHCORE_OTP_LIFETIME", "10m")
	t.Setenv("AUTHCORE_FAILURE_DELAY", "250ms")
	t.Setenv("AUTHCORE_PASSWORD_ALGORITHM", "argon2id")
	t.Setenv("AUTHCORE_AUDIT_ENABLED", "true")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer failed: %v", err)
	}
	core, err := cfg.Core()
	if err != nil {
		t.Fatalf("Core failed: %v", err)
	}
	if core.OTP.Lifetime != 10*time.Minute || core.Security.FailureDelay != 250*time.Millisecond {
		t.Fatalf("overrides not applied: %+v %+v", core.OTP, core.Security)
	}
	if core.Password.Algorithm != "argon2id" || !core.Audit.Enabled {
		t.Fatalf("overrides not applied: %+v %+v", core.Password, core.Audit)
	}
}

func TestLoadServerRequiresKeys(t *testing.T) {
	t.Setenv("AUTHCORE_ACCESS_TOKEN_KEY", "")
	t.Setenv("AUTHCORE_REFRESH_TOKEN_KEY", "")
	os.Unsetenv("AUTHCORE_ACCESS_TOKEN_KEY")
	os.Unsetenv("AUTHCORE_REFRESH_TOKEN_KEY")

	if _, err := LoadServer(); err == nil {
		t.Fatal("expected missing keys to fail")
	}
}

func TestCoreRejectsInvalidValues(t *testing.T) {
	setKeys(t)
	t.Setenv("AUTHCORE_OTP_LENGTH", "2")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer failed: %v", err)
	}
	if _, err := cfg.Core(); err == nil {
		t.Fatal("expected invalid otp length to be rejected")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("AUTHCORE_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE_PATH", path)
	t.Setenv("AUTHCORE_TEST_DOTENV", "")
	os.Unsetenv("AUTHCORE_TEST_DOTENV")

	loadDotEnv("")
	if got := os.Getenv("AUTHCORE_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}

type fakeSecrets struct {
	out   *secretsmanager.GetSecretValueOutput
	err   error
	input *secretsmanager.GetSecretValueInput
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.input = in
	return f.out, f.err
}

func TestLoadSecretAppliesKeys(t *testing.T) {
	t.Setenv("AUTHCORE_TEST_SECRET_A", "")
	t.Setenv("AUTHCORE_TEST_SECRET_B", "kept")

	client := &fakeSecrets{out: &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"AUTHCORE_TEST_SECRET_A":"alpha","AUTHCORE_TEST_SECRET_B":"beta"}`),
	}}
	n, err := LoadSecret(context.Background(), client, SecretSource{ID: "authcore/test"})
	if err != nil {
		t.Fatalf("LoadSecret failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 applied var, got %d", n)
	}
	if os.Getenv("AUTHCORE_TEST_SECRET_A") != "alpha" || os.Getenv("AUTHCORE_TEST_SECRET_B") != "kept" {
		t.Fatal("existing env should win without overwrite")
	}
	if aws.ToString(client.input.VersionStage) != "AWSCURRENT" || aws.ToString(client.input.SecretId) != "authcore/test" {
		t.Fatalf("unexpected request %+v", client.input)
	}
}

func TestLoadSecretOverwrite(t *testing.T) {
	t.Setenv("AUTHCORE_TEST_SECRET_B", "kept")

	client := &fakeSecrets{out: &secretsmanager.GetSecretValueOutput{
		SecretBinary: []byte(`{"AUTHCORE_TEST_SECRET_B":"beta"}`),
	}}
	if _, err := LoadSecret(context.Background(), client, SecretSource{ID: "s", Overwrite: true}); err != nil {
		t.Fatalf("LoadSecret failed: %v", err)
	}
	if got := os.Getenv("AUTHCORE_TEST_SECRET_B"); got != "beta" {
		t.Fatalf("expected overwrite, got %q", got)
	}
}

func TestLoadSecretErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := LoadSecret(ctx, &fakeSecrets{}, SecretSource{}); err == nil {
		t.Fatal("expected missing id to fail")
	}

	boom := errors.New("boom")
	if _, err := LoadSecret(ctx, &fakeSecrets{err: boom}, SecretSource{ID: "s"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}

	empty := &fakeSecrets{out: &secretsmanager.GetSecretValueOutput{}}
	if _, err := LoadSecret(ctx, empty, SecretSource{ID: "s"}); err == nil {
		t.Fatal("expected empty payload to fail")
	}

	notJSON := &fakeSecrets{out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String("plain")}}
	if _, err := LoadSecret(ctx, notJSON, SecretSource{ID: "s"}); err == nil {
		t.Fatal("expected non-JSON payload to fail")
	}
}
