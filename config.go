package authcore

import (
	"errors"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
)

// Config is the complete Engine configuration. Build validates it and keeps
// a private copy.
type Config struct {
	Token    TokenConfig
	OTP      OTPConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig

	// OperationTimeout bounds every use case. Zero disables it.
	OperationTimeout time.Duration
}

// TokenConfig controls JWT signing and the key-value records behind sessions.
type TokenConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
	SigningMethod jwt.SigningMethod

	// AccessKey and RefreshKey are HMAC secrets for hs256 or Ed25519
	// private keys. The public keys are optional for ed25519.
	AccessKey        []byte
	RefreshKey       []byte
	AccessPublicKey  []byte
	RefreshPublicKey []byte

	PinPrefix       string
	BlacklistPrefix string
	PinTTL          time.Duration
	BlacklistTTL    time.Duration
}

type OTPConfig struct {
	Length   int
	Lifetime time.Duration
}

// PasswordConfig selects the hasher and the minimum length accepted by
// Register and ResetPassword.
type PasswordConfig struct {
	MinLength  int
	Algorithm  string
	BcryptCost int
	Argon2     password.Config
}

// SecurityConfig holds timing hardening.
type SecurityConfig struct {
	// FailureDelay pads every Unauthorized result to at least this long.
	FailureDelay time.Duration
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the defaults. Token keys are left empty and must be
// supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:       time.Hour,
			RefreshTTL:      7 * 24 * time.Hour,
			Issuer:          "your-issuer",
			SigningMethod:   jwt.MethodHS256,
			PinPrefix:       "pin:",
			BlacklistPrefix: "bl_",
			PinTTL:          31536000 * time.Second,
			BlacklistTTL:    2592000 * time.Second,
		},
		OTP: OTPConfig{
			Length:   6,
			Lifetime: 5 * time.Minute,
		},
		Password: PasswordConfig{
			MinLength:  8,
			Algorithm:  "bcrypt",
			BcryptCost: password.DefaultBcryptCost,
			Argon2:     password.DefaultArgon2Config(),
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		OperationTimeout: 5 * time.Second,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.AccessKey = cloneBytes(cfg.Token.AccessKey)
	out.Token.RefreshKey = cloneBytes(cfg.Token.RefreshKey)
	out.Token.AccessPublicKey = cloneBytes(cfg.Token.AccessPublicKey)
	out.Token.RefreshPublicKey = cloneBytes(cfg.Token.RefreshPublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting. Signing keys are checked in
// detail by the jwt package during Build.
func (c *Config) Validate() error {
	// Token
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.SigningMethod != jwt.MethodHS256 && c.Token.SigningMethod != jwt.MethodEd25519 {
		return errors.New("unsupported Token SigningMethod")
	}
	if len(c.Token.AccessKey) == 0 || len(c.Token.RefreshKey) == 0 {
		return errors.New("Token AccessKey and RefreshKey are required")
	}
	if c.Token.PinTTL < c.Token.RefreshTTL {
		return errors.New("Token PinTTL must be >= RefreshTTL")
	}
	if c.Token.BlacklistTTL <= 0 {
		return errors.New("Token BlacklistTTL must be > 0")
	}
	if c.Token.PinPrefix == "" || c.Token.BlacklistPrefix == "" || c.Token.PinPrefix == c.Token.BlacklistPrefix {
		return errors.New("Token PinPrefix and BlacklistPrefix must be distinct and non-empty")
	}

	// OTP
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		return errors.New("OTP Length must be within [4,10]")
	}
	if c.OTP.Lifetime < time.Minute {
		return errors.New("OTP Lifetime must be >= 1m")
	}

	// Password
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	if c.Security.FailureDelay < 0 || c.Security.FailureDelay > 5*time.Second {
		return errors.New("Security FailureDelay must be within [0,5s]")
	}
	if c.OperationTimeout < 0 {
		return errors.New("OperationTimeout must be >= 0")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	return nil
}
