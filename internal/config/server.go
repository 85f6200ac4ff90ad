package config

import (
	"fmt"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/notify"
)

// Server holds everything cmd/authcore-server reads from the environment.
type Server struct {
	Addr string `env:"AUTHCORE_ADDR" envDefault:":8080"`

	// An empty RedisAddr starts an in-process miniredis.
	RedisAddr     string `env:"AUTHCORE_REDIS_ADDR"`
	RedisPassword string `env:"AUTHCORE_REDIS_PASSWORD"`
	RedisDB       int    `env:"AUTHCORE_REDIS_DB" envDefault:"0"`

	SQLDialect string `env:"AUTHCORE_SQL_DIALECT" envDefault:"sqlite"`
	SQLDSN     string `env:"AUTHCORE_SQL_DSN"     envDefault:"file:authcore.db"`

	// An empty AMQPURL logs mail instead of publishing it.
	AMQPURL     string `env:"AUTHCORE_AMQP_URL"`
	EmailQueue  string `env:"AUTHCORE_EMAIL_QUEUE"      envDefault:"email_queue"`
	CatalogPath string `env:"AUTHCORE_PURPOSE_CATALOG"`

	SigningMethod    string        `env:"AUTHCORE_SIGNING_METHOD"     envDefault:"hs256"`
	AccessKey        string        `env:"AUTHCORE_ACCESS_TOKEN_KEY,required"`
	RefreshKey       string        `env:"AUTHCORE_REFRESH_TOKEN_KEY,required"`
	AccessPublicKey  string        `env:"AUTHCORE_ACCESS_PUBLIC_KEY"`
	RefreshPublicKey string        `env:"AUTHCORE_REFRESH_PUBLIC_KEY"`
	Issuer           string        `env:"AUTHCORE_ISSUER"             envDefault:"your-issuer"`
	AccessTTL        time.Duration `env:"AUTHCORE_ACCESS_TTL"         envDefault:"1h"`
	RefreshTTL       time.Duration `env:"AUTHCORE_REFRESH_TTL"        envDefault:"168h"`
	PinTTL           time.Duration `env:"AUTHCORE_PIN_TTL"            envDefault:"8760h"`
	BlacklistTTL     time.Duration `env:"AUTHCORE_BLACKLIST_TTL"      envDefault:"720h"`

	OTPLength   int           `env:"AUTHCORE_OTP_LENGTH"   envDefault:"6"`
	OTPLifetime time.Duration `env:"AUTHCORE_OTP_LIFETIME" envDefault:"5m"`

	PasswordAlgorithm string `env:"AUTHCORE_PASSWORD_ALGORITHM"  envDefault:"bcrypt"`
	BcryptCost        int    `env:"AUTHCORE_BCRYPT_COST"         envDefault:"10"`
	PasswordMinLength int    `env:"AUTHCORE_PASSWORD_MIN_LENGTH" envDefault:"8"`

	FailureDelay     time.Duration `env:"AUTHCORE_FAILURE_DELAY"     envDefault:"0s"`
	OperationTimeout time.Duration `env:"AUTHCORE_OPERATION_TIMEOUT" envDefault:"5s"`

	AuditEnabled      bool `env:"AUTHCORE_AUDIT_ENABLED"       envDefault:"false"`
	MetricsEnabled    bool `env:"AUTHCORE_METRICS_ENABLED"     envDefault:"true"`
	LatencyHistograms bool `env:"AUTHCORE_LATENCY_HISTOGRAMS"  envDefault:"true"`
}

// LoadServer parses Server from the environment.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if cfg.EmailQueue == "" {
		cfg.EmailQueue = notify.DefaultEmailQueue
	}
	return cfg, nil
}

// Core maps the server settings onto an engine configuration and validates it.
func (s Server) Core() (authcore.Config, error) {
	cfg := authcore.DefaultConfig()

	cfg.Token.SigningMethod = jwt.SigningMethod(s.SigningMethod)
	cfg.Token.AccessKey = []byte(s.AccessKey)
	cfg.Token.RefreshKey = []byte(s.RefreshKey)
	if s.AccessPublicKey != "" {
		cfg.Token.AccessPublicKey = []byte(s.AccessPublicKey)
	}
	if s.RefreshPublicKey != "" {
		cfg.Token.RefreshPublicKey = []byte(s.RefreshPublicKey)
	}
	cfg.Token.Issuer = s.Issuer
	cfg.Token.AccessTTL = s.AccessTTL
	cfg.Token.RefreshTTL = s.RefreshTTL
	cfg.Token.PinTTL = s.PinTTL
	cfg.Token.BlacklistTTL = s.BlacklistTTL

	cfg.OTP.Length = s.OTPLength
	cfg.OTP.Lifetime = s.OTPLifetime

	cfg.Password.Algorithm = s.PasswordAlgorithm
	cfg.Password.BcryptCost = s.BcryptCost
	cfg.Password.MinLength = s.PasswordMinLength

	cfg.Security.FailureDelay = s.FailureDelay
	cfg.OperationTimeout = s.OperationTimeout
	cfg.Audit.Enabled = s.AuditEnabled
	cfg.Metrics.Enabled = s.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = s.LatencyHistograms

	if err := cfg.Validate(); err != nil {
		return authcore.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
