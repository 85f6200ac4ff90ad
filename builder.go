package authcore

import (
	"errors"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/kv"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config

	store    kv.Store
	users    UserDirectory
	codes    otp.Repository
	notifier notify.Notifier
	catalog  notify.Catalog
	hasher   password.Hasher

	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder holding the default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores refresh pins and the blacklist in client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	if client != nil {
		b.store = kv.NewRedisStore(client)
	}
	return b
}

// WithKVStore replaces the key-value store. Stores that also implement
// kv.Swapper get atomic refresh rotation.
func (b *Builder) WithKVStore(store kv.Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithUserDirectory(users UserDirectory) *Builder {
	b.users = users
	return b
}

// WithCodeRepository sets where one-time codes are persisted, normally an
// *sqlstore.Store.
func (b *Builder) WithCodeRepository(repo otp.Repository) *Builder {
	b.codes = repo
	return b
}

func (b *Builder) WithNotifier(n notify.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithCatalog overrides the purpose wording used in code mails.
func (b *Builder) WithCatalog(c notify.Catalog) *Builder {
	b.catalog = c
	return b
}

// WithHasher overrides the hasher selected by Config.Password.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock replaces the time source of token signing and code expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the services.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("redis client or kv store required")
	}
	if b.users == nil {
		return nil, errors.New("user directory required")
	}
	if b.codes == nil {
		return nil, errors.New("code repository required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	// -------- TOKENS --------
	access, err := jwt.NewManager(jwt.Config{
		Kind:          jwt.KindAccess,
		TTL:           cfg.Token.AccessTTL,
		SigningMethod: cfg.Token.SigningMethod,
		PrivateKey:    cfg.Token.AccessKey,
		PublicKey:     cfg.Token.AccessPublicKey,
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}
	refresh, err := jwt.NewManager(jwt.Config{
		Kind:          jwt.KindRefresh,
		TTL:           cfg.Token.RefreshTTL,
		SigningMethod: cfg.Token.SigningMethod,
		PrivateKey:    cfg.Token.RefreshKey,
		PublicKey:     cfg.Token.RefreshPublicKey,
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}
	if b.now != nil {
		access.WithClock(b.now)
		refresh.WithClock(b.now)
	}

	tokens, err := token.NewService(access, refresh, b.store, token.Config{
		PinPrefix:       cfg.Token.PinPrefix,
		BlacklistPrefix: cfg.Token.BlacklistPrefix,
		PinTTL:          cfg.Token.PinTTL,
		BlacklistTTL:    cfg.Token.BlacklistTTL,
	})
	if err != nil {
		return nil, err
	}

	// -------- CODES --------
	codes, err := otp.NewService(
		b.codes,
		directoryResolver{users: b.users},
		notify.NewCodeMailer(b.notifier, b.catalog),
		otp.Config{Length: cfg.OTP.Length, Lifetime: cfg.OTP.Lifetime},
	)
	if err != nil {
		return nil, err
	}
	if b.now != nil {
		codes.WithClock(b.now)
	}

	// -------- PASSWORDS --------
	hasher := b.hasher
	if hasher == nil {
		hasher, err = password.New(cfg.Password.Algorithm, cfg.Password.BcryptCost, cfg.Password.Argon2)
		if err != nil {
			return nil, err
		}
	}

	dummyHash, err := hasher.Hash("authcore-unknown-principal")
	if err != nil {
		return nil, err
	}

	b.built = true
	return &Engine{
		config:  cfg,
		tokens:  tokens,
		codes:   codes,
		users:   b.users,
		hasher:  hasher,
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		sleep:   time.Sleep,

		dummyHash: dummyHash,
	}, nil
}
