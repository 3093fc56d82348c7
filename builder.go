package authcore

import (
	"errors"
	"fmt"

	"github.com/debtflow/authcore/attempt"
	internalaudit "github.com/debtflow/authcore/internal/audit"
	"github.com/debtflow/authcore/kv"
	"github.com/debtflow/authcore/password"
	"github.com/debtflow/authcore/session"
	"github.com/debtflow/authcore/token"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles a [Service]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  kv.Store

	userProvider UserProvider
	hasher       password.Hasher
	auditSink    AuditSink
	logger       *zerolog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Key material is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the Service with a go-redis client. The Service never
// closes the client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore backs the Service with an arbitrary [kv.Store]. It takes
// precedence over WithRedis.
func (b *Builder) WithStore(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithUserProvider sets the credential lookup used by Login.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithPasswordHasher overrides the Argon2id hasher built from Config.Password.
func (b *Builder) WithPasswordHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithAuditSink sets the audit destination and enables the dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the AuthorizeRequest latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Service.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or store required")
		}
		store = kv.NewRedis(b.redis, kv.WithTimeout(cfg.Store.OperationTimeout))
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	policy := attempt.Policy{
		Threshold: cfg.Login.MaxAttempts,
		Lockout:   cfg.Login.Lockout,
		Window:    cfg.Login.Window,
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	// -------- TOKENS --------
	issuer, err := token.NewIssuer(cfg.tokenConfig())
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	// -------- PASSWORD --------
	hasher := b.hasher
	if hasher == nil {
		ph, err := password.NewArgon2(password.Config{
			Memory:           cfg.Password.Memory,
			Time:             cfg.Password.Time,
			Parallelism:      cfg.Password.Parallelism,
			SaltLength:       cfg.Password.SaltLength,
			KeyLength:        cfg.Password.KeyLength,
			MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
		})
		if err != nil {
			return nil, err
		}
		hasher = ph
	}
	dummyHash, err := hasher.Hash("authcore-unknown-user-password")
	if err != nil {
		return nil, fmt.Errorf("password: %w", err)
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	svc := &Service{
		config: cfg,
		store:  store,
		tokens: issuer,
		guard:  attempt.NewGuard(store, policy.Window),
		policy: policy,
		sessions: session.NewManager(store, issuer, session.Config{
			TTL:         cfg.Session.TTL,
			AtomicReuse: cfg.Session.AtomicReuse,
		}),
		users:     b.userProvider,
		hasher:    hasher,
		dummyHash: dummyHash,
		logger:    logger.With().Str("component", "authcore").Logger(),
		metrics:   NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Critical:   []string{EventLoginBlocked, EventLockoutTriggered},
		}, b.auditSink),
	}

	for _, w := range cfg.Lint().BySeverity(LintHigh) {
		svc.logger.Warn().Str("code", w.Code).Msg(w.Message)
	}

	b.built = true

	return svc, nil
}
