package adminauth

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/420website/CRM-sub000/internal/limiters"
	"github.com/420website/CRM-sub000/internal/stores"
	"github.com/420website/CRM-sub000/notify"
	"github.com/420website/CRM-sub000/pin"
)

// Builder assembles an [Engine]. Configure during initialization, call Build
// once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	gateway   notify.Gateway
	auditSink AuditSink

	built bool
	err   error
}

// New starts a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis supplies the backing store client. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithGateway supplies the out-of-band code delivery gateway. Required when
// the second factor will ever be enabled.
func (b *Builder) WithGateway(gw notify.Gateway) *Builder {
	b.gateway = gw
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithInitialPIN hashes and stages the operator-provisioned bootstrap PIN
// used to lazily create the account record on first access. Hashing failures
// surface from Build, never silently.
func (b *Builder) WithInitialPIN(secret string) *Builder {
	hasher, err := pin.NewArgon2(toPINConfig(b.config.PIN))
	if err != nil {
		b.err = fmt.Errorf("initial pin: %w", err)
		return b
	}
	hash, err := hasher.Hash(secret)
	if err != nil {
		if errors.Is(err, pin.ErrWeakSecret) {
			err = ErrWeakSecret
		}
		b.err = fmt.Errorf("initial pin: %w", err)
		return b
	}
	b.config.InitialPINHash = hash
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.err != nil {
		return nil, b.err
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	hasher, err := pin.NewArgon2(toPINConfig(b.config.PIN))
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    b.config,
		store:     stores.NewAccountStore(b.redis, b.config.RedisPrefix),
		pinHasher: hasher,
		gateway:   b.gateway,
		audit:     newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:   newMetrics(b.config.Metrics),
	}
	if b.config.Code.SendThrottle {
		engine.sendLimiter = limiters.NewSendCodeLimiter(b.redis, limiters.SendCodeConfig{
			Enabled:  true,
			MaxSends: b.config.Code.MaxSends,
			Window:   b.config.Code.SendWindow,
		})
	}

	b.built = true
	return engine, nil
}

func toPINConfig(cfg PINConfig) pin.Config {
	return pin.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	}
}
