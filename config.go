package adminauth

import (
	"errors"
	"time"
)

// Config groups every tunable of the authentication core. Construct with
// [DefaultConfig] and override as needed; Build validates the result.
type Config struct {
	// RedisPrefix namespaces every key this module writes.
	RedisPrefix string

	PIN     PINConfig
	Lockout LockoutConfig
	Session SessionConfig
	Code    CodeConfig
	Notify  NotifyConfig
	Audit   AuditConfig
	Metrics MetricsConfig

	// InitialPINHash provisions the account record on first access. Supplying
	// it is a deployment responsibility; the engine never ships a default
	// secret. Leave empty when the account is known to exist already.
	InitialPINHash string
}

// PINConfig holds the Argon2id cost parameters for the primary secret.
type PINConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// LockoutConfig holds the shared brute-force policy. Both factors consult
// the same thresholds but keep independent counters.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// SessionConfig bounds the two session trust levels. PartialTTL only needs
// to cover completing the second factor.
type SessionConfig struct {
	PartialTTL time.Duration
	FullTTL    time.Duration
}

// CodeConfig governs one-time code issuance.
type CodeConfig struct {
	TTL          time.Duration
	Digits       int
	SendThrottle bool
	MaxSends     int
	SendWindow   time.Duration
}

// NotifyConfig bounds the out-of-band delivery call.
type NotifyConfig struct {
	Timeout time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the documented defaults: 5 consecutive failures arm a
// 15-minute lock, Partial sessions live 10 minutes, Full sessions 30, codes
// are 6 digits valid for 10 minutes with at most 5 sends per code window.
func DefaultConfig() Config {
	return Config{
		RedisPrefix: "aa",
		PIN: PINConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  15 * time.Minute,
		},
		Session: SessionConfig{
			PartialTTL: 10 * time.Minute,
			FullTTL:    30 * time.Minute,
		},
		Code: CodeConfig{
			TTL:          10 * time.Minute,
			Digits:       6,
			SendThrottle: true,
			MaxSends:     5,
			SendWindow:   10 * time.Minute,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.Lockout.Threshold < 1 {
		return errors.New("lockout threshold must be >= 1")
	}
	if cfg.Lockout.Duration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if cfg.Session.PartialTTL <= 0 || cfg.Session.FullTTL <= 0 {
		return errors.New("session TTLs must be positive")
	}
	if cfg.Session.FullTTL < cfg.Session.PartialTTL {
		return errors.New("full session TTL must be >= partial TTL")
	}
	if cfg.Code.TTL <= 0 {
		return errors.New("code TTL must be positive")
	}
	if cfg.Code.Digits < 6 || cfg.Code.Digits > 10 {
		return errors.New("code digits must be between 6 and 10")
	}
	if cfg.Code.SendThrottle {
		if cfg.Code.MaxSends < 1 {
			return errors.New("code max sends must be >= 1")
		}
		if cfg.Code.SendWindow <= 0 {
			return errors.New("code send window must be positive")
		}
	}
	if cfg.Notify.Timeout <= 0 {
		return errors.New("notify timeout must be positive")
	}
	return nil
}
