package adminauth

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := validateConfig(DefaultConfig()); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidateConfigRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero lockout threshold", func(c *Config) { c.Lockout.Threshold = 0 }},
		{"negative lockout duration", func(c *Config) { c.Lockout.Duration = -time.Minute }},
		{"zero partial ttl", func(c *Config) { c.Session.PartialTTL = 0 }},
		{"zero full ttl", func(c *Config) { c.Session.FullTTL = 0 }},
		{"full shorter than partial", func(c *Config) {
			c.Session.PartialTTL = time.Hour
			c.Session.FullTTL = time.Minute
		}},
		{"zero code ttl", func(c *Config) { c.Code.TTL = 0 }},
		{"too few code digits", func(c *Config) { c.Code.Digits = 4 }},
		{"too many code digits", func(c *Config) { c.Code.Digits = 12 }},
		{"throttle without budget", func(c *Config) { c.Code.MaxSends = 0 }},
		{"throttle without window", func(c *Config) { c.Code.SendWindow = 0 }},
		{"zero notify timeout", func(c *Config) { c.Notify.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := validateConfig(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuilderRequiresRedis(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without a redis client")
	}
}

func TestBuilderRejectsWeakInitialPIN(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	_, err := New().WithConfig(testConfig()).WithRedis(rdb).WithInitialPIN("123").Build()
	if err == nil {
		t.Fatal("expected Build to fail for a too-short bootstrap PIN")
	}
	if !errors.Is(err, ErrWeakSecret) {
		t.Fatalf("expected ErrWeakSecret, got %v", err)
	}
}

func TestBuilderRejectsWeakPINConfigWithInitialPIN(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := testConfig()
	cfg.PIN.Memory = 1 // below the argon2 floor

	_, err := New().WithConfig(cfg).WithRedis(rdb).WithInitialPIN(testPIN).Build()
	if err == nil {
		t.Fatal("expected Build to surface the hasher construction error")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	b := New().WithConfig(testConfig()).WithRedis(rdb).WithInitialPIN(testPIN)
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}
