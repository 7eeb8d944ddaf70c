package adminauth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testPIN        = "0224"
	testAccountKey = "aa:account:admin"
	testEmail      = "admin@example.com"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

// testConfig lowers the argon2 cost so the suite stays fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PIN.Memory = 8 * 1024
	cfg.PIN.Time = 1
	cfg.Audit.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *redis.Client, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithInitialPIN(testPIN).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, rdb, func() {
		engine.Close()
		mr.Close()
	}
}

// captureGateway records every code handed to it and optionally fails the
// delivery while still recording.
type captureGateway struct {
	mu    sync.Mutex
	codes []string
	dests []string
	fail  bool
}

func (g *captureGateway) Send(_ context.Context, destination, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.codes = append(g.codes, code)
	g.dests = append(g.dests, destination)
	if g.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (g *captureGateway) lastCode(t *testing.T) string {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.codes) == 0 {
		t.Fatal("gateway captured no codes")
	}
	return g.codes[len(g.codes)-1]
}

func newSecondFactorEngine(t *testing.T, gw *captureGateway, mutate func(*Config)) (*Engine, *redis.Client, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithGateway(gw).
		WithInitialPIN(testPIN).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, rdb, func() {
		engine.Close()
		mr.Close()
	}
}

// activateSecondFactor walks the full activation flow and returns the
// Full-trust token it ends with.
func activateSecondFactor(t *testing.T, engine *Engine, gw *captureGateway) string {
	t.Helper()
	ctx := context.Background()

	primary, err := engine.VerifyPrimary(ctx, testPIN)
	if err != nil {
		t.Fatalf("VerifyPrimary failed: %v", err)
	}
	token := primary.Session.Token

	if err := engine.BindSecondFactorEmail(ctx, token, testEmail); err != nil {
		t.Fatalf("BindSecondFactorEmail failed: %v", err)
	}
	if _, err := engine.SendCode(ctx, token); err != nil {
		t.Fatalf("SendCode failed: %v", err)
	}

	result, err := engine.VerifyCode(ctx, token, gw.lastCode(t))
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if !result.SecondFactorActivated {
		t.Fatal("expected activation on first code verification")
	}
	return result.Session.Token
}

// failingCommandHook rejects every command whose arguments mention the
// marker, so a single write inside a multi-step flow can be made to fail.
type failingCommandHook struct {
	marker string
}

func (h *failingCommandHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *failingCommandHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if commandMentions(cmd, h.marker) {
			err := errors.New("injected redis failure")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (h *failingCommandHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			if commandMentions(cmd, h.marker) {
				err := errors.New("injected redis failure")
				cmd.SetErr(err)
				return err
			}
		}
		return next(ctx, cmds)
	}
}

func commandMentions(cmd redis.Cmder, marker string) bool {
	for _, arg := range cmd.Args() {
		if s, ok := arg.(string); ok && strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func hsetAccount(t *testing.T, rdb *redis.Client, field string, value int64) {
	t.Helper()
	if err := rdb.HSet(context.Background(), testAccountKey, field, strconv.FormatInt(value, 10)).Err(); err != nil {
		t.Fatalf("HSet %s failed: %v", field, err)
	}
}

func accountField(t *testing.T, rdb *redis.Client, field string) string {
	t.Helper()
	val, err := rdb.HGet(context.Background(), testAccountKey, field).Result()
	if err == redis.Nil {
		return ""
	}
	if err != nil {
		t.Fatalf("HGet %s failed: %v", field, err)
	}
	return val
}

func pastUnix() int64 {
	return time.Now().UTC().Add(-time.Minute).Unix()
}
