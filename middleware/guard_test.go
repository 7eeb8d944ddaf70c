package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	adminauth "github.com/420website/CRM-sub000"
)

func newGuardedHandler(t *testing.T, required adminauth.TrustLevel) (*adminauth.Engine, http.Handler, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := adminauth.DefaultConfig()
	cfg.PIN.Memory = 8 * 1024
	cfg.PIN.Time = 1
	cfg.Audit.Enabled = false

	engine, err := adminauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithInitialPIN("0224").
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, ok := SessionFromContext(r.Context())
		if !ok {
			t.Error("expected session info in context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(info.Trust.String()))
	})
	handler = Guard(engine, required)(handler)

	return engine, handler, func() {
		engine.Close()
		mr.Close()
	}
}

func get(handler http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGuardAdmitsValidSession(t *testing.T) {
	engine, handler, done := newGuardedHandler(t, adminauth.TrustFull)
	defer done()

	result, err := engine.VerifyPrimary(context.Background(), "0224")
	if err != nil {
		t.Fatalf("VerifyPrimary failed: %v", err)
	}

	rec := get(handler, "Bearer "+result.Session.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "full" {
		t.Fatalf("expected full trust in context, got %q", rec.Body.String())
	}
}

func TestGuardRejectsMissingAndMalformedHeaders(t *testing.T) {
	_, handler, done := newGuardedHandler(t, adminauth.TrustFull)
	defer done()

	for _, auth := range []string{"", "Bearer ", "Basic abc", "token-without-scheme"} {
		rec := get(handler, auth)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("authorization %q: expected 401, got %d", auth, rec.Code)
		}
	}
}

func TestGuardRejectsUnknownToken(t *testing.T) {
	engine, handler, done := newGuardedHandler(t, adminauth.TrustFull)
	defer done()

	if _, err := engine.VerifyPrimary(context.Background(), "0224"); err != nil {
		t.Fatalf("VerifyPrimary failed: %v", err)
	}

	rec := get(handler, "Bearer not-the-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGuardNilEngine(t *testing.T) {
	handler := Guard(nil, adminauth.TrustFull)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	rec := get(handler, "Bearer anything")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
