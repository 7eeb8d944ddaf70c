package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGatewayFuncAdapts(t *testing.T) {
	var gotDest, gotCode string
	gw := GatewayFunc(func(_ context.Context, destination, code string) error {
		gotDest, gotCode = destination, code
		return nil
	})

	if err := gw.Send(context.Background(), "admin@example.com", "482913"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotDest != "admin@example.com" || gotCode != "482913" {
		t.Fatalf("unexpected call %q %q", gotDest, gotCode)
	}
}

func TestNewSMTPGatewayDefaults(t *testing.T) {
	gw := NewSMTPGateway(SMTPConfig{Host: "mail.example.com", Port: "587"})
	if gw.config.Subject == "" {
		t.Fatal("expected default subject")
	}
	if gw.config.Timeout != 10*time.Second {
		t.Fatalf("expected default timeout, got %v", gw.config.Timeout)
	}
}

func TestSMTPSendRespectsContextDeadline(t *testing.T) {
	// A blackhole address: dialing must fail fast once the ctx is done
	// rather than hanging for the OS connect timeout.
	gw := NewSMTPGateway(SMTPConfig{Host: "203.0.113.1", Port: "587", Timeout: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := gw.Send(ctx, "admin@example.com", "482913")
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !errors.Is(err, context.DeadlineExceeded) && !strings.Contains(err.Error(), "smtp dial") {
		t.Fatalf("unexpected error %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("send did not respect the context deadline, took %v", time.Since(start))
	}
}
