package adminauth

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

func collectEvents(t *testing.T, sink *ChannelSink, n int) []AuditEvent {
	t.Helper()

	events := make([]AuditEvent, 0, n)
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case event := <-sink.Events():
			events = append(events, event)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(events), n)
		}
	}
	return events
}

func newAuditedEngine(t *testing.T, sink AuditSink) (*Engine, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	cfg := testConfig()
	cfg.Audit.Enabled = true

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAuditSink(sink).
		WithInitialPIN(testPIN).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		mr.Close()
	}
}

func TestAuditEventsCarryCauseAndIP(t *testing.T) {
	sink := NewChannelSink(16)
	engine, done := newAuditedEngine(t, sink)
	defer done()

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	engine.VerifyPrimary(ctx, "9999")
	engine.VerifyPrimary(ctx, testPIN)

	events := collectEvents(t, sink, 2)

	failure := events[0]
	if failure.Success {
		t.Fatalf("expected failure event first, got %+v", failure)
	}
	if failure.Error == "" {
		t.Fatal("expected failure event to carry the internal cause")
	}
	if failure.IP != "203.0.113.7" {
		t.Fatalf("expected caller IP, got %q", failure.IP)
	}
	if failure.EventID == "" {
		t.Fatal("expected event id")
	}
	if failure.Timestamp.IsZero() {
		t.Fatal("expected timestamp")
	}

	success := events[1]
	if !success.Success || success.Trust == "" {
		t.Fatalf("expected successful event with trust, got %+v", success)
	}
}

func TestAuditEventsNeverContainSecrets(t *testing.T) {
	sink := NewChannelSink(16)
	engine, done := newAuditedEngine(t, sink)
	defer done()

	ctx := context.Background()
	engine.VerifyPrimary(ctx, "9999")
	result, err := engine.VerifyPrimary(ctx, testPIN)
	if err != nil {
		t.Fatalf("VerifyPrimary failed: %v", err)
	}

	for _, event := range collectEvents(t, sink, 2) {
		raw, err := json.Marshal(event)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if bytes.Contains(raw, []byte(testPIN)) {
			t.Fatalf("event leaks the PIN: %s", raw)
		}
		if bytes.Contains(raw, []byte(result.Session.Token)) {
			t.Fatalf("event leaks the session token: %s", raw)
		}
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		EventID:   "e1",
		EventType: "primary.success",
		Success:   true,
	})
	sink.Emit(context.Background(), AuditEvent{
		EventID:   "e2",
		EventType: "primary.failure",
	})

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var event AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	slow := &blockingSink{release: block}

	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, slow)
	defer func() {
		close(block)
		d.Close()
	}()

	// One event occupies the worker, one fills the buffer; the rest drop.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventID: "e"})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected drops under backpressure")
	}
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: false}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventID: "e"})
	}
	d.Close()

	received := 0
	for {
		select {
		case <-sink.Events():
			received++
		default:
			if received != 5 {
				t.Fatalf("expected 5 events after drain, got %d", received)
			}
			return
		}
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(_ context.Context, _ AuditEvent) {
	<-s.release
}
