package adminauth

import (
	"crypto/subtle"
	"regexp"
	"time"

	"github.com/420website/CRM-sub000/internal"
	"github.com/420website/CRM-sub000/internal/limiters"
	"github.com/420website/CRM-sub000/internal/stores"
	"github.com/420website/CRM-sub000/notify"
	"github.com/420website/CRM-sub000/pin"
)

// Engine orchestrates administrator authentication: the primary PIN check,
// the email one-time-code second factor, session trust, and lockout. Build
// one with [New] at startup and treat it as immutable.
type Engine struct {
	config      Config
	store       *stores.AccountStore
	pinHasher   *pin.Argon2
	sendLimiter *limiters.SendCodeLimiter
	gateway     notify.Gateway
	audit       *auditDispatcher
	metrics     *Metrics
}

// Close flushes the audit dispatcher. Call on shutdown.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the counter registry.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.inc(id)
}

// now is the single time source; everything downstream compares unix seconds.
func (e *Engine) now() time.Time {
	return time.Now().UTC()
}

// matchSession compares a presented token against the persisted session in
// constant time and classifies the result. Pure read; callers that mutate the
// session go through the store's atomic scripts instead.
func (e *Engine) matchSession(acct *stores.AccountRecord, token string, now time.Time) (TrustLevel, error) {
	if len(acct.SessionHash) == 0 || token == "" {
		return 0, ErrSessionNotFound
	}
	presented := internal.HashToken(token)
	if subtle.ConstantTimeCompare(acct.SessionHash, presented[:]) != 1 {
		return 0, ErrSessionNotFound
	}
	if acct.SessionExpiresAt <= now.Unix() {
		return 0, ErrSessionExpired
	}
	return TrustLevel(acct.SessionTrust), nil
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}
