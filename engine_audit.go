package adminauth

import (
	"context"
)

const (
	auditEventPrimarySuccess        = "primary.success"
	auditEventPrimaryFailure        = "primary.failure"
	auditEventPrimaryLocked         = "primary.locked"
	auditEventPINChanged            = "primary.pin_changed"
	auditEventEmailBound            = "second_factor.email_bound"
	auditEventCodeSent              = "second_factor.code_sent"
	auditEventCodeSendFailure       = "second_factor.code_send_failed"
	auditEventCodeRateLimited       = "second_factor.code_rate_limited"
	auditEventSecondFactorSuccess   = "second_factor.success"
	auditEventSecondFactorFailure   = "second_factor.failure"
	auditEventSecondFactorLocked    = "second_factor.locked"
	auditEventSecondFactorActivated = "second_factor.activated"
	auditEventSecondFactorDisabled  = "second_factor.disabled"
	auditEventSessionEscalated      = "session.escalated"
	auditEventSessionInvalidated    = "session.invalidated"
)

// emitAudit queues one event. The metadata closure is only invoked when a
// dispatcher is configured, so hot paths pay nothing when auditing is off.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	trust TrustLevel,
	cause error,
	metadata func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		EventID:   newAuditEventID(),
		Timestamp: e.now(),
		EventType: eventType,
		AccountID: AccountID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if trust != 0 {
		event.Trust = trust.String()
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}
