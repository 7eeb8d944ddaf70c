package adminauth

import (
	"context"
	"errors"
	"strconv"

	"github.com/420website/CRM-sub000/internal"
	"github.com/420website/CRM-sub000/internal/limiters"
	"github.com/420website/CRM-sub000/internal/stores"
)

// SecondFactorStatus reports the current second-factor configuration so the
// setup UI can decide what to prompt for.
func (e *Engine) SecondFactorStatus(ctx context.Context) (*SecondFactorStatus, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	acct, err := e.loadAccount(ctx)
	if err != nil {
		return nil, err
	}

	return &SecondFactorStatus{
		Enabled:      acct.SecondFactorEnabled,
		Email:        acct.SecondFactorEmail,
		PendingEmail: acct.PendingEmail,
	}, nil
}

// BindSecondFactorEmail stages a destination address for the second factor.
// The factor is NOT enabled here: enablement waits for the first successful
// code verification against the staged address, so a typo cannot lock the
// operator out. Requires any valid session.
func (e *Engine) BindSecondFactorEmail(ctx context.Context, token, email string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	acct, err := e.loadAccount(ctx)
	if err != nil {
		return err
	}

	if _, err := e.matchSession(acct, token, e.now()); err != nil {
		return err
	}

	if !validEmail(email) {
		return ErrInvalidEmail
	}

	if err := e.store.BindPendingEmail(ctx, email); err != nil {
		return ErrStoreUnavailable
	}

	e.emitAudit(ctx, auditEventEmailBound, true, 0, nil, func() map[string]string {
		return map[string]string{
			"email": email,
		}
	})
	return nil
}

// SendCode issues a fresh one-time code to the staged address if one is
// pending, otherwise to the active address. The code digest is persisted
// before the gateway call, and the gateway runs outside any store transaction
// under a bounded timeout: a delivery failure leaves the code valid, and the
// result reports Delivered=false so the caller can offer a resend.
func (e *Engine) SendCode(ctx context.Context, token string) (*SendCodeResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	acct, err := e.loadAccount(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if _, err := e.matchSession(acct, token, now); err != nil {
		return nil, err
	}

	destination := acct.PendingEmail
	if destination == "" {
		destination = acct.SecondFactorEmail
	}
	if destination == "" {
		return nil, ErrEmailNotConfigured
	}

	if e.sendLimiter != nil {
		if err := e.sendLimiter.CheckSend(ctx, destination); err != nil {
			if errors.Is(err, limiters.ErrSendRateLimited) {
				e.metricInc(MetricCodeSendRateLimited)
				e.emitAudit(ctx, auditEventCodeRateLimited, false, 0, ErrCodeRateLimited, nil)
				return nil, ErrCodeRateLimited
			}
			return nil, ErrStoreUnavailable
		}
	}

	code, err := internal.NewOTP(e.config.Code.Digits)
	if err != nil {
		return nil, err
	}
	codeHash := internal.HashCode(code)
	expiresAt := now.Add(e.config.Code.TTL)

	// Persist before delivery; a failed send must never orphan the client
	// with a code the server forgot.
	if err := e.store.SetActiveCode(ctx, codeHash, expiresAt.Unix()); err != nil {
		return nil, ErrStoreUnavailable
	}

	result := &SendCodeResult{
		Destination: destination,
		ExpiresIn:   e.config.Code.TTL,
	}

	if e.gateway == nil {
		e.metricInc(MetricCodeDeliveryFailure)
		e.emitAudit(ctx, auditEventCodeSendFailure, false, 0, ErrNotificationDelivery, func() map[string]string {
			return map[string]string{
				"reason": "gateway_not_configured",
			}
		})
		return result, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.config.Notify.Timeout)
	defer cancel()

	if err := e.gateway.Send(sendCtx, destination, code); err != nil {
		e.metricInc(MetricCodeDeliveryFailure)
		e.emitAudit(ctx, auditEventCodeSendFailure, false, 0, ErrNotificationDelivery, func() map[string]string {
			return map[string]string{
				"email": destination,
				"cause": err.Error(),
			}
		})
		return result, nil
	}

	result.Delivered = true
	e.metricInc(MetricCodeSent)
	e.emitAudit(ctx, auditEventCodeSent, true, 0, nil, func() map[string]string {
		return map[string]string{
			"email": destination,
		}
	})
	return result, nil
}

// VerifyCode confirms the active one-time code and escalates the presented
// session to Full trust. The code is single use: success clears it in the
// same atomic step that checks it. On the first success after a new address
// was bound, the second factor flips on.
func (e *Engine) VerifyCode(ctx context.Context, token, code string) (*VerifyCodeResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	acct, err := e.loadAccount(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if limiters.IsLocked(acct.LockedUntil, now) {
		e.metricInc(MetricAccountLocked)
		e.emitAudit(ctx, auditEventSecondFactorLocked, false, 0, ErrAccountLocked, func() map[string]string {
			return map[string]string{
				"locked_until": strconv.FormatInt(acct.LockedUntil, 10),
			}
		})
		return nil, ErrAccountLocked
	}

	if _, err := e.matchSession(acct, token, now); err != nil {
		return nil, err
	}

	if err := e.consumeCode(ctx, code, now.Unix()); err != nil {
		return nil, err
	}

	nextToken, err := internal.NewToken()
	if err != nil {
		return nil, err
	}
	currentHash := internal.HashToken(token)
	nextHash := internal.HashToken(nextToken)
	expiresAt := now.Add(e.config.Session.FullTTL)

	// The escalation is bound to the exact token that was presented: the
	// store swaps the session only if that token is still the active one.
	if err := e.store.EscalateSession(ctx, currentHash, nextHash, now.Unix(), uint8(TrustFull), expiresAt.Unix()); err != nil {
		switch {
		case errors.Is(err, stores.ErrSessionExpired):
			return nil, ErrSessionExpired
		case errors.Is(err, stores.ErrSessionMismatch), errors.Is(err, stores.ErrSessionNotFound):
			return nil, ErrSessionNotFound
		default:
			return nil, ErrStoreUnavailable
		}
	}

	// Past this point the prior session is already gone; whatever happens to
	// the remaining bookkeeping, the caller must receive the new token.
	activated := false
	if acct.PendingEmail != "" {
		promoted, err := e.store.PromotePendingEmail(ctx)
		if err != nil {
			// Activation stays pending and completes on a later verification.
			e.emitAudit(ctx, auditEventSecondFactorActivated, false, TrustFull, err, nil)
		} else {
			activated = promoted
		}
	}

	if err := e.store.RecordSuccess(ctx, now.Unix()); err != nil {
		e.emitAudit(ctx, auditEventSecondFactorSuccess, false, TrustFull, err, func() map[string]string {
			return map[string]string{"reason": "counter_reset_failed"}
		})
	}

	e.metricInc(MetricCodeVerifySuccess)
	e.metricInc(MetricSessionEscalated)
	e.emitAudit(ctx, auditEventSessionEscalated, true, TrustFull, nil, nil)
	if activated {
		e.metricInc(MetricSecondFactorActivated)
		e.emitAudit(ctx, auditEventSecondFactorActivated, true, TrustFull, nil, nil)
	}
	e.emitAudit(ctx, auditEventSecondFactorSuccess, true, TrustFull, nil, nil)

	return &VerifyCodeResult{
		Session: SessionToken{
			Token:     nextToken,
			Trust:     TrustFull,
			IssuedAt:  now,
			ExpiresAt: expiresAt,
			AccountID: AccountID,
		},
		SecondFactorActivated: activated,
	}, nil
}

// DisableSecondFactor turns the second factor off after verifying a valid
// unexpired code. It carries the same failure modes and lockout consequences
// as VerifyCode, but no session is required: this is the recovery path when
// the operator still receives mail but lost the session.
func (e *Engine) DisableSecondFactor(ctx context.Context, code string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	acct, err := e.loadAccount(ctx)
	if err != nil {
		return err
	}

	now := e.now()
	if limiters.IsLocked(acct.LockedUntil, now) {
		e.metricInc(MetricAccountLocked)
		e.emitAudit(ctx, auditEventSecondFactorLocked, false, 0, ErrAccountLocked, nil)
		return ErrAccountLocked
	}

	if err := e.consumeCode(ctx, code, now.Unix()); err != nil {
		return err
	}

	if err := e.store.DisableSecondFactor(ctx); err != nil {
		return ErrStoreUnavailable
	}

	e.metricInc(MetricSecondFactorDisabled)
	e.emitAudit(ctx, auditEventSecondFactorDisabled, true, 0, nil, nil)
	return nil
}

// consumeCode validates the submitted code against the single active code
// and applies the lockout consequence on mismatch.
func (e *Engine) consumeCode(ctx context.Context, code string, nowUnix int64) error {
	if len(code) != e.config.Code.Digits || !internal.IsNumeric(code) {
		return e.failSecondFactorAttempt(ctx, "malformed_code")
	}

	err := e.store.ConsumeCode(ctx, internal.HashCode(code), nowUnix)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrCodeExpired):
		e.metricInc(MetricCodeExpired)
		e.emitAudit(ctx, auditEventSecondFactorFailure, false, 0, ErrCodeExpired, nil)
		return ErrCodeExpired
	case errors.Is(err, stores.ErrCodeNotFound):
		// Covers both "no code issued" and replay of an already-consumed
		// code.
		e.metricInc(MetricCodeReplayRejected)
		return e.failSecondFactorAttempt(ctx, "no_active_code")
	case errors.Is(err, stores.ErrCodeMismatch):
		return e.failSecondFactorAttempt(ctx, "code_mismatch")
	default:
		return ErrStoreUnavailable
	}
}

func (e *Engine) failSecondFactorAttempt(ctx context.Context, reason string) error {
	now := e.now()
	lockedUntil := now.Add(e.config.Lockout.Duration).Unix()

	count, locked, err := e.store.RecordFailure(ctx, stores.FailureSecondFactor, e.config.Lockout.Threshold, lockedUntil)
	if err != nil {
		return ErrStoreUnavailable
	}

	e.metricInc(MetricCodeVerifyFailure)
	if locked {
		e.metricInc(MetricLockoutTriggered)
		e.emitAudit(ctx, auditEventSecondFactorLocked, false, 0, ErrAccountLocked, func() map[string]string {
			return map[string]string{
				"reason":       reason,
				"locked_until": strconv.FormatInt(lockedUntil, 10),
			}
		})
		return ErrAccountLocked
	}

	e.emitAudit(ctx, auditEventSecondFactorFailure, false, 0, ErrCodeInvalid, func() map[string]string {
		return map[string]string{
			"reason":   reason,
			"failures": strconv.FormatInt(count, 10),
		}
	})
	return ErrCodeInvalid
}
