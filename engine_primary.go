package adminauth

import (
	"context"
	"errors"
	"strconv"

	"github.com/420website/CRM-sub000/internal"
	"github.com/420website/CRM-sub000/internal/limiters"
	"github.com/420website/CRM-sub000/internal/stores"
	"github.com/420website/CRM-sub000/pin"
)

// VerifyPrimary checks the shared administrator PIN. While the lockout is
// armed the secret is not evaluated at all. On success it installs a fresh
// session (Partial when the second factor is enabled, Full otherwise) and
// invalidates whatever session was active before.
func (e *Engine) VerifyPrimary(ctx context.Context, secret string) (*PrimaryResult, error) {
	if e == nil || e.store == nil || e.pinHasher == nil {
		return nil, ErrEngineNotReady
	}

	acct, err := e.loadAccount(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if limiters.IsLocked(acct.LockedUntil, now) {
		e.metricInc(MetricAccountLocked)
		e.emitAudit(ctx, auditEventPrimaryLocked, false, 0, ErrAccountLocked, func() map[string]string {
			return map[string]string{
				"locked_until": strconv.FormatInt(acct.LockedUntil, 10),
			}
		})
		return nil, ErrAccountLocked
	}

	if secret == "" {
		return nil, e.failPrimaryAttempt(ctx, "empty_secret")
	}

	ok, verr := e.pinHasher.Verify(secret, acct.PINHash)
	if verr != nil || !ok {
		return nil, e.failPrimaryAttempt(ctx, "secret_mismatch")
	}

	trust := TrustPartial
	ttl := e.config.Session.PartialTTL
	if !acct.SecondFactorEnabled {
		// No second factor configured: the primary check is the whole login.
		trust = TrustFull
		ttl = e.config.Session.FullTTL
	}

	token, err := internal.NewToken()
	if err != nil {
		return nil, err
	}
	tokenHash := internal.HashToken(token)
	expiresAt := now.Add(ttl)

	if err := e.store.ReplaceSession(ctx, tokenHash, uint8(trust), now.Unix(), expiresAt.Unix()); err != nil {
		return nil, ErrStoreUnavailable
	}

	if acct.SecondFactorEnabled {
		// The primary factor succeeded; its counter resets independently of
		// the second-factor counter.
		if err := e.store.ResetFailures(ctx, stores.FailurePrimary); err != nil {
			return nil, ErrStoreUnavailable
		}
	} else {
		if err := e.store.RecordSuccess(ctx, now.Unix()); err != nil {
			return nil, ErrStoreUnavailable
		}
	}

	e.metricInc(MetricPrimarySuccess)
	e.metricInc(MetricSessionIssued)
	e.emitAudit(ctx, auditEventPrimarySuccess, true, trust, nil, func() map[string]string {
		return map[string]string{
			"second_factor_required": strconv.FormatBool(acct.SecondFactorEnabled),
		}
	})

	return &PrimaryResult{
		SecondFactorRequired: acct.SecondFactorEnabled,
		SecondFactorEmail:    acct.SecondFactorEmail,
		Session: SessionToken{
			Token:     token,
			Trust:     trust,
			IssuedAt:  now,
			ExpiresAt: expiresAt,
			AccountID: AccountID,
		},
	}, nil
}

// ChangePrimarySecret replaces the PIN. Requires a Full-trust session. The
// store transition also clears both failure counters and the lock.
func (e *Engine) ChangePrimarySecret(ctx context.Context, token, newSecret string) error {
	if e == nil || e.store == nil || e.pinHasher == nil {
		return ErrEngineNotReady
	}

	acct, err := e.loadAccount(ctx)
	if err != nil {
		return err
	}

	trust, err := e.matchSession(acct, token, e.now())
	if err != nil {
		return err
	}
	if trust < TrustFull {
		return ErrInsufficientTrust
	}

	hash, err := e.pinHasher.Hash(newSecret)
	if err != nil {
		if errors.Is(err, pin.ErrWeakSecret) {
			return ErrWeakSecret
		}
		return err
	}

	if err := e.store.SetPINHash(ctx, hash); err != nil {
		return ErrStoreUnavailable
	}

	e.emitAudit(ctx, auditEventPINChanged, true, trust, nil, nil)
	return nil
}

func (e *Engine) failPrimaryAttempt(ctx context.Context, reason string) error {
	now := e.now()
	lockedUntil := now.Add(e.config.Lockout.Duration).Unix()

	count, locked, err := e.store.RecordFailure(ctx, stores.FailurePrimary, e.config.Lockout.Threshold, lockedUntil)
	if err != nil {
		return ErrStoreUnavailable
	}

	e.metricInc(MetricPrimaryFailure)
	if locked {
		e.metricInc(MetricLockoutTriggered)
		e.emitAudit(ctx, auditEventPrimaryLocked, false, 0, ErrAccountLocked, func() map[string]string {
			return map[string]string{
				"reason":       reason,
				"locked_until": strconv.FormatInt(lockedUntil, 10),
			}
		})
		return ErrAccountLocked
	}

	e.emitAudit(ctx, auditEventPrimaryFailure, false, 0, ErrInvalidCredential, func() map[string]string {
		return map[string]string{
			"reason":   reason,
			"failures": strconv.FormatInt(count, 10),
		}
	})
	return ErrInvalidCredential
}

// loadAccount fetches the account record, provisioning it on first access
// when a bootstrap PIN hash was configured.
func (e *Engine) loadAccount(ctx context.Context) (*stores.AccountRecord, error) {
	var (
		acct *stores.AccountRecord
		err  error
	)
	if e.config.InitialPINHash != "" {
		acct, err = e.store.GetOrCreate(ctx, e.config.InitialPINHash)
	} else {
		acct, err = e.store.Get(ctx)
	}
	if err != nil {
		if errors.Is(err, stores.ErrAccountNotFound) {
			return nil, ErrEngineNotReady
		}
		return nil, ErrStoreUnavailable
	}
	return acct, nil
}
