package adminauth

import (
	"context"
	"time"
)

// Validate checks the presented session token and reports its trust level.
// It returns ErrInsufficientTrust when the session is valid but below the
// required level. Pure read: validation never mutates account state.
func (e *Engine) Validate(ctx context.Context, token string, required TrustLevel) (*SessionInfo, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	acct, err := e.loadAccount(ctx)
	if err != nil {
		return nil, err
	}

	trust, err := e.matchSession(acct, token, e.now())
	if err != nil {
		return nil, err
	}

	if trust < required {
		return nil, ErrInsufficientTrust
	}

	return &SessionInfo{
		AccountID: AccountID,
		Trust:     trust,
		IssuedAt:  time.Unix(acct.SessionIssuedAt, 0).UTC(),
		ExpiresAt: time.Unix(acct.SessionExpiresAt, 0).UTC(),
	}, nil
}

// Logout invalidates the active session if the presented token matches it.
// A token that is already stale is not an error worth surfacing to the
// caller beyond the sentinel.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || e.store == nil {
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

	if err := e.store.ClearSession(ctx); err != nil {
		return ErrStoreUnavailable
	}

	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventSessionInvalidated, true, trust, nil, nil)
	return nil
}
