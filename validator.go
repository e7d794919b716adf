package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRefreshTimeout bounds a detached session refresh.
const DefaultRefreshTimeout = 5 * time.Second

// SessionValidator re-validates a token payload against live account and
// session state.
//
// Validate walks AccountLookup, SuspensionCheck, SessionLookup and
// ExpiryCheck in order and stops at the first rejection. Accepted requests
// with a session spawn a detached refresh through the SessionSink. The
// refresh outcome never reaches the caller.
type SessionValidator struct {
	accounts       AccountReader
	sessions       SessionReader
	sink           SessionSink
	logger         Logger
	metrics        Metrics
	activitySink   ActivitySink
	refreshTimeout time.Duration
	now            func() time.Time
	inflight       sync.WaitGroup
}

// ValidatorOption configures a SessionValidator.
type ValidatorOption func(*SessionValidator)

// WithValidatorLogger sets the logger.
func WithValidatorLogger(l Logger) ValidatorOption {
	return func(v *SessionValidator) {
		v.logger = normalizeLogger(l)
	}
}

// WithValidatorMetrics sets the metrics receiver.
func WithValidatorMetrics(m Metrics) ValidatorOption {
	return func(v *SessionValidator) {
		v.metrics = normalizeMetrics(m)
	}
}

// WithValidatorActivitySink sets the sink used to record rejections.
func WithValidatorActivitySink(s ActivitySink) ValidatorOption {
	return func(v *SessionValidator) {
		v.activitySink = normalizeActivitySink(s)
	}
}

// WithRefreshTimeout bounds each detached refresh.
func WithRefreshTimeout(d time.Duration) ValidatorOption {
	return func(v *SessionValidator) {
		if d > 0 {
			v.refreshTimeout = d
		}
	}
}

// WithValidatorClock overrides the time source used for expiry checks.
func WithValidatorClock(now func() time.Time) ValidatorOption {
	return func(v *SessionValidator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewSessionValidator creates a validator. A nil sink disables refreshes.
func NewSessionValidator(accounts AccountReader, sessions SessionReader, sink SessionSink, opts ...ValidatorOption) *SessionValidator {
	v := &SessionValidator{
		accounts:       accounts,
		sessions:       sessions,
		sink:           sink,
		logger:         defLogger{},
		metrics:        noopMetrics{},
		activitySink:   noopActivitySink{},
		refreshTimeout: DefaultRefreshTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Validate returns the principal for payload or an unauthorized error.
func (v *SessionValidator) Validate(ctx context.Context, payload TokenPayload) (*Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	account, err := v.lookupAccount(ctx, payload.Subject)
	if err != nil {
		return nil, v.reject(ctx, payload, err)
	}

	if account.IsSuspended {
		return nil, v.reject(ctx, payload, NewAccountSuspended(account.SuspensionReason))
	}

	if !payload.HasSession() {
		v.metrics.ValidationOutcome(OutcomeAccepted)
		return NewPrincipal(account, ""), nil
	}

	session, err := v.lookupSession(ctx, payload.SessionRef)
	if err != nil {
		return nil, v.reject(ctx, payload, err)
	}

	if session.AccountID != account.ID || session.Expired(v.now()) {
		return nil, v.reject(ctx, payload, ErrSessionInvalid)
	}

	v.metrics.ValidationOutcome(OutcomeAccepted)
	v.refreshDetached(ctx, session)

	return NewPrincipal(account, payload.SessionRef), nil
}

// Wait blocks until all detached refreshes have finished. It is meant for
// shutdown and tests, never for the request path.
func (v *SessionValidator) Wait() {
	v.inflight.Wait()
}

func (v *SessionValidator) lookupAccount(ctx context.Context, subject string) (*Account, error) {
	id, err := uuid.Parse(strings.TrimSpace(subject))
	if err != nil {
		return nil, ErrUserNotFound
	}

	account, err := v.accounts.FindAccountByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if account == nil {
		return nil, ErrUserNotFound
	}
	return account, nil
}

func (v *SessionValidator) lookupSession(ctx context.Context, ref string) (*Session, error) {
	id, err := uuid.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, ErrSessionInvalid
	}

	session, err := v.sessions.FindSessionByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionInvalid
	}
	return session, nil
}

func (v *SessionValidator) reject(ctx context.Context, payload TokenPayload, err error) error {
	outcome := OutcomeError
	switch {
	case IsUserNotFound(err):
		outcome = OutcomeUserNotFound
	case IsAccountSuspended(err):
		outcome = OutcomeAccountSuspended
	case IsSessionInvalid(err):
		outcome = OutcomeSessionInvalid
	}
	v.metrics.ValidationOutcome(outcome)

	if outcome == OutcomeError {
		v.logger.Error("session validation failed for subject %s: %v", payload.Subject, err)
		return err
	}

	v.logger.Debug("session validation rejected subject %s: %s", payload.Subject, outcome)
	EmitActivity(ctx, v.activitySink, v.logger, ActivityEvent{
		EventType: ActivityEventValidationFailure,
		AccountID: payload.Subject,
		Metadata: map[string]any{
			"reason":  outcome,
			"session": payload.SessionRef,
		},
	})
	return err
}

// refreshDetached is the single boundary where refresh errors are dropped.
// The refresh context keeps request values but not its cancellation.
func (v *SessionValidator) refreshDetached(ctx context.Context, session *Session) {
	if v.sink == nil {
		return
	}

	token := session.Token
	longLived := session.LongLived
	detached := context.WithoutCancel(ctx)

	v.inflight.Add(1)
	go func() {
		defer v.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				v.logger.Error("session refresh panicked: %v", r)
			}
		}()

		rctx, cancel := context.WithTimeout(detached, v.refreshTimeout)
		defer cancel()

		err := v.sink.RefreshSession(rctx, token, longLived)
		v.metrics.SessionRefreshed(err)
		if err != nil {
			v.logger.Warn("session refresh failed: %v", err)
		}
	}()
}
