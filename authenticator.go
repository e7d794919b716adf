package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-identity/credential"
	"github.com/goliatone/go-identity/sanitize"
)

const (
	DefaultSessionTTL          = 24 * time.Hour
	DefaultLongLivedSessionTTL = 30 * 24 * time.Hour
)

// IssuedToken is the result of a successful sign-in.
type IssuedToken struct {
	AccessToken string
	ExpiresAt   time.Time
	Session     *Session
	Account     *Account
}

// RegisterInput is the payload of a password sign-up.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Authenticator handles the sign-in path, registration and bearer
// authentication on top of a Store.
type Authenticator struct {
	store        Store
	tokens       *TokenService
	hasher       PasswordHasher
	validator    *SessionValidator
	sessionTTL   time.Duration
	longLivedTTL time.Duration
	logger       Logger
	activitySink ActivitySink
	suggester    credential.Suggester
	now          func() time.Time
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithLogger sets the logger.
func WithLogger(l Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		a.logger = normalizeLogger(l)
	}
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func WithActivitySink(s ActivitySink) AuthenticatorOption {
	return func(a *Authenticator) {
		a.activitySink = normalizeActivitySink(s)
	}
}

// WithSessionValidator replaces the validator used by Authenticate.
func WithSessionValidator(v *SessionValidator) AuthenticatorOption {
	return func(a *Authenticator) {
		if v != nil {
			a.validator = v
		}
	}
}

// WithSuggester overrides the username suggestion generator.
func WithSuggester(s credential.Suggester) AuthenticatorOption {
	return func(a *Authenticator) {
		a.suggester = s
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) AuthenticatorOption {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAuthenticator returns a new Authenticator. When sink is not nil the
// default validator refreshes sessions through it.
func NewAuthenticator(store Store, tokens *TokenService, hasher PasswordHasher, sink SessionSink, cfg Config, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		store:        store,
		tokens:       tokens,
		hasher:       hasher,
		sessionTTL:   DefaultSessionTTL,
		longLivedTTL: DefaultLongLivedSessionTTL,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}

	var refreshTimeout time.Duration
	if cfg != nil {
		if ttl := cfg.GetSessionTTL(); ttl > 0 {
			a.sessionTTL = ttl
		}
		if ttl := cfg.GetLongLivedSessionTTL(); ttl > 0 {
			a.longLivedTTL = ttl
		}
		refreshTimeout = cfg.GetRefreshTimeout()
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.validator == nil {
		a.validator = NewSessionValidator(store, store, sink,
			WithValidatorLogger(a.logger),
			WithValidatorActivitySink(a.activitySink),
			WithRefreshTimeout(refreshTimeout),
			WithValidatorClock(a.now),
		)
	}

	return a
}

// Validator returns the SessionValidator used by Authenticate.
func (a *Authenticator) Validator() *SessionValidator {
	return a.validator
}

// Login verifies identifier and password and opens a new session.
// Unknown accounts, wrong passwords and password-less accounts all
// return ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, identifier, password string, extended bool) (*IssuedToken, error) {
	id := credential.Normalize(identifier)

	account, err := a.findByIdentifier(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			a.loginFailed(ctx, id, "", "unknown_identifier")
			return nil, ErrInvalidCredentials
		}
		a.logger.Error("login lookup failed for %s: %v", id.Original, err)
		return nil, err
	}

	if !account.HasPassword() {
		a.loginFailed(ctx, id, account.ID.String(), "no_password")
		return nil, ErrInvalidCredentials
	}

	if err := a.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		a.loginFailed(ctx, id, account.ID.String(), "password_mismatch")
		return nil, ErrInvalidCredentials
	}

	issued, err := a.IssueSession(ctx, account, extended)
	if err != nil {
		a.loginFailed(ctx, id, account.ID.String(), TextCode(err))
		return nil, err
	}

	EmitActivity(ctx, a.activitySink, a.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		AccountID: account.ID.String(),
		Metadata: map[string]any{
			"identifier": id.Original,
			"kind":       string(id.Kind),
			"session":    issued.Session.ID.String(),
		},
	})

	return issued, nil
}

// IssueSession opens a session for account and signs a token referencing
// it. Suspended accounts are rejected.
func (a *Authenticator) IssueSession(ctx context.Context, account *Account, extended bool) (*IssuedToken, error) {
	if account == nil {
		return nil, ErrUserNotFound
	}
	if account.IsSuspended {
		return nil, NewAccountSuspended(account.SuspensionReason)
	}

	ttl := a.sessionTTL
	if extended {
		ttl = a.longLivedTTL
	}

	session, err := NewSession(account.ID, extended, ttl, a.now())
	if err != nil {
		return nil, err
	}

	session, err = a.store.CreateSession(ctx, session)
	if err != nil {
		a.logger.Error("failed to create session for %s: %v", account.ID, err)
		return nil, err
	}

	token, expiresAt, err := a.tokens.Sign(TokenPayload{
		Subject:    account.ID.String(),
		Username:   account.Username,
		Email:      account.Email,
		SessionRef: session.ID.String(),
		IssuedAt:   a.now(),
	})
	if err != nil {
		return nil, err
	}

	return &IssuedToken{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Session:     session,
		Account:     account,
	}, nil
}

// Authenticate parses a bearer token and validates it against live state.
func (a *Authenticator) Authenticate(ctx context.Context, bearer string) (*Principal, error) {
	raw := strings.TrimSpace(bearer)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}

	payload, err := a.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}

	return a.validator.Validate(ctx, payload)
}

// Register creates a password account. Taken usernames return
// ErrUsernameUnavailable with available suggestions.
func (a *Authenticator) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	reg := credential.Registration{
		Username:    in.Username,
		Email:       in.Email,
		Password:    in.Password,
		DisplayName: in.DisplayName,
	}
	if errs := credential.ValidateRegistration(reg); len(errs) > 0 {
		return nil, NewValidationError(errs...)
	}

	username := sanitize.Username(in.Username)
	email := strings.TrimSpace(in.Email)

	if err := a.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := a.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	account := &Account{
		ID:           uuid.New(),
		PasswordHash: hash,
		DisplayName:  sanitize.Text(in.DisplayName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	account.SetUsername(username).SetEmail(email)
	if account.DisplayName == "" {
		account.DisplayName = account.Username
	}

	created, err := a.store.CreateAccount(ctx, account)
	if err != nil {
		if IsStorageConflict(err) {
			if availErr := a.ensureAvailable(ctx, username, email); availErr != nil {
				return nil, availErr
			}
		}
		return nil, err
	}

	EmitActivity(ctx, a.activitySink, a.logger, ActivityEvent{
		EventType: ActivityEventRegistered,
		AccountID: created.ID.String(),
		Metadata: map[string]any{
			"username": created.Username,
		},
	})

	return created, nil
}

// UsernameAvailable reports whether no account holds username.
func (a *Authenticator) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	_, err := a.store.FindAccountByUsernameKey(ctx, ComparisonKey(username))
	if err == nil {
		return false, nil
	}
	if IsNotFound(err) {
		return true, nil
	}
	return false, err
}

// SuggestUsernames returns suggestions for base that pass the format rules
// and are not taken.
func (a *Authenticator) SuggestUsernames(ctx context.Context, base string) ([]string, error) {
	candidates := a.suggester.Suggest(base)
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !credential.ValidateUsernameFormat(c).Valid {
			continue
		}
		ok, err := a.UsernameAvailable(ctx, c)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (a *Authenticator) ensureAvailable(ctx context.Context, username, email string) error {
	ok, err := a.UsernameAvailable(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		suggestions, err := a.SuggestUsernames(ctx, username)
		if err != nil {
			return err
		}
		return NewUsernameUnavailable(username, suggestions)
	}

	_, err = a.store.FindAccountByEmailKey(ctx, EmailComparisonKey(email))
	if err == nil {
		return NewValidationError(credential.FieldError{
			Field:   "email",
			Code:    "taken",
			Message: "email is already registered",
		})
	}
	if !IsNotFound(err) {
		return err
	}
	return nil
}

func (a *Authenticator) findByIdentifier(ctx context.Context, id credential.Identifier) (*Account, error) {
	if id.Normalized == "" {
		return nil, ErrRecordNotFound
	}
	if id.IsEmail() {
		key := EmailComparisonKey(id.Original)
		if key == "" {
			return nil, ErrRecordNotFound
		}
		return a.store.FindAccountByEmailKey(ctx, key)
	}
	return a.store.FindAccountByUsernameKey(ctx, id.Normalized)
}

func (a *Authenticator) loginFailed(ctx context.Context, id credential.Identifier, accountID, reason string) {
	a.logger.Debug("login rejected for %s: %s", id.Original, reason)
	EmitActivity(ctx, a.activitySink, a.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		AccountID: accountID,
		Metadata: map[string]any{
			"identifier": id.Original,
			"kind":       string(id.Kind),
			"reason":     reason,
		},
	})
}
