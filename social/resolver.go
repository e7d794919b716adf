package social

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/credential"
	"github.com/goliatone/go-identity/sanitize"
)

// fallbackUsername is used when neither the email nor the display name
// yields a usable base.
const fallbackUsername = "user"

// Resolution is the outcome of resolving a provider profile.
type Resolution struct {
	Account      *identity.Account
	Link         *identity.ExternalIdentityLink
	IsNewAccount bool
	// Linked is true when the profile was attached to an existing account.
	Linked bool
}

// Resolver maps provider profiles to local accounts.
type Resolver struct {
	store                Store
	logger               identity.Logger
	metrics              identity.Metrics
	activitySink         identity.ActivitySink
	requireVerifiedEmail bool
	maxUsernameAttempts  int
	now                  func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(l identity.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithResolverMetrics sets the metrics receiver.
func WithResolverMetrics(m identity.Metrics) ResolverOption {
	return func(r *Resolver) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithResolverActivitySink sets the sink for account creation and linking events.
func WithResolverActivitySink(s identity.ActivitySink) ResolverOption {
	return func(r *Resolver) {
		r.activitySink = s
	}
}

// WithEmailVerificationRequired controls whether an existing account may be
// linked through an email the provider has not verified. Defaults to true.
func WithEmailVerificationRequired(required bool) ResolverOption {
	return func(r *Resolver) {
		r.requireVerifiedEmail = required
	}
}

// WithMaxUsernameAttempts caps the availability probes for a new account.
// Zero means unbounded.
func WithMaxUsernameAttempts(n int) ResolverOption {
	return func(r *Resolver) {
		if n >= 0 {
			r.maxUsernameAttempts = n
		}
	}
}

// WithResolverClock overrides the time source.
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a Resolver backed by store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:                store,
		logger:               identity.DefaultLogger(),
		metrics:              identity.NoopMetrics(),
		requireVerifiedEmail: true,
		now:                  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve returns the account for profile, linking or creating one as needed.
//
// A provider identity resolves to exactly one account. When a concurrent
// resolution wins the insert the lookup is retried once and converges on
// the winner's account.
func (r *Resolver) Resolve(ctx context.Context, profile Profile) (*Resolution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profile = profile.normalized()
	if profile.Provider == "" || profile.ProviderUserID == "" {
		return nil, ErrProfileIncomplete
	}

	res, err := r.resolve(ctx, profile)
	if identity.IsStorageConflict(err) {
		r.logger.Info("identity resolution for %s/%s lost a creation race, retrying", profile.Provider, profile.ProviderUserID)
		r.metrics.ResolutionOutcome(identity.OutcomeConflictRetried)
		res, err = r.resolve(ctx, profile)
	}
	if err != nil {
		r.metrics.ResolutionOutcome(identity.OutcomeError)
		return nil, err
	}

	r.record(ctx, profile, res)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, profile Profile) (*Resolution, error) {
	res, err := r.resolveLinked(ctx, profile)
	if err != nil || res != nil {
		return res, err
	}

	res, err = r.resolveByEmail(ctx, profile)
	if err != nil || res != nil {
		return res, err
	}

	return r.createAccount(ctx, profile)
}

func (r *Resolver) resolveLinked(ctx context.Context, profile Profile) (*Resolution, error) {
	link, err := r.store.FindExternalLink(ctx, profile.Provider, profile.ProviderUserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find external link: %w", err)
	}
	if link == nil {
		return nil, nil
	}

	if link.Email != profile.Email {
		if err := r.store.UpdateExternalLinkEmail(ctx, link.ID, profile.Email); err != nil {
			return nil, fmt.Errorf("failed to update external link email: %w", err)
		}
		link.Email = profile.Email
	}

	account, err := r.store.FindAccountByID(ctx, link.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find linked account %s: %w", link.AccountID, err)
	}

	return &Resolution{Account: account, Link: link}, nil
}

func (r *Resolver) resolveByEmail(ctx context.Context, profile Profile) (*Resolution, error) {
	key := emailKey(profile.Email)
	if key == "" {
		return nil, nil
	}

	account, err := r.store.FindAccountByEmailKey(ctx, key)
	if err != nil {
		if identity.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	if account == nil {
		return nil, nil
	}

	if r.requireVerifiedEmail && !profile.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	link, err := r.store.CreateExternalLink(ctx, r.newLink(account.ID, profile))
	if err != nil {
		return nil, err
	}

	return &Resolution{Account: account, Link: link, Linked: true}, nil
}

func (r *Resolver) createAccount(ctx context.Context, profile Profile) (*Resolution, error) {
	username, err := r.availableUsername(ctx, usernameBase(profile))
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	account := &identity.Account{
		ID:            uuid.New(),
		DisplayName:   displayName(profile, username),
		EmailVerified: profile.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	account.SetUsername(username).SetEmail(profile.Email)

	link := r.newLink(account.ID, profile)
	created, err := r.store.CreateAccountWithLink(ctx, account, link)
	if err != nil {
		return nil, err
	}

	return &Resolution{Account: created, Link: link, IsNewAccount: true}, nil
}

// availableUsername probes base, base1, base2 and so on until a free
// username is found or the attempt cap is reached.
func (r *Resolver) availableUsername(ctx context.Context, base string) (string, error) {
	for i := 0; r.maxUsernameAttempts == 0 || i < r.maxUsernameAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate := base
		if i > 0 {
			candidate = withSuffix(base, strconv.Itoa(i))
		}

		_, err := r.store.FindAccountByUsernameKey(ctx, identity.ComparisonKey(candidate))
		if identity.IsNotFound(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to probe username: %w", err)
		}
	}

	return "", identity.NewUsernameUnavailable(base, credential.GenerateUsernameSuggestions(base))
}

func (r *Resolver) newLink(accountID uuid.UUID, profile Profile) *identity.ExternalIdentityLink {
	now := r.now().UTC()
	return &identity.ExternalIdentityLink{
		ID:                uuid.New(),
		AccountID:         accountID,
		Provider:          profile.Provider,
		ProviderAccountID: profile.ProviderUserID,
		Email:             profile.Email,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (r *Resolver) record(ctx context.Context, profile Profile, res *Resolution) {
	outcome := identity.OutcomeLinkedExisting
	event := identity.ActivityEventSocialLogin
	switch {
	case res.IsNewAccount:
		outcome = identity.OutcomeCreated
		event = identity.ActivityEventSocialCreated
	case res.Linked:
		outcome = identity.OutcomeLinked
		event = identity.ActivityEventSocialLinked
	}
	r.metrics.ResolutionOutcome(outcome)

	identity.EmitActivity(ctx, r.activitySink, r.logger, identity.ActivityEvent{
		EventType: event,
		AccountID: res.Account.ID.String(),
		Metadata: map[string]any{
			"provider":         profile.Provider,
			"provider_user_id": profile.ProviderUserID,
		},
		OccurredAt: r.now(),
	})
}

func emailKey(email string) string {
	if email == "" {
		return ""
	}
	return identity.EmailComparisonKey(email)
}

func usernameBase(profile Profile) string {
	source := profile.DisplayName
	if at := strings.LastIndex(profile.Email, "@"); at > 0 {
		source = profile.Email[:at]
	}

	base := sanitize.Username(source)
	if base == "" {
		base = fallbackUsername
	}
	if len(base) > credential.MaxUsernameLength {
		base = base[:credential.MaxUsernameLength]
	}
	if len(base) < credential.MinUsernameLength {
		base = withSuffix(base, "_"+fallbackUsername)
	}
	return base
}

// withSuffix appends suffix, trimming base so the result fits the maximum
// username length.
func withSuffix(base, suffix string) string {
	if room := credential.MaxUsernameLength - len(suffix); len(base) > room {
		base = base[:max(room, 0)]
	}
	return base + suffix
}

func displayName(profile Profile, username string) string {
	name := sanitize.Text(profile.DisplayName)
	if r := []rune(name); len(r) > sanitize.MaxDisplayNameLength {
		name = strings.TrimSpace(string(r[:sanitize.MaxDisplayNameLength]))
	}
	if name == "" || !sanitize.IsValidDisplayName(name) {
		return username
	}
	return name
}
