package social

import (
	"context"
	"sort"
	"strings"

	"github.com/goliatone/go-identity"
)

// SessionIssuer opens a session for a resolved account.
// identity.Authenticator implements it.
type SessionIssuer interface {
	IssueSession(ctx context.Context, account *identity.Account, extended bool) (*identity.IssuedToken, error)
}

// CallbackResult is the outcome of a completed OAuth callback.
type CallbackResult struct {
	Resolution *Resolution
	Token      *identity.IssuedToken
}

// Flow orchestrates the OAuth callback path: code exchange, profile fetch,
// identity resolution and session issuance.
type Flow struct {
	resolver  *Resolver
	issuer    SessionIssuer
	providers map[string]Provider
	states    StateManager
	logger    identity.Logger
	metrics   identity.Metrics
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithProvider registers an OAuth provider.
func WithProvider(provider Provider) FlowOption {
	return func(f *Flow) {
		if provider == nil {
			return
		}
		f.providers[strings.ToLower(provider.Name())] = provider
	}
}

// WithStateManager configures the state manager used by BeginAuth and CompleteAuth.
func WithStateManager(sm StateManager) FlowOption {
	return func(f *Flow) {
		f.states = sm
	}
}

// WithFlowLogger sets the logger.
func WithFlowLogger(l identity.Logger) FlowOption {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithFlowMetrics sets the metrics receiver.
func WithFlowMetrics(m identity.Metrics) FlowOption {
	return func(f *Flow) {
		if m != nil {
			f.metrics = m
		}
	}
}

// NewFlow creates a new Flow.
func NewFlow(resolver *Resolver, issuer SessionIssuer, opts ...FlowOption) *Flow {
	f := &Flow{
		resolver:  resolver,
		issuer:    issuer,
		providers: make(map[string]Provider),
		logger:    identity.DefaultLogger(),
		metrics:   identity.NoopMetrics(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Provider returns the registered provider called name.
func (f *Flow) Provider(name string) (Provider, error) {
	p, ok := f.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// Providers lists the registered provider names.
func (f *Flow) Providers() []string {
	names := make([]string, 0, len(f.providers))
	for name := range f.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AuthorizationURL returns the provider consent URL carrying state as is.
func (f *Flow) AuthorizationURL(provider, state string) (string, error) {
	p, err := f.Provider(provider)
	if err != nil {
		return "", err
	}
	return p.BuildAuthorizationURL(state)
}

// BeginAuth returns the consent URL with a sealed state recording the
// provider and whether the session should be long lived.
func (f *Flow) BeginAuth(provider string, extended bool) (string, error) {
	if f.states == nil {
		return "", identity.NewConfigurationError("oauth_state", "state_manager")
	}
	p, err := f.Provider(provider)
	if err != nil {
		return "", err
	}

	state, err := f.states.Encode(&OAuthState{Provider: p.Name(), Extended: extended})
	if err != nil {
		return "", err
	}
	return p.BuildAuthorizationURL(state)
}

// CompleteAuth verifies state and runs Callback with the options it sealed.
func (f *Flow) CompleteAuth(ctx context.Context, provider, state, code string) (*CallbackResult, error) {
	if f.states == nil {
		return nil, identity.NewConfigurationError("oauth_state", "state_manager")
	}

	decoded, err := f.states.Decode(state)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(decoded.Provider, strings.TrimSpace(provider)) {
		return nil, ErrInvalidState
	}

	return f.Callback(ctx, provider, code, decoded.Extended)
}

// Callback exchanges code, resolves the profile and issues a session.
func (f *Flow) Callback(ctx context.Context, provider, code string, extended bool) (*CallbackResult, error) {
	p, err := f.Provider(provider)
	if err != nil {
		return nil, err
	}

	token, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, f.upstreamFailed(p, "exchange", err)
	}

	profile, err := p.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, f.upstreamFailed(p, "profile", err)
	}
	if profile.Provider == "" {
		profile.Provider = p.Name()
	}

	res, err := f.resolver.Resolve(ctx, *profile)
	if err != nil {
		return nil, err
	}

	issued, err := f.issuer.IssueSession(ctx, res.Account, extended)
	if err != nil {
		return nil, err
	}

	return &CallbackResult{Resolution: res, Token: issued}, nil
}

func (f *Flow) upstreamFailed(p Provider, operation string, err error) error {
	if identity.IsUpstreamUnavailable(err) {
		f.metrics.ResolutionOutcome(identity.OutcomeUpstreamUnavailable)
	}
	f.logger.Error("oauth %s failed for provider %s: %v", operation, p.Name(), err)
	return err
}
