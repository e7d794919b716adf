package social_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/social"
)

// MockProvider implements social.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string { return "google" }

func (m *MockProvider) BuildAuthorizationURL(state string) (string, error) {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state), nil
}

func (m *MockProvider) ExchangeCode(ctx context.Context, code string) (*social.Token, error) {
	args := m.Called(ctx, code)
	tok, _ := args.Get(0).(*social.Token)
	return tok, args.Error(1)
}

func (m *MockProvider) FetchProfile(ctx context.Context, accessToken string) (*social.Profile, error) {
	args := m.Called(ctx, accessToken)
	p, _ := args.Get(0).(*social.Profile)
	return p, args.Error(1)
}

func (m *MockProvider) ValidateAccessToken(ctx context.Context, token string) bool {
	return m.Called(ctx, token).Bool(0)
}

// MockIssuer implements social.SessionIssuer
type MockIssuer struct {
	mock.Mock
}

func (m *MockIssuer) IssueSession(ctx context.Context, account *identity.Account, extended bool) (*identity.IssuedToken, error) {
	args := m.Called(ctx, account, extended)
	tok, _ := args.Get(0).(*identity.IssuedToken)
	return tok, args.Error(1)
}

func newFlow(t *testing.T, provider social.Provider, issuer social.SessionIssuer, opts ...social.FlowOption) (*social.Flow, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	base := []social.FlowOption{
		social.WithProvider(provider),
		social.WithFlowLogger(quietLogger{}),
	}
	return social.NewFlow(newResolver(store), issuer, append(base, opts...)...), store
}

func TestFlowCallback(t *testing.T) {
	provider := &MockProvider{}
	issuer := &MockIssuer{}
	profile := googleProfile()
	profile.Provider = ""

	provider.On("ExchangeCode", mock.Anything, "auth-code").Return(&social.Token{AccessToken: "at"}, nil)
	provider.On("FetchProfile", mock.Anything, "at").Return(&profile, nil)
	issuer.On("IssueSession", mock.Anything, mock.AnythingOfType("*identity.Account"), true).
		Return(&identity.IssuedToken{AccessToken: "jwt", ExpiresAt: time.Now().Add(time.Hour)}, nil)

	flow, store := newFlow(t, provider, issuer)

	res, err := flow.Callback(context.Background(), "Google", "auth-code", true)
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.Token.AccessToken)
	assert.True(t, res.Resolution.IsNewAccount)
	assert.Equal(t, "google", res.Resolution.Link.Provider)

	accounts, links := store.counts()
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 1, links)
	provider.AssertExpectations(t)
	issuer.AssertExpectations(t)
}

func TestFlowUnknownProvider(t *testing.T) {
	flow, _ := newFlow(t, &MockProvider{}, &MockIssuer{})

	_, err := flow.Callback(context.Background(), "github", "code", false)
	assert.ErrorIs(t, err, social.ErrProviderNotFound)

	_, err = flow.AuthorizationURL("github", "")
	assert.ErrorIs(t, err, social.ErrProviderNotFound)
	assert.Equal(t, []string{"google"}, flow.Providers())
}

func TestFlowUpstreamFailureStopsBeforeResolution(t *testing.T) {
	provider := &MockProvider{}
	issuer := &MockIssuer{}
	metrics := &countingMetrics{}
	provider.On("ExchangeCode", mock.Anything, "code").
		Return(nil, social.UpstreamError("google", "exchange", 503, nil))

	flow, store := newFlow(t, provider, issuer, social.WithFlowMetrics(metrics))

	_, err := flow.Callback(context.Background(), "google", "code", false)
	require.Error(t, err)
	assert.True(t, identity.IsUpstreamUnavailable(err))
	assert.Equal(t, []string{identity.OutcomeUpstreamUnavailable}, metrics.outcomes)

	accounts, _ := store.counts()
	assert.Zero(t, accounts)
	issuer.AssertNotCalled(t, "IssueSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestFlowIssuerRejectionPropagates(t *testing.T) {
	provider := &MockProvider{}
	issuer := &MockIssuer{}
	profile := googleProfile()
	provider.On("ExchangeCode", mock.Anything, "code").Return(&social.Token{AccessToken: "at"}, nil)
	provider.On("FetchProfile", mock.Anything, "at").Return(&profile, nil)
	issuer.On("IssueSession", mock.Anything, mock.Anything, false).
		Return(nil, identity.NewAccountSuspended("Violation of terms"))

	flow, _ := newFlow(t, provider, issuer)

	_, err := flow.Callback(context.Background(), "google", "code", false)
	assert.True(t, identity.IsAccountSuspended(err))
}

func TestFlowBeginAndCompleteAuth(t *testing.T) {
	provider := &MockProvider{}
	issuer := &MockIssuer{}
	profile := googleProfile()
	provider.On("ExchangeCode", mock.Anything, "code").Return(&social.Token{AccessToken: "at"}, nil)
	provider.On("FetchProfile", mock.Anything, "at").Return(&profile, nil)
	issuer.On("IssueSession", mock.Anything, mock.Anything, true).Return(&identity.IssuedToken{AccessToken: "jwt"}, nil)

	states := social.NewSignedStateManager([]byte("0123456789abcdef0123456789abcdef"), time.Minute)
	flow, _ := newFlow(t, provider, issuer, social.WithStateManager(states))

	redirect, err := flow.BeginAuth("google", true)
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	_, err = flow.CompleteAuth(context.Background(), "google", "forged", "code")
	assert.ErrorIs(t, err, social.ErrInvalidState)

	res, err := flow.CompleteAuth(context.Background(), "google", state, "code")
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.Token.AccessToken)
	issuer.AssertExpectations(t)
}

func TestFlowBeginAuthRequiresStateManager(t *testing.T) {
	flow, _ := newFlow(t, &MockProvider{}, &MockIssuer{})
	_, err := flow.BeginAuth("google", false)
	assert.True(t, identity.IsConfigurationError(err))
}
