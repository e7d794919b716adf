// Package google is the Google OAuth provider client for the social flow.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/social"
)

const (
	providerName        = "google"
	defaultUserInfoURL  = "https://www.googleapis.com/oauth2/v3/userinfo"
	defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	maxResponseBytes    = 1 << 20
)

// Config holds Google OAuth configuration.
type Config struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"-"`
	CallbackURL  string `json:"callback_url"`
	Scopes       []string

	// Endpoint overrides google.Endpoint, mostly for tests.
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
	TokenInfoURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

// Provider implements social.Provider for Google.
type Provider struct {
	config     Config
	oauth      *oauth2.Config
	httpClient *http.Client
}

// New creates a new Google provider. Missing credentials are reported by
// each call rather than here so the provider can be registered unconditionally.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.Endpoint.AuthURL == "" || cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = googleoauth.Endpoint
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}
	if cfg.TokenInfoURL == "" {
		cfg.TokenInfoURL = defaultTokenInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		config: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       cfg.Scopes,
			Endpoint:     cfg.Endpoint,
		},
		httpClient: client,
	}
}

// Name implements social.Provider.
func (p *Provider) Name() string {
	return providerName
}

// BuildAuthorizationURL implements social.Provider.
func (p *Provider) BuildAuthorizationURL(state string) (string, error) {
	if err := p.checkConfig(); err != nil {
		return "", err
	}
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// ExchangeCode implements social.Provider.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*social.Token, error) {
	if err := p.checkConfig(); err != nil {
		return nil, err
	}

	tok, err := p.oauth.Exchange(p.clientContext(ctx), code)
	if err != nil {
		status := 0
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		return nil, social.UpstreamError(providerName, "exchange", status, err)
	}

	expiresIn := tok.ExpiresIn
	if expiresIn == 0 && !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Seconds())
	}

	return &social.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    tok.Type(),
	}, nil
}

// FetchProfile implements social.Provider.
func (p *Provider) FetchProfile(ctx context.Context, accessToken string) (*social.Profile, error) {
	ctx = p.clientContext(ctx)
	client := p.oauth.Client(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, social.UpstreamError(providerName, "profile", 0, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, social.UpstreamError(providerName, "profile", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, social.UpstreamError(providerName, "profile", resp.StatusCode, nil)
	}

	var claims map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&claims); err != nil {
		return nil, social.UpstreamError(providerName, "profile", resp.StatusCode, fmt.Errorf("decode userinfo: %w", err))
	}

	profile := social.ProfileFromClaims(providerName, claims)
	return &profile, nil
}

// ValidateAccessToken implements social.Provider. It asks the tokeninfo
// endpoint for the audience and compares it with the client id.
func (p *Provider) ValidateAccessToken(ctx context.Context, token string) bool {
	if strings.TrimSpace(token) == "" || p.config.ClientID == "" {
		return false
	}

	endpoint, err := url.Parse(p.config.TokenInfoURL)
	if err != nil {
		return false
	}
	q := endpoint.Query()
	q.Set("access_token", token)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var info tokenInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&info); err != nil {
		return false
	}

	return info.Audience == p.config.ClientID || info.AuthorizedParty == p.config.ClientID
}

type tokenInfo struct {
	Audience        string `json:"aud"`
	AuthorizedParty string `json:"azp"`
}

func (p *Provider) checkConfig() error {
	var missing []string
	if strings.TrimSpace(p.config.ClientID) == "" {
		missing = append(missing, "client_id")
	}
	if strings.TrimSpace(p.config.ClientSecret) == "" {
		missing = append(missing, "client_secret")
	}
	if strings.TrimSpace(p.config.CallbackURL) == "" {
		missing = append(missing, "callback_url")
	}
	if len(missing) > 0 {
		return identity.NewConfigurationError(providerName, missing...)
	}
	return nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}
