// internal/accounts/google.go
package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleProvider drives Google sign-in for the switcher. Interactive
// attempts are completed by the HTTP layer (redirect, consent, callback)
// and staged here before the switcher consumes them; silent attempts
// succeed only for accounts with a live provider session, which is exactly
// what makes a never-before-seen account fall back to the chooser.
type GoogleProvider struct {
	oauth    *oauth2.Config
	client   *http.Client
	clientID string

	mu sync.Mutex
	// Live provider sessions by lowercased email; these survive SignOut the
	// way a provider-side session outlives one site's logout.
	sessions map[string]Identity
	// Identity verified by the callback handler, consumed by the next
	// interactive SignIn.
	staged *Identity
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		client:   &http.Client{Timeout: 10 * time.Second},
		clientID: clientID,
		sessions: make(map[string]Identity),
	}
}

// AuthCodeURL builds the provider redirect for an interactive sign-in. The
// account chooser is always forced so adding a second account works even
// when a provider session exists.
func (g *GoogleProvider) AuthCodeURL(state, loginHint string) string {
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("prompt", "select_account")}
	if loginHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", loginHint))
	}
	return g.oauth.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for a verified identity.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, fmt.Errorf("provider response carried no id_token")
	}
	return g.VerifyIDToken(ctx, rawIDToken)
}

// VerifyIDToken validates a Google ID token against the tokeninfo endpoint
// and returns the identity it asserts.
func (g *GoogleProvider) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	endpoint := tokenInfoURL + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invalid id token")
	}

	var claims struct {
		Aud           string `json:"aud"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode tokeninfo response: %w", err)
	}

	if claims.Aud != g.clientID {
		return nil, fmt.Errorf("id token audience mismatch")
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("id token carried no email")
	}

	return &Identity{
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

// StageInteractive records an identity verified by the callback handler so
// the switcher's next interactive SignIn can complete with it.
func (g *GoogleProvider) StageInteractive(id Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := id
	g.staged = &cp
}

// SignIn implements the Provider capability. Silent attempts resolve from
// live sessions only; interactive attempts consume the staged identity from
// the completed consent flow.
func (g *GoogleProvider) SignIn(ctx context.Context, opts SignInOptions) (*Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if opts.Silent {
		if id, ok := g.sessions[strings.ToLower(opts.LoginHint)]; ok {
			cp := id
			return &cp, nil
		}
		return nil, ErrInteractionRequired
	}

	if g.staged == nil {
		// Nothing completed the consent flow yet; the caller must redirect.
		return nil, ErrInteractionRequired
	}

	id := *g.staged
	g.staged = nil
	g.sessions[strings.ToLower(id.Email)] = id
	return &id, nil
}

// SignOut terminates the current session. Provider-side sessions for silent
// re-login are intentionally kept.
func (g *GoogleProvider) SignOut(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.staged = nil
	return nil
}
