package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/shared"
	"golang.org/x/oauth2"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	// GoogleUserInfoURL returns the profile of the token's owner.
	GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	ScopeReadOnly   = "https://www.googleapis.com/auth/photoslibrary.readonly"
	ScopeAppendOnly = "https://www.googleapis.com/auth/photoslibrary.appendonly"
	scopeEmail      = "https://www.googleapis.com/auth/userinfo.email"
)

// ScopesFor returns the least-privilege scopes for an account role: read-only
// for a source, append-only for a target.
func ScopesFor(role models.AccountRole) []string {
	if role == models.RoleTarget {
		return []string{ScopeAppendOnly, ScopeReadOnly, scopeEmail}
	}
	return []string{ScopeReadOnly, scopeEmail}
}

// NewGoogleOAuthConfig builds the authorization code flow config for one account role.
func NewGoogleOAuthConfig(creds shared.GoogleConfig, role models.AccountRole) (*oauth2.Config, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       ScopesFor(role),
		Endpoint: oauth2.Endpoint{
			AuthURL:  googleAuthURL,
			TokenURL: googleTokenURL,
		},
	}, nil
}

// AuthCodeURL returns the consent URL, asking for offline access so a refresh token is issued.
func AuthCodeURL(config *oauth2.Config, state string) string {
	return config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// AccountTokenSource returns a token source seeded with an account's stored tokens.
//
// The source refreshes expired access tokens with the stored refresh token.
func AccountTokenSource(ctx context.Context, config *oauth2.Config, account *models.Account) (oauth2.TokenSource, error) {
	if account.AccessToken() == "" && account.RefreshToken() == "" {
		return nil, fmt.Errorf("%w: %s has no stored token, run auth first", shared.ErrNotAuthenticated, account.Email())
	}
	token := &oauth2.Token{
		AccessToken:  account.AccessToken(),
		RefreshToken: account.RefreshToken(),
		Expiry:       account.TokenExpiry(),
		TokenType:    "Bearer",
	}
	return config.TokenSource(ctx, token), nil
}

// FetchAccountEmail asks the userinfo endpoint which Google account a freshly
// issued token belongs to.
func FetchAccountEmail(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	if endpoint == "" {
		endpoint = GoogleUserInfoURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: userinfo: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: userinfo returned status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("%w: userinfo response has no email", shared.ErrAuthFailed)
	}
	return info.Email, nil
}
