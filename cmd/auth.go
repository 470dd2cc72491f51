package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/repositories"
	"github.com/desertthunder/photomirror/internal/server"
	"github.com/desertthunder/photomirror/internal/services"
	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// Auth links a Google Photos account through the browser consent flow and stores its token.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	role, err := models.ParseAccountRole(cmd.String("role"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	config, err := r.oauthConfig(role)
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, config)
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	email, err := services.FetchAccountEmail(ctx, config.Client(ctx, token), r.userInfoURL)
	if err != nil {
		return err
	}

	account := models.NewAccount(email, role)
	account.SetToken(token.AccessToken, token.RefreshToken, token.Expiry)
	if err := repositories.NewAccountRepository(db).Save(account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	r.logger.Info("account linked", "email", email, "role", role)
	return r.writePlain("✓ Linked %s as %s account\n", email, role)
}

// doOAuth runs the authorization code flow against a local callback server.
func (r *Runner) doOAuth(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	state := shared.GenerateID()
	handler := server.NewOAuthHandler(config, state, r.logger)

	srv, err := server.NewCallbackServer(r.config.Server.Addr(), handler, r.logger)
	if err != nil {
		return nil, err
	}
	srv.Start()

	authURL := services.AuthCodeURL(config, state)
	r.writePlain("→ Opening browser for authorization...\n")
	r.logger.Debug("authorization URL", "url", authURL)
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this URL to continue:\n%s\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (timeout: %v)...\n", authTimeout)
	return srv.Wait(ctx, authTimeout)
}

// AccountsList prints the linked accounts.
func (r *Runner) AccountsList(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{}
	if s := cmd.String("role"); s != "" {
		role, err := models.ParseAccountRole(s)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
		criteria["role"] = role
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	accounts, err := repositories.NewAccountRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type accountJSON struct {
			ID          string             `json:"id"`
			Email       string             `json:"email"`
			Role        models.AccountRole `json:"role"`
			TokenExpiry *time.Time         `json:"token_expiry,omitempty"`
			LinkedAt    time.Time          `json:"linked_at"`
		}
		out := make([]accountJSON, 0, len(accounts))
		for _, a := range accounts {
			entry := accountJSON{ID: a.ID(), Email: a.Email(), Role: a.Role(), LinkedAt: a.CreatedAt()}
			if expiry := a.TokenExpiry(); !expiry.IsZero() {
				entry.TokenExpiry = &expiry
			}
			out = append(out, entry)
		}
		return r.writeJSON(out, true)
	}

	if len(accounts) == 0 {
		return r.writePlain("No linked accounts. Run 'photomirror auth --role source' to link one.\n")
	}

	r.writePlain("Found %d accounts:\n\n", len(accounts))
	for i, a := range accounts {
		r.writePlain("%d. %s (%s)\n", i+1, a.Email(), a.Role())
		r.writePlain("   Linked: %s\n", a.CreatedAt().Format(time.DateTime))
	}
	return nil
}

// AccountsRemove unlinks an account and deletes its stored token.
func (r *Runner) AccountsRemove(ctx context.Context, cmd *cli.Command) error {
	email := cmd.StringArg("email")
	if email == "" {
		return fmt.Errorf("%w: account email", shared.ErrMissingArgument)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	repo := repositories.NewAccountRepository(db)
	account, err := repo.GetByEmail(email)
	if err != nil {
		return err
	}
	if err := repo.Delete(account.ID()); err != nil {
		return err
	}

	r.logger.Info("account removed", "email", email)
	return r.writePlain("✓ Removed %s\n", email)
}
