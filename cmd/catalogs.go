package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/repositories"
	"github.com/desertthunder/photomirror/internal/services"
	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/desertthunder/photomirror/internal/tasks"
	"golang.org/x/oauth2"
)

// localPrefix marks an account argument as a directory instead of a linked Google account.
const localPrefix = "local:"

// endpoint is one side of a compare or sync: the catalog and the account name passed to it.
type endpoint struct {
	catalog services.Catalog
	account string
}

// resolve turns an account argument into a catalog.
//
// "local:<dir>" reads and writes the directory on the runner's filesystem.
// Anything else is the email of an account linked with the auth command; a
// target must have been linked with the target role.
func (r *Runner) resolve(ctx context.Context, arg string, role models.AccountRole) (endpoint, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return endpoint{}, fmt.Errorf("%w: %s account", shared.ErrMissingArgument, role)
	}

	if dir, ok := strings.CutPrefix(arg, localPrefix); ok {
		if dir == "" {
			return endpoint{}, fmt.Errorf("%w: %q needs a directory", shared.ErrInvalidArgument, arg)
		}
		return endpoint{catalog: services.NewLocalCatalog(r.fs, dir, r.logger), account: dir}, nil
	}

	db, err := r.database()
	if err != nil {
		return endpoint{}, err
	}
	repo := repositories.NewAccountRepository(db)

	account, err := repo.GetByEmail(arg)
	if err != nil {
		return endpoint{}, fmt.Errorf("%w (run auth --role %s)", err, role)
	}
	if role == models.RoleTarget && account.Role() != models.RoleTarget {
		return endpoint{}, fmt.Errorf("%w: %s is linked as %s, run auth --role target",
			shared.ErrInvalidArgument, arg, account.Role())
	}

	config, err := r.oauthConfig(account.Role())
	if err != nil {
		return endpoint{}, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	ts, err := services.AccountTokenSource(ctx, config, account)
	if err != nil {
		return endpoint{}, err
	}

	ts = &persistingTokenSource{base: ts, account: account, repo: repo, logger: r.logger}
	svc := services.NewGooglePhotosService(account.Email(), ts, services.GooglePhotosOptions{
		RequestsPerSecond: r.config.API.RequestsPerSecond,
		MaxRetries:        r.config.Transfer.MaxRetries,
		BaseBackoff:       r.config.Transfer.BaseDelay(),
		ReadTimeout:       r.config.API.ReadTimeout(),
		WriteTimeout:      r.config.API.WriteTimeout(),
		HTTPClient:        r.httpClient,
		Clock:             r.clock,
		Logger:            r.logger,
	})
	return endpoint{catalog: svc, account: account.Email()}, nil
}

func (r *Runner) oauthConfig(role models.AccountRole) (*oauth2.Config, error) {
	config, err := services.NewGoogleOAuthConfig(r.config.Credentials.Google, role)
	if err != nil {
		return nil, err
	}
	if r.endpoint != nil {
		config.Endpoint = *r.endpoint
	}
	return config, nil
}

// newEngine resolves both accounts and builds an engine that records every run.
func (r *Runner) newEngine(ctx context.Context, sourceArg, targetArg string) (*tasks.SyncEngine, endpoint, endpoint, error) {
	source, err := r.resolve(ctx, sourceArg, models.RoleSource)
	if err != nil {
		return nil, endpoint{}, endpoint{}, err
	}
	target, err := r.resolve(ctx, targetArg, models.RoleTarget)
	if err != nil {
		return nil, endpoint{}, endpoint{}, err
	}

	db, err := r.database()
	if err != nil {
		return nil, endpoint{}, endpoint{}, err
	}

	opts := tasks.TransferOptsFromConfig(r.config.Transfer)
	opts.Logger = r.logger
	opts.Clock = r.clock
	transferer := tasks.NewTransferer(source.catalog, target.catalog, opts)

	engine := tasks.NewSyncEngine(source.catalog, target.catalog, transferer,
		tasks.WithRecorder(repositories.NewRunRepository(db)),
		tasks.WithLogger(r.logger),
		tasks.WithClock(r.clock),
	)
	return engine, source, target, nil
}

// persistingTokenSource stores refreshed access tokens so the next run
// does not refresh again.
type persistingTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	account *models.Account
	repo    *repositories.AccountRepository
	logger  *log.Logger
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token.AccessToken == s.account.AccessToken() {
		return token, nil
	}

	refresh := token.RefreshToken
	if refresh == "" {
		refresh = s.account.RefreshToken()
	}
	s.account.SetToken(token.AccessToken, refresh, token.Expiry)
	if err := s.repo.Update(s.account); err != nil {
		s.logger.Warn("failed to store refreshed token", "account", s.account.Email(), "error", err)
	} else {
		s.logger.Debug("stored refreshed token", "account", s.account.Email())
	}
	return token, nil
}
