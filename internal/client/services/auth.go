// Package services contains application services for the famtree CLI. The
// authentication service signs in against the server and keeps the session
// in the local cache so later invocations reuse it.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/famtree/internal/api"
	"github.com/dmitrijs2005/famtree/internal/client/client"
	"github.com/dmitrijs2005/famtree/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/dbx"
	"github.com/dmitrijs2005/famtree/internal/server/models"
)

const (
	keyAccessToken = "access_token"
	keyExpiresAt   = "expires_at"
	keyUID         = "uid"
	keyEmail       = "email"
	keyDisplayName = "display_name"
)

var sessionKeys = []string{keyAccessToken, keyExpiresAt, keyUID, keyEmail, keyDisplayName}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register / Login: authenticate against the server and cache the session.
//   - Restore: load the cached session into the client, or ErrNotLoggedIn.
//   - Logout: revoke the token on the server and forget the session.
type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (*models.Identity, error)
	Login(ctx context.Context, email, password string) (*models.Identity, error)
	Restore(ctx context.Context) (*models.Identity, error)
	Logout(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	now    func() time.Time
}

func NewAuthService(c client.Client, db *sql.DB) AuthService {
	return &authService{client: c, db: db, now: time.Now}
}

func (a *authService) getMetadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (a *authService) Register(ctx context.Context, email, password, displayName string) (*models.Identity, error) {
	s, err := a.client.Register(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}
	return s.Identity, a.save(ctx, s)
}

func (a *authService) Login(ctx context.Context, email, password string) (*models.Identity, error) {
	s, err := a.client.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.Identity, a.save(ctx, s)
}

// save caches the session in a single transaction and arms the client.
func (a *authService) save(ctx context.Context, s *api.SessionResponse) error {
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		values := map[string]string{
			keyAccessToken: s.AccessToken,
			keyExpiresAt:   s.ExpiresAt.UTC().Format(time.RFC3339),
			keyUID:         s.Identity.UID,
			keyEmail:       s.Identity.Email,
			keyDisplayName: s.Identity.DisplayName,
		}
		for k, v := range values {
			if err := repo.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session saving error: %w", err)
	}
	a.client.SetToken(s.AccessToken)
	return nil
}

func (a *authService) Restore(ctx context.Context) (*models.Identity, error) {
	repo := a.getMetadataRepo(a.db)

	values := make(map[string]string, len(sessionKeys))
	for _, k := range sessionKeys {
		v, err := repo.Get(ctx, k)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, client.ErrNotLoggedIn
		}
		if err != nil {
			return nil, err
		}
		values[k] = v
	}

	expires, err := time.Parse(time.RFC3339, values[keyExpiresAt])
	if err != nil || !a.now().Before(expires) {
		_ = repo.Delete(ctx, sessionKeys...)
		return nil, client.ErrNotLoggedIn
	}

	a.client.SetToken(values[keyAccessToken])
	return &models.Identity{
		UID:         values[keyUID],
		Email:       values[keyEmail],
		DisplayName: values[keyDisplayName],
	}, nil
}

// Logout forgets the cached session even when the server cannot be told.
func (a *authService) Logout(ctx context.Context) error {
	if _, err := a.Restore(ctx); err != nil {
		return err
	}
	signOutErr := a.client.SignOut(ctx)
	if errors.Is(signOutErr, client.ErrUnauthorized) {
		signOutErr = nil
	}
	a.client.SetToken("")

	if err := a.getMetadataRepo(a.db).Delete(ctx, sessionKeys...); err != nil {
		return err
	}
	return signOutErr
}
