package services

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/famtree/internal/api"
	"github.com/dmitrijs2005/famtree/internal/client/client"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.OpenCache(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fakeClient implements the calls the auth service makes.
type fakeClient struct {
	client.Client

	session    *api.SessionResponse
	signInErr  error
	signOutErr error

	token       string
	signOutCall int
}

func (f *fakeClient) Register(_ context.Context, email, _, name string) (*api.SessionResponse, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeClient) SignIn(context.Context, string, string) (*api.SessionResponse, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeClient) SignOut(context.Context) error {
	f.signOutCall++
	return f.signOutErr
}

func (f *fakeClient) SetToken(token string) { f.token = token }

func session(expires time.Time) *api.SessionResponse {
	return &api.SessionResponse{
		AccessToken: "tok",
		ExpiresAt:   expires,
		Identity:    &models.Identity{UID: "u1", Email: "a@x.com", DisplayName: "Alice"},
	}
}

func TestLogin_CachesSession(t *testing.T) {
	db := setupDB(t)
	fc := &fakeClient{session: session(time.Now().Add(time.Hour))}
	svc := NewAuthService(fc, db)
	ctx := context.Background()

	id, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UID)
	assert.Equal(t, "tok", fc.token)

	// a fresh process restores from the cache
	other := &fakeClient{}
	restored, err := NewAuthService(other, db).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, restored)
	assert.Equal(t, "tok", other.token)
}

func TestLogin_FailureCachesNothing(t *testing.T) {
	db := setupDB(t)
	svc := NewAuthService(&fakeClient{signInErr: errors.New("Invalid email or password.")}, db)
	ctx := context.Background()

	_, err := svc.Login(ctx, "a@x.com", "bad")
	require.Error(t, err)

	_, err = svc.Restore(ctx)
	require.ErrorIs(t, err, client.ErrNotLoggedIn)
}

func TestRegister_CachesSession(t *testing.T) {
	db := setupDB(t)
	fc := &fakeClient{session: session(time.Now().Add(time.Hour))}
	svc := NewAuthService(fc, db)

	_, err := svc.Register(context.Background(), "a@x.com", "secret1", "Alice")
	require.NoError(t, err)

	_, err = svc.Restore(context.Background())
	require.NoError(t, err)
}

func TestRestore_ExpiredSessionIsForgotten(t *testing.T) {
	db := setupDB(t)
	svc := NewAuthService(&fakeClient{session: session(time.Now().Add(time.Minute))}, db).(*authService)
	ctx := context.Background()

	_, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.Restore(ctx)
	require.ErrorIs(t, err, client.ErrNotLoggedIn)

	svc.now = time.Now
	_, err = svc.Restore(ctx)
	require.ErrorIs(t, err, client.ErrNotLoggedIn)
}

func TestLogout(t *testing.T) {
	db := setupDB(t)
	fc := &fakeClient{session: session(time.Now().Add(time.Hour)), signOutErr: client.ErrUnauthorized}
	svc := NewAuthService(fc, db)
	ctx := context.Background()

	require.ErrorIs(t, svc.Logout(ctx), client.ErrNotLoggedIn)
	assert.Equal(t, 0, fc.signOutCall)

	_, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx))
	assert.Equal(t, 1, fc.signOutCall)
	assert.Empty(t, fc.token)

	_, err = svc.Restore(ctx)
	require.ErrorIs(t, err, client.ErrNotLoggedIn)
}
