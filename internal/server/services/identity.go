package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/auth"
	"github.com/dmitrijs2005/famtree/internal/server/config"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/repomanager"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// Session is what a successful sign-in hands back to the client.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	Identity    *models.Identity
}

// IdentityService is the identity provider: accounts with argon2id password
// hashes and JWT access tokens that can be revoked before they expire.
type IdentityService struct {
	store                       *docstore.Store
	repomanager                 repomanager.RepositoryManager
	profiles                    *ProfileService
	hasher                      *auth.Hasher
	revoked                     auth.RevocationList
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	log                         logging.Logger

	mu        sync.Mutex
	onSignOut []func(tokenID string)
}

func NewIdentityService(store *docstore.Store, m repomanager.RepositoryManager, profiles *ProfileService,
	hasher *auth.Hasher, revoked auth.RevocationList, cfg *config.Config, log logging.Logger) *IdentityService {
	return &IdentityService{
		store:                       store,
		repomanager:                 m,
		profiles:                    profiles,
		hasher:                      hasher,
		revoked:                     revoked,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		log:                         log.With("module", "identity"),
	}
}

// Register creates an account and its profile and signs the new user in.
func (s *IdentityService) Register(ctx context.Context, email, password, displayName string) (*Session, error) {
	email = models.NormalizeEmail(email)
	if !models.ValidEmail(email) {
		return nil, common.NewProviderError(common.CodeInvalidEmail, common.ErrInvalidArgument)
	}
	if len(password) < MinPasswordLength {
		return nil, common.NewProviderError(common.CodeWeakPassword, common.ErrInvalidArgument)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	if displayName == "" {
		displayName = models.DefaultDisplayName(email)
	}
	account := &models.Account{
		UID:          docstore.NewID(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	}

	err = s.store.RunBatch(ctx, func(ctx context.Context, db docstore.Accessor) error {
		return s.repomanager.Accounts(db).Create(ctx, account)
	})
	if errors.Is(err, common.ErrorAlreadyExists) {
		return nil, common.NewProviderError(common.CodeEmailInUse, err)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating account: %w", err)
	}
	s.log.Info(ctx, "account registered", "uid", account.UID)

	return s.open(ctx, account.Identity())
}

// SignIn checks the credentials. Unknown emails and wrong passwords fail the
// same way.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.repomanager.Accounts(s.store).GetByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.NewProviderError(common.CodeInvalidCredential, common.ErrNotAuthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading account: %w", err)
	}

	ok, err := s.hasher.Compare(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("error checking password: %w", err)
	}
	if !ok {
		s.log.Info(ctx, "sign-in rejected", "uid", account.UID)
		return nil, common.NewProviderError(common.CodeInvalidCredential, common.ErrNotAuthenticated)
	}
	return s.open(ctx, account.Identity())
}

func (s *IdentityService) open(ctx context.Context, id *models.Identity) (*Session, error) {
	if _, err := s.profiles.EnsureProfile(ctx, id); err != nil {
		return nil, err
	}
	token, claims, err := auth.GenerateToken(id.UID, id.Email, id.DisplayName, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &Session{AccessToken: token, ExpiresAt: claims.ExpiresAt.Time, Identity: id}, nil
}

// SignOut revokes the token until it would have expired anyway.
func (s *IdentityService) SignOut(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return common.NewProviderError(common.CodeInvalidToken, common.ErrNotAuthenticated)
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("error revoking token: %w", err)
	}
	s.log.Info(ctx, "signed out", "uid", claims.UID)

	s.mu.Lock()
	hooks := slices.Clone(s.onSignOut)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(claims.ID)
	}
	return nil
}

// OnSignOut registers fn to run with the ID of every token revoked by
// SignOut.
func (s *IdentityService) OnSignOut(fn func(tokenID string)) {
	s.mu.Lock()
	s.onSignOut = append(s.onSignOut, fn)
	s.mu.Unlock()
}

// TokenID returns the ID an access token is revoked by.
func (s *IdentityService) TokenID(token string) (string, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return "", common.NewProviderError(common.CodeInvalidToken, common.ErrNotAuthenticated)
	}
	return claims.ID, nil
}

// Authenticate turns an access token back into the identity it was issued to.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, common.NewProviderError(common.CodeInvalidToken, common.ErrNotAuthenticated)
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, common.NewProviderError(common.CodeUnavailable, err)
	}
	if revoked {
		return nil, common.NewProviderError(common.CodeInvalidToken, common.ErrNotAuthenticated)
	}
	return &models.Identity{UID: claims.UID, Email: claims.Email, DisplayName: claims.DisplayName}, nil
}
