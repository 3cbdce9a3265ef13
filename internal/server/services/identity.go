// Package services contains server-side business logic. This file implements
// IdentityService: registration, credential verification, and issuing,
// validating, and rotating tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vyapaars/syncledger/internal/common"
	"github.com/vyapaars/syncledger/internal/dbx"
	"github.com/vyapaars/syncledger/internal/server/auth"
	"github.com/vyapaars/syncledger/internal/server/config"
	"github.com/vyapaars/syncledger/internal/server/models"
	"github.com/vyapaars/syncledger/internal/server/repositories/repomanager"
)

// TokenPair bundles an access token and its companion refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// IdentityService provides authentication-related operations:
//   - Register: create identities
//   - Login: verify credentials and mint tokens
//   - Refresh: rotate refresh tokens and mint new access tokens
//   - ValidateToken / GetByKey: resolve bearer tokens back to identities
type IdentityService struct {
	db                   *sql.DB
	repos                repomanager.RepositoryManager
	jwtSecret            []byte
	accessTokenValidity  time.Duration
	refreshTokenValidity time.Duration
}

// NewIdentityService constructs an IdentityService using repositories and
// server config.
func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *IdentityService {
	return &IdentityService{
		db:                   db,
		repos:                m,
		jwtSecret:            []byte(cfg.SecretKey),
		accessTokenValidity:  cfg.AccessTokenValidity,
		refreshTokenValidity: cfg.RefreshTokenValidity,
	}
}

// Register creates a new identity keyed by phone. The secret is stored as an
// argon2id hash, never in the clear. A duplicate phone surfaces as
// common.ErrorAlreadyExists.
func (s *IdentityService) Register(ctx context.Context, phone, fullName, password string) (*models.Identity, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	identity := &models.Identity{
		ID:           uuid.NewString(),
		Phone:        phone,
		FullName:     fullName,
		PasswordHash: hash,
		Verified:     true,
		CreatedAt:    time.Now().UTC(),
	}

	repo := s.repos.Identities(s.db)
	created, err := repo.Create(ctx, identity)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating identity: %w", err)
	}
	return created, nil
}

// Login verifies the presented secret against the stored hash and, on
// success, returns a new TokenPair. Unknown identity and wrong secret
// collapse into the same common.ErrorUnauthorized.
func (s *IdentityService) Login(ctx context.Context, phone, password string) (*TokenPair, error) {
	repo := s.repos.Identities(s.db)
	identity, err := repo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if !auth.VerifyPassword(password, identity.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}
	return s.generateTokenPair(ctx, identity, s.db)
}

// Refresh validates a refresh token, rotates it transactionally, and returns
// a fresh TokenPair. Expired tokens yield common.ErrRefreshTokenExpired.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repos.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	identity, err := s.repos.Identities(s.db).GetByID(ctx, token.IdentityID)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repos.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, identity, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// GetByKey resolves an identity key (phone) to the stored identity.
func (s *IdentityService) GetByKey(ctx context.Context, phone string) (*models.Identity, error) {
	repo := s.repos.Identities(s.db)
	identity, err := repo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return identity, nil
}

// ValidateToken checks a bearer token and returns the identity key it was
// issued for. Every failure mode collapses to common.ErrInvalidToken.
func (s *IdentityService) ValidateToken(token string) (string, error) {
	return auth.GetIdentityKeyFromToken(token, s.jwtSecret)
}

// --- helpers below ---

func (s *IdentityService) generateTokenPair(ctx context.Context, identity *models.Identity, db dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(identity.Phone, s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repos.RefreshTokens(db)
	if err := refreshRepo.Create(ctx, identity.ID, refresh, s.refreshTokenValidity); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
