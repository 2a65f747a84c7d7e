// Package services contains server-side business logic. This file implements
// UserService, the token lifecycle manager: it registers accounts, verifies
// credentials, and issues/refreshes/revokes the JWT pair.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/users"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

var emailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserService provides authentication-related operations:
//   - Register: create users
//   - Login: verify credentials and mint the token pair
//   - Refresh: mint a new access token from a live refresh token
//   - Logout: revoke the stored refresh token
type UserService struct {
	users                        users.Repository
	refreshTokens                refreshtokens.Repository
	accessSecret                 []byte
	refreshSecret                []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(u users.Repository, rt refreshtokens.Repository, cfg *config.Config) *UserService {
	return &UserService{
		users:                        u,
		refreshTokens:                rt,
		accessSecret:                 []byte(cfg.AccessTokenSecret),
		refreshSecret:                []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register validates and creates a new account. The raw password is hashed
// before it reaches the repository and is never logged.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {

	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", common.ErrorValidation)
	}
	if n := utf8.RuneCountInString(username); n < 3 || n > 30 {
		return nil, fmt.Errorf("%w: username must be 3-30 characters", common.ErrorValidation)
	}
	if !emailRegexp.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email format", common.ErrorValidation)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", common.ErrorValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{Username: username, Email: email, PasswordHash: hash}

	user, err = s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorUsernameTaken) || errors.Is(err, common.ErrorEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// Login verifies the credentials and, on success, returns a fresh token
// pair. Unknown email and wrong password produce the same error so callers
// cannot enumerate accounts. Storing the refresh token overwrites any
// previous one, which revokes the earlier session.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, *models.User, error) {

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, nil, common.ErrorUnauthorized
	}

	accessToken, err := auth.GenerateToken(user.ID, user.Email, user.Username, s.accessSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, nil, err
	}

	refreshToken, err := auth.GenerateToken(user.ID, user.Email, user.Username, s.refreshSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, nil, err
	}

	if err := s.refreshTokens.Upsert(ctx, user.ID, refreshToken); err != nil {
		return nil, nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, user, nil
}

// Refresh validates a refresh token against the refresh secret and the
// stored value and returns a new access token. The refresh token itself is
// not rotated: a leaked one stays usable until expiry or logout, which is a
// known hardening opportunity.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {

	claims, err := auth.ParseToken(refreshToken, s.refreshSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return "", common.ErrRefreshTokenExpired
		}
		return "", err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidToken
		}
		return "", common.ErrorInternal
	}

	stored, err := s.refreshTokens.Get(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidToken
		}
		return "", common.ErrorInternal
	}

	// A token from a rotated-out or logged-out session must not pass even
	// if its signature is still valid.
	if subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		return "", common.ErrInvalidToken
	}

	return auth.GenerateToken(user.ID, user.Email, user.Username, s.accessSecret, s.accessTokenValidityDuration)
}

// Logout revokes the stored refresh token. Idempotent.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.refreshTokens.Delete(ctx, userID); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// GetUser returns the persisted account for an authenticated identity.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}
