package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/idx"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

// TokenCodec mints and checks signed tokens. *jwtx.Codec satisfies it.
type TokenCodec interface {
	Issue(kind jwtx.Kind, subject string) (string, time.Time, error)
	Verify(kind jwtx.Kind, token string) (jwtx.Claims, error)
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Tokens domain.TokenPair
	User   domain.User
}

// SessionService runs the register, login, refresh and logout flows.
type SessionService struct {
	Store  store.Store
	Tokens TokenCodec

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and returns the stored user.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if err := check(in); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", u.ID)
	return u, nil
}

// dummyHash is verified against when the email is unknown so that both
// failure paths cost one argon2 evaluation.
var dummyHash = sync.OnceValue(func() string {
	h, err := cryptox.HashPassword("not-a-real-password")
	if err != nil {
		panic(err)
	}
	return h
})

// Login checks credentials and opens a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := check(in); err != nil {
		return LoginResult{}, err
	}
	log := slogx.FromContext(ctx)

	// 1. Look up the user.
	u, err := s.Store.Users().GetUserByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, err
		}
		_ = cryptox.VerifyPassword(in.Password, dummyHash())
		log.Info("login failed", "reason", "unknown_email")
		return LoginResult{}, ErrInvalidCredentials
	}

	// 2. Check the password.
	if err := cryptox.VerifyPassword(in.Password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Error("stored password hash unusable", "user_id", u.ID, "err", err)
		}
		log.Info("login failed", "reason", "bad_password", "user_id", u.ID)
		return LoginResult{}, ErrInvalidCredentials
	}

	// 3. Issue and record a token pair.
	pair, rec, err := s.issuePair(u.ID)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
		return LoginResult{}, fmt.Errorf("record refresh token: %w", err)
	}

	log.Info("user logged in", "user_id", u.ID)
	return LoginResult{Tokens: pair, User: u}, nil
}

// Refresh exchanges a refresh token for a new pair. Each refresh token is
// single use: the presented record is revoked and a new one recorded in the
// same transaction.
func (s *SessionService) Refresh(ctx context.Context, token string) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	// 1. Signature and expiry. An expired JWT is treated like any other bad token.
	claims, err := s.Tokens.Verify(jwtx.Refresh, token)
	if err != nil {
		log.Debug("refresh token rejected", "err", err)
		return domain.TokenPair{}, ErrInvalidToken
	}
	userID := claims.Subject

	// 2. Find the ledger record for this exact token.
	rec, err := s.matchActive(ctx, userID, token)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if rec == nil {
		log.Warn("refresh token not in ledger", "user_id", userID)
		return domain.TokenPair{}, ErrInvalidToken
	}

	// 3. The ledger expiry is authoritative.
	if rec.Expired(s.now()) {
		return domain.TokenPair{}, ErrTokenExpired
	}

	// 4. Rotate.
	pair, next, err := s.issuePair(userID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		won, err := tx.RefreshTokens().RevokeRefreshToken(ctx, rec.ID)
		if err != nil {
			return err
		}
		if !won {
			return ErrInvalidToken
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, next)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			log.Warn("refresh token already rotated", "user_id", userID, "record_id", rec.ID)
		}
		return domain.TokenPair{}, err
	}

	log.Info("refresh token rotated", "user_id", userID)
	return pair, nil
}

// Logout ends a session as far as the inputs allow. It never fails: bad or
// missing tokens are logged and skipped.
func (s *SessionService) Logout(ctx context.Context, refreshToken, accessToken string) {
	log := slogx.FromContext(ctx)

	if refreshToken != "" {
		if err := s.revokeRefresh(ctx, refreshToken); err != nil {
			log.Warn("logout: refresh token not revoked", "err", err)
		}
	}

	if accessToken != "" {
		if err := s.revokeAccess(ctx, accessToken); err != nil {
			log.Warn("logout: access token not revoked", "err", err)
		}
	}
}

// IsRevoked reports whether an access token was logged out.
func (s *SessionService) IsRevoked(ctx context.Context, accessToken string) (bool, error) {
	return s.Store.RevokedTokens().IsAccessTokenRevoked(ctx, cryptox.FingerprintToken(accessToken))
}

// Me returns the profile of an authenticated user.
func (s *SessionService) Me(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *SessionService) revokeRefresh(ctx context.Context, token string) error {
	claims, err := s.Tokens.Verify(jwtx.Refresh, token)
	if err != nil {
		return err
	}
	rec, err := s.matchActive(ctx, claims.Subject, token)
	if err != nil || rec == nil {
		return err
	}
	_, err = s.Store.RefreshTokens().RevokeRefreshToken(ctx, rec.ID)
	return err
}

func (s *SessionService) revokeAccess(ctx context.Context, token string) error {
	claims, err := s.Tokens.Verify(jwtx.Access, token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return nil // already unusable
		}
		return err
	}
	return s.Store.RevokedTokens().RevokeAccessToken(ctx, cryptox.FingerprintToken(token), claims.Expiry())
}

// matchActive scans the user's unrevoked records for one whose hash matches
// token. It returns nil when none does.
func (s *SessionService) matchActive(ctx context.Context, userID, token string) (*domain.RefreshToken, error) {
	records, err := s.Store.RefreshTokens().ListActiveRefreshTokens(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		err := cryptox.CompareToken(token, records[i].TokenHash)
		switch {
		case err == nil:
			return &records[i], nil
		case errors.Is(err, cryptox.ErrTokenMismatch):
			continue
		default:
			slogx.FromContext(ctx).Error("unusable refresh token hash", "record_id", records[i].ID, "err", err)
		}
	}
	return nil, nil
}

// issuePair signs a new access and refresh token and builds the ledger
// record for the refresh token.
func (s *SessionService) issuePair(userID string) (domain.TokenPair, domain.RefreshToken, error) {
	access, accessExp, err := s.Tokens.Issue(jwtx.Access, userID)
	if err != nil {
		return domain.TokenPair{}, domain.RefreshToken{}, err
	}
	refresh, refreshExp, err := s.Tokens.Issue(jwtx.Refresh, userID)
	if err != nil {
		return domain.TokenPair{}, domain.RefreshToken{}, err
	}
	hash, err := cryptox.HashToken(refresh)
	if err != nil {
		return domain.TokenPair{}, domain.RefreshToken{}, fmt.Errorf("hash refresh token: %w", err)
	}

	pair := domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}
	rec := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: refreshExp,
		CreatedAt: s.now().UTC(),
	}
	return pair, rec, nil
}
