package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/maplewind/maplewind-api/internal/user"
	"github.com/maplewind/maplewind-api/internal/user/entity"
	"github.com/maplewind/maplewind-api/internal/user/repo"
	"github.com/maplewind/maplewind-api/pkg/utilities"
)

// Config is everything the auth flows read from the environment.
type Config struct {
	SecretKey     []byte
	Algorithm     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	KakaoAdminKey string
}

// TokenPair is what a successful login hands back. RefreshToken travels in a
// cookie and never in a response body.
type TokenPair struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresAt    time.Time
}

// Service runs signup, login, refresh, logout and withdrawal, plus the Kakao
// flows in oauth.go.
type Service struct {
	cfg      Config
	users    UserStore
	hasher   user.PasswordHasher
	issuer   *TokenIssuer
	sessions *SessionStore
	bridge   OAuthBridge
	logger   *zap.SugaredLogger
	now      func() time.Time
}

type Option func(*Service)

func WithHasher(h user.PasswordHasher) Option {
	return func(s *Service) { s.hasher = h }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now for the service and its token issuer.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.issuer.now = now
	}
}

// NewService wires the flows. bridge may be nil when Kakao is not configured;
// Kakao operations then fail with ErrMisconfigured.
func NewService(cfg Config, users UserStore, bridge OAuthBridge, ids *utilities.IDGenerator, opts ...Option) (*Service, error) {
	if cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: refresh token ttl must be positive", ErrMisconfigured)
	}
	issuer, err := NewTokenIssuer(IssuerConfig{
		SecretKey: cfg.SecretKey,
		Algorithm: cfg.Algorithm,
		AccessTTL: cfg.AccessTTL,
	}, ids)
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:      cfg,
		users:    users,
		hasher:   user.DefaultArgon2,
		issuer:   issuer,
		sessions: NewSessionStore(users, cfg.RefreshTTL),
		bridge:   bridge,
		logger:   zap.NewNop().Sugar(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Signup creates a password account. It does not log the user in.
func (s *Service) Signup(ctx context.Context, username, password, name string) (*entity.User, error) {
	username, name = strings.TrimSpace(username), strings.TrimSpace(name)
	if username == "" || password == "" || name == "" {
		return nil, fmt.Errorf("%w: username, password and name are required", ErrInvalidInput)
	}
	_, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrConflict
	case !errors.Is(err, repo.ErrNotFound):
		return nil, fmt.Errorf("lookup username: %w", err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{Username: username, Name: name, HashedPassword: &digest}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Infow("user signed up", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Login verifies a password and opens a fresh session, replacing any earlier one.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup username: %w", err)
	}
	// Kakao-only accounts have no password and cannot log in this way.
	if u.HashedPassword == nil || !s.hasher.Verify(*u.HashedPassword, password) {
		s.logger.Infow("login rejected", "username", u.Username)
		return nil, ErrInvalidCredentials
	}
	if s.hasher.NeedsRehash(*u.HashedPassword) {
		s.rehash(ctx, u, password)
	}
	pair, err := s.openSession(ctx, u)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("user logged in", "user_id", u.ID)
	return pair, nil
}

func (s *Service) rehash(ctx context.Context, u *entity.User, password string) {
	digest, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, u.ID, digest)
	}
	if err != nil {
		s.logger.Warnw("password rehash failed", "user_id", u.ID, "error", err)
		return
	}
	u.HashedPassword = &digest
}

// Refresh trades a refresh token for a new pair. The presented token stops
// working as soon as this returns successfully.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: missing refresh token", ErrInvalidToken)
	}
	u, err := s.sessions.Lookup(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if u.SessionExpired(now) {
		return nil, ErrTokenExpired
	}
	pair, err := s.newPair(u)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.RotateFrom(ctx, u, Digest(refreshToken), pair.RefreshToken, now); err != nil {
		return nil, err
	}
	pair.ExpiresAt = *u.RefreshTokenExpiresAt
	return pair, nil
}

// Logout clears the caller's refresh slot. Outstanding access tokens stay
// valid until they expire.
func (s *Service) Logout(ctx context.Context, u *entity.User) error {
	if err := s.sessions.Clear(ctx, u); err != nil {
		return err
	}
	s.logger.Infow("user logged out", "user_id", u.ID)
	return nil
}

// Withdraw deletes the account. Kakao-linked accounts are unlinked first and
// the row survives if the unlink fails.
func (s *Service) Withdraw(ctx context.Context, u *entity.User) error {
	if u.KakaoID != nil {
		if s.cfg.KakaoAdminKey == "" || s.bridge == nil {
			return fmt.Errorf("%w: kakao admin key is not configured", ErrMisconfigured)
		}
		if err := s.bridge.Unlink(ctx, *u.KakaoID, s.cfg.KakaoAdminKey); err != nil {
			s.logger.Errorw("kakao unlink failed", "user_id", u.ID, "kakao_id", *u.KakaoID, "error", err)
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}
	if err := s.users.Delete(ctx, u.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Infow("user withdrew", "user_id", u.ID)
	return nil
}

// Authenticate resolves a bearer access token to its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*entity.User, error) {
	username, err := s.issuer.ParseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup subject: %w", err)
	}
	return u, nil
}

// RefreshTTL is the lifetime given to refresh tokens and their cookie.
func (s *Service) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

func (s *Service) newPair(u *entity.User) (*TokenPair, error) {
	at, err := s.issuer.IssueAccessToken(u.Username)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	rt, err := s.issuer.IssueRefreshToken()
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: at, TokenType: "bearer", RefreshToken: rt}, nil
}

func (s *Service) openSession(ctx context.Context, u *entity.User) (*TokenPair, error) {
	pair, err := s.newPair(u)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Rotate(ctx, u, pair.RefreshToken, s.now()); err != nil {
		return nil, err
	}
	pair.ExpiresAt = *u.RefreshTokenExpiresAt
	return pair, nil
}
