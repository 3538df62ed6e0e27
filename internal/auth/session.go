package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maplewind/maplewind-api/internal/user/entity"
	"github.com/maplewind/maplewind-api/internal/user/repo"
)

// UserStore is the persistence the auth flows need. *repo.UserRepo satisfies it.
type UserStore interface {
	Create(ctx context.Context, u *entity.User) error
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByKakaoID(ctx context.Context, kakaoID int64) (*entity.User, error)
	GetByPhoneNumber(ctx context.Context, phone string) (*entity.User, error)
	GetByRefreshDigest(ctx context.Context, digest string) (*entity.User, error)
	SetRefreshToken(ctx context.Context, id int64, digest string, expiresAt time.Time) error
	SwapRefreshToken(ctx context.Context, id int64, oldDigest, newDigest string, expiresAt time.Time) (bool, error)
	ClearRefreshToken(ctx context.Context, id int64) error
	LinkKakao(ctx context.Context, id, kakaoID int64) error
	UpdatePassword(ctx context.Context, id int64, digest string) error
	Delete(ctx context.Context, id int64) error
}

// SessionStore manages the single refresh slot kept on each user row.
type SessionStore struct {
	users UserStore
	ttl   time.Duration
}

func NewSessionStore(users UserStore, ttl time.Duration) *SessionStore {
	return &SessionStore{users: users, ttl: ttl}
}

// Attach fills the slot on an unsaved user. The caller persists it with the row.
func (s *SessionStore) Attach(u *entity.User, refreshToken string, now time.Time) {
	u.SetSession(Digest(refreshToken), now.Add(s.ttl))
}

// Rotate overwrites the slot unconditionally, invalidating any previous token.
func (s *SessionStore) Rotate(ctx context.Context, u *entity.User, refreshToken string, now time.Time) error {
	digest, exp := Digest(refreshToken), now.Add(s.ttl)
	if err := s.users.SetRefreshToken(ctx, u.ID, digest, exp); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	u.SetSession(digest, exp)
	return nil
}

// RotateFrom replaces the slot only while it still holds oldDigest. Losing the
// race to a concurrent refresh yields ErrInvalidToken.
func (s *SessionStore) RotateFrom(ctx context.Context, u *entity.User, oldDigest, refreshToken string, now time.Time) error {
	digest, exp := Digest(refreshToken), now.Add(s.ttl)
	ok, err := s.users.SwapRefreshToken(ctx, u.ID, oldDigest, digest, exp)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: refresh token already rotated", ErrInvalidToken)
	}
	u.SetSession(digest, exp)
	return nil
}

// Clear empties the slot. Clearing an empty slot is not an error.
func (s *SessionStore) Clear(ctx context.Context, u *entity.User) error {
	if err := s.users.ClearRefreshToken(ctx, u.ID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	u.ClearSession()
	return nil
}

// Lookup finds the owner of a refresh token by digest.
func (s *SessionStore) Lookup(ctx context.Context, refreshToken string) (*entity.User, error) {
	u, err := s.users.GetByRefreshDigest(ctx, Digest(refreshToken))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown refresh token", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	return u, nil
}
