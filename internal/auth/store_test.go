package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maplewind/maplewind-api/internal/user"
	"github.com/maplewind/maplewind-api/internal/user/entity"
	"github.com/maplewind/maplewind-api/internal/user/repo"
)

// memStore mimics the users table, unique constraints included.
type memStore struct {
	mu   sync.Mutex
	next int64
	rows map[int64]entity.User
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]entity.User{}}
}

func sameString(a, b *string) bool { return a != nil && b != nil && *a == *b }

func (m *memStore) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Username == u.Username ||
			(r.KakaoID != nil && u.KakaoID != nil && *r.KakaoID == *u.KakaoID) ||
			sameString(r.StudentID, u.StudentID) ||
			sameString(r.PhoneNumber, u.PhoneNumber) {
			return repo.ErrConflict
		}
	}
	m.next++
	u.ID = m.next
	m.rows[u.ID] = *u
	return nil
}

func (m *memStore) find(match func(r *entity.User) bool) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if match(&r) {
			return &r, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	return m.find(func(r *entity.User) bool { return r.Username == username })
}

func (m *memStore) GetByKakaoID(_ context.Context, id int64) (*entity.User, error) {
	return m.find(func(r *entity.User) bool { return r.KakaoID != nil && *r.KakaoID == id })
}

func (m *memStore) GetByPhoneNumber(_ context.Context, phone string) (*entity.User, error) {
	return m.find(func(r *entity.User) bool { return r.PhoneNumber != nil && *r.PhoneNumber == phone })
}

func (m *memStore) GetByRefreshDigest(_ context.Context, digest string) (*entity.User, error) {
	return m.find(func(r *entity.User) bool { return r.RefreshTokenHash != nil && *r.RefreshTokenHash == digest })
}

func (m *memStore) update(id int64, fn func(r *entity.User) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return false, repo.ErrNotFound
	}
	if !fn(&r) {
		return false, nil
	}
	m.rows[id] = r
	return true, nil
}

func (m *memStore) SetRefreshToken(_ context.Context, id int64, digest string, exp time.Time) error {
	_, err := m.update(id, func(r *entity.User) bool { r.SetSession(digest, exp); return true })
	return err
}

func (m *memStore) SwapRefreshToken(_ context.Context, id int64, old, digest string, exp time.Time) (bool, error) {
	ok, err := m.update(id, func(r *entity.User) bool {
		if r.RefreshTokenHash == nil || *r.RefreshTokenHash != old {
			return false
		}
		r.SetSession(digest, exp)
		return true
	})
	if err == repo.ErrNotFound {
		return false, nil
	}
	return ok, err
}

func (m *memStore) ClearRefreshToken(_ context.Context, id int64) error {
	_, err := m.update(id, func(r *entity.User) bool { r.ClearSession(); return true })
	if err == repo.ErrNotFound {
		return nil
	}
	return err
}

func (m *memStore) LinkKakao(_ context.Context, id, kakaoID int64) error {
	_, err := m.update(id, func(r *entity.User) bool { r.KakaoID = &kakaoID; return true })
	return err
}

func (m *memStore) UpdatePassword(_ context.Context, id int64, digest string) error {
	_, err := m.update(id, func(r *entity.User) bool { r.HashedPassword = &digest; return true })
	return err
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type mockBridge struct {
	mock.Mock
}

func (b *mockBridge) ExchangeCode(ctx context.Context, code string) (string, error) {
	args := b.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (b *mockBridge) FetchProfile(ctx context.Context, token string) (*OAuthProfile, error) {
	args := b.Called(ctx, token)
	p, _ := args.Get(0).(*OAuthProfile)
	return p, args.Error(1)
}

func (b *mockBridge) Unlink(ctx context.Context, kakaoID int64, adminKey string) error {
	return b.Called(ctx, kakaoID, adminKey).Error(0)
}

func (b *mockBridge) AuthCodeURL(state string) string {
	return b.Called(state).String(0)
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var (
	testHasher = user.Argon2Hasher{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	testStart  = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
)

func testConfig() Config {
	return Config{
		SecretKey:     []byte("test-secret"),
		Algorithm:     "HS256",
		AccessTTL:     30 * time.Minute,
		RefreshTTL:    14 * 24 * time.Hour,
		KakaoAdminKey: "admin-key",
	}
}

type fixture struct {
	svc    *Service
	store  *memStore
	bridge *mockBridge
	clock  *fakeClock
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{store: newMemStore(), bridge: &mockBridge{}, clock: &fakeClock{now: testStart}}
	svc, err := NewService(cfg, f.store, f.bridge, nil, WithHasher(testHasher), WithClock(f.clock.Now))
	require.NoError(t, err)
	f.svc = svc
	return f
}
