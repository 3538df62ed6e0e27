//go:build integration
// +build integration

package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplewind/maplewind-api/internal/user/entity"
	"github.com/maplewind/maplewind-api/pkg/database"
)

func newIntegrationRepo(t *testing.T) *UserRepo {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	sqlDB, err := database.Connect(database.Config{DSN: dsn, MaxConns: 2, Timeout: 5 * time.Second})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), sqlDB, nil))
	db := sqlx.NewDb(sqlDB, "postgres")
	_, err = db.Exec(`TRUNCATE users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(db)
}

func strPtr(s string) *string { return &s }

func TestUserRepoCreateAndLookup(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()

	u := &entity.User{Username: "alice", Name: "Alice", HashedPassword: strPtr("digest"), PhoneNumber: strPtr("010-1111-2222")}
	require.NoError(t, r.Create(ctx, u))
	assert.NotZero(t, u.ID)

	got, err := r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = r.GetByPhoneNumber(ctx, "010-1111-2222")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = r.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	err = r.Create(ctx, &entity.User{Username: "alice", Name: "Other"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserRepoRefreshSlot(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()

	u := &entity.User{Username: "alice", Name: "Alice"}
	require.NoError(t, r.Create(ctx, u))

	exp := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
	require.NoError(t, r.SetRefreshToken(ctx, u.ID, "d1", exp))

	got, err := r.GetByRefreshDigest(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, got.RefreshTokenExpiresAt)
	assert.True(t, exp.Equal(got.RefreshTokenExpiresAt.UTC()))

	ok, err := r.SwapRefreshToken(ctx, u.ID, "d1", "d2", exp)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.SwapRefreshToken(ctx, u.ID, "d1", "d3", exp)
	require.NoError(t, err)
	assert.False(t, ok, "stale digest must not win")

	_, err = r.GetByRefreshDigest(ctx, "d1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.ClearRefreshToken(ctx, u.ID))
	require.NoError(t, r.ClearRefreshToken(ctx, u.ID))
	got, err = r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RefreshTokenHash)
	assert.Nil(t, got.RefreshTokenExpiresAt)
}

func TestUserRepoKakaoLinkAndDelete(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()

	u := &entity.User{Username: "alice", Name: "Alice"}
	require.NoError(t, r.Create(ctx, u))
	require.NoError(t, r.LinkKakao(ctx, u.ID, 12345))

	got, err := r.GetByKakaoID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, r.Delete(ctx, u.ID))
	assert.ErrorIs(t, r.Delete(ctx, u.ID), ErrNotFound)
}
