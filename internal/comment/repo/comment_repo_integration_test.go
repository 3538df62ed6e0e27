//go:build integration

package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplewind/maplewind-api/internal/comment/entity"
	"github.com/maplewind/maplewind-api/pkg/database"
)

func TestCommentRepo(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	sqlDB, err := database.Connect(database.Config{DSN: dsn, MaxConns: 2, Timeout: 5 * time.Second})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), sqlDB, nil))
	db := sqlx.NewDb(sqlDB, "postgres")
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`TRUNCATE users, comments RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	var userID int64
	require.NoError(t, db.Get(&userID, `INSERT INTO users (username, name) VALUES ('alice', 'Alice') RETURNING id`))

	r := NewRepo(db)
	ctx := context.Background()
	for _, content := range []string{"first", "second"} {
		c := &entity.Comment{UserID: userID, Author: "Alice", Content: content}
		require.NoError(t, r.Create(ctx, c))
		assert.NotZero(t, c.ID)
		assert.False(t, c.CreatedAt.IsZero())
	}

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := r.List(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "second", list[0].Content)

	_, err = db.Exec(`DELETE FROM users WHERE id = $1`, userID)
	require.NoError(t, err)
	n, err = r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "comments go with their author")
}
