package comment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maplewind/maplewind-api/internal/comment/entity"
	"github.com/maplewind/maplewind-api/internal/user"
	userentity "github.com/maplewind/maplewind-api/internal/user/entity"
)

type memStore struct {
	mu    sync.Mutex
	items []entity.Comment
	clock time.Time
}

func (m *memStore) List(_ context.Context, offset, limit int) ([]entity.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Comment{}
	for i := len(m.items) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.items[i])
	}
	return out, nil
}

func (m *memStore) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

func (m *memStore) Create(_ context.Context, c *entity.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Second)
	c.ID = int64(len(m.items) + 1)
	c.CreatedAt = m.clock
	m.items = append(m.items, *c)
	return nil
}

var alice = &userentity.User{ID: 1, Username: "alice", Name: "Alice"}

func TestCreateUsesUserName(t *testing.T) {
	svc := NewService(&memStore{}, zap.NewNop().Sugar())

	c, err := svc.Create(context.Background(), alice, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", c.Author)
	assert.Equal(t, "hello", c.Content)
	assert.Equal(t, int64(1), c.UserID)

	_, err = svc.Create(context.Background(), alice, "   ")
	assert.ErrorIs(t, err, ErrInvalidContent)
	_, err = svc.Create(context.Background(), alice, strings.Repeat("가", MaxContentLength+1))
	assert.ErrorIs(t, err, ErrInvalidContent)
}

func TestListNewestFirst(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, zap.NewNop().Sugar())
	for _, s := range []string{"one", "two", "three"} {
		_, err := svc.Create(context.Background(), alice, s)
		require.NoError(t, err)
	}

	p, err := svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)
	require.Len(t, p.Items, 2)
	assert.Equal(t, "three", p.Items[0].Content)

	p, err = svc.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "one", p.Items[0].Content)
}

func TestHandlers(t *testing.T) {
	h := NewHandler(NewService(&memStore{}, zap.NewNop().Sugar()), zap.NewNop().Sugar())

	post := func(body string, withUser bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/comments", strings.NewReader(body))
		if withUser {
			req = req.WithContext(user.WithCurrent(req.Context(), alice))
		}
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		return rec
	}

	rec := post(`{"content":"hi"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(`{"content":""}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`{"content":"hi","author":"mallory"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	var c map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "Alice", c["author"])
	assert.NotContains(t, c, "user_id")

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/comments?page=0&limit=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	var items []entity.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 1)
}
