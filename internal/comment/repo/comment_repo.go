package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/maplewind/maplewind-api/internal/comment/entity"
)

type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo { return &Repo{db: db} }

// List returns comments newest first.
func (r *Repo) List(ctx context.Context, offset, limit int) ([]entity.Comment, error) {
	out := []entity.Comment{}
	q := r.db.Rebind(`SELECT id, user_id, author, content, created_at FROM comments
	ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &out, q, limit, offset); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM comments`)
	return n, err
}

// Create inserts c and fills in its id and creation time.
func (r *Repo) Create(ctx context.Context, c *entity.Comment) error {
	q := r.db.Rebind(`INSERT INTO comments (user_id, author, content) VALUES (?, ?, ?) RETURNING id, created_at`)
	return r.db.QueryRowxContext(ctx, q, c.UserID, c.Author, c.Content).Scan(&c.ID, &c.CreatedAt)
}
