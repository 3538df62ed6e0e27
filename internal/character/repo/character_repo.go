package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/maplewind/maplewind-api/internal/character/entity"
)

var ErrNotFound = errors.New("not found")

const (
	characterColumns  = `id, name, detail_txt, level, job, server, avatar_url`
	settlementColumns = `id, character_id, title, description, img_url, acquired_at`
)

// Repo reads characters and settlements. The catalog is written only by the
// seed command.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo { return &Repo{db: db} }

func (r *Repo) ListCharacters(ctx context.Context, offset, limit int) ([]entity.Character, error) {
	out := []entity.Character{}
	q := r.db.Rebind(`SELECT ` + characterColumns + ` FROM characters ORDER BY id LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &out, q, limit, offset); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetCharacter(ctx context.Context, id int64) (*entity.Character, error) {
	var c entity.Character
	q := r.db.Rebind(`SELECT ` + characterColumns + ` FROM characters WHERE id = ?`)
	if err := r.db.GetContext(ctx, &c, q, id); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// ListSettlements returns the character's settlements, newest first.
func (r *Repo) ListSettlements(ctx context.Context, characterID int64) ([]entity.Settlement, error) {
	out := []entity.Settlement{}
	q := r.db.Rebind(`SELECT ` + settlementColumns + ` FROM settlements WHERE character_id = ? ORDER BY acquired_at DESC, id DESC`)
	if err := r.db.SelectContext(ctx, &out, q, characterID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetSettlement(ctx context.Context, id int64) (*entity.Settlement, error) {
	var s entity.Settlement
	q := r.db.Rebind(`SELECT ` + settlementColumns + ` FROM settlements WHERE id = ?`)
	if err := r.db.GetContext(ctx, &s, q, id); err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

// InsertCharacter upserts by name and returns the row id. Used by the seed command.
func (r *Repo) InsertCharacter(ctx context.Context, c *entity.Character) error {
	const q = `INSERT INTO characters (name, detail_txt, level, job, server, avatar_url)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (name) DO UPDATE SET detail_txt = EXCLUDED.detail_txt, level = EXCLUDED.level,
		job = EXCLUDED.job, server = EXCLUDED.server, avatar_url = EXCLUDED.avatar_url
	RETURNING id`
	return r.db.QueryRowxContext(ctx, r.db.Rebind(q),
		c.Name, c.DetailTxt, c.Level, c.Job, c.Server, c.AvatarURL).Scan(&c.ID)
}

// ReplaceSettlements swaps a character's settlements for s in one transaction.
func (r *Repo) ReplaceSettlements(ctx context.Context, characterID int64, s []entity.Settlement) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM settlements WHERE character_id = ?`), characterID); err != nil {
		return err
	}
	const q = `INSERT INTO settlements (character_id, title, description, img_url, acquired_at) VALUES (?, ?, ?, ?, ?)`
	for i := range s {
		s[i].CharacterID = characterID
		if _, err := tx.ExecContext(ctx, tx.Rebind(q),
			characterID, s[i].Title, s[i].Description, s[i].ImgURL, s[i].AcquiredAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
