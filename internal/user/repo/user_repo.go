package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/maplewind/maplewind-api/internal/user/entity"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrConflict = errors.New("user already exists")
)

const userColumns = `id, username, name, hashed_password, kakao_id, student_id, nickname,
	phone_number, birthdate, gender, refresh_token_hash, refresh_token_expires_at`

// UserRepo provides data access for the users table using sqlx. Queries use
// `?` placeholders and are rebound for the connected driver.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row, including its refresh slot when already set,
// and stores the generated id on u.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (username, name, hashed_password, kakao_id, student_id, nickname,
		phone_number, birthdate, gender, refresh_token_hash, refresh_token_expires_at)
	VALUES (:username, :name, :hashed_password, :kakao_id, :student_id, :nickname,
		:phone_number, :birthdate, :gender, :refresh_token_hash, :refresh_token_expires_at)
	RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, q, u)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return mapErr(err)
		}
		return errors.New("no id returned")
	}
	return rows.Scan(&u.ID)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *UserRepo) GetByKakaoID(ctx context.Context, kakaoID int64) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE kakao_id = ?`, kakaoID)
}

func (r *UserRepo) GetByPhoneNumber(ctx context.Context, phone string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE phone_number = ?`, phone)
}

// GetByRefreshDigest looks up the user currently holding the given refresh digest.
func (r *UserRepo) GetByRefreshDigest(ctx context.Context, digest string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE refresh_token_hash = ?`, digest)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, r.db.Rebind(q), arg); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// SetRefreshToken overwrites the refresh slot unconditionally.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id int64, digest string, expiresAt time.Time) error {
	const q = `UPDATE users SET refresh_token_hash = ?, refresh_token_expires_at = ? WHERE id = ?`
	return r.execOne(ctx, q, digest, expiresAt.UTC(), id)
}

// SwapRefreshToken replaces the refresh slot only if it still holds oldDigest.
// It reports false when another writer got there first.
func (r *UserRepo) SwapRefreshToken(ctx context.Context, id int64, oldDigest, newDigest string, expiresAt time.Time) (bool, error) {
	const q = `UPDATE users SET refresh_token_hash = ?, refresh_token_expires_at = ?
		WHERE id = ? AND refresh_token_hash = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), newDigest, expiresAt.UTC(), id, oldDigest)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearRefreshToken empties the refresh slot. Clearing an empty slot is not an error.
func (r *UserRepo) ClearRefreshToken(ctx context.Context, id int64) error {
	const q = `UPDATE users SET refresh_token_hash = NULL, refresh_token_expires_at = NULL WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q), id)
	return mapErr(err)
}

// LinkKakao writes the Kakao id onto an existing account.
func (r *UserRepo) LinkKakao(ctx context.Context, id, kakaoID int64) error {
	return r.execOne(ctx, `UPDATE users SET kakao_id = ? WHERE id = ?`, kakaoID, id)
}

// UpdatePassword replaces the stored password digest.
func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, digest string) error {
	return r.execOne(ctx, `UPDATE users SET hashed_password = ? WHERE id = ?`, digest, id)
}

// Delete removes the user row; owned rows go with it through ON DELETE CASCADE.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = ?`, id)
}

func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
	}
	return err
}
