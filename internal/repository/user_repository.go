package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/golf-ops/internal/apperr"
	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/utils"
)

const userColumns = `id, name, email, password_hash, role, caddy_status, created_at, updated_at`

// UserRepo reads and writes the users table.  Caddies are users with the
// caddy role, so caddy status writes also go through this repository.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create hashes password with the given bcrypt cost and inserts u.  On
// success u.ID is set and u.PasswordHash holds the stored hash.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Name = strings.TrimSpace(u.Name)
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.CaddyStatus == "" {
		u.CaddyStatus = model.CaddyAvailable
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, caddy_status) VALUES (?,?,?,?,?)",
		u.Name, u.Email, hash, string(u.Role), string(u.CaddyStatus))
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.PasswordHash = hash
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return u, apperr.ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return u, apperr.NotFound("user", id)
	}
	return u, err
}

// ListCaddies returns caddy accounts, optionally restricted to status.
func (r *UserRepo) ListCaddies(ctx context.Context, status model.CaddyStatus) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users WHERE role='caddy'"
	var args []any
	if status != "" {
		q += " AND caddy_status=?"
		args = append(args, string(status))
	}
	q += " ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// LockAvailableCaddiesTx returns the ids among ids that belong to caddies
// currently available, locking those rows.
func (r *UserRepo) LockAvailableCaddiesTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := "SELECT id FROM users WHERE id IN (" + placeholders(len(ids)) + ") AND role='caddy' AND caddy_status='available' ORDER BY id FOR UPDATE"
	rows, err := tx.QueryContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// LockByIDsTx loads and locks the given users.
func (r *UserRepo) LockByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := "SELECT " + userColumns + " FROM users WHERE id IN (" + placeholders(len(ids)) + ") ORDER BY id FOR UPDATE"
	rows, err := tx.QueryContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateCaddyStatusTx sets caddy_status on caddy rows in ids, guarded by
// from when non-empty.  It returns the matched row count.
func (r *UserRepo) UpdateCaddyStatusTx(ctx context.Context, tx *sql.Tx, ids []uint64, from []model.CaddyStatus, to model.CaddyStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := "UPDATE users SET caddy_status=?, updated_at=CURRENT_TIMESTAMP WHERE role='caddy' AND id IN (" + placeholders(len(ids)) + ")"
	args := append([]any{string(to)}, idArgs(ids)...)
	if len(from) > 0 {
		q += " AND caddy_status IN (" + placeholders(len(from)) + ")"
		args = append(args, stringArgs(from)...)
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CaddyStatus, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
