package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/service"
)

const assetColumns = `id, type, status, name, description, created_at, updated_at`

// AssetRepo reads and writes the assets table.
type AssetRepo struct {
	db *sql.DB
}

// NewAssetRepo constructs an AssetRepo with the given DB handle.
func NewAssetRepo(db *sql.DB) *AssetRepo {
	return &AssetRepo{db: db}
}

// LockAvailableTx selects up to limit available assets of type t and
// locks them.  Rows already locked by another transaction are skipped so
// concurrent reservations always see disjoint sets.
func (r *AssetRepo) LockAvailableTx(ctx context.Context, tx *sql.Tx, t model.AssetType, limit int) ([]uint64, error) {
	const q = `SELECT id FROM assets
	           WHERE type = ? AND status = 'available'
	           ORDER BY id
	           LIMIT ?
	           FOR UPDATE SKIP LOCKED`
	rows, err := tx.QueryContext(ctx, q, string(t), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uint64, 0, limit)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LockByIDsTx loads and locks the given assets.  Missing ids are simply
// absent from the result.
func (r *AssetRepo) LockByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.Asset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT ` + assetColumns + ` FROM assets WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssets(rows)
}

// UpdateStatusTx sets status = to on ids, restricted to rows whose status
// is in from when from is non-empty.  It returns the matched row count.
func (r *AssetRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, ids []uint64, from []model.AssetStatus, to model.AssetStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := `UPDATE assets SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id IN (` + placeholders(len(ids)) + `)`
	args := append([]any{string(to)}, idArgs(ids)...)
	if len(from) > 0 {
		q += ` AND status IN (` + placeholders(len(from)) + `)`
		args = append(args, stringArgs(from)...)
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateTx inserts a. On success the asset's ID is populated.
func (r *AssetRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Asset) error {
	const q = `INSERT INTO assets (type, status, name, description) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, string(a.Type), string(a.Status), a.Name, a.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// ListTx returns the assets matching f ordered by id.
func (r *AssetRepo) ListTx(ctx context.Context, tx *sql.Tx, f service.AssetFilter) ([]model.Asset, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	q := `SELECT ` + assetColumns + ` FROM assets`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out, err := scanAssets(rows)
	if out == nil && err == nil {
		out = []model.Asset{}
	}
	return out, err
}

// SummaryTx counts assets grouped by type and status.
func (r *AssetRepo) SummaryTx(ctx context.Context, tx *sql.Tx) (model.AssetSummary, error) {
	const q = `SELECT type, status, COUNT(*) FROM assets GROUP BY type, status`
	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sum := model.NewAssetSummary()
	for rows.Next() {
		var (
			t  model.AssetType
			st model.AssetStatus
			n  int
		)
		if err := rows.Scan(&t, &st, &n); err != nil {
			return nil, err
		}
		if _, ok := sum[t]; !ok {
			return nil, fmt.Errorf("unknown asset type %q in assets table", t)
		}
		sum[t][st] = n
	}
	return sum, rows.Err()
}

func scanAssets(rows *sql.Rows) ([]model.Asset, error) {
	var out []model.Asset
	for rows.Next() {
		var (
			a    model.Asset
			name sql.NullString
			desc sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Type, &a.Status, &name, &desc, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if name.Valid {
			a.Name = &name.String
		}
		if desc.Valid {
			a.Description = &desc.String
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
