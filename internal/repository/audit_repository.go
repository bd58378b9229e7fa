package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/golf-ops/internal/model"
)

// AuditRepo appends to and reads the audit_log table.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// InsertTx appends e within tx and sets its ID.
func (r *AuditRepo) InsertTx(ctx context.Context, tx *sql.Tx, e *model.AuditEntry) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO audit_log (actor_id, actor_role, action, entity, entity_id, from_value, to_value, detail)
		 VALUES (?,?,?,?,?,?,?,?)`,
		e.ActorID, string(e.ActorRole), e.Action, e.Entity, e.EntityID, e.From, e.To, e.Detail)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// List returns the newest entries first, optionally narrowed to one
// entity.  A limit outside 1..500 falls back to 100.
func (r *AuditRepo) List(ctx context.Context, entity string, entityID uint64, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id, actor_id, actor_role, action, entity, entity_id, from_value, to_value, detail, created_at FROM audit_log`
	var args []any
	if entity != "" {
		q += ` WHERE entity=?`
		args = append(args, entity)
		if entityID != 0 {
			q += ` AND entity_id=?`
			args = append(args, entityID)
		}
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AuditEntry{}
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorRole, &e.Action, &e.Entity, &e.EntityID, &e.From, &e.To, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
