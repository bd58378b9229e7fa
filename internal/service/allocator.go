package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/golf-ops/internal/apperr"
	"github.com/iliyamo/golf-ops/internal/model"
)

// ReserveAssets claims quantity available assets of type t inside tx and
// marks them booked.  The ids are selected with row locks that skip rows
// held by other transactions, so two concurrent reservations never claim
// the same asset.  A short pool fails with an InventoryError and leaves
// every asset untouched.
func ReserveAssets(ctx context.Context, tx Tx, t model.AssetType, quantity int) ([]uint64, error) {
	if !t.Valid() {
		return nil, apperr.Validation("unknown asset type %q", t)
	}
	if quantity < 0 {
		return nil, apperr.Validation("%s quantity must not be negative", t)
	}
	if quantity == 0 {
		return []uint64{}, nil
	}
	ids, err := tx.LockAvailableAssets(ctx, t, quantity)
	if err != nil {
		return nil, fmt.Errorf("select available %s: %w", t, err)
	}
	if len(ids) < quantity {
		return nil, &apperr.InventoryError{Type: string(t), Requested: quantity, Available: len(ids)}
	}
	n, err := tx.UpdateAssetStatus(ctx, ids, []model.AssetStatus{model.AssetAvailable}, model.AssetBooked)
	if err != nil {
		return nil, fmt.Errorf("book %s: %w", t, err)
	}
	if err := apperr.CheckModified("assets", len(ids), n); err != nil {
		return nil, err
	}
	return ids, nil
}

// ReserveCaddies marks every requested caddy booked.  Duplicates are
// collapsed, keeping first-occurrence order.  If any id is not an
// available caddy nothing is written and the unmatched ids are reported.
func ReserveCaddies(ctx context.Context, tx Tx, ids []uint64) ([]uint64, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []uint64{}, nil
	}
	matched, err := tx.LockAvailableCaddies(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("select available caddies: %w", err)
	}
	if len(matched) < len(ids) {
		var missing []uint64
		for _, id := range ids {
			if !contains(matched, id) {
				missing = append(missing, id)
			}
		}
		return nil, &apperr.UnavailableError{IDs: missing}
	}
	n, err := tx.UpdateCaddyStatus(ctx, ids, []model.CaddyStatus{model.CaddyAvailable}, model.CaddyBooked)
	if err != nil {
		return nil, fmt.Errorf("book caddies: %w", err)
	}
	if err := apperr.CheckModified("caddies", len(ids), n); err != nil {
		return nil, err
	}
	return ids, nil
}

// lockAssetStatuses locks ids and indexes their current status.
func lockAssetStatuses(ctx context.Context, tx Tx, ids []uint64) (map[uint64]model.AssetStatus, map[uint64]model.Asset, error) {
	st := make(map[uint64]model.AssetStatus, len(ids))
	rows := make(map[uint64]model.Asset, len(ids))
	if len(ids) == 0 {
		return st, rows, nil
	}
	assets, err := tx.LockAssets(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("lock assets: %w", err)
	}
	for _, a := range assets {
		st[a.ID] = a.Status
		rows[a.ID] = a
	}
	return st, rows, nil
}

// lockCaddyStatuses locks ids and indexes the caddy status of those that
// are caddies.  Users with any other role are omitted.
func lockCaddyStatuses(ctx context.Context, tx Tx, ids []uint64) (map[uint64]model.CaddyStatus, error) {
	st := make(map[uint64]model.CaddyStatus, len(ids))
	if len(ids) == 0 {
		return st, nil
	}
	users, err := tx.LockUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock caddies: %w", err)
	}
	for _, u := range users {
		if u.IsCaddy() {
			st[u.ID] = u.CaddyStatus
		}
	}
	return st, nil
}

func assetUpdater(ctx context.Context, tx Tx) func([]uint64, []model.AssetStatus, model.AssetStatus) (int64, error) {
	return func(ids []uint64, from []model.AssetStatus, to model.AssetStatus) (int64, error) {
		return tx.UpdateAssetStatus(ctx, ids, from, to)
	}
}

func caddyUpdater(ctx context.Context, tx Tx) func([]uint64, []model.CaddyStatus, model.CaddyStatus) (int64, error) {
	return func(ids []uint64, from []model.CaddyStatus, to model.CaddyStatus) (int64, error) {
		return tx.UpdateCaddyStatus(ctx, ids, from, to)
	}
}
