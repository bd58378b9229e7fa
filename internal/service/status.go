package service

import (
	"context"
	"strings"

	"github.com/iliyamo/golf-ops/internal/apperr"
	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/statemachine"
)

// TransitionAsset moves one asset along the asset table.  Starters and
// admins only.
func (s *Service) TransitionAsset(ctx context.Context, caller model.Caller, assetID uint64, next model.AssetStatus) (*model.Asset, error) {
	if !caller.Role.Staff() {
		return nil, apperr.Forbidden("only starters and admins can change asset status")
	}
	if !next.Valid() {
		return nil, apperr.Validation("unknown asset status %q", next)
	}
	var asset model.Asset
	err := s.run(ctx, "TransitionAsset", caller, func(ctx context.Context, tx Tx) error {
		st, rows, err := lockAssetStatuses(ctx, tx, []uint64{assetID})
		if err != nil {
			return err
		}
		cur, ok := st[assetID]
		if !ok {
			return apperr.NotFound("asset", assetID)
		}
		if err := applyTransition(statemachine.Assets, "asset", []uint64{assetID}, st,
			move[model.AssetStatus]{From: cur, To: next}, assetUpdater(ctx, tx)); err != nil {
			return err
		}
		asset = rows[assetID]
		asset.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// TransitionCaddy moves a caddy along the caddy table.  A caddy may change
// their own status; starters and admins may change anyone's.  The target
// user must have the caddy role.
func (s *Service) TransitionCaddy(ctx context.Context, caller model.Caller, caddyID uint64, next model.CaddyStatus) (*model.User, error) {
	self := caller.Role == model.RoleCaddy && caller.UserID == caddyID
	if !self && !caller.Role.Staff() {
		return nil, apperr.Forbidden("caddies can only change their own status")
	}
	if !next.Valid() {
		return nil, apperr.Validation("unknown caddy status %q", next)
	}
	var caddy *model.User
	err := s.run(ctx, "TransitionCaddy", caller, func(ctx context.Context, tx Tx) error {
		var err error
		if caddy, err = lockCaddyTarget(ctx, tx, caddyID); err != nil {
			return err
		}
		if err := applyTransition(statemachine.Caddies, "caddy", []uint64{caddyID},
			map[uint64]model.CaddyStatus{caddyID: caddy.CaddyStatus},
			move[model.CaddyStatus]{From: caddy.CaddyStatus, To: next}, caddyUpdater(ctx, tx)); err != nil {
			return err
		}
		caddy.CaddyStatus = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return caddy, nil
}

// OverrideAssetStatus sets an asset to any status without consulting the
// transition table.  Admins only; every override is audited.
func (s *Service) OverrideAssetStatus(ctx context.Context, caller model.Caller, assetID uint64, to model.AssetStatus, reason string) (*model.Asset, error) {
	if caller.Role != model.RoleAdmin {
		return nil, apperr.Forbidden("only admins can override asset status")
	}
	if !to.Valid() {
		return nil, apperr.Validation("unknown asset status %q", to)
	}
	var (
		asset model.Asset
		entry *model.AuditEntry
	)
	err := s.run(ctx, "OverrideAssetStatus", caller, func(ctx context.Context, tx Tx) error {
		_, rows, err := lockAssetStatuses(ctx, tx, []uint64{assetID})
		if err != nil {
			return err
		}
		var ok bool
		if asset, ok = rows[assetID]; !ok {
			return apperr.NotFound("asset", assetID)
		}
		n, err := tx.UpdateAssetStatus(ctx, []uint64{assetID}, nil, to)
		if err != nil {
			return err
		}
		if err := apperr.CheckModified("assets", 1, n); err != nil {
			return err
		}
		entry = overrideEntry(caller, model.AuditOverrideAsset, "asset", assetID, string(asset.Status), string(to), reason)
		asset.Status = to
		return tx.InsertAudit(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	s.publishAudit(ctx, entry)
	return &asset, nil
}

// OverrideCaddyStatus sets a caddy to any status without consulting the
// transition table.  Admins only; every override is audited.
func (s *Service) OverrideCaddyStatus(ctx context.Context, caller model.Caller, caddyID uint64, to model.CaddyStatus, reason string) (*model.User, error) {
	if caller.Role != model.RoleAdmin {
		return nil, apperr.Forbidden("only admins can override caddy status")
	}
	if !to.Valid() {
		return nil, apperr.Validation("unknown caddy status %q", to)
	}
	var (
		caddy *model.User
		entry *model.AuditEntry
	)
	err := s.run(ctx, "OverrideCaddyStatus", caller, func(ctx context.Context, tx Tx) error {
		var err error
		if caddy, err = lockCaddyTarget(ctx, tx, caddyID); err != nil {
			return err
		}
		n, err := tx.UpdateCaddyStatus(ctx, []uint64{caddyID}, nil, to)
		if err != nil {
			return err
		}
		if err := apperr.CheckModified("caddies", 1, n); err != nil {
			return err
		}
		entry = overrideEntry(caller, model.AuditOverrideCaddy, "caddy", caddyID, string(caddy.CaddyStatus), string(to), reason)
		caddy.CaddyStatus = to
		return tx.InsertAudit(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	s.publishAudit(ctx, entry)
	return caddy, nil
}

// CreateAsset adds a new asset to the pool in status available.  Admins
// only.
func (s *Service) CreateAsset(ctx context.Context, caller model.Caller, t model.AssetType, name, description string) (*model.Asset, error) {
	if caller.Role != model.RoleAdmin {
		return nil, apperr.Forbidden("only admins can create assets")
	}
	if !t.Valid() {
		return nil, apperr.Validation("type must be %q or %q", model.AssetGolfCart, model.AssetGolfBag)
	}
	a := &model.Asset{Type: t, Status: model.AssetAvailable}
	if name = strings.TrimSpace(name); name != "" {
		a.Name = &name
	}
	if description = strings.TrimSpace(description); description != "" {
		a.Description = &description
	}
	err := s.run(ctx, "CreateAsset", caller, func(ctx context.Context, tx Tx) error {
		return tx.InsertAsset(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssets returns assets matching f.
func (s *Service) ListAssets(ctx context.Context, caller model.Caller, f AssetFilter) ([]model.Asset, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, apperr.Validation("unknown asset type %q", f.Type)
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("unknown asset status %q", f.Status)
	}
	var out []model.Asset
	err := s.run(ctx, "ListAssets", caller, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListAssets(ctx, f)
		return err
	})
	return out, err
}

// AssetSummary counts assets per type and status.  Every status appears
// in the result, zero when no asset holds it.
func (s *Service) AssetSummary(ctx context.Context, caller model.Caller) (model.AssetSummary, error) {
	sum := model.NewAssetSummary()
	err := s.run(ctx, "AssetSummary", caller, func(ctx context.Context, tx Tx) error {
		counts, err := tx.AssetSummary(ctx)
		if err != nil {
			return err
		}
		for t, byStatus := range counts {
			if _, ok := sum[t]; !ok {
				continue
			}
			for st, n := range byStatus {
				sum[t][st] = n
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func lockCaddyTarget(ctx context.Context, tx Tx, id uint64) (*model.User, error) {
	users, err := tx.LockUsers(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperr.NotFound("user", id)
	}
	if !users[0].IsCaddy() {
		return nil, apperr.Forbidden("user is not a caddy")
	}
	return &users[0], nil
}

func overrideEntry(caller model.Caller, action, entity string, id uint64, from, to, reason string) *model.AuditEntry {
	return &model.AuditEntry{
		ActorID:   caller.UserID,
		ActorRole: caller.Role,
		Action:    action,
		Entity:    entity,
		EntityID:  id,
		From:      from,
		To:        to,
		Detail:    strings.TrimSpace(reason),
	}
}
