// Package memstore is an in-memory service.Store.  Transactions are
// serialised by a mutex and rolled back by restoring a snapshot, which is
// enough to exercise the lifecycle rules without a database.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/iliyamo/golf-ops/internal/apperr"
	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/service"
)

// Store holds assets, users, bookings and audit entries in maps.
type Store struct {
	mu    sync.Mutex
	state state

	// BeforeUpdate, when set, runs inside the transaction right before
	// each guarded status update.  Tests use it to play a concurrent
	// writer through Tx.SetAssetStatus and Tx.SetCaddyStatus.
	BeforeUpdate func(op string, tx *Tx)
}

type state struct {
	assets   map[uint64]model.Asset
	users    map[uint64]model.User
	bookings map[uint64]model.Booking
	audit    []model.AuditEntry
	nextID   uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{state: state{
		assets:   map[uint64]model.Asset{},
		users:    map[uint64]model.User{},
		bookings: map[uint64]model.Booking{},
	}}
}

var _ service.Store = (*Store)(nil)

// WithTx runs fn against the store and restores the previous state when
// fn fails or panics.
func (s *Store) WithTx(ctx context.Context, fn func(tx service.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state = snap
			panic(p)
		}
		if err != nil {
			s.state = snap
		}
	}()
	return fn(&Tx{s: s})
}

func (st state) clone() state {
	c := state{
		assets:   make(map[uint64]model.Asset, len(st.assets)),
		users:    make(map[uint64]model.User, len(st.users)),
		bookings: make(map[uint64]model.Booking, len(st.bookings)),
		audit:    slices.Clone(st.audit),
		nextID:   st.nextID,
	}
	for k, v := range st.assets {
		c.assets[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.bookings {
		c.bookings[k] = cloneBooking(v)
	}
	return c
}

func cloneBooking(b model.Booking) model.Booking {
	b.CaddyIDs = slices.Clone(b.CaddyIDs)
	b.GolfCartIDs = slices.Clone(b.GolfCartIDs)
	b.GolfBagIDs = slices.Clone(b.GolfBagIDs)
	return b
}

func (s *Store) id() uint64 {
	s.state.nextID++
	return s.state.nextID
}

// AddAsset seeds an asset and returns its id.
func (s *Store) AddAsset(t model.AssetType, status model.AssetStatus) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	now := time.Now()
	s.state.assets[id] = model.Asset{ID: id, Type: t, Status: status, CreatedAt: now, UpdatedAt: now}
	return id
}

// AddAssets seeds n assets of the same type and status.
func (s *Store) AddAssets(t model.AssetType, status model.AssetStatus, n int) []uint64 {
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = s.AddAsset(t, status)
	}
	return ids
}

// AddUser seeds a user and returns its id.
func (s *Store) AddUser(name string, role model.Role, status model.CaddyStatus) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.state.users[id] = model.User{ID: id, Name: name, Email: fmt.Sprintf("%s@example.com", name), Role: role, CaddyStatus: status}
	return id
}

// Asset returns a copy of the stored asset.
func (s *Store) Asset(id uint64) model.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.assets[id]
}

// User returns a copy of the stored user.
func (s *Store) User(id uint64) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.users[id]
}

// Booking returns a copy of the stored booking.
func (s *Store) Booking(id uint64) (model.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.state.bookings[id]
	return cloneBooking(b), ok
}

// Audit returns the audit entries in insertion order.
func (s *Store) Audit() []model.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.audit)
}

// Counts returns the number of assets of type t per status.
func (s *Store) Counts(t model.AssetType) map[model.AssetStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[model.AssetStatus]int{}
	for _, a := range s.state.assets {
		if a.Type == t {
			out[a.Status]++
		}
	}
	return out
}

// Tx is the transaction handle passed to WithTx callbacks.
type Tx struct {
	s *Store
}

var _ service.Tx = (*Tx)(nil)

func (tx *Tx) hook(op string) {
	if tx.s.BeforeUpdate != nil {
		tx.s.BeforeUpdate(op, tx)
	}
}

// SetAssetStatus writes a status directly.  Meant for BeforeUpdate hooks.
func (tx *Tx) SetAssetStatus(id uint64, st model.AssetStatus) {
	a := tx.s.state.assets[id]
	a.Status = st
	tx.s.state.assets[id] = a
}

// SetCaddyStatus writes a caddy status directly.  Meant for BeforeUpdate
// hooks.
func (tx *Tx) SetCaddyStatus(id uint64, st model.CaddyStatus) {
	u := tx.s.state.users[id]
	u.CaddyStatus = st
	tx.s.state.users[id] = u
}

func sortedIDs[V any](m map[uint64]V) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (tx *Tx) LockAvailableAssets(_ context.Context, t model.AssetType, limit int) ([]uint64, error) {
	var out []uint64
	for _, id := range sortedIDs(tx.s.state.assets) {
		if len(out) == limit {
			break
		}
		a := tx.s.state.assets[id]
		if a.Type == t && a.Status == model.AssetAvailable {
			out = append(out, id)
		}
	}
	return out, nil
}

func (tx *Tx) LockAssets(_ context.Context, ids []uint64) ([]model.Asset, error) {
	var out []model.Asset
	for _, id := range ids {
		if a, ok := tx.s.state.assets[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (tx *Tx) UpdateAssetStatus(_ context.Context, ids []uint64, from []model.AssetStatus, to model.AssetStatus) (int64, error) {
	tx.hook("UpdateAssetStatus")
	var n int64
	for _, id := range ids {
		a, ok := tx.s.state.assets[id]
		if !ok || (len(from) > 0 && !slices.Contains(from, a.Status)) {
			continue
		}
		a.Status = to
		a.UpdatedAt = time.Now()
		tx.s.state.assets[id] = a
		n++
	}
	return n, nil
}

func (tx *Tx) InsertAsset(_ context.Context, a *model.Asset) error {
	a.ID = tx.s.id()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	tx.s.state.assets[a.ID] = *a
	return nil
}

func (tx *Tx) ListAssets(_ context.Context, f service.AssetFilter) ([]model.Asset, error) {
	out := []model.Asset{}
	for _, id := range sortedIDs(tx.s.state.assets) {
		a := tx.s.state.assets[id]
		if (f.Type == "" || a.Type == f.Type) && (f.Status == "" || a.Status == f.Status) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (tx *Tx) AssetSummary(_ context.Context) (model.AssetSummary, error) {
	sum := model.NewAssetSummary()
	for _, a := range tx.s.state.assets {
		sum[a.Type][a.Status]++
	}
	return sum, nil
}

func (tx *Tx) LockAvailableCaddies(_ context.Context, ids []uint64) ([]uint64, error) {
	var out []uint64
	for _, id := range ids {
		u, ok := tx.s.state.users[id]
		if ok && u.Role == model.RoleCaddy && u.CaddyStatus == model.CaddyAvailable {
			out = append(out, id)
		}
	}
	return out, nil
}

func (tx *Tx) LockUsers(_ context.Context, ids []uint64) ([]model.User, error) {
	var out []model.User
	for _, id := range ids {
		if u, ok := tx.s.state.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (tx *Tx) UpdateCaddyStatus(_ context.Context, ids []uint64, from []model.CaddyStatus, to model.CaddyStatus) (int64, error) {
	tx.hook("UpdateCaddyStatus")
	var n int64
	for _, id := range ids {
		u, ok := tx.s.state.users[id]
		if !ok || u.Role != model.RoleCaddy || (len(from) > 0 && !slices.Contains(from, u.CaddyStatus)) {
			continue
		}
		u.CaddyStatus = to
		tx.s.state.users[id] = u
		n++
	}
	return n, nil
}

func (tx *Tx) CreateBooking(_ context.Context, b *model.Booking) error {
	b.ID = tx.s.id()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	tx.s.state.bookings[b.ID] = cloneBooking(*b)
	return nil
}

func (tx *Tx) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return tx.LockBooking(ctx, id)
}

func (tx *Tx) LockBooking(_ context.Context, id uint64) (*model.Booking, error) {
	b, ok := tx.s.state.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking", id)
	}
	c := cloneBooking(b)
	return &c, nil
}

func (tx *Tx) UpdateBookingStatus(_ context.Context, id uint64, from, to model.BookingStatus) (int64, error) {
	b, ok := tx.s.state.bookings[id]
	if !ok || b.Status != from {
		return 0, nil
	}
	b.Status = to
	tx.s.state.bookings[id] = b
	return 1, nil
}

func (tx *Tx) ClearBookingResources(_ context.Context, id uint64) error {
	b, ok := tx.s.state.bookings[id]
	if !ok {
		return apperr.NotFound("booking", id)
	}
	b.CaddyIDs, b.GolfCartIDs, b.GolfBagIDs = []uint64{}, []uint64{}, []uint64{}
	tx.s.state.bookings[id] = b
	return nil
}

func (tx *Tx) ReplaceBookingAsset(_ context.Context, bookingID, oldID, newID uint64) (int64, error) {
	b, ok := tx.s.state.bookings[bookingID]
	if !ok {
		return 0, nil
	}
	var n int64
	for _, list := range [][]uint64{b.GolfCartIDs, b.GolfBagIDs} {
		for i, id := range list {
			if id == oldID {
				list[i] = newID
				n++
			}
		}
	}
	tx.s.state.bookings[bookingID] = b
	return n, nil
}

func (tx *Tx) DeleteBooking(_ context.Context, id uint64) (int64, error) {
	if _, ok := tx.s.state.bookings[id]; !ok {
		return 0, nil
	}
	delete(tx.s.state.bookings, id)
	return 1, nil
}

func (tx *Tx) UpdateBookingTimeSlot(_ context.Context, id uint64, slot string) error {
	b, ok := tx.s.state.bookings[id]
	if !ok {
		return apperr.NotFound("booking", id)
	}
	b.TimeSlot = slot
	tx.s.state.bookings[id] = b
	return nil
}

func (tx *Tx) ListBookings(_ context.Context, f service.BookingFilter) ([]model.Booking, error) {
	out := []model.Booking{}
	for _, id := range sortedIDs(tx.s.state.bookings) {
		b := tx.s.state.bookings[id]
		switch {
		case f.UserID != 0 && b.UserID != f.UserID:
		case f.CaddyID != 0 && !b.HasCaddy(f.CaddyID):
		case f.Status != "" && b.Status != f.Status:
		case !f.Date.IsZero() && !sameDay(b.Date, f.Date):
		default:
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (tx *Tx) InsertAudit(_ context.Context, e *model.AuditEntry) error {
	e.ID = uint64(len(tx.s.state.audit) + 1)
	e.CreatedAt = time.Now()
	tx.s.state.audit = append(tx.s.state.audit, *e)
	return nil
}
