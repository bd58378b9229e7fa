package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/queue"
	"github.com/iliyamo/golf-ops/internal/service"
	"github.com/iliyamo/golf-ops/internal/service/memstore"
)

type recorder struct {
	mu      sync.Mutex
	booking []queue.BookingEvent
	audit   []queue.AuditEvent
	fail    bool
}

func (r *recorder) PublishBookingEvent(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.booking = append(r.booking, ev)
	return nil
}

func (r *recorder) PublishAuditEvent(_ context.Context, ev queue.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.audit = append(r.audit, ev)
	return nil
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.booking))
	for i, ev := range r.booking {
		out[i] = ev.Action
	}
	return out
}

type fixture struct {
	st      *memstore.Store
	svc     *service.Service
	events  *recorder
	owner   model.Caller
	starter model.Caller
	admin   model.Caller
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	st := memstore.New()
	rec := &recorder{}
	f := &fixture{
		st:      st,
		events:  rec,
		owner:   model.Caller{UserID: st.AddUser("owner", model.RoleUser, model.CaddyAvailable), Role: model.RoleUser},
		starter: model.Caller{UserID: st.AddUser("starter", model.RoleStarter, model.CaddyAvailable), Role: model.RoleStarter},
		admin:   model.Caller{UserID: st.AddUser("admin", model.RoleAdmin, model.CaddyAvailable), Role: model.RoleAdmin},
	}
	f.svc = service.New(st, append([]service.Option{service.WithPublisher(rec)}, opts...)...)
	return f
}

func (f *fixture) addCaddy(name string) model.Caller {
	return model.Caller{UserID: f.st.AddUser(name, model.RoleCaddy, model.CaddyAvailable), Role: model.RoleCaddy}
}

func (f *fixture) book(t *testing.T, carts, bags int, caddies ...model.Caller) *model.Booking {
	t.Helper()
	ids := make([]uint64, len(caddies))
	for i, c := range caddies {
		ids[i] = c.UserID
	}
	b, err := f.svc.BookSlot(context.Background(), f.owner, service.BookingRequest{
		Date:        time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		TimeSlot:    "07:30",
		CourseType:  model.Course18,
		Players:     4,
		GroupName:   "Saturday four",
		CaddyIDs:    ids,
		GolfCartQty: carts,
		GolfBagQty:  bags,
		TotalPrice:  320000,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) requireAssets(t *testing.T, ids []uint64, want model.AssetStatus) {
	t.Helper()
	for _, id := range ids {
		require.Equal(t, want, f.st.Asset(id).Status, "asset %d", id)
	}
}

func (f *fixture) requireCaddy(t *testing.T, c model.Caller, want model.CaddyStatus) {
	t.Helper()
	require.Equal(t, want, f.st.User(c.UserID).CaddyStatus, "caddy %d", c.UserID)
}

func (f *fixture) stored(t *testing.T, id uint64) model.Booking {
	t.Helper()
	b, ok := f.st.Booking(id)
	require.True(t, ok, "booking %d missing", id)
	return b
}

func (f *fixture) teeDate() time.Time {
	return time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)
}
