package router

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/golf-ops/internal/apperr"
	"github.com/iliyamo/golf-ops/internal/config"
	"github.com/iliyamo/golf-ops/internal/handler"
	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/repository"
	"github.com/iliyamo/golf-ops/internal/service"
	"github.com/iliyamo/golf-ops/internal/service/memstore"
	"github.com/iliyamo/golf-ops/internal/utils"
)

const secret = "router-test-secret"

type fakeUsers struct {
	mu    sync.Mutex
	next  uint64
	users map[uint64]model.User
}

func (f *fakeUsers) Create(_ context.Context, u *model.User, password string, cost int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, v := range f.users {
		if v.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	f.next++
	u.ID, u.PasswordHash = 1000+f.next, hash
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return model.User{}, apperr.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return u, apperr.NotFound("user", id)
	}
	return u, nil
}

type fakeTokens struct {
	mu     sync.Mutex
	owners map[string]uint64
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.owners[hash]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return id, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.owners, hash)
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, id := range f.owners {
		if id == userID {
			delete(f.owners, h)
		}
	}
	return nil
}

type noCaddies struct{}

func (noCaddies) ListCaddies(context.Context, model.CaddyStatus) ([]model.User, error) {
	return []model.User{}, nil
}

type noAudit struct{}

func (noAudit) List(context.Context, string, uint64, int) ([]model.AuditEntry, error) {
	return []model.AuditEntry{}, nil
}

type app struct {
	e      *echo.Echo
	st     *memstore.Store
	tokens *fakeTokens
}

func newApp(t *testing.T) *app {
	t.Helper()
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4}
	st := memstore.New()
	svc := service.New(st)
	users := &fakeUsers{users: map[uint64]model.User{}}
	tokens := &fakeTokens{owners: map[string]uint64{}}

	e := echo.New()
	RegisterRoutes(e, nil)
	Register(e, Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, tokens),
		Bookings: handler.NewBookingHandler(svc),
		Assets:   handler.NewAssetHandler(svc),
		Caddies:  handler.NewCaddyHandler(svc, noCaddies{}),
		Admin:    handler.NewAdminHandler(cfg, users, noAudit{}),
	}, Options{JWTSecret: secret})
	return &app{e: e, st: st, tokens: tokens}
}

func token(t *testing.T, id uint64, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 5)
	require.NoError(t, err)
	return tok.Token
}

func (a *app) call(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	a := newApp(t)
	rec := a.call(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRoundOverHTTP(t *testing.T) {
	a := newApp(t)
	a.st.AddAssets(model.AssetGolfCart, model.AssetAvailable, 2)
	a.st.AddAssets(model.AssetGolfBag, model.AssetAvailable, 2)
	ownerID := a.st.AddUser("owner", model.RoleUser, model.CaddyAvailable)
	caddyID := a.st.AddUser("mina", model.RoleCaddy, model.CaddyAvailable)
	starterID := a.st.AddUser("starter", model.RoleStarter, model.CaddyAvailable)
	owner, caddy, starter := token(t, ownerID, model.RoleUser), token(t, caddyID, model.RoleCaddy), token(t, starterID, model.RoleStarter)

	rec := a.call(t, http.MethodPost, "/v1/bookings", owner, echo.Map{
		"date": "2026-05-02", "time_slot": "07:30", "course_type": "18", "players": 4,
		"group_name": "Sunday four", "caddy_ids": []uint64{caddyID}, "golf_cart_qty": 1, "golf_bag_qty": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[model.Booking](t, rec)
	path := fmt.Sprintf("/v1/bookings/%d", b.ID)
	assert.Equal(t, model.AssetBooked, a.st.Asset(b.GolfCartIDs[0]).Status)

	assert.Equal(t, http.StatusForbidden, a.call(t, http.MethodPost, path+"/start", owner, nil).Code)
	assert.Equal(t, http.StatusOK, a.call(t, http.MethodGet, path, caddy, nil).Code)

	require.Equal(t, http.StatusOK, a.call(t, http.MethodPost, path+"/start", caddy, nil).Code)
	assert.Equal(t, model.AssetInUse, a.st.Asset(b.GolfBagIDs[0]).Status)
	assert.Equal(t, model.CaddyOnDuty, a.st.User(caddyID).CaddyStatus)

	rec = a.call(t, http.MethodPost, path+"/cancel", owner, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", decode[map[string]any](t, rec)["error"])

	require.Equal(t, http.StatusOK, a.call(t, http.MethodPost, path+"/end", caddy, nil).Code)
	rec = a.call(t, http.MethodPost, path+"/release", caddy, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.CaddyAvailable, a.st.User(caddyID).CaddyStatus)
	assert.Equal(t, model.AssetAvailable, a.st.Asset(b.GolfCartIDs[0]).Status)

	rec = a.call(t, http.MethodGet, "/v1/assets/summary", starter, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[model.AssetSummary](t, rec)
	assert.Equal(t, 2, sum[model.AssetGolfCart][model.AssetAvailable])
	assert.Equal(t, 0, sum[model.AssetGolfCart][model.AssetSpare])

	rec = a.call(t, http.MethodGet, "/v1/bookings?status=completed", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["count"])
}

func TestErrorMapping(t *testing.T) {
	a := newApp(t)
	a.st.AddAssets(model.AssetGolfCart, model.AssetAvailable, 1)
	ownerID := a.st.AddUser("owner", model.RoleUser, model.CaddyAvailable)
	owner := token(t, ownerID, model.RoleUser)
	req := echo.Map{"date": "2026-05-02", "time_slot": "07:30", "course_type": "9", "players": 2, "group_name": "pair"}

	req["golf_cart_qty"] = 3
	rec := a.call(t, http.MethodPost, "/v1/bookings", owner, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "insufficient_inventory", body["error"])
	assert.EqualValues(t, 3, body["requested"])
	assert.EqualValues(t, 1, body["available"])

	req["golf_cart_qty"] = 0
	req["caddy_ids"] = []uint64{999}
	rec = a.call(t, http.MethodPost, "/v1/bookings", owner, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, []any{float64(999)}, decode[map[string]any](t, rec)["unavailable"])

	req["caddy_ids"] = nil
	req["date"] = "02/05/2026"
	assert.Equal(t, http.StatusBadRequest, a.call(t, http.MethodPost, "/v1/bookings", owner, req).Code)

	req["date"] = "2026-05-02"
	req["players"] = 5
	rec = a.call(t, http.MethodPost, "/v1/bookings", owner, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "players must be between 1 and 4")

	assert.Equal(t, http.StatusNotFound, a.call(t, http.MethodGet, "/v1/bookings/999", owner, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.call(t, http.MethodGet, "/v1/bookings/abc", owner, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.call(t, http.MethodGet, "/v1/bookings/1", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, a.call(t, http.MethodGet, "/v1/assets", owner, nil).Code)
}

func TestAssetTransitionOverHTTP(t *testing.T) {
	a := newApp(t)
	cart := a.st.AddAsset(model.AssetGolfCart, model.AssetBroken)
	starter := token(t, a.st.AddUser("starter", model.RoleStarter, model.CaddyAvailable), model.RoleStarter)
	admin := token(t, a.st.AddUser("admin", model.RoleAdmin, model.CaddyAvailable), model.RoleAdmin)

	rec := a.call(t, http.MethodPut, fmt.Sprintf("/v1/assets/%d/status/available", cart), starter, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "invalid_transition", body["error"])
	assert.Equal(t, "broken", body["from"])
	assert.Equal(t, "available", body["to"])

	rec = a.call(t, http.MethodPut, fmt.Sprintf("/v1/assets/%d/status/clean", cart), starter, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.call(t, http.MethodPut, fmt.Sprintf("/v1/assets/%d/override", cart), starter, echo.Map{"status": "available"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.call(t, http.MethodPut, fmt.Sprintf("/v1/assets/%d/override", cart), admin, echo.Map{"status": "available", "reason": "inspected"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.AssetAvailable, a.st.Asset(cart).Status)
	require.Len(t, a.st.Audit(), 1)

	rec = a.call(t, http.MethodPost, "/v1/assets", admin, echo.Map{"type": "golfBag", "name": "Bag 7"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.AssetAvailable, decode[model.Asset](t, rec).Status)
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)

	rec := a.call(t, http.MethodPost, "/v1/auth/register", "", echo.Map{"name": "Ana", "email": "Ana@Club.test", "password": "longenough"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[map[string]any](t, rec)
	assert.Equal(t, "user", reg["user"].(map[string]any)["role"])
	assert.NotContains(t, rec.Body.String(), "password_hash")

	rec = a.call(t, http.MethodPost, "/v1/auth/register", "", echo.Map{"name": "Ana", "email": "ana@club.test", "password": "longenough"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = a.call(t, http.MethodPost, "/v1/auth/register", "", echo.Map{"name": "Ana", "email": "x@y.z", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.call(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ana@club.test", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.call(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ana@club.test", "password": "longenough"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[map[string]map[string]any](t, rec)
	refresh := login["refresh"]["token"].(string)
	access := login["access"]["token"].(string)

	rec = a.call(t, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.call(t, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "rotated token must not be reusable")

	rec = a.call(t, http.MethodGet, "/v1/users/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[model.User](t, rec)
	assert.Equal(t, "ana@club.test", me.Email)
	assert.Equal(t, model.RoleUser, me.Role)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Equal(t, http.StatusUnauthorized, a.call(t, http.MethodGet, "/v1/users/me", "", nil).Code)

	rec = a.call(t, http.MethodPost, "/v1/auth/logout", access, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, a.tokens.owners)
}

func TestAdminCreatesCaddy(t *testing.T) {
	a := newApp(t)
	admin := token(t, a.st.AddUser("admin", model.RoleAdmin, model.CaddyAvailable), model.RoleAdmin)
	user := token(t, a.st.AddUser("u", model.RoleUser, model.CaddyAvailable), model.RoleUser)
	body := echo.Map{"name": "Mina", "email": "mina@club.test", "password": "longenough", "role": "caddy"}

	assert.Equal(t, http.StatusForbidden, a.call(t, http.MethodPost, "/v1/users", user, body).Code)
	rec := a.call(t, http.MethodPost, "/v1/users", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	u := decode[model.User](t, rec)
	assert.Equal(t, model.RoleCaddy, u.Role)
	assert.Equal(t, model.CaddyAvailable, u.CaddyStatus)

	body["email"], body["role"] = "x@club.test", "owner"
	assert.Equal(t, http.StatusBadRequest, a.call(t, http.MethodPost, "/v1/users", admin, body).Code)
}
