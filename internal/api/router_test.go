package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hellscape/internal/api"
	"hellscape/internal/game"
	"hellscape/internal/game/spatial"
	"hellscape/internal/session"
)

var unitX = spatial.V(1, 0)

func itoa(id int32) string {
	return strconv.Itoa(int(id))
}

type testRig struct {
	engine   *game.Engine
	sessions *session.Manager
	server   *httptest.Server
}

func newTestRig(t *testing.T, adminToken string) *testRig {
	t.Helper()

	engine := game.NewEngine(game.EngineConfig{Seed: 7})
	engine.Init()
	sessions := session.NewManager(engine, session.Options{
		Spawn:      game.DefaultPlayerSpawn,
		MaxPlayers: 2,
		Logger:     zerolog.Nop(),
	})

	router := api.NewRouter(api.RouterConfig{
		Engine:         engine,
		Sessions:       sessions,
		Admin:          api.NewAdminAuth(adminToken, zerolog.Nop()),
		Logger:         zerolog.Nop(),
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return &testRig{engine: engine, sessions: sessions, server: ts}
}

func (r *testRig) do(t *testing.T, method, path string, body interface{}, header ...string) *http.Response {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, r.server.URL+path, rd)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (r *testRig) join(t *testing.T) session.Session {
	t.Helper()
	resp := r.do(t, http.MethodPost, "/api/session/join", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[session.Session](t, resp)
}

func TestNewRouterHasNoSideEffects(t *testing.T) {
	engine := game.NewEngine(game.EngineConfig{Seed: 1})
	router := api.NewRouter(api.RouterConfig{
		Engine:   engine,
		Sessions: session.NewManager(engine, session.Options{}),
	})
	if router == nil {
		t.Fatal("Router should not be nil")
	}
}

func TestHealthAndStatus(t *testing.T) {
	rig := newTestRig(t, "")
	rig.engine.Tick(rig.engine.DeltaTime())

	resp := rig.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = rig.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[game.Status](t, resp)
	assert.Equal(t, int64(1), status.Tick)
	assert.Equal(t, 0, status.Players)
	assert.Positive(t, status.Grid.TotalTiles)
}

func TestJoinInputLeave(t *testing.T) {
	rig := newTestRig(t, "")
	s := rig.join(t)
	assert.NotEmpty(t, s.ID)

	state, ok := rig.engine.TryGetActorState(s.ActorID)
	require.True(t, ok)
	assert.Equal(t, game.DefaultPlayerSpawn, state.Pos)

	resp := rig.do(t, http.MethodPost, "/api/session/"+s.ID+"/input", game.InputCommand{Move: unitX})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	for i := 0; i < 10; i++ {
		rig.engine.Tick(rig.engine.DeltaTime())
	}
	moved, ok := rig.engine.TryGetActorState(s.ActorID)
	require.True(t, ok)
	assert.Greater(t, moved.Pos.X, state.Pos.X)

	resp = rig.do(t, http.MethodGet, "/api/session/"+s.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = rig.do(t, http.MethodDelete, "/api/session/"+s.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, ok = rig.engine.TryGetActorState(s.ActorID)
	assert.False(t, ok)

	resp = rig.do(t, http.MethodDelete, "/api/session/"+s.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBinaryInput(t *testing.T) {
	rig := newTestRig(t, "")
	s := rig.join(t)

	frame := game.EncodeInput(game.InputCommand{Tick: 1, Move: unitX})
	resp := rig.do(t, http.MethodPost, "/api/session/"+s.ID+"/input", frame, "Content-Type", "application/octet-stream")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = rig.do(t, http.MethodPost, "/api/session/"+s.ID+"/input", frame[:5], "Content-Type", "application/octet-stream")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = rig.do(t, http.MethodPost, "/api/session/nope/input", frame, "Content-Type", "application/octet-stream")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJoinServerFull(t *testing.T) {
	rig := newTestRig(t, "")
	rig.join(t)
	rig.join(t)

	resp := rig.do(t, http.MethodPost, "/api/session/join", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestInventoryEndpoints(t *testing.T) {
	rig := newTestRig(t, "")
	s := rig.join(t)
	base := "/api/session/" + s.ID + "/inventory"

	resp := rig.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inv := decode[game.InventoryState](t, resp)
	assert.Equal(t, game.WeaponBasePistol, inv.Slots[0].Type)

	resp = rig.do(t, http.MethodPost, base+"/pickup", map[string]interface{}{"weapon": "rifle", "ammo": 30})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	picked := decode[game.PickupResult](t, resp)
	assert.Equal(t, game.WeaponRifle, picked.Inventory.Slots[1].Type)
	assert.False(t, picked.Dropped)

	resp = rig.do(t, http.MethodPost, base+"/pickup", map[string]interface{}{"weapon": "laser", "ammo": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = rig.do(t, http.MethodPut, base+"/active", map[string]int{"index": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[game.InventoryState](t, resp).Active)

	resp = rig.do(t, http.MethodPost, base+"/fire", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fired := decode[game.ConsumeResult](t, resp)
	assert.True(t, fired.Fired)
	assert.Equal(t, 29, fired.Next.Slots[1].Ammo)

	resp = rig.do(t, http.MethodGet, "/api/session/unknown/inventory", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSnapshotEndpoint(t *testing.T) {
	rig := newTestRig(t, "")

	resp := rig.do(t, http.MethodGet, "/api/snapshot", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	s := rig.join(t)
	rig.engine.Tick(rig.engine.DeltaTime())

	resp = rig.do(t, http.MethodGet, "/api/snapshot", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	snap, err := game.DecodeSnapshot(body)
	require.NoError(t, err)
	assert.Equal(t, int32(1), snap.Tick)
	require.Len(t, snap.Actors, 1)
	assert.Equal(t, s.ActorID, snap.Actors[0].ID)
}

func TestFramePNG(t *testing.T) {
	rig := newTestRig(t, "")
	rig.join(t)
	rig.engine.SpawnEnemyAt(game.DefaultPlayerSpawn.Add(unitX.Scale(3)))
	rig.engine.Tick(rig.engine.DeltaTime())

	resp := rig.do(t, http.MethodGet, "/api/debug/frame.png", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")), "body should be a PNG")
}

func TestLeaderboardAndWeapons(t *testing.T) {
	rig := newTestRig(t, "")
	rig.join(t)

	resp := rig.do(t, http.MethodGet, "/api/leaderboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := decode[struct {
		Score   int `json:"score"`
		Players []struct {
			ActorID int32 `json:"actorId"`
			Kills   int   `json:"kills"`
		} `json:"players"`
	}](t, resp)
	assert.Equal(t, 0, board.Score)
	assert.Len(t, board.Players, 1)

	resp = rig.do(t, http.MethodGet, "/api/weapons", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	weapons := decode[[]game.Weapon](t, resp)
	assert.Len(t, weapons, len(game.Weapons))
	assert.Equal(t, "none", weapons[0].ID)
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	rig := newTestRig(t, "")

	resp := rig.do(t, http.MethodPost, "/api/admin/enemies", map[string]int{"count": 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = rig.do(t, http.MethodPost, "/api/admin/login", map[string]string{"token": ""})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminBearerToken(t *testing.T) {
	rig := newTestRig(t, "s3cret")
	before := rig.engine.Status().Enemies

	resp := rig.do(t, http.MethodPost, "/api/admin/enemies", map[string]int{"count": 3})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = rig.do(t, http.MethodPost, "/api/admin/enemies", map[string]int{"count": 3}, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = rig.do(t, http.MethodPost, "/api/admin/enemies", map[string]int{"count": 3}, "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	spawned := decode[struct {
		IDs []int32 `json:"ids"`
	}](t, resp)
	require.Len(t, spawned.IDs, 3)
	assert.Equal(t, before+3, rig.engine.Status().Enemies)

	id := spawned.IDs[0]
	resp = rig.do(t, http.MethodPut, "/api/admin/actors/"+itoa(id)+"/hp", map[string]int{"hp": 5}, "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state, ok := rig.engine.TryGetActorState(id)
	require.True(t, ok)
	assert.Equal(t, int16(5), state.HP)

	resp = rig.do(t, http.MethodDelete, "/api/admin/enemies/"+itoa(id), nil, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = rig.do(t, http.MethodDelete, "/api/admin/enemies/"+itoa(id), nil, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = rig.do(t, http.MethodDelete, "/api/admin/enemies/abc", nil, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminCookieLogin(t *testing.T) {
	rig := newTestRig(t, "s3cret")

	resp := rig.do(t, http.MethodPost, "/api/admin/login", map[string]string{"token": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = rig.do(t, http.MethodPost, "/api/admin/login", map[string]string{"token": "s3cret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == api.AdminCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	resp = rig.do(t, http.MethodGet, "/api/admin/sessions", nil, "Cookie", cookie.Name+"="+cookie.Value)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// tampered signature
	resp = rig.do(t, http.MethodGet, "/api/admin/sessions", nil, "Cookie", cookie.Name+"="+cookie.Value[:len(cookie.Value)-4])
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = rig.do(t, http.MethodPost, "/api/admin/logout", nil, "Cookie", cookie.Name+"="+cookie.Value)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = rig.do(t, http.MethodGet, "/api/admin/sessions", nil, "Cookie", cookie.Name+"="+cookie.Value)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
