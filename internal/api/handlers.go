package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hellscape/internal/game"
	"hellscape/internal/session"
)

// maxSpawnBatch caps a single admin spawn request
const maxSpawnBatch = 64

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"tick":   h.engine.Status().Tick,
	})
}

func (h *routerHandlers) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Status())
}

func (h *routerHandlers) handleGetActors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"players": h.engine.PlayerStates(),
		"enemies": h.engine.EnemyStates(),
	})
}

// handleGetSnapshot serves the latest published frame in the binary
// snapshot encoding.
func (h *routerHandlers) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	frame, ok := h.engine.LatestFrame()
	if !ok {
		writeError(w, "No frame published yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Frame-Sequence", strconv.FormatUint(frame.Sequence, 10))
	w.Write(game.EncodeSnapshot(frame.World))
}

type leaderboardEntry struct {
	ActorID int32 `json:"actorId"`
	Kills   int   `json:"kills"`
	Alive   bool  `json:"alive"`
	HP      int16 `json:"hp"`
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	players := h.engine.PlayerStates()

	entries := make([]leaderboardEntry, 0, len(players))
	for _, p := range players {
		kills, ok := h.engine.Kills(p.ID)
		if !ok {
			continue
		}
		entries = append(entries, leaderboardEntry{ActorID: p.ID, Kills: kills, Alive: p.Alive, HP: p.HP})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Kills != entries[j].Kills {
			return entries[i].Kills > entries[j].Kills
		}
		return entries[i].ActorID < entries[j].ActorID
	})

	limit := 10
	if len(entries) < limit {
		limit = len(entries)
	}
	writeJSON(w, map[string]interface{}{
		"score":   h.engine.Status().Score,
		"players": entries[:limit],
	})
}

func (h *routerHandlers) handleGetWeapons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, game.GetAllWeapons())
}

func (h *routerHandlers) handleJoin(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Join(GetClientIP(r))
	if errors.Is(err, session.ErrServerFull) {
		writeError(w, "Player limit reached", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("join failed")
		writeError(w, "Join failed", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, s, http.StatusCreated)
}

func (h *routerHandlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	s, ok := h.sessions.Get(id)
	if !ok {
		writeError(w, "Unknown session", http.StatusNotFound)
		return
	}
	state, err := h.sessions.State(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"session": s,
		"actor":   state,
	})
}

func (h *routerHandlers) handleLeave(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Leave(chi.URLParam(r, "sessionID")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInput accepts either a binary input frame or the JSON form of
// game.InputCommand.
func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var err error
	if r.Header.Get("Content-Type") == "application/octet-stream" {
		frame, readErr := io.ReadAll(io.LimitReader(r.Body, game.InputCommandSize+1))
		if readErr != nil {
			writeError(w, "Invalid request", http.StatusBadRequest)
			return
		}
		err = h.sessions.SubmitEncodedInput(id, frame)
	} else {
		var cmd game.InputCommand
		if decodeErr := json.NewDecoder(r.Body).Decode(&cmd); decodeErr != nil {
			writeError(w, "Invalid request", http.StatusBadRequest)
			return
		}
		err = h.sessions.SubmitInput(id, cmd)
	}
	if err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *routerHandlers) actorFor(w http.ResponseWriter, r *http.Request) (int32, bool) {
	s, ok := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, "Unknown session", http.StatusNotFound)
		return 0, false
	}
	return s.ActorID, true
}

func (h *routerHandlers) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorFor(w, r)
	if !ok {
		return
	}
	inv, ok := h.engine.GetInventory(actorID)
	if !ok {
		writeError(w, "No inventory", http.StatusNotFound)
		return
	}
	writeJSON(w, inv)
}

func (h *routerHandlers) handleSetActiveSlot(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorFor(w, r)
	if !ok {
		return
	}
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	inv, ok := h.engine.SetActiveSlot(actorID, req.Index)
	if !ok {
		writeError(w, "No inventory", http.StatusNotFound)
		return
	}
	writeJSON(w, inv)
}

func (h *routerHandlers) handlePickup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorFor(w, r)
	if !ok {
		return
	}
	var req struct {
		Weapon string `json:"weapon"`
		Ammo   int    `json:"ammo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	weapon, known := game.ParseWeapon(req.Weapon)
	if !known {
		writeError(w, "Unknown weapon", http.StatusBadRequest)
		return
	}
	res, ok := h.engine.ApplyPickup(actorID, game.Pickup{Type: weapon, Ammo: req.Ammo})
	if !ok {
		writeError(w, "No inventory", http.StatusNotFound)
		return
	}
	writeJSON(w, res)
}

func (h *routerHandlers) handleConsumeAmmo(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorFor(w, r)
	if !ok {
		return
	}
	res, ok := h.engine.TryConsumeAmmo(actorID)
	if !ok {
		writeError(w, "No inventory", http.StatusNotFound)
		return
	}
	writeJSON(w, res)
}

func (h *routerHandlers) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sessions.Sessions())
}

func (h *routerHandlers) handleEventLogStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.EventLogStats())
}

func (h *routerHandlers) handleSpawnEnemies(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int     `json:"count"`
		Inset float32 `json:"inset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Count > maxSpawnBatch {
		req.Count = maxSpawnBatch
	}
	if req.Inset <= 0 {
		req.Inset = game.DefaultEdgeInset
	}

	ids := h.engine.SpawnEnemiesAtEdges(req.Count, req.Inset)
	h.logger.Info().Int("count", len(ids)).Msg("admin spawned enemies")
	writeJSON(w, map[string]interface{}{"ids": ids})
}

func (h *routerHandlers) handleRemoveEnemy(w http.ResponseWriter, r *http.Request) {
	id, ok := actorIDParam(w, r)
	if !ok {
		return
	}
	if !h.engine.RemoveEnemyActor(id) {
		writeError(w, "Unknown enemy", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *routerHandlers) handleSetHP(w http.ResponseWriter, r *http.Request) {
	id, ok := actorIDParam(w, r)
	if !ok {
		return
	}
	var req struct {
		HP int16 `json:"hp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if !h.engine.SetActorHp(id, req.HP) {
		writeError(w, "Unknown actor", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{"id": id, "hp": req.HP})
}

// handleFramePNG renders the latest frame for debugging.
func (h *routerHandlers) handleFramePNG(w http.ResponseWriter, r *http.Request) {
	frame, ok := h.engine.LatestFrame()
	if !ok {
		writeError(w, "No frame published yet", http.StatusServiceUnavailable)
		return
	}
	cfg := h.engine.Config()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := RenderFrame(w, frame, cfg.HalfExtents, DefaultRenderScale); err != nil {
		h.logger.Warn().Err(err).Msg("frame render failed")
	}
}

func actorIDParam(w http.ResponseWriter, r *http.Request) (int32, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, "actorID"), 10, 32)
	if err != nil {
		writeError(w, "Invalid actor id", http.StatusBadRequest)
		return 0, false
	}
	return int32(v), true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownSession):
		writeError(w, "Unknown session", http.StatusNotFound)
	case errors.Is(err, session.ErrActorGone):
		writeError(w, "Actor gone", http.StatusGone)
	case errors.Is(err, game.ErrInputSize):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		writeError(w, "Internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, data, http.StatusOK)
}

func writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSONStatus(w, map[string]string{"error": message}, code)
}
