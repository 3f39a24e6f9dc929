package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"hellscape/internal/game"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 4

	wsWriteWait      = 5 * time.Second
	wsPongWait       = 30 * time.Second
	wsPingPeriod     = wsPongWait * 9 / 10
	wsMaxMessageSize = 1024
	wsSendBuffer     = 16
)

// FrameSource is where the hub reads published frames from.
type FrameSource interface {
	LatestFrame() (game.FrameSnapshot, bool)
}

// HubConfig configures a WebSocketHub.
type HubConfig struct {
	Engine      FrameSource
	Sessions    SessionInterface
	Origins     *OriginMatcher
	Metrics     *Metrics
	Logger      zerolog.Logger
	BroadcastHz int
	MaxTotal    int
	MaxPerIP    int
}

// wsMessage is one outbound frame.
type wsMessage struct {
	kind int // websocket.TextMessage or websocket.BinaryMessage
	data []byte
}

// wsClient is one connected player.
type wsClient struct {
	conn      *websocket.Conn
	ip        string
	sessionID string
	actorID   int32
	send      chan wsMessage
}

// welcomeMessage is the first text frame a client receives.
type welcomeMessage struct {
	Event     string `json:"event"`
	SessionID string `json:"sessionId"`
	ActorID   int32  `json:"actorId"`
}

// frameMessage is the text frame that follows each binary snapshot.
type frameMessage struct {
	Event         string           `json:"event"`
	Sequence      uint64           `json:"sequence"`
	Tick          int32            `json:"tick"`
	Shots         []game.ShotEvent `json:"shots"`
	Score         int              `json:"score"`
	Intensity     float32          `json:"intensity"`
	TimeOfDay     float32          `json:"timeOfDay"`
	NightCount    int              `json:"nightCount"`
	ReviveSeconds float32          `json:"reviveSeconds"`
	TeamWiped     bool             `json:"teamWiped"`
}

// WebSocketHub joins a session per connection, forwards binary input
// frames to it and pushes every newly published frame to all clients:
// first the binary snapshot, then a JSON frame message.
type WebSocketHub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	connLimit *ConnLimiter
	lastSeq   uint64
	sentAny   bool

	shotMu  sync.Mutex
	shots   []tickShot
	shotFed bool
}

// tickShot is a tracer waiting for the next broadcast.
type tickShot struct {
	tick int64
	shot game.ShotEvent
}

// maxPendingShots bounds the tracers held between broadcasts.
const maxPendingShots = 512

// NewWebSocketHub creates a hub. Nothing runs until Run is called.
func NewWebSocketHub(cfg HubConfig) *WebSocketHub {
	if cfg.BroadcastHz <= 0 {
		cfg.BroadcastHz = 20
	}
	if cfg.MaxTotal <= 0 {
		cfg.MaxTotal = MaxWSConnectionsTotal
	}
	if cfg.MaxPerIP <= 0 {
		cfg.MaxPerIP = MaxWSConnectionsPerIP
	}
	if cfg.Origins == nil {
		cfg.Origins = NewOriginMatcher(DefaultCORSOrigins)
	}

	h := &WebSocketHub{
		cfg:       cfg,
		logger:    cfg.Logger.With().Str("component", "ws_hub").Logger(),
		clients:   make(map[*wsClient]struct{}),
		connLimit: NewConnLimiter(cfg.MaxPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WebSocketHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if h.cfg.Origins.Allowed(origin) {
		return true
	}
	h.logger.Warn().Str("origin", origin).Msg("websocket connection rejected: origin")
	h.recordRejected("origin")
	return false
}

func (h *WebSocketHub) recordRejected(reason string) {
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.RecordConnectionRejected(reason)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and joins a session for it.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= h.cfg.MaxTotal {
		h.logger.Warn().Int("total", total).Msg("websocket connection rejected: total limit")
		h.recordRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.connLimit.Acquire(ip) {
		h.logger.Warn().Str("ip", ip).Msg("websocket connection rejected: per-IP limit")
		h.recordRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	s, err := h.cfg.Sessions.Join(ip)
	if err != nil {
		h.connLimit.Release(ip)
		h.logger.Warn().Err(err).Str("ip", ip).Msg("websocket join failed")
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.connLimit.Release(ip)
		h.cfg.Sessions.Leave(s.ID)
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &wsClient{
		conn:      conn,
		ip:        ip,
		sessionID: s.ID,
		actorID:   s.ActorID,
		send:      make(chan wsMessage, wsSendBuffer),
	}

	welcome, _ := json.Marshal(welcomeMessage{Event: "welcome", SessionID: s.ID, ActorID: s.ActorID})
	c.send <- wsMessage{kind: websocket.TextMessage, data: welcome}

	h.register(c)
	go h.writePump(c)
	go h.readPump(c)
}

func (h *WebSocketHub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().Str("ip", c.ip).Str("session", c.sessionID).Int32("actor", c.actorID).Int("total", count).Msg("client connected")
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.UpdateWSConnections(count)
	}
}

// unregister removes c once; later calls are no-ops.
func (h *WebSocketHub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.connLimit.Release(c.ip)
	if err := h.cfg.Sessions.Leave(c.sessionID); err != nil {
		h.logger.Debug().Err(err).Str("session", c.sessionID).Msg("leave on disconnect")
	}

	h.logger.Info().Str("session", c.sessionID).Int("remaining", count).Msg("client disconnected")
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.UpdateWSConnections(count)
	}
}

// readPump forwards binary input frames to the session. Malformed frames
// are dropped; the connection stays open.
func (h *WebSocketHub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("session", c.sessionID).Msg("websocket read")
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			err = h.cfg.Sessions.SubmitEncodedInput(c.sessionID, data)
		case websocket.TextMessage:
			var cmd game.InputCommand
			if err = json.Unmarshal(data, &cmd); err == nil {
				err = h.cfg.Sessions.SubmitInput(c.sessionID, cmd)
			}
		default:
			continue
		}
		if err != nil {
			h.logger.Debug().Err(err).Str("session", c.sessionID).Msg("input rejected")
			continue
		}
		if h.cfg.Metrics != nil {
			h.cfg.Metrics.IncrementWSMessages("input")
		}
	}
}

func (h *WebSocketHub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msg.kind, msg.data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Run pushes frames at BroadcastHz until ctx is done, then closes every
// connection.
func (h *WebSocketHub) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(h.cfg.BroadcastHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			frame, ok := h.cfg.Engine.LatestFrame()
			if !ok {
				continue
			}
			h.BroadcastFrame(frame)
		}
	}
}

// BroadcastFrame sends frame to every client unless it was already sent.
// A client whose buffer is full skips the frame.
func (h *WebSocketHub) BroadcastFrame(frame game.FrameSnapshot) {
	h.mu.Lock()
	if h.sentAny && frame.Sequence == h.lastSeq {
		h.mu.Unlock()
		return
	}
	h.sentAny = true
	h.lastSeq = frame.Sequence
	h.mu.Unlock()

	snapshot := game.EncodeSnapshot(frame.World)
	meta, err := json.Marshal(frameMessage{
		Event:         "frame",
		Sequence:      frame.Sequence,
		Tick:          frame.World.Tick,
		Shots:         h.takeShots(frame),
		Score:         frame.Score,
		Intensity:     frame.Intensity,
		TimeOfDay:     frame.TimeOfDay,
		NightCount:    frame.NightCount,
		ReviveSeconds: frame.ReviveSeconds,
		TeamWiped:     frame.TeamWiped,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("encode frame message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if len(c.send)+2 > cap(c.send) {
			continue
		}
		c.send <- wsMessage{kind: websocket.BinaryMessage, data: snapshot}
		c.send <- wsMessage{kind: websocket.TextMessage, data: meta}
	}
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.IncrementWSMessages("snapshot")
		h.cfg.Metrics.IncrementWSMessages("frame")
	}
}

// RecordShots queues the tracers fired on tick so that frames skipped
// between broadcasts still reach clients. Once fed, the hub sends queued
// tracers instead of the frame's own.
func (h *WebSocketHub) RecordShots(tick int64, shots []game.ShotEvent) {
	h.shotMu.Lock()
	defer h.shotMu.Unlock()

	h.shotFed = true
	for _, s := range shots {
		h.shots = append(h.shots, tickShot{tick: tick, shot: s})
	}
	if over := len(h.shots) - maxPendingShots; over > 0 {
		h.shots = append(h.shots[:0], h.shots[over:]...)
	}
}

// takeShots removes and returns the queued tracers up to frame's tick.
func (h *WebSocketHub) takeShots(frame game.FrameSnapshot) []game.ShotEvent {
	h.shotMu.Lock()
	defer h.shotMu.Unlock()

	if !h.shotFed {
		return frame.Shots
	}
	upTo := int64(frame.World.Tick)
	out := make([]game.ShotEvent, 0, len(h.shots))
	keep := h.shots[:0]
	for _, ts := range h.shots {
		if ts.tick <= upTo {
			out = append(out, ts.shot)
		} else {
			keep = append(keep, ts)
		}
	}
	h.shots = keep
	return out
}

func (h *WebSocketHub) closeAll() {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.conn.Close()
	}
}
