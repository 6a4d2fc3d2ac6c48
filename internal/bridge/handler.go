package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/coursetutor/internal/backend"
	"github.com/ashureev/coursetutor/internal/domain"
	"github.com/ashureev/coursetutor/internal/identity"
	"github.com/ashureev/coursetutor/internal/session"
	"github.com/ashureev/coursetutor/internal/speech"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	writeTimeout = 10 * time.Second

	// Per-connection budget for user intents. Audio acknowledgments and
	// pings are never throttled.
	intentRate  = rate.Limit(5)
	intentBurst = 10
)

// TutorFactory builds a backend client that acts with the browser's credentials.
type TutorFactory func(cookies []*http.Cookie) (backend.Tutor, error)

// HandlerConfig configures a WebSocketHandler.
type HandlerConfig struct {
	NewTutor      TutorFactory
	Cache         speech.ClipCache
	VoiceDefault  bool
	AllowedOrigin string
	IsDev         bool
}

// WebSocketHandler serves one chat session per WebSocket connection.
type WebSocketHandler struct {
	cfg HandlerConfig
	sm  *SessionManager
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(cfg HandlerConfig, sm *SessionManager) *WebSocketHandler {
	return &WebSocketHandler{cfg: cfg, sm: sm}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	connID := uuid.NewString()
	slog.Info("WebSocket connection request", "session_id", sessionID, "conn_id", connID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	ws.SetReadLimit(64 << 10)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	h.sm.Register(sessionID, ws)
	defer h.sm.Unregister(sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	write := func(ctx context.Context, v any) error {
		return writeJSON(ctx, ws, v)
	}

	tutor, err := h.cfg.NewTutor(identity.CredentialsFromContext(r.Context()))
	if err != nil {
		slog.Error("Failed to create backend client", "error", err, "session_id", sessionID)
		if err := write(ctx, errorFrame{Type: msgError, Error: "backend_unavailable"}); err != nil {
			slog.Debug("Failed to send backend_unavailable error", "error", err)
		}
		return
	}

	player := NewSocketPlayer(write)
	opts := []session.Option{
		session.WithVoiceEnabled(h.cfg.VoiceDefault),
		session.WithLogger(slog.Default().With("session_id", sessionID, "conn_id", connID)),
	}
	if h.cfg.Cache != nil {
		opts = append(opts, session.WithClipCache(h.cfg.Cache))
	}
	ctrl := session.New(tutor, player, opts...)

	var outputDone sync.WaitGroup
	outputDone.Add(1)
	go func() {
		defer outputDone.Done()
		h.outputLoop(ctx, cancel, ws, ctrl)
	}()

	var ops sync.WaitGroup
	spawn := func(name string, fn func() error) {
		ops.Add(1)
		go func() {
			defer ops.Done()
			if err := fn(); err != nil && !errors.Is(err, session.ErrClosed) {
				slog.Debug("Chat operation rejected", "op", name, "error", err, "session_id", sessionID)
				if err := write(ctx, errorFrame{Type: msgError, Error: err.Error()}); err != nil {
					slog.Debug("Failed to send error frame", "error", err)
				}
			}
		}()
	}

	spawn("mount", func() error { return ctrl.Mount(ctx) })
	h.inputLoop(ctx, ws, ctrl, player, spawn, sessionID)

	cancel()
	player.Close()
	ctrl.Close()
	ops.Wait()
	outputDone.Wait()
	slog.Info("Chat session ended", "session_id", sessionID, "conn_id", connID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.cfg.IsDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.cfg.AllowedOrigin == "*" {
		return true
	}
	if origin == h.cfg.AllowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.cfg.AllowedOrigin)
	return false
}

//nolint:gocognit // Message dispatch covers every browser intent.
func (h *WebSocketHandler) inputLoop(
	ctx context.Context,
	ws *websocket.Conn,
	ctrl *session.Controller,
	player *SocketPlayer,
	spawn func(string, func() error),
	sessionID string,
) {
	limiter := rate.NewLimiter(intentRate, intentBurst)
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("WebSocket closed by client", "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("Ignoring malformed message", "error", err, "session_id", sessionID)
			continue
		}

		if isIntent(msg.Type) && !limiter.Allow() {
			slog.Warn("Throttling chat intents", "type", msg.Type, "session_id", sessionID)
			if err := writeJSON(ctx, ws, errorFrame{Type: msgError, Error: "rate_limited"}); err != nil {
				slog.Debug("Failed to send rate_limited error", "error", err)
			}
			continue
		}

		switch msg.Type {
		case msgSelectCourse:
			course := domain.Course(msg.Course)
			if course == "" {
				if err := writeJSON(ctx, ws, errorFrame{Type: msgError, Error: "course is required"}); err != nil {
					slog.Debug("Failed to send error frame", "error", err)
				}
				continue
			}
			spawn(msg.Type, func() error { return ctrl.SelectCourse(ctx, course) })
		case msgSend:
			prompt := msg.Prompt
			spawn(msg.Type, func() error { return ctrl.Send(ctx, prompt) })
		case msgNewChat:
			ctrl.NewChat()
		case msgVoice:
			if msg.Enabled != nil {
				ctrl.SetVoice(*msg.Enabled)
			} else {
				ctrl.ToggleVoice()
			}
		case msgRetry:
			spawn(msg.Type, func() error { return ctrl.Retry(ctx) })
		case msgAudioEnded:
			player.Ended(msg.ClipID, nil)
		case msgAudioError:
			player.Ended(msg.ClipID, fmt.Errorf("browser playback failed: %s", msg.Error))
		case msgPing:
			if err := writeJSON(ctx, ws, map[string]string{"type": msgPong}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		default:
			slog.Debug("Ignoring unknown message type", "type", msg.Type, "session_id", sessionID)
		}
	}
}

func isIntent(t string) bool {
	switch t {
	case msgSelectCourse, msgSend, msgNewChat, msgVoice, msgRetry:
		return true
	}
	return false
}

// outputLoop pushes a state frame for the initial state and after every
// change, until the session closes its change channel.
func (h *WebSocketHandler) outputLoop(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn, ctrl *session.Controller) {
	push := func() {
		if ctx.Err() != nil {
			return
		}
		if err := writeJSON(ctx, ws, renderState(ctrl.Snapshot())); err != nil {
			slog.Debug("Failed to push state", "error", err)
			cancel()
		}
	}

	push()
	for range ctrl.Changes() {
		push()
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
