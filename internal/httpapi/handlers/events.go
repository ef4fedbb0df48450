package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"captionstudio/internal/pkg/errors"
	"captionstudio/internal/render"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
	wsPongWait   = wsPingPeriod + 10*time.Second
)

// sessionEvent is one message on a session's event stream.
type sessionEvent struct {
	SessionID string          `json:"sessionId"`
	State     render.Snapshot `json:"state"`
}

// RenderEvents streams a session's state over a websocket: the current
// snapshot first, then every transition until the client goes away.
func (h *Handler) RenderEvents(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "sessionId")
	log := h.log.FromContext(r.Context()).WithSessionID(id)

	// The stream outlives the request context once the connection is
	// hijacked, so it gets its own.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// Subscribe before reading the current state so no transition falls in
	// between.
	updates, err := h.queue.SubscribeState(ctx, id)
	if err != nil {
		return errors.Wrap(err, "queue.subscribe", "state subscription failed")
	}
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		return sessionErr(err, id, "sessions.get")
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		log.Warn("websocket upgrade failed", "error", err.Error())
		return nil
	}
	defer conn.Close()

	go readPump(conn, cancel)

	if err := writeEvent(conn, sessionEvent{SessionID: id, State: s.State}); err != nil {
		return nil
	}
	log.Debug("event stream opened")

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			log.Debug("event stream closed")
			return nil
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "state stream ended"),
					time.Now().Add(wsWriteWait))
				return nil
			}
			if err := writeEvent(conn, sessionEvent{SessionID: id, State: snap}); err != nil {
				log.Debug("event stream write failed", "error", err.Error())
				return nil
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return nil
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed,
// and cancels the stream once the client is gone.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, ev sessionEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(ev)
}

func originChecker(allowed func(origin string) bool) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return allowed(origin)
	}
}
