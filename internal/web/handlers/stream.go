package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kozaktomas/facewatch/internal/broadcast"
	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/logger"
)

// StreamHandler delivers live events over WebSocket and SSE
type StreamHandler struct {
	hub       *broadcast.Hub
	upgrader  *websocket.Upgrader
	keepAlive time.Duration
}

func NewStreamHandler(hub *broadcast.Hub, allowedOrigins []string) *StreamHandler {
	return &StreamHandler{
		hub:       hub,
		upgrader:  broadcast.NewUpgrader(allowedOrigins),
		keepAlive: constants.SSEKeepAlive,
	}
}

// WebSocket upgrades and streams events until the client disconnects.
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	broadcast.ServeWS(h.hub, h.upgrader, w, r)
}

// setupSSEConnection sets event-stream headers and lifts the server write deadline.
func setupSSEConnection(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, payload []byte) {
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = w.Write(payload)
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

// Events streams events as server-sent events. A client too slow to keep up
// is dropped by the hub and the stream ends.
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	sub := broadcast.NewChanSubscriber(constants.EventChannelBuffer)
	h.hub.Subscribe(sub)
	defer h.hub.Unsubscribe(sub)
	logger.Debug("sse subscriber connected", "remote", sanitizeForLog(r.RemoteAddr))

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, msg.Event.Type, msg.Payload)
		case <-ticker.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
