package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/websocket"

	"github.com/mmynk/splitorder/internal/auth"
	"github.com/mmynk/splitorder/internal/broadcast"
	"github.com/mmynk/splitorder/internal/middleware"
	"github.com/mmynk/splitorder/internal/orders"
)

// StreamHandler pushes a group's order updates over a websocket.
//
// Route: GET /ws/orders/{groupID}. The token comes from the access_token
// query parameter (browsers cannot set headers on websocket upgrades) or
// the Authorization header. The first frame is the full snapshot; every
// later frame is an update envelope. Frames may be missed or repeated, so
// clients re-fetch state on reconnect.
type StreamHandler struct {
	coord  *orders.Coordinator
	hub    *broadcast.Hub
	jwt    *auth.JWTManager
	logger *slog.Logger
}

// NewStreamHandler creates a StreamHandler. A nil logger uses slog.Default().
func NewStreamHandler(coord *orders.Coordinator, hub *broadcast.Hub, jwtManager *auth.JWTManager, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{coord: coord, hub: hub, jwt: jwtManager, logger: logger}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	groupID := r.PathValue("groupID")
	userID, err := h.authenticate(r)
	if err != nil {
		h.logger.Warn("Websocket unauthorized", "group_id", groupID, "remote_addr", r.RemoteAddr, "error", err)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	// Subscribe before reading so no commit falls between the snapshot and
	// the first update.
	sub := h.hub.Subscribe(broadcast.Channel(groupID))
	defer sub.Close()

	snapshot, err := h.coord.GetOrderState(r.Context(), groupID, userID)
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}

	first, err := json.Marshal(broadcast.Envelope{
		Type:        broadcast.EventOrderSnapshot,
		Channel:     broadcast.Channel(groupID),
		GroupID:     groupID,
		Snapshot:    snapshot,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		http.Error(w, "failed to encode snapshot", http.StatusInternalServerError)
		return
	}

	ws := websocket.Server{Handler: func(conn *websocket.Conn) {
		h.stream(middleware.WithUserID(r.Context(), userID), conn, groupID, first, sub)
	}}
	ws.ServeHTTP(w, r)
}

func (h *StreamHandler) stream(ctx context.Context, conn *websocket.Conn, groupID string, first []byte, sub *broadcast.Subscription) {
	defer conn.Close()

	userID := middleware.GetUserID(ctx)
	h.logger.Info("Websocket subscribed", "group_id", groupID, "user_id", userID)
	defer h.logger.Info("Websocket closed", "group_id", groupID, "user_id", userID)

	if err := websocket.Message.Send(conn, string(first)); err != nil {
		return
	}

	// The client never sends anything we act on; reading only detects close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		var discard string
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case payload, ok := <-sub.C:
			if !ok {
				return
			}
			if err := websocket.Message.Send(conn, string(payload)); err != nil {
				h.logger.Debug("Websocket send failed", "group_id", groupID, "error", err)
				return
			}
		}
	}
}

func (h *StreamHandler) authenticate(r *http.Request) (string, error) {
	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if token == "" {
		var err error
		token, err = middleware.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			return "", err
		}
	}

	claims, err := h.jwt.Validate(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// httpStatus maps coordinator errors for the plain HTTP handshake.
func httpStatus(err error) int {
	switch codeOf(err) {
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized
	case connect.CodePermissionDenied:
		return http.StatusForbidden
	case connect.CodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
