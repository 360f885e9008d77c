package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/metrics"
)

// AdminWSHandler streams leaderboard snapshots to admin dashboards.
type AdminWSHandler struct {
	scoreboard *app.Scoreboard
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewAdminWSHandler(scoreboard *app.Scoreboard, checkOrigin func(*http.Request) bool, logger *zap.Logger) *AdminWSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &AdminWSHandler{
		scoreboard: scoreboard,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (h *AdminWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	defer metrics.SocketOpened("admin")()

	updates, cancel, err := h.scoreboard.Subscribe(r.Context())
	if err != nil {
		h.logger.Error("subscribe leaderboard", zap.Error(err))
		_ = conn.WriteJSON(errorMessage("Server error"))
		return
	}
	defer cancel()

	readerDone := make(chan struct{})
	go func() {
		// admins only listen; reading keeps control frames flowing and notices the close
		defer close(readerDone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case lb, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[app.Leaderboard]{Type: "leaderboard", Payload: lb}); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		case <-readerDone:
			return
		}
	}
}
