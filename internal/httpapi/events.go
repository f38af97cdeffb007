package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const wsWriteTimeout = 5 * time.Second

// handleEvents streams session views until the client leaves or the session closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.originPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.log.Debug("ws_accept_failed", zap.String("session_id", sess.ID()), zap.Error(err))
		return
	}
	defer func() { _ = conn.Close(websocket.StatusInternalError, "closing") }()

	views, cancel := sess.Subscribe()
	defer cancel()

	// the client never sends; CloseRead keeps pongs flowing and ends ctx on close
	ctx := conn.CloseRead(r.Context())
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	log := s.log.With(zap.String("session_id", sess.ID()))
	log.Debug("ws_subscribed")
	for {
		select {
		case <-ctx.Done():
			log.Debug("ws_client_gone")
			return
		case v, open := <-views:
			if !open {
				_ = conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			wctx, cancelWrite := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(wctx, conn, v)
			cancelWrite()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Debug("ws_write_failed", zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			pctx, cancelPing := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancelPing()
			if err != nil {
				log.Debug("ws_ping_failed", zap.Error(err))
				return
			}
		}
	}
}
