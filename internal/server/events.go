package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const eventWriteTimeout = 5 * time.Second

// handleEvents streams every ChangeEvent to the client as a JSON text message until either side
// goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log(r).Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The feed is one-way; CloseRead handles pings and cancels ctx when the client leaves.
	ctx := conn.CloseRead(r.Context())
	events := s.events.Subscribe(ctx)

	logger := s.log(r)
	logger.Debug("event subscriber connected", "subscribers", s.events.Subscribers())

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			msg, err := json.Marshal(event)
			if err != nil {
				logger.Error("failed to encode change event", "error", err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				logger.Debug("event subscriber gone", "error", err)
				return
			}
		}
	}
}
