// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/tombola/internal/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	Subprotocol = "tombola"

	outboxSize   = 64
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

// inbound is the request envelope sent by clients.
type inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId"`
	Payload   json.RawMessage `json:"payload"`
}

// RoomWSHandler upgrades a client to the room socket. Each socket gets a
// fresh opaque connection ID which identifies the player in every room.
func (s *Server) RoomWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: s.OriginPatterns,
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the tombola subprotocol")
			return
		}

		connID := uuid.NewString()
		logger := s.Logger.WithField("conn", connID)
		s.Logger.WithFields(middleware.SocketFields(r, connID)).Info("socket connected")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		conn := s.Hub.Register(connID, outboxSize, cancel, func(code websocket.StatusCode, reason string) {
			c.Close(code, reason)
		})

		conn.Write(Welcome{Type: "welcome", ConnectionID: connID})

		go writePump(ctx, c, conn, logger)
		readErr := readPump(ctx, c, conn, s, logger)

		s.Sessions.Disconnect(connID)
		s.Hub.Unregister(connID)
		middleware.LogSocketClosed(s.Logger, r, connID, readErr)
	}
}

// readPump decodes request envelopes and dispatches them in arrival order.
// It returns the error that ended the connection, or nil on a normal close.
func readPump(ctx context.Context, c *websocket.Conn, conn *Connection, s *Server, logger logrus.FieldLogger) error {
	limiter := rate.NewLimiter(rate.Limit(s.MessageRate), s.MessageBurst)

	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			logger.Warnf("ignoring non-text message type %d", typ)
			continue
		}
		if !limiter.Allow() {
			conn.WriteError("rate limit exceeded, message dropped")
			continue
		}

		var in inbound
		if err := json.Unmarshal(msg, &in); err != nil {
			logger.Debugf("invalid json: %v", err)
			conn.WriteError("invalid JSON format")
			continue
		}
		if in.Type == "" {
			conn.WriteError("missing message type")
			continue
		}

		resp := s.Sessions.Dispatch(conn.ID, in.Type, in.Payload)
		conn.Write(Envelope{Type: "ack", RequestID: in.RequestID, Payload: resp})
	}
}

// writePump serialises everything queued on OutChan and keeps the socket
// alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *Connection, logger logrus.FieldLogger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing %s: %v", messageType(msg), err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Debugf("write failed: %v", err)
				conn.Cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Debugf("ping failed: %v", err)
				conn.Cancel()
				return
			}
		}
	}
}
