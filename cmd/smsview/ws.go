package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"smsview/internal/metrics"
	"smsview/internal/session"
	"smsview/internal/tracing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
)

const (
	// longest search term accepted over the socket
	socketReadLimit    = 4096
	socketWriteTimeout = 10 * time.Second
)

// handleSocket serves the live filter. Every text frame is a search term and
// is answered with the filtered conversation as one JSON frame.
func (s *Server) handleSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := tracing.GetRequestID(r.Context())

		// the connection outlives the server's write timeout
		rc := http.NewResponseController(w)
		_ = rc.SetReadDeadline(time.Time{})
		_ = rc.SetWriteDeadline(time.Time{})

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			s.logger.WithError(err).WithField(session.LogFieldRequestID, requestID).Warn("WebSocket upgrade failed")
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(socketReadLimit)

		metrics.AddToCounter(metrics.WebsocketConnectionsActive, 1, nil, "Open live filter connections")
		defer metrics.AddToCounter(metrics.WebsocketConnectionsActive, -1, nil, "Open live filter connections")

		s.logger.WithField(session.LogFieldRequestID, requestID).Debug("Live filter connected")

		err = s.serveSocket(r.Context(), conn)
		switch status := websocket.CloseStatus(err); {
		case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
			conn.Close(websocket.StatusNormalClosure, "")
		case errors.Is(err, context.Canceled):
		default:
			s.logger.WithError(err).WithFields(logrus.Fields{
				session.LogFieldRequestID: requestID,
			}).Debug("Live filter connection closed")
		}
	}
}

func (s *Server) serveSocket(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		metrics.IncrementCounter(metrics.FilterQueriesTotal, map[string]string{"source": "ws"}, "Filter queries served")
		result := s.svc.Filter(string(data))

		writeCtx, cancel := context.WithTimeout(ctx, socketWriteTimeout)
		err = wsjson.Write(writeCtx, conn, result)
		cancel()
		if err != nil {
			return err
		}
	}
}
