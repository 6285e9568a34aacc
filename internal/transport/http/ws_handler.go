// Package http exposes the operator-facing monitor endpoint.
package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"math-challenge-service/internal/monitor"
)

// MonitorHandler streams session lifecycle events over a websocket so an
// operator can watch sessions live. It carries no challenge state of its own.
type MonitorHandler struct {
	hub      *monitor.Hub
	logger   logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewMonitorHandler(hub *monitor.Hub, logger logrus.FieldLogger) *MonitorHandler {
	return &MonitorHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and forwards hub events until the peer goes away.
func (h *MonitorHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("monitor upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe()
	defer cancel()

	// Drain client frames so we notice the peer closing.
	peerGone := make(chan struct{})
	go func() {
		defer close(peerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.WithError(err).Debug("monitor write failed")
				return
			}
		case <-peerGone:
			return
		}
	}
}
