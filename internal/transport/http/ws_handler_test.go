package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"math-challenge-service/internal/monitor"
)

func TestMonitorStreamsEvents(t *testing.T) {
	hub := monitor.NewHub()
	handler := NewMonitorHandler(hub, logrus.New())

	srv := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The handler subscribes after the upgrade; keep publishing until the
	// subscriber is registered and an event comes through.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.Publish(monitor.Event{SessionID: "s1", Name: "Rex", Kind: monitor.KindCompleted, At: time.Now()})
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event monitor.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.SessionID != "s1" || event.Kind != monitor.KindCompleted || event.Name != "Rex" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestMonitorHandlesPeerClose(t *testing.T) {
	hub := monitor.NewHub()
	handler := NewMonitorHandler(hub, logrus.New())

	srv := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	// Publishing after the peer went away must not block or panic.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 32; i++ {
			hub.Publish(monitor.Event{SessionID: "s1", Kind: monitor.KindStarted})
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("publish blocked after peer close")
	}
}
