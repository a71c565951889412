package sse

import (
	"net/http"
	"time"
)

const (
	// Time between keepalive comments
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 64

	// Reconnect delay suggested to browsers
	retryMillis = "3000"
)

// Client represents a connected SSE watcher
type Client struct {
	hub         *Hub
	remote      string
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a new SSE client
func NewClient(hub *Hub, remote string) *Client {
	return &Client{
		hub:         hub,
		remote:      remote,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ServeSSE streams the hub's events until the client goes away or the hub
// closes. initial is written straight after the connected event.
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, initial []byte) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := NewClient(hub, r.RemoteAddr)
	if !hub.Register(client) {
		http.Error(w, "game closed", http.StatusGone)
		return
	}
	defer hub.Unregister(client)

	_, _ = w.Write([]byte("retry: " + retryMillis + "\n\n"))
	_, _ = w.Write(formatSSEMessage(EventConnected, `{"status":"connected"}`))
	if len(initial) > 0 {
		_, _ = w.Write(initial)
	}
	if err := rc.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			_ = rc.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			_ = rc.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
