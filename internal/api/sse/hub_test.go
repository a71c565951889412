package sse

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "update",
			data:      `{"turn":1}`,
			expected:  "event: update\ndata: {\"turn\":1}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "update",
			data:      "{\n  \"turn\": 1\n}",
			expected:  "event: update\ndata: {\ndata:   \"turn\": 1\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatSSEMessage(tt.eventName, tt.data)
			if string(result) != tt.expected {
				t.Errorf("formatSSEMessage(%q, %q)\ngot:  %q\nwant: %q",
					tt.eventName, tt.data, string(result), tt.expected)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single line", "hello", []string{"hello"}},
		{"two lines", "line1\nline2", []string{"line1", "line2"}},
		{"trailing newline", "line1\n", []string{"line1"}},
		{"empty string", "", []string{""}},
		{"crlf line endings", "line1\r\nline2\r\n", []string{"line1", "line2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitLines(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitLines(%q) returned %d lines, want %d", tt.input, len(result), len(tt.expected))
			}
			for i, line := range result {
				if line != tt.expected[i] {
					t.Errorf("splitLines(%q)[%d] = %q, want %q", tt.input, i, line, tt.expected[i])
				}
			}
		})
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub("game1", testLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "127.0.0.1:1")
	if !hub.Register(client) {
		t.Fatal("Register() = false on a running hub")
	}

	// Give the hub time to process registration
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.BroadcastEvent("update", "data")

	select {
	case msg := <-client.send:
		expected := "event: update\ndata: data\n\n"
		if string(msg) != expected {
			t.Errorf("client received %q, want %q", string(msg), expected)
		}
	case <-time.After(time.Second):
		t.Error("client did not receive message")
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub("game1", testLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "127.0.0.1:1")
	hub.Register(client)
	hub.Unregister(client)

	if _, ok := <-client.send; ok {
		t.Error("send channel still open after unregister")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after unregister, want 0", hub.ClientCount())
	}
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub("game1", testLogger())
	go hub.Run()

	client := NewClient(hub, "127.0.0.1:1")
	hub.Register(client)
	hub.Close()
	hub.Close()

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("received a message instead of a closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}

	if hub.Register(NewClient(hub, "127.0.0.1:2")) {
		t.Error("Register() = true on a closed hub")
	}
	hub.Unregister(client)
}

func TestHubManager_GetOrCreateHub(t *testing.T) {
	manager := NewHubManager(testLogger())
	defer manager.Close()

	hub1 := manager.GetOrCreateHub("g1")
	if hub1 == nil {
		t.Fatal("GetOrCreateHub returned nil")
	}
	if hub2 := manager.GetOrCreateHub("g1"); hub1 != hub2 {
		t.Error("GetOrCreateHub returned different hub for same game")
	}
	if hub3 := manager.GetOrCreateHub("g2"); hub3 == hub1 {
		t.Error("GetOrCreateHub returned same hub for different game")
	}
	if manager.GetHub("nope") != nil {
		t.Error("GetHub returned non-nil for non-existent hub")
	}

	manager.RemoveHub("g1")
	if manager.GetHub("g1") != nil {
		t.Error("Hub still exists after RemoveHub")
	}
	manager.RemoveHub("nope")
}

func TestHubManager_CleanupEmptyHubs(t *testing.T) {
	manager := NewHubManager(testLogger())
	defer manager.Close()

	manager.GetOrCreateHub(model.GameID("empty"))
	active := manager.GetOrCreateHub(model.GameID("active"))
	active.Register(NewClient(active, "127.0.0.1:1"))
	time.Sleep(10 * time.Millisecond)

	manager.CleanupEmptyHubs()

	if manager.GetHub("empty") != nil {
		t.Error("Empty hub still exists after cleanup")
	}
	if manager.GetHub("active") == nil {
		t.Error("Active hub was removed during cleanup")
	}
}

func TestHubManager_GameChanged(t *testing.T) {
	manager := NewHubManager(testLogger())
	defer manager.Close()

	// Nobody watching
	manager.GameChanged(session.Update{ID: "g1", Turn: 1})

	hub := manager.GetOrCreateHub("g1")
	client := NewClient(hub, "127.0.0.1:1")
	hub.Register(client)

	manager.GameChanged(session.Update{ID: "g1", State: "inturn", Turn: 1, Hash: 7})
	manager.GameChanged(session.Update{ID: "g1", State: "gameover", GameOver: true})

	for _, want := range []string{"event: update\n", "event: gameover\n"} {
		select {
		case msg := <-client.send:
			if !strings.HasPrefix(string(msg), want) {
				t.Errorf("got %q, want prefix %q", string(msg), want)
			}
		case <-time.After(time.Second):
			t.Fatalf("no %q message", want)
		}
	}
}

func TestUpdateMessage(t *testing.T) {
	msg := string(UpdateMessage(session.Update{ID: "g1", State: "inturn", Turn: 1, Hash: 7, PrevMove: "pass"}))
	expected := "event: update\ndata: " +
		`{"id":"g1","state":"inturn","turn":1,"hash":7,"stack_depth":0,"pool_left":0,"game_over":false,"prev_move":"pass"}` +
		"\n\n"
	if msg != expected {
		t.Errorf("UpdateMessage()\ngot:  %q\nwant: %q", msg, expected)
	}
}
