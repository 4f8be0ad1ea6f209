package watch

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, server *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return conn
}

func waitForConnections(t *testing.T, rs *ReloadServer, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for rs.ConnectionCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("connection count = %d, want %d", rs.ConnectionCount(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReloadServer_NotifyReload(t *testing.T) {
	rs := NewReloadServer(nil, nil)
	defer rs.Close()

	server := httptest.NewServer(http.HandlerFunc(rs.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, nil)
	defer conn.Close()
	waitForConnections(t, rs, 1)

	rs.NotifyReload("abc123", 7)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ReloadMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read message: %v", err)
	}

	if msg.Type != MessageReload {
		t.Errorf("Type = %s, want %s", msg.Type, MessageReload)
	}
	if msg.Fingerprint != "abc123" || msg.Models != 7 {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.Timestamp == 0 {
		t.Error("Timestamp should be set")
	}
}

func TestReloadServer_NotifyError(t *testing.T) {
	rs := NewReloadServer(nil, nil)
	defer rs.Close()

	server := httptest.NewServer(http.HandlerFunc(rs.HandleWebSocket))
	defer server.Close()

	first := dial(t, server, nil)
	defer first.Close()
	second := dial(t, server, nil)
	defer second.Close()
	waitForConnections(t, rs, 2)

	rs.NotifyError([]string{"shop.Item.owner: unresolved"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg ReloadMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("failed to read message: %v", err)
		}
		if msg.Type != MessageError {
			t.Errorf("Type = %s, want %s", msg.Type, MessageError)
		}
		if len(msg.Errors) != 1 {
			t.Errorf("Errors = %v", msg.Errors)
		}
	}
}

func TestReloadServer_Disconnect(t *testing.T) {
	rs := NewReloadServer(nil, nil)
	defer rs.Close()

	server := httptest.NewServer(http.HandlerFunc(rs.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, nil)
	waitForConnections(t, rs, 1)

	conn.Close()
	waitForConnections(t, rs, 0)
}

func TestReloadServer_Origin(t *testing.T) {
	rs := NewReloadServer([]string{"http://docs.example.com"}, nil)
	defer rs.Close()

	server := httptest.NewServer(http.HandlerFunc(rs.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	allowed := http.Header{"Origin": []string{"http://docs.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, allowed)
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	conn.Close()

	denied := http.Header{"Origin": []string{"http://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, denied)
	if err == nil {
		t.Fatal("expected foreign origin to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for foreign origin, got %v", resp)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"no origin", "", nil, true},
		{"same host", "http://localhost:8000", nil, true},
		{"listed", "http://a.test", []string{"http://a.test"}, true},
		{"wildcard", "http://b.test", []string{"*"}, true},
		{"foreign", "http://b.test", []string{"http://a.test"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://localhost:8000/ws/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := checkOrigin(req, tt.allowed); got != tt.want {
				t.Errorf("checkOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReloadServer_CloseIsIdempotent(t *testing.T) {
	rs := NewReloadServer(nil, nil)
	rs.Close()
	rs.Close()

	// Notifications after Close return instead of blocking
	done := make(chan struct{})
	go func() {
		rs.NotifyReload("x", 1)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyReload blocked after Close")
	}
}
