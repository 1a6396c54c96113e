package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeServer is a minimal Socket.IO server recording every event frame.
type fakeServer struct {
	t          *testing.T
	refuse     bool
	pingFirst  bool
	disconnect bool

	mu     sync.Mutex
	events []string
	pongs  int
	gotEvt chan struct{}
}

func newFakeServer(t *testing.T) *fakeServer {
	return &fakeServer{t: t, gotEvt: make(chan struct{}, 16)}
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/socket.io/" || r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "bad endpoint", http.StatusBadRequest)
		return
	}
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"eio-1","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`))

	_, msg, err := conn.ReadMessage()
	if err != nil || string(msg) != "40" {
		return
	}
	if s.refuse {
		conn.WriteMessage(websocket.TextMessage, []byte(`44{"message":"not authorized"}`))
		return
	}
	if s.pingFirst {
		conn.WriteMessage(websocket.TextMessage, []byte("2"))
	}
	conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"sio-1"}`))

	if s.disconnect {
		conn.WriteMessage(websocket.TextMessage, []byte("41"))
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		text := string(msg)
		s.mu.Lock()
		switch {
		case text == "3":
			s.pongs++
		case strings.HasPrefix(text, "42"):
			s.events = append(s.events, text[2:])
			s.gotEvt <- struct{}{}
		}
		s.mu.Unlock()
	}
}

func (s *fakeServer) waitEvents(n int) []string {
	s.t.Helper()
	for range n {
		select {
		case <-s.gotEvt:
		case <-time.After(2 * time.Second):
			s.t.Fatalf("timed out waiting for %d events", n)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func TestDial_EmitInOrder(t *testing.T) {
	fake := newFakeServer(t)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := Dial(ctx, srv.URL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	type payload struct {
		RollNumber string `json:"rollNumber"`
	}
	for _, roll := range []string{"R1", "R2", "R3"} {
		if err := client.Emit("attendance", payload{RollNumber: roll}); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}

	events := fake.waitEvents(3)
	for i, roll := range []string{"R1", "R2", "R3"} {
		var frame []json.RawMessage
		if err := json.Unmarshal([]byte(events[i]), &frame); err != nil {
			t.Fatalf("event %d is not a JSON array: %v", i, err)
		}
		var name string
		var body payload
		json.Unmarshal(frame[0], &name)
		json.Unmarshal(frame[1], &body)
		if name != "attendance" || body.RollNumber != roll {
			t.Errorf("event %d: expected attendance/%s, got %s/%s", i, roll, name, body.RollNumber)
		}
	}
}

func TestDial_AnswersPing(t *testing.T) {
	fake := newFakeServer(t)
	fake.pingFirst = true
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := Dial(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	// An event after the pong proves the server saw the pong first.
	if err := client.Emit("attendance", map[string]string{}); err != nil {
		t.Fatal(err)
	}
	fake.waitEvents(1)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.pongs != 1 {
		t.Errorf("expected 1 pong, got %d", fake.pongs)
	}
}

func TestDial_Refused(t *testing.T) {
	fake := newFakeServer(t)
	fake.refuse = true
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, err := Dial(context.Background(), srv.URL)
	if !errors.Is(err, ErrHandshake) {
		t.Errorf("expected ErrHandshake, got %v", err)
	}
}

func TestDial_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, url); err == nil {
		t.Error("expected error dialing a closed server")
	}
}

func TestEmit_AfterServerDisconnect(t *testing.T) {
	fake := newFakeServer(t)
	fake.disconnect = true
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := Dial(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not notice the server disconnect")
	}
	if err := client.Emit("attendance", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	srv := httptest.NewServer(newFakeServer(t))
	defer srv.Close()

	client, err := Dial(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client.Close()
	client.Close()
	if err := client.Emit("attendance", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

func TestClose_AfterServerDisconnect(t *testing.T) {
	fake := newFakeServer(t)
	fake.disconnect = true
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := Dial(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not notice the server disconnect")
	}
	if err := client.Close(); err != nil {
		t.Errorf("expected nil closing a dropped connection, got %v", err)
	}
}

func TestClose_ReportsWriteFailure(t *testing.T) {
	srv := httptest.NewServer(newFakeServer(t))
	defer srv.Close()

	client, err := Dial(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	// Force the disconnect frame to miss its deadline.
	client.writeMu.Lock()
	client.writeTimeout = 0
	client.conn.SetWriteDeadline(time.Now().Add(-time.Second))
	client.writeMu.Unlock()

	if err := client.Close(); err == nil {
		t.Error("expected Close to report the failed disconnect write")
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:5000", "ws://localhost:5000/socket.io/?EIO=4&transport=websocket", false},
		{"https://dash.example.com/", "wss://dash.example.com/socket.io/?EIO=4&transport=websocket", false},
		{"ws://host:1/custom", "ws://host:1/custom/?EIO=4&transport=websocket", false},
		{"ftp://host", "", true},
		{"http://", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := websocketURL(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("websocketURL(%q) = %q; want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	frame, err := encodeEvent("/", "attendance", map[string]string{"name": "Ada"})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(frame); got != `42["attendance",{"name":"Ada"}]` {
		t.Errorf("unexpected frame %s", got)
	}

	frame, err = encodeEvent("/admin", "attendance", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(frame); got != `42/admin,["attendance",1]` {
		t.Errorf("unexpected namespaced frame %s", got)
	}
}
