package gameclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockServer creates a test WebSocket server speaking the event feed.
func mockServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

// serverConfig derives a Config pointing at the mock server.
func serverConfig(t *testing.T, server *httptest.Server) Config {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	return Config{
		Host:     u.Hostname(),
		Port:     port,
		Username: "testbot",
		Version:  "1.21.4",
	}
}

// recorder collects delivered events in order.
type recorder struct {
	mu     sync.Mutex
	events []string
	ended  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ended: make(chan struct{})}
}

func (r *recorder) record(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnLogin:  func(li LoginInfo) { r.record("login:" + li.Username) },
		OnSpawn:  func(si SpawnInfo) { r.record("spawn:" + si.GameMode) },
		OnChat:   func(cm ChatMessage) { r.record("chat:" + cm.Sender + ":" + cm.Text) },
		OnError:  func(err error) { r.record("error") },
		OnKicked: func(reason string) { r.record("kicked:" + reason) },
		OnEnd: func(reason string) {
			r.record("end:" + reason)
			close(r.ended)
		},
		OnDeath: func() { r.record("death") },
		OnRaw:   func([]byte) { r.record("raw") },
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) waitEnd(t *testing.T) {
	t.Helper()
	select {
	case <-r.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for end event")
	}
}

func sendFrame(t *testing.T, conn *websocket.Conn, f frame) {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Logf("write frame: %v", err)
	}
}

func TestDialSendsHello(t *testing.T) {
	hello := make(chan frame, 1)

	server := mockServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		json.Unmarshal(data, &f)
		hello <- f
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client, err := Dial(context.Background(), serverConfig(t, server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	select {
	case f := <-hello:
		if f.Type != frameLogin {
			t.Errorf("hello type = %q, want %q", f.Type, frameLogin)
		}
		if f.Username != "testbot" {
			t.Errorf("hello username = %q, want %q", f.Username, "testbot")
		}
		if f.Version != "1.21.4" {
			t.Errorf("hello version = %q, want %q", f.Version, "1.21.4")
		}
		if f.Auth != AuthOffline {
			t.Errorf("hello auth = %q, want %q", f.Auth, AuthOffline)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hello frame")
	}
}

func TestDialFailure(t *testing.T) {
	// Nothing listens on this port.
	cfg := Config{Host: "127.0.0.1", Port: 1, Username: "testbot"}

	if _, err := Dial(context.Background(), cfg, nil); err == nil {
		t.Fatal("Dial expected error, got nil")
	}
}

func TestEventDeliveryOrder(t *testing.T) {
	server := mockServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage() // hello

		sendFrame(t, conn, frame{Type: frameLogin, Username: "testbot", X: 1, Y: 64, Z: -3})
		sendFrame(t, conn, frame{Type: frameSpawn, GameMode: "survival", Difficulty: "normal"})
		sendFrame(t, conn, frame{Type: frameChat, Sender: "admin", Message: "hello"})
		sendFrame(t, conn, frame{Type: frameDeath})
		sendFrame(t, conn, frame{Type: "time_update"})

		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server restart"),
			time.Now().Add(time.Second))
	})
	defer server.Close()

	client, err := Dial(context.Background(), serverConfig(t, server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	rec := newRecorder()
	client.SetHandlers(rec.handlers())
	rec.waitEnd(t)

	want := []string{
		"login:testbot",
		"spawn:survival",
		"chat:admin:hello",
		"death",
		"raw",
		"end:server restart",
	}
	got := rec.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestKickThenEnd(t *testing.T) {
	server := mockServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage() // hello
		sendFrame(t, conn, frame{Type: frameKick, Reason: "banned"})
		// Transport drop follows the kick.
	})
	defer server.Close()

	client, err := Dial(context.Background(), serverConfig(t, server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	rec := newRecorder()
	client.SetHandlers(rec.handlers())
	rec.waitEnd(t)

	got := rec.snapshot()
	if len(got) != 2 || got[0] != "kicked:banned" || got[1] != "end:banned" {
		t.Errorf("events = %v, want [kicked:banned end:banned]", got)
	}
	for _, ev := range got {
		if ev == "error" {
			t.Error("kick produced an error event")
		}
	}
}

func TestErrorThenEnd(t *testing.T) {
	server := mockServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage() // hello
		// Abrupt close, no close handshake.
		conn.UnderlyingConn().Close()
	})
	defer server.Close()

	client, err := Dial(context.Background(), serverConfig(t, server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	rec := newRecorder()
	client.SetHandlers(rec.handlers())
	rec.waitEnd(t)

	got := rec.snapshot()
	if len(got) != 2 || got[0] != "error" || !strings.HasPrefix(got[1], "end:") {
		t.Errorf("events = %v, want [error end:...]", got)
	}
}

func TestDetachStopsDelivery(t *testing.T) {
	release := make(chan struct{})

	server := mockServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage() // hello
		sendFrame(t, conn, frame{Type: frameChat, Sender: "a", Message: "one"})
		<-release
		sendFrame(t, conn, frame{Type: frameChat, Sender: "a", Message: "two"})
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	})
	defer server.Close()

	client, err := Dial(context.Background(), serverConfig(t, server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	first := make(chan struct{})
	rec := newRecorder()
	h := rec.handlers()
	onChat := h.OnChat
	h.OnChat = func(cm ChatMessage) {
		onChat(cm)
		select {
		case <-first:
		default:
			close(first)
		}
	}
	client.SetHandlers(h)

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first chat event")
	}

	client.Detach()
	close(release)

	// Give the stale session time to deliver anything it shouldn't.
	time.Sleep(100 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "chat:a:one" {
		t.Errorf("events after detach = %v, want [chat:a:one]", got)
	}
}

func TestSendChat(t *testing.T) {
	frames := make(chan frame, 2)

	server := mockServer(t, func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f frame
			json.Unmarshal(data, &f)
			frames <- f
		}
	})
	defer server.Close()

	client, err := Dial(context.Background(), serverConfig(t, server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	<-frames // hello

	if err := client.SendChat("hello world"); err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}

	select {
	case f := <-frames:
		if f.Type != frameChat {
			t.Errorf("frame type = %q, want %q", f.Type, frameChat)
		}
		if f.Message != "hello world" {
			t.Errorf("frame message = %q, want %q", f.Message, "hello world")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chat frame")
	}
}

func TestSendChatAfterClose(t *testing.T) {
	server := mockServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client, err := Dial(context.Background(), serverConfig(t, server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := client.Close(); err != ErrAlreadyClosed {
		t.Errorf("second Close = %v, want ErrAlreadyClosed", err)
	}
	if err := client.SendChat("late"); err != ErrNotConnected {
		t.Errorf("SendChat after Close = %v, want ErrNotConnected", err)
	}
}

func TestCloseSuppressesEvents(t *testing.T) {
	server := mockServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage() // hello
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client, err := Dial(context.Background(), serverConfig(t, server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	rec := newRecorder()
	client.SetHandlers(rec.handlers())

	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	// A locally initiated close must not surface error or end events.
	time.Sleep(100 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("events after local close = %v, want none", got)
	}
}
