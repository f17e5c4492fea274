package transport

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
	"github.com/vmihailenco/msgpack/v5"

	"asteroid-arena/internal/config"
	"asteroid-arena/internal/protocol"
)

// ---------- helpers ----------

type recordingReceiver struct {
	mu       sync.Mutex
	messages []protocol.Incoming
	failures []error
	got      chan struct{}
}

func newRecordingReceiver() *recordingReceiver {
	return &recordingReceiver{got: make(chan struct{}, 64)}
}

func (r *recordingReceiver) Receive(in protocol.Incoming) {
	r.mu.Lock()
	r.messages = append(r.messages, in)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recordingReceiver) DecodeFailed(err error) {
	r.mu.Lock()
	r.failures = append(r.failures, err)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recordingReceiver) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i+1)
		}
	}
}

// startServer runs handler on every accepted WebSocket and returns the ws URL.
func startServer(t *testing.T, handler func(ws *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()
		handler(ws)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig(url string) config.NetworkConfig {
	cfg := config.DefaultNetwork()
	cfg.ServerURL = url
	cfg.DialTimeout = 2 * time.Second
	return cfg
}

// ---------- tests ----------

func TestReceiveAndSendJSON(t *testing.T) {
	fromClient := make(chan []byte, 1)
	url := startServer(t, func(ws *websocket.Conn) {
		ws.WriteMessage(websocket.TextMessage, []byte(`{"t":"welcome","d":{"id":"abc"}}`))
		ws.WriteMessage(websocket.TextMessage, []byte(`{"t":"nope","d":1}`))
		_, data, err := ws.ReadMessage()
		if err == nil {
			fromClient <- data
		}
		ws.ReadMessage() // Wait for the client to go away
	})

	conn, err := Dial(context.Background(), testConfig(url), protocol.JSONCodec{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	r := newRecordingReceiver()
	conn.Start(r)
	r.wait(t, 2)

	r.mu.Lock()
	if len(r.messages) != 1 || r.messages[0].Message.(protocol.Welcome).ID != "abc" {
		t.Errorf("Expected welcome abc, got %+v", r.messages)
	}
	if len(r.failures) != 1 || !errors.Is(r.failures[0], protocol.ErrUnknownChannel) {
		t.Errorf("Expected an unknown channel failure, got %v", r.failures)
	}
	r.mu.Unlock()

	if err := conn.Send(protocol.Envelope{Channel: protocol.ChannelAngle, Payload: 1.5}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case data := <-fromClient:
		var env struct {
			T string  `json:"t"`
			D float64 `json:"d"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("bad frame %s: %v", data, err)
		}
		if env.T != "angle" || env.D != 1.5 {
			t.Errorf("Expected angle 1.5, got %+v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never got the frame")
	}
}

func TestMsgpackUsesBinaryFrames(t *testing.T) {
	frames := make(chan int, 1)
	url := startServer(t, func(ws *websocket.Conn) {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var env map[string]any
		if msgpack.Unmarshal(data, &env) == nil && env["t"] == "bullet" {
			frames <- mt
		}
		ws.ReadMessage()
	})

	conn, err := Dial(context.Background(), testConfig(url), protocol.MsgpackCodec{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.Start(newRecordingReceiver())

	if err := conn.Send(protocol.Envelope{Channel: protocol.ChannelBullet}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case mt := <-frames:
		if mt != websocket.BinaryMessage {
			t.Errorf("Expected a binary frame, got type %d", mt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never got the frame")
	}
}

func TestServerCloseDisconnects(t *testing.T) {
	url := startServer(t, func(ws *websocket.Conn) {
		ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"))
	})

	conn, err := Dial(context.Background(), testConfig(url), protocol.JSONCodec{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn.Start(newRecordingReceiver())

	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not notice the server going away")
	}
	if !errors.Is(conn.Err(), ErrDisconnected) {
		t.Errorf("Expected ErrDisconnected, got %v", conn.Err())
	}
	if err := conn.Send(protocol.Envelope{Channel: protocol.ChannelAngle, Payload: 0}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	conn.Close()
}

func TestSendBufferFull(t *testing.T) {
	url := startServer(t, func(ws *websocket.Conn) { ws.ReadMessage() })
	cfg := testConfig(url)
	cfg.SendBuffer = 1

	conn, err := Dial(context.Background(), cfg, protocol.JSONCodec{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// Pumps not started, so nothing drains the buffer
	if err := conn.Send(protocol.Envelope{Channel: protocol.ChannelBullet}); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if err := conn.Send(protocol.Envelope{Channel: protocol.ChannelBullet}); !errors.Is(err, ErrSendBufferFull) {
		t.Errorf("Expected ErrSendBufferFull, got %v", err)
	}
}

func TestLocalCloseIsClean(t *testing.T) {
	url := startServer(t, func(ws *websocket.Conn) { ws.ReadMessage() })
	conn, err := Dial(context.Background(), testConfig(url), protocol.JSONCodec{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn.Start(newRecordingReceiver())
	conn.Close()
	conn.Close()

	if conn.Err() != nil {
		t.Errorf("a local close is not a disconnect, got %v", conn.Err())
	}
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, testConfig("ws://127.0.0.1:1/ws"), protocol.JSONCodec{}); err == nil {
		t.Error("Expected dial to fail")
	}
}
