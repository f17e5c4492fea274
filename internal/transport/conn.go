// Package transport is the WebSocket link to the game server. A Conn owns
// the socket: a read pump decodes frames into messages, a write pump owns
// the writer and keeps the connection alive with pings.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"asteroid-arena/internal/config"
	"asteroid-arena/internal/protocol"
)

var (
	// ErrDisconnected is wrapped by Err once the connection is gone.
	ErrDisconnected = errors.New("disconnected from server")
	// ErrNotConnected is returned by Send after the connection closed.
	ErrNotConnected = errors.New("not connected")
	// ErrSendBufferFull is returned when the write pump is behind.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Receiver gets everything the read pump produces. Calls come from the
// read pump goroutine.
type Receiver interface {
	Receive(in protocol.Incoming)
	DecodeFailed(err error)
}

// Conn is a client connection to the game server.
type Conn struct {
	ws    *websocket.Conn
	codec protocol.Codec
	cfg   config.NetworkConfig

	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	startOnce sync.Once
	wg        sync.WaitGroup

	mu  sync.Mutex
	err error
}

// Dial connects to cfg.ServerURL. The pumps are not running until Start.
func Dial(ctx context.Context, cfg config.NetworkConfig, codec protocol.Codec) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.DialTimeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}
	ws, _, err := dialer.DialContext(ctx, cfg.ServerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.ServerURL, err)
	}
	log.Printf("🔌 Connected to %s (%s)", cfg.ServerURL, codec.Name())

	size := cfg.SendBuffer
	if size <= 0 {
		size = 256
	}
	return &Conn{
		ws:    ws,
		codec: codec,
		cfg:   cfg,
		send:  make(chan []byte, size),
		done:  make(chan struct{}),
	}, nil
}

// Start launches the read and write pumps.
func (c *Conn) Start(r Receiver) {
	c.startOnce.Do(func() {
		c.wg.Add(2)
		go c.readPump(r)
		go c.writePump()
	})
}

// Send encodes env and queues it for the write pump without blocking.
func (c *Conn) Send(env protocol.Envelope) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}

	frame, err := c.codec.Encode(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Channel, err)
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Done is closed once the connection is gone.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err reports why the connection ended. It wraps ErrDisconnected, or is
// nil while connected and after a local Close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close sends a close frame and tears the connection down. Safe to call
// more than once and from any goroutine.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait()))
		err = c.ws.Close()
	})
	c.wg.Wait()
	return err
}

func (c *Conn) fail(cause error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = fmt.Errorf("%w: %v", ErrDisconnected, cause)
	}
	c.mu.Unlock()

	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

func (c *Conn) readPump(r Receiver) {
	defer c.wg.Done()

	if c.cfg.MaxMessageSize > 0 {
		c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	}
	pongWait := c.cfg.PongWait
	if pongWait > 0 {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.ws.SetPongHandler(func(string) error {
			c.ws.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
	}

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Closed locally
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("⚠️ WebSocket read error: %v", err)
				}
				c.fail(err)
			}
			return
		}
		if pongWait > 0 {
			c.ws.SetReadDeadline(time.Now().Add(pongWait))
		}

		in, err := c.codec.Decode(frame)
		if err != nil {
			r.DecodeFailed(err)
			continue
		}
		r.Receive(in)
	}
}

func (c *Conn) writePump() {
	defer c.wg.Done()

	period := c.cfg.PingPeriod
	if period <= 0 {
		period = 54 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	msgType := websocket.TextMessage
	if c.codec.Binary() {
		msgType = websocket.BinaryMessage
	}

	for {
		select {
		case <-c.done:
			return

		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeWait()))
			if err := c.ws.WriteMessage(msgType, frame); err != nil {
				c.fail(err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeWait()))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.fail(err)
				return
			}
		}
	}
}

func (c *Conn) writeWait() time.Duration {
	if c.cfg.WriteWait > 0 {
		return c.cfg.WriteWait
	}
	return 10 * time.Second
}
