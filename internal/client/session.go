// Package client runs a game session: it owns the engine on a single loop
// goroutine and feeds it from the network and from local input through a
// lock-free inbox.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"asteroid-arena/internal/config"
	"asteroid-arena/internal/game"
	"asteroid-arena/internal/game/spatial"
	"asteroid-arena/internal/netsync"
	"asteroid-arena/internal/protocol"
	"asteroid-arena/internal/transport"
)

// Connection is the server link a session drives. *transport.Conn
// implements it.
type Connection interface {
	netsync.Sender
	Start(r transport.Receiver)
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Recorder observes the session for metrics. Every method must be safe for
// concurrent use.
type Recorder interface {
	netsync.Metrics
	Frame(rep game.FrameReport)
	DecodeError(err error)
	InboxDropped()
	World(snap *game.Snapshot, journal *game.EventLog)
}

// NopRecorder discards everything.
type NopRecorder struct{ netsync.NopMetrics }

func (NopRecorder) Frame(game.FrameReport)               {}
func (NopRecorder) DecodeError(error)                    {}
func (NopRecorder) InboxDropped()                        {}
func (NopRecorder) World(*game.Snapshot, *game.EventLog) {}

// worldEvery is how often, in frames, world gauges are refreshed.
const worldEvery = 30

type itemKind uint8

const (
	itemMessage itemKind = iota
	itemInput
	itemDecodeError
)

type inboxItem struct {
	kind  itemKind
	in    protocol.Incoming
	input Input
	err   error
}

// Session wires an engine to a server connection.
type Session struct {
	cfg    config.AppConfig
	engine *game.Engine
	conn   Connection

	outbox *netsync.Outbox
	sync   *netsync.Synchronizer

	inbox    *spatial.LockFreeQueue[inboxItem]
	drainBuf []inboxItem

	recorder  Recorder
	autopilot *Autopilot

	decodeErrors atomic.Uint64
	inboxDrops   atomic.Uint64
	warn         *rate.Limiter
}

// NewSession creates a session. rec may be nil.
func NewSession(cfg config.AppConfig, engine *game.Engine, conn Connection, rec Recorder) *Session {
	if rec == nil {
		rec = NopRecorder{}
	}
	capacity := cfg.Network.InboxCapacity
	if capacity <= 0 {
		capacity = 4096
	}
	out := netsync.NewOutbox(conn, engine, cfg.Simulation.FireCooldownFrames, rec)
	return &Session{
		cfg:      cfg,
		engine:   engine,
		conn:     conn,
		outbox:   out,
		sync:     netsync.NewSynchronizer(engine, out, rec),
		inbox:    spatial.NewLockFreeQueue[inboxItem](capacity),
		drainBuf: make([]inboxItem, 256),
		recorder: rec,
		warn:     rate.NewLimiter(rate.Every(5*time.Second), 3),
	}
}

// SetAutopilot installs a scripted input driver, stepped once per frame on
// the loop goroutine.
func (s *Session) SetAutopilot(a *Autopilot) { s.autopilot = a }

// Engine returns the engine. Outside the loop goroutine only GetSnapshot
// may be called on it.
func (s *Session) Engine() *game.Engine { return s.engine }

// Run registers the player and runs the frame loop until ctx is done or
// the connection drops. A dropped connection returns an error wrapping
// transport.ErrDisconnected.
func (s *Session) Run(ctx context.Context) error {
	s.conn.Start(s)
	if err := s.outbox.Register(); err != nil {
		s.conn.Close()
		return fmt.Errorf("register player: %w", err)
	}

	p := s.engine.Player()
	s.engine.Record(game.EventTypeSessionStart, "", game.SessionPayload{
		Name:   p.Name,
		SpawnX: p.Pos.X,
		SpawnY: p.Pos.Y,
		Seed:   s.engine.Seed(),
	})
	log.Printf("🚀 Session started as %q at (%.0f, %.0f), seed %d", p.Name, p.Pos.X, p.Pos.Y, s.engine.Seed())

	ticker := time.NewTicker(s.cfg.Simulation.FrameInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.conn.Close()
			log.Printf("🛑 Session stopped after %d frames", s.engine.Frame())
			return ctx.Err()

		case <-s.conn.Done():
			s.drain()
			err := s.conn.Err()
			if err == nil {
				err = transport.ErrDisconnected
			}
			log.Printf("🔌 Connection lost after %d frames: %v", s.engine.Frame(), err)
			return fmt.Errorf("session: %w", err)

		case <-ticker.C:
			s.Step()
		}
	}
}

// Step runs one frame: drain the inbox, step the autopilot, tick the
// engine. Loop goroutine only.
func (s *Session) Step() game.FrameReport {
	s.drain()
	if s.autopilot != nil {
		s.autopilot.Step(s.engine.Frame()+1, loopControls{s})
	}
	rep := s.engine.Tick(s.outbox)
	s.recorder.Frame(rep)
	if rep.Frame%worldEvery == 0 {
		s.recorder.World(s.engine.GetSnapshot(), s.engine.GetEventLog())
	}
	return rep
}

func (s *Session) drain() {
	for {
		n := s.inbox.DrainTo(s.drainBuf)
		for i := 0; i < n; i++ {
			s.apply(s.drainBuf[i])
			s.drainBuf[i] = inboxItem{}
		}
		if n < len(s.drainBuf) {
			return
		}
	}
}

func (s *Session) apply(it inboxItem) {
	switch it.kind {
	case itemMessage:
		s.sync.Apply(it.in)
	case itemInput:
		s.applyInput(it.input)
	case itemDecodeError:
		var de *protocol.DecodeError
		ch := ""
		if errors.As(it.err, &de) {
			ch = string(de.Channel)
		}
		s.engine.Record(game.EventTypeDecodeError, ch, map[string]string{"error": it.err.Error()})
	}
}

func (s *Session) applyInput(in Input) {
	c := loopControls{s}
	switch in.Kind {
	case InputPress:
		c.Press(in.Key)
	case InputRelease:
		c.Release(in.Key)
	case InputAim:
		c.Aim(in.DX, in.DY)
	case InputFire:
		c.Fire()
	}
}

func (s *Session) push(it inboxItem) bool {
	if s.inbox.TryPush(it) {
		return true
	}
	s.inboxDrops.Add(1)
	s.recorder.InboxDropped()
	if s.warn.Allow() {
		log.Printf("⚠️ Inbox full (%d), dropping input", s.inbox.Cap())
	}
	return false
}

// =============================================================================
// transport.Receiver (read pump goroutine)
// =============================================================================

// Receive queues a decoded message for the next frame.
func (s *Session) Receive(in protocol.Incoming) {
	s.push(inboxItem{kind: itemMessage, in: in})
}

// DecodeFailed counts a dropped frame. The session keeps running.
func (s *Session) DecodeFailed(err error) {
	s.decodeErrors.Add(1)
	s.recorder.DecodeError(err)
	if s.warn.Allow() {
		log.Printf("⚠️ Dropped frame: %v", err)
	}
	s.push(inboxItem{kind: itemDecodeError, err: err})
}

// =============================================================================
// LOCAL INPUT (any goroutine)
// =============================================================================

// Submit queues a local input event. It returns false when the inbox is full.
func (s *Session) Submit(in Input) bool {
	return s.push(inboxItem{kind: itemInput, input: in})
}

// SessionStats are counters safe to read from any goroutine.
type SessionStats struct {
	DecodeErrors uint64
	InboxDrops   uint64
	InboxLen     int
}

// Stats returns the session counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		DecodeErrors: s.decodeErrors.Load(),
		InboxDrops:   s.inboxDrops.Load(),
		InboxLen:     s.inbox.Len(),
	}
}
