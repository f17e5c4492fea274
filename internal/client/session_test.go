package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"asteroid-arena/internal/config"
	"asteroid-arena/internal/game"
	"asteroid-arena/internal/protocol"
	"asteroid-arena/internal/transport"
)

// fakeConn is an in-memory Connection.
type fakeConn struct {
	mu     sync.Mutex
	sent   []protocol.Envelope
	recv   transport.Receiver
	done   chan struct{}
	err    error
	closed bool
	once   sync.Once
}

func newFakeConn() *fakeConn { return &fakeConn{done: make(chan struct{})} }

func (f *fakeConn) Send(env protocol.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeConn) Start(r transport.Receiver) {
	f.mu.Lock()
	f.recv = r
	f.mu.Unlock()
}

func (f *fakeConn) Done() <-chan struct{} { return f.done }

func (f *fakeConn) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
	return nil
}

// drop simulates the server going away.
func (f *fakeConn) drop(cause error) {
	f.mu.Lock()
	f.err = fmt.Errorf("%w: %v", transport.ErrDisconnected, cause)
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
}

func (f *fakeConn) count(ch protocol.Channel) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, env := range f.sent {
		if env.Channel == ch {
			n++
		}
	}
	return n
}

func testAppConfig() config.AppConfig {
	sim := config.DefaultSimulation()
	sim.AsteroidCount = 0
	sim.RandomSeed = 11
	return config.AppConfig{
		Simulation: sim,
		Network:    config.DefaultNetwork(),
		Spatial:    config.DefaultSpatial(),
		Journal:    config.DefaultJournal(),
		Debug:      config.DefaultDebug(),
		Autopilot:  config.DefaultAutopilot(),
	}
}

func newTestSession(t *testing.T, cfg config.AppConfig) (*Session, *fakeConn, *game.EventLog) {
	t.Helper()
	journal := game.NewEventLog(cfg.Journal)
	if err := journal.Start(""); err != nil {
		t.Fatalf("journal: %v", err)
	}
	t.Cleanup(journal.Stop)
	e := game.NewEngine(cfg.Simulation, cfg.Spatial, "pilot", journal)
	conn := newFakeConn()
	return NewSession(cfg, e, conn, nil), conn, journal
}

// =============================================================================
// FRAME STEP
// =============================================================================

func TestStepAppliesQueuedMessages(t *testing.T) {
	s, _, _ := newTestSession(t, testAppConfig())

	s.Receive(protocol.Incoming{Message: protocol.Welcome{ID: "me"}})
	s.Receive(protocol.Incoming{Message: protocol.Heartbeat{Players: []protocol.RemotePlayerState{
		{ID: "other", Name: "rival", X: 10, Y: 10},
	}}})

	if s.Engine().LocalID() != "" {
		t.Fatal("messages must wait for the next frame")
	}
	rep := s.Step()
	if rep.Frame != 1 {
		t.Errorf("Expected frame 1, got %d", rep.Frame)
	}
	if s.Engine().LocalID() != "me" {
		t.Errorf("Expected local id me, got %q", s.Engine().LocalID())
	}
	if n := len(s.Engine().GetSnapshot().Others); n != 1 {
		t.Errorf("Expected 1 other player, got %d", n)
	}
}

func TestSubmittedInputReachesServer(t *testing.T) {
	s, conn, _ := newTestSession(t, testAppConfig())

	s.Submit(Press(protocol.KeyUp))
	s.Submit(Aim(0, -50))
	s.Submit(Fire())
	s.Step()

	if conn.count(protocol.ChannelKeyPressed) != 1 {
		t.Error("Expected a keyPressed message")
	}
	if conn.count(protocol.ChannelBullet) != 1 {
		t.Error("Expected a bullet request")
	}
	if conn.count(protocol.ChannelAngle) != 1 {
		t.Error("Expected one angle per frame")
	}

	snap := s.Engine().GetSnapshot()
	if len(snap.Bullets) != 1 || !snap.Bullets[0].Local {
		t.Errorf("Expected one optimistic local bullet, got %+v", snap.Bullets)
	}
}

func TestDecodeFailureIsJournaled(t *testing.T) {
	s, _, journal := newTestSession(t, testAppConfig())

	s.DecodeFailed(&protocol.DecodeError{Channel: protocol.ChannelBullets, Err: errors.New("bad")})
	s.Step()

	if got := s.Stats().DecodeErrors; got != 1 {
		t.Errorf("Expected 1 decode error, got %d", got)
	}
	found := false
	for _, ev := range journal.Recent(0) {
		if ev.Type == game.EventTypeDecodeError && ev.Channel == string(protocol.ChannelBullets) {
			found = true
		}
	}
	if !found {
		t.Error("decode error was not journaled")
	}
}

func TestInboxFullDrops(t *testing.T) {
	cfg := testAppConfig()
	cfg.Network.InboxCapacity = 4
	s, _, _ := newTestSession(t, cfg)

	accepted := 0
	for i := 0; i < 10; i++ {
		if s.Submit(Aim(1, 0)) {
			accepted++
		}
	}
	if accepted != 4 {
		t.Errorf("Expected 4 accepted, got %d", accepted)
	}
	if got := s.Stats().InboxDrops; got != 6 {
		t.Errorf("Expected 6 drops, got %d", got)
	}

	s.Step()
	if got := s.Stats().InboxLen; got != 0 {
		t.Errorf("Expected an empty inbox after a frame, got %d", got)
	}
}

// =============================================================================
// RUN LOOP
// =============================================================================

func TestRunEndsOnDisconnect(t *testing.T) {
	s, conn, _ := newTestSession(t, testAppConfig())

	errc := make(chan error, 1)
	go func() { errc <- s.Run(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	conn.drop(errors.New("eof"))

	select {
	case err := <-errc:
		if !errors.Is(err, transport.ErrDisconnected) {
			t.Errorf("Expected ErrDisconnected, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after disconnect")
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.sent) == 0 || conn.sent[0].Channel != protocol.ChannelPlayer {
		t.Fatalf("Expected registration first, got %+v", conn.sent)
	}
	reg, ok := conn.sent[0].Payload.(protocol.PlayerRegistration)
	if !ok || reg.Name != "pilot" {
		t.Errorf("Expected registration for pilot, got %+v", conn.sent[0].Payload)
	}
	if conn.recv == nil {
		t.Error("connection was never started")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, conn, _ := newTestSession(t, testAppConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if !conn.closed {
		t.Error("connection should be closed on shutdown")
	}
}

// =============================================================================
// AUTOPILOT
// =============================================================================

type scriptControls struct {
	log  []string
	held map[protocol.Key]bool
}

func (c *scriptControls) Press(k protocol.Key) bool {
	c.log = append(c.log, "press "+string(k))
	if c.held == nil {
		c.held = make(map[protocol.Key]bool)
	}
	c.held[k] = true
	return true
}

func (c *scriptControls) Release(k protocol.Key) bool {
	c.log = append(c.log, "release "+string(k))
	delete(c.held, k)
	return true
}

func (c *scriptControls) Held(k protocol.Key) bool { return c.held[k] }

func (c *scriptControls) Aim(dx, dy float64) {}

func (c *scriptControls) Fire() bool {
	c.log = append(c.log, "fire")
	return true
}

func TestAutopilotDeterministic(t *testing.T) {
	cfg := config.DefaultAutopilot()
	a, b := NewAutopilot(cfg, 42), NewAutopilot(cfg, 42)
	ca, cb := &scriptControls{}, &scriptControls{}

	for f := uint64(1); f <= 600; f++ {
		a.Step(f, ca)
		b.Step(f, cb)
	}

	if len(ca.log) != len(cb.log) {
		t.Fatalf("Same seed diverged: %d vs %d actions", len(ca.log), len(cb.log))
	}
	for i := range ca.log {
		if ca.log[i] != cb.log[i] {
			t.Fatalf("Same seed diverged at %d: %q vs %q", i, ca.log[i], cb.log[i])
		}
	}

	fires := 0
	for _, entry := range ca.log {
		if entry == "fire" {
			fires++
		}
	}
	if want := 600 / cfg.FireEvery; fires != want {
		t.Errorf("Expected %d fire attempts, got %d", want, fires)
	}

	steering := 0
	for _, k := range steerKeys {
		if ca.held[k] {
			steering++
		}
	}
	if steering != 1 {
		t.Errorf("Expected exactly one direction key held, got %d", steering)
	}
}

func TestAutopilotDrivesSession(t *testing.T) {
	cfg := testAppConfig()
	s, conn, _ := newTestSession(t, cfg)
	s.SetAutopilot(NewAutopilot(cfg.Autopilot, 7))

	for i := 0; i < 120; i++ {
		s.Step()
	}

	if conn.count(protocol.ChannelKeyPressed) == 0 {
		t.Error("autopilot never pressed a key")
	}
	if conn.count(protocol.ChannelBullet) == 0 {
		t.Error("autopilot never fired")
	}
}
