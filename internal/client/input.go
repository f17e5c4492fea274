package client

import (
	"asteroid-arena/internal/protocol"
)

// InputKind classifies a local input event.
type InputKind uint8

const (
	InputPress InputKind = iota
	InputRelease
	InputAim
	InputFire
)

// Input is one local input event. Key is set for press and release, DX/DY
// (pointer offset from the player) for aim.
type Input struct {
	Kind   InputKind
	Key    protocol.Key
	DX, DY float64
}

// Press builds a key press input.
func Press(k protocol.Key) Input { return Input{Kind: InputPress, Key: k} }

// Release builds a key release input.
func Release(k protocol.Key) Input { return Input{Kind: InputRelease, Key: k} }

// Aim builds a pointer move input.
func Aim(dx, dy float64) Input { return Input{Kind: InputAim, DX: dx, DY: dy} }

// Fire builds a fire request input.
func Fire() Input { return Input{Kind: InputFire} }

// Controls is what an input driver may do during a frame.
type Controls interface {
	Press(k protocol.Key) bool
	Release(k protocol.Key) bool
	Aim(dx, dy float64)
	Fire() bool
	Held(k protocol.Key) bool
}

// loopControls routes input to the outbox and engine. Loop goroutine only.
type loopControls struct{ s *Session }

func (c loopControls) Press(k protocol.Key) bool   { return c.s.outbox.Press(k) }
func (c loopControls) Release(k protocol.Key) bool { return c.s.outbox.Release(k) }
func (c loopControls) Aim(dx, dy float64)          { c.s.engine.Aim(dx, dy) }
func (c loopControls) Fire() bool                  { return c.s.outbox.Fire() }
func (c loopControls) Held(k protocol.Key) bool    { return c.s.outbox.Held(k) }
