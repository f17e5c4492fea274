package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Name bounds enforced before a session starts
const (
	MinNameLength = 2
	MaxNameLength = 14
)

// ErrInvalidName is returned when a display name is out of range.
var ErrInvalidName = errors.New("invalid player name")

// ValidateName trims surrounding spaces and checks length and charset.
// Only printable ASCII (0x20-0x7E) is accepted.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < MinNameLength || len(name) > MaxNameLength {
		return "", fmt.Errorf("%w: length %d not in [%d,%d]", ErrInvalidName, len(name), MinNameLength, MaxNameLength)
	}
	for i := 0; i < len(name); i++ {
		if c := name[i]; c < 0x20 || c > 0x7e {
			return "", fmt.Errorf("%w: byte 0x%02x at %d", ErrInvalidName, c, i)
		}
	}
	return name, nil
}

// Controls is the set of held movement keys.
type Controls struct {
	Up, Down, Left, Right bool
	Boost                 bool
}

// Direction returns the unnormalized movement direction of the held keys.
func (c Controls) Direction() Vec2 {
	var d Vec2
	if c.Up {
		d.Y--
	}
	if c.Down {
		d.Y++
	}
	if c.Left {
		d.X--
	}
	if c.Right {
		d.X++
	}
	return d
}

// Player is the local ship. Position and heading are predicted every frame;
// shield, score and level come from the server.
type Player struct {
	ID    string // Assigned by the server, empty until welcome
	Name  string
	Pos   Vec2
	Angle float64 // Radians, derived from the pointer each frame

	Shield int
	Score  int
	Level  int

	Respawning bool

	Trail []Vec2

	pointer Vec2 // Pointer offset from the view center
}

// NewPlayer creates the local player. The name must already be validated.
func NewPlayer(name string, pos Vec2, shield, trailCapacity int) *Player {
	return &Player{
		Name:   name,
		Pos:    pos,
		Shield: shield,
		Level:  1,
		Trail:  make([]Vec2, 0, trailCapacity+trailCapacity/10+1),
	}
}

// Aim stores the pointer offset relative to the view center.
// The heading is recomputed from it in UpdateHeading.
func (p *Player) Aim(dx, dy float64) {
	p.pointer = Vec2{dx, dy}
}

// UpdateHeading derives the heading angle from the stored pointer.
func (p *Player) UpdateHeading() {
	p.Angle = math.Atan2(p.pointer.Y, p.pointer.X)
}

// UpdateTrail pushes batch copies of the current position and drops the
// batch oldest entries once the trail grows past capacity.
func (p *Player) UpdateTrail(capacity, batch int) {
	for i := 0; i < batch; i++ {
		p.Trail = append(p.Trail, p.Pos)
	}
	if len(p.Trail) > capacity {
		drop := batch
		if drop > len(p.Trail) {
			drop = len(p.Trail)
		}
		n := copy(p.Trail, p.Trail[drop:])
		p.Trail = p.Trail[:n]
	}
}

// Move predicts one frame of movement from the held keys.
// Boost multiplies the speed while the shield is positive.
func (p *Player) Move(c Controls, speed, boost float64) {
	d := c.Direction()
	if d.X == 0 && d.Y == 0 {
		return
	}
	if l := d.Len(); l > 0 {
		d = d.Scale(1 / l)
	}
	if c.Boost && p.Shield > 0 {
		speed *= boost
	}
	p.Pos = p.Pos.Add(d.Scale(speed))
}

// AdjustShield applies a signed delta clamped to [0, max] and returns the
// change actually applied.
func (p *Player) AdjustShield(delta, max int) int {
	before := p.Shield
	p.Shield += delta
	if p.Shield < 0 {
		p.Shield = 0
	}
	if max > 0 && p.Shield > max {
		p.Shield = max
	}
	return p.Shield - before
}

// Depleted reports whether the shield has run out.
func (p *Player) Depleted() bool {
	return p.Shield <= 0
}
