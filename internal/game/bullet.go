package game

import "math"

// BulletOrigin tells where a bullet came from.
type BulletOrigin uint8

const (
	OriginNetwork BulletOrigin = iota // Listed by the server
	OriginLocal                       // Optimistic copy spawned on fire
)

func (o BulletOrigin) String() string {
	if o == OriginLocal {
		return "local"
	}
	return "network"
}

// BulletParams are the spawn and decay constants shared by all bullets.
type BulletParams struct {
	Speed     float64 // Units per frame
	Radius    float64 // Initial radius
	Decay     float64 // k in r <- r + (0 - r) * k
	MinRadius float64 // Pruned once radius <= MinRadius
}

// Bullet travels in a straight line and shrinks every frame.
// The velocity is fixed at spawn and never follows the shooter.
type Bullet struct {
	ID        string
	ShooterID string
	Pos       Vec2
	Vel       Vec2
	Radius    float64
	Origin    BulletOrigin

	dead    bool
	decayed bool   // Died by decay rather than a hit
	diedAt  uint64 // Lifecycle frame of death
}

// NewBullet spawns a bullet at pos heading along angle.
func NewBullet(id, shooterID string, pos Vec2, angle float64, p BulletParams, origin BulletOrigin) *Bullet {
	return &Bullet{
		ID:        id,
		ShooterID: shooterID,
		Pos:       pos,
		Vel:       FromAngle(angle).Scale(p.Speed),
		Radius:    p.Radius,
		Origin:    origin,
	}
}

// Update shrinks the radius toward zero, then advances the position.
func (b *Bullet) Update(decay float64) {
	b.Radius += (0 - b.Radius) * decay
	b.Pos = b.Pos.Add(b.Vel)
}

// Diminished reports whether the bullet has decayed to the removal radius.
func (b *Bullet) Diminished(minRadius float64) bool {
	return b.Radius <= minRadius
}

// Alive reports whether the bullet is still part of the world.
func (b *Bullet) Alive(minRadius float64) bool {
	return !b.dead && !b.Diminished(minRadius)
}

// FramesToDiminish returns the number of updates after which a bullet of
// radius r0 is at or below minRadius: the smallest n with r0*(1-k)^n <= minRadius.
func FramesToDiminish(r0, k, minRadius float64) int {
	if r0 <= minRadius {
		return 0
	}
	if k <= 0 || k >= 1 || minRadius <= 0 {
		return -1
	}
	n := int(math.Ceil(math.Log(minRadius/r0) / math.Log(1-k)))
	// Guard against rounding right at the boundary.
	for r0*math.Pow(1-k, float64(n)) > minRadius {
		n++
	}
	return n
}
