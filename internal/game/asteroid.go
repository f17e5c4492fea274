package game

import (
	"math"
	"math/rand"
)

// SplitParams controls how a destroyed asteroid breaks apart.
type SplitParams struct {
	Threshold float64 // Split only when radius > Threshold
	Children  int
	Ratio     float64 // Child radius = parent * Ratio ...
	MinRadius float64 // ... but never below MinRadius
	Spread    float64 // Angle between parent heading and each child
}

// Asteroid drifts at constant velocity and wraps at the world bounds.
type Asteroid struct {
	ID     uint32
	Pos    Vec2
	Vel    Vec2
	Radius float64

	dead     bool
	touching bool // Overlapped the local player last frame
}

// Update advances the asteroid and wraps it into the world.
func (a *Asteroid) Update(worldW, worldH float64) {
	a.Pos = a.Pos.Add(a.Vel).Wrap(worldW, worldH)
}

// Alive reports whether the asteroid has not been destroyed.
func (a *Asteroid) Alive() bool {
	return !a.dead
}

// ShouldSplit reports whether destroying a produces children.
func (a *Asteroid) ShouldSplit(p SplitParams) bool {
	return a.Radius > p.Threshold && p.Children > 0
}

// ChildRadius returns the radius every child of a gets.
// It is always strictly below the parent radius.
func (a *Asteroid) ChildRadius(p SplitParams) float64 {
	r := math.Max(a.Radius*p.Ratio, p.MinRadius)
	if r >= a.Radius {
		r = a.Radius * p.Ratio
	}
	return r
}

// Split returns the children of a, or nil when it is at or below the
// threshold. Children fan out symmetrically around the parent heading;
// a stationary parent gets a random heading from rng.
func (a *Asteroid) Split(p SplitParams, rng *rand.Rand) []*Asteroid {
	if !a.ShouldSplit(p) {
		return nil
	}

	speed := a.Vel.Len()
	heading := a.Vel.Heading()
	if speed == 0 {
		speed = 1
		heading = rng.Float64() * 2 * math.Pi
	}

	r := a.ChildRadius(p)
	children := make([]*Asteroid, 0, p.Children)
	for i := 0; i < p.Children; i++ {
		var offset float64
		if p.Children == 1 {
			offset = 0
		} else {
			// Evenly spaced in [-Spread, +Spread]
			offset = -p.Spread + 2*p.Spread*float64(i)/float64(p.Children-1)
		}
		if p.Children == 2 && p.Spread == 0 {
			offset = float64(i) * math.Pi
		}
		children = append(children, &Asteroid{
			Pos:    a.Pos,
			Vel:    FromAngle(heading + offset).Scale(speed * 1.5),
			Radius: r,
		})
	}
	return children
}
