package client

import (
	"math"
	"math/rand"

	"asteroid-arena/internal/config"
	"asteroid-arena/internal/protocol"
)

var steerKeys = [...]protocol.Key{
	protocol.KeyUp,
	protocol.KeyDown,
	protocol.KeyLeft,
	protocol.KeyRight,
}

// Autopilot is a scripted player for headless runs and soak tests. It
// sweeps the aim, wanders between direction keys and fires on a schedule.
// Runs are reproducible for a given seed.
type Autopilot struct {
	cfg   config.AutopilotConfig
	rng   *rand.Rand
	angle float64
	steer protocol.Key
}

// NewAutopilot creates an autopilot seeded with seed.
func NewAutopilot(cfg config.AutopilotConfig, seed int64) *Autopilot {
	if cfg.FireEvery <= 0 {
		cfg.FireEvery = 30
	}
	if cfg.SteerEvery <= 0 {
		cfg.SteerEvery = 120
	}
	return &Autopilot{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Step drives c for frame.
func (a *Autopilot) Step(frame uint64, c Controls) {
	a.angle = math.Mod(a.angle+a.cfg.TurnRate, 2*math.Pi)
	c.Aim(math.Cos(a.angle)*100, math.Sin(a.angle)*100)

	if frame%uint64(a.cfg.SteerEvery) == 1 {
		next := steerKeys[a.rng.Intn(len(steerKeys))]
		if a.steer != "" && a.steer != next && c.Held(a.steer) {
			c.Release(a.steer)
		}
		a.steer = next
		c.Press(next)

		boost := a.rng.Float64() < a.cfg.BoostChance
		if boost != c.Held(protocol.KeySpacebar) {
			if boost {
				c.Press(protocol.KeySpacebar)
			} else {
				c.Release(protocol.KeySpacebar)
			}
		}
	}

	if frame%uint64(a.cfg.FireEvery) == 0 {
		c.Fire()
	}
}
