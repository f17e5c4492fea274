package game

// LifeState is the local player's respawn state.
type LifeState uint8

const (
	StateAlive LifeState = iota
	StateRespawnPending
)

func (s LifeState) String() string {
	if s == StateRespawnPending {
		return "respawn_pending"
	}
	return "alive"
}

// Respawn is the two-state machine gating input while the ship is down.
// Entry and exit are driven only by server messages; the client never
// ends a respawn on its own.
type Respawn struct {
	state     LifeState
	countdown int
	since     uint64 // Frame the current state was entered
}

// State returns the current state.
func (r *Respawn) State() LifeState { return r.state }

// Pending reports whether inputs must be suppressed.
func (r *Respawn) Pending() bool { return r.state == StateRespawnPending }

// Countdown returns the last countdown the server sent.
func (r *Respawn) Countdown() int { return r.countdown }

// Begin enters RespawnPending. A repeated start only refreshes the
// countdown and reports false.
func (r *Respawn) Begin(countdown int, frame uint64) bool {
	r.countdown = countdown
	if r.state == StateRespawnPending {
		return false
	}
	r.state = StateRespawnPending
	r.since = frame
	return true
}

// End returns to Alive. It reports false when already alive.
func (r *Respawn) End(frame uint64) bool {
	if r.state == StateAlive {
		return false
	}
	r.state = StateAlive
	r.countdown = 0
	r.since = frame
	return true
}

// FramesInState returns how long the machine has been in its state.
func (r *Respawn) FramesInState(frame uint64) uint64 {
	if frame < r.since {
		return 0
	}
	return frame - r.since
}
