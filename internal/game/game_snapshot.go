package game

import (
	"time"

	"asteroid-arena/internal/game/spatial"
)

// PlayerSnapshot is an immutable copy of the local player
type PlayerSnapshot struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Angle      float64 `json:"angle"`
	Shield     int     `json:"shield"`
	Score      int     `json:"score"`
	Level      int     `json:"level"`
	Respawning bool    `json:"respawning"`
	Countdown  int     `json:"countdown"`
	IsLeader   bool    `json:"isLeader"`
	TrailLen   int     `json:"trailLen"`

	State       string `json:"state"`
	StateFrames uint64 `json:"stateFrames"` // Frames spent in State
}

// OtherPlayerSnapshot is an immutable remote player
type OtherPlayerSnapshot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Angle    float64 `json:"angle"`
	Score    int     `json:"score"`
	Level    int     `json:"level"`
	Dead     bool    `json:"dead"`
	IsLeader bool    `json:"isLeader"`
}

// BulletSnapshot is an immutable bullet
type BulletSnapshot struct {
	ID        string  `json:"id"`
	ShooterID string  `json:"shooterId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"r"`
	Local     bool    `json:"local"`
}

// AsteroidSnapshot is an immutable asteroid
type AsteroidSnapshot struct {
	ID     uint32  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"r"`
}

// PopupSnapshot is an immutable popup
type PopupSnapshot struct {
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Alpha float64 `json:"alpha"`
}

// FoodSnapshot is an immutable food pickup
type FoodSnapshot struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"r"`
}

// HitMarkerSnapshot is the visible hit marker, if any
type HitMarkerSnapshot struct {
	TargetID   string `json:"targetId"`
	TargetName string `json:"targetName"`
	TTL        int    `json:"ttl"`
}

// Snapshot is a complete immutable view of the world after one frame.
// A new one is built every frame; readers never see it change.
type Snapshot struct {
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Frame     uint64    `json:"frame"`
	RNGSeed   int64     `json:"seed"`

	Player      PlayerSnapshot        `json:"player"`
	Others      []OtherPlayerSnapshot `json:"others"`
	Bullets     []BulletSnapshot      `json:"bullets"`
	Asteroids   []AsteroidSnapshot    `json:"asteroids"`
	Leaderboard []LeaderboardEntry    `json:"leaderboard"`
	Food        []FoodSnapshot        `json:"food"`
	Popups      []PopupSnapshot       `json:"popups"`
	Killfeed    []KillfeedEntry       `json:"killfeed"`
	HitMarker   *HitMarkerSnapshot    `json:"hitMarker,omitempty"`

	Grid         spatial.GridStats `json:"grid"`
	Explosions   int               `json:"explosions"`
	PendingShots int               `json:"pendingShots"` // Optimistic shots the server has not listed yet
}

// GetSnapshot returns the latest published snapshot. Safe from any goroutine.
func (e *Engine) GetSnapshot() *Snapshot {
	return e.snapshot.Load()
}

// GetState builds a snapshot of the current state without publishing it.
// Loop goroutine only.
func (e *Engine) GetState() *Snapshot {
	return e.buildSnapshot()
}

func (e *Engine) publishSnapshot() {
	e.snapshot.Store(e.buildSnapshot())
}

func (e *Engine) buildSnapshot() *Snapshot {
	e.sequence++
	p := e.player
	leaderID := e.mirrors.LeaderID()

	snap := &Snapshot{
		Sequence:  e.sequence,
		Timestamp: time.Now(),
		Frame:     e.frame,
		RNGSeed:   e.rngSeed,
		Player: PlayerSnapshot{
			ID:         p.ID,
			Name:       p.Name,
			X:          p.Pos.X,
			Y:          p.Pos.Y,
			Angle:      p.Angle,
			Shield:     p.Shield,
			Score:      p.Score,
			Level:      p.Level,
			Respawning: p.Respawning,
			Countdown:  e.respawn.Countdown(),
			IsLeader:   p.ID != "" && p.ID == leaderID,
			TrailLen:   len(p.Trail),

			State:       e.respawn.State().String(),
			StateFrames: e.respawn.FramesInState(e.frame),
		},
		Leaderboard:  e.mirrors.Leaderboard(),
		Killfeed:     e.killfeed.Entries(),
		Grid:         e.life.GridStats(),
		Explosions:   e.explosions,
		PendingShots: e.life.PendingShots(),
	}

	others := e.mirrors.Others()
	snap.Others = make([]OtherPlayerSnapshot, 0, len(others))
	for _, o := range others {
		snap.Others = append(snap.Others, OtherPlayerSnapshot{
			ID:       o.ID,
			Name:     o.Name,
			X:        o.Pos.X,
			Y:        o.Pos.Y,
			Angle:    o.Angle,
			Score:    o.Score,
			Level:    o.Level,
			Dead:     o.Dead(),
			IsLeader: o.ID == leaderID,
		})
	}

	bullets := e.life.Bullets()
	snap.Bullets = make([]BulletSnapshot, 0, len(bullets))
	for _, b := range bullets {
		snap.Bullets = append(snap.Bullets, BulletSnapshot{
			ID:        b.ID,
			ShooterID: b.ShooterID,
			X:         b.Pos.X,
			Y:         b.Pos.Y,
			Radius:    b.Radius,
			Local:     b.Origin == OriginLocal,
		})
	}

	asteroids := e.life.Asteroids()
	snap.Asteroids = make([]AsteroidSnapshot, 0, len(asteroids))
	for _, a := range asteroids {
		snap.Asteroids = append(snap.Asteroids, AsteroidSnapshot{ID: a.ID, X: a.Pos.X, Y: a.Pos.Y, Radius: a.Radius})
	}

	food := e.mirrors.Food()
	snap.Food = make([]FoodSnapshot, 0, len(food))
	for _, f := range food {
		snap.Food = append(snap.Food, FoodSnapshot{ID: f.ID, X: f.Pos.X, Y: f.Pos.Y, Radius: f.Radius})
	}

	snap.Popups = make([]PopupSnapshot, 0, len(e.popups))
	for _, pop := range e.popups {
		snap.Popups = append(snap.Popups, PopupSnapshot{Text: pop.Text, X: pop.Pos.X, Y: pop.Pos.Y, Alpha: pop.Alpha()})
	}

	if e.hitMarker.Active() {
		snap.HitMarker = &HitMarkerSnapshot{
			TargetID:   e.hitMarker.TargetID,
			TargetName: e.hitMarker.TargetName,
			TTL:        e.hitMarker.TTL,
		}
	}

	return snap
}
