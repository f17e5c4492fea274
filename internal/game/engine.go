package game

import (
	"fmt"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"asteroid-arena/internal/config"
	"asteroid-arena/internal/game/spatial"
)

// Outbox receives what a frame wants to tell the server. Calls happen on
// the frame loop goroutine, in frame order.
type Outbox interface {
	BeginFrame(frame uint64)
	BulletExpired(b *Bullet)
	AsteroidContact(a *Asteroid)
	Angle(theta float64)
}

// FrameReport summarizes one Tick.
type FrameReport struct {
	Frame        uint64
	Expired      int
	Contacts     int
	AsteroidHits []AsteroidHit
	PlayerHits   []string // Ids of foreign bullets that reached the local player
	Duration     time.Duration
}

// NetworkBullet is a bullet as listed by the server.
type NetworkBullet struct {
	ID        string
	ShooterID string
	Pos       Vec2
	Angle     float64
}

// BulletMerge summarizes one bullets list.
type BulletMerge struct {
	Added   int
	Adopted int
	Spent   int      // Own shots whose optimistic copy already hit something
	Decayed []string // Own shots whose optimistic copy already decayed
}

// LocalState is the server's view of the local player, taken from the
// heartbeat entry carrying the local id.
type LocalState struct {
	Pos    Vec2
	Angle  float64
	Score  int
	Level  int
	Shield *int // nil leaves the predicted shield alone
}

// Engine is the client-side world: the local player, the lifecycle store,
// the server mirrors and the UI state. It is owned by a single goroutine;
// every exported method except GetSnapshot must be called from it.
type Engine struct {
	cfg config.SimulationConfig

	player    *Player
	life      *Lifecycle
	mirrors   *Mirrors
	respawn   Respawn
	controls  Controls
	popups    []*Popup
	killfeed  *Killfeed
	hitMarker HitMarker

	frame      uint64
	explosions int

	rngSeed int64

	eventLog *EventLog

	// Latest published snapshot, read lock-free by the debug server
	snapshot atomic.Pointer[Snapshot]
	sequence uint64
}

// NewEngine creates the world for a validated player name and spawns the
// initial asteroid field. eventLog may be nil.
func NewEngine(cfg config.SimulationConfig, sp config.SpatialConfig, name string, eventLog *EventLog) *Engine {
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	lifetime := FramesToDiminish(cfg.BulletRadius, cfg.BulletDecay, cfg.BulletMinRadius)
	if lifetime < 0 {
		lifetime = 0
	}

	var grid *spatial.Grid
	if sp.Enabled {
		grid = spatial.NewGrid(cfg.WorldWidth, cfg.WorldHeight, sp.CellSize, sp.MaxEntities)
	}

	life := NewLifecycle(LifecycleParams{
		Bullet: BulletParams{
			Speed:     cfg.BulletSpeed,
			Radius:    cfg.BulletRadius,
			Decay:     cfg.BulletDecay,
			MinRadius: cfg.BulletMinRadius,
		},
		Split: SplitParams{
			Threshold: cfg.SplitThreshold,
			Children:  cfg.SplitChildren,
			Ratio:     cfg.SplitRatio,
			MinRadius: cfg.ChildMinRadius,
			Spread:    cfg.SplitSpread,
		},
		WorldWidth:      cfg.WorldWidth,
		WorldHeight:     cfg.WorldHeight,
		SpawnMinRadius:  cfg.AsteroidMinRadius,
		SpawnMaxRadius:  cfg.AsteroidMaxRadius,
		MaxSpeed:        cfg.AsteroidMaxSpeed,
		TombstoneFrames: uint64(2 * lifetime),
	}, grid, rng)

	spawn := Vec2{rng.Float64() * cfg.ViewWidth * 3, rng.Float64() * cfg.ViewHeight * 3}

	e := &Engine{
		cfg:      cfg,
		player:   NewPlayer(name, spawn, cfg.InitialShield, cfg.TrailCapacity),
		life:     life,
		mirrors:  NewMirrors(cfg.DepartedEvictHeartbeats),
		killfeed: NewKillfeed(cfg.KillfeedMax, cfg.KillfeedFrames),
		popups:   make([]*Popup, 0, 16),
		rngSeed:  seed,
		eventLog: eventLog,
	}
	life.SpawnAsteroids(cfg.AsteroidCount)
	e.publishSnapshot()
	return e
}

// Tick runs one frame in the fixed order: prediction, bullets, asteroids
// and asteroid x player, bullet x asteroid, bullet x player, player
// display state, popups, food, killfeed and hit marker, outbound angle.
func (e *Engine) Tick(out Outbox) FrameReport {
	start := time.Now()
	e.frame++
	out.BeginFrame(e.frame)

	rep := FrameReport{Frame: e.frame}
	p := e.player
	pending := e.respawn.Pending()

	if !pending {
		p.Move(e.controls, e.cfg.MoveSpeed, e.cfg.BoostMultiplier)
	}

	rep.Expired = e.life.UpdateBullets(func(b *Bullet) {
		// The server never heard of optimistic bullets
		if b.Origin == OriginNetwork {
			out.BulletExpired(b)
			e.emit(EventTypeBulletExpired, "bullet", map[string]string{"id": b.ID})
		}
	})

	e.life.UpdateAsteroids()
	e.life.CollideAsteroidsPlayer(p, e.cfg.PlayerRadius, func(a *Asteroid) {
		if pending {
			return
		}
		rep.Contacts++
		out.AsteroidContact(a)
		e.addPopup(fmt.Sprintf("-%d", e.cfg.AsteroidDamage), e.cfg.PopupFrames)
		e.emit(EventTypeAsteroidContact, "asteroid", AsteroidPayload{AsteroidID: a.ID, Radius: a.Radius})
	})

	rep.AsteroidHits = e.life.CollideBulletsAsteroids()
	for _, h := range rep.AsteroidHits {
		e.emit(EventTypeAsteroidDestroyed, "asteroid", AsteroidPayload{
			AsteroidID: h.AsteroidID,
			BulletID:   h.BulletID,
			Radius:     h.Radius,
			Children:   h.Children,
		})
	}

	if !pending {
		for _, b := range e.life.CollideBulletsPlayer(p, e.cfg.PlayerRadius) {
			rep.PlayerHits = append(rep.PlayerHits, b.ID)
		}
	}

	p.UpdateHeading()
	p.UpdateTrail(e.cfg.TrailCapacity, e.cfg.TrailBatch)

	e.updatePopups()
	e.killfeed.Update()
	e.hitMarker.Update()

	out.Angle(p.Angle)

	e.publishSnapshot()
	rep.Duration = time.Since(start)
	return rep
}

func (e *Engine) updatePopups() {
	n := 0
	for _, pop := range e.popups {
		pop.Update()
		if !pop.Visible {
			continue
		}
		e.popups[n] = pop
		n++
	}
	for i := n; i < len(e.popups); i++ {
		e.popups[i] = nil
	}
	e.popups = e.popups[:n]
}

func (e *Engine) addPopup(text string, ttl int) {
	e.popups = append(e.popups, NewPopup(text, e.player.Pos, ttl))
}

func (e *Engine) emit(t EventType, channel string, payload interface{}) {
	if e.eventLog != nil {
		e.eventLog.EmitSimple(t, e.frame, channel, payload)
	}
}

// =============================================================================
// LOCAL INPUT
// =============================================================================

// SetControls replaces the held movement keys used for prediction.
func (e *Engine) SetControls(c Controls) { e.controls = c }

// Aim stores the pointer offset from the view center.
func (e *Engine) Aim(dx, dy float64) { e.player.Aim(dx, dy) }

// FireLocal spawns an optimistic bullet from the local player along the
// current heading. The caller enforces cooldown and respawn gating.
func (e *Engine) FireLocal(id string) *Bullet {
	p := e.player
	b := NewBullet(id, p.ID, p.Pos, p.Angle, e.life.params.Bullet, OriginLocal)
	e.life.AddBullet(b)
	return b
}

// =============================================================================
// MERGES FROM THE SYNCHRONIZATION LAYER
// =============================================================================

// SetLocalID records the id the server assigned to this client.
func (e *Engine) SetLocalID(id string) {
	if e.player.ID != "" && e.player.ID != id {
		log.Printf("⚠️ Local id changed from %s to %s", e.player.ID, id)
	}
	e.player.ID = id
	e.life.AssignShooter(id)
}

// LocalID returns the server-assigned id, "" before welcome.
func (e *Engine) LocalID() string { return e.player.ID }

// MergeOthers applies a heartbeat to the remote player mirror.
func (e *Engine) MergeOthers(states []OtherPlayer) int {
	changed, evicted := e.mirrors.MergeOthers(states)
	for _, id := range evicted {
		e.emit(EventTypeDeparted, "player", map[string]string{"id": id, "reason": "absent"})
	}
	return changed
}

// RemoveOther deletes a disconnected player.
func (e *Engine) RemoveOther(id string) bool {
	if !e.mirrors.RemoveOther(id) {
		return false
	}
	e.emit(EventTypeDeparted, "player", map[string]string{"id": id})
	return true
}

// ReconcileLocal adopts the server's view of the local player. Position
// snaps to the server; prediction resumes from there.
func (e *Engine) ReconcileLocal(s LocalState) {
	p := e.player
	p.Pos = s.Pos
	p.Score = s.Score
	if s.Level > 0 {
		p.Level = s.Level
	}
	if s.Shield != nil && *s.Shield != p.Shield {
		delta := p.AdjustShield(*s.Shield-p.Shield, e.cfg.ShieldMax)
		e.emit(EventTypeShield, "shield", ShieldPayload{Delta: delta, Shield: p.Shield})
	}
}

// MergeBullets adds network bullets not seen before. A bullet fired by the
// local player is first paired with its optimistic copy: a live copy is
// adopted, a spent one keeps the server copy out of the world. Decayed
// copies are listed in the result so the server can drop them too.
func (e *Engine) MergeBullets(list []NetworkBullet) BulletMerge {
	var res BulletMerge
	for _, nb := range list {
		if _, ok := e.life.Bullet(nb.ID); ok || e.life.WasRemoved(nb.ID) {
			continue
		}
		if nb.ShooterID != "" && nb.ShooterID == e.player.ID {
			switch e.life.MatchShot(nb.ShooterID, nb.ID) {
			case ShotAdopted:
				res.Adopted++
				continue
			case ShotSpent:
				res.Spent++
				continue
			case ShotDecayed:
				res.Decayed = append(res.Decayed, nb.ID)
				e.emit(EventTypeBulletExpired, "bullet", map[string]string{"id": nb.ID})
				continue
			}
		}
		b := NewBullet(nb.ID, nb.ShooterID, nb.Pos, nb.Angle, e.life.params.Bullet, OriginNetwork)
		if e.life.AddBullet(b) {
			res.Added++
		}
	}
	return res
}

// RemoveBullet drops a bullet the server says was hit. known is false when
// the id was never seen at all.
func (e *Engine) RemoveBullet(id string) (removed, known bool) {
	wasRemoved := e.life.WasRemoved(id)
	removed = e.life.RemoveBullet(id)
	return removed, removed || wasRemoved
}

// ReplaceLeaderboard swaps the ranking.
func (e *Engine) ReplaceLeaderboard(entries []LeaderboardEntry) {
	e.mirrors.ReplaceLeaderboard(entries)
}

// ReplaceFood swaps the food collection.
func (e *Engine) ReplaceFood(food []Food) {
	e.mirrors.ReplaceFood(food)
}

// AdjustShield applies a server shield delta and shows it as a popup.
func (e *Engine) AdjustShield(delta int) int {
	applied := e.player.AdjustShield(delta, e.cfg.ShieldMax)
	text := fmt.Sprintf("%d", delta)
	if delta > 0 {
		text = "+" + text
	}
	e.addPopup(text, e.cfg.PopupFrames)
	e.emit(EventTypeShield, "shield", ShieldPayload{Delta: applied, Shield: e.player.Shield})
	return applied
}

// BeginRespawn enters RespawnPending. It reports whether the state changed.
func (e *Engine) BeginRespawn(countdown int) bool {
	entered := e.respawn.Begin(countdown, e.frame)
	e.player.Respawning = true
	if entered {
		e.addPopup(fmt.Sprintf("respawning in %d", countdown), e.cfg.RespawnPopupFrames)
		e.emit(EventTypeRespawnStart, "respawn", RespawnPayload{Countdown: countdown})
		log.Printf("💀 Shield down, respawning in %d", countdown)
	}
	return entered
}

// EndRespawn returns to Alive. It reports whether the state changed.
func (e *Engine) EndRespawn() bool {
	left := e.respawn.End(e.frame)
	e.player.Respawning = false
	if left {
		e.emit(EventTypeRespawnEnd, "respawn", nil)
		log.Printf("✨ Respawned")
	}
	return left
}

// Respawning reports whether inputs are currently suppressed.
func (e *Engine) Respawning() bool { return e.respawn.Pending() }

// ShowHitMarker confirms a hit on another player.
func (e *Engine) ShowHitMarker(id, name string) {
	e.hitMarker.Show(id, name, e.cfg.HitMarkerFrames)
}

// AddKill appends a killfeed entry.
func (e *Engine) AddKill(killer, victim string) {
	e.killfeed.Add(killer, victim)
	e.emit(EventTypeKill, "kill", KillPayload{Killer: killer, Victim: victim})
}

// Record journals an event stamped with the current frame.
func (e *Engine) Record(t EventType, channel string, payload interface{}) {
	e.emit(t, channel, payload)
}

// Explosion counts a playExplosion cue; audio is not part of this client.
func (e *Engine) Explosion() { e.explosions++ }

// Frame returns the number of completed frames.
func (e *Engine) Frame() uint64 { return e.frame }

// Seed returns the RNG seed, for reproducing a run.
func (e *Engine) Seed() int64 { return e.rngSeed }

// Player returns the local player. Callers outside the loop goroutine must
// use snapshots instead.
func (e *Engine) Player() *Player { return e.player }

// SpawnAsteroid adds an asteroid at pos, used by scenarios and tests.
func (e *Engine) SpawnAsteroid(pos, vel Vec2, radius float64) uint32 {
	return e.life.AddAsteroid(&Asteroid{Pos: pos, Vel: vel, Radius: radius}).ID
}

// GetEventLog returns the journal, possibly nil.
func (e *Engine) GetEventLog() *EventLog { return e.eventLog }
