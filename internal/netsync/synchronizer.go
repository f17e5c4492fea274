// Package netsync keeps the local world in step with the game server:
// inbound messages are merged into the engine, local intents are turned
// into outbound messages.
package netsync

import (
	"log"
	"time"

	"golang.org/x/time/rate"

	"asteroid-arena/internal/game"
	"asteroid-arena/internal/protocol"
)

var _ protocol.Handler = (*Synchronizer)(nil)

// Synchronizer applies inbound messages to the engine. Every handler is
// idempotent: applying the same message twice leaves the world as after
// the first application.
//
// Only the session loop goroutine may call a Synchronizer.
type Synchronizer struct {
	engine  *game.Engine
	outbox  *Outbox
	metrics Metrics

	// Last sequence number applied per channel, for servers that number
	// their messages.
	lastSeq map[protocol.Channel]uint64

	unknownWarn *rate.Limiter
	stats       SyncStats
}

// SyncStats counts what the synchronizer did.
type SyncStats struct {
	Applied    uint64
	Stale      uint64
	UnknownIDs uint64
}

// NewSynchronizer creates a synchronizer. metrics may be nil.
func NewSynchronizer(engine *game.Engine, outbox *Outbox, metrics Metrics) *Synchronizer {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Synchronizer{
		engine:      engine,
		outbox:      outbox,
		metrics:     metrics,
		lastSeq:     make(map[protocol.Channel]uint64),
		unknownWarn: rate.NewLimiter(rate.Every(5*time.Second), 5),
	}
}

// Apply dispatches one message. Numbered messages at or below the last
// number applied on their channel are stale and dropped; Apply then
// returns false.
func (s *Synchronizer) Apply(in protocol.Incoming) bool {
	ch := in.Message.Channel()
	if in.Seq > 0 {
		if last, ok := s.lastSeq[ch]; ok && in.Seq <= last {
			s.stats.Stale++
			s.metrics.Stale(ch)
			return false
		}
		s.lastSeq[ch] = in.Seq
	}

	in.Message.Dispatch(s)
	s.stats.Applied++
	s.metrics.Inbound(ch)
	if ch != protocol.ChannelHeartbeat && ch != protocol.ChannelBullets {
		s.engine.Record(game.EventTypeInbound, string(ch), nil)
	}
	return true
}

// Stats returns a copy of the counters.
func (s *Synchronizer) Stats() SyncStats { return s.stats }

func (s *Synchronizer) unknown(ch protocol.Channel, id string) {
	s.stats.UnknownIDs++
	s.metrics.UnknownID(ch)
	if s.unknownWarn.Allow() {
		log.Printf("⚠️ %s for unknown id %q ignored", ch, id)
	}
}

// =============================================================================
// protocol.Handler
// =============================================================================

// OnWelcome records the local id. A mirror entry created for it before the
// welcome arrived is dropped.
func (s *Synchronizer) OnWelcome(m protocol.Welcome) {
	if s.engine.LocalID() == m.ID {
		return
	}
	s.engine.SetLocalID(m.ID)
	s.engine.RemoveOther(m.ID)
	log.Printf("👋 Welcome, assigned id %s", m.ID)
}

// OnHeartbeat merges the remote player list. The local entry reconciles the
// local player instead of being mirrored.
func (s *Synchronizer) OnHeartbeat(m protocol.Heartbeat) {
	self := s.engine.LocalID()
	others := make([]game.OtherPlayer, 0, len(m.Players))
	for _, ps := range m.Players {
		if self != "" && ps.ID == self {
			s.engine.ReconcileLocal(game.LocalState{
				Pos:    game.Vec2{X: ps.X, Y: ps.Y},
				Angle:  ps.Angle,
				Score:  ps.Score,
				Level:  ps.EffectiveLevel(),
				Shield: ps.Shield,
			})
			continue
		}
		o := game.OtherPlayer{
			ID:        ps.ID,
			Name:      ps.Name,
			Pos:       game.Vec2{X: ps.X, Y: ps.Y},
			Angle:     ps.Angle,
			Score:     ps.Score,
			Level:     ps.EffectiveLevel(),
			LastDeath: ps.LastDeath,
		}
		if ps.Shield != nil {
			o.Shield = *ps.Shield
		}
		others = append(others, o)
	}
	s.engine.MergeOthers(others)
}

// OnBullets merges network bullets by id. Own shots that already decayed
// locally are removed on the server as well.
func (s *Synchronizer) OnBullets(m protocol.Bullets) {
	list := make([]game.NetworkBullet, len(m.Bullets))
	for i, b := range m.Bullets {
		list[i] = game.NetworkBullet{
			ID:        b.ID,
			ShooterID: b.ShooterID,
			Pos:       game.Vec2{X: b.X, Y: b.Y},
			Angle:     b.Angle,
		}
	}
	res := s.engine.MergeBullets(list)
	if s.outbox != nil {
		for _, id := range res.Decayed {
			s.outbox.RemoveBullet(id)
		}
	}
}

// OnBulletHit removes a bullet. Ids already removed are silently ignored.
func (s *Synchronizer) OnBulletHit(m protocol.BulletHit) {
	if _, known := s.engine.RemoveBullet(m.ID); !known {
		s.unknown(protocol.ChannelBulletHit, m.ID)
	}
}

// OnLeaderboard replaces the ranking.
func (s *Synchronizer) OnLeaderboard(m protocol.Leaderboard) {
	entries := make([]game.LeaderboardEntry, len(m.Entries))
	for i, e := range m.Entries {
		entries[i] = game.LeaderboardEntry{ID: e.ID, Name: e.Name, Score: e.Score}
	}
	s.engine.ReplaceLeaderboard(entries)
}

// OnIncreaseShield applies a signed shield delta.
func (s *Synchronizer) OnIncreaseShield(m protocol.IncreaseShield) {
	s.engine.AdjustShield(m.Delta)
}

// OnRespawnStart enters RespawnPending.
func (s *Synchronizer) OnRespawnStart(m protocol.RespawnStart) {
	s.engine.BeginRespawn(m.Countdown)
}

// OnRespawnEnd returns to Alive and re-sends keys that changed meanwhile.
func (s *Synchronizer) OnRespawnEnd(protocol.RespawnEnd) {
	if s.engine.EndRespawn() && s.outbox != nil {
		s.outbox.ReconcileKeys()
	}
}

// OnPlayExplosion counts the cue.
func (s *Synchronizer) OnPlayExplosion(protocol.PlayExplosion) {
	s.engine.Explosion()
}

// OnHitMarker shows the hit marker.
func (s *Synchronizer) OnHitMarker(m protocol.HitMarker) {
	s.engine.ShowHitMarker(m.Target.ID, m.Target.Name)
}

// OnKillfeed appends to the kill feed.
func (s *Synchronizer) OnKillfeed(m protocol.Killfeed) {
	s.engine.AddKill(m.Kill.Killer, m.Kill.Victim)
}

// OnFoods replaces the food collection.
func (s *Synchronizer) OnFoods(m protocol.Foods) {
	food := make([]game.Food, len(m.Foods))
	for i, f := range m.Foods {
		food[i] = game.Food{ID: f.ID, Pos: game.Vec2{X: f.X, Y: f.Y}, Radius: f.R}
	}
	s.engine.ReplaceFood(food)
}

// OnPlayerDisconnected deletes a remote player.
func (s *Synchronizer) OnPlayerDisconnected(m protocol.PlayerDisconnected) {
	if !s.engine.RemoveOther(m.ID) {
		s.unknown(protocol.ChannelPlayerDisconnected, m.ID)
	}
}
