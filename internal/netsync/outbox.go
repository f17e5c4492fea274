package netsync

import (
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"asteroid-arena/internal/game"
	"asteroid-arena/internal/protocol"
)

// Sender delivers one outbound envelope without blocking.
// transport.Conn implements it.
type Sender interface {
	Send(env protocol.Envelope) error
}

var _ game.Outbox = (*Outbox)(nil)

// Outbox turns local intents into outbound messages. It implements
// game.Outbox for the per-frame emissions and adds the input-driven ones.
//
// Keys are edge-triggered: the outbox remembers what the server was told
// and only emits changes. While the player is respawning nothing is sent;
// when the respawn ends the told state is reconciled with the held keys.
//
// Only the session loop goroutine may call an Outbox.
type Outbox struct {
	sender  Sender
	engine  *game.Engine
	metrics Metrics

	cooldown  int // Frames that must pass between shots
	sinceShot int
	frame     uint64

	held keySet // Physically held
	told keySet // Last state the server was sent

	newID   func() string
	errWarn *rate.Limiter
}

// NewOutbox creates an outbox. metrics may be nil.
func NewOutbox(sender Sender, engine *game.Engine, fireCooldown int, metrics Metrics) *Outbox {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Outbox{
		sender:    sender,
		engine:    engine,
		metrics:   metrics,
		cooldown:  fireCooldown,
		sinceShot: fireCooldown + 1, // First shot is allowed
		held:      make(keySet),
		told:      make(keySet),
		newID:     uuid.NewString,
		errWarn:   rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

// Register announces the local player. Sent once, before the first frame.
func (o *Outbox) Register() error {
	p := o.engine.Player()
	return o.send(protocol.ChannelPlayer, protocol.PlayerRegistration{
		X:     p.Pos.X,
		Y:     p.Pos.Y,
		Angle: p.Angle,
		Name:  p.Name,
	})
}

// =============================================================================
// game.Outbox
// =============================================================================

// BeginFrame advances the fire cooldown counter.
func (o *Outbox) BeginFrame(frame uint64) {
	o.frame = frame
	o.sinceShot++
}

// BulletExpired asks the server to drop a bullet that decayed locally.
func (o *Outbox) BulletExpired(b *game.Bullet) { o.RemoveBullet(b.ID) }

// RemoveBullet asks the server to drop a bullet by id.
func (o *Outbox) RemoveBullet(id string) {
	o.send(protocol.ChannelRemoveBullet, id)
}

// AsteroidContact reports that an asteroid started touching the player.
func (o *Outbox) AsteroidContact(*game.Asteroid) {
	o.send(protocol.ChannelReduceShield, nil)
}

// Angle sends the current heading, once per frame.
func (o *Outbox) Angle(theta float64) {
	o.send(protocol.ChannelAngle, theta)
}

// =============================================================================
// INPUT
// =============================================================================

// Press marks k held. It reports whether keyPressed was sent.
func (o *Outbox) Press(k protocol.Key) bool {
	if !k.Valid() {
		return false
	}
	o.held[k] = true
	o.engine.SetControls(o.held.controls())
	return o.sync(k)
}

// Release marks k released. It reports whether keyReleased was sent.
func (o *Outbox) Release(k protocol.Key) bool {
	if !k.Valid() {
		return false
	}
	o.held[k] = false
	o.engine.SetControls(o.held.controls())
	return o.sync(k)
}

// sync emits the difference between held and told for one key.
func (o *Outbox) sync(k protocol.Key) bool {
	if o.engine.Respawning() || o.held[k] == o.told[k] {
		return false
	}
	ch := protocol.ChannelKeyReleased
	if o.held[k] {
		ch = protocol.ChannelKeyPressed
	}
	if o.send(ch, k) != nil {
		return false
	}
	o.told[k] = o.held[k]
	return true
}

// ReconcileKeys emits whatever changed while the player was respawning.
// It returns the number of key messages sent.
func (o *Outbox) ReconcileKeys() int {
	sent := 0
	for _, k := range protocol.AllKeys {
		if o.sync(k) {
			sent++
		}
	}
	return sent
}

// Fire requests a shot. It is refused while respawning or when fewer than
// cooldown+1 frames have passed since the last one. An accepted shot also
// spawns an optimistic local bullet.
func (o *Outbox) Fire() bool {
	if o.engine.Respawning() || o.sinceShot <= o.cooldown {
		return false
	}
	if o.send(protocol.ChannelBullet, nil) != nil {
		return false
	}
	o.sinceShot = 0
	o.engine.FireLocal(o.newID())
	return true
}

// Held reports whether k is physically held.
func (o *Outbox) Held(k protocol.Key) bool { return o.held[k] }

func (o *Outbox) send(ch protocol.Channel, payload any) error {
	err := o.sender.Send(protocol.Envelope{Channel: ch, Payload: payload})
	if err != nil {
		o.metrics.Dropped(ch)
		if o.errWarn.Allow() {
			log.Printf("⚠️ Outbound %s dropped: %v", ch, err)
		}
		return err
	}
	o.metrics.Outbound(ch)
	if ch != protocol.ChannelAngle {
		o.engine.Record(game.EventTypeOutbound, string(ch), nil)
	}
	return nil
}
