package protocol

// Message is a decoded inbound message. Each variant dispatches to the
// matching Handler method, so adding a variant does not compile until every
// Handler implementation handles it.
type Message interface {
	Channel() Channel
	Dispatch(h Handler)
}

// Handler receives inbound messages, one method per variant.
type Handler interface {
	OnWelcome(Welcome)
	OnHeartbeat(Heartbeat)
	OnBullets(Bullets)
	OnBulletHit(BulletHit)
	OnLeaderboard(Leaderboard)
	OnIncreaseShield(IncreaseShield)
	OnRespawnStart(RespawnStart)
	OnRespawnEnd(RespawnEnd)
	OnPlayExplosion(PlayExplosion)
	OnHitMarker(HitMarker)
	OnKillfeed(Killfeed)
	OnFoods(Foods)
	OnPlayerDisconnected(PlayerDisconnected)
}

// Incoming pairs a message with its optional per-channel sequence number.
// Seq is zero when the server does not number its messages.
type Incoming struct {
	Seq uint64
	Message
}

func (m Welcome) Channel() Channel   { return ChannelWelcome }
func (m Welcome) Dispatch(h Handler) { h.OnWelcome(m) }

// Heartbeat is the full list of remote players.
type Heartbeat struct {
	Players []RemotePlayerState
}

func (m Heartbeat) Channel() Channel   { return ChannelHeartbeat }
func (m Heartbeat) Dispatch(h Handler) { h.OnHeartbeat(m) }

// Bullets is the server's list of live bullets.
type Bullets struct {
	Bullets []BulletState
}

func (m Bullets) Channel() Channel   { return ChannelBullets }
func (m Bullets) Dispatch(h Handler) { h.OnBullets(m) }

// BulletHit removes one bullet.
type BulletHit struct {
	ID string
}

func (m BulletHit) Channel() Channel   { return ChannelBulletHit }
func (m BulletHit) Dispatch(h Handler) { h.OnBulletHit(m) }

// Leaderboard replaces the ranking wholesale.
type Leaderboard struct {
	Entries []LeaderboardEntry
}

func (m Leaderboard) Channel() Channel   { return ChannelLeaderboard }
func (m Leaderboard) Dispatch(h Handler) { h.OnLeaderboard(m) }

// IncreaseShield carries a signed shield delta.
type IncreaseShield struct {
	Delta int
}

func (m IncreaseShield) Channel() Channel   { return ChannelIncreaseShield }
func (m IncreaseShield) Dispatch(h Handler) { h.OnIncreaseShield(m) }

// RespawnStart carries the countdown shown while respawning.
type RespawnStart struct {
	Countdown int
}

func (m RespawnStart) Channel() Channel   { return ChannelRespawnStart }
func (m RespawnStart) Dispatch(h Handler) { h.OnRespawnStart(m) }

// RespawnEnd has no payload.
type RespawnEnd struct{}

func (m RespawnEnd) Channel() Channel   { return ChannelRespawnEnd }
func (m RespawnEnd) Dispatch(h Handler) { h.OnRespawnEnd(m) }

// PlayExplosion has no payload.
type PlayExplosion struct{}

func (m PlayExplosion) Channel() Channel   { return ChannelPlayExplosion }
func (m PlayExplosion) Dispatch(h Handler) { h.OnPlayExplosion(m) }

// HitMarker confirms that the local player hit Target.
type HitMarker struct {
	Target PlayerRef
}

func (m HitMarker) Channel() Channel   { return ChannelHitMarker }
func (m HitMarker) Dispatch(h Handler) { h.OnHitMarker(m) }

// Killfeed appends one kill to the feed.
type Killfeed struct {
	Kill KillEvent
}

func (m Killfeed) Channel() Channel   { return ChannelKillfeed }
func (m Killfeed) Dispatch(h Handler) { h.OnKillfeed(m) }

// Foods replaces the food collection.
type Foods struct {
	Foods []FoodState
}

func (m Foods) Channel() Channel   { return ChannelFoods }
func (m Foods) Dispatch(h Handler) { h.OnFoods(m) }

// PlayerDisconnected removes a remote player for good.
type PlayerDisconnected struct {
	ID string
}

func (m PlayerDisconnected) Channel() Channel   { return ChannelPlayerDisconnected }
func (m PlayerDisconnected) Dispatch(h Handler) { h.OnPlayerDisconnected(m) }
