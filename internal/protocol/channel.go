// Package protocol defines the wire contract between the arena client and
// the game server: channel names, payload shapes, the envelope and the
// codecs that turn frames into typed messages.
package protocol

// Channel is the event name carried in every envelope.
type Channel string

// Inbound channels (server -> client)
const (
	ChannelWelcome            Channel = "welcome"
	ChannelHeartbeat          Channel = "heartbeat"
	ChannelBullets            Channel = "bullets"
	ChannelBulletHit          Channel = "bulletHit"
	ChannelLeaderboard        Channel = "leaderboard"
	ChannelIncreaseShield     Channel = "increaseShield"
	ChannelRespawnStart       Channel = "respawn-start"
	ChannelRespawnEnd         Channel = "respawn-end"
	ChannelPlayExplosion      Channel = "playExplosion"
	ChannelHitMarker          Channel = "hitMarker"
	ChannelKillfeed           Channel = "killfeed"
	ChannelFoods              Channel = "foods"
	ChannelPlayerDisconnected Channel = "playerDisconnected"
)

// Outbound channels (client -> server)
const (
	ChannelPlayer       Channel = "player"
	ChannelRemoveBullet Channel = "removeBullet"
	ChannelBullet       Channel = "bullet"
	ChannelReduceShield Channel = "reduceShield"
	ChannelKeyPressed   Channel = "keyPressed"
	ChannelKeyReleased  Channel = "keyReleased"
	ChannelAngle        Channel = "angle"
)

var outboundChannels = map[Channel]bool{
	ChannelPlayer:       true,
	ChannelRemoveBullet: true,
	ChannelBullet:       true,
	ChannelReduceShield: true,
	ChannelKeyPressed:   true,
	ChannelKeyReleased:  true,
	ChannelAngle:        true,
}

// IsInbound reports whether the client knows how to decode this channel.
func (c Channel) IsInbound() bool {
	_, ok := decoders[c]
	return ok
}

// IsOutbound reports whether the client may emit on this channel.
func (c Channel) IsOutbound() bool {
	return outboundChannels[c]
}

func (c Channel) String() string {
	return string(c)
}

// Key is a direction string carried by keyPressed / keyReleased.
type Key string

const (
	KeyUp       Key = "up"
	KeyDown     Key = "down"
	KeyLeft     Key = "left"
	KeyRight    Key = "right"
	KeySpacebar Key = "spacebar"
)

// AllKeys lists the keys in a stable order.
var AllKeys = [...]Key{KeyUp, KeyDown, KeyLeft, KeyRight, KeySpacebar}

// Valid reports whether k is one of the five wire directions.
func (k Key) Valid() bool {
	switch k {
	case KeyUp, KeyDown, KeyLeft, KeyRight, KeySpacebar:
		return true
	}
	return false
}
