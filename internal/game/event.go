package game

import (
	"encoding/json"
	"time"
)

// EventType enum for journal classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeSessionStart
	EventTypeInbound  // Message applied from the server
	EventTypeOutbound // Message emitted to the server
	EventTypeDecodeError
	EventTypeAsteroidDestroyed
	EventTypeAsteroidContact
	EventTypeBulletExpired
	EventTypeShield
	EventTypeRespawnStart
	EventTypeRespawnEnd
	EventTypeKill
	EventTypeDeparted
)

// EventVersion for backwards compatibility of journal files
const EventVersion uint8 = 1

// Event is one journal record
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	Frame     uint64          `json:"frame"`
	Channel   string          `json:"channel,omitempty"` // Rate limiting key
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeSessionStart:
		return "session_start"
	case EventTypeInbound:
		return "inbound"
	case EventTypeOutbound:
		return "outbound"
	case EventTypeDecodeError:
		return "decode_error"
	case EventTypeAsteroidDestroyed:
		return "asteroid_destroyed"
	case EventTypeAsteroidContact:
		return "asteroid_contact"
	case EventTypeBulletExpired:
		return "bullet_expired"
	case EventTypeShield:
		return "shield"
	case EventTypeRespawnStart:
		return "respawn_start"
	case EventTypeRespawnEnd:
		return "respawn_end"
	case EventTypeKill:
		return "kill"
	case EventTypeDeparted:
		return "departed"
	default:
		return "unknown"
	}
}

// MarshalJSON writes the type by name so journal files stay readable.
func (t EventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Typed payloads

// SessionPayload is written once the local player is registered
type SessionPayload struct {
	Name   string  `json:"name"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
	Seed   int64   `json:"seed"`
}

// AsteroidPayload describes a destroyed or touching asteroid
type AsteroidPayload struct {
	AsteroidID uint32  `json:"asteroidId"`
	BulletID   string  `json:"bulletId,omitempty"`
	Radius     float64 `json:"radius"`
	Children   int     `json:"children"`
}

// ShieldPayload records a shield change
type ShieldPayload struct {
	Delta  int `json:"delta"`
	Shield int `json:"shield"`
}

// RespawnPayload records a respawn transition
type RespawnPayload struct {
	Countdown int `json:"countdown"`
}

// KillPayload records a killfeed entry
type KillPayload struct {
	Killer string `json:"killer"`
	Victim string `json:"victim"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, frame uint64, channel string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Frame:     frame,
		Channel:   channel,
		Payload:   EncodePayload(payload),
	}
}
