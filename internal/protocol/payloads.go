package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Field names are fixed by the existing server and must not change.
// The msgpack codec reads the same json tags.

// PlayerRegistration is sent once on the player channel.
type PlayerRegistration struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
	Name  string  `json:"name"`
}

// Welcome carries the id the server assigned to this connection.
type Welcome struct {
	ID string `json:"id"`
}

// RemotePlayerState is one heartbeat entry.
type RemotePlayerState struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Angle     float64 `json:"angle"`
	Name      string  `json:"name"`
	Score     int     `json:"score"`
	Level     int     `json:"level,omitempty"`
	Lvl       int     `json:"lvl,omitempty"`    // older servers
	Shield    *int    `json:"shield,omitempty"` // nil when the server omits it
	LastDeath *int64  `json:"lastDeath"`
}

// EffectiveLevel returns level, falling back to lvl and then 1.
func (s RemotePlayerState) EffectiveLevel() int {
	if s.Level > 0 {
		return s.Level
	}
	if s.Lvl > 0 {
		return s.Lvl
	}
	return 1
}

// BulletState is one entry of the bullets list.
type BulletState struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Angle     float64 `json:"angle"`
	ShooterID string  `json:"shooterId"`
}

// LeaderboardEntry is one ranked row as delivered by the server.
type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// PlayerRef identifies a player in hitMarker and killfeed payloads.
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// KillEvent is the killfeed payload.
type KillEvent struct {
	Killer string `json:"killer"`
	Victim string `json:"victim"`
}

// FoodState is one entry of the foods list.
type FoodState struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	R  float64 `json:"r"`
}

// BulletID accepts either a bare string or an object with an id field.
type BulletID string

// UnmarshalJSON implements json.Unmarshaler.
func (b *BulletID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = BulletID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("bullet id: %w", err)
	}
	*b = BulletID(obj.ID)
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder with the same two shapes.
func (b *BulletID) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterface()
	if err != nil {
		return fmt.Errorf("bullet id: %w", err)
	}
	switch t := v.(type) {
	case string:
		*b = BulletID(t)
		return nil
	case map[string]interface{}:
		if id, ok := t["id"].(string); ok {
			*b = BulletID(id)
			return nil
		}
	case map[interface{}]interface{}:
		if id, ok := t["id"].(string); ok {
			*b = BulletID(id)
			return nil
		}
	}
	return fmt.Errorf("bullet id: unexpected %T", v)
}

var errEmptyID = errors.New("empty id")

func validateIDs[T any](items []T, id func(T) string) error {
	for i, it := range items {
		if id(it) == "" {
			return fmt.Errorf("entry %d: %w", i, errEmptyID)
		}
	}
	return nil
}
