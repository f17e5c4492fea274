package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrUnknownChannel is returned for frames on a channel the client does not consume.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrMissingPayload is returned when a channel that requires data carries none.
	ErrMissingPayload = errors.New("missing payload")
	// ErrEmptyFrame is returned for zero-length frames.
	ErrEmptyFrame = errors.New("empty frame")
)

// DecodeError reports a frame that could not be turned into a Message.
// The session drops the frame and keeps running.
type DecodeError struct {
	Channel Channel // empty when the envelope itself is unreadable
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("decode envelope: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Channel, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Envelope is the outer frame: {"t": channel, "seq": n, "d": payload}.
type Envelope struct {
	Channel Channel
	Seq     uint64
	Payload any // nil for channels without data
}

// Codec turns envelopes into frames and frames into messages.
type Codec interface {
	Name() string
	// Binary reports whether frames are sent as binary WebSocket messages.
	Binary() bool
	Encode(env Envelope) ([]byte, error)
	Decode(frame []byte) (Incoming, error)
}

// NewCodec returns the codec registered under name ("json" or "msgpack").
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// =============================================================================
// JSON
// =============================================================================

type jsonEnvelope struct {
	T   string          `json:"t"`
	Seq uint64          `json:"seq,omitempty"`
	D   json.RawMessage `json:"d,omitempty"`
}

// JSONCodec encodes envelopes as JSON text frames.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

// Encode marshals the payload and wraps it in an envelope.
func (JSONCodec) Encode(env Envelope) ([]byte, error) {
	if env.Channel == "" {
		return nil, errors.New("encode: empty channel")
	}
	out := jsonEnvelope{T: string(env.Channel), Seq: env.Seq}
	if env.Payload != nil {
		pb, err := json.Marshal(env.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", env.Channel, err)
		}
		out.D = pb
	}
	return json.Marshal(out)
}

// Decode parses a text frame into a typed message.
func (JSONCodec) Decode(frame []byte) (Incoming, error) {
	if len(frame) == 0 {
		return Incoming{}, &DecodeError{Err: ErrEmptyFrame}
	}
	var env jsonEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Incoming{}, &DecodeError{Err: err}
	}
	d := []byte(env.D)
	if bytes.Equal(d, []byte("null")) {
		d = nil
	}
	return decodeMessage(Channel(env.T), env.Seq, d, json.Unmarshal)
}

// =============================================================================
// MESSAGEPACK
// =============================================================================

type msgpackEnvelope struct {
	T   string             `json:"t"`
	Seq uint64             `json:"seq,omitempty"`
	D   msgpack.RawMessage `json:"d,omitempty"`
}

// MsgpackCodec encodes envelopes as MessagePack binary frames, using the
// same field names as the JSON codec.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

// Encode marshals the envelope with the payload inlined.
func (MsgpackCodec) Encode(env Envelope) ([]byte, error) {
	if env.Channel == "" {
		return nil, errors.New("encode: empty channel")
	}
	out := struct {
		T   string `json:"t"`
		Seq uint64 `json:"seq,omitempty"`
		D   any    `json:"d,omitempty"`
	}{T: string(env.Channel), Seq: env.Seq, D: env.Payload}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode %s: %w", env.Channel, err)
	}
	return buf.Bytes(), nil
}

// Decode parses a binary frame into a typed message.
func (MsgpackCodec) Decode(frame []byte) (Incoming, error) {
	if len(frame) == 0 {
		return Incoming{}, &DecodeError{Err: ErrEmptyFrame}
	}
	var env msgpackEnvelope
	if err := msgpackUnmarshal(frame, &env); err != nil {
		return Incoming{}, &DecodeError{Err: err}
	}
	d := []byte(env.D)
	if len(d) == 1 && d[0] == msgpackNil {
		d = nil
	}
	return decodeMessage(Channel(env.T), env.Seq, d, msgpackUnmarshal)
}

const msgpackNil = 0xc0

func msgpackUnmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// =============================================================================
// MESSAGE TABLE
// =============================================================================

type unmarshalFunc func(data []byte, v any) error

type decodeFunc func(raw []byte, u unmarshalFunc) (Message, error)

// decoders is keyed by every inbound channel.
var decoders = map[Channel]decodeFunc{
	ChannelWelcome: func(raw []byte, u unmarshalFunc) (Message, error) {
		w, err := decodePayload[Welcome](raw, u)
		if err == nil && w.ID == "" {
			err = errEmptyID
		}
		return w, err
	},
	ChannelHeartbeat: func(raw []byte, u unmarshalFunc) (Message, error) {
		players, err := decodePayload[[]RemotePlayerState](raw, u)
		if err == nil {
			err = validateIDs(players, func(p RemotePlayerState) string { return p.ID })
		}
		return Heartbeat{Players: players}, err
	},
	ChannelBullets: func(raw []byte, u unmarshalFunc) (Message, error) {
		bullets, err := decodePayload[[]BulletState](raw, u)
		if err == nil {
			err = validateIDs(bullets, func(b BulletState) string { return b.ID })
		}
		return Bullets{Bullets: bullets}, err
	},
	ChannelBulletHit: func(raw []byte, u unmarshalFunc) (Message, error) {
		id, err := decodePayload[BulletID](raw, u)
		if err == nil && id == "" {
			err = errEmptyID
		}
		return BulletHit{ID: string(id)}, err
	},
	ChannelLeaderboard: func(raw []byte, u unmarshalFunc) (Message, error) {
		entries, err := decodePayload[[]LeaderboardEntry](raw, u)
		return Leaderboard{Entries: entries}, err
	},
	ChannelIncreaseShield: func(raw []byte, u unmarshalFunc) (Message, error) {
		delta, err := decodePayload[int](raw, u)
		return IncreaseShield{Delta: delta}, err
	},
	ChannelRespawnStart: func(raw []byte, u unmarshalFunc) (Message, error) {
		countdown, err := decodePayload[int](raw, u)
		return RespawnStart{Countdown: countdown}, err
	},
	ChannelRespawnEnd: func([]byte, unmarshalFunc) (Message, error) {
		return RespawnEnd{}, nil
	},
	ChannelPlayExplosion: func([]byte, unmarshalFunc) (Message, error) {
		return PlayExplosion{}, nil
	},
	ChannelHitMarker: func(raw []byte, u unmarshalFunc) (Message, error) {
		ref, err := decodePayload[PlayerRef](raw, u)
		return HitMarker{Target: ref}, err
	},
	ChannelKillfeed: func(raw []byte, u unmarshalFunc) (Message, error) {
		kill, err := decodePayload[KillEvent](raw, u)
		return Killfeed{Kill: kill}, err
	},
	ChannelFoods: func(raw []byte, u unmarshalFunc) (Message, error) {
		foods, err := decodePayload[[]FoodState](raw, u)
		if err == nil {
			err = validateIDs(foods, func(f FoodState) string { return f.ID })
		}
		return Foods{Foods: foods}, err
	},
	ChannelPlayerDisconnected: func(raw []byte, u unmarshalFunc) (Message, error) {
		id, err := decodePayload[string](raw, u)
		if err == nil && id == "" {
			err = errEmptyID
		}
		return PlayerDisconnected{ID: id}, err
	},
}

func decodeMessage(ch Channel, seq uint64, raw []byte, u unmarshalFunc) (Incoming, error) {
	decode, ok := decoders[ch]
	if !ok {
		return Incoming{}, &DecodeError{Channel: ch, Err: ErrUnknownChannel}
	}
	msg, err := decode(raw, u)
	if err != nil {
		return Incoming{}, &DecodeError{Channel: ch, Err: err}
	}
	return Incoming{Seq: seq, Message: msg}, nil
}

// decodePayload unmarshals raw into a fresh T.
func decodePayload[T any](raw []byte, u unmarshalFunc) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, ErrMissingPayload
	}
	err := u(raw, &out)
	return out, err
}
