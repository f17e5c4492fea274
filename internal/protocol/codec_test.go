package protocol

import (
	"errors"
	"strings"
	"testing"
)

// recorder counts dispatched messages by channel
type recorder struct {
	seen []Channel
	last Message
}

func (r *recorder) note(m Message) {
	r.seen = append(r.seen, m.Channel())
	r.last = m
}

func (r *recorder) OnWelcome(m Welcome)                       { r.note(m) }
func (r *recorder) OnHeartbeat(m Heartbeat)                   { r.note(m) }
func (r *recorder) OnBullets(m Bullets)                       { r.note(m) }
func (r *recorder) OnBulletHit(m BulletHit)                   { r.note(m) }
func (r *recorder) OnLeaderboard(m Leaderboard)               { r.note(m) }
func (r *recorder) OnIncreaseShield(m IncreaseShield)         { r.note(m) }
func (r *recorder) OnRespawnStart(m RespawnStart)             { r.note(m) }
func (r *recorder) OnRespawnEnd(m RespawnEnd)                 { r.note(m) }
func (r *recorder) OnPlayExplosion(m PlayExplosion)           { r.note(m) }
func (r *recorder) OnHitMarker(m HitMarker)                   { r.note(m) }
func (r *recorder) OnKillfeed(m Killfeed)                     { r.note(m) }
func (r *recorder) OnFoods(m Foods)                           { r.note(m) }
func (r *recorder) OnPlayerDisconnected(m PlayerDisconnected) { r.note(m) }

var _ Handler = (*recorder)(nil)

// TestJSONDecodeEveryInboundChannel decodes one frame per inbound channel
func TestJSONDecodeEveryInboundChannel(t *testing.T) {
	frames := map[Channel]string{
		ChannelWelcome:            `{"t":"welcome","d":{"id":"me"}}`,
		ChannelHeartbeat:          `{"t":"heartbeat","d":[{"id":"a","x":1,"y":2,"angle":0.5,"name":"ann","score":3,"level":2,"lastDeath":null}]}`,
		ChannelBullets:            `{"t":"bullets","d":[{"id":"b1","x":5,"y":6,"angle":1,"shooterId":"a"}]}`,
		ChannelBulletHit:          `{"t":"bulletHit","d":"b1"}`,
		ChannelLeaderboard:        `{"t":"leaderboard","d":[{"id":"a","name":"ann","score":9}]}`,
		ChannelIncreaseShield:     `{"t":"increaseShield","d":-75}`,
		ChannelRespawnStart:       `{"t":"respawn-start","d":5}`,
		ChannelRespawnEnd:         `{"t":"respawn-end"}`,
		ChannelPlayExplosion:      `{"t":"playExplosion"}`,
		ChannelHitMarker:          `{"t":"hitMarker","d":{"id":"a","name":"ann"}}`,
		ChannelKillfeed:           `{"t":"killfeed","d":{"killer":"ann","victim":"bob"}}`,
		ChannelFoods:              `{"t":"foods","d":[{"id":"f1","x":1,"y":1,"r":4}]}`,
		ChannelPlayerDisconnected: `{"t":"playerDisconnected","d":"a"}`,
	}

	if len(frames) != len(decoders) {
		t.Fatalf("Expected a frame for each of %d decoders, got %d", len(decoders), len(frames))
	}

	codec := JSONCodec{}
	for ch, frame := range frames {
		t.Run(string(ch), func(t *testing.T) {
			in, err := codec.Decode([]byte(frame))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			rec := &recorder{}
			in.Dispatch(rec)
			if len(rec.seen) != 1 || rec.seen[0] != ch {
				t.Errorf("Expected dispatch on %s, got %v", ch, rec.seen)
			}
		})
	}
}

func TestJSONDecodePayloadValues(t *testing.T) {
	codec := JSONCodec{}

	in, err := codec.Decode([]byte(`{"t":"heartbeat","seq":7,"d":[{"id":"a","x":1,"y":2,"name":"ann","lvl":4,"lastDeath":12}]}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if in.Seq != 7 {
		t.Errorf("Expected seq 7, got %d", in.Seq)
	}
	hb := in.Message.(Heartbeat)
	if got := hb.Players[0].EffectiveLevel(); got != 4 {
		t.Errorf("Expected lvl alias to give level 4, got %d", got)
	}
	if hb.Players[0].LastDeath == nil || *hb.Players[0].LastDeath != 12 {
		t.Errorf("Expected lastDeath 12, got %v", hb.Players[0].LastDeath)
	}

	in, err = codec.Decode([]byte(`{"t":"bulletHit","d":{"id":"b9"}}`))
	if err != nil {
		t.Fatalf("Decode of object bullet id failed: %v", err)
	}
	if got := in.Message.(BulletHit).ID; got != "b9" {
		t.Errorf("Expected b9, got %q", got)
	}

	in, err = codec.Decode([]byte(`{"t":"increaseShield","d":-75}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := in.Message.(IncreaseShield).Delta; got != -75 {
		t.Errorf("Expected -75, got %d", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		channel Channel
		target  error
	}{
		{"empty frame", ``, "", ErrEmptyFrame},
		{"not json", `{{`, "", nil},
		{"unknown channel", `{"t":"teleport","d":1}`, "teleport", ErrUnknownChannel},
		{"outbound channel", `{"t":"angle","d":1}`, ChannelAngle, ErrUnknownChannel},
		{"missing payload", `{"t":"heartbeat"}`, ChannelHeartbeat, ErrMissingPayload},
		{"null payload", `{"t":"respawn-start","d":null}`, ChannelRespawnStart, ErrMissingPayload},
		{"wrong type", `{"t":"heartbeat","d":"nope"}`, ChannelHeartbeat, nil},
		{"empty id", `{"t":"bullets","d":[{"id":"","x":1}]}`, ChannelBullets, errEmptyID},
		{"empty welcome", `{"t":"welcome","d":{}}`, ChannelWelcome, errEmptyID},
	}

	codec := JSONCodec{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode([]byte(tt.frame))
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Expected *DecodeError, got %v", err)
			}
			if de.Channel != tt.channel {
				t.Errorf("Expected channel %q, got %q", tt.channel, de.Channel)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Expected %v in chain, got %v", tt.target, err)
			}
		})
	}
}

func TestJSONEncode(t *testing.T) {
	codec := JSONCodec{}

	frame, err := codec.Encode(Envelope{Channel: ChannelBullet})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(frame) != `{"t":"bullet"}` {
		t.Errorf("Unexpected frame %s", frame)
	}

	frame, err = codec.Encode(Envelope{Channel: ChannelPlayer, Payload: PlayerRegistration{X: 1, Y: 2, Angle: 0, Name: "ann"}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	for _, want := range []string{`"t":"player"`, `"x":1`, `"y":2`, `"angle":0`, `"name":"ann"`} {
		if !strings.Contains(string(frame), want) {
			t.Errorf("Expected %s in %s", want, frame)
		}
	}

	if _, err := codec.Encode(Envelope{}); err == nil {
		t.Error("Expected error for empty channel")
	}
}

// TestMsgpackRoundTrip encodes server-side frames and decodes them as the client would
func TestMsgpackRoundTrip(t *testing.T) {
	codec := MsgpackCodec{}
	if !codec.Binary() {
		t.Error("Expected msgpack to use binary frames")
	}

	death := int64(42)
	frame, err := codec.Encode(Envelope{
		Channel: ChannelHeartbeat,
		Seq:     3,
		Payload: []RemotePlayerState{{ID: "a", X: 10, Y: 20, Name: "ann", Score: 5, Level: 2, LastDeath: &death}},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	in, err := codec.Decode(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if in.Seq != 3 {
		t.Errorf("Expected seq 3, got %d", in.Seq)
	}
	p := in.Message.(Heartbeat).Players[0]
	if p.ID != "a" || p.X != 10 || p.Score != 5 || p.EffectiveLevel() != 2 {
		t.Errorf("Unexpected player %+v", p)
	}
	if p.LastDeath == nil || *p.LastDeath != 42 {
		t.Errorf("Expected lastDeath 42, got %v", p.LastDeath)
	}

	frame, err = codec.Encode(Envelope{Channel: ChannelRespawnEnd})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	in, err = codec.Decode(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, ok := in.Message.(RespawnEnd); !ok {
		t.Errorf("Expected RespawnEnd, got %T", in.Message)
	}

	frame, err = codec.Encode(Envelope{Channel: ChannelBulletHit})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, err := codec.Decode(frame); !errors.Is(err, ErrMissingPayload) {
		t.Errorf("Expected ErrMissingPayload, got %v", err)
	}

	if _, err := codec.Decode([]byte{0xc1}); err == nil {
		t.Error("Expected error for garbage frame")
	}
}

func TestMsgpackBulletHitShapes(t *testing.T) {
	codec := MsgpackCodec{}
	tests := []struct {
		name    string
		payload any
		want    string
		wantErr bool
	}{
		{"bare string", "b7", "b7", false},
		{"object", map[string]string{"id": "b8"}, "b8", false},
		{"object without id", map[string]int{"x": 1}, "", true},
		{"number", 12, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := codec.Encode(Envelope{Channel: ChannelBulletHit, Payload: tt.payload})
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			in, err := codec.Decode(frame)
			if tt.wantErr {
				var de *DecodeError
				if !errors.As(err, &de) {
					t.Errorf("Expected DecodeError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got := in.Message.(BulletHit).ID; got != tt.want {
				t.Errorf("Expected id %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNewCodec(t *testing.T) {
	for _, name := range []string{"", "json", "msgpack"} {
		if _, err := NewCodec(name); err != nil {
			t.Errorf("NewCodec(%q) failed: %v", name, err)
		}
	}
	if _, err := NewCodec("xml"); err == nil {
		t.Error("Expected error for unknown codec")
	}
}

func TestChannelDirections(t *testing.T) {
	if !ChannelHeartbeat.IsInbound() || ChannelHeartbeat.IsOutbound() {
		t.Error("heartbeat should be inbound only")
	}
	if !ChannelAngle.IsOutbound() || ChannelAngle.IsInbound() {
		t.Error("angle should be outbound only")
	}
	for _, k := range AllKeys {
		if !k.Valid() {
			t.Errorf("Expected %q to be valid", k)
		}
	}
	if Key("jump").Valid() {
		t.Error("Expected jump to be invalid")
	}
}
