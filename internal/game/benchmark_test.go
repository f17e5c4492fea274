package game

import (
	"fmt"
	"math/rand"
	"testing"

	"asteroid-arena/internal/config"
)

// =============================================================================
// BENCHMARK SUITE: FRAME LOOP HOT PATHS
// Run with: go test -bench=. -benchmem ./internal/game/...
// =============================================================================

type nopOutbox struct{}

func (nopOutbox) BeginFrame(uint64)         {}
func (nopOutbox) BulletExpired(*Bullet)     {}
func (nopOutbox) AsteroidContact(*Asteroid) {}
func (nopOutbox) Angle(float64)             {}

// -----------------------------------------------------------------------------
// ENGINE TICK BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkEngineTick_50Bullets(b *testing.B)       { benchmarkEngineTick(b, 50, true) }
func BenchmarkEngineTick_500Bullets(b *testing.B)      { benchmarkEngineTick(b, 500, true) }
func BenchmarkEngineTick_500BulletsBrute(b *testing.B) { benchmarkEngineTick(b, 500, false) }

func benchmarkEngineTick(b *testing.B, bullets int, grid bool) {
	cfg := config.DefaultSimulation()
	cfg.RandomSeed = 1
	cfg.AsteroidCount = 60
	sp := config.DefaultSpatial()
	sp.Enabled = grid
	e := NewEngine(cfg, sp, "bench", nil)

	rng := rand.New(rand.NewSource(2))
	refill := func() {
		list := make([]NetworkBullet, 0, bullets)
		for i := len(e.life.Bullets()); i < bullets; i++ {
			list = append(list, NetworkBullet{
				ID:        fmt.Sprintf("b-%d-%d", e.Frame(), i),
				ShooterID: "other",
				Pos:       Vec2{rng.Float64() * cfg.WorldWidth, rng.Float64() * cfg.WorldHeight},
				Angle:     rng.Float64() * 6.28,
			})
		}
		e.MergeBullets(list)
	}
	refill()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if i%64 == 0 {
			b.StopTimer()
			refill()
			b.StartTimer()
		}
		e.Tick(nopOutbox{})
	}
}

// -----------------------------------------------------------------------------
// SNAPSHOT BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkBuildSnapshot(b *testing.B) {
	cfg := config.DefaultSimulation()
	cfg.RandomSeed = 1
	e := NewEngine(cfg, config.DefaultSpatial(), "bench", nil)
	others := make([]OtherPlayer, 0, 50)
	for i := 0; i < 50; i++ {
		others = append(others, OtherPlayer{ID: fmt.Sprintf("p%d", i), Name: "player"})
	}
	e.MergeOthers(others)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e.publishSnapshot()
	}
}

func BenchmarkMergeOthers_Idempotent(b *testing.B) {
	m := NewMirrors(0)
	others := make([]OtherPlayer, 0, 100)
	for i := 0; i < 100; i++ {
		others = append(others, OtherPlayer{ID: fmt.Sprintf("p%d", i), Pos: Vec2{float64(i), 0}})
	}
	m.MergeOthers(others)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.MergeOthers(others)
	}
}
