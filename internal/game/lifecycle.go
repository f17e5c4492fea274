package game

import (
	"math"
	"math/rand"

	"asteroid-arena/internal/game/spatial"
)

// LifecycleParams configures spawning, decay and splitting.
type LifecycleParams struct {
	Bullet BulletParams
	Split  SplitParams

	WorldWidth  float64
	WorldHeight float64

	SpawnMinRadius float64
	SpawnMaxRadius float64
	MaxSpeed       float64

	// Removed bullet ids are remembered this many frames so a late
	// bullets list cannot bring them back.
	TombstoneFrames uint64
}

// Lifecycle owns the bullet and asteroid collections. Only the frame loop
// goroutine may call it.
//
// Removal is mark-and-compact: passes set the dead flag and a compaction
// step rebuilds the slice in place, so indices never shift mid-pass.
type Lifecycle struct {
	params LifecycleParams

	bullets []*Bullet
	byID    map[string]*Bullet

	asteroids []*Asteroid
	spawned   []*Asteroid // Children waiting for the end of the pass
	nextID    uint32

	tombstones map[string]uint64 // bullet id -> frame it was removed
	frame      uint64

	// Optimistic bullets in fire order, live or already spent, until the
	// server lists them under a network id.
	shots []*Bullet

	grid *spatial.Grid // nil means brute-force scans
	rng  *rand.Rand
}

// NewLifecycle creates an empty store. grid may be nil.
func NewLifecycle(p LifecycleParams, grid *spatial.Grid, rng *rand.Rand) *Lifecycle {
	if p.TombstoneFrames == 0 {
		p.TombstoneFrames = 1024
	}
	return &Lifecycle{
		params:     p,
		bullets:    make([]*Bullet, 0, 64),
		byID:       make(map[string]*Bullet),
		asteroids:  make([]*Asteroid, 0, 64),
		tombstones: make(map[string]uint64),
		grid:       grid,
		rng:        rng,
	}
}

// =============================================================================
// ASTEROIDS
// =============================================================================

// SpawnAsteroids adds n asteroids at random positions with random drift.
func (l *Lifecycle) SpawnAsteroids(n int) {
	p := l.params
	for i := 0; i < n; i++ {
		r := p.SpawnMinRadius
		if p.SpawnMaxRadius > p.SpawnMinRadius {
			r += l.rng.Float64() * (p.SpawnMaxRadius - p.SpawnMinRadius)
		}
		angle := l.rng.Float64() * 2 * math.Pi
		speed := l.rng.Float64() * p.MaxSpeed
		l.AddAsteroid(&Asteroid{
			Pos:    Vec2{l.rng.Float64() * p.WorldWidth, l.rng.Float64() * p.WorldHeight},
			Vel:    FromAngle(angle).Scale(speed),
			Radius: r,
		})
	}
}

// AddAsteroid assigns an id and appends a.
func (l *Lifecycle) AddAsteroid(a *Asteroid) *Asteroid {
	l.nextID++
	a.ID = l.nextID
	l.asteroids = append(l.asteroids, a)
	return a
}

// UpdateAsteroids advances and wraps every asteroid.
func (l *Lifecycle) UpdateAsteroids() {
	for _, a := range l.asteroids {
		a.Update(l.params.WorldWidth, l.params.WorldHeight)
	}
}

// Asteroids returns the live collection. Callers must not modify it.
func (l *Lifecycle) Asteroids() []*Asteroid { return l.asteroids }

func (l *Lifecycle) compactAsteroids() {
	n := 0
	for _, a := range l.asteroids {
		if a.dead {
			continue
		}
		l.asteroids[n] = a
		n++
	}
	for i := n; i < len(l.asteroids); i++ {
		l.asteroids[i] = nil
	}
	l.asteroids = l.asteroids[:n]
}

func (l *Lifecycle) flushSpawned() {
	for _, a := range l.spawned {
		l.AddAsteroid(a)
	}
	l.spawned = l.spawned[:0]
}

// =============================================================================
// BULLETS
// =============================================================================

// AddBullet inserts b unless its id is already live or was removed recently.
func (l *Lifecycle) AddBullet(b *Bullet) bool {
	if _, ok := l.byID[b.ID]; ok {
		return false
	}
	if _, gone := l.tombstones[b.ID]; gone {
		return false
	}
	l.bullets = append(l.bullets, b)
	l.byID[b.ID] = b
	if b.Origin == OriginLocal {
		l.shots = append(l.shots, b)
	}
	return true
}

// Bullet looks up a live bullet by id.
func (l *Lifecycle) Bullet(id string) (*Bullet, bool) {
	b, ok := l.byID[id]
	return b, ok
}

// Bullets returns the live collection. Callers must not modify it.
func (l *Lifecycle) Bullets() []*Bullet { return l.bullets }

// WasRemoved reports whether id belongs to a recently removed bullet.
func (l *Lifecycle) WasRemoved(id string) bool {
	_, ok := l.tombstones[id]
	return ok
}

// RemoveBullet drops a bullet by id. It returns false for unknown ids; the
// id is tombstoned either way so a later list cannot add it.
func (l *Lifecycle) RemoveBullet(id string) bool {
	b, ok := l.byID[id]
	l.tombstones[id] = l.frame
	if !ok {
		return false
	}
	l.kill(b)
	l.compactBullets()
	return true
}

// ShotMatch tells what a listed bullet of the local shooter was paired with.
type ShotMatch uint8

const (
	ShotNone    ShotMatch = iota // No optimistic shot waiting
	ShotAdopted                  // The live copy took the network id
	ShotSpent                    // The copy already hit something
	ShotDecayed                  // The copy already decayed
)

// MatchShot pairs a network id with the oldest optimistic shot of
// shooterID. A live copy is renamed so the server copy continues from the
// predicted position. A spent copy tombstones the network id instead: one
// shot never lands twice.
func (l *Lifecycle) MatchShot(shooterID, id string) ShotMatch {
	if _, ok := l.byID[id]; ok {
		return ShotNone
	}
	for i, b := range l.shots {
		if b.ShooterID != shooterID {
			continue
		}
		copy(l.shots[i:], l.shots[i+1:])
		l.shots[len(l.shots)-1] = nil
		l.shots = l.shots[:len(l.shots)-1]

		if b.dead {
			l.tombstones[id] = l.frame
			if b.decayed {
				return ShotDecayed
			}
			return ShotSpent
		}
		delete(l.byID, b.ID)
		b.ID = id
		b.Origin = OriginNetwork
		l.byID[id] = b
		return ShotAdopted
	}
	return ShotNone
}

// AssignShooter gives shots fired before the welcome their owner.
func (l *Lifecycle) AssignShooter(id string) {
	for _, b := range l.shots {
		if b.ShooterID == "" {
			b.ShooterID = id
		}
	}
}

// PendingShots returns the number of optimistic shots not yet listed.
func (l *Lifecycle) PendingShots() int { return len(l.shots) }

func (l *Lifecycle) kill(b *Bullet) {
	b.dead = true
	b.diedAt = l.frame
	delete(l.byID, b.ID)
	l.tombstones[b.ID] = l.frame
}

// UpdateBullets advances every bullet and prunes the ones that decayed.
// onExpire is called for each pruned bullet, in reverse index order.
func (l *Lifecycle) UpdateBullets(onExpire func(*Bullet)) int {
	l.frame++
	l.purgeTombstones()

	expired := 0
	for i := len(l.bullets) - 1; i >= 0; i-- {
		b := l.bullets[i]
		b.Update(l.params.Bullet.Decay)
		if b.Diminished(l.params.Bullet.MinRadius) {
			b.decayed = true
			l.kill(b)
			expired++
			if onExpire != nil {
				onExpire(b)
			}
		}
	}
	if expired > 0 {
		l.compactBullets()
	}
	return expired
}

func (l *Lifecycle) compactBullets() {
	n := 0
	for _, b := range l.bullets {
		if b.dead {
			continue
		}
		l.bullets[n] = b
		n++
	}
	for i := n; i < len(l.bullets); i++ {
		l.bullets[i] = nil
	}
	l.bullets = l.bullets[:n]
}

func (l *Lifecycle) purgeTombstones() {
	// Every 64 frames is plenty; tombstones only guard against late lists.
	if l.frame%64 != 0 {
		return
	}
	for id, at := range l.tombstones {
		if l.frame-at > l.params.TombstoneFrames {
			delete(l.tombstones, id)
		}
	}

	// Spent shots the server never listed are forgotten on the same clock.
	n := 0
	for _, b := range l.shots {
		if b.dead && l.frame-b.diedAt > l.params.TombstoneFrames {
			continue
		}
		l.shots[n] = b
		n++
	}
	for i := n; i < len(l.shots); i++ {
		l.shots[i] = nil
	}
	l.shots = l.shots[:n]
}

// =============================================================================
// COLLISION PASSES
// =============================================================================

// CollideBulletsAsteroids runs the bullet x asteroid pass.
//
// Asteroids are visited last to first; for each one the highest-index live
// bullet that overlaps it wins and both are destroyed. Children of split
// asteroids join the collection after the pass, so they are not tested in
// the frame that created them.
func (l *Lifecycle) CollideBulletsAsteroids() []AsteroidHit {
	if len(l.bullets) == 0 || len(l.asteroids) == 0 {
		return nil
	}

	if l.grid != nil {
		l.grid.Reset()
		for i, b := range l.bullets {
			l.grid.Insert(uint32(i), b.Pos.X, b.Pos.Y)
		}
	}

	var hits []AsteroidHit
	for i := len(l.asteroids) - 1; i >= 0; i-- {
		a := l.asteroids[i]
		if a.dead {
			continue
		}
		j := l.firstHit(a)
		if j < 0 {
			continue
		}

		b := l.bullets[j]
		l.kill(b)
		a.dead = true

		children := a.Split(l.params.Split, l.rng)
		l.spawned = append(l.spawned, children...)

		hits = append(hits, AsteroidHit{
			BulletID:   b.ID,
			ShooterID:  b.ShooterID,
			AsteroidID: a.ID,
			Pos:        a.Pos,
			Radius:     a.Radius,
			Children:   len(children),
		})
	}

	if len(hits) > 0 {
		l.compactBullets()
		l.compactAsteroids()
		l.flushSpawned()
	}
	return hits
}

// firstHit returns the index of the bullet a reverse scan would find first,
// or -1.
func (l *Lifecycle) firstHit(a *Asteroid) int {
	if l.grid == nil {
		for j := len(l.bullets) - 1; j >= 0; j-- {
			b := l.bullets[j]
			if !b.dead && BulletHitsAsteroid(b, a) {
				return j
			}
		}
		return -1
	}

	best := -1
	for _, id := range l.grid.QueryRadius(a.Pos.X, a.Pos.Y, a.Radius) {
		j := int(id)
		if j <= best {
			continue
		}
		if b := l.bullets[j]; !b.dead && BulletHitsAsteroid(b, a) {
			best = j
		}
	}
	return best
}

// CollideAsteroidsPlayer reports asteroids that started touching p this
// frame. An asteroid keeps touching across frames without reporting again
// and is never destroyed by the contact.
func (l *Lifecycle) CollideAsteroidsPlayer(p *Player, playerRadius float64, onContact func(*Asteroid)) int {
	contacts := 0
	for i := len(l.asteroids) - 1; i >= 0; i-- {
		a := l.asteroids[i]
		touching := AsteroidTouchesPlayer(a, p, playerRadius)
		if touching && !a.touching {
			contacts++
			if onContact != nil {
				onContact(a)
			}
		}
		a.touching = touching
	}
	return contacts
}

// CollideBulletsPlayer removes bullets from other shooters that overlap p
// and returns them. Bullets fired by p, optimistic copies included, are skipped.
func (l *Lifecycle) CollideBulletsPlayer(p *Player, playerRadius float64) []*Bullet {
	var hit []*Bullet
	for i := len(l.bullets) - 1; i >= 0; i-- {
		b := l.bullets[i]
		if b.dead || b.Origin == OriginLocal || !BulletHitsPlayer(b, p, playerRadius) {
			continue
		}
		l.kill(b)
		hit = append(hit, b)
	}
	if len(hit) > 0 {
		l.compactBullets()
	}
	return hit
}

// GridStats returns broad-phase occupancy, zero when the grid is disabled.
func (l *Lifecycle) GridStats() spatial.GridStats {
	if l.grid == nil {
		return spatial.GridStats{}
	}
	return l.grid.Stats()
}
