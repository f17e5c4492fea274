package game

// Circle is anything with a center and a radius.
type Circle struct {
	Center Vec2
	Radius float64
}

// Overlaps reports whether the centers are within the larger of the two radii.
// This is the generic hit test the server uses, not a sum-of-radii test.
func Overlaps(a, b Circle) bool {
	r := a.Radius
	if b.Radius > r {
		r = b.Radius
	}
	return a.Center.Dist(b.Center) <= r
}

// BulletHitsAsteroid uses the asteroid radius only; the bullet radius is ignored.
func BulletHitsAsteroid(b *Bullet, a *Asteroid) bool {
	return b.Pos.Dist(a.Pos) <= a.Radius
}

// AsteroidTouchesPlayer reports an asteroid overlapping the local player.
func AsteroidTouchesPlayer(a *Asteroid, p *Player, playerRadius float64) bool {
	return Overlaps(Circle{a.Pos, a.Radius}, Circle{p.Pos, playerRadius})
}

// BulletHitsPlayer reports a hit on p. A bullet fired by p never hits p,
// wherever it is.
func BulletHitsPlayer(b *Bullet, p *Player, playerRadius float64) bool {
	if b.ShooterID == p.ID {
		return false
	}
	return Overlaps(Circle{b.Pos, b.Radius}, Circle{p.Pos, playerRadius})
}

// AsteroidHit records one bullet destroying one asteroid.
type AsteroidHit struct {
	BulletID   string
	ShooterID  string
	AsteroidID uint32
	Pos        Vec2
	Radius     float64
	Children   int
}
