package game

import "sort"

// OtherPlayer mirrors a remote player as last reported by the server.
// Physics never touches it.
type OtherPlayer struct {
	ID        string
	Name      string
	Pos       Vec2
	Angle     float64
	Score     int
	Level     int
	Shield    int
	LastDeath *int64 // Non-nil while dead or after dropping out of the heartbeat
}

// Dead reports whether the player should be skipped by the renderer.
func (o *OtherPlayer) Dead() bool { return o.LastDeath != nil }

// DepartedMarker is stored in LastDeath for players missing from a heartbeat.
const DepartedMarker int64 = -1

// LeaderboardEntry is one ranked row, in server order.
type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Food is a pickup the server spawns; the client only mirrors it.
type Food struct {
	ID     string
	Pos    Vec2
	Radius float64
}

// Mirrors holds every read-mostly copy of server state.
type Mirrors struct {
	others      map[string]*OtherPlayer
	missed      map[string]int // Consecutive heartbeats an id was absent from
	evictAfter  int
	leaderboard []LeaderboardEntry
	food        []Food
}

// NewMirrors creates empty mirrors. Players absent from evictAfter
// consecutive heartbeats are dropped; 0 never drops them.
func NewMirrors(evictAfter int) *Mirrors {
	return &Mirrors{
		others:     make(map[string]*OtherPlayer),
		missed:     make(map[string]int),
		evictAfter: evictAfter,
	}
}

// MergeOthers applies a heartbeat: ids in states are added or updated,
// ids missing from it are marked departed and eventually evicted. It
// returns the number of entries whose state actually changed, and the
// evicted ids.
func (m *Mirrors) MergeOthers(states []OtherPlayer) (int, []string) {
	changed := 0
	present := make(map[string]struct{}, len(states))
	var evicted []string

	for i := range states {
		s := states[i]
		present[s.ID] = struct{}{}
		delete(m.missed, s.ID)
		cur, ok := m.others[s.ID]
		if !ok {
			cp := s
			m.others[s.ID] = &cp
			changed++
			continue
		}
		if !sameOther(cur, &s) {
			*cur = s
			changed++
		}
	}

	for id, o := range m.others {
		if _, ok := present[id]; ok {
			continue
		}
		m.missed[id]++
		if m.evictAfter > 0 && m.missed[id] >= m.evictAfter {
			delete(m.others, id)
			delete(m.missed, id)
			evicted = append(evicted, id)
			changed++
			continue
		}
		if o.LastDeath == nil {
			marker := DepartedMarker
			o.LastDeath = &marker
			changed++
		}
	}
	sort.Strings(evicted)
	return changed, evicted
}

func sameOther(a, b *OtherPlayer) bool {
	if a.ID != b.ID || a.Name != b.Name || a.Pos != b.Pos || a.Angle != b.Angle ||
		a.Score != b.Score || a.Level != b.Level || a.Shield != b.Shield {
		return false
	}
	if (a.LastDeath == nil) != (b.LastDeath == nil) {
		return false
	}
	return a.LastDeath == nil || *a.LastDeath == *b.LastDeath
}

// RemoveOther deletes a remote player. Unknown ids return false.
func (m *Mirrors) RemoveOther(id string) bool {
	if _, ok := m.others[id]; !ok {
		return false
	}
	delete(m.others, id)
	delete(m.missed, id)
	return true
}

// Other returns a copy of one remote player.
func (m *Mirrors) Other(id string) (OtherPlayer, bool) {
	o, ok := m.others[id]
	if !ok {
		return OtherPlayer{}, false
	}
	return *o, true
}

// Others returns copies of every remote player sorted by id.
func (m *Mirrors) Others() []OtherPlayer {
	out := make([]OtherPlayer, 0, len(m.others))
	for _, o := range m.others {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OtherCount returns the number of mirrored players, departed included.
func (m *Mirrors) OtherCount() int { return len(m.others) }

// ReplaceLeaderboard swaps the ranking wholesale.
func (m *Mirrors) ReplaceLeaderboard(entries []LeaderboardEntry) {
	m.leaderboard = entries
}

// Leaderboard returns the current ranking.
func (m *Mirrors) Leaderboard() []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(m.leaderboard))
	copy(out, m.leaderboard)
	return out
}

// LeaderID returns the id ranked first, or "" with no ranking.
func (m *Mirrors) LeaderID() string {
	if len(m.leaderboard) == 0 {
		return ""
	}
	return m.leaderboard[0].ID
}

// ReplaceFood swaps the food collection wholesale.
func (m *Mirrors) ReplaceFood(food []Food) {
	m.food = food
}

// Food returns the current food collection.
func (m *Mirrors) Food() []Food {
	out := make([]Food, len(m.food))
	copy(out, m.food)
	return out
}
