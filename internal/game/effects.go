package game

// Popup is floating text shown near the player, e.g. a shield delta.
// It fades out over TTL frames and is pruned once invisible.
type Popup struct {
	Text    string
	Pos     Vec2
	TTL     int // Remaining frames
	MaxTTL  int
	Visible bool
}

// NewPopup creates a visible popup that lives for ttl frames.
func NewPopup(text string, pos Vec2, ttl int) *Popup {
	return &Popup{Text: text, Pos: pos, TTL: ttl, MaxTTL: ttl, Visible: ttl > 0}
}

// Update drifts the popup upward and counts down its lifetime.
func (p *Popup) Update() {
	p.Pos.Y -= 0.5
	p.TTL--
	if p.TTL <= 0 {
		p.Visible = false
	}
}

// Alpha is the fade level in [0,1].
func (p *Popup) Alpha() float64 {
	if p.MaxTTL <= 0 {
		return 0
	}
	return float64(p.TTL) / float64(p.MaxTTL)
}

// KillfeedEntry is one line of the kill feed.
type KillfeedEntry struct {
	Killer string
	Victim string
	TTL    int
}

// Killfeed keeps the most recent kills, newest last.
type Killfeed struct {
	entries []KillfeedEntry
	max     int
	ttl     int
}

// NewKillfeed creates a feed holding at most max entries for ttl frames each.
func NewKillfeed(max, ttl int) *Killfeed {
	return &Killfeed{entries: make([]KillfeedEntry, 0, max), max: max, ttl: ttl}
}

// Add appends a kill, evicting the oldest when full.
func (k *Killfeed) Add(killer, victim string) {
	if k.max > 0 && len(k.entries) >= k.max {
		n := copy(k.entries, k.entries[1:])
		k.entries = k.entries[:n]
	}
	k.entries = append(k.entries, KillfeedEntry{Killer: killer, Victim: victim, TTL: k.ttl})
}

// Update ages every entry and drops expired ones.
func (k *Killfeed) Update() {
	n := 0
	for _, e := range k.entries {
		e.TTL--
		if e.TTL <= 0 {
			continue
		}
		k.entries[n] = e
		n++
	}
	k.entries = k.entries[:n]
}

// Entries returns a copy of the visible entries.
func (k *Killfeed) Entries() []KillfeedEntry {
	out := make([]KillfeedEntry, len(k.entries))
	copy(out, k.entries)
	return out
}

// Len returns the number of visible entries.
func (k *Killfeed) Len() int { return len(k.entries) }

// HitMarker confirms a hit on another player for a few frames.
type HitMarker struct {
	TargetID   string
	TargetName string
	TTL        int
}

// Show replaces the current marker.
func (h *HitMarker) Show(id, name string, ttl int) {
	h.TargetID = id
	h.TargetName = name
	h.TTL = ttl
}

// Update counts the marker down.
func (h *HitMarker) Update() {
	if h.TTL > 0 {
		h.TTL--
	}
}

// Active reports whether the marker is visible.
func (h *HitMarker) Active() bool { return h.TTL > 0 }
