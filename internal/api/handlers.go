package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"asteroid-arena/internal/game"
)

const maxEvents = 500

// snapshot returns the latest snapshot or writes 503 before the first frame.
func (h *routerHandlers) snapshot(w http.ResponseWriter) *game.Snapshot {
	snap := h.snapshots.GetSnapshot()
	if snap == nil {
		writeError(w, "No frame simulated yet", http.StatusServiceUnavailable)
	}
	return snap
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w); snap != nil {
		writeJSON(w, snap)
	}
}

func (h *routerHandlers) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w); snap != nil {
		writeJSON(w, snap.Player)
	}
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}
	entries := snap.Leaderboard
	if entries == nil {
		entries = []game.LeaderboardEntry{}
	}
	writeJSON(w, entries)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}
	stats := map[string]interface{}{
		"frame":      snap.Frame,
		"sequence":   snap.Sequence,
		"seed":       snap.RNGSeed,
		"bullets":    len(snap.Bullets),
		"asteroids":  len(snap.Asteroids),
		"others":     len(snap.Others),
		"food":       len(snap.Food),
		"explosions": snap.Explosions,
		"grid":       snap.Grid,
		"rateLimit":  h.limiter.GetStats(),
	}
	if h.journal != nil {
		stats["journal"] = h.journal.GetStats()
	}
	if h.stats != nil {
		stats["session"] = h.stats()
	}
	writeJSON(w, stats)
}

// handleGetEvents returns the newest journal events, oldest first.
// ?n= bounds the count (default 50, max 500).
func (h *routerHandlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, "Journal disabled", http.StatusNotFound)
		return
	}
	n := 50
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	if n > maxEvents {
		n = maxEvents
	}
	writeJSON(w, h.journal.Recent(n))
}

func (h *routerHandlers) handleGetRadar(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}
	size := defaultRadarSize
	if v := r.URL.Query().Get("size"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < minRadarSize || parsed > maxRadarSize {
			writeError(w, "size out of range", http.StatusBadRequest)
			return
		}
		size = parsed
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := renderRadar(w, snap, h.radar, size); err != nil {
		log.Printf("⚠️ Radar render failed: %v", err)
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
