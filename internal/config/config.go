// Package config provides centralized configuration management.
// Every tunable of the arena client lives here; other packages receive
// these structs instead of reading the environment themselves.
package config

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimulationConfig holds the frame loop and physics constants.
// The defaults reproduce the behaviour the game server expects from a client.
type SimulationConfig struct {
	FrameRate   int     // Frames per second of the local loop
	ViewWidth   float64 // Logical view size, used for pointer math and spawn area
	ViewHeight  float64
	WorldWidth  float64 // Asteroids wrap at these bounds
	WorldHeight float64

	// Bullets
	BulletSpeed        float64 // Units per frame, fixed at spawn
	BulletRadius       float64 // Initial visual radius
	BulletDecay        float64 // k in r <- r + (0 - r) * k
	BulletMinRadius    float64 // Bullet is pruned once radius <= this
	FireCooldownFrames int     // Frames that must pass between two shots

	// Asteroids
	AsteroidCount     int
	AsteroidMinRadius float64 // Spawn radius range
	AsteroidMaxRadius float64
	AsteroidMaxSpeed  float64
	SplitThreshold    float64 // Radius above which a destroyed asteroid splits
	SplitChildren     int
	SplitRatio        float64 // Child radius = parent * ratio, floored at ChildMinRadius
	ChildMinRadius    float64
	SplitSpread       float64 // Radians between parent heading and each child

	// Local player
	PlayerRadius       float64
	MoveSpeed          float64 // Predicted movement per frame while a key is held
	BoostMultiplier    float64
	InitialShield      int
	ShieldMax          int
	AsteroidDamage     int // Shown in the contact popup; the server applies it
	TrailCapacity      int
	TrailBatch         int
	RandomSeed         int64 // 0 means seed from the clock
	RespawnPopupFrames int
	PopupFrames        int
	KillfeedFrames     int
	KillfeedMax        int
	HitMarkerFrames    int

	// Remote players missing from this many consecutive heartbeats are
	// dropped from the mirror. 0 keeps them until playerDisconnected.
	DepartedEvictHeartbeats int
}

// DefaultSimulation returns the default simulation configuration.
func DefaultSimulation() SimulationConfig {
	return SimulationConfig{
		FrameRate:   60,
		ViewWidth:   1920,
		ViewHeight:  1080,
		WorldWidth:  1920 * 3,
		WorldHeight: 1080 * 3,

		BulletSpeed:        10,
		BulletRadius:       10,
		BulletDecay:        0.005,
		BulletMinRadius:    1,
		FireCooldownFrames: 20,

		AsteroidCount:     30,
		AsteroidMinRadius: 40,
		AsteroidMaxRadius: 60,
		AsteroidMaxSpeed:  1.5,
		SplitThreshold:    30,
		SplitChildren:     2,
		SplitRatio:        0.5,
		ChildMinRadius:    15,
		SplitSpread:       math.Pi / 4,

		PlayerRadius:       21,
		MoveSpeed:          2,
		BoostMultiplier:    2,
		InitialShield:      0, // The server tops the shield up after registration
		ShieldMax:          1000,
		AsteroidDamage:     75,
		TrailCapacity:      200,
		TrailBatch:         10,
		RespawnPopupFrames: 120,
		PopupFrames:        60,
		KillfeedFrames:     300,
		KillfeedMax:        5,
		HitMarkerFrames:    20,

		DepartedEvictHeartbeats: 300,
	}
}

// SimulationFromEnv returns simulation configuration with environment overrides.
func SimulationFromEnv() SimulationConfig {
	cfg := DefaultSimulation()

	if fps := getEnvInt("FRAME_RATE", 0); fps > 0 {
		cfg.FrameRate = fps
	}
	if n := getEnvInt("ASTEROID_COUNT", -1); n >= 0 {
		cfg.AsteroidCount = n
	}
	if t := getEnvFloat("SPLIT_THRESHOLD", 0); t > 0 {
		cfg.SplitThreshold = t
	}
	if k := getEnvFloat("BULLET_DECAY", 0); k > 0 && k < 1 {
		cfg.BulletDecay = k
	}
	if cd := getEnvInt("FIRE_COOLDOWN_FRAMES", -1); cd >= 0 {
		cfg.FireCooldownFrames = cd
	}
	if n := getEnvInt("DEPARTED_EVICT_HEARTBEATS", -1); n >= 0 {
		cfg.DepartedEvictHeartbeats = n
	}
	cfg.RandomSeed = int64(getEnvInt("RANDOM_SEED", 0))

	return cfg
}

// FrameInterval is the wall-clock duration of one frame.
func (c SimulationConfig) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.FrameRate)
}

// =============================================================================
// NETWORK CONFIGURATION
// =============================================================================

// NetworkConfig configures the WebSocket connection to the game server.
type NetworkConfig struct {
	ServerURL      string        // ws:// or wss:// endpoint
	Codec          string        // "json" (text frames) or "msgpack" (binary frames)
	DialTimeout    time.Duration // Handshake timeout
	WriteWait      time.Duration // Time allowed to write a frame
	PongWait       time.Duration // Time allowed to read the next pong
	PingPeriod     time.Duration // Must be less than PongWait
	MaxMessageSize int64
	SendBuffer     int // Outbound frames queued before Send fails
	InboxCapacity  int // Inbound messages queued before the read pump drops
}

// DefaultNetwork returns the default network configuration.
func DefaultNetwork() NetworkConfig {
	return NetworkConfig{
		ServerURL:      "ws://localhost:3000/ws",
		Codec:          "json",
		DialTimeout:    10 * time.Second,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 1 << 20,
		SendBuffer:     256,
		InboxCapacity:  4096,
	}
}

// NetworkFromEnv returns network configuration with environment overrides.
func NetworkFromEnv() NetworkConfig {
	cfg := DefaultNetwork()

	if u := os.Getenv("SERVER_URL"); u != "" {
		cfg.ServerURL = u
	}
	if c := strings.ToLower(os.Getenv("WIRE_CODEC")); c == "json" || c == "msgpack" {
		cfg.Codec = c
	}
	cfg.DialTimeout = getEnvDuration("DIAL_TIMEOUT", cfg.DialTimeout)
	if n := getEnvInt("SEND_BUFFER", 0); n > 0 {
		cfg.SendBuffer = n
	}
	if n := getEnvInt("INBOX_CAPACITY", 0); n > 0 {
		cfg.InboxCapacity = n
	}

	return cfg
}

// =============================================================================
// SPATIAL PARTITIONING
// =============================================================================

// SpatialConfig holds the broad-phase grid settings.
type SpatialConfig struct {
	Enabled     bool
	CellSize    float64 // Should be at least twice the largest asteroid radius
	MaxEntities int
}

// DefaultSpatial returns the default spatial configuration.
func DefaultSpatial() SpatialConfig {
	return SpatialConfig{
		Enabled:     true,
		CellSize:    128,
		MaxEntities: 2048,
	}
}

// SpatialFromEnv returns spatial configuration with environment overrides.
func SpatialFromEnv() SpatialConfig {
	cfg := DefaultSpatial()
	cfg.Enabled = getEnvBool("SPATIAL_GRID", cfg.Enabled)
	if cs := getEnvFloat("SPATIAL_CELL_SIZE", 0); cs > 0 {
		cfg.CellSize = cs
	}
	return cfg
}

// =============================================================================
// EVENT JOURNAL
// =============================================================================

// JournalConfig configures the in-memory event journal.
type JournalConfig struct {
	BufferSize      int
	EventsPerSecond float64 // Global rate limit
	ChannelBurst    int     // Per-channel burst before throttling
	FilePath        string  // Empty disables the JSONL file
}

// DefaultJournal returns the default journal configuration.
func DefaultJournal() JournalConfig {
	return JournalConfig{
		BufferSize:      4096,
		EventsPerSecond: 500,
		ChannelBurst:    50,
	}
}

// JournalFromEnv returns journal configuration with environment overrides.
func JournalFromEnv() JournalConfig {
	cfg := DefaultJournal()
	cfg.FilePath = os.Getenv("JOURNAL_FILE")
	if n := getEnvInt("JOURNAL_BUFFER", 0); n > 0 {
		cfg.BufferSize = n
	}
	return cfg
}

// =============================================================================
// DEBUG SERVER
// =============================================================================

// DebugConfig configures the local observability server.
type DebugConfig struct {
	Enabled       bool
	ListenAddr    string
	BasicAuthUser string
	BasicAuthPass string
	CORSOrigins   []string
}

// DefaultDebug returns safe defaults (localhost only).
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
		CORSOrigins: []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		},
	}
}

// DebugFromEnv returns debug configuration with environment overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()
	cfg.Enabled = getEnvBool("DEBUG_SERVER", cfg.Enabled)
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
	return cfg
}

// =============================================================================
// AUTOPILOT
// =============================================================================

// AutopilotConfig drives the scripted input used by the headless binary.
type AutopilotConfig struct {
	Enabled     bool
	PlayerName  string
	TurnRate    float64 // Radians of aim rotation per frame
	FireEvery   int     // Frames between fire attempts
	SteerEvery  int     // Frames between direction key changes
	BoostChance float64 // Probability of holding spacebar on a steer change
}

// DefaultAutopilot returns the default autopilot configuration.
func DefaultAutopilot() AutopilotConfig {
	return AutopilotConfig{
		Enabled:     true,
		PlayerName:  "gopher",
		TurnRate:    0.02,
		FireEvery:   30,
		SteerEvery:  90,
		BoostChance: 0.2,
	}
}

// AutopilotFromEnv returns autopilot configuration with environment overrides.
func AutopilotFromEnv() AutopilotConfig {
	cfg := DefaultAutopilot()
	cfg.Enabled = getEnvBool("AUTOPILOT", cfg.Enabled)
	if name := os.Getenv("PLAYER_NAME"); name != "" {
		cfg.PlayerName = name
	}
	if n := getEnvInt("AUTOPILOT_FIRE_EVERY", 0); n > 0 {
		cfg.FireEvery = n
	}
	return cfg
}

// =============================================================================
// AGGREGATE CONFIGURATION
// =============================================================================

// AppConfig holds all application configuration.
type AppConfig struct {
	Simulation SimulationConfig
	Network    NetworkConfig
	Spatial    SpatialConfig
	Journal    JournalConfig
	Debug      DebugConfig
	Autopilot  AutopilotConfig
}

// Load returns the complete application configuration with env overrides.
func Load() AppConfig {
	return AppConfig{
		Simulation: SimulationFromEnv(),
		Network:    NetworkFromEnv(),
		Spatial:    SpatialFromEnv(),
		Journal:    JournalFromEnv(),
		Debug:      DebugFromEnv(),
		Autopilot:  AutopilotFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
