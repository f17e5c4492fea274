package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"asteroid-arena/internal/api"
	"asteroid-arena/internal/client"
	"asteroid-arena/internal/config"
	"asteroid-arena/internal/game"
	"asteroid-arena/internal/protocol"
	"asteroid-arena/internal/transport"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	} else {
		log.Println("✅ Loaded environment from .env")
	}

	log.Println("☄️ ================================")
	log.Println("☄️  ASTEROID ARENA - GO CLIENT")
	log.Println("☄️ ================================")

	cfg := config.Load()

	name, err := game.ValidateName(cfg.Autopilot.PlayerName)
	if err != nil {
		log.Fatalf("❌ Player name: %v", err)
	}

	codec, err := protocol.NewCodec(cfg.Network.Codec)
	if err != nil {
		log.Fatalf("❌ Codec: %v", err)
	}
	log.Printf("🎮 Config: %d FPS, world %.0fx%.0f, %d asteroids, %s codec",
		cfg.Simulation.FrameRate, cfg.Simulation.WorldWidth, cfg.Simulation.WorldHeight,
		cfg.Simulation.AsteroidCount, codec.Name())

	journal := game.NewEventLog(cfg.Journal)
	if err := journal.Start(cfg.Journal.FilePath); err != nil {
		log.Printf("⚠️ Event log file disabled: %v", err)
		journal.Start("")
	} else if cfg.Journal.FilePath != "" {
		log.Printf("📝 Event log: %s", cfg.Journal.FilePath)
	}
	defer journal.Stop()

	engine := game.NewEngine(cfg.Simulation, cfg.Spatial, name, journal)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Network.DialTimeout)
	conn, err := transport.Dial(dialCtx, cfg.Network, codec)
	cancel()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	recorder := api.Recorder{}
	session := client.NewSession(cfg, engine, conn, recorder)
	if cfg.Autopilot.Enabled {
		session.SetAutopilot(client.NewAutopilot(cfg.Autopilot, engine.Seed()))
		log.Println("🤖 Autopilot enabled")
	}

	debug := api.StartDebugServer(cfg.Debug, api.RouterConfig{
		Snapshots:   engine,
		Journal:     journal,
		WorldWidth:  cfg.Simulation.WorldWidth,
		WorldHeight: cfg.Simulation.WorldHeight,
		Stats: func() map[string]interface{} {
			st := session.Stats()
			return map[string]interface{}{
				"decodeErrors": st.DecodeErrors,
				"inboxDrops":   st.InboxDrops,
				"inboxLen":     st.InboxLen,
			}
		},
	})
	defer debug.Stop()

	err = session.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Println("👋 Shutdown complete")
	case errors.Is(err, transport.ErrDisconnected):
		log.Printf("🔌 %v", err)
		journal.Stop()
		os.Exit(2)
	default:
		log.Printf("❌ %v", err)
		journal.Stop()
		os.Exit(1)
	}
}
