package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/npearse/matchhall/internal/db"
	"github.com/npearse/matchhall/internal/gameio"
	"github.com/npearse/matchhall/internal/gateway"
	"github.com/npearse/matchhall/internal/service"
	"github.com/npearse/matchhall/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	database := db.InitDB(envOr("DB_PATH", "matchhall.db"))
	defer database.Close()

	if err := db.RunMigrations(database.DB, "file://migrations"); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	gameStore := store.NewGameStore(database)
	playerStore := store.NewPlayerStore(database)
	squadStore := store.NewSquadStore(database)
	teamStore := store.NewTeamStore(database)

	matches := service.NewMatchService(database, gameStore, squadStore,
		&service.RosterResolver{Players: playerStore}, service.NoTeamPolicy{}, logger)
	listing := service.NewListingService(database, gameStore)
	exporter := gameio.NewExporter(gameStore, playerStore, teamStore)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	webhooks := parseWebhooks(os.Getenv("BROADCAST_WEBHOOKS"))
	interval := envDuration("SWEEP_INTERVAL", time.Hour)
	sweeper := service.NewSweeper(interval, guildIDs(webhooks), matches, listing,
		gateway.NewWebhookNotifier(webhooks), logger)
	go sweeper.Run(ctx)

	router := newRouter(routerDeps{
		matches:  matches,
		listing:  listing,
		players:  playerStore,
		exporter: exporter,
	})

	addr := envOr("LISTEN_ADDR", ":8080")
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("server starting", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return d
}

// parseWebhooks reads "guildID=url,guildID=url" into a destination map.
func parseWebhooks(raw string) map[int64]string {
	urls := map[int64]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			log.Fatalf("invalid BROADCAST_WEBHOOKS entry %q", pair)
		}
		guildID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			log.Fatalf("invalid guild id in BROADCAST_WEBHOOKS entry %q", pair)
		}
		urls[guildID] = parts[1]
	}
	return urls
}

func guildIDs(webhooks map[int64]string) []int64 {
	ids := make([]int64, 0, len(webhooks))
	for id := range webhooks {
		ids = append(ids, id)
	}
	return ids
}
