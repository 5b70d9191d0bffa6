package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jengzang/location-tracker/internal/api"
	"github.com/jengzang/location-tracker/internal/config"
	"github.com/jengzang/location-tracker/internal/database"
	"github.com/jengzang/location-tracker/internal/geocoding"
	"github.com/jengzang/location-tracker/internal/middleware"
	"github.com/jengzang/location-tracker/internal/notification"
	"github.com/jengzang/location-tracker/internal/provider"
	"github.com/jengzang/location-tracker/internal/repository"
	"github.com/jengzang/location-tracker/internal/service"
	"github.com/jengzang/location-tracker/internal/telemetry"
	"github.com/jengzang/location-tracker/internal/tracker"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	telemetry.InitMetrics()

	// 初始化数据库 (replay reads recorded tracks, push records them)
	var db *sql.DB
	deps := api.Dependencies{Config: cfg}
	if cfg.Provider != config.ProviderSimulated && cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			log.Fatal("Failed to create database directory:", err)
		}
		db, err = database.Open(database.Config{Path: cfg.DBPath})
		if err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		defer db.Close()
	}

	var p provider.Provider
	switch cfg.Provider {
	case config.ProviderReplay:
		if db == nil {
			log.Fatal("Replay provider requires DB_PATH")
		}
		repo := repository.NewTrackRepository(db)
		deps.Tracks = service.NewTrackService(repo)
		replay := provider.NewReplay(repo, cfg.ReplayLoop)
		defer replay.Close()
		p = replay
	case config.ProviderPush:
		push := provider.NewPush()
		deps.Push = push
		if db != nil {
			deps.Tracks = service.NewTrackService(repository.NewTrackRepository(db))
		}
		p = push
	default:
		sim := provider.NewSimulated(provider.SimulatedOptions{
			OriginLat:  cfg.Simulation.OriginLat,
			OriginLng:  cfg.Simulation.OriginLng,
			StepMeters: cfg.Simulation.StepMeters,
			Seed:       cfg.Simulation.Seed,
		})
		defer sim.Close()
		p = sim
	}

	var geocoder geocoding.Geocoder = geocoding.NewGoogleClient(cfg.Geocode.APIKey, cfg.Geocode.BaseURL, cfg.Geocode.Timeout())
	if cfg.Geocode.CacheSize > 0 {
		geocoder = geocoding.NewCache(geocoder, cfg.Geocode.CacheCellM, cfg.Geocode.CacheSize, cfg.Geocode.TTL())
	}
	if cfg.Geocode.APIKey == "" {
		log.Printf("GOOGLE_MAPS_API_KEY not set, addresses will not be resolved")
	}

	center := notification.NewCenter(cfg.Notification)
	defer center.Close()

	t := tracker.New(p, geocoder, tracker.Options{
		HistorySize:    cfg.HistorySize,
		GeocodeTimeout: cfg.Geocode.Timeout(),
		Notifier:       center,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps.Tracker = t
	deps.Center = center
	deps.Limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateWindow())
	go deps.Limiter.Run(ctx)

	// 初始化路由
	router := api.SetupRouter(deps)
	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s (provider %s)", cfg.Port, cfg.Provider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := t.Close(); err != nil {
		log.Printf("Tracker shutdown error: %v", err)
	}
	log.Printf("Server shut down successfully")
}
