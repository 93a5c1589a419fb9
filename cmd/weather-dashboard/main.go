package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"k8s.io/utils/clock"

	"github.com/mr1hm/go-weather-dashboard/internal/api"
	"github.com/mr1hm/go-weather-dashboard/internal/config"
	"github.com/mr1hm/go-weather-dashboard/internal/dashboard"
	"github.com/mr1hm/go-weather-dashboard/internal/history"
	"github.com/mr1hm/go-weather-dashboard/internal/ingestion"
	"github.com/mr1hm/go-weather-dashboard/internal/logging"
	"github.com/mr1hm/go-weather-dashboard/internal/repository"
	"github.com/mr1hm/go-weather-dashboard/internal/stream"
	"github.com/mr1hm/go-weather-dashboard/internal/view"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	loc, err := cfg.Location()
	if err != nil {
		logging.Fatalf("Fatal while loading timezone: %v", err)
	}

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	if cfg.DB.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			logging.Fatalf("Failed to create database directory: %v", err)
		}
	}
	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := history.NewRecorder(db, cfg.Worker.Count, cfg.Worker.BufferSize)
	recorder.Start(ctx)

	nws := ingestion.NewClient(ingestion.ClientOptions{
		AlertsURL:       cfg.NWS.URL,
		UserAgent:       cfg.NWS.UserAgent,
		ZoneFallback:    cfg.NWS.ZoneFallback,
		ZoneConcurrency: cfg.NWS.ZoneConcurrency,
	})
	alerts := ingestion.NewCache(nws, cfg.NWS.CacheTTL, clock.RealClock{})

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Last-Modified"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS, "/api/stream"))

	handler := api.NewHandler(alerts, db)

	broadcaster := stream.NewBroadcaster()
	var dash *dashboard.Dashboard
	if cfg.Dashboard.Enabled {
		var fetcher dashboard.SnapshotFetcher = dashboard.NewSourceFetcher(alerts)
		if cfg.Dashboard.AlertsURL != "" {
			fetcher = dashboard.NewHTTPFetcher(cfg.Dashboard.AlertsURL, nil)
		}

		store := view.NewStore(broadcaster)
		dash = dashboard.New(clock.RealClock{}, fetcher, store, recorder, dashboard.Options{
			PollInterval:  cfg.Dashboard.PollInterval,
			AllowOverlap:  cfg.Dashboard.AllowOverlap,
			ClockInterval: cfg.Dashboard.ClockInterval,
			Session: dashboard.SessionOptions{
				HeadlinePeriod: cfg.Dashboard.HeadlineInterval,
				Location:       loc,
			},
		})
		handler.AttachDashboard(dash, store, broadcaster)
	}
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		logging.Fatalf("Failed to listen on %s: %v", srv.Addr, err)
	}
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	dashDone := make(chan struct{})
	if dash != nil {
		go func() {
			defer close(dashDone)
			dash.Run(ctx)
		}()
	} else {
		close(dashDone)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	<-dashDone
	broadcaster.Close() // Close all streams gracefully
	recorder.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
