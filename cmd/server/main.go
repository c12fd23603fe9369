package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"booking-service/internal/app"
	"booking-service/internal/server"
)

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Log)

	var store *app.Store
	if cfg.DB.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.DB.URL)
		if err != nil {
			log.Fatalf("failed to connect to db: %v", err)
		}
		defer pool.Close()
		store = app.NewStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, booking records disabled")
	}

	calendarClient, err := app.NewCalendarClient(ctx, cfg.Calendar, logger)
	if err != nil {
		log.Fatalf("calendar client: %v", err)
	}

	tokenSource, err := app.NewConferenceTokenSource(ctx, cfg.Conference)
	if err != nil {
		logger.Warn("conferencing not configured", "error", err)
		tokenSource = app.ErrorTokenSource(err)
	}
	conferenceClient := app.NewConferenceClient(cfg.Conference, app.NewTokenCache(tokenSource), logger)

	dispatcher, err := app.NewNotificationDispatcher(cfg.SMTP, logger)
	if err != nil {
		log.Fatalf("notifications: %v", err)
	}

	orchestrator := app.NewOrchestrator(
		calendarClient, conferenceClient, dispatcher, store,
		cfg.Rules, cfg.Calendar.CalendarID, logger,
	)

	appInstance := &app.App{
		Calendar: calendarClient,
		Bookings: orchestrator,
		Busy:     app.NewBusyStore(),
		Store:    store,
		Cfg:      cfg,
		Logger:   logger,
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}))
	router.Use(app.AuthMiddleware(cfg.Auth))

	appInstance.Routes(router.Group("/api"))

	server.Run(router, cfg.Server.Port)
}

func newLogger(cfg app.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if gin.Mode() == gin.ReleaseMode {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
