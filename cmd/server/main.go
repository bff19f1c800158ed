package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"wishwell/internal/chat"
	"wishwell/internal/config"
	"wishwell/internal/db"
	"wishwell/internal/dream"
	"wishwell/internal/ledger"
	"wishwell/internal/middleware"
	"wishwell/internal/platform/logger"
	"wishwell/internal/store/postgres"
	"wishwell/internal/user"
	"wishwell/internal/wish"
)

func main() {
	log := logger.New("wishwell")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config failed")
	}

	// Platform layer.
	database, err := db.NewDatabase(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to postgres failed")
	}
	if err := database.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("connected to postgres")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatal().Err(err).Msg("connecting to redis failed")
	}
	log.Info().Msg("connected to redis")

	st := postgres.New(database.Conn)

	// Features.
	ledgerService := ledger.NewService(st, log)
	ledgerHandler := ledger.NewHandler(ledgerService)

	userService := user.NewService(st, ledgerService, cfg.JWTSecret, log)
	userHandler := user.NewHandler(userService)

	wishService := wish.NewService(st, log)
	wishHandler := wish.NewHandler(wishService)

	engine := chat.NewEngine(st, chat.NewRedisBus(redisClient), log)
	hub := chat.NewHub(engine, log)
	go hub.Run()
	chatHandler := chat.NewHandler(engine, hub)

	dreamService := dream.NewService(st, engine, log)
	dreamHandler := dream.NewHandler(dreamService)

	// Expired dreams revert their wishes on a schedule, not on page load.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		if _, err := dreamService.Sweep(context.Background()); err != nil {
			log.Error().Err(err).Msg("expiry sweep failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("scheduling expiry sweep failed")
	}
	scheduler.Start()
	defer scheduler.Stop()

	authMiddleware := middleware.NewAuthMiddleware(userService)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public routes.
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)

	// Protected routes.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/ws", chatHandler.ServeWs)

		r.Get("/api/profile", userHandler.Profile)
		r.Get("/api/leaderboard", userHandler.Leaderboard)
		r.Get("/api/transactions", ledgerHandler.History)

		r.Post("/api/wishes", wishHandler.Create)
		r.Get("/api/wishes", wishHandler.List)
		r.Get("/api/wishes/{id}", wishHandler.Get)
		r.Post("/api/wishes/{id}/favorite", userHandler.ToggleFavorite)

		r.Post("/api/dreams", dreamHandler.Commit)
		r.Get("/api/dreams/in-progress", dreamHandler.ListInProgress)
		r.Post("/api/dreams/{id}/proof", dreamHandler.SubmitProof)
		r.Post("/api/dreams/{id}/decision", dreamHandler.Decide)

		r.Post("/api/conversations", chatHandler.StartConversation)
		r.Get("/api/conversations", chatHandler.Inbox)
		r.Get("/api/conversations/{id}/messages", chatHandler.Messages)
		r.Post("/api/conversations/{id}/read", chatHandler.MarkRead)
		r.Post("/api/messages", chatHandler.PostMessage)
		r.Get("/api/messages/unread-total", chatHandler.UnreadTotal)
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("server starting")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
