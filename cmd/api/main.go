package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocktrack-api/internal/cache"
	"stocktrack-api/internal/config"
	"stocktrack-api/internal/handler"
	"stocktrack-api/internal/middleware"
	"stocktrack-api/internal/notify"
	"stocktrack-api/internal/repository"
	"stocktrack-api/internal/router"
	"stocktrack-api/internal/service"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting StockTrack API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize store based on config
	var store repository.Store
	switch cfg.Store.Type {
	case "mongodb", "mongo":
		mongoStore, err := repository.NewMongoStore(cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			log.Fatalf("Failed to initialize MongoDB: %v", err)
		}
		store = mongoStore
		log.Println("MongoDB store initialized")
	case "postgres", "postgresql":
		pgStore, err := repository.NewPostgresStore(cfg.Store.PostgresDSN())
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL: %v", err)
		}
		store = pgStore
		log.Println("PostgreSQL store initialized")
	case "mysql":
		mysqlStore, err := repository.NewMySQLStore(cfg.Store.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL: %v", err)
		}
		store = mysqlStore
		log.Println("MySQL store initialized")
	default: // sqlite
		sqliteStore, err := repository.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		store = sqliteStore
		log.Println("SQLite store initialized")
	}
	defer store.Close()

	// Initialize Redis client for sessions
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Session.RedisAddress(),
		Password: cfg.Session.RedisPassword,
		DB:       cfg.Session.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		redisClient = nil
	} else {
		log.Println("Redis client initialized")
	}
	cancel()

	// Listing cache
	var listCache cache.Cache
	switch {
	case cfg.Cache.Type == "redis" && redisClient != nil:
		listCache = cache.NewRedisCache(redisClient, "stocktrack:cache:")
		log.Println("Redis listing cache initialized")
	default:
		memCache := cache.NewMemoryCache()
		defer memCache.Close()
		listCache = memCache
		log.Println("In-memory listing cache initialized")
	}

	// Notification channels. A channel with missing credentials comes back
	// nil and the dispatcher skips it.
	telegram := notify.NewTelegramNotifier(
		cfg.Notify.TelegramBotToken,
		cfg.Notify.TelegramChatID,
		cfg.Notify.TelegramTimeout,
	)
	email := notify.NewEmailJSNotifier(
		cfg.Notify.EmailJSServiceID,
		cfg.Notify.EmailJSTemplateID,
		cfg.Notify.EmailJSPublicKey,
		cfg.Notify.EmailRecipient,
		cfg.App.DashboardURL,
		cfg.Notify.EmailJSTimeout,
	)
	dispatcher := notify.NewDispatcher(telegram, email)
	log.Printf("Notification channels: %v", dispatcher.Channels())

	// Initialize services
	reconcileService := service.NewReconcileService(store, dispatcher, listCache, cfg.Cache.TTL)

	var sessionService *service.SessionService
	if redisClient != nil {
		sessionService = service.NewSessionService(redisClient, store, cfg.Session.AdminKey, cfg.Session.TokenTTL)
	}

	if err := service.EnsureSeedAdmin(context.Background(), store, cfg.Session.AdminEmail); err != nil {
		log.Printf("Warning: admin seed failed: %v", err)
	}

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version)
	stockHandler := handler.NewStockHandler(reconcileService)
	outboundHandler := handler.NewOutboundHandler(reconcileService)
	adminHandler := handler.NewAdminHandler(reconcileService, cfg.Store.Type)
	userHandler := handler.NewUserHandler(store)

	var authHandler *handler.AuthHandler
	if sessionService != nil {
		authHandler = handler.NewAuthHandler(sessionService)
	}

	// Create auth middleware with injected dependencies
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		Sessions: sessionService,
	})

	// Create router
	r := router.New(router.Config{
		Handler:         healthHandler,
		StockHandler:    stockHandler,
		OutboundHandler: outboundHandler,
		AdminHandler:    adminHandler,
		AuthHandler:     authHandler,
		UserHandler:     userHandler,
		AuthMiddleware:  authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
