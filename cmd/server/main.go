package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"surveyflow/internal/cache"
	"surveyflow/internal/config"
	"surveyflow/internal/logger"
	"surveyflow/internal/metrics"
	"surveyflow/internal/repository"
	"surveyflow/internal/service"
	"surveyflow/internal/transport/rest"
	"surveyflow/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)
	defer log.Sync()
	zap.ReplaceGlobals(log)
	log.Info("started", zap.String("environment", cfg.Environment), zap.String("port", cfg.Port))

	ctx := context.Background()
	m := metrics.NewCollector("surveyflow")

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("failed to ping MongoDB", zap.Error(err))
	}
	log.Info("connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	db := mongoClient.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(pingCtx, db); err != nil {
		log.Fatal("failed to create indexes", zap.Error(err))
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("failed to ping Redis", zap.Error(err))
	}
	log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// Initialize repositories
	surveyRepo := repository.NewSurveyRepo(db)
	responseRepo := repository.NewResponseRepo(db)

	// Initialize caches
	sessionCache := cache.NewSessionCache(rdb, cfg.Redis.SessionTTL)
	definitionCache := cache.NewDefinitionCache(rdb, cfg.Redis.DefinitionTTL)

	// Initialize services
	authSvc := service.NewAuthService(cfg.Auth)
	surveySvc := service.NewSurveyService(surveyRepo, responseRepo, definitionCache, sessionCache, log, m)

	var verifier service.Verifier
	if vc := service.NewVerifyClient(cfg.Collaborator, log, m); vc != nil {
		verifier = vc
		log.Info("remote verification enabled", zap.String("url", cfg.Collaborator.VerifyURL))
	}

	var submitter service.Submitter
	if cfg.Collaborator.SubmitURL != "" {
		submitter = service.NewSubmitClient(cfg.Collaborator, log, m)
		log.Info("remote submission enabled", zap.String("url", cfg.Collaborator.SubmitURL))
	} else {
		submitter = service.NewLocalSubmitter(surveySvc, responseRepo, log)
		log.Info("SUBMIT_URL not set, storing responses locally")
	}

	sessionSvc := service.NewSessionService(surveySvc, sessionCache, authSvc, verifier, submitter, log, m)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	wsHub := ws.NewHub(log)
	sessionSvc.SetBroadcaster(wsHub)

	container := &rest.Container{
		AuthService:    authSvc,
		SurveyService:  surveySvc,
		SessionService: sessionSvc,
		WSHub:          wsHub,
		Metrics:        m,
		Logger:         log,
		CORSOrigins:    cfg.CORSOrigins,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           rest.NewRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
