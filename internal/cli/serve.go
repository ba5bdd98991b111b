package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quizdeck/internal/cache"
	"quizdeck/internal/compute"
	"quizdeck/internal/config"
	"quizdeck/internal/crowdsource"
	"quizdeck/internal/game"
	"quizdeck/internal/model"
	"quizdeck/internal/question"
	"quizdeck/internal/repository"
	"quizdeck/internal/resume"
	"quizdeck/internal/security"
	"quizdeck/internal/service"
	"quizdeck/internal/transport/rest"
	"quizdeck/internal/transport/ws"
)

const cleanupInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	// Missing .env is fine; real deployments configure the environment.
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Error("failed to connect to mongodb", zap.Error(err))
		return err
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		logger.Error("failed to ping mongodb", zap.Error(err))
		return err
	}
	logger.Info("connected to mongodb", zap.String("database", cfg.Mongo.Database))

	db := mongoClient.Database(cfg.Mongo.Database)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Error("failed to ping redis", zap.Error(err))
		return err
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

	// WebSocket hub
	wsHub := ws.NewHub(logger)

	// Repositories
	activityRepo := repository.NewActivityRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	playerRepo := repository.NewPlayerRepo(db)
	submissionRepo := repository.NewSubmissionRepo(db)

	// Caches
	sessionCache := cache.NewSessionCache(rdb)
	rosterCache := cache.NewRosterCache(rdb)
	leaderboard := cache.NewLeaderboard(rdb)

	// Services
	registry := question.NewRegistry()
	sanitizer := security.New()
	invoker := compute.NewClient(cfg.Compute, logger)
	if !cfg.Compute.IsEnabled() {
		logger.Warn("compute endpoint not configured, poll/ranking result phases will fail")
	}

	authSvc := service.NewAuthService(cfg)
	gameSvc := game.NewService(
		sessionRepo, playerRepo, submissionRepo,
		sessionCache, rosterCache, leaderboard,
		registry, invoker, wsHub, sanitizer, logger, cfg.Game)
	crowdSvc := crowdsource.NewService(
		sessionRepo, sessionCache, submissionRepo,
		invoker, sanitizer, wsHub, logger, cfg.Game)
	answerSvc := service.NewAnswerService(
		sessionRepo, sessionCache, playerRepo, leaderboard,
		registry, wsHub, logger)

	// Unanswered players get a timeout record whichever way a question
	// finishes.
	gameSvc.SetOnQuestionFinished(func(ctx context.Context, session *model.GameSession, reason game.FinishReason) {
		if err := answerSvc.RecordTimeouts(ctx, session); err != nil {
			logger.Warn("failed to record timeouts",
				zap.String("pin", session.PIN),
				zap.String("reason", string(reason)),
				zap.Error(err))
		}
	})

	// Host resume pointers
	pointerStore := resume.NewRedisStore(rdb, cfg.Game.PointerTTLDuration())
	resumeMgr := resume.NewManager(pointerStore, sessionRepo, cfg.Game.PointerTTLDuration(), logger)

	router := rest.NewRouter(&rest.Container{
		AuthService:        authSvc,
		GameService:        gameSvc,
		CrowdsourceService: crowdSvc,
		AnswerService:      answerSvc,
		Activities:         activityRepo,
		Leaderboard:        leaderboard,
		Resume:             resumeMgr,
		WSHub:              wsHub,
		Game:               cfg.Game,
		Logger:             logger,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n, err := gameSvc.CleanupStale(gctx)
				if err != nil {
					logger.Warn("stale session cleanup failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Info("cleaned up stale sessions", zap.Int("count", n))
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return err
	}
	logger.Info("server exited")
	return nil
}
