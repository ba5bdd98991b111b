package cli

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"quizdeck/internal/cache"
	"quizdeck/internal/compute"
	"quizdeck/internal/config"
	"quizdeck/internal/game"
	"quizdeck/internal/question"
	"quizdeck/internal/repository"
	"quizdeck/internal/security"
	"quizdeck/internal/transport/ws"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Cancel sessions abandoned past the stale threshold and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCleanup()
	},
}

func runCleanup() error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Error("failed to connect to mongodb", zap.Error(err))
		return err
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.Mongo.Database)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// No clients are connected; the hub only satisfies the broadcaster.
	gameSvc := game.NewService(
		repository.NewSessionRepo(db),
		repository.NewPlayerRepo(db),
		repository.NewSubmissionRepo(db),
		cache.NewSessionCache(rdb),
		cache.NewRosterCache(rdb),
		cache.NewLeaderboard(rdb),
		question.NewRegistry(),
		compute.NewClient(cfg.Compute, logger),
		ws.NewHub(logger),
		security.New(),
		logger,
		cfg.Game)

	n, err := gameSvc.CleanupStale(ctx)
	if err != nil {
		logger.Error("cleanup failed", zap.Error(err))
		return err
	}
	logger.Info("cleanup finished", zap.Int("cancelled", n))
	return nil
}
