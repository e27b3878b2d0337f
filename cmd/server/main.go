package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/barease/backend/config"
	httpDelivery "github.com/barease/backend/internal/delivery/http"
	"github.com/barease/backend/internal/domain"
	"github.com/barease/backend/internal/infrastructure/bedrock"
	"github.com/barease/backend/internal/infrastructure/cache"
	"github.com/barease/backend/internal/infrastructure/sheet"
	"github.com/barease/backend/internal/infrastructure/storage"
	"github.com/barease/backend/internal/logging"
	"github.com/barease/backend/internal/scheduler"
	"github.com/barease/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Type).
		Str("cache", cfg.Cache.Type).
		Msg("starting BarEase backend v1.0.0")

	ctx := context.Background()

	// AWS clients
	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load AWS config")
	}

	bedrockClient, err := bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.Config{
		EmbeddingModel:    cfg.Bedrock.EmbeddingModel,
		TextModel:         cfg.Bedrock.TextModel,
		RequestsPerSecond: cfg.Bedrock.RequestsPerSecond,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create bedrock client")
	}

	// Snapshot and image storage
	snapshotStore, imageStore := newStorage(cfg, awsCfg)

	// Snapshot cache
	cacheRepo, closeCache, err := newCache(ctx, cfg.Cache)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize cache")
	}
	defer closeCache()
	logging.Info().Dur("ttl", cfg.Cache.TTL).Msg("snapshot cache ready")

	// Initialize usecase layer
	snapshots := usecase.NewSnapshotReader(snapshotStore, cacheRepo, cfg.Cache.TTL)
	queryEmbedder := usecase.NewCachedEmbedder(bedrockClient, cfg.Recommend.QueryCacheSize, cfg.Recommend.QueryCacheTTL)
	recommendService := usecase.NewRecommendService(snapshots, queryEmbedder, usecase.RecommendServiceConfig{
		DefaultLimit: cfg.Recommend.DefaultLimit,
		MaxLimit:     cfg.Recommend.MaxLimit,
	})

	var sheetRepo domain.SheetRepository
	if cfg.Sheet.TableName != "" {
		sheetRepo = sheet.NewRepository(dynamodb.NewFromConfig(awsCfg), cfg.Sheet.TableName)
	}

	menuService := usecase.NewMenuService(sheetRepo, snapshotStore, snapshots, bedrockClient, usecase.MenuServiceConfig{
		EmbeddingRetries: cfg.Bedrock.EmbeddingRetries,
	})

	services := httpDelivery.Services{
		Recommender: recommendService,
		Menu:        menuService,
	}

	var sched *scheduler.Scheduler
	if sheetRepo != nil {
		completionService := usecase.NewCompletionService(sheetRepo, imageStore, bedrockClient)
		services.Generator = menuService
		services.Sync = usecase.NewSyncService(sheetRepo, imageStore, menuService)
		services.Approval = usecase.NewApprovalService(sheetRepo, imageStore, menuService)
		services.Suggestions = completionService

		if cfg.Schedule.Enabled {
			sched = scheduler.New(cfg.Schedule.Timeout)
			if err := sched.AddNightlyCompletion(cfg.Schedule.NightlyCompletion, completionService); err != nil {
				logging.Fatal().Err(err).Msg("failed to schedule nightly completion")
			}
			sched.Start()
			logging.Info().Str("schedule", cfg.Schedule.NightlyCompletion).Msg("nightly completion scheduled")
		}
	} else {
		logging.Warn().Msg("sheet table not configured: sync, webhook and regeneration endpoints are disabled")
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(services)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logging.Info().Msg("received shutdown signal")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown failed")
	}
	logging.Info().Msg("server stopped")
}

// loadAWSConfig loads the shared AWS config, pointing every client at the
// custom endpoint when one is set (LocalStack)
func loadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	var options []func(*awsconfig.LoadOptions) error
	options = append(options, awsconfig.WithRegion(cfg.Region))
	if cfg.Endpoint != "" {
		options = append(options, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}
	return awsconfig.LoadDefaultConfig(ctx, options...)
}

func newStorage(cfg *config.Config, awsCfg aws.Config) (domain.SnapshotStore, domain.ImageStore) {
	if cfg.Storage.Type == "file" {
		logging.Info().Str("dir", cfg.Storage.FixtureDir).Msg("using file snapshot store")
		images := storage.NewLocalImageStore(filepath.Join(cfg.Storage.FixtureDir, "images"), cfg.Storage.PublicBaseURL)
		return storage.NewFileStore(cfg.Storage.FixtureDir, cfg.Storage.MenuKey, cfg.Storage.EmbeddingKey), images
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Force path style for LocalStack
		if cfg.AWS.Endpoint != "" {
			o.UsePathStyle = true
		}
	})
	store := storage.NewS3Store(client, storage.S3Config{
		Region:             cfg.AWS.Region,
		MenuBucket:         cfg.Storage.MenuBucket,
		PublicImageBucket:  cfg.Storage.PublicImageBucket,
		StagingImageBucket: cfg.Storage.StagingImageBucket,
		MenuKey:            cfg.Storage.MenuKey,
		EmbeddingKey:       cfg.Storage.EmbeddingKey,
	})
	logging.Info().Str("bucket", cfg.Storage.MenuBucket).Msg("using s3 snapshot store")
	return store, store
}

func newCache(ctx context.Context, cfg config.CacheConfig) (domain.CacheRepository, func(), error) {
	if cfg.Type == "redis" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, "barease:")
		if err != nil {
			return nil, nil, err
		}
		return redisCache, func() { _ = redisCache.Close() }, nil
	}
	memoryCache := cache.NewMemoryCache()
	return memoryCache, func() { _ = memoryCache.Close() }, nil
}
