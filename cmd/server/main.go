package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/media-index-backend/internal/conf"
	indexbiz "github.com/lk2023060901/media-index-backend/internal/index/biz"
	indexdata "github.com/lk2023060901/media-index-backend/internal/index/data"
	indexservice "github.com/lk2023060901/media-index-backend/internal/index/service"
	ingestbiz "github.com/lk2023060901/media-index-backend/internal/ingest/biz"
	ingestdata "github.com/lk2023060901/media-index-backend/internal/ingest/data"
	ingestservice "github.com/lk2023060901/media-index-backend/internal/ingest/service"
	"github.com/lk2023060901/media-index-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-index-backend/internal/pkg/redis"
	"github.com/lk2023060901/media-index-backend/internal/server"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger with config
	log, err := logger.New(&logger.Config{
		Level:            config.Log.Level,
		Format:           config.Log.Format,
		Output:           config.Log.Output,
		EnableCaller:     config.Log.EnableCaller,
		EnableStacktrace: config.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   config.Log.File.Filename,
			MaxSize:    config.Log.File.MaxSize,
			MaxAge:     config.Log.File.MaxAge,
			MaxBackups: config.Log.File.MaxBackups,
			Compress:   config.Log.File.Compress,
		},
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("config loaded successfully")

	// Connect storage partitions
	partitionSet, cleanup, err := indexdata.NewPartitionSet(&config.Partitions, log)
	if err != nil {
		log.Fatal("failed to initialize partitions", zap.Error(err))
	}
	defer cleanup()

	// Index use cases
	indexer := indexbiz.NewIndexer(partitionSet, log)
	searchEngine := indexbiz.NewSearchEngine(partitionSet, config.Search.UseCaption, log)

	// Notification sinks: log always, Redis when configured
	sinks := ingestdata.MultiSink{ingestdata.NewLogSink(log)}
	if config.Redis.Addr != "" {
		redisClient, err := redis.New(&redis.Config{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		}, log)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		sinks = append(sinks, ingestdata.NewRedisSink(redisClient, config.Redis.Channel, log))
	}

	// Ingestion pipeline
	gatewaySource := ingestdata.NewGatewaySource(&config.Ingest.Gateway, log)
	supervisor := ingestbiz.NewSupervisor(indexer, gatewaySource, sinks, ingestbiz.Options{
		MediaTypes:         config.Ingest.MediaTypes,
		Extensions:         config.Ingest.Extensions,
		CheckpointInterval: config.Ingest.CheckpointInterval,
	}, log)

	// HTTP services
	filesService := indexservice.NewFilesService(searchEngine, config.Search.MaxResults, log)
	ingestService := ingestservice.NewIngestService(supervisor, log)

	httpServer := server.NewHTTPServer(config, log, filesService, ingestService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
