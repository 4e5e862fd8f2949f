package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amankumarsingh77/video-scene-indexer/internal/config"
	"github.com/amankumarsingh77/video-scene-indexer/internal/engine"
	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing"
	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing/repository"
	"github.com/amankumarsingh77/video-scene-indexer/internal/worker"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/db/aws"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/db/postgres"
	clientRedis "github.com/amankumarsingh77/video-scene-indexer/pkg/db/redis"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/logger"
)

func main() {
	configFile := "config.yml"
	cfgFile, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}
	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to db: %s", err)
	}
	appLogger.Infof("db connected, status: %#v", psqlDB.Stats())
	defer psqlDB.Close()

	redisClient, err := clientRedis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	appLogger.Infof("redis connected")
	defer redisClient.Close()

	artifactRepo, err := newArtifactRepo(cfg)
	if err != nil {
		appLogger.Fatalf("could not build artifact store: %s", err)
	}

	jobRepo := repository.NewJobRepo(psqlDB)
	redisRepo := repository.NewTaskRedisRepo(redisClient, time.Duration(cfg.Worker.LockTTLMin)*time.Minute)
	vectorRepo := repository.NewVectorHTTPRepo(cfg.Vector.ServiceURL, time.Duration(cfg.Vector.TimeoutSec)*time.Second)

	supervisor := engine.NewSupervisor(engine.ConfigFrom(cfg.Engine), appLogger)
	pipeline := worker.NewPipeline(cfg, appLogger, jobRepo, artifactRepo, vectorRepo, supervisor, worker.NewFfmpegThumbnailer())
	w := worker.NewWorker(cfg, appLogger, redisRepo, jobRepo, pipeline)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down worker")
		cancel()
	}()

	w.Start(ctx)
	w.Wait()
	supervisor.Stop()
}

func newArtifactRepo(cfg *config.Config) (indexing.ArtifactRepository, error) {
	if cfg.Artifacts.Backend == "s3" {
		s3Client, err := aws.NewAWSClient(cfg.Artifacts.Endpoint, cfg.Artifacts.Region, cfg.Artifacts.AccessKey, cfg.Artifacts.SecretKey)
		if err != nil {
			return nil, err
		}
		return repository.NewS3ArtifactRepo(s3Client, cfg.Artifacts.Bucket), nil
	}
	return repository.NewFsArtifactRepo(cfg.Artifacts.Dir), nil
}
