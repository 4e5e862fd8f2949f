package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amankumarsingh77/video-scene-indexer/internal/config"
	"github.com/amankumarsingh77/video-scene-indexer/internal/engine"
	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing/repository"
	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing/usecase"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/db/postgres"
	clientRedis "github.com/amankumarsingh77/video-scene-indexer/pkg/db/redis"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/logger"
)

// Scans the media directory and enqueues an index job for every video
// file that does not already have one.
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

	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to db: %s", err)
	}
	defer psqlDB.Close()

	redisClient, err := clientRedis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	defer redisClient.Close()

	jobRepo := repository.NewJobRepo(psqlDB)
	redisRepo := repository.NewTaskRedisRepo(redisClient, time.Duration(cfg.Worker.LockTTLMin)*time.Minute)
	supervisor := engine.NewSupervisor(engine.ConfigFrom(cfg.Engine), appLogger)
	indexingUC := usecase.NewIndexingUseCase(cfg, jobRepo, redisRepo, supervisor, appLogger)

	extensions := cfg.Media.Extensions
	if len(extensions) == 0 {
		extensions = []string{".mp4", ".mkv", ".mov", ".avi", ".webm"}
	}

	ctx := context.Background()
	var enqueued, skipped int
	err = filepath.WalkDir(cfg.Media.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !hasExtension(path, extensions) {
			return nil
		}
		job, err := indexingUC.EnqueueVideo(ctx, path)
		if err != nil {
			appLogger.Warnf("skipping %s: %s", path, err)
			skipped++
			return nil
		}
		appLogger.Infof("job %s: %s (%s)", job.JobID, path, job.Status)
		enqueued++
		return nil
	})
	if err != nil {
		appLogger.Fatalf("media scan failed: %s", err)
	}
	appLogger.Infof("ingestion done, %d jobs, %d skipped", enqueued, skipped)
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
