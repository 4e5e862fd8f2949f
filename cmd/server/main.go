package main

import (
	"log"

	"github.com/amankumarsingh77/video-scene-indexer/internal/config"
	"github.com/amankumarsingh77/video-scene-indexer/internal/engine"
	"github.com/amankumarsingh77/video-scene-indexer/internal/server"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/db/postgres"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/db/redis"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/logger"
)

func main() {
	log.Println("Starting server")
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

	redisClient, err := redis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	appLogger.Infof("redis connected")
	defer redisClient.Close()

	supervisor := engine.NewSupervisor(engine.ConfigFrom(cfg.Engine), appLogger)

	s := server.NewServer(cfg, psqlDB, redisClient, supervisor, appLogger)
	if err = s.Run(); err != nil {
		appLogger.Infof("could not start server: %s", err)
	}
}
