package server

import (
	"net/http"
	"time"

	indexingHttp "github.com/amankumarsingh77/video-scene-indexer/internal/indexing/delivery/http"
	indexingRepository "github.com/amankumarsingh77/video-scene-indexer/internal/indexing/repository"
	indexingUsecase "github.com/amankumarsingh77/video-scene-indexer/internal/indexing/usecase"
	"github.com/amankumarsingh77/video-scene-indexer/internal/middleware"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/utils"
	"github.com/labstack/echo/v4"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	jRepo := indexingRepository.NewJobRepo(s.db)
	tRedisRepo := indexingRepository.NewTaskRedisRepo(s.redisClient, time.Duration(s.cfg.Worker.LockTTLMin)*time.Minute)

	indexingUC := indexingUsecase.NewIndexingUseCase(s.cfg, jRepo, tRedisRepo, s.supervisor, s.logger)

	indexingHandlers := indexingHttp.NewIndexingHandler(indexingUC, s.logger)

	mw := middleware.NewMiddlewareManager(s.cfg, []string{"*"}, s.logger)
	e.Use(mw.RequestLoggerMiddleware)

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")

	indexingHttp.MapIndexingRoutes(v1, indexingHandlers)
	health.GET("", func(c echo.Context) error {
		s.logger.Infof("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}
