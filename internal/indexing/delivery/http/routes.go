package http

import (
	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing"
	"github.com/labstack/echo/v4"
)

func MapIndexingRoutes(v1 *echo.Group, h indexing.Handler) {
	v1.POST("/jobs", h.EnqueueVideo())
	v1.GET("/jobs", h.ListJobs())
	v1.GET("/jobs/:job_id", h.GetJobByID())
	v1.POST("/faces/reindex", h.ReindexFaces())
	v1.POST("/faces/find-matches", h.FindMatchingFaces())
	v1.GET("/engine/health", h.EngineHealth())
}
