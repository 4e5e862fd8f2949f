package http

import (
	"net/http"

	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing"
	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/logger"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/utils"
	"github.com/labstack/echo/v4"
)

type indexingHandler struct {
	indexingUC indexing.UseCase
	logger     logger.Logger
}

func NewIndexingHandler(indexingUC indexing.UseCase, log logger.Logger) indexing.Handler {
	return &indexingHandler{
		indexingUC: indexingUC,
		logger:     log,
	}
}

type enqueueVideoInput struct {
	VideoPath string `json:"video_path" validate:"required,lte=1024"`
}

func (h *indexingHandler) EnqueueVideo() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &enqueueVideoInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		job, err := h.indexingUC.EnqueueVideo(c.Request().Context(), input.VideoPath)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, job)
	}
}

func (h *indexingHandler) GetJobByID() echo.HandlerFunc {
	return func(c echo.Context) error {
		job, err := h.indexingUC.GetJob(c.Request().Context(), c.Param("job_id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, job)
	}
}

func (h *indexingHandler) ListJobs() echo.HandlerFunc {
	return func(c echo.Context) error {
		pq, err := utils.GetPaginationFromCtx(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		filter := &models.JobFilter{
			Status: c.QueryParam("status"),
			Query:  c.QueryParam("q"),
		}
		jobs, err := h.indexingUC.ListJobs(c.Request().Context(), filter, pq)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, jobs)
	}
}

func (h *indexingHandler) ReindexFaces() echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := h.indexingUC.ReindexFaces(c.Request().Context()); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "done"})
	}
}

func (h *indexingHandler) FindMatchingFaces() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.FaceMatchInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		result, err := h.indexingUC.FindMatchingFaces(c.Request().Context(), input)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, result)
	}
}

func (h *indexingHandler) EngineHealth() echo.HandlerFunc {
	return func(c echo.Context) error {
		status, err := h.indexingUC.EngineHealth(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": status})
	}
}
