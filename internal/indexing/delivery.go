package indexing

import "github.com/labstack/echo/v4"

type Handler interface {
	EnqueueVideo() echo.HandlerFunc
	GetJobByID() echo.HandlerFunc
	ListJobs() echo.HandlerFunc
	ReindexFaces() echo.HandlerFunc
	FindMatchingFaces() echo.HandlerFunc
	EngineHealth() echo.HandlerFunc
}
