package indexing

import (
	"context"

	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/utils"
)

type UseCase interface {
	EnqueueVideo(ctx context.Context, videoPath string) (*models.IndexJob, error)
	GetJob(ctx context.Context, jobID string) (*models.IndexJob, error)
	ListJobs(ctx context.Context, filter *models.JobFilter, pq *utils.Pagination) (*models.JobList, error)
	ReindexFaces(ctx context.Context) error
	FindMatchingFaces(ctx context.Context, input *models.FaceMatchInput) (*models.FaceMatchResult, error)
	EngineHealth(ctx context.Context) (string, error)
}
