package indexing

import (
	"context"

	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/utils"
)

// Repository persists job records. The pipeline mutates records at
// stage boundaries and on progress callbacks; it never deletes them.
type Repository interface {
	CreateJob(ctx context.Context, job *models.IndexJob) (*models.IndexJob, error)
	GetJobByID(ctx context.Context, jobID string) (*models.IndexJob, error)
	GetJobByVideoPath(ctx context.Context, videoPath string) (*models.IndexJob, error)
	ListJobs(ctx context.Context, filter *models.JobFilter, pq *utils.Pagination) (*models.JobList, error)
	UpdateJob(ctx context.Context, job *models.IndexJob) error
	UpdateProgress(ctx context.Context, jobID string, stage models.JobStage, progress, overall float64) error
	UpdateStatus(ctx context.Context, jobID string, status models.JobStatus) error
}
