package repository

import (
	"context"
	"fmt"

	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing"
	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/utils"
	"github.com/jmoiron/sqlx"
)

type jobRepo struct {
	db *sqlx.DB
}

func NewJobRepo(db *sqlx.DB) indexing.Repository {
	return &jobRepo{
		db: db,
	}
}

func (r *jobRepo) CreateJob(ctx context.Context, job *models.IndexJob) (*models.IndexJob, error) {
	created := &models.IndexJob{}
	if err := r.db.QueryRowxContext(
		ctx,
		createJobQuery,
		job.JobID,
		job.VideoPath,
		job.Status,
		job.Stage,
		job.Progress,
		job.OverallProgress,
		job.ThumbnailPath,
		job.FileSize,
		job.Attempts,
	).StructScan(created); err != nil {
		return nil, fmt.Errorf("failed to create index job: %w", err)
	}
	return created, nil
}

func (r *jobRepo) GetJobByID(ctx context.Context, jobID string) (*models.IndexJob, error) {
	job := &models.IndexJob{}
	if err := r.db.GetContext(ctx, job, getJobByIDQuery, jobID); err != nil {
		return nil, fmt.Errorf("failed to get job by id: %w", err)
	}
	return job, nil
}

func (r *jobRepo) GetJobByVideoPath(ctx context.Context, videoPath string) (*models.IndexJob, error) {
	job := &models.IndexJob{}
	if err := r.db.GetContext(ctx, job, getJobByVideoPathQuery, videoPath); err != nil {
		return nil, fmt.Errorf("failed to get job by video path: %w", err)
	}
	return job, nil
}

func (r *jobRepo) ListJobs(ctx context.Context, filter *models.JobFilter, pq *utils.Pagination) (*models.JobList, error) {
	if filter == nil {
		filter = &models.JobFilter{}
	}

	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countJobsQuery, filter.Status, filter.Query); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	if totalCount == 0 {
		return &models.JobList{
			Jobs:       make([]*models.IndexJob, 0),
			TotalCount: 0,
			Page:       pq.GetPage(),
			PageSize:   pq.GetSize(),
			HasMore:    false,
		}, nil
	}

	rows, err := r.db.QueryxContext(ctx, listJobsQuery, filter.Status, filter.Query, pq.GetOffset(), pq.GetLimit())
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*models.IndexJob, 0, pq.GetSize())
	for rows.Next() {
		var job models.IndexJob
		if err = rows.StructScan(&job); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
	}

	return &models.JobList{
		Jobs:       jobs,
		TotalCount: totalCount,
		Page:       pq.GetPage(),
		PageSize:   pq.GetSize(),
		HasMore:    utils.GetHasMore(pq.GetPage(), totalCount, pq.GetSize()),
	}, nil
}

func (r *jobRepo) UpdateJob(ctx context.Context, job *models.IndexJob) error {
	if _, err := r.db.ExecContext(
		ctx,
		updateJobQuery,
		job.Status,
		job.Stage,
		job.Progress,
		job.OverallProgress,
		job.ThumbnailPath,
		job.FileSize,
		job.Attempts,
		job.JobID,
	); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (r *jobRepo) UpdateProgress(ctx context.Context, jobID string, stage models.JobStage, progress, overall float64) error {
	if _, err := r.db.ExecContext(ctx, updateProgressQuery, stage, progress, overall, jobID); err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

func (r *jobRepo) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus) error {
	if _, err := r.db.ExecContext(ctx, updateStatusQuery, status, jobID); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}
