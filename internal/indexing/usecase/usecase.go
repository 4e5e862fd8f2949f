package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/amankumarsingh77/video-scene-indexer/internal/config"
	"github.com/amankumarsingh77/video-scene-indexer/internal/engine"
	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing"
	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/logger"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/utils"
	"github.com/google/uuid"
)

type indexingUC struct {
	cfg       *config.Config
	jobRepo   indexing.Repository
	redisRepo indexing.RedisRepository
	engine    indexing.EngineClient
	logger    logger.Logger
}

func NewIndexingUseCase(
	cfg *config.Config,
	jobRepo indexing.Repository,
	redisRepo indexing.RedisRepository,
	engineClient indexing.EngineClient,
	log logger.Logger,
) indexing.UseCase {
	return &indexingUC{
		cfg:       cfg,
		jobRepo:   jobRepo,
		redisRepo: redisRepo,
		engine:    engineClient,
		logger:    log,
	}
}

// EnqueueVideo creates the job record for a video and puts an index
// task on the work queue. A video that already has a non-failed job is
// returned as-is instead of being enqueued twice.
func (u *indexingUC) EnqueueVideo(ctx context.Context, videoPath string) (*models.IndexJob, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("video not found: %w", err)
	}

	if existing, err := u.jobRepo.GetJobByVideoPath(ctx, videoPath); err == nil && existing != nil {
		if existing.Status != models.JobStatusError {
			return existing, nil
		}
		// failed before: reset and requeue under the same record
		existing.Status = models.JobStatusPending
		existing.Stage = models.StageStarting
		existing.Progress = 0
		existing.OverallProgress = 0
		if err := u.jobRepo.UpdateJob(ctx, existing); err != nil {
			return nil, err
		}
		if err := u.enqueueTask(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	job := &models.IndexJob{
		JobID:     uuid.New().String(),
		VideoPath: videoPath,
		Status:    models.JobStatusPending,
		Stage:     models.StageStarting,
	}
	created, err := u.jobRepo.CreateJob(ctx, job)
	if err != nil {
		return nil, err
	}
	if err := u.enqueueTask(ctx, created); err != nil {
		return nil, err
	}
	u.logger.Infof("enqueued index job %s for %s", created.JobID, videoPath)
	return created, nil
}

func (u *indexingUC) enqueueTask(ctx context.Context, job *models.IndexJob) error {
	return u.redisRepo.EnqueueTask(ctx, u.cfg.Redis.JobQueueKey, &models.IndexTask{
		JobID:     job.JobID,
		VideoPath: job.VideoPath,
		Status:    models.JobStatusPending,
	})
}

func (u *indexingUC) GetJob(ctx context.Context, jobID string) (*models.IndexJob, error) {
	return u.jobRepo.GetJobByID(ctx, jobID)
}

func (u *indexingUC) ListJobs(ctx context.Context, filter *models.JobFilter, pq *utils.Pagination) (*models.JobList, error) {
	return u.jobRepo.ListJobs(ctx, filter, pq)
}

// ReindexFaces drives the reindex_faces capability and blocks until the
// engine reports completion.
func (u *indexingUC) ReindexFaces(ctx context.Context) error {
	if _, err := u.engine.Start(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	err := u.engine.ReindexFaces(ctx, engine.Callbacks{
		OnProgress: func(progress float64, message string) {
			u.logger.Debugf("face reindex: %s", message)
		},
		OnResult: func(json.RawMessage) {
			done <- nil
		},
		OnError: func(err error) {
			done <- err
		},
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FindMatchingFaces drives the find_matching_faces capability and
// blocks until the engine returns the match list.
func (u *indexingUC) FindMatchingFaces(ctx context.Context, input *models.FaceMatchInput) (*models.FaceMatchResult, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if input.Tolerance == 0 {
		input.Tolerance = 0.6
	}
	if _, err := u.engine.Start(ctx); err != nil {
		return nil, err
	}

	type outcome struct {
		result *models.FaceMatchResult
		err    error
	}
	done := make(chan outcome, 1)

	err := u.engine.FindMatchingFaces(ctx, input.PersonName, input.ReferenceImages, input.UnknownFacesDir, input.Tolerance, engine.Callbacks{
		OnProgress: func(progress float64, message string) {
			u.logger.Debugf("face match %.0f%%: %s", progress, message)
		},
		OnResult: func(payload json.RawMessage) {
			result := &models.FaceMatchResult{PersonName: input.PersonName}
			if err := json.Unmarshal(payload, result); err != nil {
				done <- outcome{err: fmt.Errorf("failed to parse face match result: %w", err)}
				return
			}
			done <- outcome{result: result}
		},
		OnError: func(err error) {
			done <- outcome{err: err}
		},
	})
	if err != nil {
		return nil, err
	}

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (u *indexingUC) EngineHealth(ctx context.Context) (string, error) {
	return u.engine.Health(ctx)
}
