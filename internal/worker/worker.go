package worker

import (
	"context"
	"sync"
	"time"

	"github.com/amankumarsingh77/video-scene-indexer/internal/config"
	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing"
	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/logger"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/utils"
)

// Worker consumes index tasks from the queue and runs them through the
// pipeline, one at a time. The concurrency cap lives in config
// validation: the engine protocol cannot tell two concurrent calls of
// one capability apart.
type Worker struct {
	cfg       *config.Config
	logger    logger.Logger
	redisRepo indexing.RedisRepository
	jobRepo   indexing.Repository
	pipeline  *Pipeline
	wg        sync.WaitGroup
}

func NewWorker(
	cfg *config.Config,
	log logger.Logger,
	redisRepo indexing.RedisRepository,
	jobRepo indexing.Repository,
	pipeline *Pipeline,
) *Worker {
	return &Worker{
		cfg:       cfg,
		logger:    log,
		redisRepo: redisRepo,
		jobRepo:   jobRepo,
		pipeline:  pipeline,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting index worker")
	for i := 0; i < w.cfg.Worker.QueueConcurrency; i++ {
		w.wg.Add(1)
		go w.loop(ctx)
	}
}

func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()
	pollInterval := time.Duration(w.cfg.Worker.PollIntervalSec) * time.Second
	if pollInterval == 0 {
		pollInterval = 5 * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if canAccept, usage := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage); !canAccept {
			w.logger.Infof("CPU usage too high to accept a job: %.2f%%", usage)
			w.sleep(ctx, pollInterval)
			continue
		}

		task, err := w.redisRepo.PeekTask(ctx, w.cfg.Redis.JobQueueKey)
		if err != nil {
			w.logger.Errorf("failed to peek task: %v", err)
			w.sleep(ctx, pollInterval)
			continue
		}
		if task == nil {
			w.sleep(ctx, pollInterval)
			continue
		}

		w.process(ctx, task)
	}
}

func (w *Worker) process(ctx context.Context, task *models.IndexTask) {
	job, err := w.jobRepo.GetJobByID(ctx, task.JobID)
	if err != nil {
		// queue entry with no job record: drop it rather than spin
		w.logger.Errorf("task %s has no job record, discarding: %v", task.JobID, err)
		if cerr := w.redisRepo.CompleteTask(ctx, w.cfg.Redis.JobQueueKey, task); cerr != nil {
			w.logger.Errorf("failed to discard task %s: %v", task.JobID, cerr)
		}
		return
	}

	w.logger.Infof("processing job %s (%s), attempt %d", task.JobID, task.VideoPath, task.Attempts)
	if err := w.pipeline.Run(ctx, job); err != nil {
		w.logger.Errorf("job %s failed: %v", task.JobID, err)
		if ferr := w.redisRepo.FailTask(ctx, w.cfg.Redis.JobQueueKey, task, w.cfg.Worker.MaxJobAttempts); ferr != nil {
			w.logger.Errorf("failed to release task %s: %v", task.JobID, ferr)
		}
		return
	}

	if err := w.redisRepo.CompleteTask(ctx, w.cfg.Redis.JobQueueKey, task); err != nil {
		w.logger.Errorf("failed to complete task %s: %v", task.JobID, err)
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
