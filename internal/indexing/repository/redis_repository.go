package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing"
	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
	"github.com/go-redis/redis/v8"
)

const (
	taskLockPrefix = "lock:index:"
	deadLetterKey  = "index_jobs:dead"
	defaultLockTTL = 30 * time.Minute
)

type taskRedisRepo struct {
	redisClient *redis.Client
	lockTTL     time.Duration
}

func NewTaskRedisRepo(redisClient *redis.Client, lockTTL time.Duration) indexing.RedisRepository {
	if lockTTL == 0 {
		lockTTL = defaultLockTTL
	}
	return &taskRedisRepo{
		redisClient: redisClient,
		lockTTL:     lockTTL,
	}
}

func (t *taskRedisRepo) EnqueueTask(ctx context.Context, key string, task *models.IndexTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	return t.redisClient.LPush(ctx, key, data).Err()
}

// PeekTask scans the queue for the first unlocked, non-processing entry
// and claims it with a TTL lock. The lock TTL doubles as the stall
// window: a worker that dies mid-job lets the lock expire and the entry
// becomes claimable again.
func (t *taskRedisRepo) PeekTask(ctx context.Context, key string) (*models.IndexTask, error) {
	length, err := t.redisClient.LLen(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue length: %w", err)
	}
	if length == 0 {
		return nil, nil
	}

	entries, err := t.redisClient.LRange(ctx, key, 0, length-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}

	for idx, entry := range entries {
		task := &models.IndexTask{}
		if err = json.Unmarshal([]byte(entry), task); err != nil {
			continue
		}

		lockKey := taskLockPrefix + task.JobID
		locked, err := t.redisClient.SetNX(ctx, lockKey, 1, t.lockTTL).Result()
		if err != nil {
			continue
		}
		if !locked {
			continue
		}

		task.StartedAt = time.Now()
		task.Status = models.JobStatusProcessing
		task.Attempts++
		updated, err := json.Marshal(task)
		if err != nil {
			t.redisClient.Del(ctx, lockKey)
			return nil, fmt.Errorf("failed to marshal claimed task: %w", err)
		}
		if err = t.redisClient.LSet(ctx, key, int64(idx), string(updated)).Err(); err != nil {
			t.redisClient.Del(ctx, lockKey)
			return nil, fmt.Errorf("failed to update claimed task: %w", err)
		}
		return task, nil
	}

	return nil, nil
}

func (t *taskRedisRepo) CompleteTask(ctx context.Context, key string, task *models.IndexTask) error {
	if err := t.removeTask(ctx, key, task.JobID); err != nil {
		return err
	}
	return t.redisClient.Del(ctx, taskLockPrefix+task.JobID).Err()
}

// FailTask releases the lock so another run can pick the entry up, or
// moves it to the dead-letter list once attempts are spent.
func (t *taskRedisRepo) FailTask(ctx context.Context, key string, task *models.IndexTask, maxAttempts int) error {
	defer t.redisClient.Del(ctx, taskLockPrefix+task.JobID)

	if task.Attempts >= maxAttempts {
		if err := t.removeTask(ctx, key, task.JobID); err != nil {
			return err
		}
		data, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("failed to marshal dead task: %w", err)
		}
		return t.redisClient.LPush(ctx, deadLetterKey, data).Err()
	}

	// reset queue state so the entry is claimable again
	task.Status = models.JobStatusPending
	return t.rewriteTask(ctx, key, task)
}

func (t *taskRedisRepo) QueueLength(ctx context.Context, key string) (int64, error) {
	return t.redisClient.LLen(ctx, key).Result()
}

func (t *taskRedisRepo) removeTask(ctx context.Context, key, jobID string) error {
	idx, entry, err := t.findTask(ctx, key, jobID)
	if err != nil || idx < 0 {
		return err
	}
	return t.redisClient.LRem(ctx, key, 1, entry).Err()
}

func (t *taskRedisRepo) rewriteTask(ctx context.Context, key string, task *models.IndexTask) error {
	idx, _, err := t.findTask(ctx, key, task.JobID)
	if err != nil {
		return err
	}
	if idx < 0 {
		return fmt.Errorf("task %s not found in queue", task.JobID)
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	return t.redisClient.LSet(ctx, key, int64(idx), string(data)).Err()
}

func (t *taskRedisRepo) findTask(ctx context.Context, key, jobID string) (int, string, error) {
	entries, err := t.redisClient.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return -1, "", fmt.Errorf("failed to read queue: %w", err)
	}
	for idx, entry := range entries {
		task := &models.IndexTask{}
		if err := json.Unmarshal([]byte(entry), task); err != nil {
			continue
		}
		if task.JobID == jobID {
			return idx, entry, nil
		}
	}
	return -1, "", nil
}
