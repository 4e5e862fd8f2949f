package indexing

import (
	"context"

	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
)

// RedisRepository is the work queue. Stall handling is lock-TTL based:
// a worker that dies holding a job simply lets the lock expire and the
// entry becomes visible again.
type RedisRepository interface {
	EnqueueTask(ctx context.Context, key string, task *models.IndexTask) error
	PeekTask(ctx context.Context, key string) (*models.IndexTask, error)
	CompleteTask(ctx context.Context, key string, task *models.IndexTask) error
	FailTask(ctx context.Context, key string, task *models.IndexTask, maxAttempts int) error
	QueueLength(ctx context.Context, key string) (int64, error)
}
