package indexing

import (
	"context"

	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
)

// VectorRepository hands scene lists to the vector-index service.
// Re-embedding is idempotent on the service side, so the embedding
// stage is never checkpointed.
type VectorRepository interface {
	UpsertScenes(ctx context.Context, videoPath string, scenes *models.SceneList) error
}
