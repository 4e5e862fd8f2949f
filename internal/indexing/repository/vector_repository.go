package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing"
	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
)

type vectorHTTPRepo struct {
	serviceURL string
	client     *http.Client
}

// NewVectorHTTPRepo talks to the vector-index service over HTTP. The
// service owns embedding and ranking; this client only delivers scene
// lists.
func NewVectorHTTPRepo(serviceURL string, timeout time.Duration) indexing.VectorRepository {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &vectorHTTPRepo{
		serviceURL: serviceURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (v *vectorHTTPRepo) UpsertScenes(ctx context.Context, videoPath string, scenes *models.SceneList) error {
	body, err := json.Marshal(scenes)
	if err != nil {
		return fmt.Errorf("failed to marshal scenes: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.serviceURL+"/v1/scenes", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upsert scenes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("vector service returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
