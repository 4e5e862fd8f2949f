package indexing

import (
	"context"

	"github.com/amankumarsingh77/video-scene-indexer/internal/engine"
)

// EngineClient is the supervisor seen from its callers. Injected rather
// than reached as a package global so pipelines can run against a stub.
type EngineClient interface {
	Start(ctx context.Context) (string, error)
	Stop() error
	State() engine.ProcessState
	Analyze(ctx context.Context, videoPath string, cb engine.Callbacks) error
	Transcribe(ctx context.Context, videoPath, jsonFilePath string, cb engine.Callbacks) error
	ReindexFaces(ctx context.Context, cb engine.Callbacks) error
	FindMatchingFaces(ctx context.Context, personName string, referenceImages []string, unknownFacesDir string, tolerance float64, cb engine.Callbacks) error
	Health(ctx context.Context) (string, error)
}
