package indexing

// Checkpoint artifact names. Presence of a parseable artifact is the
// sole signal that its stage already completed; there is no separate
// progress ledger.
const (
	ArtifactThumbnail     = "thumbnail.jpg"
	ArtifactTranscription = "transcription.json"
	ArtifactAnalysis      = "analysis.json"
	ArtifactScenes        = "scenes.json"
	ArtifactCategory      = "category.txt"
)

// ArtifactRepository stores per-video intermediate outputs, keyed by a
// directory derived from the video's identity. Backends vary
// (filesystem, object store) without the orchestrator noticing.
type ArtifactRepository interface {
	EnsureDir(videoPath string) error
	Exists(videoPath, name string) bool
	Load(videoPath, name string) ([]byte, error)
	Save(videoPath, name string, data []byte) error
	Path(videoPath, name string) string
}
