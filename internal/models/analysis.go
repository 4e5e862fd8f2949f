package models

// TranscriptSegment is one timed span of transcribed speech, times in
// seconds as the transcriber emits them.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type TranscriptionResult struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments"`
	Language string              `json:"language,omitempty"`
}

// FrameAnalysis is the engine's per-sampled-frame output. Plugin fields
// are optional depending on which analyzers were enabled.
type FrameAnalysis struct {
	StartTimeMs int64          `json:"start_time_ms"`
	EndTimeMs   int64          `json:"end_time_ms"`
	DurationMs  int64          `json:"duration_ms"`
	Objects     []DetectedItem `json:"objects,omitempty"`
	Faces       []string       `json:"faces,omitempty"`
	ShotType    string         `json:"shot_type,omitempty"`
	Environment string         `json:"environment,omitempty"`
	Text        string         `json:"text,omitempty"`
}

type DetectedItem struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// SceneAnalysis carries the engine's post-processing summary, most
// importantly the primary environment classification.
type SceneAnalysis struct {
	PrimaryEnvironment    string         `json:"primary_environment,omitempty"`
	EnvironmentConfidence float64        `json:"environment_confidence,omitempty"`
	ObjectDistribution    map[string]int `json:"object_distribution,omitempty"`
	TotalFrames           int            `json:"total_frames,omitempty"`
}

type AnalysisResult struct {
	VideoFile              string           `json:"video_file"`
	SceneAnalysis          SceneAnalysis    `json:"scene_analysis"`
	DetectedActivities     []map[string]any `json:"detected_activities"`
	FaceRecognitionSummary map[string]any   `json:"face_recognition_summary"`
	FrameAnalysis          []FrameAnalysis  `json:"frame_analysis"`
	Summary                map[string]any   `json:"summary"`
	PerformanceMetrics     []map[string]any `json:"performance_metrics,omitempty"`
	Error                  string           `json:"error,omitempty"`
}
