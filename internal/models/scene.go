package models

// Scene is one searchable span of a video, derived from the transcript
// and the frame analysis artifacts.
type Scene struct {
	SceneID     string   `json:"scene_id"`
	VideoPath   string   `json:"video_path"`
	StartTimeMs int64    `json:"start_time_ms"`
	EndTimeMs   int64    `json:"end_time_ms"`
	Transcript  string   `json:"transcript"`
	Objects     []string `json:"objects,omitempty"`
	Faces       []string `json:"faces,omitempty"`
	ShotType    string   `json:"shot_type,omitempty"`
	Environment string   `json:"environment,omitempty"`
}

type SceneList struct {
	VideoPath string   `json:"video_path"`
	Category  string   `json:"category,omitempty"`
	Scenes    []*Scene `json:"scenes"`
}
