package models

import (
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusError      JobStatus = "error"
)

type JobStage string

const (
	StageStarting       JobStage = "starting"
	StageTranscribing   JobStage = "transcribing"
	StageFrameAnalysis  JobStage = "frame_analysis"
	StageCreatingScenes JobStage = "creating_scenes"
	StageEmbedding      JobStage = "embedding"
)

// IndexJob is the persisted record of one video's indexing run.
// Progress is within the current stage, OverallProgress is pipeline-wide.
type IndexJob struct {
	JobID           string    `json:"job_id" db:"job_id" redis:"job_id" validate:"omitempty"`
	VideoPath       string    `json:"video_path" db:"video_path" redis:"video_path" validate:"required,lte=1024"`
	Status          JobStatus `json:"status" db:"status" redis:"status" validate:"omitempty"`
	Stage           JobStage  `json:"stage" db:"stage" redis:"stage" validate:"omitempty"`
	Progress        float64   `json:"progress" db:"progress" redis:"progress" validate:"omitempty"`
	OverallProgress float64   `json:"overall_progress" db:"overall_progress" redis:"overall_progress" validate:"omitempty"`
	ThumbnailPath   string    `json:"thumbnail_path,omitempty" db:"thumbnail_path" redis:"thumbnail_path" validate:"omitempty"`
	FileSize        int64     `json:"file_size,omitempty" db:"file_size" redis:"file_size" validate:"omitempty"`
	Attempts        int       `json:"attempts" db:"attempts" redis:"attempts" validate:"omitempty"`
	CreatedAt       time.Time `json:"created_at" db:"created_at" redis:"created_at" validate:"omitempty"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at" redis:"updated_at" validate:"omitempty"`
}

type JobFilter struct {
	Status string
	Query  string
}

type JobList struct {
	Jobs       []*IndexJob `json:"jobs"`
	TotalCount int         `json:"total_count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	HasMore    bool        `json:"has_more"`
}

// IndexTask is the unit the work queue carries. The job record itself
// lives in Postgres; the queue entry only needs enough to find it.
type IndexTask struct {
	JobID     string    `json:"job_id" redis:"job_id"`
	VideoPath string    `json:"video_path" redis:"video_path"`
	Status    JobStatus `json:"status" redis:"status"`
	Attempts  int       `json:"attempts" redis:"attempts"`
	StartedAt time.Time `json:"started_at" redis:"started_at"`
}
