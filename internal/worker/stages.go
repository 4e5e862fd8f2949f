package worker

import (
	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
)

// Each stage owns a contiguous slice of the 0-100 overall progress
// range. The thumbnail window belongs to the starting stage: the job
// record never surfaces a thumbnail stage, it just moves 0 to 10.
type stageWindow struct {
	start float64
	width float64
}

var stageWindows = map[models.JobStage]stageWindow{
	models.StageStarting:       {start: 0, width: 10},
	models.StageTranscribing:   {start: 10, width: 30},
	models.StageFrameAnalysis:  {start: 40, width: 30},
	models.StageCreatingScenes: {start: 70, width: 10},
	models.StageEmbedding:      {start: 80, width: 20},
}

// overallProgress rescales a stage-internal 0-100 progress value into
// the stage's window.
func overallProgress(stage models.JobStage, stageProgress float64) float64 {
	w, ok := stageWindows[stage]
	if !ok {
		return 0
	}
	if stageProgress < 0 {
		stageProgress = 0
	}
	if stageProgress > 100 {
		stageProgress = 100
	}
	return w.start + stageProgress/100*w.width
}
