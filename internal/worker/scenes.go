package worker

import (
	"fmt"

	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
)

const (
	// frames further apart than this start a new scene even when
	// nothing else changed
	maxSceneDurationMs = 30_000
	frameGapMs         = 5_000
)

// DeriveScenes builds the searchable scene list from the transcription
// and frame-analysis artifacts. Pure computation: scene boundaries fall
// where the shot type or environment changes, where sampled frames are
// far apart, or where a scene grows past the duration cap. Transcript
// segments are attached to every scene they overlap.
func DeriveScenes(videoPath string, transcript *models.TranscriptionResult, analysis *models.AnalysisResult) *models.SceneList {
	list := &models.SceneList{
		VideoPath: videoPath,
		Scenes:    []*models.Scene{},
	}
	if analysis != nil {
		list.Category = CategoryFromEnvironment(analysis.SceneAnalysis.PrimaryEnvironment)
	}

	var frames []models.FrameAnalysis
	if analysis != nil {
		frames = analysis.FrameAnalysis
	}
	if len(frames) == 0 {
		list.Scenes = scenesFromTranscript(videoPath, transcript)
		return list
	}

	var current *models.Scene
	objectSeen := map[string]bool{}
	faceSeen := map[string]bool{}

	flush := func() {
		if current != nil {
			list.Scenes = append(list.Scenes, current)
			current = nil
		}
	}

	for _, frame := range frames {
		if current != nil && splitsScene(current, frame) {
			flush()
		}
		if current == nil {
			current = &models.Scene{
				SceneID:     fmt.Sprintf("%s_%d", sceneKey(videoPath), frame.StartTimeMs),
				VideoPath:   videoPath,
				StartTimeMs: frame.StartTimeMs,
				EndTimeMs:   frame.EndTimeMs,
				ShotType:    frame.ShotType,
				Environment: frame.Environment,
			}
			objectSeen = map[string]bool{}
			faceSeen = map[string]bool{}
		}
		current.EndTimeMs = frame.EndTimeMs
		for _, obj := range frame.Objects {
			if !objectSeen[obj.Label] {
				objectSeen[obj.Label] = true
				current.Objects = append(current.Objects, obj.Label)
			}
		}
		for _, face := range frame.Faces {
			if !faceSeen[face] {
				faceSeen[face] = true
				current.Faces = append(current.Faces, face)
			}
		}
	}
	flush()

	if transcript != nil {
		for _, scene := range list.Scenes {
			scene.Transcript = transcriptFor(scene, transcript.Segments)
		}
	}
	return list
}

func splitsScene(current *models.Scene, frame models.FrameAnalysis) bool {
	if frame.ShotType != "" && current.ShotType != "" && frame.ShotType != current.ShotType {
		return true
	}
	if frame.Environment != "" && current.Environment != "" && frame.Environment != current.Environment {
		return true
	}
	if frame.StartTimeMs-current.EndTimeMs > frameGapMs {
		return true
	}
	if frame.EndTimeMs-current.StartTimeMs > maxSceneDurationMs {
		return true
	}
	return false
}

// scenesFromTranscript covers videos the frame analyzer produced
// nothing for, grouping transcript segments into duration-capped spans.
func scenesFromTranscript(videoPath string, transcript *models.TranscriptionResult) []*models.Scene {
	scenes := []*models.Scene{}
	if transcript == nil || len(transcript.Segments) == 0 {
		return scenes
	}

	var current *models.Scene
	for _, seg := range transcript.Segments {
		startMs := int64(seg.Start * 1000)
		endMs := int64(seg.End * 1000)
		if current != nil && endMs-current.StartTimeMs > maxSceneDurationMs {
			scenes = append(scenes, current)
			current = nil
		}
		if current == nil {
			current = &models.Scene{
				SceneID:     fmt.Sprintf("%s_%d", sceneKey(videoPath), startMs),
				VideoPath:   videoPath,
				StartTimeMs: startMs,
			}
		}
		current.EndTimeMs = endMs
		current.Transcript += seg.Text
	}
	if current != nil {
		scenes = append(scenes, current)
	}
	return scenes
}

func transcriptFor(scene *models.Scene, segments []models.TranscriptSegment) string {
	var text string
	for _, seg := range segments {
		startMs := int64(seg.Start * 1000)
		endMs := int64(seg.End * 1000)
		if startMs < scene.EndTimeMs && endMs > scene.StartTimeMs {
			text += seg.Text
		}
	}
	return text
}

func sceneKey(videoPath string) string {
	key := ""
	for _, r := range videoPath {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			key += string(r)
		default:
			key += "_"
		}
	}
	if len(key) > 40 {
		key = key[len(key)-40:]
	}
	return key
}

// CategoryFromEnvironment folds the engine's environment classification
// into the coarse category label the UI filters on.
func CategoryFromEnvironment(env string) string {
	switch env {
	case "aquatic":
		return "water"
	case "urban":
		return "city"
	case "indoor":
		return "indoor"
	case "outdoor_nature", "general_outdoor":
		return "outdoor"
	case "commercial":
		return "dining"
	default:
		return "general"
	}
}
