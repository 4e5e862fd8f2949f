package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amankumarsingh77/video-scene-indexer/internal/config"
	"github.com/amankumarsingh77/video-scene-indexer/internal/engine"
	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing"
	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/logger"
)

// Pipeline drives one video through the five indexing stages. Expensive
// stages checkpoint their output through the artifact repository, so a
// retried run re-enters at the first stage whose artifact is missing or
// unreadable and never redoes completed engine work.
type Pipeline struct {
	cfg       *config.Config
	logger    logger.Logger
	jobRepo   indexing.Repository
	artifacts indexing.ArtifactRepository
	vector    indexing.VectorRepository
	engine    indexing.EngineClient
	thumbs    ThumbnailGenerator
}

func NewPipeline(
	cfg *config.Config,
	log logger.Logger,
	jobRepo indexing.Repository,
	artifacts indexing.ArtifactRepository,
	vector indexing.VectorRepository,
	engineClient indexing.EngineClient,
	thumbs ThumbnailGenerator,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		logger:    log,
		jobRepo:   jobRepo,
		artifacts: artifacts,
		vector:    vector,
		engine:    engineClient,
		thumbs:    thumbs,
	}
}

// jobRun holds the per-run view of one pipeline execution. Progress is
// kept monotone here rather than trusting the engine's reported values.
type jobRun struct {
	p           *Pipeline
	job         *models.IndexJob
	scratchDir  string
	lastOverall float64
}

// Run executes the pipeline for one job. Any error other than a failed
// thumbnail aborts the run: the job record is set to error with
// progress reset, and the error is returned so the work queue's retry
// policy takes over.
func (p *Pipeline) Run(ctx context.Context, job *models.IndexJob) error {
	r := &jobRun{p: p, job: job}

	if err := p.artifacts.EnsureDir(job.VideoPath); err != nil {
		return r.fail(ctx, err)
	}
	// empty ScratchDir falls back to the system temp dir
	scratch, err := os.MkdirTemp(p.cfg.Worker.ScratchDir, "indexer_")
	if err != nil {
		return r.fail(ctx, err)
	}
	defer os.RemoveAll(scratch)
	r.scratchDir = scratch

	if info, err := os.Stat(job.VideoPath); err == nil {
		job.FileSize = info.Size()
	}
	job.Status = models.JobStatusProcessing
	job.Stage = models.StageStarting
	job.Progress = 0
	job.OverallProgress = 0
	if err := p.jobRepo.UpdateJob(ctx, job); err != nil {
		return r.fail(ctx, err)
	}

	r.runThumbnail(ctx)

	transcript, err := r.runTranscription(ctx)
	if err != nil {
		return r.fail(ctx, err)
	}

	analysis, err := r.runAnalysis(ctx)
	if err != nil {
		return r.fail(ctx, err)
	}

	scenes, err := r.runSceneCreation(ctx, transcript, analysis)
	if err != nil {
		return r.fail(ctx, err)
	}

	if err := r.runEmbedding(ctx, scenes); err != nil {
		return r.fail(ctx, err)
	}

	job.Status = models.JobStatusDone
	r.setProgress(ctx, models.StageEmbedding, 100)
	if err := p.jobRepo.UpdateStatus(ctx, job.JobID, models.JobStatusDone); err != nil {
		p.logger.Errorf("failed to mark job %s done: %v", job.JobID, err)
	}
	p.logger.Infof("job %s indexed: %d scenes", job.JobID, len(scenes.Scenes))
	return nil
}

// fail records the error state. Overall progress resets to 0; completed
// checkpoint artifacts stay on disk so the retry is cheap.
func (r *jobRun) fail(ctx context.Context, err error) error {
	r.p.logger.Errorf("job %s failed at stage %s: %v", r.job.JobID, r.job.Stage, err)
	if uerr := r.p.jobRepo.UpdateProgress(ctx, r.job.JobID, r.job.Stage, 0, 0); uerr != nil {
		r.p.logger.Errorf("failed to reset job %s progress: %v", r.job.JobID, uerr)
	}
	if uerr := r.p.jobRepo.UpdateStatus(ctx, r.job.JobID, models.JobStatusError); uerr != nil {
		r.p.logger.Errorf("failed to mark job %s errored: %v", r.job.JobID, uerr)
	}
	return err
}

// setProgress rescales stage progress into the stage's overall window
// and writes it through. Overall progress never moves backwards within
// a run.
func (r *jobRun) setProgress(ctx context.Context, stage models.JobStage, stageProgress float64) {
	overall := overallProgress(stage, stageProgress)
	if overall < r.lastOverall {
		overall = r.lastOverall
	}
	r.lastOverall = overall
	r.job.Stage = stage
	r.job.Progress = stageProgress
	r.job.OverallProgress = overall
	if err := r.p.jobRepo.UpdateProgress(ctx, r.job.JobID, stage, stageProgress, overall); err != nil {
		r.p.logger.Errorf("failed to update progress for job %s: %v", r.job.JobID, err)
	}
}

// runThumbnail is the only absorbed stage: a missing thumbnail is not
// worth failing a multi-minute indexing run over. Progress lands on 10
// either way.
func (r *jobRun) runThumbnail(ctx context.Context) {
	defer r.setProgress(ctx, models.StageStarting, 100)

	if r.p.artifacts.Exists(r.job.VideoPath, indexing.ArtifactThumbnail) {
		r.job.ThumbnailPath = r.p.artifacts.Path(r.job.VideoPath, indexing.ArtifactThumbnail)
		return
	}

	scratchPath := filepath.Join(r.scratchDir, indexing.ArtifactThumbnail)
	if err := r.p.thumbs.Generate(ctx, r.job.VideoPath, scratchPath); err != nil {
		r.p.logger.Warnf("thumbnail generation failed for %s, continuing: %v", r.job.VideoPath, err)
		return
	}
	data, err := os.ReadFile(scratchPath)
	if err != nil {
		r.p.logger.Warnf("thumbnail unreadable for %s, continuing: %v", r.job.VideoPath, err)
		return
	}
	if err := r.p.artifacts.Save(r.job.VideoPath, indexing.ArtifactThumbnail, data); err != nil {
		r.p.logger.Warnf("thumbnail save failed for %s, continuing: %v", r.job.VideoPath, err)
		return
	}
	r.job.ThumbnailPath = r.p.artifacts.Path(r.job.VideoPath, indexing.ArtifactThumbnail)
	if err := r.p.jobRepo.UpdateJob(ctx, r.job); err != nil {
		r.p.logger.Errorf("failed to record thumbnail for job %s: %v", r.job.JobID, err)
	}
}

func (r *jobRun) runTranscription(ctx context.Context) (*models.TranscriptionResult, error) {
	r.setProgress(ctx, models.StageTranscribing, 0)

	if data, ok := r.loadCheckpoint(indexing.ArtifactTranscription); ok {
		transcript := &models.TranscriptionResult{}
		if err := json.Unmarshal(data, transcript); err == nil {
			r.p.logger.Infof("job %s: transcription checkpoint hit, skipping", r.job.JobID)
			r.setProgress(ctx, models.StageTranscribing, 100)
			return transcript, nil
		}
	}

	if _, err := r.p.engine.Start(ctx); err != nil {
		return nil, err
	}

	// the engine writes the transcript JSON itself; give it a local
	// scratch path and move the bytes into the artifact store after
	jsonPath := filepath.Join(r.scratchDir, indexing.ArtifactTranscription)
	done := make(chan error, 1)
	err := r.p.engine.Transcribe(ctx, r.job.VideoPath, jsonPath, engine.Callbacks{
		OnProgress: func(progress float64, message string) {
			r.setProgress(ctx, models.StageTranscribing, progress)
		},
		OnMessage: func(message string) {
			r.p.logger.Debugf("transcriber: %s", message)
		},
		OnResult: func(json.RawMessage) {
			done <- nil
		},
		OnError: func(err error) {
			done <- err
		},
	})
	if err != nil {
		return nil, err
	}
	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("transcription failed: %w", err)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("transcript missing after completion: %w", err)
	}
	transcript := &models.TranscriptionResult{}
	if err := json.Unmarshal(data, transcript); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}
	if err := r.p.artifacts.Save(r.job.VideoPath, indexing.ArtifactTranscription, data); err != nil {
		return nil, err
	}
	r.setProgress(ctx, models.StageTranscribing, 100)
	return transcript, nil
}

func (r *jobRun) runAnalysis(ctx context.Context) (*models.AnalysisResult, error) {
	r.setProgress(ctx, models.StageFrameAnalysis, 0)

	if data, ok := r.loadCheckpoint(indexing.ArtifactAnalysis); ok {
		analysis := &models.AnalysisResult{}
		if err := json.Unmarshal(data, analysis); err == nil {
			r.p.logger.Infof("job %s: analysis checkpoint hit, skipping", r.job.JobID)
			r.setProgress(ctx, models.StageFrameAnalysis, 100)
			return analysis, nil
		}
	}

	if _, err := r.p.engine.Start(ctx); err != nil {
		return nil, err
	}

	type outcome struct {
		analysis *models.AnalysisResult
		raw      json.RawMessage
		err      error
	}
	done := make(chan outcome, 1)
	err := r.p.engine.Analyze(ctx, r.job.VideoPath, engine.Callbacks{
		OnProgress: func(progress float64, message string) {
			r.setProgress(ctx, models.StageFrameAnalysis, progress)
		},
		OnResult: func(payload json.RawMessage) {
			analysis := &models.AnalysisResult{}
			if err := json.Unmarshal(payload, analysis); err != nil {
				done <- outcome{err: fmt.Errorf("failed to parse analysis result: %w", err)}
				return
			}
			done <- outcome{analysis: analysis, raw: payload}
		},
		OnError: func(err error) {
			done <- outcome{err: err}
		},
	})
	if err != nil {
		return nil, err
	}

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if out.err != nil {
		return nil, fmt.Errorf("frame analysis failed: %w", out.err)
	}

	if err := r.p.artifacts.Save(r.job.VideoPath, indexing.ArtifactAnalysis, out.raw); err != nil {
		return nil, err
	}
	category := CategoryFromEnvironment(out.analysis.SceneAnalysis.PrimaryEnvironment)
	if err := r.p.artifacts.Save(r.job.VideoPath, indexing.ArtifactCategory, []byte(category)); err != nil {
		return nil, err
	}
	r.setProgress(ctx, models.StageFrameAnalysis, 100)
	return out.analysis, nil
}

func (r *jobRun) runSceneCreation(ctx context.Context, transcript *models.TranscriptionResult, analysis *models.AnalysisResult) (*models.SceneList, error) {
	r.setProgress(ctx, models.StageCreatingScenes, 0)

	if data, ok := r.loadCheckpoint(indexing.ArtifactScenes); ok {
		scenes := &models.SceneList{}
		if err := json.Unmarshal(data, scenes); err == nil {
			r.p.logger.Infof("job %s: scenes checkpoint hit, skipping", r.job.JobID)
			r.setProgress(ctx, models.StageCreatingScenes, 100)
			return scenes, nil
		}
	}

	scenes := DeriveScenes(r.job.VideoPath, transcript, analysis)
	data, err := json.Marshal(scenes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scenes: %w", err)
	}
	if err := r.p.artifacts.Save(r.job.VideoPath, indexing.ArtifactScenes, data); err != nil {
		return nil, err
	}
	r.setProgress(ctx, models.StageCreatingScenes, 100)
	return scenes, nil
}

// runEmbedding is never checkpointed: the vector service upserts, so
// re-embedding an already-indexed video is harmless.
func (r *jobRun) runEmbedding(ctx context.Context, scenes *models.SceneList) error {
	r.setProgress(ctx, models.StageEmbedding, 0)
	if err := r.p.vector.UpsertScenes(ctx, r.job.VideoPath, scenes); err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	return nil
}

func (r *jobRun) loadCheckpoint(name string) ([]byte, bool) {
	if !r.p.artifacts.Exists(r.job.VideoPath, name) {
		return nil, false
	}
	data, err := r.p.artifacts.Load(r.job.VideoPath, name)
	if err != nil {
		return nil, false
	}
	return data, true
}
