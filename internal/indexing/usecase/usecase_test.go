package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/amankumarsingh77/video-scene-indexer/internal/config"
	"github.com/amankumarsingh77/video-scene-indexer/internal/engine"
	"github.com/amankumarsingh77/video-scene-indexer/internal/models"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/utils"
)

type nopLogger struct{}

func (nopLogger) InitLogger()                                 {}
func (nopLogger) Debug(args ...interface{})                   {}
func (nopLogger) Debugf(template string, args ...interface{}) {}
func (nopLogger) Info(args ...interface{})                    {}
func (nopLogger) Infof(template string, args ...interface{})  {}
func (nopLogger) Warn(args ...interface{})                    {}
func (nopLogger) Warnf(template string, args ...interface{})  {}
func (nopLogger) Error(args ...interface{})                   {}
func (nopLogger) Errorf(template string, args ...interface{}) {}
func (nopLogger) Fatal(args ...interface{})                   {}
func (nopLogger) Fatalf(template string, args ...interface{}) {}

type memJobRepo struct {
	byPath  map[string]*models.IndexJob
	created int
	updated int
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{byPath: map[string]*models.IndexJob{}}
}

func (r *memJobRepo) CreateJob(ctx context.Context, job *models.IndexJob) (*models.IndexJob, error) {
	r.created++
	r.byPath[job.VideoPath] = job
	return job, nil
}
func (r *memJobRepo) GetJobByID(ctx context.Context, jobID string) (*models.IndexJob, error) {
	for _, j := range r.byPath {
		if j.JobID == jobID {
			return j, nil
		}
	}
	return nil, errors.New("job not found")
}
func (r *memJobRepo) GetJobByVideoPath(ctx context.Context, videoPath string) (*models.IndexJob, error) {
	j, ok := r.byPath[videoPath]
	if !ok {
		return nil, errors.New("job not found")
	}
	return j, nil
}
func (r *memJobRepo) ListJobs(ctx context.Context, filter *models.JobFilter, pq *utils.Pagination) (*models.JobList, error) {
	return &models.JobList{}, nil
}
func (r *memJobRepo) UpdateJob(ctx context.Context, job *models.IndexJob) error {
	r.updated++
	r.byPath[job.VideoPath] = job
	return nil
}
func (r *memJobRepo) UpdateProgress(ctx context.Context, jobID string, stage models.JobStage, progress, overall float64) error {
	return nil
}
func (r *memJobRepo) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus) error {
	return nil
}

type memQueue struct {
	tasks []*models.IndexTask
}

func (q *memQueue) EnqueueTask(ctx context.Context, key string, task *models.IndexTask) error {
	q.tasks = append(q.tasks, task)
	return nil
}
func (q *memQueue) PeekTask(ctx context.Context, key string) (*models.IndexTask, error) {
	return nil, errors.New("empty")
}
func (q *memQueue) CompleteTask(ctx context.Context, key string, task *models.IndexTask) error {
	return nil
}
func (q *memQueue) FailTask(ctx context.Context, key string, task *models.IndexTask, maxAttempts int) error {
	return nil
}
func (q *memQueue) QueueLength(ctx context.Context, key string) (int64, error) {
	return int64(len(q.tasks)), nil
}

type fakeEngine struct {
	started   bool
	tolerance float64
}

func (e *fakeEngine) Start(ctx context.Context) (string, error) {
	e.started = true
	return "ws://test", nil
}
func (e *fakeEngine) Stop() error                { return nil }
func (e *fakeEngine) State() engine.ProcessState { return engine.StateRunning }
func (e *fakeEngine) Health(ctx context.Context) (string, error) {
	return "ready", nil
}
func (e *fakeEngine) Analyze(ctx context.Context, videoPath string, cb engine.Callbacks) error {
	cb.OnResult(json.RawMessage(`{}`))
	return nil
}
func (e *fakeEngine) Transcribe(ctx context.Context, videoPath, jsonFilePath string, cb engine.Callbacks) error {
	cb.OnResult(json.RawMessage(`{}`))
	return nil
}
func (e *fakeEngine) ReindexFaces(ctx context.Context, cb engine.Callbacks) error {
	cb.OnResult(json.RawMessage(`{}`))
	return nil
}
func (e *fakeEngine) FindMatchingFaces(ctx context.Context, personName string, referenceImages []string, unknownFacesDir string, tolerance float64, cb engine.Callbacks) error {
	e.tolerance = tolerance
	cb.OnResult(json.RawMessage(`{"matches":[{"image_file":"a.jpg","confidence":0.9}]}`))
	return nil
}

func fixture(t *testing.T) (*indexingUC, *memJobRepo, *memQueue, *fakeEngine, string) {
	t.Helper()
	videoPath := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{}
	cfg.Redis.JobQueueKey = "index_jobs"
	jobs := newMemJobRepo()
	queue := &memQueue{}
	eng := &fakeEngine{}
	uc := NewIndexingUseCase(cfg, jobs, queue, eng, nopLogger{}).(*indexingUC)
	return uc, jobs, queue, eng, videoPath
}

func TestEnqueueVideoCreatesJobAndTask(t *testing.T) {
	uc, jobs, queue, _, videoPath := fixture(t)

	job, err := uc.EnqueueVideo(context.Background(), videoPath)
	if err != nil {
		t.Fatalf("EnqueueVideo: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("job has no id")
	}
	if job.Status != models.JobStatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if jobs.created != 1 {
		t.Fatalf("created %d jobs, want 1", jobs.created)
	}
	if len(queue.tasks) != 1 || queue.tasks[0].JobID != job.JobID {
		t.Fatalf("queue tasks = %v", queue.tasks)
	}
}

func TestEnqueueVideoMissingFile(t *testing.T) {
	uc, _, queue, _, _ := fixture(t)

	if _, err := uc.EnqueueVideo(context.Background(), "/no/such/file.mp4"); err == nil {
		t.Fatal("missing video accepted")
	}
	if len(queue.tasks) != 0 {
		t.Fatal("task enqueued for a missing video")
	}
}

func TestEnqueueVideoIsIdempotentForLiveJobs(t *testing.T) {
	uc, jobs, queue, _, videoPath := fixture(t)

	first, err := uc.EnqueueVideo(context.Background(), videoPath)
	if err != nil {
		t.Fatalf("first EnqueueVideo: %v", err)
	}
	second, err := uc.EnqueueVideo(context.Background(), videoPath)
	if err != nil {
		t.Fatalf("second EnqueueVideo: %v", err)
	}
	if second.JobID != first.JobID {
		t.Fatalf("second call created a new job %s", second.JobID)
	}
	if jobs.created != 1 {
		t.Fatalf("created %d jobs, want 1", jobs.created)
	}
	if len(queue.tasks) != 1 {
		t.Fatalf("queue has %d tasks, want 1", len(queue.tasks))
	}
}

func TestEnqueueVideoRequeuesFailedJobs(t *testing.T) {
	uc, jobs, queue, _, videoPath := fixture(t)

	first, err := uc.EnqueueVideo(context.Background(), videoPath)
	if err != nil {
		t.Fatalf("EnqueueVideo: %v", err)
	}
	first.Status = models.JobStatusError
	first.OverallProgress = 42

	requeued, err := uc.EnqueueVideo(context.Background(), videoPath)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if requeued.JobID != first.JobID {
		t.Fatal("requeue created a new job record")
	}
	if requeued.Status != models.JobStatusPending {
		t.Fatalf("requeued status = %s, want pending", requeued.Status)
	}
	if requeued.OverallProgress != 0 {
		t.Fatalf("requeued progress = %v, want 0", requeued.OverallProgress)
	}
	if jobs.created != 1 {
		t.Fatalf("created %d jobs, want 1", jobs.created)
	}
	if len(queue.tasks) != 2 {
		t.Fatalf("queue has %d tasks, want 2", len(queue.tasks))
	}
}

func TestFindMatchingFacesValidatesInput(t *testing.T) {
	uc, _, _, eng, _ := fixture(t)

	_, err := uc.FindMatchingFaces(context.Background(), &models.FaceMatchInput{})
	if err == nil {
		t.Fatal("empty input accepted")
	}
	if eng.started {
		t.Fatal("engine started for invalid input")
	}
}

func TestFindMatchingFacesDefaultsTolerance(t *testing.T) {
	uc, _, _, eng, _ := fixture(t)

	result, err := uc.FindMatchingFaces(context.Background(), &models.FaceMatchInput{
		PersonName:      "ada",
		ReferenceImages: []string{"/faces/ada.jpg"},
		UnknownFacesDir: "/faces/unknown",
	})
	if err != nil {
		t.Fatalf("FindMatchingFaces: %v", err)
	}
	if eng.tolerance != 0.6 {
		t.Fatalf("tolerance = %v, want default 0.6", eng.tolerance)
	}
	if result.PersonName != "ada" {
		t.Fatalf("person name = %q", result.PersonName)
	}
	if len(result.Matches) != 1 || result.Matches[0].Confidence != 0.9 {
		t.Fatalf("matches = %+v", result.Matches)
	}
}

func TestReindexFacesBlocksUntilComplete(t *testing.T) {
	uc, _, _, eng, _ := fixture(t)

	if err := uc.ReindexFaces(context.Background()); err != nil {
		t.Fatalf("ReindexFaces: %v", err)
	}
	if !eng.started {
		t.Fatal("engine was not started")
	}
}
