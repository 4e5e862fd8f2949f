package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amankumarsingh77/video-scene-indexer/internal/config"
	"github.com/amankumarsingh77/video-scene-indexer/pkg/logger"
)

type ProcessState string

const (
	StateNotStarted ProcessState = "not_started"
	StateStarting   ProcessState = "starting"
	StateRunning    ProcessState = "running"
	StateCrashed    ProcessState = "crashed"
)

var (
	ErrEngineNotRunning  = errors.New("engine is not running")
	ErrRestartsExhausted = errors.New("engine restart budget exhausted")
)

// Process is a handle on a spawned engine process.
type Process interface {
	Wait() error
	Kill() error
}

// SpawnFunc launches an engine process listening on host:port.
type SpawnFunc func(host string, port int) (Process, error)

// DialFunc opens the websocket message channel to a running engine.
type DialFunc func(ctx context.Context, addr string) (Conn, error)

// Config holds the supervisor's tunables, resolved from the app config
// with defaults filled in.
type Config struct {
	PythonBin       string
	ScriptPath      string
	Host            string
	Port            int
	ConnectAttempts int
	ConnectDelay    time.Duration
	MaxRestarts     int
	RestartBackoff  time.Duration
}

func ConfigFrom(ec config.EngineConfig) Config {
	c := Config{
		PythonBin:       ec.PythonBin,
		ScriptPath:      ec.ScriptPath,
		Host:            ec.Host,
		Port:            ec.Port,
		ConnectAttempts: ec.ConnectAttempts,
		ConnectDelay:    time.Duration(ec.ConnectDelaySec) * time.Second,
		MaxRestarts:     ec.MaxRestarts,
		RestartBackoff:  time.Duration(ec.BackoffBaseSec) * time.Second,
	}
	if c.PythonBin == "" {
		c.PythonBin = "python3"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8765
	}
	if c.ConnectAttempts == 0 {
		c.ConnectAttempts = 15
	}
	if c.ConnectDelay == 0 {
		c.ConnectDelay = time.Second
	}
	if c.MaxRestarts == 0 {
		c.MaxRestarts = 5
	}
	if c.RestartBackoff == 0 {
		c.RestartBackoff = 2 * time.Second
	}
	return c
}

// Callbacks receive the three reply streams of one capability call.
type Callbacks struct {
	OnProgress func(progress float64, message string)
	OnMessage  func(message string)
	OnResult   func(payload json.RawMessage)
	OnError    func(err error)
}

type startAttempt struct {
	done chan struct{}
	addr string
	err  error
}

func (a *startAttempt) wait(ctx context.Context) (string, error) {
	select {
	case <-a.done:
		return a.addr, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Supervisor owns the engine process lifecycle and the single message
// channel to it. It is a process-wide singleton: the pipeline worker
// and the face endpoints share one engine connection through it.
type Supervisor struct {
	cfg    Config
	logger logger.Logger
	router *Router
	spawn  SpawnFunc
	dial   DialFunc

	mu           sync.Mutex
	state        ProcessState
	ch           *channel
	addr         string
	proc         Process
	inflight     *startAttempt
	restarts     int
	exhausted    bool
	stopping     bool
	restartTimer *time.Timer
}

func NewSupervisor(cfg Config, log logger.Logger) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		logger: log,
		router: NewRouter(log),
		spawn:  pythonSpawner(cfg.PythonBin, cfg.ScriptPath, log),
		dial:   websocketDialer(),
		state:  StateNotStarted,
	}
}

func (s *Supervisor) State() ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start guarantees a live engine connection and returns its address.
// It is idempotent and single-flight: callers arriving while a start is
// in progress share the in-flight outcome instead of spawning a second
// process.
func (s *Supervisor) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state == StateRunning && s.ch != nil {
		addr := s.addr
		s.mu.Unlock()
		return addr, nil
	}
	if s.exhausted {
		s.mu.Unlock()
		return "", ErrRestartsExhausted
	}
	if s.inflight != nil {
		att := s.inflight
		s.mu.Unlock()
		return att.wait(ctx)
	}
	att := &startAttempt{done: make(chan struct{})}
	s.inflight = att
	s.state = StateStarting
	s.mu.Unlock()

	addr, err := s.doStart(ctx)

	s.mu.Lock()
	s.inflight = nil
	if err != nil && s.state == StateStarting {
		s.state = StateNotStarted
	}
	s.mu.Unlock()

	att.addr, att.err = addr, err
	close(att.done)
	return addr, err
}

func (s *Supervisor) doStart(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("ws://%s:%d", s.cfg.Host, s.cfg.Port)

	// adopt an engine that is already listening
	if conn, err := s.dial(ctx, addr); err == nil {
		if err := s.install(conn, addr, nil); err != nil {
			return "", err
		}
		s.logger.Infof("adopted running engine at %s", addr)
		return addr, nil
	}

	proc, err := s.spawn(s.cfg.Host, s.cfg.Port)
	if err != nil {
		return "", fmt.Errorf("failed to spawn engine process: %w", err)
	}
	go s.reap(proc)
	s.logger.Infof("spawned engine process, waiting for %s", addr)

	// model loading takes a while; poll until the engine accepts
	for attempt := 1; attempt <= s.cfg.ConnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			proc.Kill()
			return "", ctx.Err()
		case <-time.After(s.cfg.ConnectDelay):
		}
		conn, err := s.dial(ctx, addr)
		if err != nil {
			s.logger.Debugf("engine connect attempt %d/%d failed: %v", attempt, s.cfg.ConnectAttempts, err)
			continue
		}
		if err := s.install(conn, addr, proc); err != nil {
			return "", err
		}
		s.logger.Infof("engine handshake complete at %s", addr)
		return addr, nil
	}

	proc.Kill()
	return "", fmt.Errorf("engine did not accept connections after %d attempts", s.cfg.ConnectAttempts)
}

func (s *Supervisor) install(conn Conn, addr string, proc Process) error {
	ch := newChannel(conn, s.router, s.logger)
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		ch.Close()
		if proc != nil {
			proc.Kill()
		}
		return errors.New("supervisor is stopping")
	}
	s.ch = ch
	s.addr = addr
	s.proc = proc
	s.state = StateRunning
	s.mu.Unlock()
	go ch.run(s.handleDisconnect)
	return nil
}

// reap waits on a spawned process so it does not linger as a zombie.
// Crash detection itself goes through the channel close path: a dead
// process drops the socket and the read loop reports it.
func (s *Supervisor) reap(proc Process) {
	if err := proc.Wait(); err != nil {
		s.logger.Warnf("engine process exited: %v", err)
	}
}

func (s *Supervisor) handleDisconnect(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ch = nil
	if s.proc != nil {
		s.proc.Kill()
		s.proc = nil
	}
	if s.stopping {
		s.state = StateNotStarted
		return
	}
	s.state = StateCrashed
	s.logger.Errorf("engine connection lost: %v", err)
	s.scheduleRestartLocked()
}

// scheduleRestartLocked arms the next automatic restart with linear
// backoff, or gives up once the budget is spent. Caller holds s.mu.
func (s *Supervisor) scheduleRestartLocked() {
	if s.restarts >= s.cfg.MaxRestarts {
		s.exhausted = true
		s.logger.Errorf("engine crashed %d times, giving up until the restart budget is reset", s.restarts)
		return
	}
	s.restarts++
	attempt := s.restarts
	delay := time.Duration(attempt) * s.cfg.RestartBackoff
	s.logger.Warnf("scheduling engine restart %d/%d in %s", attempt, s.cfg.MaxRestarts, delay)
	s.restartTimer = time.AfterFunc(delay, func() {
		if _, err := s.Start(context.Background()); err != nil {
			s.logger.Errorf("engine restart attempt %d failed: %v", attempt, err)
			s.mu.Lock()
			if !s.stopping && !s.exhausted && s.state != StateRunning && s.inflight == nil {
				s.state = StateCrashed
				s.scheduleRestartLocked()
			}
			s.mu.Unlock()
		}
	})
}

// ResetRestarts clears the restart budget after manual intervention.
func (s *Supervisor) ResetRestarts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restarts = 0
	s.exhausted = false
}

// Stop closes the channel and terminates the owned process. Safe to
// call when nothing is running.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	s.stopping = true
	if s.restartTimer != nil {
		s.restartTimer.Stop()
		s.restartTimer = nil
	}
	ch := s.ch
	proc := s.proc
	s.ch = nil
	s.proc = nil
	s.state = StateNotStarted
	s.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
	if proc != nil {
		proc.Kill()
	}

	s.mu.Lock()
	s.stopping = false
	s.mu.Unlock()
	return nil
}

// Analyze runs frame analysis on one video.
func (s *Supervisor) Analyze(ctx context.Context, videoPath string, cb Callbacks) error {
	return s.invoke(analyzeCapability, analyzePayload{VideoPath: videoPath}, cb)
}

// Transcribe runs speech transcription, writing the result JSON to
// jsonFilePath on the engine side.
func (s *Supervisor) Transcribe(ctx context.Context, videoPath, jsonFilePath string, cb Callbacks) error {
	return s.invoke(transcribeCapability, transcribePayload{
		VideoPath:    videoPath,
		JSONFilePath: jsonFilePath,
	}, cb)
}

// ReindexFaces rebuilds the engine's face index.
func (s *Supervisor) ReindexFaces(ctx context.Context, cb Callbacks) error {
	return s.invoke(reindexFacesCapability, struct{}{}, cb)
}

// FindMatchingFaces searches the unknown-faces directory for faces
// matching the reference images.
func (s *Supervisor) FindMatchingFaces(ctx context.Context, personName string, referenceImages []string, unknownFacesDir string, tolerance float64, cb Callbacks) error {
	return s.invoke(findMatchingFacesCapability, findMatchingFacesPayload{
		PersonName:      personName,
		ReferenceImages: referenceImages,
		UnknownFacesDir: unknownFacesDir,
		Tolerance:       tolerance,
	}, cb)
}

// Health asks the engine for its readiness status.
func (s *Supervisor) Health(ctx context.Context) (string, error) {
	s.mu.Lock()
	ch := s.ch
	running := s.state == StateRunning
	s.mu.Unlock()
	if !running || ch == nil {
		return "", ErrEngineNotRunning
	}

	reply := make(chan string, 1)
	s.router.Register(TypeStatus, func(raw json.RawMessage) {
		s.router.Deregister(TypeStatus)
		var p statusPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return
		}
		select {
		case reply <- p.Status:
		default:
		}
	})
	if err := ch.Send(TypeHealth, struct{}{}); err != nil {
		s.router.Deregister(TypeStatus)
		return "", err
	}
	select {
	case status := <-reply:
		return status, nil
	case <-ctx.Done():
		s.router.Deregister(TypeStatus)
		return "", ctx.Err()
	}
}

// invoke registers the capability's reply handlers and sends the
// request. Handlers go in before the send so an immediate reply cannot
// race past the router. Registration replaces any previous handlers for
// the same types, which is why callers keep at most one call per
// capability outstanding.
func (s *Supervisor) invoke(cap capability, payload interface{}, cb Callbacks) error {
	s.mu.Lock()
	ch := s.ch
	running := s.state == StateRunning
	s.mu.Unlock()
	if !running || ch == nil {
		return ErrEngineNotRunning
	}

	s.router.Register(cap.progress, func(raw json.RawMessage) {
		var p progressPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			s.logger.Warnf("malformed %s payload: %v", cap.progress, err)
			return
		}
		if cb.OnProgress != nil {
			msg := p.Message
			if msg == "" {
				msg = p.Output
			}
			cb.OnProgress(p.Progress, msg)
		}
	})
	if cap.messageType != "" {
		s.router.Register(cap.messageType, func(raw json.RawMessage) {
			var p progressPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return
			}
			if cb.OnMessage != nil {
				cb.OnMessage(p.Message)
			}
		})
	}
	s.router.Register(cap.result, func(raw json.RawMessage) {
		s.router.Deregister(cap.replyTypes()...)
		if cb.OnResult != nil {
			cb.OnResult(raw)
		}
	})
	s.router.Register(cap.errType, func(raw json.RawMessage) {
		s.router.Deregister(cap.replyTypes()...)
		var p errorPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			p = errorPayload{}
		}
		if cb.OnError != nil {
			cb.OnError(errors.New(p.text()))
		}
	})

	if err := ch.Send(cap.request, payload); err != nil {
		s.router.Deregister(cap.replyTypes()...)
		return fmt.Errorf("failed to send %s request: %w", cap.request, err)
	}
	return nil
}
