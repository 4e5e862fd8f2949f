package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeConn struct {
	in     chan Envelope
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes []map[string]interface{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan Envelope, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadJSON(v interface{}) error {
	select {
	case env := <-c.in:
		*v.(*Envelope) = env
		return nil
	case <-c.closed:
		return errors.New("connection closed")
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v.(map[string]interface{}))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(msgType string, payload string) {
	c.in <- Envelope{Type: msgType, Payload: json.RawMessage(payload)}
}

// drop severs the connection from the engine side.
func (c *fakeConn) drop() {
	c.once.Do(func() { close(c.closed) })
}

func (c *fakeConn) sentTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, 0, len(c.writes))
	for _, w := range c.writes {
		types = append(types, w["type"].(string))
	}
	return types
}

type fakeProc struct {
	killed atomic.Bool
	done   chan struct{}
	once   sync.Once
}

func newFakeProc() *fakeProc {
	return &fakeProc{done: make(chan struct{})}
}

func (p *fakeProc) Wait() error {
	<-p.done
	return nil
}

func (p *fakeProc) Kill() error {
	p.killed.Store(true)
	p.once.Do(func() { close(p.done) })
	return nil
}

func testConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            9999,
		ConnectAttempts: 3,
		ConnectDelay:    time.Millisecond,
		MaxRestarts:     2,
		RestartBackoff:  time.Millisecond,
	}
}

func TestStartAdoptsRunningEngine(t *testing.T) {
	s := NewSupervisor(testConfig(), nopLogger{})
	conn := newFakeConn()
	var spawns atomic.Int32

	s.dial = func(ctx context.Context, addr string) (Conn, error) {
		return conn, nil
	}
	s.spawn = func(host string, port int) (Process, error) {
		spawns.Add(1)
		return newFakeProc(), nil
	}

	addr, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if addr != "ws://127.0.0.1:9999" {
		t.Fatalf("addr = %q", addr)
	}
	if got := spawns.Load(); got != 0 {
		t.Fatalf("adopted engine but spawned %d processes", got)
	}
	if s.State() != StateRunning {
		t.Fatalf("state = %s, want %s", s.State(), StateRunning)
	}
	s.Stop()
}

func TestStartSpawnsWhenNothingListens(t *testing.T) {
	s := NewSupervisor(testConfig(), nopLogger{})
	conn := newFakeConn()
	var spawned atomic.Bool

	s.spawn = func(host string, port int) (Process, error) {
		spawned.Store(true)
		return newFakeProc(), nil
	}
	s.dial = func(ctx context.Context, addr string) (Conn, error) {
		if !spawned.Load() {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	}

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !spawned.Load() {
		t.Fatal("expected a process spawn")
	}
	if s.State() != StateRunning {
		t.Fatalf("state = %s, want %s", s.State(), StateRunning)
	}
	s.Stop()
}

func TestStartIsSingleFlight(t *testing.T) {
	s := NewSupervisor(testConfig(), nopLogger{})
	var spawns atomic.Int32
	var spawned atomic.Bool

	s.spawn = func(host string, port int) (Process, error) {
		spawns.Add(1)
		spawned.Store(true)
		return newFakeProc(), nil
	}
	s.dial = func(ctx context.Context, addr string) (Conn, error) {
		if !spawned.Load() {
			return nil, errors.New("connection refused")
		}
		return newFakeConn(), nil
	}

	const callers = 8
	addrs := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			addrs[i], errs[i] = s.Start(context.Background())
		}()
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if addrs[i] != addrs[0] {
			t.Fatalf("caller %d got %q, caller 0 got %q", i, addrs[i], addrs[0])
		}
	}
	if got := spawns.Load(); got != 1 {
		t.Fatalf("%d concurrent callers spawned %d processes, want 1", callers, got)
	}
	s.Stop()
}

func TestCrashExhaustsRestartBudget(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectAttempts = 1
	s := NewSupervisor(cfg, nopLogger{})

	conn := newFakeConn()
	var dialedOnce atomic.Bool
	var spawns atomic.Int32

	s.dial = func(ctx context.Context, addr string) (Conn, error) {
		if dialedOnce.CompareAndSwap(false, true) {
			return conn, nil
		}
		return nil, errors.New("connection refused")
	}
	s.spawn = func(host string, port int) (Process, error) {
		spawns.Add(1)
		return newFakeProc(), nil
	}

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn.drop()

	deadline := time.Now().Add(5 * time.Second)
	for s.State() != StateCrashed || !isExhausted(s) {
		if time.Now().After(deadline) {
			t.Fatalf("restart budget never exhausted, state %s", s.State())
		}
		time.Sleep(time.Millisecond)
	}

	// one failed spawn-and-dial cycle per budgeted restart
	if got := spawns.Load(); got != int32(cfg.MaxRestarts) {
		t.Fatalf("spawn attempts = %d, want %d", got, cfg.MaxRestarts)
	}
	if _, err := s.Start(context.Background()); !errors.Is(err, ErrRestartsExhausted) {
		t.Fatalf("Start after exhaustion = %v, want ErrRestartsExhausted", err)
	}
	s.Stop()
}

func TestResetRestartsReopensTheBudget(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectAttempts = 1
	cfg.MaxRestarts = 1
	s := NewSupervisor(cfg, nopLogger{})

	first := newFakeConn()
	var dials atomic.Int32
	s.dial = func(ctx context.Context, addr string) (Conn, error) {
		if dials.Add(1) == 1 {
			return first, nil
		}
		return nil, errors.New("connection refused")
	}
	s.spawn = func(host string, port int) (Process, error) {
		return newFakeProc(), nil
	}

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first.drop()

	deadline := time.Now().Add(5 * time.Second)
	for !isExhausted(s) {
		if time.Now().After(deadline) {
			t.Fatal("restart budget never exhausted")
		}
		time.Sleep(time.Millisecond)
	}

	s.ResetRestarts()
	healthy := newFakeConn()
	s.dial = func(ctx context.Context, addr string) (Conn, error) {
		return healthy, nil
	}
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start after reset: %v", err)
	}
	if s.State() != StateRunning {
		t.Fatalf("state = %s, want %s", s.State(), StateRunning)
	}
	s.Stop()
}

func isExhausted(s *Supervisor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhausted
}

func TestStopIsIdempotentAndSuppressesRestart(t *testing.T) {
	s := NewSupervisor(testConfig(), nopLogger{})
	conn := newFakeConn()
	proc := newFakeProc()
	var spawns atomic.Int32
	var spawned atomic.Bool

	s.spawn = func(host string, port int) (Process, error) {
		spawns.Add(1)
		spawned.Store(true)
		return proc, nil
	}
	s.dial = func(ctx context.Context, addr string) (Conn, error) {
		if !spawned.Load() {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	}

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if !proc.killed.Load() {
		t.Fatal("owned process was not killed")
	}
	if s.State() != StateNotStarted {
		t.Fatalf("state = %s, want %s", s.State(), StateNotStarted)
	}

	// give a would-be restart timer time to fire
	time.Sleep(20 * time.Millisecond)
	if got := spawns.Load(); got != 1 {
		t.Fatalf("spawns after Stop = %d, want 1", got)
	}
}

func TestInvokeRoutesProgressAndResult(t *testing.T) {
	s := NewSupervisor(testConfig(), nopLogger{})
	conn := newFakeConn()
	s.dial = func(ctx context.Context, addr string) (Conn, error) { return conn, nil }

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	progress := make(chan float64, 4)
	result := make(chan string, 1)
	err := s.Analyze(context.Background(), "/media/clip.mp4", Callbacks{
		OnProgress: func(p float64, msg string) { progress <- p },
		OnResult:   func(raw json.RawMessage) { result <- string(raw) },
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if types := conn.sentTypes(); len(types) != 1 || types[0] != TypeAnalyze {
		t.Fatalf("sent types = %v", types)
	}

	conn.push(TypeAnalysisProgress, `{"progress":40,"message":"scanning"}`)
	conn.push(TypeAnalysisResult, `{"scenes":[]}`)

	select {
	case p := <-progress:
		if p != 40 {
			t.Fatalf("progress = %v, want 40", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no progress callback")
	}
	select {
	case raw := <-result:
		if raw != `{"scenes":[]}` {
			t.Fatalf("result = %q", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result callback")
	}

	// result deregisters the capability, a late progress frame is dropped
	conn.push(TypeAnalysisProgress, `{"progress":99}`)
	select {
	case p := <-progress:
		t.Fatalf("late progress %v delivered after result", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInvokeErrorReply(t *testing.T) {
	s := NewSupervisor(testConfig(), nopLogger{})
	conn := newFakeConn()
	s.dial = func(ctx context.Context, addr string) (Conn, error) { return conn, nil }

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	errCh := make(chan error, 1)
	err := s.Transcribe(context.Background(), "/media/clip.mp4", "/tmp/out.json", Callbacks{
		OnError: func(err error) { errCh <- err },
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	conn.push(TypeTranscriptionError, `{"message":"no audio stream"}`)

	select {
	case err := <-errCh:
		if err.Error() != "no audio stream" {
			t.Fatalf("error = %q", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error callback")
	}
}

func TestInvokeRequiresRunningEngine(t *testing.T) {
	s := NewSupervisor(testConfig(), nopLogger{})
	err := s.Analyze(context.Background(), "/media/clip.mp4", Callbacks{})
	if !errors.Is(err, ErrEngineNotRunning) {
		t.Fatalf("err = %v, want ErrEngineNotRunning", err)
	}
}

func TestHealthRoundTrip(t *testing.T) {
	s := NewSupervisor(testConfig(), nopLogger{})
	conn := newFakeConn()
	s.dial = func(ctx context.Context, addr string) (Conn, error) { return conn, nil }

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	go func() {
		// reply once the request frame is on the wire
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			for _, typ := range conn.sentTypes() {
				if typ == TypeHealth {
					conn.push(TypeStatus, `{"status":"ready"}`)
					return
				}
			}
			time.Sleep(time.Millisecond)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	status, err := s.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if status != "ready" {
		t.Fatalf("status = %q, want ready", status)
	}
}
