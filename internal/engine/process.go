package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/amankumarsingh77/video-scene-indexer/pkg/logger"
	"github.com/gorilla/websocket"
)

type engineProcess struct {
	cmd *exec.Cmd
}

func (p *engineProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *engineProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// pythonSpawner launches the analysis service with a fixed listening
// port. Its standard streams are consumed only for logging.
func pythonSpawner(pythonBin, scriptPath string, log logger.Logger) SpawnFunc {
	return func(host string, port int) (Process, error) {
		cmd := exec.Command(pythonBin, scriptPath, "--port", strconv.Itoa(port))
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to pipe engine stdout: %w", err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to pipe engine stderr: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start engine process: %w", err)
		}
		go logStream(log, "engine stdout", stdout)
		go logStream(log, "engine stderr", stderr)
		return &engineProcess{cmd: cmd}, nil
	}
}

func logStream(log logger.Logger, prefix string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Debugf("%s: %s", prefix, scanner.Text())
	}
}

func websocketDialer() DialFunc {
	return func(ctx context.Context, addr string) (Conn, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}
