package session

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/client"
	"github.com/ValentinKolb/dIPC/rpc/transport/unix"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// ProcessStarter starts the main instance of a session as a detached process
// (by default the running binary with "serve --session <dir>").
type ProcessStarter struct {
	// Executable is the binary to spawn, empty means the running binary
	Executable string
	// Args returns the arguments for the session in dir, nil means DefaultServeArgs
	Args func(dir string) []string
	// PollInterval is the interval in which readiness is checked
	PollInterval time.Duration

	mu sync.Mutex
}

var _ client.IEndpointStarter = (*ProcessStarter)(nil)

// NewProcessStarter creates a starter that spawns the running binary with the given extra flags
// (e.g. serializer and log level, they must match what the client uses)
func NewProcessStarter(extraArgs ...string) *ProcessStarter {
	return &ProcessStarter{
		Args: func(dir string) []string {
			return append(DefaultServeArgs(dir), extraArgs...)
		},
		PollInterval: defaultPollInterval,
	}
}

// DefaultServeArgs returns the arguments that serve the session in dir
func DefaultServeArgs(dir string) []string {
	return []string{"serve", "--session", dir}
}

// StartIfNotRunning spawns the main instance unless it already runs and waits until it accepts
// channels. The spawned process outlives the caller.
func (p *ProcessStarter) StartIfNotRunning(ctx context.Context, s client.ISession) error {
	path := s.IPCPath()
	if unix.IsAlive(path) {
		return nil
	}

	// one spawn at a time per process, a concurrent caller finds the instance alive
	p.mu.Lock()
	defer p.mu.Unlock()
	if unix.IsAlive(path) {
		return nil
	}

	dir := sessionDir(s)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	exe := p.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
	}
	args := DefaultServeArgs(dir)
	if p.Args != nil {
		args = p.Args(dir)
	}

	logFile, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	// not CommandContext: the main instance must survive the caller's context
	cmd := exec.Command(exe, args...)
	cmd.Dir = dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to spawn main instance: %w", err)
	}
	Logger.Infof("Spawned main instance (pid %d) for %s", cmd.Process.Pid, dir)

	// reap the child, its exit before readiness is a start failure
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	if err := waitReady(ctx, path, p.PollInterval, exited); err != nil {
		return fmt.Errorf("%w (see %s)", err, logFile.Name())
	}
	return nil
}
