package session

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/client"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/transport/unix"
	"github.com/lni/dragonboat/v4/logger"
	"path/filepath"
	"time"
)

var Logger = logger.GetLogger(common.LogTagSession)

const (
	// LogFileName is the file inside the session directory the spawned main instance logs to
	LogFileName = "main.log"
	// defaultPollInterval is the interval in which a starter checks whether the main instance is ready
	defaultPollInterval = 10 * time.Millisecond
)

// Session is the handle of one session: a directory that holds the socket of its main instance
type Session struct {
	Dir string
}

var _ client.ISession = (*Session)(nil)

// New returns the session in dir
func New(dir string) *Session {
	return &Session{Dir: dir}
}

// IPCPath returns the socket path of the main instance
func (s *Session) IPCPath() string {
	return common.SocketPath(s.Dir)
}

// LogPath returns the log file of a spawned main instance
func (s *Session) LogPath() string {
	return filepath.Join(s.Dir, LogFileName)
}

// IsRunning reports whether the main instance accepts channels
func (s *Session) IsRunning() bool {
	return unix.IsAlive(s.IPCPath())
}

// sessionDir returns the directory of any session handle
func sessionDir(s client.ISession) string {
	if sess, ok := s.(*Session); ok {
		return sess.Dir
	}
	return filepath.Dir(s.IPCPath())
}

// waitReady blocks until something accepts connections on path, ctx is done or exited yields
func waitReady(ctx context.Context, path string, interval time.Duration, exited <-chan error) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for !unix.IsAlive(path) {
		select {
		case err := <-exited:
			if err == nil {
				err = fmt.Errorf("exited")
			}
			return fmt.Errorf("main instance stopped before it was ready: %w", err)
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", common.ErrEndpointNotRunning, ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
