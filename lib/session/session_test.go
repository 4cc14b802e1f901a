package session

import (
	"context"
	"github.com/ValentinKolb/dIPC/rpc/client"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/serializer"
	"github.com/ValentinKolb/dIPC/rpc/server"
	"github.com/ValentinKolb/dIPC/rpc/transport/unix"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempSession(t *testing.T) *Session {
	t.Helper()
	// keep the path short, unix socket paths are limited to ~100 bytes
	dir, err := os.MkdirTemp("", "dipc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return New(dir)
}

func TestSessionPaths(t *testing.T) {
	s := New("/tmp/session")
	require.Equal(t, "/tmp/session/ipc.sock", s.IPCPath())
	require.Equal(t, "/tmp/session/main.log", s.LogPath())
	require.Equal(t, "/tmp/session", sessionDir(s))
	require.False(t, s.IsRunning())
}

func TestLocalStarterIsIdempotent(t *testing.T) {
	sess := tempSession(t)
	starter := NewLocalStarter(serializer.NewBinarySerializer(), nil)
	defer starter.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, starter.StartIfNotRunning(ctx, sess))
	require.NoError(t, starter.StartIfNotRunning(ctx, sess))
	require.True(t, sess.IsRunning())
	require.Equal(t, 1, starter.Starts())

	require.NoError(t, starter.Stop(sess))
	require.False(t, sess.IsRunning())
	require.ErrorIs(t, starter.Stop(sess), common.ErrEndpointNotRunning)
}

func TestProcessStarterSkipsRunningInstance(t *testing.T) {
	sess := tempSession(t)
	local := NewLocalStarter(serializer.NewBinarySerializer(), nil)
	defer local.StopAll()
	require.NoError(t, local.StartIfNotRunning(context.Background(), sess))

	// would fail if it tried to spawn anything
	p := &ProcessStarter{Executable: filepath.Join(sess.Dir, "does-not-exist")}
	require.NoError(t, p.StartIfNotRunning(context.Background(), sess))
}

func TestProcessStarterReportsEarlyExit(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	sess := tempSession(t)
	p := &ProcessStarter{
		Executable: "/bin/sh",
		Args:       func(string) []string { return []string{"-c", "echo starting; exit 3"} },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := p.StartIfNotRunning(ctx, sess)
	require.Error(t, err)
	require.Contains(t, err.Error(), "stopped before it was ready")

	out, readErr := os.ReadFile(sess.LogPath())
	require.NoError(t, readErr)
	require.Contains(t, string(out), "starting")
}

func TestProcessStarterTimesOut(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	sess := tempSession(t)
	p := &ProcessStarter{
		Executable: "/bin/sh",
		Args:       func(string) []string { return []string{"-c", "sleep 1"} },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, p.StartIfNotRunning(ctx, sess), common.ErrEndpointNotRunning)
}

// TestPersistentClientRestartsMainInstance kills the main instance under a connected client and
// checks that the client brings it back and keeps working
func TestPersistentClientRestartsMainInstance(t *testing.T) {
	sess := tempSession(t)
	s := serializer.NewBinarySerializer()
	starter := NewLocalStarter(s, func(srv *server.Server) error {
		return srv.Register("echo", func(_ context.Context, call *server.Call) ([]byte, error) {
			return call.Value, nil
		})
	})
	defer starter.StopAll()

	config := common.DefaultClientConfig(sess.Dir)
	config.ReconnectBackoffMs = 5
	c := client.NewClient(config,
		client.WithSession(sess),
		client.WithStarter(starter),
		client.WithDialer(unix.NewUnixDialer(s, config.GetMaxFrameSize())),
	)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()
	require.Equal(t, 1, starter.Starts())

	value, err := c.Call(context.Background(), "echo", []byte("first"))
	require.NoError(t, err)
	require.Equal(t, "first", string(value))

	require.NoError(t, starter.Stop(sess))

	require.Eventually(t, func() bool {
		return starter.Starts() == 2 && sess.IsRunning()
	}, 3*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		value, err := c.Call(ctx, "echo", []byte("second"))
		return err == nil && string(value) == "second"
	}, 3*time.Second, 10*time.Millisecond)

	// after disconnect nothing brings the instance back
	require.NoError(t, c.Disconnect())
	<-c.Done()
	require.NoError(t, starter.Stop(sess))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 2, starter.Starts())
	require.False(t, sess.IsRunning())
}

func TestWorkerDoesNotRestartMainInstance(t *testing.T) {
	sess := tempSession(t)
	s := serializer.NewBinarySerializer()
	starter := NewLocalStarter(s, nil)
	defer starter.StopAll()

	config := common.DefaultClientConfig(sess.Dir)
	config.Persistent = false
	c := client.NewClient(config,
		client.WithSession(sess),
		client.WithStarter(starter),
		client.WithDialer(unix.NewUnixDialer(s, config.GetMaxFrameSize())),
	)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()

	require.NoError(t, starter.Stop(sess))

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	require.Equal(t, 1, starter.Starts())
	require.False(t, sess.IsRunning())
}
