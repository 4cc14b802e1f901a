package session

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/client"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/serializer"
	"github.com/ValentinKolb/dIPC/rpc/server"
	"github.com/ValentinKolb/dIPC/rpc/transport/unix"
	"sync"
	"sync/atomic"
)

// SetupFunc registers the functions of a freshly created main instance
type SetupFunc func(s *server.Server) error

// localInstance is a main instance running inside this process
type localInstance struct {
	cancel context.CancelFunc
	done   chan error
}

// LocalStarter runs the main instance of a session inside the calling process.
// It is used for embedding and in tests.
type LocalStarter struct {
	serializer serializer.IRPCSerializer
	setup      SetupFunc

	mu        sync.Mutex
	instances map[string]*localInstance
	starts    atomic.Int32
}

var _ client.IEndpointStarter = (*LocalStarter)(nil)

// NewLocalStarter creates a starter whose instances speak s and are set up by setup (may be nil)
func NewLocalStarter(s serializer.IRPCSerializer, setup SetupFunc) *LocalStarter {
	return &LocalStarter{
		serializer: s,
		setup:      setup,
		instances:  make(map[string]*localInstance),
	}
}

// StartIfNotRunning starts an in-process main instance unless one already answers
func (l *LocalStarter) StartIfNotRunning(ctx context.Context, s client.ISession) error {
	path := s.IPCPath()
	if unix.IsAlive(path) {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if unix.IsAlive(path) {
		return nil
	}

	// an instance that died without us noticing is cleaned up first
	if old, ok := l.instances[path]; ok {
		old.cancel()
		<-old.done
		delete(l.instances, path)
	}

	srv := server.NewRPCServer(common.ServerConfig{
		SessionDir: sessionDir(s),
		Endpoint:   path,
		Transport:  common.TransportUnix,
	}, unix.NewUnixDefaultServerTransport(l.serializer))

	if l.setup != nil {
		if err := l.setup(srv); err != nil {
			return fmt.Errorf("failed to set up main instance: %w", err)
		}
	}

	serveCtx, cancel := context.WithCancel(context.Background())
	inst := &localInstance{cancel: cancel, done: make(chan error, 1)}

	// the waiter gets its own copy of the exit, done keeps it for Stop
	exited := make(chan error, 1)
	go func() {
		err := srv.Serve(serveCtx)
		exited <- err
		inst.done <- err
	}()

	if err := waitReady(ctx, path, defaultPollInterval, exited); err != nil {
		cancel()
		return err
	}

	l.instances[path] = inst
	l.starts.Add(1)
	Logger.Infof("Started in-process main instance on %s", path)
	return nil
}

// Stop stops the in-process main instance of the session, connected clients see their channel close
func (l *LocalStarter) Stop(s client.ISession) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	inst, ok := l.instances[s.IPCPath()]
	if !ok {
		return common.ErrEndpointNotRunning
	}
	delete(l.instances, s.IPCPath())

	inst.cancel()
	return <-inst.done
}

// StopAll stops every in-process main instance
func (l *LocalStarter) StopAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for path, inst := range l.instances {
		inst.cancel()
		if err := <-inst.done; err != nil {
			Logger.Warningf("Main instance on %s stopped with error: %v", path, err)
		}
		delete(l.instances, path)
	}
}

// Starts returns how many instances were started
func (l *LocalStarter) Starts() int {
	return int(l.starts.Load())
}
