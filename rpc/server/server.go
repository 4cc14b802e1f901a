package server

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"
)

var Logger = logger.GetLogger(common.LogTagServer)

// Names of the functions every main instance provides
const (
	FunctionPing  = "ping"
	FunctionStats = "stats"
)

// Server is the main instance: it owns a function table and answers the call frames of all
// connected clients and workers
type Server struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport

	// function table: name -> handler and id -> name
	handlers *xsync.MapOf[string, HandlerFunc]
	ids      *xsync.MapOf[uint64, string]

	stats   *serverStats
	started time.Time
}

// NewRPCServer creates a new main instance server on top of the given transport.
// The built-in functions ping and stats are registered.
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		unix.NewUnixDefaultServerTransport(serializer.NewBinarySerializer()),
//	)
//	_ = s.Register("echo", func(ctx context.Context, call *server.Call) ([]byte, error) {
//		return call.Value, nil
//	})
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(config common.ServerConfig, t transport.IRPCServerTransport) *Server {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	s := &Server{
		config:    config,
		transport: t,
		handlers:  xsync.NewMapOf[string, HandlerFunc](),
		ids:       xsync.NewMapOf[uint64, string](),
		stats:     newServerStats(),
		started:   time.Now(),
	}

	_ = s.Register(FunctionPing, s.ping)
	_ = s.Register(FunctionStats, s.statsHandler)

	return s
}

// Register adds a function to the function table
func (s *Server) Register(name string, handler HandlerFunc) error {
	if name == "" {
		return fmt.Errorf("function name must not be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler for %s must not be nil", name)
	}
	if _, loaded := s.handlers.LoadOrStore(name, handler); loaded {
		return fmt.Errorf("function %s already registered", name)
	}
	Logger.Debugf("Registered function %s", name)
	return nil
}

// RegisterWithID adds a function that can also be called by its numeric id
func (s *Server) RegisterWithID(id uint64, name string, handler HandlerFunc) error {
	if _, loaded := s.ids.LoadOrStore(id, name); loaded {
		return fmt.Errorf("function id %d already registered", id)
	}
	if err := s.Register(name, handler); err != nil {
		s.ids.Delete(id)
		return err
	}
	return nil
}

// Serve registers the dispatcher at the transport and blocks until ctx is done or the transport fails
func (s *Server) Serve(ctx context.Context) error {
	Logger.Infof("Serving %d functions on %s", s.handlers.Size(), s.config.GetEndpoint())
	Logger.Debugf("%s", s.config.String())

	s.transport.RegisterHandler(s.handle)
	return s.transport.Listen(ctx, s.config)
}

// Close stops the transport, open channels are closed
func (s *Server) Close() error {
	return s.transport.Close()
}

// --------------------------------------------------------------------------
// Dispatch
// --------------------------------------------------------------------------

// handle answers one call frame (implements transport.ServerHandleFunc)
func (s *Server) handle(ctx context.Context, req *common.Message) *common.Message {
	var name string

	switch req.MsgType {
	case common.MsgTCall:
		name = req.Function
	case common.MsgTCallByID:
		var ok bool
		if name, ok = s.ids.Load(req.FunctionID); !ok {
			s.stats.unknown.Inc(1)
			return common.NewFailureResponse(req.Seq, req.Ref(), common.ErrUnknownFunction)
		}
	default:
		return common.NewErrorResponse(req.Seq, fmt.Sprintf("unexpected %s frame", req.MsgType))
	}

	handler, ok := s.handlers.Load(name)
	if !ok {
		s.stats.unknown.Inc(1)
		return common.NewFailureResponse(req.Seq, common.ByName(name), common.ErrUnknownFunction)
	}

	start := time.Now()
	value, err := s.invoke(ctx, handler, &Call{
		Seq:      req.Seq,
		Function: name,
		Value:    req.Value,
		Resource: req.Resource,
	})
	s.stats.observe(name, start, err)

	if err != nil {
		return common.NewFailureResponse(req.Seq, common.ByName(name), err)
	}
	return common.NewResultResponse(req.Seq, value)
}

// invoke runs the handler and turns a panic into an error
func (s *Server) invoke(ctx context.Context, handler HandlerFunc, call *Call) (value []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("Function %s panicked: %v\n%s", call.Function, r, debug.Stack())
			value, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, call)
}

// --------------------------------------------------------------------------
// Built-in functions
// --------------------------------------------------------------------------

func (s *Server) ping(_ context.Context, call *Call) ([]byte, error) {
	if len(call.Value) > 0 {
		return call.Value, nil
	}
	return []byte("pong"), nil
}

func (s *Server) statsHandler(_ context.Context, _ *Call) ([]byte, error) {
	return s.stats.snapshot(s.started).encode()
}
