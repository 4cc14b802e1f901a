package client

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the process wide default logger of all clients without an injected logger
var Logger = logger.GetLogger(common.LogTagClient)

// Option configures optional collaborators of a Client
type Option func(*Client)

// WithLogger injects the logger used for every anomaly of the client
func WithLogger(l logger.ILogger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSession sets the session whose main instance is called
func WithSession(s ISession) Option {
	return func(c *Client) { c.session = s }
}

// WithStarter sets the starter used to (re)start the main instance on reconnect
func WithStarter(s IEndpointStarter) Option {
	return func(c *Client) { c.starter = s }
}

// WithDialer sets the dialer used to open channels
func WithDialer(d transport.IChannelDialer) Option {
	return func(c *Client) { c.dialer = d }
}

// Client is the IPC client. It multiplexes any number of concurrent calls over a single channel
// to the main instance and delivers each response to exactly the caller that issued the call.
//
// Construction is two-phase: NewClient creates a client without a channel, Attach sets the first
// channel and Start launches the receive loop (Connect does all three). On reconnect the channel
// is replaced wholesale while registry and metrics are kept.
type Client struct {
	config  common.ClientConfig
	logger  logger.ILogger
	session ISession
	starter IEndpointStarter
	dialer  transport.IChannelDialer

	registry *callRegistry
	metrics  *clientMetrics

	// mu protects channel and orders channel replacement against Disconnect
	mu      sync.Mutex
	channel transport.IChannel

	run     atomic.Bool
	started atomic.Bool

	// ctx is cancelled by Disconnect, it interrupts reconnect backoff and endpoint start
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

var _ IClient = (*Client)(nil)

// NewClient creates a new client without a channel
func NewClient(config common.ClientConfig, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		config: config,
		logger: Logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.registry = newCallRegistry(c.logger)
	c.metrics = newClientMetrics(c.variant(), func() float64 { return float64(c.registry.pending()) })
	c.run.Store(true)
	return c
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Attach sets the channel of a client whose receive loop has not been started yet
func (c *Client) Attach(ch transport.IChannel) error {
	if c.started.Load() {
		return fmt.Errorf("cannot attach a channel to a running client")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channel = ch
	return nil
}

// Start launches the receive loop. A channel must be attached first.
func (c *Client) Start() error {
	if c.currentChannel() == nil {
		return common.ErrNotConnected
	}
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("client already started")
	}
	go c.loop()
	return nil
}

// Connect starts the main instance if needed (when a starter is set), opens the first channel
// and starts the receive loop
func (c *Client) Connect(ctx context.Context) error {
	if c.dialer == nil {
		return fmt.Errorf("no dialer configured")
	}

	ctx, cancel := c.boundedContext(ctx)
	defer cancel()

	if c.starter != nil && c.session != nil {
		if err := c.starter.StartIfNotRunning(ctx, c.session); err != nil {
			return fmt.Errorf("failed to start main instance: %w", err)
		}
	}

	ch, err := c.dialer.Dial(ctx, c.endpoint())
	if err != nil {
		return err
	}
	if err := c.Attach(ch); err != nil {
		_ = ch.Disconnect()
		return err
	}
	return c.Start()
}

// Disconnect stops the client: the receive loop stops reconnecting (and returns after its current
// cycle), the channel is disconnected, every attached auxiliary resource is released and every
// still pending call fails with common.ErrClientDisconnected. Calling it again has no effect.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	wasRunning := c.run.Swap(false)
	ch := c.channel
	c.mu.Unlock()

	if !wasRunning {
		return nil
	}
	c.cancel()

	var err error
	if ch != nil {
		err = ch.Disconnect()
	}

	c.registry.drainAuxiliaries()
	if n := c.registry.failAll(common.ErrClientDisconnected); n > 0 {
		c.logger.Infof("Disconnected with %d pending calls", n)
	}

	// an already broken channel is not worth reporting
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// Done is closed once the receive loop has returned
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Pending returns the number of calls waiting for a response
func (c *Client) Pending() int {
	return c.registry.pending()
}

// --------------------------------------------------------------------------
// Call Dispatcher
// --------------------------------------------------------------------------

// Invoke calls fn on the main instance and blocks until the result arrives.
//
// Exactly one frame is sent per invocation. Responses are matched by id, so concurrent calls
// resolve in whatever order the main instance answers. A remote failure is returned as
// *common.RemoteFailure. If ctx is done first, the call is abandoned: its resource is released
// and a late response is dropped.
//
// Calls still pending when the client is disconnected fail with common.ErrClientDisconnected.
// A one-shot worker does not reconnect, so its pending calls fail with common.ErrChannelClosed
// once the channel closes.
func (c *Client) Invoke(ctx context.Context, fn common.FunctionRef, args Arguments) ([]byte, error) {
	if !c.run.Load() {
		return nil, common.ErrClientDisconnected
	}
	ch := c.currentChannel()
	if ch == nil {
		return nil, common.ErrNotConnected
	}

	var value []byte
	var resource IAuxiliaryResource
	if args != nil {
		value, resource = args.payload()
	}

	call := c.registry.register(resource)

	// Disconnect may have drained the registry between the check above and the registration
	if !c.run.Load() {
		c.registry.forget(call.id)
		return nil, common.ErrClientDisconnected
	}

	endpoint := ""
	if resource != nil {
		endpoint = resource.Endpoint()
	}

	start := time.Now()
	c.metrics.calls.Inc()

	if err := ch.Send(common.NewCallRequest(call.id, fn, value, endpoint)); err != nil {
		c.registry.forget(call.id)
		c.metrics.sendFailures.Inc()
		c.logger.Warningf("Failed to send call %d to %s: %v", call.id, fn, err)
		return nil, fmt.Errorf("failed to send call to %s: %w", fn, err)
	}

	select {
	case res := <-call.completion:
		c.metrics.observe(start, res.err)
		return res.value, res.err
	case <-ctx.Done():
		c.registry.forget(call.id)
		c.metrics.abandoned.Inc()
		return nil, ctx.Err()
	}
}

// Call is a shorthand for Invoke with a function name and plain arguments
func (c *Client) Call(ctx context.Context, function string, value []byte) ([]byte, error) {
	return c.Invoke(ctx, common.ByName(function), Plain(value))
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (c *Client) currentChannel() transport.IChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// endpoint returns the address of the main instance
func (c *Client) endpoint() string {
	if c.session != nil {
		return c.session.IPCPath()
	}
	return c.config.GetEndpoint()
}

func (c *Client) variant() string {
	if c.config.Persistent {
		return "client"
	}
	return "worker"
}

// boundedContext derives a context from parent that is also cancelled by Disconnect and
// limited by the configured timeout
func (c *Client) boundedContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(c.ctx, cancel)

	if timeout := c.config.Timeout(); timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		return ctx, func() {
			stop()
			cancelTimeout()
			cancel()
		}
	}
	return ctx, func() {
		stop()
		cancel()
	}
}
