package client

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/transport"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const waitTimeout = 2 * time.Second

// --------------------------------------------------------------------------
// Channel
// --------------------------------------------------------------------------

type inboundFrame struct {
	msg *common.Message
	err error
}

// fakeChannel is an in-memory transport.IChannel. Frames sent by the client show up on sent,
// frames pushed with deliver are returned by Receive.
type fakeChannel struct {
	sent        chan *common.Message
	inbound     chan inboundFrame
	closed      chan struct{}
	closeOnce   sync.Once
	disconnects atomic.Int32
	sendErr     error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		sent:    make(chan *common.Message, 128),
		inbound: make(chan inboundFrame, 128),
		closed:  make(chan struct{}),
	}
}

func (f *fakeChannel) Send(msg *common.Message) error {
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent <- msg
	return nil
}

func (f *fakeChannel) Receive() (*common.Message, error) {
	select {
	case frame := <-f.inbound:
		return frame.msg, frame.err
	case <-f.closed:
		return nil, nil
	}
}

func (f *fakeChannel) Disconnect() error {
	f.disconnects.Add(1)
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeChannel) deliver(msg *common.Message) {
	f.inbound <- inboundFrame{msg: msg}
}

func (f *fakeChannel) deliverErr(err error) {
	f.inbound <- inboundFrame{err: err}
}

// nextSent waits for the next frame the client sent
func (f *fakeChannel) nextSent(t *testing.T) *common.Message {
	t.Helper()
	select {
	case msg := <-f.sent:
		return msg
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a sent frame")
		return nil
	}
}

// --------------------------------------------------------------------------
// Dialer, starter, session, resource
// --------------------------------------------------------------------------

type fakeDialer struct {
	mu       sync.Mutex
	channels []*fakeChannel
	failures int // number of dials that fail before one succeeds
	dials    atomic.Int32
}

func (d *fakeDialer) GetName() string { return "fake" }

func (d *fakeDialer) Dial(_ context.Context, _ string) (transport.IChannel, error) {
	d.dials.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("connection refused")
	}
	if len(d.channels) == 0 {
		return nil, errors.New("no channel left")
	}
	ch := d.channels[0]
	d.channels = d.channels[1:]
	return ch, nil
}

type fakeStarter struct {
	calls atomic.Int32
}

func (s *fakeStarter) StartIfNotRunning(_ context.Context, _ ISession) error {
	s.calls.Add(1)
	return nil
}

type fakeSession string

func (s fakeSession) IPCPath() string { return string(s) }

type fakeResource struct {
	endpoint    string
	disconnects atomic.Int32
}

func (r *fakeResource) Endpoint() string { return r.endpoint }

func (r *fakeResource) Disconnect() error {
	r.disconnects.Add(1)
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func testConfig(persistent bool) common.ClientConfig {
	return common.ClientConfig{
		Persistent:            persistent,
		TimeoutSecond:         1,
		ReconnectBackoffMs:    1,
		ReconnectBackoffMaxMs: 4,
	}
}

// startClient creates a started client on top of ch
func startClient(t *testing.T, config common.ClientConfig, ch *fakeChannel, opts ...Option) *Client {
	t.Helper()
	c := NewClient(config, opts...)
	if err := c.Attach(ch); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Disconnect() })
	return c
}

type invokeResult struct {
	value []byte
	err   error
}

// invokeAsync runs Invoke in its own goroutine
func invokeAsync(c *Client, ctx context.Context, fn common.FunctionRef, args Arguments) <-chan invokeResult {
	out := make(chan invokeResult, 1)
	go func() {
		value, err := c.Invoke(ctx, fn, args)
		out <- invokeResult{value: value, err: err}
	}()
	return out
}

func awaitResult(t *testing.T, res <-chan invokeResult) invokeResult {
	t.Helper()
	select {
	case r := <-res:
		return r
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for invoke to return")
		return invokeResult{}
	}
}

func awaitDone(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(waitTimeout):
		t.Fatal("receive loop did not stop")
	}
}
