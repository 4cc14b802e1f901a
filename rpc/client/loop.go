package client

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/transport"
	"math/rand"
	"time"
)

// --------------------------------------------------------------------------
// Receive Loop
// --------------------------------------------------------------------------

// loop is the single receive task of the client. It drains the current channel until it closes
// and then either stops (worker, or after Disconnect) or replaces the channel (persistent client).
func (c *Client) loop() {
	defer close(c.done)

	for {
		c.receive(c.currentChannel())

		if !c.run.Load() {
			c.logger.Debugf("Receive loop stopped")
			return
		}

		// Case one-shot worker: the channel is gone for good
		if !c.config.Persistent {
			c.stopWorker()
			return
		}

		// Case persistent client: replace the channel, keep all pending calls
		if err := c.reconnectWithBackoff(); err != nil {
			return
		}
	}
}

// receive forwards every response frame of ch to the registry until ch signals closure
func (c *Client) receive(ch transport.IChannel) {
	for {
		msg, err := ch.Receive()

		// Case transient error: log it and try again
		if err != nil {
			if !c.run.Load() {
				return
			}
			c.logger.Errorf("Error receiving frame: %v", err)
			continue
		}

		// Case channel closed
		if msg == nil {
			c.logger.Debugf("Channel closed")
			return
		}

		if !msg.IsResponse() {
			c.logger.Warningf("Ignoring unexpected %s frame (seq %d)", msg.MsgType, msg.Seq)
			continue
		}

		if !c.registry.resolve(msg) {
			c.metrics.unmatched.Inc()
		}
	}
}

// stopWorker ends a worker whose channel closed. Callers still waiting get ErrChannelClosed since
// nothing will ever answer them.
func (c *Client) stopWorker() {
	if ch := c.currentChannel(); ch != nil {
		_ = ch.Disconnect()
	}
	if n := c.registry.failAll(common.ErrChannelClosed); n > 0 {
		c.logger.Warningf("Channel closed with %d pending calls", n)
	}
	c.logger.Infof("Channel closed, worker stops")
}

// --------------------------------------------------------------------------
// Reconnection Controller
// --------------------------------------------------------------------------

// reconnectWithBackoff retries reconnect until it succeeds or the client is disconnected.
// It only returns an error if the client was disconnected meanwhile.
func (c *Client) reconnectWithBackoff() error {
	backoffMs := c.config.ReconnectBackoffMs

	for attempt := 1; ; attempt++ {
		if !c.run.Load() {
			return common.ErrClientDisconnected
		}

		err := c.reconnect()
		if err == nil {
			return nil
		}
		if errors.Is(err, common.ErrClientDisconnected) {
			return err
		}
		c.logger.Errorf("Reconnect attempt %d failed: %v", attempt, err)

		if backoffMs <= 0 {
			continue
		}

		// Exponential backoff with a small random jitter (+-10%)
		jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
		select {
		case <-c.ctx.Done():
			return common.ErrClientDisconnected
		case <-time.After(time.Duration(jitter) * time.Millisecond):
		}

		backoffMs *= 2
		if limit := c.config.ReconnectBackoffMaxMs; limit > 0 && backoffMs > limit {
			backoffMs = limit
		}
	}
}

// reconnect replaces the channel: the old channel is disconnected (best effort), the main instance
// is (re)started if needed and a new channel is opened to it
func (c *Client) reconnect() error {
	if old := c.currentChannel(); old != nil {
		if err := old.Disconnect(); err != nil {
			c.logger.Debugf("Ignoring error while disconnecting old channel: %v", err)
		}
	}

	if c.dialer == nil {
		return fmt.Errorf("no dialer configured")
	}

	ctx, cancel := c.boundedContext(context.Background())
	defer cancel()

	if c.starter != nil && c.session != nil {
		if err := c.starter.StartIfNotRunning(ctx, c.session); err != nil {
			return fmt.Errorf("failed to start main instance: %w", err)
		}
	}

	endpoint := c.endpoint()
	ch, err := c.dialer.Dial(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Disconnect reads the channel under the same lock, so it either sees the new channel or we
	// see that it already ran
	c.mu.Lock()
	if !c.run.Load() {
		c.mu.Unlock()
		_ = ch.Disconnect()
		return common.ErrClientDisconnected
	}
	c.channel = ch
	c.mu.Unlock()

	c.metrics.reconnects.Inc()
	c.logger.Infof("Reconnected to %s (%d calls pending)", endpoint, c.registry.pending())
	return nil
}
