package base

import (
	"bytes"
	"encoding/binary"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/serializer"
	"github.com/stretchr/testify/require"
	"net"
	"os"
	"sync"
	"testing"
	"time"
)

func pipeChannel(t *testing.T, maxFrameSize int) (*channel, net.Conn) {
	t.Helper()
	local, peer := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = peer.Close()
	})
	return newChannel(local, serializer.NewBinarySerializer(), maxFrameSize), peer
}

// writeAsync writes raw frames from the peer side, net.Pipe blocks until the data is read
func writeAsync(peer net.Conn, frames ...[]byte) <-chan error {
	done := make(chan error, 1)
	go func() {
		for _, f := range frames {
			if err := writeFrame(peer, f); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	return done
}

func TestChannelSendReceive(t *testing.T) {
	ch, peer := pipeChannel(t, 0)
	other := newChannel(peer, serializer.NewBinarySerializer(), 0)

	sent := make(chan error, 1)
	go func() {
		sent <- ch.Send(common.NewCallRequest(7, common.ByName("echo"), []byte("value"), ""))
	}()

	msg, err := other.Receive()
	require.NoError(t, err)
	require.NoError(t, <-sent)
	require.Equal(t, common.MsgTCall, msg.MsgType)
	require.Equal(t, uint64(7), msg.Seq)
	require.Equal(t, "echo", msg.Function)
	require.Equal(t, []byte("value"), msg.Value)
}

func TestChannelReceiveAfterPeerClose(t *testing.T) {
	ch, peer := pipeChannel(t, 0)
	require.NoError(t, peer.Close())

	msg, err := ch.Receive()
	require.NoError(t, err)
	require.Nil(t, msg)

	// stays closed
	msg, err = ch.Receive()
	require.NoError(t, err)
	require.Nil(t, msg)
}

func TestChannelUndecodableFrameKeepsStream(t *testing.T) {
	ch, peer := pipeChannel(t, 0)
	good, err := serializer.NewBinarySerializer().Serialize(*common.NewResultResponse(3, []byte("ok")))
	require.NoError(t, err)

	done := writeAsync(peer, []byte{0x01}, good)

	msg, err := ch.Receive()
	require.Error(t, err)
	require.Nil(t, msg)

	msg, err = ch.Receive()
	require.NoError(t, err)
	require.Equal(t, uint64(3), msg.Seq)
	require.Equal(t, []byte("ok"), msg.Value)
	require.NoError(t, <-done)
}

func TestChannelRejectsOversizedFrame(t *testing.T) {
	ch, peer := pipeChannel(t, 16)

	go func() {
		header := make([]byte, frameHeaderSize)
		binary.BigEndian.PutUint32(header, 1024)
		_, _ = peer.Write(header)
	}()

	msg, err := ch.Receive()
	require.ErrorIs(t, err, common.ErrFrameTooLarge)
	require.Nil(t, msg)

	// the stream is out of sync, the channel reports closed from now on
	msg, err = ch.Receive()
	require.NoError(t, err)
	require.Nil(t, msg)

	err = ch.Send(common.NewCallRequest(0, common.ByName("ping"), bytes.Repeat([]byte("x"), 64), ""))
	require.ErrorIs(t, err, net.ErrClosed)
}

func TestChannelSendTooLarge(t *testing.T) {
	ch, _ := pipeChannel(t, 16)
	err := ch.Send(common.NewCallRequest(0, common.ByName("ping"), bytes.Repeat([]byte("x"), 64), ""))
	require.ErrorIs(t, err, common.ErrFrameTooLarge)
}

func TestChannelSendWithinTimesOut(t *testing.T) {
	ch, _ := pipeChannel(t, 0)

	// nobody reads from the peer, the write can never finish
	err := ch.sendWithin(common.NewResultResponse(1, []byte("late")), 20*time.Millisecond)
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
}

func TestChannelConcurrentSendsWithin(t *testing.T) {
	ch, peer := pipeChannel(t, 0)
	other := newChannel(peer, serializer.NewBinarySerializer(), 0)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(seq uint64) {
			defer wg.Done()
			errs <- ch.sendWithin(common.NewResultResponse(seq, []byte("v")), 100*time.Millisecond)
		}(uint64(i))
	}

	seen := make(map[uint64]bool)
	for i := 0; i < n; i++ {
		msg, err := other.Receive()
		require.NoError(t, err)
		seen[msg.Seq] = true
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, seen, n)

	// the deadline is cleared after each write
	go func() { _, _ = other.Receive() }()
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, ch.Send(common.NewResultResponse(99, nil)))
}

func TestChannelDisconnectIsIdempotent(t *testing.T) {
	ch, _ := pipeChannel(t, 0)
	require.NoError(t, ch.Disconnect())
	require.NoError(t, ch.Disconnect())

	msg, err := ch.Receive()
	require.NoError(t, err)
	require.Nil(t, msg)
	require.ErrorIs(t, ch.Send(common.NewResultResponse(0, nil)), net.ErrClosed)
}

func TestReadFrameReusesBuffer(t *testing.T) {
	var stream bytes.Buffer
	for _, payload := range []string{"first", "second", ""} {
		header := make([]byte, frameHeaderSize)
		binary.BigEndian.PutUint32(header, uint32(len(payload)))
		stream.Write(header)
		stream.WriteString(payload)
	}

	buf := make([]byte, 0, 64)
	data, buf, err := readFrame(&stream, buf, 0)
	require.NoError(t, err)
	require.Equal(t, "first", string(data))

	data, buf, err = readFrame(&stream, buf, 0)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))
	require.Equal(t, 64, cap(buf))

	data, _, err = readFrame(&stream, buf, 0)
	require.NoError(t, err)
	require.Empty(t, data)
}
