package client

import (
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"sync/atomic"
)

// callResult is the single value delivered to a pending call
type callResult struct {
	value []byte
	err   error
}

// pendingCall is the bookkeeping record of one outstanding call
type pendingCall struct {
	id uint64
	// completion is written at most once (guarded by the LoadAndDelete on the registry), the buffer
	// of one means the writer never blocks even if the caller already gave up
	completion chan callResult
}

// callRegistry tracks in-flight calls by id.
//
// Thread-safety: all methods are safe for concurrent use. Every transition out of the registry goes
// through LoadAndDelete, so each call is completed at most once and each auxiliary resource is
// disconnected at most once, no matter which of resolve/forget/drain/failAll races for it.
type callRegistry struct {
	logger      logger.ILogger
	nextID      atomic.Uint64
	calls       *xsync.MapOf[uint64, *pendingCall]
	auxiliaries *xsync.MapOf[uint64, IAuxiliaryResource]
}

func newCallRegistry(l logger.ILogger) *callRegistry {
	return &callRegistry{
		logger:      l,
		calls:       xsync.NewMapOf[uint64, *pendingCall](),
		auxiliaries: xsync.NewMapOf[uint64, IAuxiliaryResource](),
	}
}

// register allocates the next id (the append position, starting at 0) and stores the call.
// It never blocks.
func (r *callRegistry) register(aux IAuxiliaryResource) *pendingCall {
	id := r.nextID.Add(1) - 1
	call := &pendingCall{
		id:         id,
		completion: make(chan callResult, 1),
	}

	// the resource is stored first so that a resolve always sees it
	if aux != nil {
		r.auxiliaries.Store(id, aux)
	}
	r.calls.Store(id, call)
	return call
}

// resolve completes the call addressed by the response frame.
// Unknown ids are logged and dropped, they are expected after a call was abandoned or the
// client was torn down. It returns whether a call was resolved.
func (r *callRegistry) resolve(msg *common.Message) bool {
	call, ok := r.calls.LoadAndDelete(msg.Seq)
	if !ok {
		r.logger.Warningf("Got response for non-existing id %d", msg.Seq)
		return false
	}

	r.releaseAuxiliary(msg.Seq)

	if failure := common.FailureFromMessage(msg); failure != nil {
		call.completion <- callResult{err: failure}
	} else {
		call.completion <- callResult{value: msg.Value}
	}
	return true
}

// forget removes a call without completing it (caller gave up or the send failed)
func (r *callRegistry) forget(id uint64) {
	r.calls.Delete(id)
	r.releaseAuxiliary(id)
}

// drainAuxiliaries disconnects the auxiliary resource of every pending call.
// The calls themselves stay pending.
func (r *callRegistry) drainAuxiliaries() {
	r.auxiliaries.Range(func(id uint64, _ IAuxiliaryResource) bool {
		r.releaseAuxiliary(id)
		return true
	})
}

// failAll completes every pending call with err and returns how many calls were failed
func (r *callRegistry) failAll(err error) int {
	failed := 0
	r.calls.Range(func(id uint64, _ *pendingCall) bool {
		if call, ok := r.calls.LoadAndDelete(id); ok {
			r.releaseAuxiliary(id)
			call.completion <- callResult{err: err}
			failed++
		}
		return true
	})
	return failed
}

// pending returns the number of calls that are still waiting for a response
func (r *callRegistry) pending() int {
	return r.calls.Size()
}

// releaseAuxiliary disconnects and removes the resource attached to id, if any
func (r *callRegistry) releaseAuxiliary(id uint64) {
	aux, ok := r.auxiliaries.LoadAndDelete(id)
	if !ok {
		return
	}
	if err := aux.Disconnect(); err != nil {
		r.logger.Warningf("Failed to disconnect auxiliary resource %s of call %d: %v", aux.Endpoint(), id, err)
	}
}
