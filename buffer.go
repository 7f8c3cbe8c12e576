package rpmsg

import (
	"sync"

	"github.com/eapache/queue"
)

// sendBufferPool implements the "grab a buffer" policy of §4.1: hand out
// never-used send-half slots in order until the half is exhausted, then
// reclaim slots the remote has drained from the send queue. The reclaim
// list is a FIFO so buffers cycle roughly in drain order rather than being
// reused out of order, which keeps debugging traces readable.
type sendBufferPool struct {
	mu        sync.Mutex
	half      uint64
	nextFresh uint64
	reclaim   *queue.Queue
}

func newSendBufferPool(half uint64) *sendBufferPool {
	return &sendBufferPool{half: half, reclaim: queue.New()}
}

// acquire returns a free send-half buffer index, or ok=false if none is
// available (ErrNoBuffer at the call site).
func (p *sendBufferPool) acquire() (idx uint64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nextFresh < p.half {
		idx = p.nextFresh
		p.nextFresh++
		return idx, true
	}
	if p.reclaim.Length() > 0 {
		return p.reclaim.Remove().(uint64), true
	}
	return 0, false
}

// release returns a send-half buffer index to the reclaim list after the
// remote has drained it (observed via the send queue's used ring).
func (p *sendBufferPool) release(idx uint64) {
	p.mu.Lock()
	p.reclaim.Add(idx)
	p.mu.Unlock()
}
