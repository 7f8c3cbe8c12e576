package rpmsg

import (
	"context"
	"sync"
)

// Queue is one direction of the paired descriptor ring: an owner posts
// buffer offsets for the peer to process (avail) and later reclaims the
// offsets the peer has finished with (used). It mirrors the
// descriptor/available/used split-ring discipline of a virtqueue, generalized
// here to whole-buffer descriptors rather than arbitrary byte runs (§4.2).
//
// The avail/used FIFOs themselves are ordinary mutex-protected slices; only
// the cross-process wakeup (Doorbell, backed by a futex word inside the
// shared segment) needs to reach outside this process's memory. This avoids
// the full descriptor table of a virtio queue, which the host-driver scope
// of this transport does not need (see DESIGN.md).
type Queue struct {
	name string

	mu     sync.Mutex
	avail  []uint64
	used   []uint64
	closed bool

	kick       *Doorbell // owner -> peer: "new avail descriptors"
	usedNotify *Doorbell // peer -> owner: "new used descriptors"
}

// NewQueue constructs a Queue using the given pair of doorbells.
func NewQueue(name string, kick, usedNotify *Doorbell) *Queue {
	return &Queue{name: name, kick: kick, usedNotify: usedNotify}
}

// Post installs a buffer offset into the avail ring and kicks the peer.
// Returns ErrQueueFault if the queue has been closed.
func (q *Queue) Post(offset uint64) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueFault
	}
	q.avail = append(q.avail, offset)
	q.mu.Unlock()
	q.kick.Ring()
	return nil
}

// TakeUsed non-blockingly dequeues one completed buffer offset. ok is false
// if the used ring is currently empty.
func (q *Queue) TakeUsed() (offset uint64, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.used) == 0 {
		return 0, false
	}
	offset = q.used[0]
	q.used = q.used[1:]
	return offset, true
}

// Kick fires the outbound doorbell without posting anything, to nudge a
// peer that may have missed an earlier signal. Post already kicks on every
// call, so Kick does not coalesce the wakeups of a batch of Posts.
func (q *Queue) Kick() {
	q.kick.Ring()
}

// WaitUsed blocks until the used-notification doorbell fires (a peer has
// completed at least one descriptor), the context is done, or a spurious
// wake occurs (callers should loop calling TakeUsed until it returns false).
func (q *Queue) WaitUsed(ctx context.Context, lastSeq uint32) (uint32, error) {
	return q.usedNotify.Wait(ctx, lastSeq)
}

// UsedSeq returns the current used-notification sequence, for use as the
// first lastSeq argument to WaitUsed.
func (q *Queue) UsedSeq() uint32 {
	return q.usedNotify.Seq()
}

// Close marks the queue closed; further Posts fail and any blocked WaitUsed
// is woken.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.usedNotify.Ring()
	q.kick.Ring()
}

// --- peer-side operations -------------------------------------------------
//
// These are called from the remote processor's side of the channel. In this
// repository the remote is always external (firmware, or a test/loopback
// stand-in); PeerTakeAvail/PeerPutUsed are the only two operations it needs.

// PeerTakeAvail dequeues one buffer offset the owner has posted.
func (q *Queue) PeerTakeAvail() (offset uint64, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.avail) == 0 {
		return 0, false
	}
	offset = q.avail[0]
	q.avail = q.avail[1:]
	return offset, true
}

// PeerPutUsed marks a buffer offset completed and notifies the owner.
func (q *Queue) PeerPutUsed(offset uint64) {
	q.mu.Lock()
	q.used = append(q.used, offset)
	q.mu.Unlock()
	q.usedNotify.Ring()
}
