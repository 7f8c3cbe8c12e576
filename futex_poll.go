//go:build !linux || !(amd64 || arm64)

package rpmsg

import (
	"context"
	"sync/atomic"
	"time"
)

// futexWake is a no-op on platforms without a futex syscall; waiters poll.
func futexWake(addr *uint32) {}

// futexWait polls addr on platforms without a futex syscall. It returns
// promptly once *addr != val or ctx is done.
func futexWait(ctx context.Context, addr *uint32, val uint32) error {
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if atomic.LoadUint32(addr) != val {
				return nil
			}
		}
	}
}
