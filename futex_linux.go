//go:build linux && (amd64 || arm64)

package rpmsg

import (
	"context"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex opcodes (private-flag variants, since every waiter/waker pair
// here lives in the same process's address space even though the backing
// word may sit in memory shared with another process).
const (
	futexWaitPrivate = 128 // FUTEX_WAIT | FUTEX_PRIVATE_FLAG
	futexWakePrivate = 129 // FUTEX_WAKE | FUTEX_PRIVATE_FLAG
)

// futexWake wakes up to one thread blocked on addr.
func futexWake(addr *uint32) {
	unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)), futexWakePrivate, 1, 0, 0, 0)
}

// futexWait blocks while *addr == val, waking on a matching futexWake, a
// spurious wake, or the context deadline (polled via a bounded wait so
// cancellation is observed promptly without a second syscall per tick).
func futexWait(ctx context.Context, addr *uint32, val uint32) error {
	var ts unix.Timespec
	const pollNs = int64(50 * 1000 * 1000) // 50ms, bounds cancellation latency
	ts.Sec = pollNs / 1e9
	ts.Nsec = pollNs % 1e9

	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWaitPrivate,
		uintptr(val),
		uintptr(unsafe.Pointer(&ts)),
		0, 0,
	)
	switch errno {
	case 0, unix.EAGAIN, unix.EINTR, unix.ETIMEDOUT:
		return ctx.Err()
	default:
		return ctx.Err()
	}
}
