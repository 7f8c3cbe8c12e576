package rpmsg

import "errors"

// Error kinds surfaced by the core transport, per the wire protocol's error
// handling design. Recoverable conditions (ErrNoBuffer, ErrAddressInUse) are
// returned without side effects on already-committed state. Receive-side
// anomalies are logged and dropped rather than returned as errors.
var (
	// ErrInvalidAddress is returned when src or dst equals AddrAny on send.
	ErrInvalidAddress = errors.New("rpmsg: src or dst is the any address")

	// ErrTooLarge is returned when payload+header exceeds the buffer size.
	ErrTooLarge = errors.New("rpmsg: payload too large for buffer")

	// ErrNoBuffer is returned when no free send buffer and no used buffer to
	// reclaim are available. Non-fatal; the caller may retry.
	ErrNoBuffer = errors.New("rpmsg: no free send buffer")

	// ErrAddressInUse is returned when an explicit endpoint address is
	// already occupied.
	ErrAddressInUse = errors.New("rpmsg: address already in use")

	// ErrOutOfMemory is returned when allocation of an endpoint or channel
	// fails.
	ErrOutOfMemory = errors.New("rpmsg: out of memory")

	// ErrQueueFault is returned when the underlying queue refuses a buffer
	// post; fatal for the transport in practice.
	ErrQueueFault = errors.New("rpmsg: queue fault")

	// ErrTransportClosed is returned by the send operations (SendOffChannel,
	// Send, SendTo, PublishChannel) when called after Detach.
	ErrTransportClosed = errors.New("rpmsg: transport closed")

	// ErrChannelNotFound is returned when a name-service DESTROY names an
	// unknown (name, addr) pair.
	ErrChannelNotFound = errors.New("rpmsg: channel not found")
)
