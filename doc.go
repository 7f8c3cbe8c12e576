// Package rpmsg implements a point-to-point, address-multiplexed messaging
// bus between a host processor and a remote processor sharing a region of
// memory.
//
// A Transport exchanges fixed-format datagrams with the remote processor
// through two shared ring-based queues — one carrying host-to-remote
// messages, one carrying remote-to-host messages — using a mailbox-style
// doorbell for wakeups. Clients open named logical Channels, each bound to a
// 32-bit source/destination address pair, and deliver messages to
// per-Endpoint callbacks.
//
// The package is modeled on the Linux rpmsg/virtio_rpmsg_bus subsystem: a
// wire-exact datagram header, a pre-allocated buffer pool split into
// receive and send halves, dynamic endpoint address assignment with a
// reserved low range, and an in-band name-service sub-protocol by which the
// remote side announces and revokes channels.
package rpmsg
