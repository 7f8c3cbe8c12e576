package rpmsg

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// Transport owns the paired queues, the shared-memory segment, the
// endpoint table, the name-service endpoint, the driver registry, and the
// list of live channels for one connection to a remote processor (§3, §4.8).
// Its lifetime brackets every channel it owns: on Detach every channel is
// destroyed first.
type Transport struct {
	seg   *Segment
	recvQ *Queue
	sendQ *Queue

	endpoints *endpointTable
	registry  *registry
	pool      *sendBufferPool

	nsChannel *Channel

	chMu         sync.Mutex
	channels     []*Channel
	channelIndex uint64

	log *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
	closer func() error
}

// Attach brings a Transport up against a Platform: it reads the buffer
// region, count, size, and simulated base, splits the region into receive
// and send halves, pre-posts N/2 receive buffers, creates the name-service
// endpoint, starts the single-threaded receive dispatch context, applies any
// pre-populated channel list, and announces readiness to the remote name
// service (§4.8).
func Attach(p Platform, logger *log.Logger) (*Transport, error) {
	if logger == nil {
		logger = log.Default()
	}

	seg, err := NewSegment(p.Region(), p.BufferSize(), p.BufferCount(), p.SimBase())
	if err != nil {
		return nil, err
	}

	recvKick := NewDoorbell(seg.doorbellWord(0))
	recvUsed := NewDoorbell(seg.doorbellWord(1))
	sendKick := NewDoorbell(seg.doorbellWord(2))
	sendUsed := NewDoorbell(seg.doorbellWord(3))

	ctx, cancel := context.WithCancel(context.Background())

	t := &Transport{
		seg:       seg,
		recvQ:     NewQueue("recv", recvKick, recvUsed),
		sendQ:     NewQueue("send", sendKick, sendUsed),
		endpoints: newEndpointTable(),
		registry:  newRegistry(),
		pool:      newSendBufferPool(seg.HalfCount()),
		log:       logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	t.nsChannel = &Channel{Name: "rpmsg_ns", Src: NameServiceAddr, Dst: AddrAny, rp: t}
	nsEp, err := t.endpoints.create(t.nsChannel, t.nameServiceCallback, nil, NameServiceAddr)
	if err != nil {
		cancel()
		return nil, err
	}
	t.nsChannel.Ept = nsEp

	for i := uint64(0); i < seg.HalfCount(); i++ {
		if err := t.recvQ.Post(seg.RecvBufferOffset(i)); err != nil {
			cancel()
			return nil, ErrQueueFault
		}
	}

	t.wg.Add(1)
	go t.receiveDispatchLoop()

	for _, cs := range p.PrepopulatedChannels() {
		if _, err := createChannel(t, cs.Name, cs.Src, cs.Dst); err != nil {
			t.log.Printf("rpmsg: pre-populated channel %q: %v", cs.Name, err)
		}
	}

	t.announceUp()

	return t, nil
}

// AttachMmap is a convenience wrapper around Attach for platforms backed by
// a real memory-mapped segment file; it arranges for the segment to be
// unmapped when the transport is later detached.
func AttachMmap(p *YAMLPlatform, logger *log.Logger) (*Transport, error) {
	t, err := Attach(p, logger)
	if err != nil {
		return nil, err
	}
	t.closer = p.Close
	return t, nil
}

// announceUp emits a small, empty-name CREATE-shaped name-service message so
// the remote processor knows the bus is up and may (re)publish its own
// channels, per §4.8. Best-effort: a NoBuffer failure here is logged, not
// fatal, since bring-up always has a full complement of free send buffers.
func (t *Transport) announceUp() {
	msg := encodeNameServiceMsg(nameServiceMsg{})
	if err := t.SendOffChannel(t.nsChannel, NameServiceAddr, NameServiceAddr, msg); err != nil {
		t.log.Printf("rpmsg: name-service up announcement: %v", err)
	}
}

// PublishChannel announces a locally-created channel to the remote name
// service, mirroring rpmsg_ns_publish in the original bus implementation.
func (t *Transport) PublishChannel(ch *Channel) error {
	msg := encodeNameServiceMsg(nameServiceMsg{Name: nameToBytes(ch.Name), Addr: ch.Src})
	return t.SendOffChannel(t.nsChannel, NameServiceAddr, NameServiceAddr, msg)
}

// CreateChannel creates a channel from the host side: either a fixed
// bring-up entry or a client-driven open. See createChannel for the
// matching/probe semantics (§4.4).
func (t *Transport) CreateChannel(name string, src, dst uint32) (*Channel, error) {
	return createChannel(t, name, src, dst)
}

// DestroyChannel tears a channel down: endpoint destroyed, driver's Remove
// invoked, channel dropped from the live list (§4.4).
func (t *Transport) DestroyChannel(ch *Channel) {
	destroyChannel(ch)
}

// Channels returns a snapshot of the transport's live channels.
func (t *Transport) Channels() []*Channel {
	t.chMu.Lock()
	defer t.chMu.Unlock()
	out := make([]*Channel, len(t.channels))
	copy(out, t.channels)
	return out
}

func (t *Transport) addChannel(ch *Channel) {
	t.chMu.Lock()
	t.channels = append(t.channels, ch)
	t.chMu.Unlock()
}

func (t *Transport) removeChannel(ch *Channel) {
	t.chMu.Lock()
	defer t.chMu.Unlock()
	for i, c := range t.channels {
		if c == ch {
			t.channels = append(t.channels[:i], t.channels[i+1:]...)
			return
		}
	}
}

// RegisterDriver adds d to the driver registry and immediately matches it
// against any already-live channel lacking a bound driver (so registration
// order relative to channel creation doesn't matter, as in the original
// bus's bidirectional match-on-register-or-create behavior).
func (t *Transport) RegisterDriver(d *Driver) error {
	t.registry.register(d)

	t.chMu.Lock()
	var candidates []*Channel
	for _, c := range t.channels {
		if c.driver == nil && d.matches(c.Name) {
			candidates = append(candidates, c)
		}
	}
	t.chMu.Unlock()

	for _, c := range candidates {
		ep, err := t.endpoints.create(c, d.Callback, nil, c.Src)
		if err != nil {
			t.log.Printf("rpmsg: late driver match for %q: %v", c.Name, err)
			continue
		}
		c.Ept = ep
		c.Src = ep.Addr
		c.driver = d
		if d.Probe != nil {
			if err := d.Probe(c); err != nil {
				t.log.Printf("rpmsg: probe failed for %q: %v", c.Name, err)
				t.endpoints.destroy(ep)
				c.driver = nil
				c.Ept = nil
			}
		}
	}
	return nil
}

// UnregisterDriver removes d from the registry. Channels it already bound
// remain bound until explicitly destroyed.
func (t *Transport) UnregisterDriver(d *Driver) {
	t.registry.unregister(d)
}

// CreateEndpoint creates an ancillary endpoint not tied to a channel's
// primary binding, for clients that need a sub-protocol address (§4.4).
func (t *Transport) CreateEndpoint(ch *Channel, cb EndpointFunc, priv any, addr uint32) (*Endpoint, error) {
	return t.endpoints.create(ch, cb, priv, addr)
}

// DestroyEndpoint removes ep from the endpoint table. Idempotent.
func (t *Transport) DestroyEndpoint(ep *Endpoint) {
	t.endpoints.destroy(ep)
}

// SendOffChannel validates and transmits a datagram with an explicit
// (src, dst) pair, independent of the channel's own bound addresses (§4.5).
func (t *Transport) SendOffChannel(ch *Channel, src, dst uint32, payload []byte) error {
	if t.closed.Load() {
		return ErrTransportClosed
	}
	if src == AddrAny || dst == AddrAny {
		return ErrInvalidAddress
	}
	if uint64(len(payload))+datagramHeaderSize > t.seg.BufSize {
		return ErrTooLarge
	}

	idx, ok := t.pool.acquire()
	if !ok {
		t.drainSendCompletions()
		idx, ok = t.pool.acquire()
		if !ok {
			return ErrNoBuffer
		}
	}

	off := t.seg.SendBufferOffset(idx)
	buf := t.seg.BufferAt(off)
	hdr := DatagramHeader{Len: uint16(len(payload)), Src: src, Dst: dst}
	if err := encodeDatagramHeader(buf, hdr); err != nil {
		t.pool.release(idx)
		return err
	}
	copy(buf[datagramHeaderSize:], payload)

	if err := t.sendQ.Post(off); err != nil {
		t.pool.release(idx)
		return ErrQueueFault
	}
	return nil
}

// Send transmits payload using the channel's own (src, dst) pair.
func (t *Transport) Send(ch *Channel, payload []byte) error {
	return t.SendOffChannel(ch, ch.Src, ch.Dst, payload)
}

// SendTo transmits payload using the channel's source address but an
// explicit destination.
func (t *Transport) SendTo(ch *Channel, payload []byte, dst uint32) error {
	return t.SendOffChannel(ch, ch.Src, dst, payload)
}

// drainSendCompletions moves every currently-completed send buffer back
// into the free pool. The send queue's used-notification callback is
// suppressed after setup (§4.2); reclaim here is the polling fallback §4.1
// calls for.
func (t *Transport) drainSendCompletions() {
	for {
		off, ok := t.sendQ.TakeUsed()
		if !ok {
			return
		}
		t.pool.release(t.seg.SendBufferIndex(off))
	}
}

// receiveDispatchLoop is the single soft-interrupt-like dispatch context
// for this transport: it blocks on the receive queue's used-notification
// doorbell and serializes callback invocation for every delivered datagram
// (§4.6, §5).
func (t *Transport) receiveDispatchLoop() {
	defer t.wg.Done()

	lastSeq := t.recvQ.UsedSeq()
	for {
		// Drain before waiting: anything completed before lastSeq was read
		// is already in the used ring and would not ring the doorbell again.
		for {
			off, ok := t.recvQ.TakeUsed()
			if !ok {
				break
			}
			t.handleReceivedBuffer(off)
		}

		seq, err := t.recvQ.WaitUsed(t.ctx, lastSeq)
		if t.ctx.Err() != nil {
			return
		}
		if err != nil {
			// Spurious wake or benign platform-level interruption;
			// re-check the used ring regardless (§4.6 step 1).
		}
		lastSeq = seq
	}
}

// handleReceivedBuffer implements §4.6 steps 2-4: look up the destination
// endpoint, invoke its callback with a private copy of the payload outside
// any lock, then re-post the buffer.
func (t *Transport) handleReceivedBuffer(off uint64) {
	buf := t.seg.BufferAt(off)
	hdr, err := decodeDatagramHeader(buf)
	if err != nil {
		t.log.Printf("rpmsg: malformed datagram header: %v", err)
		t.repost(off)
		return
	}
	if uint64(hdr.Len) > t.seg.BufSize-datagramHeaderSize {
		t.log.Printf("rpmsg: datagram length %d exceeds buffer capacity", hdr.Len)
		t.repost(off)
		return
	}

	payload := append([]byte(nil), buf[datagramHeaderSize:datagramHeaderSize+uint64(hdr.Len)]...)

	ep, found := t.endpoints.lookup(hdr.Dst)
	if !found {
		t.log.Printf("rpmsg: no recipient for dst=%d src=%d len=%d", hdr.Dst, hdr.Src, hdr.Len)
		t.repost(off)
		return
	}

	ch := ep.Channel
	if ch != nil {
		ch.inflight.Add(1)
	}
	func() {
		if ch != nil {
			defer ch.inflight.Done()
		}
		ep.Callback(ch, payload, ep.Priv, hdr.Src)
	}()

	t.repost(off)
}

func (t *Transport) repost(off uint64) {
	if err := t.recvQ.Post(off); err != nil {
		t.log.Printf("rpmsg: failed to repost receive buffer: %v", err)
	}
}

// nameServiceCallback handles {name, addr, flags} announcements from the
// remote processor (§4.7).
func (t *Transport) nameServiceCallback(ch *Channel, data []byte, priv any, src uint32) {
	if len(data) != nameServiceMsgSize {
		t.log.Printf("rpmsg: malformed ns msg: length %d", len(data))
		return
	}
	msg, err := decodeNameServiceMsg(data)
	if err != nil {
		t.log.Printf("rpmsg: malformed ns msg: %v", err)
		return
	}
	name := nameFromBytes(msg.Name)
	if name == "" {
		// Our own liveness announcement, or the remote's; nothing to do.
		return
	}

	if msg.Flags&nsFlagDestroy != 0 {
		if err := t.destroyChannelByName(name, msg.Addr); err != nil {
			t.log.Printf("rpmsg: ns destroy %q addr=%d: %v", name, msg.Addr, err)
		}
		return
	}

	if _, err := createChannel(t, name, AddrAny, msg.Addr); err != nil {
		t.log.Printf("rpmsg: ns create %q addr=%d: %v", name, msg.Addr, err)
	}
}

func (t *Transport) destroyChannelByName(name string, addr uint32) error {
	t.chMu.Lock()
	var target *Channel
	for _, c := range t.channels {
		if c.Name == name && c.Dst == addr {
			target = c
			break
		}
	}
	t.chMu.Unlock()

	if target == nil {
		return ErrChannelNotFound
	}
	destroyChannel(target)
	return nil
}

// Detach tears the transport down: every live channel is destroyed (driver
// Remove invoked, endpoint freed), the receive dispatch context is stopped,
// the queues are closed, the name-service endpoint is removed, and the
// backing segment (if any) is released (§4.8, §7).
func (t *Transport) Detach() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	for _, ch := range t.Channels() {
		destroyChannel(ch)
	}

	t.cancel()
	t.recvQ.Close()
	t.sendQ.Close()
	t.wg.Wait()

	t.endpoints.destroy(t.nsChannel.Ept)

	if t.closer != nil {
		return t.closer()
	}
	return nil
}
