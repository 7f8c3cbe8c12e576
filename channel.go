package rpmsg

import (
	"sync"
	"sync/atomic"
)

// Driver is a client driver's capability record: a name table to match
// channels against, lifecycle hooks, and the receive callback bound to the
// channel's primary endpoint on a match. Match is by exact string equality
// against IDTable; there is no inheritance and no global plugin hooks (§9).
type Driver struct {
	IDTable  []string
	Probe    func(ch *Channel) error
	Remove   func(ch *Channel)
	Callback EndpointFunc
}

func (d *Driver) matches(name string) bool {
	for _, id := range d.IDTable {
		if id == name {
			return true
		}
	}
	return false
}

// Channel is a named, client-visible connection bound to a (src, dst)
// address pair and owning one primary endpoint (§3, §4.4).
type Channel struct {
	Name string
	Src  uint32
	Dst  uint32
	Ept  *Endpoint

	rp     *Transport
	index  uint64
	driver *Driver

	// inflight tracks callbacks currently executing on this channel's
	// endpoint so Destroy can wait for them to return before the caller
	// frees anything the callback might still reference (§7: "all pending
	// callbacks have returned before destroy completes"), mirroring
	// virtio_rpmsg_bus.c's destroy-then-drain channel teardown.
	inflight sync.WaitGroup
}

// registry is the minimal device-model substitute called for in §9: a list
// of registered drivers plus register/unregister and name matching. The
// transport's live channels are kept and iterated by Transport itself
// (Channels), not by the registry.
type registry struct {
	mu      sync.Mutex
	drivers []*Driver
}

func newRegistry() *registry {
	return &registry{}
}

func (r *registry) register(d *Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers = append(r.drivers, d)
}

func (r *registry) unregister(d *Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.drivers {
		if cur == d {
			r.drivers = append(r.drivers[:i], r.drivers[i+1:]...)
			return
		}
	}
}

func (r *registry) match(name string) *Driver {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.drivers {
		if d.matches(name) {
			return d
		}
	}
	return nil
}

// createChannel allocates a channel, assigns it a unique index, attaches it
// to the transport, and matches it against registered drivers by name. On a
// match, the core creates the channel's primary endpoint bound to src
// (allocating if AddrAny) using the driver's callback, writes the effective
// address back into the channel, then invokes the driver's Probe hook
// (§4.4).
func createChannel(rp *Transport, name string, src, dst uint32) (*Channel, error) {
	ch := &Channel{
		Name:  name,
		Src:   src,
		Dst:   dst,
		rp:    rp,
		index: atomic.AddUint64(&rp.channelIndex, 1),
	}
	rp.addChannel(ch)

	drv := rp.registry.match(name)
	if drv == nil {
		return ch, nil
	}

	ep, err := rp.endpoints.create(ch, drv.Callback, nil, src)
	if err != nil {
		rp.removeChannel(ch)
		return nil, err
	}
	ch.Ept = ep
	ch.Src = ep.Addr
	ch.driver = drv

	if drv.Probe != nil {
		if err := drv.Probe(ch); err != nil {
			rp.endpoints.destroy(ep)
			rp.removeChannel(ch)
			return nil, err
		}
	}
	return ch, nil
}

// destroyChannel tears a channel down symmetrically to createChannel: if a
// driver is bound, its endpoint is destroyed and Remove is invoked after
// waiting for in-flight callbacks to return, then the channel is dropped
// from the transport's live list (§4.4).
func destroyChannel(ch *Channel) {
	if ch.driver != nil {
		if ch.Ept != nil {
			ch.rp.endpoints.destroy(ch.Ept)
		}
		ch.inflight.Wait()
		if ch.driver.Remove != nil {
			ch.driver.Remove(ch)
		}
	}
	ch.rp.removeChannel(ch)
}
