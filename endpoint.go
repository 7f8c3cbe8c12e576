package rpmsg

import (
	"sync"
	"sync/atomic"
)

// EndpointFunc is invoked for each datagram delivered to an endpoint. It
// runs on the receive dispatch context (outside any transport lock) and
// must not block indefinitely or the receive queue stalls (§4.6).
type EndpointFunc func(ch *Channel, data []byte, priv any, src uint32)

// Endpoint is a local 32-bit address bound to a receive callback (§3).
type Endpoint struct {
	Addr     uint32
	Callback EndpointFunc
	Priv     any
	Channel  *Channel

	destroyed atomic.Bool
}

// endpointTable is the per-transport sparse address -> Endpoint map. Holds
// are short: insert, lookup, and remove only; callbacks are invoked outside
// the lock (§4.3).
type endpointTable struct {
	mu      sync.Mutex
	entries map[uint32]*Endpoint
}

func newEndpointTable() *endpointTable {
	return &endpointTable{entries: make(map[uint32]*Endpoint)}
}

// create inserts a new endpoint. If addr is AddrAny, the lowest unused
// address >= ReservedAddresses is allocated. An explicit address in the
// reserved range is permitted and succeeds only if currently free.
func (t *endpointTable) create(ch *Channel, cb EndpointFunc, priv any, addr uint32) (*Endpoint, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if addr == AddrAny {
		addr = t.lowestFreeLocked(ReservedAddresses)
	} else if _, exists := t.entries[addr]; exists {
		return nil, ErrAddressInUse
	}

	ep := &Endpoint{Addr: addr, Callback: cb, Priv: priv, Channel: ch}
	t.entries[addr] = ep
	return ep, nil
}

// lowestFreeLocked finds the lowest unused address >= start. Callers must
// hold t.mu.
func (t *endpointTable) lowestFreeLocked(start uint32) uint32 {
	for addr := start; ; addr++ {
		if _, exists := t.entries[addr]; !exists {
			return addr
		}
	}
}

// destroy removes ep from the table. Idempotent: a second call on the same
// handle is a no-op.
func (t *endpointTable) destroy(ep *Endpoint) {
	if ep == nil || !ep.destroyed.CompareAndSwap(false, true) {
		return
	}
	t.mu.Lock()
	delete(t.entries, ep.Addr)
	t.mu.Unlock()
}

// lookup returns the endpoint bound to addr, if any.
func (t *endpointTable) lookup(addr uint32) (*Endpoint, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ep, ok := t.entries[addr]
	return ep, ok
}
