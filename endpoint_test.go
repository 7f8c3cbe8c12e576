package rpmsg

import "testing"

func TestEndpointTableDynamicAllocationStartsAfterReserved(t *testing.T) {
	et := newEndpointTable()
	ep, err := et.create(nil, nil, nil, AddrAny)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ep.Addr < ReservedAddresses {
		t.Errorf("dynamic address %d below reserved boundary %d", ep.Addr, ReservedAddresses)
	}
}

func TestEndpointTableExplicitReservedAddressAllowed(t *testing.T) {
	et := newEndpointTable()
	ep, err := et.create(nil, nil, nil, NameServiceAddr)
	if err != nil {
		t.Fatalf("create at reserved address: %v", err)
	}
	if ep.Addr != NameServiceAddr {
		t.Errorf("addr = %d, want %d", ep.Addr, NameServiceAddr)
	}
}

func TestEndpointTableAddressInUse(t *testing.T) {
	et := newEndpointTable()
	if _, err := et.create(nil, nil, nil, 100); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := et.create(nil, nil, nil, 100); err != ErrAddressInUse {
		t.Errorf("second create error = %v, want %v", err, ErrAddressInUse)
	}
}

func TestEndpointTableLowestFreeReusesHoles(t *testing.T) {
	et := newEndpointTable()
	first, err := et.create(nil, nil, nil, AddrAny)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := et.create(nil, nil, nil, AddrAny)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.Addr != first.Addr+1 {
		t.Fatalf("second addr = %d, want %d", second.Addr, first.Addr+1)
	}

	et.destroy(first)
	third, err := et.create(nil, nil, nil, AddrAny)
	if err != nil {
		t.Fatalf("create third: %v", err)
	}
	if third.Addr != first.Addr {
		t.Errorf("third addr = %d, want reused %d", third.Addr, first.Addr)
	}
}

func TestEndpointTableDestroyIsIdempotent(t *testing.T) {
	et := newEndpointTable()
	ep, err := et.create(nil, nil, nil, 200)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	et.destroy(ep)
	et.destroy(ep) // must not panic or double-free another entry

	if _, ok := et.lookup(200); ok {
		t.Error("lookup succeeded after destroy")
	}

	reuse, err := et.create(nil, nil, nil, 200)
	if err != nil {
		t.Fatalf("recreate after destroy: %v", err)
	}
	if reuse.Addr != 200 {
		t.Errorf("reuse addr = %d, want 200", reuse.Addr)
	}
}

func TestEndpointTableLookupMiss(t *testing.T) {
	et := newEndpointTable()
	if _, ok := et.lookup(9999); ok {
		t.Error("lookup succeeded for address never created")
	}
}
