package rpmsg

import (
	"testing"
)

func newTestTransportForChannels(t *testing.T) *Transport {
	t.Helper()
	p := NewStaticPlatform(128, 4, 0x1000, nil)
	tr, err := Attach(p, nil)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { tr.Detach() })
	return tr
}

func TestCreateChannelWithoutDriverHasNoEndpoint(t *testing.T) {
	tr := newTestTransportForChannels(t)
	ch, err := tr.CreateChannel("unmatched", AddrAny, 10)
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if ch.Ept != nil {
		t.Error("expected no endpoint bound without a matching driver")
	}

	found := false
	for _, c := range tr.Channels() {
		if c == ch {
			found = true
		}
	}
	if !found {
		t.Error("channel missing from transport's live list")
	}
}

func TestCreateChannelProbeAndRemoveLifecycle(t *testing.T) {
	tr := newTestTransportForChannels(t)

	var probed, removed bool
	drv := &Driver{
		IDTable: []string{"widget"},
		Probe: func(ch *Channel) error {
			probed = true
			return nil
		},
		Remove: func(ch *Channel) {
			removed = true
		},
		Callback: func(ch *Channel, data []byte, priv any, src uint32) {},
	}
	if err := tr.RegisterDriver(drv); err != nil {
		t.Fatalf("RegisterDriver: %v", err)
	}

	ch, err := tr.CreateChannel("widget", AddrAny, 20)
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if !probed {
		t.Error("expected Probe to run on matching create")
	}
	if ch.Ept == nil {
		t.Fatal("expected an endpoint bound to the matched channel")
	}
	if ch.Src == AddrAny {
		t.Error("expected a concrete dynamic address, not AddrAny")
	}

	tr.DestroyChannel(ch)
	if !removed {
		t.Error("expected Remove to run on destroy")
	}

	for _, c := range tr.Channels() {
		if c == ch {
			t.Error("destroyed channel still present in live list")
		}
	}
}

func TestCreateChannelProbeFailureUnwindsEndpoint(t *testing.T) {
	tr := newTestTransportForChannels(t)

	drv := &Driver{
		IDTable: []string{"broken"},
		Probe: func(ch *Channel) error {
			return ErrOutOfMemory
		},
		Callback: func(ch *Channel, data []byte, priv any, src uint32) {},
	}
	if err := tr.RegisterDriver(drv); err != nil {
		t.Fatalf("RegisterDriver: %v", err)
	}

	if _, err := tr.CreateChannel("broken", AddrAny, 30); err != ErrOutOfMemory {
		t.Fatalf("CreateChannel error = %v, want %v", err, ErrOutOfMemory)
	}
	if len(tr.Channels()) != 0 {
		t.Error("expected failed probe to leave no channel behind")
	}
}

func TestRegisterDriverMatchesExistingChannel(t *testing.T) {
	tr := newTestTransportForChannels(t)

	ch, err := tr.CreateChannel("late", AddrAny, 40)
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if ch.Ept != nil {
		t.Fatal("expected no endpoint before a driver is registered")
	}

	var probed bool
	drv := &Driver{
		IDTable: []string{"late"},
		Probe: func(ch *Channel) error {
			probed = true
			return nil
		},
		Callback: func(ch *Channel, data []byte, priv any, src uint32) {},
	}
	if err := tr.RegisterDriver(drv); err != nil {
		t.Fatalf("RegisterDriver: %v", err)
	}
	if !probed {
		t.Error("expected late registration to probe the already-live channel")
	}
	if ch.Ept == nil {
		t.Error("expected late registration to bind an endpoint")
	}
}

func TestDriverMatchesExactNameOnly(t *testing.T) {
	d := &Driver{IDTable: []string{"exact-name"}}
	if !d.matches("exact-name") {
		t.Error("expected exact match to succeed")
	}
	if d.matches("exact-name-extra") {
		t.Error("expected prefix to not match")
	}
	if d.matches("EXACT-NAME") {
		t.Error("expected matching to be case-sensitive")
	}
}
