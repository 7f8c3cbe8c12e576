package rpmsg

import "testing"

func TestStaticPlatformRegionSizedForLayout(t *testing.T) {
	p := NewStaticPlatform(64, 8, 0x4000, nil)
	want := segHeaderSize + 64*8
	if len(p.Region()) != want {
		t.Errorf("region length = %d, want %d", len(p.Region()), want)
	}
	if p.BufferSize() != 64 || p.BufferCount() != 8 || p.SimBase() != 0x4000 {
		t.Errorf("unexpected platform parameters: %+v", p)
	}
}

func TestStaticPlatformPrepopulatedChannelsPreserved(t *testing.T) {
	specs := []ChannelSpec{
		{Name: "a", Src: 1, Dst: 2},
		{Name: "b", Src: 3, Dst: 4},
	}
	p := NewStaticPlatform(64, 4, 0, specs)
	got := p.PrepopulatedChannels()
	if len(got) != len(specs) {
		t.Fatalf("len = %d, want %d", len(got), len(specs))
	}
	for i, spec := range specs {
		if got[i] != spec {
			t.Errorf("channel %d = %+v, want %+v", i, got[i], spec)
		}
	}
}
