package rpmsg

import "testing"

func TestNewSegmentRejectsOddBufferCount(t *testing.T) {
	mem := make([]byte, segHeaderSize+3*64)
	if _, err := NewSegment(mem, 64, 3, 0); err == nil {
		t.Error("expected error for odd buffer count")
	}
}

func TestNewSegmentRejectsUndersizedBuffer(t *testing.T) {
	mem := make([]byte, segHeaderSize+2*8)
	if _, err := NewSegment(mem, 8, 2, 0); err == nil {
		t.Error("expected error for buffer size below header+1")
	}
}

func TestNewSegmentRejectsUndersizedRegion(t *testing.T) {
	mem := make([]byte, segHeaderSize+2*64-1)
	if _, err := NewSegment(mem, 64, 2, 0); err == nil {
		t.Error("expected error for region too small for layout")
	}
}

func TestSegmentHalvesDoNotOverlap(t *testing.T) {
	const bufSize, bufCount = 64, 4
	mem := make([]byte, segHeaderSize+bufSize*bufCount)
	seg, err := NewSegment(mem, bufSize, bufCount, 0x1000)
	if err != nil {
		t.Fatalf("NewSegment: %v", err)
	}
	if seg.HalfCount() != bufCount/2 {
		t.Fatalf("HalfCount = %d, want %d", seg.HalfCount(), bufCount/2)
	}

	for i := uint64(0); i < seg.HalfCount(); i++ {
		recvOff := seg.RecvBufferOffset(i)
		sendOff := seg.SendBufferOffset(i)
		if recvOff >= seg.sendBase {
			t.Errorf("recv buffer %d offset %d spills into send half (base %d)", i, recvOff, seg.sendBase)
		}
		if sendOff < seg.sendBase {
			t.Errorf("send buffer %d offset %d precedes send half base %d", i, sendOff, seg.sendBase)
		}
		if got := seg.RecvBufferIndex(recvOff); got != i {
			t.Errorf("RecvBufferIndex(%d) = %d, want %d", recvOff, got, i)
		}
		if got := seg.SendBufferIndex(sendOff); got != i {
			t.Errorf("SendBufferIndex(%d) = %d, want %d", sendOff, got, i)
		}
	}
}

func TestSegmentBufferAtLength(t *testing.T) {
	const bufSize, bufCount = 32, 2
	mem := make([]byte, segHeaderSize+bufSize*bufCount)
	seg, err := NewSegment(mem, bufSize, bufCount, 0)
	if err != nil {
		t.Fatalf("NewSegment: %v", err)
	}
	buf := seg.BufferAt(seg.RecvBufferOffset(0))
	if uint64(len(buf)) != bufSize {
		t.Errorf("BufferAt length = %d, want %d", len(buf), bufSize)
	}
}

func TestSegmentDeviceAddr(t *testing.T) {
	mem := make([]byte, segHeaderSize+2*64)
	seg, err := NewSegment(mem, 64, 2, 0x8000_0000)
	if err != nil {
		t.Fatalf("NewSegment: %v", err)
	}
	off := seg.RecvBufferOffset(0)
	if got, want := seg.DeviceAddr(off), uint64(0x8000_0000)+off; got != want {
		t.Errorf("DeviceAddr(%d) = %d, want %d", off, got, want)
	}
}
