package rpmsg

import (
	"errors"
	"fmt"
)

// segHeaderSize reserves the front of the shared region for the four
// doorbell words (recv-kick, recv-used, send-kick, send-used), 8 bytes each
// for alignment. The buffer pool begins immediately after.
const segHeaderSize = 32

// Segment is the contiguous shared-memory region split into a lower
// receive-buffer half and an upper send-buffer half (§3). BufCount must be
// even; BufSize must be at least 17 bytes (16-byte header + 1 payload byte).
type Segment struct {
	Mem      []byte // the backing region, host-addressable
	BufSize  uint64 // S: bytes per buffer, including the 16-byte header
	BufCount uint64 // N: total buffer count across both halves
	SimBase  uint64 // device/descriptor-view base address offset

	recvBase uint64 // offset of the receive (lower) half within Mem
	sendBase uint64 // offset of the send (upper) half within Mem
}

// NewSegment wraps an already-allocated region as a Segment. The caller
// supplies the backing slice (mmap'd shared memory, or a plain Go slice for
// in-process loopback use); NewSegment only computes and validates layout.
func NewSegment(mem []byte, bufSize, bufCount, simBase uint64) (*Segment, error) {
	if bufCount == 0 || bufCount%2 != 0 {
		return nil, errors.New("rpmsg: buffer count must be even and non-zero")
	}
	if bufSize < datagramHeaderSize+1 {
		return nil, fmt.Errorf("rpmsg: buffer size %d below minimum %d", bufSize, datagramHeaderSize+1)
	}
	want := segHeaderSize + bufSize*bufCount
	if uint64(len(mem)) < want {
		return nil, fmt.Errorf("rpmsg: region too small: have %d, need %d", len(mem), want)
	}
	return &Segment{
		Mem:      mem,
		BufSize:  bufSize,
		BufCount: bufCount,
		SimBase:  simBase,
		recvBase: segHeaderSize,
		sendBase: segHeaderSize + (bufCount/2)*bufSize,
	}, nil
}

// HalfCount is the number of buffers in either half (N/2).
func (s *Segment) HalfCount() uint64 {
	return s.BufCount / 2
}

// RecvBufferOffset returns the region offset of receive-half buffer i.
func (s *Segment) RecvBufferOffset(i uint64) uint64 {
	return s.recvBase + i*s.BufSize
}

// SendBufferOffset returns the region offset of send-half buffer i.
func (s *Segment) SendBufferOffset(i uint64) uint64 {
	return s.sendBase + i*s.BufSize
}

// BufferAt returns the byte slice backing the buffer at the given region
// offset.
func (s *Segment) BufferAt(offset uint64) []byte {
	return s.Mem[offset : offset+s.BufSize]
}

// SendBufferIndex recovers the send-half slot index for a previously
// computed SendBufferOffset, so a completion observed as a raw offset can be
// returned to the free-slot pool.
func (s *Segment) SendBufferIndex(offset uint64) uint64 {
	return (offset - s.sendBase) / s.BufSize
}

// RecvBufferIndex recovers the receive-half slot index for a previously
// computed RecvBufferOffset.
func (s *Segment) RecvBufferIndex(offset uint64) uint64 {
	return (offset - s.recvBase) / s.BufSize
}

// DeviceAddr translates a host-region offset into the device/descriptor
// view address by applying the configured simulated base.
func (s *Segment) DeviceAddr(offset uint64) uint64 {
	return s.SimBase + offset
}

// doorbellWord returns a pointer to one of the four fixed doorbell words at
// the front of the segment. idx must be in [0,4).
func (s *Segment) doorbellWord(idx int) *uint32 {
	off := idx * 8
	return bytesToUint32Ptr(s.Mem[off : off+4])
}
