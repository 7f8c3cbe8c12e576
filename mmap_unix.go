//go:build unix

package rpmsg

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MmapSegmentFile opens the file at path (creating it if absent), grows it
// to the required size if it is smaller, and memory-maps that many bytes as
// the backing region for a Segment. A larger existing file is mapped without
// being shrunk. This is the real cross-process counterpart to the in-process
// regions used in tests.
func MmapSegmentFile(path string, bufSize, bufCount, simBase uint64) (*Segment, func() error, error) {
	size := int64(segHeaderSize) + int64(bufSize*bufCount)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("rpmsg: open segment file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("rpmsg: stat segment file: %w", err)
	}
	if info.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("rpmsg: resize segment file: %w", err)
		}
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("rpmsg: mmap segment: %w", err)
	}

	seg, err := NewSegment(mem, bufSize, bufCount, simBase)
	if err != nil {
		unix.Munmap(mem)
		f.Close()
		return nil, nil, err
	}

	closer := func() error {
		err1 := unix.Munmap(mem)
		err2 := f.Close()
		if err1 != nil {
			return err1
		}
		return err2
	}
	return seg, closer, nil
}
