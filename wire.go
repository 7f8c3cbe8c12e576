package rpmsg

import (
	"encoding/binary"
	"errors"
)

// AddrAny is the sentinel "unbound" address. It must never appear in src or
// dst of a datagram actually placed on the wire.
const AddrAny uint32 = 0xFFFFFFFF

// ReservedAddresses is the size of the low address range set aside for
// well-known services; the dynamic allocator never hands out an address
// below this bound.
const ReservedAddresses uint32 = 1024

// NameServiceAddr is the well-known address of the name-service endpoint.
// The value is part of the wire contract with the remote processor; 53 is
// inherited from the reference rpmsg name-service implementation.
const NameServiceAddr uint32 = 53

// datagramHeaderSize is the fixed 16-byte on-wire header size (§3).
const datagramHeaderSize = 16

// DatagramHeader is the packed, little-endian, 16-byte header prefixing
// every datagram placed in a buffer.
type DatagramHeader struct {
	Len      uint16
	Flags    uint16
	Src      uint32
	Dst      uint32
	Reserved uint32
}

// encodeDatagramHeader writes fh into the first 16 bytes of dst.
func encodeDatagramHeader(dst []byte, fh DatagramHeader) error {
	if len(dst) < datagramHeaderSize {
		return errors.New("rpmsg: buffer too small for datagram header")
	}
	binary.LittleEndian.PutUint16(dst[0:2], fh.Len)
	binary.LittleEndian.PutUint16(dst[2:4], fh.Flags)
	binary.LittleEndian.PutUint32(dst[4:8], fh.Src)
	binary.LittleEndian.PutUint32(dst[8:12], fh.Dst)
	binary.LittleEndian.PutUint32(dst[12:16], fh.Reserved)
	return nil
}

// decodeDatagramHeader parses the first 16 bytes of b.
func decodeDatagramHeader(b []byte) (DatagramHeader, error) {
	if len(b) < datagramHeaderSize {
		return DatagramHeader{}, errors.New("rpmsg: datagram header too short")
	}
	var fh DatagramHeader
	fh.Len = binary.LittleEndian.Uint16(b[0:2])
	fh.Flags = binary.LittleEndian.Uint16(b[2:4])
	fh.Src = binary.LittleEndian.Uint32(b[4:8])
	fh.Dst = binary.LittleEndian.Uint32(b[8:12])
	fh.Reserved = binary.LittleEndian.Uint32(b[12:16])
	return fh, nil
}

// nameServiceNameSize is the fixed NUL-padded name field width of the
// name-service wire message (§4.7, §6).
const nameServiceNameSize = 32

// nsFlagDestroy marks a name-service message as a DESTROY announcement;
// its absence means CREATE.
const nsFlagDestroy uint32 = 0x1

// nameServiceMsg is the packed { name[32], addr: u32, flags: u32 } message
// exchanged with the remote name service.
type nameServiceMsg struct {
	Name  [nameServiceNameSize]byte
	Addr  uint32
	Flags uint32
}

const nameServiceMsgSize = nameServiceNameSize + 4 + 4

func encodeNameServiceMsg(m nameServiceMsg) []byte {
	out := make([]byte, nameServiceMsgSize)
	copy(out[0:nameServiceNameSize], m.Name[:])
	binary.LittleEndian.PutUint32(out[nameServiceNameSize:nameServiceNameSize+4], m.Addr)
	binary.LittleEndian.PutUint32(out[nameServiceNameSize+4:nameServiceNameSize+8], m.Flags)
	return out
}

func decodeNameServiceMsg(b []byte) (nameServiceMsg, error) {
	var m nameServiceMsg
	if len(b) != nameServiceMsgSize {
		return m, errors.New("rpmsg: malformed name-service message")
	}
	copy(m.Name[:], b[0:nameServiceNameSize])
	m.Addr = binary.LittleEndian.Uint32(b[nameServiceNameSize : nameServiceNameSize+4])
	m.Flags = binary.LittleEndian.Uint32(b[nameServiceNameSize+4 : nameServiceNameSize+8])
	return m, nil
}

// nameFromBytes truncates an over-length or mis-terminated name to 31 bytes
// and NUL-terminates it; the remote is not trusted to terminate names
// correctly (§4.7).
func nameFromBytes(b [nameServiceNameSize]byte) string {
	n := 0
	for ; n < len(b); n++ {
		if b[n] == 0 {
			break
		}
	}
	if n > nameServiceNameSize-1 {
		n = nameServiceNameSize - 1
	}
	return string(b[:n])
}

func nameToBytes(name string) [nameServiceNameSize]byte {
	var out [nameServiceNameSize]byte
	n := len(name)
	if n > nameServiceNameSize-1 {
		n = nameServiceNameSize - 1
	}
	copy(out[:n], name[:n])
	return out
}
