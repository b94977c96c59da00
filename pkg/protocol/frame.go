package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// nativeOrder is the byte order used on the wire. The channel is always
// same-host (an in-process pipe or a local socketpair), so there is no
// network byte-order normalization: native endianness is fixed at
// little-endian since every supported build target is little-endian.
var nativeOrder = binary.LittleEndian

// RequestHeader precedes every request payload.
type RequestHeader struct {
	Cmd         Command
	PayloadSize uint64
}

// ResponseHeader precedes every response payload.
type ResponseHeader struct {
	Status      Status
	PayloadSize uint64
}

const headerSize = 4 + 8 // u32 + u64, no padding

// WriteRequestHeader writes a request header in full or returns an error.
func WriteRequestHeader(w io.Writer, h RequestHeader) error {
	var buf [headerSize]byte
	nativeOrder.PutUint32(buf[0:4], uint32(h.Cmd))
	nativeOrder.PutUint64(buf[4:12], h.PayloadSize)
	return writeFull(w, buf[:])
}

// ReadRequestHeader reads a request header in full or returns an error.
func ReadRequestHeader(r io.Reader) (RequestHeader, error) {
	var buf [headerSize]byte
	if err := readFull(r, buf[:]); err != nil {
		return RequestHeader{}, err
	}
	return RequestHeader{
		Cmd:         Command(nativeOrder.Uint32(buf[0:4])),
		PayloadSize: nativeOrder.Uint64(buf[4:12]),
	}, nil
}

// WriteResponseHeader writes a response header in full or returns an error.
func WriteResponseHeader(w io.Writer, h ResponseHeader) error {
	var buf [headerSize]byte
	nativeOrder.PutUint32(buf[0:4], uint32(h.Status))
	nativeOrder.PutUint64(buf[4:12], h.PayloadSize)
	return writeFull(w, buf[:])
}

// ReadResponseHeader reads a response header in full or returns an error.
func ReadResponseHeader(r io.Reader) (ResponseHeader, error) {
	var buf [headerSize]byte
	if err := readFull(r, buf[:]); err != nil {
		return ResponseHeader{}, err
	}
	return ResponseHeader{
		Status:      Status(nativeOrder.Uint32(buf[0:4])),
		PayloadSize: nativeOrder.Uint64(buf[4:12]),
	}, nil
}

// readFull retries short reads until the buffer is full or the connection
// breaks, at which point the error is fatal to the caller.
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err != nil {
		return fmt.Errorf("short read on frame: %w", err)
	}
	return nil
}

// writeFull retries short writes until the buffer is fully flushed or the
// connection breaks.
func writeFull(w io.Writer, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		if err != nil {
			return fmt.Errorf("short write on frame: %w", err)
		}
		total += n
	}
	return nil
}
