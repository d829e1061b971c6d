package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/junsooki/screencap/internal/capture"
)

const (
	// HeaderSize is the length of the chunk header.
	HeaderSize = 12
	// MaxMessageSize keeps every data channel message within what browsers
	// accept without fragmentation support.
	MaxMessageSize = 16 * 1024
	// ChunkPayload is the pixel payload carried by one chunk.
	ChunkPayload = MaxMessageSize - HeaderSize
	maxChunks    = 1<<16 - 1
)

var ErrMalformedChunk = errors.New("malformed frame chunk")

// chunkHeader prefixes every frame chunk, little-endian:
//
//	seq uint32 | width uint16 | height uint16 | index uint16 | count uint16
type chunkHeader struct {
	seq           uint32
	width, height uint16
	index, count  uint16
}

func (h chunkHeader) put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], h.seq)
	binary.LittleEndian.PutUint16(b[4:], h.width)
	binary.LittleEndian.PutUint16(b[6:], h.height)
	binary.LittleEndian.PutUint16(b[8:], h.index)
	binary.LittleEndian.PutUint16(b[10:], h.count)
}

func parseHeader(b []byte) (chunkHeader, error) {
	if len(b) < HeaderSize {
		return chunkHeader{}, fmt.Errorf("%w: %d bytes", ErrMalformedChunk, len(b))
	}
	h := chunkHeader{
		seq:    binary.LittleEndian.Uint32(b[0:]),
		width:  binary.LittleEndian.Uint16(b[4:]),
		height: binary.LittleEndian.Uint16(b[6:]),
		index:  binary.LittleEndian.Uint16(b[8:]),
		count:  binary.LittleEndian.Uint16(b[10:]),
	}
	if h.count == 0 || h.index >= h.count || h.width == 0 || h.height == 0 {
		return chunkHeader{}, fmt.Errorf("%w: seq=%d %dx%d chunk %d/%d", ErrMalformedChunk, h.seq, h.width, h.height, h.index, h.count)
	}
	return h, nil
}

// SplitFrame cuts f into data channel messages.
func SplitFrame(f capture.Frame) ([][]byte, error) {
	if f.Empty() {
		return nil, errors.New("split frame: empty frame")
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("split frame: %w", err)
	}
	if f.Width > capture.MaxDimension || f.Height > capture.MaxDimension {
		return nil, fmt.Errorf("split frame: %dx%d exceeds %d", f.Width, f.Height, capture.MaxDimension)
	}
	count := (len(f.Data) + ChunkPayload - 1) / ChunkPayload
	if count > maxChunks {
		return nil, fmt.Errorf("split frame: %d chunks", count)
	}

	h := chunkHeader{
		seq:    uint32(f.Seq),
		width:  uint16(f.Width),
		height: uint16(f.Height),
		count:  uint16(count),
	}
	out := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		start := i * ChunkPayload
		end := min(start+ChunkPayload, len(f.Data))
		msg := make([]byte, HeaderSize+end-start)
		h.index = uint16(i)
		h.put(msg)
		copy(msg[HeaderSize:], f.Data[start:end])
		out = append(out, msg)
	}
	return out, nil
}

// Reassembler rebuilds frames from chunks that may arrive out of order or
// not at all. Only the newest frame is assembled; chunks of an older
// frame are dropped, and a newer frame abandons an incomplete one.
type Reassembler struct {
	active   bool
	hdr      chunkHeader
	parts    [][]byte
	received int

	haveLast bool
	last     uint32
}

func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// newer reports whether a follows b, allowing for wraparound.
func newer(a, b uint32) bool {
	return int32(a-b) > 0
}

// Push adds one chunk. It returns the frame once all of its chunks arrived.
func (r *Reassembler) Push(msg []byte) (capture.Frame, bool, error) {
	h, err := parseHeader(msg)
	if err != nil {
		return capture.Frame{}, false, err
	}
	if r.haveLast && !newer(h.seq, r.last) {
		return capture.Frame{}, false, nil
	}

	if !r.active || h.seq != r.hdr.seq {
		if r.active && !newer(h.seq, r.hdr.seq) {
			return capture.Frame{}, false, nil
		}
		r.start(h)
	}
	if h.width != r.hdr.width || h.height != r.hdr.height || h.count != r.hdr.count {
		return capture.Frame{}, false, fmt.Errorf("%w: seq %d changed shape mid-frame", ErrMalformedChunk, h.seq)
	}
	if r.parts[h.index] != nil {
		return capture.Frame{}, false, nil
	}
	r.parts[h.index] = append([]byte{}, msg[HeaderSize:]...)
	r.received++
	if r.received < int(r.hdr.count) {
		return capture.Frame{}, false, nil
	}

	f := capture.Frame{
		Width:     int(r.hdr.width),
		Height:    int(r.hdr.height),
		Seq:       uint64(r.hdr.seq),
		Timestamp: time.Now(),
	}
	size := 0
	for _, p := range r.parts {
		size += len(p)
	}
	f.Data = make([]byte, 0, size)
	for _, p := range r.parts {
		f.Data = append(f.Data, p...)
	}
	r.haveLast, r.last = true, r.hdr.seq
	r.active, r.parts = false, nil

	if err := f.Validate(); err != nil {
		return capture.Frame{}, false, fmt.Errorf("reassemble: %w", err)
	}
	return f, true, nil
}

func (r *Reassembler) start(h chunkHeader) {
	r.active = true
	r.hdr = h
	r.parts = make([][]byte, h.count)
	r.received = 0
}
