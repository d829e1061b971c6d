package transport

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/junsooki/screencap/internal/capture"
)

func testFrame(w, h int, seq uint64) capture.Frame {
	data := make([]byte, w*h*capture.BytesPerPixel)
	for i := range data {
		data[i] = byte(i*31 + int(seq))
	}
	return capture.Frame{Data: data, Width: w, Height: h, Seq: seq}
}

func TestSplitFrameChunks(t *testing.T) {
	cases := []struct {
		name       string
		w, h       int
		wantChunks int
	}{
		{"single_pixel", 1, 1, 1},
		{"exact_payload", ChunkPayload / 4, 1, 1},
		{"one_over", ChunkPayload/4 + 1, 1, 2},
		{"hd", 1280, 720, (1280*720*4 + ChunkPayload - 1) / ChunkPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks, err := SplitFrame(testFrame(tc.w, tc.h, 1))
			if err != nil {
				t.Fatal(err)
			}
			if len(chunks) != tc.wantChunks {
				t.Fatalf("chunks = %d, want %d", len(chunks), tc.wantChunks)
			}
			for i, c := range chunks {
				if len(c) > MaxMessageSize {
					t.Errorf("chunk %d is %d bytes, limit %d", i, len(c), MaxMessageSize)
				}
			}
		})
	}
}

func TestSplitFrameRejects(t *testing.T) {
	if _, err := SplitFrame(capture.EmptyFrame()); err == nil {
		t.Error("empty frame accepted")
	}
	bad := capture.Frame{Data: make([]byte, 3), Width: 1, Height: 1}
	if _, err := SplitFrame(bad); err == nil {
		t.Error("short frame accepted")
	}
}

func TestReassembleShuffled(t *testing.T) {
	want := testFrame(300, 200, 9)
	chunks, err := SplitFrame(want)
	if err != nil {
		t.Fatal(err)
	}
	rand.New(rand.NewSource(1)).Shuffle(len(chunks), func(i, j int) { chunks[i], chunks[j] = chunks[j], chunks[i] })

	r := NewReassembler()
	var got capture.Frame
	for i, c := range chunks {
		f, ok, err := r.Push(c)
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if ok != (i == len(chunks)-1) {
			t.Fatalf("chunk %d: complete = %v", i, ok)
		}
		if ok {
			got = f
		}
	}
	if got.Width != 300 || got.Height != 200 || got.Seq != 9 {
		t.Errorf("frame = %dx%d seq %d, want 300x200 seq 9", got.Width, got.Height, got.Seq)
	}
	if !bytes.Equal(got.Data, want.Data) {
		t.Error("pixel data differs")
	}
}

func TestReassembleDropsStaleAndDuplicates(t *testing.T) {
	r := NewReassembler()
	older, _ := SplitFrame(testFrame(100, 100, 1))
	newer, _ := SplitFrame(testFrame(100, 100, 2))

	// Start frame 1, then frame 2 arrives and abandons it.
	if _, ok, _ := r.Push(older[0]); ok {
		t.Fatal("frame 1 completed early")
	}
	var done int
	for i, c := range newer {
		if _, ok, err := r.Push(c); err != nil {
			t.Fatal(err)
		} else if ok {
			done++
		}
		// Late chunks of frame 1 and duplicates of frame 2 change nothing.
		if i < len(older) {
			if _, ok, err := r.Push(older[i]); ok || err != nil {
				t.Fatalf("stale chunk: ok=%v err=%v", ok, err)
			}
		}
		if _, ok, err := r.Push(c); ok || err != nil {
			t.Fatalf("duplicate chunk: ok=%v err=%v", ok, err)
		}
	}
	if done != 1 {
		t.Errorf("completed %d frames, want 1", done)
	}
}

func TestReassembleSequenceWrap(t *testing.T) {
	r := NewReassembler()
	for _, seq := range []uint64{1<<32 - 1, 1 << 32, 1<<32 + 1} {
		chunks, _ := SplitFrame(testFrame(2, 2, seq))
		_, ok, err := r.Push(chunks[0])
		if err != nil || !ok {
			t.Fatalf("seq %d: ok=%v err=%v", seq, ok, err)
		}
	}
}

func TestReassembleMalformed(t *testing.T) {
	good, _ := SplitFrame(testFrame(2, 2, 1))

	zeroCount := append([]byte{}, good[0]...)
	zeroCount[10], zeroCount[11] = 0, 0

	badIndex := append([]byte{}, good[0]...)
	badIndex[8] = 5

	short := append([]byte{}, good[0][:HeaderSize+3]...)

	cases := map[string][]byte{
		"too_short":  good[0][:5],
		"zero_count": zeroCount,
		"bad_index":  badIndex,
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := NewReassembler().Push(msg); !errors.Is(err, ErrMalformedChunk) {
				t.Errorf("err = %v, want ErrMalformedChunk", err)
			}
		})
	}

	t.Run("size_mismatch", func(t *testing.T) {
		if _, ok, err := NewReassembler().Push(short); err == nil || ok {
			t.Errorf("ok=%v err=%v, want a validation error", ok, err)
		}
	})
}
