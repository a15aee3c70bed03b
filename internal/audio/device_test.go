package audio

import (
	"errors"
	"testing"
)

type fakeSource struct {
	chunk []int16
	next  int16
	reads int
	fail  int
}

func (f *fakeSource) Read() error {
	f.reads++
	if f.fail > 0 && f.reads == f.fail {
		return errors.New("input overflowed")
	}
	for i := range f.chunk {
		f.chunk[i] = f.next
		f.next++
	}
	return nil
}

func TestReadFramesAssemblesChunks(t *testing.T) {
	chunk := make([]int16, 4)
	src := &fakeSource{chunk: chunk}
	buf := make([]int16, 10)

	n, err := readFrames(src, chunk, buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 10 {
		t.Fatalf("expected 10 frames, got %d", n)
	}
	if src.reads != 3 {
		t.Fatalf("expected 3 chunk reads, got %d", src.reads)
	}
	for i, v := range buf {
		if v != int16(i) {
			t.Fatalf("frame %d: expected %d, got %d", i, i, v)
		}
	}
}

func TestReadFramesStopsOnError(t *testing.T) {
	chunk := make([]int16, 4)
	src := &fakeSource{chunk: chunk, fail: 2}
	buf := make([]int16, 12)

	n, err := readFrames(src, chunk, buf)
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 4 {
		t.Fatalf("expected 4 frames before failure, got %d", n)
	}
}

func TestReadFramesEmptyChunk(t *testing.T) {
	src := &fakeSource{}
	_, err := readFrames(src, nil, make([]int16, 2))
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("expected ErrShortRead, got %v", err)
	}
}
