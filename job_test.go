package capiflash

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestNewJob(t *testing.T) {
	tests := []struct {
		name    string
		addr    uint32
		size    int64
		blockKB int
		want    Job
		wantErr bool
	}{
		{
			name:    "partial block",
			addr:    0x02000000,
			size:    300 * 1024,
			blockKB: 256,
			want:    Job{Start: 0x00800000, Blocks: 1, BlockWords: 0x10000, TotalWords: 0x20000},
		},
		{
			name:    "exact blocks still get one more",
			addr:    0,
			size:    512 * 1024,
			blockKB: 256,
			want:    Job{Start: 0, Blocks: 2, BlockWords: 0x10000, TotalWords: 0x30000},
		},
		{
			name:    "smaller than a block",
			addr:    0x1000,
			size:    4,
			blockKB: 64,
			want:    Job{Start: 0x400, Blocks: 0, BlockWords: 0x4000, TotalWords: 0x4000},
		},
		{
			name:    "empty image",
			size:    0,
			blockKB: 1,
			want:    Job{Blocks: 0, BlockWords: 256, TotalWords: 256},
		},
		{name: "zero block size", size: 4, blockKB: 0, wantErr: true},
		{name: "negative size", size: -1, blockKB: 256, wantErr: true},
		{name: "too large", size: 1 << 40, blockKB: 256, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewJob(tt.addr, tt.size, tt.blockKB)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("NewJob() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func readWords(t *testing.T, r *wordReader, n int) []uint32 {
	t.Helper()
	out := make([]uint32, n)
	for i := range out {
		v, err := r.next()
		if err != nil {
			t.Fatalf("next() word %d error = %v", i, err)
		}
		out[i] = v
	}
	return out
}

func TestWordReaderPadding(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
		want  []uint32
	}{
		{
			name:  "fill after end",
			image: []byte{0x78, 0x56, 0x34, 0x12},
			want:  []uint32{0x12345678, 0xFFFFFFFF, 0xFFFFFFFF},
		},
		{
			name:  "partial last word",
			image: []byte{0x01, 0x00, 0x00, 0x00, 0xAA, 0xBB},
			want:  []uint32{0x00000001, 0xFFFFBBAA, 0xFFFFFFFF},
		},
		{
			name:  "empty",
			image: nil,
			want:  []uint32{FillWord, FillWord},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newWordReader(bytes.NewReader(tt.image))
			got := readWords(t, r, len(tt.want))
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("word %d = 0x%08X, want 0x%08X", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWordReaderRewind(t *testing.T) {
	r := newWordReader(bytes.NewReader([]byte{1, 0, 0, 0, 2, 0, 0, 0}))
	first := readWords(t, r, 3)
	if err := r.rewind(); err != nil {
		t.Fatal(err)
	}
	second := readWords(t, r, 3)
	want := []uint32{1, 2, FillWord}
	for i := range want {
		if first[i] != want[i] || second[i] != want[i] {
			t.Errorf("word %d = 0x%08X then 0x%08X, want 0x%08X", i, first[i], second[i], want[i])
		}
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error)       { return 0, r.err }
func (r failingReader) Seek(int64, int) (int64, error) { return 0, r.err }

func TestWordReaderError(t *testing.T) {
	r := newWordReader(failingReader{io.ErrClosedPipe})
	if _, err := r.next(); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("next() error = %v, want %v", err, io.ErrClosedPipe)
	}
	if err := r.rewind(); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("rewind() error = %v, want %v", err, io.ErrClosedPipe)
	}
}
