package capiflash

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// FillWord is programmed past the end of the image: the value of erased
	// flash.
	FillWord = 0xFFFFFFFF

	// ChunkWords is the read window of the controller. It is fixed by the
	// hardware and unrelated to the erase block size.
	ChunkWords = 0x200

	// MaxBlockKB bounds the block size accepted by NewJob.
	MaxBlockKB = 1 << 14
)

// Job is the sizing of one program operation.
type Job struct {
	Start      uint32 // flash word address
	Blocks     uint32 // erase blocks covered by the image, rounded down
	BlockWords uint32
	TotalWords uint32 // BlockWords * (Blocks + 1)
}

// NewJob sizes a program operation for an image of imageSize bytes at the
// byte address addr using blocks of blockKB kilobytes. One block more than
// the image strictly needs is always programmed, so a partial last block is
// covered and padded with FillWord.
func NewJob(addr uint32, imageSize int64, blockKB int) (Job, error) {
	if blockKB <= 0 || blockKB > MaxBlockKB {
		return Job{}, fmt.Errorf("block size %d KB out of range", blockKB)
	}
	if imageSize < 0 {
		return Job{}, fmt.Errorf("invalid image size %d", imageSize)
	}
	blockBytes := int64(blockKB) * 1024
	blocks := imageSize / blockBytes
	words := uint32(blockBytes / wordSize)
	total := uint64(words) * uint64(blocks+1)
	if total > 1<<30 {
		return Job{}, fmt.Errorf("image of %d bytes too large", imageSize)
	}
	return Job{
		Start:      addr >> 2,
		Blocks:     uint32(blocks),
		BlockWords: words,
		TotalWords: uint32(total),
	}, nil
}

func (j Job) validate() error {
	if j.BlockWords == 0 && j.TotalWords != 0 {
		return fmt.Errorf("job %v: zero block size", j)
	}
	return nil
}

// Bytes returns the number of flash bytes the job writes.
func (j Job) Bytes() int64 { return int64(j.TotalWords) * wordSize }

func (j Job) String() string {
	return fmt.Sprintf("@0x%08X: %d blocks of %d words, %d words",
		j.Start, j.Blocks, j.BlockWords, j.TotalWords)
}

// wordReader reads little-endian words from an image, yielding FillWord once
// the image is exhausted.
type wordReader struct {
	src io.ReadSeeker
	br  *bufio.Reader
	eof bool
	buf [wordSize]byte
}

func newWordReader(src io.ReadSeeker) *wordReader {
	return &wordReader{src: src, br: bufio.NewReaderSize(src, 64*1024)}
}

// next returns the next image word. A trailing partial word is completed
// with 0xFF bytes.
func (r *wordReader) next() (uint32, error) {
	if r.eof {
		return FillWord, nil
	}
	n, err := io.ReadFull(r.br, r.buf[:])
	switch {
	case err == nil:
		return binary.LittleEndian.Uint32(r.buf[:]), nil
	case errors.Is(err, io.EOF):
		r.eof = true
		return FillWord, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		r.eof = true
		for i := n; i < wordSize; i++ {
			r.buf[i] = 0xFF
		}
		return binary.LittleEndian.Uint32(r.buf[:]), nil
	}
	return 0, fmt.Errorf("read image: %w", err)
}

// rewind restarts the image from its first byte.
func (r *wordReader) rewind() error {
	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind image: %w", err)
	}
	r.br.Reset(r.src)
	r.eof = false
	return nil
}
