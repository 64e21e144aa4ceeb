package capiflash

import (
	"errors"
	"io"
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/conntest"
)

func TestRegistersPlayback(t *testing.T) {
	p := &conntest.Playback{
		Ops: []conntest.IO{
			{W: []byte{0x58, 0x01}, R: []byte{0x00, 0x40, 0x00, 0x80}},
			{W: []byte{0x5C, 0x01, 0x78, 0x56, 0x34, 0x12}},
		},
		D: conn.Half,
	}
	r := NewRegisters(p)

	v, err := r.ReadWord(0x158)
	if err != nil {
		t.Fatalf("ReadWord() error = %v", err)
	}
	if v != 0x80004000 {
		t.Errorf("ReadWord() = 0x%08X, want 0x80004000", v)
	}
	if err := r.WriteWord(0x15C, 0x12345678); err != nil {
		t.Fatalf("WriteWord() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Error(err)
	}
}

func TestRegistersOffsetRange(t *testing.T) {
	r := NewRegisters(&conntest.Playback{D: conn.Half})

	_, err := r.ReadWord(0x10000)
	if !errors.Is(err, ErrOffsetRange) {
		t.Errorf("ReadWord() error = %v, want ErrOffsetRange", err)
	}
	err = r.WriteWord(0x10000, 0)
	if !errors.Is(err, ErrOffsetRange) {
		t.Errorf("WriteWord() error = %v, want ErrOffsetRange", err)
	}
}

func TestRegistersShortTransfer(t *testing.T) {
	tests := []struct {
		name string
		dir  Direction
		n    int
	}{
		{"short read", DirRead, 2},
		{"empty read", DirRead, 0},
		{"short write", DirWrite, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSimCard(0x0477, 0x80)
			s.short = map[int64]int{0x2C: tt.n}
			r := s.regs()

			var err error
			if tt.dir == DirRead {
				_, err = r.ReadWord(0x2C)
			} else {
				err = r.WriteWord(0x2C, 1)
			}

			var ioe *RegisterIOError
			if !errors.As(err, &ioe) {
				t.Fatalf("error = %v, want *RegisterIOError", err)
			}
			if ioe.Offset != 0x2C || ioe.Dir != tt.dir || ioe.N != tt.n {
				t.Errorf("error = %+v, want offset 0x2C dir %v n %d", ioe, tt.dir, tt.n)
			}
		})
	}
}

func TestRegistersIOError(t *testing.T) {
	s := newSimCard(0x0477, 0x80)
	s.fail = map[int64]error{0x00: io.ErrClosedPipe}

	_, err := s.regs().ReadWord(0x00)
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("ReadWord() error = %v, want %v", err, io.ErrClosedPipe)
	}
	var ioe *RegisterIOError
	if !errors.As(err, &ioe) || ioe.Dir != DirRead {
		t.Errorf("ReadWord() error = %v, want read *RegisterIOError", err)
	}
}

func TestConfigConnUnsupported(t *testing.T) {
	c := NewConfigConn(newSimCard(0x0477, 0x80), "sim")
	if c.Duplex() != conn.Half {
		t.Errorf("Duplex() = %v, want %v", c.Duplex(), conn.Half)
	}
	if c.String() != "sim" {
		t.Errorf("String() = %q, want %q", c.String(), "sim")
	}

	tests := []struct {
		name string
		w, r []byte
	}{
		{"no address", []byte{0}, nil},
		{"16-bit read", []byte{0, 0}, make([]byte, 2)},
		{"read and write", []byte{0, 0, 1, 2, 3, 4}, make([]byte, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Tx(tt.w, tt.r); !errors.Is(err, errUnsupportedTransfer) {
				t.Errorf("Tx() error = %v, want errUnsupportedTransfer", err)
			}
		})
	}
}
