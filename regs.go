package capiflash

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/mmr"
)

const wordSize = 4

// ConfigSpace is random access to a PCI configuration space, typically the
// sysfs config file of the card. Registers are always accessed as aligned
// 32-bit little-endian words.
type ConfigSpace interface {
	io.ReaderAt
	io.WriterAt
}

// configConn exposes a ConfigSpace as a half-duplex conn.Conn speaking the mmr
// protocol with 16-bit register addresses:
//   - Write address, Read value
//   - Write address, Write value
type configConn struct {
	cs   ConfigSpace
	name string
}

// NewConfigConn returns a conn.Conn over cs suitable for mmr.Dev16.
func NewConfigConn(cs ConfigSpace, name string) conn.Conn {
	return &configConn{cs: cs, name: name}
}

func (c *configConn) String() string      { return c.name }
func (c *configConn) Duplex() conn.Duplex { return conn.Half }

// Tx performs one positioned 4-byte transfer. Short transfers are not
// retried.
func (c *configConn) Tx(w, r []byte) error {
	if len(w) < 2 {
		return errUnsupportedTransfer
	}
	off := binary.LittleEndian.Uint16(w)
	data := w[2:]

	switch {
	case len(data) == 0 && len(r) == wordSize:
		n, err := c.cs.ReadAt(r, int64(off))
		if n != wordSize {
			return &RegisterIOError{Offset: uint32(off), Dir: DirRead, N: n, Err: err}
		}
		return nil
	case len(data) == wordSize && len(r) == 0:
		n, err := c.cs.WriteAt(data, int64(off))
		if n != wordSize {
			return &RegisterIOError{Offset: uint32(off), Dir: DirWrite, N: n, Err: err}
		}
		return nil
	}
	return fmt.Errorf("%w: %d bytes out, %d bytes in", errUnsupportedTransfer, len(w), len(r))
}

// Registers reads and writes 32-bit words at byte offsets of the
// configuration space.
type Registers struct {
	dev mmr.Dev16
}

// NewRegisters wraps a half-duplex connection, normally from NewConfigConn.
func NewRegisters(c conn.Conn) *Registers {
	return &Registers{dev: mmr.Dev16{Conn: c, Order: binary.LittleEndian}}
}

func (r *Registers) String() string { return r.dev.String() }

func (r *Registers) ReadWord(off uint32) (uint32, error) {
	if off > math.MaxUint16 {
		return 0, &RegisterIOError{Offset: off, Dir: DirRead, Err: ErrOffsetRange}
	}
	v, err := r.dev.ReadUint32(uint16(off))
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (r *Registers) WriteWord(off, v uint32) error {
	if off > math.MaxUint16 {
		return &RegisterIOError{Offset: off, Dir: DirWrite, Err: ErrOffsetRange}
	}
	return r.dev.WriteUint32(uint16(off), v)
}
