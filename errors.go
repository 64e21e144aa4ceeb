package capiflash

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCapabilityNotFound is returned when the extended capability list has
	// no CAPI VSEC.
	ErrCapabilityNotFound = errors.New("CAPI VSEC not found")

	// ErrOffsetRange is returned for register offsets outside the 16-bit
	// configuration address space.
	ErrOffsetRange = errors.New("register offset out of range")

	ErrReadyTimeout      = errors.New("flash not ready")
	ErrEraseTimeout      = errors.New("flash erase did not complete")
	ErrProgramTimeout    = errors.New("flash program did not complete")
	ErrPortTimeout       = errors.New("flash port not ready")
	ErrReadPacingTimeout = errors.New("flash read count did not advance")

	errUnsupportedTransfer = errors.New("unsupported register transfer")
)

// Direction of a register transfer.
type Direction int

const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	if d == DirWrite {
		return "write"
	}
	return "read"
}

// RegisterIOError reports a configuration space transfer that did not move
// exactly one 32-bit word.
type RegisterIOError struct {
	Offset uint32
	Dir    Direction
	N      int   // bytes actually transferred
	Err    error // underlying I/O error, may be nil for a short transfer
}

func (e *RegisterIOError) Error() string {
	s := fmt.Sprintf("config %s @0x%03X: transferred %d of 4 bytes", e.Dir, e.Offset, e.N)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *RegisterIOError) Unwrap() error { return e.Err }

// UnknownDeviceError indicates the vendor/device pair is not a CAPI card.
type UnknownDeviceError struct {
	Vendor uint16
	Device uint16
}

func (e *UnknownDeviceError) Error() string {
	return fmt.Sprintf("unknown vendor (0x%04X) or device id (0x%04X)", e.Vendor, e.Device)
}

// TimeoutKind identifies which wait expired.
type TimeoutKind int

const (
	ReadyTimeout TimeoutKind = iota
	EraseTimeout
	ProgramTimeout
	PortTimeout
	ReadPacingTimeout
)

func (k TimeoutKind) String() string {
	switch k {
	case ReadyTimeout:
		return "ready"
	case EraseTimeout:
		return "erase"
	case ProgramTimeout:
		return "program"
	case PortTimeout:
		return "port"
	case ReadPacingTimeout:
		return "read pacing"
	}
	return fmt.Sprintf("TimeoutKind(%d)", int(k))
}

func (k TimeoutKind) sentinel() error {
	switch k {
	case EraseTimeout:
		return ErrEraseTimeout
	case ProgramTimeout:
		return ErrProgramTimeout
	case PortTimeout:
		return ErrPortTimeout
	case ReadPacingTimeout:
		return ErrReadPacingTimeout
	}
	return ErrReadyTimeout
}

// TimeoutError is returned when the control register did not reach the
// expected state in time. It unwraps to the sentinel of its Kind.
type TimeoutError struct {
	Kind  TimeoutKind
	Mask  Control
	Want  Control
	Last  Control       // last control word read
	After time.Duration // wall clock bound, zero for poll bounded waits
	Polls int
}

func (e *TimeoutError) Error() string {
	if e.After == 0 {
		return fmt.Sprintf("%v after %d polls (mask: 0x%08X cond: 0x%08X last: %v)",
			e.Kind.sentinel(), e.Polls, uint32(e.Mask), uint32(e.Want), e.Last)
	}
	return fmt.Sprintf("%v after %v (mask: 0x%08X cond: 0x%08X last: %v)",
		e.Kind.sentinel(), e.After, uint32(e.Mask), uint32(e.Want), e.Last)
}

func (e *TimeoutError) Unwrap() error { return e.Kind.sentinel() }
