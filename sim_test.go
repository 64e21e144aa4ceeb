package capiflash

import (
	"encoding/binary"
	"io"
)

type simMode int

const (
	simIdle simMode = iota
	simProgram
	simRead
)

// simCard is an in-memory CAPI card: a configuration space with a capability
// chain and a flash controller model behind the resolved registers.
type simCard struct {
	cfg    [pciCfgSize]byte
	layout Layout
	flash  map[uint32]uint32 // word address -> value, missing words are erased

	mode     simMode
	addr     uint32
	size     uint32
	progAddr uint32
	written  int
	readAddr uint32
	readSize uint32
	consumed uint32

	readyLag int // control polls after reset before RDY
	eraseLag int // control polls with erase status after a program request
	busyLag  int // control polls with port busy after each data write
	readLag  int // control polls before the remaining count advances
	lagLeft  int
	notReady bool
	noDone   bool

	// corrupt alters programmed words.
	corrupt func(addr, v uint32) uint32

	// short limits the bytes transferred at an offset.
	short map[int64]int
	// fail returns an error for transfers at an offset.
	fail map[int64]error

	cntlWrites []uint32
	dataWrites []uint32
}

// newSimCard returns a card with an AER capability at 0x100 followed by the
// CAPI VSEC at 0x140 of length vsecLen.
func newSimCard(device uint16, vsecLen uint16) *simCard {
	s := &simCard{flash: make(map[uint32]uint32)}
	s.putWord(pciID, uint32(device)<<16|vendorIBM)
	s.putWord(pciSubsystem, 0x04AC<<16|vendorIBM)
	s.putCap(0x100, 0x0001, 0x140)
	s.putCap(0x140, ecapVSEC, 0)
	s.putWord(0x144, uint32(vsecLen)<<20|1<<16|capiVSECID)
	s.layout = ResolveLayout(VSEC{Offset: 0x140, Length: vsecLen})
	return s
}

func (s *simCard) putWord(off uint32, v uint32) {
	binary.LittleEndian.PutUint32(s.cfg[off:], v)
}

func (s *simCard) putCap(off uint32, id uint16, next uint32) {
	s.putWord(off, next<<20|1<<16|uint32(id))
}

func (s *simCard) regs() *Registers {
	return NewRegisters(NewConfigConn(s, "sim"))
}

func (s *simCard) ReadAt(p []byte, off int64) (int, error) {
	if err := s.fail[off]; err != nil {
		return 0, err
	}
	if off < 0 || off+int64(len(p)) > pciCfgSize {
		return 0, io.EOF
	}
	var v uint32
	switch uint32(off) {
	case s.layout.Cntl:
		v = uint32(s.control())
	case s.layout.Data:
		v = s.readData()
	case s.layout.Addr:
		v = s.addr
	case s.layout.Size:
		v = s.size
	default:
		v = binary.LittleEndian.Uint32(s.cfg[off:])
	}
	var b [wordSize]byte
	binary.LittleEndian.PutUint32(b[:], v)
	n := copy(p, b[:])
	if m, ok := s.short[off]; ok {
		n = m
	}
	return n, nil
}

func (s *simCard) WriteAt(p []byte, off int64) (int, error) {
	if err := s.fail[off]; err != nil {
		return 0, err
	}
	if m, ok := s.short[off]; ok {
		return m, nil
	}
	if off < 0 || off+int64(len(p)) > pciCfgSize {
		return 0, io.EOF
	}
	v := binary.LittleEndian.Uint32(p)
	switch uint32(off) {
	case s.layout.Cntl:
		s.cntlWrites = append(s.cntlWrites, v)
		s.setControl(Control(v))
	case s.layout.Data:
		s.dataWrites = append(s.dataWrites, v)
		s.writeData(v)
	case s.layout.Addr:
		s.addr = v
	case s.layout.Size:
		s.size = v
	default:
		copy(s.cfg[off:], p)
	}
	return len(p), nil
}

func (s *simCard) setControl(c Control) {
	switch {
	case c == 0:
		s.mode = simIdle
		s.lagLeft = s.readyLag
	case c&ctlProgReq != 0:
		s.mode = simProgram
		s.progAddr = s.addr
		s.written = 0
		s.lagLeft = s.eraseLag
	case c&ctlReadReq != 0:
		s.mode = simRead
		s.readAddr = s.addr
		s.readSize = s.size
		s.consumed = 0
		s.lagLeft = s.readLag
	}
}

func (s *simCard) control() Control {
	if s.notReady {
		return 0
	}
	switch s.mode {
	case simProgram:
		if s.lagLeft > 0 {
			s.lagLeft--
			return ctlReady | ctlProgReq | ctlEraseStatus
		}
		c := ctlReady | ctlProgReq | ctlProgStatus
		if s.written > 0 && !s.noDone {
			c |= ctlOpDone
		}
		if s.busyLagLeft() {
			c |= ctlPortReady
		}
		return c
	case simRead:
		c := ctlReady | ctlReadReq | ctlReadStatus
		if s.lagLeft > 0 {
			s.lagLeft--
			return c | Control((s.readSize-s.consumed)&ctlRemainMask)
		}
		return c | Control((s.readSize-1-s.consumed)&ctlRemainMask)
	}
	if s.lagLeft > 0 {
		s.lagLeft--
		return 0
	}
	return ctlReady
}

func (s *simCard) busyLagLeft() bool {
	if s.lagLeft < 0 {
		s.lagLeft++
		return true
	}
	return false
}

func (s *simCard) writeData(v uint32) {
	if s.mode != simProgram {
		return
	}
	if s.corrupt != nil {
		v = s.corrupt(s.progAddr, v)
	}
	s.flash[s.progAddr] = v
	s.progAddr++
	s.written++
	// Negative lag counts busy polls.
	s.lagLeft = -s.busyLag
}

func (s *simCard) readData() uint32 {
	if s.mode != simRead {
		return 0
	}
	v, ok := s.flash[s.readAddr+s.consumed]
	if !ok {
		v = FillWord
	}
	s.consumed++
	s.lagLeft = s.readLag
	return v
}
