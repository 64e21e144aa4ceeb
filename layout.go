package capiflash

import "fmt"

// Layout holds the config space byte offsets of the four flash controller
// registers.
type Layout struct {
	Name string // PSL VSEC version

	Addr uint32 // flash word address
	Size uint32 // erase block count or read word count - 1
	Cntl uint32 // control/status, see Control
	Data uint32 // program/read data port
}

func (l Layout) String() string {
	return fmt.Sprintf("v%s addr=0x%03X size=0x%03X cntl=0x%03X data=0x%03X",
		l.Name, l.Addr, l.Size, l.Cntl, l.Data)
}

// vsecLengthV012 is the VSEC length of PSL cards that carry the flash
// registers inside the VSEC.
const vsecLengthV012 = 0x80

var (
	// [CAPI-VSEC] version 0.12: offsets relative to the VSEC header.
	layoutV012 = Layout{Name: "0.12", Addr: 0x50, Size: 0x54, Cntl: 0x58, Data: 0x5C}

	// [CAPI-VSEC] version 0.10: fixed offsets for legacy devices.
	layoutV010 = Layout{Name: "0.10", Addr: 0x920, Size: 0x924, Cntl: 0x928, Data: 0x92C}
)

// ResolveLayout selects the register layout for the card from the VSEC
// length alone.
func ResolveLayout(v VSEC) Layout {
	if v.Length != vsecLengthV012 {
		return layoutV010
	}
	l := layoutV012
	l.Addr += v.Offset
	l.Size += v.Offset
	l.Cntl += v.Offset
	l.Data += v.Offset
	return l
}
