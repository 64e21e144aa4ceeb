package capiflash

import "fmt"

// PCI configuration space offsets and fields.
//   - [PCIe-Base|7.5.1 PCI-Compatible Configuration Registers]
//   - [PCIe-Base|7.6.3 PCI Express Extended Capability Header]
//   - [PCIe-VSEC|Vendor-Specific Header]
const (
	pciID        = 0x00
	pciSubsystem = 0x2C
	pciECap      = 0x100
	pciCfgSize   = 0x1000

	ecapVSEC   = 0x000B
	capiVSECID = 0x1280
)

func ecapID(w uint32) uint16     { return uint16(w) }
func ecapNext(w uint32) uint32   { return (w >> 20) & 0xFFF }
func vsecID(w uint32) uint16     { return uint16(w) }
func vsecRev(w uint32) uint8     { return uint8((w >> 16) & 0xF) }
func vsecLength(w uint32) uint16 { return uint16((w >> 20) & 0xFFF) }

const vendorIBM = 0x1014

var knownDevices = map[uint16]string{
	0x0477: "CAPI",
	0x04CF: "CAPI (legacy)",
	0x0601: "CAPI (legacy)",
}

// DeviceID identifies the card.
type DeviceID struct {
	Vendor    uint16
	Device    uint16
	Subsystem uint16
}

// ReadDeviceID reads vendor, device and subsystem ids.
func ReadDeviceID(r *Registers) (DeviceID, error) {
	id, err := r.ReadWord(pciID)
	if err != nil {
		return DeviceID{}, err
	}
	sub, err := r.ReadWord(pciSubsystem)
	if err != nil {
		return DeviceID{}, err
	}
	return DeviceID{
		Vendor:    uint16(id),
		Device:    uint16(id >> 16),
		Subsystem: uint16(sub >> 16),
	}, nil
}

// Name returns a non-empty name for supported cards.
func (id DeviceID) Name() (string, bool) {
	if id.Vendor != vendorIBM {
		return "", false
	}
	name, ok := knownDevices[id.Device]
	return name, ok
}

func (id DeviceID) String() string {
	return fmt.Sprintf("%04X:%04X (subsystem %04X)", id.Vendor, id.Device, id.Subsystem)
}

// VSEC describes the CAPI vendor-specific extended capability.
type VSEC struct {
	Offset   uint32 // config space offset of the capability header
	Revision uint8
	Length   uint16
}

func (v VSEC) String() string {
	return fmt.Sprintf("VSEC @0x%03X rev %d len 0x%03X", v.Offset, v.Revision, v.Length)
}

// FindVSEC walks the extended capability list and returns the first CAPI
// VSEC. A list that loops, points back into the legacy header or runs past
// the end of the configuration space is treated as not containing one.
func FindVSEC(r *Registers) (VSEC, error) {
	seen := make(map[uint32]bool)
	for off := uint32(pciECap); off != 0; {
		if off < pciECap || off >= pciCfgSize || off%wordSize != 0 || seen[off] {
			break
		}
		seen[off] = true

		hdr, err := r.ReadWord(off)
		if err != nil {
			return VSEC{}, fmt.Errorf("read ecap @0x%03X: %w", off, err)
		}
		if ecapID(hdr) == ecapVSEC {
			w, err := r.ReadWord(off + 4)
			if err != nil {
				return VSEC{}, fmt.Errorf("read vsec header @0x%03X: %w", off+4, err)
			}
			if vsecID(w) == capiVSECID {
				return VSEC{Offset: off, Revision: vsecRev(w), Length: vsecLength(w)}, nil
			}
		}
		off = ecapNext(hdr)
	}
	return VSEC{}, ErrCapabilityNotFound
}
