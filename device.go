package capiflash

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"periph.io/x/host/v3"
	"periph.io/x/host/v3/fs"
)

// DefaultSysfsRoot is where the cxl driver lists CAPI cards.
const DefaultSysfsRoot = "/sys/class/cxl"

// ConfigPath returns the configuration space file of card number card.
func ConfigPath(root string, card int) string {
	return filepath.Join(root, "card"+strconv.Itoa(card), "device", "config")
}

// Device is an identified CAPI card with its flash controller.
type Device struct {
	ID     DeviceID
	VSEC   VSEC
	Layout Layout
	Regs   *Registers
	Flash  *Flash

	closer io.Closer
}

var hostInitialized atomic.Bool

// Open opens the configuration space file at path, normally from ConfigPath,
// and identifies the card.
func Open(path string, opts ...Option) (*Device, error) {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host initialization failed: %w", err)
		}
	}

	f, err := fs.Open(path, os.O_RDWR)
	if err != nil {
		return nil, err
	}
	d, err := NewDevice(f, path, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.closer = f
	return d, nil
}

// NewDevice identifies the card behind cs and resolves its flash registers.
// The caller keeps ownership of cs.
func NewDevice(cs ConfigSpace, name string, opts ...Option) (*Device, error) {
	regs := NewRegisters(NewConfigConn(cs, name))

	id, err := ReadDeviceID(regs)
	if err != nil {
		return nil, err
	}
	if _, ok := id.Name(); !ok {
		return nil, &UnknownDeviceError{Vendor: id.Vendor, Device: id.Device}
	}

	vsec, err := FindVSEC(regs)
	if err != nil {
		return nil, err
	}
	layout := ResolveLayout(vsec)

	return &Device{
		ID:     id,
		VSEC:   vsec,
		Layout: layout,
		Regs:   regs,
		Flash:  NewFlash(regs, layout, opts...),
	}, nil
}

// Programmer returns a Programmer driving the card's flash.
func (d *Device) Programmer() *Programmer { return NewProgrammer(d.Flash) }

func (d *Device) String() string {
	name, _ := d.ID.Name()
	return fmt.Sprintf("%s %s, %s", name, d.ID, d.VSEC)
}

// Close leaves the flash controller reset, if it was used, and closes the
// configuration space file opened by Open.
func (d *Device) Close() error {
	err := d.Flash.Halt()
	if err != nil {
		err = fmt.Errorf("reset flash: %w", err)
	}
	if d.closer != nil {
		err = errors.Join(err, d.closer.Close())
		d.closer = nil
	}
	return err
}
