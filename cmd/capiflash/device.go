package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gentam/capiflash"
	"github.com/golang/glog"
)

// Flash byte address of the user partition on the capi-utils card images.
const defaultAddress = 0x02000000

func cardFlag(fs *flag.FlagSet) *int {
	return fs.Int("C", 0, "card number")
}

// openCard opens /sys/class/cxl/card<N>/device/config (under -sysfs) and
// identifies the card. Callers must Close the device on every path. Library
// messages go to glog unless opts sets another logger.
func openCard(card int, opts ...capiflash.Option) (*capiflash.Device, error) {
	path := capiflash.ConfigPath(*sysfsRoot, card)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("card %d: %w", card, err)
	}
	glog.V(1).Infof("Opening %s", path)

	opts = append([]capiflash.Option{capiflash.WithLogger(glogLogger{})}, opts...)
	d, err := capiflash.Open(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("card %d: %w", card, err)
	}
	glog.V(1).Infof("Card %d: %v", card, d)
	glog.V(2).Infof("Flash registers: %v", d.Layout)
	return d, nil
}

// closeDevice closes d and keeps the first error.
func closeDevice(d *capiflash.Device, err *error) {
	if cerr := d.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
