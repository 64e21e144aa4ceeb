package main

import (
	"flag"
	"fmt"
)

func infoCommand(args []string) (err error) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	card := cardFlag(fs)
	fs.Parse(args)

	d, err := openCard(*card)
	if err != nil {
		return err
	}
	defer closeDevice(d, &err)

	name, _ := d.ID.Name()
	fmt.Printf("Card:            %d (%s)\n", *card, name)
	fmt.Printf("Vendor ID:       %#04x\n", d.ID.Vendor)
	fmt.Printf("Device ID:       %#04x\n", d.ID.Device)
	fmt.Printf("Subsystem ID:    %#04x\n", d.ID.Subsystem)
	fmt.Printf("VSEC Offset:     %#03x\n", d.VSEC.Offset)
	fmt.Printf("VSEC Revision:   %d\n", d.VSEC.Revision)
	fmt.Printf("VSEC Length:     %#03x\n", d.VSEC.Length)

	l := d.Layout
	fmt.Printf("Layout:          %s\n", l.Name)
	fmt.Printf("Addr Register:   %#03x\n", l.Addr)
	fmt.Printf("Size Register:   %#03x\n", l.Size)
	fmt.Printf("Cntl Register:   %#03x\n", l.Cntl)
	fmt.Printf("Data Register:   %#03x\n", l.Data)

	c, err := d.Flash.Control()
	if err != nil {
		return fmt.Errorf("read control register: %w", err)
	}
	fmt.Printf("Control:         %v\n", c)
	return nil
}
