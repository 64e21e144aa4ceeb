package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/gentam/capiflash"
)

// imageFlags are shared by write and verify.
type imageFlags struct {
	card     *int
	addr     uint64
	blockKB  int
	filename string
	factory  bool
	quiet    bool
}

func newImageFlags(fs *flag.FlagSet) *imageFlags {
	f := &imageFlags{card: cardFlag(fs)}
	fs.Uint64Var(&f.addr, "a", defaultAddress, "flash byte address")
	fs.IntVar(&f.blockKB, "b", 256, "flash block size in KB")
	fs.StringVar(&f.filename, "f", "", "input file")
	fs.BoolVar(&f.factory, "p", false, "program the factory (primary) side at address 0")
	fs.BoolVar(&f.quiet, "q", false, "no progress, report or phase messages")
	return f
}

func (f *imageFlags) check() {
	if f.filename == "" {
		fatalUsage("input file is required")
	}
	if f.factory {
		f.addr = 0
	}
	if f.addr > math.MaxUint32 || f.addr%4 != 0 {
		fatalUsage("invalid flash address 0x%X", f.addr)
	}
}

// open opens the image and sizes the job for it.
func (f *imageFlags) open() (*os.File, capiflash.Job, error) {
	img, err := os.Open(f.filename)
	if err != nil {
		return nil, capiflash.Job{}, err
	}
	st, err := img.Stat()
	if err != nil {
		img.Close()
		return nil, capiflash.Job{}, err
	}
	job, err := capiflash.NewJob(uint32(f.addr), st.Size(), f.blockKB)
	if err != nil {
		img.Close()
		return nil, capiflash.Job{}, err
	}
	if !f.quiet {
		fmt.Fprintf(os.Stderr, "%s: %d bytes -> 0x%08X, %v\n", f.filename, st.Size(), f.addr, job)
	}
	return img, job, nil
}

func writeCommand(ctx context.Context, args []string) (err error) {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	flags := newImageFlags(fs)
	fs.Parse(args)
	flags.check()

	img, job, err := flags.open()
	if err != nil {
		return err
	}
	defer img.Close()

	prog := newProgress(flags.quiet)
	d, err := openCard(*flags.card,
		capiflash.WithLogger(glogLogger{quiet: flags.quiet}),
		capiflash.WithProgressCallback(prog.update),
	)
	if err != nil {
		return err
	}
	defer closeDevice(d, &err)

	rep, err := d.Programmer().Program(ctx, img, job)
	prog.finish()
	if !flags.quiet {
		printReport(os.Stdout, rep)
	}
	if err != nil {
		return err
	}
	if !rep.OK() {
		return &mismatchError{n: rep.Mismatches}
	}
	return nil
}
