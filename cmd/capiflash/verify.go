package main

import (
	"context"
	"flag"
	"os"

	"github.com/gentam/capiflash"
)

func verifyCommand(ctx context.Context, args []string) (err error) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
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

	rep, err := d.Programmer().Verify(ctx, img, job)
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
