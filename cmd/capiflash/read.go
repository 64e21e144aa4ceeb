package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/gentam/capiflash"
)

func readCommand(ctx context.Context, args []string) (err error) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	card := cardFlag(fs)
	var (
		addr    uint64
		nread   int
		outFile string
	)
	fs.Uint64Var(&addr, "a", defaultAddress, "flash byte address")
	fs.IntVar(&nread, "n", 256, "number of bytes to read")
	fs.StringVar(&outFile, "o", "", "output file (default: hexdump)")
	fs.Parse(args)

	if addr > math.MaxUint32 || addr%4 != 0 {
		fatalUsage("invalid flash address 0x%X", addr)
	}
	if nread <= 0 || nread > 1<<30 {
		fatalUsage("invalid read size %d", nread)
	}

	// A progress bar only when the data does not go to the terminal.
	prog := newProgress(outFile == "")
	d, err := openCard(*card, capiflash.WithProgressCallback(prog.update))
	if err != nil {
		return err
	}
	defer closeDevice(d, &err)

	words := uint32(nread+3) / 4
	var buf bytes.Buffer
	buf.Grow(int(words) * 4)
	err = d.Programmer().Read(ctx, uint32(addr>>2), words, &buf)
	prog.finish()
	if err != nil {
		return fmt.Errorf("read flash failed: %w", err)
	}
	data := buf.Bytes()[:nread]

	if outFile == "" {
		fmt.Println(hex.Dump(data))
		return nil
	}
	return os.WriteFile(outFile, data, 0644)
}
