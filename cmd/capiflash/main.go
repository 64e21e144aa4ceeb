package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gentam/capiflash"
	"github.com/golang/glog"
)

var sysfsRoot = flag.String("sysfs", capiflash.DefaultSysfsRoot, "sysfs directory listing the CAPI cards")

func fatalUsage(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
	capiflash [-sysfs dir] [-v level] <command> [arguments]

Commands:
	write	 erase, program and verify a flash image
	verify	 compare flash with an image
	read	 read flash memory
	info	 show card and flash controller registers
`)
	os.Exit(2)
}

func main() {
	// Log to stderr unless -logtostderr=false is given.
	flag.Set("logtostderr", "true")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "write":
		err = writeCommand(ctx, args)
	case "verify":
		err = verifyCommand(ctx, args)
	case "read":
		err = readCommand(ctx, args)
	case "info":
		err = infoCommand(args)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %q\n", cmd)
		usage()
	}
	stop()
	glog.Flush()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
