package main

import (
	"errors"
	"fmt"

	"github.com/gentam/capiflash"
)

// Exit statuses of the capi-utils flash tool, kept for scripts that test them.
const (
	exitReadyTimeout   = 1
	exitEraseTimeout   = 2
	exitMismatch       = 3
	exitProgramTimeout = 4
	exitNoDevice       = 19 // ENODEV
	exitPortTimeout    = 99
	exitConfigWrite    = 100
	exitConfigRead     = 200
)

// mismatchError fails a run whose flash content differs from the image.
type mismatchError struct {
	n int
}

func (e *mismatchError) Error() string {
	return fmt.Sprintf("verify failed: %d words differ", e.n)
}

func exitCode(err error) int {
	var (
		te  *capiflash.TimeoutError
		ioe *capiflash.RegisterIOError
		ude *capiflash.UnknownDeviceError
		me  *mismatchError
	)
	switch {
	case errors.As(err, &me):
		return exitMismatch
	case errors.As(err, &te):
		switch te.Kind {
		case capiflash.EraseTimeout:
			return exitEraseTimeout
		case capiflash.ProgramTimeout:
			return exitProgramTimeout
		case capiflash.PortTimeout:
			return exitPortTimeout
		}
		return exitReadyTimeout
	case errors.As(err, &ioe):
		if ioe.Dir == capiflash.DirWrite {
			return exitConfigWrite
		}
		return exitConfigRead
	case errors.As(err, &ude), errors.Is(err, capiflash.ErrCapabilityNotFound):
		return exitNoDevice
	}
	return 1
}
