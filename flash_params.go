package capiflash

import "time"

// Timeouts bounds each wait of the flash controller. Zero fields fall back to
// DefaultTimeouts.
type Timeouts struct {
	Ready   time.Duration // controller ready after reset
	Erase   time.Duration // erase complete, program data accepted
	Program time.Duration // program operation done
	Port    time.Duration // data port idle, per word

	// ReadPolls bounds the control register polls before each data read
	// while verifying. It is a poll count, not a duration.
	ReadPolls int
}

// DefaultTimeouts are the bounds used by the capi-utils flash tool.
var DefaultTimeouts = Timeouts{
	Ready:     120 * time.Second,
	Erase:     240 * time.Second,
	Program:   120 * time.Second,
	Port:      30 * time.Second,
	ReadPolls: 100,
}

// defaultProgressInterval is the cadence of "still waiting" events.
const defaultProgressInterval = 5 * time.Second

// duration returns the time bound of k. ReadPacingTimeout is bounded by
// readPolls and has none.
func (t Timeouts) duration(k TimeoutKind) time.Duration {
	var d, def time.Duration
	switch k {
	case ReadyTimeout:
		d, def = t.Ready, DefaultTimeouts.Ready
	case EraseTimeout:
		d, def = t.Erase, DefaultTimeouts.Erase
	case ProgramTimeout:
		d, def = t.Program, DefaultTimeouts.Program
	case PortTimeout:
		d, def = t.Port, DefaultTimeouts.Port
	}
	if d > 0 {
		return d
	}
	return def
}

func (t Timeouts) readPolls() int {
	if t.ReadPolls > 0 {
		return t.ReadPolls
	}
	return DefaultTimeouts.ReadPolls
}
