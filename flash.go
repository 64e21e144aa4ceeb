package capiflash

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Flash drives the on-card flash controller through its four registers.
//
// Flash is not safe for concurrent use, and nothing else may touch the same
// configuration space while it runs: the controller state lives entirely in
// the control register.
type Flash struct {
	regs   *Registers
	layout Layout
	config Config

	touched  bool // control register written at least once
	portBusy int  // polls that found the data port busy
}

// NewFlash returns a controller for the registers described by layout.
func NewFlash(regs *Registers, layout Layout, opts ...Option) *Flash {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Flash{
		regs:   regs,
		layout: layout,
		config: cfg,
	}
}

func (f *Flash) Layout() Layout { return f.layout }

// String implements conn.Resource.
func (f *Flash) String() string {
	return fmt.Sprintf("%s: flash %s", f.regs, f.layout)
}

// Halt implements conn.Resource. It resets the controller if this Flash ever
// wrote the control register, leaving it idle.
func (f *Flash) Halt() error {
	if !f.touched {
		return nil
	}
	return f.Reset()
}

// Control reads the control register.
func (f *Flash) Control() (Control, error) {
	v, err := f.regs.ReadWord(f.layout.Cntl)
	return Control(v), err
}

func (f *Flash) setControl(c Control) error {
	f.touched = true
	return f.regs.WriteWord(f.layout.Cntl, uint32(c))
}

// Reset aborts any sequence the controller is running.
func (f *Flash) Reset() error {
	return f.setControl(0)
}

// WaitFor polls the control register until c&mask == want or the timeout of
// kind expires. PhaseWaiting progress is reported every ProgressInterval.
// ReadPacingTimeout bounds the number of polls instead of the elapsed time,
// see Timeouts.ReadPolls.
func (f *Flash) WaitFor(ctx context.Context, mask, want Control, kind TimeoutKind) (Control, error) {
	c, _, err := f.waitFor(ctx, mask, want, kind)
	return c, err
}

func (f *Flash) waitFor(ctx context.Context, mask, want Control, kind TimeoutKind) (c Control, polls int, err error) {
	timeout := f.config.Timeouts.duration(kind)
	maxPolls := 0
	if kind == ReadPacingTimeout {
		timeout, maxPolls = 0, f.config.Timeouts.readPolls()
	}
	start := time.Now()
	last := start

	for {
		if err = ctx.Err(); err != nil {
			return c, polls, err
		}
		c, err = f.Control()
		polls++
		if err != nil {
			return c, polls, err
		}
		if c&mask == want {
			return c, polls, nil
		}

		now := time.Now()
		if now.Sub(last) > f.config.ProgressInterval {
			f.reportProgress(Progress{Phase: PhaseWaiting, Wait: kind, Elapsed: now.Sub(start)})
			last = now
		}
		expired := now.Sub(start) > timeout
		if maxPolls > 0 {
			expired = polls >= maxPolls
		}
		if expired {
			f.logError("flash wait timed out",
				"wait", kind.String(),
				"mask", fmt.Sprintf("0x%08X", uint32(mask)),
				"cond", fmt.Sprintf("0x%08X", uint32(want)),
				"control", c.String(),
				"polls", polls,
			)
			return c, polls, &TimeoutError{Kind: kind, Mask: mask, Want: want, Last: c, After: timeout, Polls: polls}
		}
	}
}

// ResetWait resets the controller and waits until it reports ready. It is
// used before every phase to resynchronise with the controller's main loop.
func (f *Flash) ResetWait(ctx context.Context) error {
	if err := f.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	_, err := f.WaitFor(ctx, ctlReady, ctlReady, ReadyTimeout)
	return err
}

// Erase erases blocks flash blocks starting at the word address addr and
// waits until the controller accepts program data.
func (f *Flash) Erase(ctx context.Context, addr, blocks uint32) error {
	if err := f.regs.WriteWord(f.layout.Addr, addr); err != nil {
		return err
	}
	if err := f.regs.WriteWord(f.layout.Size, blocks); err != nil {
		return err
	}
	if err := f.setControl(ctlProgReq); err != nil {
		return err
	}
	// Erase status clear and program status set: erase done, program running.
	_, err := f.WaitFor(ctx, ctlEraseStatus|ctlProgStatus, ctlProgStatus, EraseTimeout)
	return err
}

// WriteWord writes one program data word. The data port must be idle before
// every write; writing while it is busy corrupts the stream silently.
func (f *Flash) WriteWord(ctx context.Context, data uint32) error {
	_, polls, err := f.waitFor(ctx, ctlPortReady, 0, PortTimeout)
	if polls > 1 {
		f.portBusy += polls - 1
	}
	if err != nil {
		return err
	}
	return f.regs.WriteWord(f.layout.Data, data)
}

// PortBusy returns how many control register polls found the data port busy
// since the Flash was created.
func (f *Flash) PortBusy() int { return f.portBusy }

// WaitProgramDone waits for the end of the program operation.
func (f *Flash) WaitProgramDone(ctx context.Context) error {
	_, err := f.WaitFor(ctx, ctlOpDone, ctlOpDone, ProgramTimeout)
	return err
}

// SetReadWindow resets the controller and requests words words starting at
// the word address addr. The controller then shifts them through the data
// port one at a time, see WaitReadSlot.
func (f *Flash) SetReadWindow(ctx context.Context, addr, words uint32) error {
	if err := f.ResetWait(ctx); err != nil {
		return err
	}
	if err := f.regs.WriteWord(f.layout.Addr, addr); err != nil {
		return err
	}
	if err := f.regs.WriteWord(f.layout.Size, words-1); err != nil {
		return err
	}
	return f.setControl(ctlReadReq)
}

// WaitReadSlot polls until the remaining word count in the control register
// equals remain. Reading the data port before that returns the previous word
// and shifts every following word of the window.
func (f *Flash) WaitReadSlot(ctx context.Context, remain uint32) error {
	_, err := f.WaitFor(ctx, ctlRemainMask, Control(remain&ctlRemainMask), ReadPacingTimeout)
	return err
}

// ReadWord reads the data port.
func (f *Flash) ReadWord() (uint32, error) {
	return f.regs.ReadWord(f.layout.Data)
}

func (f *Flash) reportProgress(p Progress) {
	if f.config.ProgressCallback != nil {
		f.config.ProgressCallback(p)
	}
}

func (f *Flash) logDebug(msg string, keysAndValues ...any) {
	if f.config.Logger != nil {
		f.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (f *Flash) logInfo(msg string, keysAndValues ...any) {
	if f.config.Logger != nil {
		f.config.Logger.Info(msg, keysAndValues...)
	}
}

func (f *Flash) logError(msg string, keysAndValues ...any) {
	if f.config.Logger != nil {
		f.config.Logger.Error(msg, keysAndValues...)
	}
}

// Control is the flash controller control/status register.
//
//	Bits | Meaning
//	-----+--------------------------------------------------------
//	31   | RDY: controller ready after reset
//	30   | DONE: program operation done
//	27   | RREQ: read request
//	26   | PREQ: program (erase then write) request
//	15   | ERS: erase in progress
//	14   | PGM: program in progress, data accepted
//	13   | RD: read in progress
//	12   | BUSY: data port busy
//	9:0  | remaining word count of the current read window
type Control uint32

const (
	ctlReady       Control = 1 << 31
	ctlOpDone      Control = 1 << 30
	ctlReadReq     Control = 1 << 27
	ctlProgReq     Control = 1 << 26
	ctlEraseStatus Control = 1 << 15
	ctlProgStatus  Control = 1 << 14
	ctlReadStatus  Control = 1 << 13
	ctlPortReady   Control = 1 << 12

	ctlRemainMask = 0x3FF
)

func (c Control) Ready() bool       { return c&ctlReady != 0 }
func (c Control) OpDone() bool      { return c&ctlOpDone != 0 }
func (c Control) ReadReq() bool     { return c&ctlReadReq != 0 }
func (c Control) ProgReq() bool     { return c&ctlProgReq != 0 }
func (c Control) Erasing() bool     { return c&ctlEraseStatus != 0 }
func (c Control) Programming() bool { return c&ctlProgStatus != 0 }
func (c Control) Reading() bool     { return c&ctlReadStatus != 0 }
func (c Control) PortBusy() bool    { return c&ctlPortReady != 0 }

// Remaining returns the low 10-bit remaining word count.
func (c Control) Remaining() uint32 { return uint32(c) & ctlRemainMask }

func (c Control) String() string {
	h := fmt.Sprintf("0x%08X", uint32(c))
	s := []string{}
	if c.Ready() {
		s = append(s, "RDY")
	}
	if c.OpDone() {
		s = append(s, "DONE")
	}
	if c.ReadReq() {
		s = append(s, "RREQ")
	}
	if c.ProgReq() {
		s = append(s, "PREQ")
	}
	if c.Erasing() {
		s = append(s, "ERS")
	}
	if c.Programming() {
		s = append(s, "PGM")
	}
	if c.Reading() {
		s = append(s, "RD")
	}
	if c.PortBusy() {
		s = append(s, "BUSY")
	}
	if len(s) == 0 {
		return h
	}
	return h + " " + strings.Join(s, ",")
}
