package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gentam/capiflash"
	"github.com/golang/glog"
	"gopkg.in/cheggaaa/pb.v1"
)

// progress renders flash progress events, one bar per phase.
type progress struct {
	quiet bool
	out   io.Writer
	bar   *pb.ProgressBar
	phase capiflash.Phase
}

func newProgress(quiet bool) *progress {
	return &progress{quiet: quiet, out: os.Stderr}
}

func (p *progress) update(e capiflash.Progress) {
	switch e.Phase {
	case capiflash.PhaseWaiting:
		// Long polls: erase of a large image takes minutes.
		glog.V(1).Infof("Waiting for %v: %v", e.Wait, e.Elapsed.Truncate(time.Second))
		return
	case capiflash.PhaseComplete:
		p.finish()
		return
	}
	if p.quiet {
		return
	}
	if e.TotalWords == 0 {
		p.finish()
		fmt.Fprintf(p.out, "%s flash\n", e.Phase)
		return
	}

	if p.bar == nil || e.Phase != p.phase {
		p.finish()
		p.bar = pb.New(int(e.TotalWords)).Prefix(fmt.Sprintf("%-12s", e.Phase))
		p.bar.ManualUpdate = true
		p.bar.Output = p.out
		p.bar.Start()
		p.phase = e.Phase
	}
	p.bar.Set(int(e.Words))
	p.bar.Update()
}

func (p *progress) finish() {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
	p.phase = ""
}

func printReport(w io.Writer, r *capiflash.Report) {
	if r.EraseTime > 0 || r.ProgramTime > 0 {
		fmt.Fprintf(w, "Erase Time:   %v\n", r.EraseTime.Round(time.Millisecond))
		fmt.Fprintf(w, "Program Time: %v\n", r.ProgramTime.Round(time.Millisecond))
		fmt.Fprintf(w, "Word Rate:    %v\n", r.WriteRate()) // words written per second
	}
	fmt.Fprintf(w, "Verify Time:  %v\n", r.VerifyTime.Round(time.Millisecond))
	fmt.Fprintf(w, "Total Time:   %v\n", r.TotalTime.Round(time.Millisecond))
	if r.PortBusy > 0 {
		fmt.Fprintf(w, "Port Busy:    %d polls\n", r.PortBusy)
	}
	if r.WordsVerified > 0 {
		fmt.Fprintf(w, "Mismatches:   %d of %d words\n", r.Mismatches, r.WordsVerified)
	}
}
