package capiflash

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Mismatch is a word that read back differently from the image.
type Mismatch struct {
	Address  uint32 // flash word address
	Actual   uint32
	Expected uint32
}

func (m Mismatch) String() string {
	return fmt.Sprintf("0x%08X: 0x%08X, expected 0x%08X", m.Address, m.Actual, m.Expected)
}

// Report summarizes a program or verify run. It is returned even when the run
// fails, with the phases reached so far filled in.
type Report struct {
	Job Job

	EraseTime   time.Duration
	ProgramTime time.Duration
	VerifyTime  time.Duration
	TotalTime   time.Duration

	WordsWritten  uint32
	WordsVerified uint32

	// PortBusy counts data port polls that found the port busy.
	PortBusy int

	// Mismatches counts every word that failed verification; only the first
	// ones are kept in FirstMismatches.
	Mismatches      int
	FirstMismatches []Mismatch
}

// OK reports whether every verified word matched the image.
func (r *Report) OK() bool { return r.Mismatches == 0 }

// WriteRate returns the programming rate in words per second.
func (r *Report) WriteRate() physic.Frequency {
	if r.ProgramTime <= 0 {
		return 0
	}
	return physic.Frequency(float64(r.WordsWritten) / r.ProgramTime.Seconds() * float64(physic.Hertz))
}

func (r *Report) addMismatch(m Mismatch, limit int) {
	r.Mismatches++
	if len(r.FirstMismatches) < limit {
		r.FirstMismatches = append(r.FirstMismatches, m)
	}
}

// Programmer erases, programs and verifies a flash image.
type Programmer struct {
	f *Flash
}

func NewProgrammer(f *Flash) *Programmer {
	return &Programmer{f: f}
}

// Program erases the blocks covered by job, writes the image followed by
// FillWord padding, waits for the controller to finish and reads everything
// back for comparison.
//
// Verification mismatches are not an error: they are counted in the report,
// see Report.OK. Any register, timeout or image error aborts the run.
func (p *Programmer) Program(ctx context.Context, image io.ReadSeeker, job Job) (*Report, error) {
	f := p.f
	rep := &Report{Job: job}
	if err := job.validate(); err != nil {
		return rep, err
	}
	words := newWordReader(image)
	start := time.Now()
	defer func() {
		rep.TotalTime = time.Since(start)
		rep.PortBusy = f.PortBusy()
	}()

	f.reportProgress(Progress{Phase: PhaseReset})
	if err := f.ResetWait(ctx); err != nil {
		return rep, err
	}

	f.logInfo("erasing flash", "job", job.String())
	f.reportProgress(Progress{Phase: PhaseErase, TotalBlocks: int(job.Blocks)})
	t := time.Now()
	err := f.Erase(ctx, job.Start, job.Blocks)
	rep.EraseTime = time.Since(t)
	if err != nil {
		return rep, fmt.Errorf("erase: %w", err)
	}

	f.logInfo("programming flash", "words", job.TotalWords)
	if err := p.write(ctx, words, job, rep); err != nil {
		return rep, fmt.Errorf("program: %w", err)
	}
	if err := f.ResetWait(ctx); err != nil {
		return rep, err
	}

	if err := words.rewind(); err != nil {
		return rep, err
	}
	f.logInfo("verifying flash", "words", job.TotalWords)
	if err := p.verify(ctx, words, job, rep); err != nil {
		return rep, fmt.Errorf("verify: %w", err)
	}
	f.reportProgress(Progress{Phase: PhaseComplete, Words: job.TotalWords, TotalWords: job.TotalWords})
	return rep, nil
}

// Verify compares the flash against image without erasing or programming.
func (p *Programmer) Verify(ctx context.Context, image io.ReadSeeker, job Job) (*Report, error) {
	rep := &Report{Job: job}
	if err := job.validate(); err != nil {
		return rep, err
	}
	start := time.Now()
	defer func() { rep.TotalTime = time.Since(start) }()

	p.f.logInfo("verifying flash", "job", job.String())
	if err := p.verify(ctx, newWordReader(image), job, rep); err != nil {
		return rep, fmt.Errorf("verify: %w", err)
	}
	p.f.reportProgress(Progress{Phase: PhaseComplete, Words: job.TotalWords, TotalWords: job.TotalWords})
	return rep, nil
}

// Read copies n words starting at the flash word address addr to w as
// little-endian bytes.
func (p *Programmer) Read(ctx context.Context, addr, n uint32, w io.Writer) error {
	f := p.f
	buf := make([]byte, ChunkWords*wordSize)
	start := time.Now()
	for done := uint32(0); done < n; {
		size := min(n-done, ChunkWords)
		if err := f.SetReadWindow(ctx, addr+done, size); err != nil {
			return err
		}
		remain := size - 1
		for i := uint32(0); i < size; i++ {
			remain = (remain - 1) & ctlRemainMask
			if err := f.WaitReadSlot(ctx, remain); err != nil {
				return fmt.Errorf("read @0x%08X: %w", addr+done+i, err)
			}
			v, err := f.ReadWord()
			if err != nil {
				return err
			}
			binary.LittleEndian.PutUint32(buf[i*wordSize:], v)
		}
		if _, err := w.Write(buf[:size*wordSize]); err != nil {
			return err
		}
		done += size
		f.reportProgress(Progress{Phase: PhaseRead, Words: done, TotalWords: n, Elapsed: time.Since(start)})
	}
	return f.Reset()
}

func (p *Programmer) write(ctx context.Context, words *wordReader, job Job, rep *Report) error {
	f := p.f
	start := time.Now()
	defer func() { rep.ProgramTime = time.Since(start) }()

	for i := uint32(0); i < job.TotalWords; i++ {
		v, err := words.next()
		if err != nil {
			return err
		}
		if err := f.WriteWord(ctx, v); err != nil {
			return fmt.Errorf("word %d: %w", i, err)
		}
		rep.WordsWritten++
		if (i+1)%job.BlockWords == 0 {
			f.reportProgress(Progress{
				Phase:       PhaseProgram,
				Block:       int((i + 1) / job.BlockWords),
				TotalBlocks: int(job.Blocks + 1),
				Words:       i + 1,
				TotalWords:  job.TotalWords,
				Elapsed:     time.Since(start),
			})
		}
	}
	return f.WaitProgramDone(ctx)
}

func (p *Programmer) verify(ctx context.Context, words *wordReader, job Job, rep *Report) error {
	f := p.f
	start := time.Now()
	defer func() { rep.VerifyTime = time.Since(start) }()

	raddr := job.Start
	var remain uint32
	for i := uint32(0); i < job.TotalWords; i++ {
		want, err := words.next()
		if err != nil {
			return err
		}
		if i%ChunkWords == 0 {
			if err := f.SetReadWindow(ctx, raddr, ChunkWords); err != nil {
				return err
			}
			raddr += ChunkWords
			remain = ChunkWords - 1
		}
		remain = (remain - 1) & ctlRemainMask
		if err := f.WaitReadSlot(ctx, remain); err != nil {
			return fmt.Errorf("word %d: %w", i, err)
		}
		got, err := f.ReadWord()
		if err != nil {
			return err
		}
		rep.WordsVerified++

		if got != want {
			// raddr already points past the current window.
			m := Mismatch{Address: raddr + i%ChunkWords - ChunkWords, Actual: got, Expected: want}
			if len(rep.FirstMismatches) < f.config.MaxMismatches {
				f.logError("data miscompare", "addr", fmt.Sprintf("0x%08X", m.Address),
					"actual", fmt.Sprintf("0x%08X", got), "expected", fmt.Sprintf("0x%08X", want))
			}
			rep.addMismatch(m, f.config.MaxMismatches)
		}
		if (i+1)%job.BlockWords == 0 {
			f.reportProgress(Progress{
				Phase:       PhaseVerify,
				Block:       int((i + 1) / job.BlockWords),
				TotalBlocks: int(job.Blocks + 1),
				Words:       i + 1,
				TotalWords:  job.TotalWords,
				Elapsed:     time.Since(start),
			})
		}
	}
	f.logDebug("verify done", "words", rep.WordsVerified, "mismatches", rep.Mismatches)
	return nil
}
