package capiflash

import "time"

// Phase names a stage of a flash operation.
type Phase string

const (
	PhaseReset    Phase = "reset"
	PhaseErase    Phase = "erasing"
	PhaseProgram  Phase = "programming"
	PhaseVerify   Phase = "verifying"
	PhaseRead     Phase = "reading"
	PhaseWaiting  Phase = "waiting"
	PhaseComplete Phase = "complete"
)

// Progress is passed to the ProgressCallback.
type Progress struct {
	Phase Phase

	// Block is the number of completed blocks in the current phase.
	Block       int
	TotalBlocks int

	Words      uint32
	TotalWords uint32

	// Wait is set for PhaseWaiting events and names what is being waited for.
	Wait TimeoutKind

	// Elapsed is the time spent in the current phase, or in the current wait
	// for PhaseWaiting.
	Elapsed time.Duration
}

// Percentage returns the completion of the phase in percent.
func (p Progress) Percentage() float64 {
	if p.TotalWords == 0 {
		return 0
	}
	return float64(p.Words) / float64(p.TotalWords) * 100
}

// ProgressCallback is called synchronously from the flash loop and should
// return quickly.
type ProgressCallback func(Progress)

// Logger is an optional logging interface.
//
// Example with glog:
//
//	type glogLogger struct{}
//	func (glogLogger) Debug(msg string, kv ...any) { glog.V(1).Infoln(msg, kv) }
//	func (glogLogger) Info(msg string, kv ...any)  { glog.Infoln(msg, kv) }
//	func (glogLogger) Error(msg string, kv ...any) { glog.Errorln(msg, kv) }
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}
