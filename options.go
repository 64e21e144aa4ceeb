package capiflash

import "time"

// Config holds the flash controller configuration.
type Config struct {
	// Logger receives diagnostic messages (optional).
	Logger Logger

	// ProgressCallback receives progress events (optional).
	ProgressCallback ProgressCallback

	Timeouts Timeouts

	// ProgressInterval is the cadence of PhaseWaiting events during long
	// polls.
	ProgressInterval time.Duration

	// MaxMismatches caps Report.FirstMismatches. All mismatches are still
	// counted.
	MaxMismatches int
}

func defaultConfig() Config {
	return Config{
		Timeouts:         DefaultTimeouts,
		ProgressInterval: defaultProgressInterval,
		MaxMismatches:    1024,
	}
}

// Option configures a Flash.
type Option func(*Config)

func WithLogger(l Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func WithProgressCallback(cb ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = cb
	}
}

// WithTimeouts overrides the wait bounds. Zero fields keep their defaults.
//
// Example:
//
//	f := capiflash.NewFlash(regs, layout, capiflash.WithTimeouts(capiflash.Timeouts{
//	    Erase: 10 * time.Minute,
//	}))
func WithTimeouts(t Timeouts) Option {
	return func(c *Config) {
		c.Timeouts = t
	}
}

func WithProgressInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ProgressInterval = d
		}
	}
}

func WithMaxMismatches(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxMismatches = n
		}
	}
}
