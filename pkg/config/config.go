// Package config loads the CSP/SP tuning knobs from an optional ini file,
// the same format and library the teacher uses for its EDS object
// dictionaries (gopkg.in/ini.v1), applied here to queue capacities and
// timing instead of CANopen objects.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds every tunable the CSP and SPs need. Zero-value fields are
// never produced by Load or Default; every field always has a sane value.
type Config struct {
	// RequestQueueSize is REQUESTQUEUESIZE: the request queue's capacity.
	RequestQueueSize int
	// DataQueueSize is DATAQUEUESIZE: the data queue's capacity.
	DataQueueSize int
	// PollTimeout is how long the CSP's readiness poll waits before
	// re-checking for a deadlock condition.
	PollTimeout time.Duration
	// BackoffSlot is the base unit of the SP's binary-exponential resend
	// backoff.
	BackoffSlot time.Duration
}

// Default returns the spec's built-in defaults: a request queue of 10, a
// data queue of 2, a 2-second poll timeout, and a 1-second backoff slot.
func Default() Config {
	return Config{
		RequestQueueSize: 10,
		DataQueueSize:    2,
		PollTimeout:      2 * time.Second,
		BackoffSlot:      time.Second,
	}
}

// Load reads tuning overrides from an ini file at path. An empty path
// returns Default() unchanged. Only keys present in the file override
// their corresponding default; a file with no [switch] section, or with
// only some keys set, leaves the rest at their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}

	sec := f.Section("switch")
	cfg.RequestQueueSize = sec.Key("request_queue_size").MustInt(cfg.RequestQueueSize)
	cfg.DataQueueSize = sec.Key("data_queue_size").MustInt(cfg.DataQueueSize)
	cfg.PollTimeout = time.Duration(sec.Key("poll_timeout_seconds").MustInt(int(cfg.PollTimeout/time.Second))) * time.Second
	cfg.BackoffSlot = time.Duration(sec.Key("backoff_slot_seconds").MustInt(int(cfg.BackoffSlot/time.Second))) * time.Second
	if cfg.RequestQueueSize <= 0 || cfg.DataQueueSize <= 0 || cfg.PollTimeout <= 0 || cfg.BackoffSlot <= 0 {
		return Config{}, fmt.Errorf("config: %s: queue sizes and timings must be positive", path)
	}
	return cfg, nil
}
