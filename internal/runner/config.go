package runner

import (
	"errors"
	"fmt"
	"time"
)

// Validation failures, surfaced before any call is issued. Everything that
// goes wrong after validation is recorded in the report instead.
var (
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
	ErrInvalidTotal       = errors.New("total calls must not be negative")
	ErrMissingTarget      = errors.New("target is required")
	ErrMissingMethod      = errors.New("method selector is required")
)

// Config describes one run. It is read-only for the run's duration.
type Config struct {
	Method     string            `json:"method"`
	Payload    any               `json:"payload,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	TotalCalls int               `json:"total_calls"`

	// Concurrency is the worker ceiling; the pool spawns
	// min(Concurrency, TotalCalls) workers.
	Concurrency int `json:"concurrency"`

	RPS     int           `json:"rps,omitempty"`     // fixed-rate pacing across workers, 0 = unpaced
	Timeout time.Duration `json:"timeout,omitempty"` // whole-run deadline, 0 = none
	Buckets int           `json:"buckets,omitempty"` // histogram buckets, 0 = default
}

// Validate rejects bad configurations before any work starts.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, c.Concurrency)
	}
	if c.TotalCalls < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTotal, c.TotalCalls)
	}
	if c.Method == "" {
		return ErrMissingMethod
	}
	return nil
}

// Workers is the effective worker count for the run. Concurrency may
// legally exceed TotalCalls; the pool never outnumbers the work.
func (c Config) Workers() int {
	if c.Concurrency < c.TotalCalls {
		return c.Concurrency
	}
	return c.TotalCalls
}
