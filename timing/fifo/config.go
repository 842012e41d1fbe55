package fifo

import "fmt"

// Config holds the construction parameters of the buffer.
type Config struct {
	// NumReqs is the number of outstanding fetch requests the buffer must
	// absorb. The queue holds NumReqs+1 entries, the extra entry keeping
	// the first half of a straddling instruction.
	NumReqs int `json:"num_reqs"`

	// UnalignedInjection selects the test harness interpretation where
	// every fetch carries one whole instruction. Off in normal operation.
	UnalignedInjection bool `json:"unaligned_injection"`
}

// DefaultConfig returns a two-request buffer.
func DefaultConfig() Config {
	return Config{NumReqs: 2}
}

// Depth returns the queue depth.
func (c Config) Depth() int {
	return c.NumReqs + 1
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.NumReqs < 1 {
		return fmt.Errorf("num_reqs must be >= 1, got %d", c.NumReqs)
	}
	return nil
}
