// Package config holds the front-end simulation configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/rvfetch/timing/cache"
	"github.com/sarchlab/rvfetch/timing/fifo"
	"github.com/sarchlab/rvfetch/timing/prefetch"
)

// FrontendConfig holds the parameters of the fetch front end and of the
// decode-stage model that drains it.
type FrontendConfig struct {
	// NumReqs is the number of outstanding fetch requests. The buffer
	// holds NumReqs+1 entries. Default: 2.
	NumReqs int `json:"num_reqs"`

	// UnalignedInjection runs the buffer and the prefetcher in the
	// whole-instruction injection mode used by test harnesses.
	// Default: false.
	UnalignedInjection bool `json:"unaligned_injection"`

	// BusLatency is the request-to-response latency without an
	// instruction cache. Default: 1 cycle.
	BusLatency uint64 `json:"bus_latency"`

	// ICacheEnabled fetches through an instruction cache. Default: false.
	ICacheEnabled bool `json:"icache_enabled"`

	// ICache is the instruction cache geometry and latency.
	ICache cache.Config `json:"icache"`

	// StallEvery makes the decode stage refuse one cycle out of every
	// StallEvery. Default: 0 (never stalls).
	StallEvery int `json:"stall_every"`

	// TrapVector is where the decode stage redirects on a fetch fault.
	// Default: 0x0.
	TrapVector uint32 `json:"trap_vector"`

	// HaltOnFault stops the simulation on the first fetch fault instead of
	// trapping. Default: true.
	HaltOnFault bool `json:"halt_on_fault"`

	// MaxInstructions stops the simulation after this many instructions.
	// Default: 0 (no limit).
	MaxInstructions uint64 `json:"max_instructions"`

	// MaxCycles bounds the simulation length. Default: 1,000,000.
	MaxCycles uint64 `json:"max_cycles"`
}

// DefaultFrontendConfig returns a FrontendConfig with default values.
func DefaultFrontendConfig() *FrontendConfig {
	return &FrontendConfig{
		NumReqs:     2,
		BusLatency:  1,
		ICache:      cache.DefaultL1IConfig(),
		HaltOnFault: true,
		MaxCycles:   1_000_000,
	}
}

// LoadConfig loads a FrontendConfig from a JSON file. Missing fields keep
// their default values.
func LoadConfig(path string) (*FrontendConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frontend config file: %w", err)
	}

	config := DefaultFrontendConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse frontend config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frontend config %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig writes a FrontendConfig to a JSON file.
func (c *FrontendConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize frontend config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write frontend config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration describes a buildable front end.
func (c *FrontendConfig) Validate() error {
	if err := c.FIFOConfig().Validate(); err != nil {
		return err
	}
	if err := c.PrefetchConfig().Validate(); err != nil {
		return err
	}
	if c.StallEvery < 0 {
		return fmt.Errorf("stall_every must be >= 0")
	}
	if c.StallEvery == 1 {
		return fmt.Errorf("stall_every of 1 never accepts an instruction")
	}
	if c.TrapVector&1 != 0 {
		return fmt.Errorf("trap_vector must be halfword aligned, got 0x%x", c.TrapVector)
	}
	if c.MaxCycles == 0 {
		return fmt.Errorf("max_cycles must be > 0")
	}
	if c.ICacheEnabled {
		return validateICache(c.ICache)
	}
	return nil
}

func validateICache(ic cache.Config) error {
	if ic.BlockSize < 4 || ic.BlockSize%4 != 0 {
		return fmt.Errorf("icache block_size must be a multiple of 4, got %d", ic.BlockSize)
	}
	if ic.Associativity < 1 {
		return fmt.Errorf("icache associativity must be >= 1")
	}
	if ic.Size <= 0 || ic.Size%(ic.Associativity*ic.BlockSize) != 0 {
		return fmt.Errorf("icache size must be a multiple of associativity * block_size")
	}
	if ic.HitLatency == 0 || ic.MissLatency < ic.HitLatency {
		return fmt.Errorf("icache latencies must satisfy 0 < hit_latency <= miss_latency")
	}
	return nil
}

// FIFOConfig returns the realignment buffer configuration.
func (c *FrontendConfig) FIFOConfig() fifo.Config {
	return fifo.Config{
		NumReqs:            c.NumReqs,
		UnalignedInjection: c.UnalignedInjection,
	}
}

// PrefetchConfig returns the prefetcher configuration.
func (c *FrontendConfig) PrefetchConfig() prefetch.Config {
	return prefetch.Config{
		NumReqs:    c.NumReqs,
		BusLatency: c.BusLatency,
		Injection:  c.UnalignedInjection,
	}
}

// Clone returns a deep copy of the FrontendConfig.
func (c *FrontendConfig) Clone() *FrontendConfig {
	clone := *c
	return &clone
}
