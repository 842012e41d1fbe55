// Package benchmarks provides fetch front-end benchmark infrastructure.
package benchmarks

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvfetch/emu"
	"github.com/sarchlab/rvfetch/insts"
	"github.com/sarchlab/rvfetch/timing/config"
	"github.com/sarchlab/rvfetch/timing/core"
)

// ProgramAddr is where every benchmark program is loaded.
const ProgramAddr = 0x1000

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of instructions accepted by decode
	InstructionsRetired uint64 `json:"instructions_retired"`

	// IPC is instructions per cycle
	IPC float64 `json:"ipc"`

	Compressed uint64 `json:"compressed"`
	Straddled  uint64 `json:"straddled"`
	Bypassed   uint64 `json:"bypassed"`

	// StallCycles is the number of cycles decode had nothing to take
	StallCycles uint64 `json:"stall_cycles"`

	// Redirects is the number of fetch restarts, the initial one included
	Redirects uint64 `json:"redirects"`

	Faults uint64 `json:"faults"`

	// Requests is the number of bus requests issued
	Requests uint64 `json:"requests"`

	// BusyStalls is the number of cycles a request waited for buffer space
	BusyStalls uint64 `json:"busy_stalls"`

	// ICacheHits/Misses (if cache enabled)
	ICacheHits   uint64 `json:"icache_hits,omitempty"`
	ICacheMisses uint64 `json:"icache_misses,omitempty"`

	// HaltReason tells how the run ended
	HaltReason string `json:"halt_reason"`

	// Passed is set when the run ended as the benchmark expects
	Passed bool `json:"passed"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the fetch port (e.g., fault regions, bounds)
	Setup func(port *emu.FetchPort)

	// Program is the RISC-V machine code loaded at ProgramAddr
	Program []byte

	// MaxInstructions stops the run after this many instructions (0 = none)
	MaxInstructions uint64

	// ExpectedHalt is how the run should end
	ExpectedHalt core.HaltReason

	// ExpectedInstructions is the expected retired count (0 = unchecked)
	ExpectedInstructions uint64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableICache enables instruction cache simulation
	EnableICache bool

	// NumReqs is the number of outstanding fetch requests
	NumReqs int

	// BusLatency is the fetch latency without the instruction cache
	BusLatency uint64

	// StallEvery makes decode refuse one cycle in StallEvery (0 = never)
	StallEvery int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose logs redirects and faults to Output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableICache: true,
		NumReqs:      2,
		BusLatency:   1,
		Output:       os.Stdout,
		Verbose:      false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
	logger     *logrus.Logger
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	if config.Verbose {
		logger.SetOutput(config.Output)
	}

	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
		logger:     logger,
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// FrontendConfig returns the front-end configuration a benchmark runs with.
func (h *Harness) FrontendConfig(bench Benchmark) *config.FrontendConfig {
	cfg := config.DefaultFrontendConfig()
	cfg.ICacheEnabled = h.config.EnableICache
	cfg.NumReqs = h.config.NumReqs
	cfg.BusLatency = h.config.BusLatency
	cfg.StallEvery = h.config.StallEvery
	cfg.MaxInstructions = bench.MaxInstructions
	return cfg
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		results = append(results, result)
	}

	return results
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	memory := emu.NewMemory()
	memory.LoadSegment(ProgramAddr, bench.Program, uint32(len(bench.Program)))

	port := emu.NewFetchPort(memory)
	if bench.Setup != nil {
		bench.Setup(port)
	}

	c := core.NewCore(h.FrontendConfig(bench), port, core.WithLogger(h.logger))
	c.SetPC(ProgramAddr)

	start := time.Now()
	reason := c.Run()
	wallTime := time.Since(start)

	stats := c.Stats()
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		IPC:                 stats.IPC(),
		Compressed:          stats.Compressed,
		Straddled:           stats.Straddled,
		Bypassed:            stats.Bypassed,
		StallCycles:         stats.Stalls,
		Redirects:           stats.Redirects,
		Faults:              stats.Faults,
		Requests:            stats.Prefetch.Requests,
		BusyStalls:          stats.Prefetch.BusyStalls,
		HaltReason:          reason.String(),
		WallTime:            wallTime,
	}

	result.Passed = reason == bench.ExpectedHalt &&
		(bench.ExpectedInstructions == 0 || stats.Instructions == bench.ExpectedInstructions)

	if c.ICache() != nil {
		result.ICacheHits = stats.ICache.Hits
		result.ICacheMisses = stats.ICache.Misses
	}

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== rvfetch Front-End Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Halt: %s (passed: %v)\n", r.HaltReason, r.Passed)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  IPC:                  %.3f\n", r.IPC)
		_, _ = fmt.Fprintf(h.config.Output, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Delivery ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Compressed: %d\n", r.Compressed)
		_, _ = fmt.Fprintf(h.config.Output, "  Straddled:  %d\n", r.Straddled)
		_, _ = fmt.Fprintf(h.config.Output, "  Bypassed:   %d\n", r.Bypassed)
		_, _ = fmt.Fprintf(h.config.Output, "  Redirects:  %d\n", r.Redirects)
		if r.Faults > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  Faults:     %d\n", r.Faults)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Bus ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Requests:    %d\n", r.Requests)
		_, _ = fmt.Fprintf(h.config.Output, "  Busy Stalls: %d\n", r.BusyStalls)

		if r.ICacheHits > 0 || r.ICacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- I-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.ICacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.ICacheMisses)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,ipc,compressed,straddled,bypassed,stalls,redirects,faults,requests,busy_stalls,icache_hits,icache_misses,halt,passed")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%s,%v\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.IPC,
			r.Compressed,
			r.Straddled,
			r.Bypassed,
			r.StallCycles,
			r.Redirects,
			r.Faults,
			r.Requests,
			r.BusyStalls,
			r.ICacheHits,
			r.ICacheMisses,
			r.HaltReason,
			r.Passed,
		)
	}
}

// BuildProgram assembles instructions into a byte slice. Compressed
// encodings take two bytes, all others four.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 0, len(instrs)*4)
	for _, inst := range instrs {
		if insts.IsCompressed(uint16(inst)) {
			program = binary.LittleEndian.AppendUint16(program, uint16(inst))
			continue
		}
		program = binary.LittleEndian.AppendUint32(program, inst)
	}
	return program
}

// Instruction encoding helpers

// EncodeADDI encodes ADDI rd, rs1, imm.
func EncodeADDI(rd, rs1 uint8, imm int16) uint32 {
	var inst uint32 = 0x13
	inst |= uint32(rd&0x1F) << 7
	inst |= uint32(rs1&0x1F) << 15
	inst |= (uint32(imm) & 0xFFF) << 20
	return inst
}

// EncodeJAL encodes JAL rd, offset.
func EncodeJAL(rd uint8, offset int32) uint32 {
	imm := uint32(offset)
	var inst uint32 = 0x6F
	inst |= uint32(rd&0x1F) << 7
	inst |= (imm >> 12 & 0xFF) << 12
	inst |= (imm >> 11 & 0x1) << 20
	inst |= (imm >> 1 & 0x3FF) << 21
	inst |= (imm >> 20 & 0x1) << 31
	return inst
}

// EncodeECALL encodes ECALL.
func EncodeECALL() uint32 {
	return 0x00000073
}

// EncodeCNOP encodes C.NOP.
func EncodeCNOP() uint32 {
	return 0x0001
}

// EncodeCADDI encodes C.ADDI rd, imm.
func EncodeCADDI(rd uint8, imm int8) uint32 {
	u := uint32(imm)
	var inst uint32 = 0x0001
	inst |= (u & 0x1F) << 2
	inst |= uint32(rd&0x1F) << 7
	inst |= (u >> 5 & 0x1) << 12
	return inst
}

// EncodeCJ encodes C.J offset.
func EncodeCJ(offset int32) uint32 {
	imm := uint32(offset)
	var inst uint32 = 0xA001
	inst |= (imm >> 5 & 0x1) << 2
	inst |= (imm >> 1 & 0x7) << 3
	inst |= (imm >> 7 & 0x1) << 6
	inst |= (imm >> 6 & 0x1) << 7
	inst |= (imm >> 10 & 0x1) << 8
	inst |= (imm >> 8 & 0x3) << 9
	inst |= (imm >> 4 & 0x1) << 11
	inst |= (imm >> 11 & 0x1) << 12
	return inst
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	ICacheEnabled bool `json:"icache_enabled"`
	NumReqs       int  `json:"num_reqs"`
	StallEvery    int  `json:"stall_every"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Passed is the number of benchmarks that ended as expected
	Passed int `json:"passed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageIPC is the aggregate instructions per cycle
	AverageIPC float64 `json:"average_ipc"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	passed := 0
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
		if r.Passed {
			passed++
		}
	}

	avgIPC := float64(0)
	if totalCycles > 0 {
		avgIPC = float64(totalInstructions) / float64(totalCycles)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "0.1.0",
			Config: BenchmarkConfig{
				ICacheEnabled: h.config.EnableICache,
				NumReqs:       h.config.NumReqs,
				StallEvery:    h.config.StallEvery,
			},
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			Passed:            passed,
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageIPC:        avgIPC,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
