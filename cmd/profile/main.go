// Package main provides a profiling wrapper for rvfetch to identify
// simulator performance bottlenecks.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvfetch/emu"
	"github.com/sarchlab/rvfetch/loader"
	"github.com/sarchlab/rvfetch/timing/config"
	"github.com/sarchlab/rvfetch/timing/core"
)

var (
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions to fetch (0 = unlimited)")
	icache      = flag.Bool("icache", true, "Fetch through the L1 instruction cache")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)

	start := time.Now()

	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	reason, stats := runProfile(prog)

	elapsed := time.Since(start)

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Halt reason: %s\n", reason)
	fmt.Printf("Instructions fetched: %d\n", stats.Instructions)
	fmt.Printf("Simulated cycles: %d\n", stats.Cycles)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if stats.Cycles > 0 {
		fmt.Printf("Cycles/second: %.0f\n", float64(stats.Cycles)/elapsed.Seconds())
	}
}

// runProfile runs the program through the front end with logging disabled.
func runProfile(prog *loader.Program) (core.HaltReason, core.Stats) {
	port := emu.NewFetchPort(emu.NewMemory())
	prog.LoadInto(port)

	cfg := config.DefaultFrontendConfig()
	cfg.ICacheEnabled = *icache
	cfg.MaxInstructions = *instruction
	cfg.MaxCycles = ^uint64(0)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := core.NewCore(cfg, port, core.WithLogger(logger))
	c.SetPC(prog.EntryPoint)
	reason := c.Run()

	return reason, c.Stats()
}
