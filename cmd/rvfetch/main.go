// Package main provides the entry point for rvfetch.
// rvfetch runs a RISC-V program through the cycle-accurate fetch front end
// and reports how instructions were delivered to decode.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvfetch/emu"
	"github.com/sarchlab/rvfetch/loader"
	"github.com/sarchlab/rvfetch/timing/config"
	"github.com/sarchlab/rvfetch/timing/core"
)

var (
	configPath = flag.String("config", "", "Path to frontend configuration JSON file")
	verbose    = flag.Bool("v", false, "Trace every cycle")
	cycles     = flag.Uint64("cycles", 0, "Maximum number of cycles (overrides the configuration)")
	icache     = flag.Bool("icache", false, "Fetch through the L1 instruction cache")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rvfetch [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading frontend config: %v\n", err)
		os.Exit(1)
	}

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	logrus.WithFields(logrus.Fields{
		"program":  programPath,
		"entry":    fmt.Sprintf("0x%X", prog.EntryPoint),
		"segments": len(prog.Segments),
	}).Debug("loaded")

	c := simulate(prog, cfg, logrus.StandardLogger())
	printReport(os.Stdout, programPath, c)
}

// loadConfig builds the frontend configuration from the file and flags.
func loadConfig() (*config.FrontendConfig, error) {
	cfg := config.DefaultFrontendConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	if *cycles > 0 {
		cfg.MaxCycles = *cycles
	}
	if *icache {
		cfg.ICacheEnabled = true
	}

	return cfg, cfg.Validate()
}

// simulate loads the program and runs the front end until it halts.
func simulate(prog *loader.Program, cfg *config.FrontendConfig, logger logrus.FieldLogger) *core.Core {
	port := emu.NewFetchPort(emu.NewMemory())
	prog.LoadInto(port)

	c := core.NewCore(cfg, port, core.WithLogger(logger))
	c.SetPC(prog.EntryPoint)
	c.Run()

	return c
}

func percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return 100.0 * float64(part) / float64(total)
}

// printReport writes the fetch report of a finished run.
func printReport(w io.Writer, programPath string, c *core.Core) {
	stats := c.Stats()

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Program: %s\n", programPath)
	fmt.Fprintf(w, "Halt reason: %s\n", c.HaltReason())
	fmt.Fprintf(w, "Total Instructions: %d\n", stats.Instructions)
	fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(w, "IPC: %.2f\n", stats.IPC())
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Delivery:\n")
	fmt.Fprintf(w, "  Compressed: %6d (%5.1f%%)\n",
		stats.Compressed, 100.0*stats.CompressedRatio())
	fmt.Fprintf(w, "  Straddled:  %6d (%5.1f%%)\n",
		stats.Straddled, percent(stats.Straddled, stats.Instructions))
	fmt.Fprintf(w, "  Bypassed:   %6d (%5.1f%%)\n",
		stats.Bypassed, percent(stats.Bypassed, stats.Instructions))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Front-end Events:\n")
	fmt.Fprintf(w, "  Stalls:     %d cycles (%.1f%%)\n",
		stats.Stalls, percent(stats.Stalls, stats.Cycles))
	fmt.Fprintf(w, "  Redirects:  %d\n", stats.Redirects)
	fmt.Fprintf(w, "  Faults:     %d\n", stats.Faults)
	fmt.Fprintf(w, "  Requests:   %d (%d discarded, %d held back)\n",
		stats.Prefetch.Requests, stats.Prefetch.Discarded+stats.FIFO.Discarded,
		stats.Prefetch.BusyStalls)

	if c.ICache() != nil {
		fmt.Fprintf(w, "\n")
		fmt.Fprintf(w, "L1 I-Cache:\n")
		fmt.Fprintf(w, "  Reads:    %d\n", stats.ICache.Reads)
		fmt.Fprintf(w, "  Hit rate: %.1f%%\n", 100.0*stats.ICache.HitRate())
	}
}
