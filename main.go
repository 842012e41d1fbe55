// Package main provides the entry point for rvfetch.
// rvfetch is a cycle-accurate model of a RISC-V instruction-fetch
// realignment buffer.
//
// For the full CLI, use: go run ./cmd/rvfetch
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rvfetch - RISC-V Fetch Front-End Simulator")
	fmt.Println("")
	fmt.Println("Usage: rvfetch [options] <program.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to frontend configuration JSON file")
	fmt.Println("  -cycles    Maximum number of cycles")
	fmt.Println("  -icache    Fetch through the L1 instruction cache")
	fmt.Println("  -v         Trace every cycle")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvfetch' for the full CLI.")
	fmt.Println("Run 'go run ./cmd/benchmark' for the front-end benchmarks.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvfetch' instead.")
	}
}
