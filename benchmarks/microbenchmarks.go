package benchmarks

import (
	"github.com/sarchlab/rvfetch/emu"
	"github.com/sarchlab/rvfetch/timing/core"
)

// GetMicrobenchmarks returns the standard set of front-end microbenchmarks.
// Each benchmark targets one delivery pattern of the realignment buffer.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		alignedSequential(),
		compressedSequential(),
		straddleChain(),
		mixedStream(),
		jumpChain(),
		unalignedJumps(),
		tightLoop(),
		faultingTail(),
		codeSweep(),
	}
}

// GetCoreBenchmarks returns a minimal set of benchmarks for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		straddleChain(),
		unalignedJumps(),
		tightLoop(),
	}
}

func repeat(n int, instrs ...uint32) []uint32 {
	out := make([]uint32, 0, n*len(instrs))
	for i := 0; i < n; i++ {
		out = append(out, instrs...)
	}
	return out
}

// 1. Aligned Sequential - every instruction is one whole fetch
func alignedSequential() Benchmark {
	return Benchmark{
		Name:                 "aligned_sequential",
		Description:          "32 word-aligned ADDIs - measures bypass throughput",
		Program:              BuildProgram(append(repeat(32, EncodeADDI(10, 10, 1)), EncodeECALL())...),
		ExpectedHalt:         core.HaltEnvironmentCall,
		ExpectedInstructions: 33,
	}
}

// 2. Compressed Sequential - two instructions per fetch
func compressedSequential() Benchmark {
	return Benchmark{
		Name:                 "compressed_sequential",
		Description:          "64 C.ADDIs - measures delivery from buffered halves",
		Program:              BuildProgram(append(repeat(64, EncodeCADDI(10, 1)), EncodeECALL())...),
		ExpectedHalt:         core.HaltEnvironmentCall,
		ExpectedInstructions: 65,
	}
}

// 3. Straddle Chain - one C.NOP shifts every following ADDI across fetches
func straddleChain() Benchmark {
	instrs := []uint32{EncodeCNOP()}
	instrs = append(instrs, repeat(31, EncodeADDI(10, 10, 1))...)
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:                 "straddle_chain",
		Description:          "31 ADDIs at halfword offset - every instruction joins two fetches",
		Program:              BuildProgram(instrs...),
		ExpectedHalt:         core.HaltEnvironmentCall,
		ExpectedInstructions: 33,
	}
}

// 4. Mixed Stream - a compiler-like mix of 16- and 32-bit instructions
func mixedStream() Benchmark {
	pattern := []uint32{
		EncodeCADDI(10, 1),
		EncodeADDI(11, 11, 2),
		EncodeADDI(12, 12, 3),
		EncodeCADDI(11, -1),
		EncodeCNOP(),
	}
	instrs := append(repeat(12, pattern...), EncodeECALL())

	return Benchmark{
		Name:                 "mixed_stream",
		Description:          "Repeating 16/32/32/16/16 pattern - measures realignment under a realistic mix",
		Program:              BuildProgram(instrs...),
		ExpectedHalt:         core.HaltEnvironmentCall,
		ExpectedInstructions: 61,
	}
}

// 5. Jump Chain - every other word is skipped by a JAL
func jumpChain() Benchmark {
	instrs := repeat(16, EncodeJAL(0, 8), 0x0000, 0x0000)
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:                 "jump_chain",
		Description:          "16 JALs over dead words - measures redirect and refill cost",
		Program:              BuildProgram(instrs...),
		ExpectedHalt:         core.HaltEnvironmentCall,
		ExpectedInstructions: 17,
	}
}

// 6. Unaligned Jumps - C.J targets alternate between word and halfword offsets
func unalignedJumps() Benchmark {
	// Each block is C.J +6, four dead bytes, then an ADDI: ten bytes, so
	// consecutive blocks start at alternating alignments.
	block := []uint32{EncodeCJ(6), 0x0000, 0x0000, EncodeADDI(10, 10, 1)}
	instrs := append(repeat(8, block...), EncodeECALL())

	return Benchmark{
		Name:                 "unaligned_jumps",
		Description:          "8 C.J hops onto halfword-aligned ADDIs - measures refill after unaligned redirects",
		Program:              BuildProgram(instrs...),
		ExpectedHalt:         core.HaltEnvironmentCall,
		ExpectedInstructions: 17,
	}
}

// 7. Tight Loop - a three-instruction loop closed by a backward JAL
func tightLoop() Benchmark {
	return Benchmark{
		Name:        "tight_loop",
		Description: "C.ADDI; ADDI; JAL -6 run for 300 instructions - measures loop refill",
		Program: BuildProgram(
			EncodeCADDI(10, 1),
			EncodeADDI(11, 11, 1),
			EncodeJAL(0, -6),
		),
		MaxInstructions:      300,
		ExpectedHalt:         core.HaltInstructionLimit,
		ExpectedInstructions: 300,
	}
}

// 8. Faulting Tail - the stream runs into an access fault
func faultingTail() Benchmark {
	return Benchmark{
		Name:        "faulting_tail",
		Description: "8 ADDIs followed by an unmapped word - measures fault delivery",
		Setup: func(port *emu.FetchPort) {
			port.AddFaultRegion(ProgramAddr+32, ProgramAddr+36, emu.ExcAccessFault)
		},
		Program:              BuildProgram(repeat(8, EncodeADDI(10, 10, 1))...),
		ExpectedHalt:         core.HaltFault,
		ExpectedInstructions: 9,
	}
}

// 9. Code Sweep - straight-line code three times the default I-cache size
func codeSweep() Benchmark {
	instrs := repeat(2048, EncodeCADDI(10, 1), EncodeADDI(11, 11, 1))
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:                 "code_sweep",
		Description:          "12KB of straight-line code - measures I-cache miss cost",
		Program:              BuildProgram(instrs...),
		ExpectedHalt:         core.HaltEnvironmentCall,
		ExpectedInstructions: 4097,
	}
}
