// Package insts provides RISC-V instruction length and control-flow decoding.
//
// The fetch front end only needs to know how long an instruction is and
// whether it redirects the instruction stream. This package implements:
//   - Length decoding: 16-bit (C extension) versus 32-bit encodings
//   - Direct jumps: JAL, C.J, C.JAL
//   - Conditional branches: BEQ..BGEU, C.BEQZ, C.BNEZ
//   - Indirect jumps: JALR, C.JR, C.JALR
//   - Environment calls: ECALL, EBREAK, C.EBREAK
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x0080006F) // JAL x0, 8
//	fmt.Printf("Op: %v, Size: %d, Target: 0x%x\n", inst.Op, inst.Size, inst.Target(0x1000))
package insts

// IsCompressed reports whether the halfword starts a 16-bit instruction.
// 32-bit encodings have both low-order bits set.
func IsCompressed(half uint16) bool {
	return half&0x3 != 0x3
}

// Length returns the instruction length in bytes given its first halfword.
func Length(half uint16) uint32 {
	if IsCompressed(half) {
		return 2
	}
	return 4
}
