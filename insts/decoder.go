package insts

// Op represents a control-flow class of instruction.
type Op uint8

// Operations recognized by the decoder.
const (
	OpOther Op = iota
	OpIllegal
	OpJAL
	OpJALR
	OpBranch
	OpECALL
	OpEBREAK
)

// String returns the operation mnemonic.
func (o Op) String() string {
	switch o {
	case OpOther:
		return "other"
	case OpIllegal:
		return "illegal"
	case OpJAL:
		return "jal"
	case OpJALR:
		return "jalr"
	case OpBranch:
		return "branch"
	case OpECALL:
		return "ecall"
	case OpEBREAK:
		return "ebreak"
	default:
		return "unknown"
	}
}

// Format represents an instruction encoding width.
type Format uint8

// Instruction formats.
const (
	FormatStandard   Format = iota // 32-bit encoding
	FormatCompressed               // 16-bit C extension encoding
)

// Instruction represents a decoded instruction.
type Instruction struct {
	Op     Op     // Control-flow class
	Format Format // Encoding width

	// Size is the instruction length in bytes.
	Size uint32

	// Rd is the link register written by JAL/JALR (0 for plain jumps).
	Rd uint8

	// Rs1 is the base register of an indirect jump.
	Rs1 uint8

	// Offset is the PC-relative offset of a JAL or branch.
	Offset int32
}

// Target returns the PC-relative target of a direct jump or branch.
func (i *Instruction) Target(pc uint32) uint32 {
	return pc + uint32(i.Offset)
}

// IsDirectJump reports whether the instruction always jumps to a target
// known at decode time.
func (i *Instruction) IsDirectJump() bool {
	return i.Op == OpJAL
}

// IsHalt reports whether the instruction traps to the environment.
func (i *Instruction) IsHalt() bool {
	return i.Op == OpECALL || i.Op == OpEBREAK
}

// Decoder decodes RISC-V instruction words.
type Decoder struct{}

// NewDecoder creates a new instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes the instruction in word. For a compressed instruction only
// the low halfword is looked at.
func (d *Decoder) Decode(word uint32) *Instruction {
	half := uint16(word)
	if IsCompressed(half) {
		inst := &Instruction{Op: OpOther, Format: FormatCompressed, Size: 2}
		d.decodeCompressed(half, inst)
		return inst
	}

	inst := &Instruction{Op: OpOther, Format: FormatStandard, Size: 4}
	d.decodeStandard(word, inst)
	return inst
}

// decodeStandard decodes 32-bit control-flow instructions.
func (d *Decoder) decodeStandard(word uint32, inst *Instruction) {
	opcode := word & 0x7F
	rd := uint8((word >> 7) & 0x1F)
	rs1 := uint8((word >> 15) & 0x1F)

	switch opcode {
	case 0x6F:
		inst.Op = OpJAL
		inst.Rd = rd
		inst.Offset = jalOffset(word)
	case 0x67:
		inst.Op = OpJALR
		inst.Rd = rd
		inst.Rs1 = rs1
		inst.Offset = signExtend(word>>20, 12)
	case 0x63:
		inst.Op = OpBranch
		inst.Rs1 = rs1
		inst.Offset = branchOffset(word)
	case 0x73:
		switch word {
		case 0x00000073:
			inst.Op = OpECALL
		case 0x00100073:
			inst.Op = OpEBREAK
		}
	}
}

// decodeCompressed decodes 16-bit control-flow instructions (RV32C).
func (d *Decoder) decodeCompressed(half uint16, inst *Instruction) {
	if half == 0 {
		inst.Op = OpIllegal
		return
	}

	funct3 := half >> 13
	quadrant := half & 0x3

	switch quadrant {
	case 0x1:
		switch funct3 {
		case 0x1: // C.JAL
			inst.Op = OpJAL
			inst.Rd = 1
			inst.Offset = cjOffset(half)
		case 0x5: // C.J
			inst.Op = OpJAL
			inst.Offset = cjOffset(half)
		case 0x6, 0x7: // C.BEQZ, C.BNEZ
			inst.Op = OpBranch
			inst.Rs1 = uint8((half>>7)&0x7) + 8
			inst.Offset = cbOffset(half)
		}
	case 0x2:
		if funct3 != 0x4 {
			return
		}
		rs1 := uint8((half >> 7) & 0x1F)
		rs2 := (half >> 2) & 0x1F
		bit12 := (half >> 12) & 0x1
		switch {
		case bit12 == 0 && rs2 == 0 && rs1 != 0: // C.JR
			inst.Op = OpJALR
			inst.Rs1 = rs1
		case bit12 == 1 && rs2 == 0 && rs1 == 0: // C.EBREAK
			inst.Op = OpEBREAK
		case bit12 == 1 && rs2 == 0: // C.JALR
			inst.Op = OpJALR
			inst.Rd = 1
			inst.Rs1 = rs1
		}
	}
}

// jalOffset extracts the J-type immediate: imm[20|10:1|11|19:12].
func jalOffset(word uint32) int32 {
	imm := (word>>31&0x1)<<20 |
		(word>>12&0xFF)<<12 |
		(word>>20&0x1)<<11 |
		(word>>21&0x3FF)<<1
	return signExtend(imm, 21)
}

// branchOffset extracts the B-type immediate: imm[12|10:5] and imm[4:1|11].
func branchOffset(word uint32) int32 {
	imm := (word>>31&0x1)<<12 |
		(word>>7&0x1)<<11 |
		(word>>25&0x3F)<<5 |
		(word>>8&0xF)<<1
	return signExtend(imm, 13)
}

// cjOffset extracts the CJ-format offset[11|4|9:8|10|6|7|3:1|5].
func cjOffset(half uint16) int32 {
	h := uint32(half)
	imm := (h>>12&0x1)<<11 |
		(h>>11&0x1)<<4 |
		(h>>9&0x3)<<8 |
		(h>>8&0x1)<<10 |
		(h>>7&0x1)<<6 |
		(h>>6&0x1)<<7 |
		(h>>3&0x7)<<1 |
		(h>>2&0x1)<<5
	return signExtend(imm, 12)
}

// cbOffset extracts the CB-format offset[8|4:3] and offset[7:6|2:1|5].
func cbOffset(half uint16) int32 {
	h := uint32(half)
	imm := (h>>12&0x1)<<8 |
		(h>>10&0x3)<<3 |
		(h>>5&0x3)<<6 |
		(h>>3&0x3)<<1 |
		(h>>2&0x1)<<5
	return signExtend(imm, 9)
}

// signExtend sign-extends the low bits of v.
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
