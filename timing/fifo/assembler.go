package fifo

import "github.com/sarchlab/rvfetch/insts"

// Selection identifies where the output instruction is taken from.
type Selection uint8

const (
	// SelectBypass takes the instruction from the incoming fetch because
	// the queue is empty.
	SelectBypass Selection = iota
	// SelectSlot0 takes the whole instruction from slot 0.
	SelectSlot0
	// SelectSlot0Slot1 joins the upper half of slot 0 with the lower half
	// of slot 1.
	SelectSlot0Slot1
	// SelectSlot0Incoming joins the upper half of slot 0 with the lower
	// half of the incoming fetch.
	SelectSlot0Incoming
)

// String returns the selection name.
func (s Selection) String() string {
	switch s {
	case SelectBypass:
		return "bypass"
	case SelectSlot0:
		return "slot0"
	case SelectSlot0Slot1:
		return "slot0+slot1"
	case SelectSlot0Incoming:
		return "slot0+incoming"
	default:
		return "unknown"
	}
}

// AssemblerInput is everything the assembler looks at in one cycle.
type AssemblerInput struct {
	Slot0    Entry
	Slot1    Entry
	Incoming Entry

	// Unaligned is bit 1 of the current instruction address.
	Unaligned bool

	// Injection selects the unaligned injection interpretation.
	Injection bool
}

// Assembly is the combinational result of the assembler.
type Assembly struct {
	Selection Selection

	Valid     bool
	Data      uint32
	Err       bool
	ErrPlus2  bool
	ExcTag    ExceptionTag
	LengthErr bool

	// Compressed is the length decision for the current address.
	Compressed bool

	// AlignedCompressed is the length decision for an instruction starting
	// in the lower half of the effective entry.
	AlignedCompressed bool
}

// Assemble builds the output instruction. It is a pure function of its input.
func Assemble(in AssemblerInput) Assembly {
	eff := in.Incoming
	if in.Slot0.Valid {
		eff = in.Slot0
	}

	// A faulting fetch has undefined data, so it is treated as uncompressed.
	alignedCompressed := insts.IsCompressed(eff.lowHalf()) && !eff.Err
	valid := in.Slot0.Valid || in.Incoming.Valid

	if in.Injection || !in.Unaligned {
		a := assembleAligned(in, eff, alignedCompressed)
		a.Valid = valid
		return a
	}

	a := assembleUnaligned(in, eff, valid)
	a.AlignedCompressed = alignedCompressed
	return a
}

func assembleAligned(in AssemblerInput, eff Entry, compressed bool) Assembly {
	upperErr := eff.UpperErr
	if in.Injection {
		upperErr = eff.UpperErr2
	}

	a := Assembly{
		Selection:         SelectSlot0,
		Data:              eff.Data,
		Err:               eff.Err,
		ExcTag:            eff.ExcTag,
		LengthErr:         eff.LowerErr || (upperErr && !compressed),
		Compressed:        compressed,
		AlignedCompressed: compressed,
	}
	if !in.Slot0.Valid {
		a.Selection = SelectBypass
	}

	return a
}

func assembleUnaligned(in AssemblerInput, eff Entry, valid bool) Assembly {
	slot0, slot1, incoming := in.Slot0, in.Slot1, in.Incoming

	compressed := insts.IsCompressed(eff.highHalf()) && !eff.Err

	next := incoming
	if slot1.Valid {
		next = slot1
	}

	a := Assembly{
		Data:       next.Data<<16 | eff.Data>>16,
		Compressed: compressed,
	}

	if slot1.Valid {
		a.Err = (slot1.Err && !compressed) || slot0.Err
		a.ErrPlus2 = slot1.Err && !slot0.Err && !compressed
	} else {
		a.Err = (slot0.Valid && slot0.Err) ||
			(incoming.Err && (!slot0.Valid || !compressed))
		a.ErrPlus2 = incoming.Err && slot0.Valid && !slot0.Err && !compressed
	}

	// An uncompressed unaligned instruction needs both halves.
	if compressed {
		a.Valid = valid
	} else {
		a.Valid = slot1.Valid || (slot0.Valid && incoming.Valid)
	}

	spans := !compressed && slot0.Valid
	a.LengthErr = eff.UpperErr || (spans && next.LowerErr)

	a.ExcTag = eff.ExcTag
	if !eff.Err && !eff.UpperErr && spans && (next.Err || next.LowerErr) {
		a.ExcTag = next.ExcTag
	}

	switch {
	case !slot0.Valid:
		a.Selection = SelectBypass
	case compressed:
		a.Selection = SelectSlot0
	case slot1.Valid:
		a.Selection = SelectSlot0Slot1
	default:
		a.Selection = SelectSlot0Incoming
	}

	return a
}
