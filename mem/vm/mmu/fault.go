package mmu

import "strings"

// A Fault holds the cause bits of a failed translation, positioned as they
// appear in DSISR.
type Fault uint64

// Fault causes.
const (
	FaultNone          Fault = 0
	FaultNoTranslation Fault = 0x40000000
	FaultProtection    Fault = 0x08000000
	FaultBadTree       Fault = 0x00080000
	FaultRCUpdate      Fault = 0x00040000
)

// DSISRStore is OR-ed into DSISR when the faulting access is a store.
const DSISRStore = uint64(0x02000000)

// Instruction storage interrupt cause bits, as they appear in SRR1.
const (
	SRR1NoTranslation = uint64(0x40000000)
	SRR1NoExecute     = uint64(0x10000000)
	SRR1Protection    = uint64(0x08000000)
	SRR1BadTree       = uint64(0x00080000)
)

// srr1MSRMask keeps the MSR bits that are saved into SRR1 on an interrupt.
const srr1MSRMask = uint64(0x87c0ffff) | MSRSF | MSRHV

// DSISR returns the DSISR value that reports this fault for a load or a
// store.
func (f Fault) DSISR(isStore bool) uint64 {
	d := uint64(f)
	if isStore {
		d |= DSISRStore
	}

	return d
}

// SRR1 returns the cause bits an instruction fetch reports for this fault.
// A fetch from a page without execute permission is reported as no-execute.
func (f Fault) SRR1(noExec bool) uint64 {
	switch {
	case f == FaultNone:
		return 0
	case f == FaultNoTranslation:
		return SRR1NoTranslation
	case f == FaultBadTree:
		return SRR1BadTree
	case noExec:
		return SRR1NoExecute
	default:
		return SRR1Protection
	}
}

func (f Fault) String() string {
	if f == FaultNone {
		return "none"
	}

	var causes []string

	if f&FaultNoTranslation != 0 {
		causes = append(causes, "no-translation")
	}

	if f&FaultProtection != 0 {
		causes = append(causes, "protection")
	}

	if f&FaultBadTree != 0 {
		causes = append(causes, "bad-tree")
	}

	if f&FaultRCUpdate != 0 {
		causes = append(causes, "rc-update")
	}

	return strings.Join(causes, "|")
}
