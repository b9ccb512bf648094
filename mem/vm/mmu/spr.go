package mmu

import (
	"fmt"
	"sync"
)

// SPR is the number of a special-purpose register.
type SPR int

// Special-purpose registers that take part in translation and fault
// reporting.
const (
	SPRDSISR SPR = 18
	SPRDAR   SPR = 19
	SPRSRR0  SPR = 26
	SPRSRR1  SPR = 27
	SPRPID   SPR = 48
	SPRPTCR  SPR = 464
	SPRPIR   SPR = 1023
)

var sprNames = map[SPR]string{
	SPRDSISR: "DSISR",
	SPRDAR:   "DAR",
	SPRSRR0:  "SRR0",
	SPRSRR1:  "SRR1",
	SPRPID:   "PID",
	SPRPTCR:  "PTCR",
	SPRPIR:   "PIR",
}

func (s SPR) String() string {
	if name, ok := sprNames[s]; ok {
		return name
	}

	return fmt.Sprintf("SPR%d", int(s))
}

// Machine state register bits.
const (
	MSRLE = uint64(1) << 0
	MSRDR = uint64(1) << 4
	MSRIR = uint64(1) << 5
	MSRPR = uint64(1) << 14
	MSRHV = uint64(1) << 60
	MSRSF = uint64(1) << 63
)

// DefaultMSR is a 64-bit little-endian hypervisor state with data and
// instruction translation on.
const DefaultMSR = MSRSF | MSRHV | MSRIR | MSRDR | MSRLE

// SPRFile gives access to special-purpose registers.
type SPRFile interface {
	Get(spr SPR) uint64
	Set(spr SPR, value uint64)
}

// Registers is the architected register state of one core that the model
// uses. The lock lets a monitor read it while the core runs.
type Registers struct {
	sync.Mutex

	spr map[SPR]uint64
	msr uint64
}

// NewRegisters creates a register file with all SPRs zero and the MSR set
// to DefaultMSR.
func NewRegisters() *Registers {
	return &Registers{
		spr: make(map[SPR]uint64),
		msr: DefaultMSR,
	}
}

// Get returns the value of an SPR.
func (r *Registers) Get(spr SPR) uint64 {
	r.Lock()
	defer r.Unlock()

	return r.spr[spr]
}

// Set updates the value of an SPR.
func (r *Registers) Set(spr SPR, value uint64) {
	r.Lock()
	defer r.Unlock()

	r.spr[spr] = value
}

// MSR returns the machine state register.
func (r *Registers) MSR() uint64 {
	r.Lock()
	defer r.Unlock()

	return r.msr
}

// SetMSR updates the machine state register.
func (r *Registers) SetMSR(msr uint64) {
	r.Lock()
	defer r.Unlock()

	r.msr = msr
}

// Dump returns the named SPRs with their values.
func (r *Registers) Dump() map[string]uint64 {
	r.Lock()
	defer r.Unlock()

	d := make(map[string]uint64, len(r.spr)+1)
	for spr, v := range r.spr {
		d[spr.String()] = v
	}
	d["MSR"] = r.msr

	return d
}
