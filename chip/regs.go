/*
 * NVDiag - Shared register map and accessor.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package chip

import (
	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/util/debug"
)

// Register offsets within BAR0 shared by NV3 and later.
const (
	PMCBoot0   uint32 = 0x000000 // Manufacture id.
	PMCIntr0   uint32 = 0x000100 // Pending interrupts.
	PMCIntrEn0 uint32 = 0x000140 // Interrupt delivery.
	PMCEnable  uint32 = 0x000200 // Subsystem enables.

	PBUSPCI uint32 = 0x001800 // Mirror of PCI configuration space.

	PFIFOIntr0      uint32 = 0x002100
	PFIFOIntrEn0    uint32 = 0x002140
	PFIFORAMHT      uint32 = 0x002210 // Hash table location and size.
	PFIFORAMFC      uint32 = 0x002214 // Channel context location.
	PFIFORAMRO      uint32 = 0x002218 // Runout area location and size.
	PFIFOCaches     uint32 = 0x002500 // Cache reassignment.
	PFIFOCache0     uint32 = 0x003000 // CACHE0 push/pull and data.
	PFIFOCache1     uint32 = 0x003200 // CACHE1 push/pull.
	PFIFOCache1Pull uint32 = 0x003240
	PFIFOCacheEnd   uint32 = 0x004000

	PFBBoot0   uint32 = 0x100000 // Memory configuration straps.
	PFBCStatus uint32 = 0x10020c // Memory size on NV10 and later.

	PEXTDEVBoot0 uint32 = 0x101000 // Board straps.

	PGRAPHIntr0   uint32 = 0x400100
	PGRAPHIntrEn0 uint32 = 0x400140
	PGRAPHFIFO    uint32 = 0x400720 // Graph FIFO access.

	PRAMDACNVPLL  uint32 = 0x680500 // Core clock coefficients.
	PRAMDACMPLL   uint32 = 0x680504 // Memory clock coefficients.
	PRAMDACVPLL   uint32 = 0x680508 // Pixel clock coefficients.
	PRAMDACSelect uint32 = 0x68050c // Coefficient source select.

	PRAMIN uint32 = 0x700000 // Instance memory window on NV4 and later.
	USER   uint32 = 0x800000 // Channel submission area.
)

// PMC interrupt bits.
const (
	IntrPFIFO  uint32 = 1 << 8
	IntrPGRAPH uint32 = 1 << 12
	IntrPCRTC  uint32 = 1 << 24
	IntrPBUS   uint32 = 1 << 28
)

// PMC_INTR_EN_0 delivery bits.
const (
	IntrEnHardware uint32 = 1
	IntrEnSoftware uint32 = 2
)

// Strap bit selecting the 14.31818 MHz reference.
const StrapCrystal uint32 = 1 << 6

const (
	Crystal13500 uint32 = 13500000
	Crystal14318 uint32 = 14318180
)

// Debug options.
const (
	debugReg = 1 << iota
	debugClock
	debugBar
)

var debugOption = map[string]int{
	"REG":   debugReg,
	"CLOCK": debugClock,
	"BAR":   debugBar,
}

var debugMsk int

// Debug enables a debug option for chip bring-up.
func Debug(opt string) error {
	return debug.SetMask(&debugMsk, debugOption, opt)
}

// Regs is a register accessor that remembers the first failure. After a
// failure no further accesses reach the hardware.
type Regs struct {
	ap  *aperture.Aperture
	err error
}

// NewRegs wraps an aperture.
func NewRegs(ap *aperture.Aperture) *Regs {
	if ap == nil {
		return &Regs{err: aperture.ErrUnmapped}
	}
	return &Regs{ap: ap}
}

// Err returns the first failure.
func (r *Regs) Err() error {
	return r.err
}

// Read returns a register, zero after a failure.
func (r *Regs) Read(offset uint32) uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.ap.Read32(offset)
	if err != nil {
		r.err = err
		return 0
	}
	debug.DebugRegf("CHIP", debugMsk, debugReg, "rd", offset, v)
	return v
}

// Write sets a register.
func (r *Regs) Write(offset, value uint32) {
	if r.err != nil {
		return
	}
	debug.DebugRegf("CHIP", debugMsk, debugReg, "wr", offset, value)
	r.err = r.ap.Write32(offset, value)
}

// Modify clears then sets bits of a register.
func (r *Regs) Modify(offset, clear, set uint32) {
	v := r.Read(offset)
	r.Write(offset, (v&^clear)|set)
}
