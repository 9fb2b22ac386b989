/*
 * NVDiag - Clock coefficient handling.
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
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/util/debug"
)

// ClockRoundTrip snapshots the three clock synthesizers and the source
// select, switches every clock to software coefficients, then writes the
// snapshot back. The synthesizers must be rewritten after the switch or
// the chip runs from stale coefficients.
func ClockRoundTrip(r *Regs, pll *device.PLL, allSoftware uint32) error {
	pll.Select = r.Read(PRAMDACSelect)
	pll.NVPLL = r.Read(PRAMDACNVPLL)
	pll.MPLL = r.Read(PRAMDACMPLL)
	pll.VPLL = r.Read(PRAMDACVPLL)
	if err := r.Err(); err != nil {
		return err
	}
	debug.Debugf("CHIP", debugMsk, debugClock, "select %08x nv %08x m %08x v %08x",
		pll.Select, pll.NVPLL, pll.MPLL, pll.VPLL)

	r.Write(PRAMDACSelect, allSoftware)
	r.Write(PRAMDACNVPLL, pll.NVPLL)
	r.Write(PRAMDACMPLL, pll.MPLL)
	r.Write(PRAMDACVPLL, pll.VPLL)
	if err := r.Err(); err != nil {
		return err
	}
	pll.Valid = true
	return nil
}

// RestoreClock returns the source select to its bring-up value. Nothing
// is written if bring-up never reached the clock step.
func RestoreClock(r *Regs, pll *device.PLL) {
	if !pll.Valid {
		debug.Debugf("CHIP", debugMsk, debugClock, "no clock snapshot, select left alone")
		return
	}
	debug.Debugf("CHIP", debugMsk, debugClock, "restore select %08x", pll.Select)
	r.Write(PRAMDACSelect, pll.Select)
}

// PLLFrequency computes a synthesizer output from its coefficients:
// crystal * N / (M << P).
func PLLFrequency(crystal, coeff uint32) uint32 {
	m := coeff & 0xff
	n := (coeff >> 8) & 0xff
	p := (coeff >> 16) & 0x7
	if m == 0 {
		return 0
	}
	return uint32(uint64(crystal) * uint64(n) / uint64(m<<p))
}
