/*
 * NVDiag - NV1 (STG2000) bring-up.
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

package nv1

import (
	"github.com/rcornwell/nvdiag/chip"
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/dump"
	"github.com/rcornwell/nvdiag/hal"
)

// NV1 decodes one 32 MiB BAR, registers in the lower half and the
// framebuffer in the upper half.
const (
	regsSize    uint32 = 0x1000000
	vramOffset  uint32 = 0x1000000
	pfbBoot0    uint32 = 0x600000
	straps      uint32 = 0x608000
	pfifoCaches uint32 = 0x002500
)

var regExclusions = dump.ExclusionList{
	{Start: 0x110000, End: 0x11ffff}, // PROM shadow, reads stall the bus.
	{Start: 0x601000, End: 0x601fff}, // Real mode VGA access.
	{Start: 0x800000, End: 0xffffff}, // USER.
}

var layout = chip.Layout{
	RegsSize:   regsSize,
	VRAMOffset: vramOffset,
	Straps:     straps,
	MemSize:    memSize,
}

// PFB_BOOT_0 bits 1:0.
var memSizes = [4]uint32{1 << 20, 2 << 20, 4 << 20, 4 << 20}

func memSize(r *chip.Regs) uint32 {
	return memSizes[r.Read(pfbBoot0)&3]
}

func initChip(dev *device.Context, env hal.Env) error {
	return chip.Bringup(dev, env, &layout)
}

func shutdown(dev *device.Context) error {
	return chip.Shutdown(dev, &layout)
}

// NV1 has no hash table or context area to program.
func fifoState(dev *device.Context, state hal.State) error {
	r := chip.NewRegs(dev.Regs)
	switch state {
	case hal.StateInit, hal.StateReset:
		r.Write(pfifoCaches, 0)
		r.Write(chip.PFIFOIntr0, 0xffffffff)
		r.Write(pfifoCaches, 1)
	case hal.StateRender:
		r.Write(pfifoCaches, 1)
	case hal.StateModeSwitch, hal.StateShutdown:
		r.Write(pfifoCaches, 0)
	}
	return r.Err()
}

// Ops returns the NV1 capability table.
func Ops() hal.Ops {
	return hal.Ops{
		Init:          initChip,
		Shutdown:      shutdown,
		FIFOState:     fifoState,
		GraphState:    chip.GraphState,
		RegExclusions: regExclusions,
	}
}

func init() {
	hal.Register(device.GenNV1, Ops())
}
