/*
 * NVDiag - NV10 family (GeForce 256, GeForce2, GeForce4 MX) bring-up.
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

package nv10

import (
	"github.com/rcornwell/nvdiag/bus"
	"github.com/rcornwell/nvdiag/chip"
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/dump"
	"github.com/rcornwell/nvdiag/hal"
)

const selectAllSoftware uint32 = 0x10000700

const (
	ramhtConfig uint32 = 0x03000100
	ramroConfig uint32 = 0x00000112
	ramfcConfig uint32 = 0x00000114
)

var regExclusions = dump.ExclusionList{
	{Start: 0x001800, End: 0x0018ff}, // PBUS mirror of configuration space.
	{Start: 0x0c0000, End: 0x0c7fff}, // VGA sequencer and graphics controller.
	{Start: 0x601000, End: 0x601fff}, // PRMCIO.
	{Start: 0x603000, End: 0x603fff}, // PRMCIO for the second head.
	{Start: 0x681000, End: 0x681fff}, // PRMDIO.
	{Start: 0x800000, End: 0xffffff}, // USER.
}

var layout = chip.Layout{
	RegsSize:    0x1000000,
	VRAMBar:     bus.ConfigBAR1,
	Straps:      chip.PEXTDEVBoot0,
	MemSize:     memSize,
	AllSoftware: selectAllSoftware,
	RAMIN:       chip.PRAMINWindow,
}

// PFB_CSTATUS holds the size in bytes, low bits are flags.
func memSize(r *chip.Regs) uint32 {
	return r.Read(chip.PFBCStatus) & 0xfff00000
}

func initChip(dev *device.Context, env hal.Env) error {
	return chip.Bringup(dev, env, &layout)
}

func shutdown(dev *device.Context) error {
	return chip.Shutdown(dev, &layout)
}

// Ops returns the NV10 family capability table.
func Ops() hal.Ops {
	return hal.Ops{
		Init:      initChip,
		Shutdown:  shutdown,
		Interrupt: chip.Interrupt,
		FIFOState: chip.FIFOHook(chip.FIFOConfig{
			RAMHT: ramhtConfig,
			RAMFC: ramfcConfig,
			RAMRO: ramroConfig,
		}),
		GraphState:    chip.GraphState,
		DumpFIFO:      chip.RegisterDump("fifo", chip.Window{Base: 0x2000, Size: 0x2000}, regExclusions),
		RegExclusions: regExclusions,
	}
}

func init() {
	for _, gen := range []device.Generation{device.GenNV10, device.GenNV11, device.GenNV15, device.GenNV17} {
		hal.Register(gen, Ops())
	}
}
