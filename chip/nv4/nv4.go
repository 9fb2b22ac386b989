/*
 * NVDiag - NV4 and NV5 (RIVA TNT, TNT2) bring-up.
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

package nv4

import (
	"github.com/rcornwell/nvdiag/bus"
	"github.com/rcornwell/nvdiag/chip"
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/dump"
	"github.com/rcornwell/nvdiag/hal"
)

const selectAllSoftware uint32 = 0x10000700

// Instance memory layout programmed at reset.
const (
	ramhtConfig uint32 = 0x03000100 // 4 KiB hash table at 0x10000, search 128.
	ramroConfig uint32 = 0x00000112 // Runout at 0x11200.
	ramfcConfig uint32 = 0x00000114 // Channel contexts at 0x11400.
)

var regExclusions = dump.ExclusionList{
	{Start: 0x001800, End: 0x0018ff}, // PBUS mirror of configuration space.
	{Start: 0x0c0000, End: 0x0c7fff}, // VGA sequencer and graphics controller.
	{Start: 0x601000, End: 0x601fff}, // PRMCIO.
	{Start: 0x681000, End: 0x681fff}, // PRMDIO, palette access.
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

// PFB_BOOT_0 bits 1:0, zero is the largest configuration.
var memSizes = [4]uint32{32 << 20, 4 << 20, 8 << 20, 16 << 20}

func memSize(r *chip.Regs) uint32 {
	return memSizes[r.Read(chip.PFBBoot0)&3]
}

func initChip(dev *device.Context, env hal.Env) error {
	return chip.Bringup(dev, env, &layout)
}

func shutdown(dev *device.Context) error {
	return chip.Shutdown(dev, &layout)
}

// Ops returns the NV4 capability table, NV5 shares it.
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
		DumpRAMHT:     chip.InstanceDump("ramht", chip.PFIFORAMHT, chip.RAMHTWindow),
		DumpRAMFC:     chip.InstanceDump("ramfc", chip.PFIFORAMFC, chip.RAMFCWindow),
		DumpRAMRO:     chip.InstanceDump("ramro", chip.PFIFORAMRO, chip.RAMROWindow),
		DumpCache:     chip.RegisterDump("cache", chip.Window{Base: chip.PFIFOCache0, Size: chip.PFIFOCacheEnd - chip.PFIFOCache0}, regExclusions),
		RegExclusions: regExclusions,
	}
}

func init() {
	hal.Register(device.GenNV4, Ops())
	hal.Register(device.GenNV5, Ops())
}
