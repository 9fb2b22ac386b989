/*
 * NVDiag - NV3 (RIVA 128) bring-up.
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

package nv3

import (
	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/bus"
	"github.com/rcornwell/nvdiag/chip"
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/dump"
	"github.com/rcornwell/nvdiag/hal"
)

const (
	// All three clocks from software coefficients.
	selectAllSoftware uint32 = 0x00000700

	raminOffset uint32 = 0xc00000 // Instance memory within the memory aperture.
	raminSize   uint32 = 0x100000
	vramMap     uint32 = 0x1000000 // Memory BAR decode size.

	// Instance memory layout programmed at reset.
	ramhtConfig uint32 = 0x00000000 // 4 KiB hash table at 0.
	ramroConfig uint32 = 0x00001200 // 512 byte runout at 0x1200.
	ramfcConfig uint32 = 0x00001400 // Channel contexts at 0x1400.
	objectBase  uint32 = 0x2000     // First object instance.
)

// Register windows that hang or corrupt the chip when read.
var regExclusions = dump.ExclusionList{
	{Start: 0x001800, End: 0x0018ff}, // PBUS mirror of configuration space.
	{Start: 0x0c0000, End: 0x0c7fff}, // VGA sequencer and graphics controller.
	{Start: 0x601000, End: 0x601fff}, // PRMCIO, real mode CRTC access.
	{Start: 0x800000, End: 0xffffff}, // USER, reads pop the channel FIFO.
}

var layout = chip.Layout{
	RegsSize:    0x1000000,
	VRAMBar:     bus.ConfigBAR1,
	VRAMMap:     vramMap,
	Straps:      chip.PEXTDEVBoot0,
	MemSize:     memSize,
	AllSoftware: selectAllSoftware,
	RAMIN:       ramin,
}

// Memory size from PFB_BOOT_0 bits 1:0.
var memSizes = [4]uint32{1 << 20, 2 << 20, 4 << 20, 8 << 20}

func memSize(r *chip.Regs) uint32 {
	return memSizes[r.Read(chip.PFBBoot0)&3]
}

func ramin(dev *device.Context) (*aperture.Aperture, error) {
	return dev.VRAM.Slice("ramin", raminOffset, raminSize)
}

// RAMHT base in bits 15:12, size in bits 17:16.
func ramhtWindow(v uint32) chip.Window {
	return chip.Window{Base: v & 0xf000, Size: 0x1000 << ((v >> 16) & 3)}
}

// RAMFC base in bits 15:9, fixed size.
func ramfcWindow(v uint32) chip.Window {
	return chip.Window{Base: v & 0xfe00, Size: 0x200}
}

// RAMRO base in bits 15:9, bit 16 selects 8 KiB.
func ramroWindow(v uint32) chip.Window {
	return chip.Window{Base: v & 0xfe00, Size: 0x200 << (4 * ((v >> 16) & 1))}
}

func initChip(dev *device.Context, env hal.Env) error {
	return chip.Bringup(dev, env, &layout)
}

func shutdown(dev *device.Context) error {
	return chip.Shutdown(dev, &layout)
}

// Ops returns the NV3 capability table.
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
		DumpRAMHT:     chip.InstanceDump("ramht", chip.PFIFORAMHT, ramhtWindow),
		DumpRAMFC:     chip.InstanceDump("ramfc", chip.PFIFORAMFC, ramfcWindow),
		DumpRAMRO:     chip.InstanceDump("ramro", chip.PFIFORAMRO, ramroWindow),
		DumpCache:     chip.RegisterDump("cache", chip.Window{Base: chip.PFIFOCache0, Size: chip.PFIFOCacheEnd - chip.PFIFOCache0}, regExclusions),
		SubmitObject:  submitObject,
		SubmitMethod:  submitMethod,
		RegExclusions: regExclusions,
	}
}

func init() {
	hal.Register(device.GenNV3, Ops())
	hal.Register(device.GenNV3T, Ops())
}
