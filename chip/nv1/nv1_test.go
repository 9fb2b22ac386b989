/*
 * NVDiag - NV1 bring-up tests.
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
	"testing"

	"github.com/rcornwell/nvdiag/bus"
	"github.com/rcornwell/nvdiag/chip"
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/emu/testcard"
	"github.com/rcornwell/nvdiag/hal"
)

func TestBringup(t *testing.T) {
	card := testcard.New(device.VendorNVIDIA, 0x0008, 0x00010101)
	card.Bar0Size = 0x2000000
	card.Regs[pfbBoot0] = 2
	card.Regs[straps] = chip.StrapCrystal
	dev, err := device.DetectDevice(card, device.Catalog)
	if err != nil {
		t.Fatalf("DetectDevice failed: %v", err)
	}
	env := hal.Env{Bus: card, Mapper: card, Fallback: device.DefaultFallback}
	if err := hal.Resolve(device.GenNV1).Init(dev, env); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if card.Index(testcard.EvConfigWrite, uint32(bus.ConfigBAR1)) >= 0 {
		t.Errorf("NV1 programmed a second BAR")
	}
	if dev.VRAM.Phys() != uint64(device.DefaultFallback.Regs)+uint64(vramOffset) {
		t.Errorf("Framebuffer got: %x expected: BAR0 + %x", dev.VRAM.Phys(), vramOffset)
	}
	if dev.VRAMSize != 4<<20 || dev.CrystalHz != chip.Crystal14318 {
		t.Errorf("Straps got: %x %d", dev.VRAMSize, dev.CrystalHz)
	}
	if card.Index(testcard.EvRegWrite, chip.PRAMDACSelect) >= 0 {
		t.Errorf("NV1 touched clock select")
	}
	if dev.RAMIN != nil {
		t.Errorf("NV1 has instance memory")
	}
}

func TestSupport(t *testing.T) {
	tbl := hal.Resolve(device.GenNV1)
	for _, op := range []hal.Op{hal.OpInterrupt, hal.OpDumpFIFO, hal.OpSubmitObject} {
		if tbl.Supports(op) {
			t.Errorf("NV1 supports %s", op)
		}
	}
	for _, op := range []hal.Op{hal.OpInit, hal.OpShutdown, hal.OpFIFOState, hal.OpGraphState} {
		if !tbl.Supports(op) {
			t.Errorf("NV1 missing %s", op)
		}
	}
}
