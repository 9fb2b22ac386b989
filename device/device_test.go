/*
 * NVDiag - Device identification tests.
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

package device

import (
	"errors"
	"testing"

	"github.com/rcornwell/nvdiag/bus"
	config "github.com/rcornwell/nvdiag/config/configparser"
	"github.com/rcornwell/nvdiag/emu/testcard"
)

type classTest struct {
	boot0 uint32
	gen   Generation
}

var classTests = []classTest{
	{0x00010100, GenNV1},
	{0x000101ff, GenNV1},
	{0x00020000, GenNV2},
	{0x00030100, GenNV3},
	{0x00030110, GenNV3},
	{0x00030120, GenNV3}, // Shared by NV3 and NV3T.
	{0x00030121, GenNV3T},
	{0x0003ffff, GenNV3T},
	{0x20004000, GenNV4},
	{0x20154000, GenNV5},
	{0x01000000, GenNV10},
	{0x011000a1, GenNV11},
	{0x015000a2, GenNV15},
	{0x017200a1, GenNV17},
	{0x018000a1, GenNV17},
	{0x020000a3, GenNV20},
	{0x025000a2, GenNV25},
	{0x031100a1, GenNV30},
	{0x040000a1, GenNV40},
	{0x00000000, GenUnknown},
	{0x000100ff, GenUnknown},
	{0x20003fff, GenUnknown},
	{0xffffffff, GenUnknown},
}

// Test classification of boot register values.
func TestClassify(t *testing.T) {
	for _, test := range classTests {
		g := ClassifyGeneration(test.boot0)
		if g != test.gen {
			t.Errorf("Classify %08x got: %s expected: %s", test.boot0, g, test.gen)
		}
		if again := ClassifyGeneration(test.boot0); again != g {
			t.Errorf("Classify %08x not repeatable got: %s expected: %s", test.boot0, again, g)
		}
	}
}

// Every range boundary classifies to exactly the first range holding it.
func TestClassifyBoundaries(t *testing.T) {
	for i, r := range generationRanges {
		for _, v := range []uint32{r.low, r.high} {
			expected := r.gen
			for _, p := range generationRanges[:i] {
				if v >= p.low && v <= p.high {
					expected = p.gen
					break
				}
			}
			if g := ClassifyGeneration(v); g != expected {
				t.Errorf("Classify boundary %08x got: %s expected: %s", v, g, expected)
			}
		}
	}
}

// Specific entries must shadow the generic range covering them.
func TestCatalogOrder(t *testing.T) {
	card := testcard.New(VendorNVIDIA, 0x002c, 0x20154000)
	ctx, err := DetectDevice(card, Catalog)
	if err != nil {
		t.Fatalf("DetectDevice failed: %v", err)
	}
	if ctx.Entry.Name != "Vanta" {
		t.Errorf("Detect 002c got: %s expected: Vanta", ctx.Entry.Name)
	}

	card = testcard.New(VendorNVIDIA, 0x0029, 0x20154000)
	ctx, err = DetectDevice(card, Catalog)
	if err != nil {
		t.Fatalf("DetectDevice failed: %v", err)
	}
	if ctx.Entry.Name != "RIVA TNT2" || ctx.DeviceID != 0x0029 {
		t.Errorf("Detect 0029 got: %s %04x expected: RIVA TNT2 0029", ctx.Entry.Name, ctx.DeviceID)
	}
	if ctx.Location != card.Loc {
		t.Errorf("Detect location got: %s expected: %s", ctx.Location, card.Loc)
	}
}

func TestDetectNotFound(t *testing.T) {
	card := testcard.New(0x8086, 0x7190, 0)
	ctx, err := DetectDevice(card, Catalog)
	if !errors.Is(err, ErrNotFound) || ctx != nil {
		t.Errorf("Detect of foreign device got: %v %v", ctx, err)
	}
	if len(card.Events) != 0 {
		t.Errorf("Detect touched hardware: %v", card.Events)
	}
}

// Unprogrammed BAR0 must be enabled and programmed before it is mapped.
func TestIdentifyUnprogrammed(t *testing.T) {
	card := testcard.New(VendorNVSGS, 0x0018, 0x00030100)
	ctx, err := DetectDevice(card, Catalog)
	if err != nil {
		t.Fatalf("DetectDevice failed: %v", err)
	}
	if err := ctx.Identify(card, card, DefaultFallback); err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	cmd := card.Index(testcard.EvConfigWrite, uint32(bus.ConfigCommand))
	bar := card.Index(testcard.EvConfigWrite, uint32(bus.ConfigBAR0))
	mp := card.Index(testcard.EvMap, DefaultFallback.Regs)
	if cmd < 0 || bar < 0 || mp < 0 {
		t.Fatalf("Identify events missing: %v", card.Events)
	}
	if !(cmd < bar && bar < mp) {
		t.Errorf("Identify order got: command %d bar %d map %d", cmd, bar, mp)
	}
	bits := card.Events[cmd].Value
	want := uint32(bus.CommandIO | bus.CommandMemory | bus.CommandBusMaster)
	if bits&want != want {
		t.Errorf("Command register got: %04x expected: %04x", bits, want)
	}
	if card.Count(testcard.EvUnmap) != 1 {
		t.Errorf("Probe window not unmapped")
	}
	if ctx.Generation != GenNV3 || ctx.Boot0 != 0x00030100 {
		t.Errorf("Identify got: %s %08x expected: NV3 00030100", ctx.Generation, ctx.Boot0)
	}
}

// A programmed BAR is only masked, never rewritten.
func TestIdentifyProgrammed(t *testing.T) {
	card := testcard.New(VendorNVIDIA, 0x0020, 0x20004000)
	card.SetBAR(bus.ConfigBAR0, 0xe0000008)
	ctx, err := DetectDevice(card, Catalog)
	if err != nil {
		t.Fatalf("DetectDevice failed: %v", err)
	}
	if err := ctx.Identify(card, card, DefaultFallback); err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if n := card.Count(testcard.EvConfigWrite); n != 0 {
		t.Errorf("Config writes got: %d expected: 0", n)
	}
	if card.Index(testcard.EvMap, 0xe0000000) < 0 {
		t.Errorf("Probe not mapped at masked base: %v", card.Events)
	}
	if ctx.Generation != GenNV4 {
		t.Errorf("Identify got: %s expected: NV4", ctx.Generation)
	}
}

func TestIdentifyMapFailure(t *testing.T) {
	card := testcard.New(VendorNVIDIA, 0x0020, 0x20004000)
	card.MapFail = errors.New("permission denied")
	ctx, _ := DetectDevice(card, Catalog)
	if err := ctx.Identify(card, card, DefaultFallback); err == nil {
		t.Errorf("Identify with failing mapper succeeded")
	}
	if ctx.Generation != GenNV4 || ctx.Boot0 != 0 {
		t.Errorf("Identify failure altered context: %s", ctx)
	}
}

func TestInitializedOnce(t *testing.T) {
	ctx := &Context{}
	if err := ctx.MarkInitialized(); err != nil {
		t.Errorf("First MarkInitialized failed: %v", err)
	}
	if err := ctx.MarkInitialized(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("Second MarkInitialized got: %v expected: %v", err, ErrAlreadyInitialized)
	}
	if !ctx.Initialized() {
		t.Errorf("Context not initialized")
	}
}

func TestBaseDirectives(t *testing.T) {
	saved := Configured
	defer func() { Configured = saved }()

	if err := config.ParseLine("REGBASE e0000000"); err != nil {
		t.Errorf("REGBASE failed: %v", err)
	}
	if err := config.ParseLine("VRAMBASE 0xd0000000"); err != nil {
		t.Errorf("VRAMBASE failed: %v", err)
	}
	if Configured.Regs != 0xe0000000 || Configured.VRAM != 0xd0000000 {
		t.Errorf("Fallback got: %08x %08x expected: e0000000 d0000000", Configured.Regs, Configured.VRAM)
	}
	if err := config.ParseLine("REGBASE e0100000"); err == nil {
		t.Errorf("REGBASE accepted unaligned address")
	}
	if DefaultFallback.Regs != 0xfd000000 {
		t.Errorf("Default changed got: %08x", DefaultFallback.Regs)
	}
}
