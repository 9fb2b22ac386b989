/*
 * NVDiag - Shared bring-up helper tests.
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
	"errors"
	"testing"

	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/device"
)

func newRegs(size uint32) (*Regs, aperture.Buffer) {
	buf := make(aperture.Buffer, size)
	return NewRegs(aperture.New("regs", 0xfd000000, size, buf)), buf
}

// After the first failure nothing else reaches the aperture.
func TestRegsSticky(t *testing.T) {
	r, buf := newRegs(0x100)
	r.Write(0x10, 0x1234)
	if v := r.Read(0x10); v != 0x1234 {
		t.Errorf("Read got: %x expected: %x", v, 0x1234)
	}
	r.Write(0x200, 1)
	var be *aperture.BoundsError
	if !errors.As(r.Err(), &be) {
		t.Fatalf("Out of range write got: %v", r.Err())
	}
	r.Write(0x20, 0x55)
	if buf.Load32(0x20) != 0 {
		t.Errorf("Write after failure reached aperture")
	}
	if v := r.Read(0x10); v != 0 {
		t.Errorf("Read after failure got: %x expected: 0", v)
	}
	r.Modify(0x10, 0xff, 0x1)
	if buf.Load32(0x10) != 0x1234 {
		t.Errorf("Modify after failure changed register")
	}

	if err := NewRegs(nil).Err(); !errors.Is(err, aperture.ErrUnmapped) {
		t.Errorf("Regs with no aperture got: %v", err)
	}
}

// Scramble the synthesizers whenever the source select changes, as some
// boards do.
type scrambleBacking struct {
	aperture.Buffer
}

func (s scrambleBacking) Store32(offset uint32, value uint32) {
	if offset == PRAMDACSelect && s.Buffer.Load32(offset) != value {
		for _, reg := range []uint32{PRAMDACNVPLL, PRAMDACMPLL, PRAMDACVPLL} {
			s.Buffer.Store32(reg, s.Buffer.Load32(reg)+0x100)
		}
	}
	s.Buffer.Store32(offset, value)
}

func TestClockRoundTrip(t *testing.T) {
	buf := scrambleBacking{make(aperture.Buffer, 0x680600)}
	buf.Buffer.Store32(PRAMDACSelect, 0x00000100)
	buf.Buffer.Store32(PRAMDACNVPLL, 0x0001a30b)
	buf.Buffer.Store32(PRAMDACMPLL, 0x0001b40c)
	buf.Buffer.Store32(PRAMDACVPLL, 0x00021a07)
	r := NewRegs(aperture.New("regs", 0xfd000000, 0x680600, buf))

	var pll device.PLL
	if err := ClockRoundTrip(r, &pll, 0x10000700); err != nil {
		t.Fatalf("ClockRoundTrip failed: %v", err)
	}
	if v := buf.Load32(PRAMDACSelect); v != 0x10000700 {
		t.Errorf("Select got: %08x expected: %08x", v, 0x10000700)
	}
	checks := []struct {
		reg   uint32
		value uint32
	}{
		{PRAMDACNVPLL, 0x0001a30b},
		{PRAMDACMPLL, 0x0001b40c},
		{PRAMDACVPLL, 0x00021a07},
	}
	for _, c := range checks {
		if v := buf.Load32(c.reg); v != c.value {
			t.Errorf("PLL %06x got: %08x expected: %08x", c.reg, v, c.value)
		}
	}
	if pll.Select != 0x100 || pll.NVPLL != 0x0001a30b || !pll.Valid {
		t.Errorf("Snapshot got: %+v", pll)
	}

	RestoreClock(r, &pll)
	if v := buf.Load32(PRAMDACSelect); v != 0x100 {
		t.Errorf("Restored select got: %08x expected: %08x", v, 0x100)
	}
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	buf := make(aperture.Buffer, 0x680600)
	buf.Store32(PRAMDACSelect, 0x10000500)
	r := NewRegs(aperture.New("regs", 0xfd000000, 0x680600, buf))

	var pll device.PLL
	RestoreClock(r, &pll)
	if v := buf.Load32(PRAMDACSelect); v != 0x10000500 {
		t.Errorf("Select got: %08x expected: %08x", v, 0x10000500)
	}
	if err := r.Err(); err != nil {
		t.Errorf("Restore error: %v", err)
	}
}

func TestCrystal(t *testing.T) {
	if c := Crystal(0); c != Crystal13500 {
		t.Errorf("Crystal straps 0 got: %d expected: %d", c, Crystal13500)
	}
	if c := Crystal(0x40); c != Crystal14318 {
		t.Errorf("Crystal straps 40 got: %d expected: %d", c, Crystal14318)
	}
}

func TestPLLFrequency(t *testing.T) {
	// 14.31818 MHz * 0xa3 / 0x0b with P = 1.
	f := PLLFrequency(Crystal14318, 0x0001a30b)
	expected := uint32(uint64(Crystal14318) * 0xa3 / (0x0b << 1))
	if f != expected {
		t.Errorf("PLLFrequency got: %d expected: %d", f, expected)
	}
	if PLLFrequency(Crystal14318, 0) != 0 {
		t.Errorf("PLLFrequency with M 0 not zero")
	}
}

func TestInstanceWindows(t *testing.T) {
	if w := RAMHTWindow(0x03000100); w != (Window{Base: 0x10000, Size: 0x1000}) {
		t.Errorf("RAMHT window got: %s", w)
	}
	if w := RAMHTWindow(0x03020100); w.Size != 0x4000 {
		t.Errorf("RAMHT size got: %x expected: %x", w.Size, 0x4000)
	}
	if w := RAMFCWindow(0x114); w.Base != 0x11400 {
		t.Errorf("RAMFC base got: %x expected: %x", w.Base, 0x11400)
	}
	if w := RAMROWindow(0x112); w.Base != 0x11200 || w.Size != 0x200 {
		t.Errorf("RAMRO window got: %s", w)
	}
}
