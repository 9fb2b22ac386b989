/*
 * NVDiag - Aperture mapping tests.
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

package aperture

import (
	"errors"
	"testing"
)

type testMapper struct {
	mapped   int
	unmapped int
	fail     error
	nilMap   bool
}

type testBacking struct {
	Buffer
	m *testMapper
}

func (b *testBacking) Unmap() error {
	b.m.unmapped++
	return nil
}

func (m *testMapper) Map(_ uint64, size uint32) (Backing, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	if m.nilMap {
		return nil, nil
	}
	m.mapped++
	return &testBacking{Buffer: make(Buffer, size), m: m}, nil
}

// Test that mapping failures are reported.
func TestMapFailure(t *testing.T) {
	m := &testMapper{fail: errors.New("no access")}
	ap, err := Map(m, "regs", 0xfd000000, 0x1000)
	var me *MapError
	if ap != nil || !errors.As(err, &me) {
		t.Errorf("Map failure not reported got: %v %v", ap, err)
	}

	m = &testMapper{nilMap: true}
	ap, err = Map(m, "regs", 0xfd000000, 0x1000)
	if ap != nil || err == nil {
		t.Errorf("Map with nil backing not reported")
	}

	m = &testMapper{}
	if _, err = Map(m, "regs", 0, 0x1000); err == nil {
		t.Errorf("Map of unprogrammed base succeeded")
	}
	if _, err = Map(m, "regs", 0xfd000000, 0); !errors.Is(err, ErrSize) {
		t.Errorf("Map of zero size got: %v expected: %v", err, ErrSize)
	}
	if m.mapped != 0 {
		t.Errorf("Mapper called for invalid request: %d", m.mapped)
	}
}

// Test bounds checking of accesses.
func TestBounds(t *testing.T) {
	m := &testMapper{}
	ap, err := Map(m, "regs", 0xfd000000, 0x100)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := ap.Write32(0xfc, 0x12345678); err != nil {
		t.Errorf("Write32 at last word failed: %v", err)
	}
	v, err := ap.Read32(0xfc)
	if err != nil || v != 0x12345678 {
		t.Errorf("Read32 got: %08x %v expected: 12345678", v, err)
	}
	b, _ := ap.Read8(0xff)
	if b != 0x12 {
		t.Errorf("Read8 got: %02x expected: 12", b)
	}
	h, _ := ap.Read16(0xfc)
	if h != 0x5678 {
		t.Errorf("Read16 got: %04x expected: 5678", h)
	}

	var be *BoundsError
	if _, err := ap.Read32(0x100); !errors.As(err, &be) {
		t.Errorf("Read32 past end not rejected: %v", err)
	}
	if _, err := ap.Read32(0xfe); !errors.As(err, &be) {
		t.Errorf("Read32 misaligned not rejected: %v", err)
	}
	if err := ap.Write16(0xff, 0); !errors.As(err, &be) {
		t.Errorf("Write16 misaligned not rejected: %v", err)
	}
	if err := ap.Write8(0x100, 0); !errors.As(err, &be) {
		t.Errorf("Write8 past end not rejected: %v", err)
	}
	if _, err := ap.Read32(0xfffffffc); !errors.As(err, &be) {
		t.Errorf("Read32 at wrap offset not rejected: %v", err)
	}
}

// Test slices share the mapping and are bounded.
func TestSlice(t *testing.T) {
	m := &testMapper{}
	ap, _ := Map(m, "vram", 0xf8000000, 0x1000)
	sl, err := ap.Slice("ramin", 0x800, 0x800)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if sl.Phys() != 0xf8000800 {
		t.Errorf("Slice phys got: %x expected: f8000800", sl.Phys())
	}
	_ = sl.Write32(0x10, 0xcafe)
	v, _ := ap.Read32(0x810)
	if v != 0xcafe {
		t.Errorf("Slice write not visible got: %x expected: cafe", v)
	}
	if _, err := sl.Read32(0x800); err == nil {
		t.Errorf("Slice read past end succeeded")
	}
	if _, err := ap.Slice("bad", 0x800, 0x801); err == nil {
		t.Errorf("Slice past end succeeded")
	}

	// Unmapping a slice leaves the parent mapped.
	_ = sl.Unmap()
	if m.unmapped != 0 {
		t.Errorf("Slice unmap released parent")
	}
	if _, err := ap.Read32(0); err != nil {
		t.Errorf("Parent read after slice unmap failed: %v", err)
	}

	sl2, _ := ap.Slice("ramht", 0, 0x100)
	_ = ap.Unmap()
	_ = ap.Unmap()
	if m.unmapped != 1 {
		t.Errorf("Unmap count got: %d expected: 1", m.unmapped)
	}
	if _, err := sl2.Read32(0); !errors.Is(err, ErrUnmapped) {
		t.Errorf("Slice read after parent unmap got: %v expected: %v", err, ErrUnmapped)
	}
}
