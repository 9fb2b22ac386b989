/*
 * NVDiag - Region dump tests.
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

package dump

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rcornwell/nvdiag/aperture"
)

var errFault = errors.New("bus fault")

// Simulated region, every word holds a value derived from its offset.
type testRegion struct {
	size   uint32
	reads  []uint32
	failAt int64
	onRead func(offset uint32)
}

func newRegion(size uint32) *testRegion {
	return &testRegion{size: size, failAt: -1}
}

func wordAt(offset uint32) uint32 {
	return 0x5a000000 | offset
}

func (r *testRegion) Size() uint32 { return r.size }

func (r *testRegion) Read32(offset uint32) (uint32, error) {
	if r.onRead != nil {
		r.onRead(offset)
	}
	if int64(offset) == r.failAt {
		return 0, errFault
	}
	r.reads = append(r.reads, offset)
	return wordAt(offset), nil
}

func readWords(t *testing.T, path string) []uint32 {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Unable to read dump: %v", err)
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words
}

// Region with no exclusions matches the hardware word for word.
func TestDumpExact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regs.bin")
	src := newRegion(0x1000)
	opts := Options{ChunkSize: 0x100, MaxSize: 0x10000}
	if err := opts.DumpRegion(src, 0x400, nil, path); err != nil {
		t.Fatalf("DumpRegion failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0x400 {
		t.Errorf("Dump size got: %x expected: %x", info.Size(), 0x400)
	}
	for i, w := range readWords(t, path) {
		off := uint32(i * 4)
		if w != wordAt(off) {
			t.Errorf("Dump word %x got: %08x expected: %08x", off, w, wordAt(off))
		}
	}
	if len(src.reads) != 0x100 {
		t.Errorf("Reads got: %d expected: %d", len(src.reads), 0x100)
	}
}

// Words from the range start through its end are replaced and never read.
func TestDumpExclusionBoundaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regs.bin")
	src := newRegion(0x100)
	excl := ExclusionList{{Start: 0x40, End: 0x5f}}
	opts := Options{ChunkSize: 0x20}
	if err := opts.DumpRegion(src, 0x100, excl, path); err != nil {
		t.Fatalf("DumpRegion failed: %v", err)
	}
	words := readWords(t, path)
	checks := []struct {
		offset   uint32
		excluded bool
	}{
		{0x3c, false}, // start - 1
		{0x40, true},  // start
		{0x5c, true},  // end
		{0x60, false}, // end + 1
	}
	for _, c := range checks {
		w := words[c.offset/4]
		expected := wordAt(c.offset)
		if c.excluded {
			expected = Sentinel
		}
		if w != expected {
			t.Errorf("Dump word %x got: %08x expected: %08x", c.offset, w, expected)
		}
	}
	for _, off := range src.reads {
		if off >= 0x40 && off <= 0x5f {
			t.Errorf("Excluded word read at %x", off)
		}
	}
	if len(src.reads) != (0x100-0x20)/4 {
		t.Errorf("Reads got: %d expected: %d", len(src.reads), (0x100-0x20)/4)
	}
}

// Unaligned ranges exclude every word they touch.
func TestExclusionContains(t *testing.T) {
	excl := ExclusionList{{Start: 0x1802, End: 0x1805}, {Start: 0xc0000, End: 0xc7fff}}
	tests := []struct {
		offset uint32
		hit    bool
	}{
		{0x17fc, false},
		{0x1800, true},
		{0x1804, true},
		{0x1808, false},
		{0xbfffc, false},
		{0xc0000, true},
		{0xc7ffc, true},
		{0xc8000, false},
	}
	for _, test := range tests {
		if excl.Contains(test.offset) != test.hit {
			t.Errorf("Contains %x got: %v expected: %v", test.offset, !test.hit, test.hit)
		}
	}
	if ExclusionList(nil).Contains(0) {
		t.Errorf("Empty list excluded offset 0")
	}
}

func TestExclusionWindow(t *testing.T) {
	excl := ExclusionList{{Start: 0x1800, End: 0x18ff}, {Start: 0x601000, End: 0x601fff}, {Start: 0x800000, End: 0xffffff}}
	w := excl.Window(0x600000, 0x2000)
	if len(w) != 1 || w[0] != (Range{Start: 0x1000, End: 0x1fff}) {
		t.Errorf("Window got: %v expected: [001000-001fff]", w)
	}
	w = excl.Window(0x601800, 0x1000)
	if len(w) != 1 || w[0] != (Range{Start: 0, End: 0x7ff}) {
		t.Errorf("Window clipped got: %v expected: [000000-0007ff]", w)
	}
	if w = excl.Window(0x2000, 0x1000); len(w) != 0 {
		t.Errorf("Window outside got: %v", w)
	}
	if w = excl.Window(0xff0000, 0x10000); len(w) != 1 || w[0].End != 0xffff {
		t.Errorf("Window at top got: %v", w)
	}
}

// Each chunk is on disk before the next one is read, and an abort leaves
// every completed chunk in place.
func TestDumpChunkDurability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vram.bin")
	src := newRegion(0x100)
	src.failAt = 0x28
	src.onRead = func(offset uint32) {
		if offset == 0x10 || offset == 0x20 {
			info, err := os.Stat(path)
			if err != nil {
				t.Errorf("Dump file missing during read: %v", err)
				return
			}
			if uint32(info.Size()) != offset {
				t.Errorf("File size at read %x got: %x expected: %x", offset, info.Size(), offset)
			}
		}
	}
	opts := Options{ChunkSize: 0x10}
	err := opts.DumpRegion(src, 0x40, nil, path)
	var re *ReadError
	if !errors.As(err, &re) || re.Offset != 0x28 || !errors.Is(err, errFault) {
		t.Fatalf("DumpRegion error got: %v expected read error at 28", err)
	}
	words := readWords(t, path)
	if len(words) != 8 {
		t.Fatalf("Words on disk got: %d expected: 8", len(words))
	}
	for i, w := range words {
		if w != wordAt(uint32(i*4)) {
			t.Errorf("Durable word %x got: %08x expected: %08x", i*4, w, wordAt(uint32(i*4)))
		}
	}
}

// Output failures abort before the hardware is touched.
func TestDumpOutputError(t *testing.T) {
	src := newRegion(0x100)
	path := filepath.Join(t.TempDir(), "missing", "regs.bin")
	err := DumpRegion(src, 0x100, nil, path)
	var oe *OutputError
	if !errors.As(err, &oe) || oe.Path != path {
		t.Errorf("DumpRegion error got: %v expected output error", err)
	}
	if len(src.reads) != 0 {
		t.Errorf("Hardware read after output failure: %d", len(src.reads))
	}

	path = filepath.Join(t.TempDir(), "regs.bin")
	for _, size := range []uint32{0, 0x102, 0x200} {
		if err := DumpRegion(src, size, nil, path); !errors.Is(err, ErrSize) {
			t.Errorf("DumpRegion size %x got: %v expected: %v", size, err, ErrSize)
		}
	}
	opts := Options{ChunkSize: 0x10, MaxSize: 0x80}
	if err := opts.DumpRegion(src, 0x100, nil, path); !errors.As(err, &oe) {
		t.Errorf("DumpRegion over limit got: %v expected output error", err)
	}
	if len(src.reads) != 0 {
		t.Errorf("Hardware read after size failure: %d", len(src.reads))
	}
}

// An aperture can be dumped directly.
func TestDumpAperture(t *testing.T) {
	buf := make(aperture.Buffer, 0x40)
	for i := uint32(0); i < 0x40; i += 4 {
		buf.Store32(i, ^i)
	}
	ap := aperture.New("ramin", 0xfd700000, 0x40, buf)
	w := &Writer{Dir: t.TempDir(), Prefix: "nv4", Options: Options{ChunkSize: 0x20}}
	path, err := w.Region("RAMHT", ap, 0x40, ExclusionList{{Start: 0, End: 3}})
	if err != nil {
		t.Fatalf("Writer.Region failed: %v", err)
	}
	if filepath.Base(path) != "nv4_ramht.bin" {
		t.Errorf("Dump name got: %s expected: nv4_ramht.bin", filepath.Base(path))
	}
	words := readWords(t, path)
	if words[0] != Sentinel || words[1] != ^uint32(4) {
		t.Errorf("Dump words got: %08x %08x", words[0], words[1])
	}

	ap.Unmap()
	if _, err := w.Region("RAMHT", ap, 0x40, nil); !errors.Is(err, aperture.ErrUnmapped) {
		t.Errorf("Dump of unmapped aperture got: %v expected: %v", err, aperture.ErrUnmapped)
	}
}

func TestWriterBytes(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "out"), "NV3")
	rom := []byte{0x55, 0xaa, 0x01, 0x00}
	path, err := w.Bytes("rom", rom)
	if err != nil {
		t.Fatalf("Writer.Bytes failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != string(rom) {
		t.Errorf("Writer.Bytes content got: %x expected: %x", data, rom)
	}
	if filepath.Base(path) != "nv3_rom.bin" {
		t.Errorf("Writer.Bytes name got: %s", filepath.Base(path))
	}
}
