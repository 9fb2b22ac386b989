/*
 * NVDiag - Chip generation classification.
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

// Generation identifies a family of silicon sharing a bring-up sequence
// and register layout.
type Generation int

const (
	GenUnknown Generation = iota
	GenNV1
	GenNV2
	GenNV3
	GenNV3T
	GenNV4
	GenNV5
	GenNV10
	GenNV11
	GenNV15
	GenNV17
	GenNV20
	GenNV25
	GenNV30
	GenNV40
)

var genNames = map[Generation]string{
	GenUnknown: "unknown",
	GenNV1:     "NV1",
	GenNV2:     "NV2",
	GenNV3:     "NV3",
	GenNV3T:    "NV3T",
	GenNV4:     "NV4",
	GenNV5:     "NV5",
	GenNV10:    "NV10",
	GenNV11:    "NV11",
	GenNV15:    "NV15",
	GenNV17:    "NV17",
	GenNV20:    "NV20",
	GenNV25:    "NV25",
	GenNV30:    "NV30",
	GenNV40:    "NV40",
}

func (g Generation) String() string {
	if name, ok := genNames[g]; ok {
		return name
	}
	return genNames[GenUnknown]
}

// Generations returns every known generation in classification order.
func Generations() []Generation {
	gens := make([]Generation, 0, len(generationRanges))
	for _, r := range generationRanges {
		gens = append(gens, r.gen)
	}
	return gens
}

// An inclusive range of PMC_BOOT_0 values belonging to one generation.
type genRange struct {
	low  uint32
	high uint32
	gen  Generation
}

// Ranges are checked in order, earliest architecture first; they are
// not disjoint. The RIVA 128 C stepping (0x00030120) carries the ZX
// stepping field in its masked implementation bits and matches both NV3
// and NV3T; it must classify as NV3.
var generationRanges = []genRange{
	{0x00010100, 0x000101ff, GenNV1},
	{0x00020000, 0x0002ffff, GenNV2},
	{0x00030000, 0x00030120, GenNV3},
	{0x00030120, 0x0003ffff, GenNV3T},
	{0x20004000, 0x2000ffff, GenNV4},
	{0x20010000, 0x2020ffff, GenNV5},
	{0x01000000, 0x010fffff, GenNV10},
	{0x01100000, 0x011fffff, GenNV11},
	{0x01500000, 0x015fffff, GenNV15},
	{0x01700000, 0x018fffff, GenNV17},
	{0x02000000, 0x020fffff, GenNV20},
	{0x02500000, 0x028fffff, GenNV25},
	{0x03000000, 0x034fffff, GenNV30},
	{0x04000000, 0x04ffffff, GenNV40},
}

// ClassifyGeneration maps a PMC_BOOT_0 value to its generation. It
// depends only on the register value.
func ClassifyGeneration(boot0 uint32) Generation {
	for _, r := range generationRanges {
		if boot0 >= r.low && boot0 <= r.high {
			return r.gen
		}
	}
	return GenUnknown
}

// Stepping returns the stepping field of a PMC_BOOT_0 value.
func Stepping(boot0 uint32) uint8 {
	return uint8(boot0 & 0xff)
}
