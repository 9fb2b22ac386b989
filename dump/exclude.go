/*
 * NVDiag - Dump exclusion ranges.
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

import "fmt"

// Range is an inclusive window of byte offsets.
type Range struct {
	Start uint32
	End   uint32
}

func (r Range) String() string {
	return fmt.Sprintf("%06x-%06x", r.Start, r.End)
}

// Contains reports whether any byte of the word at offset lies inside r.
func (r Range) Contains(offset uint32) bool {
	return offset+3 >= r.Start && offset <= r.End
}

// ExclusionList holds the windows of an aperture that must never be read.
type ExclusionList []Range

// Contains reports whether the word at offset must be skipped.
func (l ExclusionList) Contains(offset uint32) bool {
	for _, r := range l {
		if r.Contains(offset) {
			return true
		}
	}
	return false
}

// Window returns the ranges overlapping [base, base+size), clipped to it
// and rebased so offsets are relative to base.
func (l ExclusionList) Window(base, size uint32) ExclusionList {
	if size == 0 {
		return nil
	}
	last := uint64(base) + uint64(size) - 1
	var out ExclusionList
	for _, r := range l {
		if uint64(r.End) < uint64(base) || uint64(r.Start) > last {
			continue
		}
		start := max(r.Start, base)
		end := uint64(r.End)
		if end > last {
			end = last
		}
		out = append(out, Range{Start: start - base, End: uint32(end) - base})
	}
	return out
}
