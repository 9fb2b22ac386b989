/*
 * NVDiag - Memory backed apertures.
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

import "encoding/binary"

// Buffer is a Backing over ordinary memory. Registers read back what was
// last written. It is used for captured images and by tests.
type Buffer []byte

func (b Buffer) Load8(offset uint32) uint8 { return b[offset] }

func (b Buffer) Load16(offset uint32) uint16 {
	return binary.LittleEndian.Uint16(b[offset:])
}

func (b Buffer) Load32(offset uint32) uint32 {
	return binary.LittleEndian.Uint32(b[offset:])
}

func (b Buffer) Store8(offset uint32, value uint8) { b[offset] = value }

func (b Buffer) Store16(offset uint32, value uint16) {
	binary.LittleEndian.PutUint16(b[offset:], value)
}

func (b Buffer) Store32(offset uint32, value uint32) {
	binary.LittleEndian.PutUint32(b[offset:], value)
}

func (b Buffer) Unmap() error { return nil }
