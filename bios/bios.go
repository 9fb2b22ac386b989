/*
 * NVDiag - Video BIOS services.
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

package bios

import (
	"errors"
	"fmt"
)

// Inquiry functions understood by the NV video BIOS.
const (
	InquireRevision uint16 = 0x4f14 // OEM extension, returns silicon revision in BL.
)

var (
	ErrUnsupported = errors.New("BIOS service not available")
	ErrSignature   = errors.New("ROM signature not found")
)

// Service provides calls into the card's video BIOS.
type Service interface {
	// Inquire issues a BIOS inquiry call and returns its result.
	Inquire(function uint16) (uint32, error)

	// ReadROM returns the boot ROM image.
	ReadROM() ([]byte, error)
}

// Unavailable is a Service for environments without BIOS access.
type Unavailable struct{}

func (Unavailable) Inquire(uint16) (uint32, error) { return 0, ErrUnsupported }
func (Unavailable) ReadROM() ([]byte, error)       { return nil, ErrUnsupported }

// ValidateROM checks the option ROM header and returns the image
// trimmed to its declared length.
func ValidateROM(rom []byte) ([]byte, error) {
	if len(rom) < 3 || rom[0] != 0x55 || rom[1] != 0xaa {
		return nil, ErrSignature
	}
	size := int(rom[2]) * 512
	if size == 0 {
		return nil, fmt.Errorf("%w: zero length image", ErrSignature)
	}
	if size > len(rom) {
		return nil, fmt.Errorf("ROM image truncated: have %d bytes, header declares %d", len(rom), size)
	}
	return rom[:size], nil
}
