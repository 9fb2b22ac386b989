/*
 * NVDiag - Video BIOS tests.
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
	"os"
	"path/filepath"
	"testing"
)

func makeROM(blocks int, total int) []byte {
	rom := make([]byte, total)
	rom[0] = 0x55
	rom[1] = 0xaa
	rom[2] = byte(blocks)
	return rom
}

// Test ROM header validation.
func TestValidateROM(t *testing.T) {
	rom, err := ValidateROM(makeROM(2, 2048))
	if err != nil {
		t.Fatalf("ValidateROM failed: %v", err)
	}
	if len(rom) != 1024 {
		t.Errorf("ValidateROM length got: %d expected: 1024", len(rom))
	}
	if _, err := ValidateROM([]byte{0, 0, 1}); !errors.Is(err, ErrSignature) {
		t.Errorf("Bad signature got: %v expected: %v", err, ErrSignature)
	}
	if _, err := ValidateROM(makeROM(0, 512)); !errors.Is(err, ErrSignature) {
		t.Errorf("Zero length got: %v expected: %v", err, ErrSignature)
	}
	if _, err := ValidateROM(makeROM(4, 1024)); err == nil {
		t.Errorf("Truncated image accepted")
	}
}

// Test reading through the sysfs rom attribute.
func TestSysfsROM(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rom"), makeROM(1, 512), 0o644); err != nil {
		t.Fatal(err)
	}
	s := &Sysfs{Dir: dir}
	if _, err := s.Inquire(InquireRevision); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Inquire got: %v expected: %v", err, ErrUnsupported)
	}
	// A regular file gets overwritten by the enable write.
	if _, err := s.ReadROM(); err == nil {
		t.Errorf("ReadROM of overwritten file succeeded")
	}

	var u Unavailable
	if _, err := u.ReadROM(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Unavailable ReadROM got: %v", err)
	}
}
