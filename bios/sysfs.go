/*
 * NVDiag - Video BIOS access through sysfs.
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
	"fmt"
	"os"
	"path/filepath"
)

// Sysfs reads the boot ROM through the kernel's rom attribute. Real mode
// calls are not possible from here, so Inquire is unsupported.
type Sysfs struct {
	Dir string // Function directory under /sys/bus/pci/devices.
}

func (s *Sysfs) Inquire(uint16) (uint32, error) {
	return 0, ErrUnsupported
}

// ReadROM enables the ROM decoder, reads the image and disables it again.
func (s *Sysfs) ReadROM() ([]byte, error) {
	path := filepath.Join(s.Dir, "rom")
	if err := os.WriteFile(path, []byte("1"), 0); err != nil {
		return nil, fmt.Errorf("enable ROM: %w", err)
	}
	data, err := os.ReadFile(path)
	if derr := os.WriteFile(path, []byte("0"), 0); derr != nil && err == nil {
		err = fmt.Errorf("disable ROM: %w", derr)
	}
	if err != nil {
		return nil, err
	}
	return ValidateROM(data)
}
