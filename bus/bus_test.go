/*
 * NVDiag - PCI configuration space tests.
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

package bus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// Build a fake sysfs tree with one function.
func makeTree(t *testing.T, name, vendor, device string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := make([]byte, ConfigSize)
	cfg[0] = 0xde
	cfg[1] = 0x10
	cfg[2] = 0x20
	cfg[3] = 0x00
	cfg[0x10] = 0x00
	cfg[0x13] = 0xfd
	files := map[string][]byte{
		"vendor": []byte(vendor + "\n"),
		"device": []byte(device + "\n"),
		"config": cfg,
	}
	for f, data := range files {
		if err := os.WriteFile(filepath.Join(dir, f), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// Test alignment checking.
func TestCheckAccess(t *testing.T) {
	tests := []struct {
		offset uint16
		width  int
		align  bool
		rng    bool
	}{
		{0x00, 1, false, false},
		{0x03, 1, false, false},
		{0x02, 2, false, false},
		{0x03, 2, true, false},
		{0x10, 4, false, false},
		{0x12, 4, true, false},
		{0xfc, 4, false, false},
		{0xfe, 4, false, true},
		{0x100, 1, false, true},
	}
	for _, tc := range tests {
		err := CheckAccess(tc.offset, tc.width)
		var ae *AlignError
		if errors.As(err, &ae) != tc.align {
			t.Errorf("CheckAccess(%x,%d) align error got: %v expected: %v", tc.offset, tc.width, err, tc.align)
		}
		if errors.Is(err, ErrRange) != tc.rng {
			t.Errorf("CheckAccess(%x,%d) range error got: %v expected: %v", tc.offset, tc.width, err, tc.rng)
		}
	}
}

// Test parsing and printing of locations.
func TestLocation(t *testing.T) {
	loc, err := ParseLocation("0000:01:00.0")
	if err != nil {
		t.Fatalf("ParseLocation failed: %v", err)
	}
	if loc.Bus != 1 || loc.Slot != 0 || loc.Function != 0 {
		t.Errorf("ParseLocation got: %+v", loc)
	}
	if loc.String() != "0000:01:00.0" {
		t.Errorf("Location string got: %s expected: 0000:01:00.0", loc.String())
	}
	if _, err := ParseLocation("bogus"); err == nil {
		t.Errorf("ParseLocation accepted bogus name")
	}
}

// Test finding a device in sysfs.
func TestSysfsFind(t *testing.T) {
	root := makeTree(t, "0000:01:00.0", "0x10de", "0x0020")
	s := NewSysfs(root)
	loc, ok := s.FindDevice(0x10de, 0x0020)
	if !ok {
		t.Fatalf("FindDevice did not find device")
	}
	if loc.Bus != 1 {
		t.Errorf("FindDevice bus got: %d expected: 1", loc.Bus)
	}
	if _, ok := s.FindDevice(0x10de, 0x0028); ok {
		t.Errorf("FindDevice found wrong device")
	}
	if !DevicePresent(s, 0x0020, 0x10de) {
		t.Errorf("DevicePresent returned false")
	}
}

// Test config reads and writes through sysfs.
func TestSysfsConfig(t *testing.T) {
	root := makeTree(t, "0000:01:00.0", "0x10de", "0x0020")
	s := NewSysfs(root)
	loc := Location{Bus: 1}

	v16, err := s.ReadConfig16(loc, ConfigVendorID)
	if err != nil || v16 != 0x10de {
		t.Errorf("ReadConfig16 vendor got: %04x %v expected: 10de", v16, err)
	}
	v32, err := s.ReadConfig32(loc, ConfigBAR0)
	if err != nil || v32 != 0xfd000000 {
		t.Errorf("ReadConfig32 BAR0 got: %08x %v expected: fd000000", v32, err)
	}
	if err := SetCommand(s, loc, CommandMemory|CommandBusMaster); err != nil {
		t.Fatalf("SetCommand failed: %v", err)
	}
	cmd, _ := s.ReadConfig16(loc, ConfigCommand)
	if cmd != CommandMemory|CommandBusMaster {
		t.Errorf("Command got: %04x expected: %04x", cmd, CommandMemory|CommandBusMaster)
	}
	if err := s.WriteConfig8(loc, ConfigIntLine, 0x0b); err != nil {
		t.Fatalf("WriteConfig8 failed: %v", err)
	}
	v8, _ := s.ReadConfig8(loc, ConfigIntLine)
	if v8 != 0x0b {
		t.Errorf("ReadConfig8 got: %02x expected: 0b", v8)
	}

	var ae *AlignError
	if _, err := s.ReadConfig32(loc, 0x11); !errors.As(err, &ae) {
		t.Errorf("Misaligned read not rejected: %v", err)
	}
	if err := s.WriteConfig16(loc, 0x05, 0); !errors.As(err, &ae) {
		t.Errorf("Misaligned write not rejected: %v", err)
	}
}
