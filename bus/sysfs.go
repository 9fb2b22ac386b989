/*
 * NVDiag - Linux sysfs PCI bus access.
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
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultSysfsRoot is where the kernel exposes PCI functions.
const DefaultSysfsRoot = "/sys/bus/pci/devices"

// Sysfs accesses configuration space through the kernel's per-function
// config attribute. Writes beyond the first 64 bytes need root.
type Sysfs struct {
	root string
}

// NewSysfs returns a bus rooted at root, or DefaultSysfsRoot if empty.
func NewSysfs(root string) *Sysfs {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &Sysfs{root: root}
}

// Path returns the sysfs directory of a function.
func (s *Sysfs) Path(loc Location) string {
	return filepath.Join(s.root, loc.String())
}

// ParseLocation parses a "dddd:bb:ss.f" name.
func ParseLocation(name string) (Location, error) {
	var dom, bus, slot, fn uint
	_, err := fmt.Sscanf(name, "%04x:%02x:%02x.%01x", &dom, &bus, &slot, &fn)
	if err != nil {
		return Location{}, fmt.Errorf("bad PCI location %q: %w", name, err)
	}
	return Location{Domain: uint16(dom), Bus: uint8(bus), Slot: uint8(slot), Function: uint8(fn)}, nil
}

func readHexFile(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(string(data)), "0x"), 16, 32)
}

// FindDevice scans functions in bus order.
func (s *Sysfs) FindDevice(vendor, device uint16) (Location, bool) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return Location{}, false
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		dir := filepath.Join(s.root, name)
		v, err := readHexFile(filepath.Join(dir, "vendor"))
		if err != nil || uint16(v) != vendor {
			continue
		}
		d, err := readHexFile(filepath.Join(dir, "device"))
		if err != nil || uint16(d) != device {
			continue
		}
		loc, err := ParseLocation(name)
		if err != nil {
			continue
		}
		return loc, true
	}
	return Location{}, false
}

func (s *Sysfs) read(loc Location, offset uint16, buf []byte) error {
	if err := CheckAccess(offset, len(buf)); err != nil {
		return err
	}
	fd, err := unix.Open(filepath.Join(s.Path(loc), "config"), unix.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("open config %s: %w", loc, err)
	}
	defer unix.Close(fd)
	n, err := unix.Pread(fd, buf, int64(offset))
	if err != nil {
		return fmt.Errorf("read config %s+0x%02x: %w", loc, offset, err)
	}
	if n != len(buf) {
		return fmt.Errorf("short config read %s+0x%02x", loc, offset)
	}
	return nil
}

func (s *Sysfs) write(loc Location, offset uint16, buf []byte) error {
	if err := CheckAccess(offset, len(buf)); err != nil {
		return err
	}
	fd, err := unix.Open(filepath.Join(s.Path(loc), "config"), unix.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open config %s: %w", loc, err)
	}
	defer unix.Close(fd)
	n, err := unix.Pwrite(fd, buf, int64(offset))
	if err != nil {
		return fmt.Errorf("write config %s+0x%02x: %w", loc, offset, err)
	}
	if n != len(buf) {
		return fmt.Errorf("short config write %s+0x%02x", loc, offset)
	}
	return nil
}

func (s *Sysfs) ReadConfig8(loc Location, offset uint16) (uint8, error) {
	var buf [1]byte
	err := s.read(loc, offset, buf[:])
	return buf[0], err
}

func (s *Sysfs) ReadConfig16(loc Location, offset uint16) (uint16, error) {
	var buf [2]byte
	err := s.read(loc, offset, buf[:])
	return binary.LittleEndian.Uint16(buf[:]), err
}

func (s *Sysfs) ReadConfig32(loc Location, offset uint16) (uint32, error) {
	var buf [4]byte
	err := s.read(loc, offset, buf[:])
	return binary.LittleEndian.Uint32(buf[:]), err
}

func (s *Sysfs) WriteConfig8(loc Location, offset uint16, value uint8) error {
	return s.write(loc, offset, []byte{value})
}

func (s *Sysfs) WriteConfig16(loc Location, offset uint16, value uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	return s.write(loc, offset, buf[:])
}

func (s *Sysfs) WriteConfig32(loc Location, offset uint16, value uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	return s.write(loc, offset, buf[:])
}
