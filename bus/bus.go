/*
 * NVDiag - PCI configuration space access.
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
	"fmt"
)

// Configuration space offsets for a type 0 header.
const (
	ConfigVendorID uint16 = 0x00 // Vendor ID
	ConfigDeviceID uint16 = 0x02 // Device ID
	ConfigCommand  uint16 = 0x04 // Command register
	ConfigStatus   uint16 = 0x06 // Status register
	ConfigRevision uint16 = 0x08 // Revision ID
	ConfigClass    uint16 = 0x09 // Class code, 3 bytes
	ConfigBAR0     uint16 = 0x10 // Base address 0
	ConfigBAR1     uint16 = 0x14 // Base address 1
	ConfigROM      uint16 = 0x30 // Expansion ROM base
	ConfigIntLine  uint16 = 0x3c // Interrupt line

	ConfigSize = 256 // Legacy configuration space size
)

// Command register bits.
const (
	CommandIO        uint16 = 1 << iota // Respond to I/O space
	CommandMemory                       // Respond to memory space
	CommandBusMaster                    // Allow bus mastering
)

// Location of a function on the bus.
type Location struct {
	Domain   uint16
	Bus      uint8
	Slot     uint8
	Function uint8
}

func (l Location) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%01x", l.Domain, l.Bus, l.Slot, l.Function)
}

// Bus supplies configuration space transactions. Implementations must
// reject misaligned 16 and 32 bit requests with an *AlignError.
type Bus interface {
	ReadConfig8(loc Location, offset uint16) (uint8, error)
	ReadConfig16(loc Location, offset uint16) (uint16, error)
	ReadConfig32(loc Location, offset uint16) (uint32, error)
	WriteConfig8(loc Location, offset uint16, value uint8) error
	WriteConfig16(loc Location, offset uint16, value uint16) error
	WriteConfig32(loc Location, offset uint16, value uint32) error

	// FindDevice returns the location of the first function matching
	// vendor and device.
	FindDevice(vendor, device uint16) (Location, bool)
}

// ErrRange is returned for offsets beyond configuration space.
var ErrRange = errors.New("configuration offset out of range")

// AlignError reports a request that is not naturally aligned.
type AlignError struct {
	Offset uint16
	Width  int
}

func (e *AlignError) Error() string {
	return fmt.Sprintf("misaligned %d bit configuration access at 0x%02x", e.Width*8, e.Offset)
}

// CheckAccess validates offset for an access of width bytes.
func CheckAccess(offset uint16, width int) error {
	if int(offset)+width > ConfigSize {
		return fmt.Errorf("%w: 0x%x", ErrRange, offset)
	}
	if int(offset)%width != 0 {
		return &AlignError{Offset: offset, Width: width}
	}
	return nil
}

// DevicePresent reports whether a function with the given ids exists.
func DevicePresent(b Bus, device, vendor uint16) bool {
	_, ok := b.FindDevice(vendor, device)
	return ok
}

// SetCommand sets bits in the command register, leaving the others alone.
func SetCommand(b Bus, loc Location, bits uint16) error {
	cmd, err := b.ReadConfig16(loc, ConfigCommand)
	if err != nil {
		return err
	}
	return b.WriteConfig16(loc, ConfigCommand, cmd|bits)
}
