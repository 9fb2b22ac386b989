/*
 * NVDiag - Supported device catalog.
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

import "fmt"

// PCI vendor ids.
const (
	VendorNVIDIA uint16 = 0x10de
	VendorNVSGS  uint16 = 0x12d2 // NVIDIA/SGS-Thomson joint venture
)

// CatalogEntry describes one supported product, possibly a range of
// device ids covering several SKUs of the same silicon.
type CatalogEntry struct {
	Vendor     uint16
	DeviceLow  uint16
	DeviceHigh uint16
	Name       string
	Generation Generation // Nominal generation, the boot register decides.
}

func (e *CatalogEntry) String() string {
	if e.DeviceLow == e.DeviceHigh {
		return fmt.Sprintf("%s [%04x:%04x]", e.Name, e.Vendor, e.DeviceLow)
	}
	return fmt.Sprintf("%s [%04x:%04x-%04x]", e.Name, e.Vendor, e.DeviceLow, e.DeviceHigh)
}

// Catalog is searched in order, first match wins. Specific SKUs must come
// before the generic range that would also cover them.
var Catalog = []CatalogEntry{
	{VendorNVIDIA, 0x0008, 0x0009, "NV1 (STG2000)", GenNV1},
	{VendorNVSGS, 0x0018, 0x0018, "RIVA 128", GenNV3},
	{VendorNVSGS, 0x0019, 0x0019, "RIVA 128 ZX", GenNV3T},
	{VendorNVIDIA, 0x0010, 0x0010, "NV2", GenNV2},
	{VendorNVIDIA, 0x0020, 0x0020, "RIVA TNT", GenNV4},
	{VendorNVIDIA, 0x002c, 0x002c, "Vanta", GenNV5},
	{VendorNVIDIA, 0x002d, 0x002d, "RIVA TNT2 Model 64", GenNV5},
	{VendorNVIDIA, 0x0028, 0x002f, "RIVA TNT2", GenNV5},
	{VendorNVIDIA, 0x00a0, 0x00a0, "Aladdin TNT2", GenNV5},
	{VendorNVIDIA, 0x0100, 0x0103, "GeForce 256", GenNV10},
	{VendorNVIDIA, 0x0110, 0x0113, "GeForce2 MX", GenNV11},
	{VendorNVIDIA, 0x0150, 0x0153, "GeForce2 GTS", GenNV15},
	{VendorNVIDIA, 0x0170, 0x018f, "GeForce4 MX", GenNV17},
	{VendorNVIDIA, 0x0200, 0x0203, "GeForce3", GenNV20},
	{VendorNVIDIA, 0x0250, 0x028f, "GeForce4 Ti", GenNV25},
	{VendorNVIDIA, 0x0300, 0x034f, "GeForce FX", GenNV30},
	{VendorNVIDIA, 0x0040, 0x004f, "GeForce 6800", GenNV40},
}
