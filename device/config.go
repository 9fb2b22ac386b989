/*
 * NVDiag - Device configuration directives.
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

import (
	"fmt"

	config "github.com/rcornwell/nvdiag/config/configparser"
)

// Configured holds the fallback addresses after the configuration
// file has been read.
var Configured = DefaultFallback

// register base address directives on initialize.
func init() {
	config.RegisterValue("REGBASE", func(value string, _ []config.Option) error {
		return setBase(&Configured.Regs, "REGBASE", value)
	})
	config.RegisterValue("VRAMBASE", func(value string, _ []config.Option) error {
		return setBase(&Configured.VRAM, "VRAMBASE", value)
	})
}

func setBase(base *uint32, name, value string) error {
	addr, err := config.ParseNumber(value)
	if err != nil {
		return err
	}
	if addr == 0 || addr&^barMask != 0 {
		return fmt.Errorf("%s must be a non zero multiple of 16M: %08x", name, addr)
	}
	*base = addr
	return nil
}
