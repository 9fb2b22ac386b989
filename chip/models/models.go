/*
 * NVDiag - Generation table registry.
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

package models

import (
	"fmt"
	"strings"

	// Generation packages register their tables on import.
	_ "github.com/rcornwell/nvdiag/chip/nv1"
	_ "github.com/rcornwell/nvdiag/chip/nv10"
	_ "github.com/rcornwell/nvdiag/chip/nv3"
	_ "github.com/rcornwell/nvdiag/chip/nv4"

	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/hal"
)

// Describe lists the operations a generation supports.
func Describe(gen device.Generation) string {
	ops := hal.Resolve(gen).Supported()
	if len(ops) == 0 {
		return gen.String() + ": detected, not operable"
	}
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return fmt.Sprintf("%s: %s", gen, strings.Join(names, " "))
}

// Operable reports whether a generation can be brought up.
func Operable(gen device.Generation) bool {
	t := hal.Resolve(gen)
	return t.Supports(hal.OpInit) && t.Supports(hal.OpFIFOState) && t.Supports(hal.OpGraphState)
}
