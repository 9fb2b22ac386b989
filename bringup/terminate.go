/*
 * NVDiag - Fatal error reporting.
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

package bringup

import (
	"errors"
	"log/slog"

	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/hal"
)

// Process exit status.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitNotFound = 2
	ExitMapping  = 3
	ExitCrashed  = 4
)

// ExitCode classifies a fatal error.
func ExitCode(err error) int {
	var mapErr *aperture.MapError
	var crash *CrashError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, device.ErrNotFound):
		return ExitNotFound
	case errors.As(err, &mapErr):
		return ExitMapping
	case errors.As(err, &crash):
		return ExitCrashed
	}
	return ExitError
}

// Terminate is the single fatal path. It reports err, moves the machine
// to Crashed, runs whatever shutdown hook is available, releases the
// apertures and returns the exit status. m may be nil when no device was
// found. The shutdown is best effort and its failure is only logged.
func Terminate(m *Machine, err error) int {
	code := ExitCode(err)
	if err != nil {
		slog.Error("Fatal error", "error", err.Error(), "status", code)
	}
	if m == nil {
		return code
	}
	if m.on && m.state == hal.StateShutdown {
		return code
	}
	m.state = hal.StateCrashed
	m.on = true

	dev := m.dev
	if dev.Regs != nil && dev.Regs.Mapped() && m.hal.Supports(hal.OpShutdown) {
		if serr := m.hal.Shutdown(dev); serr != nil {
			slog.Warn("Shutdown after failure", "error", serr.Error())
		}
	}
	dev.Runtime = nil
	if rerr := dev.Release(); rerr != nil {
		slog.Warn("Release after failure", "error", rerr.Error())
	}
	return code
}
