/*
 * NVDiag - Bring-up state machine.
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
	"fmt"
	"log/slog"

	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/dump"
	"github.com/rcornwell/nvdiag/hal"
	"github.com/rcornwell/nvdiag/util/debug"
)

var (
	ErrTerminal  = errors.New("device in terminal state")
	ErrNotRender = errors.New("submission requires Render state")
)

// TransitionError reports a transition that is not allowed. Nothing was
// done to the device.
type TransitionError struct {
	From string
	To   hal.State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// CrashError reports an unrecoverable failure that moved the device to
// Crashed.
type CrashError struct {
	State hal.State // Target of the failed transition.
	Err   error
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("crashed entering %s: %v", e.State, e.Err)
}

func (e *CrashError) Unwrap() error { return e.Err }

// Debug options.
const (
	debugState = 1 << iota
	debugHook
)

var debugOption = map[string]int{
	"STATE": debugState,
	"HOOK":  debugHook,
}

var debugMsk int

// Debug enables a debug option for the state machine.
func Debug(opt string) error {
	return debug.SetMask(&debugMsk, debugOption, opt)
}

// Machine drives one device through its bring-up states.
type Machine struct {
	dev   *device.Context
	hal   *hal.Table
	env   hal.Env
	state hal.State
	on    bool // A state has been entered.
}

// New returns a machine for dev that has not entered any state.
func New(dev *device.Context, table *hal.Table, env hal.Env) *Machine {
	return &Machine{dev: dev, hal: table, env: env}
}

func (m *Machine) Device() *device.Context { return m.dev }
func (m *Machine) Table() *hal.Table       { return m.hal }

// State returns the current state, ok is false before Init.
func (m *Machine) State() (hal.State, bool) {
	return m.state, m.on
}

func (m *Machine) stateName() string {
	if !m.on {
		return "Off"
	}
	return m.state.String()
}

// Terminal reports whether no further transitions are possible.
func (m *Machine) Terminal() bool {
	return m.on && (m.state == hal.StateShutdown || m.state == hal.StateCrashed)
}

// Allowed reports whether a transition to next is valid from the
// current state.
func (m *Machine) Allowed(next hal.State) bool {
	if !m.on {
		return next == hal.StateInit
	}
	switch m.state {
	case hal.StateShutdown, hal.StateCrashed:
		return false
	}
	switch next {
	case hal.StateShutdown, hal.StateCrashed, hal.StateReset:
		return true
	case hal.StateRender:
		return m.state == hal.StateReset || m.state == hal.StateModeSwitch
	case hal.StateModeSwitch:
		return m.state == hal.StateReset || m.state == hal.StateRender
	}
	return false
}

// Mandatory slots for entering a state.
func required(next hal.State) []hal.Op {
	switch next {
	case hal.StateInit:
		return []hal.Op{hal.OpInit, hal.OpFIFOState, hal.OpGraphState}
	case hal.StateCrashed:
		return nil
	}
	return []hal.Op{hal.OpFIFOState, hal.OpGraphState}
}

// SetState moves the device to next. A missing mandatory hook or a
// failed hook moves the device to Crashed and returns a *CrashError.
func (m *Machine) SetState(next hal.State) error {
	if m.Terminal() {
		return fmt.Errorf("%s: %w", m.state, ErrTerminal)
	}
	if !m.Allowed(next) {
		return &TransitionError{From: m.stateName(), To: next}
	}
	debug.Debugf("BRINGUP", debugMsk, debugState, "%s -> %s", m.stateName(), next)

	if next == hal.StateCrashed {
		m.crash(next, errors.New("crash requested"))
		return nil
	}
	for _, op := range required(next) {
		if !m.hal.Supports(op) {
			return m.crash(next, &hal.UnsupportedError{Gen: m.hal.Generation(), Op: op})
		}
	}

	switch next {
	case hal.StateInit:
		if err := m.dev.MarkInitialized(); err != nil {
			return err
		}
		m.dev.Runtime = device.NewRuntime()
		if err := m.hal.Init(m.dev, m.env); err != nil {
			return m.crash(next, err)
		}
	case hal.StateShutdown:
		return m.shutdown()
	}

	if err := m.hooks(next); err != nil {
		return m.crash(next, err)
	}
	m.state = next
	m.on = true
	if next == hal.StateInit {
		m.dev.Runtime.Started = true
	}
	slog.Info("Device state", "state", next.String())
	return nil
}

// Run the subsystem hooks, FIFO before graph.
func (m *Machine) hooks(next hal.State) error {
	debug.Debugf("BRINGUP", debugMsk, debugHook, "fifo %s", next)
	if err := m.hal.FIFOState(m.dev, next); err != nil {
		return fmt.Errorf("fifo: %w", err)
	}
	debug.Debugf("BRINGUP", debugMsk, debugHook, "graph %s", next)
	if err := m.hal.GraphState(m.dev, next); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	return nil
}

// Shutdown runs the subsystem hooks and the chip shutdown, then releases
// the runtime record and the apertures. The record is released last so
// hooks may still use it.
func (m *Machine) shutdown() error {
	var errs []error
	if err := m.hooks(hal.StateShutdown); err != nil {
		errs = append(errs, err)
	}
	if m.hal.Supports(hal.OpShutdown) {
		if err := m.hal.Shutdown(m.dev); err != nil {
			errs = append(errs, err)
		}
	}
	m.dev.Runtime = nil
	if err := m.dev.Release(); err != nil {
		errs = append(errs, err)
	}
	m.state = hal.StateShutdown
	m.on = true
	slog.Info("Device state", "state", hal.StateShutdown.String())
	return errors.Join(errs...)
}

// Move to Crashed without touching the hardware.
func (m *Machine) crash(target hal.State, cause error) error {
	m.state = hal.StateCrashed
	m.on = true
	err := &CrashError{State: target, Err: cause}
	slog.Error("Device crashed", "error", err.Error())
	return err
}

// Interrupt services pending interrupts, only once the chip is running.
func (m *Machine) Interrupt() (uint32, error) {
	if err := m.running(); err != nil {
		return 0, err
	}
	return m.hal.Interrupt(m.dev)
}

// SubmitObject binds an object, only in Render.
func (m *Machine) SubmitObject(obj device.Object) error {
	if err := m.rendering(); err != nil {
		return err
	}
	return m.hal.SubmitObject(m.dev, obj)
}

// SubmitMethod sends a method, only in Render.
func (m *Machine) SubmitMethod(method hal.Method) error {
	if err := m.rendering(); err != nil {
		return err
	}
	return m.hal.SubmitMethod(m.dev, method)
}

// Dump captures one resource area.
func (m *Machine) Dump(op hal.Op, w *dump.Writer) (string, error) {
	if err := m.running(); err != nil {
		return "", err
	}
	return m.hal.Dump(op, m.dev, w)
}

func (m *Machine) running() error {
	if !m.on {
		return &TransitionError{From: "Off", To: hal.StateInit}
	}
	if m.Terminal() {
		return fmt.Errorf("%s: %w", m.state, ErrTerminal)
	}
	return nil
}

func (m *Machine) rendering() error {
	if err := m.running(); err != nil {
		return err
	}
	if m.state != hal.StateRender {
		return fmt.Errorf("%s: %w", m.state, ErrNotRender)
	}
	return nil
}
