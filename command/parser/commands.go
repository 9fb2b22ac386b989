/*
 * NVDiag - Console commands.
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

package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/diag"
	"github.com/rcornwell/nvdiag/dump"
	"github.com/rcornwell/nvdiag/hal"
	"github.com/rcornwell/nvdiag/util/hex"
)

// Largest number of words examine will display.
const maxExamine = 0x400

var cmdList []cmd

func init() {
	cmdList = []cmd{
		{Name: "show", Min: 2, Help: "show device|state|hal|tests|exclusions", Process: show, Complete: showComplete},
		{Name: "examine", Min: 1, Help: "examine [regs|vram|ramin] offset [count]", Process: examine, Complete: regionComplete},
		{Name: "deposit", Min: 2, Help: "deposit [regs|vram|ramin] offset value", Process: deposit, Complete: regionComplete},
		{Name: "dump", Min: 2, Help: "dump regs|vram|rom|fifo|ramht|ramfc|ramro|cache", Process: dumpRegion, Complete: dumpComplete},
		{Name: "state", Min: 2, Help: "state reset|render|modeswitch|shutdown", Process: state, Complete: stateComplete},
		{Name: "test", Min: 1, Help: "test name", Process: test, Complete: testComplete},
		{Name: "run", Min: 2, Help: "run configured tests", Process: run},
		{Name: "interrupt", Min: 1, Help: "service pending interrupts", Process: interrupt},
		{Name: "help", Min: 1, Help: "list commands", Process: help},
		{Name: "quit", Min: 4, Help: "exit console", Process: quit},
	}
}

var showNames = []string{"device", "exclusions", "hal", "state", "tests"}

// Dump kinds and the test that produces them.
var dumpKinds = map[string]string{
	"regs":  "DUMPREGS",
	"vram":  "DUMPVRAM",
	"rom":   "DUMPROM",
	"fifo":  "DUMPFIFO",
	"ramht": "DUMPRAMHT",
	"ramfc": "DUMPRAMFC",
	"ramro": "DUMPRAMRO",
	"cache": "DUMPCACHE",
}

var regionNames = []string{"ramin", "regs", "vram"}

// Match a possibly abbreviated word against a list of names.
func matchName(word string, names []string) (string, error) {
	var found []string
	for _, n := range names {
		if strings.HasPrefix(n, word) {
			if n == word {
				return n, nil
			}
			found = append(found, n)
		}
	}
	switch len(found) {
	case 0:
		return "", errors.New("unknown option: " + word)
	case 1:
		return found[0], nil
	}
	return "", errors.New("ambiguous option: " + word)
}

// Display device and bring-up information.
func show(line *cmdLine, s *Session) (bool, error) {
	slog.Debug("Command Show")
	word := line.getWord(false)
	if word == "" {
		return false, errors.New("show requires: " + strings.Join(showNames, "|"))
	}
	what, err := matchName(word, showNames)
	if err != nil {
		return false, err
	}
	if err := line.expectEOL(); err != nil {
		return false, err
	}

	m := s.Runner.Machine
	dev := m.Device()
	switch what {
	case "device":
		fmt.Fprintln(s.Out, dev.String())
		fmt.Fprintf(s.Out, "memory %dK crystal %dHz revision %02x\n", dev.VRAMSize/1024, dev.CrystalHz, dev.Revision)
		fmt.Fprintf(s.Out, "pll select %08x nv %08x m %08x v %08x\n", dev.PLL.Select, dev.PLL.NVPLL, dev.PLL.MPLL, dev.PLL.VPLL)
		for _, a := range []*aperture.Aperture{dev.Regs, dev.VRAM, dev.RAMIN} {
			if a != nil && a.Mapped() {
				fmt.Fprintf(s.Out, "%-6s %08x size %08x\n", a.Name(), a.Phys(), a.Size())
			}
		}
	case "state":
		st, ok := m.State()
		switch {
		case !ok:
			fmt.Fprintln(s.Out, "state Off")
		case m.Terminal():
			fmt.Fprintf(s.Out, "state %s (terminal)\n", st)
		default:
			fmt.Fprintf(s.Out, "state %s\n", st)
		}
		if rt := dev.Runtime; rt != nil {
			fmt.Fprintf(s.Out, "objects %d methods %d interrupts %d\n", len(rt.Objects), rt.Submitted, rt.Interrupts)
		}
	case "hal":
		t := m.Table()
		fmt.Fprintf(s.Out, "hal %s\n", t.Generation())
		for _, op := range hal.AllOps() {
			status := "absent"
			if t.Supports(op) {
				status = "supported"
			}
			fmt.Fprintf(s.Out, "  %-10s %s\n", op, status)
		}
	case "tests":
		for _, t := range diag.Tests() {
			mark := " "
			if slices.ContainsFunc(s.Tests, func(n string) bool { return strings.EqualFold(n, t.Name) }) {
				mark = "*"
			}
			fmt.Fprintf(s.Out, "%s %-10s %s\n", mark, t.Name, t.Help)
		}
	case "exclusions":
		t := m.Table()
		showExclusions(s, "regs", t.RegExclusions())
		showExclusions(s, "vram", t.VRAMExclusions())
	}
	return false, nil
}

func showExclusions(s *Session, name string, l dump.ExclusionList) {
	if len(l) == 0 {
		fmt.Fprintf(s.Out, "%s: none\n", name)
		return
	}
	ranges := make([]string, len(l))
	for i, r := range l {
		ranges[i] = r.String()
	}
	fmt.Fprintf(s.Out, "%s: %s\n", name, strings.Join(ranges, " "))
}

// Select the aperture named on the line, register aperture if none.
func (line *cmdLine) getRegion(s *Session) (*aperture.Aperture, dump.ExclusionList, error) {
	pos := line.pos
	word := line.getWord(false)
	name := "regs"
	if word != "" && slices.Contains(regionNames, word) {
		name = word
	} else {
		line.pos = pos
	}

	m := s.Runner.Machine
	dev := m.Device()
	var (
		ap   *aperture.Aperture
		excl dump.ExclusionList
	)
	switch name {
	case "regs":
		ap, excl = dev.Regs, m.Table().RegExclusions()
	case "vram":
		ap, excl = dev.VRAM, m.Table().VRAMExclusions()
	case "ramin":
		ap = dev.RAMIN
	}
	if ap == nil || !ap.Mapped() {
		return nil, nil, fmt.Errorf("%s: %w", name, aperture.ErrUnmapped)
	}
	return ap, excl, nil
}

// Get a word aligned offset which is not excluded.
func (line *cmdLine) getOffset(excl dump.ExclusionList) (uint32, error) {
	offset, err := line.getHex()
	if err != nil {
		return 0, errors.New("offset " + err.Error())
	}
	if offset&3 != 0 {
		return 0, fmt.Errorf("offset not word aligned: %x", offset)
	}
	if excl.Contains(offset) {
		return 0, fmt.Errorf("offset excluded: %x", offset)
	}
	return offset, nil
}

// Display words from an aperture.
func examine(line *cmdLine, s *Session) (bool, error) {
	slog.Debug("Command Examine")
	ap, excl, err := line.getRegion(s)
	if err != nil {
		return false, err
	}
	offset, err := line.getOffset(excl)
	if err != nil {
		return false, err
	}

	count := uint32(1)
	line.skipSpace()
	if !line.isEOL() {
		count, err = line.getHex()
		if err != nil {
			return false, errors.New("count " + err.Error())
		}
		if count == 0 || count > maxExamine {
			return false, fmt.Errorf("count must be 1 to %x", maxExamine)
		}
	}
	if err := line.expectEOL(); err != nil {
		return false, err
	}

	words := make([]uint32, 0, count)
	for i := range count {
		addr := offset + i*4
		if excl.Contains(addr) {
			words = append(words, dump.Sentinel)
			continue
		}
		v, err := ap.Read32(addr)
		if err != nil {
			return false, err
		}
		words = append(words, v)
	}

	var str strings.Builder
	hex.FormatLines(&str, offset, words)
	fmt.Fprint(s.Out, str.String())
	return false, nil
}

// Store one word into an aperture.
func deposit(line *cmdLine, s *Session) (bool, error) {
	slog.Debug("Command Deposit")
	ap, excl, err := line.getRegion(s)
	if err != nil {
		return false, err
	}
	offset, err := line.getOffset(excl)
	if err != nil {
		return false, err
	}
	value, err := line.getHex()
	if err != nil {
		return false, errors.New("value " + err.Error())
	}
	if err := line.expectEOL(); err != nil {
		return false, err
	}
	slog.Info("Deposit", "aperture", ap.Name(), "offset", fmt.Sprintf("%06x", offset), "value", fmt.Sprintf("%08x", value))
	return false, ap.Write32(offset, value)
}

// Write one dump file.
func dumpRegion(line *cmdLine, s *Session) (bool, error) {
	slog.Debug("Command Dump")
	word := line.getWord(false)
	kinds := make([]string, 0, len(dumpKinds))
	for k := range dumpKinds {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	if word == "" {
		return false, errors.New("dump requires: " + strings.Join(kinds, "|"))
	}
	kind, err := matchName(word, kinds)
	if err != nil {
		return false, err
	}
	if err := line.expectEOL(); err != nil {
		return false, err
	}
	return false, s.Runner.RunTest(dumpKinds[kind])
}

// Move the bring-up state machine.
func state(line *cmdLine, s *Session) (bool, error) {
	slog.Debug("Command State")
	word := line.getWord(false)
	if word == "" {
		return false, errors.New("state name required")
	}
	if err := line.expectEOL(); err != nil {
		return false, err
	}
	next, err := hal.ParseState(word)
	if err != nil {
		return false, err
	}
	if err := s.Runner.Machine.SetState(next); err != nil {
		return false, err
	}
	fmt.Fprintf(s.Out, "state %s\n", next)
	return false, nil
}

// Run one diagnostic test.
func test(line *cmdLine, s *Session) (bool, error) {
	slog.Debug("Command Test")
	word := line.getWord(false)
	if word == "" {
		return false, errors.New("test name required")
	}
	if err := line.expectEOL(); err != nil {
		return false, err
	}
	if err := s.Runner.RunTest(word); err != nil {
		return false, err
	}
	fmt.Fprintf(s.Out, "%s passed\n", strings.ToUpper(word))
	return false, nil
}

// Run the configured test list.
func run(line *cmdLine, s *Session) (bool, error) {
	slog.Debug("Command Run")
	if err := line.expectEOL(); err != nil {
		return false, err
	}
	if len(s.Tests) == 0 {
		return false, errors.New("no tests configured")
	}
	res, err := s.Runner.Run(s.Tests)
	fmt.Fprintln(s.Out, res.String())
	return false, err
}

func interrupt(line *cmdLine, s *Session) (bool, error) {
	slog.Debug("Command Interrupt")
	if err := line.expectEOL(); err != nil {
		return false, err
	}
	status, err := s.Runner.Machine.Interrupt()
	if err != nil {
		return false, err
	}
	fmt.Fprintf(s.Out, "interrupt status %08x\n", status)
	return false, nil
}

func help(_ *cmdLine, s *Session) (bool, error) {
	for _, c := range cmdList {
		fmt.Fprintf(s.Out, "%-10s %s\n", c.Name, c.Help)
	}
	return false, nil
}

// Handle commands that quit console.
func quit(_ *cmdLine, _ *Session) (bool, error) {
	slog.Debug("Command Quit")
	return true, nil
}
