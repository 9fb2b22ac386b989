/*
 * NVDiag - Console command parser.
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
	"io"
	"strings"
	"unicode"

	"github.com/rcornwell/nvdiag/diag"
)

// Session holds what console commands operate on.
type Session struct {
	Runner *diag.Runner
	Tests  []string // Tests executed by run.
	Out    io.Writer
}

type cmd struct {
	Name     string // Command name.
	Min      int    // Minimum match size.
	Help     string
	Process  func(*cmdLine, *Session) (bool, error)
	Complete func(*cmdLine) []string
}

type cmdLine struct {
	line string // Current command.
	pos  int    // Position in line.
}

// ProcessCommand executes one command line. It returns true when the
// console should exit.
func ProcessCommand(commandLine string, s *Session) (bool, error) {
	line := cmdLine{line: commandLine}
	command := line.getWord(false)
	if command == "" {
		if line.isEOL() {
			return false, nil
		}
		return false, errors.New("invalid command: " + strings.TrimSpace(commandLine))
	}

	match := matchList(command)
	if len(match) == 0 {
		return false, errors.New("command not found: " + command)
	}

	if len(match) > 1 {
		return false, errors.New("unique command not found: " + command)
	}

	return match[0].Process(&line, s)
}

// Check if command matches at least to minimum length.
func matchCommand(match cmd, command string) bool {
	if len(command) > len(match.Name) {
		return false
	}
	return strings.HasPrefix(match.Name, command) && len(command) >= match.Min
}

// Check if command matches one of the commands.
func matchList(command string) []cmd {
	if command == "" {
		return []cmd{}
	}

	var match []cmd
	for _, m := range cmdList {
		if matchCommand(m, command) {
			match = append(match, m)
		}
	}
	return match
}

// Skip forward over line until none whitespace character found.
func (line *cmdLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// Check if at end of line.
func (line *cmdLine) isEOL() bool {
	if line.pos >= len(line.line) {
		return true
	}
	return line.line[line.pos] == '#'
}

// Return current character and advance to next.
func (line *cmdLine) getCurrent() byte {
	if line.isEOL() {
		return 0
	}
	by := line.line[line.pos]
	line.pos++
	return by
}

const hexDigits = "0123456789abcdef"

// Parse hex number, with optional 0x prefix.
func (line *cmdLine) getHex() (uint32, error) {
	line.skipSpace()
	if line.isEOL() {
		return 0, errors.New("number required")
	}

	pos := line.pos
	if strings.HasPrefix(strings.ToLower(line.line[pos:]), "0x") {
		line.pos += 2
	}

	value := uint64(0)
	digits := 0
	by := line.getCurrent()
	for by != 0 && !unicode.IsSpace(rune(by)) {
		digit := strings.IndexByte(hexDigits, byte(unicode.ToLower(rune(by))))
		if digit == -1 {
			line.pos = pos
			return 0, errors.New("not a number")
		}
		value = (value << 4) + uint64(digit)
		if value > 0xffffffff {
			line.pos = pos
			return 0, errors.New("number too large")
		}
		digits++
		by = line.getCurrent()
	}
	if digits == 0 {
		line.pos = pos
		return 0, errors.New("not a number")
	}
	return uint32(value), nil
}

// Parse a word of letters. Returns empty string and leaves the position
// unchanged if the next word contains anything else.
func (line *cmdLine) getWord(equal bool) string {
	line.skipSpace()

	value := ""
	pos := line.pos
	by := line.getCurrent()
	for by != 0 {
		if by == '=' && equal {
			return strings.ToLower(value)
		}
		if unicode.IsSpace(rune(by)) {
			break
		}
		if !unicode.IsLetter(rune(by)) {
			line.pos = pos
			return ""
		}
		value += string([]byte{by})
		by = line.getCurrent()
	}

	return strings.ToLower(value)
}

// Ensure nothing follows the parsed arguments.
func (line *cmdLine) expectEOL() error {
	line.skipSpace()
	if !line.isEOL() {
		return errors.New("unexpected argument: " + strings.TrimSpace(line.line[line.pos:]))
	}
	return nil
}
