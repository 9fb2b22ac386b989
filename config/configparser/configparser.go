/*
 * NVDiag - Configuration file parser.
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

package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode"
)

/* Configuration file format:
 *
 * '#' indicates comment, rest of line is ignored.
 * <line> ::= <directive> [<whitespace> <value> [<whitespace> <options>]]
 * <directive> ::= <letter> *(<letter> | <number>)
 * <value> ::= <quoteopt> | *(<not space>)
 * <options> ::= *(<option> *(<whitespace>))
 * <option> ::= <name> ['=' <quoteopt>] *(',' *(<whitespace>) <name>)
 * <quoteopt> ::= <string> | '"' *(<any> | '""') '"'
 * <number> ::= <hexnumber> ['K' | 'M']
 */

// Option following the directive value.
type Option struct {
	Name     string   // Name of option.
	EqualOpt string   // Value of string after =.
	Value    []string // Comma separated values.
}

const (
	TypeValue   = 1 + iota // Directive takes exactly one value.
	TypeOptions            // Directive takes a value and a list of options.
	TypeSwitch             // Directive alone sets a flag.
)

// Handler applies one directive.
type Handler func(value string, options []Option) error

type directive struct {
	set Handler
	ty  int
}

var directives = map[string]directive{}

// Current line being parsed.
type optionLine struct {
	line   string // Current line.
	pos    int    // Current position in line.
	number int    // Line number for errors.
}

func register(name string, ty int, fn Handler) {
	name = strings.ToUpper(name)
	slog.Debug("Registering directive", "name", name)
	directives[name] = directive{set: fn, ty: ty}
}

// RegisterValue registers a directive taking one value. Should be called
// from init functions.
func RegisterValue(name string, fn Handler) {
	register(name, TypeValue, fn)
}

// RegisterOptions registers a directive taking a value and options.
func RegisterOptions(name string, fn Handler) {
	register(name, TypeOptions, fn)
}

// RegisterSwitch registers a directive with no value.
func RegisterSwitch(name string, fn Handler) {
	register(name, TypeSwitch, fn)
}

// Directives returns the registered directive names.
func Directives() []string {
	names := make([]string, 0, len(directives))
	for name := range directives {
		names = append(names, name)
	}
	return names
}

// ParseNumber converts a hex number with an optional K or M suffix.
func ParseNumber(value string) (uint32, error) {
	scale := uint64(1)
	v := strings.ToUpper(value)
	switch {
	case strings.HasSuffix(v, "K"):
		scale = 1024
		v = v[:len(v)-1]
	case strings.HasSuffix(v, "M"):
		scale = 1024 * 1024
		v = v[:len(v)-1]
	}
	v = strings.TrimPrefix(v, "0X")
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", value)
	}
	n *= scale
	if n > 0xffffffff {
		return 0, fmt.Errorf("number too large: %s", value)
	}
	return uint32(n), nil
}

// LoadConfigFile reads and applies a configuration file.
func LoadConfigFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return LoadConfig(file)
}

// LoadConfig applies every line read from r.
func LoadConfig(r io.Reader) error {
	reader := bufio.NewReader(r)
	number := 0
	for {
		text, err := reader.ReadString('\n')
		number++
		if len(text) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line := optionLine{line: strings.TrimRight(text, "\r\n"), number: number}
		if err := line.parseLine(); err != nil {
			return err
		}
	}
}

// ParseLine applies a single configuration line.
func ParseLine(text string) error {
	line := optionLine{line: text}
	return line.parseLine()
}

// Parse one line.
func (line *optionLine) parseLine() error {
	name := line.parseDirective()
	if name == "" {
		if line.isEOL() {
			return nil
		}
		return fmt.Errorf("invalid directive, line: %d", line.number)
	}
	dir, ok := directives[name]
	if !ok {
		return fmt.Errorf("unknown directive: %s, line: %d", name, line.number)
	}

	switch dir.ty {
	case TypeValue:
		value, ok := line.parseValue()
		line.skipSpace()
		if !ok || !line.isEOL() {
			return fmt.Errorf("%s requires a single value, line: %d", name, line.number)
		}
		return dir.set(value, nil)

	case TypeOptions:
		value, ok := line.parseValue()
		if !ok {
			return fmt.Errorf("%s requires a value, line: %d", name, line.number)
		}
		options, err := line.parseOptions()
		if err != nil {
			return err
		}
		return dir.set(value, options)

	case TypeSwitch:
		line.skipSpace()
		if !line.isEOL() {
			return fmt.Errorf("%s takes no value, line: %d", name, line.number)
		}
		return dir.set("", nil)
	}
	return fmt.Errorf("directive %s has no type, line: %d", name, line.number)
}

// Skip forward over white space.
func (line *optionLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// Check if at end of line or comment.
func (line *optionLine) isEOL() bool {
	return line.pos >= len(line.line) || line.line[line.pos] == '#'
}

func isWord(by byte) bool {
	return unicode.IsLetter(rune(by)) || unicode.IsNumber(rune(by))
}

// Collect letters and digits.
func (line *optionLine) word() string {
	start := line.pos
	for !line.isEOL() && isWord(line.line[line.pos]) {
		line.pos++
	}
	return line.line[start:line.pos]
}

// Parse directive name.
func (line *optionLine) parseDirective() string {
	line.skipSpace()
	if line.isEOL() || !unicode.IsLetter(rune(line.line[line.pos])) {
		return ""
	}
	return strings.ToUpper(line.word())
}

// Parse a quoted string, pos is at the opening quote.
func (line *optionLine) parseQuoted() (string, bool) {
	var value strings.Builder
	line.pos++
	for line.pos < len(line.line) {
		by := line.line[line.pos]
		line.pos++
		if by != '"' {
			value.WriteByte(by)
			continue
		}
		// Doubled quote is a literal quote.
		if line.pos < len(line.line) && line.line[line.pos] == '"' {
			value.WriteByte('"')
			line.pos++
			continue
		}
		return value.String(), true
	}
	return "", false
}

// Parse the directive value, either quoted or up to white space.
func (line *optionLine) parseValue() (string, bool) {
	line.skipSpace()
	if line.isEOL() {
		return "", false
	}
	if line.line[line.pos] == '"' {
		return line.parseQuoted()
	}
	start := line.pos
	for !line.isEOL() && !unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
	return line.line[start:line.pos], true
}

// Parse one option.
func (line *optionLine) parseOption() (*Option, error) {
	line.skipSpace()
	if line.isEOL() {
		return nil, nil
	}
	if !unicode.IsLetter(rune(line.line[line.pos])) {
		return nil, fmt.Errorf("invalid option, line: %d [%d]", line.number, line.pos)
	}
	option := Option{Name: line.word()}

	if !line.isEOL() && line.line[line.pos] == '=' {
		line.pos++
		if !line.isEOL() && line.line[line.pos] == '"' {
			v, ok := line.parseQuoted()
			if !ok {
				return nil, fmt.Errorf("invalid quoted string, line: %d [%d]", line.number, line.pos)
			}
			option.EqualOpt = v
		} else {
			option.EqualOpt = line.word()
		}
	}

	line.skipSpace()
	for !line.isEOL() && line.line[line.pos] == ',' {
		line.pos++
		line.skipSpace()
		if v := line.word(); v != "" {
			option.Value = append(option.Value, v)
		}
		line.skipSpace()
	}
	if !line.isEOL() && !isWord(line.line[line.pos]) {
		return nil, fmt.Errorf("invalid option, line: %d [%d]", line.number, line.pos)
	}
	return &option, nil
}

// Collect all options for line.
func (line *optionLine) parseOptions() ([]Option, error) {
	options := []Option{}
	for {
		option, err := line.parseOption()
		if err != nil {
			return nil, err
		}
		if option == nil {
			return options, nil
		}
		options = append(options, *option)
	}
}
