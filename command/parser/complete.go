/*
 * NVDiag - Console command completion.
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
	"slices"
	"strings"
	"unicode"

	"github.com/rcornwell/nvdiag/diag"
)

// CompleteCmd is called to complete a command line during line editing.
func CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord(false)

	// Command is followed by a space, let it complete its arguments.
	if name != "" && line.pos > 0 && unicode.IsSpace(rune(line.line[line.pos-1])) {
		match := matchList(name)
		if len(match) != 1 || match[0].Complete == nil {
			return nil
		}
		return match[0].Complete(&line)
	}

	var matches []string
	for _, m := range cmdList {
		if strings.HasPrefix(m.Name, name) {
			matches = append(matches, m.Name)
		}
	}
	slices.Sort(matches)
	return matches
}

// Return the full line for every word starting with the partial word
// at the end of the line.
func (line *cmdLine) matchWords(words []string) []string {
	line.skipSpace()
	leading := line.line[:line.pos]
	partial := strings.ToLower(line.line[line.pos:])
	if strings.ContainsFunc(partial, unicode.IsSpace) {
		return nil
	}

	var matches []string
	for _, w := range words {
		if strings.HasPrefix(w, partial) {
			matches = append(matches, leading+w+" ")
		}
	}
	slices.Sort(matches)
	return matches
}

func showComplete(line *cmdLine) []string {
	return line.matchWords(showNames)
}

func regionComplete(line *cmdLine) []string {
	return line.matchWords(regionNames)
}

func dumpComplete(line *cmdLine) []string {
	kinds := make([]string, 0, len(dumpKinds))
	for k := range dumpKinds {
		kinds = append(kinds, k)
	}
	return line.matchWords(kinds)
}

func stateComplete(line *cmdLine) []string {
	return line.matchWords([]string{"modeswitch", "render", "reset", "shutdown"})
}

func testComplete(line *cmdLine) []string {
	var names []string
	for _, t := range diag.Tests() {
		names = append(names, strings.ToLower(t.Name))
	}
	return line.matchWords(names)
}
