/*
 * NVDiag - Interactive diagnostic console.
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

package reader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/peterh/liner"
	"github.com/rcornwell/nvdiag/bringup"
	"github.com/rcornwell/nvdiag/command/parser"
	"github.com/rcornwell/nvdiag/diag"
	"golang.org/x/term"
)

// Interactive reports whether standard input can drive the console.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ConsoleReader reads commands until quit or end of input. A fatal
// error leaves the device unusable, it stops the console and is
// returned.
func ConsoleReader(s *parser.Session) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(line string) []string {
		return parser.CompleteCmd(line)
	})

	for {
		command, err := line.Prompt("NVDiag> ")
		if err == nil {
			line.AppendHistory(command)
			quit, err := parser.ProcessCommand(command, s)
			if err != nil {
				fmt.Fprintln(s.Out, "Error: "+err.Error())
				if diag.Fatal(err) && !errors.Is(err, bringup.ErrTerminal) {
					return err
				}
			}
			if quit {
				return nil
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		slog.Error("error reading line: " + err.Error())
		return nil
	}
}
