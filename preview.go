package cexec

import (
	"fmt"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// SimulatedMarker is appended to preview lines of dry-run invocations.
const SimulatedMarker = "(dry-run)"

// RenderPreview formats entries one per line as
//
//	[N] <binary> <quoted args>
//
// with simulated entries suffixed by SimulatedMarker. N is 1-based. The output
// depends only on entries, so rendering the same log twice yields the same text.
func RenderPreview(entries []Invocation) string {
	var b strings.Builder

	for _, line := range PreviewLines(entries) {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	return b.String()
}

// PreviewLines is RenderPreview without the line terminators.
func PreviewLines(entries []Invocation) []string {
	lines := make([]string, 0, len(entries))

	for i, e := range entries {
		line := fmt.Sprintf("[%d] %s", i+1, FormatCommandLine(e.Binary, e.Args))
		if e.Simulated {
			line += " " + SimulatedMarker
		}

		lines = append(lines, line)
	}

	return lines
}

// FormatCommandLine joins binary and args into a line a POSIX shell would
// split back into the same words.
func FormatCommandLine(binary string, args []string) string {
	var b strings.Builder

	b.WriteString(quoteWord(binary))

	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(quoteWord(arg))
	}

	return b.String()
}

func quoteWord(s string) string {
	if s == "" {
		return "''"
	}

	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		// Strings with NUL bytes cannot be represented in any shell.
		return strconv.Quote(s)
	}

	return q
}
