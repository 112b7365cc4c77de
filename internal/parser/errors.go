package parser

import (
	"fmt"
	"strings"
)

// SyntaxError reports malformed input at a 1-based line and column
type SyntaxError struct {
	Line   int
	Column int
	Text   string // The offending physical line, without its terminator
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Caret echoes the offending line with a marker under the failure point
func (e *SyntaxError) Caret() string {
	pad := e.Column - 1
	if pad < 0 {
		pad = 0
	}
	// Keep tabs so the marker lines up in a terminal
	var b strings.Builder
	for i := 0; i < pad && i < len(e.Text); i++ {
		if e.Text[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	for i := len(e.Text); i < pad; i++ {
		b.WriteByte(' ')
	}
	return e.Text + "\n" + b.String() + "^"
}
