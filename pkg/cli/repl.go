package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/parser"
	"github.com/funvibe/rcore/internal/session"
)

const (
	prompt         = "> "
	continuePrompt = "+ "
)

// runREPL reads expressions line by line until end of input. Lines are gathered
// until they parse; errors are reported and the loop goes on. Only an internal
// error changes the exit code.
func runREPL(ctx *session.Context, stdio IO, prompts bool) int {
	in := bufio.NewScanner(stdio.Stdin)
	in.Buffer(make([]byte, 64*1024), 16*1024*1024)
	code := ExitOK
	var pending strings.Builder

	show := func(p string) {
		if prompts {
			fmt.Fprint(stdio.Stdout, p)
		}
	}

	show(prompt)
	for in.Scan() {
		pending.WriteString(in.Text())
		pending.WriteByte('\n')
		src := pending.String()
		if strings.TrimSpace(src) == "" {
			pending.Reset()
			show(prompt)
			continue
		}
		if incomplete(src) {
			show(continuePrompt)
			continue
		}
		pending.Reset()

		if _, err := ctx.Run(src, ""); err != nil {
			reportError(stdio.Stderr, err)
			if exitCode(err) == ExitInternal {
				code = ExitInternal
			}
		}
		show(prompt)
	}
	if err := in.Err(); err != nil {
		fmt.Fprintf(stdio.Stderr, "Error reading input: %v\n", err)
		return ExitError
	}
	if rest := strings.TrimSpace(pending.String()); rest != "" {
		// Input ended inside an expression: report the parse error.
		if _, err := ctx.Run(rest, ""); err != nil {
			reportError(stdio.Stderr, err)
		}
	}
	if prompts {
		fmt.Fprintln(stdio.Stdout)
	}
	return code
}

// incomplete reports whether src failed to parse only because input ended early.
func incomplete(src string) bool {
	_, err := parser.Parse(src)
	var de *diagnostics.Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == diagnostics.ErrP003 || de.Code == diagnostics.ErrP002
}
