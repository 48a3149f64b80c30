package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"airgapintel/pkg/config"
)

// interactive reports whether the operator can answer prompts
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// prompter asks the run questions on a line-oriented terminal
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// daysBack asks for the lookback; anything unusable yields def
func (p *prompter) daysBack(def int) int {
	fmt.Fprintf(p.out, "Enter number of days back to download feeds (default: %d): ", def)
	line, _ := p.in.ReadString('\n')
	return config.ParseDaysBack(line, def)
}

// confirm waits for Enter. EOF counts as a refusal.
func (p *prompter) confirm(daysBack int, root string) bool {
	fmt.Fprintf(p.out, "Press Enter to begin downloading MISP feeds for the past %d days into %s (Ctrl+C to cancel)...", daysBack, root)
	_, err := p.in.ReadString('\n')
	fmt.Fprintln(p.out)
	return err == nil
}
