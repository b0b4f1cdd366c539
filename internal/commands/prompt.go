package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter reads answers line by line. Prompts go to out, which is stderr
// for the CLI so stdout stays machine-readable.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter creates a Prompter reading from in.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Line prints label and returns the next input line without its newline.
// io.EOF is returned once input is exhausted.
func (p *Prompter) Line(label string) (string, error) {
	if label != "" {
		fmt.Fprint(p.out, label)
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(p.scanner.Text(), "\r"), nil
}

// Confirm asks a yes/no question. Anything but y/yes, including EOF, is no.
func (p *Prompter) Confirm(question string) bool {
	answer, err := p.Line(question + " [y/N]: ")
	if err != nil {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// lineOr returns value if non-empty, otherwise prompts for it.
func (p *Prompter) lineOr(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.Line(label)
}
