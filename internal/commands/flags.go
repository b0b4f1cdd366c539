package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// ErrFlags is wrapped by ParseFlags errors; the message is ready for display.
var ErrFlags = errors.New("flag error")

type flagError struct{ msg string }

func (e *flagError) Error() string { return e.msg }
func (e *flagError) Unwrap() error { return ErrFlags }

// NewFlagSet creates a silent flag set for cmd with its flags registered.
func NewFlagSet(cmd Command) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves
	cmd.RegisterFlags(fs)
	return fs
}

// ParseFlags parses args into fs and returns the positional arguments.
// Errors are rewritten into the CLI's "unknown flag" / "flag needs an
// argument" wording.
func ParseFlags(fs *flag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		errStr := err.Error()

		// Check for missing flag value
		if strings.HasPrefix(errStr, "flag needs an argument:") {
			flagPart := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
			return nil, &flagError{"flag needs an argument: " + flagPart}
		}

		// Check for unknown flag
		if strings.HasPrefix(errStr, "flag provided but not defined:") {
			flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
			return nil, &flagError{"unknown flag: " + flagName}
		}

		return nil, &flagError{errStr}
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positional := fs.Args()
	if len(positional) > 0 && strings.HasPrefix(positional[0], "-") {
		return nil, &flagError{fmt.Sprintf("unknown flag: %s", positional[0])}
	}
	return positional, nil
}
