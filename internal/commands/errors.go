package commands

import "github.com/dullfig/claude-rlm/internal/output"

// printedError marks an error whose JSON envelope has already been written
// to stdout by cmdErr, so root's top-level error handler skips re-logging it.
type printedError struct{ err error }

func (p printedError) Error() string { return p.err.Error() }
func (p printedError) Unwrap() error { return p.err }

// cmdErr prints err as a JSON error envelope and wraps it so cobra's error
// path (which would otherwise print plain text to stderr) doesn't double-report.
func cmdErr(err error) error {
	_ = output.PrintError(err)
	return printedError{err: err}
}
