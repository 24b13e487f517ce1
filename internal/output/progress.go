// Package output handles result serialization, progress reporting and the
// text renderings of a diagnosis.
package output

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Progress reports pipeline status to stderr.
type Progress struct {
	enabled bool
	verbose bool
	start   time.Time
	w       io.Writer
}

// NewProgress creates a Progress reporter. Set enabled=false for --quiet mode.
func NewProgress(enabled bool) *Progress {
	return &Progress{
		enabled: enabled,
		start:   time.Now(),
	}
}

// NewVerboseProgress creates a Progress reporter with debug logging enabled.
func NewVerboseProgress(enabled, verbose bool) *Progress {
	return &Progress{
		enabled: enabled || verbose, // verbose implies enabled
		verbose: verbose,
		start:   time.Now(),
	}
}

// SetOutput redirects messages away from stderr.
func (p *Progress) SetOutput(w io.Writer) {
	p.w = w
}

// Log prints a progress message if enabled.
func (p *Progress) Log(format string, args ...interface{}) {
	if p == nil || !p.enabled {
		return
	}
	p.print("", format, args...)
}

// Debug prints a debug message if verbose is enabled.
func (p *Progress) Debug(format string, args ...interface{}) {
	if p == nil || !p.verbose {
		return
	}
	p.print("DEBUG: ", format, args...)
}

func (p *Progress) print(prefix, format string, args ...interface{}) {
	w := p.w
	if w == nil {
		w = os.Stderr
	}
	elapsed := time.Since(p.start).Round(time.Millisecond)
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(w, "[%s] %s%s\n", elapsed, prefix, msg)
}
