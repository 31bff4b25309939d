package device

import "io"

// Feedback - audible confirmation of a scan outcome
type Feedback interface {
	Success()
	Failure()
}

// Silent - Feedback doing nothing
type Silent struct{}

// Success - no-op
func (Silent) Success() {}

// Failure - no-op
func (Silent) Failure() {}

// Bell - rings the terminal bell, twice for a failure
type Bell struct {
	W io.Writer
}

// Success - one bell
func (b Bell) Success() { _, _ = b.W.Write([]byte("\a")) }

// Failure - two bells
func (b Bell) Failure() { _, _ = b.W.Write([]byte("\a\a")) }
