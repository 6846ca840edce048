// Package evidence holds the data collected for one call: filtered log lines,
// audio artifacts, timeline markers and the notes left by best-effort steps.
package evidence

import "errors"

// Failure taxonomy shared by every pipeline stage. Fatal categories abort a run;
// the others are recorded as notes on the Session.
var (
	// ErrSourceUnavailable means the primary log source could not be read.
	ErrSourceUnavailable = errors.New("log source unavailable")
	// ErrTransferFailed means the required log leg could not be pulled from the remote host.
	ErrTransferFailed = errors.New("remote transfer failed")
	// ErrArtifactMissing means an optional tap, recording or report could not be obtained.
	ErrArtifactMissing = errors.New("artifact missing")
	// ErrAnalyzerInvocationFailed means the external WAV analyzer could not be run.
	ErrAnalyzerInvocationFailed = errors.New("quality analyzer invocation failed")
	// ErrNoCallsFound means discovery yielded zero candidates.
	ErrNoCallsFound = errors.New("no recent calls found")
)

// IsFatal reports whether err belongs to a category that must abort the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrTransferFailed) ||
		errors.Is(err, ErrNoCallsFound)
}
