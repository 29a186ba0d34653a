package media

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates an empty or malformed media URL.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoStreamAvailable indicates the selection policy found no matching stream.
	ErrNoStreamAvailable = errors.New("no stream available")
	// ErrFetchFailed indicates a network or IO failure while enumerating or downloading.
	ErrFetchFailed = errors.New("fetch failed")
)

// ErrUnknownQuality is returned by ParseQuality. It wraps ErrInvalidInput.
var ErrUnknownQuality = fmt.Errorf("%w: unknown quality", ErrInvalidInput)

// NoStreamError names what the selection policy could not satisfy:
// the quality label for video ("High (HD)"), or "audio".
type NoStreamError struct {
	Want string
}

func (e *NoStreamError) Error() string {
	return ErrNoStreamAvailable.Error() + ": " + e.Want
}

func (e *NoStreamError) Unwrap() error { return ErrNoStreamAvailable }

// Audio reports whether the failed selection was for an audio-only stream.
func (e *NoStreamError) Audio() bool { return e.Want == wantAudio }

const wantAudio = "audio"
