// Package position provides the sources that feed position fixes to the tracker:
// a live location subscription and a simulated circular drive.
package position

import (
	"context"
	"errors"
)

var (
	// ErrUnsupported means the platform has no location capability at all.
	ErrUnsupported = errors.New("location capability not supported")
	// ErrUnavailable means the subscription was denied or failed.
	ErrUnavailable = errors.New("location unavailable")
	// ErrTimeout means no fix arrived within the acquisition timeout.
	ErrTimeout = errors.New("location acquisition timed out")
)

// Source emits timestamped samples on its own cadence until stopped.
// Samples are delivered on the channel the source was constructed with.
type Source interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
	Running() bool
}
