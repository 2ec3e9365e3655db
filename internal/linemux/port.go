package linemux

import (
	"io"
	"time"
)

// LinePorter defines the minimal interface needed for a gateway port.
// This abstraction enables unit testing without real serial hardware.
type LinePorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutLinePorter extends LinePorter with timeout capabilities.
// This is an optional interface that ports may implement.
type TimeoutLinePorter interface {
	LinePorter
	// SetReadTimeout sets the read timeout for the port.
	SetReadTimeout(timeout time.Duration) error
}
