package linemux

import (
	"go.bug.st/serial"
)

// NewRealLineMux creates a LineMux instance backed by a real serial port at
// the given path using the provided port options.
func NewRealLineMux(path string, opts PortOptions) (*LineMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewLineMux[serial.Port](port), nil
}
