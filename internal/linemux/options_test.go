package linemux

import (
	"testing"

	"go.bug.st/serial"
)

func TestPortOptionsNormalizeDefaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if opts.BaudRate != 115200 {
		t.Errorf("expected default baud 115200, got %d", opts.BaudRate)
	}
	if opts.DataBits != 8 || opts.StopBits != 1 || opts.Parity != "N" {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}

func TestPortOptionsNormalizeValidation(t *testing.T) {
	tests := []struct {
		name string
		opts PortOptions
	}{
		{"bad data bits", PortOptions{DataBits: 9}},
		{"bad stop bits", PortOptions{StopBits: 3}},
		{"bad parity", PortOptions{Parity: "X"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.opts.Normalize(); err == nil {
				t.Errorf("expected error for %+v", tc.opts)
			}
		})
	}
}

func TestPortOptionsNormalizeParityWords(t *testing.T) {
	for in, want := range map[string]string{
		"none": "N", "EVEN": "E", "odd": "O", " n ": "N",
	} {
		opts, err := PortOptions{Parity: in}.Normalize()
		if err != nil {
			t.Errorf("Normalize(%q) failed: %v", in, err)
			continue
		}
		if opts.Parity != want {
			t.Errorf("Normalize(%q) parity = %q, want %q", in, opts.Parity, want)
		}
	}
}

func TestPortOptionsEqual(t *testing.T) {
	a := PortOptions{BaudRate: 115200, Parity: "none"}
	b := PortOptions{Parity: "N"}
	if !a.Equal(b) {
		t.Error("expected normalized options equal")
	}

	c := PortOptions{BaudRate: 9600}
	if a.Equal(c) {
		t.Error("expected different baud rates unequal")
	}

	bad := PortOptions{DataBits: 9}
	if a.Equal(bad) {
		t.Error("expected invalid options unequal")
	}
}

func TestPortOptionsSerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 9600, Parity: "even", StopBits: 2}.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode failed: %v", err)
	}
	if mode.BaudRate != 9600 {
		t.Errorf("expected baud 9600, got %d", mode.BaudRate)
	}
	if mode.Parity != serial.EvenParity {
		t.Errorf("expected even parity, got %v", mode.Parity)
	}
	if mode.StopBits != serial.StopBits(2) {
		t.Errorf("expected 2 stop bits, got %v", mode.StopBits)
	}

	if _, err := (PortOptions{Parity: "?"}).SerialMode(); err == nil {
		t.Error("expected error for invalid parity")
	}
}
