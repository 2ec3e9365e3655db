// Package units provides display-unit conversion for sensor readings.
// Readings are stored in a canonical unit per measurement kind; clients ask
// for a target unit at read time.
package units

import (
	"fmt"
	"strings"
)

// Canonical and display units understood by the API.
const (
	// Temperature (canonical: celsius)
	Celsius    = "celsius"
	Fahrenheit = "fahrenheit"
	Kelvin     = "kelvin"

	// Speed (canonical: mps)
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"

	// Dimensionless passthrough
	Raw = "raw"
)

// conversions maps canonical→target unit pairs to a conversion function.
var conversions = map[[2]string]func(float64) float64{
	{Celsius, Fahrenheit}: func(v float64) float64 { return v*9/5 + 32 },
	{Celsius, Kelvin}:     func(v float64) float64 { return v + 273.15 },
	{MPS, MPH}:            func(v float64) float64 { return v * 2.23694 },
	{MPS, KMPH}:           func(v float64) float64 { return v * 3.6 },
}

// Convert converts a value from its canonical unit to the target unit.
// Identical or unknown pairs return the value unchanged, matching the
// permissive behaviour the API exposes.
func Convert(value float64, canonical, target string) float64 {
	canonical = strings.ToLower(strings.TrimSpace(canonical))
	target = strings.ToLower(strings.TrimSpace(target))
	if canonical == target || target == "" || target == Raw {
		return value
	}
	if fn, ok := conversions[[2]string{canonical, target}]; ok {
		return fn(value)
	}
	return value
}

// KnownTargets lists the target units Convert understands for a canonical
// unit, for error messages and the /config endpoint.
func KnownTargets(canonical string) []string {
	var out []string
	for pair := range conversions {
		if pair[0] == canonical {
			out = append(out, pair[1])
		}
	}
	return out
}

// IsKnown reports whether the unit name appears as a canonical or target unit.
func IsKnown(unit string) bool {
	unit = strings.ToLower(strings.TrimSpace(unit))
	if unit == Raw || unit == "" {
		return true
	}
	for pair := range conversions {
		if pair[0] == unit || pair[1] == unit {
			return true
		}
	}
	return false
}

// ValidUnitsString returns a comma-separated list of unit names for error
// messages.
func ValidUnitsString() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s",
		Raw, Celsius, Fahrenheit, Kelvin, MPS, MPH, KMPH)
}
