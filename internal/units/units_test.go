package units

import (
	"math"
	"testing"
	"time"
)

func TestConvertTemperature(t *testing.T) {
	if got := Convert(100, Celsius, Fahrenheit); got != 212 {
		t.Errorf("100C = %vF, want 212", got)
	}
	if got := Convert(0, Celsius, Kelvin); got != 273.15 {
		t.Errorf("0C = %vK, want 273.15", got)
	}
}

func TestConvertSpeed(t *testing.T) {
	if got := Convert(10, MPS, KMPH); got != 36 {
		t.Errorf("10 m/s = %v km/h, want 36", got)
	}
	if got := Convert(10, MPS, MPH); math.Abs(got-22.3694) > 1e-9 {
		t.Errorf("10 m/s = %v mph, want 22.3694", got)
	}
}

func TestConvertPassthrough(t *testing.T) {
	if got := Convert(42, Celsius, Celsius); got != 42 {
		t.Errorf("identity conversion changed value: %v", got)
	}
	if got := Convert(42, Celsius, Raw); got != 42 {
		t.Errorf("raw target changed value: %v", got)
	}
	if got := Convert(42, "lumens", "candela"); got != 42 {
		t.Errorf("unknown pair should pass through, got %v", got)
	}
}

func TestIsKnown(t *testing.T) {
	for _, u := range []string{Raw, Celsius, Fahrenheit, MPS, MPH, KMPH, ""} {
		if !IsKnown(u) {
			t.Errorf("IsKnown(%q) = false", u)
		}
	}
	if IsKnown("furlongs-per-fortnight") {
		t.Error("unexpected known unit")
	}
}

func TestTimezones(t *testing.T) {
	if !IsTimezoneValid("UTC") {
		t.Error("UTC should be valid")
	}
	if IsTimezoneValid("Mars/Olympus_Mons") {
		t.Error("bogus timezone should be invalid")
	}
	if IsTimezoneValid("") {
		t.Error("empty timezone should be invalid")
	}

	loc, err := LoadLocation("")
	if err != nil || loc != time.UTC {
		t.Errorf("LoadLocation(\"\") = %v, %v; want UTC", loc, err)
	}

	utc := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	converted, err := ConvertTime(utc, "America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	if converted.Hour() != 8 {
		t.Errorf("12:00 UTC in New York = %d:00, want 8:00 (EDT)", converted.Hour())
	}
}
