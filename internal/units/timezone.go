package units

import (
	"fmt"
	"time"
)

// IsTimezoneValid checks whether tz names a loadable tz database entry.
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// LoadLocation resolves a timezone name, defaulting empty input to UTC.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// ConvertTime renders a UTC time in the target timezone.
func ConvertTime(utcTime time.Time, targetTimezone string) (time.Time, error) {
	loc, err := LoadLocation(targetTimezone)
	if err != nil {
		return utcTime, err
	}
	return utcTime.In(loc), nil
}
