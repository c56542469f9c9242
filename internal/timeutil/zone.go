package timeutil

import (
	"fmt"
	"time"
)

// LoadZone resolves an IANA zone name. The empty string is rejected rather
// than silently mapped to UTC.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("timezone must not be empty")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// FixedZone returns a zone offset minutes east of UTC, with no DST rules.
func FixedZone(offsetMinutes int) (*time.Location, error) {
	if offsetMinutes < -14*60 || offsetMinutes > 14*60 {
		return nil, fmt.Errorf("timezone offset %d minutes out of range", offsetMinutes)
	}
	sign, m := '+', offsetMinutes
	if m < 0 {
		sign, m = '-', -m
	}
	return time.FixedZone(fmt.Sprintf("UTC%c%02d:%02d", sign, m/60, m%60), offsetMinutes*60), nil
}
