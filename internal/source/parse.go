package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"MarketSeries/internal/model"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime accepts RFC3339 and the space-separated layouts pandas writes. Zone-less values are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// ParseFloat parses a required number.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// ParseOptionalFloat parses a number, mapping an empty or NaN cell to absent.
func ParseOptionalFloat(s string) (model.OptionalFloat, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.NoFloat(), nil
	}
	v, err := ParseFloat(s)
	if err != nil {
		return model.NoFloat(), err
	}
	return model.FloatFromNaN(v), nil
}

// ParseOptionalBool parses true/false/1/0 in any case, mapping an empty cell to absent.
func ParseOptionalBool(s string) (model.OptionalBool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return model.NoBool(), nil
	case "true", "1":
		return model.BoolOf(true), nil
	case "false", "0":
		return model.BoolOf(false), nil
	}
	return model.NoBool(), fmt.Errorf("invalid boolean %q", s)
}
