package convert

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UnixMillis converts a UnixNano timestamp to milliseconds
func UnixMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// RecvWindow converts a supplied time.Duration to milliseconds
func RecvWindow(d time.Duration) int64 {
	return int64(d) / int64(time.Millisecond)
}

// TimeFromUnixMilliString parses a millisecond unix timestamp string
func TimeFromUnixMilliString(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	i, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse %q as millisecond timestamp: %w", raw, err)
	}
	return time.UnixMilli(i), nil
}

// BoolPtr takes in boolean condition and returns pointer version of it
func BoolPtr(condition bool) *bool {
	b := condition
	return &b
}

// DecimalFromString parses an exchange supplied decimal string, an empty
// string is treated as zero
func DecimalFromString(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not convert value: %s Error: %w", raw, err)
	}
	return d, nil
}

// DecimalPlaces returns the number of significant fractional digits of a
// decimal string, trailing zeros are not counted. "0.00010" returns 4.
func DecimalPlaces(raw string) int {
	raw = strings.TrimSpace(raw)
	_, frac, found := strings.Cut(raw, ".")
	if !found {
		return 0
	}
	return len(strings.TrimRight(frac, "0"))
}

// FractionDigits returns the number of digits written after the decimal
// point, trailing zeros included. "0.00010" returns 5.
func FractionDigits(raw string) int {
	_, frac, found := strings.Cut(strings.TrimSpace(raw), ".")
	if !found {
		return 0
	}
	return len(frac)
}
