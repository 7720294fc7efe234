// Package timestamp generates and checks the _YYMMDD_HHMMSS suffix that
// makes every model name unique per second.
package timestamp

import (
	"errors"
	"time"
)

// Layout is the suffix format, without the leading separator.
const Layout = "060102_150405"

// SuffixLen covers the separator-preceding character, the separator and Layout.
const SuffixLen = 15

// ErrInvalid is returned when a name does not end in a timestamp suffix.
var ErrInvalid = errors.New("name does not end with a _YYMMDD_HHMMSS timestamp")

// Generate appends the current UTC time to base.
func Generate(base string) string {
	return GenerateAt(base, time.Now())
}

// GenerateAt appends t, converted to UTC, to base.
func GenerateAt(base string, t time.Time) string {
	return base + "_" + t.UTC().Format(Layout)
}

// Validate checks that the last SuffixLen bytes of name are a non-digit,
// '_', six digits, '_', six digits.
func Validate(name string) error {
	if len(name) < SuffixLen {
		return ErrInvalid
	}
	suffix := name[len(name)-SuffixLen:]
	if isDigit(suffix[0]) || suffix[1] != '_' || suffix[8] != '_' {
		return ErrInvalid
	}
	for i := 2; i < SuffixLen; i++ {
		if i == 8 {
			continue
		}
		if !isDigit(suffix[i]) {
			return ErrInvalid
		}
	}
	return nil
}

// Parse returns the time encoded in a valid name's suffix. The pattern
// check in Validate does not require a real calendar date; Parse does.
func Parse(name string) (time.Time, error) {
	if err := Validate(name); err != nil {
		return time.Time{}, err
	}
	return time.Parse(Layout, name[len(name)-SuffixLen+2:])
}

// Base strips the suffix and its separator from a valid name.
func Base(name string) (string, error) {
	if err := Validate(name); err != nil {
		return "", err
	}
	return name[:len(name)-SuffixLen+1], nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
