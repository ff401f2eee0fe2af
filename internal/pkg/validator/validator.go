package validator

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v {
		result[err.Field] = err.Message
	}
	return result
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// UUIDv7 regex: version 7 (the 15th character must be '7'), all lowercase hex digits.
var uuidv7Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// UUIDv7 validation
func IsValidUUID(uuid string) bool {
	return uuidv7Regex.MatchString(strings.ToLower(uuid))
}

// Date validation
func IsValidDate(dateStr string) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", dateStr)
	return date, err == nil
}

// Slice contains check
func IsInSlice(value string, slice []string) bool {
	for _, item := range slice {
		if item == value {
			return true
		}
	}
	return false
}

// IsPositive reports whether a money amount is strictly greater than zero.
func IsPositive(d decimal.Decimal) bool {
	return d.IsPositive()
}

// HasMaxScale reports whether d has at most places fractional digits.
func HasMaxScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// IsValidAmount checks a money amount: positive with at most two decimals.
func IsValidAmount(d decimal.Decimal) bool {
	return IsPositive(d) && HasMaxScale(d, 2)
}

// IsValidPercent checks a rate in the closed range [0, 100].
func IsValidPercent(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
}

// IsValidDateRange parses both dates and requires start <= end.
func IsValidDateRange(start, end string) (time.Time, time.Time, bool) {
	s, ok := IsValidDate(start)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	e, ok := IsValidDate(end)
	if !ok || e.Before(s) {
		return time.Time{}, time.Time{}, false
	}
	return s, e, true
}
