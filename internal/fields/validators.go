package fields

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError marks a value rejected by a domain rule before any
// automation was attempted, so callers can tell bad input apart from UI
// automation failures.
type ValidationError struct {
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %q: %s", e.Value, e.Reason)
}

// BoundedInt validates an integer value within [min, max], inclusive.
func BoundedInt(min, max int) Validator {
	return func(value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return &ValidationError{Value: value, Reason: "not an integer"}
		}
		if n < min || n > max {
			return &ValidationError{
				Value:  value,
				Reason: fmt.Sprintf("out of range [%d, %d]", min, max),
			}
		}
		return nil
	}
}

// MatchesPattern validates a value against a compiled regular expression.
func MatchesPattern(re *regexp.Regexp, describe string) Validator {
	return func(value string) error {
		if !re.MatchString(value) {
			return &ValidationError{Value: value, Reason: "expected " + describe}
		}
		return nil
	}
}

var nonDigits = regexp.MustCompile(`\D`)

// GroupDigits normalizes a digit string into fixed-size groups joined by
// sep, e.g. GroupDigits("-", 3, 2, 4) turns "123456789" into "123-45-6789".
// Values whose digit count does not match the pattern are returned
// unchanged so a later validator can reject them with the original input.
func GroupDigits(sep string, sizes ...int) Normalizer {
	total := 0
	for _, s := range sizes {
		total += s
	}
	return func(value string) string {
		digits := nonDigits.ReplaceAllString(value, "")
		if len(digits) != total {
			return value
		}
		groups := make([]string, 0, len(sizes))
		for _, size := range sizes {
			groups = append(groups, digits[:size])
			digits = digits[size:]
		}
		return strings.Join(groups, sep)
	}
}

// TrimSpace is a normalizer that strips surrounding whitespace.
func TrimSpace(value string) string { return strings.TrimSpace(value) }
