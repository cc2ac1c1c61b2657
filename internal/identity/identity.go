package identity

import (
	"fmt"
	"regexp"
)

var mobileRegexp = regexp.MustCompile(`^[0-9]{10}$`)

// Identity is a participant's 10-digit mobile number.
type Identity string

// String implements fmt.Stringer.
func (id Identity) String() string {
	return string(id)
}

// ValidationError is returned when a candidate identity is not 10 decimal digits.
type ValidationError struct {
	Input string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid mobile number %q: must be exactly 10 digits", e.Input)
}

// Validate reports whether candidate is exactly 10 decimal digits.
func Validate(candidate string) bool {
	return mobileRegexp.MatchString(candidate)
}

// Parse validates candidate and returns it as an Identity.
func Parse(candidate string) (Identity, error) {
	if !Validate(candidate) {
		return "", &ValidationError{Input: candidate}
	}
	return Identity(candidate), nil
}
