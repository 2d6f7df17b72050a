package domain

import "strings"

const codeLength = 6

// Code is a 6-digit one-time code supplied by the payer.
// It is passed straight to the verify call and never stored on the session.
type Code string

// ParseCode accepts exactly six ASCII digits after trimming surrounding space.
func ParseCode(raw string) (Code, error) {
	s := strings.TrimSpace(raw)
	if len(s) != codeLength {
		return "", ErrInvalidCodeFormat
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", ErrInvalidCodeFormat
		}
	}
	return Code(s), nil
}

// String returns the string representation of Code.
func (c Code) String() string {
	return string(c)
}
