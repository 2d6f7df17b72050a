package domain

import (
	"fmt"
	"strings"
)

// Brand is a card network the payer declares up front. It is the authorizing brand.
type Brand string

const (
	BrandVisa       Brand = "visa"
	BrandMastercard Brand = "mastercard"
)

// ParseBrand parses a declared brand, case-insensitively.
func ParseBrand(s string) (Brand, error) {
	switch Brand(strings.ToLower(strings.TrimSpace(s))) {
	case BrandVisa:
		return BrandVisa, nil
	case BrandMastercard:
		return BrandMastercard, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedBrand, s)
}

// String returns the string representation of Brand.
func (b Brand) String() string {
	return string(b)
}

// DetectedBrand is the brand reported by the tokenization capability.
// It is informational and never gates progress.
type DetectedBrand string

const (
	DetectedVisa       DetectedBrand = "visa"
	DetectedMastercard DetectedBrand = "mastercard"
	DetectedUnknown    DetectedBrand = "unknown"
)

// DetectBrand maps a capability brand string onto the detected brand set.
// Networks outside the declared set collapse to unknown.
func DetectBrand(s string) DetectedBrand {
	switch DetectedBrand(strings.ToLower(strings.TrimSpace(s))) {
	case DetectedVisa:
		return DetectedVisa
	case DetectedMastercard:
		return DetectedMastercard
	}
	return DetectedUnknown
}

// Matches reports whether the detected brand agrees with the declared one.
func (d DetectedBrand) Matches(b Brand) bool {
	return string(d) == string(b)
}
