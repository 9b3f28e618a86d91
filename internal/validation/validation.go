package validation

import (
	"regexp"

	"github.com/kjstillabower/zip-weather-service/internal/models"
)

// Caller-facing messages for 400 responses.
const (
	MsgInvalidPostalCode = "Invalid zip code format. Must be 5 digits."
	MsgInvalidScale      = "Invalid scale. Use 'Fahrenheit' or 'Celsius'."
)

// postalCodePattern is ASCII-only; RE2 \d does not match other Unicode digits.
var postalCodePattern = regexp.MustCompile(`^\d{5}$`)

// ValidatePostalCode returns the input as a PostalCode when it is exactly five
// decimal digits. No trimming: surrounding whitespace is a format error.
func ValidatePostalCode(input string) (models.PostalCode, error) {
	if !postalCodePattern.MatchString(input) {
		return "", models.ValidationError(MsgInvalidPostalCode)
	}
	return models.PostalCode(input), nil
}

// ParseScale resolves the scale query parameter. present is false when the
// parameter was omitted, in which case DefaultScale is returned. A present but
// empty value is invalid.
func ParseScale(raw string, present bool) (models.Scale, error) {
	if !present {
		return models.DefaultScale, nil
	}
	s := models.Scale(raw)
	if !s.Valid() {
		return "", models.ValidationError(MsgInvalidScale)
	}
	return s, nil
}
