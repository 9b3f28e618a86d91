package models

import "strings"

// PostalCode is a 5-digit US zip code. Construct via validation.ValidatePostalCode.
type PostalCode string

// Coordinates are resolved from a PostalCode by the geocoding provider.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Scale is the temperature unit requested by the caller.
type Scale string

const (
	ScaleFahrenheit Scale = "Fahrenheit"
	ScaleCelsius    Scale = "Celsius"
)

// DefaultScale is used when the request carries no scale parameter.
const DefaultScale = ScaleFahrenheit

// Valid reports whether s is one of the supported scales. Case-sensitive.
func (s Scale) Valid() bool {
	return s == ScaleFahrenheit || s == ScaleCelsius
}

// Unit returns the lowercase token the weather provider expects (fahrenheit, celsius).
func (s Scale) Unit() string {
	return strings.ToLower(string(s))
}

// TemperatureReading is the response body for a successful lookup.
type TemperatureReading struct {
	Temperature float64 `json:"temperature"`
	Scale       Scale   `json:"scale"`
}
