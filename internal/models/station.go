package models

import "strings"

// Station is a single entry of the station catalog, identified by its CRS code.
type Station struct {
	Name string `json:"stationName" csv:"name"`
	Code string `json:"stationCode" csv:"code"`
}

// Route is a requested journey. A nil To means all departures from From.
type Route struct {
	From Station  `json:"fromStation"`
	To   *Station `json:"toStation,omitempty"`
}

// HasDestination reports whether the route filters on a destination station
func (r Route) HasDestination() bool {
	return r.To != nil
}

// CanonicalCode returns the CRS code in its canonical uppercase form
func CanonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
