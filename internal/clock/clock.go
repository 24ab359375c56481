// Package clock does the minute arithmetic on the "HH:MM" strings used by departure boards.
package clock

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	minutesPerDay = 24 * 60

	// maxClockPart bounds each HH or MM part so 60*h+m cannot overflow.
	maxClockPart = 1 << 20
)

// Timings is anything carrying scheduled and estimated departure and arrival strings.
type Timings interface {
	DepartureTimes() (scheduled, estimated string)
	ArrivalTimes() (scheduled, estimated string)
}

// ParseClock returns the minutes since midnight for text in HH:MM format.
// A single stray character such as a trailing "*" is ignored. Values are not
// range checked, so "25:99" gives 1599, but parts beyond maxClockPart are
// not parseable.
func ParseClock(text string) (int, bool) {
	if text == "" {
		return 0, false
	}

	if i := strings.IndexFunc(text, func(r rune) bool {
		return r != ':' && (r < '0' || r > '9')
	}); i >= 0 {
		_, size := utf8.DecodeRuneInString(text[i:])
		text = text[:i] + text[i+size:]
	}

	parts := strings.Split(text, ":")
	if len(parts) < 2 {
		return 0, false
	}

	h, ok := leadingInt(parts[0])
	if !ok {
		return 0, false
	}
	m, ok := leadingInt(parts[1])
	if !ok {
		return 0, false
	}
	if outOfClockRange(h) || outOfClockRange(m) {
		return 0, false
	}
	return 60*h + m, true
}

// Duration returns the journey length in minutes, preferring estimated times
// over scheduled ones. Journeys are assumed to take less than a day.
func Duration(t Timings) (int, bool) {
	sta, eta := t.ArrivalTimes()
	arrival, ok := ParseClock(eta)
	if !ok {
		if arrival, ok = ParseClock(sta); !ok {
			return 0, false
		}
	}

	std, etd := t.DepartureTimes()
	departure, ok := ParseClock(etd)
	if !ok {
		if departure, ok = ParseClock(std); !ok {
			return 0, false
		}
	}

	mins := arrival - departure
	if mins < 0 {
		mins += minutesPerDay
	}
	return mins, true
}

// FormatDuration turns minutes into something like "1h 5m".
func FormatDuration(minutes int) (string, bool) {
	if minutes < 0 {
		return "", false
	}
	h := minutes / 60
	m := minutes % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m), true
	}
	return fmt.Sprintf("%dm", m), true
}

func outOfClockRange(n int) bool {
	return n > maxClockPart || n < -maxClockPart
}

// leadingInt reads an optionally signed integer prefix, ignoring anything after it.
// A prefix too large for an int is not a number.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n, digits := 0, 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		d := int(s[digits] - '0')
		if n > (math.MaxInt-d)/10 {
			return 0, false
		}
		n = n*10 + d
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
