// Package timefmt parses the time-of-day values users pick for an event.
//
// Accepted forms:
//   - "오전 9:15" / "오후 12:00" (the picker labels; 오전 = AM, 오후 = PM)
//   - "9:15 AM" / "12:00 pm"
//   - "09:15" or "09:15:00" (24-hour)
//
// Anything else is rejected with an INVALID_TIME_INPUT error; there is no
// midnight fallback.
package timefmt

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "plancal/internal/errors"
)

const (
	periodAM = "오전"
	periodPM = "오후"

	// SlotMinutes is the picker granularity.
	SlotMinutes = 15
)

// Parse converts user input into zero-padded 24-hour HH:MM:SS.
func Parse(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", apperrors.InvalidTimeInput(input)
	}

	period := ""
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
	case 2:
		switch {
		case isPeriod(fields[0]):
			period, s = normPeriod(fields[0]), fields[1]
		case isPeriod(fields[1]):
			period, s = normPeriod(fields[1]), fields[0]
		default:
			return "", apperrors.InvalidTimeInput(input)
		}
	default:
		return "", apperrors.InvalidTimeInput(input)
	}

	h, m, sec, ok := splitClock(s)
	if !ok {
		return "", apperrors.InvalidTimeInput(input)
	}

	switch period {
	case "":
		if h > 23 {
			return "", apperrors.InvalidTimeInput(input)
		}
	case periodAM, periodPM:
		if h < 1 || h > 12 {
			return "", apperrors.InvalidTimeInput(input)
		}
		if period == periodPM && h != 12 {
			h += 12
		}
		if period == periodAM && h == 12 {
			h = 0
		}
	}

	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec), nil
}

// Label renders HH:MM[:SS] as the picker label, e.g. "오후 1:30".
func Label(clock string) (string, error) {
	h, m, _, ok := splitClock(clock)
	if !ok || h > 23 {
		return "", apperrors.InvalidTimeInput(clock)
	}
	period := periodAM
	if h >= 12 {
		period = periodPM
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%s %d:%02d", period, h12, m), nil
}

// Options lists the 96 picker labels in 15-minute steps starting at "오전 12:00".
func Options() []string {
	out := make([]string, 0, 24*60/SlotMinutes)
	for i := 0; i < 24*60/SlotMinutes; i++ {
		l, _ := Label(fmt.Sprintf("%02d:%02d", i*SlotMinutes/60, i*SlotMinutes%60))
		out = append(out, l)
	}
	return out
}

func isPeriod(s string) bool {
	return normPeriod(s) != ""
}

func normPeriod(s string) string {
	switch strings.ToUpper(s) {
	case periodAM, "AM", "A.M.":
		return periodAM
	case periodPM, "PM", "P.M.":
		return periodPM
	}
	return ""
}

// splitClock parses H:MM or H:MM:SS.
func splitClock(s string) (h, m, sec int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, false
	}
	if len(parts[1]) != 2 || (len(parts) == 3 && len(parts[2]) != 2) || len(parts[0]) > 2 {
		return 0, 0, 0, false
	}
	for _, p := range parts {
		if !digits(p) {
			return 0, 0, 0, false
		}
	}
	var err error
	if h, err = strconv.Atoi(parts[0]); err != nil || h < 0 {
		return 0, 0, 0, false
	}
	if m, err = strconv.Atoi(parts[1]); err != nil || m < 0 || m > 59 {
		return 0, 0, 0, false
	}
	if len(parts) == 3 {
		if sec, err = strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, 0, 0, false
		}
	}
	return h, m, sec, true
}

// digits reports whether s is non-empty ASCII 0-9. strconv.Atoi alone would
// let a sign through.
func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
