package repository

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock converts a TIME string (HH:MM or HH:MM:SS) to minutes
// since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}

	return hour*60 + minute, nil
}

// CrossesMidnight reports whether the shift's end is interpreted on the
// following day.
func (s *Shift) CrossesMidnight() bool {
	start, err1 := ParseClock(s.StartTime)
	end, err2 := ParseClock(s.EndTime)
	if err1 != nil || err2 != nil {
		return false
	}
	return end <= start
}

// WorkMinutes returns the gross duration of the shift in minutes with
// midnight wrap, before subtracting breaks.
func (s *Shift) WorkMinutes() int {
	start, err1 := ParseClock(s.StartTime)
	end, err2 := ParseClock(s.EndTime)
	if err1 != nil || err2 != nil {
		return 0
	}
	if end <= start {
		end += 24 * 60
	}
	return end - start
}

// NetHours returns the paid duration in hours: gross minus break,
// floored at zero.
func (s *Shift) NetHours() float64 {
	net := s.WorkMinutes() - s.BreakMinutes
	if net < 0 {
		net = 0
	}
	return float64(net) / 60.0
}
