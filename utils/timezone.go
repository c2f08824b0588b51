package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var gmtOffset = regexp.MustCompile(`^GMT([+-])(\d{1,2})(?::(\d{2}))?$`)

// GetLocation returns a location for a GMT+X / GMT-X[:MM] timezone name or an
// IANA zone name. It returns nil for anything it cannot resolve.
func GetLocation(timezone string) *time.Location {
	name := strings.ToUpper(strings.TrimSpace(timezone))
	if name == "" {
		return nil
	}
	if name == "UTC" || name == "GMT" {
		return time.UTC
	}

	if m := gmtOffset.FindStringSubmatch(name); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes := 0
		if m[3] != "" {
			minutes, _ = strconv.Atoi(m[3])
		}
		if hours > 14 || minutes >= 60 {
			return nil
		}

		offset := hours*3600 + minutes*60
		if m[1] == "-" {
			offset = -offset
		}
		return time.FixedZone(name, offset)
	}

	loc, err := time.LoadLocation(strings.TrimSpace(timezone))
	if err != nil {
		return nil
	}
	return loc
}

// LocalDate formats the calendar date of t in the given timezone, falling
// back to UTC when the timezone cannot be resolved.
func LocalDate(t time.Time, timezone string) string {
	loc := GetLocation(timezone)
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return fmt.Sprintf("%d-%.2d-%.2d", y, int(m), d)
}
