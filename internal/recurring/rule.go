// Package recurring implements a pure RFC 5545 style recurrence engine.
// It parses rule strings and computes occurrence instants; it performs
// no I/O and interprets every instant as UTC.
package recurring

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency is the base repetition unit of a rule.
type Frequency string

const (
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
	FreqYearly  Frequency = "YEARLY"
)

// Rule is a parsed recurrence rule.
type Rule struct {
	Freq     Frequency
	Interval int            // >= 1
	ByDay    []time.Weekday // Only meaningful for WEEKLY
	Count    *int           // Total occurrences including the first
	Until    *time.Time     // Inclusive end instant, UTC
}

// maxIterations bounds occurrence enumeration so a malformed rule can
// never spin forever.
const maxIterations = 10000

var weekdayTokens = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

// Parse parses a recurrence rule string.
//
// Accepted forms:
//   - "FREQ=DAILY;INTERVAL=1" with optional BYDAY, COUNT, UNTIL
//   - bare frequency tokens ("DAILY", "WEEKLY", ...) as sugar for
//     "FREQ=<token>;INTERVAL=1"
//
// Unknown FREQ values and unknown keys are rejected.
func Parse(s string) (Rule, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return Rule{}, fmt.Errorf("empty recurrence rule")
	}

	// Bare token sugar: "DAILY" == "FREQ=DAILY;INTERVAL=1".
	if !strings.Contains(s, "=") {
		freq, err := parseFrequency(s)
		if err != nil {
			return Rule{}, err
		}
		return Rule{Freq: freq, Interval: 1}, nil
	}

	rule := Rule{Interval: 1}
	seenFreq := false

	for part := range strings.SplitSeq(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found || value == "" {
			return Rule{}, fmt.Errorf("malformed rule component %q", part)
		}

		switch key {
		case "FREQ":
			freq, err := parseFrequency(value)
			if err != nil {
				return Rule{}, err
			}
			rule.Freq = freq
			seenFreq = true

		case "INTERVAL":
			interval, err := strconv.Atoi(value)
			if err != nil || interval < 1 {
				return Rule{}, fmt.Errorf("invalid INTERVAL %q", value)
			}
			rule.Interval = interval

		case "BYDAY":
			for _, token := range strings.Split(value, ",") {
				day, ok := weekdayTokens[token]
				if !ok {
					return Rule{}, fmt.Errorf("invalid BYDAY token %q", token)
				}
				rule.ByDay = append(rule.ByDay, day)
			}

		case "COUNT":
			count, err := strconv.Atoi(value)
			if err != nil || count < 1 {
				return Rule{}, fmt.Errorf("invalid COUNT %q", value)
			}
			rule.Count = &count

		case "UNTIL":
			until, err := parseUntil(value)
			if err != nil {
				return Rule{}, err
			}
			rule.Until = &until

		default:
			return Rule{}, fmt.Errorf("unsupported rule component %q", key)
		}
	}

	if !seenFreq {
		return Rule{}, fmt.Errorf("rule is missing FREQ")
	}

	return rule, nil
}

// Validate reports whether the rule string parses.
func Validate(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func parseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return Frequency(s), nil
	default:
		return "", fmt.Errorf("unsupported FREQ %q", s)
	}
}

// parseUntil accepts the compact UTC forms 20260114T100000Z and 20260114.
func parseUntil(s string) (time.Time, error) {
	for _, layout := range []string{"20060102T150405Z", "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid UNTIL %q", s)
}

// NextAfter returns the first occurrence strictly later than after,
// anchored at dtstart. Returns nil when the rule is exhausted
// (COUNT or UNTIL reached before any qualifying occurrence).
func (r Rule) NextAfter(after, dtstart time.Time) *time.Time {
	after = after.UTC()
	dtstart = dtstart.UTC()

	count := 0
	for occ := range r.occurrences(dtstart) {
		count++
		if r.Count != nil && count > *r.Count {
			return nil
		}
		if r.Until != nil && occ.After(*r.Until) {
			return nil
		}
		if occ.After(after) {
			return &occ
		}
	}
	return nil
}

// occurrences yields the rule's occurrence sequence in order,
// starting at dtstart, capped at maxIterations.
func (r Rule) occurrences(dtstart time.Time) func(yield func(time.Time) bool) {
	return func(yield func(time.Time) bool) {
		if r.Freq == FreqWeekly && len(r.ByDay) > 0 {
			r.weeklyByDay(dtstart, yield)
			return
		}

		for i := 0; i < maxIterations; i++ {
			var occ time.Time
			switch r.Freq {
			case FreqDaily:
				occ = dtstart.AddDate(0, 0, i*r.Interval)
			case FreqWeekly:
				occ = dtstart.AddDate(0, 0, 7*i*r.Interval)
			case FreqMonthly:
				occ = dtstart.AddDate(0, i*r.Interval, 0)
			case FreqYearly:
				occ = dtstart.AddDate(i*r.Interval, 0, 0)
			default:
				return
			}
			if !yield(occ) {
				return
			}
		}
	}
}

// weeklyByDay enumerates BYDAY occurrences week by week. Weeks start on
// Monday (RFC 5545 default WKST=MO) and advance by the rule interval.
func (r Rule) weeklyByDay(dtstart time.Time, yield func(time.Time) bool) {
	weekStart := startOfWeek(dtstart)

	for week := 0; week < maxIterations; week++ {
		base := weekStart.AddDate(0, 0, 7*week*r.Interval)
		for offset := 0; offset < 7; offset++ {
			day := base.AddDate(0, 0, offset)
			if !r.hasByDay(day.Weekday()) {
				continue
			}
			occ := time.Date(day.Year(), day.Month(), day.Day(),
				dtstart.Hour(), dtstart.Minute(), dtstart.Second(), 0, time.UTC)
			if occ.Before(dtstart) {
				continue
			}
			if !yield(occ) {
				return
			}
		}
	}
}

func (r Rule) hasByDay(day time.Weekday) bool {
	for _, d := range r.ByDay {
		if d == day {
			return true
		}
	}
	return false
}

// startOfWeek returns Monday 00:00:00 UTC of the week containing t.
func startOfWeek(t time.Time) time.Time {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
