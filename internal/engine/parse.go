package engine

import (
	"strconv"
	"strings"
)

// ParsePriority parses user input to a Priority.
// Empty input yields DefaultPriority; "critical" is accepted for urgent.
func ParsePriority(input string) (Priority, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	switch s {
	case "":
		return DefaultPriority, nil
	case "low":
		return PriorityLow, nil
	case "normal", "standard":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "urgent", "critical":
		return PriorityUrgent, nil
	default:
		return "", invalid("priority", "unknown priority %q", input)
	}
}

// parseStoredPriority never fails; rows written by older versions may lack one.
func parseStoredPriority(s string) Priority {
	p := Priority(strings.TrimSpace(strings.ToLower(s)))
	if p.IsValid() {
		return p
	}
	return DefaultPriority
}

func ParseRank(input string) (Rank, error) {
	r := Rank(strings.TrimSpace(strings.ToUpper(input)))
	if !r.IsValid() {
		return "", invalid("rank", "unknown rank %q", input)
	}
	return r, nil
}

func ParseRecurrenceType(input string) (RecurrenceType, error) {
	t := RecurrenceType(strings.TrimSpace(strings.ToLower(input)))
	if !t.IsValid() {
		return "", invalid("recurring.type", "unknown recurrence %q", input)
	}
	return t, nil
}

var weekdayNames = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

// ParseWeekdays accepts day numbers (0-6) or three-letter names, e.g. "mon,wed".
func ParseWeekdays(input string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		if len(part) >= 3 {
			if d, ok := weekdayNames[part[:3]]; ok {
				out = append(out, d)
				continue
			}
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 || d > 6 {
			return nil, invalid("recurring.days", "bad weekday %q", part)
		}
		out = append(out, d)
	}
	return normalizeDays(out), nil
}
