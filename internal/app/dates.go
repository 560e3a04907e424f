package app

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DateLabel is the month/day pair shown in the date column of a calendar card
type DateLabel struct {
	MonthYear string
	Day       string
}

var (
	semesterKeyPattern = regexp.MustCompile(`^(\d{4})_([A-Za-z][A-Za-z_]*)$`)
	ordinalSuffix      = regexp.MustCompile(`(?i)(\d+)(st|nd|rd|th)\b`)

	monthNames = []string{
		"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december",
	}
)

// ParseSemesterKey splits "2024_fall" into its year and term
func ParseSemesterKey(key string) (int, string, error) {
	m := semesterKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	year, _ := strconv.Atoi(m[1])
	return year, m[2], nil
}

// SemesterYear returns the year part of a semester key ("2024" for "2024_fall")
func SemesterYear(key string) string {
	year, _, _ := strings.Cut(key, "_")
	return year
}

// ParseEventDate resolves an event date string. ISO dates ("2025-09-10") carry
// their own year; free-form dates ("Sep 10", "October 2nd") take the year of the
// semester. When neither strategy works the label falls back to the raw string
// and ok is false.
func ParseEventDate(raw, semester string, loc *time.Location) (time.Time, DateLabel, bool) {
	if loc == nil {
		loc = time.UTC
	}
	year := SemesterYear(semester)
	trimmed := strings.TrimSpace(raw)

	if strings.Contains(trimmed, "-") && len(trimmed) > 7 {
		if t, ok := parseISODate(trimmed, loc); ok {
			return t, DateLabel{
				MonthYear: fmt.Sprintf("%s %d", t.Month().String()[:3], t.Year()),
				Day:       strconv.Itoa(t.Day()),
			}, true
		}
		return time.Time{}, fallbackLabel(raw, year), false
	}

	if y, err := strconv.Atoi(year); err == nil {
		if t, ok := parseFreeFormDate(trimmed, y, loc); ok {
			return t, DateLabel{
				MonthYear: fmt.Sprintf("%s %s", t.Month().String()[:3], year),
				Day:       strconv.Itoa(t.Day()),
			}, true
		}
	}
	return time.Time{}, fallbackLabel(raw, year), false
}

func fallbackLabel(raw, year string) DateLabel {
	return DateLabel{MonthYear: strings.TrimSpace(raw + " " + year)}
}

func parseISODate(s string, loc *time.Location) (time.Time, bool) {
	if len(s) < 10 {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", s[:10], loc)
	if err != nil {
		return time.Time{}, false
	}
	// Only a time-of-day suffix may follow the date.
	if rest := s[10:]; rest != "" && rest[0] != 'T' && rest[0] != ' ' {
		return time.Time{}, false
	}
	return t, true
}

func parseFreeFormDate(s string, year int, loc *time.Location) (time.Time, bool) {
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	// The day is the number right after the month ("Sep 10") or right before
	// it ("10 September"); other numbers such as times are ignored.
	month, day := 0, 0
	for i, tok := range tokens {
		if month = lookupMonth(tok); month == 0 {
			continue
		}
		if i+1 < len(tokens) {
			day = dayNumber(tokens[i+1])
		}
		if day == 0 && i > 0 {
			day = dayNumber(tokens[i-1])
		}
		break
	}
	if month == 0 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Month() != time.Month(month) {
		return time.Time{}, false // e.g. "Feb 30"
	}
	return t, true
}

// dayNumber returns tok as a day of the month, 0 when it is not a 1-2 digit number
func dayNumber(tok string) int {
	if len(tok) > 2 {
		return 0
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0
	}
	return n
}

// lookupMonth matches "Sep", "Sept", "september" (any case); 0 when tok is not a month
func lookupMonth(tok string) int {
	tok = strings.ToLower(tok)
	if len(tok) < 3 {
		return 0
	}
	for i, name := range monthNames {
		if strings.HasPrefix(name, tok) {
			return i + 1
		}
	}
	return 0
}

// startOfDay truncates t to midnight in loc
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
