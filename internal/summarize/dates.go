package summarize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	// Filenames carry the issue date as e.g. "Sep 7 2025".
	reFilenameDate = regexp.MustCompile(`([A-Za-z]{3}\s+\d{1,2}\s+\d{4})`)
	// Summaries open with "On <date>, <year>" when the model followed the
	// prompt; the whole match is the sort key.
	reSummaryDate = regexp.MustCompile(`On ([^,]+), \d{4}`)
)

// InferDate pulls the month-abbreviation date token out of a filename, or
// returns "" when none is present.
func InferDate(filename string) string {
	return reFilenameDate.FindString(filename)
}

// summaryDateString returns the "On <date>, <year>" prefix used as the
// reverse-chronological sort key, or nil when the summary has none.
func summaryDateString(summary string) *string {
	if m := reSummaryDate.FindString(summary); m != "" {
		return &m
	}
	return nil
}

// FormatLong renders a "Sep 7 2025" token as "September 7th, 2025".
func FormatLong(token string) (string, error) {
	fields := strings.Fields(token)
	if len(fields) != 3 {
		return "", fmt.Errorf("date token %q: want three fields", token)
	}
	t, err := time.Parse("Jan 2 2006", strings.Join(fields, " "))
	if err != nil {
		return "", fmt.Errorf("parse date token %q: %w", token, err)
	}
	return fmt.Sprintf("%s %d%s, %d", t.Month(), t.Day(), ordinalSuffix(t.Day()), t.Year()), nil
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// applyDate substitutes the inferred date into the raw model output: the
// "[date]" placeholder first, the literal token otherwise. When the token
// cannot be parsed the raw token still replaces the placeholder; this path
// degrades, it never fails.
func applyDate(summary, token string) string {
	if token == "" {
		return summary
	}
	formatted, err := FormatLong(token)
	if err != nil {
		if strings.Contains(summary, "[date]") {
			return strings.ReplaceAll(summary, "[date]", token)
		}
		return summary
	}
	if strings.Contains(summary, "[date]") {
		return strings.ReplaceAll(summary, "[date]", formatted)
	}
	if strings.Contains(summary, token) {
		return strings.ReplaceAll(summary, token, formatted)
	}
	return summary
}
