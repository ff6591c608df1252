// Package parser turns raw delimited price dumps and the product catalog
// into typed records. The upstream files are heterogeneous: comma or
// semicolon delimited, optionally quoted, with Spanish or English headers
// and localized number formats. Malformed lines are skipped, never fatal.
package parser

import "strings"

// delimiterSampleLines is how many leading lines are inspected when
// guessing the field delimiter.
const delimiterSampleLines = 5

// DetectDelimiter compares comma and semicolon counts across the first few
// lines and picks whichever is more frequent. Ties favor comma.
func DetectDelimiter(content string) byte {
	lines := strings.Split(content, "\n")
	if len(lines) > delimiterSampleLines {
		lines = lines[:delimiterSampleLines]
	}

	var commas, semicolons int
	for _, line := range lines {
		commas += strings.Count(line, ",")
		semicolons += strings.Count(line, ";")
	}

	if semicolons > commas {
		return ';'
	}
	return ','
}

// SplitLine splits one line on the delimiter, honoring quoted fields: a
// double quote toggles an in-quotes state that suppresses splitting. Quote
// characters are dropped from the output. Fields are trimmed.
func SplitLine(line string, delimiter byte) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == delimiter && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))
	return fields
}

// contentLines returns the non-empty lines of a file.
func contentLines(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// findColumn scans lower-cased headers for the first one containing any of
// the given substrings. Returns -1 when none match.
func findColumn(headers []string, substrings ...string) int {
	for i, h := range headers {
		for _, sub := range substrings {
			if strings.Contains(h, sub) {
				return i
			}
		}
	}
	return -1
}

// stripQuotes removes single and double quotes from a field value. Used for
// identifier comparison, not to alter semantic content.
func stripQuotes(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\'' || r == '"' {
			return -1
		}
		return r
	}, s)
}

func lowerAll(fields []string) []string {
	lowered := make([]string, len(fields))
	for i, f := range fields {
		lowered[i] = strings.ToLower(f)
	}
	return lowered
}
