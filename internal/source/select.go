package source

import (
	"sort"
	"strings"
	"time"
)

// defaultRecentWindow is the number of trailing files kept at daily
// resolution when the caller does not size the window.
const defaultRecentWindow = 45

// SelectFiles samples a bounded subset of daily files while keeping the
// aggregation correct: the earliest file anchors the base period, one file
// per calendar month preserves historical coverage, the trailing window
// keeps recent data at daily resolution, and the file closest to one year
// before the most recent file guarantees a YoY anchor exists.
func SelectFiles(files []File, recentWindow int) []File {
	if len(files) == 0 {
		return nil
	}
	if recentWindow <= 0 {
		recentWindow = defaultRecentWindow
	}

	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	selected := []File{sorted[0]}
	seenMonths := map[string]bool{monthOf(sorted[0].Name): true}

	yearAgoTarget := yoyTargetName(sorted[len(sorted)-1].Name)

	cutoff := len(sorted) - recentWindow
	if cutoff < 1 {
		cutoff = 1
	}

	for i := 1; i < cutoff; i++ {
		file := sorted[i]
		month := monthOf(file.Name)
		isYoYTarget := yearAgoTarget != "" && strings.Contains(file.Name, yearAgoTarget)
		if !seenMonths[month] || isYoYTarget {
			selected = append(selected, file)
			seenMonths[month] = true
		}
	}

	selected = append(selected, sorted[cutoff:]...)

	// Deduplicate (the YoY anchor may fall inside the recent window) and
	// restore strict date order.
	seen := make(map[string]bool, len(selected))
	out := selected[:0]
	for _, f := range selected {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func monthOf(name string) string {
	if len(name) < 7 {
		return name
	}
	return name[:7] // YYYY-MM
}

// yoyTargetName derives the YYYY-MM-DD one year before the given file name,
// or "" when the name does not parse as a date.
func yoyTargetName(name string) string {
	d, err := time.Parse("2006-01-02", strings.TrimSuffix(name, ".csv"))
	if err != nil {
		return ""
	}
	return d.AddDate(-1, 0, 0).Format("2006-01-02")
}
