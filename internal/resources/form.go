package resources

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FormTimeLayout matches <input type="datetime-local">.
const FormTimeLayout = "2006-01-02T15:04"

// FormString returns the trimmed value of key.
func FormString(form url.Values, key string) string {
	return strings.TrimSpace(form.Get(key))
}

// FormBool reads a checkbox.
func FormBool(form url.Values, key string) bool {
	switch strings.ToLower(form.Get(key)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// FormList merges repeated values and comma separated entries, dropping
// blanks and duplicates.
func FormList(form url.Values, key string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, raw := range form[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// FormTime parses a datetime-local value in loc. Blank or malformed input
// yields the zero time; validation reports it.
func FormTime(form url.Values, key string, loc *time.Location) time.Time {
	raw := FormString(form, key)
	if raw == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(FormTimeLayout, raw, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormInt parses an integer, zero when blank or malformed.
func FormInt(form url.Values, key string) int {
	n, err := strconv.Atoi(FormString(form, key))
	if err != nil {
		return 0
	}
	return n
}

// TimeText renders a timestamp for table cells.
func TimeText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// BoolText renders a flag for table cells and filters.
func BoolText(b bool) string {
	return strconv.FormatBool(b)
}

// CompareTime orders timestamps, zero first.
func CompareTime(a, b time.Time) int {
	return a.Compare(b)
}
