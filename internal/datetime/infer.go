// Package datetime infers when an incident happened from explicit dates and
// times or relative phrases in a transcript, anchored to a reference instant.
// All results are expressed in UK civil time.
package datetime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Europe/London must resolve on hosts without zoneinfo
)

// Layout is the ISO 8601 form of every inferred value.
const Layout = "2006-01-02T15:04:05-07:00"

// Confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
	ConfidenceNone   = "none"
)

// Inference methods.
const (
	MethodExplicit = "explicit"
	MethodRelative = "relative"
	MethodNone     = "none"
)

// London is the fixed civil timezone for incident times.
var London = mustLoad("Europe/London")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Result is one inference. Value and EvidenceQuote are empty when nothing
// was found.
type Result struct {
	Value         string    `json:"value,omitempty"`
	At            time.Time `json:"-"`
	Confidence    string    `json:"confidence"`
	Method        string    `json:"method"`
	EvidenceQuote string    `json:"evidence_quote,omitempty"`
}

// Found reports whether a value was inferred.
func (r Result) Found() bool { return r.Value != "" }

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,2})-(\d{1,2})-(\d{2,4})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,2})\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\s+(\d{2,4})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{2,4})\b`),
}

var (
	timeAmPmMinutes = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)\b`)
	timeAmPm        = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	time24h         = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	timeNoon        = regexp.MustCompile(`\bnoon\b`)
	timeMidnight    = regexp.MustCompile(`\bmidnight\b`)
)

var (
	minutesAgo = regexp.MustCompile(`\b(\d{1,2})\s+minutes?\s+ago\b`)
	hoursAgo   = regexp.MustCompile(`\b(\d{1,2})\s+hours?\s+ago\b`)
	yesterday  = regexp.MustCompile(`\byesterday\b`)
	thisPart   = regexp.MustCompile(`\bthis\s+(morning|afternoon|evening|night)\b`)
	lastNight  = regexp.MustCompile(`\blast\s+night\b`)
)

var dayparts = map[string]int{
	"morning":   9,
	"afternoon": 15,
	"evening":   19,
	"night":     22,
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Infer looks for an explicit date and time first, then a relative phrase.
// ref is the anchor for relative phrases and for a time without a date.
func Infer(text string, ref time.Time) Result {
	ref = ref.In(London)
	low := strings.ToLower(text)

	date, dateQuote, hasDate := explicitDate(text)
	hour, minute, timeQuote, hasTime := explicitTime(low)

	if hasDate || hasTime {
		y, m, d := ref.Date()
		if hasDate {
			y, m, d = date.Date()
		}
		if !hasTime {
			hour, minute = 12, 0
		}
		at := time.Date(y, m, d, hour, minute, 0, 0, London)

		conf := ConfidenceMedium
		if hasDate && hasTime {
			conf = ConfidenceHigh
		}
		quote := timeQuote
		if quote == "" {
			quote = dateQuote
		}
		return found(at, conf, MethodExplicit, quote)
	}

	if at, quote, ok := relative(low, ref); ok {
		return found(at, ConfidenceLow, MethodRelative, quote)
	}

	return Result{Confidence: ConfidenceNone, Method: MethodNone}
}

// HasExplicitDate reports whether text contains anything shaped like a
// calendar date, valid or not.
func HasExplicitDate(text string) bool {
	for _, re := range datePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// AnchorKey returns the part of ref that can change how the times in text
// resolve: empty when text states a calendar date, the instant a relative
// phrase resolves to, and otherwise the UK calendar date of ref. A zero ref
// gives an empty key.
func AnchorKey(text string, ref time.Time) string {
	if ref.IsZero() || HasExplicitDate(text) {
		return ""
	}
	ref = ref.In(London)
	if at, _, ok := relative(strings.ToLower(text), ref); ok {
		return at.Format(Layout)
	}
	return ref.Format("2006-01-02")
}

func found(at time.Time, confidence, method, quote string) Result {
	return Result{
		Value:         at.Format(Layout),
		At:            at,
		Confidence:    confidence,
		Method:        method,
		EvidenceQuote: quote,
	}
}

// explicitDate returns the first valid date among the date patterns. A
// pattern whose match is not a real calendar date is skipped.
func explicitDate(text string) (time.Time, string, bool) {
	for _, re := range datePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		day, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		month, ok := parseMonth(m[2])
		if !ok {
			continue
		}
		year, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		if len(m[3]) == 2 {
			year += 2000
		}
		if year == 0 || day == 0 {
			continue
		}
		t := time.Date(year, month, day, 0, 0, 0, 0, London)
		if t.Day() != day || t.Month() != month {
			continue
		}
		return t, m[0], true
	}
	return time.Time{}, "", false
}

func parseMonth(s string) (time.Month, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, false
		}
		return time.Month(n), true
	}
	if len(s) < 3 {
		return 0, false
	}
	m, ok := months[strings.ToLower(s[:3])]
	return m, ok
}

// explicitTime tries the time patterns in order on lowercased text.
func explicitTime(low string) (hour, minute int, quote string, ok bool) {
	if m := timeAmPmMinutes.FindStringSubmatch(low); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return to24h(h, m[3]), mm % 60, m[0], true
	}
	if m := timeAmPm.FindStringSubmatch(low); m != nil {
		h, _ := strconv.Atoi(m[1])
		return to24h(h, m[2]), 0, m[0], true
	}
	if m := time24h.FindStringSubmatch(low); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return h % 24, mm % 60, m[0], true
	}
	if m := timeNoon.FindString(low); m != "" {
		return 12, 0, m, true
	}
	if m := timeMidnight.FindString(low); m != "" {
		return 0, 0, m, true
	}
	return 0, 0, "", false
}

func to24h(h int, meridiem string) int {
	switch {
	case meridiem == "pm" && h != 12:
		h += 12
	case meridiem == "am" && h == 12:
		h = 0
	}
	return h % 24
}

// relative resolves the first relative phrase, in fixed priority order.
func relative(low string, ref time.Time) (time.Time, string, bool) {
	if m := minutesAgo.FindStringSubmatch(low); m != nil {
		n, _ := strconv.Atoi(m[1])
		return truncateSeconds(ref.Add(-time.Duration(n) * time.Minute)), m[0], true
	}
	if m := hoursAgo.FindStringSubmatch(low); m != nil {
		n, _ := strconv.Atoi(m[1])
		return truncateSeconds(ref.Add(-time.Duration(n) * time.Hour)), m[0], true
	}
	if m := yesterday.FindString(low); m != "" {
		return atClock(ref.AddDate(0, 0, -1), 12), m, true
	}
	if m := thisPart.FindStringSubmatch(low); m != nil {
		return atClock(ref, dayparts[m[1]]), m[0], true
	}
	if m := lastNight.FindString(low); m != "" {
		return atClock(ref.AddDate(0, 0, -1), 22), m, true
	}
	return time.Time{}, "", false
}

func truncateSeconds(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, London)
}

func atClock(t time.Time, hour int) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, hour, 0, 0, 0, London)
}
