package savewidget

import (
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// NoCheckpointLabel is shown when the notebook has no checkpoint.
const NoCheckpointLabel = "no checkpoint"

const (
	checkpointPrefix = "Last Checkpoint: "
	longDateLayout   = "Mon, Jan 2, 2006 3:04 PM"
	clockLayout      = "15:04"
	shortDateLayout  = "01/02/2006"
	day              = 24 * time.Hour
)

// checkpointLabel renders the label and tooltip for a checkpoint taken at
// cp, seen at now. Checkpoints younger than a day get a relative phrase,
// older ones a calendar phrase.
func checkpointLabel(cp, now time.Time) (text, tooltip string) {
	var human string
	if now.Sub(cp) < day {
		human = humanize.RelTime(cp, now, "ago", "from now")
	} else {
		human = calendarPhrase(cp, now)
	}
	return checkpointPrefix + human, cp.Format(longDateLayout)
}

// calendarPhrase describes t relative to the calendar day of now, e.g.
// "Yesterday at 14:02" or "Last Monday at 09:30". Anything more than a
// week away falls back to a plain date.
func calendarPhrase(t, now time.Time) string {
	now = now.In(t.Location())
	days := dayDiff(t, now)
	at := " at " + t.Format(clockLayout)

	switch {
	case days == 0:
		return "Today" + at
	case days == -1:
		return "Yesterday" + at
	case days == 1:
		return "Tomorrow" + at
	case days < -1 && days >= -6:
		return "Last " + t.Weekday().String() + at
	case days > 1 && days <= 6:
		return t.Weekday().String() + at
	default:
		return t.Format(shortDateLayout)
	}
}

// dayDiff returns the number of calendar days from now's day to t's day.
func dayDiff(t, now time.Time) int {
	startOf := func(x time.Time) time.Time {
		y, m, d := x.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, x.Location())
	}
	return int(math.Round(startOf(t).Sub(startOf(now)).Hours() / 24))
}

// refreshDelay is how long the current phrase stays accurate. Phrases in
// seconds are refreshed every ten seconds, minutes every minute, and
// anything coarser hourly.
func refreshDelay(elapsed time.Duration) time.Duration {
	switch {
	case elapsed < time.Minute:
		return 10 * time.Second
	case elapsed < time.Hour:
		return time.Minute
	default:
		return time.Hour
	}
}

var repeatedSlashes = regexp.MustCompile(`//+`)

// urlPathJoin joins URL path components with single slashes, skipping
// empty components.
func urlPathJoin(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "/") {
			b.WriteByte('/')
		}
		b.WriteString(p)
	}
	return repeatedSlashes.ReplaceAllString(b.String(), "/")
}

// encodePathComponents percent-encodes each segment of a slash separated
// path, keeping the separators.
func encodePathComponents(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// NotebookURL is the address of the notebook page for path under baseURL.
func NotebookURL(baseURL, path string) string {
	return urlPathJoin(baseURL, "notebooks", encodePathComponents(path))
}
