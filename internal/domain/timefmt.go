package domain

import (
	"fmt"
	"time"
)

// TimeAgo định dạng khoảng thời gian tương đối. Cả hai mốc đều được quy về UTC
// nên không cần bù múi giờ.
func TimeAgo(t, now time.Time) string {
	d := now.UTC().Sub(t.UTC())
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	}
	return t.UTC().Format("Jan 2, 2006")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// DisplayTime đổi thời gian UTC sang múi giờ hiển thị.
func DisplayTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02 15:04 MST")
}
