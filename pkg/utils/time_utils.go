package utils

import "time"

const DateLayout = "2006-01-02"

func NowUnixSeconds() int64 { return time.Now().Unix() }

// FromUnixSeconds returns zero time if t<=0 to let callers decide how to render.
func FromUnixSeconds(t int64) time.Time {
	if t <= 0 {
		return time.Time{}
	}
	return time.Unix(t, 0).UTC()
}

func FormatRFC3339(t int64) string {
	ts := FromUnixSeconds(t)
	if ts.IsZero() {
		return ""
	}
	return ts.Format(time.RFC3339)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate accepts a plain calendar date or a full RFC3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
