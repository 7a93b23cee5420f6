// Package aggregate buckets dated metric observations into calendar periods
// and compares one range of buckets against another.
//
// All functions are pure: they take observation slices and return new
// slices without modifying their inputs.
package aggregate

import (
	"fmt"
	"strings"
	"time"
)

// Period is the bucket granularity.
type Period string

const (
	Daily      Period = "daily"
	Weekly     Period = "weekly"
	Monthly    Period = "monthly"
	Quarterly  Period = "quarterly"
	HalfYearly Period = "half-yearly"
	Yearly     Period = "yearly"
	Total      Period = "total"
)

// Periods lists every supported granularity, finest first.
var Periods = []Period{Daily, Weekly, Monthly, Quarterly, HalfYearly, Yearly, Total}

// ParsePeriod accepts a period name case-insensitively, with "_" or no
// separator in "half-yearly". An empty string means Total.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "total":
		return Total, nil
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	case "half-yearly", "half_yearly", "halfyearly", "half-year":
		return HalfYearly, nil
	case "yearly", "year", "annual":
		return Yearly, nil
	}
	return "", fmt.Errorf("unknown aggregation %q (use daily, weekly, monthly, quarterly, half-yearly, yearly or total)", s)
}

// bucket returns the label and canonical start date of the period holding t.
// Weeks start on Monday (ISO 8601) and are labelled by that Monday's date.
func bucket(t time.Time, p Period) (string, time.Time) {
	y, m, d := t.Date()
	switch p {
	case Daily:
		start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return start.Format("2006-01-02"), start
	case Weekly:
		offset := (int(t.Weekday()) + 6) % 7
		start := time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
		return start.Format("2006-01-02"), start
	case Quarterly:
		q := (int(m)-1)/3 + 1
		start := time.Date(y, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d-Q%d", y, q), start
	case HalfYearly:
		h := (int(m)-1)/6 + 1
		start := time.Date(y, time.Month((h-1)*6+1), 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d-H%d", y, h), start
	case Yearly:
		start := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d", y), start
	default: // monthly
		start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d-%02d", y, m), start
	}
}
