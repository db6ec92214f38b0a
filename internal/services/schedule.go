package services

import (
	"time"

	"divvy/internal/core"
)

// NextOccurrence advances a template date by exactly one period. Monthly
// keeps the day of month, clamped to the length of the target month (Jan 31
// advances to Feb 28/29); weekly and bi-weekly are fixed 7 and 14 day steps.
func NextOccurrence(freq core.Frequency, from core.Date) core.Date {
	switch freq {
	case core.Weekly:
		return core.DateOf(from.AddDate(0, 0, 7))
	case core.BiWeekly:
		return core.DateOf(from.AddDate(0, 0, 14))
	case core.Monthly:
		year, month, day := from.Date()
		firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
		lastDay := firstOfNext.AddDate(0, 1, -1).Day()
		if day > lastDay {
			day = lastDay
		}
		return core.NewDate(firstOfNext.Year(), int(firstOfNext.Month()), day)
	default:
		return from
	}
}
