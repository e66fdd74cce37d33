package drums

import "time"

const day = 24 * time.Hour

// Classify buckets a drum by days until its due date. Days round up, so a
// due date later today counts as one day away. Future reference dates yield a
// negative possession count.
func Classify(reference, due *time.Time, now time.Time) Classification {
	var c Classification
	if reference != nil {
		held := ceilDays(now.Sub(*reference))
		c.DaysInPossession = &held
	}
	if due == nil {
		c.Category = CategoryActive
		return c
	}

	until := ceilDays(due.Sub(now))
	c.DaysUntilDue = &until
	switch {
	case until < 0:
		c.Category = CategoryOverdue
		c.DaysOverdue = -until
	case until <= DueSoonWindowDays:
		c.Category = CategoryDueSoon
	default:
		c.Category = CategoryActive
	}
	return c
}

func ceilDays(d time.Duration) int {
	days := d / day
	if d%day > 0 {
		days++
	}
	return int(days)
}
