package ledger

import "time"

// nextQueryInterval adjusts a query target's revisit interval multiplicatively:
// shrink when the visit produced new events, grow when it produced nothing.
// The result is truncated to whole seconds so repeated adjustments cannot
// accumulate sub-second drift.
func nextQueryInterval(previous time.Duration, productive bool, factor float64) time.Duration {
	var adjusted time.Duration
	if productive {
		adjusted = time.Duration(float64(previous) * (1 - factor))
	} else {
		adjusted = time.Duration(float64(previous) * (1 + factor))
	}
	return adjusted.Truncate(time.Second)
}

// eventApproachDelta computes how far ahead to schedule an event page's next
// visit: a fixed fraction of the time remaining until the event starts, so
// revisits cluster toward the start time.
func eventApproachDelta(remaining time.Duration, factor float64) time.Duration {
	return time.Duration(float64(remaining) * factor).Truncate(time.Second)
}
