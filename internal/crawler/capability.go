package crawler

import "fmt"

// Capability names one scraper function for error-containment purposes.
// Transient throttling from the source shows up as a burst of failures on one
// capability while the others keep succeeding, so each gets its own counter.
type Capability int

// Scraper capabilities.
const (
	CapabilitySearchExpansion Capability = iota
	CapabilityOrganizerExpansion
	CapabilityEventFetch
	CapabilityOrganizerDiscovery

	capabilityCount
)

// String returns the capability's metric/log label.
func (c Capability) String() string {
	switch c {
	case CapabilitySearchExpansion:
		return "search_expansion"
	case CapabilityOrganizerExpansion:
		return "organizer_expansion"
	case CapabilityEventFetch:
		return "event_fetch"
	case CapabilityOrganizerDiscovery:
		return "organizer_discovery"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// CapabilityError is the fatal abort raised when one scraper capability fails
// too many times in a row. It cancels the current city's cycle; a single-URL
// failure never does.
type CapabilityError struct {
	Capability Capability
	Failures   int
	Err        error
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s failed %d consecutive times: %v", e.Capability, e.Failures, e.Err)
}

// Unwrap returns the last underlying failure.
func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// errorTracker counts consecutive failures per capability. A success resets
// that capability's counter; a failure past the threshold escalates to a
// CapabilityError. The threshold-th failure itself is still tolerated.
type errorTracker struct {
	threshold int
	counts    [capabilityCount]int
}

func newErrorTracker(threshold int) *errorTracker {
	return &errorTracker{threshold: threshold}
}

// success resets the capability's consecutive-failure counter.
func (t *errorTracker) success(c Capability) {
	t.counts[c] = 0
}

// failure records one failure and returns a *CapabilityError once the count
// exceeds the threshold, nil otherwise.
func (t *errorTracker) failure(c Capability, err error) error {
	t.counts[c]++
	if t.counts[c] > t.threshold {
		return &CapabilityError{Capability: c, Failures: t.counts[c], Err: err}
	}
	return nil
}
