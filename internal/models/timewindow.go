package models

import (
	"fmt"
	"time"
)

// TimeWindowKind tags the lexical type of a recognized time expression.
type TimeWindowKind string

const (
	WindowDate     TimeWindowKind = "date"
	WindowDateTime TimeWindowKind = "datetime"
	WindowRange    TimeWindowKind = "datetimerange"
	WindowDuration TimeWindowKind = "duration"
)

// WindowValueLayout is how window instants are stored in the orders table.
const WindowValueLayout = "2006-01-02 15:04"

// TimeWindow is the normalized form of a user-stated time constraint.
// Depending on Kind, exactly one of Value or the Start/End pair is set.
type TimeWindow struct {
	Timex string         `json:"timex"`
	Kind  TimeWindowKind `json:"kind"`
	Value string         `json:"value,omitempty"`
	Start string         `json:"start,omitempty"`
	End   string         `json:"end,omitempty"`
}

// Validate enforces the shape invariant: a value-shaped window carries only
// Value, a range-shaped window carries only Start and End.
func (w TimeWindow) Validate() error {
	hasValue := w.Value != ""
	hasRange := w.Start != "" || w.End != ""

	switch {
	case w.Timex == "":
		return fmt.Errorf("time window missing timex")
	case w.Kind == "":
		return fmt.Errorf("time window missing kind")
	case hasValue && hasRange:
		return fmt.Errorf("time window %q has both value and range fields", w.Timex)
	case !hasValue && !hasRange:
		return fmt.Errorf("time window %q has neither value nor range fields", w.Timex)
	case hasRange && (w.Start == "" || w.End == ""):
		return fmt.Errorf("time window %q has a partial range", w.Timex)
	}
	return nil
}

// Instant returns the best single instant of the window: Value when present,
// otherwise End, otherwise Start. Zero time when nothing parses.
func (w TimeWindow) Instant() time.Time {
	for _, s := range []string{w.Value, w.End, w.Start} {
		if s == "" {
			continue
		}
		if t, err := time.ParseInLocation(WindowValueLayout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// TimeCandidate is one resolution produced by the natural-language time
// recognizer. A phrase may resolve to several candidates; the wizard decides
// which one to keep.
type TimeCandidate struct {
	Window TimeWindow `json:"window"`
	// When is the candidate's anchor instant, used for ordering and the
	// future check.
	When time.Time `json:"when"`
}
