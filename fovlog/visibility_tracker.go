package fovlog

import (
	"sort"
	"time"
)

// VisibilityTracker keeps visibility state of scene objects for a single observer
// and emits a LogRecord on every state transition.
type VisibilityTracker struct {
	// Main storage
	Objects map[ObjectID]*TrackedObject
	// Name of the observing agent, copied to every record
	observer string
	// Emitted records, oldest first
	history []LogRecord
	// Max number of records kept in history. Default is 1024
	maxHistory int
}

// TrackerOption configures VisibilityTracker
type TrackerOption func(*VisibilityTracker)

// WithHistoryLimit sets max number of records kept for inspection. Zero disables history.
func WithHistoryLimit(limit int) TrackerOption {
	return func(tracker *VisibilityTracker) {
		if limit < 0 {
			limit = 0
		}
		tracker.maxHistory = limit
	}
}

// NewVisibilityTracker creates new instance of VisibilityTracker for given observer
func NewVisibilityTracker(observer string, options ...TrackerOption) *VisibilityTracker {
	tracker := &VisibilityTracker{
		Objects:    make(map[ObjectID]*TrackedObject),
		observer:   observer,
		maxHistory: 1024,
	}
	for _, option := range options {
		option(tracker)
	}
	return tracker
}

// Observer returns the observer name
func (tracker *VisibilityTracker) Observer() string {
	return tracker.observer
}

// Tick re-evaluates every observed object against stored state.
// Records are returned in snapshot order followed by exit records ordered by ObjectID.
// A nil sizer means TriangleSize.
func (tracker *VisibilityTracker) Tick(now time.Time, snapshot []Observation, sizer SizeEstimator) []LogRecord {
	if sizer == nil {
		sizer = TriangleSize
	}
	now = now.Local().Truncate(time.Second)
	seen := make(map[ObjectID]struct{}, len(snapshot))
	var records []LogRecord

	for i := range snapshot {
		obs := snapshot[i]
		// Object is reported at most once per tick
		if _, ok := seen[obs.ID]; ok {
			continue
		}
		seen[obs.ID] = struct{}{}

		size := sizer.EstimateSize(obs)
		if size < 0 {
			size = 0
		}
		object, ok := tracker.Objects[obs.ID]
		if !ok {
			object = newTrackedObject(obs, size)
			tracker.Objects[obs.ID] = object
			records = append(records, object.record(tracker.observer, now))
			continue
		}
		if object.observe(obs, size) {
			records = append(records, object.record(tracker.observer, now))
		}
	}

	// Objects which are gone
	missing := make([]ObjectID, 0)
	for objectID, object := range tracker.Objects {
		if _, ok := seen[objectID]; ok {
			continue
		}
		if !object.present && !object.Visible() {
			continue
		}
		missing = append(missing, objectID)
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	for _, objectID := range missing {
		object := tracker.Objects[objectID]
		if object.exit() {
			records = append(records, object.exitRecord(tracker.observer, now))
		}
	}

	tracker.remember(records)
	return records
}

// Object returns tracked state for given identifier
func (tracker *VisibilityTracker) Object(objectID ObjectID) (*TrackedObject, bool) {
	object, ok := tracker.Objects[objectID]
	return object, ok
}

// History returns copy of emitted records, oldest first
func (tracker *VisibilityTracker) History() []LogRecord {
	out := make([]LogRecord, len(tracker.history))
	copy(out, tracker.history)
	return out
}

func (tracker *VisibilityTracker) remember(records []LogRecord) {
	if tracker.maxHistory == 0 || len(records) == 0 {
		return
	}
	tracker.history = append(tracker.history, records...)
	if len(tracker.history) > tracker.maxHistory {
		tracker.history = tracker.history[len(tracker.history)-tracker.maxHistory:]
	}
}
