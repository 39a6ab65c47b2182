package fovlog

import "time"

// Observation is a single object as reported by the environment on one tick.
// Visibility flags and distances are computed outside of the tracker.
type Observation struct {
	ID                ObjectID
	Name              string
	Immediate         bool
	Predicted         bool
	ImmediateDistance Distance
	PredictedDistance Distance
	// Surface is handed to SizeEstimator. May be nil.
	Surface any
}

// TrackedObject is the per-observer state of a scene object
type TrackedObject struct {
	id                ObjectID
	name              string
	immediate         bool
	predicted         bool
	immediateDistance Distance
	predictedDistance Distance
	size              Bytes
	present           bool
	transitions       int
}

func newTrackedObject(obs Observation, size Bytes) *TrackedObject {
	return &TrackedObject{
		id:                obs.ID,
		name:              obs.Name,
		immediate:         obs.Immediate,
		predicted:         obs.Predicted,
		immediateDistance: obs.ImmediateDistance,
		predictedDistance: obs.PredictedDistance,
		size:              size,
		present:           true,
		transitions:       1,
	}
}

// GetFlags returns stored immediate and predicted flags
func (object *TrackedObject) GetFlags() (immediate, predicted bool) {
	return object.immediate, object.predicted
}

// Visible reports whether any stored flag is true
func (object *TrackedObject) Visible() bool {
	return object.immediate || object.predicted
}

// GetTransitions returns number of records emitted for this object
func (object *TrackedObject) GetTransitions() int {
	return object.transitions
}

// changed reports whether the observation carries a different flag pair
func (object *TrackedObject) changed(obs Observation) bool {
	return object.immediate != obs.Immediate || object.predicted != obs.Predicted
}

// observe refreshes measurements. Flags are touched only on change.
func (object *TrackedObject) observe(obs Observation, size Bytes) bool {
	object.immediateDistance = obs.ImmediateDistance
	object.predictedDistance = obs.PredictedDistance
	object.size = size
	object.present = true
	if !object.changed(obs) {
		return false
	}
	object.immediate = obs.Immediate
	object.predicted = obs.Predicted
	object.transitions++
	return true
}

// exit marks object as gone. Returns false when it was already invisible.
func (object *TrackedObject) exit() bool {
	object.present = false
	if !object.Visible() {
		return false
	}
	object.immediate = false
	object.predicted = false
	object.transitions++
	return true
}

func (object *TrackedObject) record(observer string, now time.Time) LogRecord {
	return LogRecord{
		Time:              now,
		Observer:          observer,
		ObjectID:          object.id,
		ObjectName:        object.name,
		Immediate:         object.immediate,
		Predicted:         object.predicted,
		ImmediateDistance: object.immediateDistance,
		PredictedDistance: object.predictedDistance,
		Size:              object.size,
	}
}

func (object *TrackedObject) exitRecord(observer string, now time.Time) LogRecord {
	return LogRecord{
		Time:              now,
		Observer:          observer,
		ObjectID:          object.id,
		ObjectName:        object.name,
		ImmediateDistance: NoDistance,
		PredictedDistance: NoDistance,
		Size:              NoSize,
		Exit:              true,
	}
}
