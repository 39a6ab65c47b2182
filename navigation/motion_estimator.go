package navigation

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// MotionEstimator smooths an agent's horizontal position with a 2D Kalman filter
// and extrapolates where the agent is heading.
type MotionEstimator struct {
	filtered    mgl64.Vec3
	velocity    mgl64.Vec3
	track       []mgl64.Vec3
	maxTrackLen int
	dt          float64
	tracker     *kalman_filter.Kalman2D
}

// NewMotionEstimator creates estimator starting at position. dt is the expected time between observations in seconds.
func NewMotionEstimator(position mgl64.Vec3, dt float64) *MotionEstimator {
	if dt <= 0 {
		dt = 1.0
	}
	/* Kalman filter props. No known acceleration, so control input is zero */
	ux := 0.0
	uy := 0.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	kf := kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(position[0], position[2]))
	estimator := MotionEstimator{
		filtered:    position,
		track:       make([]mgl64.Vec3, 0, 150),
		maxTrackLen: 150,
		dt:          dt,
		tracker:     kf,
	}
	estimator.track = append(estimator.track, position)
	return &estimator
}

// Observe feeds a new measured position: predict step followed by correction
func (estimator *MotionEstimator) Observe(position mgl64.Vec3) error {
	estimator.tracker.Predict()
	err := estimator.tracker.Update(position[0], position[2])
	if err != nil {
		return errors.Wrap(err, "Can't update motion estimator")
	}
	stateX, stateZ := estimator.tracker.GetState()
	next := mgl64.Vec3{stateX, position[1], stateZ}
	estimator.velocity = next.Sub(estimator.filtered).Mul(1.0 / estimator.dt)
	estimator.velocity[1] = 0
	estimator.filtered = next
	estimator.track = append(estimator.track, next)
	if len(estimator.track) > estimator.maxTrackLen {
		estimator.track = estimator.track[1:]
	}
	return nil
}

// Position returns the filtered position
func (estimator *MotionEstimator) Position() mgl64.Vec3 {
	return estimator.filtered
}

// Velocity returns the horizontal velocity estimate, units per second
func (estimator *MotionEstimator) Velocity() mgl64.Vec3 {
	return estimator.velocity
}

// Predict extrapolates the filtered position lookahead seconds ahead
func (estimator *MotionEstimator) Predict(lookahead float64) mgl64.Vec3 {
	return estimator.filtered.Add(estimator.velocity.Mul(lookahead))
}
