package navigation

import (
	"io"
	"time"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Mover draws a new destination every Interval and hands it to the path follower
type Mover struct {
	Strategy Strategy
	Follower PathFollower
	Interval time.Duration

	elapsed   time.Duration
	target    mgl64.Vec3
	hasTarget bool
	logger    *log.Logger
}

// NewMover creates new instance of Mover. First Update picks a destination immediately.
func NewMover(strategy Strategy, follower PathFollower, interval time.Duration, logger *log.Logger) *Mover {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Mover{
		Strategy: strategy,
		Follower: follower,
		Interval: interval,
		elapsed:  interval,
		logger:   logger,
	}
}

// Update advances the timer. Returns true when a new destination was issued.
func (mover *Mover) Update(position mgl64.Vec3, dt time.Duration) bool {
	mover.elapsed += dt
	if mover.elapsed < mover.Interval {
		return false
	}
	mover.elapsed = 0
	target, err := mover.Strategy.Next(position)
	if err != nil {
		if !errors.Is(err, fovlog.ErrNoTargetFound) {
			mover.logger.Warn("destination selection failed", "err", err)
			return false
		}
		mover.logger.Debug("falling back to current position", "reason", err)
	}
	mover.target = target
	mover.hasTarget = true
	if mover.Follower != nil {
		mover.Follower.SetDestination(target)
	}
	return true
}

// Target returns the last issued destination
func (mover *Mover) Target() (mgl64.Vec3, bool) {
	return mover.target, mover.hasTarget
}
