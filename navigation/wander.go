package navigation

import (
	"math/rand"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/LdDl/fovlog-go/frustum"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Wander picks random navigable points around the agent itself. Used by leaders.
type Wander struct {
	Radius     float64
	Pathfinder Pathfinder
	rng        *rand.Rand
}

// NewWander creates new instance of Wander
func NewWander(radius float64, pathfinder Pathfinder, rng *rand.Rand) *Wander {
	return &Wander{
		Radius:     radius,
		Pathfinder: pathfinder,
		rng:        rng,
	}
}

// Next draws a point in the disc and snaps it to the navigable surface.
// Snapped points outside of the disc are rejected.
func (wander *Wander) Next(position mgl64.Vec3) (mgl64.Vec3, error) {
	candidate := RandomInDisc(wander.rng, position, wander.Radius)
	if wander.Pathfinder == nil {
		return candidate, nil
	}
	snapped, ok := wander.Pathfinder.SamplePosition(candidate, wander.Radius)
	if !ok {
		return position, errors.Wrapf(fovlog.ErrNoTargetFound, "no navigable point within %.2f of %v", wander.Radius, candidate)
	}
	if frustum.HorizontalDistance(snapped, position) > wander.Radius {
		return position, errors.Wrapf(fovlog.ErrNoTargetFound, "navigable point %v is outside of wander radius", snapped)
	}
	return snapped, nil
}
