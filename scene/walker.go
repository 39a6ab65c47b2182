package scene

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// arriveEpsilon is the distance at which walker considers destination reached
const arriveEpsilon = 1e-3

// Walker moves in a straight line towards its destination with constant speed
type Walker struct {
	Speed float64

	position    mgl64.Vec3
	destination mgl64.Vec3
	heading     mgl64.Vec3
	moving      bool
}

// NewWalker creates walker standing at position and facing +Z
func NewWalker(position mgl64.Vec3, speed float64) *Walker {
	return &Walker{
		Speed:       speed,
		position:    position,
		destination: position,
		heading:     mgl64.Vec3{0, 0, 1},
	}
}

// SetDestination implements navigation.PathFollower
func (walker *Walker) SetDestination(target mgl64.Vec3) bool {
	walker.destination = target
	walker.moving = target.Sub(walker.position).Len() > arriveEpsilon
	return true
}

// Advance moves walker by dt and returns new position
func (walker *Walker) Advance(dt time.Duration) mgl64.Vec3 {
	if !walker.moving {
		return walker.position
	}
	delta := walker.destination.Sub(walker.position)
	remaining := delta.Len()
	step := walker.Speed * dt.Seconds()
	if step >= remaining {
		walker.position = walker.destination
		walker.moving = false
	} else {
		walker.position = walker.position.Add(delta.Mul(step / remaining))
	}
	if remaining > arriveEpsilon {
		walker.heading = delta.Normalize()
	}
	return walker.position
}

// Position returns current position
func (walker *Walker) Position() mgl64.Vec3 {
	return walker.position
}

// Heading returns direction of the last movement
func (walker *Walker) Heading() mgl64.Vec3 {
	return walker.heading
}

// Destination returns current destination
func (walker *Walker) Destination() mgl64.Vec3 {
	return walker.destination
}

// Arrived reports whether walker reached its destination
func (walker *Walker) Arrived() bool {
	return !walker.moving
}
