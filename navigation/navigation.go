package navigation

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Pathfinder answers nearest navigable point queries
type Pathfinder interface {
	// SamplePosition returns the navigable point nearest to point within maxDistance.
	// The boolean is false when no such point exists.
	SamplePosition(point mgl64.Vec3, maxDistance float64) (mgl64.Vec3, bool)
}

// PathFollower moves an agent towards a target over subsequent frames
type PathFollower interface {
	SetDestination(target mgl64.Vec3) bool
}

// Strategy draws the next destination for an agent standing at position.
// On ErrNoTargetFound the returned point is the fallback to use.
type Strategy interface {
	Next(position mgl64.Vec3) (mgl64.Vec3, error)
}

// RandomInDisc returns a uniformly distributed point inside the horizontal disc
// of given radius around center. Y is kept as is.
func RandomInDisc(rng *rand.Rand, center mgl64.Vec3, radius float64) mgl64.Vec3 {
	if radius <= 0 {
		return center
	}
	r := radius * math.Sqrt(rng.Float64())
	theta := 2 * math.Pi * rng.Float64()
	return mgl64.Vec3{
		center[0] + r*math.Cos(theta),
		center[1],
		center[2] + r*math.Sin(theta),
	}
}
