package navigation

import (
	"math/rand"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// LeaderLocator enumerates current leader positions
type LeaderLocator interface {
	LeaderPositions() []mgl64.Vec3
}

// LeaderLocatorFunc adapts a plain function to LeaderLocator
type LeaderLocatorFunc func() []mgl64.Vec3

// LeaderPositions calls f()
func (f LeaderLocatorFunc) LeaderPositions() []mgl64.Vec3 {
	return f()
}

// Follow picks random points around the nearest leader. Used by followers.
type Follow struct {
	Radius  float64
	Leaders LeaderLocator
	rng     *rand.Rand
}

// NewFollow creates new instance of Follow
func NewFollow(radius float64, leaders LeaderLocator, rng *rand.Rand) *Follow {
	return &Follow{
		Radius:  radius,
		Leaders: leaders,
		rng:     rng,
	}
}

// Next draws a point around the nearest leader. Without leaders agent stays in place.
func (follow *Follow) Next(position mgl64.Vec3) (mgl64.Vec3, error) {
	if follow.Leaders == nil {
		return position, errors.Wrap(fovlog.ErrNoTargetFound, "no leader locator")
	}
	leaders := follow.Leaders.LeaderPositions()
	ranked := RankLeaders(position, leaders)
	if len(ranked) == 0 {
		return position, errors.Wrap(fovlog.ErrNoTargetFound, "no leaders to follow")
	}
	return RandomInDisc(follow.rng, leaders[ranked[0]], follow.Radius), nil
}
