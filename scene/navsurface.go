package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Area is a walkable horizontal rectangle at height Y
type Area struct {
	MinX float64
	MinZ float64
	MaxX float64
	MaxZ float64
	Y    float64
}

// closest returns the point of area nearest to p
func (area Area) closest(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		math.Max(area.MinX, math.Min(p[0], area.MaxX)),
		area.Y,
		math.Max(area.MinZ, math.Min(p[2], area.MaxZ)),
	}
}

// NavSurface is a set of walkable areas. It answers nearest navigable point queries.
type NavSurface struct {
	Areas []Area
}

// NewNavSurface creates surface from areas
func NewNavSurface(areas ...Area) *NavSurface {
	return &NavSurface{Areas: areas}
}

// SamplePosition returns the walkable point nearest to point within maxDistance
func (surface *NavSurface) SamplePosition(point mgl64.Vec3, maxDistance float64) (mgl64.Vec3, bool) {
	best := mgl64.Vec3{}
	bestDistance := math.MaxFloat64
	for _, area := range surface.Areas {
		candidate := area.closest(point)
		distance := candidate.Sub(point).Len()
		if distance < bestDistance {
			bestDistance = distance
			best = candidate
		}
	}
	if bestDistance > maxDistance {
		return mgl64.Vec3{}, false
	}
	return best, true
}
