package frustum

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis aligned bounding box in world space
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABB creates box from its center and full size
func NewAABB(center, size mgl64.Vec3) AABB {
	half := size.Mul(0.5)
	return AABB{
		Min: center.Sub(half),
		Max: center.Add(half),
	}
}

// NewAABBFromPoints creates the smallest box containing every point
func NewAABBFromPoints(points ...mgl64.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	box := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			box.Min[i] = math.Min(box.Min[i], p[i])
			box.Max[i] = math.Max(box.Max[i], p[i])
		}
	}
	return box
}

// Center returns box center
func (box AABB) Center() mgl64.Vec3 {
	return box.Min.Add(box.Max).Mul(0.5)
}

// Size returns full box size
func (box AABB) Size() mgl64.Vec3 {
	return box.Max.Sub(box.Min)
}

// Translate returns box moved by offset
func (box AABB) Translate(offset mgl64.Vec3) AABB {
	return AABB{
		Min: box.Min.Add(offset),
		Max: box.Max.Add(offset),
	}
}

// Intersects reports whether boxes overlap (touching counts)
func (box AABB) Intersects(other AABB) bool {
	for i := 0; i < 3; i++ {
		if box.Max[i] < other.Min[i] || other.Max[i] < box.Min[i] {
			return false
		}
	}
	return true
}

// DistanceTo returns straight-line distance from point to box center
func (box AABB) DistanceTo(point mgl64.Vec3) float64 {
	return euclideanDistance(point, box.Center())
}

func euclideanDistance(p1, p2 mgl64.Vec3) float64 {
	return math.Sqrt(math.Pow(p1[0]-p2[0], 2) + math.Pow(p1[1]-p2[1], 2) + math.Pow(p1[2]-p2[2], 2))
}

// HorizontalDistance returns distance between points projected on XZ plane
func HorizontalDistance(p1, p2 mgl64.Vec3) float64 {
	return math.Hypot(p1[0]-p2[0], p1[2]-p2[2])
}
