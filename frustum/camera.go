package frustum

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Plane is n·p + D = 0. Points with positive signed distance are inside.
type Plane struct {
	Normal mgl64.Vec3
	D      float64
}

// SignedDistance returns distance from point to plane along plane's normal
func (plane Plane) SignedDistance(point mgl64.Vec3) float64 {
	return plane.Normal.Dot(point) + plane.D
}

func planeFromRow(row mgl64.Vec4) Plane {
	normal := row.Vec3()
	length := normal.Len()
	if length == 0 {
		return Plane{}
	}
	return Plane{
		Normal: normal.Mul(1.0 / length),
		D:      row.W() / length,
	}
}

// Camera is a perspective viewpoint
type Camera struct {
	Eye     mgl64.Vec3
	Forward mgl64.Vec3
	Up      mgl64.Vec3
	// Vertical field of view in degrees
	FovY   float64
	Aspect float64
	Near   float64
	Far    float64
}

// Validate checks that camera parameters describe a proper frustum
func (cam Camera) Validate() error {
	if cam.FovY <= 0 || cam.FovY >= 180 {
		return errors.Errorf("field of view must be in (0, 180) degrees, got %f", cam.FovY)
	}
	if cam.Aspect <= 0 {
		return errors.Errorf("aspect must be positive, got %f", cam.Aspect)
	}
	if cam.Near <= 0 || cam.Far <= cam.Near {
		return errors.Errorf("clip planes must satisfy 0 < near < far, got near=%f far=%f", cam.Near, cam.Far)
	}
	if cam.Forward.Len() == 0 {
		return errors.New("forward direction is zero")
	}
	if cam.Forward.Cross(cam.Up).Len() == 0 {
		return errors.New("up direction is parallel to forward")
	}
	return nil
}

// ViewProjection returns projection * view matrix
func (cam Camera) ViewProjection() mgl64.Mat4 {
	projection := mgl64.Perspective(mgl64.DegToRad(cam.FovY), cam.Aspect, cam.Near, cam.Far)
	view := mgl64.LookAtV(cam.Eye, cam.Eye.Add(cam.Forward), cam.Up)
	return projection.Mul4(view)
}

// Planes extracts left, right, bottom, top, near and far planes with normals facing inwards
func (cam Camera) Planes() [6]Plane {
	m := cam.ViewProjection()
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)
	return [6]Plane{
		planeFromRow(r3.Add(r0)),
		planeFromRow(r3.Sub(r0)),
		planeFromRow(r3.Add(r1)),
		planeFromRow(r3.Sub(r1)),
		planeFromRow(r3.Add(r2)),
		planeFromRow(r3.Sub(r2)),
	}
}

// Corners returns the eight frustum corners in world space
func (cam Camera) Corners() [8]mgl64.Vec3 {
	inv := cam.ViewProjection().Inv()
	var corners [8]mgl64.Vec3
	i := 0
	for _, x := range []float64{-1, 1} {
		for _, y := range []float64{-1, 1} {
			for _, z := range []float64{-1, 1} {
				v := inv.Mul4x1(mgl64.Vec4{x, y, z, 1})
				corners[i] = v.Vec3().Mul(1.0 / v.W())
				i++
			}
		}
	}
	return corners
}

// Bounds returns world space box enclosing the frustum, suitable for broad phase queries
func (cam Camera) Bounds() AABB {
	corners := cam.Corners()
	return NewAABBFromPoints(corners[:]...)
}

// TestAABB reports whether box is inside or intersects the volume bounded by planes.
// Box is rejected as soon as it lies fully behind a single plane.
func TestAABB(planes [6]Plane, box AABB) bool {
	for _, plane := range planes {
		// Box corner furthest along plane's normal
		var positive mgl64.Vec3
		for i := 0; i < 3; i++ {
			if plane.Normal[i] >= 0 {
				positive[i] = box.Max[i]
			} else {
				positive[i] = box.Min[i]
			}
		}
		if plane.SignedDistance(positive) < 0 {
			return false
		}
	}
	return true
}

// Distance returns straight-line distance from camera's eye to box center
func (cam Camera) Distance(box AABB) float64 {
	return box.DistanceTo(cam.Eye)
}

// Horizontal returns forward direction projected on XZ plane, or +Z when it is vertical
func Horizontal(direction mgl64.Vec3) mgl64.Vec3 {
	flat := mgl64.Vec3{direction[0], 0, direction[2]}
	if flat.Len() < 1e-9 || math.IsNaN(flat.Len()) {
		return mgl64.Vec3{0, 0, 1}
	}
	return flat.Normalize()
}
