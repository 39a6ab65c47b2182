package scene

import (
	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/LdDl/fovlog-go/frustum"
	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl64"
)

// minExtent pads degenerate boxes so the R-tree accepts them
const minExtent = 1e-6

// Object is a scene object. Values returned by World are copies.
type Object struct {
	ID         fovlog.ObjectID
	Name       string
	Prefab     string
	Position   mgl64.Vec3
	Box        frustum.AABB
	Mesh       *Mesh
	Renderable bool

	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial
func (object *Object) Bounds() rtreego.Rect {
	return object.rect
}

// Surface returns value suitable for fovlog.Observation.Surface
func (object Object) Surface() any {
	if object.Mesh == nil {
		return nil
	}
	return object.Mesh
}

func rectFromAABB(box frustum.AABB) rtreego.Rect {
	minPoint := rtreego.Point{box.Min[0], box.Min[1], box.Min[2]}
	maxPoint := rtreego.Point{box.Max[0], box.Max[1], box.Max[2]}
	for i := range maxPoint {
		if maxPoint[i]-minPoint[i] < minExtent {
			maxPoint[i] = minPoint[i] + minExtent
		}
	}
	rect, _ := rtreego.NewRectFromPoints(minPoint, maxPoint)
	return rect
}
