package frustum

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	eps = 0.00001
)

func TestEuclideanDistance(t *testing.T) {
	p1 := mgl64.Vec3{341, 264, 0}
	p2 := mgl64.Vec3{421, 427, 0}
	correnctAnswer := 181.57367
	answer := euclideanDistance(p1, p2)
	if math.Abs(answer-correnctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correnctAnswer)
	}
}

func TestHorizontalDistance(t *testing.T) {
	answer := HorizontalDistance(mgl64.Vec3{0, 100, 0}, mgl64.Vec3{3, -5, 4})
	if math.Abs(answer-5.0) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, 5.0)
	}
}

func TestAABBGeometry(t *testing.T) {
	box := NewAABB(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{2, 2, 2})
	if !box.Center().ApproxEqual(mgl64.Vec3{1, 2, 3}) {
		t.Errorf("Wrong center: %v", box.Center())
	}
	if !box.Min.ApproxEqual(mgl64.Vec3{0, 1, 2}) || !box.Max.ApproxEqual(mgl64.Vec3{2, 3, 4}) {
		t.Errorf("Wrong bounds: %v - %v", box.Min, box.Max)
	}
	moved := box.Translate(mgl64.Vec3{10, 0, 0})
	if box.Intersects(moved) {
		t.Errorf("Boxes should not intersect")
	}
	if !box.Intersects(box.Translate(mgl64.Vec3{2, 0, 0})) {
		t.Errorf("Touching boxes should intersect")
	}
	fromPoints := NewAABBFromPoints(mgl64.Vec3{1, -1, 5}, mgl64.Vec3{-2, 4, 0})
	if !fromPoints.Min.ApproxEqual(mgl64.Vec3{-2, -1, 0}) || !fromPoints.Max.ApproxEqual(mgl64.Vec3{1, 4, 5}) {
		t.Errorf("Wrong bounds from points: %v - %v", fromPoints.Min, fromPoints.Max)
	}
	if math.Abs(box.DistanceTo(mgl64.Vec3{1, 2, 8})-5.0) > eps {
		t.Errorf("Wrong distance to center: %v", box.DistanceTo(mgl64.Vec3{1, 2, 8}))
	}
}
