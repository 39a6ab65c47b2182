package scene

import (
	"github.com/LdDl/fovlog-go/frustum"
	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is a triangle index buffer. Every three indices form one triangle.
type Mesh struct {
	Indices []int32
}

// Triangles returns the index buffer
func (mesh *Mesh) Triangles() []int32 {
	if mesh == nil {
		return nil
	}
	return mesh.Indices
}

// BoxMesh returns a closed box of 12 triangles over 8 vertices
func BoxMesh() *Mesh {
	return &Mesh{Indices: []int32{
		0, 2, 1, 0, 3, 2, // bottom
		4, 5, 6, 4, 6, 7, // top
		0, 1, 5, 0, 5, 4, // front
		1, 2, 6, 1, 6, 5, // right
		2, 3, 7, 2, 7, 6, // back
		3, 0, 4, 3, 4, 7, // left
	}}
}

// GridMesh returns a flat grid of cols x rows quads, two triangles each
func GridMesh(cols, rows int) *Mesh {
	if cols <= 0 || rows <= 0 {
		return &Mesh{}
	}
	indices := make([]int32, 0, cols*rows*6)
	stride := int32(cols + 1)
	for r := int32(0); r < int32(rows); r++ {
		for c := int32(0); c < int32(cols); c++ {
			i := r*stride + c
			indices = append(indices, i, i+stride, i+1, i+1, i+stride, i+stride+1)
		}
	}
	return &Mesh{Indices: indices}
}

// Prefab is a template for scene objects
type Prefab struct {
	Name string
	Size mgl64.Vec3
	// Nil for objects without triangle surface
	Mesh       *Mesh
	Renderable bool
}

// boundsAt returns prefab's bounds centered on position
func (prefab Prefab) boundsAt(position mgl64.Vec3) frustum.AABB {
	return frustum.NewAABB(position, prefab.Size)
}
