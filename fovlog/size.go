package fovlog

// TriangleMesh is implemented by surfaces which expose a triangle index buffer.
// Every three consecutive indices form one triangle record.
type TriangleMesh interface {
	Triangles() []int32
}

// SizeEstimator yields a non-negative size estimate for an observed object
type SizeEstimator interface {
	EstimateSize(obs Observation) Bytes
}

// SizeEstimatorFunc adapts a plain function to SizeEstimator
type SizeEstimatorFunc func(obs Observation) Bytes

// EstimateSize calls f(obs)
func (f SizeEstimatorFunc) EstimateSize(obs Observation) Bytes {
	return f(obs)
}

// bytesPerTriangle is three 4-byte indices
const bytesPerTriangle = 12

// TriangleSize estimates size as triangle_count * 12 for surfaces implementing TriangleMesh, 0 otherwise.
var TriangleSize SizeEstimator = SizeEstimatorFunc(func(obs Observation) Bytes {
	mesh, ok := obs.Surface.(TriangleMesh)
	if !ok || mesh == nil {
		return 0
	}
	triangleCount := len(mesh.Triangles()) / 3
	return Bytes(triangleCount * bytesPerTriangle)
})
