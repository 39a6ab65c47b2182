package agent

import (
	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/LdDl/fovlog-go/frustum"
	"github.com/LdDl/fovlog-go/scene"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// SceneQuery is the part of the scene perception reads. *scene.World implements it.
type SceneQuery interface {
	Renderables() []scene.Object
	QueryAABB(box frustum.AABB) []scene.Object
}

// Perception evaluates two detectors against the scene.
// Immediate camera looks along the agent's heading from its current position.
// Predicted camera is usually wider and looks from where the agent is expected to be.
type Perception struct {
	Scene     SceneQuery
	Immediate *frustum.Camera
	Predicted *frustum.Camera
	EyeHeight float64
	// Self is excluded from observations. Zero means nothing is excluded.
	Self fovlog.ObjectID
}

// Validate returns wrapped fovlog.ErrMissingDependency when a detector can't be evaluated
func (perception *Perception) Validate() error {
	if perception.Scene == nil {
		return errors.Wrap(fovlog.ErrMissingDependency, "scene is not set")
	}
	if perception.Immediate == nil {
		return errors.Wrap(fovlog.ErrMissingDependency, "immediate camera is not configured")
	}
	if perception.Predicted == nil {
		return errors.Wrap(fovlog.ErrMissingDependency, "predicted camera is not configured")
	}
	if err := perception.Immediate.Validate(); err != nil {
		return errors.Wrapf(fovlog.ErrMissingDependency, "immediate camera: %v", err)
	}
	if err := perception.Predicted.Validate(); err != nil {
		return errors.Wrapf(fovlog.ErrMissingDependency, "predicted camera: %v", err)
	}
	return nil
}

// Cameras places both detectors. Heading is the current walking direction,
// predictedPosition and predictedHeading come from motion estimation.
func (perception *Perception) Cameras(position, heading, predictedPosition, predictedHeading mgl64.Vec3) (immediate, predicted frustum.Camera) {
	up := mgl64.Vec3{0, perception.EyeHeight, 0}

	immediate = *perception.Immediate
	immediate.Eye = position.Add(up)
	immediate.Forward = frustum.Horizontal(heading)

	predicted = *perception.Predicted
	predicted.Eye = predictedPosition.Add(up)
	predicted.Forward = frustum.Horizontal(predictedHeading)
	return immediate, predicted
}

// Observe builds snapshot of every renderable object.
// Objects outside both frustums are reported with both flags false.
func (perception *Perception) Observe(immediate, predicted frustum.Camera) []fovlog.Observation {
	seenImmediate := perception.visible(immediate)
	seenPredicted := perception.visible(predicted)

	objects := perception.Scene.Renderables()
	snapshot := make([]fovlog.Observation, 0, len(objects))
	for i := range objects {
		object := &objects[i]
		if perception.Self != 0 && object.ID == perception.Self {
			continue
		}
		_, inImmediate := seenImmediate[object.ID]
		_, inPredicted := seenPredicted[object.ID]
		snapshot = append(snapshot, fovlog.Observation{
			ID:                object.ID,
			Name:              object.Name,
			Immediate:         inImmediate,
			Predicted:         inPredicted,
			ImmediateDistance: fovlog.Distance(immediate.Distance(object.Box)),
			PredictedDistance: fovlog.Distance(predicted.Distance(object.Box)),
			Surface:           object.Surface(),
		})
	}
	return snapshot
}

// visible narrows broad phase candidates with the frustum test
func (perception *Perception) visible(cam frustum.Camera) map[fovlog.ObjectID]struct{} {
	planes := cam.Planes()
	candidates := perception.Scene.QueryAABB(cam.Bounds())
	seen := make(map[fovlog.ObjectID]struct{}, len(candidates))
	for i := range candidates {
		if frustum.TestAABB(planes, candidates[i].Box) {
			seen[candidates[i].ID] = struct{}{}
		}
	}
	return seen
}
