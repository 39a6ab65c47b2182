package scene

import (
	"sort"
	"sync"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/LdDl/fovlog-go/frustum"
	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// R-tree branching factors
const (
	treeMinChildren = 25
	treeMaxChildren = 50
)

// ErrNoObject is returned for unknown object identifiers
var ErrNoObject = errors.New("no such object")

// World is an in-memory scene graph. Object identifiers are issued sequentially and never reused.
// Safe for concurrent use.
type World struct {
	mu      sync.RWMutex
	objects map[fovlog.ObjectID]*Object
	tree    *rtreego.Rtree
	nextID  fovlog.ObjectID
}

// NewWorld creates empty world
func NewWorld() *World {
	return &World{
		objects: make(map[fovlog.ObjectID]*Object),
		tree:    rtreego.NewTree(3, treeMinChildren, treeMaxChildren),
		nextID:  1,
	}
}

// Spawn instantiates prefab at position and returns the issued identifier
func (world *World) Spawn(prefab Prefab, name string, position mgl64.Vec3) fovlog.ObjectID {
	world.mu.Lock()
	defer world.mu.Unlock()
	if name == "" {
		name = prefab.Name
	}
	box := prefab.boundsAt(position)
	object := &Object{
		ID:         world.nextID,
		Name:       name,
		Prefab:     prefab.Name,
		Position:   position,
		Box:        box,
		Mesh:       prefab.Mesh,
		Renderable: prefab.Renderable,
		rect:       rectFromAABB(box),
	}
	world.nextID++
	world.objects[object.ID] = object
	world.tree.Insert(object)
	return object.ID
}

// Destroy removes object from the world
func (world *World) Destroy(objectID fovlog.ObjectID) bool {
	world.mu.Lock()
	defer world.mu.Unlock()
	object, ok := world.objects[objectID]
	if !ok {
		return false
	}
	world.tree.Delete(object)
	delete(world.objects, objectID)
	return true
}

// Move places object's center at position
func (world *World) Move(objectID fovlog.ObjectID, position mgl64.Vec3) error {
	world.mu.Lock()
	defer world.mu.Unlock()
	object, ok := world.objects[objectID]
	if !ok {
		return errors.Wrapf(ErrNoObject, "Can't move object %d", objectID)
	}
	// Bounds must match the inserted ones for deletion to find the leaf
	world.tree.Delete(object)
	object.Box = object.Box.Translate(position.Sub(object.Position))
	object.Position = position
	object.rect = rectFromAABB(object.Box)
	world.tree.Insert(object)
	return nil
}

// Object returns copy of object
func (world *World) Object(objectID fovlog.ObjectID) (Object, bool) {
	world.mu.RLock()
	defer world.mu.RUnlock()
	object, ok := world.objects[objectID]
	if !ok {
		return Object{}, false
	}
	return *object, true
}

// Len returns number of objects
func (world *World) Len() int {
	world.mu.RLock()
	defer world.mu.RUnlock()
	return len(world.objects)
}

// Renderables returns every renderable object ordered by identifier
func (world *World) Renderables() []Object {
	world.mu.RLock()
	defer world.mu.RUnlock()
	out := make([]Object, 0, len(world.objects))
	for _, object := range world.objects {
		if object.Renderable {
			out = append(out, *object)
		}
	}
	sortByID(out)
	return out
}

// QueryAABB returns renderable objects whose bounds intersect box, ordered by identifier
func (world *World) QueryAABB(box frustum.AABB) []Object {
	world.mu.RLock()
	defer world.mu.RUnlock()
	spatials := world.tree.SearchIntersect(rectFromAABB(box))
	out := make([]Object, 0, len(spatials))
	for _, spatial := range spatials {
		object := spatial.(*Object)
		if object.Renderable {
			out = append(out, *object)
		}
	}
	sortByID(out)
	return out
}

func sortByID(objects []Object) {
	sort.Slice(objects, func(i, j int) bool { return objects[i].ID < objects[j].ID })
}
