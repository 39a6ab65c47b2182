package scene

import (
	"fmt"
	"math/rand"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/LdDl/fovlog-go/frustum"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// SpawnGroup places instances of a prefab either on a fixed grid or at random coordinates.
// Count > 0 selects random placement inside Area, otherwise Rows x Cols instances are laid
// out from Origin with Spacing along X and Z.
type SpawnGroup struct {
	Prefab  string
	Origin  mgl64.Vec3
	Rows    int
	Cols    int
	Spacing float64
	Count   int
	Area    frustum.AABB
}

// Spawner instantiates spawn groups from a prefab library
type Spawner struct {
	Prefabs map[string]Prefab
	rng     *rand.Rand
	counter map[string]int
}

// NewSpawner creates new instance of Spawner
func NewSpawner(prefabs map[string]Prefab, rng *rand.Rand) *Spawner {
	return &Spawner{
		Prefabs: prefabs,
		rng:     rng,
		counter: make(map[string]int),
	}
}

// Spawn instantiates every group into world and returns issued identifiers in spawn order
func (spawner *Spawner) Spawn(world *World, groups ...SpawnGroup) ([]fovlog.ObjectID, error) {
	ids := make([]fovlog.ObjectID, 0)
	for i, group := range groups {
		prefab, ok := spawner.Prefabs[group.Prefab]
		if !ok {
			return ids, errors.Errorf("spawn group %d: unknown prefab '%s'", i, group.Prefab)
		}
		if group.Count > 0 {
			for n := 0; n < group.Count; n++ {
				ids = append(ids, world.Spawn(prefab, spawner.name(prefab), spawner.randomIn(group.Area)))
			}
			continue
		}
		for row := 0; row < group.Rows; row++ {
			for col := 0; col < group.Cols; col++ {
				position := group.Origin.Add(mgl64.Vec3{float64(col) * group.Spacing, 0, float64(row) * group.Spacing})
				ids = append(ids, world.Spawn(prefab, spawner.name(prefab), position))
			}
		}
	}
	return ids, nil
}

func (spawner *Spawner) name(prefab Prefab) string {
	spawner.counter[prefab.Name]++
	return fmt.Sprintf("%s_%d", prefab.Name, spawner.counter[prefab.Name])
}

func (spawner *Spawner) randomIn(area frustum.AABB) mgl64.Vec3 {
	var p mgl64.Vec3
	for i := 0; i < 3; i++ {
		p[i] = area.Min[i] + spawner.rng.Float64()*(area.Max[i]-area.Min[i])
	}
	return p
}
