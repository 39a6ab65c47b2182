package main

import (
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/LdDl/fovlog-go/agent"
	"github.com/LdDl/fovlog-go/config"
	"github.com/LdDl/fovlog-go/frustum"
	"github.com/LdDl/fovlog-go/scene"
	"github.com/LdDl/fovlog-go/sink"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// outputs are record destinations opened for a run
type outputs struct {
	sink   sink.Sink
	async  *sink.Async
	stream *sink.Stream
	server *http.Server
	// logPath is the resolved text log location
	logPath string
}

func vec3(v [3]float64) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}

func buildPrefabs(cfg config.Config) (map[string]scene.Prefab, error) {
	prefabs := make(map[string]scene.Prefab, len(cfg.Scene.Prefabs))
	for _, p := range cfg.Scene.Prefabs {
		if _, ok := prefabs[p.Name]; ok {
			return nil, errors.Errorf("duplicate prefab '%s'", p.Name)
		}
		prefab := scene.Prefab{
			Name:       p.Name,
			Size:       vec3(p.Size),
			Renderable: p.Renderable == nil || *p.Renderable,
		}
		switch p.Mesh {
		case "box":
			prefab.Mesh = scene.BoxMesh()
		case "grid":
			cols, rows := p.Grid[0], p.Grid[1]
			if cols <= 0 || rows <= 0 {
				cols, rows = 1, 1
			}
			prefab.Mesh = scene.GridMesh(cols, rows)
		}
		prefabs[p.Name] = prefab
	}
	return prefabs, nil
}

// buildScene creates world populated with configured spawn groups
func buildScene(cfg config.Config, prefabs map[string]scene.Prefab, rng *rand.Rand) (*scene.World, *scene.NavSurface, error) {
	world := scene.NewWorld()
	groups := make([]scene.SpawnGroup, 0, len(cfg.Scene.Spawn))
	for _, g := range cfg.Scene.Spawn {
		groups = append(groups, scene.SpawnGroup{
			Prefab:  g.Prefab,
			Origin:  vec3(g.Origin),
			Rows:    g.Rows,
			Cols:    g.Cols,
			Spacing: g.Spacing,
			Count:   g.Count,
			Area:    frustum.AABB{Min: vec3(g.AreaMin), Max: vec3(g.AreaMax)},
		})
	}
	if _, err := scene.NewSpawner(prefabs, rng).Spawn(world, groups...); err != nil {
		return nil, nil, errors.Wrap(err, "Can't spawn scene objects")
	}
	areas := make([]scene.Area, 0, len(cfg.Scene.NavAreas))
	for _, a := range cfg.Scene.NavAreas {
		areas = append(areas, scene.Area{MinX: a.MinX, MinZ: a.MinZ, MaxX: a.MaxX, MaxZ: a.MaxZ, Y: a.Y})
	}
	return world, scene.NewNavSurface(areas...), nil
}

func camera(c *config.Camera) *frustum.Camera {
	if c == nil || c.Disabled {
		return nil
	}
	return &frustum.Camera{
		Forward: mgl64.Vec3{0, 0, 1},
		Up:      mgl64.Vec3{0, 1, 0},
		FovY:    c.Fov,
		Aspect:  c.Aspect,
		Near:    c.Near,
		Far:     c.Far,
	}
}

// buildSimulation creates agents in configuration order.
// Members of a group with Count > 1 are named Name_1..Name_N.
func buildSimulation(cfg config.Config, world *scene.World, surface *scene.NavSurface, prefabs map[string]scene.Prefab, out sink.Sink, start time.Time, logger *log.Logger) (*agent.Simulation, error) {
	sim := agent.NewSimulation(world, start, logger)
	sim.Concurrent = cfg.Simulation.Concurrent
	sim.Realtime = cfg.Simulation.Realtime

	immediate := camera(cfg.Cameras.Immediate)
	predicted := camera(cfg.Cameras.Predicted)
	seed := cfg.Seed
	for _, a := range cfg.Agents {
		role, err := agent.ParseRole(a.Role)
		if err != nil {
			return nil, errors.Wrapf(err, "agent '%s'", a.Name)
		}
		var body *scene.Prefab
		if a.Body != "" {
			prefab, ok := prefabs[a.Body]
			if !ok {
				return nil, errors.Errorf("agent '%s': unknown body prefab '%s'", a.Name, a.Body)
			}
			body = &prefab
		}
		logInterval := 0
		if a.LogIntervalMs != nil {
			logInterval = *a.LogIntervalMs
		}
		for i := 0; i < a.Count; i++ {
			name := a.Name
			if a.Count > 1 {
				name = a.Name + "_" + strconv.Itoa(i+1)
			}
			seed++
			position := vec3(a.Position)
			// Spread group members along X so they don't start inside each other
			position[0] += float64(i)
			sim.AddAgent(agent.Options{
				Name:        name,
				Role:        role,
				Position:    position,
				Speed:       a.Speed,
				Radius:      a.Radius,
				Interval:    time.Duration(a.IntervalMs) * time.Millisecond,
				LogInterval: time.Duration(logInterval) * time.Millisecond,
				Immediate:   immediate,
				Predicted:   predicted,
				Lookahead:   a.Lookahead,
				EyeHeight:   a.EyeHeight,
				Body:        body,
			}, agent.Dependencies{
				Pathfinder: surface,
				Sink:       out,
				Rand:       rand.New(rand.NewSource(seed)),
			})
		}
	}
	return sim, nil
}

// openOutputs opens text log and every configured sink
func openOutputs(cfg config.Config, run string, logger *log.Logger) (*outputs, error) {
	out := &outputs{logPath: cfg.LogPath(run)}
	file, err := sink.OpenFile(out.logPath)
	if err != nil {
		return nil, err
	}
	sinks := sink.Multi{file}
	fail := func(err error) (*outputs, error) {
		_ = sinks.Close()
		return nil, err
	}
	if a := cfg.Sinks.Archive; a != nil {
		sinks = append(sinks, sink.NewZstdArchive(a.Dir, a.Prefix))
	}
	if s := cfg.Sinks.SQLite; s != nil {
		index, err := sink.OpenSQLite(s.Path)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, index)
	}
	if n := cfg.Sinks.NATS; n != nil {
		publisher, err := sink.ConnectNATS(n.URL, n.Subject)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, publisher)
	}
	if s := cfg.Sinks.Stream; s != nil {
		out.stream = sink.NewStream(logger)
		mux := http.NewServeMux()
		mux.Handle(sink.StreamPath, out.stream)
		out.server = &http.Server{Addr: s.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		sinks = append(sinks, out.stream)
	}

	out.sink = sinks
	if cfg.Sinks.Async.Enabled {
		out.async = sink.NewAsync(sinks, cfg.Sinks.Async.Queue, logger)
		out.sink = out.async
	}
	return out, nil
}

// close stops stream server and flushes sinks
func (out *outputs) close(logger *log.Logger) error {
	if out.server != nil {
		_ = out.server.Close()
	}
	if out.async != nil {
		stats := out.async.Stats()
		logger.Info("async sink", "written", stats.Written, "dropped", stats.Dropped, "failed", stats.Failed)
	}
	return out.sink.Close()
}
