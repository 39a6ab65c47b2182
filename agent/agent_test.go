package agent

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/LdDl/fovlog-go/frustum"
	"github.com/LdDl/fovlog-go/scene"
	"github.com/LdDl/fovlog-go/sink"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rockPrefab = scene.Prefab{Name: "Rock", Size: mgl64.Vec3{1, 1, 1}, Mesh: scene.BoxMesh(), Renderable: true}
	bodyPrefab = scene.Prefab{Name: "Agent", Size: mgl64.Vec3{0.5, 2, 0.5}, Renderable: true}
	startTime  = time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
)

func narrowCamera() *frustum.Camera {
	return &frustum.Camera{Up: mgl64.Vec3{0, 1, 0}, Forward: mgl64.Vec3{0, 0, 1}, FovY: 60, Aspect: 1, Near: 0.3, Far: 50}
}

func wideCamera() *frustum.Camera {
	cam := narrowCamera()
	cam.FovY = 100
	return cam
}

type failingSink struct {
	calls int
}

func (s *failingSink) Append(ctx context.Context, records []fovlog.LogRecord) error {
	s.calls++
	return errors.Wrap(fovlog.ErrLogWrite, "disk full")
}

func (s *failingSink) Close() error { return nil }

func TestPerceptionFlags(t *testing.T) {
	world := scene.NewWorld()
	ahead := world.Spawn(rockPrefab, "ahead", mgl64.Vec3{0, 0, 10})
	side := world.Spawn(rockPrefab, "side", mgl64.Vec3{8, 0, 10})
	behind := world.Spawn(rockPrefab, "behind", mgl64.Vec3{0, 0, -10})

	perception := &Perception{Scene: world, Immediate: narrowCamera(), Predicted: wideCamera()}
	require.NoError(t, perception.Validate())
	forward := mgl64.Vec3{0, 0, 1}
	immediate, predicted := perception.Cameras(mgl64.Vec3{}, forward, mgl64.Vec3{}, forward)
	snapshot := perception.Observe(immediate, predicted)
	require.Len(t, snapshot, 3)

	byID := make(map[fovlog.ObjectID]fovlog.Observation)
	for _, obs := range snapshot {
		byID[obs.ID] = obs
	}
	assert.True(t, byID[ahead].Immediate)
	assert.True(t, byID[ahead].Predicted)
	assert.False(t, byID[side].Immediate)
	assert.True(t, byID[side].Predicted)
	assert.False(t, byID[behind].Immediate)
	assert.False(t, byID[behind].Predicted)
	assert.InDelta(t, 10.0, float64(byID[ahead].ImmediateDistance), 1e-9)
	assert.InDelta(t, 10.0, float64(byID[behind].PredictedDistance), 1e-9)
	assert.NotNil(t, byID[ahead].Surface)
}

func TestPerceptionPredictedEye(t *testing.T) {
	world := scene.NewWorld()
	rock := world.Spawn(rockPrefab, "", mgl64.Vec3{0, 0, 10})
	perception := &Perception{Scene: world, Immediate: narrowCamera(), Predicted: narrowCamera()}
	forward := mgl64.Vec3{0, 0, 1}
	// Predicted viewpoint already walked past the rock
	immediate, predicted := perception.Cameras(mgl64.Vec3{}, forward, mgl64.Vec3{0, 0, 20}, forward)
	snapshot := perception.Observe(immediate, predicted)
	require.Len(t, snapshot, 1)
	assert.Equal(t, rock, snapshot[0].ID)
	assert.True(t, snapshot[0].Immediate)
	assert.False(t, snapshot[0].Predicted)
	assert.InDelta(t, 10.0, float64(snapshot[0].PredictedDistance), 1e-9)
}

func TestPerceptionExcludesSelf(t *testing.T) {
	world := scene.NewWorld()
	self := world.Spawn(bodyPrefab, "me", mgl64.Vec3{0, 0, 1})
	world.Spawn(rockPrefab, "", mgl64.Vec3{0, 0, 10})
	perception := &Perception{Scene: world, Immediate: narrowCamera(), Predicted: wideCamera(), Self: self}
	forward := mgl64.Vec3{0, 0, 1}
	snapshot := perception.Observe(perception.Cameras(mgl64.Vec3{}, forward, mgl64.Vec3{}, forward))
	require.Len(t, snapshot, 1)
	assert.NotEqual(t, self, snapshot[0].ID)
}

func TestPerceptionValidate(t *testing.T) {
	world := scene.NewWorld()
	invalid := narrowCamera()
	invalid.Far = 0
	cases := []*Perception{
		{Immediate: narrowCamera(), Predicted: wideCamera()},
		{Scene: world, Predicted: wideCamera()},
		{Scene: world, Immediate: narrowCamera()},
		{Scene: world, Immediate: narrowCamera(), Predicted: invalid},
	}
	for i, perception := range cases {
		err := perception.Validate()
		assert.True(t, errors.Is(err, fovlog.ErrMissingDependency), "case %d: %v", i, err)
	}
}

func TestAgentLogsTransitions(t *testing.T) {
	world := scene.NewWorld()
	rock := world.Spawn(rockPrefab, "Rock", mgl64.Vec3{0, 0, 5})
	memory := &sink.Memory{}
	agent := New(Options{
		Name:        "Agent1",
		Role:        Leader,
		Interval:    time.Hour,
		LogInterval: time.Second,
		Immediate:   narrowCamera(),
		Predicted:   wideCamera(),
		Lookahead:   1,
	}, Dependencies{World: world, Sink: memory, Rand: rand.New(rand.NewSource(1))})
	require.True(t, agent.Enabled())

	frame := 100 * time.Millisecond
	now := startTime
	records := agent.Update(now, frame)
	require.Len(t, records, 1)
	assert.Equal(t, "Agent1", records[0].Observer)
	assert.Equal(t, rock, records[0].ObjectID)
	assert.True(t, records[0].Immediate)
	assert.Equal(t, fovlog.Bytes(144), records[0].Size)

	// Nothing happens until the logging interval elapses
	for i := 0; i < 9; i++ {
		now = now.Add(frame)
		assert.Empty(t, agent.Update(now, frame))
	}

	require.True(t, world.Destroy(rock))
	now = now.Add(frame)
	records = agent.Update(now, frame)
	require.Len(t, records, 1)
	assert.True(t, records[0].Exit)
	assert.Equal(t, fovlog.NoDistance, records[0].ImmediateDistance)

	require.Len(t, memory.Batches, 2)
	assert.Equal(t, memory.Records(), agent.Tracker().History())
}

func TestAgentMissingCameraIsNoop(t *testing.T) {
	world := scene.NewWorld()
	world.Spawn(rockPrefab, "Rock", mgl64.Vec3{0, 0, 5})
	memory := &sink.Memory{}
	agent := New(Options{
		Name:      "Blind",
		Radius:    5,
		Speed:     1,
		Interval:  time.Second,
		Immediate: narrowCamera(),
	}, Dependencies{World: world, Sink: memory, Rand: rand.New(rand.NewSource(2))})
	assert.False(t, agent.Enabled())

	now := startTime
	for i := 0; i < 30; i++ {
		now = now.Add(100 * time.Millisecond)
		assert.Empty(t, agent.Update(now, 100*time.Millisecond))
	}
	assert.Empty(t, memory.Batches)
	assert.Empty(t, agent.Tracker().Objects)
	_, hasTarget := agent.Mover().Target()
	assert.True(t, hasTarget)
}

func TestAgentAppendFailureKeepsRunning(t *testing.T) {
	world := scene.NewWorld()
	rock := world.Spawn(rockPrefab, "Rock", mgl64.Vec3{0, 0, 5})
	failing := &failingSink{}
	agent := New(Options{
		Name:      "Agent1",
		Interval:  time.Hour,
		Immediate: narrowCamera(),
		Predicted: wideCamera(),
	}, Dependencies{World: world, Sink: failing, Rand: rand.New(rand.NewSource(3))})

	assert.Len(t, agent.Update(startTime, 100*time.Millisecond), 1)
	require.NoError(t, world.Move(rock, mgl64.Vec3{0, 0, -5}))
	records := agent.Update(startTime.Add(time.Second), 100*time.Millisecond)
	require.Len(t, records, 1)
	assert.False(t, records[0].Immediate)
	assert.Equal(t, 2, failing.calls)
}

func TestSimulationFollowerReachesLeader(t *testing.T) {
	world := scene.NewWorld()
	sim := NewSimulation(world, startTime, nil)
	leader := sim.AddAgent(Options{
		Name:      "Leader",
		Role:      Leader,
		Interval:  time.Second,
		Immediate: narrowCamera(),
		Predicted: wideCamera(),
		Body:      &bodyPrefab,
	}, Dependencies{Rand: rand.New(rand.NewSource(4))})
	follower := sim.AddAgent(Options{
		Name:      "Follower",
		Role:      Follower,
		Position:  mgl64.Vec3{20, 0, 0},
		Speed:     5,
		Radius:    1,
		Interval:  time.Second,
		Immediate: narrowCamera(),
		Predicted: wideCamera(),
		Lookahead: 0.5,
		Body:      &bodyPrefab,
	}, Dependencies{Rand: rand.New(rand.NewSource(5))})

	require.NoError(t, sim.Run(context.Background(), 200, 100*time.Millisecond))
	assert.Equal(t, uint64(200), sim.Frames())
	assert.True(t, sim.Now().Equal(startTime.Add(20*time.Second)))
	assert.LessOrEqual(t, frustum.HorizontalDistance(follower.Position(), leader.Position()), 1.0+1e-6)

	// Each agent sees the other's body but never its own
	_, ok := follower.Tracker().Object(leader.body)
	assert.True(t, ok)
	_, ok = follower.Tracker().Object(follower.body)
	assert.False(t, ok)
	_, ok = leader.Tracker().Object(leader.body)
	assert.False(t, ok)

	// Body follows the agent
	body, ok := world.Object(follower.body)
	require.True(t, ok)
	assert.True(t, body.Position.ApproxEqual(follower.Position()))
}

func TestSimulationConcurrentStep(t *testing.T) {
	world := scene.NewWorld()
	for i := 0; i < 20; i++ {
		world.Spawn(rockPrefab, "", mgl64.Vec3{float64(i%5) * 3, 0, float64(i/5) * 3})
	}
	memory := &sink.Memory{}
	async := sink.NewAsync(memory, 1024, nil)
	sim := NewSimulation(world, startTime, nil)
	sim.Concurrent = true
	for i := 0; i < 4; i++ {
		role := Follower
		if i == 0 {
			role = Leader
		}
		sim.AddAgent(Options{
			Name:      "Agent" + string(rune('A'+i)),
			Role:      role,
			Position:  mgl64.Vec3{float64(i), 0, -5},
			Speed:     2,
			Radius:    4,
			Interval:  500 * time.Millisecond,
			Immediate: narrowCamera(),
			Predicted: wideCamera(),
			Lookahead: 1,
			Body:      &bodyPrefab,
		}, Dependencies{Sink: async, Rand: rand.New(rand.NewSource(int64(i)))})
	}
	total := 0
	for i := 0; i < 50; i++ {
		total += len(sim.Step(50 * time.Millisecond))
	}
	require.NoError(t, async.Close())
	assert.Equal(t, total, len(memory.Records()))
	for _, agent := range sim.Agents {
		assert.NotEmpty(t, agent.Tracker().Objects, agent.Name)
	}
}

func TestSimulationRunCancelled(t *testing.T) {
	sim := NewSimulation(scene.NewWorld(), startTime, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sim.Run(ctx, 0, time.Millisecond)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, uint64(0), sim.Frames())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Follower ")
	require.NoError(t, err)
	assert.Equal(t, Follower, role)
	assert.Equal(t, "leader", Leader.String())
	_, err = ParseRole("boss")
	assert.Error(t, err)
}
