package agent

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/LdDl/fovlog-go/scene"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
)

// Simulation drives agents frame by frame
type Simulation struct {
	World  *scene.World
	Agents []*Agent
	// Concurrent updates agents of one frame in parallel goroutines
	Concurrent bool
	// Realtime paces Run with wall clock instead of stepping as fast as possible
	Realtime bool

	now    time.Time
	frames uint64
	logger *log.Logger

	leadersMu sync.RWMutex
	leaders   []mgl64.Vec3
}

// NewSimulation creates simulation over world. Virtual clock starts at start.
func NewSimulation(world *scene.World, start time.Time, logger *log.Logger) *Simulation {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Simulation{
		World:  world,
		Agents: make([]*Agent, 0),
		now:    start,
		logger: logger,
	}
}

// AddAgent creates agent wired to the simulation's world and leader positions
func (sim *Simulation) AddAgent(options Options, deps Dependencies) *Agent {
	deps.World = sim.World
	deps.Leaders = sim
	if deps.Logger == nil {
		deps.Logger = sim.logger
	}
	agent := New(options, deps)
	sim.Agents = append(sim.Agents, agent)
	sim.refreshLeaders()
	return agent
}

// LeaderPositions implements navigation.LeaderLocator.
// Positions are captured at the beginning of each frame in creation order.
func (sim *Simulation) LeaderPositions() []mgl64.Vec3 {
	sim.leadersMu.RLock()
	defer sim.leadersMu.RUnlock()
	out := make([]mgl64.Vec3, len(sim.leaders))
	copy(out, sim.leaders)
	return out
}

func (sim *Simulation) refreshLeaders() {
	leaders := make([]mgl64.Vec3, 0, len(sim.Agents))
	for _, agent := range sim.Agents {
		if agent.Role == Leader {
			leaders = append(leaders, agent.Position())
		}
	}
	sim.leadersMu.Lock()
	sim.leaders = leaders
	sim.leadersMu.Unlock()
}

// Now returns virtual clock
func (sim *Simulation) Now() time.Time {
	return sim.now
}

// Frames returns number of completed steps
func (sim *Simulation) Frames() uint64 {
	return sim.frames
}

// Step advances virtual clock by dt and updates every agent.
// Records are returned grouped by agent in creation order.
func (sim *Simulation) Step(dt time.Duration) []fovlog.LogRecord {
	sim.now = sim.now.Add(dt)
	sim.refreshLeaders()

	perAgent := make([][]fovlog.LogRecord, len(sim.Agents))
	if sim.Concurrent {
		var wg sync.WaitGroup
		wg.Add(len(sim.Agents))
		for i, agent := range sim.Agents {
			go func(i int, agent *Agent) {
				defer wg.Done()
				perAgent[i] = agent.Update(sim.now, dt)
			}(i, agent)
		}
		wg.Wait()
	} else {
		for i, agent := range sim.Agents {
			perAgent[i] = agent.Update(sim.now, dt)
		}
	}
	sim.frames++

	out := make([]fovlog.LogRecord, 0)
	for _, records := range perAgent {
		out = append(out, records...)
	}
	return out
}

// Run performs frames steps of length tick. Zero frames means run until ctx is done.
func (sim *Simulation) Run(ctx context.Context, frames int, tick time.Duration) error {
	var ticker *time.Ticker
	if sim.Realtime {
		ticker = time.NewTicker(tick)
		defer ticker.Stop()
	}
	total := 0
	for i := 0; frames <= 0 || i < frames; i++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		total += len(sim.Step(tick))
	}
	sim.logger.Info("simulation finished", "frames", sim.frames, "records", total)
	return nil
}
