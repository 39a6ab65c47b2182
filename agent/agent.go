package agent

import (
	"context"
	"io"
	"math/rand"
	"time"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/LdDl/fovlog-go/frustum"
	"github.com/LdDl/fovlog-go/navigation"
	"github.com/LdDl/fovlog-go/scene"
	"github.com/LdDl/fovlog-go/sink"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Options describes single agent
type Options struct {
	Name     string
	Role     Role
	Position mgl64.Vec3
	Speed    float64
	// Radius of wander disc (leader) or of disc around the nearest leader (follower)
	Radius float64
	// Interval between destination draws
	Interval time.Duration
	// LogInterval between tracker ticks. Zero means every frame.
	LogInterval time.Duration
	Immediate   *frustum.Camera
	Predicted   *frustum.Camera
	// Lookahead in seconds used to place predicted camera
	Lookahead float64
	EyeHeight float64
	// Body is spawned into the world so other agents can see this one. Optional.
	Body *scene.Prefab
	// HistoryLimit bounds records kept by the tracker. Zero means default.
	HistoryLimit int
}

// Dependencies are services shared between agents
type Dependencies struct {
	World      *scene.World
	Pathfinder navigation.Pathfinder
	Leaders    navigation.LeaderLocator
	Sink       sink.Sink
	Sizer      fovlog.SizeEstimator
	Rand       *rand.Rand
	Logger     *log.Logger
}

// Agent moves around the scene and logs visibility changes of scene objects
type Agent struct {
	ID   uuid.UUID
	Name string
	Role Role

	world      *scene.World
	mover      *navigation.Mover
	walker     *scene.Walker
	motion     *navigation.MotionEstimator
	perception *Perception
	tracker    *fovlog.VisibilityTracker
	sizer      fovlog.SizeEstimator
	sink       sink.Sink
	logger     *log.Logger

	body        fovlog.ObjectID
	lookahead   float64
	logInterval time.Duration
	sinceLog    time.Duration
	// perception can't be evaluated, tracker ticks are skipped
	disabled bool
}

// New creates agent. Missing cameras do not fail construction: the problem is logged
// once and visibility ticks become no-ops.
func New(options Options, deps Dependencies) *Agent {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger = logger.With("agent", options.Name)
	sizer := deps.Sizer
	if sizer == nil {
		sizer = fovlog.TriangleSize
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	agent := &Agent{
		ID:          uuid.New(),
		Name:        options.Name,
		Role:        options.Role,
		world:       deps.World,
		walker:      scene.NewWalker(options.Position, options.Speed),
		sizer:       sizer,
		sink:        deps.Sink,
		logger:      logger,
		lookahead:   options.Lookahead,
		logInterval: options.LogInterval,
		sinceLog:    options.LogInterval,
	}

	var strategy navigation.Strategy
	switch options.Role {
	case Follower:
		strategy = navigation.NewFollow(options.Radius, deps.Leaders, rng)
	default:
		strategy = navigation.NewWander(options.Radius, deps.Pathfinder, rng)
	}
	agent.mover = navigation.NewMover(strategy, agent.walker, options.Interval, logger)

	if deps.World != nil && options.Body != nil {
		agent.body = deps.World.Spawn(*options.Body, options.Name, options.Position)
	}

	historyLimit := []fovlog.TrackerOption{}
	if options.HistoryLimit > 0 {
		historyLimit = append(historyLimit, fovlog.WithHistoryLimit(options.HistoryLimit))
	}
	agent.tracker = fovlog.NewVisibilityTracker(options.Name, historyLimit...)

	agent.perception = &Perception{
		Immediate: options.Immediate,
		Predicted: options.Predicted,
		EyeHeight: options.EyeHeight,
		Self:      agent.body,
	}
	if deps.World != nil {
		agent.perception.Scene = deps.World
	}
	if err := agent.perception.Validate(); err != nil {
		logger.Error("visibility logging disabled", "err", err)
		agent.disabled = true
	}
	return agent
}

// Position returns current position
func (agent *Agent) Position() mgl64.Vec3 {
	return agent.walker.Position()
}

// Tracker returns visibility state of the agent
func (agent *Agent) Tracker() *fovlog.VisibilityTracker {
	return agent.tracker
}

// Mover returns destination timer of the agent
func (agent *Agent) Mover() *navigation.Mover {
	return agent.mover
}

// Enabled reports whether visibility logging is active
func (agent *Agent) Enabled() bool {
	return !agent.disabled
}

// Update runs one movement tick then, when the logging interval elapsed, one visibility tick.
// Returns records emitted on this frame.
func (agent *Agent) Update(now time.Time, dt time.Duration) []fovlog.LogRecord {
	agent.mover.Update(agent.walker.Position(), dt)
	position := agent.walker.Advance(dt)
	if agent.body != 0 {
		if err := agent.world.Move(agent.body, position); err != nil {
			agent.logger.Warn("can't move body", "err", err)
		}
	}
	if agent.motion == nil {
		agent.motion = navigation.NewMotionEstimator(position, dt.Seconds())
	} else if err := agent.motion.Observe(position); err != nil {
		agent.logger.Warn("motion estimation failed", "err", err)
	}

	agent.sinceLog += dt
	if agent.sinceLog < agent.logInterval {
		return nil
	}
	agent.sinceLog = 0
	return agent.tick(now)
}

func (agent *Agent) tick(now time.Time) []fovlog.LogRecord {
	if agent.disabled {
		return nil
	}
	heading := agent.walker.Heading()
	predictedPosition := agent.motion.Predict(agent.lookahead)
	predictedHeading := heading
	if velocity := agent.motion.Velocity(); velocity.Len() > 1e-6 {
		predictedHeading = velocity
	}
	immediate, predicted := agent.perception.Cameras(agent.walker.Position(), heading, predictedPosition, predictedHeading)
	snapshot := agent.perception.Observe(immediate, predicted)
	records := agent.tracker.Tick(now, snapshot, agent.sizer)
	if len(records) == 0 || agent.sink == nil {
		return records
	}
	if err := agent.sink.Append(context.Background(), records); err != nil {
		agent.logger.Error("can't append visibility records", "records", len(records), "err", err)
	}
	return records
}
