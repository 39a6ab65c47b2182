package config

// Values used for omitted settings
const (
	DefaultLogPath       = "logs/visibility-{run}.log"
	DefaultLevel         = "info"
	DefaultFrameMs       = 50
	DefaultIntervalMs    = 3000
	DefaultLogIntervalMs = 1000
	DefaultLookahead     = 1.0
	DefaultEyeHeight     = 1.6
	DefaultSpeed         = 3.5
	DefaultRadius        = 10.0
)

// Default returns configuration of a small demo scene
func Default() Config {
	cfg := Config{
		Seed: 1,
		Simulation: Simulation{
			Frames: 1200,
		},
		Scene: Scene{
			Prefabs: []Prefab{
				{Name: "Rock", Size: [3]float64{1, 1, 1}, Mesh: "box"},
				{Name: "Tile", Size: [3]float64{4, 0.1, 4}, Mesh: "grid", Grid: [2]int{4, 4}},
			},
			NavAreas: []Area{
				{MinX: -50, MinZ: -50, MaxX: 50, MaxZ: 50},
			},
			Spawn: []SpawnGroup{
				{Prefab: "Rock", Origin: [3]float64{-20, 0.5, -20}, Rows: 5, Cols: 5, Spacing: 10},
				{Prefab: "Tile", Count: 10, AreaMin: [3]float64{-40, 0, -40}, AreaMax: [3]float64{40, 0, 40}},
			},
		},
		Agents: []Agent{
			{Name: "Leader", Role: "leader", Count: 2},
			{Name: "Follower", Role: "follower", Count: 4, Radius: 3},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values
func (cfg *Config) ApplyDefaults() {
	if cfg.Log.Path == "" {
		cfg.Log.Path = DefaultLogPath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLevel
	}
	if cfg.Simulation.FrameMs <= 0 {
		cfg.Simulation.FrameMs = DefaultFrameMs
	}
	if cfg.Cameras.Immediate == nil {
		cfg.Cameras.Immediate = &Camera{Fov: 60}
	}
	if cfg.Cameras.Predicted == nil {
		cfg.Cameras.Predicted = &Camera{Fov: 90}
	}
	cfg.Cameras.Immediate.applyDefaults()
	cfg.Cameras.Predicted.applyDefaults()
	for i := range cfg.Scene.Prefabs {
		prefab := &cfg.Scene.Prefabs[i]
		if prefab.Size == [3]float64{} {
			prefab.Size = [3]float64{1, 1, 1}
		}
		if prefab.Mesh == "" {
			prefab.Mesh = "none"
		}
		if prefab.Renderable == nil {
			renderable := true
			prefab.Renderable = &renderable
		}
	}
	for i := range cfg.Agents {
		agent := &cfg.Agents[i]
		if agent.Count <= 0 {
			agent.Count = 1
		}
		if agent.Speed == 0 {
			agent.Speed = DefaultSpeed
		}
		if agent.Radius == 0 {
			agent.Radius = DefaultRadius
		}
		if agent.IntervalMs <= 0 {
			agent.IntervalMs = DefaultIntervalMs
		}
		if agent.LogIntervalMs == nil {
			logInterval := DefaultLogIntervalMs
			agent.LogIntervalMs = &logInterval
		}
		if agent.Lookahead == 0 {
			agent.Lookahead = DefaultLookahead
		}
		if agent.EyeHeight == 0 {
			agent.EyeHeight = DefaultEyeHeight
		}
	}
}

func (cam *Camera) applyDefaults() {
	if cam.Fov == 0 {
		cam.Fov = 60
	}
	if cam.Aspect == 0 {
		cam.Aspect = 16.0 / 9.0
	}
	if cam.Near == 0 {
		cam.Near = 0.3
	}
	if cam.Far == 0 {
		cam.Far = 100
	}
}
