// Package config loads fovsim configuration from YAML.
// Documents are validated against an embedded JSON schema before decoding.
package config

import (
	_ "embed"
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "fovsim.schema.json"

// RunPlaceholder in log paths is replaced by the run identifier
const RunPlaceholder = "{run}"

// Config is the whole configuration document
type Config struct {
	Seed       int64      `yaml:"seed"`
	Log        Log        `yaml:"log"`
	Simulation Simulation `yaml:"simulation"`
	Sinks      Sinks      `yaml:"sinks"`
	Cameras    Cameras    `yaml:"cameras"`
	Scene      Scene      `yaml:"scene"`
	Agents     []Agent    `yaml:"agents"`
}

// Log configures the visibility log file and diagnostics level
type Log struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// Simulation configures frame scheduling
type Simulation struct {
	// Frames to run. Zero means until interrupted.
	Frames     int  `yaml:"frames"`
	FrameMs    int  `yaml:"frame_ms"`
	Concurrent bool `yaml:"concurrent"`
	Realtime   bool `yaml:"realtime"`
}

// Sinks configures optional record destinations besides the log file
type Sinks struct {
	Async   Async    `yaml:"async"`
	Archive *Archive `yaml:"archive"`
	SQLite  *SQLite  `yaml:"sqlite"`
	Stream  *Stream  `yaml:"stream"`
	NATS    *NATS    `yaml:"nats"`
}

// Async moves appends off the simulation goroutine
type Async struct {
	Enabled bool `yaml:"enabled"`
	Queue   int  `yaml:"queue"`
}

// Archive is zstd compressed JSONL
type Archive struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// SQLite index
type SQLite struct {
	Path string `yaml:"path"`
}

// Stream serves records over websocket
type Stream struct {
	Listen string `yaml:"listen"`
}

// NATS publisher
type NATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Cameras are detector templates shared by every agent
type Cameras struct {
	Immediate *Camera `yaml:"immediate"`
	Predicted *Camera `yaml:"predicted"`
}

// Camera is a perspective projection.
// A disabled camera is not handed to agents, which then skip visibility ticks.
type Camera struct {
	Fov      float64 `yaml:"fov"`
	Aspect   float64 `yaml:"aspect"`
	Near     float64 `yaml:"near"`
	Far      float64 `yaml:"far"`
	Disabled bool    `yaml:"disabled"`
}

// Scene describes prefabs, walkable areas and initial spawns
type Scene struct {
	Prefabs  []Prefab     `yaml:"prefabs"`
	NavAreas []Area       `yaml:"nav_areas"`
	Spawn    []SpawnGroup `yaml:"spawn"`
}

// Prefab is an object template
type Prefab struct {
	Name       string     `yaml:"name"`
	Size       [3]float64 `yaml:"size"`
	Mesh       string     `yaml:"mesh"`
	Grid       [2]int     `yaml:"grid"`
	Renderable *bool      `yaml:"renderable"`
}

// Area is a walkable rectangle
type Area struct {
	MinX float64 `yaml:"min_x"`
	MinZ float64 `yaml:"min_z"`
	MaxX float64 `yaml:"max_x"`
	MaxZ float64 `yaml:"max_z"`
	Y    float64 `yaml:"y"`
}

// SpawnGroup places either Rows x Cols instances on a grid or Count instances at random inside an area
type SpawnGroup struct {
	Prefab  string     `yaml:"prefab"`
	Origin  [3]float64 `yaml:"origin"`
	Rows    int        `yaml:"rows"`
	Cols    int        `yaml:"cols"`
	Spacing float64    `yaml:"spacing"`
	Count   int        `yaml:"count"`
	AreaMin [3]float64 `yaml:"area_min"`
	AreaMax [3]float64 `yaml:"area_max"`
}

// Agent describes one agent or, with Count > 1, a group named Name_1..Name_N
type Agent struct {
	Name       string     `yaml:"name"`
	Role       string     `yaml:"role"`
	Count      int        `yaml:"count"`
	Position   [3]float64 `yaml:"position"`
	Speed      float64    `yaml:"speed"`
	Radius     float64    `yaml:"radius"`
	IntervalMs int        `yaml:"interval_ms"`
	// LogIntervalMs zero means every frame
	LogIntervalMs *int    `yaml:"log_interval_ms"`
	Lookahead     float64 `yaml:"lookahead"`
	EyeHeight     float64 `yaml:"eye_height"`
	Body          string  `yaml:"body"`
}

// Load reads, validates and decodes configuration file, then applies defaults
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "Can't read config '%s'", path)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, errors.Wrapf(err, "Config '%s'", path)
	}
	return cfg, nil
}

// Parse validates and decodes YAML document, then applies defaults
func Parse(raw []byte) (Config, error) {
	if err := Validate(raw); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "Can't decode YAML")
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Validate checks YAML document against the embedded JSON schema
func Validate(raw []byte) error {
	schema, err := jsonschema.CompileString(schemaURL, schemaJSON)
	if err != nil {
		return errors.Wrap(err, "Can't compile config schema")
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return errors.Wrap(err, "Can't parse YAML")
	}
	if doc == nil {
		doc = map[string]any{}
	}
	// Schema validation expects values shaped like encoding/json output
	b, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "Config is not representable as JSON")
	}
	var instance any
	if err := json.Unmarshal(b, &instance); err != nil {
		return errors.Wrap(err, "Can't convert config")
	}
	if err := schema.Validate(instance); err != nil {
		return errors.Wrap(err, "Invalid config")
	}
	return nil
}

// LogPath returns log path with run placeholder substituted
func (cfg Config) LogPath(run string) string {
	return strings.ReplaceAll(cfg.Log.Path, RunPlaceholder, run)
}
