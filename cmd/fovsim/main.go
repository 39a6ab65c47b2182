package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LdDl/fovlog-go/config"
	"github.com/LdDl/fovlog-go/sink"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func main() {
	app := makeapp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func makeapp() *cli.App {
	app := cli.NewApp()
	app.Name = "fovsim"
	app.Usage = "Simulate leader and follower agents and log visibility of scene objects"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "log-level", Value: "", Usage: "Diagnostics level: debug, info, warn, error (overrides config)"},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "Run a simulation",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "config", Value: "", Usage: "Path to YAML config; built-in demo scene when empty"},
				cli.IntFlag{Name: "frames", Value: -1, Usage: "Number of frames (overrides config, 0 runs until interrupted)"},
				cli.StringFlag{Name: "run-id", Value: "", Usage: "Run identifier substituted into log path (random uuid when empty)"},
			},
			Action: func(c *cli.Context) error {
				return runAction(c.String("config"), c.GlobalString("log-level"), c.Int("frames"), c.String("run-id"))
			},
		},
		{
			Name:  "inspect",
			Usage: "Query SQLite index of visibility records",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "db", Value: "logs/index.db", Usage: "Path to SQLite index"},
				cli.StringFlag{Name: "observer", Value: "", Usage: "Print records of this observer; observer summary when empty"},
				cli.Uint64Flag{Name: "object", Value: 0, Usage: "Print records of this object id only"},
				cli.IntFlag{Name: "limit", Value: 100, Usage: "Maximum number of records"},
			},
			Action: func(c *cli.Context) error {
				return inspectAction(c.String("db"), c.String("observer"), c.Uint64("object"), c.Int("limit"))
			},
		},
		{
			Name:      "archive",
			Usage:     "Print records of a zstd archive file as log lines",
			ArgsUsage: "<file.jsonl.zst>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errors.New("expected exactly one archive file")
				}
				return archiveAction(c.Args().First())
			},
		},
		{
			Name:      "validate",
			Usage:     "Validate a YAML config against the schema",
			ArgsUsage: "<config.yaml>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errors.New("expected exactly one config file")
				}
				if _, err := config.Load(c.Args().First()); err != nil {
					return err
				}
				fmt.Println("ok")
				return nil
			},
		},
	}
	return app
}

func newLogger(level string) (*log.Logger, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "fovsim",
	})
	if level == "" {
		return logger, nil
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't parse log level '%s'", level)
	}
	logger.SetLevel(lvl)
	return logger, nil
}

func runAction(configPath, level string, frames int, runID string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if level == "" {
		level = cfg.Log.Level
	}
	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	if frames >= 0 {
		cfg.Simulation.Frames = frames
	}
	if runID == "" {
		runID = uuid.New().String()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return simulate(ctx, cfg, runID, logger)
}

// simulate builds the scene, agents and sinks described by cfg and runs the frame loop
func simulate(ctx context.Context, cfg config.Config, runID string, logger *log.Logger) error {
	rng := rand.New(rand.NewSource(cfg.Seed))
	prefabs, err := buildPrefabs(cfg)
	if err != nil {
		return err
	}
	world, surface, err := buildScene(cfg, prefabs, rng)
	if err != nil {
		return err
	}
	out, err := openOutputs(cfg, runID, logger)
	if err != nil {
		return err
	}
	if out.server != nil {
		go func() {
			logger.Info("streaming records", "addr", out.server.Addr, "path", sink.StreamPath)
			if err := out.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("stream server stopped", "err", err)
			}
		}()
	}

	sim, err := buildSimulation(cfg, world, surface, prefabs, out.sink, time.Now(), logger)
	if err != nil {
		_ = out.close(logger)
		return err
	}
	logger.Info("simulation started", "run", runID, "agents", len(sim.Agents), "objects", world.Len(), "log", out.logPath)

	frame := time.Duration(cfg.Simulation.FrameMs) * time.Millisecond
	runErr := sim.Run(ctx, cfg.Simulation.Frames, frame)
	if errors.Is(runErr, context.Canceled) {
		logger.Info("interrupted", "frames", sim.Frames())
		runErr = nil
	}
	if err := out.close(logger); err != nil {
		logger.Error("can't close sinks", "err", err)
	}
	return runErr
}

func inspectAction(dbPath, observer string, objectID uint64, limit int) error {
	index, err := sink.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	defer index.Close()
	return inspect(context.Background(), index, os.Stdout, observer, objectID, limit)
}

func archiveAction(path string) error {
	records, err := sink.ReadArchive(path)
	if err != nil {
		return err
	}
	return printRecords(os.Stdout, records)
}
