// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/poiesic/broadlistening"
	"github.com/poiesic/broadlistening/clustering"
	"github.com/poiesic/broadlistening/core"
	"github.com/poiesic/broadlistening/pipeline"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "Path to the pipeline YAML configuration",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "state",
			Usage: "Directory for run records and the embedding cache (overrides state_dir)",
		},
		&cli.StringFlag{
			Name:  "metrics",
			Usage: "Write provider metrics to this file (overrides metrics_file)",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "broadlistening",
		Usage: "Build an opinion taxonomy from public comments",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run extraction, embedding, clustering and labelling in order",
				Action: runCommand,
				Flags:  configFlags(),
			},
			{
				Name:   "extract",
				Usage:  "Extract arguments from the input comments",
				Action: stageCommand((*pipeline.Pipeline).Extract),
				Flags:  configFlags(),
			},
			{
				Name:   "embed",
				Usage:  "Embed the extracted arguments",
				Action: stageCommand((*pipeline.Pipeline).Embed),
				Flags:  configFlags(),
			},
			{
				Name:   "cluster",
				Usage:  "Project and hierarchically cluster the embeddings",
				Action: stageCommand((*pipeline.Pipeline).Cluster),
				Flags:  configFlags(),
			},
			{
				Name:   "label",
				Usage:  "Label the finest-level clusters",
				Action: stageCommand((*pipeline.Pipeline).Label),
				Flags:  configFlags(),
			},
			{
				Name:   "ranges",
				Usage:  "Print the candidate cluster count ranges for a sample size",
				Action: rangesCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "n",
						Usage:    "Number of arguments",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "max",
						Usage: "Also print the doubling ladder of counts from 2 to max",
					},
				},
			},
			{
				Name:   "runs",
				Usage:  "List recorded pipeline runs",
				Action: runsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "state",
						Aliases:  []string{"s"},
						Usage:    "State directory holding run records",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only list runs with this status (running, succeeded, failed)",
					},
				},
			},
		},
	}
}

// openPipeline loads the configuration, applies flag overrides and opens the
// workspace the pipeline runs in. Close the pipeline before the workspace.
func openPipeline(c *cli.Context) (*broadlistening.Workspace, *pipeline.Pipeline, error) {
	path := c.String("config")
	cfg, err := pipeline.LoadConfig(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if state := c.String("state"); state != "" {
		cfg.StateDir = state
	}
	if metricsFile := c.String("metrics"); metricsFile != "" {
		cfg.MetricsFile = metricsFile
	}
	cfg.Defaults()

	ws, err := broadlistening.OpenWorkspace(cfg.RootDir, cfg.StateDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state: %w", err)
	}
	p, err := ws.NewPipeline(cfg, pipeline.WithConfigPath(path))
	if err != nil {
		ws.Close()
		return nil, nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return ws, p, nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func runCommand(c *cli.Context) error {
	ctx, cancel := signalContext(c)
	defer cancel()

	ws, p, err := openPipeline(c)
	if err != nil {
		return err
	}
	defer ws.Close()
	defer p.Close()

	cfg := p.Config()
	fmt.Fprintf(os.Stderr, "Input: %s\n", ws.Artifacts().InputPath(cfg.Input))
	fmt.Fprintf(os.Stderr, "Output: %s\n", ws.Artifacts().OutputDir(cfg.OutputDir))
	fmt.Fprintf(os.Stderr, "Provider: %s\n", cfg.Provider)
	fmt.Fprintln(os.Stderr)

	run, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Run %s finished in %s, %d tokens (%d input, %d output)\n",
		run.ID, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
		run.TotalTokens, run.InputTokens, run.OutputTokens)
	return nil
}

func stageCommand(stage func(*pipeline.Pipeline, context.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx, cancel := signalContext(c)
		defer cancel()

		ws, p, err := openPipeline(c)
		if err != nil {
			return err
		}
		defer ws.Close()
		defer p.Close()

		if err := stage(p, ctx); err != nil {
			return fmt.Errorf("%s failed: %w", c.Command.Name, err)
		}
		return nil
	}
}

func rangesCommand(c *cli.Context) error {
	n := c.Int("n")
	if n <= 0 {
		return fmt.Errorf("n must be greater than 0")
	}
	upper, lower := clustering.CandidateRanges(n)
	fmt.Fprintf(c.App.Writer, "upper: %s\nlower: %s\n", upper, lower)

	if maxCount := c.Int("max"); maxCount > 0 {
		fmt.Fprintf(c.App.Writer, "ladder: %v\n", clustering.GenerateClusterCounts(2, maxCount))
	}
	return nil
}

func runsCommand(c *cli.Context) error {
	ws, err := broadlistening.OpenWorkspace(".", c.String("state"))
	if err != nil {
		return fmt.Errorf("failed to open state: %w", err)
	}
	defer ws.Close()

	runs, err := ws.Runs(c.Context, core.RunStatus(c.String("status")))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATASET\tSTATUS\tSTAGE\tTOKENS\tSTARTED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			run.ID, run.Dataset, run.Status, run.Stage, run.TotalTokens,
			run.StartedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
