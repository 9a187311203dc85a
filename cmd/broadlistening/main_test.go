package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/broadlistening/core"
	"github.com/poiesic/broadlistening/storage"
	"github.com/poiesic/broadlistening/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestCommandFlags(t *testing.T) {
	app := newApp()

	for _, name := range []string{"run", "extract", "embed", "cluster", "label"} {
		t.Run(name+" requires config", func(t *testing.T) {
			err := newApp().Run([]string{"broadlistening", name})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config")
		})
	}

	t.Run("config has a short alias", func(t *testing.T) {
		cmd := findCommand(t, app, "run")
		var configFlag *cli.StringFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "config" {
				configFlag = f
				break
			}
		}
		require.NotNil(t, configFlag)
		assert.Equal(t, []string{"c"}, configFlag.Aliases)
	})

	t.Run("runs requires state", func(t *testing.T) {
		err := newApp().Run([]string{"broadlistening", "runs"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "state")
	})
}

func TestStageCommand_MissingConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	err := newApp().Run([]string{"broadlistening", "extract", "--config", missing})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStageCommand_RunsInWorkspace(t *testing.T) {
	root := t.TempDir()
	state := filepath.Join(root, "state")

	artifacts := storage.NewArtifacts(root)
	centers := [][]float32{{0, 0, 0}, {10, 10, 0}, {20, 0, 10}}
	var (
		args       []core.Argument
		embeddings []core.Embedding
	)
	for i := range 12 {
		c := centers[i%3]
		id := core.ArgumentID(fmt.Sprint(i), 0)
		args = append(args, core.Argument{ID: id, Text: fmt.Sprintf("opinion %d", i)})
		embeddings = append(embeddings, core.Embedding{ArgumentID: id, Vector: []float32{c[0] + float32(i%4)*0.1, c[1], c[2]}})
	}
	require.NoError(t, artifacts.WriteArguments("survey", args))
	require.NoError(t, artifacts.WriteEmbeddings("survey", embeddings))

	config := filepath.Join(root, "survey.yaml")
	yaml := fmt.Sprintf("input: survey\noutput_dir: survey\nroot_dir: %s\nprovider: local\nlocal_llm_address: 127.0.0.1:1\nhierarchical_clustering:\n  cluster_nums: [2, 3]\n", root)
	require.NoError(t, os.WriteFile(config, []byte(yaml), 0o644))

	require.NoError(t, newApp().Run([]string{"broadlistening", "cluster", "--config", config, "--state", state}))

	rows, err := artifacts.ReadClusters("survey")
	require.NoError(t, err)
	assert.Len(t, rows, 12)

	// The workspace released the state store.
	repo, err := badger.NewRepository(state)
	require.NoError(t, err)
	assert.NoError(t, repo.Close())
}

func TestRangesCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"broadlistening", "ranges", "--n", "1000", "--max", "20"}))
	assert.Equal(t, "upper: [2, 99)\nlower: [99, 201)\nladder: [2 4 8 20]\n", out.String())

	err := newApp().Run([]string{"broadlistening", "ranges", "--n", "0"})
	assert.Error(t, err)
}

func TestRunsCommand(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state")
	repo, err := badger.NewRepository(state)
	require.NoError(t, err)
	_, err = repo.Runs.CreateRun(context.Background(), &core.Run{Dataset: "survey", Status: core.RunSucceeded, Stage: "hierarchical_initial_labelling"})
	require.NoError(t, err)
	_, err = repo.Runs.CreateRun(context.Background(), &core.Run{Dataset: "other", Status: core.RunFailed, Stage: "extraction"})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run([]string{"broadlistening", "runs", "--state", state, "--status", "succeeded"}))

	assert.Contains(t, out.String(), "DATASET")
	assert.Contains(t, out.String(), "survey")
	assert.NotContains(t, out.String(), "other")
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"WaRn", slog.LevelWarn},
			{"ERROR", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "log-level", Value: "info"},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				require.NoError(t, app.Run([]string{"test", "--log-level", tc.input}))
				assert.True(t, slog.Default().Enabled(context.Background(), tc.expected))
				if tc.expected > slog.LevelDebug {
					assert.False(t, slog.Default().Enabled(context.Background(), tc.expected-4))
				}
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp().Run([]string{"broadlistening", "--log-level", "verbose", "ranges", "--n", "10"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestMain(m *testing.M) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})
	slog.SetDefault(slog.New(handler))
	os.Exit(m.Run())
}
