package broadlistening

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/broadlistening/ai/mock"
	"github.com/poiesic/broadlistening/core"
	"github.com/poiesic/broadlistening/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWorkspace(t *testing.T) {
	t.Run("on disk", func(t *testing.T) {
		root := t.TempDir()
		ws, err := OpenWorkspace(root, filepath.Join(root, "state"))
		require.NoError(t, err)
		defer ws.Close()

		runs, err := ws.Runs(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, runs)
		assert.Equal(t, filepath.Join(root, "outputs", "survey"), ws.Artifacts().OutputDir("survey"))
	})

	t.Run("in memory", func(t *testing.T) {
		ws, err := OpenWorkspace(t.TempDir(), "")
		require.NoError(t, err)
		assert.NoError(t, ws.Close())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

		ws, err := OpenWorkspace(t.TempDir(), tmpFile)
		assert.Error(t, err)
		assert.Nil(t, ws)
	})
}

func TestWorkspace_NewPipeline(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "inputs"), 0o755))
	input := "comment-id,comment-body\n1,More parks\n2,Better buses\n3,Quieter streets\n4,Cleaner rivers\n5,Safer crossings\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "inputs", "survey.csv"), []byte(input), 0o644))

	ws, err := OpenWorkspace(root, "")
	require.NoError(t, err)
	defer ws.Close()

	cfg := &pipeline.Config{
		Input:                  "survey",
		OutputDir:              "survey",
		RootDir:                "/elsewhere",
		Provider:               "local",
		SkipExtraction:         true,
		SkipInitialLabelling:   true,
		HierarchicalClustering: pipeline.ClusteringConfig{ClusterNums: []int{2, 3}},
	}
	p, err := ws.NewPipeline(cfg, pipeline.WithGateway(mock.NewMockGateway()), pipeline.WithProgressWriter(nil))
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, root, cfg.RootDir)

	ctx := context.Background()
	run, err := p.Run(ctx)
	require.NoError(t, err)

	runs, err := ws.Runs(ctx, core.RunSucceeded)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	failed, err := ws.Runs(ctx, core.RunFailed)
	require.NoError(t, err)
	assert.Empty(t, failed)

	args, err := ws.Artifacts().ReadArguments("survey")
	require.NoError(t, err)
	assert.Len(t, args, 5)
}
