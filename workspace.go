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


package broadlistening

import (
	"context"
	"log/slog"

	"github.com/poiesic/broadlistening/core"
	"github.com/poiesic/broadlistening/pipeline"
	"github.com/poiesic/broadlistening/storage"
	"github.com/poiesic/broadlistening/storage/badger"
)

// Workspace ties the artifact tree under a root directory to the state
// store holding run records and the embedding cache.
type Workspace struct {
	root      string
	artifacts *storage.Artifacts
	repo      *badger.Repository
	logger    *slog.Logger
}

// OpenWorkspace opens the state store in stateDir. An empty stateDir keeps
// state in memory for the lifetime of the workspace.
func OpenWorkspace(root, stateDir string) (*Workspace, error) {
	var (
		repo *badger.Repository
		err  error
	)
	if stateDir == "" {
		repo, err = badger.NewMemoryRepository()
	} else {
		repo, err = badger.NewRepository(stateDir)
	}
	if err != nil {
		return nil, err
	}

	return &Workspace{
		root:      root,
		artifacts: storage.NewArtifacts(root),
		repo:      repo,
		logger:    slog.Default(),
	}, nil
}

func (w *Workspace) Close() error {
	if err := w.repo.Close(); err != nil {
		w.logger.Error("error closing state store", "err", err)
		return err
	}
	return nil
}

func (w *Workspace) Artifacts() *storage.Artifacts {
	return w.artifacts
}

// Runs lists recorded runs, optionally filtered by status.
func (w *Workspace) Runs(ctx context.Context, status core.RunStatus) ([]*core.Run, error) {
	return w.repo.Runs.ListRuns(ctx, status)
}

// NewPipeline creates a pipeline over this workspace. The configuration's
// root directory is replaced by the workspace root and the pipeline shares
// the workspace's state store.
func (w *Workspace) NewPipeline(cfg *pipeline.Config, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	cfg.RootDir = w.root
	return pipeline.New(cfg, append([]pipeline.Option{pipeline.WithRepository(w.repo)}, opts...)...)
}
