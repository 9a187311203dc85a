package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/broadlistening/ai"
	"github.com/poiesic/broadlistening/ai/gateway"
	"github.com/poiesic/broadlistening/clustering"
	"github.com/poiesic/broadlistening/core"
	"github.com/poiesic/broadlistening/embedding"
	"github.com/poiesic/broadlistening/extraction"
	"github.com/poiesic/broadlistening/labelling"
	"github.com/poiesic/broadlistening/metrics"
	"github.com/poiesic/broadlistening/storage"
	"github.com/poiesic/broadlistening/storage/badger"
)

// Stage names as recorded on runs.
const (
	StageExtract = "extraction"
	StageEmbed   = "embedding"
	StageCluster = "hierarchical_clustering"
	StageLabel   = "hierarchical_initial_labelling"
)

// Pipeline runs the stages of one configuration.
type Pipeline struct {
	cfg        *Config
	configPath string
	artifacts  *storage.Artifacts
	gateway    ai.Gateway
	repo       *badger.Repository
	ownsRepo   bool
	metrics    *metrics.Metrics
	usage      *ai.TokenUsage
	inRun      bool
	progress   io.Writer
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGateway supplies the provider gateway instead of building one from
// the configuration.
func WithGateway(g ai.Gateway) Option {
	return func(p *Pipeline) {
		p.gateway = g
	}
}

// WithRepository supplies the run and cache store instead of opening state_dir.
func WithRepository(repo *badger.Repository) Option {
	return func(p *Pipeline) {
		p.repo = repo
	}
}

// WithConfigPath makes the pipeline save the configuration back to path
// after each stage or run.
func WithConfigPath(path string) Option {
	return func(p *Pipeline) {
		p.configPath = path
	}
}

// WithProgressWriter sets where stage progress is printed. Default: os.Stderr
func WithProgressWriter(w io.Writer) Option {
	return func(p *Pipeline) {
		p.progress = w
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New validates cfg and prepares its gateway and state store.
func New(cfg *Config, opts ...Option) (*Pipeline, error) {
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		artifacts: storage.NewArtifacts(cfg.RootDir),
		usage:     &ai.TokenUsage{},
		progress:  os.Stderr,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pipeline", "dataset", cfg.OutputDir)

	if cfg.MetricsFile != "" {
		m, err := metrics.New()
		if err != nil {
			return nil, err
		}
		p.metrics = m
	}

	if p.gateway == nil {
		aiCfg, err := cfg.AIConfig()
		if err != nil {
			return nil, err
		}
		g, err := gateway.New(aiCfg, gateway.WithMetrics(p.metrics))
		if err != nil {
			return nil, fmt.Errorf("provider gateway: %w", err)
		}
		p.gateway = g
	}

	if p.repo == nil && cfg.StateDir != "" {
		repo, err := badger.NewRepository(cfg.StateDir)
		if err != nil {
			p.gateway.Close()
			return nil, fmt.Errorf("open state: %w", err)
		}
		p.repo = repo
		p.ownsRepo = true
	}
	return p, nil
}

// Config returns the configuration, including values updated by stages.
func (p *Pipeline) Config() *Config {
	return p.cfg
}

// Usage returns the token usage accumulated since the last commit.
func (p *Pipeline) Usage() ai.Usage {
	return p.usage.Snapshot()
}

// Close releases the gateway and any state store the pipeline opened.
func (p *Pipeline) Close() error {
	var errs []error
	if p.gateway != nil {
		errs = append(errs, p.gateway.Close())
	}
	if p.ownsRepo && p.repo != nil {
		errs = append(errs, p.repo.Close())
	}
	return errors.Join(errs...)
}

// Run executes every stage in order. Token usage is reset at the start and
// written back to the configuration at the end, whether or not the run
// succeeded.
func (p *Pipeline) Run(ctx context.Context) (*core.Run, error) {
	p.usage.Reset()
	p.cfg.TotalTokenUsage, p.cfg.TokenUsageInput, p.cfg.TokenUsageOutput = 0, 0, 0

	run, err := p.startRun(ctx)
	if err != nil {
		return nil, err
	}
	p.inRun = true
	defer func() { p.inRun = false }()

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageExtract, p.Extract},
		{StageEmbed, p.Embed},
		{StageCluster, p.Cluster},
		{StageLabel, p.Label},
	}

	var runErr error
	for _, stage := range stages {
		run.Stage = stage.name
		p.updateRun(ctx, run)

		p.logger.Info("stage started", "stage", stage.name)
		started := time.Now()
		if err := stage.fn(ctx); err != nil {
			runErr = fmt.Errorf("%s: %w", stage.name, err)
			break
		}
		p.logger.Info("stage finished", "stage", stage.name, "elapsed", time.Since(started).Round(time.Millisecond))
	}

	usage := p.usage.Snapshot()
	commitErr := p.commit()

	run.TotalTokens, run.InputTokens, run.OutputTokens = usage.Total, usage.Input, usage.Output
	run.FinishedAt = time.Now().UTC()
	run.Status = core.RunSucceeded
	if runErr != nil {
		run.Status = core.RunFailed
		run.Error = runErr.Error()
	}
	p.updateRun(context.WithoutCancel(ctx), run)

	if runErr != nil {
		return run, runErr
	}
	if commitErr != nil {
		return run, commitErr
	}
	p.logger.Info("run finished", "run_id", run.ID, "total_tokens", usage.Total)
	return run, nil
}

// Extract reads the input comments and writes the argument and relation tables.
func (p *Pipeline) Extract(ctx context.Context) error {
	cfg := p.cfg
	header, err := p.artifacts.ReadInputHeader(cfg.Input)
	if err != nil {
		return err
	}
	if err := extraction.ValidateProperties(header, cfg.Extraction.Properties); err != nil {
		return err
	}
	comments, err := p.artifacts.ReadComments(cfg.Input, cfg.Extraction.Properties, cfg.Extraction.Limit)
	if err != nil {
		return err
	}
	if len(cfg.Extraction.Categories) > 0 {
		p.logger.Info("category classification is not part of extraction, categories are ignored",
			"categories", len(cfg.Extraction.Categories))
	}

	progress := NewProgressTracker(p.progress, "extraction", max(1, cfg.Extraction.Workers))
	ex := extraction.New(p.gateway.Chat(), p.usage,
		extraction.WithWorkers(cfg.Extraction.Workers),
		extraction.WithLimit(cfg.Extraction.Limit),
		extraction.WithPrompt(cfg.Extraction.Prompt),
		extraction.WithModel(cfg.Extraction.Model),
		extraction.WithSkipExtraction(cfg.SkipExtraction),
		extraction.WithProgress(progress),
		extraction.WithLogger(p.logger),
	)
	result, err := ex.Extract(ctx, comments)
	progress.Finish()
	if err != nil {
		return err
	}

	if err := p.artifacts.WriteArguments(cfg.OutputDir, result.Arguments); err != nil {
		return err
	}
	if err := p.artifacts.WriteRelations(cfg.OutputDir, result.Relations); err != nil {
		return err
	}
	p.logger.Info("extracted arguments",
		"comments", len(comments), "arguments", len(result.Arguments),
		"relations", len(result.Relations), "failures", result.Failures)
	return p.commitIfStandalone()
}

// Embed embeds every argument and writes embeddings.jsonl.
func (p *Pipeline) Embed(ctx context.Context) error {
	cfg := p.cfg
	args, err := p.artifacts.ReadArguments(cfg.OutputDir)
	if err != nil {
		return err
	}

	progress := NewProgressTracker(p.progress, "embedding", embedding.DefaultBatchSize)
	opts := []embedding.Option{
		embedding.WithModelName(cfg.EmbeddingModelName()),
		embedding.WithProgress(progress),
		embedding.WithLogger(p.logger),
	}
	if p.repo != nil {
		opts = append(opts, embedding.WithCache(p.repo.Embeddings))
	}

	embeddings, err := embedding.NewService(p.gateway.Embedder(), opts...).Embed(ctx, args)
	progress.Finish()
	if err != nil {
		return err
	}
	if err := p.artifacts.WriteEmbeddings(cfg.OutputDir, embeddings); err != nil {
		return err
	}
	return p.commitIfStandalone()
}

// Cluster projects the embeddings, picks cluster counts when needed and
// writes hierarchical_clusters.csv.
func (p *Pipeline) Cluster(ctx context.Context) error {
	cfg := p.cfg
	args, err := p.artifacts.ReadArguments(cfg.OutputDir)
	if err != nil {
		return err
	}
	embeddings, err := p.artifacts.ReadEmbeddings(cfg.OutputDir)
	if err != nil {
		return err
	}
	vectors, err := embedding.Align(args, embeddings)
	if err != nil {
		return err
	}
	if len(vectors) == 0 {
		return ErrNoEmbeddings
	}

	data := make([][]float64, len(vectors))
	for i, v := range vectors {
		data[i] = make([]float64, len(v))
		for j, x := range v {
			data[i][j] = float64(x)
		}
	}

	reducer := clustering.NewReducer(clustering.WithSeed(clustering.DefaultSeed), clustering.WithLogger(p.logger))
	points, err := reducer.Reduce(data)
	if err != nil {
		return fmt.Errorf("project embeddings: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	nums := cfg.HierarchicalClustering.ClusterNums
	if cfg.AutoCluster || len(nums) == 0 {
		upper, lower := clustering.CandidateRanges(len(points))
		coarse := clustering.SelectK(points, upper, clustering.DefaultSeed, p.logger)
		fine := clustering.SelectK(points, lower, clustering.DefaultSeed, p.logger)
		nums = []int{coarse, fine}
		p.logger.Info("selected cluster counts", "coarse", coarse, "fine", fine)
	}

	h, err := clustering.Hierarchy(points, nums, clustering.DefaultSeed)
	if err != nil {
		return err
	}
	cfg.HierarchicalClustering.ClusterNums = h.Counts

	ids := make([]string, len(args))
	for i, arg := range args {
		ids[i] = arg.ID
	}
	assignments, err := h.Assignments(ids)
	if err != nil {
		return err
	}
	clusters, err := clustering.Tree(assignments)
	if err != nil {
		return err
	}

	rows := make([]storage.ClusterRow, len(args))
	for i, arg := range args {
		rows[i] = storage.ClusterRow{
			ArgumentID: arg.ID,
			Argument:   arg.Text,
			X:          points[i][0],
			Y:          points[i][1],
			Levels:     assignments[i].Levels,
		}
	}
	if err := p.artifacts.WriteClusters(cfg.OutputDir, rows); err != nil {
		return err
	}
	p.logger.Info("clustered arguments", "arguments", len(rows), "counts", h.Counts, "clusters", len(clusters))
	return p.commitIfStandalone()
}

// Label labels the finest-level clusters and writes
// hierarchical_initial_labels.csv.
func (p *Pipeline) Label(ctx context.Context) error {
	cfg := p.cfg
	rows, err := p.artifacts.ReadClusters(cfg.OutputDir)
	if err != nil {
		return err
	}

	members := make(map[string][]string)
	for _, row := range rows {
		finest := row.Levels[len(row.Levels)-1]
		members[finest] = append(members[finest], row.Argument)
	}

	lc := cfg.HierarchicalInitialLabelling
	labeller := labelling.New(p.gateway.Chat(), p.usage,
		labelling.WithWorkers(lc.Workers),
		labelling.WithSamplingNum(lc.SamplingNum),
		labelling.WithPrompt(lc.Prompt),
		labelling.WithModel(lc.Model),
		labelling.WithSkip(cfg.SkipInitialLabelling),
		labelling.WithLogger(p.logger),
	)
	labels, err := labeller.Label(ctx, members)
	if err != nil {
		return err
	}
	if err := p.artifacts.WriteLabels(cfg.OutputDir, rows, labels); err != nil {
		return err
	}
	return p.commitIfStandalone()
}

// commitIfStandalone commits usage when a stage is run on its own.
func (p *Pipeline) commitIfStandalone() error {
	if p.inRun {
		return nil
	}
	return p.commit()
}

// commit adds the pending token usage to the configuration, saves it and
// dumps metrics.
func (p *Pipeline) commit() error {
	usage := p.usage.Snapshot()
	p.usage.Reset()
	p.cfg.TotalTokenUsage += usage.Total
	p.cfg.TokenUsageInput += usage.Input
	p.cfg.TokenUsageOutput += usage.Output

	var errs []error
	if p.configPath != "" {
		if err := SaveConfig(p.configPath, p.cfg); err != nil {
			errs = append(errs, fmt.Errorf("save config: %w", err))
		}
	}
	if err := p.metrics.WriteFile(p.cfg.MetricsFile); err != nil {
		errs = append(errs, fmt.Errorf("write metrics: %w", err))
	}
	return errors.Join(errs...)
}

func (p *Pipeline) startRun(ctx context.Context) (*core.Run, error) {
	run := &core.Run{Dataset: p.cfg.OutputDir, Status: core.RunRunning}
	if p.repo == nil {
		run.StartedAt = time.Now().UTC()
		return run, nil
	}
	created, err := p.repo.Runs.CreateRun(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return created, nil
}

func (p *Pipeline) updateRun(ctx context.Context, run *core.Run) {
	if p.repo == nil {
		return
	}
	if err := p.repo.Runs.UpdateRun(ctx, run); err != nil {
		p.logger.Warn("failed to update run record", "run_id", run.ID, "err", err)
	}
}
