package labelling

import (
	"cmp"
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/broadlistening/ai"
	"github.com/poiesic/broadlistening/core"
)

const (
	// DefaultSamplingNum bounds the members sent per cluster.
	DefaultSamplingNum = 30

	// DefaultWorkers is the pool size used when none is configured.
	DefaultWorkers = 1

	// DefaultSeed seeds member sampling.
	DefaultSeed = 42

	// PlaceholderLabel replaces a label the model did not provide.
	PlaceholderLabel = "エラーでラベル名が取得できませんでした"

	// PlaceholderDescription replaces a description the model did not provide.
	PlaceholderDescription = "エラーで解説が取得できませんでした"

	skippedDescription = "（説明は省略されています）"
)

// DefaultPrompt is used when no labelling prompt is configured.
const DefaultPrompt = `You are labelling a group of related opinions taken from public comments.
Read the opinions, one per line, and give the group a concise label and a
one or two sentence description of what they have in common.
Reply with JSON of the form {"label": "...", "description": "..."}.`

var responseSchema = ai.NewResponseSchema("LabellingFormat", `{
  "type": "object",
  "properties": {
    "label": {"type": "string", "description": "cluster label"},
    "description": {"type": "string", "description": "cluster description"}
  },
  "required": ["label", "description"],
  "additionalProperties": false
}`)

// Labeller labels clusters.
type Labeller struct {
	chat        ai.ChatModel
	usage       *ai.TokenUsage
	workers     int
	samplingNum int
	prompt      string
	model       string
	skip        bool
	seed        uint64
	logger      *slog.Logger
}

// Option configures a Labeller.
type Option func(*Labeller)

// WithWorkers sets the number of clusters labelled concurrently.
func WithWorkers(n int) Option {
	return func(l *Labeller) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithSamplingNum bounds the members sent per cluster.
func WithSamplingNum(n int) Option {
	return func(l *Labeller) {
		if n > 0 {
			l.samplingNum = n
		}
	}
}

// WithPrompt sets the system prompt.
func WithPrompt(prompt string) Option {
	return func(l *Labeller) {
		if prompt != "" {
			l.prompt = prompt
		}
	}
}

// WithModel overrides the chat model per request.
func WithModel(model string) Option {
	return func(l *Labeller) {
		l.model = model
	}
}

// WithSkip labels every cluster from its id without calling the model.
func WithSkip(skip bool) Option {
	return func(l *Labeller) {
		l.skip = skip
	}
}

// WithSeed seeds member sampling.
func WithSeed(seed uint64) Option {
	return func(l *Labeller) {
		l.seed = seed
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Labeller) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Labeller. Token usage of every successful call is added to
// usage, which may be nil.
func New(chat ai.ChatModel, usage *ai.TokenUsage, opts ...Option) *Labeller {
	l := &Labeller{
		chat:        chat,
		usage:       usage,
		workers:     DefaultWorkers,
		samplingNum: DefaultSamplingNum,
		prompt:      DefaultPrompt,
		seed:        DefaultSeed,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "labelling")
	return l
}

// SkippedLabel is the label given to a cluster when labelling is skipped.
func SkippedLabel(clusterID string) core.Label {
	return core.Label{
		ClusterID:   clusterID,
		Label:       fmt.Sprintf("クラスタ %s", clusterID),
		Description: skippedDescription,
	}
}

// Label returns one label per cluster, ordered by cluster id. members maps
// each cluster id to the texts of its arguments.
func (l *Labeller) Label(ctx context.Context, members map[string][]string) ([]core.Label, error) {
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, CompareClusterIDs)

	labels := make([]core.Label, len(ids))
	if l.skip {
		l.logger.Info("skipping labelling", "clusters", len(ids))
		for i, id := range ids {
			labels[i] = SkippedLabel(id)
		}
		return labels, nil
	}

	pool, err := ants.NewPool(l.workers)
	if err != nil {
		return nil, fmt.Errorf("create labelling pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		failures atomic.Int32
	)
	for i, id := range ids {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			label, ok := l.labelCluster(ctx, id, members[id])
			if !ok {
				failures.Add(1)
			}
			labels[i] = label
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit cluster %s: %w", id, err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n := failures.Load(); n > 0 {
		l.logger.Warn("some clusters received placeholder labels", "clusters", len(ids), "failed", n)
	}
	return labels, nil
}

// labelCluster asks the model for one cluster's label. The boolean is false
// when any placeholder text was used.
func (l *Labeller) labelCluster(ctx context.Context, id string, texts []string) (core.Label, bool) {
	sample := l.sample(id, texts)
	resp, err := l.chat.Complete(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: l.prompt},
			{Role: ai.RoleUser, Content: strings.Join(sample, "\n")},
		},
		Model:  l.model,
		Schema: responseSchema,
	})
	if err != nil {
		l.logger.Error("labelling call failed", "cluster_id", id, "err", err)
		return placeholder(id), false
	}
	l.usage.Add(resp.Usage)

	var reply map[string]any
	if err := ai.DecodeJSON(resp.Text, &reply); err != nil {
		l.logger.Error("labelling reply is not JSON", "cluster_id", id, "err", err)
		return placeholder(id), false
	}

	label := placeholder(id)
	ok := true
	if v, found := reply["label"].(string); found {
		label.Label = v
	} else {
		ok = false
	}
	if v, found := reply["description"].(string); found {
		label.Description = v
	} else {
		ok = false
	}
	if !ok {
		l.logger.Warn("labelling reply is missing fields", "cluster_id", id)
	}
	return label, ok
}

// sample draws up to samplingNum texts without replacement. Each cluster
// has its own random stream so the draw does not depend on scheduling.
func (l *Labeller) sample(id string, texts []string) []string {
	n := min(l.samplingNum, len(texts))
	h := fnv.New64a()
	h.Write([]byte(id))
	rng := rand.New(rand.NewPCG(l.seed, h.Sum64()))

	out := make([]string, 0, n)
	for _, idx := range rng.Perm(len(texts))[:n] {
		out = append(out, texts[idx])
	}
	return out
}

func placeholder(id string) core.Label {
	return core.Label{ClusterID: id, Label: PlaceholderLabel, Description: PlaceholderDescription}
}

// CompareClusterIDs orders "{level}_{raw}" ids numerically by level and
// then raw label, falling back to string order for other ids.
func CompareClusterIDs(a, b string) int {
	al, ar, aok := splitClusterID(a)
	bl, br, bok := splitClusterID(b)
	if !aok || !bok {
		return strings.Compare(a, b)
	}
	if c := cmp.Compare(al, bl); c != 0 {
		return c
	}
	return cmp.Compare(ar, br)
}

func splitClusterID(id string) (int, int, bool) {
	level, raw, found := strings.Cut(id, "_")
	if !found {
		return 0, 0, false
	}
	l, err := strconv.Atoi(level)
	if err != nil {
		return 0, 0, false
	}
	r, err := strconv.Atoi(raw)
	if err != nil {
		return 0, 0, false
	}
	return l, r, true
}
