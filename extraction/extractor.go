package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/broadlistening/ai"
	"github.com/poiesic/broadlistening/core"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultWorkers is the batch size and concurrency used when none is configured.
	DefaultWorkers = 1

	// DefaultBatchTimeout bounds each batch of concurrent calls.
	DefaultBatchTimeout = 30 * time.Second
)

// Progress receives the number of processed comments.
type Progress interface {
	Start(total int)
	Increment(n int)
}

// Result holds the argument and relation tables of one extraction run.
type Result struct {
	Arguments []core.Argument
	Relations []core.Relation

	// Failures counts comments whose call failed, timed out or returned an
	// unusable reply.
	Failures int
}

// Extractor extracts arguments from comments with a chat model.
type Extractor struct {
	chat         ai.ChatModel
	usage        *ai.TokenUsage
	workers      int
	batchTimeout time.Duration
	limit        int
	prompt       string
	model        string
	skip         bool
	progress     Progress
	logger       *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers sets the batch size, which is also the number of concurrent calls.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithBatchTimeout sets the deadline shared by the calls of one batch.
func WithBatchTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.batchTimeout = d
		}
	}
}

// WithLimit processes only the first n comments. Zero means all.
func WithLimit(n int) Option {
	return func(e *Extractor) {
		e.limit = n
	}
}

// WithPrompt sets the system prompt.
func WithPrompt(prompt string) Option {
	return func(e *Extractor) {
		if prompt != "" {
			e.prompt = prompt
		}
	}
}

// WithModel overrides the chat model per request.
func WithModel(model string) Option {
	return func(e *Extractor) {
		e.model = model
	}
}

// WithSkipExtraction turns every comment body into a single argument
// without calling the model.
func WithSkipExtraction(skip bool) Option {
	return func(e *Extractor) {
		e.skip = skip
	}
}

// WithProgress reports processed comment counts.
func WithProgress(p Progress) Option {
	return func(e *Extractor) {
		e.progress = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Extractor. Token usage of every successful call is added
// to usage, which may be nil.
func New(chat ai.ChatModel, usage *ai.TokenUsage, opts ...Option) *Extractor {
	e := &Extractor{
		chat:         chat,
		usage:        usage,
		workers:      DefaultWorkers,
		batchTimeout: DefaultBatchTimeout,
		prompt:       DefaultPrompt,
		progress:     nopProgress{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.progress == nil {
		e.progress = nopProgress{}
	}
	e.logger = e.logger.With("component", "extraction")
	return e
}

// ValidateProperties checks that every configured property column is
// present in the input header.
func ValidateProperties(header, properties []string) error {
	var missing []string
	for _, p := range properties {
		if !slices.Contains(header, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v not in columns %v", core.ErrMissingProperties, missing, header)
	}
	return nil
}

// Extract runs extraction over the comments and returns the deduplicated
// argument table with one relation per occurrence. Individual call failures
// are logged and contribute no arguments. An empty argument table is an
// error wrapping core.ErrEmptyArguments.
func (e *Extractor) Extract(ctx context.Context, comments []core.Comment) (*Result, error) {
	if e.limit > 0 && len(comments) > e.limit {
		comments = comments[:e.limit]
	}
	e.progress.Start(len(comments))

	tables := newTables()
	if e.skip {
		e.logger.Info("skipping extraction, using comment bodies as arguments", "comments", len(comments))
		for _, c := range comments {
			tables.add(c.ID, []string{c.Body})
			e.progress.Increment(1)
		}
		return tables.result(0, nil)
	}

	var (
		failures int
		firstErr error
	)
	for start := 0; start < len(comments); start += e.workers {
		end := min(start+e.workers, len(comments))
		batch := comments[start:end]

		outcomes := e.extractBatch(ctx, batch)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i, outcome := range outcomes {
			if err := outcome.Err(); err != nil {
				failures++
				if firstErr == nil {
					firstErr = err
				}
				e.logger.Warn("extraction failed", "comment_id", batch[i].ID, "err", err)
			}
			tables.add(batch[i].ID, outcome.Arguments())
		}
		e.progress.Increment(len(batch))
	}

	if failures > 0 {
		e.logger.Info("extraction finished with failures", "comments", len(comments), "failures", failures)
	}
	return tables.result(failures, firstErr)
}

// extractBatch runs one call per comment under a single deadline. Slots
// still unfilled when the deadline expires are recorded as timeouts and any
// late result is discarded.
func (e *Extractor) extractBatch(ctx context.Context, batch []core.Comment) []Outcome {
	ctx, cancel := context.WithTimeout(ctx, e.batchTimeout)
	defer cancel()

	var (
		mu       sync.Mutex
		sealed   bool
		outcomes = make([]Outcome, len(batch))
		filled   = make([]bool, len(batch))
	)

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, comment := range batch {
		g.Go(func() error {
			outcome := e.extractOne(ctx, comment)
			mu.Lock()
			defer mu.Unlock()
			if !sealed {
				outcomes[i] = outcome
				filled[i] = true
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	sealed = true
	for i := range outcomes {
		if !filled[i] {
			outcomes[i] = Failed(fmt.Errorf("%w after %s", ErrTimeout, e.batchTimeout))
		}
	}
	return outcomes
}

func (e *Extractor) extractOne(ctx context.Context, comment core.Comment) Outcome {
	resp, err := e.chat.Complete(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: e.prompt},
			{Role: ai.RoleUser, Content: comment.Body},
		},
		Model:  e.model,
		Schema: responseSchema,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Failed(fmt.Errorf("%w: %w", ErrTimeout, err))
		}
		return Failed(err)
	}
	e.usage.Add(resp.Usage)

	args, err := parseReply(resp.Text)
	if err != nil {
		return Failed(err)
	}
	return Ok(args)
}

// tables accumulates the run-wide text to argument id map.
type tables struct {
	ids       map[string]string
	arguments []core.Argument
	relations []core.Relation
}

func newTables() *tables {
	return &tables{ids: make(map[string]string)}
}

func (t *tables) add(commentID string, texts []string) {
	for j, text := range texts {
		id, seen := t.ids[text]
		if !seen {
			id = core.ArgumentID(commentID, j)
			t.ids[text] = id
			t.arguments = append(t.arguments, core.Argument{ID: id, Text: text})
		}
		t.relations = append(t.relations, core.Relation{ArgumentID: id, CommentID: commentID})
	}
}

func (t *tables) result(failures int, cause error) (*Result, error) {
	if len(t.arguments) == 0 {
		if cause != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrEmptyArguments, cause)
		}
		return nil, core.ErrEmptyArguments
	}
	return &Result{
		Arguments: t.arguments,
		Relations: t.relations,
		Failures:  failures,
	}, nil
}

type nopProgress struct{}

func (nopProgress) Start(int)     {}
func (nopProgress) Increment(int) {}
