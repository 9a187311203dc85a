package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/poiesic/broadlistening/core"
)

// Column names of the artifact contract.
const (
	ColCommentID   = "comment-id"
	ColCommentBody = "comment-body"
	ColSource      = "source"
	ColURL         = "url"
	ColArgID       = "arg-id"
	ColArgument    = "argument"
	ColX           = "x"
	ColY           = "y"
)

// Artifact file names inside outputs/{dataset}.
const (
	ArgsFile       = "args.csv"
	RelationsFile  = "relations.csv"
	EmbeddingsFile = "embeddings.jsonl"
	ClustersFile   = "hierarchical_clusters.csv"
	LabelsFile     = "hierarchical_initial_labels.csv"
)

// LevelColumn returns the cluster id column of a level, e.g. "cluster-level-2-id".
func LevelColumn(level int) string {
	return fmt.Sprintf("cluster-level-%d-id", level)
}

// Artifacts reads and writes stage artifacts under a root directory.
type Artifacts struct {
	root string
}

// NewArtifacts creates an artifact store rooted at root.
func NewArtifacts(root string) *Artifacts {
	return &Artifacts{root: root}
}

// InputPath returns the path of the input comment table.
func (a *Artifacts) InputPath(input string) string {
	return filepath.Join(a.root, "inputs", input+".csv")
}

// OutputDir returns the directory holding a dataset's artifacts.
func (a *Artifacts) OutputDir(dataset string) string {
	return filepath.Join(a.root, "outputs", dataset)
}

// Path returns the path of one artifact of a dataset.
func (a *Artifacts) Path(dataset, name string) string {
	return filepath.Join(a.OutputDir(dataset), name)
}

// ReadInputHeader returns only the column names of the input table.
func (a *Artifacts) ReadInputHeader(input string) ([]string, error) {
	f, err := os.Open(a.InputPath(input))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := csv.NewReader(bufio.NewReader(f)).Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", input, err)
	}
	return trimBOM(header), nil
}

// ReadComments loads comments from the first limit rows of the input table.
// A limit of zero or less reads every row. Rows without an id or body are
// skipped. Property columns are copied into Comment.Properties.
func (a *Artifacts) ReadComments(input string, properties []string, limit int) ([]core.Comment, error) {
	t, err := readTable(a.InputPath(input))
	if err != nil {
		return nil, err
	}
	if err := t.require(ColCommentID, ColCommentBody); err != nil {
		return nil, err
	}
	if err := t.require(properties...); err != nil {
		return nil, err
	}

	n := len(t.rows)
	if limit > 0 && limit < n {
		n = limit
	}
	comments := make([]core.Comment, 0, n)
	for _, row := range t.rows[:n] {
		c := core.Comment{
			ID:     t.get(row, ColCommentID),
			Body:   t.get(row, ColCommentBody),
			Source: t.get(row, ColSource),
			URL:    t.get(row, ColURL),
		}
		if len(properties) > 0 {
			c.Properties = make(map[string]string, len(properties))
			for _, p := range properties {
				c.Properties[p] = t.get(row, p)
			}
		}
		if core.ValidateComment(&c) != nil {
			continue
		}
		comments = append(comments, c)
	}
	return comments, nil
}

// WriteArguments writes args.csv.
func (a *Artifacts) WriteArguments(dataset string, args []core.Argument) error {
	rows := make([][]string, len(args))
	for i, arg := range args {
		rows[i] = []string{arg.ID, arg.Text}
	}
	return a.writeTable(dataset, ArgsFile, []string{ColArgID, ColArgument}, rows)
}

// ReadArguments reads args.csv. Extra columns are ignored.
func (a *Artifacts) ReadArguments(dataset string) ([]core.Argument, error) {
	t, err := readTable(a.Path(dataset, ArgsFile))
	if err != nil {
		return nil, err
	}
	if err := t.require(ColArgID, ColArgument); err != nil {
		return nil, err
	}
	args := make([]core.Argument, len(t.rows))
	for i, row := range t.rows {
		args[i] = core.Argument{ID: t.get(row, ColArgID), Text: t.get(row, ColArgument)}
	}
	return args, nil
}

// WriteRelations writes relations.csv.
func (a *Artifacts) WriteRelations(dataset string, relations []core.Relation) error {
	rows := make([][]string, len(relations))
	for i, r := range relations {
		rows[i] = []string{r.ArgumentID, r.CommentID}
	}
	return a.writeTable(dataset, RelationsFile, []string{ColArgID, ColCommentID}, rows)
}

// ReadRelations reads relations.csv.
func (a *Artifacts) ReadRelations(dataset string) ([]core.Relation, error) {
	t, err := readTable(a.Path(dataset, RelationsFile))
	if err != nil {
		return nil, err
	}
	if err := t.require(ColArgID, ColCommentID); err != nil {
		return nil, err
	}
	relations := make([]core.Relation, len(t.rows))
	for i, row := range t.rows {
		relations[i] = core.Relation{ArgumentID: t.get(row, ColArgID), CommentID: t.get(row, ColCommentID)}
	}
	return relations, nil
}

type embeddingLine struct {
	ArgumentID string    `json:"arg-id"`
	Embedding  []float32 `json:"embedding"`
}

// WriteEmbeddings writes embeddings.jsonl, one object per argument.
func (a *Artifacts) WriteEmbeddings(dataset string, embeddings []core.Embedding) error {
	if err := os.MkdirAll(a.OutputDir(dataset), 0o755); err != nil {
		return err
	}
	f, err := os.Create(a.Path(dataset, EmbeddingsFile))
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range embeddings {
		if err := enc.Encode(embeddingLine{ArgumentID: e.ArgumentID, Embedding: e.Vector}); err != nil {
			f.Close()
			return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
	}
	return errors.Join(w.Flush(), f.Close())
}

// ReadEmbeddings reads embeddings.jsonl in file order.
func (a *Artifacts) ReadEmbeddings(dataset string) ([]core.Embedding, error) {
	f, err := os.Open(a.Path(dataset, EmbeddingsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var embeddings []core.Embedding
	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var line embeddingLine
		err := dec.Decode(&line)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
		embeddings = append(embeddings, core.Embedding{ArgumentID: line.ArgumentID, Vector: line.Embedding})
	}
	return embeddings, nil
}

// ClusterRow is one line of hierarchical_clusters.csv.
type ClusterRow struct {
	ArgumentID string
	Argument   string
	X, Y       float64
	Levels     []string // Levels[0] is level 1
}

// WriteClusters writes hierarchical_clusters.csv. Every row must carry the
// same number of levels.
func (a *Artifacts) WriteClusters(dataset string, rows []ClusterRow) error {
	header, records, err := clusterRecords(rows)
	if err != nil {
		return err
	}
	return a.writeTable(dataset, ClustersFile, header, records)
}

// ReadClusters reads hierarchical_clusters.csv.
func (a *Artifacts) ReadClusters(dataset string) ([]ClusterRow, error) {
	t, err := readTable(a.Path(dataset, ClustersFile))
	if err != nil {
		return nil, err
	}
	if err := t.require(ColArgID, ColArgument, ColX, ColY); err != nil {
		return nil, err
	}

	levels := 0
	for t.has(LevelColumn(levels + 1)) {
		levels++
	}
	if levels == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, LevelColumn(1))
	}

	rows := make([]ClusterRow, len(t.rows))
	for i, rec := range t.rows {
		x, err := strconv.ParseFloat(t.get(rec, ColX), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: x: %w", i+1, err)
		}
		y, err := strconv.ParseFloat(t.get(rec, ColY), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: y: %w", i+1, err)
		}
		row := ClusterRow{
			ArgumentID: t.get(rec, ColArgID),
			Argument:   t.get(rec, ColArgument),
			X:          x,
			Y:          y,
			Levels:     make([]string, levels),
		}
		for l := range levels {
			row.Levels[l] = t.get(rec, LevelColumn(l+1))
		}
		rows[i] = row
	}
	return rows, nil
}

// WriteLabels writes hierarchical_initial_labels.csv: the cluster rows
// joined with the label and description of their finest-level cluster.
// Clusters without a label get empty cells.
func (a *Artifacts) WriteLabels(dataset string, rows []ClusterRow, labels []core.Label) error {
	header, records, err := clusterRecords(rows)
	if err != nil {
		return err
	}

	finest := len(header) - 4
	prefix := strings.TrimSuffix(LevelColumn(finest), "-id")
	header = append(header, prefix+"-label", prefix+"-description")

	byCluster := make(map[string]core.Label, len(labels))
	for _, l := range labels {
		byCluster[l.ClusterID] = l
	}
	for i, row := range rows {
		l := byCluster[row.Levels[len(row.Levels)-1]]
		records[i] = append(records[i], l.Label, l.Description)
	}
	return a.writeTable(dataset, LabelsFile, header, records)
}

// ReadLabels returns the distinct finest-level labels of
// hierarchical_initial_labels.csv in first-seen order.
func (a *Artifacts) ReadLabels(dataset string) ([]core.Label, error) {
	t, err := readTable(a.Path(dataset, LabelsFile))
	if err != nil {
		return nil, err
	}
	levels := 0
	for t.has(LevelColumn(levels + 1)) {
		levels++
	}
	if levels == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, LevelColumn(1))
	}
	idCol := LevelColumn(levels)
	prefix := strings.TrimSuffix(idCol, "-id")
	if err := t.require(prefix+"-label", prefix+"-description"); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var labels []core.Label
	for _, rec := range t.rows {
		id := t.get(rec, idCol)
		if seen[id] {
			continue
		}
		seen[id] = true
		labels = append(labels, core.Label{
			ClusterID:   id,
			Label:       t.get(rec, prefix+"-label"),
			Description: t.get(rec, prefix+"-description"),
		})
	}
	return labels, nil
}

func clusterRecords(rows []ClusterRow) ([]string, [][]string, error) {
	if len(rows) == 0 {
		return nil, nil, errors.New("no cluster rows")
	}
	levels := len(rows[0].Levels)
	header := []string{ColArgID, ColArgument, ColX, ColY}
	for l := 1; l <= levels; l++ {
		header = append(header, LevelColumn(l))
	}

	records := make([][]string, len(rows))
	for i, row := range rows {
		if len(row.Levels) != levels {
			return nil, nil, fmt.Errorf("row %s has %d levels, want %d", row.ArgumentID, len(row.Levels), levels)
		}
		rec := make([]string, 0, len(header)+2)
		rec = append(rec, row.ArgumentID, row.Argument,
			strconv.FormatFloat(row.X, 'g', -1, 64),
			strconv.FormatFloat(row.Y, 'g', -1, 64))
		rec = append(rec, row.Levels...)
		records[i] = rec
	}
	return header, records, nil
}

func (a *Artifacts) writeTable(dataset, name string, header []string, rows [][]string) error {
	if err := os.MkdirAll(a.OutputDir(dataset), 0o755); err != nil {
		return err
	}
	f, err := os.Create(a.Path(dataset, name))
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type table struct {
	index map[string]int
	rows  [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: empty file", filepath.Base(path))
	}

	header := trimBOM(records[0])
	t := &table{index: make(map[string]int, len(header)), rows: records[1:]}
	for i, name := range header {
		t.index[name] = i
	}
	return t, nil
}

func (t *table) has(col string) bool {
	_, ok := t.index[col]
	return ok
}

func (t *table) require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

func (t *table) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func trimBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header
}
