package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/broadlistening/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, "inputs")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".csv"), []byte(content), 0o644))
}

func TestReadComments(t *testing.T) {
	root := t.TempDir()
	writeInput(t, root, "example", "\ufeffcomment-id,comment-body,age\n1,\"Parks, please\",30\n2,More buses,40\n3,Less noise,50\n")
	a := NewArtifacts(root)

	header, err := a.ReadInputHeader("example")
	require.NoError(t, err)
	assert.Equal(t, []string{"comment-id", "comment-body", "age"}, header)

	comments, err := a.ReadComments("example", []string{"age"}, 2)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "1", comments[0].ID)
	assert.Equal(t, "Parks, please", comments[0].Body)
	assert.Equal(t, "30", comments[0].Properties["age"])
	assert.Empty(t, comments[0].Source)

	_, err = a.ReadComments("example", []string{"gender"}, 0)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadComments_SkipsRowsWithoutIDOrBody(t *testing.T) {
	root := t.TempDir()
	writeInput(t, root, "gaps", "comment-id,comment-body\n1,Parks\n,No id\n3,\n4,Buses\n5,Trains\n")
	a := NewArtifacts(root)

	comments, err := a.ReadComments("gaps", nil, 0)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, []string{"1", "4", "5"}, []string{comments[0].ID, comments[1].ID, comments[2].ID})

	comments, err = a.ReadComments("gaps", nil, 4)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "4", comments[1].ID)
}

func TestArgumentsAndRelations(t *testing.T) {
	a := NewArtifacts(t.TempDir())
	args := []core.Argument{{ID: "A1_0", Text: "parks"}, {ID: "A2_0", Text: "buses"}}
	relations := []core.Relation{
		{ArgumentID: "A1_0", CommentID: "1"},
		{ArgumentID: "A2_0", CommentID: "2"},
		{ArgumentID: "A1_0", CommentID: "3"},
	}

	require.NoError(t, a.WriteArguments("ds", args))
	require.NoError(t, a.WriteRelations("ds", relations))

	gotArgs, err := a.ReadArguments("ds")
	require.NoError(t, err)
	assert.Equal(t, args, gotArgs)

	gotRelations, err := a.ReadRelations("ds")
	require.NoError(t, err)
	assert.Equal(t, relations, gotRelations)

	data, err := os.ReadFile(a.Path("ds", ArgsFile))
	require.NoError(t, err)
	assert.Equal(t, "arg-id,argument\nA1_0,parks\nA2_0,buses\n", string(data))
}

func TestEmbeddings(t *testing.T) {
	a := NewArtifacts(t.TempDir())
	embeddings := []core.Embedding{
		{ArgumentID: "A1_0", Vector: []float32{0.5, -0.25}},
		{ArgumentID: "A2_0", Vector: []float32{1, 0}},
	}
	require.NoError(t, a.WriteEmbeddings("ds", embeddings))

	got, err := a.ReadEmbeddings("ds")
	require.NoError(t, err)
	assert.Equal(t, embeddings, got)

	data, err := os.ReadFile(a.Path("ds", EmbeddingsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"arg-id":"A1_0","embedding":[0.5,-0.25]}`)
}

func TestClustersAndLabels(t *testing.T) {
	a := NewArtifacts(t.TempDir())
	rows := []ClusterRow{
		{ArgumentID: "A1_0", Argument: "parks", X: 0.5, Y: 1.25, Levels: []string{"1_1", "2_0"}},
		{ArgumentID: "A2_0", Argument: "buses", X: -1, Y: 2, Levels: []string{"1_2", "2_1"}},
		{ArgumentID: "A3_0", Argument: "trees", X: 0.4, Y: 1.2, Levels: []string{"1_1", "2_0"}},
	}
	require.NoError(t, a.WriteClusters("ds", rows))

	got, err := a.ReadClusters("ds")
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	labels := []core.Label{
		{ClusterID: "2_0", Label: "Green", Description: "Nature"},
		{ClusterID: "2_1", Label: "Transit", Description: "Buses"},
	}
	require.NoError(t, a.WriteLabels("ds", rows, labels))

	data, err := os.ReadFile(a.Path("ds", LabelsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "arg-id,argument,x,y,cluster-level-1-id,cluster-level-2-id,cluster-level-2-label,cluster-level-2-description\n")
	assert.Contains(t, string(data), "A1_0,parks,0.5,1.25,1_1,2_0,Green,Nature\n")

	gotLabels, err := a.ReadLabels("ds")
	require.NoError(t, err)
	assert.Equal(t, labels, gotLabels)
}

func TestWriteClusters_RaggedLevels(t *testing.T) {
	a := NewArtifacts(t.TempDir())
	err := a.WriteClusters("ds", []ClusterRow{
		{ArgumentID: "A", Levels: []string{"1_1", "2_0"}},
		{ArgumentID: "B", Levels: []string{"1_1"}},
	})
	assert.Error(t, err)
}
