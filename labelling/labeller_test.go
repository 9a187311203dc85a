package labelling

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/broadlistening/ai"
	"github.com/poiesic/broadlistening/ai/mock"
	"github.com/poiesic/broadlistening/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userMessage(req ai.ChatRequest) string {
	for _, msg := range req.Messages {
		if msg.Role == ai.RoleUser {
			return msg.Content
		}
	}
	return ""
}

func TestLabel_SkipMakesNoCalls(t *testing.T) {
	chat := mock.NewMockChatModel()
	usage := &ai.TokenUsage{}

	labels, err := New(chat, usage, WithSkip(true)).Label(context.Background(), map[string][]string{
		"2_1": {"a"},
		"2_0": {"b", "c"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, chat.CallCount())
	assert.Equal(t, ai.Usage{}, usage.Snapshot())
	assert.Equal(t, []core.Label{
		{ClusterID: "2_0", Label: "クラスタ 2_0", Description: "（説明は省略されています）"},
		{ClusterID: "2_1", Label: "クラスタ 2_1", Description: "（説明は省略されています）"},
	}, labels)
}

func TestLabel_UsesModelReply(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.CompleteFunc = func(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
		first, _, _ := strings.Cut(userMessage(req), "\n")
		return ai.ChatResponse{
			Text:  fmt.Sprintf(`{"label": "about %s", "description": "opinions like %s"}`, first[:1], first[:1]),
			Usage: ai.Usage{Input: 7, Output: 3, Total: 10},
		}, nil
	}
	usage := &ai.TokenUsage{}

	labels, err := New(chat, usage, WithWorkers(4)).Label(context.Background(), map[string][]string{
		"2_0": {"x1", "x2"},
		"2_1": {"y1"},
		"2_2": {"z1", "z2", "z3"},
	})
	require.NoError(t, err)

	require.Len(t, labels, 3)
	assert.Equal(t, core.Label{ClusterID: "2_0", Label: "about x", Description: "opinions like x"}, labels[0])
	assert.Equal(t, "about y", labels[1].Label)
	assert.Equal(t, "about z", labels[2].Label)
	assert.Equal(t, 3, chat.CallCount())
	assert.Equal(t, ai.Usage{Input: 21, Output: 9, Total: 30}, usage.Snapshot())

	for _, req := range chat.Requests() {
		require.NotNil(t, req.Schema)
		assert.Equal(t, "LabellingFormat", req.Schema.Name)
		assert.Equal(t, DefaultPrompt, req.Messages[0].Content)
	}
}

func TestLabel_SamplesWithoutReplacement(t *testing.T) {
	members := make([]string, 50)
	for i := range members {
		members[i] = fmt.Sprintf("opinion %02d", i)
	}

	var (
		mu   sync.Mutex
		sent []string
	)
	chat := mock.NewMockChatModel()
	chat.CompleteFunc = func(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
		mu.Lock()
		sent = strings.Split(userMessage(req), "\n")
		mu.Unlock()
		return ai.ChatResponse{Text: `{"label":"l","description":"d"}`}, nil
	}

	_, err := New(chat, nil, WithSamplingNum(5)).Label(context.Background(), map[string][]string{"1_1": members})
	require.NoError(t, err)

	require.Len(t, sent, 5)
	assert.Subset(t, members, sent)
	unique := slices.Compact(slices.Sorted(slices.Values(sent)))
	assert.Len(t, unique, 5)
}

func TestLabel_SmallClusterSendsEveryMember(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.CompleteFunc = func(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
		return ai.ChatResponse{Text: `{"label":"l","description":"d"}`}, nil
	}

	_, err := New(chat, nil, WithSamplingNum(30)).Label(context.Background(), map[string][]string{"1_1": {"a", "b"}})
	require.NoError(t, err)

	sent := strings.Split(userMessage(chat.Requests()[0]), "\n")
	assert.ElementsMatch(t, []string{"a", "b"}, sent)
}

func TestLabel_SamplingIsSeeded(t *testing.T) {
	members := make([]string, 40)
	for i := range members {
		members[i] = fmt.Sprint(i)
	}

	draw := func(seed uint64) []string {
		return New(nil, nil, WithSamplingNum(6), WithSeed(seed)).sample("2_3", members)
	}
	assert.Equal(t, draw(1), draw(1))
	assert.NotEqual(t, draw(1), draw(2))
}

func TestLabel_Placeholders(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  core.Label
	}{
		{
			name: "call error",
			err:  errors.New("connection reset"),
			want: core.Label{ClusterID: "1_1", Label: PlaceholderLabel, Description: PlaceholderDescription},
		},
		{
			name:  "not json",
			reply: "Sure! Here is a label.",
			want:  core.Label{ClusterID: "1_1", Label: PlaceholderLabel, Description: PlaceholderDescription},
		},
		{
			name:  "missing description",
			reply: `{"label": "Transport"}`,
			want:  core.Label{ClusterID: "1_1", Label: "Transport", Description: PlaceholderDescription},
		},
		{
			name:  "missing label",
			reply: `{"description": "About buses"}`,
			want:  core.Label{ClusterID: "1_1", Label: PlaceholderLabel, Description: "About buses"},
		},
		{
			name:  "fenced reply",
			reply: "```json\n{\"label\": \"Parks\", \"description\": \"Green space\"}\n```",
			want:  core.Label{ClusterID: "1_1", Label: "Parks", Description: "Green space"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := mock.NewMockChatModel()
			chat.CompleteFunc = func(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
				return ai.ChatResponse{Text: tt.reply}, tt.err
			}

			labels, err := New(chat, nil).Label(context.Background(), map[string][]string{"1_1": {"a"}})
			require.NoError(t, err)
			assert.Equal(t, []core.Label{tt.want}, labels)
		})
	}
}

func TestLabel_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chat := mock.NewMockChatModel()
	chat.CompleteFunc = func(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
		return ai.ChatResponse{}, ctx.Err()
	}
	_, err := New(chat, nil).Label(ctx, map[string][]string{"1_1": {"a"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareClusterIDs(t *testing.T) {
	ids := []string{"2_10", "1_2", "2_2", "1_1", "2_0"}
	slices.SortFunc(ids, CompareClusterIDs)
	assert.Equal(t, []string{"1_1", "1_2", "2_0", "2_2", "2_10"}, ids)

	assert.Negative(t, CompareClusterIDs("a", "b"))
}
