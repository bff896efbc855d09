package generation

import (
	"testing"

	"story-tasker-api/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskIDs(t *testing.T, v any) []string {
	t.Helper()
	root, ok := v.(map[string]any)
	require.True(t, ok, "expected object, got %T", v)
	items, ok := root["tasks"].([]any)
	require.True(t, ok, "expected tasks array")

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.(map[string]any)["id"].(string))
	}
	return ids
}

func TestNewExtractor(t *testing.T) {
	tests := []struct {
		name string
		want Extractor
	}{
		{"", GreedyExtractor{}},
		{config.ExtractorGreedy, GreedyExtractor{}},
		{config.ExtractorBalanced, BalancedExtractor{}},
		{config.ExtractorFenced, FencedExtractor{}},
		{config.ExtractorRepair, RepairExtractor{}},
	}
	for _, tt := range tests {
		got, err := NewExtractor(tt.name)
		require.NoError(t, err)
		assert.IsType(t, tt.want, got)
	}

	_, err := NewExtractor("regex")
	assert.Error(t, err)
}

func TestExtractors(t *testing.T) {
	const plain = `{"tasks":[{"id":"a","title":"A"}]}`
	const fenced = "Sure!\n```json\n{\"tasks\":[{\"id\":\"a\",\"title\":\"A\"}]}\n```\nLet me know."
	const prose = "Here is the list: {\"tasks\":[{\"id\":\"a\",\"title\":\"A\"}]} hope it helps"
	const twoFragments = "first {\"tasks\":[{\"id\":\"a\",\"title\":\"A\"}]} then {\"note\":\"x\"}"
	const braceInString = "answer: {\"tasks\":[{\"id\":\"a\",\"title\":\"Use } carefully\"}]} done"
	const trailingComma = "```json\n{\"tasks\":[{\"id\":\"a\",\"title\":\"A\",},]}\n```"

	tests := []struct {
		name      string
		extractor Extractor
		content   string
		wantIDs   []string
		wantErr   bool
	}{
		{"greedy plain", GreedyExtractor{}, plain, []string{"a"}, false},
		{"greedy fenced", GreedyExtractor{}, fenced, []string{"a"}, false},
		{"greedy prose", GreedyExtractor{}, prose, []string{"a"}, false},
		{"greedy over-captures fragments", GreedyExtractor{}, twoFragments, nil, true},
		{"greedy no braces", GreedyExtractor{}, "no json here", nil, true},
		{"greedy trailing comma", GreedyExtractor{}, trailingComma, nil, true},

		{"balanced plain", BalancedExtractor{}, plain, []string{"a"}, false},
		{"balanced picks first fragment", BalancedExtractor{}, twoFragments, []string{"a"}, false},
		{"balanced brace inside string", BalancedExtractor{}, braceInString, []string{"a"}, false},
		{"balanced unterminated", BalancedExtractor{}, `{"tasks":[`, nil, true},

		{"fenced block", FencedExtractor{}, fenced, []string{"a"}, false},
		{"fenced requires fence", FencedExtractor{}, plain, nil, true},

		{"repair plain", RepairExtractor{}, plain, []string{"a"}, false},
		{"repair trailing comma", RepairExtractor{}, trailingComma, []string{"a"}, false},
		{"repair no braces", RepairExtractor{}, "nothing to see", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.extractor.Extract(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, taskIDs(t, v))
		})
	}
}

func TestGreedyExtractor_ReturnsNonObjectValues(t *testing.T) {
	// strict decode accepts any JSON value; the schema rejects it later
	v, err := GreedyExtractor{}.Extract(`[1,2,3]`)
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, v)
}

func TestMatchingBrace(t *testing.T) {
	assert.Equal(t, 1, matchingBrace("{}", 0))
	assert.Equal(t, 11, matchingBrace(`{"a":"}\"{"}`, 0))
	assert.Equal(t, -1, matchingBrace("{{}", 0))
}
