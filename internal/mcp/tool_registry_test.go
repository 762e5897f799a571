package mcp

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *ToolRegistry {
	r := NewToolRegistry()
	for _, tool := range []*ToolMetadata{
		{Name: "sequentialThought", Description: "Submit a reasoning step", Category: CategoryReasoning, Keywords: []string{"branch"}},
		{Name: "chainOfDraft", Description: "Submit a draft or critique", Category: CategoryReasoning},
		{Name: "chainStatus", Description: "Inspect chains", Category: CategorySession, Keywords: []string{"metrics"}},
		{Name: "setFeature", Description: "Toggle runtime metrics and debugging", Category: CategoryConfig},
	} {
		r.Register(tool)
	}
	return r
}

func TestToolRegistry_Register(t *testing.T) {
	r := testRegistry()
	assert.Equal(t, 4, r.Count())

	r.Register(nil)
	r.Register(&ToolMetadata{})
	assert.Equal(t, 4, r.Count(), "nameless entries are ignored")

	r.Register(&ToolMetadata{Name: "chainStatus", Description: "replaced", Category: CategorySession})
	tool, ok := r.Get("chainStatus")
	require.True(t, ok)
	assert.Equal(t, "replaced", tool.Description)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestToolRegistry_List(t *testing.T) {
	r := testRegistry()

	all := r.List("")
	require.Len(t, all, 4)
	assert.Equal(t, "chainOfDraft", all[0].Name, "sorted by name")

	reasoning := r.List(CategoryReasoning)
	require.Len(t, reasoning, 2)
	for _, tool := range reasoning {
		assert.Equal(t, CategoryReasoning, tool.Category)
	}
	assert.Empty(t, r.List("unknown"))
}

func TestToolRegistry_Search(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		name     string
		query    string
		category ToolCategory
		want     []string
		reason   string
	}{
		{name: "exact name", query: "chainstatus", want: []string{"chainStatus"}, reason: "exact name match"},
		{name: "name substring ranks first", query: "chain", want: []string{"chainOfDraft", "chainStatus"}, reason: "name matches query"},
		{name: "regex over names", query: "^chain(Of|St)", want: []string{"chainOfDraft", "chainStatus"}},
		{name: "description", query: "critique", want: []string{"chainOfDraft"}, reason: "description matches query"},
		{name: "keyword", query: "branch", want: []string{"sequentialThought"}, reason: "keyword matches query"},
		{name: "category filter", query: "metrics", category: CategoryConfig, want: []string{"setFeature"}},
		{name: "invalid regex falls back to text", query: "chain(", want: nil},
		{name: "no match", query: "zzz", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := r.Search(tt.query, tt.category)
			names := make([]string, 0, len(results))
			for _, res := range results {
				names = append(names, res.Tool.Name)
			}
			if tt.want == nil {
				assert.Empty(t, names)
				return
			}
			assert.Equal(t, tt.want, names)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, results[0].MatchReason)
			}
		})
	}
	assert.Nil(t, r.Search("", ""))
}

func TestToolRegistry_SearchOrdersByScore(t *testing.T) {
	r := testRegistry()
	results := r.Search("metrics", "")
	require.Len(t, results, 2)
	assert.Equal(t, "chainStatus", results[0].Tool.Name)
	assert.Equal(t, "setFeature", results[1].Tool.Name)
	assert.Equal(t, 1, results[0].Score)
}

func TestToolRegistry_Concurrent(t *testing.T) {
	r := NewToolRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Register(&ToolMetadata{Name: string(rune('a' + i)), Category: CategorySearch})
			_ = r.Search("a", "")
			_ = r.List("")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, r.Count())
}

func TestToolSearchHandler(t *testing.T) {
	env := newTestEnv(t, nil)

	res, out, err := env.server.handleToolSearch(context.Background(), nil, toolSearchInput{Query: "draft", Limit: 2})
	require.NoError(t, err)
	require.False(t, res.IsError)
	search, ok := out.(toolSearchOutput)
	require.True(t, ok)
	assert.Equal(t, 2, search.Count)
	assert.Equal(t, "chainOfDraft", search.Results[0].Tool.Name)
	assert.Equal(t, 8, search.TotalTools)

	res, _, err = env.server.handleToolSearch(context.Background(), nil, toolSearchInput{Query: "  "})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	_, out, err = env.server.handleToolList(context.Background(), nil, toolListInput{Category: string(CategorySession)})
	require.NoError(t, err)
	list, ok := out.(toolListOutput)
	require.True(t, ok)
	assert.Equal(t, 2, list.Count)
}
