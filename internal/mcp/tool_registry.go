package mcp

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ToolCategory groups tools by what they act on.
type ToolCategory string

const (
	// CategoryReasoning is for step-submission tools.
	CategoryReasoning ToolCategory = "reasoning"
	// CategorySession is for tools that inspect or clear session chains.
	CategorySession ToolCategory = "session"
	// CategoryConfig is for runtime toggles.
	CategoryConfig ToolCategory = "config"
	// CategorySearch is for tool discovery itself.
	CategorySearch ToolCategory = "search"
)

// ToolMetadata describes one registered tool for discovery.
type ToolMetadata struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    ToolCategory `json:"category"`
	Keywords    []string     `json:"keywords,omitempty"`
}

// ToolRegistry indexes tool metadata for search.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*ToolMetadata
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*ToolMetadata)}
}

// Register adds or replaces a tool. Entries without a name are ignored.
func (r *ToolRegistry) Register(tool *ToolMetadata) {
	if tool == nil || tool.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// Get returns the metadata for a tool.
func (r *ToolRegistry) Get(name string) (*ToolMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns tools sorted by name. An empty category lists everything.
func (r *ToolRegistry) List(category ToolCategory) []*ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ToolMetadata, 0, len(r.tools))
	for _, tool := range r.tools {
		if category == "" || tool.Category == category {
			out = append(out, tool)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SearchResult is one match from Search.
type SearchResult struct {
	Tool *ToolMetadata `json:"tool"`

	// Score ranks the match: 3 exact name, 2 name, 1 description or keyword.
	Score int `json:"score"`

	MatchReason string `json:"match_reason"`
}

// Search matches query case-insensitively against names, descriptions and
// keywords. A query that compiles as a regular expression is also matched
// as a pattern. Results are ordered by score, then name.
func (r *ToolRegistry) Search(query string, category ToolCategory) []*SearchResult {
	if query == "" {
		return nil
	}

	needle := strings.ToLower(query)
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		re = nil
	}
	matches := func(s string) bool {
		return strings.Contains(strings.ToLower(s), needle) || (re != nil && re.MatchString(s))
	}

	var results []*SearchResult
	for _, tool := range r.List(category) {
		switch {
		case strings.EqualFold(tool.Name, query):
			results = append(results, &SearchResult{Tool: tool, Score: 3, MatchReason: "exact name match"})
		case matches(tool.Name):
			results = append(results, &SearchResult{Tool: tool, Score: 2, MatchReason: "name matches query"})
		case matches(tool.Description):
			results = append(results, &SearchResult{Tool: tool, Score: 1, MatchReason: "description matches query"})
		default:
			for _, kw := range tool.Keywords {
				if matches(kw) {
					results = append(results, &SearchResult{Tool: tool, Score: 1, MatchReason: "keyword matches query"})
					break
				}
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}
