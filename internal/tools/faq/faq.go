// Package faq loads the FAQ knowledge base from JSON and exposes it as
// the search_faq agent tool.
package faq

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/wheelhouse-ai/wheelhouse/internal/agent"
)

// Entry is one FAQ question/answer pair.
type Entry struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Tags     []string `json:"tags,omitempty"`
}

// Index holds the loaded FAQ entries. Immutable after load.
type Index struct {
	entries []Entry
}

// Load reads a JSON array of entries from a file.
func Load(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("faq: read %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("faq: parse %s: %w", path, err)
	}
	return &Index{entries: entries}, nil
}

// NewIndex builds an index from in-memory entries.
func NewIndex(entries []Entry) *Index {
	return &Index{entries: entries}
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Search returns up to limit entries ranked by fuzzy match of the query
// against the question text and tags.
func (ix *Index) Search(query string, limit int) []Entry {
	if limit <= 0 {
		limit = 3
	}

	type ranked struct {
		e    Entry
		rank int
	}
	var matches []ranked
	for _, e := range ix.entries {
		rank := entryRank(query, e)
		if rank < 0 {
			continue
		}
		matches = append(matches, ranked{e: e, rank: rank})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].rank < matches[j].rank })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]Entry, len(matches))
	for i, m := range matches {
		out[i] = m.e
	}
	return out
}

// entryRank scores one entry against the query, taking the best rank
// over the whole question, its individual keywords, and the tags.
func entryRank(query string, e Entry) int {
	best := -1
	consider := func(rank int) {
		if rank >= 0 && (best < 0 || rank < best) {
			best = rank
		}
	}

	consider(fuzzy.RankMatchNormalizedFold(query, e.Question))
	for _, tag := range e.Tags {
		consider(fuzzy.RankMatchNormalizedFold(query, tag))
	}
	// Multi-word queries rarely appear verbatim; rank each word and
	// require at least one hit.
	for _, word := range strings.Fields(query) {
		consider(fuzzy.RankMatchNormalizedFold(word, e.Question))
	}
	return best
}

// Tool implements the search_faq agent tool over an index.
type Tool struct {
	Index *Index
}

func (t *Tool) Name() string { return "search_faq" }

func (t *Tool) Description() string {
	return "Search the FAQ knowledge base for insurance, documentation, and process questions. Returns the most relevant question/answer pairs."
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Keywords from the user's question"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 5}
		},
		"required": ["query"]
	}`)
}

func (t *Tool) Execute(ctx context.Context, args map[string]any) (*agent.ToolOutput, error) {
	query, _ := args["query"].(string)
	limit := 0
	if f, ok := args["limit"].(float64); ok {
		limit = int(f)
	}

	results := t.Index.Search(query, limit)
	if len(results) == 0 {
		return agent.Success("I couldn't find any relevant information."), nil
	}

	var b strings.Builder
	for i, e := range results {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", e.Question, e.Answer)
		if i < len(results)-1 {
			b.WriteString("\n")
		}
	}
	out := agent.Success(b.String())
	out.Metadata = map[string]any{"count": len(results)}
	return out, nil
}
