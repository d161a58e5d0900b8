package faq

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

func testIndex() *Index {
	return NewIndex([]Entry{
		{Question: "What documents are needed for car insurance?", Answer: "RC, previous policy, and ID proof.", Tags: []string{"insurance", "documents"}},
		{Question: "How does RC transfer work?", Answer: "Submit forms 29 and 30 at the RTO.", Tags: []string{"rc", "transfer"}},
		{Question: "What is the warranty period?", Answer: "3 years or 100,000 km, whichever comes first.", Tags: []string{"warranty"}},
	})
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.json")
	data := `[{"question":"Q1","answer":"A1","tags":["t"]}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	ix, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 1 {
		t.Errorf("len = %d, want 1", ix.Len())
	}
}

func TestSearchRanksRelevantEntryFirst(t *testing.T) {
	ix := testIndex()

	got := ix.Search("warranty", 3)
	if len(got) == 0 {
		t.Fatal("no results")
	}
	if got[0].Question != "What is the warranty period?" {
		t.Errorf("top result = %q", got[0].Question)
	}
}

func TestSearchMultiWordQuery(t *testing.T) {
	ix := testIndex()

	got := ix.Search("insurance documents", 3)
	if len(got) == 0 {
		t.Fatal("no results")
	}
	if !strings.Contains(got[0].Question, "insurance") {
		t.Errorf("top result = %q", got[0].Question)
	}
}

func TestSearchNoMatch(t *testing.T) {
	ix := testIndex()
	if got := ix.Search("quantum flux capacitor", 3); len(got) != 0 {
		t.Errorf("unexpected results: %+v", got)
	}
}

func TestToolExecute(t *testing.T) {
	tool := &Tool{Index: testIndex()}

	out, err := tool.Execute(context.Background(), map[string]any{"query": "rc transfer"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != models.ToolStatusSuccess {
		t.Errorf("status = %q", out.Status)
	}
	if !strings.Contains(out.Text, "forms 29 and 30") {
		t.Errorf("output = %q", out.Text)
	}
}

func TestToolExecuteNoResults(t *testing.T) {
	tool := &Tool{Index: testIndex()}

	out, err := tool.Execute(context.Background(), map[string]any{"query": "zzzzzz"})
	if err != nil {
		t.Fatal(err)
	}
	// No match is a successful answer the model can relay, not a
	// failure.
	if out.Status != models.ToolStatusSuccess {
		t.Errorf("status = %q", out.Status)
	}
	if out.Text != "I couldn't find any relevant information." {
		t.Errorf("output = %q", out.Text)
	}
}
