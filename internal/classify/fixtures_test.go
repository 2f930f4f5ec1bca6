package classify

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/joelkehle/ssfinder/internal/llm"
	"github.com/joelkehle/ssfinder/internal/taxonomy"
)

var ssicRows = []taxonomy.Row{
	{Code: "62011", Title: "Development of software and applications (except games and cybersecurity)"},
	{Code: "62021", Title: "IT consultancy (except cybersecurity)"},
	{Code: "64110", Title: "Central banking"},
	{Code: "64191", Title: "Full banks"},
	{Code: "64192", Title: "Wholesale banks"},
	{Code: "64993", Title: "Investment advisory services"},
	{Code: "66121", Title: "Stock brokerage and securities dealing"},
	{Code: "47110", Title: "Retail sale in non-specialised stores with predominantly food and beverages"},
	{Code: "86101", Title: "General hospitals"},
	{Code: "70201", Title: "Business and management consultancy services"},
	{Code: "6201", Title: "Development of software and applications"},
	{Code: "6419", Title: "Other monetary intermediation"},
	{Code: "8610", Title: "Hospital activities"},
}

var ssocRows = []taxonomy.Row{
	{Code: "25121", Title: "Software developer"},
	{Code: "25122", Title: "Web developer"},
	{Code: "24131", Title: "Financial analyst"},
	{Code: "24111", Title: "Accountant"},
	{Code: "24211", Title: "Management consultant"},
	{Code: "12122", Title: "Human resource manager"},
	{Code: "22200", Title: "Registered nurse"},
	{Code: "33221", Title: "Sales representative"},
	{Code: "2512", Title: "Software developers"},
	{Code: "2413", Title: "Financial analysts"},
}

func mustTable(t *testing.T, name string, rows []taxonomy.Row) *taxonomy.Table {
	t.Helper()
	tbl, err := taxonomy.NewTable(name, rows)
	if err != nil {
		t.Fatalf("new table %s: %v", name, err)
	}
	return tbl
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(mustTable(t, taxonomy.SSIC, ssicRows), mustTable(t, taxonomy.SSOC, ssocRows), cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

// fakeLLM answers by stage, recognised from the system prompt.
type fakeLLM struct {
	mu         sync.Mutex
	analysis   string
	occupation string
	industry   string
	err        error
	calls      []llm.Completion
}

func (f *fakeLLM) Complete(_ context.Context, c llm.Completion) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.err != nil {
		return "", f.err
	}
	switch {
	case strings.Contains(c.System, "SSOC"):
		return f.occupation, nil
	case strings.Contains(c.System, "SSIC"):
		return f.industry, nil
	default:
		return f.analysis, nil
	}
}

func factoryFor(caller llm.LLMCaller) func(string) llm.LLMCaller {
	return func(string) llm.LLMCaller { return caller }
}
