package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joelkehle/ssfinder/internal/classify"
	"github.com/joelkehle/ssfinder/internal/enrich"
	"github.com/joelkehle/ssfinder/internal/jobdesc"
	"github.com/joelkehle/ssfinder/internal/store"
)

const sampleCSV = "Company,Job Title,Job Description,Notes\n" +
	"Google,Software Engineer,Develop web applications,first\n" +
	"DBS Bank,Financial Analyst,,second\n" +
	"Mount Elizabeth,Staff Nurse,Patient care,third\n"

// echoClassifier returns the company as the industry title so tests can check
// that outcomes stay attached to their rows.
type echoClassifier struct {
	mu      sync.Mutex
	queries []classify.Query
	delay   time.Duration
}

func (c *echoClassifier) ClassifyWithTrace(_ context.Context, q classify.Query) (classify.Result, classify.Trace) {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	c.queries = append(c.queries, q)
	c.mu.Unlock()
	return classify.Result{
		Industry:   classify.Classification{Code: "62011", Title: q.Company, Confidence: 24.9},
		Occupation: classify.Classification{Code: "25121", Title: q.JobTitle, Confidence: 82.7},
	}, classify.Trace{IndustryPath: classify.PathLexical, OccupationPath: classify.PathLexical}
}

type fakeSearcher struct{ calls int }

func (f *fakeSearcher) Search(context.Context, string, string) []enrich.Posting {
	f.calls++
	return []enrich.Posting{{Title: "Engineer", Company: "Acme", Source: "Test"}}
}

type fakeDescriber struct {
	mu   sync.Mutex
	reqs []jobdesc.Request
}

func (f *fakeDescriber) Describe(_ context.Context, req jobdesc.Request) (string, bool) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return strings.TrimSpace(req.InitialDescription + " Generated."), true
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []store.Record
}

func (f *fakeRecorder) Save(_ context.Context, rec store.Record) (store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return rec, nil
}

func TestReadCSV(t *testing.T) {
	sheet, err := ReadCSV(strings.NewReader(sampleCSV+",,,\n"), 100)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(sheet.Jobs) != 3 || len(sheet.Header) != 4 {
		t.Fatalf("unexpected sheet: %+v", sheet)
	}
	j := sheet.Jobs[1]
	if j.Row != 3 || j.Company != "DBS Bank" || j.JobDescription != "" || j.Cells[3] != "second" {
		t.Fatalf("unexpected job: %+v", j)
	}
}

func TestReadCSVColumnsCaseInsensitiveAndOptionalDescription(t *testing.T) {
	sheet, err := ReadCSV(strings.NewReader("company, JOB TITLE \nGoogle,Engineer\n"), 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if sheet.Jobs[0].JobTitle != "Engineer" || sheet.Jobs[0].JobDescription != "" {
		t.Fatalf("unexpected job: %+v", sheet.Jobs[0])
	}
}

func TestReadCSVValidation(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"empty", "", 100, "empty"},
		{"header only", "Company,Job Title\n", 100, "empty"},
		{"missing columns", "Name,Role\nx,y\n", 100, "missing required columns: Company, Job Title"},
		{"empty cells", "Company,Job Title\nGoogle,\nDBS,\n", 100, "column 'Job Title' has 2 empty rows"},
		{"too many rows", sampleCSV, 2, "too many rows"},
	} {
		_, err := ReadCSV(strings.NewReader(tc.in), tc.max)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q, got %v", tc.name, tc.want, err)
		}
	}
	_, err := ReadCSV(strings.NewReader(sampleCSV), 2)
	if !errors.Is(err, ErrTooManyRows) {
		t.Fatalf("expected ErrTooManyRows, got %v", err)
	}
}

func TestRunPreservesOrder(t *testing.T) {
	sheet, err := ReadCSV(strings.NewReader(sampleCSV), 100)
	if err != nil {
		t.Fatal(err)
	}
	rec := &fakeRecorder{}
	r := &Runner{Classifier: &echoClassifier{delay: 5 * time.Millisecond}, Recorder: rec, Workers: 3}
	var progressCalls []int
	var mu sync.Mutex
	outcomes, err := r.Run(context.Background(), sheet.Jobs, func(done, total int, _ Outcome) {
		mu.Lock()
		progressCalls = append(progressCalls, done)
		mu.Unlock()
		if total != 3 {
			t.Errorf("total=%d", total)
		}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, o := range outcomes {
		if o.Status != StatusSuccess || o.Result.Industry.Title != sheet.Jobs[i].Company || o.Job.Row != sheet.Jobs[i].Row {
			t.Fatalf("outcome %d not attributed to its row: %+v", i, o)
		}
	}
	if len(progressCalls) != 3 || progressCalls[2] != 3 {
		t.Fatalf("progress calls: %v", progressCalls)
	}
	if len(rec.recs) != 3 || rec.recs[0].Source != store.SourceBatch {
		t.Fatalf("records: %+v", rec.recs)
	}
}

func TestRunReportsInvalidRows(t *testing.T) {
	c := &echoClassifier{}
	outcomes, err := (&Runner{Classifier: c}).Run(context.Background(), []Job{
		{Row: 2, Company: "G", JobTitle: "Engineer"},
		{Row: 3, Company: "Google", JobTitle: "Engineer"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != StatusFailed || !strings.Contains(outcomes[0].Error, "company") {
		t.Fatalf("expected validation failure: %+v", outcomes[0])
	}
	if outcomes[1].Status != StatusSuccess || len(c.queries) != 1 {
		t.Fatalf("valid row should still classify: %+v", outcomes[1])
	}
}

func TestRunUsesSearcherAndDescriber(t *testing.T) {
	c := &echoClassifier{}
	s := &fakeSearcher{}
	d := &fakeDescriber{}
	r := &Runner{Classifier: c, Searcher: s, Describer: d, Credential: "sk-test-0123456789abcdef"}
	outcomes, err := r.Run(context.Background(), []Job{{Row: 2, Company: "Google", JobTitle: "Engineer", JobDescription: "Build things."}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Description != "Build things. Generated." {
		t.Fatalf("description=%q", outcomes[0].Description)
	}
	if s.calls != 1 || !strings.Contains(d.reqs[0].References, "Engineer at Acme (Source: Test)") {
		t.Fatalf("references not passed: %+v", d.reqs)
	}
	if q := c.queries[0]; q.JobDescription != "Build things. Generated." || q.AICredential != "sk-test-0123456789abcdef" {
		t.Fatalf("classifier query: %+v", q)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &echoClassifier{}
	_, err := (&Runner{Classifier: c}).Run(ctx, []Job{{Company: "Google", JobTitle: "Engineer"}}, nil)
	if !errors.Is(err, context.Canceled) || len(c.queries) != 0 {
		t.Fatalf("expected canceled run, err=%v queries=%d", err, len(c.queries))
	}
}

func TestWriteCSVAndXLSX(t *testing.T) {
	sheet, err := ReadCSV(strings.NewReader(sampleCSV), 100)
	if err != nil {
		t.Fatal(err)
	}
	outcomes, err := (&Runner{Classifier: &echoClassifier{}}).Run(context.Background(), sheet.Jobs, nil)
	if err != nil {
		t.Fatal(err)
	}
	outcomes[2] = Outcome{Job: sheet.Jobs[2], Status: StatusFailed, Error: "boom"}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, sheet, outcomes); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Company,Job Title,Job Description,Notes,Generated Job Description,Company Analysis,SSIC 5 digit",
		"Google,Software Engineer,Develop web applications,first,Develop web applications,,62011,Google,24.9%,25121,Software Engineer,82.7%,SUCCESS",
		"Error: boom,Failed to generate,N/A",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("csv missing %q:\n%s", want, out)
		}
	}

	path := filepath.Join(t.TempDir(), "result.xlsx")
	if err := WriteFile(path, sheet, outcomes); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	back, err := ReadFile(path, 100)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(back.Jobs) != 3 || len(back.Header) != 4+len(outputColumns) {
		t.Fatalf("unexpected round trip: %+v", back.Header)
	}
	if back.Jobs[0].Cells[6] != "62011" || back.Jobs[2].Cells[len(back.Header)-1] != StatusFailed {
		t.Fatalf("unexpected cells: %v / %v", back.Jobs[0].Cells, back.Jobs[2].Cells)
	}
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "jobs.csv")
	if err := os.WriteFile(in, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	out := OutputPath(filepath.Join(dir, "out"), in)
	if filepath.Base(out) != "jobs_classified.csv" {
		t.Fatalf("output path %s", out)
	}
	rec, err := (&Runner{Classifier: &echoClassifier{}, Workers: 2, MaxRows: 100}).ProcessFile(context.Background(), in, out)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rec.Rows != 3 || rec.Failed != 0 || rec.RunID == "" {
		t.Fatalf("record: %+v", rec)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind")
	}
}

func TestEstimate(t *testing.T) {
	if d := EstimateDuration(5, false); d != 25*time.Second {
		t.Fatalf("estimate=%v", d)
	}
	if d := EstimateDuration(100, true); d != 1000*time.Second {
		t.Fatalf("estimate=%v", d)
	}
	if got := FormatEstimate(25 * time.Second); got != "~25 seconds" {
		t.Fatalf("format=%q", got)
	}
	if got := FormatEstimate(1000 * time.Second); got != "~16 minutes" {
		t.Fatalf("format=%q", got)
	}
}

func TestIsBatchFile(t *testing.T) {
	for path, want := range map[string]bool{
		"jobs.csv":             true,
		"JOBS.XLSX":            true,
		"jobs_classified.xlsx": false,
		".hidden.csv":          false,
		"~$jobs.xlsx":          false,
		"notes.txt":            false,
	} {
		if got := IsBatchFile(path); got != want {
			t.Fatalf("IsBatchFile(%s)=%v want %v", path, got, want)
		}
	}
}

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	st, err := LoadState(path)
	if err != nil || len(st.Processed) != 0 {
		t.Fatalf("missing state: %v %+v", err, st)
	}
	mod := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	st.Processed["jobs.csv"] = FileRecord{RunID: "run-1", Rows: 3, ModTime: mod}
	if err := SaveState(path, st); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadState(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if r := got.Processed["jobs.csv"]; r.RunID != "run-1" || r.Rows != 3 || !r.ModTime.Equal(mod) {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestWatcherProcessesDroppedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "existing.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := &Runner{Classifier: &echoClassifier{}, Workers: 2, MaxRows: 100}
	w, err := NewWatcher(dir, "", runner.ProcessFile)
	if err != nil {
		t.Fatal(err)
	}
	w.Settle = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "dropped.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(dir, "out", "existing_classified.csv"),
		filepath.Join(dir, "out", "dropped_classified.csv"),
	}
	deadline := time.Now().Add(5 * time.Second)
	for _, p := range want {
		for {
			if _, err := os.Stat(p); err == nil {
				break
			}
			if time.Now().After(deadline) {
				cancel()
				t.Fatalf("timed out waiting for %s", p)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	st, err := LoadState(filepath.Join(dir, "out", stateFileName))
	if err != nil {
		t.Fatal(err)
	}
	if st.Processed["existing.csv"].Rows != 3 || st.Processed["dropped.csv"].Rows != 3 {
		t.Fatalf("unexpected state: %+v", st)
	}
}
