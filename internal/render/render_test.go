package render

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/ssfinder/internal/browser"
	"github.com/joelkehle/ssfinder/internal/classify"
	"github.com/joelkehle/ssfinder/internal/store"
)

func sampleRecord() store.Record {
	return store.Record{
		ID:     "3f1c2a9e-0000-4000-8000-000000000001",
		Source: store.SourceAPI,
		Query: classify.Query{
			Company:        "Google | Singapore",
			JobTitle:       "Software Engineer",
			JobDescription: "Build and maintain web services.",
		},
		Result: classify.Result{
			Industry:        classify.Classification{Code: "62011", Title: "Development of software and applications", Confidence: 24.9},
			Occupation:      classify.Classification{Code: "25121", Title: "Software developer", Confidence: 82.8},
			CompanyAnalysis: "Technology company.",
		},
		Trace:     classify.Trace{IndustryPath: classify.PathLexical, OccupationPath: classify.PathLexical},
		CreatedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}

func TestMarkdownIncludesResultAndDescription(t *testing.T) {
	md := Markdown(sampleRecord())
	for _, want := range []string{
		"# Job Classification Report",
		`| Company | Google \| Singapore |`,
		"| SSIC 2025 | 62011 Development of software and applications |",
		"- Code: 25121 (5-digit)",
		"- Industry path: lexical",
		"## Job Description\n\nBuild and maintain web services.",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownOmitsEmptySections(t *testing.T) {
	rec := sampleRecord()
	rec.Query.JobDescription = ""
	rec.Trace = classify.Trace{}
	md := Markdown(rec)
	if strings.Contains(md, "## Job Description") || strings.Contains(md, "## Method") {
		t.Fatalf("expected no description or method section:\n%s", md)
	}
}

func TestApplyPrintLayoutHooksAddsPageBreakBeforeJobDescription(t *testing.T) {
	in := "<h2>Result</h2><p>x</p><h2>Job Description</h2><p>y</p>"
	out := applyPrintLayoutHooks(in)
	if !strings.Contains(out, `<h2 data-page-break-before="true">Job Description</h2>`) {
		t.Fatalf("expected page-break injection, got: %s", out)
	}
}

func TestApplyPrintLayoutHooksNoopWhenHeadingMissing(t *testing.T) {
	in := "<h2>Result</h2><p>x</p>"
	if out := applyPrintLayoutHooks(in); out != in {
		t.Fatalf("expected no change when heading absent, got: %s", out)
	}
}

func TestApplyPrintLayoutHooksMarksFallbackCodes(t *testing.T) {
	in := "<ul>\n<li>Code: 99999 (fallback)</li>\n<li>Industry: Other</li>\n</ul>"
	out := applyPrintLayoutHooks(in)
	if !strings.Contains(out, `<li data-fallback="true">Code: 99999 (fallback)</li>`) {
		t.Fatalf("expected fallback marker, got: %s", out)
	}
	if strings.Count(out, "data-fallback") != 1 {
		t.Fatalf("only the fallback item should be marked: %s", out)
	}
}

func TestHTMLBadgesAndMeta(t *testing.T) {
	doc, err := HTML(sampleRecord())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<style>",
		"<strong>Reference:</strong> 3f1c2a9e-0000-4000-8000-000000000001",
		"data-level='low'>SSIC 62011: 24.9%",
		"data-level='ok'>SSOC 25121: 82.8%",
		"<table>",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("html missing %q", want)
		}
	}
}

func TestHTMLMarksSentinelLow(t *testing.T) {
	rec := sampleRecord()
	rec.Result.Occupation = classify.Classification{Code: classify.OccupationFallbackCode, Title: classify.OccupationFallbackTitle, Confidence: 90}
	doc, err := HTML(rec)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc, "data-level='low'>SSOC X5000") {
		t.Fatal("fallback occupation should render as a low badge")
	}
	if !strings.Contains(doc, `data-fallback="true"`) {
		t.Fatal("fallback code item should be marked")
	}
}

func TestPDFRendererProducesPDF(t *testing.T) {
	if browser.DetectChromePath() == "" {
		if _, err := exec.LookPath("chromium"); err != nil {
			t.Skip("chromium not available")
		}
	}
	pdf, err := NewPDFRenderer(30*time.Second).Render(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected pdf output, got %q", pdf[:min(len(pdf), 16)])
	}
}
