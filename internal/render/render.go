// Package render turns stored classifications into markdown, HTML and PDF
// reports.
package render

import (
	"context"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/ssfinder/internal/browser"
	"github.com/joelkehle/ssfinder/internal/classify"
	"github.com/joelkehle/ssfinder/internal/store"
)

//go:embed report.css
var reportCSS string

// LowConfidence marks a badge as low when the percentage is below it.
const LowConfidence = 50.0

const jobDescriptionHeading = "Job Description"

var (
	reJobDescription = regexp.MustCompile(`(?i)<h2([^>]*)>\s*` + jobDescriptionHeading + `\s*</h2>`)
	reFallbackItem   = regexp.MustCompile(`<li>([^<]*\(fallback\)[^<]*)</li>`)
)

// Markdown renders a record as a standalone markdown report.
func Markdown(rec store.Record) string {
	var b strings.Builder
	b.WriteString("# Job Classification Report\n\n")
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Company | %s |\n", tableCell(rec.Query.Company))
	fmt.Fprintf(&b, "| Job Title | %s |\n", tableCell(rec.Query.JobTitle))
	fmt.Fprintf(&b, "| SSIC 2025 | %s %s |\n", rec.Result.Industry.Code, tableCell(rec.Result.Industry.Title))
	fmt.Fprintf(&b, "| SSOC 2024 | %s %s |\n\n", rec.Result.Occupation.Code, tableCell(rec.Result.Occupation.Title))

	b.WriteString("## Result\n\n")
	b.WriteString(bulletize(classify.Summary(rec.Result)))
	b.WriteString("\n")

	if rec.Trace.IndustryPath != "" || rec.Trace.OccupationPath != "" {
		b.WriteString("\n## Method\n\n")
		fmt.Fprintf(&b, "- Industry path: %s\n", rec.Trace.IndustryPath)
		fmt.Fprintf(&b, "- Occupation path: %s\n", rec.Trace.OccupationPath)
		fmt.Fprintf(&b, "- AI calls: %d\n", rec.Trace.AICalls)
		if len(rec.Trace.Fallbacks) > 0 {
			fmt.Fprintf(&b, "- Fallbacks: %s\n", strings.Join(rec.Trace.Fallbacks, ", "))
		}
	}

	if desc := strings.TrimSpace(rec.Query.JobDescription); desc != "" {
		b.WriteString("\n## " + jobDescriptionHeading + "\n\n")
		b.WriteString(desc)
		b.WriteString("\n")
	}
	return b.String()
}

// Summary lines are separate paragraphs in markdown; keep the bold labels
// on their own line.
func bulletize(summary string) string {
	return strings.ReplaceAll(summary, ":**\n", ":**\n\n")
}

func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// HTML renders a record as a complete HTML document with embedded styles.
func HTML(rec store.Record) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(Markdown(rec)), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	contentHTML := applyPrintLayoutHooks(content.String())

	return "<!doctype html><html><head><meta charset='utf-8'><title>Job Classification Report</title>" +
		"<style>" + reportCSS + "</style></head><body>" +
		"<div class='pdf-wrap'><div class='pdf-gutter'><section class='report-viewer'><div class='report-header'>" +
		"<div class='report-meta'>" + metaHTML(rec) + "</div>" +
		"<div class='report-badges'>" + badgeHTML(rec.Result) + "</div>" +
		"</div><div class='report-html'>" + contentHTML + "</div></section></div></div>" +
		"</body></html>", nil
}

func applyPrintLayoutHooks(contentHTML string) string {
	out := reJobDescription.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">`+jobDescriptionHeading+`</h2>`)
	return reFallbackItem.ReplaceAllString(out, `<li data-fallback="true">$1</li>`)
}

func metaHTML(rec store.Record) string {
	var out strings.Builder
	if rec.ID != "" {
		out.WriteString("<div><strong>Reference:</strong> " + html.EscapeString(rec.ID) + "</div>")
	}
	if rec.Source != "" {
		out.WriteString("<div><strong>Source:</strong> " + html.EscapeString(rec.Source) + "</div>")
	}
	if !rec.CreatedAt.IsZero() {
		out.WriteString("<div><strong>Date:</strong> " + html.EscapeString(rec.CreatedAt.In(time.Local).Format("January 2, 2006 at 3:04 PM MST")) + "</div>")
	}
	return out.String()
}

func badgeHTML(r classify.Result) string {
	badge := func(label string, c classify.Classification) string {
		level := "ok"
		if c.Confidence < LowConfidence || classify.IsSentinel(c.Code) {
			level = "low"
		}
		return fmt.Sprintf("<span class='report-badge' data-level='%s'>%s %s: %.1f%%</span>", level, label, html.EscapeString(c.Code), c.Confidence)
	}
	return badge("SSIC", r.Industry) + badge("SSOC", r.Occupation)
}

// PDFRenderer prints report HTML through headless Chromium.
type PDFRenderer struct {
	Timeout time.Duration
}

func NewPDFRenderer(timeout time.Duration) *PDFRenderer {
	return &PDFRenderer{Timeout: timeout}
}

func (r *PDFRenderer) Render(ctx context.Context, rec store.Record) ([]byte, error) {
	htmlDoc, err := HTML(rec)
	if err != nil {
		return nil, err
	}
	taskCtx, cancel := browser.NewContext(ctx, r.Timeout)
	defer cancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;padding-right:8px;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return pdf, nil
}
