package classify

import (
	"fmt"
	"strings"
)

// Summary renders a result as labelled markdown blocks.
func Summary(r Result) string {
	var b strings.Builder
	if r.CompanyAnalysis != "" {
		b.WriteString("**Company Analysis:**\n")
		b.WriteString(r.CompanyAnalysis)
		b.WriteString("\n\n")
	}

	b.WriteString("**Industry Classification (SSIC 2025):**\n")
	fmt.Fprintf(&b, "- Code: %s\n", codeLabel(r.Industry.Code))
	fmt.Fprintf(&b, "- Industry: %s\n", r.Industry.Title)
	fmt.Fprintf(&b, "- Confidence: %s\n\n", formatPercent(r.Industry.Confidence))

	b.WriteString("**Occupation Classification (SSOC 2024):**\n")
	fmt.Fprintf(&b, "- Code: %s\n", codeLabel(r.Occupation.Code))
	fmt.Fprintf(&b, "- Occupation: %s\n", r.Occupation.Title)
	fmt.Fprintf(&b, "- Confidence: %s\n", formatPercent(r.Occupation.Confidence))

	if r.CompanyAnalysis != "" {
		b.WriteString("\n**Classification Method:**\n")
		b.WriteString("- Industry determined from the company analysis and occupation compatibility\n")
		b.WriteString("- Occupation determined from the job title and description\n")
	}
	return strings.TrimSpace(b.String())
}

func codeLabel(code string) string {
	switch {
	case IsSentinel(code):
		return code + " (fallback)"
	case len(code) == 5:
		return code + " (5-digit)"
	default:
		return fmt.Sprintf("%s (%d-digit)", code, len(code))
	}
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
