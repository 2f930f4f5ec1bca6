package classify

import (
	"fmt"
	"strings"
)

const analysisSystemPrompt = "You are a business industry analyst. Describe what a company does: its industry sector and core business activities, not the roles it hires for."

const occupationSystemPrompt = "You classify jobs under the Singapore Standard Occupational Classification (SSOC). Answer with a single 5-digit SSOC code and nothing else."

const industrySystemPrompt = "You classify companies under the Singapore Standard Industrial Classification (SSIC). Answer with a single 5-digit SSIC code and nothing else."

func analysisPrompt(q Query) string {
	return fmt.Sprintf(`Write a 2-3 sentence description of the company below for industrial classification.

Company: %s
Job title: %s
Job description: %s

Cover:
1. Primary industry sector (for example technology, financial services, manufacturing, retail, healthcare, education, construction).
2. Core business activities (for example software development, retail banking, electronics manufacturing, consulting).
3. Business model (for example B2B services, consumer products, platform, manufacturing).

Use industry vocabulary. Leave out details about the advertised job.

Example: "DBS Bank is a financial services group providing retail, corporate and investment banking as well as wealth management to individuals, businesses and institutions."

Description:`, q.Company, q.JobTitle, truncateRunes(q.JobDescription, AnalysisPrefixChars))
}

func occupationPrompt(q Query, shortlist []ScoredCandidate) string {
	return fmt.Sprintf(`Choose the SSOC 2024 occupation code that best fits this job.

Company: %s
Job title: %s
Job description: %s

Candidate codes:
%s

Guidance:
- Match the literal job title and the stated responsibilities first.
- Respect seniority: senior, lead, principal and director roles may belong under managerial 1xxxx codes; hands-on technical roles belong under 2xxxx codes.
- Software engineer or developer usually maps to 25121 (software developer); financial analyst to 24131; business analyst to 24221.
- For newer roles such as DevOps or data engineering pick the closest established occupation.

Reply with the 5-digit code only.

SSOC code:`, q.Company, q.JobTitle, truncateRunes(q.JobDescription, AnalysisPrefixChars), formatCandidates(shortlist))
}

func industryPrompt(company, analysis string, occupation ScoredCandidate, shortlist []ScoredCandidate) string {
	return fmt.Sprintf(`Choose the SSIC 2025 industry code that best fits this company.

Company: %s
Company analysis: %s

Occupation already selected (SSOC 2024): %s %s

Candidate codes:
%s

Requirements:
- The code must have 5 digits.
- Base the choice on the company's business activities in the analysis.
- The industry must be a plausible employer of the selected occupation.

Typical pairings:
- Software developer (25121) at a technology company: 62011 software development or 62021 IT consultancy.
- Financial analyst (24131) at a bank: 641xx.
- Management consultant (24211) at a consulting firm: 70xxx.
- Government officer at a public agency: 841xx.
- Clinical staff at a hospital: 861xx.
- Engineers and technicians at a manufacturer: 1xxxx to 3xxxx.
- Sales staff at a consumer retailer: 47xxx.

Reply with the 5-digit code only.

SSIC code:`, company, analysis, occupation.Code, occupation.Title, formatCandidates(shortlist))
}

func formatCandidates(c []ScoredCandidate) string {
	var sb strings.Builder
	for i, cand := range c {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "- %s: %s", cand.Code, cand.Title)
	}
	return sb.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
