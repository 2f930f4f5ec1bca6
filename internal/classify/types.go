package classify

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinCompanyChars = 2
	MaxCompanyChars = 100
	MinTitleChars   = 2
	MaxTitleChars   = 150

	// AnalysisPrefixChars bounds how much of the description is sent to the
	// company analysis prompt.
	AnalysisPrefixChars = 400
)

// Query is one job posting to classify.
type Query struct {
	Company        string `json:"company"`
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description,omitempty"`
	// AICredential enables the LLM-assisted path when non-empty.
	AICredential string `json:"-"`
}

// Sanitize strips control characters and collapses runs of whitespace in
// every text field.
func (q Query) Sanitize() Query {
	q.Company = sanitizeText(q.Company)
	q.JobTitle = sanitizeText(q.JobTitle)
	q.JobDescription = sanitizeText(q.JobDescription)
	q.AICredential = strings.TrimSpace(q.AICredential)
	return q
}

// Validate checks length limits on the sanitized company and job title.
// Classify accepts any input; callers facing users validate first.
func (q Query) Validate() error {
	q = q.Sanitize()
	var errs []error
	if n := utf8.RuneCountInString(q.Company); n < MinCompanyChars || n > MaxCompanyChars {
		errs = append(errs, fmt.Errorf("company must be %d-%d characters", MinCompanyChars, MaxCompanyChars))
	}
	if n := utf8.RuneCountInString(q.JobTitle); n < MinTitleChars || n > MaxTitleChars {
		errs = append(errs, fmt.Errorf("job title must be %d-%d characters", MinTitleChars, MaxTitleChars))
	}
	return errors.Join(errs...)
}

func sanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Classification is one axis of a result. Confidence is a percentage.
type Classification struct {
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
}

type Result struct {
	Industry        Classification `json:"industry"`
	Occupation      Classification `json:"occupation"`
	CompanyAnalysis string         `json:"company_analysis,omitempty"`
}

// ScoredCandidate is a taxonomy row with its score in [0,1].
type ScoredCandidate struct {
	Code  string  `json:"code"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

func (c ScoredCandidate) classification() Classification {
	return Classification{Code: c.Code, Title: c.Title, Confidence: ConfidencePercent(c.Score)}
}

const (
	IndustryFallbackCode    = "99999"
	IndustryFallbackTitle   = "Other activities not elsewhere specified"
	OccupationFallbackCode  = "X5000"
	OccupationFallbackTitle = "Workers reporting unidentifiable or inadequately described occupations"
	UnknownCode             = "Unknown"
	UnknownTitle            = "Classification failed"
)

// UnknownResult is returned when neither path could produce a classification.
func UnknownResult() Result {
	failed := Classification{Code: UnknownCode, Title: UnknownTitle, Confidence: 0}
	return Result{Industry: failed, Occupation: failed}
}

// IsSentinel reports whether code is one of the fallback codes rather than a
// taxonomy row.
func IsSentinel(code string) bool {
	return code == IndustryFallbackCode || code == OccupationFallbackCode || code == UnknownCode
}

// ConfidencePercent converts a [0,1] score to a percentage with one decimal.
func ConfidencePercent(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	p := math.Round(score*1000) / 10
	return math.Max(0, math.Min(100, p))
}

// Axis paths recorded in a Trace.
const (
	PathAI       = "ai"
	PathLexical  = "lexical"
	PathSentinel = "sentinel"
)

// Trace describes how a result was produced. It is kept apart from Result so
// that results stay comparable across runs.
type Trace struct {
	StagesExecuted  []string `json:"stages_executed"`
	IndustryPath    string   `json:"industry_path"`
	OccupationPath  string   `json:"occupation_path"`
	IndustryTiers   []int    `json:"industry_tiers,omitempty"`
	OccupationTiers []int    `json:"occupation_tiers,omitempty"`
	Fallbacks       []string `json:"fallbacks,omitempty"`
	AICalls         int      `json:"ai_calls"`
	AnalysisFailed  bool     `json:"analysis_failed,omitempty"`
	Recovered       string   `json:"recovered,omitempty"`
}

type StageProgressFn func(stage, message string)

const (
	StageCompanyAnalysis = "company_analysis"
	StageOccupation      = "occupation"
	StageIndustry        = "industry"
	StageAssemble        = "assemble"
)

func emit(progress StageProgressFn, stage, msg string) {
	if progress != nil {
		progress(stage, msg)
	}
}
