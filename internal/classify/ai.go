package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/joelkehle/ssfinder/internal/llm"
	"github.com/joelkehle/ssfinder/internal/taxonomy"
)

// AIError kinds beyond the transport kinds reported by llm.FailureKind.
const (
	KindInvalidCode  = "invalid_code"
	KindUnknownCode  = "unknown_code"
	KindNoCandidates = "no_candidates"
)

// AIError is returned by every LLM-assisted step. The orchestrator treats it
// as a signal to fall back to the lexical path.
type AIError struct {
	Stage string
	Kind  string
	Err   error
}

func (e *AIError) Error() string {
	return fmt.Sprintf("ai %s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *AIError) Unwrap() error { return e.Err }

func callError(stage string, err error) *AIError {
	return &AIError{Stage: stage, Kind: llm.FailureKind(err), Err: err}
}

type aiCompletion struct {
	system      string
	temperature float64
	maxTokens   int
}

var (
	analysisCompletion  = aiCompletion{system: analysisSystemPrompt, temperature: 0.3, maxTokens: 250}
	selectionCompletion = aiCompletion{temperature: 0.1, maxTokens: 50}
)

// aiSession carries one query's caller and counts its LLM calls.
type aiSession struct {
	caller llm.LLMCaller
	calls  int
}

func (s *aiSession) complete(ctx context.Context, stage string, c aiCompletion, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", callError(stage, err)
	}
	s.calls++
	out, err := s.caller.Complete(ctx, llm.Completion{
		System:      c.system,
		Prompt:      prompt,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", callError(stage, err)
	}
	return out, nil
}

func (e *Engine) generateAnalysis(ctx context.Context, s *aiSession, q Query) (string, error) {
	out, err := s.complete(ctx, StageCompanyAnalysis, analysisCompletion, analysisPrompt(q))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &AIError{Stage: StageCompanyAnalysis, Kind: llm.KindEmpty, Err: llm.ErrEmptyResponse}
	}
	return out, nil
}

func (e *Engine) aiOccupation(ctx context.Context, s *aiSession, q Query) (ScoredCandidate, error) {
	shortlist := e.occupationShortlist(q)
	if len(shortlist) == 0 {
		return ScoredCandidate{}, &AIError{Stage: StageOccupation, Kind: KindNoCandidates, Err: errors.New("occupation table is empty")}
	}
	c := selectionCompletion
	c.system = occupationSystemPrompt
	out, err := s.complete(ctx, StageOccupation, c, occupationPrompt(q, shortlist))
	if err != nil {
		return ScoredCandidate{}, err
	}
	row, err := validateCode(StageOccupation, out, e.ssoc)
	if err != nil {
		return ScoredCandidate{}, err
	}
	return ScoredCandidate{Code: row.Code, Title: row.Title, Score: e.weights.AIConfidence}, nil
}

func (e *Engine) aiIndustry(ctx context.Context, s *aiSession, company, analysis string, occupation ScoredCandidate) (ScoredCandidate, error) {
	shortlist := e.industryShortlist(analysis)
	if len(shortlist) == 0 {
		return ScoredCandidate{}, &AIError{Stage: StageIndustry, Kind: KindNoCandidates, Err: errors.New("no 5-digit industry rows")}
	}
	c := selectionCompletion
	c.system = industrySystemPrompt
	out, err := s.complete(ctx, StageIndustry, c, industryPrompt(company, analysis, occupation, shortlist))
	if err != nil {
		return ScoredCandidate{}, err
	}
	row, err := validateCode(StageIndustry, out, e.ssic)
	if err != nil {
		return ScoredCandidate{}, err
	}
	return ScoredCandidate{Code: row.Code, Title: row.Title, Score: e.weights.AIConfidence}, nil
}

// validateCode keeps the digits of a model answer, takes the first five and
// requires a 5-digit code present in the table.
func validateCode(stage, answer string, tbl *taxonomy.Table) (taxonomy.Row, error) {
	var digits strings.Builder
	for _, r := range answer {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			digits.WriteRune(r)
			if digits.Len() == 5 {
				break
			}
		}
	}
	code := digits.String()
	if len(code) != 5 {
		return taxonomy.Row{}, &AIError{Stage: stage, Kind: KindInvalidCode, Err: fmt.Errorf("answer %q has no 5-digit code", answer)}
	}
	row, ok := tbl.Lookup(code)
	if !ok {
		return taxonomy.Row{}, &AIError{Stage: stage, Kind: KindUnknownCode, Err: fmt.Errorf("code %s not in %s table", code, tbl.Name())}
	}
	return row, nil
}
