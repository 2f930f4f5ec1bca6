// Package classify assigns SSIC industry and SSOC occupation codes to job
// postings. Occupation is decided first, then industry conditioned on it.
// Each axis uses the LLM when a credential is supplied and falls back to the
// lexical two-tier matcher on any AI failure.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/ssfinder/internal/llm"
	"github.com/joelkehle/ssfinder/internal/taxonomy"
	"github.com/joelkehle/ssfinder/internal/textsim"
)

const tracerName = "github.com/joelkehle/ssfinder/internal/classify"

type Config struct {
	// Weights defaults to DefaultWeights.
	Weights *Weights
	// NewCaller builds an LLM caller for a query credential. When nil the AI
	// path is disabled and every query is classified lexically.
	NewCaller func(apiKey string) llm.LLMCaller
	Tracer    trace.Tracer
}

type Engine struct {
	ssic, ssoc *taxonomy.Table

	industryRows      map[int][]preparedRow
	occupationRows    map[int][]preparedRow
	allOccupationRows []preparedRow

	weights   Weights
	newCaller func(apiKey string) llm.LLMCaller
	tracer    trace.Tracer
}

func New(ssic, ssoc *taxonomy.Table, cfg Config) (*Engine, error) {
	if ssic == nil || ssoc == nil {
		return nil, errors.New("classify: both taxonomy tables are required")
	}
	w := DefaultWeights()
	if cfg.Weights != nil {
		w = *cfg.Weights
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Engine{
		ssic: ssic,
		ssoc: ssoc,
		industryRows: map[int][]preparedRow{
			fineTier:   prepareRows(ssic.RowsOfLength(fineTier)),
			coarseTier: prepareRows(ssic.RowsOfLength(coarseTier)),
		},
		occupationRows: map[int][]preparedRow{
			fineTier:   prepareRows(ssoc.RowsOfLength(fineTier)),
			coarseTier: prepareRows(ssoc.RowsOfLength(coarseTier)),
		},
		allOccupationRows: prepareRows(ssoc.Rows()),
		weights:           w,
		newCaller:         cfg.NewCaller,
		tracer:            tracer,
	}, nil
}

func (e *Engine) Weights() Weights { return e.weights }

// Table returns the taxonomy.SSIC or taxonomy.SSOC table.
func (e *Engine) Table(name string) (*taxonomy.Table, error) {
	switch strings.ToLower(name) {
	case taxonomy.SSIC:
		return e.ssic, nil
	case taxonomy.SSOC:
		return e.ssoc, nil
	}
	return nil, fmt.Errorf("unknown taxonomy %q", name)
}

// Classify never fails. AI problems degrade to the lexical path and anything
// worse yields UnknownResult.
func (e *Engine) Classify(ctx context.Context, q Query) Result {
	res, _ := e.run(ctx, q, nil)
	return res
}

func (e *Engine) ClassifyWithTrace(ctx context.Context, q Query) (Result, Trace) {
	return e.run(ctx, q, nil)
}

func (e *Engine) ClassifyWithProgress(ctx context.Context, q Query, progress StageProgressFn) (Result, Trace) {
	return e.run(ctx, q, progress)
}

func (e *Engine) run(ctx context.Context, q Query, progress StageProgressFn) (res Result, tr Trace) {
	ctx, span := e.tracer.Start(ctx, "classify.job", trace.WithAttributes(
		attribute.String("company", q.Company),
		attribute.String("job_title", q.JobTitle),
		attribute.Bool("ai", q.AICredential != "" && e.newCaller != nil),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("classify recovered company=%q title=%q panic=%v", q.Company, q.JobTitle, r)
			span.SetStatus(codes.Error, "recovered")
			res = UnknownResult()
			tr.IndustryPath, tr.OccupationPath = PathSentinel, PathSentinel
			tr.Recovered = fmt.Sprint(r)
		}
	}()

	res, tr, err := e.classify(ctx, q, progress)
	if err != nil {
		log.Printf("classify failed company=%q title=%q err=%v", q.Company, q.JobTitle, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		tr.IndustryPath, tr.OccupationPath = PathSentinel, PathSentinel
		tr.Recovered = err.Error()
		return UnknownResult(), tr
	}
	span.SetAttributes(
		attribute.String("industry.code", res.Industry.Code),
		attribute.String("occupation.code", res.Occupation.Code),
		attribute.Int("ai.calls", tr.AICalls),
	)
	return res, tr
}

func (e *Engine) classify(ctx context.Context, q Query, progress StageProgressFn) (Result, Trace, error) {
	var tr Trace
	var session *aiSession
	if q.AICredential != "" && e.newCaller != nil {
		session = &aiSession{caller: e.newCaller(q.AICredential)}
	}

	analysis := ""
	if session != nil {
		emit(progress, StageCompanyAnalysis, "Generating company analysis...")
		tr.StagesExecuted = append(tr.StagesExecuted, StageCompanyAnalysis)
		sctx, span := e.tracer.Start(ctx, "classify.company_analysis")
		a, err := e.generateAnalysis(sctx, session, q)
		endSpan(span, err)
		if err != nil {
			if !isAIError(err) {
				return Result{}, tr, err
			}
			e.noteFallback(&tr, err)
			tr.AnalysisFailed = true
			log.Printf("classify company analysis unavailable company=%q, industry goes lexical", q.Company)
		} else {
			analysis = a
		}
	}

	emit(progress, StageOccupation, "Classifying occupation...")
	tr.StagesExecuted = append(tr.StagesExecuted, StageOccupation)
	occ, err := e.classifyOccupation(ctx, session, q, &tr)
	if err != nil {
		return Result{}, tr, err
	}

	emit(progress, StageIndustry, "Classifying industry...")
	tr.StagesExecuted = append(tr.StagesExecuted, StageIndustry)
	ind, err := e.classifyIndustry(ctx, session, q, analysis, occ, &tr)
	if err != nil {
		return Result{}, tr, err
	}

	tr.StagesExecuted = append(tr.StagesExecuted, StageAssemble)
	res := Result{
		Industry:        ind.classification(),
		Occupation:      occ.classification(),
		CompanyAnalysis: analysis,
	}
	emit(progress, StageAssemble, fmt.Sprintf("Classified as %s / %s", res.Industry.Code, res.Occupation.Code))
	if session != nil {
		tr.AICalls = session.calls
	}
	return res, tr, nil
}

func (e *Engine) classifyOccupation(ctx context.Context, s *aiSession, q Query, tr *Trace) (ScoredCandidate, error) {
	ctx, span := e.tracer.Start(ctx, "classify.occupation")
	defer span.End()
	if s != nil {
		c, err := e.aiOccupation(ctx, s, q)
		if err == nil {
			tr.OccupationPath = PathAI
			span.SetAttributes(attribute.String("path", PathAI), attribute.String("code", c.Code))
			return c, nil
		}
		if !isAIError(err) {
			return ScoredCandidate{}, err
		}
		span.RecordError(err)
		e.noteFallback(tr, err)
	}
	m := e.MatchOccupation(q)
	tr.OccupationPath = pathOf(m)
	tr.OccupationTiers = m.TiersScanned
	span.SetAttributes(attribute.String("path", tr.OccupationPath), attribute.String("code", m.Best.Code))
	return m.Best, nil
}

func (e *Engine) classifyIndustry(ctx context.Context, s *aiSession, q Query, analysis string, occ ScoredCandidate, tr *Trace) (ScoredCandidate, error) {
	ctx, span := e.tracer.Start(ctx, "classify.industry")
	defer span.End()
	search := q.Company + " " + q.JobDescription
	if s != nil && analysis != "" {
		c, err := e.aiIndustry(ctx, s, q.Company, analysis, occ)
		if err == nil {
			tr.IndustryPath = PathAI
			span.SetAttributes(attribute.String("path", PathAI), attribute.String("code", c.Code))
			return c, nil
		}
		if !isAIError(err) {
			return ScoredCandidate{}, err
		}
		span.RecordError(err)
		e.noteFallback(tr, err)
		search = q.Company + " " + analysis
	}
	m := e.matchFineIndustry(search, q.Company, occ.Code)
	tr.IndustryPath = pathOf(m)
	tr.IndustryTiers = m.TiersScanned
	span.SetAttributes(attribute.String("path", tr.IndustryPath), attribute.String("code", m.Best.Code))
	return m.Best, nil
}

func (e *Engine) noteFallback(tr *Trace, err error) {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		tr.Fallbacks = append(tr.Fallbacks, aiErr.Stage+": "+aiErr.Kind)
		log.Printf("classify ai fallback stage=%s kind=%s err=%v", aiErr.Stage, aiErr.Kind, aiErr.Err)
	}
}

func isAIError(err error) bool {
	var aiErr *AIError
	return errors.As(err, &aiErr)
}

func pathOf(m MatchReport) string {
	if m.Sentinel {
		return PathSentinel
	}
	return PathLexical
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SearchTitles ranks the rows of a taxonomy by similarity between their
// titles and text. Rows with zero similarity are omitted.
func (e *Engine) SearchTitles(taxonomyName, text string, limit int) ([]ScoredCandidate, error) {
	tbl, err := e.Table(taxonomyName)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("search text is required")
	}
	if limit <= 0 {
		limit = 10
	}
	var out []ScoredCandidate
	for _, r := range tbl.Rows() {
		if s := textsim.SimilarityScore(text, r.Title); s > 0 {
			out = append(out, ScoredCandidate{Code: r.Code, Title: r.Title, Score: s})
		}
	}
	return topN(out, limit), nil
}
