package classify

import (
	"github.com/joelkehle/ssfinder/internal/taxonomy"
	"github.com/joelkehle/ssfinder/internal/textsim"
)

// preparedRow caches the normalized title and word set of a taxonomy row.
type preparedRow struct {
	taxonomy.Row
	lower  string
	words  []string
	senior bool
}

func prepareRows(rows []taxonomy.Row) []preparedRow {
	out := make([]preparedRow, len(rows))
	for i, r := range rows {
		lower := textsim.Normalize(r.Title)
		out[i] = preparedRow{Row: r, lower: lower, words: textsim.Words(lower), senior: hasSeniority(lower)}
	}
	return out
}

func (r preparedRow) candidate(score float64) ScoredCandidate {
	return ScoredCandidate{Code: r.Code, Title: r.Title, Score: score}
}

// industryQuery holds the per-query inputs to industry scoring. An empty
// occupation selects the unconditioned weights.
type industryQuery struct {
	words      []string
	keywords   []string
	patterns   []companyPattern
	occupation string
}

func newIndustryQuery(search, patternSource, occupationCode string) *industryQuery {
	if IsSentinel(occupationCode) {
		occupationCode = ""
	}
	return &industryQuery{
		words:      textsim.Words(search),
		keywords:   textsim.IndustryKeywords(search),
		patterns:   matchCompanyPatterns(textsim.Normalize(patternSource)),
		occupation: occupationCode,
	}
}

type industrySignals struct {
	text, keyword, pattern, compat float64
}

// lexical reports whether the row matched the query text at all. The
// compatibility bonus alone never selects a row.
func (s industrySignals) lexical() bool {
	return s.text > 0 || s.keyword > 0 || s.pattern > 0
}

func (q *industryQuery) signals(r preparedRow) industrySignals {
	s := industrySignals{
		text:    textsim.MatchWords(q.words, r.words),
		keyword: textsim.KeywordScore(q.keywords, r.lower),
		pattern: companyPatternScore(q.patterns, r.lower),
	}
	if q.occupation != "" {
		s.compat = Compatibility(r.Code, q.occupation)
	}
	return s
}

// raw is the weighted sum without tier bonus, clamped.
func (w IndustryWeights) raw(s industrySignals, conditioned bool) float64 {
	if conditioned {
		return textsim.Clamp01(s.text*w.ConditionedText + s.keyword*w.ConditionedKeyword +
			s.pattern*w.ConditionedPattern + s.compat*w.Compatibility)
	}
	return textsim.Clamp01(s.text*w.Text + s.keyword*w.Keyword + s.pattern*w.Pattern)
}

func (w IndustryWeights) score(s industrySignals, conditioned bool, bonus TierBonus) float64 {
	if !s.lexical() {
		return 0
	}
	return textsim.Clamp01(w.raw(s, conditioned) + bonus.apply(s.text, s.keyword, s.keyword))
}

type occupationQuery struct {
	titleWords []string
	descWords  []string
	keywords   []string
	senior     bool
}

func newOccupationQuery(q Query) *occupationQuery {
	search := q.Company + " " + q.JobTitle + " " + q.JobDescription
	return &occupationQuery{
		titleWords: textsim.Words(q.JobTitle),
		descWords:  textsim.Words(q.JobDescription),
		keywords:   textsim.OccupationKeywords(search),
		senior:     hasSeniority(textsim.Normalize(q.JobTitle)),
	}
}

type occupationSignals struct {
	title, description, keyword, jobMatch float64
	// overlap is the title word overlap inside jobMatch, before seniority.
	overlap float64
}

func (q *occupationQuery) signals(r preparedRow) occupationSignals {
	s := occupationSignals{
		title:       textsim.MatchWords(q.titleWords, r.words),
		description: textsim.MatchWords(q.descWords, r.words),
		keyword:     textsim.KeywordScore(q.keywords, r.lower),
		overlap:     titleOverlap(q.titleWords, r.words),
	}
	if len(q.titleWords) > 0 || len(r.words) > 0 {
		s.jobMatch = withSeniority(s.overlap, q.senior, r.senior)
	}
	return s
}

// lexical reports whether any word of the query matched the row. Seniority
// agreement alone never selects a row.
func (s occupationSignals) lexical() bool {
	return s.title > 0 || s.description > 0 || s.keyword > 0 || s.overlap > 0
}

func (w OccupationWeights) raw(s occupationSignals) float64 {
	return textsim.Clamp01(s.title*w.Title + s.description*w.Description + s.keyword*w.Keyword + s.jobMatch*w.JobMatch)
}

func (w OccupationWeights) score(s occupationSignals, bonus TierBonus) float64 {
	if !s.lexical() {
		return 0
	}
	return textsim.Clamp01(w.raw(s) + bonus.apply(s.title, s.jobMatch, s.keyword))
}
