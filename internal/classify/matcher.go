package classify

import (
	"sort"

	"github.com/joelkehle/ssfinder/internal/textsim"
)

const (
	fineTier   = 5
	coarseTier = 4
)

// MatchReport is the outcome of a two-tier scan.
type MatchReport struct {
	Best ScoredCandidate
	// RawBest is the winning score before the final boost.
	RawBest      float64
	TiersScanned []int
	Sentinel     bool
}

// twoTier scans the fine tier and, when coarse is set and its best score is
// below the fallback threshold, the coarse tier. A coarse row replaces the
// best only when it scores strictly higher; ties keep the earlier row. Rows
// scoring zero are never selected.
func (e *Engine) twoTier(rows map[int][]preparedRow, coarse bool, score func(r preparedRow, tier int) float64) (ScoredCandidate, []int, bool) {
	var best ScoredCandidate
	found := false
	scan := func(tier int) {
		for _, r := range rows[tier] {
			s := score(r, tier)
			if s > best.Score {
				best = r.candidate(s)
				found = true
			}
		}
	}
	tiers := []int{fineTier}
	scan(fineTier)
	if coarse && best.Score < e.weights.FallbackThreshold {
		tiers = append(tiers, coarseTier)
		scan(coarseTier)
	}
	return best, tiers, found
}

func (e *Engine) finalBoost(score, factor float64) float64 {
	if score > e.weights.BoostThreshold {
		return textsim.Clamp01(score * factor)
	}
	return score
}

// MatchOccupation runs the lexical occupation matcher.
func (e *Engine) MatchOccupation(q Query) MatchReport {
	oq := newOccupationQuery(q)
	w := e.weights.Occupation
	best, tiers, found := e.twoTier(e.occupationRows, true, func(r preparedRow, tier int) float64 {
		bonus := w.Fine
		if tier == coarseTier {
			bonus = w.Coarse
		}
		return w.score(oq.signals(r), bonus)
	})
	if !found {
		return MatchReport{
			Best:         ScoredCandidate{Code: OccupationFallbackCode, Title: OccupationFallbackTitle, Score: e.weights.SentinelConfidence},
			RawBest:      e.weights.SentinelConfidence,
			TiersScanned: tiers,
			Sentinel:     true,
		}
	}
	raw := best.Score
	best.Score = e.finalBoost(raw, w.FinalBoost)
	return MatchReport{Best: best, RawBest: raw, TiersScanned: tiers}
}

// MatchIndustry runs the two-tier lexical industry matcher over search text.
// Company name patterns are read from patternSource. A non-empty,
// non-sentinel occupation code switches to the conditioned weights with the
// compatibility bonus.
func (e *Engine) MatchIndustry(search, patternSource, occupationCode string) MatchReport {
	return e.matchIndustry(search, patternSource, occupationCode, true)
}

// matchFineIndustry is MatchIndustry restricted to 5-digit rows.
func (e *Engine) matchFineIndustry(search, patternSource, occupationCode string) MatchReport {
	return e.matchIndustry(search, patternSource, occupationCode, false)
}

func (e *Engine) matchIndustry(search, patternSource, occupationCode string, coarse bool) MatchReport {
	iq := newIndustryQuery(search, patternSource, occupationCode)
	conditioned := iq.occupation != ""
	w := e.weights.Industry
	best, tiers, found := e.twoTier(e.industryRows, coarse, func(r preparedRow, tier int) float64 {
		bonus := w.Fine
		if tier == coarseTier {
			bonus = w.Coarse
		}
		return w.score(iq.signals(r), conditioned, bonus)
	})
	if !found {
		return MatchReport{
			Best:         ScoredCandidate{Code: IndustryFallbackCode, Title: IndustryFallbackTitle, Score: e.weights.SentinelConfidence},
			RawBest:      e.weights.SentinelConfidence,
			TiersScanned: tiers,
			Sentinel:     true,
		}
	}
	raw := best.Score
	best.Score = e.finalBoost(raw, w.FinalBoost)
	return MatchReport{Best: best, RawBest: raw, TiersScanned: tiers}
}
