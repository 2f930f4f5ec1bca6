package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// TierBonus is the flat bonus added to a row's combined score during one scan
// tier. Bonus applies when the primary or secondary signal clears its
// threshold; otherwise KeywordBonus applies when the keyword signal clears
// KeywordThreshold.
type TierBonus struct {
	Bonus              float64 `json:"bonus"`
	PrimaryThreshold   float64 `json:"primary_threshold"`
	SecondaryThreshold float64 `json:"secondary_threshold"`
	KeywordBonus       float64 `json:"keyword_bonus,omitempty"`
	KeywordThreshold   float64 `json:"keyword_threshold,omitempty"`
}

func (b TierBonus) apply(primary, secondary, keyword float64) float64 {
	switch {
	case primary > b.PrimaryThreshold || secondary > b.SecondaryThreshold:
		return b.Bonus
	case b.KeywordBonus > 0 && keyword > b.KeywordThreshold:
		return b.KeywordBonus
	}
	return 0
}

// IndustryWeights: primary signal is text similarity, secondary is keyword.
type IndustryWeights struct {
	Text    float64 `json:"text"`
	Keyword float64 `json:"keyword"`
	Pattern float64 `json:"pattern"`

	ConditionedText    float64 `json:"conditioned_text"`
	ConditionedKeyword float64 `json:"conditioned_keyword"`
	ConditionedPattern float64 `json:"conditioned_pattern"`
	Compatibility      float64 `json:"compatibility"`

	Fine       TierBonus `json:"fine"`
	Coarse     TierBonus `json:"coarse"`
	FinalBoost float64   `json:"final_boost"`
}

// OccupationWeights: primary signal is title similarity, secondary is the
// job-title match.
type OccupationWeights struct {
	Title       float64 `json:"title"`
	Description float64 `json:"description"`
	Keyword     float64 `json:"keyword"`
	JobMatch    float64 `json:"job_match"`

	Fine       TierBonus `json:"fine"`
	Coarse     TierBonus `json:"coarse"`
	FinalBoost float64   `json:"final_boost"`
}

type Weights struct {
	Industry   IndustryWeights   `json:"industry"`
	Occupation OccupationWeights `json:"occupation"`

	// FallbackThreshold triggers the 4-digit scan when the 5-digit best is below it.
	FallbackThreshold float64 `json:"fallback_threshold"`
	// BoostThreshold gates the final multiplicative boost.
	BoostThreshold     float64 `json:"boost_threshold"`
	SentinelConfidence float64 `json:"sentinel_confidence"`
	AIConfidence       float64 `json:"ai_confidence"`
	ShortlistSize      int     `json:"shortlist_size"`
}

func DefaultWeights() Weights {
	return Weights{
		Industry: IndustryWeights{
			Text:               0.4,
			Keyword:            0.4,
			Pattern:            0.2,
			ConditionedText:    0.3,
			ConditionedKeyword: 0.3,
			ConditionedPattern: 0.2,
			Compatibility:      0.2,
			Fine:               TierBonus{Bonus: 0.2, PrimaryThreshold: 0.7, SecondaryThreshold: 0.8},
			Coarse:             TierBonus{Bonus: 0.15, PrimaryThreshold: 0.6, SecondaryThreshold: 0.7},
			FinalBoost:         1.2,
		},
		Occupation: OccupationWeights{
			Title:       0.35,
			Description: 0.15,
			Keyword:     0.25,
			JobMatch:    0.25,
			Fine:        TierBonus{Bonus: 0.25, PrimaryThreshold: 0.7, SecondaryThreshold: 0.8, KeywordBonus: 0.15, KeywordThreshold: 0.7},
			Coarse:      TierBonus{Bonus: 0.2, PrimaryThreshold: 0.6, SecondaryThreshold: 0.7, KeywordBonus: 0.1, KeywordThreshold: 0.6},
			FinalBoost:  1.25,
		},
		FallbackThreshold:  0.4,
		BoostThreshold:     0.5,
		SentinelConfidence: 0.2,
		AIConfidence:       0.9,
		ShortlistSize:      15,
	}
}

// LoadWeights reads a JSON file over DefaultWeights, so a file only needs the
// fields it changes.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	blob, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read weights: %w", err)
	}
	if err := json.Unmarshal(blob, &w); err != nil {
		return w, fmt.Errorf("parse weights %s: %w", path, err)
	}
	if err := w.Validate(); err != nil {
		return w, fmt.Errorf("weights %s: %w", path, err)
	}
	return w, nil
}

func (w Weights) Validate() error {
	var errs []error
	nonNeg := map[string]float64{
		"industry.text":                w.Industry.Text,
		"industry.keyword":             w.Industry.Keyword,
		"industry.pattern":             w.Industry.Pattern,
		"industry.conditioned_text":    w.Industry.ConditionedText,
		"industry.conditioned_keyword": w.Industry.ConditionedKeyword,
		"industry.conditioned_pattern": w.Industry.ConditionedPattern,
		"industry.compatibility":       w.Industry.Compatibility,
		"occupation.title":             w.Occupation.Title,
		"occupation.description":       w.Occupation.Description,
		"occupation.keyword":           w.Occupation.Keyword,
		"occupation.job_match":         w.Occupation.JobMatch,
	}
	for _, name := range sortedKeys(nonNeg) {
		if nonNeg[name] < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if w.Industry.FinalBoost < 1 || w.Occupation.FinalBoost < 1 {
		errs = append(errs, errors.New("final_boost must be at least 1"))
	}
	if w.SentinelConfidence < 0 || w.SentinelConfidence > 1 || w.AIConfidence < 0 || w.AIConfidence > 1 {
		errs = append(errs, errors.New("sentinel_confidence and ai_confidence must be in [0,1]"))
	}
	if w.ShortlistSize <= 0 {
		errs = append(errs, errors.New("shortlist_size must be positive"))
	}
	return errors.Join(errs...)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
