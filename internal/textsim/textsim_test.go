package textsim

import (
	"math"
	"reflect"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestWordsSortedUniqueAndNormalized(t *testing.T) {
	got := Words("B a  b\tＡＢＣ")
	want := []string{"a", "abc", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Words got %v, want %v", got, want)
	}
	if Words("   ") != nil {
		t.Fatal("expected nil for blank input")
	}
}

func TestSimilarityScore(t *testing.T) {
	if got := SimilarityScore("Software Developer", "software developer"); !almostEqual(got, 1) {
		t.Fatalf("identical strings should score 1, got %v", got)
	}
	if got := SimilarityScore("", "abc"); got != 0 {
		t.Fatalf("empty side should fall back to sequence ratio 0, got %v", got)
	}
	a := SimilarityScore("software developer", "web developer")
	b := SimilarityScore("software developer", "nurse")
	if a <= b {
		t.Fatalf("expected shared word to score higher: %v <= %v", a, b)
	}
}

func TestJaccard(t *testing.T) {
	if got := Jaccard([]string{"a", "b"}, []string{"b", "c"}); !almostEqual(got, 1.0/3.0) {
		t.Fatalf("Jaccard got %v", got)
	}
	if got := Jaccard(nil, nil); got != 0 {
		t.Fatalf("Jaccard of empty sets got %v", got)
	}
}

func TestEnhancedTextMatch(t *testing.T) {
	got := EnhancedTextMatch("software development", "development of software and applications")
	// exact 2/2*0.5 + partial 2/2*0.3 + synonym 0.2*0.2
	if !almostEqual(got, 0.84) {
		t.Fatalf("EnhancedTextMatch got %v, want 0.84", got)
	}
	if EnhancedTextMatch("", "anything") != 0 || EnhancedTextMatch("anything", "") != 0 {
		t.Fatal("expected 0 when either side is empty")
	}
}

func TestEnhancedTextMatchPartialRequiresFourCharacters(t *testing.T) {
	// "tax" is too short to count as a partial match of "taxation".
	if got := EnhancedTextMatch("tax", "taxation"); got != 0 {
		t.Fatalf("expected no partial credit for short words, got %v", got)
	}
	// "bank" is contained in "banking".
	if got := EnhancedTextMatch("bank", "banking"); !almostEqual(got, 0.3) {
		t.Fatalf("expected partial credit 0.3, got %v", got)
	}
}

func TestMatchWordsCountsRunesNotBytes(t *testing.T) {
	// Two runes, six bytes.
	if got := MatchWords([]string{"软件"}, []string{"软件开发"}); got != 0 {
		t.Fatalf("expected no partial credit for a two-rune word, got %v", got)
	}
	if got := MatchWords([]string{"数据分析"}, []string{"数据分析师"}); !almostEqual(got, 0.3) {
		t.Fatalf("expected partial credit 0.3 for a four-rune word, got %v", got)
	}
}

func TestSynonymScore(t *testing.T) {
	if got := SynonymScore("software", "platform"); !almostEqual(got, 0.08) {
		t.Fatalf("root/synonym pair got %v", got)
	}
	if got := SynonymScore("data analytics", "information"); !almostEqual(got, 0.16) {
		t.Fatalf("expected two links, got %v", got)
	}
	if got := SynonymScore("platform", "software"); !almostEqual(got, 0.08) {
		t.Fatalf("score should be symmetric, got %v", got)
	}
	words := "a b c d e f g h i j k l"
	if got := SynonymScore(words, words); got != 1 {
		t.Fatalf("expected clamp to 1, got %v", got)
	}
}

func TestExtractKeywordsLongestFirst(t *testing.T) {
	got := OccupationKeywords("Senior Recruiter")
	want := []string{"senior recruiter", "recruiter"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got = ExtractKeywords("banking and banking", []string{"bank", "banking"})
	want = []string{"banking", "bank"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestIndustryKeywords(t *testing.T) {
	got := IndustryKeywords("BANKING")
	if !reflect.DeepEqual(got, []string{"banking"}) {
		t.Fatalf("got %v", got)
	}
}

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		target   string
		want     float64
	}{
		{"none", nil, "central banking", 0},
		{"exact", []string{"banking"}, "Central Banking", 1},
		{"root", []string{"logistics"}, "logistic services", 0.7},
		{"mixed", []string{"banking", "logistics"}, "central banking and logistic hubs", 0.85},
		{"short root ignored", []string{"web"}, "weather", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KeywordScore(tc.keywords, tc.target); !almostEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(-1) != 0 || Clamp01(2) != 1 || Clamp01(0.5) != 0.5 {
		t.Fatal("Clamp01 out of range")
	}
}
