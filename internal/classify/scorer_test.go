package classify

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/joelkehle/ssfinder/internal/taxonomy"
	"github.com/joelkehle/ssfinder/internal/textsim"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCompatibility(t *testing.T) {
	for _, tc := range []struct {
		industry, occupation string
		want                 float64
	}{
		{"62011", "25121", 0.8},
		{"64191", "24131", 0.8},
		{"66121", "12211", 0.8},
		{"84110", "11101", 0.9},
		// 241 is not listed for 841, the government special case applies.
		{"84110", "24131", 0.9},
		{"86101", "22200", 0.9},
		{"10101", "21411", 0.7},
		{"47110", "12122", 0.7},
		{"70201", "24211", 0.8},
		{"01111", "12122", 0.5},
		{"01111", "13101", 0},
		{"62011", "22200", 0},
		{"", "25121", 0},
		{"62011", "", 0},
	} {
		if got := Compatibility(tc.industry, tc.occupation); got != tc.want {
			t.Fatalf("Compatibility(%s, %s)=%v want %v", tc.industry, tc.occupation, got, tc.want)
		}
	}
}

func TestCompanyPatternScore(t *testing.T) {
	bank := matchCompanyPatterns("dbs bank")
	if len(bank) != 1 || bank[0].label != "financial" {
		t.Fatalf("unexpected groups: %+v", bank)
	}
	if got := companyPatternScore(bank, "central banking"); got != 0.5 {
		t.Fatalf("pattern overlap got %v", got)
	}
	if got := companyPatternScore(bank, "other financial service activities"); got != 0.8 {
		t.Fatalf("label match got %v", got)
	}
	both := matchCompanyPatterns("tech bank")
	if got := companyPatternScore(both, "financial technology services"); got != 1 {
		t.Fatalf("expected clamp to 1, got %v", got)
	}
	if got := companyPatternScore(matchCompanyPatterns("google"), "central banking"); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestJobTitleMatch(t *testing.T) {
	got := jobTitleMatch(textsim.Words("Software Engineer"), textsim.Words("Software developer"), false, false)
	if got != 1 {
		t.Fatalf("synonym title match got %v", got)
	}
	got = jobTitleMatch(textsim.Words("Staff Nurse"), textsim.Words("Registered nurse"), false, false)
	if !approx(got, 1.0/3.0+0.2+0.1) {
		t.Fatalf("partial title match got %v", got)
	}
	got = jobTitleMatch(textsim.Words("Senior Accountant"), textsim.Words("Accountant"), true, false)
	if !approx(got, 0.7) {
		t.Fatalf("seniority mismatch got %v", got)
	}
	if got := jobTitleMatch(nil, nil, false, false); got != 0 {
		t.Fatalf("empty titles got %v", got)
	}
	// Two runes is below the containment minimum even though it is six bytes.
	got = jobTitleMatch([]string{"软件"}, []string{"软件开发"}, false, false)
	if !approx(got, 0.1) {
		t.Fatalf("short multibyte word got containment credit: %v", got)
	}
}

func TestScoreRequiresWordMatch(t *testing.T) {
	occRow := prepareRows([]taxonomy.Row{{Code: "25121", Title: "Software developer"}})[0]
	ow := DefaultWeights().Occupation
	for _, q := range []Query{{}, {Company: "   ", JobTitle: " "}, {JobTitle: "Qqq"}} {
		s := newOccupationQuery(q).signals(occRow)
		if s.jobMatch == 0 {
			t.Fatalf("%+v: expected seniority agreement in jobMatch", q)
		}
		if got := ow.score(s, ow.Fine); got != 0 {
			t.Fatalf("%+v: occupation scored %v without a word match", q, got)
		}
	}

	indRow := prepareRows([]taxonomy.Row{{Code: "62011", Title: "Development of software and applications"}})[0]
	iw := DefaultWeights().Industry
	s := newIndustryQuery("   ", "   ", "25121").signals(indRow)
	if s.compat == 0 {
		t.Fatal("expected a compatibility signal")
	}
	if got := iw.score(s, true, iw.Fine); got != 0 {
		t.Fatalf("compatibility alone scored %v", got)
	}
}

func TestTierBonus(t *testing.T) {
	w := DefaultWeights().Occupation
	if got := w.Fine.apply(0.71, 0, 0); got != 0.25 {
		t.Fatalf("primary threshold got %v", got)
	}
	if got := w.Fine.apply(0, 0.81, 0); got != 0.25 {
		t.Fatalf("secondary threshold got %v", got)
	}
	if got := w.Fine.apply(0.7, 0.8, 0.71); got != 0.15 {
		t.Fatalf("keyword bonus got %v", got)
	}
	if got := w.Coarse.apply(0.61, 0, 0); got != 0.2 {
		t.Fatalf("coarse bonus got %v", got)
	}
	if got := DefaultWeights().Industry.Coarse.apply(0.5, 0.71, 0.71); got != 0.15 {
		t.Fatalf("industry coarse bonus got %v", got)
	}
}

func TestIndustryScoreMonotonic(t *testing.T) {
	row := prepareRows([]taxonomy.Row{{Code: "64110", Title: "Central banking"}})[0]
	w := DefaultWeights().Industry
	overlap := newIndustryQuery("Acme central banking operations", "Acme", "")
	none := newIndustryQuery("Acme bakery cakes", "Acme", "")
	a := w.score(overlap.signals(row), false, w.Fine)
	b := w.score(none.signals(row), false, w.Fine)
	if a < b || a == 0 {
		t.Fatalf("exact title substring scored %v, unrelated text %v", a, b)
	}
}

func TestIndustryQueryIgnoresSentinelOccupation(t *testing.T) {
	if q := newIndustryQuery("x", "x", OccupationFallbackCode); q.occupation != "" {
		t.Fatalf("sentinel occupation leaked into query: %q", q.occupation)
	}
}

func TestMatchIndustryFinalBoost(t *testing.T) {
	e := newTestEngine(t, Config{})
	m := e.MatchIndustry("DBS Bank Analyze market trends and prepare investment reports", "DBS Bank", "24131")
	if m.Best.Code != "64993" {
		t.Fatalf("best=%+v", m.Best)
	}
	if m.RawBest <= 0.5 || !approx(m.Best.Score, math.Min(1, m.RawBest*1.2)) {
		t.Fatalf("raw=%v boosted=%v", m.RawBest, m.Best.Score)
	}
}

func TestShortlists(t *testing.T) {
	w := DefaultWeights()
	w.ShortlistSize = 3
	e := newTestEngine(t, Config{Weights: &w})

	occ := e.occupationShortlist(Query{Company: "Google", JobTitle: "Software Engineer", JobDescription: "Develop web applications"})
	if len(occ) != 3 || occ[0].Code != "25121" {
		t.Fatalf("occupation shortlist=%+v", occ)
	}
	if !sort.SliceIsSorted(occ, func(i, j int) bool { return occ[i].Score > occ[j].Score }) {
		t.Fatalf("shortlist not sorted: %+v", occ)
	}
	// Shortlist scores carry no tier bonus or final boost.
	if occ[0].Score >= 0.8 {
		t.Fatalf("shortlist score looks boosted: %v", occ[0].Score)
	}

	ind := e.industryShortlist("A financial services group providing banking and investment advisory services.")
	if len(ind) != 3 {
		t.Fatalf("industry shortlist=%+v", ind)
	}
	for _, c := range ind {
		if len(c.Code) != 5 {
			t.Fatalf("industry shortlist must hold 5-digit codes: %+v", c)
		}
	}
	if ind[0].Code != "64993" {
		t.Fatalf("industry shortlist top=%+v", ind[0])
	}
}

func TestValidateCode(t *testing.T) {
	tbl := mustTable(t, taxonomy.SSIC, ssicRows)
	for _, tc := range []struct {
		answer string
		code   string
		kind   string
	}{
		{answer: "62011", code: "62011"},
		{answer: "The code is 6-2-0-1-1.", code: "62011"},
		{answer: "6201112", code: "62011"},
		{answer: "6201", kind: KindInvalidCode},
		{answer: "no idea", kind: KindInvalidCode},
		{answer: "٦٢٠١١", kind: KindInvalidCode},
		{answer: "99998", kind: KindUnknownCode},
	} {
		row, err := validateCode(StageIndustry, tc.answer, tbl)
		if tc.kind == "" {
			if err != nil || row.Code != tc.code {
				t.Fatalf("validateCode(%q)=%+v, %v", tc.answer, row, err)
			}
			continue
		}
		var aiErr *AIError
		if !errors.As(err, &aiErr) || aiErr.Kind != tc.kind || aiErr.Stage != StageIndustry {
			t.Fatalf("validateCode(%q) err=%v want kind %s", tc.answer, err, tc.kind)
		}
	}
}

func TestConfidencePercent(t *testing.T) {
	for _, tc := range []struct {
		in, want float64
	}{
		{0.2, 20},
		{0.24850000000000005, 24.9},
		{0.9, 90},
		{1.5, 100},
		{-0.1, 0},
		{math.NaN(), 0},
	} {
		if got := ConfidencePercent(tc.in); got != tc.want {
			t.Fatalf("ConfidencePercent(%v)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoadWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.json")
	if err := os.WriteFile(path, []byte(`{"fallback_threshold":0.3,"industry":{"final_boost":1.1}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if w.FallbackThreshold != 0.3 || w.Industry.FinalBoost != 1.1 {
		t.Fatalf("overrides not applied: %+v", w)
	}
	if w.Industry.Text != 0.4 || w.Occupation.FinalBoost != 1.25 || w.ShortlistSize != 15 {
		t.Fatalf("defaults lost: %+v", w)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"shortlist_size":0,"occupation":{"title":-1}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = LoadWeights(bad)
	if err == nil || !strings.Contains(err.Error(), "occupation.title") || !strings.Contains(err.Error(), "shortlist_size") {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if _, err := LoadWeights(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestQuerySanitizeAndValidate(t *testing.T) {
	q := Query{Company: "  DBS\x00  Bank\t", JobTitle: "Financial\n Analyst", JobDescription: "a\x07b"}.Sanitize()
	if q.Company != "DBS Bank" || q.JobTitle != "Financial Analyst" || q.JobDescription != "ab" {
		t.Fatalf("sanitize: %+v", q)
	}
	if err := (Query{Company: "DBS Bank", JobTitle: "Analyst"}).Validate(); err != nil {
		t.Fatalf("valid query rejected: %v", err)
	}
	err := (Query{Company: " A ", JobTitle: strings.Repeat("t", MaxTitleChars+1)}).Validate()
	if err == nil || !strings.Contains(err.Error(), "company") || !strings.Contains(err.Error(), "job title") {
		t.Fatalf("expected both errors, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	res := Result{
		Industry:   Classification{Code: "62011", Title: "Development of software and applications", Confidence: 24.9},
		Occupation: Classification{Code: OccupationFallbackCode, Title: OccupationFallbackTitle, Confidence: 20},
	}
	s := Summary(res)
	for _, want := range []string{
		"**Industry Classification (SSIC 2025):**",
		"- Code: 62011 (5-digit)",
		"- Confidence: 24.9%",
		"- Code: X5000 (fallback)",
		"- Confidence: 20.0%",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "Company Analysis") {
		t.Fatal("lexical summary must not show a company analysis block")
	}

	res.CompanyAnalysis = "Acme builds software."
	s = Summary(res)
	if !strings.HasPrefix(s, "**Company Analysis:**\nAcme builds software.") || !strings.Contains(s, "**Classification Method:**") {
		t.Fatalf("unexpected summary:\n%s", s)
	}
}
