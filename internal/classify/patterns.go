package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/joelkehle/ssfinder/internal/textsim"
)

// companyPattern maps an industry label to substrings that suggest it when
// found in a company name.
type companyPattern struct {
	label    string
	patterns []string
}

var companyPatterns = []companyPattern{
	{"technology", []string{"tech", "software", "systems", "solutions", "digital", "cyber", "data", "ai", "cloud"}},
	{"consulting", []string{"consulting", "advisory", "professional services", "management"}},
	{"financial", []string{"bank", "finance", "capital", "investment", "wealth", "insurance"}},
	{"healthcare", []string{"health", "medical", "clinic", "hospital", "pharma", "bio"}},
	{"education", []string{"education", "school", "university", "institute", "academy"}},
	{"manufacturing", []string{"manufacturing", "production", "industrial", "factory", "engineering"}},
	{"retail", []string{"retail", "store", "shop", "mart", "supermarket", "mall"}},
	{"logistics", []string{"logistics", "transport", "shipping", "delivery", "supply", "warehouse"}},
	{"construction", []string{"construction", "building", "property", "real estate", "development"}},
	{"government", []string{"government", "ministry", "authority", "agency", "public", "statutory"}},
}

// matchCompanyPatterns returns the pattern groups whose substrings occur in
// the normalized source text, in table order.
func matchCompanyPatterns(source string) []companyPattern {
	var out []companyPattern
	for _, g := range companyPatterns {
		if containsAny(source, g.patterns) {
			out = append(out, g)
		}
	}
	return out
}

// companyPatternScore sums, per matched group, 0.8 when the row title names
// the group's label and 0.5 when it only contains one of its patterns.
func companyPatternScore(matched []companyPattern, title string) float64 {
	score := 0.0
	for _, g := range matched {
		switch {
		case strings.Contains(title, g.label):
			score += 0.8
		case containsAny(title, g.patterns):
			score += 0.5
		}
	}
	return textsim.Clamp01(score)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// roleSynonyms relates common role words. Lookups go in both directions.
var roleSynonyms = map[string][]string{
	"software engineer":  {"software developer", "programmer", "application developer", "systems developer"},
	"software developer": {"software engineer", "programmer", "application developer", "web developer"},
	"data scientist":     {"data analyst", "data engineer", "business analyst", "research scientist"},
	"data analyst":       {"business analyst", "data scientist", "research analyst", "intelligence analyst"},
	"manager":            {"supervisor", "head", "director", "lead", "team lead", "senior manager"},
	"senior manager":     {"director", "head", "manager", "supervisor", "team lead"},
	"analyst":            {"specialist", "consultant", "associate", "researcher"},
	"specialist":         {"expert", "consultant", "analyst", "advisor"},
	"executive":          {"officer", "coordinator", "administrator", "manager"},
	"assistant":          {"associate", "support", "coordinator", "helper"},
	"designer":           {"creative", "artist", "stylist", "developer"},
	"accountant":         {"financial analyst", "bookkeeper", "finance officer", "auditor"},
	"teacher":            {"educator", "instructor", "trainer", "lecturer", "professor"},
	"engineer":           {"technician", "specialist", "developer", "architect"},
	"developer":          {"engineer", "programmer", "builder", "creator"},
	"consultant":         {"advisor", "specialist", "expert", "counselor"},
	"coordinator":        {"organizer", "administrator", "manager", "supervisor"},
	"technician":         {"specialist", "engineer", "mechanic", "operator"},
}

func rolesRelated(a, b string) bool {
	return listHas(roleSynonyms[a], b) || listHas(roleSynonyms[b], a)
}

func listHas(list []string, w string) bool {
	for _, s := range list {
		if s == w {
			return true
		}
	}
	return false
}

var seniorityMarkers = []string{"junior", "senior", "lead", "principal", "chief", "head"}

func hasSeniority(lower string) bool {
	return containsAny(lower, seniorityMarkers)
}

// jobTitleMatch compares a posting title with a row title: the title overlap
// plus 0.1 when both titles agree on carrying a seniority marker. Clamped to 1.
func jobTitleMatch(jobWords, rowWords []string, jobSenior, rowSenior bool) float64 {
	if len(jobWords) == 0 && len(rowWords) == 0 {
		return 0
	}
	return withSeniority(titleOverlap(jobWords, rowWords), jobSenior, rowSenior)
}

// titleOverlap is the Jaccard overlap of two titles plus 0.4 per role-synonym
// word pair or 0.2 per pair where one word of four or more characters contains
// the other. Not clamped.
func titleOverlap(jobWords, rowWords []string) float64 {
	score := textsim.Jaccard(jobWords, rowWords)
	for _, j := range jobWords {
		for _, r := range rowWords {
			switch {
			case rolesRelated(j, r):
				score += 0.4
			case utf8.RuneCountInString(j) >= 4 && utf8.RuneCountInString(r) >= 4 && (strings.Contains(r, j) || strings.Contains(j, r)):
				score += 0.2
			}
		}
	}
	return score
}

func withSeniority(overlap float64, jobSenior, rowSenior bool) float64 {
	if jobSenior == rowSenior {
		overlap += 0.1
	}
	return textsim.Clamp01(overlap)
}
