package textsim

// synonymGroup ties a root term to words that signal the same domain.
type synonymGroup struct {
	root     string
	synonyms []string
}

// Technology roots first, then business roots. The order is fixed so that
// scoring iterates the table deterministically.
var domainSynonyms = []synonymGroup{
	{"software", []string{"application", "program", "system", "platform", "solution"}},
	{"development", []string{"programming", "coding", "engineering", "building"}},
	{"data", []string{"information", "analytics", "intelligence", "statistics"}},
	{"digital", []string{"electronic", "online", "technology", "cyber"}},
	{"web", []string{"internet", "online", "website", "portal"}},
	{"mobile", []string{"smartphone", "app", "cellular", "wireless"}},
	{"cloud", []string{"distributed", "remote", "virtual", "hosted"}},
	{"ai", []string{"artificial intelligence", "machine learning", "automation"}},
	{"management", []string{"administration", "supervision", "leadership", "oversight"}},
	{"consulting", []string{"advisory", "guidance", "expertise", "professional services"}},
	{"sales", []string{"marketing", "business development", "revenue", "commercial"}},
	{"finance", []string{"financial", "banking", "investment", "monetary"}},
	{"operations", []string{"production", "manufacturing", "processing", "workflow"}},
}

// SynonymScore is a coarse term-association score between two texts. Every
// identical word pair adds 0.1; every other pair adds 0.08 for each synonym
// group that links them. The sum is clamped to 1.
func SynonymScore(a, b string) float64 {
	return synonymScore(Words(a), Words(b))
}

func synonymScore(wa, wb []string) float64 {
	score := 0.0
	for _, x := range wa {
		for _, y := range wb {
			if x == y {
				score += 0.1
				continue
			}
			for _, g := range domainSynonyms {
				if g.links(x, y) {
					score += 0.08
				}
			}
		}
	}
	return Clamp01(score)
}

// links reports whether x and y are associated through g: both are synonyms
// of the root, or one of them is the root and the other a synonym.
func (g synonymGroup) links(x, y string) bool {
	xs, ys := g.has(x), g.has(y)
	switch {
	case xs && ys:
		return true
	case x == g.root && ys:
		return true
	case y == g.root && xs:
		return true
	}
	return false
}

func (g synonymGroup) has(w string) bool {
	for _, s := range g.synonyms {
		if s == w {
			return true
		}
	}
	return false
}
