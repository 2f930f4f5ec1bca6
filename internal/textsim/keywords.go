package textsim

import (
	"sort"
	"strings"
)

// IndustryVocabulary lists sector and business-activity terms looked for in
// company and description text.
var IndustryVocabulary = []string{
	// technology
	"technology", "tech", "software", "it", "information technology", "digital", "cyber", "cybersecurity",
	"programming", "development", "web", "mobile", "cloud", "ai", "artificial intelligence", "machine learning",
	"data", "analytics", "blockchain", "fintech", "saas", "platform", "api", "database",
	// manufacturing
	"manufacturing", "production", "factory", "assembly", "industrial", "automotive", "electronics",
	"machinery", "equipment", "processing", "packaging", "quality control", "supply chain",
	// finance
	"finance", "financial", "banking", "insurance", "investment", "wealth management", "accounting",
	"audit", "compliance", "risk", "trading", "fund", "capital", "securities",
	// healthcare
	"healthcare", "medical", "hospital", "clinic", "pharmaceutical", "biotech", "nursing",
	"therapy", "treatment", "patient", "clinical", "diagnostic", "surgery", "medicine",
	// education
	"education", "school", "university", "training", "teaching", "learning", "academic",
	"curriculum", "instruction", "research", "student", "faculty", "tuition",
	// retail
	"retail", "sales", "shop", "store", "commerce", "ecommerce", "shopping", "customer",
	"merchandise", "inventory", "outlet", "chain", "franchise", "marketplace",
	// construction and real estate
	"construction", "building", "engineering", "architecture", "real estate", "property",
	"infrastructure", "civil", "structural", "contractor",
	// logistics
	"logistics", "transport", "shipping", "delivery", "freight", "warehouse", "distribution",
	"courier", "trucking", "maritime", "aviation", "rail",
	// hospitality
	"hospitality", "hotel", "restaurant", "food", "tourism", "catering", "beverage",
	"accommodation", "travel", "resort", "dining", "culinary",
	// media and communications
	"telecommunications", "telecom", "communications", "media", "broadcasting", "publishing",
	"advertising", "marketing", "public relations", "journalism", "content",
	// other sectors
	"agriculture", "farming", "agricultural", "government", "public", "civil service",
	"consulting", "advisory", "professional services", "legal", "law",
	"energy", "utilities", "power", "oil", "gas", "renewable", "sustainability",
	"laboratory", "scientific", "innovation",
}

// OccupationVocabulary lists job-role phrases. Compound phrases must win over
// their suffixes, which ExtractKeywords guarantees by testing longer entries first.
var OccupationVocabulary = []string{
	// technology
	"software engineer", "software developer", "web developer", "mobile developer", "full stack developer",
	"frontend developer", "backend developer", "devops engineer", "cloud engineer", "system engineer",
	"data scientist", "data analyst", "data engineer", "machine learning engineer", "ai engineer",
	"product manager", "technical product manager", "scrum master", "agile coach",
	"ui designer", "ux designer", "product designer", "graphic designer", "web designer",
	"system administrator", "database administrator", "network administrator", "security engineer",
	"cybersecurity analyst", "information security", "technical writer", "qa engineer", "test engineer",
	// management
	"chief executive officer", "ceo", "managing director", "general manager", "country manager",
	"vice president", "vp", "director", "senior director", "associate director",
	"department head", "team lead", "team leader", "project manager", "program manager",
	"operations manager", "business manager", "relationship manager", "account manager",
	// finance and accounting
	"financial analyst", "investment analyst", "credit analyst", "risk analyst", "business analyst",
	"financial advisor", "wealth manager", "portfolio manager", "fund manager",
	"accountant", "senior accountant", "accounting manager", "finance manager", "cfo",
	"auditor", "internal auditor", "external auditor", "compliance officer", "risk manager",
	"treasury analyst", "budget analyst", "cost analyst", "tax specialist",
	// sales and marketing
	"sales manager", "sales director", "sales representative", "account executive",
	"business development manager", "business development", "partnership manager",
	"marketing manager", "digital marketing manager", "brand manager", "product marketing",
	"marketing director", "communications manager", "public relations", "content manager",
	"social media manager", "seo specialist", "digital marketing specialist",
	// human resources
	"hr manager", "human resources manager", "hr director", "hr business partner",
	"recruiter", "senior recruiter", "talent acquisition", "recruitment consultant",
	"hr generalist", "hr specialist", "compensation analyst", "benefits administrator",
	"learning and development", "training manager", "organizational development",
	// operations and production
	"operations director", "supply chain manager", "logistics manager",
	"warehouse manager", "production manager", "manufacturing manager", "plant manager",
	"quality manager", "quality assurance", "quality control", "process engineer",
	"industrial engineer", "manufacturing engineer", "production supervisor",
	// consulting
	"consultant", "senior consultant", "principal consultant", "management consultant",
	"strategy consultant", "business consultant", "it consultant", "financial consultant",
	"advisory", "advisor", "senior advisor", "subject matter expert", "specialist",
	// healthcare
	"doctor", "physician", "medical doctor", "surgeon", "specialist doctor",
	"nurse", "registered nurse", "senior nurse", "nurse manager", "nursing supervisor",
	"pharmacist", "clinical pharmacist", "hospital pharmacist", "medical technician",
	"radiologist", "pathologist", "anesthesiologist", "cardiologist", "neurologist",
	"physical therapist", "occupational therapist", "medical assistant",
	// education
	"teacher", "senior teacher", "principal", "vice principal", "head of department",
	"professor", "associate professor", "assistant professor", "lecturer", "instructor",
	"trainer", "corporate trainer", "training specialist", "curriculum developer",
	"education consultant", "academic advisor", "student counselor", "librarian",
	// legal
	"lawyer", "senior lawyer", "legal counsel", "general counsel", "legal advisor",
	"paralegal", "legal assistant", "regulatory affairs",
	"contract manager", "legal manager", "litigation lawyer", "corporate lawyer",
	// administrative and support
	"executive assistant", "administrative assistant", "personal assistant", "secretary",
	"office manager", "administrative coordinator", "data entry", "clerk",
	"receptionist", "customer service representative", "call center agent",
	"help desk", "technical support", "customer support specialist",
	// creative
	"creative director", "art director", "visual designer",
	"multimedia designer", "video editor", "photographer", "videographer",
	"copywriter", "content writer", "editor", "proofreader",
	"animator", "illustrator", "game designer", "3d artist",
	// engineering
	"mechanical engineer", "electrical engineer", "civil engineer", "chemical engineer",
	"biomedical engineer", "aerospace engineer", "environmental engineer",
	"structural engineer", "design engineer", "project engineer", "site engineer",
	"technician", "senior technician", "engineering technician", "lab technician",
	"maintenance technician", "field technician", "service technician",
}

var (
	industryByLength   = longestFirst(IndustryVocabulary)
	occupationByLength = longestFirst(OccupationVocabulary)
)

func longestFirst(vocab []string) []string {
	out := append([]string(nil), vocab...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// ExtractKeywords returns the vocabulary entries contained in text. Entries
// are tested longest first and each appears at most once, in discovery order.
func ExtractKeywords(text string, vocab []string) []string {
	return extract(Normalize(text), longestFirst(vocab))
}

// IndustryKeywords is ExtractKeywords over IndustryVocabulary.
func IndustryKeywords(text string) []string {
	return extract(Normalize(text), industryByLength)
}

// OccupationKeywords is ExtractKeywords over OccupationVocabulary.
func OccupationKeywords(text string) []string {
	return extract(Normalize(text), occupationByLength)
}

func extract(lower string, ordered []string) []string {
	var found []string
	seen := make(map[string]bool, 8)
	for _, kw := range ordered {
		if seen[kw] || !strings.Contains(lower, kw) {
			continue
		}
		seen[kw] = true
		found = append(found, kw)
	}
	return found
}

// KeywordScore measures how many keywords occur in target. An exact substring
// counts 1.0; otherwise a root of the keyword (its first max(4, len-2)
// characters, at least four long) counts 0.7. The mean is clamped to 1.
func KeywordScore(keywords []string, target string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := Normalize(target)
	exact, partial := 0, 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			exact++
			continue
		}
		if root := keywordRoot(kw); len(root) >= 4 && strings.Contains(lower, root) {
			partial++
		}
	}
	return Clamp01((float64(exact) + float64(partial)*0.7) / float64(len(keywords)))
}

func keywordRoot(kw string) string {
	n := len(kw) - 2
	if n < 4 {
		n = 4
	}
	if n > len(kw) {
		n = len(kw)
	}
	return kw[:n]
}
