package classify

import "strings"

type compatRule struct {
	occupationPrefixes []string
	score              float64
}

var (
	manufacturingRule = compatRule{[]string{"214", "215", "311", "312", "121"}, 0.7}
	financeRule       = compatRule{[]string{"241", "121", "122", "131"}, 0.8}
)

// compatRules is keyed by industry code prefix. Compatibility consults the
// longest matching prefix first.
var compatRules = map[string]compatRule{
	"62":  {[]string{"251", "252", "121", "132", "242"}, 0.8},
	"64":  financeRule,
	"66":  financeRule,
	"841": {[]string{"111", "112", "121", "242", "251"}, 0.9},
	"861": {[]string{"221", "222", "321", "322"}, 0.9},
	"1":   manufacturingRule,
	"2":   manufacturingRule,
	"3":   manufacturingRule,
	"70":  {[]string{"242", "121", "122"}, 0.8},
	"47":  {[]string{"333", "334", "121", "132"}, 0.7},
}

// Compatibility scores how plausibly an occupation is found in an industry.
// It is a scoring bonus only and never excludes a pair.
func Compatibility(industryCode, occupationCode string) float64 {
	if industryCode == "" || occupationCode == "" {
		return 0
	}
	occPrefix := occupationCode
	if len(occPrefix) > 3 {
		occPrefix = occPrefix[:3]
	}
	for n := 3; n >= 1; n-- {
		if len(industryCode) < n {
			continue
		}
		rule, ok := compatRules[industryCode[:n]]
		if !ok {
			continue
		}
		for _, p := range rule.occupationPrefixes {
			if strings.HasPrefix(occPrefix, p) {
				return rule.score
			}
		}
		break
	}
	if strings.HasPrefix(industryCode, "841") && hasAnyPrefix(occupationCode, "11", "24", "25") {
		return 0.9
	}
	if hasAnyPrefix(occupationCode, "11", "12") {
		return 0.5
	}
	return 0
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
