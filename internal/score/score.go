// Package score rates job postings against weighted keyword
// categories. The scorer is deterministic and side-effect free so the
// same job can be re-scored without re-fetching.
package score

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jobradar/jobradar/internal/radar"
)

// MaxScore caps the total relevance score.
const MaxScore = 10

type keyword struct {
	phrase string
	weight int
}

// Category keyword tables. Weight 3 phrases identify the role
// directly, weight 2 phrases identify it with some ambiguity, weight 1
// words merely hint at it.
var categoryKeywords = map[string][]keyword{
	"customer_support": {
		{"customer support", 3},
		{"customer service", 3},
		{"customer success", 3},
		{"customer experience", 2},
		{"customer operations", 2},
		{"client services", 2},
		{"customer happiness", 2},
		{"client relations", 2},
		{"customer advocate", 2},
		{"customer onboarding", 2},
		{"customer solutions", 2},
		{"customer", 1},
	},
	"support_roles": {
		{"support specialist", 3},
		{"support representative", 3},
		{"support analyst", 2},
		{"support technician", 2},
		{"customer care", 2},
		{"support", 1},
	},
	"technical_support": {
		{"technical support", 3},
		{"support engineer", 3},
		{"product support", 2},
		{"application support", 2},
		{"it support", 2},
		{"escalation support", 2},
		{"helpdesk technician", 2},
		{"technical account manager", 2},
		{"l1 support", 2},
		{"l2 support", 2},
		{"l3 support", 2},
		{"helpdesk", 1},
	},
	"specialist_roles": {
		{"integration specialist", 3},
		{"onboarding specialist", 3},
		{"implementation engineer", 3},
		{"solutions engineer", 3},
		{"client implementation", 2},
		{"partner solutions", 2},
		{"pre-sales engineer", 2},
		{"account manager", 1},
	},
	"compliance_analysis": {
		{"aml analyst", 3},
		{"compliance analyst", 3},
		{"fraud analyst", 3},
		{"kyc analyst", 3},
		{"financial crime analyst", 3},
		{"transaction monitoring", 2},
		{"compliance operations", 2},
		{"risk compliance officer", 2},
		{"crypto compliance", 2},
		{"edd analyst", 2},
		{"compliance officer", 2},
		{"risk officer", 2},
		{"risk analyst", 2},
		{"compliance", 1},
	},
	"operations": {
		{"operations specialist", 3},
		{"operations analyst", 3},
		{"business operations", 2},
		{"client operations", 2},
		{"operations", 1},
	},
}

// Phrases that veto a posting outright. A development or management
// role matching one of these scores zero everywhere even if it also
// mentions support keywords.
var excludePhrases = []string{
	"software engineer", "software developer", "full stack", "frontend", "backend",
	"devops", "data scientist", "machine learning", "ai engineer", "web developer",
	"mobile developer", "ios developer", "android developer", "ui/ux designer",
	"product manager", "project manager", "scrum master", "engineering manager",
}

type pattern struct {
	re     *regexp.Regexp
	weight int
}

var (
	compileOnce      sync.Once
	categoryPatterns map[string][]pattern
	excludePatterns  []*regexp.Regexp
)

func compiled() (map[string][]pattern, []*regexp.Regexp) {
	compileOnce.Do(func() {
		categoryPatterns = make(map[string][]pattern, len(categoryKeywords))
		for category, keywords := range categoryKeywords {
			ps := make([]pattern, 0, len(keywords))
			for _, kw := range keywords {
				ps = append(ps, pattern{
					re:     regexp.MustCompile(`\b` + regexp.QuoteMeta(kw.phrase) + `\b`),
					weight: kw.weight,
				})
			}
			categoryPatterns[category] = ps
		}
		excludePatterns = make([]*regexp.Regexp, 0, len(excludePhrases))
		for _, phrase := range excludePhrases {
			excludePatterns = append(excludePatterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(phrase)+`\b`))
		}
	})
	return categoryPatterns, excludePatterns
}

// Scorer implements radar.Scorer over the category keyword tables.
// Enabled restricts scoring to a subset of categories; empty means all.
type Scorer struct {
	enabled map[string]struct{}
}

// New builds a Scorer. categories lists the active category names;
// nil or empty activates every category.
func New(categories []string) *Scorer {
	s := &Scorer{}
	if len(categories) > 0 {
		s.enabled = make(map[string]struct{}, len(categories))
		for _, c := range categories {
			s.enabled[c] = struct{}{}
		}
	}
	return s
}

// Categories returns the active category names, sorted.
func (s *Scorer) Categories() []string {
	patterns, _ := compiled()
	names := make([]string, 0, len(patterns))
	for category := range patterns {
		if s.active(category) {
			names = append(names, category)
		}
	}
	sort.Strings(names)
	return names
}

func (s *Scorer) active(category string) bool {
	if s.enabled == nil {
		return true
	}
	_, ok := s.enabled[category]
	return ok
}

// Score rates the job 0..10 and reports every category that
// contributed. Title hits count the full keyword weight, description
// hits a reduced one. A job matching an exclude phrase scores zero.
// Total over any input: empty text scores (0, nil), never an error.
func (s *Scorer) Score(job radar.Job) (int, []string) {
	patterns, excludes := compiled()

	title := strings.ToLower(job.Title)
	haystack := title
	if job.Company != "" {
		haystack += " " + strings.ToLower(job.Company)
	}
	if job.Description != "" {
		haystack += " " + strings.ToLower(job.Description)
	}
	if strings.TrimSpace(haystack) == "" {
		return 0, nil
	}

	for _, ex := range excludes {
		if ex.MatchString(haystack) {
			return 0, nil
		}
	}

	total := 0
	var matched []string
	for category, ps := range patterns {
		if !s.active(category) {
			continue
		}
		contribution := 0
		for _, p := range ps {
			switch {
			case p.re.MatchString(title):
				contribution += p.weight
			case p.re.MatchString(haystack):
				contribution += descriptionWeight(p.weight)
			}
		}
		if contribution > 0 {
			total += contribution
			matched = append(matched, category)
		}
	}

	if total > MaxScore {
		total = MaxScore
	}
	sort.Strings(matched)
	return total, matched
}

func descriptionWeight(w int) int {
	if w <= 1 {
		return 1
	}
	return w - 1
}
