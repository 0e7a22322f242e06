package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ecoscan/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	percentPattern    = regexp.MustCompile(`(\d+\.?\d*)\s*%`)
	segmentSplitter   = regexp.MustCompile(`[,/;]+`)
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// UnknownFiber is the sentinel fiber key used when nothing can be parsed.
const UnknownFiber = "unknown"

// materialImpact maps normalized fiber keys to 1-5 impact values
// (1 = best / lowest impact, 5 = worst / highest impact). Simplified
// heuristic scores informed by public LCA comparisons and fibre rankings.
// Immutable, process-wide; never mutated at runtime.
var materialImpact = map[string]float64{
	"hemp":    1.2,
	"linen":   1.3, // flax
	"lyocell": 1.6, // e.g. TENCEL
	"bamboo":  2.0, // heavily process-dependent, but often viscose-like

	"organic_cotton":     2.4, // less pesticide / water impact than conventional
	"recycled_cotton":    2.2,
	"recycled_polyester": 2.5,

	"wool":     3.5, // high methane but durable; very rough heuristic
	"silk":     3.8,
	"cashmere": 4.2,

	"cotton":  3.6, // conventional cotton: high water & pesticide use
	"viscose": 3.1, // generic man-made cellulosics
	"modal":   3.0,
	"rayon":   3.1,

	"polyester":         3.9, // fossil-based, microplastics
	"polyamide":         4.0, // nylon
	"acrylic":           4.2,
	"synthetic_other":   4.0,
	"elastane":          4.3, // spandex/lycra
	"synthetic_leather": 4.3, // PU, "vegan leather" etc.
	"pvc":               4.8,

	"leather": 5.0, // high methane + land use
	"fur":     5.0,

	UnknownFiber: 3.5, // neutral-ish default when we can't tell
}

// ImpactFor returns the impact value for a fiber key, falling back to the
// unknown sentinel for keys outside the table.
func ImpactFor(fiberKey string) float64 {
	if v, ok := materialImpact[fiberKey]; ok {
		return v
	}
	return materialImpact[UnknownFiber]
}

// materialAliases collapses synonyms and multi-word fibers into canonical
// keys before segment tokenization. Applied in order: multi-word aliases
// must run before the single-word fibers they contain.
var materialAliases = []struct{ from, to string }{
	{"organic cotton", "organic_cotton"},
	{"bio cotton", "organic_cotton"},
	{"recycled cotton", "recycled_cotton"},
	{"recycled polyester", "recycled_polyester"},
	{"rpet", "recycled_polyester"},
	{"nylon", "polyamide"},
	{"flax", "linen"},
	{"tencel", "lyocell"},
	{"merino", "wool"},
	{"genuine leather", "leather"},
	{"real leather", "leather"},
	{"faux leather", "synthetic_leather"},
	{"vegan leather", "synthetic_leather"},
	{"pu leather", "synthetic_leather"},
	{"polyurethane", "synthetic_leather"},
	{"spandex", "elastane"},
	{"lycra", "elastane"},
}

// ParseMaterials turns a free-form materials string into normalized fiber
// tokens. A structured composition hint, when present, takes precedence over
// the free-form string entirely. The result is never empty: unparseable
// input yields the unknown sentinel token.
func ParseMaterials(materials string, hint []domain.MaterialComponent) []domain.MaterialToken {
	if len(hint) > 0 {
		if tokens := tokensFromComposition(hint); len(tokens) > 0 {
			return tokens
		}
	}

	materials = strings.TrimSpace(materials)
	if materials == "" {
		return []domain.MaterialToken{{FiberKey: UnknownFiber}}
	}

	text := strings.ToLower(materials)
	for _, alias := range materialAliases {
		text = strings.ReplaceAll(text, alias.from, alias.to)
	}

	var tokens []domain.MaterialToken
	for _, segment := range segmentSplitter.Split(text, -1) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		tokens = append(tokens, tokenFromSegment(segment))
	}

	if len(tokens) == 0 {
		return []domain.MaterialToken{{FiberKey: UnknownFiber}}
	}
	return tokens
}

// tokenFromSegment resolves one comma/slash-separated segment into a token:
// optional "<number>%" percentage plus the dominant fiber keyword.
func tokenFromSegment(segment string) domain.MaterialToken {
	var pct *float64
	if m := percentPattern.FindStringSubmatch(segment); m != nil {
		var v float64
		if _, err := fmt.Sscanf(m[1], "%f", &v); err == nil {
			pct = &v
		}
	}

	key := resolveFiberKey(segment)
	return domain.MaterialToken{FiberKey: key, Percent: pct}
}

// resolveFiberKey finds the longest impact-table key contained in the
// segment. Longest-first matching keeps "organic_cotton" from resolving to
// plain "cotton". Unmatched segments with generic synthetic cues fall into
// the synthetic_other bucket.
func resolveFiberKey(segment string) string {
	bestKey := ""
	for key := range materialImpact {
		if key == UnknownFiber {
			continue
		}
		if strings.Contains(segment, key) && len(key) > len(bestKey) {
			bestKey = key
		}
	}
	if bestKey != "" {
		return bestKey
	}

	if strings.Contains(segment, "poly") || strings.Contains(segment, "acrylic") || strings.Contains(segment, "elast") {
		return "synthetic_other"
	}
	return UnknownFiber
}

// tokensFromComposition converts an explicit (name, percentage) list into
// tokens, normalizing each name through the alias table.
func tokensFromComposition(comp []domain.MaterialComponent) []domain.MaterialToken {
	var tokens []domain.MaterialToken
	for _, c := range comp {
		name := strings.ToLower(strings.TrimSpace(c.Material))
		if name == "" {
			continue
		}
		for _, alias := range materialAliases {
			name = strings.ReplaceAll(name, alias.from, alias.to)
		}
		tokens = append(tokens, domain.MaterialToken{
			FiberKey: resolveFiberKey(name),
			Percent:  c.Percentage,
		})
	}
	return tokens
}

// CompositionAsText renders a structured composition list back into a
// materials string ("80% cotton, 20% polyester") for record fields and
// explanation prompts.
func CompositionAsText(comp []domain.MaterialComponent) string {
	var parts []string
	for _, c := range comp {
		name := strings.TrimSpace(c.Material)
		if name == "" {
			continue
		}
		if c.Percentage != nil {
			parts = append(parts, fmt.Sprintf("%.0f%% %s", *c.Percentage, name))
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ", ")
}

// archetypeRule guesses a composition from garment-category and fabric
// keywords found in image-tagging output. Rules are checked in order of
// specificity; the first match wins.
type archetypeRule struct {
	all    []string // every keyword must appear
	tokens []domain.MaterialToken
	text   string
}

func pctToken(key string, pct float64) domain.MaterialToken {
	return domain.MaterialToken{FiberKey: key, Percent: &pct, Inferred: true}
}

var archetypeRules = []archetypeRule{
	{all: []string{"denim", "stretch"}, text: "98% cotton, 2% elastane",
		tokens: []domain.MaterialToken{pctToken("cotton", 98), pctToken("elastane", 2)}},
	{all: []string{"jeans", "stretch"}, text: "98% cotton, 2% elastane",
		tokens: []domain.MaterialToken{pctToken("cotton", 98), pctToken("elastane", 2)}},
	{all: []string{"denim"}, text: "100% cotton",
		tokens: []domain.MaterialToken{pctToken("cotton", 100)}},
	{all: []string{"jeans"}, text: "100% cotton",
		tokens: []domain.MaterialToken{pctToken("cotton", 100)}},
	{all: []string{"leggings"}, text: "88% polyester, 12% elastane",
		tokens: []domain.MaterialToken{pctToken("polyester", 88), pctToken("elastane", 12)}},
	{all: []string{"activewear"}, text: "88% polyester, 12% elastane",
		tokens: []domain.MaterialToken{pctToken("polyester", 88), pctToken("elastane", 12)}},
	{all: []string{"hoodie"}, text: "80% cotton, 20% polyester",
		tokens: []domain.MaterialToken{pctToken("cotton", 80), pctToken("polyester", 20)}},
	{all: []string{"sweatshirt"}, text: "80% cotton, 20% polyester",
		tokens: []domain.MaterialToken{pctToken("cotton", 80), pctToken("polyester", 20)}},
	{all: []string{"sweater"}, text: "wool blend",
		tokens: []domain.MaterialToken{{FiberKey: "wool", Inferred: true}}},
	{all: []string{"cardigan"}, text: "wool blend",
		tokens: []domain.MaterialToken{{FiberKey: "wool", Inferred: true}}},
	{all: []string{"puffer"}, text: "100% polyamide",
		tokens: []domain.MaterialToken{pctToken("polyamide", 100)}},
	{all: []string{"t-shirt"}, text: "100% cotton",
		tokens: []domain.MaterialToken{pctToken("cotton", 100)}},
	{all: []string{"tee"}, text: "100% cotton",
		tokens: []domain.MaterialToken{pctToken("cotton", 100)}},
	{all: []string{"dress"}, text: "100% viscose",
		tokens: []domain.MaterialToken{pctToken("viscose", 100)}},
	{all: []string{"shirt"}, text: "100% cotton",
		tokens: []domain.MaterialToken{pctToken("cotton", 100)}},
}

// InferMaterials guesses a plausible composition from image-tagging output
// when no materials text exists. Priority: exact fiber mentions in the
// labels first, then garment-category archetypes, then a single best-guess
// blend. The returned tokens are always marked Inferred; the string form is
// returned alongside for record fields. Returns ok=false only when the
// tagging result is nil.
func InferMaterials(tagging *domain.TaggingResult) (tokens []domain.MaterialToken, text string, ok bool) {
	if tagging == nil {
		return nil, "", false
	}

	corpus := taggingKeywordCorpus(tagging)

	// 1) Exact fiber mentions win outright.
	if key := resolveFiberKey(corpus); key != UnknownFiber && key != "synthetic_other" {
		return []domain.MaterialToken{{FiberKey: key, Inferred: true}}, key, true
	}

	// 2) Garment archetypes, most specific first.
	for _, rule := range archetypeRules {
		matched := true
		for _, kw := range rule.all {
			if !strings.Contains(corpus, kw) {
				matched = false
				break
			}
		}
		if matched {
			return rule.tokens, rule.text, true
		}
	}

	// 3) Best-guess fallback for garments we can't place.
	return []domain.MaterialToken{pctToken("cotton", 60), pctToken("polyester", 40)},
		"60% cotton, 40% polyester", true
}

// taggingKeywordCorpus lowercases and joins item names, categories, and
// labels into one searchable string.
func taggingKeywordCorpus(tagging *domain.TaggingResult) string {
	var b strings.Builder
	for _, it := range tagging.Items {
		b.WriteString(strings.ToLower(it.Name))
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(it.Category))
		b.WriteByte(' ')
	}
	for _, l := range tagging.Labels {
		b.WriteString(strings.ToLower(l.Name))
		b.WriteByte(' ')
	}
	return multiSpacePattern.ReplaceAllString(b.String(), " ")
}
