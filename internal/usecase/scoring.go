package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ecoscan/backend/internal/domain"
)

// Certification keyword tiers. Matching is case-insensitive substring
// search over each certification string, so "GOTS Certified Organic"
// still hits "gots".
var (
	strongCertKeywords = []string{
		"gots",
		"global organic textile",
		"fairtrade",
		"fair trade",
		"bluesign",
		"cradle to cradle",
		"cradle-to-cradle",
		"b corp",
		"b-corp",
	}

	moderateCertKeywords = []string{
		"oeko-tex",
		"oeko tex",
		"oekotex",
		"bci",
		"better cotton",
		"rws",
		"responsible wool",
		"rds",
		"responsible down",
		"lwg",
		"leather working group",
		"grs",
		"global recycled",
	}
)

// Marginal certification adjustment: the first credential in a tier counts
// full value, repeats add a small bonus, and the total reduction never
// exceeds the cap.
const (
	strongCertFirst        = 0.7
	strongCertAdditional   = 0.2
	moderateCertFirst      = 0.4
	moderateCertAdditional = 0.1
	maxCertReduction       = 1.5
)

// Grade thresholds over the final 1-5 impact score (lower is better).
const (
	gradeAMax = 1.6
	gradeBMax = 2.5
	gradeCMax = 3.4
	gradeDMax = 4.3
)

// WeightedImpact computes the percentage-weighted mean impact of the fiber
// tokens. Percentages are normalized against their own sum so "80/20" and
// "40/10" weight identically; tokens without percentages fall back to an
// equal split.
func WeightedImpact(tokens []domain.MaterialToken) float64 {
	if len(tokens) == 0 {
		return ImpactFor(UnknownFiber)
	}

	totalPct := 0.0
	for _, tok := range tokens {
		if tok.Percent != nil && *tok.Percent > 0 {
			totalPct += *tok.Percent
		}
	}

	if totalPct <= 0 {
		sum := 0.0
		for _, tok := range tokens {
			sum += ImpactFor(tok.FiberKey)
		}
		return sum / float64(len(tokens))
	}

	weighted := 0.0
	for _, tok := range tokens {
		pct := 0.0
		if tok.Percent != nil && *tok.Percent > 0 {
			pct = *tok.Percent
		}
		weighted += ImpactFor(tok.FiberKey) * (pct / totalPct)
	}
	return weighted
}

// CertificationAdjustment returns the (non-positive) score reduction earned
// by the given certification strings. Each distinct keyword per tier counts
// once, no matter how the certification text is split across strings.
func CertificationAdjustment(certs []string) float64 {
	strong := countDistinctMatches(certs, strongCertKeywords)
	moderate := countDistinctMatches(certs, moderateCertKeywords)

	reduction := 0.0
	if strong > 0 {
		reduction += strongCertFirst + float64(strong-1)*strongCertAdditional
	}
	if moderate > 0 {
		reduction += moderateCertFirst + float64(moderate-1)*moderateCertAdditional
	}
	if reduction > maxCertReduction {
		reduction = maxCertReduction
	}
	return -reduction
}

func countDistinctMatches(certs []string, keywords []string) int {
	matched := 0
	for _, kw := range keywords {
		for _, cert := range certs {
			if strings.Contains(strings.ToLower(cert), kw) {
				matched++
				break
			}
		}
	}
	return matched
}

// GradeFor maps a final 1-5 impact score to a letter grade.
func GradeFor(impact float64) string {
	switch {
	case impact <= gradeAMax:
		return "A"
	case impact <= gradeBMax:
		return "B"
	case impact <= gradeCMax:
		return "C"
	case impact <= gradeDMax:
		return "D"
	default:
		return "E"
	}
}

// NormalizeScore converts a 1-5 impact value (lower is better) into a
// 0-100 display score (higher is better).
func NormalizeScore(impact float64) int {
	score := int(math.Round((6 - impact) / 5 * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func clampImpact(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

// ScoringService turns a merged product record into a graded eco score.
type ScoringService struct {
	explainer *ExplanationService
	logger    *zap.Logger
}

func NewScoringService(explainer *ExplanationService, logger *zap.Logger) *ScoringService {
	return &ScoringService{
		explainer: explainer,
		logger:    logger,
	}
}

// ScoreProduct computes the eco score for a merged record. compositionHint,
// when non-empty, overrides the record's free-form materials string;
// tagging, when present, backstops records with no material information at
// all via category inference.
func (s *ScoringService) ScoreProduct(ctx context.Context, record domain.ProductRecord, compositionHint []domain.MaterialComponent, tagging *domain.TaggingResult) domain.EcoScore {
	materialsText := strings.TrimSpace(record.Materials)
	tokens := ParseMaterials(materialsText, compositionHint)

	if materialsText == "" && len(compositionHint) == 0 {
		if inferred, text, ok := InferMaterials(tagging); ok {
			tokens = inferred
			materialsText = text
			s.logger.Debug("inferred materials from image tagging",
				zap.String("materials", text))
		}
	}
	if materialsText == "" && len(compositionHint) > 0 {
		materialsText = CompositionAsText(compositionHint)
	}

	base := WeightedImpact(tokens)
	adjustment := CertificationAdjustment(record.Certifications)
	impact := clampImpact(base + adjustment)
	grade := GradeFor(impact)

	summary := materialSummary(materialsText, record.Origin)
	explanation := s.explainer.Explain(ctx, domain.ExplanationRequest{
		Grade:           grade,
		ImpactScore:     impact,
		MaterialSummary: summary,
		Origin:          record.Origin,
		Certifications:  record.Certifications,
		Record:          record,
	})

	return domain.EcoScore{
		Grade:             grade,
		ImpactScore:       round2(impact),
		MaterialAndOrigin: summary,
		Certifications:    record.Certifications,
		Explanation:       explanation,
	}
}

// materialSummary renders the "materials | origin: X" display string.
func materialSummary(materials, origin string) string {
	if materials == "" {
		materials = "unknown materials"
	}
	if origin == "" {
		return materials
	}
	return fmt.Sprintf("%s | origin: %s", materials, origin)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
