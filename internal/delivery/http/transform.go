package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecoscan/backend/internal/domain"
	"github.com/ecoscan/backend/internal/usecase"
)

const (
	defaultMaterial    = "Unknown Material"
	defaultCountry     = "Unknown Origin"
	defaultExplanation = "No explanation available."

	alternativeDescriptionChars = 100
)

// BuildScanResult flattens a pipeline analysis plus its scored alternatives
// into the stored, frontend-facing scan shape.
func BuildScanResult(analysis *domain.ScanAnalysis, alternatives []domain.ScoredCandidate, userID string) *domain.ScanResult {
	now := time.Now()

	material := strings.TrimSpace(analysis.Record.Materials)
	if material == "" {
		material = defaultMaterial
	}
	country := strings.TrimSpace(analysis.Record.Origin)
	if country == "" {
		country = defaultCountry
	}
	explanation := analysis.Score.Explanation
	if explanation == "" {
		explanation = defaultExplanation
	}

	score := usecase.NormalizeScore(analysis.Score.ImpactScore)

	return &domain.ScanResult{
		ID:              scanID(now, userID),
		Timestamp:       now,
		UserID:          userID,
		Material:        material,
		Country:         country,
		Brand:           analysis.Record.Brand,
		ProductName:     analysis.Record.ProductName,
		Score:           score,
		Grade:           analysis.Score.Grade,
		Flags:           impactFlags(material, country, analysis.Score.Explanation),
		Explanation:     explanation,
		Confidence:      analysis.Confidence,
		Certifications:  analysis.Record.Certifications,
		ImprovementTips: improvementTips(score, material),
		Alternatives:    alternativeViews(alternatives),
	}
}

// scanID carries the timestamp and owner for readability; the uuid suffix
// keeps two scans in the same second from colliding in the store.
func scanID(now time.Time, userID string) string {
	owner := userID
	if owner == "" {
		owner = "anon"
	}
	return fmt.Sprintf("scan_%d_%s_%s", now.Unix(), owner, uuid.NewString()[:8])
}

var (
	syntheticMaterials = []string{"polyester", "nylon", "acrylic", "elastane", "spandex", "lycra", "synthetic"}
	carbonWords        = []string{"carbon", "emission", "fossil", "petroleum"}
	waterWords         = []string{"water", "drought", "irrigation"}
	riskyCountries     = []string{"bangladesh", "india", "china", "vietnam", "cambodia", "myanmar"}
	goodMaterials      = []string{"organic", "recycled", "hemp", "linen", "bamboo"}
)

// impactFlags derives presentation callouts from the material, origin and
// explanation text.
func impactFlags(material, country, explanation string) []domain.ImpactFlag {
	flags := []domain.ImpactFlag{}
	materialLower := strings.ToLower(material)
	explanationLower := strings.ToLower(explanation)

	if containsAny(materialLower, syntheticMaterials) {
		severity := "medium"
		if strings.Contains(materialLower, "polyester") || strings.Contains(materialLower, "acrylic") {
			severity = "high"
		}
		flags = append(flags, domain.ImpactFlag{Type: "microplastic", Severity: severity, Label: "Microplastic Shedding Risk"})
	}

	if containsAny(explanationLower, carbonWords) {
		severity := "medium"
		if strings.Contains(explanationLower, "high carbon") {
			severity = "high"
		}
		flags = append(flags, domain.ImpactFlag{Type: "carbon", Severity: severity, Label: "High Carbon Footprint"})
	}

	if containsAny(explanationLower, waterWords) {
		severity := "medium"
		if strings.Contains(explanationLower, "high water") {
			severity = "high"
		}
		flags = append(flags, domain.ImpactFlag{Type: "water", Severity: severity, Label: "High Water Usage"})
	}

	if containsAny(strings.ToLower(country), riskyCountries) {
		if strings.Contains(explanationLower, "labor") || strings.Contains(explanationLower, "worker") {
			flags = append(flags, domain.ImpactFlag{Type: "labor", Severity: "high", Label: "Labor Risk Concerns"})
		} else {
			flags = append(flags, domain.ImpactFlag{Type: "labor", Severity: "medium", Label: "Medium Labor Risk"})
		}
	}

	if containsAny(materialLower, goodMaterials) {
		flags = append(flags, domain.ImpactFlag{Type: "carbon", Severity: "low", Label: "Low Environmental Impact"})
	}

	return flags
}

// improvementTips picks tips for the score tier; low-scoring synthetics get
// an extra washing tip.
func improvementTips(score int, material string) []string {
	switch {
	case score >= 80:
		return []string{
			"Excellent choice! Keep supporting sustainable brands",
			"Share your eco-friendly finds with friends",
			"Consider repairing and maintaining this item for longevity",
		}
	case score >= 60:
		return []string{
			"Good choice! Look for even more sustainable options next time",
			"Consider washing in cold water to reduce microplastic shedding",
			"Support brands with transparent supply chains",
		}
	default:
		tips := []string{
			"Look for organic or recycled materials next time",
			"Choose natural fibers like cotton, linen, or hemp",
			"Support brands with transparent supply chains",
			"Consider second-hand or vintage options",
		}
		if containsAny(strings.ToLower(material), []string{"polyester", "nylon", "acrylic"}) {
			tips = append(tips, "Use a microplastic-catching washing bag for synthetic fabrics")
		}
		return tips
	}
}

func alternativeViews(candidates []domain.ScoredCandidate) []domain.AlternativeView {
	views := make([]domain.AlternativeView, 0, len(candidates))
	for idx, cand := range candidates {
		title := cand.Record.Title
		if title == "" {
			title = cand.Record.ProductName
		}
		if title == "" {
			title = fmt.Sprintf("Similar Item %d", idx+1)
		}
		material := cand.Record.Materials
		if material == "" {
			material = "Unknown"
		}
		views = append(views, domain.AlternativeView{
			ID:          alternativeID(idx, cand.Record.URL),
			Title:       title,
			Brand:       cand.Record.Brand,
			Material:    material,
			EcoScore:    usecase.NormalizeScore(cand.Score.ImpactScore),
			Grade:       cand.Score.Grade,
			URL:         cand.Record.URL,
			Price:       cand.Record.Price,
			Currency:    cand.Record.Currency,
			Description: truncateDescription(cand.Score.Explanation),
		})
	}
	return views
}

func alternativeID(idx int, url string) string {
	slug := fmt.Sprintf("%d", idx)
	if url != "" {
		parts := strings.Split(strings.TrimSuffix(url, "/"), "/")
		if last := parts[len(parts)-1]; last != "" {
			slug = last
		}
	}
	return fmt.Sprintf("alt_%d_%s", idx, slug)
}

func truncateDescription(explanation string) string {
	if len(explanation) <= alternativeDescriptionChars {
		return explanation
	}
	return explanation[:alternativeDescriptionChars] + "..."
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
