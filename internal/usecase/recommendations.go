package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/ecoscan/backend/internal/domain"
)

// curatedPick is one hand-vetted low-impact product. Picks run through the
// same scoring pipeline as scans so recommendation grades always agree with
// scan grades.
type curatedPick struct {
	ID             string
	Title          string
	Brand          string
	Materials      string
	Origin         string
	Certifications []string
	Price          float64
	Currency       string
	Category       string
	Description    string
	URL            string
}

var curatedPicks = []curatedPick{
	{
		ID:             "pick_organic_tee",
		Title:          "Organic Cotton Daily Tee",
		Brand:          "Evergreen Threads",
		Materials:      "100% organic cotton",
		Origin:         "Portugal",
		Certifications: []string{"GOTS"},
		Price:          32.0,
		Currency:       "USD",
		Category:       "Tops",
		Description:    "Soft everyday tee knit from long-staple organic cotton with low-water dyeing.",
		URL:            "https://example.com/evergreen-tee",
	},
	{
		ID:             "pick_hemp_denim",
		Title:          "Hemp Blend Workwear Jacket",
		Brand:          "North Loop",
		Materials:      "55% hemp, 45% organic cotton",
		Origin:         "USA",
		Certifications: []string{"Fair Trade Certified"},
		Price:          148.0,
		Currency:       "USD",
		Category:       "Outerwear",
		Description:    "Durable hemp canvas with organic cotton lining, sewn in a fair-trade facility.",
		URL:            "https://example.com/northloop-jacket",
	},
	{
		ID:             "pick_recycled_jogger",
		Title:          "Recycled Bottle Joggers",
		Brand:          "CycleForm",
		Materials:      "85% recycled polyester, 15% elastane",
		Origin:         "Vietnam",
		Certifications: []string{"bluesign"},
		Price:          78.0,
		Currency:       "USD",
		Category:       "Bottoms",
		Description:    "Technical joggers spun from post-consumer bottles with bluesign-approved finishing.",
		URL:            "https://example.com/cycleform-joggers",
	},
	{
		ID:             "pick_linen_dress",
		Title:          "European Linen Midi",
		Brand:          "Coastline Atelier",
		Materials:      "100% linen",
		Origin:         "Lithuania",
		Certifications: []string{"OEKO-TEX"},
		Price:          165.0,
		Currency:       "USD",
		Category:       "Dresses",
		Description:    "Breathable linen sourced from low-impact flax farms with OEKO-TEX dyeing.",
		URL:            "https://example.com/coastline-linen",
	},
	{
		ID:             "pick_bamboo_set",
		Title:          "Bamboo Everyday Set",
		Brand:          "Kind Pulse",
		Materials:      "70% bamboo lyocell, 30% organic cotton",
		Origin:         "India",
		Certifications: []string{"Fair Trade Certified"},
		Price:          98.0,
		Currency:       "USD",
		Category:       "Loungewear",
		Description:    "Naturally cooling bamboo lyocell blended with cotton for year-round comfort.",
		URL:            "https://example.com/kindpulse-set",
	},
	{
		ID:             "pick_repair_denim",
		Title:          "Repaired Vintage Denim",
		Brand:          "Second Stitch",
		Materials:      "Upcycled cotton denim",
		Origin:         "USA",
		Certifications: []string{"B Corp"},
		Price:          120.0,
		Currency:       "USD",
		Category:       "Bottoms",
		Description:    "Rescued vintage denim re-cut and mended for a lower-impact wardrobe staple.",
		URL:            "https://example.com/secondstitch-denim",
	},
}

// Recommendation is one scored pick in frontend shape.
type Recommendation struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Brand       string `json:"brand"`
	Material    string `json:"material"`
	EcoScore    int    `json:"ecoScore"`
	Grade       string `json:"grade"`
	URL         string `json:"url"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// RecommendationService scores the curated picks on demand.
type RecommendationService struct {
	scorer *ScoringService
}

func NewRecommendationService(scorer *ScoringService) *RecommendationService {
	return &RecommendationService{scorer: scorer}
}

// Recommendations returns the curated picks sorted by descending eco score.
func (s *RecommendationService) Recommendations(ctx context.Context) []Recommendation {
	out := make([]Recommendation, 0, len(curatedPicks))
	for _, pick := range curatedPicks {
		record := domain.ProductRecord{
			URL:            pick.URL,
			Title:          pick.Title,
			Brand:          pick.Brand,
			ProductName:    pick.Title,
			Materials:      pick.Materials,
			Origin:         pick.Origin,
			Certifications: pick.Certifications,
			Currency:       pick.Currency,
			EcoNotes:       pick.Category,
		}
		score := s.scorer.ScoreProduct(ctx, record, nil, nil)
		out = append(out, Recommendation{
			ID:          pick.ID,
			Title:       pick.Title,
			Brand:       pick.Brand,
			Material:    pick.Materials,
			EcoScore:    NormalizeScore(score.ImpactScore),
			Grade:       score.Grade,
			URL:         pick.URL,
			Price:       fmt.Sprintf("$%.0f", pick.Price),
			Currency:    pick.Currency,
			Description: pick.Description,
			Category:    pick.Category,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EcoScore > out[j].EcoScore
	})
	return out
}
