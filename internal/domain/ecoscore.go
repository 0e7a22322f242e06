package domain

import "time"

// MaterialToken is one normalized fiber parsed out of a materials string.
// Percent is nil when the source text carried no percentage for the fiber.
// Inferred marks tokens guessed from garment-category heuristics rather than
// read off an explicit composition; downstream consumers must be able to
// tell the two apart.
type MaterialToken struct {
	FiberKey string   `json:"fiberKey"`
	Percent  *float64 `json:"percent,omitempty"`
	Inferred bool     `json:"inferred,omitempty"`
}

// EcoScore is the scored view of a single product. Created once per scoring
// pass and immutable afterwards.
type EcoScore struct {
	Grade             string   `json:"grade"`
	ImpactScore       float64  `json:"impactScore"`
	MaterialAndOrigin string   `json:"materialAndOrigin"`
	Certifications    []string `json:"certifications"`
	Explanation       string   `json:"explanation"`
}

// ImpactFlag is a presentation-level callout derived from the scored record
// (microplastic shedding, water use, labor risk, ...).
type ImpactFlag struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Label    string `json:"label"`
}

// ScanResult is the stored, frontend-facing shape of one completed scan.
type ScanResult struct {
	ID              string             `json:"id"`
	Timestamp       time.Time          `json:"timestamp"`
	UserID          string             `json:"userId,omitempty"`
	Material        string             `json:"material"`
	Country         string             `json:"country"`
	Brand           string             `json:"brand,omitempty"`
	ProductName     string             `json:"productName,omitempty"`
	Score           int                `json:"score"`
	Grade           string             `json:"grade"`
	Flags           []ImpactFlag       `json:"flags"`
	Explanation     string             `json:"explanation"`
	Confidence      float64            `json:"confidence"`
	Certifications  []string           `json:"certifications"`
	ImprovementTips []string           `json:"improvementTips"`
	Alternatives    []AlternativeView  `json:"similarProducts"`
}

// AlternativeView is one scored similar product in the frontend shape.
type AlternativeView struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Brand       string   `json:"brand,omitempty"`
	Material    string   `json:"material"`
	EcoScore    int      `json:"ecoScore"`
	Grade       string   `json:"grade"`
	URL         string   `json:"url"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Description string   `json:"description"`
}

// ScanStats summarizes a user's scan history.
type ScanStats struct {
	TotalScans         int    `json:"totalScans"`
	AverageScore       int    `json:"averageScore"`
	MostCommonMaterial string `json:"mostCommonMaterial"`
	ImprovementTrend   int    `json:"improvementTrend"`
}
