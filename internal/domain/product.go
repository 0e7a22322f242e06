package domain

// ProductRecord is the canonical merged view of a garment, assembled from
// one or more extractor outputs. Fields are resolved once during merge and
// never mutated afterwards.
type ProductRecord struct {
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	Brand          string   `json:"brand,omitempty"`
	ProductName    string   `json:"productName,omitempty"`
	Materials      string   `json:"materials,omitempty"`
	Origin         string   `json:"origin,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Price          *float64 `json:"price,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	EcoNotes       string   `json:"ecoNotes,omitempty"`
}

// MaterialComponent is a single (fiber, percentage) entry from a structured
// material-composition list, e.g. parsed off a care tag.
type MaterialComponent struct {
	Material   string   `json:"material"`
	Percentage *float64 `json:"percentage,omitempty"`
}

// CandidateItem is one visually-similar product returned by the similarity
// search, before it has been run through the scoring pipeline.
type CandidateItem struct {
	URL         string   `json:"url"`
	Name        string   `json:"name"`
	BrandName   string   `json:"brandName,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Images      []string `json:"images,omitempty"`
	Score       float64  `json:"score"`
	Gender      string   `json:"gender,omitempty"`
	Category    string   `json:"category,omitempty"`
	SubCategory string   `json:"subCategory,omitempty"`
	Vendor      string   `json:"vendor,omitempty"`
}

// ResultGroup is one ranked group from the similarity-search service.
type ResultGroup struct {
	RankScore float64         `json:"rankScore"`
	Products  []CandidateItem `json:"products"`
}

// ScoredCandidate pairs a candidate's merged record with its eco score.
type ScoredCandidate struct {
	Record ProductRecord `json:"record"`
	Score  EcoScore      `json:"ecoScore"`
}

// ScanAnalysis is the full result of the primary-item pipeline: the merged
// record, its score, and the raw upstream payloads for debugging/storage.
type ScanAnalysis struct {
	Record     ProductRecord  `json:"record"`
	Score      EcoScore       `json:"ecoScore"`
	Tagging    *TaggingResult `json:"tagging,omitempty"`
	Tag        *TagExtraction `json:"tag,omitempty"`
	Confidence float64        `json:"confidence"`
}
