package domain

import "context"

// TaggingClient is the image-tagging collaborator (detected garments,
// colors, generic labels). Quota/auth rejections surface as
// ErrQuotaExhausted so callers can trigger the secondary path.
type TaggingClient interface {
	DeepTagImage(ctx context.Context, image []byte, filename string) (*TaggingResult, error)
	DeepTagImageURL(ctx context.Context, imageURL string) (*TaggingResult, error)
}

// SearchClient is the visual similarity-search collaborator.
type SearchClient interface {
	SearchSimilar(ctx context.Context, image []byte, filename string) ([]ResultGroup, error)
}

// OCRClient extracts text and generic labels from images.
type OCRClient interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
	DetectLabels(ctx context.Context, image []byte) ([]Label, error)
}

// TextStructurer turns free text into the fixed product schemas.
type TextStructurer interface {
	StructureTagText(ctx context.Context, tagText string) (*TagExtraction, error)
	StructureProductPage(ctx context.Context, pageText, sourceURL string) (*PageExtraction, error)
}

// TaggingRefiner optionally upgrades a generic-label tagging result into
// garment items/colors. Failures are never fatal to the extractor.
type TaggingRefiner interface {
	RefineTagging(ctx context.Context, labels []Label) (*TaggingResult, error)
}

// ExplanationRequest carries the computed values embedded into the
// explanation prompt.
type ExplanationRequest struct {
	Grade           string
	ImpactScore     float64
	MaterialSummary string
	Origin          string
	Certifications  []string
	Record          ProductRecord
}

// ExplanationGenerator produces the natural-language score rationale.
type ExplanationGenerator interface {
	GenerateExplanation(ctx context.Context, req ExplanationRequest) (string, error)
}

// PageFetcher retrieves the visible text of a product page. It returns an
// empty string on any failure; it never raises.
type PageFetcher interface {
	FetchText(ctx context.Context, url string) string
}

// ScanRepository persists completed scans for history and statistics.
type ScanRepository interface {
	AddScan(ctx context.Context, scan *ScanResult) error
	GetScan(ctx context.Context, scanID string) (*ScanResult, error)
	DeleteScan(ctx context.Context, scanID string) error
	GetHistory(ctx context.Context, userID string, limit int) ([]*ScanResult, error)
	GetStats(ctx context.Context, userID string) (*ScanStats, error)
}
