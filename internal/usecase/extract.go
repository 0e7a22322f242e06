package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ecoscan/backend/internal/domain"
)

// structuringRetries bounds how many times tag-text structuring is retried
// before the extractor gives up and returns an empty structured object.
const structuringRetries = 2

// ExtractionService runs the three source extractors with their fallback
// chains: image tagging (primary tagger with a quota-triggered label-detector
// fallback), care-tag OCR plus structuring, and product-page scraping plus
// structuring.
type ExtractionService struct {
	tagger     domain.TaggingClient
	ocr        domain.OCRClient
	structurer domain.TextStructurer
	refiner    domain.TaggingRefiner
	fetcher    domain.PageFetcher
	logger     *zap.Logger
}

func NewExtractionService(
	tagger domain.TaggingClient,
	ocr domain.OCRClient,
	structurer domain.TextStructurer,
	refiner domain.TaggingRefiner,
	fetcher domain.PageFetcher,
	logger *zap.Logger,
) *ExtractionService {
	return &ExtractionService{
		tagger:     tagger,
		ocr:        ocr,
		structurer: structurer,
		refiner:    refiner,
		fetcher:    fetcher,
		logger:     logger,
	}
}

// ExtractImageTags runs the primary tagger and, only on a quota or auth
// failure, rebuilds an equivalent result from the generic label detector.
// An optional refinement step upgrades the label-only result; its failure
// silently yields the unrefined base. Any non-quota primary error is fatal.
func (s *ExtractionService) ExtractImageTags(ctx context.Context, image []byte, filename string) (*domain.TaggingResult, error) {
	result, err := s.tagger.DeepTagImage(ctx, image, filename)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, domain.ErrQuotaExhausted) {
		return nil, fmt.Errorf("image tagging: %w", err)
	}

	s.logger.Warn("primary tagger quota exhausted, falling back to label detection",
		zap.Error(err))

	labels, err := s.ocr.DetectLabels(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("label detection fallback: %w", err)
	}

	base := &domain.TaggingResult{Labels: labels}
	if s.refiner == nil {
		return base, nil
	}

	refined, err := s.refiner.RefineTagging(ctx, labels)
	if err != nil || refined == nil {
		if err != nil {
			s.logger.Warn("tagging refinement failed, keeping unrefined labels",
				zap.Error(err))
		}
		return base, nil
	}
	refined.Labels = labels
	return refined, nil
}

// ExtractTag OCRs the care-tag image and structures the text. OCR failure
// is fatal; structuring failures retry a bounded number of times and then
// degrade to an empty-but-valid extraction carrying the raw text.
func (s *ExtractionService) ExtractTag(ctx context.Context, tagImage []byte) (*domain.TagExtraction, error) {
	text, err := s.ocr.ExtractText(ctx, tagImage)
	if err != nil {
		return nil, fmt.Errorf("tag ocr: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyOCRText
	}

	if s.structurer == nil {
		return &domain.TagExtraction{RawText: text}, nil
	}

	var lastErr error
	for attempt := 0; attempt < structuringRetries; attempt++ {
		extraction, err := s.structurer.StructureTagText(ctx, text)
		if err == nil && extraction != nil {
			extraction.RawText = text
			return extraction, nil
		}
		lastErr = err
		s.logger.Warn("tag structuring attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	s.logger.Warn("tag structuring exhausted retries, returning raw text only",
		zap.Error(lastErr))
	return &domain.TagExtraction{RawText: text}, nil
}

// ExtractPage fetches the product page and structures its text. Both steps
// degrade to nil rather than failing: a missing page or unstructurable text
// only reduces record completeness.
func (s *ExtractionService) ExtractPage(ctx context.Context, pageURL string) *domain.PageExtraction {
	if pageURL == "" || s.structurer == nil {
		return nil
	}

	text := s.fetcher.FetchText(ctx, pageURL)
	if strings.TrimSpace(text) == "" {
		s.logger.Debug("no page text available", zap.String("url", pageURL))
		return nil
	}

	extraction, err := s.structurer.StructureProductPage(ctx, text, pageURL)
	if err != nil {
		s.logger.Warn("page structuring failed",
			zap.String("url", pageURL),
			zap.Error(err))
		return nil
	}
	return extraction
}

// TagDeepTagByURL tags a candidate's product image by URL. Used by the
// alternatives pipeline where only remote images exist.
func (s *ExtractionService) TagDeepTagByURL(ctx context.Context, imageURL string) (*domain.TaggingResult, error) {
	result, err := s.tagger.DeepTagImageURL(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("image tagging by url: %w", err)
	}
	return result, nil
}
