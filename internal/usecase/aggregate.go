package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ecoscan/backend/internal/domain"
)

// Aggregator orchestrates the full scan pipeline: extractors feed the
// merger, the merger feeds the scorer, and candidate items fan out through
// the same chain under a bounded worker pool.
type Aggregator struct {
	extract    *ExtractionService
	scorer     *ScoringService
	selector   *SimilaritySelector
	maxWorkers int
	logger     *zap.Logger
}

func NewAggregator(extract *ExtractionService, scorer *ScoringService, selector *SimilaritySelector, maxWorkers int, logger *zap.Logger) *Aggregator {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Aggregator{
		extract:    extract,
		scorer:     scorer,
		selector:   selector,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// AggregatePrimary runs the single-item path sequentially: image tagging,
// optional care-tag extraction, merge, score. Tagging failure is fatal; the
// care tag is extracted only when an image for it was provided, and its OCR
// failure is fatal because the tag is then the richest material source.
func (a *Aggregator) AggregatePrimary(ctx context.Context, clothingImage []byte, clothingName string, tagImage []byte) (*domain.ScanAnalysis, error) {
	tagging, err := a.extract.ExtractImageTags(ctx, clothingImage, clothingName)
	if err != nil {
		return nil, fmt.Errorf("primary aggregation: %w", err)
	}

	var tag *domain.TagExtraction
	if len(tagImage) > 0 {
		tag, err = a.extract.ExtractTag(ctx, tagImage)
		if err != nil {
			return nil, fmt.Errorf("primary aggregation: %w", err)
		}
	}

	merged := MergeSources(recordFromTag(tag), RecordFromTagging(tagging, ""))

	var hint []domain.MaterialComponent
	if tag != nil {
		hint = tag.MaterialComposition
	}

	score := a.scorer.ScoreProduct(ctx, merged, hint, tagging)

	return &domain.ScanAnalysis{
		Record:     merged,
		Score:      score,
		Tagging:    tagging,
		Tag:        tag,
		Confidence: tagging.MeanItemConfidence(),
	}, nil
}

// AggregateAlternatives scores up to maxResults visually similar products.
// Every failure mode short of a programming error degrades: a failed search
// yields an empty list, and a failed candidate chain drops only that
// candidate. Result order always matches candidate rank order.
func (a *Aggregator) AggregateAlternatives(ctx context.Context, clothingImage []byte, clothingName string, maxResults int) []domain.ScoredCandidate {
	candidates, err := a.selector.SelectCandidates(ctx, clothingImage, clothingName, maxResults)
	if err != nil {
		a.logger.Warn("similarity selection failed, returning no alternatives",
			zap.Error(err))
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}

	workers := a.maxWorkers
	if len(candidates) < workers {
		workers = len(candidates)
	}

	// Slots are indexed by candidate rank so completion order cannot
	// reshuffle the result.
	slots := make([]*domain.ScoredCandidate, len(candidates))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			scored, err := a.scoreCandidate(ctx, cand)
			if err != nil {
				a.logger.Warn("dropping failed candidate",
					zap.Int("rank", i),
					zap.String("url", cand.URL),
					zap.Error(err))
				return nil
			}
			slots[i] = scored
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	out := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// scoreCandidate runs the per-candidate extract-merge-score chain. An image
// tagging failure drops the candidate; page extraction merely degrades.
func (a *Aggregator) scoreCandidate(ctx context.Context, cand domain.CandidateItem) (*domain.ScoredCandidate, error) {
	var tagging *domain.TaggingResult
	if len(cand.Images) > 0 {
		var err error
		tagging, err = a.extract.TagDeepTagByURL(ctx, cand.Images[0])
		if err != nil {
			return nil, err
		}
	}

	page := a.extract.ExtractPage(ctx, cand.URL)

	merged := MergeSources(
		recordFromPage(page),
		RecordFromTagging(tagging, cand.URL),
		candidateSeedRecord(cand),
	)

	score := a.scorer.ScoreProduct(ctx, merged, nil, tagging)
	return &domain.ScoredCandidate{Record: merged, Score: score}, nil
}

// RecordFromTagging converts an image-tagging result into a minimal record:
// the highest-confidence item names the garment, and colors, the main item,
// and the top labels land in the notes field.
func RecordFromTagging(tagging *domain.TaggingResult, sourceURL string) *domain.ProductRecord {
	if tagging == nil {
		return nil
	}

	record := &domain.ProductRecord{URL: sourceURL, Title: "Clothing item"}

	main := tagging.MainItem()
	if main != nil {
		if main.Name != "" {
			record.Title = main.Name
			record.ProductName = main.Name
		} else if main.Category != "" {
			record.Title = main.Category
		}
	}

	var notes []string
	if names := sortedColorNames(tagging.Colors); len(names) > 0 {
		notes = append(notes, "colors: "+strings.Join(names, ", "))
	}
	if main != nil {
		var parts []string
		if main.Name != "" {
			parts = append(parts, main.Name)
		}
		if main.Category != "" {
			parts = append(parts, main.Category)
		}
		if len(parts) > 0 {
			notes = append(notes, "item: "+strings.Join(parts, ", "))
		}
	}
	if names := sortedLabelNames(tagging.Labels, 10); len(names) > 0 {
		notes = append(notes, "labels: "+strings.Join(names, ", "))
	}
	record.EcoNotes = strings.Join(notes, ecoNotesDelimiter)

	return record
}

func sortedColorNames(colors []domain.DetectedColor) []string {
	sorted := make([]domain.DetectedColor, len(colors))
	copy(sorted, colors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	var names []string
	for _, c := range sorted {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names
}

func sortedLabelNames(labels []domain.Label, limit int) []string {
	sorted := make([]domain.Label, len(labels))
	copy(sorted, labels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	var names []string
	for _, l := range sorted {
		if l.Name == "" {
			continue
		}
		names = append(names, l.Name)
		if len(names) >= limit {
			break
		}
	}
	return names
}

// recordFromTag lifts a structured care-tag extraction into a record.
func recordFromTag(tag *domain.TagExtraction) *domain.ProductRecord {
	if tag == nil {
		return nil
	}

	materials := tag.Materials
	if materials == "" && len(tag.MaterialComposition) > 0 {
		materials = CompositionAsText(tag.MaterialComposition)
	}

	var notes []string
	if tag.Size != "" {
		notes = append(notes, "size: "+tag.Size)
	}
	if len(tag.CareInstructions) > 0 {
		notes = append(notes, "care: "+strings.Join(tag.CareInstructions, ", "))
	}

	return &domain.ProductRecord{
		Brand:          tag.Brand,
		ProductName:    tag.ProductName,
		Materials:      materials,
		Origin:         tag.Origin,
		Certifications: tag.Certifications,
		EcoNotes:       strings.Join(notes, ecoNotesDelimiter),
	}
}

// recordFromPage lifts a structured page extraction into a record.
func recordFromPage(page *domain.PageExtraction) *domain.ProductRecord {
	if page == nil {
		return nil
	}
	return &domain.ProductRecord{
		Brand:          page.Brand,
		ProductName:    page.ProductName,
		Materials:      page.Materials,
		Origin:         page.Origin,
		Certifications: page.Certifications,
		Price:          page.Price,
		Currency:       page.Currency,
		EcoNotes:       page.EcoNotes,
	}
}

// candidateSeedRecord turns the similarity-search fields themselves into
// the lowest-priority record so a candidate always has a url, name, and
// price even when both extractors come back empty.
func candidateSeedRecord(cand domain.CandidateItem) *domain.ProductRecord {
	var notes []string
	if cand.Gender != "" {
		notes = append(notes, "gender: "+cand.Gender)
	}
	if cand.Category != "" {
		notes = append(notes, "category: "+cand.Category)
	}
	if cand.SubCategory != "" {
		notes = append(notes, "sub_category: "+cand.SubCategory)
	}
	if cand.Vendor != "" {
		notes = append(notes, "vendor: "+cand.Vendor)
	}

	return &domain.ProductRecord{
		URL:         cand.URL,
		Title:       cand.Name,
		Brand:       cand.BrandName,
		ProductName: cand.Name,
		Price:       cand.Price,
		Currency:    cand.Currency,
		EcoNotes:    strings.Join(notes, ecoNotesDelimiter),
	}
}
