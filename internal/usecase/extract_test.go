package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/ecoscan/backend/internal/domain"
)

type fakeTagger struct {
	result    *domain.TaggingResult
	err       error
	urlResult *domain.TaggingResult
	urlErr    error
}

func (f *fakeTagger) DeepTagImage(_ context.Context, _ []byte, _ string) (*domain.TaggingResult, error) {
	return f.result, f.err
}

func (f *fakeTagger) DeepTagImageURL(_ context.Context, _ string) (*domain.TaggingResult, error) {
	return f.urlResult, f.urlErr
}

type fakeOCR struct {
	text      string
	textErr   error
	labels    []domain.Label
	labelsErr error
}

func (f *fakeOCR) ExtractText(_ context.Context, _ []byte) (string, error) {
	return f.text, f.textErr
}

func (f *fakeOCR) DetectLabels(_ context.Context, _ []byte) ([]domain.Label, error) {
	return f.labels, f.labelsErr
}

type fakeStructurer struct {
	tag      *domain.TagExtraction
	tagErrs  []error // consumed per call; nil entry means success
	tagCalls int
	page     *domain.PageExtraction
	pageErr  error
}

func (f *fakeStructurer) StructureTagText(_ context.Context, _ string) (*domain.TagExtraction, error) {
	call := f.tagCalls
	f.tagCalls++
	if call < len(f.tagErrs) && f.tagErrs[call] != nil {
		return nil, f.tagErrs[call]
	}
	return f.tag, nil
}

func (f *fakeStructurer) StructureProductPage(_ context.Context, _, _ string) (*domain.PageExtraction, error) {
	return f.page, f.pageErr
}

type fakeRefiner struct {
	result *domain.TaggingResult
	err    error
}

func (f *fakeRefiner) RefineTagging(_ context.Context, _ []domain.Label) (*domain.TaggingResult, error) {
	return f.result, f.err
}

type fakeFetcher struct {
	text string
}

func (f *fakeFetcher) FetchText(_ context.Context, _ string) string {
	return f.text
}

func newExtractionService(tagger domain.TaggingClient, ocr domain.OCRClient, structurer domain.TextStructurer, refiner domain.TaggingRefiner, fetcher domain.PageFetcher) *ExtractionService {
	return NewExtractionService(tagger, ocr, structurer, refiner, fetcher, zap.NewNop())
}

func TestExtractImageTags(t *testing.T) {
	ctx := context.Background()
	tagged := &domain.TaggingResult{
		Items: []domain.DetectedItem{{Name: "jeans", Category: "denim", Confidence: 0.97}},
	}
	labels := []domain.Label{{Name: "Denim", Confidence: 0.92}}

	t.Run("primary success returns as-is", func(t *testing.T) {
		svc := newExtractionService(&fakeTagger{result: tagged}, &fakeOCR{}, &fakeStructurer{}, nil, &fakeFetcher{})
		got, err := svc.ExtractImageTags(ctx, []byte("img"), "img.jpg")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.Items) != 1 || got.Items[0].Name != "jeans" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("non-quota primary error is fatal", func(t *testing.T) {
		tagger := &fakeTagger{err: fmt.Errorf("tagging: %w", domain.ErrUpstreamUnavailable)}
		ocr := &fakeOCR{labels: labels}
		svc := newExtractionService(tagger, ocr, &fakeStructurer{}, nil, &fakeFetcher{})
		if _, err := svc.ExtractImageTags(ctx, []byte("img"), "img.jpg"); err == nil {
			t.Fatal("expected error, label fallback must not trigger")
		}
	})

	t.Run("quota error falls back to label detection", func(t *testing.T) {
		tagger := &fakeTagger{err: fmt.Errorf("tagging: %w", domain.ErrQuotaExhausted)}
		ocr := &fakeOCR{labels: labels}
		svc := newExtractionService(tagger, ocr, &fakeStructurer{}, nil, &fakeFetcher{})
		got, err := svc.ExtractImageTags(ctx, []byte("img"), "img.jpg")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.Labels) != 1 || got.Labels[0].Name != "Denim" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("refinement upgrades the fallback result", func(t *testing.T) {
		tagger := &fakeTagger{err: domain.ErrQuotaExhausted}
		ocr := &fakeOCR{labels: labels}
		refined := &domain.TaggingResult{
			Items: []domain.DetectedItem{{Name: "denim jacket", Category: "outerwear", Confidence: 0.8}},
		}
		svc := newExtractionService(tagger, ocr, &fakeStructurer{}, &fakeRefiner{result: refined}, &fakeFetcher{})
		got, err := svc.ExtractImageTags(ctx, []byte("img"), "img.jpg")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.Items) != 1 || got.Items[0].Name != "denim jacket" {
			t.Errorf("refined items missing: %+v", got)
		}
		if len(got.Labels) != 1 {
			t.Errorf("base labels must survive refinement: %+v", got)
		}
	})

	t.Run("refinement failure keeps unrefined base", func(t *testing.T) {
		tagger := &fakeTagger{err: domain.ErrQuotaExhausted}
		ocr := &fakeOCR{labels: labels}
		svc := newExtractionService(tagger, ocr, &fakeStructurer{}, &fakeRefiner{err: errors.New("model error")}, &fakeFetcher{})
		got, err := svc.ExtractImageTags(ctx, []byte("img"), "img.jpg")
		if err != nil {
			t.Fatalf("refinement failure must not surface: %v", err)
		}
		if len(got.Labels) != 1 || len(got.Items) != 0 {
			t.Errorf("got %+v, want unrefined base", got)
		}
	})

	t.Run("fallback label detection failure is fatal", func(t *testing.T) {
		tagger := &fakeTagger{err: domain.ErrQuotaExhausted}
		ocr := &fakeOCR{labelsErr: errors.New("vision down")}
		svc := newExtractionService(tagger, ocr, &fakeStructurer{}, nil, &fakeFetcher{})
		if _, err := svc.ExtractImageTags(ctx, []byte("img"), "img.jpg"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestExtractTag(t *testing.T) {
	ctx := context.Background()
	extraction := &domain.TagExtraction{Materials: "100% cotton", Origin: "Portugal"}

	t.Run("ocr failure is fatal", func(t *testing.T) {
		svc := newExtractionService(&fakeTagger{}, &fakeOCR{textErr: errors.New("ocr down")}, &fakeStructurer{}, nil, &fakeFetcher{})
		if _, err := svc.ExtractTag(ctx, []byte("tag")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty ocr text is fatal", func(t *testing.T) {
		svc := newExtractionService(&fakeTagger{}, &fakeOCR{text: "  "}, &fakeStructurer{}, nil, &fakeFetcher{})
		_, err := svc.ExtractTag(ctx, []byte("tag"))
		if !errors.Is(err, domain.ErrEmptyOCRText) {
			t.Fatalf("got %v, want ErrEmptyOCRText", err)
		}
	})

	t.Run("structuring success carries raw text", func(t *testing.T) {
		structurer := &fakeStructurer{tag: extraction}
		svc := newExtractionService(&fakeTagger{}, &fakeOCR{text: "100% cotton made in portugal"}, structurer, nil, &fakeFetcher{})
		got, err := svc.ExtractTag(ctx, []byte("tag"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Materials != "100% cotton" || got.RawText == "" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("first structuring failure retries once", func(t *testing.T) {
		structurer := &fakeStructurer{tag: extraction, tagErrs: []error{errors.New("malformed"), nil}}
		svc := newExtractionService(&fakeTagger{}, &fakeOCR{text: "100% cotton"}, structurer, nil, &fakeFetcher{})
		got, err := svc.ExtractTag(ctx, []byte("tag"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Materials != "100% cotton" {
			t.Errorf("got %+v", got)
		}
		if structurer.tagCalls != 2 {
			t.Errorf("got %d structuring calls, want 2", structurer.tagCalls)
		}
	})

	t.Run("exhausted retries degrade to raw-text-only extraction", func(t *testing.T) {
		structurer := &fakeStructurer{tagErrs: []error{errors.New("malformed"), errors.New("malformed")}}
		svc := newExtractionService(&fakeTagger{}, &fakeOCR{text: "illegible tag"}, structurer, nil, &fakeFetcher{})
		got, err := svc.ExtractTag(ctx, []byte("tag"))
		if err != nil {
			t.Fatalf("degraded extraction must not error: %v", err)
		}
		if got.RawText != "illegible tag" || got.Materials != "" {
			t.Errorf("got %+v, want empty extraction with raw text", got)
		}
		if structurer.tagCalls != 2 {
			t.Errorf("got %d structuring calls, want bounded retry of 2", structurer.tagCalls)
		}
	})
}

func TestExtractPage(t *testing.T) {
	ctx := context.Background()
	page := &domain.PageExtraction{Brand: "EcoWear", Materials: "100% linen"}

	t.Run("empty url degrades to nil", func(t *testing.T) {
		svc := newExtractionService(&fakeTagger{}, &fakeOCR{}, &fakeStructurer{}, nil, &fakeFetcher{})
		if got := svc.ExtractPage(ctx, ""); got != nil {
			t.Errorf("got %+v, want nil", got)
		}
	})

	t.Run("fetch failure degrades to nil", func(t *testing.T) {
		svc := newExtractionService(&fakeTagger{}, &fakeOCR{}, &fakeStructurer{page: page}, nil, &fakeFetcher{text: ""})
		if got := svc.ExtractPage(ctx, "https://shop.example/p/1"); got != nil {
			t.Errorf("got %+v, want nil", got)
		}
	})

	t.Run("structuring failure degrades to nil", func(t *testing.T) {
		structurer := &fakeStructurer{pageErr: errors.New("malformed")}
		svc := newExtractionService(&fakeTagger{}, &fakeOCR{}, structurer, nil, &fakeFetcher{text: "product page text"})
		if got := svc.ExtractPage(ctx, "https://shop.example/p/1"); got != nil {
			t.Errorf("got %+v, want nil", got)
		}
	})

	t.Run("happy path returns structured fields", func(t *testing.T) {
		svc := newExtractionService(&fakeTagger{}, &fakeOCR{}, &fakeStructurer{page: page}, nil, &fakeFetcher{text: "product page text"})
		got := svc.ExtractPage(ctx, "https://shop.example/p/1")
		if got == nil || got.Brand != "EcoWear" {
			t.Errorf("got %+v", got)
		}
	})
}
