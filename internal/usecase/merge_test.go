package usecase

import (
	"reflect"
	"testing"

	"github.com/ecoscan/backend/internal/domain"
)

func TestMergeSources(t *testing.T) {
	tagRecord := &domain.ProductRecord{
		Brand:          "EcoWear",
		Materials:      "100% organic cotton",
		Certifications: []string{"GOTS"},
		EcoNotes:       "care: wash cold",
	}
	pageRecord := &domain.ProductRecord{
		URL:            "https://shop.example/p/1",
		Brand:          "Ecowear Official Store",
		ProductName:    "Everyday Tee",
		Origin:         "Portugal",
		Certifications: []string{"gots", "OEKO-TEX"},
		EcoNotes:       "shipped plastic-free",
	}
	taggingRecord := &domain.ProductRecord{
		Title:    "White cotton t-shirt",
		EcoNotes: "colors: white",
	}

	t.Run("priority order resolves each field independently", func(t *testing.T) {
		merged := MergeSources(tagRecord, pageRecord, taggingRecord)

		if merged.Brand != "EcoWear" {
			t.Errorf("brand: got %q, want tag-source value", merged.Brand)
		}
		if merged.ProductName != "Everyday Tee" {
			t.Errorf("productName: got %q, want page-source value", merged.ProductName)
		}
		if merged.Title != "White cotton t-shirt" {
			t.Errorf("title: got %q, want tagging-source value", merged.Title)
		}
		if merged.URL != "https://shop.example/p/1" {
			t.Errorf("url: got %q", merged.URL)
		}
		if merged.Origin != "Portugal" {
			t.Errorf("origin: got %q", merged.Origin)
		}
	})

	t.Run("certifications union case-insensitively, first occurrence wins", func(t *testing.T) {
		merged := MergeSources(tagRecord, pageRecord)
		want := []string{"GOTS", "OEKO-TEX"}
		if !reflect.DeepEqual(merged.Certifications, want) {
			t.Errorf("got %v, want %v", merged.Certifications, want)
		}
	})

	t.Run("eco notes concatenate instead of overwriting", func(t *testing.T) {
		merged := MergeSources(tagRecord, pageRecord, taggingRecord)
		want := "care: wash cold; shipped plastic-free; colors: white"
		if merged.EcoNotes != want {
			t.Errorf("got %q, want %q", merged.EcoNotes, want)
		}
	})

	t.Run("nil sources are skipped", func(t *testing.T) {
		merged := MergeSources(nil, pageRecord, nil)
		if merged.Brand != "Ecowear Official Store" {
			t.Errorf("got %q", merged.Brand)
		}
	})

	t.Run("idempotent for identical inputs", func(t *testing.T) {
		first := MergeSources(tagRecord, pageRecord, taggingRecord)
		second := MergeSources(tagRecord, pageRecord, taggingRecord)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("merge not deterministic:\n%+v\n%+v", first, second)
		}
	})

	t.Run("no sources yields zero record", func(t *testing.T) {
		merged := MergeSources()
		if !reflect.DeepEqual(merged, (domain.ProductRecord{})) {
			t.Errorf("got %+v, want zero value", merged)
		}
	})
}
