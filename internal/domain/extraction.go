package domain

import "encoding/json"

// DetectedItem is one garment detected by the image-tagging service.
type DetectedItem struct {
	Name       string  `json:"name"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
}

// DetectedColor is one dominant color detected by the image-tagging service.
type DetectedColor struct {
	Name       string  `json:"name"`
	Hex        string  `json:"hex,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Label is a generic classification label with a confidence score.
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// TaggingResult is the uniform output of the image-tagging extractor,
// regardless of whether the primary service or the secondary label-detector
// fallback produced it.
type TaggingResult struct {
	Items  []DetectedItem  `json:"items"`
	Colors []DetectedColor `json:"colors"`
	Labels []Label         `json:"labels"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

// MainItem returns the highest-confidence detected garment, or nil.
func (t *TaggingResult) MainItem() *DetectedItem {
	if t == nil || len(t.Items) == 0 {
		return nil
	}
	best := &t.Items[0]
	for i := range t.Items[1:] {
		if t.Items[i+1].Confidence > best.Confidence {
			best = &t.Items[i+1]
		}
	}
	return best
}

// MeanItemConfidence averages item confidences; 0.85 when nothing was
// detected, matching the frontend's default.
func (t *TaggingResult) MeanItemConfidence() float64 {
	if t == nil || len(t.Items) == 0 {
		return 0.85
	}
	var sum float64
	for _, it := range t.Items {
		sum += it.Confidence
	}
	return sum / float64(len(t.Items))
}

// TagExtraction is the structured output of the tag-OCR extractor.
// RawText always carries the OCR text even when structuring failed and the
// remaining fields are empty.
type TagExtraction struct {
	Brand               string              `json:"brand,omitempty"`
	ProductName         string              `json:"productName,omitempty"`
	Materials           string              `json:"materials,omitempty"`
	MaterialComposition []MaterialComponent `json:"materialComposition,omitempty"`
	Origin              string              `json:"origin,omitempty"`
	Certifications      []string            `json:"certifications,omitempty"`
	Size                string              `json:"size,omitempty"`
	CareInstructions    []string            `json:"careInstructions,omitempty"`
	ExtraFields         map[string]any      `json:"extraFields,omitempty"`
	RawText             string              `json:"rawText"`
	RawStructured       map[string]any      `json:"rawStructured,omitempty"`
}

// PageExtraction is the structured output of the page-scrape extractor.
type PageExtraction struct {
	Brand          string   `json:"brand,omitempty"`
	ProductName    string   `json:"productName,omitempty"`
	Materials      string   `json:"materials,omitempty"`
	Origin         string   `json:"origin,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Price          *float64 `json:"price,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	EcoNotes       string   `json:"ecoNotes,omitempty"`
}
