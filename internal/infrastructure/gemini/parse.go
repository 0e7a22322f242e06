package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ecoscan/backend/internal/domain"
)

// salvageJSON extracts a JSON object from model output. Strict decode
// first; if the model wrapped the object in prose or fences, the largest
// {...} substring is tried before giving up.
func salvageJSON(raw string) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)

	if json.Valid([]byte(raw)) && strings.HasPrefix(raw, "{") {
		return json.RawMessage(raw), nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in model output", domain.ErrMalformedPayload)
	}

	candidate := raw[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("%w: unparseable JSON object in model output", domain.ErrMalformedPayload)
	}
	return json.RawMessage(candidate), nil
}

// stringOrList tolerates fields the model sometimes emits as a bare string
// and sometimes as a list of strings.
type stringOrList []string

func (s *stringOrList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single != "" {
			*s = []string{single}
		}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

type compositionEntry struct {
	Material   string   `json:"material"`
	Name       string   `json:"name"`
	Percentage *float64 `json:"percentage"`
}

type tagJSON struct {
	Brand               string             `json:"brand"`
	ProductName         string             `json:"product_name"`
	Product             string             `json:"product"`
	Size                string             `json:"size"`
	MaterialComposition []compositionEntry `json:"material_composition"`
	Materials           stringOrList       `json:"materials"`
	MadeIn              string             `json:"made_in"`
	CountryOfOrigin     string             `json:"country_of_origin"`
	Origin              string             `json:"origin"`
	Certifications      stringOrList       `json:"certifications"`
	CareInstructions    stringOrList       `json:"care_instructions"`
}

// structuredFieldKeys are folded into dedicated struct fields; everything
// else the model returned lands in ExtraFields.
var structuredFieldKeys = map[string]struct{}{
	"brand":                {},
	"product_name":         {},
	"product":              {},
	"size":                 {},
	"material_composition": {},
	"materials":            {},
	"made_in":              {},
	"country_of_origin":    {},
	"origin":               {},
	"certifications":       {},
	"care_instructions":    {},
}

// tagExtractionFromJSON coalesces the model's tag JSON into the extraction
// shape, tolerating partial responses and field-name drift.
func tagExtractionFromJSON(payload json.RawMessage) (*domain.TagExtraction, error) {
	var parsed tagJSON
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	productName := parsed.ProductName
	if productName == "" {
		productName = parsed.Product
	}

	origin := parsed.MadeIn
	if origin == "" {
		origin = parsed.Origin
	}
	if origin == "" {
		origin = parsed.CountryOfOrigin
	}

	var composition []domain.MaterialComponent
	var compositionParts []string
	for _, entry := range parsed.MaterialComposition {
		name := entry.Material
		if name == "" {
			name = entry.Name
		}
		if name == "" {
			continue
		}
		composition = append(composition, domain.MaterialComponent{
			Material:   name,
			Percentage: entry.Percentage,
		})
		if entry.Percentage != nil {
			compositionParts = append(compositionParts, fmt.Sprintf("%g%% %s", *entry.Percentage, name))
		} else {
			compositionParts = append(compositionParts, name)
		}
	}

	materials := strings.Join(compositionParts, ", ")
	if materials == "" {
		materials = strings.Join(parsed.Materials, ", ")
	}

	var rawStructured map[string]any
	extraFields := map[string]any{}
	if err := json.Unmarshal(payload, &rawStructured); err == nil {
		for key, value := range rawStructured {
			if _, known := structuredFieldKeys[key]; known || value == nil {
				continue
			}
			extraFields[key] = value
		}
	}
	if len(extraFields) == 0 {
		extraFields = nil
	}

	return &domain.TagExtraction{
		Brand:               parsed.Brand,
		ProductName:         productName,
		Materials:           materials,
		MaterialComposition: composition,
		Origin:              origin,
		Certifications:      parsed.Certifications,
		Size:                parsed.Size,
		CareInstructions:    parsed.CareInstructions,
		ExtraFields:         extraFields,
		RawStructured:       rawStructured,
	}, nil
}

type pageJSON struct {
	Brand          string       `json:"brand"`
	ProductName    string       `json:"product_name"`
	Materials      stringOrList `json:"materials"`
	Origin         string       `json:"origin"`
	Certifications stringOrList `json:"certifications"`
	Price          *float64     `json:"price"`
	Currency       string       `json:"currency"`
	EcoNotes       string       `json:"eco_notes"`
}

func pageExtractionFromJSON(payload json.RawMessage) (*domain.PageExtraction, error) {
	var parsed pageJSON
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	return &domain.PageExtraction{
		Brand:          parsed.Brand,
		ProductName:    parsed.ProductName,
		Materials:      strings.Join(parsed.Materials, ", "),
		Origin:         parsed.Origin,
		Certifications: parsed.Certifications,
		Price:          parsed.Price,
		Currency:       parsed.Currency,
		EcoNotes:       parsed.EcoNotes,
	}, nil
}
