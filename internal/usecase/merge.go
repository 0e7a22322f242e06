package usecase

import (
	"strings"

	"github.com/ecoscan/backend/internal/domain"
)

// ecoNotesDelimiter joins notes fields accumulated across sources.
const ecoNotesDelimiter = "; "

// MergeSources combines extractor outputs into one record. Records are
// given in priority order (highest first); each scalar field takes the
// first non-empty value, certifications are unioned preserving first
// occurrence, and eco notes concatenate across all sources. Nil entries are
// skipped, so callers can pass partial chains directly. Deterministic and
// side-effect-free.
func MergeSources(records ...*domain.ProductRecord) domain.ProductRecord {
	var merged domain.ProductRecord
	seenCerts := make(map[string]struct{})
	var notes []string

	for _, r := range records {
		if r == nil {
			continue
		}
		if merged.URL == "" {
			merged.URL = strings.TrimSpace(r.URL)
		}
		if merged.Title == "" {
			merged.Title = strings.TrimSpace(r.Title)
		}
		if merged.Brand == "" {
			merged.Brand = strings.TrimSpace(r.Brand)
		}
		if merged.ProductName == "" {
			merged.ProductName = strings.TrimSpace(r.ProductName)
		}
		if merged.Materials == "" {
			merged.Materials = strings.TrimSpace(r.Materials)
		}
		if merged.Origin == "" {
			merged.Origin = strings.TrimSpace(r.Origin)
		}
		if merged.Price == nil {
			merged.Price = r.Price
		}
		if merged.Currency == "" {
			merged.Currency = strings.TrimSpace(r.Currency)
		}
		for _, cert := range r.Certifications {
			cert = strings.TrimSpace(cert)
			if cert == "" {
				continue
			}
			if _, ok := seenCerts[strings.ToLower(cert)]; ok {
				continue
			}
			seenCerts[strings.ToLower(cert)] = struct{}{}
			merged.Certifications = append(merged.Certifications, cert)
		}
		if note := strings.TrimSpace(r.EcoNotes); note != "" {
			notes = append(notes, note)
		}
	}

	merged.EcoNotes = strings.Join(notes, ecoNotesDelimiter)
	return merged
}
