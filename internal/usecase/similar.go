package usecase

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ecoscan/backend/internal/domain"
)

// LocalePreference biases similarity results toward the shopper's market.
type LocalePreference struct {
	Currency string
	Domains  []string
}

// SimilaritySelector flattens grouped visual-search results into a single
// ranked candidate list with a locale-bias reorder.
type SimilaritySelector struct {
	search domain.SearchClient
	locale LocalePreference
	logger *zap.Logger
}

func NewSimilaritySelector(search domain.SearchClient, locale LocalePreference, logger *zap.Logger) *SimilaritySelector {
	return &SimilaritySelector{
		search: search,
		locale: locale,
		logger: logger,
	}
}

// SelectCandidates finds up to maxResults visually similar products for the
// image. Locale-preferred candidates come first (their relative score order
// preserved), then the remaining candidates fill up to the requested count.
func (s *SimilaritySelector) SelectCandidates(ctx context.Context, image []byte, filename string, maxResults int) ([]domain.CandidateItem, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	groups, err := s.search.SearchSimilar(ctx, image, filename)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	flattened := Flatten(groups)
	s.logger.Debug("similarity search returned candidates",
		zap.Int("groups", len(groups)),
		zap.Int("candidates", len(flattened)))

	return LocaleBias(flattened, s.locale, maxResults), nil
}

// Flatten merges result groups into one list sorted by descending per-item
// similarity score. The sort is stable so items tied on score keep their
// group order.
func Flatten(groups []domain.ResultGroup) []domain.CandidateItem {
	var items []domain.CandidateItem
	for _, g := range groups {
		items = append(items, g.Products...)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return items
}

// LocaleBias partitions candidates into locale-preferred and other, then
// returns all preferred items followed by enough others to reach limit. The
// result is never shorter than min(limit, len(items)).
func LocaleBias(items []domain.CandidateItem, locale LocalePreference, limit int) []domain.CandidateItem {
	if limit <= 0 {
		return nil
	}

	var preferred, other []domain.CandidateItem
	for _, item := range items {
		if isLocalePreferred(item, locale) {
			preferred = append(preferred, item)
		} else {
			other = append(other, item)
		}
	}

	out := make([]domain.CandidateItem, 0, limit)
	out = append(out, preferred...)
	for _, item := range other {
		if len(out) >= limit {
			break
		}
		out = append(out, item)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// isLocalePreferred: currency must match; the URL host must then be on the
// allow list, or the item must carry no URL at all.
func isLocalePreferred(item domain.CandidateItem, locale LocalePreference) bool {
	if locale.Currency == "" {
		return false
	}
	if !strings.EqualFold(item.Currency, locale.Currency) {
		return false
	}
	if item.URL == "" {
		return true
	}
	host := hostOf(item.URL)
	for _, allowed := range locale.Domains {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
