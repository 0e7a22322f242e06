package lykdat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ecoscan/backend/internal/domain"
)

const (
	tagsPath         = "/v1/detection/tags"
	globalSearchPath = "/v1/global/search"
)

// Client handles communication with the Lykdat cloud API (deep tagging and
// global similarity search).
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a new Lykdat API client.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	// Free-tier quotas are tight; keep well under 1 request/sec with a
	// small burst for the fan-out pipeline.
	limiter := rate.NewLimiter(rate.Limit(1), 4)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      apiKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		rateLimiter: limiter,
		logger:      logger,
	}
}

// DeepTagImage runs Lykdat deep tagging on raw image bytes.
func (c *Client) DeepTagImage(ctx context.Context, image []byte, filename string) (*domain.TaggingResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tagsPath, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("x-api-key", c.apiKey)

	payload, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("deep tagging: %w", err)
	}
	return decodeTagging(payload)
}

// DeepTagImageURL runs Lykdat deep tagging on a publicly reachable image URL.
func (c *Client) DeepTagImageURL(ctx context.Context, imageURL string) (*domain.TaggingResult, error) {
	form := url.Values{}
	form.Set("image_url", imageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tagsPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("x-api-key", c.apiKey)

	payload, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("deep tagging by url: %w", err)
	}
	return decodeTagging(payload)
}

// SearchSimilar runs Lykdat global search against the aggregated apparel
// catalog and returns grouped ranked results.
func (c *Client) SearchSimilar(ctx context.Context, image []byte, filename string) ([]domain.ResultGroup, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("api_key", c.apiKey); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+globalSearchPath, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	payload, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("global search: %w", err)
	}
	return decodeSearch(payload)
}

// do waits for the rate limiter, executes the request, and classifies
// non-200 statuses into the domain error taxonomy. 403 and 429 map to the
// quota error so callers can trigger their fallback chains on the type
// alone.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if err := c.rateLimiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusForbidden, http.StatusTooManyRequests:
		c.logger.Warn("lykdat quota or auth failure",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncateBody(body)))
		return nil, fmt.Errorf("%w: status %d", domain.ErrQuotaExhausted, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, truncateBody(body))
	}
}

func truncateBody(body []byte) string {
	const max = 256
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}

// taggingEnvelope mirrors the /detection/tags response. The interesting
// fields may sit at the top level or under "data".
type taggingEnvelope struct {
	Data *taggingPayload `json:"data"`
	taggingPayload
}

type taggingPayload struct {
	Colors []domain.DetectedColor `json:"colors"`
	Items  []domain.DetectedItem  `json:"items"`
	Labels []domain.Label         `json:"labels"`
}

func decodeTagging(body []byte) (*domain.TaggingResult, error) {
	var envelope taggingEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	payload := envelope.taggingPayload
	if envelope.Data != nil {
		payload = *envelope.Data
	}

	return &domain.TaggingResult{
		Colors: payload.Colors,
		Items:  payload.Items,
		Labels: payload.Labels,
		Raw:    json.RawMessage(body),
	}, nil
}

// searchEnvelope mirrors the /global/search response.
type searchEnvelope struct {
	Data *searchPayload `json:"data"`
	searchPayload
}

type searchPayload struct {
	ResultGroups []struct {
		RankScore       float64         `json:"rank_score"`
		SimilarProducts []searchProduct `json:"similar_products"`
	} `json:"result_groups"`
}

type searchProduct struct {
	URL         string          `json:"url"`
	Name        string          `json:"name"`
	BrandName   string          `json:"brand_name"`
	Price       json.RawMessage `json:"price"`
	Currency    string          `json:"currency"`
	Images      []string        `json:"matching_images"`
	Score       float64         `json:"score"`
	Gender      string          `json:"gender"`
	Category    string          `json:"category"`
	SubCategory string          `json:"sub_category"`
	Vendor      string          `json:"vendor"`
}

func decodeSearch(body []byte) ([]domain.ResultGroup, error) {
	var envelope searchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	payload := envelope.searchPayload
	if envelope.Data != nil {
		payload = *envelope.Data
	}

	groups := make([]domain.ResultGroup, 0, len(payload.ResultGroups))
	for _, g := range payload.ResultGroups {
		group := domain.ResultGroup{RankScore: g.RankScore}
		for _, p := range g.SimilarProducts {
			group.Products = append(group.Products, domain.CandidateItem{
				URL:         p.URL,
				Name:        p.Name,
				BrandName:   p.BrandName,
				Price:       parsePrice(p.Price),
				Currency:    p.Currency,
				Images:      p.Images,
				Score:       p.Score,
				Gender:      p.Gender,
				Category:    p.Category,
				SubCategory: p.SubCategory,
				Vendor:      p.Vendor,
			})
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// parsePrice tolerates both numeric and string prices, which Lykdat mixes
// across vendors. Unparseable prices become nil.
func parsePrice(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return &num
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return nil
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil
	}
	return &val
}
