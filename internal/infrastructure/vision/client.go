package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ecoscan/backend/internal/domain"
)

const annotatePath = "/v1/images:annotate"

// Client calls the Google Cloud Vision REST API with API-key auth. Both OCR
// (document text detection) and generic label detection go through the same
// annotate endpoint.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	logger     *zap.Logger
}

func NewClient(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type imageContent struct {
	Content string `json:"content"`
}

type annotateEntry struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type annotateRequest struct {
	Requests []annotateEntry `json:"requests"`
}

type textAnnotation struct {
	Text string `json:"text"`
}

type labelAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type annotationStatus struct {
	Message string `json:"message"`
}

type annotationResult struct {
	FullTextAnnotation *textAnnotation   `json:"fullTextAnnotation"`
	LabelAnnotations   []labelAnnotation `json:"labelAnnotations"`
	Error              *annotationStatus `json:"error"`
}

type annotateResponse struct {
	Responses []annotationResult `json:"responses"`
}

// ExtractText OCRs the image. Document text detection handles the dense
// small print of care tags better than plain text detection.
func (c *Client) ExtractText(ctx context.Context, image []byte) (string, error) {
	result, err := c.annotate(ctx, image, feature{Type: "DOCUMENT_TEXT_DETECTION"})
	if err != nil {
		return "", fmt.Errorf("text extraction: %w", err)
	}
	if result.FullTextAnnotation == nil {
		return "", nil
	}
	return strings.TrimSpace(result.FullTextAnnotation.Text), nil
}

// DetectLabels returns generic classification labels for the image.
func (c *Client) DetectLabels(ctx context.Context, image []byte) ([]domain.Label, error) {
	result, err := c.annotate(ctx, image, feature{Type: "LABEL_DETECTION", MaxResults: 20})
	if err != nil {
		return nil, fmt.Errorf("label detection: %w", err)
	}

	labels := make([]domain.Label, 0, len(result.LabelAnnotations))
	for _, l := range result.LabelAnnotations {
		labels = append(labels, domain.Label{
			Name:       l.Description,
			Confidence: l.Score,
		})
	}
	return labels, nil
}

// annotate posts one image with one feature request and returns the first
// per-image result. Quota and auth statuses map to the typed quota error so
// callers can distinguish them without inspecting messages.
func (c *Client) annotate(ctx context.Context, image []byte, feat feature) (*annotationResult, error) {
	reqBody := annotateRequest{
		Requests: []annotateEntry{{
			Image:    imageContent{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []feature{feat},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?key=%s", c.baseURL, annotatePath, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
	case http.StatusForbidden, http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", domain.ErrQuotaExhausted, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var decoded annotateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if len(decoded.Responses) == 0 {
		return nil, fmt.Errorf("%w: empty responses", domain.ErrMalformedPayload)
	}

	result := &decoded.Responses[0]
	if result.Error != nil && result.Error.Message != "" {
		c.logger.Warn("vision annotation error", zap.String("message", result.Error.Message))
		return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, result.Error.Message)
	}
	return result, nil
}
