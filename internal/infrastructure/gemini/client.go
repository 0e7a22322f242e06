package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"

	"github.com/ecoscan/backend/internal/domain"
)

// pageTextLimit bounds how much scraped page text goes into a prompt.
const pageTextLimit = 15000

const tagSystemPrompt = "You are an assistant that parses the text printed on clothing care/brand tags. " +
	"Your job is to extract as much structured metadata as possible. " +
	"Return ONLY valid JSON, no extra commentary."

const pageSystemPrompt = "You are a fashion product metadata parser. You receive the visible text from a " +
	"single product detail page for a clothing item. " +
	"Extract as much structured metadata as you can and return ONLY valid JSON."

const explanationSystemPrompt = "You are an assistant that explains eco-scores for fashion products in clear, " +
	"non-technical language. You receive: (1) a grade A-E, where A is lowest " +
	"environmental impact and E is highest; (2) a numeric impact score from 1-5 " +
	"(1 = best); and (3) basic metadata about the product. You must summarise " +
	"in 2-3 short sentences why the product likely received this score. Focus " +
	"on material choices, presence or absence of certifications, and any hints " +
	"about origin or sustainability notes. Do NOT mention that this is a " +
	"heuristic or that a model generated the score."

const refineSystemPrompt = "You are a fashion image analyst. You receive generic image classification labels " +
	"for a photo of a clothing item. Infer the garment and its dominant colors. " +
	"Return ONLY valid JSON, no extra commentary."

// Client wraps a Gemini model behind the structuring, refinement, and
// explanation contracts.
type Client struct {
	llm     llms.Model
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient initializes the Gemini-backed client.
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key", domain.ErrMissingCredential)
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini: %w", err)
	}

	return &Client{llm: llm, timeout: timeout, logger: logger}, nil
}

// generate runs one system+user exchange and returns the text of the first
// choice. Every call carries the configured deadline.
func (c *Client) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	resp, err := c.llm.GenerateContent(ctx, content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty model response", domain.ErrMalformedPayload)
	}
	return resp.Choices[0].Content, nil
}

// StructureTagText turns OCR'd care-tag text into a structured extraction.
func (c *Client) StructureTagText(ctx context.Context, tagText string) (*domain.TagExtraction, error) {
	userPrompt := fmt.Sprintf(`You are given the raw OCR text from a clothing tag:

"""%s"""

Extract all the metadata you can find and return strictly valid JSON
with this shape (include fields even if null):

{
  "brand": string or null,
  "product_name": string or null,
  "size": string or null,
  "material_composition": [
    {
      "material": string,
      "percentage": number or null
    }
  ],
  "materials": string or null,
  "made_in": string or null,
  "country_of_origin": string or null,
  "origin": string or null,
  "certifications": [string],
  "care_instructions": [string],
  "symbols": [string],
  "other_text": string or null
}

Do NOT wrap the JSON in backticks. Do NOT add explanations.
Only output the JSON object.`, tagText)

	raw, err := c.generate(ctx, tagSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("tag structuring: %w", err)
	}

	payload, err := salvageJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("tag structuring: %w", err)
	}
	return tagExtractionFromJSON(payload)
}

// StructureProductPage turns scraped page text into structured product
// fields.
func (c *Client) StructureProductPage(ctx context.Context, pageText, sourceURL string) (*domain.PageExtraction, error) {
	if len(pageText) > pageTextLimit {
		pageText = pageText[:pageTextLimit]
	}

	userPrompt := fmt.Sprintf(`You are given the visible text from a clothing product page at:

%s

Page text (possibly truncated):

"""%s"""

From this, extract the product's metadata and return strictly valid JSON
with the following shape (include fields even if null):

{
  "brand": string or null,
  "product_name": string or null,
  "materials": string or null,
  "origin": string or null,
  "certifications": [string],
  "price": number or null,
  "currency": string or null,
  "eco_notes": string or null
}

Do NOT wrap the JSON in backticks. Do NOT add explanations.
Only output the JSON object.`, sourceURL, pageText)

	raw, err := c.generate(ctx, pageSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("page structuring: %w", err)
	}

	payload, err := salvageJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("page structuring: %w", err)
	}
	return pageExtractionFromJSON(payload)
}

// GenerateExplanation writes the shopper-facing score rationale.
func (c *Client) GenerateExplanation(ctx context.Context, req domain.ExplanationRequest) (string, error) {
	certText := "no major environmental certifications found"
	if len(req.Certifications) > 0 {
		certText = strings.Join(req.Certifications, ", ")
	}
	originText := req.Origin
	if originText == "" {
		originText = "unknown origin"
	}
	brand := req.Record.Brand
	if brand == "" {
		brand = "unknown"
	}

	userPrompt := fmt.Sprintf(`Eco score details:
- Grade: %s
- Numeric impact score (1=lowest impact, 5=highest impact): %.2f
- Materials: %s
- Origin: %s
- Certifications: %s
- Product title: %s
- Brand: %s
- URL: %s

Write a short explanation (2-3 sentences) for a shopper that says WHY this item
got this grade, in terms of materials, certifications, and likely environmental impact.
Do not mention the underlying algorithm or scoring logic.`,
		req.Grade, req.ImpactScore, req.MaterialSummary, originText, certText,
		req.Record.Title, brand, req.Record.URL)

	text, err := c.generate(ctx, explanationSystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("explanation generation: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// RefineTagging upgrades generic detector labels into a garment-level
// tagging result.
func (c *Client) RefineTagging(ctx context.Context, labels []domain.Label) (*domain.TaggingResult, error) {
	var lines []string
	for _, l := range labels {
		lines = append(lines, fmt.Sprintf("- %s (%.2f)", l.Name, l.Confidence))
	}

	userPrompt := fmt.Sprintf(`Image classification labels with confidences:

%s

Infer the garment shown and return strictly valid JSON with this shape:

{
  "items": [
    {"name": string, "category": string or null, "confidence": number}
  ],
  "colors": [
    {"name": string, "confidence": number}
  ]
}

List at most two items and three colors, most likely first.
Do NOT wrap the JSON in backticks. Only output the JSON object.`,
		strings.Join(lines, "\n"))

	raw, err := c.generate(ctx, refineSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("tagging refinement: %w", err)
	}

	payload, err := salvageJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("tagging refinement: %w", err)
	}

	var refined struct {
		Items  []domain.DetectedItem  `json:"items"`
		Colors []domain.DetectedColor `json:"colors"`
	}
	if err := json.Unmarshal(payload, &refined); err != nil {
		return nil, fmt.Errorf("tagging refinement: %w: %v", domain.ErrMalformedPayload, err)
	}

	return &domain.TaggingResult{
		Items:  refined.Items,
		Colors: refined.Colors,
		Raw:    json.RawMessage(payload),
	}, nil
}
