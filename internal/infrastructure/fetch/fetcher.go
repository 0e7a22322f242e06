package fetch

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Fetcher retrieves product pages and reduces them to their visible main
// text. Every failure degrades to an empty string; the pipeline treats a
// missing page as reduced completeness, never as an error.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxChars   int
	logger     *zap.Logger
}

func NewFetcher(timeout time.Duration, userAgent string, maxChars int, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		maxChars:  maxChars,
		logger:    logger,
	}
}

// FetchText downloads the page and extracts its main content text, capped
// at maxChars. Returns "" on any failure.
func (f *Fetcher) FetchText(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		f.logger.Debug("invalid page url", zap.String("url", pageURL), zap.Error(err))
		return ""
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Debug("page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Debug("page fetch non-200",
			zap.String("url", pageURL),
			zap.Int("status", resp.StatusCode))
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		f.logger.Debug("page parse failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}

	text := extractMainContent(doc)
	if f.maxChars > 0 && len(text) > f.maxChars {
		text = text[:f.maxChars]
	}
	return text
}

// contentSelectors are tried in order before falling back to the whole
// body.
var contentSelectors = []string{
	"main",
	"article",
	".product-detail",
	".product-info",
	".content",
	"#content",
}

func extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()

	var content string
	for _, selector := range contentSelectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}
	if content == "" {
		content = doc.Find("body").Text()
	}

	return cleanContent(content)
}

func cleanContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")

	noisePatterns := []string{
		"Cookie Policy",
		"Accept Cookies",
		"Privacy Policy",
		"Terms of Service",
	}
	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.TrimSpace(content)
}
