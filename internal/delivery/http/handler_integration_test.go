package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecoscan/backend/config"
	"github.com/ecoscan/backend/internal/domain"
	"github.com/ecoscan/backend/internal/infrastructure/store"
	"github.com/ecoscan/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubTagger struct{}

func (stubTagger) DeepTagImage(ctx context.Context, image []byte, filename string) (*domain.TaggingResult, error) {
	return &domain.TaggingResult{
		Items:  []domain.DetectedItem{{Name: "t-shirt", Category: "upper_body", Confidence: 0.9}},
		Colors: []domain.DetectedColor{{Name: "blue", Confidence: 0.8}},
	}, nil
}

func (stubTagger) DeepTagImageURL(ctx context.Context, imageURL string) (*domain.TaggingResult, error) {
	return &domain.TaggingResult{
		Items: []domain.DetectedItem{{Name: "shirt", Confidence: 0.7}},
	}, nil
}

type stubOCR struct{}

func (stubOCR) ExtractText(ctx context.Context, image []byte) (string, error) {
	return "100% Cotton Made in Portugal", nil
}

func (stubOCR) DetectLabels(ctx context.Context, image []byte) ([]domain.Label, error) {
	return []domain.Label{{Name: "Clothing", Confidence: 0.9}}, nil
}

type stubStructurer struct{}

func (stubStructurer) StructureTagText(ctx context.Context, tagText string) (*domain.TagExtraction, error) {
	return &domain.TagExtraction{
		Materials: "100% cotton",
		Origin:    "Portugal",
		RawText:   tagText,
	}, nil
}

func (stubStructurer) StructureProductPage(ctx context.Context, pageText, sourceURL string) (*domain.PageExtraction, error) {
	return &domain.PageExtraction{Materials: "100% linen"}, nil
}

type stubSearch struct{}

func (stubSearch) SearchSimilar(ctx context.Context, image []byte, filename string) ([]domain.ResultGroup, error) {
	price := 35.0
	return []domain.ResultGroup{{
		RankScore: 0.9,
		Products: []domain.CandidateItem{{
			Name:     "Linen Shirt",
			URL:      "https://shop.example.com/products/linen-shirt",
			Price:    &price,
			Currency: "USD",
			Score:    0.9,
			Category: "shirt",
		}},
	}}, nil
}

type stubFetcher struct{}

func (stubFetcher) FetchText(ctx context.Context, url string) string { return "" }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"*"},
		},
		Pipeline: config.PipelineConfig{MaxWorkers: 2, MaxAlternatives: 5},
	}
}

func setupTestRouter(t *testing.T) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	logger := zap.NewNop()

	extract := usecase.NewExtractionService(stubTagger{}, stubOCR{}, stubStructurer{}, nil, stubFetcher{}, logger)
	explainer := usecase.NewExplanationService(nil, logger)
	scorer := usecase.NewScoringService(explainer, logger)
	selector := usecase.NewSimilaritySelector(stubSearch{}, usecase.LocalePreference{Currency: "USD"}, logger)
	aggregator := usecase.NewAggregator(extract, scorer, selector, 2, logger)
	recommendations := usecase.NewRecommendationService(scorer)
	scans := store.NewMemoryStore()

	handler := NewHandler(aggregator, recommendations, scans, 5, logger)
	return SetupRouter(testConfig(), handler, logger), scans
}

func multipartScanBody(t *testing.T, withTagImage bool, userID string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("clothing_image", "shirt.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-image-bytes"))
	require.NoError(t, err)

	if withTagImage {
		tagPart, err := writer.CreateFormFile("tag_image", "tag.jpg")
		require.NoError(t, err)
		_, err = tagPart.Write([]byte("fake-tag-bytes"))
		require.NoError(t, err)
	}
	if userID != "" {
		require.NoError(t, writer.WriteField("user_id", userID))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "healthy", payload["status"])
}

func TestScanClothing(t *testing.T) {
	router, scans := setupTestRouter(t)

	body, contentType := multipartScanBody(t, true, "user-1")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/scan", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var envelope struct {
		Success bool              `json:"success"`
		Data    domain.ScanResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	result := envelope.Data
	assert.Equal(t, "user-1", result.UserID)
	assert.Equal(t, "100% cotton", result.Material)
	assert.Equal(t, "Portugal", result.Country)
	assert.Equal(t, "D", result.Grade)
	assert.Equal(t, 48, result.Score)
	assert.NotEmpty(t, result.Explanation)
	assert.NotEmpty(t, result.ImprovementTips)
	require.Len(t, result.Alternatives, 1)
	assert.Equal(t, "Linen Shirt", result.Alternatives[0].Title)

	assert.Equal(t, 1, scans.Size())
}

func TestScanClothingWithoutTagImage(t *testing.T) {
	router, _ := setupTestRouter(t)

	body, contentType := multipartScanBody(t, false, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/scan", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var envelope struct {
		Success bool              `json:"success"`
		Data    domain.ScanResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	assert.Empty(t, envelope.Data.UserID)
	assert.NotEmpty(t, envelope.Data.Material)
	assert.NotEmpty(t, envelope.Data.Grade)
}

func TestScanClothingMissingImage(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewBufferString(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanHistoryAndStats(t *testing.T) {
	router, _ := setupTestRouter(t)

	for i := 0; i < 2; i++ {
		body, contentType := multipartScanBody(t, true, "user-1")
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/scan", body)
		req.Header.Set("Content-Type", contentType)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history/user-1?limit=1", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var history struct {
		Scans []domain.ScanResult `json:"scans"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Equal(t, 1, history.Count)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/stats/user-1", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var stats domain.ScanStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalScans)
	assert.Equal(t, 48, stats.AverageScore)
}

func TestGetAndDeleteScan(t *testing.T) {
	router, scans := setupTestRouter(t)

	scan := &domain.ScanResult{ID: "scan_1_user-1", UserID: "user-1", Material: "cotton", Score: 50, Grade: "C"}
	require.NoError(t, scans.AddScan(context.Background(), scan))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/scan/scan_1_user-1", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/scan/scan_1_user-1", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/scan/scan_1_user-1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRecommendations(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/recommendations", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Recommendations []usecase.Recommendation `json:"recommendations"`
		Count           int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, 6, payload.Count)
	require.NotEmpty(t, payload.Recommendations)
	assert.NotEmpty(t, payload.Recommendations[0].Grade)
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history/user-1?limit=abc", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
