package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/infrastructure/cache"
	"github.com/labelpadega/backend/internal/infrastructure/regulation"
	"github.com/labelpadega/backend/internal/infrastructure/session"
	"github.com/labelpadega/backend/internal/usecase"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

// mockProvider answers every prompt with reply
type mockProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (m *mockProvider) Generate(ctx context.Context, prompt string, images ...domain.Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.reply, m.err
}

func (m *mockProvider) Converse(ctx context.Context, system string, turns []domain.ChatMessage) (string, error) {
	return m.Generate(ctx, system)
}

// mockOFF serves products by barcode
type mockOFF struct {
	products map[string]domain.OFFProduct
}

func (m *mockOFF) GetProduct(ctx context.Context, barcode string) (*domain.OFFProductResponse, error) {
	p, ok := m.products[barcode]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &domain.OFFProductResponse{Code: barcode, Status: 1, Product: p}, nil
}

func (m *mockOFF) SearchProducts(ctx context.Context, name string) (*domain.OFFSearchResponse, error) {
	var out []domain.OFFProduct
	for _, p := range m.products {
		out = append(out, p)
	}
	return &domain.OFFSearchResponse{Count: len(out), Products: out}, nil
}

// mockUSDA serves a fixed food list
type mockUSDA struct {
	foods []domain.USDAFood
	err   error
}

func (m *mockUSDA) SearchFoods(ctx context.Context, query string, pageSize int) (*domain.USDASearchResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.foods) == 0 {
		return nil, domain.ErrProductNotFound
	}
	return &domain.USDASearchResponse{TotalHits: len(m.foods), Foods: m.foods}, nil
}

func (m *mockUSDA) GetFoodDetails(ctx context.Context, fdcID int) (*domain.USDAFood, error) {
	for _, f := range m.foods {
		if f.FdcID == fdcID {
			return &f, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

type testServer struct {
	router   *gin.Engine
	provider *mockProvider
	usda     *mockUSDA
}

func ingredients(s string) *string { return &s }

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	memCache := cache.NewMemoryCache(time.Hour, 0)
	t.Cleanup(func() { _ = memCache.Close() })
	store := session.NewMemoryStore(time.Hour, 0)
	t.Cleanup(func() { _ = store.Close() })

	provider := &mockProvider{reply: "Paracetamol 500 mg tablets relieve pain and fever. Rating: 7/10"}
	off := &mockOFF{products: map[string]domain.OFFProduct{
		"8901058851830": {
			Code:            "8901058851830",
			ProductName:     "Masala Noodles",
			Brands:          "Maggi",
			CategoriesTags:  []string{"en:noodles"},
			IngredientsText: ingredients("Wheat flour, palm oil, salt, potassium bromate"),
		},
	}}
	usdaClient := &mockUSDA{foods: []domain.USDAFood{
		{FdcID: 1097512, Description: "Whole Milk", BrandOwner: "Organic Valley", FoodCategory: "Dairy"},
	}}
	regs := regulation.New(domain.BannedDataset{
		Ingredients: map[string]domain.RegulatedItem{
			"Potassium Bromate": {
				BannedIn: domain.StringList{"European Union", "India", "Canada"},
				Reason:   "Possible carcinogen",
			},
		},
	}, domain.RecallDataset{})

	matcher := usecase.NewProductMatcher(usecase.MatchConfig{}, nil)
	analysis := usecase.NewAnalysisService(provider, memCache, usecase.AIConfig{}, nil)
	labels, err := usecase.NewLabelService(provider, memCache, usecase.AIConfig{}, nil)
	require.NoError(t, err)

	handler := NewHandler(Services{
		Products:  usecase.NewProductService(off, usdaClient, memCache, regs, analysis, matcher, usecase.ProductServiceConfig{}, nil),
		Nutrition: usecase.NewNutritionService(memCache, usdaClient, matcher, usecase.NutritionServiceConfig{}, nil),
		Analysis:  analysis,
		Labels:    labels,
		Medicines: usecase.NewMedicineService(provider, memCache, usecase.AIConfig{}, nil),
		Chat:      usecase.NewChatService(store, provider, usecase.ChatConfig{}, nil),
		Cache:     memCache,
	}, nil, WithMaxUpload(1<<20), WithAIEnabled(true))

	return &testServer{router: SetupRouter(testConfig(), handler, nil, nil), provider: provider, usda: usdaClient}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, path string, image []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "label.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sess domain.ChatSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.ID)
	return sess.ID
}

func (s *testServer) session(t *testing.T, id string) domain.ChatSession {
	t.Helper()
	w := s.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sess domain.ChatSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	return sess
}

func TestProductEndpoints(t *testing.T) {
	t.Run("barcode lookup carries the regulation report", func(t *testing.T) {
		srv := newTestServer(t)

		w := srv.do(t, http.MethodGet, "/api/v1/products/barcode/8901058851830", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var lookup domain.ProductLookup
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lookup))
		assert.Equal(t, "Masala Noodles", lookup.Product.ProductName)
		assert.True(t, lookup.Regulation.HasConcerns())
	})

	t.Run("barcode lookup errors", func(t *testing.T) {
		srv := newTestServer(t)
		srv.usda.foods = nil

		testCases := []struct {
			barcode string
			status  int
		}{
			{"00000000", http.StatusNotFound},
			{"12ab", http.StatusBadRequest},
		}
		for _, tc := range testCases {
			w := srv.do(t, http.MethodGet, "/api/v1/products/barcode/"+tc.barcode, nil)
			assert.Equal(t, tc.status, w.Code, tc.barcode)
		}

		srv.usda.err = fmt.Errorf("%w: status 503", domain.ErrUpstreamFailure)
		w := srv.do(t, http.MethodGet, "/api/v1/products/barcode/00000000", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("barcode lookup records the product in a session", func(t *testing.T) {
		srv := newTestServer(t)
		id := srv.createSession(t)

		w := srv.do(t, http.MethodGet, "/api/v1/products/barcode/8901058851830?session_id="+id, nil)
		require.Equal(t, http.StatusOK, w.Code)

		sess := srv.session(t, id)
		require.NotNil(t, sess.LastProduct)
		assert.Equal(t, "Masala Noodles", sess.LastProduct.ProductName)
	})

	t.Run("search requires a query", func(t *testing.T) {
		srv := newTestServer(t)

		w := srv.do(t, http.MethodGet, "/api/v1/products/search", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = srv.do(t, http.MethodGet, "/api/v1/products/search?q=maggi+noodles", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "maggi noodles", decodeBody(t, w)["query"])
	})

	t.Run("report runs every analysis", func(t *testing.T) {
		srv := newTestServer(t)

		w := srv.do(t, http.MethodPost, "/api/v1/products/report", map[string]interface{}{
			"product":   domain.ProductRecord{ProductName: "Masala Noodles", BrandName: "Maggi"},
			"allergies": []string{"gluten"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var report domain.ProductReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		require.NotNil(t, report.Health)
		require.NotNil(t, report.Environmental)
		require.NotNil(t, report.Allergen)
		assert.Equal(t, 3, srv.provider.calls)
	})
}

func TestNutritionEndpoint(t *testing.T) {
	srv := newTestServer(t)

	t.Run("GET with query", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/nutrition/search?q=Whole+Milk&brand=Organic+Valley", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		response := decodeBody(t, w)
		data, ok := response["data"].(map[string]interface{})
		require.True(t, ok, response)
		assert.Equal(t, "1097512", data["fdcId"])
	})

	t.Run("POST with JSON", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/nutrition/search", `{"productName":"Whole Milk"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, decodeBody(t, w), "low_confidence")
	})

	t.Run("missing product name", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/nutrition/search", `{"brand":"Organic Valley"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAnalysisEndpoint(t *testing.T) {
	product := domain.ProductRecord{ProductName: "Masala Noodles", BrandName: "Maggi"}

	t.Run("kinds", func(t *testing.T) {
		srv := newTestServer(t)

		testCases := []struct {
			kind   string
			body   map[string]interface{}
			status int
		}{
			{"health", map[string]interface{}{"product": product}, http.StatusOK},
			{"recipes", map[string]interface{}{"product": product}, http.StatusOK},
			{"certification", map[string]interface{}{"product": product, "certification": "FSSAI"}, http.StatusOK},
			{"certification", map[string]interface{}{"product": product}, http.StatusBadRequest},
			{"astrology", map[string]interface{}{"product": product}, http.StatusBadRequest},
		}
		for _, tc := range testCases {
			w := srv.do(t, http.MethodPost, "/api/v1/analysis/"+tc.kind, tc.body)
			assert.Equal(t, tc.status, w.Code, "%s: %s", tc.kind, w.Body.String())
		}
	})

	t.Run("health analysis ignores a stray certification", func(t *testing.T) {
		srv := newTestServer(t)

		w := srv.do(t, http.MethodPost, "/api/v1/analysis/health", map[string]interface{}{
			"product": product, "certification": "Halal",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var result domain.AnalysisResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, domain.KindHealth, result.Kind)
		assert.True(t, result.Success)
	})

	t.Run("AI failure is a soft failure", func(t *testing.T) {
		srv := newTestServer(t)
		srv.provider.err = errors.New("overloaded")

		w := srv.do(t, http.MethodPost, "/api/v1/analysis/environmental", map[string]interface{}{"product": product})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["success"])
	})

	t.Run("records the analysis in a session", func(t *testing.T) {
		srv := newTestServer(t)
		id := srv.createSession(t)

		w := srv.do(t, http.MethodPost, "/api/v1/analysis/health", map[string]interface{}{
			"product": product, "session_id": id,
		})
		require.Equal(t, http.StatusOK, w.Code)

		sess := srv.session(t, id)
		require.NotNil(t, sess.LastAnalysis)
		assert.Equal(t, domain.KindHealth, sess.LastAnalysis.Kind)
	})
}

func TestRegulationEndpoints(t *testing.T) {
	srv := newTestServer(t)

	t.Run("check reports banned ingredients", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/regulations/check", map[string]string{
			"product_name": "White Bread",
			"ingredients":  "flour, water, potassium bromate",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["has_concerns"])
	})

	t.Run("check needs a name or ingredients", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/regulations/check", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("compliance for a region", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/regulations/compliance", map[string]string{
			"ingredients": "flour, potassium bromate",
			"region":      "India",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Potassium Bromate is banned in India.")

		w = srv.do(t, http.MethodPost, "/api/v1/regulations/compliance", `{"region":"India"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestImageEndpoints(t *testing.T) {
	t.Run("label analysis", func(t *testing.T) {
		srv := newTestServer(t)

		w := srv.upload(t, "/api/v1/labels/analyze", pngHeader, map[string]string{
			"profile": `{"allergies":["Gluten"]}`,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, 1, srv.provider.calls)
	})

	t.Run("food image analysis", func(t *testing.T) {
		srv := newTestServer(t)

		w := srv.upload(t, "/api/v1/foods/analyze", pngHeader, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("upload errors", func(t *testing.T) {
		srv := newTestServer(t)

		testCases := []struct {
			name   string
			image  []byte
			fields map[string]string
			status int
		}{
			{"missing image", nil, nil, http.StatusBadRequest},
			{"not an image", []byte("plain text pretending to be a label"), nil, http.StatusBadRequest},
			{"too large", append(append([]byte{}, pngHeader...), make([]byte, 1<<20)...), nil, http.StatusBadRequest},
			{"bad profile", pngHeader, map[string]string{"profile": "{"}, http.StatusBadRequest},
			{"unknown session", pngHeader, map[string]string{"session_id": "missing"}, http.StatusNotFound},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				w := srv.upload(t, "/api/v1/labels/analyze", tc.image, tc.fields)
				assert.Equal(t, tc.status, w.Code, w.Body.String())
			})
		}
		assert.Equal(t, 0, srv.provider.calls)
	})
}

func TestMedicineEndpoints(t *testing.T) {
	t.Run("analyze text", func(t *testing.T) {
		srv := newTestServer(t)

		w := srv.do(t, http.MethodPost, "/api/v1/medicines/analyze", map[string]string{
			"text": "Crocin Paracetamol 500 mg tablet",
			"type": "short",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		response := decodeBody(t, w)
		assert.Equal(t, true, response["success"])
		assert.Nil(t, response["extraction"])
	})

	t.Run("invalid text", func(t *testing.T) {
		srv := newTestServer(t)

		for _, body := range []string{`{"text":"abc"}`, `{"text":"Crocin 500 mg","type":"medium"}`} {
			w := srv.do(t, http.MethodPost, "/api/v1/medicines/analyze", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
		assert.Equal(t, 0, srv.provider.calls)
	})

	t.Run("analyze base64 image", func(t *testing.T) {
		srv := newTestServer(t)

		w := srv.do(t, http.MethodPost, "/api/v1/medicines/analyze", map[string]string{
			"image_base64": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader),
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		response := decodeBody(t, w)
		assert.Equal(t, true, response["success"])
		assert.NotNil(t, response["extraction"])
		assert.Equal(t, 2, srv.provider.calls)
	})

	t.Run("unreadable image", func(t *testing.T) {
		srv := newTestServer(t)
		srv.provider.reply = "cannot read"

		w := srv.upload(t, "/api/v1/medicines/analyze", pngHeader, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, false, decodeBody(t, w)["success"])
	})

	t.Run("extract", func(t *testing.T) {
		srv := newTestServer(t)

		w := srv.upload(t, "/api/v1/medicines/extract", pngHeader, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var extraction domain.MedicineExtraction
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &extraction))
		assert.True(t, extraction.Success)

		w = srv.do(t, http.MethodPost, "/api/v1/medicines/extract", `{"image_base64":"%%%"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("scan is recorded with the session profile", func(t *testing.T) {
		srv := newTestServer(t)
		id := srv.createSession(t)

		w := srv.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/profile", domain.UserProfile{
			Medicine: domain.MedicineProfile{Age: 70, Conditions: []string{"Diabetes"}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = srv.do(t, http.MethodPost, "/api/v1/medicines/analyze", map[string]string{
			"text":       "Metformin 500 mg tablet",
			"session_id": id,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		sess := srv.session(t, id)
		require.Len(t, sess.ScanHistory, 1)
		assert.Equal(t, 1, sess.Stats.MedicineScans)
	})
}

func TestSessionEndpoints(t *testing.T) {
	t.Run("lifecycle", func(t *testing.T) {
		srv := newTestServer(t)
		id := srv.createSession(t)

		w := srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/chat", map[string]string{
			"message": "Is this soup high in sodium?",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var reply domain.ChatReply
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
		assert.Equal(t, id, reply.SessionID)
		assert.Equal(t, domain.RoleAssistant, reply.Message.Role)
		assert.False(t, reply.Fallback)
		assert.Len(t, srv.session(t, id).History, 2)

		w = srv.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/export", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment;"))
		var export domain.SessionExport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &export))
		assert.Equal(t, id, export.Session.ID)

		w = srv.do(t, http.MethodDelete, "/api/v1/sessions/"+id+"/history", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, srv.session(t, id).History)

		w = srv.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = srv.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "session not found", decodeBody(t, w)["error"])
	})

	t.Run("bad chat requests", func(t *testing.T) {
		srv := newTestServer(t)
		id := srv.createSession(t)

		testCases := []struct {
			name   string
			path   string
			body   string
			status int
		}{
			{"empty message", "/api/v1/sessions/" + id + "/chat", `{"message":"  "}`, http.StatusBadRequest},
			{"unknown mode", "/api/v1/sessions/" + id + "/chat", `{"message":"hi","mode":"astrology"}`, http.StatusBadRequest},
			{"malformed JSON", "/api/v1/sessions/" + id + "/chat", `{`, http.StatusBadRequest},
			{"unknown session", "/api/v1/sessions/missing/chat", `{"message":"hi"}`, http.StatusNotFound},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				w := srv.do(t, http.MethodPost, tc.path, tc.body)
				assert.Equal(t, tc.status, w.Code, w.Body.String())
			})
		}
	})
}

func TestClearCacheEndpoint(t *testing.T) {
	srv := newTestServer(t)
	product := map[string]interface{}{"product": domain.ProductRecord{ProductName: "Masala Noodles"}}

	srv.do(t, http.MethodPost, "/api/v1/analysis/health", product)
	srv.do(t, http.MethodPost, "/api/v1/analysis/health", product)
	require.Equal(t, 1, srv.provider.calls)

	w := srv.do(t, http.MethodDelete, "/api/v1/cache", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cleared", decodeBody(t, w)["status"])

	srv.do(t, http.MethodPost, "/api/v1/analysis/health", product)
	assert.Equal(t, 2, srv.provider.calls)
}
