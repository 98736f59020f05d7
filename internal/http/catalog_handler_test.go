package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/shoestore/internal/domain"
	"github.com/fjod/shoestore/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CatalogServiceMock struct {
	shoes    []domain.Shoe
	filters  *domain.Filters
	err      error
	lastTerm string
	lastPage repository.Page
}

func (m *CatalogServiceMock) ListShoes(_ context.Context, page repository.Page) ([]domain.Shoe, error) {
	m.lastPage = page
	if m.err != nil {
		return nil, m.err
	}
	return m.shoes, nil
}

func (m *CatalogServiceMock) Search(_ context.Context, term string) ([]domain.Shoe, error) {
	m.lastTerm = term
	if m.err != nil {
		return nil, m.err
	}
	return m.shoes, nil
}

func (m *CatalogServiceMock) Filters(context.Context) (*domain.Filters, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.filters, nil
}

func sampleShoes() []domain.Shoe {
	return []domain.Shoe{
		{
			ID:    primitive.NewObjectID(),
			Name:  "Air Max",
			Brand: "Nike",
			Price: 120,
			Image: "https://example.com/airmax.jpg",
			ShoeDetails: domain.ShoeDetails{
				Brand: "Nike",
				Color: "black",
				Size:  "42",
			},
		},
		{ID: primitive.NewObjectID(), Name: "Superstar", Brand: "Adidas", Price: 90},
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestListShoes_Success(t *testing.T) {
	shoes := sampleShoes()
	handler := NewCatalogHandler(&CatalogServiceMock{shoes: shoes}, 5*time.Second)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/shoes", nil)

	handler.ListShoes(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}

	var response []domain.Shoe
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	require.Len(t, response, 2)
	assert.Equal(t, shoes[0].ID, response[0].ID)
	assert.Equal(t, "Nike", response[0].Brand)
	assert.Equal(t, domain.Size("42"), response[0].ShoeDetails.Size)
}

func TestListShoes_EmptyListIsArray(t *testing.T) {
	handler := NewCatalogHandler(&CatalogServiceMock{shoes: []domain.Shoe{}}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.ListShoes(recorder, httptest.NewRequest(http.MethodGet, "/shoes", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, "[]", recorder.Body.String())
}

func TestListShoes_Pagination(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode int
		wantPage repository.Page
	}{
		{"no params", "", http.StatusOK, repository.Page{}},
		{"page and limit", "?page=3&limit=5", http.StatusOK, repository.Page{Number: 3, Size: 5}},
		{"page only", "?page=2", http.StatusOK, repository.Page{Number: 2, Size: DefaultPageSize}},
		{"limit only", "?limit=7", http.StatusOK, repository.Page{Number: 1, Size: 7}},
		{"zero page", "?page=0", http.StatusBadRequest, repository.Page{}},
		{"limit too large", "?limit=101", http.StatusBadRequest, repository.Page{}},
		{"not a number", "?page=abc", http.StatusBadRequest, repository.Page{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &CatalogServiceMock{shoes: []domain.Shoe{}}
			handler := NewCatalogHandler(svc, 5*time.Second)
			recorder := httptest.NewRecorder()

			handler.ListShoes(recorder, httptest.NewRequest(http.MethodGet, "/shoes"+tt.query, nil))

			assert.Equal(t, tt.wantCode, recorder.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantPage, svc.lastPage)
			} else {
				assert.Equal(t, KindInvalidRequest, decodeError(t, recorder).Kind)
			}
		})
	}
}

func TestListShoes_ServiceErrors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedHTTP int
		expectedKind string
	}{
		{"DeadlineExceeded", context.DeadlineExceeded, http.StatusGatewayTimeout, KindTimeout},
		{"Internal", errors.New("connection refused"), http.StatusInternalServerError, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCatalogHandler(&CatalogServiceMock{err: tt.err}, 5*time.Second)
			recorder := httptest.NewRecorder()

			handler.ListShoes(recorder, httptest.NewRequest(http.MethodGet, "/shoes", nil))

			assert.Equal(t, tt.expectedHTTP, recorder.Code)
			body := decodeError(t, recorder)
			assert.Equal(t, tt.expectedKind, body.Kind)
			assert.NotContains(t, body.Message, "connection refused")
		})
	}
}

func TestSearch_Success(t *testing.T) {
	svc := &CatalogServiceMock{shoes: sampleShoes()[:1]}
	handler := NewCatalogHandler(svc, 5*time.Second)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"searchTerm":"nik"}`))

	handler.Search(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "nik", svc.lastTerm)
	var response []domain.Shoe
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Len(t, response, 1)
}

func TestSearch_IgnoresUnknownFields(t *testing.T) {
	svc := &CatalogServiceMock{shoes: []domain.Shoe{}}
	handler := NewCatalogHandler(svc, 5*time.Second)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"searchTerm":"nike","extra":1}`))

	handler.Search(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestSearch_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"searchTerm":`},
		{"missing term", `{}`},
		{"blank term", `{"searchTerm":"   "}`},
		{"term too long", `{"searchTerm":"` + strings.Repeat("a", MaxSearchTermLength+1) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &CatalogServiceMock{}
			handler := NewCatalogHandler(svc, 5*time.Second)
			recorder := httptest.NewRecorder()

			handler.Search(recorder, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, KindInvalidRequest, decodeError(t, recorder).Kind)
			assert.Empty(t, svc.lastTerm, "service must not be called")
		})
	}
}

func TestCategories_Success(t *testing.T) {
	svc := &CatalogServiceMock{filters: &domain.Filters{
		Brands: []string{"Adidas", "Nike"},
		Colors: []string{"black", "white"},
		Sizes:  []string{"42", "43"},
	}}
	handler := NewCatalogHandler(svc, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.Categories(recorder, httptest.NewRequest(http.MethodGet, "/categories", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"brands":["Adidas","Nike"],"colors":["black","white"],"sizes":["42","43"]}`, recorder.Body.String())
}

func TestCategories_Error(t *testing.T) {
	handler := NewCatalogHandler(&CatalogServiceMock{err: errors.New("boom")}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.Categories(recorder, httptest.NewRequest(http.MethodGet, "/categories", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	body := decodeError(t, recorder)
	assert.Equal(t, KindInternal, body.Kind)
	assert.Equal(t, "error fetching categories", body.Message)
}
