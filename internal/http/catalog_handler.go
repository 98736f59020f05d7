package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fjod/shoestore/internal/domain"
	"github.com/fjod/shoestore/internal/repository"
)

const (
	MaxSearchTermLength = 100
	DefaultPageSize     = 20
	MaxPageSize         = 100
)

type CatalogService interface {
	ListShoes(ctx context.Context, page repository.Page) ([]domain.Shoe, error)
	Search(ctx context.Context, term string) ([]domain.Shoe, error)
	Filters(ctx context.Context) (*domain.Filters, error)
}

type CatalogHandler struct {
	catalog CatalogService
	timeout time.Duration
}

func NewCatalogHandler(catalog CatalogService, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type SearchRequestDTO struct {
	SearchTerm *string `json:"searchTerm"`
}

// ListShoes serves GET /shoes. Without page or limit the whole collection is returned.
func (h *CatalogHandler) ListShoes(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, KindInvalidRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	shoes, err := h.catalog.ListShoes(ctx, page)
	if err != nil {
		handleServiceError(w, r, err, "error fetching shoes")
		return
	}
	respondJSON(w, http.StatusOK, shoes)
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, KindInvalidRequest, "invalid JSON body")
		return
	}
	if req.SearchTerm == nil || strings.TrimSpace(*req.SearchTerm) == "" {
		respondError(w, r, http.StatusBadRequest, KindInvalidRequest, "searchTerm is required")
		return
	}
	if utf8.RuneCountInString(*req.SearchTerm) > MaxSearchTermLength {
		respondError(w, r, http.StatusBadRequest, KindInvalidRequest, "searchTerm is too long")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	shoes, err := h.catalog.Search(ctx, *req.SearchTerm)
	if err != nil {
		handleServiceError(w, r, err, "error searching shoes")
		return
	}
	respondJSON(w, http.StatusOK, shoes)
}

func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	filters, err := h.catalog.Filters(ctx)
	if err != nil {
		handleServiceError(w, r, err, "error fetching categories")
		return
	}
	respondJSON(w, http.StatusOK, filters)
}

func parsePage(r *http.Request) (repository.Page, error) {
	q := r.URL.Query()
	rawPage, rawLimit := q.Get("page"), q.Get("limit")
	if rawPage == "" && rawLimit == "" {
		return repository.Page{}, nil
	}

	page := repository.Page{Number: 1, Size: DefaultPageSize}
	if rawPage != "" {
		n, err := strconv.Atoi(rawPage)
		if err != nil || n < 1 {
			return repository.Page{}, errInvalidParam("page")
		}
		page.Number = n
	}
	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 1 || n > MaxPageSize {
			return repository.Page{}, errInvalidParam("limit")
		}
		page.Size = n
	}
	return page, nil
}

type errInvalidParam string

func (e errInvalidParam) Error() string {
	return "invalid query parameter: " + string(e)
}
