package service

import (
	"context"
	"strings"

	"github.com/fjod/shoestore/internal/domain"
	"github.com/fjod/shoestore/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type CatalogService struct {
	repo repository.CatalogRepository
	log  logrus.FieldLogger
	sfg  singleflight.Group // collapses concurrent filter scans
}

func NewCatalogService(repo repository.CatalogRepository, log logrus.FieldLogger) *CatalogService {
	return &CatalogService{
		repo: repo,
		log:  log,
	}
}

func (s *CatalogService) ListShoes(ctx context.Context, page repository.Page) ([]domain.Shoe, error) {
	shoes, err := s.repo.ListShoes(ctx, page)
	if err != nil {
		s.log.WithError(err).WithField("page", page.Number).Error("repo list shoes error")
		return nil, err
	}
	return shoes, nil
}

func (s *CatalogService) Search(ctx context.Context, term string) ([]domain.Shoe, error) {
	term = strings.TrimSpace(term)
	shoes, err := s.repo.SearchByBrand(ctx, term)
	if err != nil {
		s.log.WithError(err).WithField("term", term).Error("repo search shoes error")
		return nil, err
	}
	return shoes, nil
}

// Filters recomputes the distinct brand, color and size values on every call.
func (s *CatalogService) Filters(ctx context.Context) (*domain.Filters, error) {
	v, err, _ := s.sfg.Do("filters", func() (interface{}, error) {
		return s.repo.DistinctFilters(ctx)
	})
	if err != nil {
		s.log.WithError(err).Error("repo distinct filters error")
		return nil, err
	}

	f := v.(*domain.Filters)
	// callers sharing a flight must not share slices
	return &domain.Filters{
		Brands: append([]string{}, f.Brands...),
		Colors: append([]string{}, f.Colors...),
		Sizes:  append([]string{}, f.Sizes...),
	}, nil
}
