package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-pricing/internal/common"
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

type storeProvider interface {
	GetByHandle(ctx context.Context, handle string) (Product, error)
	ListByHandles(ctx context.Context, handles []string) ([]Product, error)
	List(ctx context.Context, limit, offset int) ([]Product, error)
}

// Service orchestrates product lookups, snapshot assembly, and caching.
type Service struct {
	store storeProvider
	cache *Cache
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store storeProvider
	Cache *Cache
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{store: cfg.Store, cache: cfg.Cache}
}

// Product returns a single product by handle.
func (s *Service) Product(ctx context.Context, handle string) (Product, error) {
	var cached Product
	if hit, err := s.cache.GetJSON(ctx, productKey(handle), &cached); err == nil && hit {
		return cached, nil
	}
	p, err := s.store.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return Product{}, err
	}
	_ = s.cache.SetJSON(ctx, productKey(handle), p)
	return p, nil
}

// Products pages through the catalog.
func (s *Service) Products(ctx context.Context, page, perPage int) ([]Product, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	return s.store.List(ctx, perPage, (page-1)*perPage)
}

// Snapshots resolves pricing snapshots for the given handles. Disabled
// products are omitted; callers decide whether a missing handle is fatal.
// Cache hits are served per handle, misses are fetched in a single query.
func (s *Service) Snapshots(ctx context.Context, handles []string) (map[string]pricing.ProductSnapshot, error) {
	out := make(map[string]pricing.ProductSnapshot, len(handles))
	var misses []string
	seen := make(map[string]bool, len(handles))
	for _, handle := range handles {
		if handle == "" || seen[handle] {
			continue
		}
		seen[handle] = true
		var cached Product
		if hit, err := s.cache.GetJSON(ctx, productKey(handle), &cached); err == nil && hit {
			if cached.Enabled {
				out[handle] = toSnapshot(cached)
			}
			continue
		}
		misses = append(misses, handle)
	}
	if len(misses) > 0 {
		fetched, err := s.store.ListByHandles(ctx, misses)
		if err != nil {
			return nil, err
		}
		for _, p := range fetched {
			_ = s.cache.SetJSON(ctx, productKey(p.Handle), p)
			if p.Enabled {
				out[p.Handle] = toSnapshot(p)
			}
		}
	}
	return out, nil
}

func toSnapshot(p Product) pricing.ProductSnapshot {
	return pricing.ProductSnapshot{
		Handle:      p.Handle,
		Price:       p.Price,
		Collections: p.Collections,
		Tags:        p.Tags,
	}
}
