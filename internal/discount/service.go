package discount

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pricing/internal/common"
	"github.com/noah-isme/backend-pricing/internal/events"
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

const activeCacheKey = "discounts:active"

type storeProvider interface {
	List(ctx context.Context) ([]pricing.Discount, error)
	ListEnabled(ctx context.Context) ([]pricing.Discount, error)
	GetByCode(ctx context.Context, code string) (pricing.Discount, error)
	Create(ctx context.Context, d pricing.Discount) error
	Update(ctx context.Context, d pricing.Discount) error
	SetEnabled(ctx context.Context, code string, enabled bool) error
}

// Input is the admin payload for creating or updating a definition.
type Input struct {
	Code        string           `json:"code" validate:"required,max=64"`
	Title       string           `json:"title" validate:"max=200"`
	Enabled     *bool            `json:"enabled"`
	Application string           `json:"application" validate:"omitempty,oneof=automatic manual"`
	Priority    int              `json:"priority"`
	Kind        string           `json:"kind" validate:"required,oneof=regular bulk buy_x_get_y bundle order"`
	Filters     []pricing.Filter `json:"filters"`
	Params      pricing.Params   `json:"params"`
}

// Service owns discount definition lifecycle and the active-set cache.
type Service struct {
	store    storeProvider
	redis    *redis.Client
	bus      *events.Bus
	ttl      time.Duration
	validate *validator.Validate
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store    storeProvider
	Redis    *redis.Client
	Bus      *events.Bus
	CacheTTL time.Duration
	Validate *validator.Validate
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	v := cfg.Validate
	if v == nil {
		v = validator.New()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{store: cfg.Store, redis: cfg.Redis, bus: cfg.Bus, ttl: ttl, validate: v}
}

// Active returns the enabled definitions split into automatic discounts and
// manual coupons. The combined set is cached; priority ordering is the
// engine's job, not the cache's.
func (s *Service) Active(ctx context.Context) (autos, coupons []pricing.Discount, err error) {
	all, err := s.activeSet(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, d := range all {
		if d.Application == pricing.ApplicationManual {
			coupons = append(coupons, d)
		} else {
			autos = append(autos, d)
		}
	}
	return autos, coupons, nil
}

// ResolveCoupons maps submitted coupon codes to enabled manual definitions.
// Unknown, disabled, or non-manual codes are reported back, not silently
// dropped.
func (s *Service) ResolveCoupons(ctx context.Context, codes []string) (resolved []pricing.Discount, rejected []string, err error) {
	if len(codes) == 0 {
		return nil, nil, nil
	}
	_, coupons, err := s.Active(ctx)
	if err != nil {
		return nil, nil, err
	}
	byCode := make(map[string]pricing.Discount, len(coupons))
	for _, c := range coupons {
		byCode[c.Code] = c
	}
	seen := make(map[string]bool, len(codes))
	for _, raw := range codes {
		code := strings.TrimSpace(raw)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		if d, ok := byCode[code]; ok {
			resolved = append(resolved, d)
		} else {
			rejected = append(rejected, code)
		}
	}
	return resolved, rejected, nil
}

// List returns every definition for admin listings.
func (s *Service) List(ctx context.Context) ([]pricing.Discount, error) {
	return s.store.List(ctx)
}

// Get fetches one definition by code.
func (s *Service) Get(ctx context.Context, code string) (pricing.Discount, error) {
	d, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Discount{}, common.NewAppError("NOT_FOUND", "discount not found", http.StatusNotFound, err)
		}
		return pricing.Discount{}, err
	}
	return d, nil
}

// Create validates and persists a new definition.
func (s *Service) Create(ctx context.Context, in Input) (pricing.Discount, error) {
	d, err := s.buildDefinition(in)
	if err != nil {
		return pricing.Discount{}, err
	}
	if err := s.store.Create(ctx, d); err != nil {
		return pricing.Discount{}, err
	}
	s.invalidate(ctx)
	s.emit(ctx, events.TopicDiscountCreated, d.Code, d.Enabled)
	return d, nil
}

// Update validates and replaces an existing definition.
func (s *Service) Update(ctx context.Context, code string, in Input) (pricing.Discount, error) {
	in.Code = code
	d, err := s.buildDefinition(in)
	if err != nil {
		return pricing.Discount{}, err
	}
	if err := s.store.Update(ctx, d); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Discount{}, common.NewAppError("NOT_FOUND", "discount not found", http.StatusNotFound, err)
		}
		return pricing.Discount{}, err
	}
	s.invalidate(ctx)
	s.emit(ctx, events.TopicDiscountUpdated, d.Code, d.Enabled)
	return d, nil
}

// SetEnabled flips the enabled flag of a definition.
func (s *Service) SetEnabled(ctx context.Context, code string, enabled bool) error {
	if err := s.store.SetEnabled(ctx, code, enabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NewAppError("NOT_FOUND", "discount not found", http.StatusNotFound, err)
		}
		return err
	}
	s.invalidate(ctx)
	topic := events.TopicDiscountUpdated
	if !enabled {
		topic = events.TopicDiscountDisabled
	}
	s.emit(ctx, topic, code, enabled)
	return nil
}

// Preview runs a single definition through the pricing engine without
// persisting anything.
func (s *Service) Preview(ctx context.Context, in Input, items []pricing.Item, customerID string) (pricing.PricingResult, error) {
	d, err := s.buildDefinition(in)
	if err != nil {
		return pricing.PricingResult{}, err
	}
	d.Enabled = true
	d.Application = pricing.ApplicationAutomatic
	return pricing.CalculatePricing(items, []pricing.Discount{d}, nil, pricing.ShippingSelection{}, customerID), nil
}

func (s *Service) buildDefinition(in Input) (pricing.Discount, error) {
	if err := s.validate.Struct(in); err != nil {
		return pricing.Discount{}, common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
	}
	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}
	application := pricing.ApplicationMode(in.Application)
	if application == "" {
		application = pricing.ApplicationAutomatic
	}
	d := pricing.Discount{
		Code:        strings.TrimSpace(in.Code),
		Title:       strings.TrimSpace(in.Title),
		Enabled:     enabled,
		Application: application,
		Priority:    in.Priority,
		Kind:        pricing.DiscountKind(in.Kind),
		Filters:     in.Filters,
		Params:      in.Params,
	}
	if err := pricing.ValidateParams(d); err != nil {
		return pricing.Discount{}, common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
	}
	return d, nil
}

// emit publishes a lifecycle event. Discounts are keyed by code rather than
// uuid, so the aggregate id is derived deterministically from the code.
func (s *Service) emit(ctx context.Context, topic, code string, enabled bool) {
	if s.bus == nil {
		return
	}
	aggregate := uuid.NewSHA1(uuid.NameSpaceOID, []byte("discount:"+code))
	_, _ = s.bus.Emit(ctx, topic, aggregate, map[string]any{
		"code":    code,
		"enabled": enabled,
	})
}

func (s *Service) activeSet(ctx context.Context) ([]pricing.Discount, error) {
	if s.redis != nil {
		if data, err := s.redis.Get(ctx, activeCacheKey).Bytes(); err == nil {
			var cached []pricing.Discount
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}
	all, err := s.store.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		if data, err := json.Marshal(all); err == nil {
			_ = s.redis.Set(ctx, activeCacheKey, data, s.ttl).Err()
		}
	}
	return all, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.redis != nil {
		_ = s.redis.Del(ctx, activeCacheKey).Err()
	}
}
