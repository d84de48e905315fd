// Package services holds the marketplace use cases. Handlers translate HTTP to these calls;
// every method takes the acting user explicitly and reports failures as apperr kinds.
package services

import (
	"context"
	"time"

	"food-marketplace-api/aggregates"
	"food-marketplace-api/cache"
	"food-marketplace-api/events"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Options struct {
	TaxRate             float64
	DeliveryFee         float64
	StrictTransitions   bool
	AggregateMaxRetries int
}

type Service struct {
	DB         *gorm.DB
	Aggregates *aggregates.Updater
	Events     events.Publisher
	Menus      cache.MenuCache
	Log        zerolog.Logger
	Opts       Options
	now        func() time.Time
}

// New wires a Service. A nil publisher or cache falls back to logging and no caching.
func New(db *gorm.DB, publisher events.Publisher, menus cache.MenuCache, log zerolog.Logger, opts Options) *Service {
	if publisher == nil {
		publisher = events.LogPublisher{Log: log}
	}
	if menus == nil {
		menus = cache.NopMenuCache{}
	}
	return &Service{
		DB:         db,
		Aggregates: aggregates.New(opts.AggregateMaxRetries, log),
		Events:     publisher,
		Menus:      menus,
		Log:        log,
		Opts:       opts,
		now:        time.Now,
	}
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// publish sends e after the surrounding transaction committed. Failures are logged only.
func (s *Service) publish(ctx context.Context, e events.OrderEvent) {
	if err := s.Events.Publish(ctx, e); err != nil {
		s.Log.Error().Err(err).Str("event", string(e.Type)).Uint("order_id", e.OrderID).Msg("publish order event")
	}
}

func (s *Service) invalidateMenu(ctx context.Context, restaurantID uint) {
	if err := s.Menus.Invalidate(ctx, restaurantID); err != nil {
		s.Log.Warn().Err(err).Uint("restaurant_id", restaurantID).Msg("invalidate menu cache")
	}
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type PageQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

func (q PageQuery) normalize() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	return q
}

type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"total_pages"`
}

// paginate counts q, then loads the requested window with the given preloads into a Page.
func paginate[T any](q *gorm.DB, pq PageQuery, preloads ...string) (*Page[T], error) {
	pq = pq.normalize()
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	for _, p := range preloads {
		q = q.Preload(p)
	}
	items := make([]T, 0, pq.Limit)
	if err := q.Offset((pq.Page - 1) * pq.Limit).Limit(pq.Limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       pq.Page,
		Limit:      pq.Limit,
		TotalPages: (total + int64(pq.Limit) - 1) / int64(pq.Limit),
	}, nil
}
