package planner

import (
	"context"
	"fmt"
	"log/slog"

	"activity-planner/internal/sunrise"
)

// Publisher receives every successfully composed plan.
type Publisher interface {
	PublishPlan(req ActivityRequest, plan *ActivityResponse) error
}

type Service struct {
	provider  sunrise.Provider
	composer  *Composer
	publisher Publisher
}

// NewService wires the fetch and compose steps. publisher may be nil.
func NewService(provider sunrise.Provider, composer *Composer, publisher Publisher) *Service {
	return &Service{
		provider:  provider,
		composer:  composer,
		publisher: publisher,
	}
}

// Plan validates the request, fetches the sun data and composes the
// activities. Upstream failures keep their sunrise error types.
func (s *Service) Plan(ctx context.Context, req ActivityRequest) (*ActivityResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	data, err := s.provider.Fetch(ctx, req.Latitude, req.Longitude, req.Date)
	if err != nil {
		return nil, fmt.Errorf("fetch sun data: %w", err)
	}

	plan := s.composer.Compose(*data)

	if s.publisher != nil {
		if err := s.publisher.PublishPlan(req, plan); err != nil {
			slog.Warn("failed to publish plan", "component", "planner", "error", err)
		}
	}

	return plan, nil
}
