// Package query serves telemetry reads gated by the access resolver.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tagnet/backend/internal/access"
	"tagnet/backend/internal/identity"
	"tagnet/backend/internal/reading/domain"
)

// Sentinel errors; the edge maps them to error codes.
var (
	// ErrForbidden covers both inaccessible and nonexistent tags, so a
	// caller cannot probe which tags exist.
	ErrForbidden = errors.New("access denied")
	// ErrNoReadings is returned when an accessible tag has no data. A tag
	// with no data and a tag that was never seen are indistinguishable.
	ErrNoReadings = errors.New("no readings found")
	// ErrMissingTag is returned for an empty tag id.
	ErrMissingTag = errors.New("missing tag")
)

// Store is the telemetry-store surface the query service needs.
type Store interface {
	Latest(ctx context.Context, sensorID string, limit int) ([]*domain.Reading, error)
}

// Service reads ordered telemetry for authorized callers.
type Service struct {
	resolver   *access.Resolver
	store      Store
	maxResults int
	log        *slog.Logger
}

// NewService returns a query service. maxResults is the default and upper
// bound for per-request limits.
func NewService(resolver *access.Resolver, store Store, maxResults int, log *slog.Logger) *Service {
	return &Service{resolver: resolver, store: store, maxResults: maxResults, log: log}
}

// Readings returns up to limit most-recent readings for tagID. The resolver
// runs first; a Denied verdict returns ErrForbidden before the telemetry
// store is touched. Zero readings yield ErrNoReadings.
func (s *Service) Readings(ctx context.Context, id *identity.Identity, tagID string, limit int) ([]*domain.Reading, error) {
	if tagID == "" {
		return nil, ErrMissingTag
	}

	verdict, err := s.resolver.Resolve(ctx, id, tagID, access.Read)
	if err != nil {
		return nil, fmt.Errorf("readings: %w", err)
	}
	if verdict == access.Denied {
		return nil, ErrForbidden
	}

	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}

	readings, err := s.store.Latest(ctx, tagID, limit)
	if err != nil {
		return nil, fmt.Errorf("readings: %w", err)
	}
	if len(readings) == 0 {
		return nil, ErrNoReadings
	}
	return readings, nil
}
