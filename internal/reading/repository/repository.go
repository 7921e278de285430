package repository

import (
	"context"

	"tagnet/backend/internal/reading/domain"
)

// Repository defines the telemetry store: bulk writes keyed by
// (sensor id, timestamp) and count-limited range reads per sensor.
type Repository interface {
	// WriteBatch submits all readings as one bulk write. The store may
	// chunk internally, but callers treat the submission as atomic: on
	// error nothing is considered written and the whole batch is retried.
	WriteBatch(ctx context.Context, readings []*domain.Reading) error
	// Latest returns up to limit readings for sensorID, most recent first.
	Latest(ctx context.Context, sensorID string, limit int) ([]*domain.Reading, error)
}
