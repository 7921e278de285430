// Package ingest validates and stores batches of raw gateway readings.
// Authorization is the gateway credential's concern, established before the
// pipeline runs; no per-tag check happens here.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tagnet/backend/internal/events"
	"tagnet/backend/internal/reading/domain"
)

// ErrInvalidBatch is returned when any element of a batch fails validation.
// The whole batch is rejected; nothing is written.
var ErrInvalidBatch = errors.New("invalid batch")

// requiredFields must be present on every raw element. coordinates may be
// empty but the key must exist.
var requiredFields = []string{"rssi", "data", "coordinates", "timestamp", "id", "gwmac"}

// RawReading is one undecoded element of a gateway batch. Field presence is
// checked against the required set before any transformation runs.
type RawReading map[string]json.RawMessage

// FieldError reports the first offending element of a rejected batch.
type FieldError struct {
	Index int
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("element %d: missing or malformed field %q", e.Index, e.Field)
}

// Store is the telemetry-store surface the pipeline needs.
type Store interface {
	WriteBatch(ctx context.Context, readings []*domain.Reading) error
}

// Pipeline validates raw batches and writes them to the telemetry store.
type Pipeline struct {
	store   Store
	emitter events.Emitter
	log     *slog.Logger
}

// NewPipeline returns a Pipeline over the given store. emitter may be nil.
func NewPipeline(store Store, emitter events.Emitter, log *slog.Logger) *Pipeline {
	return &Pipeline{store: store, emitter: emitter, log: log}
}

// Ingest validates the batch, formats it into store rows with a
// server-assigned ingestion timestamp, and submits it as one bulk write.
// Validation is all-or-nothing: one bad element rejects the whole batch with
// ErrInvalidBatch and nothing is written. A store failure also leaves the
// caller to resubmit the entire batch; elements are never retried piecemeal.
func (p *Pipeline) Ingest(ctx context.Context, gatewayMAC string, batch []RawReading) (int, error) {
	if len(batch) == 0 {
		return 0, fmt.Errorf("%w: empty batch", ErrInvalidBatch)
	}

	readings := make([]*domain.Reading, len(batch))
	receivedAt := time.Now().UTC().UnixMilli()
	for i, raw := range batch {
		rd, err := formatReading(raw, receivedAt)
		if err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				fe.Index = i
			}
			p.log.Debug("batch rejected", "gateway", gatewayMAC, "reason", err)
			return 0, fmt.Errorf("%w: %s", ErrInvalidBatch, err)
		}
		readings[i] = rd
	}

	if err := p.store.WriteBatch(ctx, readings); err != nil {
		return 0, fmt.Errorf("ingest: %w", err)
	}

	p.log.Info("batch ingested", "gateway", gatewayMAC, "count", len(readings))
	events.EmitAsync(p.emitter, &events.Event{
		Type: events.TypeBatchIngested, GatewayMAC: gatewayMAC, Count: len(readings),
		At: time.UnixMilli(receivedAt).UTC(),
	}, p.log)
	return len(readings), nil
}

// formatReading checks the required field set and converts one raw element
// into the store's row shape. receivedAt is the server-assigned ingestion
// timestamp shared by the whole batch.
func formatReading(raw RawReading, receivedAt int64) (*domain.Reading, error) {
	for _, f := range requiredFields {
		if _, ok := raw[f]; !ok {
			return nil, &FieldError{Field: f}
		}
	}

	rd := &domain.Reading{ReceivedAt: receivedAt}
	if err := json.Unmarshal(raw["id"], &rd.SensorID); err != nil || rd.SensorID == "" {
		return nil, &FieldError{Field: "id"}
	}
	if err := json.Unmarshal(raw["timestamp"], &rd.Timestamp); err != nil {
		return nil, &FieldError{Field: "timestamp"}
	}
	if err := json.Unmarshal(raw["data"], &rd.Data); err != nil {
		return nil, &FieldError{Field: "data"}
	}
	if err := json.Unmarshal(raw["rssi"], &rd.RSSI); err != nil {
		return nil, &FieldError{Field: "rssi"}
	}
	if err := json.Unmarshal(raw["gwmac"], &rd.GatewayMAC); err != nil {
		return nil, &FieldError{Field: "gwmac"}
	}
	if err := json.Unmarshal(raw["coordinates"], &rd.Coordinates); err != nil {
		return nil, &FieldError{Field: "coordinates"}
	}
	if received, ok := raw["received"]; ok {
		// Optional gateway-reported receive time.
		if err := json.Unmarshal(received, &rd.GatewayTimestamp); err != nil {
			return nil, &FieldError{Field: "received"}
		}
	}
	return rd, nil
}
