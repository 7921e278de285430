package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"tagnet/backend/internal/reading/domain"
)

type memTelemetryStore struct {
	mu       sync.Mutex
	readings []*domain.Reading
	failNext error
	writes   int
}

func (m *memTelemetryStore) WriteBatch(_ context.Context, readings []*domain.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.readings = append(m.readings, readings...)
	return nil
}

func (m *memTelemetryStore) stored() []*domain.Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Reading(nil), m.readings...)
}

func newTestPipeline(store *memTelemetryStore) *Pipeline {
	return NewPipeline(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func rawReading(t *testing.T, overrides map[string]any, drop ...string) RawReading {
	t.Helper()
	base := map[string]any{
		"rssi":        -76,
		"data":        "deadbeef",
		"coordinates": "",
		"timestamp":   time.Now().UnixMilli(),
		"id":          "AA:BB:CC:DD:EE:FF",
		"gwmac":       "11:22:33:44:55:66",
	}
	for k, v := range overrides {
		base[k] = v
	}
	for _, k := range drop {
		delete(base, k)
	}
	raw := RawReading{}
	for k, v := range base {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %q: %v", k, err)
		}
		raw[k] = b
	}
	return raw
}

func TestIngest_WritesBatch(t *testing.T) {
	store := &memTelemetryStore{}
	p := newTestPipeline(store)

	batch := []RawReading{
		rawReading(t, map[string]any{"id": "S1", "timestamp": int64(1000)}),
		rawReading(t, map[string]any{"id": "S2", "timestamp": int64(2000)}),
	}
	count, err := p.Ingest(context.Background(), "gw-1", batch)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	stored := store.stored()
	if len(stored) != 2 {
		t.Fatalf("stored = %d readings, want 2", len(stored))
	}
	if stored[0].SensorID != "S1" || stored[0].Timestamp != 1000 {
		t.Errorf("stored[0] = %+v", stored[0])
	}
	if stored[0].ReceivedAt == 0 {
		t.Error("ReceivedAt must be server-assigned at format time")
	}
}

func TestIngest_MissingFieldRejectsWholeBatch(t *testing.T) {
	store := &memTelemetryStore{}
	p := newTestPipeline(store)

	batch := []RawReading{
		rawReading(t, map[string]any{"id": "S1"}),
		rawReading(t, map[string]any{"id": "S2"}),
		rawReading(t, map[string]any{"id": "S3"}),
		rawReading(t, map[string]any{"id": "S4"}),
		rawReading(t, map[string]any{"id": "S5"}),
		rawReading(t, map[string]any{"id": "S6"}, "rssi"), // missing rssi
	}
	count, err := p.Ingest(context.Background(), "gw-1", batch)
	if !errors.Is(err, ErrInvalidBatch) {
		t.Fatalf("err = %v, want ErrInvalidBatch", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if !strings.Contains(err.Error(), "rssi") {
		t.Errorf("error should name the offending field, got %q", err.Error())
	}
	if len(store.stored()) != 0 {
		t.Errorf("stored = %d readings, want 0 (nothing may be written)", len(store.stored()))
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want 0", store.writes)
	}

	// Resubmitting the five good elements succeeds completely.
	count, err = p.Ingest(context.Background(), "gw-1", batch[:5])
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if count != 5 || len(store.stored()) != 5 {
		t.Errorf("count = %d, stored = %d, want 5 and 5", count, len(store.stored()))
	}
}

func TestIngest_EmptyCoordinatesAllowed(t *testing.T) {
	store := &memTelemetryStore{}
	p := newTestPipeline(store)

	if _, err := p.Ingest(context.Background(), "gw-1", []RawReading{
		rawReading(t, map[string]any{"coordinates": ""}),
	}); err != nil {
		t.Fatalf("Ingest with empty coordinates: %v", err)
	}
}

func TestIngest_MissingCoordinatesRejected(t *testing.T) {
	store := &memTelemetryStore{}
	p := newTestPipeline(store)

	_, err := p.Ingest(context.Background(), "gw-1", []RawReading{
		rawReading(t, nil, "coordinates"),
	})
	if !errors.Is(err, ErrInvalidBatch) {
		t.Fatalf("err = %v, want ErrInvalidBatch", err)
	}
}

func TestIngest_WrongFieldTypeRejected(t *testing.T) {
	store := &memTelemetryStore{}
	p := newTestPipeline(store)

	_, err := p.Ingest(context.Background(), "gw-1", []RawReading{
		rawReading(t, map[string]any{"rssi": "strong"}),
	})
	if !errors.Is(err, ErrInvalidBatch) {
		t.Fatalf("err = %v, want ErrInvalidBatch", err)
	}
	if len(store.stored()) != 0 {
		t.Error("nothing may be written for a malformed batch")
	}
}

func TestIngest_EmptyBatchRejected(t *testing.T) {
	p := newTestPipeline(&memTelemetryStore{})

	if _, err := p.Ingest(context.Background(), "gw-1", nil); !errors.Is(err, ErrInvalidBatch) {
		t.Fatalf("err = %v, want ErrInvalidBatch", err)
	}
}

func TestIngest_StoreFailureWritesNothing(t *testing.T) {
	store := &memTelemetryStore{failNext: errors.New("connection refused")}
	p := newTestPipeline(store)

	batch := []RawReading{rawReading(t, nil)}
	if _, err := p.Ingest(context.Background(), "gw-1", batch); err == nil {
		t.Fatal("Ingest should surface the store failure")
	}
	if len(store.stored()) != 0 {
		t.Error("failed batch must not be partially stored")
	}

	// The caller retries the whole batch, which now succeeds.
	count, err := p.Ingest(context.Background(), "gw-1", batch)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestIngest_OptionalGatewayTimestamp(t *testing.T) {
	store := &memTelemetryStore{}
	p := newTestPipeline(store)

	if _, err := p.Ingest(context.Background(), "gw-1", []RawReading{
		rawReading(t, map[string]any{"received": "2026-01-02T15:04:05Z"}),
	}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if got := store.stored()[0].GatewayTimestamp; got != "2026-01-02T15:04:05Z" {
		t.Errorf("GatewayTimestamp = %q", got)
	}
}
