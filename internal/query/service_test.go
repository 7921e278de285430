package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"tagnet/backend/internal/access"
	"tagnet/backend/internal/identity"
	readingdomain "tagnet/backend/internal/reading/domain"
	tagdomain "tagnet/backend/internal/tag/domain"
)

type memRelationships struct {
	owners map[string]string
	shares map[string]map[string]bool
}

func (m *memRelationships) GetAccess(_ context.Context, userID, tagID string) (tagdomain.Access, error) {
	return tagdomain.Access{
		Owner:  m.owners[tagID] == userID,
		Shared: m.shares[tagID][userID],
	}, nil
}

func (m *memRelationships) GetOwnership(_ context.Context, tagID string) (*tagdomain.OwnershipRecord, error) {
	owner, ok := m.owners[tagID]
	if !ok {
		return nil, nil
	}
	return &tagdomain.OwnershipRecord{TagID: tagID, OwnerID: owner}, nil
}

type memReadingStore struct {
	mu       sync.Mutex
	bySensor map[string][]*readingdomain.Reading
	reads    int
}

func (m *memReadingStore) Latest(_ context.Context, sensorID string, limit int) ([]*readingdomain.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	list := m.bySensor[sensorID]
	if len(list) > limit {
		list = list[:limit]
	}
	return append([]*readingdomain.Reading(nil), list...), nil
}

func newTestQuery(rel *memRelationships, store *memReadingStore, requireAuth bool) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(access.NewResolver(rel, requireAuth), store, 15, log)
}

func TestReadings_Owner(t *testing.T) {
	rel := &memRelationships{owners: map[string]string{"T1": "u1"}, shares: map[string]map[string]bool{}}
	store := &memReadingStore{bySensor: map[string][]*readingdomain.Reading{
		"T1": {{SensorID: "T1", Timestamp: 2000, Data: "beef"}, {SensorID: "T1", Timestamp: 1000, Data: "dead"}},
	}}
	svc := newTestQuery(rel, store, true)

	got, err := svc.Readings(context.Background(), &identity.Identity{ID: "u1"}, "T1", 10)
	if err != nil {
		t.Fatalf("Readings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Timestamp != 2000 {
		t.Errorf("first reading timestamp = %d, want most recent first", got[0].Timestamp)
	}
}

func TestReadings_LimitClamped(t *testing.T) {
	readings := make([]*readingdomain.Reading, 40)
	for i := range readings {
		readings[i] = &readingdomain.Reading{SensorID: "T1", Timestamp: int64(40 - i)}
	}
	rel := &memRelationships{owners: map[string]string{"T1": "u1"}, shares: map[string]map[string]bool{}}
	store := &memReadingStore{bySensor: map[string][]*readingdomain.Reading{"T1": readings}}
	svc := newTestQuery(rel, store, true)
	id := &identity.Identity{ID: "u1"}

	got, err := svc.Readings(context.Background(), id, "T1", 0)
	if err != nil {
		t.Fatalf("Readings: %v", err)
	}
	if len(got) != 15 {
		t.Errorf("default limit: len = %d, want 15", len(got))
	}

	got, err = svc.Readings(context.Background(), id, "T1", 1000)
	if err != nil {
		t.Fatalf("Readings: %v", err)
	}
	if len(got) != 15 {
		t.Errorf("oversized limit: len = %d, want clamp to 15", len(got))
	}

	got, err = svc.Readings(context.Background(), id, "T1", 3)
	if err != nil {
		t.Fatalf("Readings: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("explicit limit: len = %d, want 3", len(got))
	}
}

func TestReadings_DeniedBeforeStoreAccess(t *testing.T) {
	rel := &memRelationships{owners: map[string]string{"T1": "u1"}, shares: map[string]map[string]bool{}}
	store := &memReadingStore{bySensor: map[string][]*readingdomain.Reading{"T1": {{SensorID: "T1"}}}}
	svc := newTestQuery(rel, store, true)

	_, err := svc.Readings(context.Background(), &identity.Identity{ID: "intruder"}, "T1", 10)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if store.reads != 0 {
		t.Errorf("store reads = %d, want 0 after denial", store.reads)
	}
}

func TestReadings_UnknownTagSameAsDenied(t *testing.T) {
	rel := &memRelationships{owners: map[string]string{"claimed": "u1"}, shares: map[string]map[string]bool{}}
	store := &memReadingStore{bySensor: map[string][]*readingdomain.Reading{}}
	svc := newTestQuery(rel, store, true)
	id := &identity.Identity{ID: "u9"}

	errClaimed := func() error { _, err := svc.Readings(context.Background(), id, "claimed", 1); return err }()
	errUnknown := func() error { _, err := svc.Readings(context.Background(), id, "never-seen", 1); return err }()
	if !errors.Is(errClaimed, ErrForbidden) || !errors.Is(errUnknown, ErrForbidden) {
		t.Errorf("errs = %v, %v; both must be ErrForbidden", errClaimed, errUnknown)
	}
}

func TestReadings_AnonymousRequiresAuthNoStoreTouch(t *testing.T) {
	rel := &memRelationships{owners: map[string]string{"T1": "u1"}, shares: map[string]map[string]bool{}}
	store := &memReadingStore{bySensor: map[string][]*readingdomain.Reading{"T1": {{SensorID: "T1"}}}}
	svc := newTestQuery(rel, store, true)

	_, err := svc.Readings(context.Background(), nil, "T1", 10)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if store.reads != 0 {
		t.Errorf("store reads = %d, want 0", store.reads)
	}
}

func TestReadings_AnonymousPublicReadMode(t *testing.T) {
	rel := &memRelationships{owners: map[string]string{"T1": "u1"}, shares: map[string]map[string]bool{}}
	store := &memReadingStore{bySensor: map[string][]*readingdomain.Reading{"T1": {{SensorID: "T1", Data: "x"}}}}
	svc := newTestQuery(rel, store, false)

	got, err := svc.Readings(context.Background(), nil, "T1", 10)
	if err != nil {
		t.Fatalf("Readings: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestReadings_EmptyIsNotFound(t *testing.T) {
	rel := &memRelationships{owners: map[string]string{"T1": "u1"}, shares: map[string]map[string]bool{}}
	store := &memReadingStore{bySensor: map[string][]*readingdomain.Reading{}}
	svc := newTestQuery(rel, store, true)

	_, err := svc.Readings(context.Background(), &identity.Identity{ID: "u1"}, "T1", 10)
	if !errors.Is(err, ErrNoReadings) {
		t.Fatalf("err = %v, want ErrNoReadings", err)
	}
}

func TestReadings_SharedReader(t *testing.T) {
	rel := &memRelationships{
		owners: map[string]string{"T1": "u1"},
		shares: map[string]map[string]bool{"T1": {"u2": true}},
	}
	store := &memReadingStore{bySensor: map[string][]*readingdomain.Reading{"T1": {{SensorID: "T1"}}}}
	svc := newTestQuery(rel, store, true)

	if _, err := svc.Readings(context.Background(), &identity.Identity{ID: "u2"}, "T1", 10); err != nil {
		t.Fatalf("Readings as grantee: %v", err)
	}

	// Revoke and verify the denial is immediate.
	delete(rel.shares["T1"], "u2")
	if _, err := svc.Readings(context.Background(), &identity.Identity{ID: "u2"}, "T1", 10); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err after revoke = %v, want ErrForbidden", err)
	}
}

func TestReadings_MissingTag(t *testing.T) {
	svc := newTestQuery(&memRelationships{owners: map[string]string{}, shares: map[string]map[string]bool{}}, &memReadingStore{}, true)

	if _, err := svc.Readings(context.Background(), &identity.Identity{ID: "u1"}, "", 10); !errors.Is(err, ErrMissingTag) {
		t.Fatalf("err = %v, want ErrMissingTag", err)
	}
}
