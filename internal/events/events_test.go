package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type captureEmitter struct {
	ch chan *Event
}

func (c *captureEmitter) Emit(_ context.Context, e *Event) error {
	c.ch <- e
	return nil
}

func TestEmitAsyncDeliversEvent(t *testing.T) {
	em := &captureEmitter{ch: make(chan *Event, 1)}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	sent := &Event{Type: TypeTagClaimed, TagID: "tag-1", UserID: "user-1", At: time.Now().UTC()}
	EmitAsync(em, sent, log)

	select {
	case got := <-em.ch:
		if got.Type != TypeTagClaimed || got.TagID != "tag-1" {
			t.Fatalf("delivered event = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestEmitAsyncNilSafe(t *testing.T) {
	// Neither a nil emitter nor a nil event may panic or block.
	EmitAsync(nil, &Event{Type: TypeTagShared}, nil)
	em := &captureEmitter{ch: make(chan *Event, 1)}
	EmitAsync(em, nil, nil)

	select {
	case e := <-em.ch:
		t.Fatalf("nil event was emitted: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventJSONOmitsUnsetFields(t *testing.T) {
	raw, err := json.Marshal(&Event{Type: TypeBatchIngested, GatewayMAC: "AA:BB", Count: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	if !strings.Contains(s, `"type":"batch.ingested"`) || !strings.Contains(s, `"count":3`) {
		t.Fatalf("payload missing fields: %s", s)
	}
	for _, absent := range []string{"tag_id", "user_id", "grantee_id"} {
		if strings.Contains(s, absent) {
			t.Fatalf("payload carries unset field %q: %s", absent, s)
		}
	}
}
