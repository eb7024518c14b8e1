package audit

import (
	"testing"
	"time"
)

func TestRecordAssignsIdentity(t *testing.T) {
	trail := NewTrail(10)
	event := &Event{Action: ActionCreate, EntityKind: EntityElement, Status: StatusSuccess}
	trail.Record(event)

	if event.ID == "" {
		t.Error("Record must assign an event ID")
	}
	if event.Timestamp.IsZero() {
		t.Error("Record must stamp the event")
	}
	if trail.EventCount() != 1 {
		t.Errorf("EventCount = %d", trail.EventCount())
	}
	trail.Record(nil) // ignored
	if trail.EventCount() != 1 {
		t.Error("nil events must not count")
	}
}

func TestQueryFilters(t *testing.T) {
	trail := NewTrail(10)
	trail.Record(&Event{Author: "dana", Action: ActionCreate, EntityKind: EntityElement, EntityID: "1", Status: StatusSuccess})
	trail.Record(&Event{Author: "kim", Action: ActionDelete, EntityKind: EntityElement, EntityID: "1", Status: StatusFailure})
	trail.Record(&Event{Author: "dana", Action: ActionBaseline, EntityKind: EntityReviewData, EntityID: "v1", Status: StatusSuccess})

	if got := trail.Query(nil); len(got) != 3 {
		t.Fatalf("nil filter returned %d events", len(got))
	}
	if got := trail.Query(&Filter{Author: "dana"}); len(got) != 2 {
		t.Errorf("author filter returned %d events", len(got))
	}
	if got := trail.Query(&Filter{Status: StatusFailure}); len(got) != 1 || got[0].Action != ActionDelete {
		t.Errorf("status filter = %+v", got)
	}
	if got := trail.Query(&Filter{EntityKind: EntityReviewData, EntityID: "v1"}); len(got) != 1 {
		t.Errorf("entity filter returned %d events", len(got))
	}

	future := time.Now().Add(time.Hour)
	if got := trail.Query(&Filter{StartTime: &future}); len(got) != 0 {
		t.Errorf("future window returned %d events", len(got))
	}
}

func TestRingDropsOldest(t *testing.T) {
	trail := NewTrail(2)
	trail.Record(&Event{EntityID: "a"})
	trail.Record(&Event{EntityID: "b"})
	trail.Record(&Event{EntityID: "c"})

	retained := trail.Query(nil)
	if len(retained) != 2 {
		t.Fatalf("retained %d events, want 2", len(retained))
	}
	if retained[0].EntityID != "b" || retained[1].EntityID != "c" {
		t.Errorf("ring kept %q, %q", retained[0].EntityID, retained[1].EntityID)
	}
	if trail.EventCount() != 3 {
		t.Errorf("EventCount must include rotated events, got %d", trail.EventCount())
	}
}
