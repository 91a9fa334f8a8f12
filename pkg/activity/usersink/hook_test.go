package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-profiles/pkg/activity"
	"github.com/goliatone/go-profiles/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsResolvedEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildProfileResolvedEvent(activity.BootstrapEventInput{
		ActorID:    actorID.String(),
		TenantID:   tenantID.String(),
		Channel:    "profiles",
		Profile:    "postgres",
		Source:     "music-db",
		Bindings:   []string{"music-db"},
		OccurredAt: now,
	})
	event.DefinitionCode = "profiles:resolve"
	event.Recipients = []string{"ops@example.com"}

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID {
		t.Fatalf("unexpected identity fields: %+v", record)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected nil user, got %s", record.UserID)
	}
	if record.Verb != activity.VerbProfileResolved || record.ObjectType != activity.ObjectProfile || record.ObjectID != "postgres" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "profiles" || !record.OccurredAt.Equal(now) {
		t.Fatalf("unexpected channel or time: %+v", record)
	}
	if record.Data["source"] != "music-db" || record.Data["definition_code"] != "profiles:resolve" {
		t.Fatalf("unexpected data: %+v", record.Data)
	}
	recipients, ok := record.Data["recipients"].([]string)
	if !ok || len(recipients) != 1 || recipients[0] != "ops@example.com" {
		t.Fatalf("expected recipients metadata got %v", record.Data["recipients"])
	}
}

func TestHookNotifyFallsBackToSystemActor(t *testing.T) {
	sink := &recordingSink{}
	system := uuid.New()
	hook := usersink.Hook{Sink: sink, SystemActor: system}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbOverlayInstalled,
		ActorID:    "not-a-uuid",
		ObjectType: activity.ObjectPropertySource,
		ObjectID:   "profilesAutoConfig",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sink.records[0].ActorID != system {
		t.Fatalf("expected system actor, got %s", sink.records[0].ActorID)
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
	if sink.records[0].Data != nil {
		t.Fatalf("expected nil data, got %+v", sink.records[0].Data)
	}
}

func TestHookNotifySkipsInvalidEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookWithoutSinkIsNoop(t *testing.T) {
	if err := (usersink.Hook{}).Notify(context.Background(), activity.Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
