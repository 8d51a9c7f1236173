package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-userconfig/pkg/activity"
	"github.com/goliatone/go-userconfig/pkg/activity/usersink"
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

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	userID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildSettingUpdatedEvent(activity.SettingEventInput{
		Store:      "demo",
		Section:    "window",
		Option:     "width",
		OldValue:   800,
		NewValue:   1024,
		OccurredAt: now,
	})
	event.ActorID = actorID.String()
	event.UserID = userID.String()
	event.TenantID = tenantID.String()
	event.Channel = "userconfig"

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.UserID != userID || record.TenantID != tenantID {
		t.Fatalf("unexpected identity fields: %+v", record)
	}
	if record.Verb != activity.VerbSettingUpdated || record.ObjectType != activity.ObjectSetting || record.ObjectID != "demo/window/width" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "userconfig" {
		t.Fatalf("expected channel userconfig got %q", record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["new_value"] != 1024 || record.Data["section"] != "window" {
		t.Fatalf("expected metadata passthrough got %+v", record.Data)
	}
}

func TestHookNotifyKeepsNonUUIDIdentifiers(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbStoreCleaned,
		ObjectType: activity.ObjectStore,
		ObjectID:   "demo",
		UserID:     "alice",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	record := sink.records[0]
	if record.UserID != uuid.Nil {
		t.Fatalf("expected nil uuid, got %s", record.UserID)
	}
	if record.Data["user_ref"] != "alice" {
		t.Fatalf("expected raw user ref preserved, got %+v", record.Data)
	}
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyWithoutSink(t *testing.T) {
	if err := (usersink.Hook{}).Notify(context.Background(), activity.Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("expected nil error without sink, got %v", err)
	}
}
