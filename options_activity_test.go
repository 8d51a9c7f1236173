package userconfig

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-userconfig/pkg/activity"
	"github.com/goliatone/go-userconfig/pkg/state"
)

func TestWithActivityHooksClonesAndFiltersNil(t *testing.T) {
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return nil })

	store, err := New("hooks", Flat{"a": 1}, WithBackend(state.NewMemoryStore()), WithActivityHooks(activity.Hooks{nil, hook}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	hooks := store.ActivityHooks()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}

	// Mutate returned slice and ensure the store is unaffected.
	hooks[0] = nil
	again := store.ActivityHooks()
	if len(again) != 1 || again[0] == nil {
		t.Fatalf("expected cloned hooks unaffected by mutation, got %+v", again)
	}
}

func TestActivityHooksDefaultNil(t *testing.T) {
	store, err := New("hooks", Flat{"a": 1}, WithBackend(state.NewMemoryStore()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if hooks := store.ActivityHooks(); hooks != nil {
		t.Fatalf("expected nil hooks by default, got %+v", hooks)
	}
}

func TestSettingLifecycleEmitsEvents(t *testing.T) {
	capture := &activity.CaptureHook{}
	store, err := New("events", Flat{"width": 800},
		WithBackend(state.NewMemoryStore()),
		WithVersion("1.0.0"),
		WithActivityHooks(activity.Hooks{capture}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected a fresh store to emit nothing, got %v", capture.Verbs())
	}

	if err := store.Set("", "height", 600); err != nil {
		t.Fatalf("set height: %v", err)
	}
	if err := store.Set("", "width", 1024); err != nil {
		t.Fatalf("set width: %v", err)
	}
	if err := store.Set("", "width", 1024); err != nil {
		t.Fatalf("set width again: %v", err)
	}
	if _, err := store.RemoveOption("", "height"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.ResetToDefaults(true); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := store.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	want := []string{
		activity.VerbSettingCreated,
		activity.VerbSettingUpdated,
		activity.VerbSettingRemoved,
		activity.VerbStoreReset,
		activity.VerbStoreCleaned,
	}
	if got := capture.Verbs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("verbs mismatch: want %v got %v", want, got)
	}

	updated := capture.Events[1]
	if updated.ObjectType != activity.ObjectSetting || updated.ObjectID != "events/main/width" {
		t.Fatalf("unexpected object: %s %s", updated.ObjectType, updated.ObjectID)
	}
	if updated.Metadata["old_value"] != 800 || updated.Metadata["new_value"] != 1024 {
		t.Fatalf("unexpected values: %+v", updated.Metadata)
	}
	if updated.Channel != activity.DefaultChannel {
		t.Fatalf("expected default channel, got %q", updated.Channel)
	}
}

func TestMigrationEmitsEvent(t *testing.T) {
	backend := state.NewMemoryStore()
	if _, err := New("migrating", Flat{"width": 800}, WithBackend(backend), WithVersion("1.0.0")); err != nil {
		t.Fatalf("first open: %v", err)
	}

	capture := &activity.CaptureHook{}
	_, err := New("migrating", Flat{"width": 800},
		WithBackend(backend),
		WithVersion("2.0.0"),
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{Enabled: true, ActorID: "installer"}),
	)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one event, got %v", capture.Verbs())
	}
	event := capture.Events[0]
	if event.Verb != activity.VerbStoreMigrated || event.ActorID != "installer" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Metadata["from_version"] != "1.0.0" || event.Metadata["to_version"] != "2.0.0" {
		t.Fatalf("unexpected versions: %+v", event.Metadata)
	}
}

func TestActivityConfigCanDisableEmission(t *testing.T) {
	capture := &activity.CaptureHook{}
	store, err := New("quiet", Flat{"width": 800},
		WithBackend(state.NewMemoryStore()),
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{Enabled: false}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := store.Set("", "width", 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events, got %v", capture.Verbs())
	}
}

func TestHookFailureDoesNotFailMutation(t *testing.T) {
	capture := &activity.CaptureHook{Err: errors.New("sink down")}
	store, err := New("failing", Flat{"width": 800},
		WithBackend(state.NewMemoryStore()),
		WithActivityHooks(activity.Hooks{capture}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := store.Set("", "width", 1); err != nil {
		t.Fatalf("expected set to succeed, got %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected hook to be called once, got %d", len(capture.Events))
	}
}

func TestHooksMayReadTheStore(t *testing.T) {
	var seen any
	var store *Store
	hook := activity.HookFunc(func(context.Context, activity.Event) error {
		seen, _ = store.Get("", "width")
		return nil
	})
	var err error
	store, err = New("reentrant", Flat{"width": 800},
		WithBackend(state.NewMemoryStore()),
		WithActivityHooks(activity.Hooks{hook}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := store.Set("", "width", 900); err != nil {
		t.Fatalf("set: %v", err)
	}
	if seen != 900 {
		t.Fatalf("expected hook to observe the new value, got %v", seen)
	}
}
