package activity

import (
	"strings"
	"time"
)

// Verbs emitted by a settings store.
const (
	VerbSettingCreated = "setting.created"
	VerbSettingUpdated = "setting.updated"
	VerbSettingRemoved = "setting.removed"
	VerbStoreReset     = "store.reset"
	VerbStoreMigrated  = "store.migrated"
	VerbStoreCleaned   = "store.cleaned"
	VerbStoreReloaded  = "store.reloaded"
)

// Object types used as Event.ObjectType.
const (
	ObjectSetting = "userconfig.setting"
	ObjectStore   = "userconfig.store"
)

// SettingEventInput describes one change to a store or to a single option.
type SettingEventInput struct {
	Store    string
	Section  string
	Option   string
	OldValue any
	NewValue any

	// FromVersion and ToVersion are set for migrations.
	FromVersion string
	ToVersion   string
	SnapshotID  string
	Path        string

	Metadata   map[string]any
	OccurredAt time.Time
}

func BuildSettingCreatedEvent(input SettingEventInput) Event {
	return buildSettingEvent(VerbSettingCreated, input)
}

func BuildSettingUpdatedEvent(input SettingEventInput) Event {
	return buildSettingEvent(VerbSettingUpdated, input)
}

func BuildSettingRemovedEvent(input SettingEventInput) Event {
	return buildSettingEvent(VerbSettingRemoved, input)
}

func BuildStoreResetEvent(input SettingEventInput) Event {
	return buildStoreEvent(VerbStoreReset, input)
}

func BuildStoreMigratedEvent(input SettingEventInput) Event {
	return buildStoreEvent(VerbStoreMigrated, input)
}

func BuildStoreCleanedEvent(input SettingEventInput) Event {
	return buildStoreEvent(VerbStoreCleaned, input)
}

func BuildStoreReloadedEvent(input SettingEventInput) Event {
	return buildStoreEvent(VerbStoreReloaded, input)
}

// SettingKey renders the object id of a single option: "store/section/option".
func SettingKey(store, section, option string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{store, section, option} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "/")
}

func buildSettingEvent(verb string, input SettingEventInput) Event {
	metadata := baseMetadata(input)
	if input.Section != "" {
		metadata["section"] = input.Section
	}
	if input.Option != "" {
		metadata["option"] = input.Option
	}
	if input.OldValue != nil {
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata["new_value"] = input.NewValue
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectSetting,
		ObjectID:   SettingKey(input.Store, input.Section, input.Option),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func buildStoreEvent(verb string, input SettingEventInput) Event {
	metadata := baseMetadata(input)
	if input.FromVersion != "" {
		metadata["from_version"] = input.FromVersion
	}
	if input.ToVersion != "" {
		metadata["to_version"] = input.ToVersion
	}
	objectID := strings.TrimSpace(input.Store)
	if objectID == "" {
		objectID = ObjectStore
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectStore,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func baseMetadata(input SettingEventInput) map[string]any {
	metadata := cloneMap(input.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	if input.Store != "" {
		metadata["store"] = input.Store
	}
	if input.SnapshotID != "" {
		metadata["snapshot_id"] = input.SnapshotID
	}
	if input.Path != "" {
		metadata["path"] = input.Path
	}
	return metadata
}
