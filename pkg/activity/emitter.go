package activity

import (
	"context"
	"strings"
)

// DefaultChannel is applied to events emitted without an explicit channel.
const DefaultChannel = "userconfig"

// Config controls activity emission for a store.
type Config struct {
	Enabled bool
	Channel string
	// ActorID, UserID and TenantID are stamped on events that leave them empty.
	ActorID  string
	UserID   string
	TenantID string
}

// Emitter fans out events to hooks while applying Config defaults.
type Emitter struct {
	hooks Hooks
	cfg   Config
}

// NewEmitter constructs an emitter. It stays disabled unless cfg.Enabled is
// set and at least one non-nil hook is supplied.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	cfg.Channel = strings.TrimSpace(cfg.Channel)
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	normalized := CloneHooks(hooks)
	cfg.Enabled = cfg.Enabled && len(normalized) > 0
	return &Emitter{hooks: normalized, cfg: cfg}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.cfg.Enabled
}

// Emit forwards event to all hooks after applying the configured defaults.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.cfg.Channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.cfg.ActorID
	}
	if strings.TrimSpace(event.UserID) == "" {
		event.UserID = e.cfg.UserID
	}
	if strings.TrimSpace(event.TenantID) == "" {
		event.TenantID = e.cfg.TenantID
	}
	return e.hooks.Notify(ctx, event)
}

// CloneHooks copies hooks dropping nil entries. It returns nil when nothing
// remains.
func CloneHooks(hooks Hooks) Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make(Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}
