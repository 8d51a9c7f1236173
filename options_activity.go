package userconfig

import "github.com/goliatone/go-userconfig/pkg/activity"

// WithActivityHooks attaches activity hooks to the store. Hooks are cloned
// and nil entries dropped. Emission is enabled unless WithActivityConfig
// says otherwise.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.CloneHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig sets the channel and the actor, user and tenant stamped
// on emitted events.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *storeConfig) {
		c := config
		cfg.activityConfig = &c
	}
}

// ActivityHooks returns a cloned slice of the configured hooks. The returned
// slice can be safely mutated by the caller.
func (s *Store) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return activity.CloneHooks(s.hooks)
}

func (s *Store) configureActivity(cfg storeConfig) {
	s.hooks = cfg.activityHooks
	config := activity.Config{Enabled: true}
	if cfg.activityConfig != nil {
		config = *cfg.activityConfig
	}
	s.emitter = activity.NewEmitter(s.hooks, config)
}

func (s *Store) eventInput(input activity.SettingEventInput) activity.SettingEventInput {
	input.Store = s.name
	input.SnapshotID = s.meta.SnapshotID
	if input.Path == "" {
		input.Path = s.filenameLocked()
	}
	return input
}

// emit runs outside the store lock so hooks may read the store. Failures are
// logged, never returned to the caller of the mutation.
func (s *Store) emit(events []activity.Event) {
	if !s.emitter.Enabled() {
		return
	}
	for _, event := range events {
		if event.Verb == "" {
			continue
		}
		if err := s.emitter.Emit(s.ctx, event); err != nil {
			s.logger.Warn().
				Err(err).
				Str("event", "userconfig.activity_failed").
				Str("verb", event.Verb).
				Msg("activity hook failed")
		}
	}
}
