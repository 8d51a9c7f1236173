package userconfig

import (
	"context"

	"github.com/goliatone/go-userconfig/pkg/activity"
	"github.com/goliatone/go-userconfig/pkg/state"
	"github.com/rs/zerolog"
)

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	load           bool
	version        string
	dir            string
	defaultSection string
	backend        state.Store
	logger         zerolog.Logger
	ctx            context.Context

	activityHooks  activity.Hooks
	activityConfig *activity.Config

	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	evalLogger   EvaluatorLogger
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{
		load:           true,
		defaultSection: DefaultSection,
		logger:         zerolog.Nop(),
		ctx:            context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithLoad controls whether New reads the existing file. Defaults to true.
func WithLoad(load bool) Option {
	return func(cfg *storeConfig) {
		cfg.load = load
	}
}

// WithVersion sets the configuration version. A persisted file carrying a
// different version is migrated on load.
func WithVersion(version string) Option {
	return func(cfg *storeConfig) {
		cfg.version = version
	}
}

// WithDir stores the file in dir instead of the home directory. Ignored when
// WithBackend is used.
func WithDir(dir string) Option {
	return func(cfg *storeConfig) {
		cfg.dir = dir
	}
}

// WithDefaultSection renames the section used for Flat defaults, for the
// empty section argument and for the version tag.
func WithDefaultSection(name string) Option {
	return func(cfg *storeConfig) {
		if name != "" {
			cfg.defaultSection = name
		}
	}
}

// WithBackend replaces the file backend.
func WithBackend(backend state.Store) Option {
	return func(cfg *storeConfig) {
		cfg.backend = backend
	}
}

// WithLogger attaches a zerolog logger. The store adds component and store
// fields to it.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *storeConfig) {
		cfg.logger = logger
	}
}

// WithContext sets the context passed to backend calls made without one.
func WithContext(ctx context.Context) Option {
	return func(cfg *storeConfig) {
		if ctx != nil {
			cfg.ctx = ctx
		}
	}
}

// WithEvaluator configures the evaluator used by Evaluate.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *storeConfig) {
		cfg.evaluator = e
	}
}
