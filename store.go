package userconfig

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/goliatone/go-userconfig/pkg/activity"
	"github.com/goliatone/go-userconfig/pkg/state"
	"github.com/rs/zerolog"
)

// Store holds the settings of one named configuration: a defaults table
// fixing every option's kind, the current values as stored text, and the
// backing document they are persisted to after every mutation.
type Store struct {
	mu sync.RWMutex

	name           string
	defaultSection string
	ref            state.Ref
	backend        state.Store
	ctx            context.Context
	logger         zerolog.Logger
	emitter        *activity.Emitter
	hooks          activity.Hooks

	values   *table[string]
	defaults *table[defaultValue]
	// file mirrors the backing document as last loaded or saved; nil when
	// no document exists.
	file *table[string]
	meta state.Meta

	evaluator  Evaluator
	evalLogger EvaluatorLogger

	watcher io.Closer
	closed  bool
}

// New opens the store called name. Defaults, when supplied, are written to
// memory first; the existing file, when loaded, overrides them unless its
// version differs from WithVersion, in which case it is migrated. The
// resulting table is always saved.
func New(name string, defaults Defaults, opts ...Option) (*Store, error) {
	if err := checkStoreName(name); err != nil {
		return nil, fmt.Errorf("%w: %q", err, name)
	}
	cfg := applyOptions(opts)
	if err := checkVersion(cfg.version); err != nil {
		return nil, err
	}
	if err := checkSection(cfg.defaultSection); err != nil {
		return nil, err
	}

	s := &Store{
		name:           name,
		defaultSection: cfg.defaultSection,
		ref:            state.Ref{Name: name},
		ctx:            cfg.ctx,
		logger:         cfg.logger.With().Str("component", "userconfig").Str("store", name).Logger(),
		values:         newTable[string](),
		defaults:       newTable[defaultValue](),
	}
	s.backend = cfg.backend
	if s.backend == nil {
		s.backend = state.NewFileStore(state.WithDir(cfg.dir), state.WithLogger(s.logger))
	}
	s.configureActivity(cfg)
	s.configureEvaluator(cfg)

	supplied := defaultsSupplied(defaults)
	if supplied {
		for _, section := range defaults.sections(s.defaultSection) {
			if err := checkSection(section.Name); err != nil {
				return nil, err
			}
			s.defaults.ensure(section.Name)
			for _, option := range sortedKeys(section.Options) {
				if err := s.registerDefault(section.Name, option, section.Options[option]); err != nil {
					return nil, err
				}
			}
		}
		if err := s.resetLocked(false); err != nil {
			return nil, err
		}
	}

	var events []activity.Event
	if cfg.load {
		found, err := s.loadLocked(s.ctx)
		if err != nil {
			return nil, err
		}
		stored := s.storedVersion()
		if effectiveVersion(stored) != effectiveVersion(cfg.version) {
			removed, err := s.migrateLocked(cfg.version)
			if err != nil {
				return nil, err
			}
			if found {
				s.logger.Info().
					Str("event", "userconfig.migrated").
					Str("from_version", effectiveVersion(stored)).
					Str("to_version", effectiveVersion(cfg.version)).
					Int("removed_options", removed).
					Msg("configuration version changed, values reset to defaults")
				events = append(events, activity.BuildStoreMigratedEvent(s.eventInput(activity.SettingEventInput{
					FromVersion: effectiveVersion(stored),
					ToVersion:   effectiveVersion(cfg.version),
					Metadata:    map[string]any{"removed_options": removed},
				})))
			}
		} else if cfg.version != "" {
			if err := s.stampVersionLocked(cfg.version); err != nil {
				return nil, err
			}
		} else if stored != "" {
			s.defaults.set(s.defaultSection, VersionOption, newDefault(stored))
		}
		if !supplied {
			s.setAsDefaultsLocked()
		}
	} else if cfg.version != "" {
		if err := s.stampVersionLocked(cfg.version); err != nil {
			return nil, err
		}
	}

	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("event", "userconfig.opened").
		Str("path", s.filenameLocked()).
		Str("version", s.storedVersion()).
		Msg("settings store ready")
	s.emit(events)
	return s, nil
}

func defaultsSupplied(defaults Defaults) bool {
	switch d := defaults.(type) {
	case nil:
		return false
	case Flat:
		return d != nil
	case Sections:
		return d != nil
	}
	return true
}

func (s *Store) sectionName(section string) string {
	if section == "" {
		return s.defaultSection
	}
	return section
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

// Filename returns the path of the backing file, or "" when the backend is
// not file based.
func (s *Store) Filename() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filenameLocked()
}

func (s *Store) filenameLocked() string {
	locator, ok := s.backend.(state.Locator)
	if !ok {
		return ""
	}
	path, err := locator.Location(s.ref)
	if err != nil {
		return ""
	}
	return path
}

// Get returns the value of option in section, coerced to the type of its
// registered default. An empty section means the default section.
func (s *Store) Get(section, option string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(s.sectionName(section), option)
}

// GetOr is Get with a fallback: a missing section is created, and a missing
// option is set to fallback (registering its type and persisting) before
// fallback is returned.
func (s *Store) GetOr(section, option string, fallback any) (any, error) {
	var events []activity.Event
	defer func() { s.emit(events) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	section = s.sectionName(section)
	if err := checkSection(section); err != nil {
		return nil, err
	}
	if err := checkOption(option); err != nil {
		return nil, err
	}
	if raw, ok := s.values.get(section, option); ok {
		return s.decodeLocked(section, option, raw)
	}
	s.values.ensure(section)
	event, err := s.setLocked(section, option, fallback, setConfig{save: true})
	if err != nil {
		return nil, err
	}
	events = append(events, event)
	return fallback, nil
}

func (s *Store) getLocked(section, option string) (any, error) {
	sec, ok := s.values.section(section)
	if !ok {
		return nil, &UnknownSectionError{Section: section}
	}
	raw, ok := sec.get(option)
	if !ok {
		return nil, &UnknownOptionError{Section: section, Option: option}
	}
	return s.decodeLocked(section, option, raw)
}

// decodeLocked coerces raw by the registered default. Options without one
// are read as structured literals.
func (s *Store) decodeLocked(section, option, raw string) (any, error) {
	def, ok := s.defaults.get(section, option)
	if !ok {
		def = defaultValue{kind: KindStructured}
	}
	value, err := def.decode(raw)
	if err != nil {
		return nil, &CoercionError{Section: section, Option: option, Kind: def.kind, Raw: raw, Err: err}
	}
	return value, nil
}

// SetOption adjusts a single Set or ResetToDefaults call.
type SetOption func(*setConfig)

type setConfig struct {
	verbose bool
	save    bool
}

// Verbose logs the stored text at info level.
func Verbose() SetOption {
	return func(cfg *setConfig) {
		cfg.verbose = true
	}
}

// WithoutSave updates memory only; the next saving call persists it.
func WithoutSave() SetOption {
	return func(cfg *setConfig) {
		cfg.save = false
	}
}

// Set stores value for option in section, creating the section if needed.
// The first value set for an option without a default registers its type.
// Values are cast to the registered kind before they are stored.
func (s *Store) Set(section, option string, value any, opts ...SetOption) error {
	cfg := setConfig{save: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var events []activity.Event
	defer func() { s.emit(events) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.setLocked(s.sectionName(section), option, value, cfg)
	if err != nil {
		return err
	}
	events = append(events, event)
	return nil
}

func (s *Store) setLocked(section, option string, value any, cfg setConfig) (activity.Event, error) {
	if err := checkSection(section); err != nil {
		return activity.Event{}, err
	}
	if err := checkOption(option); err != nil {
		return activity.Event{}, err
	}

	def, registered := s.defaults.get(section, option)
	if !registered {
		def = newDefault(value)
	}
	text, err := def.encode(value)
	if err != nil {
		return activity.Event{}, &CoercionError{Section: section, Option: option, Kind: def.kind, Value: value, Err: err}
	}
	if !registered {
		s.defaults.set(section, option, def)
		s.logger.Debug().
			Str("event", "userconfig.default_registered").
			Str("section", section).
			Str("option", option).
			Stringer("kind", def.kind).
			Msg("registered default from first value")
	}

	old, existed := s.values.get(section, option)
	s.values.set(section, option, text)
	if cfg.verbose {
		s.logger.Info().
			Str("event", "userconfig.set").
			Str("section", section).
			Str("option", option).
			Msgf("%s[ %s ] = %s", section, option, text)
	}
	if cfg.save {
		if err := s.saveLocked(); err != nil {
			return activity.Event{}, err
		}
	}

	newValue, _ := def.decode(text)
	input := s.eventInput(activity.SettingEventInput{Section: section, Option: option, NewValue: newValue})
	if !existed {
		return activity.BuildSettingCreatedEvent(input), nil
	}
	if old == text {
		return activity.Event{}, nil
	}
	input.OldValue, _ = def.decode(old)
	return activity.BuildSettingUpdatedEvent(input), nil
}

// ResetToDefaults overwrites every option that has a default with that
// default. Options without a default are left alone.
// Verbose logs every value it writes back. The save argument decides
// persistence; WithoutSave has no effect here.
func (s *Store) ResetToDefaults(save bool, opts ...SetOption) error {
	var cfg setConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var events []activity.Event
	defer func() { s.emit(events) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.resetLocked(cfg.verbose); err != nil {
		return err
	}
	if save {
		if err := s.saveLocked(); err != nil {
			return err
		}
	}
	events = append(events, activity.BuildStoreResetEvent(s.eventInput(activity.SettingEventInput{})))
	return nil
}

func (s *Store) resetLocked(verbose bool) error {
	var err error
	s.defaults.each(func(section, option string, def defaultValue) {
		if err != nil {
			return
		}
		text, encErr := def.encode(def.value)
		if encErr != nil {
			err = &CoercionError{Section: section, Option: option, Kind: def.kind, Value: def.value, Err: encErr}
			return
		}
		s.values.set(section, option, text)
		if verbose {
			s.logger.Info().
				Str("event", "userconfig.reset").
				Str("section", section).
				Str("option", option).
				Msgf("%s[ %s ] = %s", section, option, text)
		}
	})
	return err
}

// GetDefault returns the registered default of option. ok is false when no
// default exists, which is distinct from a registered nil default.
func (s *Store) GetDefault(section, option string) (value any, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defaults.get(s.sectionName(section), option)
	if !ok {
		return nil, false
	}
	return def.value, true
}

// SetDefault registers or replaces the default of option. Stored values are
// not touched; the next read coerces them by the new kind.
func (s *Store) SetDefault(section, option string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	section = s.sectionName(section)
	if err := checkSection(section); err != nil {
		return err
	}
	if err := checkOption(option); err != nil {
		return err
	}
	return s.registerDefault(section, option, value)
}

func (s *Store) registerDefault(section, option string, value any) error {
	if err := checkOption(option); err != nil {
		return err
	}
	def := newDefault(value)
	if _, err := def.encode(value); err != nil {
		return &CoercionError{Section: section, Option: option, Kind: def.kind, Value: value, Err: err}
	}
	s.defaults.set(section, option, def)
	return nil
}

// SetAsDefaults replaces the defaults table with the current values, each
// registered as a string.
func (s *Store) SetAsDefaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAsDefaultsLocked()
}

func (s *Store) setAsDefaultsLocked() {
	defaults := newTable[defaultValue]()
	for _, name := range s.values.sectionNames() {
		defaults.ensure(name)
	}
	s.values.each(func(section, option, raw string) {
		defaults.set(section, option, newDefault(decodeString(raw)))
	})
	s.defaults = defaults
}

// Cleanup deletes the backing file. Deleting a file that does not exist is
// an error wrapping fs.ErrNotExist.
func (s *Store) Cleanup() error {
	var events []activity.Event
	defer func() { s.emit(events) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Remove(s.ctx, s.ref); err != nil {
		return fmt.Errorf("userconfig: cleanup %s: %w", s.name, err)
	}
	s.file = nil
	s.meta = state.Meta{}
	s.logger.Debug().Str("event", "userconfig.cleaned").Msg("settings file removed")
	events = append(events, activity.BuildStoreCleanedEvent(s.eventInput(activity.SettingEventInput{})))
	return nil
}

// Version returns the stored configuration version, "" when none is set.
func (s *Store) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storedVersion()
}

// SetVersion stamps the configuration version. An empty version removes the
// tag.
func (s *Store) SetVersion(version string, save bool) error {
	if err := checkVersion(version); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.stampVersionLocked(version); err != nil {
		return err
	}
	if save {
		return s.saveLocked()
	}
	return nil
}

func (s *Store) storedVersion() string {
	raw, ok := s.values.get(s.defaultSection, VersionOption)
	if !ok {
		return ""
	}
	return decodeString(raw)
}

func (s *Store) stampVersionLocked(version string) error {
	if version == "" {
		s.values.removeOption(s.defaultSection, VersionOption)
		s.defaults.removeOption(s.defaultSection, VersionOption)
		if defs, ok := s.defaults.section(s.defaultSection); ok && defs.len() > 0 {
			return nil
		}
		s.defaults.removeSection(s.defaultSection)
		if sec, ok := s.values.section(s.defaultSection); ok && sec.len() == 0 {
			s.values.removeSection(s.defaultSection)
		}
		return nil
	}
	s.defaults.set(s.defaultSection, VersionOption, newDefault(version))
	_, err := s.setLocked(s.defaultSection, VersionOption, version, setConfig{})
	return err
}

// migrateLocked resets values to the defaults, drops every option without a
// default (and sections left empty) and stamps version. It returns the
// number of options dropped.
func (s *Store) migrateLocked(version string) (int, error) {
	if err := s.resetLocked(false); err != nil {
		return 0, err
	}
	removed := 0
	for _, section := range s.values.sectionNames() {
		sec, _ := s.values.section(section)
		for _, option := range sec.names() {
			if section == s.defaultSection && option == VersionOption {
				continue
			}
			if _, ok := s.defaults.get(section, option); ok {
				continue
			}
			sec.remove(option)
			removed++
		}
		if sec.len() == 0 {
			s.values.removeSection(section)
		}
	}
	return removed, s.stampVersionLocked(version)
}

func (s *Store) loadLocked(ctx context.Context) (bool, error) {
	doc, meta, ok, err := s.backend.Load(ctx, s.ref)
	if err != nil {
		return false, fmt.Errorf("userconfig: load %s: %w", s.name, err)
	}
	if !ok {
		s.file = nil
		s.logger.Debug().Str("event", "userconfig.not_found").Msg("no settings file yet")
		return false, nil
	}
	if doc.MissingHeaders || len(doc.Orphans) > 0 {
		s.logger.Warn().
			Str("event", "userconfig.missing_headers").
			Int("ignored_entries", len(doc.Orphans)).
			Msg("file contains no section headers")
	}
	for _, section := range doc.Sections {
		if err := checkSection(section.Name); err != nil {
			s.logger.Warn().Err(err).Str("event", "userconfig.section_skipped").Msg("ignoring unusable section")
			continue
		}
		sec := s.values.ensure(section.Name)
		for _, entry := range section.Entries {
			sec.set(entry.Key, entry.Value)
		}
	}
	s.file = documentToTable(doc)
	s.meta = meta
	s.logger.Debug().
		Str("event", "userconfig.loaded").
		Int("sections", len(doc.Sections)).
		Str("etag", meta.ETag).
		Msg("settings file loaded")
	return true, nil
}

func (s *Store) saveLocked() error {
	meta, err := s.backend.Save(s.ctx, s.ref, tableToDocument(s.values), s.meta)
	if err != nil {
		return fmt.Errorf("userconfig: save %s: %w", s.name, err)
	}
	s.meta = meta
	s.file = s.values.clone()
	s.logger.Debug().
		Str("event", "userconfig.saved").
		Str("snapshot_id", meta.SnapshotID).
		Str("etag", meta.ETag).
		Msg("settings file written")
	return nil
}

// Sections lists the sections in file order.
func (s *Store) Sections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.sectionNames()
}

// Options lists the options of section in file order.
func (s *Store) Options(section string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	section = s.sectionName(section)
	sec, ok := s.values.section(section)
	if !ok {
		return nil, &UnknownSectionError{Section: section}
	}
	return sec.names(), nil
}

func (s *Store) HasSection(section string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.hasSection(s.sectionName(section))
}

func (s *Store) HasOption(section, option string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values.get(s.sectionName(section), option)
	return ok
}

// RemoveOption deletes option from section and persists the result. The
// option's default stays registered, so ResetToDefaults brings it back.
func (s *Store) RemoveOption(section, option string) (bool, error) {
	var events []activity.Event
	defer func() { s.emit(events) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	section = s.sectionName(section)
	if !s.values.hasSection(section) {
		return false, &UnknownSectionError{Section: section}
	}
	raw, _ := s.values.get(section, option)
	if !s.values.removeOption(section, option) {
		return false, nil
	}
	if err := s.saveLocked(); err != nil {
		return true, err
	}
	old, _ := s.decodeLocked(section, option, raw)
	events = append(events, activity.BuildSettingRemovedEvent(s.eventInput(activity.SettingEventInput{
		Section: section, Option: option, OldValue: old,
	})))
	return true, nil
}

// RemoveSection deletes section with all its options and persists the
// result.
func (s *Store) RemoveSection(section string) (bool, error) {
	var events []activity.Event
	defer func() { s.emit(events) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	section = s.sectionName(section)
	if !s.values.removeSection(section) {
		return false, nil
	}
	if err := s.saveLocked(); err != nil {
		return true, err
	}
	events = append(events, activity.BuildSettingRemovedEvent(s.eventInput(activity.SettingEventInput{Section: section})))
	return true, nil
}

// Snapshot returns every value coerced by its default, keyed by section and
// option. Values that fail coercion appear as their stored text.
func (s *Store) Snapshot() map[string]map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() map[string]map[string]any {
	out := make(map[string]map[string]any, s.values.sections.len())
	for _, name := range s.values.sectionNames() {
		out[name] = map[string]any{}
	}
	s.values.each(func(section, option, raw string) {
		value, err := s.decodeLocked(section, option, raw)
		if err != nil {
			s.logger.Warn().Err(err).Str("event", "userconfig.coercion_failed").Msg("returning stored text")
			value = raw
		}
		out[section][option] = value
	})
	return out
}

// Reload re-reads the backing file. Values are rebuilt from the defaults and
// the file without migration. It is a no-op when the file is unchanged since
// the last load or save.
func (s *Store) Reload(ctx context.Context) error {
	if ctx == nil {
		ctx = s.ctx
	}
	var events []activity.Event
	defer func() { s.emit(events) }()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	doc, meta, ok, err := s.backend.Load(ctx, s.ref)
	if err != nil {
		return fmt.Errorf("userconfig: reload %s: %w", s.name, err)
	}
	if !ok || (meta.ETag != "" && meta.ETag == s.meta.ETag) {
		return nil
	}

	previous := s.values
	s.values = newTable[string]()
	if err := s.resetLocked(false); err != nil {
		s.values = previous
		return err
	}
	for _, section := range doc.Sections {
		if checkSection(section.Name) != nil {
			continue
		}
		sec := s.values.ensure(section.Name)
		for _, entry := range section.Entries {
			sec.set(entry.Key, entry.Value)
		}
	}
	s.file = documentToTable(doc)
	meta.SnapshotID = s.meta.SnapshotID
	s.meta = meta
	s.logger.Info().Str("event", "userconfig.reloaded").Str("etag", meta.ETag).Msg("settings reloaded from file")
	events = append(events, activity.BuildStoreReloadedEvent(s.eventInput(activity.SettingEventInput{})))
	return nil
}

// ErrWatchUnsupported is returned by Watch when the backend cannot report
// changes.
var ErrWatchUnsupported = errors.New("userconfig: backend does not support watching")

// Watch reloads the store whenever the backing file changes on disk, until
// ctx is done or Close is called.
func (s *Store) Watch(ctx context.Context) error {
	if ctx == nil {
		ctx = s.ctx
	}
	watcher, ok := s.backend.(state.Watcher)
	if !ok {
		return ErrWatchUnsupported
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.watcher != nil {
		return nil
	}
	closer, err := watcher.Watch(ctx, s.ref, func() {
		if err := s.Reload(ctx); err != nil && !errors.Is(err, ErrClosed) {
			s.logger.Warn().Err(err).Str("event", "userconfig.reload_failed").Msg("reload after file change failed")
		}
	})
	if err != nil {
		return fmt.Errorf("userconfig: watch %s: %w", s.name, err)
	}
	s.watcher = closer
	return nil
}

// Close stops a watcher started by Watch. Afterwards Watch and Reload
// return ErrClosed; reads and writes keep working.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
