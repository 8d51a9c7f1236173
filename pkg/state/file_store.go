package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultFileMode fs.FileMode = 0o644

// FileStore persists documents as INI files inside one directory, the
// user's home directory unless configured otherwise.
type FileStore struct {
	dir      string
	perm     fs.FileMode
	lock     bool
	debounce time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithDir stores files in dir instead of the home directory.
func WithDir(dir string) FileStoreOption {
	return func(s *FileStore) {
		s.dir = dir
	}
}

// WithFileMode sets the permission bits of newly created files.
func WithFileMode(perm fs.FileMode) FileStoreOption {
	return func(s *FileStore) {
		if perm != 0 {
			s.perm = perm
		}
	}
}

// WithFileLock takes an advisory lock on a ".lock" sidecar around reads and
// writes. It is a no-op on platforms without flock.
func WithFileLock() FileStoreOption {
	return func(s *FileStore) {
		s.lock = true
	}
}

// WithDebounce sets how long Watch waits for writes to settle.
func WithDebounce(d time.Duration) FileStoreOption {
	return func(s *FileStore) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithLogger attaches a logger for best-effort cleanup and watch diagnostics.
func WithLogger(logger zerolog.Logger) FileStoreOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// NewFileStore constructs a FileStore.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		perm:     defaultFileMode,
		debounce: 250 * time.Millisecond,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Location returns the absolute path of the file backing ref.
func (s *FileStore) Location(ref Ref) (string, error) {
	base, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	dir := s.dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("state: resolve home directory: %w", err)
		}
		dir = home
	}
	return filepath.Join(dir, base), nil
}

// Load reads and decodes the file for ref. A missing file reports ok=false.
func (s *FileStore) Load(_ context.Context, ref Ref) (Document, Meta, bool, error) {
	path, err := s.Location(ref)
	if err != nil {
		return Document{}, Meta{}, false, err
	}

	unlock, err := s.acquire(path, false)
	if err != nil {
		return Document{}, Meta{}, false, err
	}
	data, readErr := os.ReadFile(path)
	var info fs.FileInfo
	if readErr == nil {
		info, readErr = os.Stat(path)
	}
	if err := unlock(); err != nil {
		s.logger.Debug().Err(err).Str("path", path).Msg("release settings lock")
	}
	if errors.Is(readErr, fs.ErrNotExist) {
		return Document{}, Meta{}, false, nil
	}
	if readErr != nil {
		return Document{}, Meta{}, false, fmt.Errorf("state: read %s: %w", path, readErr)
	}

	doc, err := Decode(data)
	if err != nil {
		return Document{}, Meta{}, false, fmt.Errorf("state: %s: %w", path, err)
	}
	meta := Meta{ETag: ETag(data), UpdatedAt: info.ModTime()}
	return doc, meta, true, nil
}

// Save encodes doc and atomically replaces the file for ref.
func (s *FileStore) Save(_ context.Context, ref Ref, doc Document, meta Meta) (Meta, error) {
	path, err := s.Location(ref)
	if err != nil {
		return Meta{}, err
	}
	data, err := Marshal(doc)
	if err != nil {
		return Meta{}, err
	}

	unlock, err := s.acquire(path, true)
	if err != nil {
		return Meta{}, err
	}
	defer func() {
		if err := unlock(); err != nil {
			s.logger.Debug().Err(err).Str("path", path).Msg("release settings lock")
		}
	}()

	pending, err := renameio.NewPendingFile(path,
		renameio.WithPermissions(s.perm),
		renameio.WithExistingPermissions(),
	)
	if err != nil {
		return Meta{}, fmt.Errorf("state: create pending file for %s: %w", path, err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			s.logger.Debug().Err(err).Str("path", path).Msg("cleanup pending settings file")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return Meta{}, fmt.Errorf("state: write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return Meta{}, fmt.Errorf("state: replace %s: %w", path, err)
	}

	return stampMeta(meta, data, s.now()), nil
}

// Remove deletes the file for ref. A missing file is reported as an error
// wrapping fs.ErrNotExist.
func (s *FileStore) Remove(_ context.Context, ref Ref) error {
	path, err := s.Location(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("state: remove %s: %w", path, err)
	}
	if s.lock {
		if err := os.Remove(lockPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug().Err(err).Str("path", path).Msg("remove settings lock file")
		}
	}
	return nil
}

func (s *FileStore) acquire(path string, exclusive bool) (func() error, error) {
	if !s.lock {
		return func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("state: create directory for %s: %w", path, err)
	}
	unlock, err := lockFile(lockPath(path), exclusive)
	if err != nil {
		return nil, fmt.Errorf("state: lock %s: %w", path, err)
	}
	return unlock, nil
}

func lockPath(path string) string {
	return path + ".lock"
}

func stampMeta(meta Meta, data []byte, now time.Time) Meta {
	out := meta
	if out.SnapshotID == "" {
		out.SnapshotID = uuid.NewString()
	}
	out.ETag = ETag(data)
	out.UpdatedAt = now
	return out
}
