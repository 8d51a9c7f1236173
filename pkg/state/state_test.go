package state_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-userconfig/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func sampleDocument() state.Document {
	return state.Document{Sections: []state.Section{
		{Name: "main", Entries: []state.Entry{{Key: "version", Value: "1.0.0"}}},
		{Name: "window", Entries: []state.Entry{
			{Key: "width", Value: "800"},
			{Key: "title", Value: "'hello # world'"},
		}},
	}}
}

func TestRefIdentifier(t *testing.T) {
	id, err := state.Ref{Name: "myapp"}.Identifier()
	require.NoError(t, err)
	assert.Equal(t, ".myapp.ini", id)

	for _, name := range []string{"", "  ", "a/b", `a\b`, "..", "."} {
		_, err := state.Ref{Name: name}.Identifier()
		assert.ErrorIs(t, err, state.ErrInvalidRef, "name %q", name)
	}
}

func TestEncodeLayout(t *testing.T) {
	data, err := state.Marshal(sampleDocument())
	require.NoError(t, err)

	want := "[main]\nversion = 1.0.0\n\n[window]\nwidth = 800\ntitle = 'hello # world'\n\n"
	assert.Equal(t, want, string(data))

	single, err := state.Marshal(state.Document{Sections: []state.Section{
		{Name: "main", Entries: []state.Entry{{Key: "k", Value: "v"}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "[main]\nk = v\n\n", string(single))

	empty, err := state.Marshal(state.Document{})
	require.NoError(t, err)
	assert.Empty(t, string(empty))
}

func TestEncodeRestoresIniLayout(t *testing.T) {
	format, equal, section := ini.PrettyFormat, ini.PrettyEqual, ini.PrettySection
	t.Cleanup(func() {
		ini.PrettyFormat, ini.PrettyEqual, ini.PrettySection = format, equal, section
	})
	ini.PrettyFormat = true
	ini.PrettyEqual = false
	ini.PrettySection = false

	data, err := state.Marshal(sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, "[main]\nversion = 1.0.0\n\n[window]\nwidth = 800\ntitle = 'hello # world'\n\n", string(data))

	assert.True(t, ini.PrettyFormat)
	assert.False(t, ini.PrettyEqual)
	assert.False(t, ini.PrettySection)
}

func TestDecodeRoundTrip(t *testing.T) {
	data, err := state.Marshal(sampleDocument())
	require.NoError(t, err)

	doc, err := state.Decode(data)
	require.NoError(t, err)
	assert.False(t, doc.MissingHeaders)
	assert.Empty(t, doc.Orphans)
	assert.Equal(t, sampleDocument().Sections, doc.Sections)
}

func TestDecodeKeepsInlineMarkersAndQuotes(t *testing.T) {
	doc, err := state.Decode([]byte("[s]\na = x ; not a comment\nb = \"quoted\"\nc = ['a', 'b']\n"))
	require.NoError(t, err)

	v, ok := doc.Value("s", "a")
	require.True(t, ok)
	assert.Equal(t, "x ; not a comment", v)

	v, _ = doc.Value("s", "b")
	assert.Equal(t, `"quoted"`, v)

	v, _ = doc.Value("s", "c")
	assert.Equal(t, "['a', 'b']", v)
}

func TestDecodeContentBeforeHeader(t *testing.T) {
	doc, err := state.Decode([]byte("stray = 1\n\n[main]\nversion = 1.0.0\n"))
	require.NoError(t, err)
	assert.True(t, doc.MissingHeaders)
	require.Len(t, doc.Orphans, 1)
	assert.Equal(t, "stray", doc.Orphans[0].Key)

	v, ok := doc.Value("main", "version")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", v)
}

func TestDecodeCommentsAndBOM(t *testing.T) {
	doc, err := state.Decode([]byte("\ufeff# comment\n; another\n\n[main]\nk = v\n"))
	require.NoError(t, err)
	assert.False(t, doc.MissingHeaders)
	assert.Empty(t, doc.Orphans)
}

func TestDocumentClone(t *testing.T) {
	doc := sampleDocument()
	clone := doc.Clone()
	clone.Sections[1].Entries[0].Value = "1024"

	v, _ := doc.Value("window", "width")
	assert.Equal(t, "800", v)
}

func TestFileStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := state.NewFileStore(state.WithDir(dir), state.WithFileLock())
	ref := state.Ref{Name: "demo"}

	path, err := store.Location(ref)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".demo.ini"), path)

	_, _, ok, err := store.Load(ctx, ref)
	require.NoError(t, err)
	assert.False(t, ok)

	meta, err := store.Save(ctx, ref, sampleDocument(), state.Meta{})
	require.NoError(t, err)
	assert.NotEmpty(t, meta.SnapshotID)
	assert.NotEmpty(t, meta.ETag)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "[main]\n"))

	doc, loaded, ok, err := store.Load(ctx, ref)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, meta.ETag, loaded.ETag)
	assert.Equal(t, sampleDocument().Sections, doc.Sections)

	require.NoError(t, store.Remove(ctx, ref))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	err = store.Remove(ctx, ref)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFileStoreKeepsExistingPermissions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := state.NewFileStore(state.WithDir(dir), state.WithFileMode(0o600))
	ref := state.Ref{Name: "perm"}

	_, err := store.Save(ctx, ref, sampleDocument(), state.Meta{})
	require.NoError(t, err)

	path, _ := store.Location(ref)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreWatchReportsExternalWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	store := state.NewFileStore(state.WithDir(dir), state.WithDebounce(20*time.Millisecond))
	ref := state.Ref{Name: "watched"}

	changed := make(chan struct{}, 4)
	closer, err := store.Watch(ctx, ref, func() { changed <- struct{}{} })
	require.NoError(t, err)
	defer closer.Close()

	path, _ := store.Location(ref)
	require.NoError(t, os.WriteFile(path, []byte("[main]\nk = 1\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected change notification")
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))
	select {
	case <-changed:
		t.Fatal("unexpected notification for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, closer.Close())
	require.NoError(t, closer.Close())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	ref := state.Ref{Name: "mem"}

	_, _, ok, err := store.Load(ctx, ref)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Save(ctx, ref, sampleDocument(), state.Meta{})
	require.NoError(t, err)

	raw, ok := store.Raw(ref)
	require.True(t, ok)
	assert.Contains(t, raw, "[window]\nwidth = 800\n")

	require.NoError(t, store.Put(ref, "[main]\nversion = 2.0.0\n"))
	doc, _, ok, err := store.Load(ctx, ref)
	require.NoError(t, err)
	require.True(t, ok)
	v, _ := doc.Value("main", "version")
	assert.Equal(t, "2.0.0", v)

	require.NoError(t, store.Remove(ctx, ref))
	assert.ErrorIs(t, store.Remove(ctx, ref), fs.ErrNotExist)

	_, _, _, err = store.Load(ctx, state.Ref{})
	assert.ErrorIs(t, err, state.ErrInvalidRef)
}
