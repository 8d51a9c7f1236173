package state

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/ini.v1"
)

// ini.v1 reads its output layout from package variables. writeMu
// serializes the swap so Encode never leaks its layout to other callers.
var writeMu sync.Mutex
var codecOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	PreserveSurroundedQuote: true,
	SkipUnrecognizableLines: true,
	IgnoreContinuation:      true,
}

// Decode parses settings file content. Entries found before the first
// section header, or under the reserved DEFAULT header, are reported as
// Orphans instead of failing the whole read.
func Decode(data []byte) (Document, error) {
	doc := Document{MissingHeaders: contentBeforeHeader(data)}
	file, err := ini.LoadSources(codecOptions, data)
	if err != nil {
		return Document{}, fmt.Errorf("state: decode: %w", err)
	}
	for _, sec := range file.Sections() {
		entries := make([]Entry, 0, len(sec.Keys()))
		for _, key := range sec.Keys() {
			entries = append(entries, Entry{Key: key.Name(), Value: key.Value()})
		}
		if sec.Name() == ini.DefaultSection {
			doc.Orphans = append(doc.Orphans, entries...)
			continue
		}
		doc.Sections = append(doc.Sections, Section{Name: sec.Name(), Entries: entries})
	}
	return doc, nil
}

// Encode writes doc as bracketed sections of `key = value` lines, each
// section followed by a blank line. Orphans are never written.
//
// The ini.v1 layout variables (PrettyFormat, PrettyEqual, PrettySection)
// are set only for the duration of the write and restored afterwards.
func Encode(w io.Writer, doc Document) error {
	file := ini.Empty(codecOptions)
	for _, section := range doc.Sections {
		sec, err := file.NewSection(section.Name)
		if err != nil {
			return fmt.Errorf("state: encode section %q: %w", section.Name, err)
		}
		for _, entry := range section.Entries {
			if _, err := sec.NewKey(entry.Key, entry.Value); err != nil {
				return fmt.Errorf("state: encode key %q in section %q: %w", entry.Key, section.Name, err)
			}
		}
	}
	var buf bytes.Buffer
	if err := writeFile(&buf, file); err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	// ini.v1 separates sections but leaves the last one unterminated.
	if len(doc.Sections) > 0 {
		buf.WriteString(ini.LineBreak)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	return nil
}

func writeFile(w io.Writer, file *ini.File) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	format, equal, section := ini.PrettyFormat, ini.PrettyEqual, ini.PrettySection
	defer func() {
		ini.PrettyFormat, ini.PrettyEqual, ini.PrettySection = format, equal, section
	}()
	ini.PrettyFormat = false
	ini.PrettyEqual = true
	ini.PrettySection = true

	_, err := file.WriteTo(w)
	return err
}

// Marshal is Encode into a byte slice.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ETag returns a content hash suitable for change detection.
func ETag(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func contentBeforeHeader(data []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		return !strings.HasPrefix(line, "[")
	}
	return false
}
