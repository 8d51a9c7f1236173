// Package state defines the persistence contract behind a settings store:
// one Document per Ref, loaded and saved whole.
//
// Responsibilities:
//   - Store only loads, saves and removes a single Document for a single Ref.
//   - Document is plain text: sections of `key = value` entries. Typing and
//     coercion live in the root userconfig package.
//   - FileStore writes through a pending file and an atomic rename, so a
//     reader never observes a half-written file.
//
// File layout:
//
//	[main]
//	version = 1.0.0
//
//	[window]
//	width = 800
//
// Ref.Identifier() maps a store name onto its file name (".{name}.ini");
// FileStore places it in the user's home directory unless WithDir is used.
//
// Content found before the first section header is not an error: Decode
// keeps whatever sections follow and reports the stray entries through
// Document.Orphans and Document.MissingHeaders, leaving the caller to warn.
package state
