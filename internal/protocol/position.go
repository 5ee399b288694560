package protocol

import (
	"net/url"
	"path/filepath"
	"unicode/utf8"
)

// Position is one LSP line/character (UTF-16 code unit) location.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is an LSP start/end position pair.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// uriToPath converts a `file://` URI to a filesystem path. Grounded on
// the dependency-free version (net/url + path/filepath, no precomputed
// line index, no external UTF-16-width library) since no example repo
// in the pack pulls in a dedicated safe-cast/UTF-16 package for this.
func uriToPath(uri string) string {
	if uri == "" {
		return ""
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	path := parsed.Path
	if parsed.Scheme == "" {
		path = uri
	} else if parsed.Scheme != "file" {
		return ""
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	path = filepath.FromSlash(path)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path
}

// pathToURI is uriToPath's inverse.
func pathToURI(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// offsetForPosition converts an LSP line/UTF-16-character position
// into a byte offset into text, by linear scan — the same two-pass
// (find line, then count UTF-16 units within it) approach as the
// dependency-free reference, avoiding a precomputed line-start index
// since analyzer text is re-parsed on every edit anyway.
func offsetForPosition(text string, pos Position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	line := 0
	i := 0
	for i < len(text) && line < pos.Line {
		if text[i] == '\n' {
			line++
		}
		i++
	}
	if line < pos.Line {
		return len(text)
	}
	units := 0
	for i < len(text) {
		if text[i] == '\n' {
			break
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			size = 1
		}
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > pos.Character {
			break
		}
		units += need
		i += size
		if units == pos.Character {
			break
		}
	}
	return i
}

// positionForOffset is offsetForPosition's inverse: the LSP
// line/UTF-16-character position of a byte offset into text.
func positionForOffset(text string, offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	line := 0
	lineStart := 0
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	units := 0
	for i := lineStart; i < offset; {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			size = 1
		}
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		i += size
	}
	return Position{Line: line, Character: units}
}

// toRange converts a byte-range (the analyzer's native span
// representation) into an LSP Range against text.
func toRange(text string, start, end int) Range {
	return Range{Start: positionForOffset(text, start), End: positionForOffset(text, end)}
}
