// Package cellkey parses the storage keys under which cells have been written
// over the life of the document format.
//
// Accepted forms, most specific first:
//
//	{sheetId}:{row}:{col}   canonical
//	{sheetId}:{row},{col}   legacy
//	r{row}c{col}            bare, relative to a default sheet
package cellkey

import (
	"strconv"
	"strings"
)

// Ref is a parsed cell location. Row and Col are zero-based.
type Ref struct {
	SheetID string
	Row     int
	Col     int
}

// Parse decodes key. Bare keys resolve against defaultSheetID; when that is
// empty they are rejected. Unrecognized keys report false.
func Parse(key, defaultSheetID string) (Ref, bool) {
	if key == "" {
		return Ref{}, false
	}
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		head, tail := key[:i], key[i+1:]
		// canonical: the last two segments are both integers
		if j := strings.LastIndexByte(head, ':'); j > 0 {
			if row, ok := index(head[j+1:]); ok {
				if col, ok := index(tail); ok {
					return Ref{SheetID: head[:j], Row: row, Col: col}, true
				}
			}
		}
		// legacy: "{row},{col}" after the last colon
		if i > 0 {
			if c := strings.IndexByte(tail, ','); c >= 0 {
				row, okR := index(tail[:c])
				col, okC := index(tail[c+1:])
				if okR && okC {
					return Ref{SheetID: head, Row: row, Col: col}, true
				}
			}
		}
		return Ref{}, false
	}
	if defaultSheetID == "" {
		return Ref{}, false
	}
	row, col, ok := ParseRC(key)
	if !ok {
		return Ref{}, false
	}
	return Ref{SheetID: defaultSheetID, Row: row, Col: col}, true
}

// ParseRC decodes the bare "r{row}c{col}" form.
func ParseRC(key string) (row, col int, ok bool) {
	if len(key) < 4 || key[0] != 'r' {
		return 0, 0, false
	}
	c := strings.IndexByte(key, 'c')
	if c < 2 {
		return 0, 0, false
	}
	row, okR := index(key[1:c])
	col, okC := index(key[c+1:])
	if !okR || !okC {
		return 0, 0, false
	}
	return row, col, true
}

// IsCanonical reports whether key is exactly the canonical encoding of ref.
func IsCanonical(key string, ref Ref) bool {
	return key == Canonical(ref)
}

// Canonical returns the canonical storage key for ref.
func Canonical(ref Ref) string {
	return ref.SheetID + ":" + strconv.Itoa(ref.Row) + ":" + strconv.Itoa(ref.Col)
}

// Legacy returns the legacy storage key for ref.
func Legacy(ref Ref) string {
	return ref.SheetID + ":" + strconv.Itoa(ref.Row) + "," + strconv.Itoa(ref.Col)
}

// RC returns the sheet-relative key "r{row}c{col}".
func RC(row, col int) string {
	return "r" + strconv.Itoa(row) + "c" + strconv.Itoa(col)
}

// index parses a non-negative decimal integer made of ASCII digits only.
func index(s string) (int, bool) {
	if s == "" || len(s) > 9 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
