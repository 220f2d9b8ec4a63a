// Package validate performs lightweight structural validation of a computed
// WorkbookDiff. It checks the shape consumers rely on rather than the
// semantics of any single change.
//
// Goals:
//   - Aggregate multiple issues into a single error for better UX
//   - Deterministic, strict-enough checks without being overbearing
package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"sheet-history/internal/celldiff"
	"sheet-history/internal/delta"
	"sheet-history/internal/sortutil"
)

// Diff validates d:
//
//   - Every bucket is non-nil.
//   - Every bucket is sorted by its identity (id, key, cell row-major,
//     moves by old then new location, metaChanged by id then field).
//   - No sheet id, comment id or key appears in more than one of
//     added/removed/modified.
//   - No cell appears in more than one of added/removed/modified/formatOnly,
//     and moved cells are disjoint from added and removed cells.
//   - cellsBySheet is sorted by sheet id, unique, and holds no empty diff.
//
// The function returns nil if everything looks fine, or a single aggregated
// error describing all the issues found.
func Diff(d delta.WorkbookDiff) error {
	var errs errlist
	sheets(&errs, d.Sheets)
	cells(&errs, d.CellsBySheet)
	comments(&errs, d.Comments)
	keyed(&errs, "metadata", d.Metadata)
	keyed(&errs, "namedRanges", d.NamedRanges)
	return errs.err()
}

func sheets(errs *errlist, s delta.SheetsDiff) {
	nonNil(errs, "sheets.added", s.Added == nil)
	nonNil(errs, "sheets.removed", s.Removed == nil)
	nonNil(errs, "sheets.renamed", s.Renamed == nil)
	nonNil(errs, "sheets.moved", s.Moved == nil)
	nonNil(errs, "sheets.metaChanged", s.MetaChanged == nil)

	added := make([]string, len(s.Added))
	for i, e := range s.Added {
		added[i] = e.ID
	}
	removed := make([]string, len(s.Removed))
	for i, e := range s.Removed {
		removed[i] = e.ID
	}
	renamed := make([]string, len(s.Renamed))
	for i, e := range s.Renamed {
		renamed[i] = e.ID
	}
	moved := make([]string, len(s.Moved))
	for i, e := range s.Moved {
		moved[i] = e.ID
	}
	sortedUnique(errs, "sheets.added", added)
	sortedUnique(errs, "sheets.removed", removed)
	sortedUnique(errs, "sheets.renamed", renamed)
	sortedUnique(errs, "sheets.moved", moved)
	disjoint(errs, "sheets", map[string][]string{"added": added, "removed": removed, "renamed": renamed})

	if !sort.SliceIsSorted(s.MetaChanged, func(i, j int) bool {
		a, b := s.MetaChanged[i], s.MetaChanged[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Field < b.Field
	}) {
		errs.add("sheets.metaChanged should be sorted by (id, field)")
	}
	for i, m := range s.MetaChanged {
		if strings.TrimSpace(m.Field) == "" {
			errs.add("sheets.metaChanged[%d] (%s): field must be non-empty", i, m.ID)
		}
	}
}

func cells(errs *errlist, entries []delta.SheetDiffEntry) {
	nonNil(errs, "cellsBySheet", entries == nil)
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.SheetID
	}
	sortedUnique(errs, "cellsBySheet", ids)

	for i, e := range entries {
		prefix := fmt.Sprintf("cellsBySheet[%d] (%s)", i, e.SheetID)
		r := e.Diff
		if r.Empty() {
			errs.add("%s: empty diffs must be left out", prefix)
		}
		nonNil(errs, prefix+".added", r.Added == nil)
		nonNil(errs, prefix+".removed", r.Removed == nil)
		nonNil(errs, prefix+".modified", r.Modified == nil)
		nonNil(errs, prefix+".moved", r.Moved == nil)
		nonNil(errs, prefix+".formatOnly", r.FormatOnly == nil)

		added := changeLocations(r.Added)
		removed := changeLocations(r.Removed)
		modified := changeLocations(r.Modified)
		formatOnly := make([]celldiff.Location, len(r.FormatOnly))
		for j, f := range r.FormatOnly {
			formatOnly[j] = f.Cell
		}
		sortedLocations(errs, prefix+".added", added)
		sortedLocations(errs, prefix+".removed", removed)
		sortedLocations(errs, prefix+".modified", modified)
		sortedLocations(errs, prefix+".formatOnly", formatOnly)
		if !sort.SliceIsSorted(r.Moved, func(a, b int) bool {
			x, y := r.Moved[a], r.Moved[b]
			if x.OldLocation != y.OldLocation {
				return x.OldLocation.Less(y.OldLocation)
			}
			return x.NewLocation.Less(y.NewLocation)
		}) {
			errs.add("%s.moved should be sorted by (oldLocation, newLocation)", prefix)
		}

		owner := make(map[celldiff.Location]string)
		claim := func(bucket string, locs []celldiff.Location) {
			for _, l := range locs {
				if prev, ok := owner[l]; ok && prev != bucket {
					errs.add("%s: cell (%d,%d) is in both %s and %s", prefix, l.Row, l.Col, prev, bucket)
					continue
				}
				owner[l] = bucket
			}
		}
		claim("added", added)
		claim("removed", removed)
		claim("modified", modified)
		claim("formatOnly", formatOnly)

		rem := toSet(removed)
		add := toSet(added)
		for j, m := range r.Moved {
			if _, ok := rem[m.OldLocation]; ok {
				errs.add("%s.moved[%d]: old location (%d,%d) is also removed", prefix, j, m.OldLocation.Row, m.OldLocation.Col)
			}
			if _, ok := add[m.NewLocation]; ok {
				errs.add("%s.moved[%d]: new location (%d,%d) is also added", prefix, j, m.NewLocation.Row, m.NewLocation.Col)
			}
		}
	}
}

func comments(errs *errlist, c delta.CommentsDiff) {
	nonNil(errs, "comments.added", c.Added == nil)
	nonNil(errs, "comments.removed", c.Removed == nil)
	nonNil(errs, "comments.modified", c.Modified == nil)
	added := make([]string, len(c.Added))
	for i, e := range c.Added {
		added[i] = e.ID
	}
	removed := make([]string, len(c.Removed))
	for i, e := range c.Removed {
		removed[i] = e.ID
	}
	modified := make([]string, len(c.Modified))
	for i, e := range c.Modified {
		modified[i] = e.ID
		if len(e.Fields) == 0 {
			errs.add("comments.modified[%d] (%s): fields must be non-empty", i, e.ID)
		}
	}
	sortedUnique(errs, "comments.added", added)
	sortedUnique(errs, "comments.removed", removed)
	sortedUnique(errs, "comments.modified", modified)
	disjoint(errs, "comments", map[string][]string{"added": added, "removed": removed, "modified": modified})
}

func keyed(errs *errlist, name string, k delta.KeyedDiff) {
	nonNil(errs, name+".added", k.Added == nil)
	nonNil(errs, name+".removed", k.Removed == nil)
	nonNil(errs, name+".modified", k.Modified == nil)
	added := make([]string, len(k.Added))
	for i, e := range k.Added {
		added[i] = e.Key
	}
	removed := make([]string, len(k.Removed))
	for i, e := range k.Removed {
		removed[i] = e.Key
	}
	modified := make([]string, len(k.Modified))
	for i, e := range k.Modified {
		modified[i] = e.Key
	}
	sortedUnique(errs, name+".added", added)
	sortedUnique(errs, name+".removed", removed)
	sortedUnique(errs, name+".modified", modified)
	disjoint(errs, name, map[string][]string{"added": added, "removed": removed, "modified": modified})
}

// --- helpers -----------------------------------------------------------------

func nonNil(errs *errlist, bucket string, isNil bool) {
	if isNil {
		errs.add("%s must be an empty list, not null", bucket)
	}
}

func sortedUnique(errs *errlist, bucket string, ids []string) {
	for i := 1; i < len(ids); i++ {
		switch {
		case ids[i-1] == ids[i]:
			errs.add("%s: duplicate entry %q", bucket, ids[i])
		case ids[i-1] > ids[i]:
			errs.add("%s should be sorted (%q before %q)", bucket, ids[i-1], ids[i])
		}
	}
}

func sortedLocations(errs *errlist, bucket string, locs []celldiff.Location) {
	for i := 1; i < len(locs); i++ {
		if !locs[i-1].Less(locs[i]) {
			errs.add("%s should be sorted row-major and unique at index %d", bucket, i)
		}
	}
}

// disjoint reports every id found in more than one of the named buckets.
func disjoint(errs *errlist, facet string, buckets map[string][]string) {
	owner := make(map[string]string)
	for _, n := range sortutil.Keys(buckets) {
		for _, id := range buckets[n] {
			if prev, ok := owner[id]; ok && prev != n {
				errs.add("%s: %q is in both %s and %s", facet, id, prev, n)
				continue
			}
			owner[id] = n
		}
	}
}

func changeLocations(cs []celldiff.CellChange) []celldiff.Location {
	out := make([]celldiff.Location, len(cs))
	for i, c := range cs {
		out[i] = c.Cell
	}
	return out
}

func toSet(locs []celldiff.Location) map[celldiff.Location]struct{} {
	m := make(map[celldiff.Location]struct{}, len(locs))
	for _, l := range locs {
		m[l] = struct{}{}
	}
	return m
}

// errlist aggregates multiple validation issues into a single error.
type errlist struct {
	msgs []string
}

func (e *errlist) add(format string, args ...any) {
	if e == nil {
		return
	}
	e.msgs = append(e.msgs, fmt.Sprintf(format, args...))
}

func (e *errlist) err() error {
	if e == nil || len(e.msgs) == 0 {
		return nil
	}
	// Join with newline for readability.
	return errors.New(strings.Join(e.msgs, "\n"))
}
