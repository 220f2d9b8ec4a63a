package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheet-history/internal/value"
)

func mustParse(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.Parse([]byte(s))
	require.NoError(t, err)
	return v
}

func TestMerge(t *testing.T) {
	base := mustParse(t, `{"bold":true,"border":{"top":"thin","left":"thin"},"tags":[1,2]}`)
	patch := mustParse(t, `{"border":{"top":"thick"},"tags":[3],"italic":true}`)
	got := Merge(base, patch)
	want := mustParse(t, `{"bold":true,"border":{"left":"thin","top":"thick"},"italic":true,"tags":[3]}`)
	assert.True(t, value.Equal(want, got), "got %s", got)

	assert.True(t, value.Equal(base, Merge(base, value.NullValue())))
	assert.True(t, value.Equal(base, Merge(base, value.StringOf("x"))))
}

func TestNormalize(t *testing.T) {
	assert.True(t, Normalize(mustParse(t, `{}`)).IsNull())
	assert.True(t, Normalize(mustParse(t, `{"border":{"top":{}}}`)).IsNull())
	assert.True(t, Normalize(value.StringOf("bold")).IsNull())
	got := Normalize(mustParse(t, `{"bold":false,"border":{}}`))
	assert.Equal(t, `{"bold":false}`, got.String())
}

func TestFromSheetEntryEncodings(t *testing.T) {
	entry := mustParse(t, `{
		"id": "s1",
		"defaultFormat": {"font": "Arial"},
		"rowFormats": {"2": {"bold": true}, "x": {"bold": true}},
		"colFormats": [{"col": 1, "format": {"italic": true}}, [3, {"color": "red"}], [4], "junk"],
		"formatRunsByCol": [{"col": 0, "runs": [
			{"startRow": 10, "endRowExclusive": 20, "format": {"fill": "b"}},
			{"startRow": 0, "endRowExclusive": 5, "format": {"fill": "a"}},
			{"startRow": 3, "endRowExclusive": 8, "format": {"fill": "overlap"}},
			{"startRow": 9, "endRowExclusive": 9, "format": {"fill": "empty"}}
		]}]
	}`)
	l := FromSheetEntry(entry)

	assert.Equal(t, `{"font":"Arial"}`, l.SheetDefault.String())
	require.Contains(t, l.RowFormats, 2)
	assert.Len(t, l.RowFormats, 1)
	assert.Len(t, l.ColFormats, 2)
	assert.Contains(t, l.ColFormats, 1)
	assert.Contains(t, l.ColFormats, 3)
	require.Len(t, l.RunsByCol[0], 2)
	assert.Equal(t, 0, l.RunsByCol[0][0].StartRow)
	assert.Equal(t, 10, l.RunsByCol[0][1].StartRow)
	// "x", [4], "junk", the overlapping run and the empty run
	assert.Equal(t, 5, l.Dropped)
}

func TestFromSheetEntryViewFallback(t *testing.T) {
	entry := mustParse(t, `{
		"view": {
			"defaultFormat": {"bold": true},
			"rowFormats": [{"row": 0, "format": {"bold": false}}],
			"formatRunsByCol": {"2": [{"startRow": 0, "endRowExclusive": 2, "format": {"fill": "x"}}]}
		},
		"colFormats": {"0": {"italic": true}}
	}`)
	l := FromSheetEntry(entry)
	assert.Equal(t, `{"bold":true}`, l.SheetDefault.String())
	assert.Contains(t, l.RowFormats, 0)
	assert.Contains(t, l.ColFormats, 0)
	assert.Len(t, l.RunsByCol[2], 1)
	assert.Zero(t, l.Dropped)
}

func TestRunFor(t *testing.T) {
	l := Layers{RunsByCol: map[int][]Run{
		0: {
			{StartRow: 0, EndRow: 5, Style: value.StringOf("a")},
			{StartRow: 10, EndRow: 20, Style: value.StringOf("b")},
		},
	}}
	cases := []struct {
		row  int
		want string
		ok   bool
	}{
		{0, "a", true},
		{4, "a", true},
		{5, "", false},
		{9, "", false},
		{10, "b", true},
		{19, "b", true},
		{20, "", false},
	}
	for _, tc := range cases {
		got, ok := l.RunFor(0, tc.row)
		assert.Equal(t, tc.ok, ok, "row %d", tc.row)
		if tc.ok {
			s, _ := got.AsString()
			assert.Equal(t, tc.want, s, "row %d", tc.row)
		}
	}
	_, ok := l.RunFor(1, 0)
	assert.False(t, ok)
}

func TestEffectiveLayerOrder(t *testing.T) {
	l := Layers{
		SheetDefault: mustParse(t, `{"bold":true,"font":"Arial"}`),
		ColFormats:   map[int]value.Value{1: mustParse(t, `{"font":"Mono","fill":"col"}`)},
		RowFormats:   map[int]value.Value{0: mustParse(t, `{"bold":false}`)},
		RunsByCol: map[int][]Run{1: {
			{StartRow: 0, EndRow: 1, Style: mustParse(t, `{"fill":"run"}`)},
		}},
	}
	assert.Equal(t, `{"bold":false,"font":"Arial"}`, l.Effective(0, 0, value.NullValue()).String())
	got := l.Effective(0, 1, mustParse(t, `{"italic":true}`))
	assert.Equal(t, `{"bold":false,"fill":"run","font":"Mono","italic":true}`, got.String())
	got = l.Effective(3, 1, value.NullValue())
	assert.Equal(t, `{"bold":true,"fill":"col","font":"Mono"}`, got.String())
}

func TestEffectiveRowOverridesDefault(t *testing.T) {
	l := Layers{
		SheetDefault: mustParse(t, `{"bold":true}`),
		RowFormats:   map[int]value.Value{0: mustParse(t, `{"bold":false}`)},
	}
	assert.Equal(t, `{"bold":false}`, l.Effective(0, 0, value.NullValue()).String())
	assert.Equal(t, `{"bold":true}`, l.Effective(1, 0, value.NullValue()).String())
}

type styledCell struct{ style value.Value }

func (c *styledCell) Style() value.Value     { return c.style }
func (c *styledCell) SetStyle(v value.Value) { c.style = v }

func TestApplyTo(t *testing.T) {
	cells := map[string]*styledCell{
		"r0c0":  {},
		"r1c0":  {style: mustParse(t, `{"bold":true}`)},
		"weird": {style: value.StringOf("kept")},
	}
	ApplyTo(cells, Layers{SheetDefault: mustParse(t, `{"font":"Arial"}`)})
	assert.Equal(t, `{"font":"Arial"}`, cells["r0c0"].style.String())
	assert.Equal(t, `{"bold":true,"font":"Arial"}`, cells["r1c0"].style.String())
	assert.Equal(t, `"kept"`, cells["weird"].style.String())

	untouched := map[string]*styledCell{"r0c0": {style: mustParse(t, `{}`)}}
	ApplyTo(untouched, Layers{})
	assert.True(t, untouched["r0c0"].style.IsEmptyObject(), "no layers means no normalization pass")
}
