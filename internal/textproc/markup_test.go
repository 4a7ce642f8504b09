// Filename: internal/textproc/markup_test.go
package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkupBold(t *testing.T) {
	stripped, events := ParseMarkup("Hi **bold** there")

	assert.Equal(t, "Hi bold there", stripped)
	require.Len(t, events[3], 1)
	assert.Equal(t, FormatEvent{Offset: 3, Kind: Bold, Edge: EdgeStart}, events[3][0])
	require.Len(t, events[7], 1)
	assert.Equal(t, FormatEvent{Offset: 7, Kind: Bold, Edge: EdgeEnd}, events[7][0])
	assert.Len(t, events, 2)
}

func TestParseMarkupDelimiters(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		stripped string
		kind     FormatKind
		start    int
		end      int
	}{
		{"bold underscores", "__b__", "b", Bold, 0, 1},
		{"italic asterisk", "a *i* z", "a i z", Italic, 2, 3},
		{"italic underscore", "_i_", "i", Italic, 0, 1},
		{"underline", "x ~~u~~", "x u", Underline, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stripped, events := ParseMarkup(tt.in)
			assert.Equal(t, tt.stripped, stripped)
			require.Len(t, events[tt.start], 1)
			assert.Equal(t, FormatEvent{Offset: tt.start, Kind: tt.kind, Edge: EdgeStart}, events[tt.start][0])
			require.Len(t, events[tt.end], 1)
			assert.Equal(t, FormatEvent{Offset: tt.end, Kind: tt.kind, Edge: EdgeEnd}, events[tt.end][0])
		})
	}
}

func TestParseMarkupBoldIsNotAlsoItalic(t *testing.T) {
	stripped, events := ParseMarkup("**x**")

	assert.Equal(t, "x", stripped)
	var kinds []FormatKind
	for _, evs := range events {
		for _, ev := range evs {
			kinds = append(kinds, ev.Kind)
		}
	}
	assert.NotContains(t, kinds, Italic)
}

func TestParseMarkupUnterminated(t *testing.T) {
	tests := []string{
		"hello **world",
		"no _closing here",
		"half ~~done",
		"* just a star",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			stripped, events := ParseMarkup(in)
			assert.Equal(t, in, stripped, "unterminated markers must stay literal")
			assert.Empty(t, events)
		})
	}
}

func TestParseMarkupNoMarkers(t *testing.T) {
	stripped, events := ParseMarkup("plain text, nothing fancy")
	assert.Equal(t, "plain text, nothing fancy", stripped)
	assert.Empty(t, events)
}

// Earlier-pass offsets must shift when a later pass strips characters in
// front of them.
func TestParseMarkupOffsetsRemapAcrossPasses(t *testing.T) {
	stripped, events := ParseMarkup("*i* **b**")

	assert.Equal(t, "i b", stripped)
	require.Len(t, events[0], 1)
	assert.Equal(t, FormatEvent{Offset: 0, Kind: Italic, Edge: EdgeStart}, events[0][0])
	require.Len(t, events[1], 1)
	assert.Equal(t, FormatEvent{Offset: 1, Kind: Italic, Edge: EdgeEnd}, events[1][0])
	require.Len(t, events[2], 1)
	assert.Equal(t, FormatEvent{Offset: 2, Kind: Bold, Edge: EdgeStart}, events[2][0])
	require.Len(t, events[3], 1)
	assert.Equal(t, FormatEvent{Offset: 3, Kind: Bold, Edge: EdgeEnd}, events[3][0])
}

func TestParseMarkupNestedKindsShareOffsets(t *testing.T) {
	stripped, events := ParseMarkup("**~~x~~**")

	assert.Equal(t, "x", stripped)
	require.Len(t, events[0], 2)
	// Kind priority orders bold before underline at a shared offset.
	assert.Equal(t, FormatEvent{Offset: 0, Kind: Bold, Edge: EdgeStart}, events[0][0])
	assert.Equal(t, FormatEvent{Offset: 0, Kind: Underline, Edge: EdgeStart}, events[0][1])
	require.Len(t, events[1], 2)
	assert.Equal(t, FormatEvent{Offset: 1, Kind: Bold, Edge: EdgeEnd}, events[1][0])
	assert.Equal(t, FormatEvent{Offset: 1, Kind: Underline, Edge: EdgeEnd}, events[1][1])
}

func TestParseMarkupMultipleRegions(t *testing.T) {
	stripped, events := ParseMarkup("**a** and **b**")

	assert.Equal(t, "a and b", stripped)
	total := 0
	for _, evs := range events {
		total += len(evs)
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, EdgeStart, events[0][0].Edge)
	assert.Equal(t, EdgeEnd, events[1][0].Edge)
	assert.Equal(t, EdgeStart, events[6][0].Edge)
	assert.Equal(t, EdgeEnd, events[7][0].Edge)
}
