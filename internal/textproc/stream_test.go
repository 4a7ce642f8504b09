// Filename: internal/textproc/stream_test.go
package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStreamNoEvents(t *testing.T) {
	text := Normalize("hello world")
	stream := BuildStream(text, nil)

	require.Len(t, stream, len([]rune(text)))
	for i, r := range []rune(text) {
		assert.Equal(t, CharInsert, stream[i].Kind)
		assert.Equal(t, r, stream[i].Ch)
	}
}

func TestBuildStreamInterleavesToggles(t *testing.T) {
	stripped, events := ParseMarkup("Hi **bold** there")
	stream := BuildStream(stripped, events)

	// len(text) + number of events.
	require.Len(t, stream, len("Hi bold there")+2)

	// The toggle precedes the character at its offset.
	assert.Equal(t, Instruction{Kind: CharInsert, Ch: 'i'}, stream[1])
	assert.Equal(t, Instruction{Kind: FormatToggle, Format: Bold}, stream[3])
	assert.Equal(t, Instruction{Kind: CharInsert, Ch: 'b'}, stream[4])
	assert.Equal(t, Instruction{Kind: FormatToggle, Format: Bold}, stream[8])
	assert.Equal(t, Instruction{Kind: CharInsert, Ch: ' '}, stream[9])
}

func TestBuildStreamTrailingEvent(t *testing.T) {
	stripped, events := ParseMarkup("tail **end**")
	stream := BuildStream(stripped, events)

	require.Len(t, stream, len("tail end")+2)
	last := stream[len(stream)-1]
	assert.Equal(t, FormatToggle, last.Kind)
	assert.Equal(t, Bold, last.Format)
}

func TestBuildStreamSharedOffsetOrder(t *testing.T) {
	stripped, events := ParseMarkup("**~~x~~**")
	stream := BuildStream(stripped, events)

	require.Len(t, stream, 5)
	assert.Equal(t, Bold, stream[0].Format)
	assert.Equal(t, Underline, stream[1].Format)
	assert.Equal(t, Instruction{Kind: CharInsert, Ch: 'x'}, stream[2])
	assert.Equal(t, Bold, stream[3].Format)
	assert.Equal(t, Underline, stream[4].Format)
}

// Markers are parsed before normalization; if normalization shrinks the text
// past an event offset, the toggle still lands at the stream tail instead of
// being dropped.
func TestBuildStreamDriftedEventKept(t *testing.T) {
	events := map[int][]FormatEvent{
		10: {{Offset: 10, Kind: Italic, Edge: EdgeEnd}},
	}
	stream := BuildStream("abc", events)

	require.Len(t, stream, 4)
	assert.Equal(t, FormatToggle, stream[3].Kind)
	assert.Equal(t, Italic, stream[3].Format)
}
