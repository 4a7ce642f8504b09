// Filename: internal/textproc/stream.go
package textproc

import "sort"

// InstructionKind discriminates the two operations a typing run performs.
type InstructionKind int

const (
	// CharInsert types one character into the target surface.
	CharInsert InstructionKind = iota
	// FormatToggle flips one inline style on the target surface.
	FormatToggle
)

// Instruction is a single replayable typing operation.
type Instruction struct {
	Kind InstructionKind
	// Ch is the character to insert when Kind is CharInsert.
	Ch rune
	// Format is the style to toggle when Kind is FormatToggle.
	Format FormatKind
}

// Stream is an ordered, finite, restartable sequence of instructions. It is
// owned by exactly one run and replayable from offset zero.
type Stream []Instruction

// BuildStream interleaves the formatting events into the character sequence
// of the canonical text. Toggles whose event offset equals i are emitted
// before the character at i, in kind-priority order with Start before End;
// events at offset len(text) trail the final character. The resulting stream
// length is len(text in runes) plus the number of events.
func BuildStream(canonical string, events map[int][]FormatEvent) Stream {
	runes := []rune(canonical)
	total := len(runes)
	for _, evs := range events {
		total += len(evs)
	}
	stream := make(Stream, 0, total)

	for i, r := range runes {
		for _, ev := range events[i] {
			stream = append(stream, Instruction{Kind: FormatToggle, Format: ev.Kind})
		}
		stream = append(stream, Instruction{Kind: CharInsert, Ch: r})
	}
	// Trailing events, including any whose offsets drifted past the end of
	// the normalized text (markers are parsed before normalization, which
	// may shrink the text).
	var tail []int
	for off := range events {
		if off >= len(runes) {
			tail = append(tail, off)
		}
	}
	sort.Ints(tail)
	for _, off := range tail {
		for _, ev := range events[off] {
			stream = append(stream, Instruction{Kind: FormatToggle, Format: ev.Kind})
		}
	}
	return stream
}
