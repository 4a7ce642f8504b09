// Filename: internal/textproc/markup.go
package textproc

import "sort"

// FormatKind identifies one of the inline styles the replay engine can
// toggle on the target surface. The numeric order is the tie-break priority
// used when several events land on the same character offset.
type FormatKind int

const (
	Bold FormatKind = iota
	Italic
	Underline
)

// String returns the lower-case style name.
func (k FormatKind) String() string {
	switch k {
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	case Underline:
		return "underline"
	}
	return "unknown"
}

// FormatEdge marks whether an event opens or closes a styled region.
type FormatEdge int

const (
	EdgeStart FormatEdge = iota
	EdgeEnd
)

// FormatEvent records a style boundary at a character offset of the
// stripped text. Every EdgeStart has exactly one matching later EdgeEnd of
// the same kind.
type FormatEvent struct {
	Offset int
	Kind   FormatKind
	Edge   FormatEdge
}

// markerPass describes one stripping pass. Passes run in the fixed order
// bold, italic, underline; each pass consumes the previous pass's output.
type markerPass struct {
	kind   FormatKind
	delims []string
	// single-character delimiters must not sit next to a doubled one, so
	// "**x**" left behind by an unmatched bold marker is never read as
	// italic.
	skipDoubled bool
}

var markerPasses = []markerPass{
	{kind: Bold, delims: []string{"**", "__"}},
	{kind: Italic, delims: []string{"*", "_"}, skipDoubled: true},
	{kind: Underline, delims: []string{"~~"}},
}

// ParseMarkup strips the inline marker grammars (**bold**/__bold__,
// *italic*/_italic_, ~~underline~~) from text and returns the stripped text
// together with the style events grouped by character offset in that
// stripped text. Unterminated markers are left as literal text and emit no
// events. ParseMarkup runs on raw text, before Normalize.
func ParseMarkup(text string) (string, map[int][]FormatEvent) {
	runes := []rune(text)
	var events []FormatEvent

	for _, pass := range markerPasses {
		var passEvents []FormatEvent
		runes, passEvents, events = stripPass(runes, pass, events)
		events = append(events, passEvents...)
	}

	grouped := make(map[int][]FormatEvent, len(events))
	for _, ev := range events {
		grouped[ev.Offset] = append(grouped[ev.Offset], ev)
	}
	for off := range grouped {
		dedupeAndSort(grouped[off])
		grouped[off] = dedupe(grouped[off])
	}
	return string(runes), grouped
}

// stripPass removes one marker grammar from in, emitting Start/End events at
// offsets valid in the pass output. Events collected by earlier passes are
// remapped through this pass's offset shifts so they stay valid too.
func stripPass(in []rune, pass markerPass, prior []FormatEvent) (out []rune, passEvents, remapped []FormatEvent) {
	out = make([]rune, 0, len(in))
	// outAt[i] is the output offset corresponding to input offset i.
	outAt := make([]int, len(in)+1)

	i := 0
	for i < len(in) {
		outAt[i] = len(out)
		delim := matchDelim(in, i, pass)
		if delim == "" {
			out = append(out, in[i])
			i++
			continue
		}
		dl := len([]rune(delim))
		closeAt := findClose(in, i+dl, delim, pass)
		if closeAt < 0 {
			// Unterminated: the opening delimiter stays literal.
			for k := 0; k < dl; k++ {
				outAt[i+k] = len(out)
				out = append(out, in[i+k])
			}
			i += dl
			continue
		}
		// Opening delimiter runes map to the first content offset.
		for k := 0; k <= dl && i+k < len(outAt); k++ {
			outAt[i+k] = len(out)
		}
		passEvents = append(passEvents, FormatEvent{Offset: len(out), Kind: pass.kind, Edge: EdgeStart})
		for j := i + dl; j < closeAt; j++ {
			outAt[j] = len(out)
			out = append(out, in[j])
		}
		passEvents = append(passEvents, FormatEvent{Offset: len(out), Kind: pass.kind, Edge: EdgeEnd})
		for k := 0; k <= dl && closeAt+k < len(outAt); k++ {
			outAt[closeAt+k] = len(out)
		}
		i = closeAt + dl
	}
	outAt[len(in)] = len(out)

	remapped = make([]FormatEvent, len(prior))
	for n, ev := range prior {
		ev.Offset = outAt[min(ev.Offset, len(in))]
		remapped[n] = ev
	}
	return out, passEvents, remapped
}

// matchDelim returns the delimiter starting at position i, or "" when none
// of the pass delimiters matches there.
func matchDelim(in []rune, i int, pass markerPass) string {
	for _, d := range pass.delims {
		dr := []rune(d)
		if !runesHavePrefix(in[i:], dr) {
			continue
		}
		if pass.skipDoubled && i+1 < len(in) && in[i+1] == dr[0] {
			// Adjacent doubled delimiter, e.g. a leftover "**".
			continue
		}
		return d
	}
	return ""
}

// findClose locates the matching closing delimiter for an opening one at
// start-1. Content must be non-empty. Returns -1 when unterminated.
func findClose(in []rune, start int, delim string, pass markerPass) int {
	dr := []rune(delim)
	for j := start + 1; j+len(dr) <= len(in); j++ {
		if !runesHavePrefix(in[j:], dr) {
			continue
		}
		if pass.skipDoubled && j+1 < len(in) && in[j+1] == dr[0] {
			continue
		}
		return j
	}
	return -1
}

func runesHavePrefix(s, prefix []rune) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}
	return true
}

// dedupeAndSort orders events at a shared offset by kind priority (bold,
// italic, underline) with Start before End inside a kind.
func dedupeAndSort(evs []FormatEvent) {
	sort.SliceStable(evs, func(a, b int) bool {
		if evs[a].Kind != evs[b].Kind {
			return evs[a].Kind < evs[b].Kind
		}
		return evs[a].Edge < evs[b].Edge
	})
}

// dedupe drops exact duplicate (offset, kind, edge) triples; evs must be
// sorted.
func dedupe(evs []FormatEvent) []FormatEvent {
	out := evs[:0]
	for i, ev := range evs {
		if i > 0 && ev == evs[i-1] {
			continue
		}
		out = append(out, ev)
	}
	return out
}
