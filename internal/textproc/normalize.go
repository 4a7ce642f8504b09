// Filename: internal/textproc/normalize.go
package textproc

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// substitution is one entry of the fixed replacement table. Entries are
// applied in table order; later entries never reintroduce characters handled
// by earlier ones, which keeps Normalize idempotent.
type substitution struct {
	from string
	to   string
}

// substitutionTable folds confusable and invisible code points to a stable
// ASCII-friendly form. Order: quotes, dashes, ellipsis, NBSP, generic Unicode
// spaces and line separators, zero-width characters, primes, bullets, symbols.
var substitutionTable = []substitution{
	// Smart double quotes and guillemets.
	{"“", `"`}, {"”", `"`}, {"„", `"`}, {"‟", `"`},
	{"«", `"`}, {"»", `"`},
	// Smart single quotes and curly apostrophes.
	{"‘", "'"}, {"’", "'"}, {"‚", "'"}, {"‛", "'"},
	// Dashes: em, en, figure, horizontal bar, minus sign.
	{"—", "-"}, {"–", "-"}, {"‒", "-"}, {"―", "-"},
	{"−", "-"},
	// Ellipsis.
	{"…", "..."},
	// Non-breaking spaces.
	{" ", " "}, {" ", " "},
	// Generic Unicode spaces (U+2000..U+200A, medium math space, ideographic).
	{" ", " "}, {" ", " "}, {" ", " "}, {" ", " "},
	{" ", " "}, {" ", " "}, {" ", " "}, {" ", " "},
	{" ", " "}, {" ", " "}, {" ", " "}, {" ", " "},
	{"　", " "},
	// Line and paragraph separators.
	{" ", "\n"}, {" ", "\n\n"},
	// Zero-width characters, removed outright.
	{"​", ""}, {"‌", ""}, {"‍", ""}, {"\uFEFF", ""},
	// Prime marks.
	{"′", "'"}, {"″", `"`},
	// Bullets.
	{"•", "-"}, {"▪", "-"}, {"‣", "-"}, {"·", "-"},
	// Symbol code points.
	{"©", "(c)"}, {"®", "(r)"}, {"™", "(tm)"},
}

// disallowedRunes is the set of code points Normalize guarantees absent from
// its output, derived from the substitution table plus combining marks.
var disallowedRunes = func() map[rune]bool {
	set := make(map[rune]bool, len(substitutionTable))
	for _, s := range substitutionTable {
		for _, r := range s.from {
			set[r] = true
		}
	}
	return set
}()

// IsDisallowed reports whether r belongs to the substitution set that
// Normalize removes or replaces. Combining marks are disallowed as a class.
func IsDisallowed(r rune) bool {
	return disallowedRunes[r] || unicode.Is(unicode.Mn, r)
}

// Normalize converts raw text into canonical text: NFD-decomposed, line
// endings unified, confusable characters folded per the substitution table,
// whitespace collapsed and trimmed. It is deterministic, total and
// idempotent; empty input yields empty output.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// 1. Canonical decomposition so combining marks become separable.
	text = norm.NFD.String(text)

	// 2. Line-ending unification.
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	// 3. Substitution table, fixed order. Applied before blank-line folding
	// so that separators mapped to "\n\n" participate in the collapse below.
	for _, s := range substitutionTable {
		text = strings.ReplaceAll(text, s.from, s.to)
	}

	// 4. Combining-mark removal (everything category Mn after NFD).
	text = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, text)

	// 5. Collapse blank-line runs to a single paragraph break, then collapse
	// space/tab runs, strip spaces adjacent to breaks and trim the whole.
	text = collapseBlankLines(text)
	text = collapseSpacing(text)

	return strings.TrimSpace(text)
}

// collapseBlankLines reduces any run of blank lines (line break, optional
// spaces or tabs, further line breaks) to exactly one empty line, preserving
// paragraph boundaries while discarding deeper stacking.
func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		if strings.TrimLeft(line, " \t") == "" {
			blank++
			continue
		}
		if blank > 0 && len(out) > 0 {
			out = append(out, "")
		}
		blank = 0
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// collapseSpacing folds runs of plain spaces and tabs into one space and
// removes spaces and tabs that touch a line break on either side.
func collapseSpacing(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	last := rune('\n') // Treat start-of-text like a line break.
	for _, r := range text {
		switch r {
		case ' ', '\t':
			pendingSpace = true
		case '\n':
			// Spaces before a break are dropped.
			pendingSpace = false
			last = '\n'
			b.WriteByte('\n')
		default:
			if pendingSpace {
				if last != '\n' {
					b.WriteByte(' ')
				}
				pendingSpace = false
			}
			last = r
			b.WriteRune(r)
		}
	}
	return b.String()
}
