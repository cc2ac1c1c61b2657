package views

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// sanitizeForTerminal prepares remote text for a tview cell. It drops control
// characters, so a peer cannot move the cursor or change colors with escape
// sequences, and codepoints that tcell renders at the wrong width:
// skin tone modifiers, the zero width joiner and variation selectors.
// Newlines and tabs become spaces when singleLine is set.
func sanitizeForTerminal(s string, singleLine bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == utf8.RuneError && size == 1:
			continue
		case r == '\n' || r == '\t':
			if singleLine {
				b.WriteRune(' ')
			} else {
				b.WriteRune(r)
			}
		case unicode.IsControl(r), isProblematicRune(r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	case r == 0x200D: // zero width joiner
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r >= 0xE0100 && r <= 0xE01EF: // variation selectors supplement
		return true
	default:
		return false
	}
}

func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now = now.Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
