// Package mention splits message bodies into plain text and @member spans.
package mention

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samiuddin-code/datportal-sub005/internal/chat"
)

// Segment is either literal text or a resolved mention. Text always holds the
// original characters, including the leading '@' for mentions.
type Segment struct {
	Text    string
	Mention *chat.Member
}

// IsMention reports whether the segment resolved to a member.
func (s Segment) IsMention() bool { return s.Mention != nil }

// Tokenize resolves "@Name" spans against members. Names match
// case-insensitively, the longest name wins, and a match must end on a word
// boundary. Unmatched '@' stays in the surrounding text.
func Tokenize(body string, members []chat.Member) []Segment {
	if body == "" {
		return nil
	}
	candidates := slices.Clone(members)
	candidates = slices.DeleteFunc(candidates, func(m chat.Member) bool {
		return strings.TrimSpace(m.Name) == ""
	})
	slices.SortStableFunc(candidates, func(a, b chat.Member) int {
		return cmp.Compare(len(b.Name), len(a.Name))
	})

	var (
		out   []Segment
		start int
	)
	for i := 0; i < len(body); {
		if body[i] != '@' || !boundaryBefore(body, i) {
			_, size := utf8.DecodeRuneInString(body[i:])
			i += size
			continue
		}
		m, n := match(body[i+1:], candidates)
		if m == nil {
			i++
			continue
		}
		if start < i {
			out = append(out, Segment{Text: body[start:i]})
		}
		end := i + 1 + n
		out = append(out, Segment{Text: body[i:end], Mention: m})
		i, start = end, end
	}
	if start < len(body) {
		out = append(out, Segment{Text: body[start:]})
	}
	return out
}

// Plain joins segments back into text.
func Plain(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

func match(rest string, candidates []chat.Member) (*chat.Member, int) {
	for i := range candidates {
		n, ok := prefixFold(rest, candidates[i].Name)
		if !ok || !boundaryAfter(rest, n) {
			continue
		}
		m := candidates[i]
		return &m, n
	}
	return nil, 0
}

// prefixFold reports whether s starts with name under simple case folding,
// and how many bytes of s the match covers. The byte count can differ from
// len(name).
func prefixFold(s, name string) (int, bool) {
	n := 0
	for _, want := range name {
		if n >= len(s) {
			return 0, false
		}
		got, size := utf8.DecodeRuneInString(s[n:])
		if !foldEqual(got, want) {
			return 0, false
		}
		n += size
	}
	return n, true
}

func foldEqual(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWord(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWord(r)
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
