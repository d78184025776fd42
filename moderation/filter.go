// Package moderation masks blacklisted words in message text before it is stored.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

const DefaultMask = '*'

// Filter matches a fixed word list with an Aho-Corasick automaton.
// Matching ignores case, punctuation, spacing and common leet substitutions,
// so "B.4.d.g.e.r" is caught by "badger". A nil *Filter leaves text untouched.
type Filter struct {
	machine *goahocorasick.Machine
	mask    rune
}

// folded is text reduced to its matchable runes. positions[i] is the index
// of folded[i] in the original rune slice.
type folded struct {
	runes     []rune
	positions []int
}

// NewFilter returns nil when no usable word is given.
func NewFilter(words []string, mask rune) (*Filter, error) {
	patterns := lo.FilterMap(words, func(word string, _ int) ([]rune, bool) {
		f := fold([]rune(word))
		return f.runes, len(f.runes) > 0
	})
	if len(patterns) == 0 {
		return nil, nil
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Filter{machine: machine, mask: mask}, nil
}

// Apply replaces every rune spanned by a match with the mask.
// Spacing and noise between matched runes are masked as well.
func (f *Filter) Apply(text string) string {
	if f == nil || text == "" {
		return text
	}
	original := []rune(text)
	view := fold(original)
	if len(view.runes) == 0 {
		return text
	}
	matches := f.machine.MultiPatternSearch(view.runes, false)
	if len(matches) == 0 {
		return text
	}
	for _, match := range matches {
		end := match.Pos + len(match.Word)
		if match.Pos < 0 || end > len(view.positions) {
			continue
		}
		for i := view.positions[match.Pos]; i <= view.positions[end-1]; i++ {
			original[i] = f.mask
		}
	}
	return string(original)
}

func fold(input []rune) folded {
	out := folded{runes: make([]rune, 0, len(input)), positions: make([]int, 0, len(input))}
	for i, r := range input {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		out.runes = append(out.runes, unicode.ToLower(r))
		out.positions = append(out.positions, i)
	}
	return out
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
