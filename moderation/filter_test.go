package moderation_test

import (
	"minimessenger/moderation"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilter_Apply(t *testing.T) {
	filter, err := moderation.NewFilter([]string{"badger", "snake", "mushroom"}, moderation.DefaultMask)
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple word", input: "The badger is here", expected: "The ****** is here"},
		{name: "repeated word", input: "badger badger badger", expected: "****** ****** ******"},
		{name: "leet and inner punctuation", input: "Look at B.4.d.g.€r !", expected: "Look at ********** !"},
		{name: "uppercase with separators", input: "S-N-A-K-E is a B.A.D.G.E.R", expected: "********* is a ***********"},
		{name: "accents untouched", input: "Un été avec un badger", expected: "Un été avec un ******"},
		{name: "trailing punctuation kept", input: "I love badger!", expected: "I love ******!"},
		{name: "nothing to mask", input: "see you tomorrow", expected: "see you tomorrow"},
		{name: "empty text", input: "", expected: ""},
		{name: "only noise", input: "?? !!", expected: "?? !!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, filter.Apply(tt.input))
		})
	}
}

func TestFilter_Without_Words_Is_Nil_And_Inert(t *testing.T) {
	req := require.New(t)
	filter, err := moderation.NewFilter([]string{"", " ", "..."}, moderation.DefaultMask)
	req.NoError(err)
	req.Nil(filter)
	req.Equal("badger", filter.Apply("badger"))
}

func BenchmarkFilter_Apply(b *testing.B) {
	words := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		words = append(words, "forbidden"+string(rune('a'+i%26))+string(rune('a'+(i/26)%26)))
	}
	filter, err := moderation.NewFilter(words, moderation.DefaultMask)
	require.NoError(b, err)
	text := "a perfectly ordinary message that mentions forbiddenab once"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = filter.Apply(text)
	}
}
