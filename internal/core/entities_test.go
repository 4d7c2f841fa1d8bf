package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractBoth(t *testing.T, parser EntityParser, cell any) (hashtags, mentions Extraction) {
	t.Helper()
	decode, err := DecoderFor(parser)
	require.NoError(t, err)
	return ExtractEntities(decode, cell, HashtagEntities), ExtractEntities(decode, cell, MentionEntities)
}

func TestExtractEntities_Examples(t *testing.T) {
	tests := []struct {
		name         string
		cell         any
		wantHashtags []string
		wantMentions []string
		hashtagFail  bool
		mentionFail  bool
	}{
		{
			name:         "hashtags and empty mentions",
			cell:         "{'hashtags': [{'tag': 'gym'}, {'tag': 'worlds'}], 'mentions': []}",
			wantHashtags: []string{"gym", "worlds"},
			wantMentions: []string{},
		},
		{
			name:         "extra fields ignored",
			cell:         "{'hashtags': [{'start': 0, 'end': 4, 'tag': 'gym'}], 'mentions': [{'start': 5, 'username': 'usagym', 'id': '1'}]}",
			wantHashtags: []string{"gym"},
			wantMentions: []string{"usagym"},
		},
		{
			name:         "keys absent",
			cell:         "{'urls': []}",
			wantHashtags: []string{},
			wantMentions: []string{},
		},
		{
			name:         "not parseable",
			cell:         "not valid at all",
			wantHashtags: []string{},
			wantMentions: []string{},
			hashtagFail:  true,
			mentionFail:  true,
		},
		{
			name:         "null cell",
			cell:         nil,
			wantHashtags: []string{},
			wantMentions: []string{},
			hashtagFail:  true,
			mentionFail:  true,
		},
		{
			name:         "root is a list",
			cell:         "[{'tag': 'gym'}]",
			wantHashtags: []string{},
			wantMentions: []string{},
			hashtagFail:  true,
			mentionFail:  true,
		},
		{
			name:         "value is not a list",
			cell:         "{'hashtags': 'gym', 'mentions': []}",
			wantHashtags: []string{},
			wantMentions: []string{},
			hashtagFail:  true,
		},
		{
			name:         "entry is not a mapping",
			cell:         "{'hashtags': ['gym']}",
			wantHashtags: []string{},
			wantMentions: []string{},
			hashtagFail:  true,
		},
		{
			name:         "entry missing field",
			cell:         "{'mentions': [{'username': 'a'}, {'id': '2'}]}",
			wantHashtags: []string{},
			wantMentions: []string{},
			mentionFail:  true,
		},
		{
			name:         "field is not a string",
			cell:         "{'hashtags': [{'tag': 7}]}",
			wantHashtags: []string{},
			wantMentions: []string{},
			hashtagFail:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := extractBoth(t, ParserReplace, tt.cell)

			assert.Equal(t, tt.wantHashtags, h.OrEmpty())
			assert.Equal(t, tt.wantMentions, m.OrEmpty())
			assert.Equal(t, tt.hashtagFail, h.Err != nil, "hashtag err: %v", h.Err)
			assert.Equal(t, tt.mentionFail, m.Err != nil, "mention err: %v", m.Err)
			if h.Err != nil {
				assert.ErrorIs(t, h.Err, ErrEntities)
			}
		})
	}
}

func TestExtractEntities_Apostrophe(t *testing.T) {
	cell := `{'hashtags': [{'tag': "o'neill"}, {'tag': 'gym'}], 'mentions': [{'username': 'usagym'}]}`

	t.Run("replace falls back", func(t *testing.T) {
		h, m := extractBoth(t, ParserReplace, cell)
		assert.Error(t, h.Err)
		assert.Error(t, m.Err)
		assert.Equal(t, []string{}, h.OrEmpty())
		assert.Equal(t, []string{}, m.OrEmpty())
	})

	t.Run("literal extracts", func(t *testing.T) {
		h, m := extractBoth(t, ParserLiteral, cell)
		require.NoError(t, h.Err)
		require.NoError(t, m.Err)
		assert.Equal(t, []string{"o'neill", "gym"}, h.Values)
		assert.Equal(t, []string{"usagym"}, m.Values)
	})
}

func TestExtractEntities_ParsersAgreeOnCleanInput(t *testing.T) {
	cell := "{'hashtags': [{'tag': 'a'}, {'tag': 'b'}], 'mentions': [{'username': 'c'}]}"
	rh, rm := extractBoth(t, ParserReplace, cell)
	lh, lm := extractBoth(t, ParserLiteral, cell)
	assert.Equal(t, rh, lh)
	assert.Equal(t, rm, lm)
}

func TestExtraction_OrEmptyNeverNil(t *testing.T) {
	assert.NotNil(t, Extraction{}.OrEmpty())
	assert.NotNil(t, Extraction{Values: []string{"x"}, Err: ErrEntities}.OrEmpty())
	assert.Empty(t, Extraction{Values: []string{"x"}, Err: ErrEntities}.OrEmpty())
}

func TestDecoderFor(t *testing.T) {
	for _, p := range []EntityParser{"", ParserReplace, "REPLACE", ParserLiteral, "Literal"} {
		d, err := DecoderFor(p)
		require.NoError(t, err, "parser %q", p)
		assert.NotNil(t, d)
	}
	_, err := DecoderFor("regex")
	assert.Error(t, err)
}
