package survey

import (
	"context"
	"net/url"
	"testing"

	"github.com/mbolis/surveydesk/model"
	"github.com/mbolis/surveydesk/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesFromForm(t *testing.T) {
	form := url.Values{
		"1":                {" Alice "},
		"2[]":              {"a", "b", "a", " "},
		"csrf":             {"ignored"},
		TokenField:         {"x"},
		"not-a-question[]": {"y"},
	}
	values := ValuesFromForm(form)

	assert.Len(t, values, 2)
	assert.Equal(t, "Alice", values.Single(1))
	assert.Equal(t, []string{"a", "b"}, values.List(2))
	assert.Equal(t, "", values.Single(3))
	assert.Empty(t, values.List(3))
}

func TestValuesFromFormMixedKeys(t *testing.T) {
	form := url.Values{"5[]": {"listed", "more"}, "5": {"plain"}}
	for i := 0; i < 20; i++ {
		values := ValuesFromForm(form)
		require.Equal(t, "plain", values.Single(5))
		require.Equal(t, []string{"plain", "listed", "more"}, values.List(5))
	}
}

func TestValuesFromJSON(t *testing.T) {
	values, err := ValuesFromJSON(map[string]any{
		"1": "pizza",
		"2": []any{"ham", 3.0, true},
		"3": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "pizza", values.Single(1))
	assert.Equal(t, []string{"ham", "3", "true"}, values.List(2))
	assert.Empty(t, values[3])

	_, err = ValuesFromJSON(map[string]any{"nope": "x"})
	assert.Error(t, err)
	_, err = ValuesFromJSON(map[string]any{"1": map[string]any{"x": 1}})
	assert.Error(t, err)
}

func TestNormalizeToken(t *testing.T) {
	minted, err := NormalizeToken("")
	require.NoError(t, err)
	assert.Len(t, minted, 36)

	got, err := NormalizeToken("6F9619FF-8B86-D011-B42D-00C04FC964FF")
	require.NoError(t, err)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", got)

	_, err = NormalizeToken("twice")
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestAnswerLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.question("Favourite food", model.QuestionChoice, false)
	lookup := NewAnswerLookup(f.db)

	empty, err := lookup.AnswersForQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	missing, err := lookup.AnswersForQuestion(ctx, 4242)
	require.NoError(t, err)
	assert.Empty(t, missing)

	for _, text := range []string{"pizza", "sushi"} {
		require.NoError(t, store.CreateAnswer(ctx, f.db, &model.Answer{QuestionID: q.ID, Text: text}))
	}
	options, err := lookup.AnswersForQuestion(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "pizza", options[0].Text)
	assert.Equal(t, "sushi", options[1].Text)
	assert.Less(t, options[0].ID, options[1].ID)
}
