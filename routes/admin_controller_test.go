package routes

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/mbolis/surveydesk/app"
	"github.com/mbolis/surveydesk/cache"
	"github.com/mbolis/surveydesk/httpx"
	"github.com/mbolis/surveydesk/model"
	"github.com/mbolis/surveydesk/store"
	"github.com/mbolis/surveydesk/survey"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRequiresCapability(t *testing.T) {
	s := newTestServer(t)

	rec := s.sendJSON(http.MethodGet, "/admin/surveys/", s.token("alice"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.sendJSON(http.MethodGet, "/admin/surveys/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.sendJSON(http.MethodGet, "/admin/surveys/", s.token("staff"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminSurveyQuestionAnswerCRUD(t *testing.T) {
	s := newTestServer(t)
	token := s.token("staff")
	now := time.Now()

	rec := s.sendJSON(http.MethodPost, "/admin/surveys/", token, model.Survey{Title: "Lunch", StartDate: now, EndDate: now.Add(-time.Hour)})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotEmpty(t, decode[httpx.ErrorBody](t, rec).Problems)

	rec = s.sendJSON(http.MethodPost, "/admin/surveys/", token, model.Survey{Title: "Lunch", StartDate: now, EndDate: now.Add(time.Hour)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sv := decode[model.Survey](t, rec)

	rec = s.sendJSON(http.MethodPost, "/admin/questions/", token, model.Question{SurveyID: sv.ID, Text: "Hungry?", Type: model.QuestionChoice})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	hungry := decode[model.Question](t, rec)

	rec = s.sendJSON(http.MethodPost, "/admin/answers/", token, model.Answer{QuestionID: hungry.ID, Text: "Yes"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	yes := decode[model.Answer](t, rec)

	rec = s.sendJSON(http.MethodPost, "/admin/answers/", token, model.Answer{QuestionID: hungry.ID, Text: "Yes"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.sendJSON(http.MethodPost, "/admin/questions/", token, model.Question{
		SurveyID: sv.ID, Text: "What?", Type: model.QuestionText,
		DependentOn: &hungry.ID, RequiredAnswers: []int{yes.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	what := decode[model.Question](t, rec)
	assert.Equal(t, []string{"Yes"}, what.RequiredAnswerTexts)

	// required answers must belong to the dependency
	rec = s.sendJSON(http.MethodPost, "/admin/questions/", token, model.Question{
		SurveyID: sv.ID, Text: "Bad", Type: model.QuestionText,
		DependentOn: &what.ID, RequiredAnswers: []int{yes.ID},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[httpx.ErrorBody](t, rec).Problems[0], "Select a valid choice.")

	// hungry -> what -> hungry
	hungry.DependentOn = &what.ID
	rec = s.sendJSON(http.MethodPut, fmt.Sprintf("/admin/questions/%d/", hungry.ID), token, hungry)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.sendJSON(http.MethodGet, "/admin/questions/?survey="+strconv.Itoa(sv.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[struct{ Questions []model.Question }](t, rec).Questions, 2)

	rec = s.sendJSON(http.MethodPut, fmt.Sprintf("/admin/answers/%d/", yes.ID), token, model.Answer{Text: "Yes!"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.sendJSON(http.MethodGet, "/admin/answers/?question="+strconv.Itoa(hungry.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	answers := decode[struct{ Answers []model.Answer }](t, rec).Answers
	require.Len(t, answers, 1)
	assert.Equal(t, "Yes!", answers[0].Text)

	rec = s.sendJSON(http.MethodDelete, fmt.Sprintf("/admin/surveys/%d/", sv.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.sendJSON(http.MethodGet, fmt.Sprintf("/admin/surveys/%d/", sv.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// submitFor stores one choice response per user through the public endpoint.
func submitFor(t *testing.T, s *testServer, surveyID, questionID int, users ...string) {
	t.Helper()
	for _, u := range users {
		rec := s.sendJSON(http.MethodPost, fmt.Sprintf("/surveys/%d/", surveyID), s.token(u), map[string]any{
			"answers": map[string]any{strconv.Itoa(questionID): "pizza"},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestAdminResponsesAreScoped(t *testing.T) {
	s := newTestServer(t)
	sv := s.survey("Lunch")
	food := s.question(model.Question{SurveyID: sv.ID, Text: "Food", Type: model.QuestionChoice})
	submitFor(t, s, sv.ID, food.ID, "alice", "bob", "staff")

	type listing struct{ Responses []model.Response }

	rec := s.sendJSON(http.MethodGet, "/admin/responses/", s.token("root"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listing](t, rec).Responses, 3)

	rec = s.sendJSON(http.MethodGet, fmt.Sprintf("/admin/responses/?user=%d", s.users["alice"].ID), s.token("root"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listing](t, rec).Responses, 1)

	staff := s.token("staff")
	rec = s.sendJSON(http.MethodGet, "/admin/responses/", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	own := decode[listing](t, rec).Responses
	require.Len(t, own, 1)
	assert.Equal(t, s.users["staff"].ID, own[0].UserID)

	// asking for someone else's responses cannot widen the scope
	rec = s.sendJSON(http.MethodGet, fmt.Sprintf("/admin/responses/?user=%d", s.users["alice"].ID), staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[listing](t, rec).Responses)

	all, err := store.ListResponses(context.Background(), s.db, store.ResponseFilter{UserID: &[]int{s.users["alice"].ID}[0]})
	require.NoError(t, err)
	require.Len(t, all, 1)
	alices := all[0]

	rec = s.sendJSON(http.MethodGet, fmt.Sprintf("/admin/responses/%d/", alices.ID), staff, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.sendJSON(http.MethodDelete, fmt.Sprintf("/admin/responses/%d/", alices.ID), staff, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.sendJSON(http.MethodGet, fmt.Sprintf("/admin/responses/%d/", alices.ID), s.token("root"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminResponseAnswersRestrictedToQuestion(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	sv := s.survey("Lunch")
	food := s.question(model.Question{SurveyID: sv.ID, Text: "Food", Type: model.QuestionChoice})
	drink := s.question(model.Question{SurveyID: sv.ID, Text: "Drink", Type: model.QuestionChoice})
	sushi, _, err := store.FindOrCreateAnswer(ctx, s.db, food.ID, "sushi")
	require.NoError(t, err)
	water, _, err := store.FindOrCreateAnswer(ctx, s.db, drink.ID, "water")
	require.NoError(t, err)
	submitFor(t, s, sv.ID, food.ID, "alice")

	responses, err := store.ListResponses(ctx, s.db, store.ResponseFilter{})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	path := fmt.Sprintf("/admin/responses/%d/", responses[0].ID)
	root := s.token("root")

	rec := s.sendJSON(http.MethodGet, path+"choices/", root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	choices := decode[struct{ Choices []model.Answer }](t, rec).Choices
	assert.Len(t, choices, 2)

	rec = s.sendJSON(http.MethodPut, path, root, map[string]any{"answers": []int{water.ID}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.sendJSON(http.MethodPut, path, root, map[string]any{"answers": []int{sushi.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.Response](t, rec)
	require.Len(t, updated.Answers, 1)
	assert.Equal(t, "sushi", updated.Answers[0].Text)

	rec = s.sendJSON(http.MethodDelete, path, root, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAdminAnswerChangesInvalidateLookupCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := newCachedTestServer(t, func(db *sql.DB) app.Cache {
		return cache.NewAnswers(client, survey.NewAnswerLookup(db), time.Minute)
	})
	sv := s.survey("Lunch")
	food := s.question(model.Question{SurveyID: sv.ID, Text: "Food", Type: model.QuestionChoice})
	lookup := fmt.Sprintf("/surveys/questions/%d/answers/", food.ID)

	rec := s.do(call{method: http.MethodGet, path: lookup})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.True(t, mr.Exists(fmt.Sprintf("answers:%d", food.ID)))

	rec = s.sendJSON(http.MethodPost, "/admin/answers/", s.token("staff"), model.Answer{QuestionID: food.ID, Text: "pizza"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: lookup})
	require.Equal(t, http.StatusOK, rec.Code)
	options := decode[[]model.AnswerOption](t, rec)
	require.Len(t, options, 1)
	assert.Equal(t, "pizza", options[0].Text)

	// a submission creating a new choice invalidates too
	submitFor(t, s, sv.ID, food.ID, "alice")
	rec = s.sendJSON(http.MethodPost, fmt.Sprintf("/surveys/%d/", sv.ID), s.token("bob"), map[string]any{
		"answers": map[string]any{strconv.Itoa(food.ID): "ramen"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: lookup})
	assert.Len(t, decode[[]model.AnswerOption](t, rec), 2)
}

func TestAdminUpdateQuestionKeepsStoredSurvey(t *testing.T) {
	s := newTestServer(t)
	token := s.token("staff")
	lunch := s.survey("Lunch")
	dinner := s.survey("Dinner")
	hungry := s.question(model.Question{SurveyID: lunch.ID, Text: "Hungry?", Type: model.QuestionChoice})
	what := s.question(model.Question{SurveyID: lunch.ID, Text: "What?", Type: model.QuestionText})
	wine := s.question(model.Question{SurveyID: dinner.ID, Text: "Wine?", Type: model.QuestionText})

	// claiming another survey does not let a dependency cross surveys
	rec := s.sendJSON(http.MethodPut, fmt.Sprintf("/admin/questions/%d/", wine.ID), token, map[string]any{
		"survey_id":     lunch.ID,
		"text":          wine.Text,
		"question_type": wine.Type,
		"dependent_on":  hungry.ID,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Contains(t, decode[httpx.ErrorBody](t, rec).Problems, "dependent_on: must belong to the same survey")

	stored, err := store.GetQuestion(context.Background(), s.db, wine.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.DependentOn)
	assert.Equal(t, dinner.ID, stored.SurveyID)

	// omitting survey_id keeps the stored one
	rec = s.sendJSON(http.MethodPut, fmt.Sprintf("/admin/questions/%d/", what.ID), token, map[string]any{
		"text":          what.Text,
		"question_type": what.Type,
		"dependent_on":  hungry.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.Question](t, rec)
	assert.Equal(t, lunch.ID, updated.SurveyID)
	require.NotNil(t, updated.DependentOn)
	assert.Equal(t, hungry.ID, *updated.DependentOn)

	rec = s.sendJSON(http.MethodPut, "/admin/questions/4242/", token, map[string]any{
		"text": "x", "question_type": "text",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminAnswerTextIsTrimmedAndBounded(t *testing.T) {
	s := newTestServer(t)
	token := s.token("staff")
	food := s.question(model.Question{SurveyID: s.survey("Lunch").ID, Text: "Food?", Type: model.QuestionChoice})

	rec := s.sendJSON(http.MethodPost, "/admin/answers/", token, model.Answer{QuestionID: food.ID, Text: "  pizza  "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pizza := decode[model.Answer](t, rec)
	assert.Equal(t, "pizza", pizza.Text)

	rec = s.sendJSON(http.MethodPost, "/admin/answers/", token, model.Answer{QuestionID: food.ID, Text: "pizza "})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.sendJSON(http.MethodPost, "/admin/answers/", token, model.Answer{QuestionID: food.ID, Text: "   "})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"text: this field is required"}, decode[httpx.ErrorBody](t, rec).Problems)

	long := strings.Repeat("x", 256)
	rec = s.sendJSON(http.MethodPost, "/admin/answers/", token, model.Answer{QuestionID: food.ID, Text: long})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"text: at most 255 characters"}, decode[httpx.ErrorBody](t, rec).Problems)

	rec = s.sendJSON(http.MethodPut, fmt.Sprintf("/admin/answers/%d/", pizza.ID), token, model.Answer{Text: long})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.sendJSON(http.MethodPut, fmt.Sprintf("/admin/answers/%d/", pizza.ID), token, model.Answer{Text: " pasta\t"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := store.GetAnswer(context.Background(), s.db, pizza.ID)
	require.NoError(t, err)
	assert.Equal(t, "pasta", stored.Text)
}
