package routes

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/surveydesk/admin"
	"github.com/mbolis/surveydesk/app"
	"github.com/mbolis/surveydesk/database"
	"github.com/mbolis/surveydesk/httpx"
	"github.com/mbolis/surveydesk/log"
	"github.com/mbolis/surveydesk/model"
	"github.com/mbolis/surveydesk/store"
)

// Surveys

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := store.ListSurveys(r.Context(), app.DB)
		if err != nil {
			httpx.LogInternalError(w, "db.get_surveys", err)
			return
		}
		render.JSON(w, r, map[string]any{
			"surveys": surveys,
		})
	}
}

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := model.Survey{}
		if err := render.DecodeJSON(r.Body, &s); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := admin.ValidateSurvey(s); err != nil {
			fail(w, r, "insert_survey.validate", err, nil)
			return
		}

		if err := store.CreateSurvey(r.Context(), app.DB, &s); err != nil {
			fail(w, r, "db.insert_survey", err, nil)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, s)
	}
}

func GetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(w, r)
		if !ok {
			return
		}
		s, err := store.GetSurvey(r.Context(), app.DB, surveyId)
		if err != nil {
			fail(w, r, "db.get_survey", err, surveyId)
			return
		}
		s.Questions, err = store.ListQuestions(r.Context(), app.DB, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey.questions", err)
			return
		}
		render.JSON(w, r, s)
	}
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(w, r)
		if !ok {
			return
		}
		s := model.Survey{}
		if err := render.DecodeJSON(r.Body, &s); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		s.ID = surveyId
		if err := admin.ValidateSurvey(s); err != nil {
			fail(w, r, "update_survey.validate", err, surveyId)
			return
		}

		if err := store.UpdateSurvey(r.Context(), app.DB, s); err != nil {
			fail(w, r, "db.update_survey", err, surveyId)
			return
		}
		render.JSON(w, r, s)
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(w, r)
		if !ok {
			return
		}
		questions, err := store.ListQuestions(r.Context(), app.DB, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_survey.questions", err)
			return
		}
		if err := store.DeleteSurvey(r.Context(), app.DB, surveyId); err != nil {
			fail(w, r, "db.delete_survey", err, surveyId)
			return
		}

		ids := make([]int, 0, len(questions))
		for _, q := range questions {
			ids = append(ids, q.ID)
		}
		app.InvalidateAnswers(r.Context(), ids...)
		w.WriteHeader(http.StatusNoContent)
	}
}

// Questions

func ListQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := queryID(w, r, "survey")
		if !ok {
			return
		}
		if surveyId == nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.survey", "survey is required")
			return
		}
		questions, err := store.ListQuestions(r.Context(), app.DB, *surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_questions", err)
			return
		}
		render.JSON(w, r, map[string]any{
			"questions": questions,
		})
	}
}

// saveQuestion validates and writes inside one transaction, so the dependency
// checks see the same rows the write does.
func saveQuestion(app app.App, w http.ResponseWriter, r *http.Request, qn *model.Question, code string) bool {
	err := database.WithTx(r.Context(), app.DB, func(tx *sql.Tx) error {
		// a question never moves between surveys
		if qn.ID != 0 {
			existing, err := store.GetQuestion(r.Context(), tx, qn.ID)
			if err != nil {
				return err
			}
			qn.SurveyID = existing.SurveyID
		}
		if err := admin.ValidateQuestion(r.Context(), tx, *qn); err != nil {
			return err
		}
		if qn.ID == 0 {
			return store.CreateQuestion(r.Context(), tx, qn)
		}
		return store.UpdateQuestion(r.Context(), tx, *qn)
	})
	if err != nil {
		fail(w, r, code, err, qn.ID)
		return false
	}
	return true
}

func CreateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qn := model.Question{}
		if err := render.DecodeJSON(r.Body, &qn); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		qn.ID = 0
		if !saveQuestion(app, w, r, &qn, "db.insert_question") {
			return
		}

		saved, err := store.GetQuestion(r.Context(), app.DB, qn.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.get_question", err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, saved)
	}
}

func GetQuestionById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, ok := urlID(w, r)
		if !ok {
			return
		}
		qn, err := store.GetQuestion(r.Context(), app.DB, questionId)
		if err != nil {
			fail(w, r, "db.get_question", err, questionId)
			return
		}
		render.JSON(w, r, qn)
	}
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, ok := urlID(w, r)
		if !ok {
			return
		}
		qn := model.Question{}
		if err := render.DecodeJSON(r.Body, &qn); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		qn.ID = questionId
		if !saveQuestion(app, w, r, &qn, "db.update_question") {
			return
		}

		saved, err := store.GetQuestion(r.Context(), app.DB, qn.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.get_question", err)
			return
		}
		render.JSON(w, r, saved)
	}
}

func DeleteQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, ok := urlID(w, r)
		if !ok {
			return
		}
		if err := store.DeleteQuestion(r.Context(), app.DB, questionId); err != nil {
			fail(w, r, "db.delete_question", err, questionId)
			return
		}
		app.InvalidateAnswers(r.Context(), questionId)
		w.WriteHeader(http.StatusNoContent)
	}
}

// Answers

func ListAnswers(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, ok := queryID(w, r, "question")
		if !ok {
			return
		}
		if questionId == nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.question", "question is required")
			return
		}
		answers, err := store.ListAnswers(r.Context(), app.DB, *questionId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_answers", err)
			return
		}
		render.JSON(w, r, map[string]any{
			"answers": answers,
		})
	}
}

func CreateAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := model.Answer{}
		if err := render.DecodeJSON(r.Body, &a); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := admin.ValidateAnswer(&a); err != nil {
			fail(w, r, "insert_answer.validate", err, nil)
			return
		}
		if err := store.CreateAnswer(r.Context(), app.DB, &a); err != nil {
			fail(w, r, "db.insert_answer", err, nil)
			return
		}
		app.InvalidateAnswers(r.Context(), a.QuestionID)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, a)
	}
}

func UpdateAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answerId, ok := urlID(w, r)
		if !ok {
			return
		}
		a := model.Answer{}
		if err := render.DecodeJSON(r.Body, &a); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		prev, err := store.GetAnswer(r.Context(), app.DB, answerId)
		if err != nil {
			fail(w, r, "db.get_answer", err, answerId)
			return
		}
		if err := admin.ValidateAnswer(&a); err != nil {
			fail(w, r, "update_answer.validate", err, answerId)
			return
		}
		a.ID, a.QuestionID = answerId, prev.QuestionID
		if err := store.UpdateAnswer(r.Context(), app.DB, a); err != nil {
			fail(w, r, "db.update_answer", err, answerId)
			return
		}
		app.InvalidateAnswers(r.Context(), a.QuestionID)
		render.JSON(w, r, a)
	}
}

func DeleteAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answerId, ok := urlID(w, r)
		if !ok {
			return
		}
		a, err := store.GetAnswer(r.Context(), app.DB, answerId)
		if err != nil {
			fail(w, r, "db.get_answer", err, answerId)
			return
		}
		if err := store.DeleteAnswer(r.Context(), app.DB, answerId); err != nil {
			fail(w, r, "db.delete_answer", err, answerId)
			return
		}
		app.InvalidateAnswers(r.Context(), a.QuestionID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// Responses. Callers without admin.ViewAllResponses only ever see their own.

func ListResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := httpx.PrincipalFrom(r.Context())
		filter := store.ResponseFilter{}
		var ok bool
		if filter.SurveyID, ok = queryID(w, r, "survey"); !ok {
			return
		}
		if filter.UserID, ok = queryID(w, r, "user"); !ok {
			return
		}

		responses, err := store.ListResponses(r.Context(), app.DB, admin.ScopeResponses(p, filter))
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}
		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

// visibleResponse loads a response, answering 404 for one the caller may not see.
func visibleResponse(app app.App, w http.ResponseWriter, r *http.Request) (model.Response, bool) {
	responseId, ok := urlID(w, r)
	if !ok {
		return model.Response{}, false
	}
	resp, err := store.GetResponse(r.Context(), app.DB, responseId)
	if err != nil {
		fail(w, r, "db.get_response", err, responseId)
		return model.Response{}, false
	}
	p, _ := httpx.PrincipalFrom(r.Context())
	if !admin.CanSeeResponse(p, resp) {
		httpx.LogNotFound(w, "get_response.scope", responseId)
		return model.Response{}, false
	}
	return resp, true
}

func GetResponseById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, ok := visibleResponse(app, w, r)
		if !ok {
			return
		}
		render.JSON(w, r, resp)
	}
}

func GetResponseChoices(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, ok := visibleResponse(app, w, r)
		if !ok {
			return
		}
		choices, err := admin.ResponseChoices(r.Context(), app.DB, resp)
		if err != nil {
			httpx.LogInternalError(w, "db.get_response.choices", err)
			return
		}
		render.JSON(w, r, map[string]any{
			"choices": choices,
		})
	}
}

type responseAnswers struct {
	Answers []int `json:"answers"`
}

func UpdateResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, ok := visibleResponse(app, w, r)
		if !ok {
			return
		}
		body := responseAnswers{}
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err := database.WithTx(r.Context(), app.DB, func(tx *sql.Tx) error {
			if err := admin.ValidateResponseAnswers(r.Context(), tx, resp, body.Answers); err != nil {
				return err
			}
			return store.SetResponseAnswers(r.Context(), tx, resp.ID, body.Answers)
		})
		if err != nil {
			fail(w, r, "db.update_response", err, resp.ID)
			return
		}

		updated, err := store.GetResponse(r.Context(), app.DB, resp.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.get_response", err)
			return
		}
		render.JSON(w, r, updated)
	}
}

func DeleteResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, ok := visibleResponse(app, w, r)
		if !ok {
			return
		}
		if err := store.DeleteResponse(r.Context(), app.DB, resp.ID); err != nil {
			fail(w, r, "db.delete_response", err, resp.ID)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
