package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/surveydesk/app"
	"github.com/mbolis/surveydesk/httpx"
	"github.com/mbolis/surveydesk/log"
	"github.com/mbolis/surveydesk/routes/middlewares"
	"github.com/mbolis/surveydesk/store"
	"github.com/mbolis/surveydesk/survey"
)

func PublicListSurveys(app app.App) http.HandlerFunc {
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

// PublicGetSurveyById returns the survey with its questions, including the
// dependency metadata clients use to show or hide conditional questions.
func PublicGetSurveyById(app app.App) http.HandlerFunc {
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

type submissionBody struct {
	Answers map[string]any `json:"answers"`
	Token   string         `json:"submission_token"`
}

func PublicSubmitSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(w, r)
		if !ok {
			return
		}
		p, ok := httpx.PrincipalFrom(r.Context())
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "submit.principal")
			return
		}

		req := survey.Request{SurveyID: surveyId, UserID: p.UserID}
		var rawToken string
		if render.GetRequestContentType(r) == render.ContentTypeJSON {
			body := submissionBody{}
			if err := render.DecodeJSON(r.Body, &body); err != nil {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
				return
			}
			values, err := survey.ValuesFromJSON(body.Answers)
			if err != nil {
				httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body.answers", "%s", err)
				return
			}
			req.Values, rawToken = values, body.Token
		} else {
			if err := r.ParseForm(); err != nil {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_form")
				return
			}
			req.Values, rawToken = survey.ValuesFromForm(r.PostForm), r.PostForm.Get(survey.TokenField)
		}

		if rawToken != "" {
			token, err := survey.NormalizeToken(rawToken)
			if err != nil {
				httpx.LogJSON(w, r, http.StatusBadRequest, "submit.token", httpx.ErrorBody{Error: err.Error()})
				return
			}
			req.Token = token
		}

		res, err := app.Submissions.Submit(r.Context(), req)
		var verr *survey.ValidationError
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
			httpx.LogNotFound(w, "submit.get_survey", surveyId)
			return
		case errors.Is(err, survey.ErrSurveyClosed):
			httpx.LogJSON(w, r, http.StatusConflict, "submit.closed", httpx.ErrorBody{Error: err.Error()})
			return
		case errors.As(err, &verr):
			httpx.LogJSON(w, r, http.StatusUnprocessableEntity, "submit.validate", httpx.ErrorBody{
				Error:    verr.Error(),
				Missing:  verr.Missing,
				Problems: verr.Invalid,
			})
			return
		default:
			httpx.LogInternalError(w, "db.insert_submission", err)
			return
		}

		if middlewares.Browser(r) {
			http.Redirect(w, r, "/surveys/", http.StatusSeeOther)
			return
		}
		status := http.StatusCreated
		if res.Replayed {
			status = http.StatusOK
		}
		render.Status(r, status)
		render.JSON(w, r, map[string]any{
			"submission_id": res.SubmissionID,
			"responses":     res.Responses,
			"replayed":      res.Replayed,
		})
	}
}

// PublicQuestionAnswers lists the (id, text) pairs of a question's answers. Unknown
// questions give an empty list.
func PublicQuestionAnswers(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, ok := urlID(w, r)
		if !ok {
			return
		}
		options, err := app.Answers.AnswersForQuestion(r.Context(), questionId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_answers", err)
			return
		}
		render.JSON(w, r, options)
	}
}

func Health(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.PingContext(r.Context()); err != nil {
			httpx.LogStatusMsg(w, http.StatusServiceUnavailable, log.ErrorLevel, "health.db", "database unavailable")
			return
		}
		render.PlainText(w, r, "ok")
	}
}
