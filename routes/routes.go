package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/surveydesk/admin"
	"github.com/mbolis/surveydesk/app"
	"github.com/mbolis/surveydesk/log"
	"github.com/mbolis/surveydesk/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Logger, NoColor: true}),
		middleware.Recoverer,
	)

	root.Get("/healthz", Health(app))
	root.Mount("/surveys", surveysRouter(app))
	root.With(middlewares.Authenticated(app)).Post("/accounts/logout/", Logout(app))
	root.Mount("/admin", adminRouter(app))

	return root
}

func surveysRouter(app app.App) http.Handler {
	r := chi.NewRouter()

	r.Get("/", PublicListSurveys(app))
	r.Get(`/questions/`+idPattern+`/answers/`, PublicQuestionAnswers(app))

	r.Get("/login/", LoginPage(app))
	r.Post("/login/", Login(app))
	r.Post("/register/", Register(app))
	r.Post("/refresh/", Refresh(app))

	r.Group(func(r chi.Router) {
		r.Use(middlewares.Authenticated(app))
		r.Get(`/`+idPattern+`/`, PublicGetSurveyById(app))
		r.Post(`/`+idPattern+`/`, PublicSubmitSurvey(app))
	})

	return r
}

func adminRouter(app app.App) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares.Authenticated(app), middlewares.Require(admin.AccessAdmin))

	r.Group(func(r chi.Router) {
		r.Use(middlewares.Require(admin.ManageSurveys))

		// CRUD survey
		r.Get("/surveys/", ListSurveys(app))
		r.Post("/surveys/", CreateSurvey(app))
		r.Get(`/surveys/`+idPattern+`/`, GetSurveyById(app))
		r.Put(`/surveys/`+idPattern+`/`, UpdateSurvey(app))
		r.Delete(`/surveys/`+idPattern+`/`, DeleteSurvey(app))

		// CRUD question
		r.Get("/questions/", ListQuestions(app))
		r.Post("/questions/", CreateQuestion(app))
		r.Get(`/questions/`+idPattern+`/`, GetQuestionById(app))
		r.Put(`/questions/`+idPattern+`/`, UpdateQuestion(app))
		r.Delete(`/questions/`+idPattern+`/`, DeleteQuestion(app))

		// CRUD answer
		r.Get("/answers/", ListAnswers(app))
		r.Post("/answers/", CreateAnswer(app))
		r.Put(`/answers/`+idPattern+`/`, UpdateAnswer(app))
		r.Delete(`/answers/`+idPattern+`/`, DeleteAnswer(app))
	})

	r.Get("/responses/", ListResponses(app))
	r.Get(`/responses/`+idPattern+`/`, GetResponseById(app))
	r.Get(`/responses/`+idPattern+`/choices/`, GetResponseChoices(app))
	r.Put(`/responses/`+idPattern+`/`, UpdateResponse(app))
	r.Delete(`/responses/`+idPattern+`/`, DeleteResponse(app))

	return r
}
