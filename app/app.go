package app

import (
	"context"
	"database/sql"

	"github.com/go-chi/oauth"
	"github.com/mbolis/surveydesk/config"
	"github.com/mbolis/surveydesk/survey"
)

// App carries what every handler needs.
type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Submissions *survey.Processor
	Answers     survey.AnswerSource
	// Invalidator is nil when answers are not cached.
	Invalidator survey.Invalidator
}

// New wires the submission processor and answer lookup over db. A non-nil cache
// replaces the direct lookup and is told about new answers.
func New(db *sql.DB, bs *oauth.BearerServer, cfg config.Config, cache Cache) App {
	a := App{
		DB:           db,
		BearerServer: bs,
		Config:       cfg,
		Answers:      survey.NewAnswerLookup(db),
	}
	if cache != nil {
		a.Answers = cache
		a.Invalidator = cache
	}
	a.Submissions = survey.NewProcessor(db, survey.Limits{
		MaxAnswerLength: cfg.MaxAnswerLength,
		MaxSelections:   cfg.MaxSelections,
	}, a.Invalidator)
	return a
}

// Cache is an answer source that can drop stale entries.
type Cache interface {
	survey.AnswerSource
	survey.Invalidator
}

// InvalidateAnswers drops cached lookups for the given questions, if any are cached.
func (a App) InvalidateAnswers(ctx context.Context, questionIDs ...int) {
	if a.Invalidator != nil && len(questionIDs) > 0 {
		a.Invalidator.Invalidate(ctx, questionIDs...)
	}
}
