package survey

import (
	"context"

	"github.com/mbolis/surveydesk/model"
	"github.com/mbolis/surveydesk/store"
)

// AnswerSource lists the answers clients may offer for a question.
type AnswerSource interface {
	AnswersForQuestion(ctx context.Context, questionID int) ([]model.AnswerOption, error)
}

// AnswerLookup reads answers straight from the store.
type AnswerLookup struct {
	db store.Querier
}

func NewAnswerLookup(db store.Querier) *AnswerLookup {
	return &AnswerLookup{db: db}
}

// AnswersForQuestion returns (id, text) pairs in creation order. Unknown questions
// and questions without answers both give an empty, non-nil list.
func (l *AnswerLookup) AnswersForQuestion(ctx context.Context, questionID int) ([]model.AnswerOption, error) {
	answers, err := store.ListAnswers(ctx, l.db, questionID)
	if err != nil {
		return nil, err
	}
	options := make([]model.AnswerOption, 0, len(answers))
	for _, a := range answers {
		options = append(options, model.AnswerOption{ID: a.ID, Text: a.Text})
	}
	return options, nil
}
