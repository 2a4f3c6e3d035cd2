package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/mbolis/surveydesk/model"
	"github.com/mbolis/surveydesk/store"
)

// ValidationError collects every problem found in one admin form.
type ValidationError struct {
	merr *multierror.Error
}

func (e *ValidationError) Error() string {
	return e.merr.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.merr
}

// Problems lists the individual messages.
func (e *ValidationError) Problems() []string {
	out := make([]string, 0, len(e.merr.Errors))
	for _, err := range e.merr.Errors {
		out = append(out, err.Error())
	}
	return out
}

func finish(result *multierror.Error) error {
	if result.ErrorOrNil() == nil {
		return nil
	}
	result.ErrorFormat = func(errs []error) string {
		msgs := make([]string, 0, len(errs))
		for _, err := range errs {
			msgs = append(msgs, err.Error())
		}
		return strings.Join(msgs, "; ")
	}
	return &ValidationError{result}
}

// IsValidation reports whether err came from one of the Validate functions.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

func ValidateSurvey(s model.Survey) error {
	var result *multierror.Error
	if strings.TrimSpace(s.Title) == "" {
		result = multierror.Append(result, errors.New("title: this field is required"))
	} else if utf8.RuneCountInString(s.Title) > 200 {
		result = multierror.Append(result, errors.New("title: at most 200 characters"))
	}
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		result = multierror.Append(result, errors.New("start_date, end_date: both are required"))
	} else if s.EndDate.Before(s.StartDate) {
		result = multierror.Append(result, errors.New("end_date: must not precede start_date"))
	}
	return finish(result)
}

// ValidateAnswer trims a.Text in place and checks it is present and short enough.
func ValidateAnswer(a *model.Answer) error {
	var result *multierror.Error

	a.Text = strings.TrimSpace(a.Text)
	if a.Text == "" {
		result = multierror.Append(result, errors.New("text: this field is required"))
	} else if utf8.RuneCountInString(a.Text) > 255 {
		result = multierror.Append(result, errors.New("text: at most 255 characters"))
	}
	return finish(result)
}

// ValidateQuestion checks a question about to be saved:
//   - text and type are present and well formed;
//   - a dependency lives in the same survey and does not lead back to q;
//   - every required answer belongs to the dependency question.
//
// All failures are reported together.
func ValidateQuestion(ctx context.Context, q store.Querier, qn model.Question) error {
	var result *multierror.Error

	if strings.TrimSpace(qn.Text) == "" {
		result = multierror.Append(result, errors.New("text: this field is required"))
	} else if utf8.RuneCountInString(qn.Text) > 255 {
		result = multierror.Append(result, errors.New("text: at most 255 characters"))
	}
	if !qn.Type.Valid() {
		result = multierror.Append(result, fmt.Errorf("question_type: %q is not one of text, choice, multiple", qn.Type))
	}

	if qn.DependentOn == nil {
		if len(qn.RequiredAnswers) > 0 {
			result = multierror.Append(result, errors.New("required_answers: needs dependent_on"))
		}
		return finish(result)
	}

	dep, err := store.GetQuestion(ctx, q, *qn.DependentOn)
	switch {
	case errors.Is(err, store.ErrNotFound):
		result = multierror.Append(result, fmt.Errorf("dependent_on: question %d does not exist", *qn.DependentOn))
		return finish(result)
	case err != nil:
		return err
	}

	if dep.SurveyID != qn.SurveyID {
		result = multierror.Append(result, errors.New("dependent_on: must belong to the same survey"))
	}
	if cycle, err := createsCycle(ctx, q, qn.ID, dep); err != nil {
		return err
	} else if cycle {
		result = multierror.Append(result, errors.New("dependent_on: would create a dependency cycle"))
	}

	valid, err := store.ListAnswers(ctx, q, dep.ID)
	if err != nil {
		return err
	}
	validIDs := make(map[int]bool, len(valid))
	for _, a := range valid {
		validIDs[a.ID] = true
	}
	var invalid []int
	for _, id := range qn.RequiredAnswers {
		if !validIDs[id] {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		result = multierror.Append(result, fmt.Errorf("required_answers: Select a valid choice. %v are not valid choices.", invalid))
	}

	return finish(result)
}

// createsCycle follows the dependency chain starting at dep and reports whether it
// reaches questionID. A new question (id 0) can only close a cycle on itself, which
// is impossible before it has an id.
func createsCycle(ctx context.Context, q store.Querier, questionID int, dep model.Question) (bool, error) {
	if questionID == 0 {
		return false, nil
	}
	seen := map[int]bool{}
	cur := dep
	for {
		if cur.ID == questionID {
			return true, nil
		}
		if seen[cur.ID] || cur.DependentOn == nil {
			return false, nil
		}
		seen[cur.ID] = true

		next, err := store.GetQuestion(ctx, q, *cur.DependentOn)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		cur = next
	}
}

// ResponseChoices lists the answers an admin may attach to r: those of its question,
// or none when it has no question.
func ResponseChoices(ctx context.Context, q store.Querier, r model.Response) ([]model.Answer, error) {
	if r.QuestionID == 0 {
		return []model.Answer{}, nil
	}
	return store.ListAnswers(ctx, q, r.QuestionID)
}

// ValidateResponseAnswers rejects answer ids outside ResponseChoices.
func ValidateResponseAnswers(ctx context.Context, q store.Querier, r model.Response, answerIDs []int) error {
	choices, err := ResponseChoices(ctx, q, r)
	if err != nil {
		return err
	}
	allowed := make(map[int]bool, len(choices))
	for _, a := range choices {
		allowed[a.ID] = true
	}

	var result *multierror.Error
	for _, id := range answerIDs {
		if !allowed[id] {
			result = multierror.Append(result, fmt.Errorf("answers: Select a valid choice. %d is not one of the available choices.", id))
		}
	}
	return finish(result)
}
