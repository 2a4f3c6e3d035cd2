package survey

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mbolis/surveydesk/database"
	"github.com/mbolis/surveydesk/log"
	"github.com/mbolis/surveydesk/model"
	"github.com/mbolis/surveydesk/store"
)

// Invalidator is told which questions gained answers once a submission commits.
type Invalidator interface {
	Invalidate(ctx context.Context, questionIDs ...int)
}

type Limits struct {
	MaxAnswerLength int
	MaxSelections   int
}

type Request struct {
	SurveyID int
	UserID   int
	// Token identifies the submission attempt; replays with the same token are not
	// written twice.
	Token  string
	Values Values
}

type Result struct {
	SubmissionID int
	Responses    int
	// Replayed is set when Token had already been accepted for this user and survey.
	Replayed bool
}

type Processor struct {
	db          *sql.DB
	limits      Limits
	invalidator Invalidator
	now         func() time.Time
}

func NewProcessor(db *sql.DB, limits Limits, invalidator Invalidator) *Processor {
	if limits.MaxAnswerLength <= 0 {
		limits.MaxAnswerLength = 255
	}
	if limits.MaxSelections <= 0 {
		limits.MaxSelections = 50
	}
	return &Processor{
		db:          db,
		limits:      limits,
		invalidator: invalidator,
		now:         time.Now,
	}
}

// Submit validates one user's answers to a survey and stores them in a single
// transaction. Either every Response, Answer and UserResponse of the submission is
// committed, or none is.
func (p *Processor) Submit(ctx context.Context, req Request) (Result, error) {
	survey, err := store.GetSurvey(ctx, p.db, req.SurveyID)
	if err != nil {
		return Result{}, err
	}
	if !survey.Open(p.now()) {
		return Result{}, ErrSurveyClosed
	}

	if req.Token == "" {
		req.Token, err = NormalizeToken("")
		if err != nil {
			return Result{}, err
		}
	}
	if res, ok, err := p.replay(ctx, req); err != nil || ok {
		return res, err
	}

	questions, err := store.ListQuestions(ctx, p.db, survey.ID)
	if err != nil {
		return Result{}, err
	}
	if verr := p.checkLimits(questions, req.Values); !verr.empty() {
		return Result{}, verr
	}

	var res Result
	var touched []int
	err = database.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		res, touched, err = p.write(ctx, tx, survey, questions, req)
		return err
	})
	if errors.Is(err, store.ErrConflict) {
		// lost a race against a replay of the same token
		if res, ok, rerr := p.replay(ctx, req); rerr == nil && ok {
			return res, nil
		}
	}
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			log.WithFields(log.Fields{
				"survey":  survey.ID,
				"user":    req.UserID,
				"missing": len(verr.Missing),
			}).Debug("submission rejected")
		}
		return Result{}, err
	}

	if p.invalidator != nil && len(touched) > 0 {
		p.invalidator.Invalidate(ctx, touched...)
	}
	log.WithFields(log.Fields{
		"survey":     survey.ID,
		"user":       req.UserID,
		"submission": res.SubmissionID,
		"responses":  res.Responses,
	}).Info("submission stored")
	return res, nil
}

func (p *Processor) replay(ctx context.Context, req Request) (Result, bool, error) {
	sub, err := store.FindSubmission(ctx, p.db, req.UserID, req.SurveyID, req.Token)
	if errors.Is(err, store.ErrNotFound) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}
	n, err := store.CountSubmissionResponses(ctx, p.db, sub.ID)
	if err != nil {
		return Result{}, false, err
	}
	return Result{SubmissionID: sub.ID, Responses: n, Replayed: true}, true, nil
}

func (p *Processor) checkLimits(questions []model.Question, values Values) *ValidationError {
	verr := &ValidationError{}
	for _, q := range questions {
		vals := collected(q, values)
		if q.Type == model.QuestionMultiple && len(vals) > p.limits.MaxSelections {
			verr.Invalid = append(verr.Invalid, fmt.Sprintf("%q accepts at most %d selections", q.Text, p.limits.MaxSelections))
		}
		for _, v := range vals {
			if utf8.RuneCountInString(v) > p.limits.MaxAnswerLength {
				verr.Invalid = append(verr.Invalid, fmt.Sprintf("answer to %q exceeds %d characters", q.Text, p.limits.MaxAnswerLength))
				break
			}
		}
	}
	return verr
}

// write runs inside the transaction. Any error it returns rolls everything back,
// including a ValidationError raised after rows were already inserted.
func (p *Processor) write(ctx context.Context, tx *sql.Tx, survey model.Survey, questions []model.Question, req Request) (Result, []int, error) {
	sub := model.Submission{
		SurveyID: survey.ID,
		UserID:   req.UserID,
		Token:    req.Token,
		Time:     p.now(),
	}
	if err := store.CreateSubmission(ctx, tx, &sub); err != nil {
		return Result{}, nil, err
	}

	byID := make(map[int]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	res := Result{SubmissionID: sub.ID}
	var touched []int
	missing := []string{}
	for _, q := range questions {
		vals := collected(q, req.Values)
		answered := false

		if len(vals) > 0 {
			created, err := p.respond(ctx, tx, sub, q, vals)
			if err != nil {
				return Result{}, nil, err
			}
			if created {
				touched = append(touched, q.ID)
			}
			res.Responses++
			answered = true
		}

		if !answered && mandatory(q, byID, req.Values) {
			missing = append(missing, q.Text)
		}
	}

	if len(missing) > 0 {
		return Result{}, nil, &ValidationError{Missing: missing}
	}
	return res, touched, nil
}

// respond stores one Response for q and one UserResponse per answer. It reports
// whether a new Answer row was created.
func (p *Processor) respond(ctx context.Context, tx *sql.Tx, sub model.Submission, q model.Question, vals []string) (bool, error) {
	resp := model.Response{
		SubmissionID: sub.ID,
		SurveyID:     sub.SurveyID,
		QuestionID:   q.ID,
		UserID:       sub.UserID,
	}
	if err := store.CreateResponse(ctx, tx, &resp); err != nil {
		return false, err
	}

	anyCreated := false
	for _, text := range vals {
		var answer model.Answer
		var err error
		if q.Type == model.QuestionText {
			answer, err = store.CreateFreeTextAnswer(ctx, tx, q.ID, text)
			anyCreated = true
		} else {
			var created bool
			answer, created, err = store.FindOrCreateAnswer(ctx, tx, q.ID, text)
			anyCreated = anyCreated || created
		}
		if err != nil {
			return false, err
		}

		if err = store.LinkAnswer(ctx, tx, resp.ID, answer.ID); err != nil {
			return false, err
		}
		ur := model.UserResponse{UserID: sub.UserID, QuestionID: q.ID, AnswerID: answer.ID}
		if err = store.CreateUserResponse(ctx, tx, &ur); err != nil {
			return false, err
		}
	}
	return anyCreated, nil
}
