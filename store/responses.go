package store

import (
	"context"
	"strings"

	"github.com/mbolis/surveydesk/model"
)

func CreateSubmission(ctx context.Context, q Querier, s *model.Submission) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO submission (survey_id, user_id, token, time)
		VALUES (?, ?, ?, ?)`,
		s.SurveyID, s.UserID, s.Token, s.Time,
	)
	if err != nil {
		return translate("create submission", err)
	}
	s.ID, err = lastID("create submission", res)
	return err
}

func FindSubmission(ctx context.Context, q Querier, userID, surveyID int, token string) (s model.Submission, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT s.id, s.survey_id, s.user_id, s.token, s.time
		FROM submission s
		WHERE s.user_id = ?
			AND s.survey_id = ?
			AND s.token = ?`,
		userID, surveyID, token,
	).Scan(&s.ID, &s.SurveyID, &s.UserID, &s.Token, &s.Time)
	return s, translate("find submission", err)
}

func CountSubmissionResponses(ctx context.Context, q Querier, submissionID int) (n int, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT count(*) FROM response WHERE submission_id = ?`,
		submissionID,
	).Scan(&n)
	return n, translate("count submission responses", err)
}

// CreateResponse inserts the response row only; answers are attached with LinkAnswer.
func CreateResponse(ctx context.Context, q Querier, r *model.Response) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO response (submission_id, survey_id, question_id, user_id)
		VALUES (?, ?, ?, ?)`,
		nullableID(nonZero(r.SubmissionID)), r.SurveyID, r.QuestionID, r.UserID,
	)
	if err != nil {
		return translate("create response", err)
	}
	r.ID, err = lastID("create response", res)
	return err
}

// LinkAnswer adds an answer to a response's answer set. Linking twice is a no-op.
func LinkAnswer(ctx context.Context, q Querier, responseID, answerID int) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO response_answer (response_id, answer_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		responseID, answerID,
	)
	return translate("link answer", err)
}

func CreateUserResponse(ctx context.Context, q Querier, ur *model.UserResponse) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO user_response (user_id, question_id, answer_id)
		VALUES (?, ?, ?)`,
		ur.UserID, ur.QuestionID, ur.AnswerID,
	)
	if err != nil {
		return translate("create user response", err)
	}
	ur.ID, err = lastID("create user response", res)
	return err
}

func ListUserResponses(ctx context.Context, q Querier, userID int) ([]model.UserResponse, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT ur.id, ur.user_id, ur.question_id, ur.answer_id
		FROM user_response ur
		WHERE ur.user_id = ?
		ORDER BY ur.id`,
		userID,
	)
	if err != nil {
		return nil, translate("list user responses", err)
	}
	defer rows.Close()

	out := []model.UserResponse{}
	for rows.Next() {
		ur := model.UserResponse{}
		if err = rows.Scan(&ur.ID, &ur.UserID, &ur.QuestionID, &ur.AnswerID); err != nil {
			return nil, translate("list user responses: scan", err)
		}
		out = append(out, ur)
	}
	return out, translate("list user responses", rows.Err())
}

// ResponseFilter narrows ListResponses. OwnerID, when set, is a visibility restriction
// and is applied on top of the other filters.
type ResponseFilter struct {
	SurveyID *int
	UserID   *int
	OwnerID  *int
}

func ListResponses(ctx context.Context, q Querier, f ResponseFilter) ([]model.Response, error) {
	where := []string{}
	args := []any{}
	if f.SurveyID != nil {
		where = append(where, "r.survey_id = ?")
		args = append(args, *f.SurveyID)
	}
	if f.UserID != nil {
		where = append(where, "r.user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.OwnerID != nil {
		where = append(where, "r.user_id = ?")
		args = append(args, *f.OwnerID)
	}
	return queryResponses(ctx, q, "list responses", where, args)
}

func GetResponse(ctx context.Context, q Querier, id int) (model.Response, error) {
	responses, err := queryResponses(ctx, q, "get response", []string{"r.id = ?"}, []any{id})
	if err != nil {
		return model.Response{}, err
	}
	if len(responses) == 0 {
		return model.Response{}, translate("get response", ErrNotFound)
	}
	return responses[0], nil
}

func queryResponses(ctx context.Context, q Querier, op string, where []string, args []any) ([]model.Response, error) {
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	rows, err := q.QueryContext(ctx, `
		SELECT
			r.id, coalesce(r.submission_id, 0), r.survey_id, r.question_id, r.user_id, u.username,
			a.id, a.question_id, a.text, a.free_text
		FROM response r
		INNER JOIN user u ON (u.id = r.user_id)
		LEFT OUTER JOIN response_answer ra ON (ra.response_id = r.id)
		LEFT OUTER JOIN answer a ON (a.id = ra.answer_id)
		`+clause+`
		ORDER BY r.id, a.id`,
		args...,
	)
	if err != nil {
		return nil, translate(op, err)
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		r := model.Response{}
		var answerID, answerQuestionID *int
		var answerText *string
		var freeText *bool
		err = rows.Scan(
			&r.ID, &r.SubmissionID, &r.SurveyID, &r.QuestionID, &r.UserID, &r.Username,
			&answerID, &answerQuestionID, &answerText, &freeText,
		)
		if err != nil {
			return nil, translate(op+": scan", err)
		}

		last := len(responses) - 1
		if last < 0 || responses[last].ID != r.ID {
			r.Answers = []model.Answer{}
			responses = append(responses, r)
			last++
		}
		if answerID != nil {
			responses[last].Answers = append(responses[last].Answers, model.Answer{
				ID:         *answerID,
				QuestionID: *answerQuestionID,
				Text:       *answerText,
				FreeText:   *freeText,
			})
		}
	}
	return responses, translate(op, rows.Err())
}

// SetResponseAnswers replaces the answer set of a response.
func SetResponseAnswers(ctx context.Context, q Querier, responseID int, answerIDs []int) error {
	_, err := q.ExecContext(ctx, `DELETE FROM response_answer WHERE response_id = ?`, responseID)
	if err != nil {
		return translate("set response answers: clear", err)
	}
	for _, answerID := range answerIDs {
		if err = LinkAnswer(ctx, q, responseID, answerID); err != nil {
			return err
		}
	}
	return nil
}

func DeleteResponse(ctx context.Context, q Querier, id int) error {
	res, err := q.ExecContext(ctx, `DELETE FROM response WHERE id = ?`, id)
	if err != nil {
		return translate("delete response", err)
	}
	return mustAffect("delete response", res)
}

func nonZero(id int) *int {
	if id == 0 {
		return nil
	}
	return &id
}
