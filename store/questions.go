package store

import (
	"context"
	"database/sql"

	"github.com/mbolis/surveydesk/model"
)

const questionColumns = `q.id, q.survey_id, q.text, q.question_type, q.is_required, q.dependent_on_id`

func scanQuestion(row interface{ Scan(...any) error }, qn *model.Question) error {
	var dependentOn sql.NullInt64
	err := row.Scan(&qn.ID, &qn.SurveyID, &qn.Text, &qn.Type, &qn.IsRequired, &dependentOn)
	if err != nil {
		return err
	}
	if dependentOn.Valid {
		id := int(dependentOn.Int64)
		qn.DependentOn = &id
	}
	return nil
}

// ListQuestions returns the questions of a survey in creation order, with their
// required answers resolved.
func ListQuestions(ctx context.Context, q Querier, surveyID int) ([]model.Question, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+questionColumns+`
		FROM question q
		WHERE q.survey_id = ?
		ORDER BY q.id`,
		surveyID,
	)
	if err != nil {
		return nil, translate("list questions", err)
	}
	defer rows.Close()

	questions := []model.Question{}
	index := map[int]int{}
	for rows.Next() {
		qn := model.Question{}
		if err = scanQuestion(rows, &qn); err != nil {
			return nil, translate("list questions: scan", err)
		}
		index[qn.ID] = len(questions)
		questions = append(questions, qn)
	}
	if err = rows.Err(); err != nil {
		return nil, translate("list questions", err)
	}
	rows.Close()

	required, err := q.QueryContext(ctx, `
		SELECT r.question_id, a.id, a.text
		FROM question_required_answer r
		INNER JOIN question q ON (q.id = r.question_id)
		INNER JOIN answer a ON (a.id = r.answer_id)
		WHERE q.survey_id = ?
		ORDER BY a.id`,
		surveyID,
	)
	if err != nil {
		return nil, translate("list questions: required answers", err)
	}
	defer required.Close()

	for required.Next() {
		var questionID, answerID int
		var text string
		if err = required.Scan(&questionID, &answerID, &text); err != nil {
			return nil, translate("list questions: required answers: scan", err)
		}
		if i, ok := index[questionID]; ok {
			questions[i].RequiredAnswers = append(questions[i].RequiredAnswers, answerID)
			questions[i].RequiredAnswerTexts = append(questions[i].RequiredAnswerTexts, text)
		}
	}
	return questions, translate("list questions: required answers", required.Err())
}

func GetQuestion(ctx context.Context, q Querier, id int) (qn model.Question, err error) {
	err = scanQuestion(q.QueryRowContext(ctx, `
		SELECT `+questionColumns+`
		FROM question q
		WHERE q.id = ?`,
		id,
	), &qn)
	if err != nil {
		return qn, translate("get question", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT a.id, a.text
		FROM question_required_answer r
		INNER JOIN answer a ON (a.id = r.answer_id)
		WHERE r.question_id = ?
		ORDER BY a.id`,
		id,
	)
	if err != nil {
		return qn, translate("get question: required answers", err)
	}
	defer rows.Close()

	for rows.Next() {
		var answerID int
		var text string
		if err = rows.Scan(&answerID, &text); err != nil {
			return qn, translate("get question: required answers: scan", err)
		}
		qn.RequiredAnswers = append(qn.RequiredAnswers, answerID)
		qn.RequiredAnswerTexts = append(qn.RequiredAnswerTexts, text)
	}
	return qn, translate("get question: required answers", rows.Err())
}

func CreateQuestion(ctx context.Context, q Querier, qn *model.Question) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO question (survey_id, text, question_type, is_required, dependent_on_id)
		VALUES (?, ?, ?, ?, ?)`,
		qn.SurveyID, qn.Text, qn.Type, qn.IsRequired, nullableID(qn.DependentOn),
	)
	if err != nil {
		return translate("create question", err)
	}
	qn.ID, err = lastID("create question", res)
	if err != nil {
		return err
	}
	return setRequiredAnswers(ctx, q, qn.ID, qn.RequiredAnswers)
}

func UpdateQuestion(ctx context.Context, q Querier, qn model.Question) error {
	res, err := q.ExecContext(ctx, `
		UPDATE question
		SET
			text = ?,
			question_type = ?,
			is_required = ?,
			dependent_on_id = ?
		WHERE id = ?`,
		qn.Text, qn.Type, qn.IsRequired, nullableID(qn.DependentOn), qn.ID,
	)
	if err != nil {
		return translate("update question", err)
	}
	if err = mustAffect("update question", res); err != nil {
		return err
	}
	return setRequiredAnswers(ctx, q, qn.ID, qn.RequiredAnswers)
}

// DeleteQuestion removes the question. Questions depending on it lose their dependency.
func DeleteQuestion(ctx context.Context, q Querier, id int) error {
	res, err := q.ExecContext(ctx, `DELETE FROM question WHERE id = ?`, id)
	if err != nil {
		return translate("delete question", err)
	}
	return mustAffect("delete question", res)
}

func setRequiredAnswers(ctx context.Context, q Querier, questionID int, answerIDs []int) error {
	_, err := q.ExecContext(ctx, `DELETE FROM question_required_answer WHERE question_id = ?`, questionID)
	if err != nil {
		return translate("set required answers: clear", err)
	}
	for _, answerID := range answerIDs {
		_, err = q.ExecContext(ctx, `
			INSERT INTO question_required_answer (question_id, answer_id)
			VALUES (?, ?)
			ON CONFLICT DO NOTHING`,
			questionID, answerID,
		)
		if err != nil {
			return translate("set required answers", err)
		}
	}
	return nil
}

func nullableID(id *int) any {
	if id == nil {
		return nil
	}
	return *id
}
