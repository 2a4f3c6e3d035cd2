package store

import (
	"context"

	"github.com/mbolis/surveydesk/model"
)

// ListAnswers returns the answers of a question ordered by creation. An unknown
// question yields an empty list.
func ListAnswers(ctx context.Context, q Querier, questionID int) ([]model.Answer, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT a.id, a.question_id, a.text, a.free_text
		FROM answer a
		WHERE a.question_id = ?
		ORDER BY a.id`,
		questionID,
	)
	if err != nil {
		return nil, translate("list answers", err)
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		a := model.Answer{}
		if err = rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.FreeText); err != nil {
			return nil, translate("list answers: scan", err)
		}
		answers = append(answers, a)
	}
	return answers, translate("list answers", rows.Err())
}

func GetAnswer(ctx context.Context, q Querier, id int) (a model.Answer, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT a.id, a.question_id, a.text, a.free_text
		FROM answer a
		WHERE a.id = ?`,
		id,
	).Scan(&a.ID, &a.QuestionID, &a.Text, &a.FreeText)
	return a, translate("get answer", err)
}

// CreateAnswer stores a predefined answer. Its text must be unique within the question.
func CreateAnswer(ctx context.Context, q Querier, a *model.Answer) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO answer (question_id, text, free_text)
		VALUES (?, ?, 0)`,
		a.QuestionID, a.Text,
	)
	if err != nil {
		return translate("create answer", err)
	}
	a.ID, err = lastID("create answer", res)
	return err
}

// CreateFreeTextAnswer always inserts a new row, even when the same text was given before.
func CreateFreeTextAnswer(ctx context.Context, q Querier, questionID int, text string) (model.Answer, error) {
	a := model.Answer{QuestionID: questionID, Text: text, FreeText: true}
	res, err := q.ExecContext(ctx, `
		INSERT INTO answer (question_id, text, free_text)
		VALUES (?, ?, 1)`,
		questionID, text,
	)
	if err != nil {
		return a, translate("create free text answer", err)
	}
	a.ID, err = lastID("create free text answer", res)
	return a, err
}

// FindOrCreateAnswer returns the answer of questionID with exactly this text, creating it
// if needed. Concurrent callers converge on one row through the answer_choice_text index.
func FindOrCreateAnswer(ctx context.Context, q Querier, questionID int, text string) (a model.Answer, created bool, err error) {
	a = model.Answer{QuestionID: questionID, Text: text}
	res, err := q.ExecContext(ctx, `
		INSERT INTO answer (question_id, text, free_text)
		VALUES (?, ?, 0)
		ON CONFLICT (question_id, text) WHERE free_text = 0 DO NOTHING`,
		questionID, text,
	)
	if err != nil {
		return a, false, translate("find or create answer", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return a, false, translate("find or create answer", err)
	}
	if n == 1 {
		a.ID, err = lastID("find or create answer", res)
		return a, true, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT a.id
		FROM answer a
		WHERE a.question_id = ?
			AND a.text = ?
			AND a.free_text = 0`,
		questionID, text,
	).Scan(&a.ID)
	return a, false, translate("find or create answer: select", err)
}

func UpdateAnswer(ctx context.Context, q Querier, a model.Answer) error {
	res, err := q.ExecContext(ctx, `UPDATE answer SET text = ? WHERE id = ?`, a.Text, a.ID)
	if err != nil {
		return translate("update answer", err)
	}
	return mustAffect("update answer", res)
}

func DeleteAnswer(ctx context.Context, q Querier, id int) error {
	res, err := q.ExecContext(ctx, `DELETE FROM answer WHERE id = ?`, id)
	if err != nil {
		return translate("delete answer", err)
	}
	return mustAffect("delete answer", res)
}
