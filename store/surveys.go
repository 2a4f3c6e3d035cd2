package store

import (
	"context"

	"github.com/mbolis/surveydesk/model"
)

func ListSurveys(ctx context.Context, q Querier) ([]model.Survey, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT s.id, s.title, s.description, s.start_date, s.end_date
		FROM survey s
		ORDER BY s.start_date DESC, s.id`)
	if err != nil {
		return nil, translate("list surveys", err)
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		s := model.Survey{}
		err = rows.Scan(&s.ID, &s.Title, &s.Description, &s.StartDate, &s.EndDate)
		if err != nil {
			return nil, translate("list surveys: scan", err)
		}
		surveys = append(surveys, s)
	}
	return surveys, translate("list surveys", rows.Err())
}

func GetSurvey(ctx context.Context, q Querier, id int) (s model.Survey, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT s.id, s.title, s.description, s.start_date, s.end_date
		FROM survey s
		WHERE s.id = ?`,
		id,
	).Scan(&s.ID, &s.Title, &s.Description, &s.StartDate, &s.EndDate)
	return s, translate("get survey", err)
}

func CreateSurvey(ctx context.Context, q Querier, s *model.Survey) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO survey (title, description, start_date, end_date)
		VALUES (?, ?, ?, ?)`,
		s.Title, s.Description, s.StartDate, s.EndDate,
	)
	if err != nil {
		return translate("create survey", err)
	}
	s.ID, err = lastID("create survey", res)
	return err
}

func UpdateSurvey(ctx context.Context, q Querier, s model.Survey) error {
	res, err := q.ExecContext(ctx, `
		UPDATE survey
		SET
			title = ?,
			description = ?,
			start_date = ?,
			end_date = ?
		WHERE id = ?`,
		s.Title, s.Description, s.StartDate, s.EndDate, s.ID,
	)
	if err != nil {
		return translate("update survey", err)
	}
	return mustAffect("update survey", res)
}

// DeleteSurvey removes the survey; questions, answers and responses cascade.
func DeleteSurvey(ctx context.Context, q Querier, id int) error {
	res, err := q.ExecContext(ctx, `DELETE FROM survey WHERE id = ?`, id)
	if err != nil {
		return translate("delete survey", err)
	}
	return mustAffect("delete survey", res)
}
