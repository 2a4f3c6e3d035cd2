package model

import "time"

type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionChoice   QuestionType = "choice"
	QuestionMultiple QuestionType = "multiple"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionChoice, QuestionMultiple:
		return true
	}
	return false
}

type Survey struct {
	ID          int        `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	Questions   []Question `json:"questions,omitempty"`
}

// Open reports whether submissions are accepted at t.
func (s Survey) Open(t time.Time) bool {
	return !t.Before(s.StartDate) && !t.After(s.EndDate)
}

type Question struct {
	ID          int          `json:"id,omitempty"`
	SurveyID    int          `json:"survey_id"`
	Text        string       `json:"text"`
	Type        QuestionType `json:"question_type"`
	IsRequired  bool         `json:"is_required"`
	DependentOn *int         `json:"dependent_on,omitempty"`

	// RequiredAnswers holds answer ids belonging to the DependentOn question.
	RequiredAnswers []int `json:"required_answers,omitempty"`
	// RequiredAnswerTexts is filled on read for clients that evaluate the condition.
	RequiredAnswerTexts []string `json:"required_answer_texts,omitempty"`
}

// Conditional reports whether the question is gated on another question's answer.
func (q Question) Conditional() bool {
	return q.DependentOn != nil && len(q.RequiredAnswers) > 0
}

type Answer struct {
	ID         int    `json:"id"`
	QuestionID int    `json:"question_id"`
	Text       string `json:"text"`
	FreeText   bool   `json:"-"`
}

// AnswerOption is the public lookup view of an Answer.
type AnswerOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type Response struct {
	ID           int      `json:"id"`
	SubmissionID int      `json:"submission_id,omitempty"`
	SurveyID     int      `json:"survey_id"`
	QuestionID   int      `json:"question_id"`
	UserID       int      `json:"user_id"`
	Username     string   `json:"username,omitempty"`
	Answers      []Answer `json:"answers"`
}

type UserResponse struct {
	ID         int `json:"id"`
	UserID     int `json:"user_id"`
	QuestionID int `json:"question_id"`
	AnswerID   int `json:"answer_id"`
}

type Submission struct {
	ID       int       `json:"id"`
	SurveyID int       `json:"survey_id"`
	UserID   int       `json:"user_id"`
	Token    string    `json:"token"`
	Time     time.Time `json:"time"`
}

type User struct {
	ID          int       `json:"id"`
	Username    string    `json:"username"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	DateJoined  time.Time `json:"date_joined"`
}
