package survey

import (
	"strings"

	"github.com/mbolis/surveydesk/model"
)

// collected returns what a submission provides for q, after trimming and
// de-duplication. An empty result means the question was not answered.
func collected(q model.Question, values Values) []string {
	if q.Type == model.QuestionMultiple {
		return values.List(q.ID)
	}
	if s := values.Single(q.ID); s != "" {
		return []string{s}
	}
	return nil
}

// mandatory decides whether q must be answered in this submission.
//
// A conditional question (dependent_on plus required_answers) is mandatory exactly
// when the answers given to its dependency match its required answers as a set,
// ignoring case; otherwise it is hidden from the respondent and never mandatory.
// Other questions follow is_required.
func mandatory(q model.Question, byID map[int]model.Question, values Values) bool {
	if !q.Conditional() {
		return q.IsRequired
	}
	dep, ok := byID[*q.DependentOn]
	if !ok {
		return false
	}
	return sameFold(collected(dep, values), q.RequiredAnswerTexts)
}

func sameFold(given, required []string) bool {
	want := map[string]bool{}
	for _, r := range required {
		want[strings.ToLower(strings.TrimSpace(r))] = true
	}
	got := map[string]bool{}
	for _, g := range given {
		got[strings.ToLower(g)] = true
	}
	if len(got) != len(want) {
		return false
	}
	for k := range want {
		if !got[k] {
			return false
		}
	}
	return true
}
