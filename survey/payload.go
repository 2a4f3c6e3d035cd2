package survey

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TokenField carries the client's idempotency token in both form and JSON bodies.
const TokenField = "submission_token"

var ErrBadToken = errors.New("submission token must be a UUID")

// Values maps a question id to the raw values submitted for it.
type Values map[int][]string

// Single returns the first value submitted for a text or choice question.
func (v Values) Single(questionID int) string {
	vals := v[questionID]
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

// List returns the trimmed, non-empty, de-duplicated values of a multiple question,
// in submission order.
func (v Values) List(questionID int) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, raw := range v[questionID] {
		s := strings.TrimSpace(raw)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ValuesFromForm reads a form-encoded submission: "<id>" for text and choice
// questions, repeated "<id>[]" for multiple questions. Unrelated keys are ignored.
// When both forms are sent for one question, "<id>" values come first.
func ValuesFromForm(form url.Values) Values {
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	values := Values{}
	for _, key := range keys {
		id, err := strconv.Atoi(strings.TrimSuffix(key, "[]"))
		if err != nil {
			continue
		}
		values[id] = append(values[id], form[key]...)
	}
	return values
}

// ValuesFromJSON converts a decoded {"<id>": "x" | ["a", "b"]} object.
func ValuesFromJSON(answers map[string]any) (Values, error) {
	values := Values{}
	for key, raw := range answers {
		id, err := strconv.Atoi(strings.TrimSuffix(key, "[]"))
		if err != nil {
			return nil, fmt.Errorf("answers: %q is not a question id", key)
		}
		switch v := raw.(type) {
		case nil:
		case string:
			values[id] = append(values[id], v)
		case []any:
			for _, item := range v {
				s, ok := scalar(item)
				if !ok {
					return nil, fmt.Errorf("answers[%s]: unsupported value %v", key, item)
				}
				values[id] = append(values[id], s)
			}
		default:
			s, ok := scalar(v)
			if !ok {
				return nil, fmt.Errorf("answers[%s]: unsupported value %v", key, v)
			}
			values[id] = append(values[id], s)
		}
	}
	return values, nil
}

func scalar(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// NormalizeToken validates a client token, or mints one when the client sent none.
func NormalizeToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.NewString(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", ErrBadToken
	}
	return id.String(), nil
}
