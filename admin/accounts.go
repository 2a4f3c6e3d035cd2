package admin

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

const minPasswordLength = 8

// ValidateRegistration applies the sign-up form rules: a username of at most 150
// letters, digits and @.+-_ characters, and two matching passwords of at least 8
// characters that are not entirely numeric.
func ValidateRegistration(username, password1, password2 string) error {
	var result *multierror.Error

	switch {
	case username == "":
		result = multierror.Append(result, errors.New("username: this field is required"))
	case utf8.RuneCountInString(username) > 150:
		result = multierror.Append(result, errors.New("username: at most 150 characters"))
	case !usernamePattern.MatchString(username):
		result = multierror.Append(result, errors.New("username: letters, digits and @/./+/-/_ only"))
	}

	if password1 != password2 {
		result = multierror.Append(result, errors.New("password2: the two password fields didn't match"))
	}
	if utf8.RuneCountInString(password1) < minPasswordLength {
		result = multierror.Append(result, errors.New("password1: this password is too short, it must contain at least 8 characters"))
	}
	if password1 != "" && strings.Trim(password1, "0123456789") == "" {
		result = multierror.Append(result, errors.New("password1: this password is entirely numeric"))
	}

	return finish(result)
}
