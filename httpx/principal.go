package httpx

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-chi/oauth"
	"github.com/mbolis/surveydesk/admin"
)

type principalKey struct{}

var ErrNoPrincipal = errors.New("request is not authenticated")

func WithPrincipal(ctx context.Context, p admin.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (admin.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(admin.Principal)
	return p, ok
}

// PrincipalFromClaims reads what oauth.Authorize left in the context.
func PrincipalFromClaims(ctx context.Context) (admin.Principal, error) {
	claims, ok := ctx.Value(oauth.ClaimsContext).(map[string]string)
	if !ok {
		return admin.Principal{}, ErrNoPrincipal
	}
	uid, err := strconv.Atoi(claims[ClaimUserID])
	if err != nil {
		return admin.Principal{}, ErrNoPrincipal
	}
	username, _ := ctx.Value(oauth.CredentialContext).(string)
	return admin.NewPrincipal(uid, username, admin.ParseCaps(claims[ClaimCaps])...), nil
}
