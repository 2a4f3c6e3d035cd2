package httpx

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/oauth"
	"github.com/mbolis/surveydesk/admin"
	"github.com/mbolis/surveydesk/config"
	"github.com/mbolis/surveydesk/log"
	"github.com/mbolis/surveydesk/store"
)

// RefreshTTL bounds how long a refresh token may be exchanged.
const RefreshTTL = 365 * 24 * time.Hour

const (
	ClaimUserID = "uid"
	ClaimCaps   = "caps"
)

type credentialsVerifier struct {
	db *sql.DB
}

func CredentialsVerifier(db *sql.DB) oauth.CredentialsVerifier {
	return &credentialsVerifier{db}
}

func NewBearerServer(db *sql.DB, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(db), nil)
}

func requestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	err := store.CheckPassword(requestContext(r), cs.db, username, password)
	if err != nil && !errors.Is(err, store.ErrBadCredentials) {
		log.Errorf("auth.validate_user: %s", err)
	}
	return err
}

func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return store.StoreToken(context.Background(), cs.db, credential, tokenID, refreshTokenID, time.Now().Add(RefreshTTL))
}

// ValidateTokenID consumes the stored pair, so every refresh token works once.
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	expiration, err := store.ConsumeToken(context.Background(), cs.db, credential, tokenID, refreshTokenID)
	if err != nil {
		log.Debugf("auth.refresh: %s", err)
		return errors.New("could not refresh")
	}
	if expiration.Before(time.Now()) {
		return errors.New("could not refresh")
	}
	return nil
}

func (cs *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	user, err := store.GetUserByUsername(requestContext(r), cs.db, credential)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		ClaimUserID: strconv.Itoa(user.ID),
		ClaimCaps:   admin.EncodeCaps(admin.CapabilitiesFor(user)),
	}, nil
}

func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}

func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}
