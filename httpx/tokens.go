package httpx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/oauth"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// TokenResponse mirrors the JSON body written by the bearer server.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// Grant runs a token grant against the bearer server without going through the
// router. The buffered response is returned as is, so callers may forward it.
func Grant(ctx context.Context, bs *oauth.BearerServer, form url.Values) (ResponseBuffer, error) {
	body := form.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/token", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(body)))

	resp := NewResponseBuffer()
	bs.UserCredentials(resp, req)
	return resp, nil
}

func PasswordGrant(ctx context.Context, bs *oauth.BearerServer, username, password string) (ResponseBuffer, error) {
	return Grant(ctx, bs, url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	})
}

func RefreshGrant(ctx context.Context, bs *oauth.BearerServer, refreshToken string) (ResponseBuffer, error) {
	return Grant(ctx, bs, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

// DecodeTokens extracts the issued tokens from a successful grant.
func DecodeTokens(resp ResponseBuffer) (TokenResponse, error) {
	if resp.Status() != http.StatusOK {
		return TokenResponse{}, fmt.Errorf("token grant failed with status %d", resp.Status())
	}
	var tokens TokenResponse
	if err := resp.Decode(&tokens); err != nil {
		return TokenResponse{}, err
	}
	if tokens.AccessToken == "" {
		return TokenResponse{}, fmt.Errorf("token grant returned no access token")
	}
	return tokens, nil
}

func SetTokenCookies(w http.ResponseWriter, tokens TokenResponse) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     AccessCookie,
		Value:    tokens.AccessToken,
		MaxAge:   int(tokens.ExpiresIn),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     RefreshCookie,
		Value:    tokens.RefreshToken,
		MaxAge:   int(RefreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Path:     "/",
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
