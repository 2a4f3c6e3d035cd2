package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mbolis/surveydesk/model"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("invalid username or password")

func CreateUser(ctx context.Context, q Querier, u *model.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("create user: hash password: %w", err)
	}
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now()
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO user (username, password_hash, is_staff, is_superuser, date_joined)
		VALUES (?, ?, ?, ?, ?)`,
		u.Username, hash, u.IsStaff, u.IsSuperuser, u.DateJoined,
	)
	if err != nil {
		return translate("create user", err)
	}
	u.ID, err = lastID("create user", res)
	return err
}

func GetUser(ctx context.Context, q Querier, id int) (u model.User, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.is_staff, u.is_superuser, u.date_joined
		FROM user u
		WHERE u.id = ?`,
		id,
	).Scan(&u.ID, &u.Username, &u.IsStaff, &u.IsSuperuser, &u.DateJoined)
	return u, translate("get user", err)
}

func GetUserByUsername(ctx context.Context, q Querier, username string) (u model.User, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.is_staff, u.is_superuser, u.date_joined
		FROM user u
		WHERE u.username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.IsStaff, &u.IsSuperuser, &u.DateJoined)
	return u, translate("get user", err)
}

// CheckPassword returns ErrBadCredentials for an unknown user or a wrong password alike.
func CheckPassword(ctx context.Context, q Querier, username, password string) error {
	var hash []byte
	err := q.QueryRowContext(ctx, `
		SELECT password_hash FROM user WHERE username = ?`,
		username,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBadCredentials
	}
	if err != nil {
		return translate("check password", err)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return ErrBadCredentials
	}
	return nil
}

func StoreToken(ctx context.Context, q Querier, username, tokenID, refreshTokenID string, expiration time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO token (username, token_id, refresh_token_id, expiration)
		VALUES (?, ?, ?, ?)`,
		username, tokenID, refreshTokenID, expiration,
	)
	return translate("store token", err)
}

// ConsumeToken deletes the token pair and reports when it would have expired.
// A refresh token can therefore be used only once.
func ConsumeToken(ctx context.Context, q Querier, username, tokenID, refreshTokenID string) (expiration time.Time, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT expiration FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?`,
		username, tokenID, refreshTokenID,
	).Scan(&expiration)
	if err != nil {
		return expiration, translate("consume token", err)
	}

	res, err := q.ExecContext(ctx, `
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?`,
		username, tokenID, refreshTokenID,
	)
	if err != nil {
		return expiration, translate("consume token: delete", err)
	}
	// a concurrent refresh may have consumed it between the two statements
	return expiration, mustAffect("consume token", res)
}

// RevokeTokens drops every refresh token of a user.
func RevokeTokens(ctx context.Context, q Querier, username string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM token WHERE username = ?`, username)
	return translate("revoke tokens", err)
}
