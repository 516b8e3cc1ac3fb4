package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/dbx"
	"github.com/dmitrijs2005/meduploads/internal/server/repositories/repomanager"
)

const bearerScheme = "bearer"

// Principal is the identity an authorized request acts as.
type Principal struct {
	AccountID int64
	MemberID  int64
}

// Guard authenticates tokens and authorizes member access.
type Guard struct {
	secret []byte
	repos  repomanager.RepositoryManager
}

func NewGuard(secret []byte, repos repomanager.RepositoryManager) *Guard {
	return &Guard{secret: secret, repos: repos}
}

// Account verifies the token alone and returns its account id.
func (g *Guard) Account(token string) (int64, error) {
	const op = "auth.account"

	token = stripBearer(token)
	if token == "" {
		return 0, common.E(common.KindAuthorization, op, common.ErrTokenMissing)
	}

	accountID, err := GetUserIDFromToken(token, g.secret)
	if err != nil {
		return 0, common.E(common.KindAuthorization, op, err)
	}
	return accountID, nil
}

// stripBearer drops surrounding blanks and an optional case-insensitive
// "Bearer" scheme. A bare scheme yields "".
func stripBearer(token string) string {
	token = strings.TrimSpace(token)
	if len(token) < len(bearerScheme) || !strings.EqualFold(token[:len(bearerScheme)], bearerScheme) {
		return token
	}
	rest := token[len(bearerScheme):]
	if rest == "" {
		return ""
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return token
	}
	return strings.TrimSpace(rest)
}

// Authorize verifies the token and checks, on db, that memberID is an active
// member of the token's account. Passing the request's pinned connection keeps
// the check and the following transaction on one session.
func (g *Guard) Authorize(ctx context.Context, token string, memberID int64, db dbx.DBTX) (*Principal, error) {
	const op = "auth.authorize"

	accountID, err := g.Account(token)
	if err != nil {
		return nil, err
	}

	if err := g.repos.Users(db).Authorize(ctx, memberID, accountID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.E(common.KindAuthorization, op, common.ErrUnknownOwner)
		}
		return nil, common.E(common.KindPersistence, op, err)
	}

	return &Principal{AccountID: accountID, MemberID: memberID}, nil
}
