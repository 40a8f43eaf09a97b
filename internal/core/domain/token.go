package domain

import "time"

type TokenClass string

const (
	TokenClassAccess  TokenClass = "access"
	TokenClassRefresh TokenClass = "refresh"
)

func (c TokenClass) Valid() bool {
	return c == TokenClassAccess || c == TokenClassRefresh
}

// Subject is the identity a token is issued for.
type Subject struct {
	UserID         int64
	IsAdmin        bool
	SessionVersion int64
}

// Claims is the verified content of a token. TokenID and SessionVersion are
// only set for refresh tokens.
type Claims struct {
	Subject        int64
	IsAdmin        bool
	Class          TokenClass
	TokenID        string
	SessionVersion int64
	IssuedAt       time.Time
	ExpiresAt      time.Time
}

type IssuedToken struct {
	Value     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

type RevocationReason string

const (
	RevocationReasonLogout   RevocationReason = "logout"
	RevocationReasonRotation RevocationReason = "rotation"
)

// RevokedToken is a ledger row. Rows are created once and only ever deleted by the sweep.
type RevokedToken struct {
	TokenID   string           `db:"token_id"`
	UserID    int64            `db:"user_id"`
	ExpiresAt time.Time        `db:"expires_at"`
	RevokedAt time.Time        `db:"revoked_at"`
	Reason    RevocationReason `db:"reason"`
}

// AuthContext is the authenticated identity attached to a request.
type AuthContext struct {
	UserID  int64
	IsAdmin bool
}

// CanAccess reports whether the actor may read or modify the user with the given id.
func (a AuthContext) CanAccess(userID int64) bool {
	return a.IsAdmin || a.UserID == userID
}
