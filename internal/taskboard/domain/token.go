package domain

import "time"

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RefreshToken is one issued refresh token in the ledger. Only the slow hash
// of the token is stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // cryptox.HashToken
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RevokedAccessToken is a blacklist entry for an access token that was
// logged out before its natural expiry.
type RevokedAccessToken struct {
	TokenHash string // cryptox.FingerprintToken
	ExpiresAt time.Time
	CreatedAt time.Time
}
