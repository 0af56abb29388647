package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid covers every failure other than expiry. ErrMalformed and
	// ErrInvalidSig narrow it down for logging.
	ErrInvalid    = errors.New("jwtx: invalid token")
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")

	ErrWeakSecret = errors.New("jwtx: secret must be at least 32 bytes")
	ErrSameSecret = errors.New("jwtx: access and refresh secrets must differ")
)

// MinSecretLength is the shortest secret accepted by NewCodec.
const MinSecretLength = 32

// Config holds the per-kind secrets and lifetimes.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration // default DefaultAccessTokenTTL
	RefreshTTL    time.Duration // default DefaultRefreshTokenTTL
}

// Codec mints and verifies HS256 tokens. Access and refresh tokens are signed
// with different secrets so one kind can never be presented as the other.
type Codec struct {
	access  keyed
	refresh keyed

	// Now is the clock used for issuing and verifying. Defaults to time.Now.
	Now func() time.Time
}

type keyed struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) < MinSecretLength || len(cfg.RefreshSecret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, ErrSameSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}

	return &Codec{
		access:  keyed{secret: cfg.AccessSecret, ttl: cfg.AccessTTL},
		refresh: keyed{secret: cfg.RefreshSecret, ttl: cfg.RefreshTTL},
		Now:     time.Now,
	}, nil
}

func (c *Codec) key(kind Kind) (keyed, error) {
	switch kind {
	case Access:
		return c.access, nil
	case Refresh:
		return c.refresh, nil
	default:
		return keyed{}, fmt.Errorf("jwtx: unknown token kind %d", kind)
	}
}

// TTL returns the lifetime of tokens of the given kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	k, _ := c.key(kind)
	return k.ttl
}

// Issue signs a new token for subject and returns it with its expiry.
func (c *Codec) Issue(kind Kind, subject string) (string, time.Time, error) {
	k, err := c.key(kind)
	if err != nil {
		return "", time.Time{}, err
	}

	// Truncate to whole seconds, that is all a NumericDate carries.
	now := c.Now().UTC().Truncate(time.Second)
	claims := NewClaims(subject, k.ttl, now)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwtx: sign %s token: %w", kind, err)
	}
	return signed, claims.Expiry(), nil
}

// Verify checks the signature and expiry of token. Expired tokens with a
// good signature return ErrExpired; everything else returns an error
// wrapping ErrInvalid.
func (c *Codec) Verify(kind Kind, token string) (Claims, error) {
	k, err := c.key(kind)
	if err != nil {
		return Claims{}, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.Now),
	)

	var claims Claims
	_, err = parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return k.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalid, ErrInvalidSig)
	default:
		return Claims{}, fmt.Errorf("%w: %w: %v", ErrInvalid, ErrMalformed, err)
	}

	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: %w: missing subject", ErrInvalid, ErrMalformed)
	}
	return claims, nil
}
