// Package identity turns bearer tokens into policy actors. Tokens are HS256 JWTs whose
// subject is the profile ID and whose "role" claim names the policy role.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/room-booking/internal/policy"
)

// ErrInvalidToken is matched by every verification failure.
var ErrInvalidToken = errors.New("identity: invalid token")

// Claims are the JWT claims carried by a session token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier checks tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier returns a verifier for secret. A non-empty issuer must match the iss claim.
func NewVerifier(secret []byte, issuer string) *Verifier {
	return &Verifier{secret: secret, issuer: issuer, now: time.Now}
}

// Verify parses token and returns the actor it names. Unknown roles yield an
// anonymous actor rather than an error.
func (v *Verifier) Verify(token string) (policy.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return policy.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return policy.Actor{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	actor := policy.Actor{ID: claims.Subject, Role: policy.ParseRole(claims.Role)}
	if actor.IsAnonymous() {
		return policy.Actor{}, nil
	}
	return actor, nil
}

// Issuer signs tokens for tooling and tests. Production tokens come from the
// identity provider sharing the secret.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewIssuer(secret []byte, issuer string) *Issuer {
	return &Issuer{secret: secret, issuer: issuer, now: time.Now}
}

// Issue signs a token for actor valid for ttl.
func (i *Issuer) Issue(actor policy.Actor, ttl time.Duration) (string, error) {
	if actor.ID == "" {
		return "", errors.New("identity: actor id is required")
	}
	now := i.now()
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
