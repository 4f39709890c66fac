// Package auth turns request credentials into an owner identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when a credential is missing, malformed,
// expired or signed with the wrong key.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the authenticated caller.
type Identity struct {
	OwnerID string
}

// Authenticator verifies a credential.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (Identity, error)
}

// JWTAuthenticator accepts HS256 tokens whose subject is the owner id.
type JWTAuthenticator struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTAuthenticator returns an authenticator for tokens signed with secret.
// A non-empty issuer must match the token's iss claim.
func NewJWTAuthenticator(secret []byte, issuer string) *JWTAuthenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWTAuthenticator{
		secret: secret,
		parser: jwt.NewParser(opts...),
	}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, ErrUnauthenticated
	}

	claims := &jwt.RegisteredClaims{}
	token, err := a.parser.ParseWithClaims(credential, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return Identity{OwnerID: claims.Subject}, nil
}

// Issuer signs tokens the JWTAuthenticator accepts.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for ownerID. A zero ttl issues a token without expiry.
func (i *Issuer) Issue(ownerID string) (string, error) {
	if ownerID == "" {
		return "", errors.New("owner id cannot be empty")
	}

	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:  ownerID,
		Issuer:   i.issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
