// Package auth mints the signed assertions used as bearer tokens against the
// integration API. Minting is local: the key file is read and signed, no
// network calls are made.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/pbx/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultExpiry is the lifetime of a minted token.
const DefaultExpiry = 3600 * time.Second

// Claims is the claim set of a service-account assertion. Issuer and subject
// are the account email, audience is the derived endpoint.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Credential is a token together with the endpoint it was minted for. It is
// never persisted and is shared read-only for one run.
type Credential struct {
	Token     string
	Endpoint  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Remaining reports how long the token stays valid after now.
func (c *Credential) Remaining(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

var now = time.Now

// Mint reads the key file at path and returns a token valid for expiry.
// A non-positive expiry falls back to DefaultExpiry.
func Mint(path string, expiry time.Duration) (*Credential, error) {
	sa, err := LoadServiceAccount(path)
	if err != nil {
		return nil, err
	}
	defer sa.Wipe()
	return MintFor(sa, expiry)
}

// MintFor signs a token for an already loaded service account.
func MintFor(sa *ServiceAccount, expiry time.Duration) (*Credential, error) {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	endpoint, err := EndpointForProject(sa.ProjectID)
	if err != nil {
		return nil, err
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(sa.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %w", common.ErrCredential, err)
	}

	issued := now().Truncate(time.Second)
	expires := issued.Add(expiry)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    sa.ClientEmail,
			Subject:   sa.ClientEmail,
			Audience:  jwt.ClaimStrings{endpoint},
		},
		Email: sa.ClientEmail,
	})
	if sa.PrivateKeyID != "" {
		token.Header["kid"] = sa.PrivateKeyID
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return nil, fmt.Errorf("%w: sign: %w", common.ErrCredential, err)
	}

	return &Credential{
		Token:     signed,
		Endpoint:  endpoint,
		IssuedAt:  issued,
		ExpiresAt: expires,
	}, nil
}
