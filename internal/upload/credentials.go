package upload

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/pbx/internal/auth"
)

// CredentialSource hands out the credential used to authorize uploads.
type CredentialSource interface {
	Credential() (*auth.Credential, error)
}

// CachedCredentials mints a credential on first use and returns the same one
// for the rest of the run. Tokens are not refreshed.
type CachedCredentials struct {
	KeyFile string
	Expiry  time.Duration

	once sync.Once
	cred *auth.Credential
	err  error
}

func NewCachedCredentials(keyFile string, expiry time.Duration) *CachedCredentials {
	return &CachedCredentials{KeyFile: keyFile, Expiry: expiry}
}

func (c *CachedCredentials) Credential() (*auth.Credential, error) {
	c.once.Do(func() {
		c.cred, c.err = auth.Mint(c.KeyFile, c.Expiry)
	})
	return c.cred, c.err
}

// StaticCredential serves an already minted credential.
type StaticCredential struct {
	Cred *auth.Credential
}

func (s StaticCredential) Credential() (*auth.Credential, error) {
	return s.Cred, nil
}
