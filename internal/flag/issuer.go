// Package flag derives completion tokens for fully solved sessions.
package flag

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"math-challenge-service/internal/domain"
)

// tokenLen is the number of base64url characters in an issued flag.
const tokenLen = 32

// Issuer derives flags as a keyed hash of the client name. The same name
// always gets the same flag for a given key, so re-running a completed
// session is idempotent, and distinct names cannot collide in practice.
// The key is read-only after construction and safe to share across sessions.
type Issuer struct {
	key []byte
}

// NewIssuer builds an Issuer from the configured secret. An empty secret
// gets a random per-process key; flags are then stable only within one
// server run.
func NewIssuer(secret string) *Issuer {
	if secret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(err)
		}
		return &Issuer{key: key}
	}
	return &Issuer{key: []byte(secret)}
}

// Issue returns the flag for the given client name.
func (i *Issuer) Issue(name string) domain.Flag {
	mac := hmac.New(sha256.New, i.key)
	mac.Write([]byte(name))
	token := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return domain.Flag(token[:tokenLen])
}
