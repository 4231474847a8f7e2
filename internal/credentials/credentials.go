// Package credentials supplies the bearer credential presented to the
// accounting service. Acquiring the credential is somebody else's job.
package credentials

import "github.com/odyssey-erp/tbview/internal/shared"

// SessionKey is the session value holding the user's bearer credential.
const SessionKey = "bearer_token"

// Provider reads the current bearer credential. ok is false when none is stored.
type Provider interface {
	BearerToken() (token string, ok bool)
}

// Static always returns the same credential.
type Static string

// BearerToken implements Provider.
func (s Static) BearerToken() (string, bool) {
	return string(s), s != ""
}

// Func adapts a function to Provider.
type Func func() (string, bool)

// BearerToken implements Provider.
func (f Func) BearerToken() (string, bool) {
	if f == nil {
		return "", false
	}
	return f()
}

// Chain returns the first credential any of its providers has.
type Chain []Provider

// BearerToken implements Provider.
func (c Chain) BearerToken() (string, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if token, ok := p.BearerToken(); ok {
			return token, true
		}
	}
	return "", false
}

// FromSession snapshots the credential stored in sess. The snapshot is safe to
// read after the request that loaded the session has finished.
func FromSession(sess *shared.Session) Static {
	if sess == nil {
		return ""
	}
	return Static(sess.Get(SessionKey))
}

// Store saves token into sess; an empty token removes it.
func Store(sess *shared.Session, token string) {
	if sess == nil {
		return
	}
	if token == "" {
		sess.Delete(SessionKey)
		return
	}
	sess.Set(SessionKey, token)
}
