package sessions

import "github.com/golang-jwt/jwt/v5"

// AccessClaims are the standard claims for session access tokens.
// The JWT ID carries the session ID and the subject carries the identity.
type AccessClaims struct {
	jwt.RegisteredClaims
}
