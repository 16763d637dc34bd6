package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims carried by the bearer tokens this service accepts.
// Tokens are minted by the external identity service after it has verified the
// user's credentials; the relay only checks the signature and reads Identity.
type Payload struct {
	// StandardClaims embeds Exp, Iat, and Iss, used for validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// Identity is the stable, globally unique user identifier (email-equivalent)
	// that the presence registry and relay operate on.
	Identity string `json:"identity"`
}
