package jwt

import "github.com/golang-jwt/jwt/v5"

// RepoClaims grant read access to one team's repository for the duration of one match.
type RepoClaims struct {
	jwt.RegisteredClaims
	Repo  string `json:"repo"`
	Match string `json:"match"`
}
