// Package jwt issues the short-lived credentials a game runner uses to fetch
// a team's bot code.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingSecret    = errors.New("token secret is not configured")
)

type Service interface {
	IssueRepoToken(teamID, repo, matchID string) (string, error)
	ValidateToken(tokenString string) (*RepoClaims, error)
}

type service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService returns an HS256 token service. Tokens expire ttl after issue.
func NewService(secret string, ttl time.Duration) Service {
	return &service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *service) IssueRepoToken(teamID, repo, matchID string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := s.now()
	claims := &RepoClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   teamID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Repo:  repo,
		Match: matchID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *service) ValidateToken(tokenString string) (*RepoClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RepoClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*RepoClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
