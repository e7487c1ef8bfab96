package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidAccessToken = errors.New("invalid access token")

// Claims carried by a staff access token. Only staff sessions may issue
// signing tokens; the full login lifecycle lives outside this service.
type Claims struct {
	Roles     []string `json:"roles,omitempty"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	issuer       string
	audience     string
	accessSecret []byte
}

func NewJWTManager(issuer, audience, accessSecret string) *JWTManager {
	return &JWTManager{
		issuer:       issuer,
		audience:     audience,
		accessSecret: []byte(accessSecret),
	}
}

func (m *JWTManager) SignAccessToken(userID uint, roles []string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Roles:     roles,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
}

func (m *JWTManager) ParseAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.accessSecret, nil
		},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	if !token.Valid || claims.TokenType != "access" || claims.Subject == "" {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}
