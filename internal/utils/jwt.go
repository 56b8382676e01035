package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const merchantIssuer = "sugampay"

type merchantClaims struct {
	SourceApp string `json:"source_app"`
	jwt.RegisteredClaims
}

// GenerateMerchantToken creates a signed JWT identifying sourceApp.
func GenerateMerchantToken(secret, sourceApp string, ttl time.Duration) (string, error) {
	sourceApp = strings.TrimSpace(sourceApp)
	if sourceApp == "" {
		return "", errors.New("source app is required")
	}
	if secret == "" {
		return "", errors.New("signing secret is required")
	}

	now := time.Now()
	claims := &merchantClaims{
		SourceApp: sourceApp,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    merchantIssuer,
			Subject:   sourceApp,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseMerchantToken validates the token and returns the embedded source app.
func ParseMerchantToken(secret, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &merchantClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(merchantIssuer))
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(*merchantClaims); ok && token.Valid && claims.SourceApp != "" {
		return claims.SourceApp, nil
	}

	return "", jwt.ErrTokenInvalidClaims
}
