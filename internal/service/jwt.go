package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

func InitJWT(secret string) {
	if secret == "" {
		panic("jwt secret is empty")
	}
	jwtSecret = []byte(secret)
}

// GenerateJWT issues a session token for an authenticated wallet key. The
// subject is the base58 public key.
func GenerateJWT(pubkey string) (string, error) {
	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"sub": pubkey,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": now,
		"nbf": now,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseJWT validates a session token and returns the wallet public key.
func ParseJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})

	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if exp, ok := claims["exp"].(float64); ok {
		if int64(exp) < now {
			return "", errors.New("token expired")
		}
	}
	if nbf, ok := claims["nbf"].(float64); ok {
		if int64(nbf) > now {
			return "", errors.New("token not valid yet")
		}
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("subject not found")
	}

	return sub, nil
}
