package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

type JWTToken struct {
	signingKey string
}

func NewJWTToken(signingKey string) *JWTToken {
	return &JWTToken{signingKey: signingKey}
}

type jwtClaim struct {
	jwt.StandardClaims
	UserID int64  `json:"user_id"`
	Role   string `json:"user_role"`
	Exp    int64  `json:"exp"`
}

type TokenObject struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"user_role"`
}

func (j *JWTToken) CreateToken(user TokenObject, ttl time.Duration) (string, error) {
	claims := jwtClaim{
		UserID: user.UserID,
		Role:   user.Role,
		Exp:    time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(j.signingKey))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (j *JWTToken) VerifyToken(tokenString string) (TokenObject, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid authentication token, format error")
		}
		return []byte(j.signingKey), nil
	})

	if err != nil {
		return TokenObject{}, fmt.Errorf("invalid authentication token, %v", err.Error())
	}

	claims, ok := token.Claims.(*jwtClaim)
	if !ok {
		return TokenObject{}, fmt.Errorf("invalid authentication token, token is not OK")
	}

	if claims.Exp < time.Now().Unix() {
		return TokenObject{}, fmt.Errorf("token is expired")
	}

	return TokenObject{
		UserID: claims.UserID,
		Role:   claims.Role,
	}, nil
}

// TokenExpiry reads the exp claim without verifying the signature. The client
// never holds the signing key; it only needs to know when a token went stale.
func TokenExpiry(tokenString string) (time.Time, error) {
	var claims jwtClaim
	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}, fmt.Errorf("unreadable token: %w", err)
	}
	if claims.Exp == 0 {
		return time.Time{}, fmt.Errorf("token carries no expiry")
	}
	return time.Unix(claims.Exp, 0), nil
}
