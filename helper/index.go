package helper

import (
	"errors"
	"fmt"
	"time"

	"onam_fest/model"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	JwtSecret []byte
	TokenTTL  = 7 * 24 * time.Hour
)

func ConfigureTokens(secret string, ttl time.Duration) {
	JwtSecret = []byte(secret)
	if ttl > 0 {
		TokenTTL = ttl
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func GenerateAccessToken(tokenClaim model.TokenClaim) (string, time.Time, error) {
	if len(JwtSecret) == 0 {
		return "", time.Time{}, errors.New("jwt secret not configured")
	}
	expiresAt := time.Now().Add(TokenTTL)
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["userId"] = tokenClaim.UserId
	claims["email"] = tokenClaim.Email
	claims["role"] = tokenClaim.Role
	claims["iat"] = time.Now().Unix()
	claims["exp"] = expiresAt.Unix()

	t, err := token.SignedString(JwtSecret)
	return t, expiresAt, err
}

func ParseToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return JwtSecret, nil
	})
}

// ClaimFromToken extracts the identity carried by a parsed token.
func ClaimFromToken(token *jwt.Token) (model.TokenClaim, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return model.TokenClaim{}, errors.New("invalid token claims")
	}
	userId, ok := claims["userId"].(float64)
	if !ok || userId <= 0 {
		return model.TokenClaim{}, errors.New("invalid userId in payload")
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return model.TokenClaim{
		UserId: uint(userId),
		Email:  email,
		Role:   role,
	}, nil
}
