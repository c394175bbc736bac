package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Secret terpisah untuk sisi staff platform (admin/manager) dan sisi pihak
// proyek (client/vendor). Dioverride dari ENV di main.go.
var (
	AdminSecret = []byte("rahasia-admin-super-kuat")
	UserSecret  = []byte("rahasia-user-super-kuat")
)

func GenerateAdminToken(adminID uint, username string, role string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"admin_id": adminID,
		"username": username,
		"role":     role,
		"exp":      time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(AdminSecret)
}

func GenerateUserToken(userID uint, email string, nama string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"nama":    nama,
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(UserSecret)
}

func verifyWith(secret []byte, tokenString string) (jwt.MapClaims, error) {
	token, _ := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if token != nil {
		if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
			return claims, nil
		}
	}
	return nil, errors.New("token tidak valid")
}

func VerifyAdminToken(tokenString string) (jwt.MapClaims, error) {
	return verifyWith(AdminSecret, tokenString)
}

func VerifyUserToken(tokenString string) (jwt.MapClaims, error) {
	return verifyWith(UserSecret, tokenString)
}
