package middlewares

import (
	"net/http"
	"strings"

	"go-escrow-proyek/utils"

	"github.com/gin-gonic/gin"
)

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "Bearer "), true
}

// AdminAuth = token sisi staff platform (role admin / manager).
func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token tidak ditemukan"})
			c.Abort()
			return
		}

		claims, err := utils.VerifyAdminToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token tidak valid"})
			c.Abort()
			return
		}

		if idf, ok := claims["admin_id"].(float64); ok {
			c.Set("admin_id", uint(idf))
		}
		c.Set("username", claims["username"])
		c.Set("role", claims["role"])
		c.Next()
	}
}

// UserAuth = token pihak proyek (client / vendor, identitas email).
func UserAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token tidak ditemukan"})
			c.Abort()
			return
		}

		claims, err := utils.VerifyUserToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token tidak valid"})
			c.Abort()
			return
		}

		if idf, ok := claims["user_id"].(float64); ok {
			c.Set("user_id", uint(idf))
		}
		c.Set("email", claims["email"])
		c.Set("nama", claims["nama"])
		c.Next()
	}
}
