package controllers

import (
	"net/http"
	"strings"
	"time"

	"go-escrow-proyek/config"
	"go-escrow-proyek/models"
	"go-escrow-proyek/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type UserRegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
}

// UserRegister mendaftarkan pihak proyek (client/vendor). Perannya tidak
// melekat di akun: ditentukan per proyek lewat kecocokan email.
func UserRegister(c *gin.Context) {
	var in UserRegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()}); return
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	var exists models.User
	if err := config.DB.Where("email = ?", email).First(&exists).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email sudah terdaftar"}); return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	user := models.User{
		Email:        email,
		FullName:     in.FullName,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		IsActive:     true,
	}

	if err := config.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal membuat user"}); return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User berhasil dibuat", "email": user.Email})
}

type UserLoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func UserLogin(c *gin.Context) {
	var in UserLoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()}); return
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	var user models.User
	if err := config.DB.Where("email = ? AND is_active = true", email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User tidak ditemukan"}); return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Password salah"}); return
	}

	now := time.Now().UTC()
	config.DB.Model(&user).Update("last_login_at", now)

	token, _ := utils.GenerateUserToken(user.ID, user.Email, user.FullName, 24*time.Hour)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login sukses",
		"token":   token,
	})
}

func GetDataUserProfile(c *gin.Context) {
	uid, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"}); return
	}

	var user models.User
	if err := config.DB.First(&user, uid).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User tidak ditemukan", "error": err.Error()})
		return
	}

	utils.Success(c, "Berhasil mengambil data user", user)
}
