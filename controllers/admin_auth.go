package controllers

import (
	"net/http"
	"time"

	"go-escrow-proyek/config"
	"go-escrow-proyek/models"
	"go-escrow-proyek/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AdminRegisterInput struct {
	Username string `json:"username" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email"`
	Role     string `json:"role"` // admin / manager, default admin
	Password string `json:"password" binding:"required,min=6"`
}

func AdminRegister(c *gin.Context) {
	var in AdminRegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()}); return
	}

	role := models.AdminRole(in.Role)
	if role == "" {
		role = models.RoleAdmin
	}
	if role != models.RoleAdmin && role != models.RoleManager {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role tidak valid (admin/manager)"}); return
	}

	var exists models.Admin
	if err := config.DB.Where("username = ?", in.Username).First(&exists).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username sudah dipakai"}); return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	admin := models.Admin{
		Username:     in.Username,
		FullName:     in.FullName,
		Email:        in.Email,
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
	}

	if err := config.DB.Create(&admin).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal membuat admin"}); return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Admin berhasil dibuat", "username": admin.Username})
}

type AdminLoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func AdminLogin(c *gin.Context) {
	var in AdminLoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()}); return
	}

	var admin models.Admin
	if err := config.DB.Where("username = ? AND is_active = true", in.Username).First(&admin).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Admin tidak ditemukan"}); return
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(in.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Password salah"}); return
	}

	now := time.Now().UTC()
	config.DB.Model(&admin).Update("last_login_at", now)

	token, _ := utils.GenerateAdminToken(admin.ID, admin.Username, string(admin.Role), 24*time.Hour)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login admin sukses",
		"token":   token,
		"role":    admin.Role,
	})
}

func GetDataAdminProfile(c *gin.Context) {
	aid, _ := c.Get("admin_id")

	var admin models.Admin
	if err := config.DB.First(&admin, aid).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"message": "Admin tidak ditemukan",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Berhasil mengambil data admin",
		"data":    admin,
	})
}

type AdminChangePasswordInput struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func AdminChangePassword(c *gin.Context) {
	aid, err := currentAdminID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()}); return
	}

	var in AdminChangePasswordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()}); return
	}

	var admin models.Admin
	if err := config.DB.First(&admin, aid).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Admin tidak ditemukan"}); return
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(in.OldPassword)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Password lama salah"}); return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err := config.DB.Model(&admin).Update("password_hash", string(hash)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal ganti password"}); return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password berhasil diganti"})
}

type GrantManagerAccessInput struct {
	AdminID   uint `json:"admin_id" binding:"required"`
	ProjectID uint `json:"project_id" binding:"required"`
}

// AdminGrantManagerAccess menambahkan satu proyek ke allowlist manager.
func AdminGrantManagerAccess(c *gin.Context) {
	if _, err := requireAdminRole(c); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in GrantManagerAccessInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "payload tidak valid", err)
		return
	}

	var mgr models.Admin
	if err := config.DB.First(&mgr, in.AdminID).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Manager tidak ditemukan", err)
		return
	}
	if mgr.Role != models.RoleManager {
		utils.Error(c, http.StatusBadRequest, "Akun tersebut bukan manager", nil)
		return
	}

	var p models.Project
	if err := config.DB.First(&p, in.ProjectID).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Proyek tidak ditemukan", err)
		return
	}

	access := models.ManagerProjectAccess{AdminID: in.AdminID, ProjectID: in.ProjectID}
	if err := config.DB.Where(&access).FirstOrCreate(&access).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Gagal memberi akses", err)
		return
	}

	utils.Success(c, "Akses manager ditambahkan", access)
}

// AdminRevokeManagerAccess mencabut akses manager dari satu proyek.
func AdminRevokeManagerAccess(c *gin.Context) {
	if _, err := requireAdminRole(c); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in GrantManagerAccessInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "payload tidak valid", err)
		return
	}

	if err := config.DB.
		Where("admin_id = ? AND project_id = ?", in.AdminID, in.ProjectID).
		Delete(&models.ManagerProjectAccess{}).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Gagal mencabut akses", err)
		return
	}

	utils.Success(c, "Akses manager dicabut", nil)
}
