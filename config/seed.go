package config

import (
	"log"
	"os"

	"go-escrow-proyek/models"

	"golang.org/x/crypto/bcrypt"
)

// SeedBootstrapAdmin membuat akun admin pertama dari ENV kalau tabel admin
// masih kosong, supaya instalasi baru bisa langsung dipakai.
func SeedBootstrapAdmin() {
	var cnt int64
	DB.Model(&models.Admin{}).Count(&cnt)
	if cnt > 0 {
		return
	}

	username := os.Getenv("BOOTSTRAP_ADMIN_USERNAME")
	password := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if username == "" || password == "" {
		log.Println("BOOTSTRAP_ADMIN_USERNAME/PASSWORD tidak di-set, skip seed admin")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Gagal hash password bootstrap admin: %v", err)
		return
	}

	admin := models.Admin{
		Username:     username,
		FullName:     "Platform Admin",
		Email:        os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("Gagal seed bootstrap admin: %v", err)
		return
	}
	log.Printf("Bootstrap admin dibuat: %s", username)
}
