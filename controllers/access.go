package controllers

import (
	"errors"

	"go-escrow-proyek/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func currentAdminID(c *gin.Context) (uint, error) {
	v, ok := c.Get("admin_id")
	if !ok {
		return 0, errors.New("admin_id tidak ada di context")
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		return 0, errors.New("admin_id tidak valid")
	}
	return id, nil
}

func currentAdminRole(c *gin.Context) models.AdminRole {
	v, ok := c.Get("role")
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return models.AdminRole(s)
}

func currentUserEmail(c *gin.Context) (string, error) {
	v, ok := c.Get("email")
	if !ok {
		return "", errors.New("email tidak ada di context")
	}
	email, ok := v.(string)
	if !ok || email == "" {
		return "", errors.New("email tidak valid")
	}
	return email, nil
}

// adminCanManageProject: role admin boleh semua proyek, manager hanya proyek
// yang masuk allowlist-nya.
func adminCanManageProject(db *gorm.DB, c *gin.Context, projectID uint) (uint, error) {
	aid, err := currentAdminID(c)
	if err != nil {
		return 0, err
	}
	if currentAdminRole(c) == models.RoleAdmin {
		return aid, nil
	}
	var cnt int64
	if err := db.Model(&models.ManagerProjectAccess{}).
		Where("admin_id = ? AND project_id = ?", aid, projectID).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	if cnt == 0 {
		return 0, errors.New("manager tidak punya akses ke proyek ini")
	}
	return aid, nil
}

// requireAdminRole: aksi khusus role admin penuh (bukan manager).
func requireAdminRole(c *gin.Context) (uint, error) {
	aid, err := currentAdminID(c)
	if err != nil {
		return 0, err
	}
	if currentAdminRole(c) != models.RoleAdmin {
		return 0, errors.New("hanya admin yang boleh melakukan aksi ini")
	}
	return aid, nil
}

func isProjectClient(p *models.Project, email string) bool { return p.ClientEmail == email }
func isProjectVendor(p *models.Project, email string) bool { return p.VendorEmail == email }

// requireProjectClient memuat proyek dan memastikan pemanggil adalah client-nya.
func requireProjectClient(db *gorm.DB, c *gin.Context, projectID uint) (*models.Project, string, error) {
	email, err := currentUserEmail(c)
	if err != nil {
		return nil, "", err
	}
	var p models.Project
	if err := db.First(&p, projectID).Error; err != nil {
		return nil, "", err
	}
	if !isProjectClient(&p, email) {
		return nil, "", errors.New("bukan client proyek ini")
	}
	return &p, email, nil
}

// requireProjectVendor memuat proyek dan memastikan pemanggil adalah vendor-nya.
func requireProjectVendor(db *gorm.DB, c *gin.Context, projectID uint) (*models.Project, string, error) {
	email, err := currentUserEmail(c)
	if err != nil {
		return nil, "", err
	}
	var p models.Project
	if err := db.First(&p, projectID).Error; err != nil {
		return nil, "", err
	}
	if !isProjectVendor(&p, email) {
		return nil, "", errors.New("bukan vendor proyek ini")
	}
	return &p, email, nil
}
