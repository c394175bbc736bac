package models

import "time"

type AdminRole string

const (
	RoleAdmin   AdminRole = "admin"   // akses penuh semua proyek
	RoleManager AdminRole = "manager" // hanya proyek di allowlist
)

type Admin struct {
	ID           uint       `gorm:"primaryKey"           json:"id"`
	Username     string     `gorm:"uniqueIndex;size:120" json:"username"`
	FullName     string     `gorm:"size:180"             json:"full_name"`
	Email        string     `gorm:"size:180"             json:"email"`
	Role         AdminRole  `gorm:"type:text;not null;default:'admin'" json:"role"`
	PasswordHash string     `gorm:"size:255"             json:"-"` // disembunyikan di JSON
	IsActive     bool       `gorm:"default:true"         json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ManagerProjectAccess = allowlist proyek untuk admin ber-role manager.
type ManagerProjectAccess struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AdminID   uint      `gorm:"not null;uniqueIndex:idx_mgr_project" json:"admin_id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_mgr_project" json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
}
