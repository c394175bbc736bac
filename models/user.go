package models

import "time"

// User = pihak proyek (client atau vendor). Identitasnya email: user adalah
// client proyek P jika Email == P.ClientEmail, vendor jika == P.VendorEmail.
type User struct {
	ID           uint       `gorm:"primaryKey"           json:"id"`
	Email        string     `gorm:"uniqueIndex;size:180" json:"email"`
	FullName     string     `gorm:"size:180"             json:"full_name"`
	Phone        string     `gorm:"size:60"              json:"phone"`
	PasswordHash string     `gorm:"size:255"             json:"-"` // jangan dikirim ke client
	IsActive     bool       `gorm:"default:true"         json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
