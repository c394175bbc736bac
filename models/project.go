// models/project.go
package models

import "time"

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed" // hanya setelah retensi paid
)

type Project struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Kode string `gorm:"uniqueIndex;size:40;not null" json:"kode"`

	Judul string `gorm:"size:200;not null" json:"judul"`

	ClientName  string `gorm:"size:180;not null" json:"client_name"`
	ClientEmail string `gorm:"size:180;not null;index" json:"client_email"`
	VendorName  string `gorm:"size:180;not null" json:"vendor_name"`
	VendorEmail string `gorm:"size:180;not null;index" json:"vendor_email"`

	BaseTotal int64 `gorm:"not null" json:"base_total"` // nilai kontrak awal (Rupiah)

	FeeClientPercent float64 `gorm:"not null;default:1" json:"fee_client_percent"`
	FeeVendorPercent float64 `gorm:"not null;default:2" json:"fee_vendor_percent"`

	// term retensi awal yang diajukan saat pembuatan (bisa 0 = tanpa retensi)
	RetensiPercent float64 `gorm:"not null;default:0" json:"retensi_percent"`
	RetensiDays    int     `gorm:"not null;default:0" json:"retensi_days"`

	Status ProjectStatus `gorm:"type:text;not null;default:'active'" json:"status"`

	AdminData       *AdminData       `gorm:"constraint:OnDelete:CASCADE;" json:"admin_data,omitempty"`
	Retensi         *Retensi         `gorm:"constraint:OnDelete:CASCADE;" json:"retensi,omitempty"`
	Milestones      []Milestone      `gorm:"constraint:OnDelete:CASCADE;" json:"milestones,omitempty"`
	Termins         []Termin         `gorm:"constraint:OnDelete:CASCADE;" json:"termins,omitempty"`
	AdditionalWorks []AdditionalWork `gorm:"constraint:OnDelete:CASCADE;" json:"additional_works,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
