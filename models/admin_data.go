// models/admin_data.go
package models

import "time"

// AdminData = buku escrow per proyek. Semua kolom uang dalam Rupiah utuh (int64).
// Invariant: AdminBalance >= 0 dan AdminBalance >= RetentionHeld, dijaga oleh
// setiap mutasi (lihat controllers/ledger_helpers.go).
type AdminData struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ProjectID uint `gorm:"uniqueIndex;not null" json:"project_id"`

	ClientFunds   int64 `gorm:"not null;default:0" json:"client_funds"`   // kumulatif diterima dari client
	VendorPaid    int64 `gorm:"not null;default:0" json:"vendor_paid"`    // kumulatif dibayar ke vendor
	AdminBalance  int64 `gorm:"not null;default:0" json:"admin_balance"`  // dana yang masih dipegang platform
	RetentionHeld int64 `gorm:"not null;default:0" json:"retention_held"` // bagian AdminBalance yang diikat retensi
	FeeEarned     int64 `gorm:"not null;default:0" json:"fee_earned"`     // komisi platform terkumpul

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Withdrawal = pencairan saldo bebas oleh admin (di luar retensi).
type Withdrawal struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ProjectID uint `gorm:"index;not null" json:"project_id"`

	Amount  int64  `gorm:"not null" json:"amount"`
	AdminID uint   `gorm:"index;not null" json:"admin_id"`
	Note    string `gorm:"size:255" json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
