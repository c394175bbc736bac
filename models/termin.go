// models/termin.go
package models

import "time"

type TerminType string

const (
	TerminMain       TerminType = "main"       // termin utama hasil generate proyek
	TerminAdditional TerminType = "additional" // dari pekerjaan tambahan
	TerminReduction  TerminType = "reduction"  // dari pengurangan, nominal negatif
)

type TerminStatus string

const (
	TerminUnpaid              TerminStatus = "unpaid"
	TerminPendingConfirmation TerminStatus = "pending_confirmation"
	TerminPaid                TerminStatus = "paid"     // terminal
	TerminRefunded            TerminStatus = "refunded" // terminal, hanya untuk type=reduction
)

// Termin = tagihan sisi client. BaseAmount/TotalWithFee bertanda: negatif untuk
// termin pengurangan (uang keluar dari escrow ke client).
type Termin struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ProjectID uint `gorm:"index;not null" json:"project_id"`

	Judul string     `gorm:"size:200;not null" json:"judul"`
	Type  TerminType `gorm:"type:text;not null;default:'main'" json:"type"`

	BaseAmount      int64 `gorm:"not null" json:"base_amount"`
	FeeClientAmount int64 `gorm:"not null;default:0" json:"fee_client_amount"`
	TotalWithFee    int64 `gorm:"not null" json:"total_with_fee"`

	Status TerminStatus `gorm:"type:text;not null;default:'unpaid'" json:"status"`
	Urutan int          `gorm:"not null;default:0" json:"urutan"`

	// id AdditionalWork / ChangeRequest asal, untuk termin turunan
	TerkaitID *uint `gorm:"index" json:"terkait_id,omitempty"`

	PaidAt *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Termin) IsTerminal() bool {
	return t.Status == TerminPaid || t.Status == TerminRefunded
}
