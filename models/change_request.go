// models/change_request.go
package models

import "time"

// ChangeRequest = usulan pengurangan nilai satu milestone dari vendor.
// Approve oleh client menurunkan Milestone.Price dan membuat termin reduction
// bernilai negatif; pencairan refund-nya lewat aksi terpisah di termin.
type ChangeRequest struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	ProjectID   uint `gorm:"index;not null" json:"project_id"`
	MilestoneID uint `gorm:"index;not null" json:"milestone_id"`

	Amount int64  `gorm:"not null" json:"amount"`
	Alasan string `gorm:"size:1000;not null" json:"alasan"`

	Tipe   string         `gorm:"size:40;not null;default:'reduction'" json:"tipe"`
	Status ApprovalStatus `gorm:"type:text;not null;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
