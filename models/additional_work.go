// models/additional_work.go
package models

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// AdditionalWork = usulan pekerjaan tambahan dari vendor. Setelah approved/rejected
// tidak bisa diubah lagi; approve melahirkan Milestone + Termin turunan.
type AdditionalWork struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ProjectID uint `gorm:"index;not null" json:"project_id"`

	Judul     string `gorm:"size:200;not null" json:"judul"`
	Amount    int64  `gorm:"not null" json:"amount"`
	Deskripsi string `gorm:"size:1000" json:"deskripsi"`

	Status      ApprovalStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	MilestoneID *uint          `gorm:"index" json:"milestone_id,omitempty"` // diisi saat approve

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
