// models/milestone.go
package models

import "time"

type MilestoneStatus string

const (
	MilestonePending           MilestoneStatus = "pending"
	MilestonePendingAdditional MilestoneStatus = "pending_additional" // hasil approve pekerjaan tambahan
	MilestoneActive            MilestoneStatus = "active"
	MilestoneWaiting           MilestoneStatus = "waiting"       // menunggu review client
	MilestoneComplaint         MilestoneStatus = "complaint"     // client komplain, vendor harus perbaikan
	MilestoneWaitingAdmin      MilestoneStatus = "waiting_admin" // disetujui client, menunggu pembayaran admin
	MilestoneCompleted         MilestoneStatus = "completed"     // terminal
)

type Milestone struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ProjectID uint `gorm:"index;not null" json:"project_id"`

	Judul      string  `gorm:"size:200;not null" json:"judul"`
	Deskripsi  string  `gorm:"size:1000" json:"deskripsi"`
	Persentase float64 `gorm:"not null;default:0" json:"persentase"` // % dari nilai kontrak

	Price         int64 `gorm:"not null" json:"price"`          // nilai berjalan, bisa turun lewat pengurangan
	OriginalPrice int64 `gorm:"not null" json:"original_price"` // baseline, tidak pernah berubah

	Status           MilestoneStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	IsAdditionalWork bool            `gorm:"not null;default:false" json:"is_additional_work"`
	Urutan           int             `gorm:"not null;default:0" json:"urutan"`

	Logs           []Log           `gorm:"constraint:OnDelete:CASCADE;" json:"logs,omitempty"`
	ChangeRequests []ChangeRequest `gorm:"constraint:OnDelete:CASCADE;" json:"change_requests,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal: milestone completed tidak boleh bertransisi lagi.
func (m *Milestone) IsTerminal() bool { return m.Status == MilestoneCompleted }
