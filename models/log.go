// models/log.go
package models

import "time"

type LogTipe string

const (
	LogSystem   LogTipe = "system"
	LogDaily    LogTipe = "daily"
	LogFinish   LogTipe = "finish"
	LogFix      LogTipe = "fix"
	LogComplain LogTipe = "complain"
	LogAdmin    LogTipe = "admin"
	LogChange   LogTipe = "change"
	LogRefund   LogTipe = "refund"
)

// Log = catatan aktivitas, append-only. MilestoneID nol untuk event level proyek
// (konfirmasi termin, refund) yang dicatat langsung ke proyek.
type Log struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	ProjectID   uint `gorm:"index;not null" json:"project_id"`
	MilestoneID uint `gorm:"index" json:"milestone_id,omitempty"`

	Tipe    LogTipe   `gorm:"type:text;not null" json:"tipe"`
	Tanggal time.Time `gorm:"not null" json:"tanggal"`
	Catatan string    `gorm:"size:2000" json:"catatan"`
	Files   string    `gorm:"size:2000" json:"files,omitempty"` // daftar URI dipisah koma, opaque

	// fee yang tercatat saat konfirmasi pembayaran, untuk audit
	Amount *int64 `json:"amount,omitempty"`

	Comments []Comment `gorm:"constraint:OnDelete:CASCADE;" json:"comments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Comment = balasan berantai pada sebuah Log; tidak pernah mengubah state.
type Comment struct {
	ID    uint `gorm:"primaryKey" json:"id"`
	LogID uint `gorm:"index;not null" json:"log_id"`

	Author string `gorm:"size:180;not null" json:"author"`
	Text   string `gorm:"size:2000;not null" json:"text"`
	Files  string `gorm:"size:2000" json:"files,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
