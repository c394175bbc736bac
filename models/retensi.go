// models/retensi.go
package models

import "time"

type RetensiStatus string

const (
	RetensiNone                RetensiStatus = "none"
	RetensiProposed            RetensiStatus = "proposed"
	RetensiAgreed              RetensiStatus = "agreed"
	RetensiCountdown           RetensiStatus = "countdown"
	RetensiComplaintPaused     RetensiStatus = "complaint_paused"
	RetensiWaitingConfirmation RetensiStatus = "waiting_confirmation"
	RetensiPendingRelease      RetensiStatus = "pending_release"
	RetensiPaid                RetensiStatus = "paid" // terminal, proyek ikut completed
)

// RetensiActiveStatuses = status di mana potongan retensi ikut dihitung pada
// pembayaran milestone: sudah disepakati dan belum dicairkan.
var RetensiActiveStatuses = []RetensiStatus{
	RetensiAgreed,
	RetensiCountdown,
	RetensiComplaintPaused,
	RetensiWaitingConfirmation,
	RetensiPendingRelease,
}

type Retensi struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ProjectID uint `gorm:"uniqueIndex;not null" json:"project_id"`

	Status  RetensiStatus `gorm:"type:text;not null;default:'none'" json:"status"`
	Percent float64       `gorm:"not null;default:0" json:"percent"`
	Days    int           `gorm:"not null;default:0" json:"days"`
	Value   int64         `gorm:"not null;default:0" json:"value"` // nominal tahanan, beku setelah agreed

	StartDate *time.Time `json:"start_date,omitempty"`
	// EndDate absolut; saat complain dihitung ulang dari sisa durasi (presisi detik)
	// dan TIDAK pernah dihitung ulang saat resume.
	EndDate          *time.Time `json:"end_date,omitempty"`
	RemainingDays    int        `gorm:"not null;default:0" json:"remaining_days"`
	PausedTime       *time.Time `json:"paused_time,omitempty"`
	FixSubmittedTime *time.Time `json:"fix_submitted_time,omitempty"`

	Logs []RetensiLog `gorm:"constraint:OnDelete:CASCADE;" json:"logs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive: retensi sedang mengikat dana (potongan berlaku di pembayaran milestone).
func (r *Retensi) IsActive() bool {
	for _, s := range RetensiActiveStatuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

type RetensiLogTipe string

const (
	RetensiLogSystem            RetensiLogTipe = "system"
	RetensiLogComplain          RetensiLogTipe = "complain"
	RetensiLogFix               RetensiLogTipe = "fix"
	RetensiLogCountdownFinished RetensiLogTipe = "countdown_finished"
)

type RetensiLog struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	RetensiID uint `gorm:"index;not null" json:"retensi_id"`

	Tipe    RetensiLogTipe `gorm:"type:text;not null" json:"tipe"`
	Tanggal time.Time      `gorm:"not null" json:"tanggal"`
	Catatan string         `gorm:"size:2000" json:"catatan"`
	Files   string         `gorm:"size:2000" json:"files,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
