package controllers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-escrow-proyek/config"
	"go-escrow-proyek/models"
	"go-escrow-proyek/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// reconcileRetensiByProject mengevaluasi transisi berbasis waktu secara lazy
// di jalur baca: countdown yang sudah lewat endDate dipindah ke
// pending_release. Update diberi guard status sehingga dua pembacaan beruntun
// tidak menulis dua kali dan log countdown_finished hanya tercatat sekali.
func reconcileRetensiByProject(db *gorm.DB, projectID uint) error {
	var ret models.Retensi
	if err := db.Where("project_id = ?", projectID).First(&ret).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if ret.Status != models.RetensiCountdown || ret.EndDate == nil {
		return nil
	}
	now := time.Now().UTC()
	if now.Before(*ret.EndDate) {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Retensi{}).
			Where("id = ? AND status = ?", ret.ID, models.RetensiCountdown).
			Updates(map[string]any{
				"status":         models.RetensiPendingRelease,
				"remaining_days": 0,
				"end_date":       nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// pembaca lain sudah memindahkannya
			return nil
		}
		return addRetensiLog(tx, ret.ID, models.RetensiLogCountdownFinished,
			"Masa retensi berakhir, menunggu pencairan admin", "")
	})
}

func getRetensiLocked(tx *gorm.DB, projectID uint) (*models.Retensi, error) {
	var ret models.Retensi
	if err := tx.Clauses(clauseUpdateLock()).
		Where("project_id = ?", projectID).
		First(&ret).Error; err != nil {
		return nil, err
	}
	return &ret, nil
}

type RetensiProposeInput struct {
	Percent float64 `json:"percent" binding:"required"`
	Days    int     `json:"days" binding:"required"`
}

// RetensiPropose: vendor mengajukan term retensi. Nilai tahanan dihitung dari
// total nilai milestone saat ini.
func RetensiPropose(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	p, _, err := requireProjectVendor(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in RetensiProposeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "payload tidak valid", err)
		return
	}
	if in.Percent <= 0 || in.Percent > 100 {
		utils.Error(c, http.StatusBadRequest, "Persen retensi harus di antara 0 dan 100", nil)
		return
	}
	if in.Days <= 0 {
		utils.Error(c, http.StatusBadRequest, "Masa retensi harus positif", nil)
		return
	}

	var value int64
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		ret, err := getRetensiLocked(tx, pid)
		if err != nil {
			return err
		}
		if ret.Status != models.RetensiNone {
			return fmt.Errorf("status retensi %q tidak mengizinkan pengajuan", ret.Status)
		}

		var totalValue int64
		if err := tx.Model(&models.Milestone{}).
			Where("project_id = ?", pid).
			Select("COALESCE(SUM(price), 0)").
			Scan(&totalValue).Error; err != nil {
			return err
		}
		value = utils.PercentOf(totalValue, in.Percent)

		res := tx.Model(&models.Retensi{}).
			Where("id = ? AND status = ?", ret.ID, models.RetensiNone).
			Updates(map[string]any{
				"status":  models.RetensiProposed,
				"percent": in.Percent,
				"days":    in.Days,
				"value":   value,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status retensi berubah, ulangi dari data terbaru")
		}
		return addRetensiLog(tx, ret.ID, models.RetensiLogSystem,
			fmt.Sprintf("Vendor mengajukan retensi %.2f%% selama %d hari (nilai %d)", in.Percent, in.Days, value), "")
	})

	if err != nil {
		utils.Error(c, http.StatusConflict, "Gagal mengajukan retensi", err)
		return
	}

	utils.NotifyAsync(p.ClientEmail, "Pengajuan retensi",
		fmt.Sprintf("Vendor mengajukan retensi %.2f%% (%d hari).", in.Percent, in.Days))
	utils.Success(c, "Retensi diajukan, menunggu persetujuan client", gin.H{"value": value})
}

// RetensiApprove: client menyetujui term retensi. Nilai beku mulai titik ini.
func RetensiApprove(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	p, _, err := requireProjectClient(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		ret, err := getRetensiLocked(tx, pid)
		if err != nil {
			return err
		}
		if ret.Status != models.RetensiProposed {
			return fmt.Errorf("status retensi %q tidak mengizinkan persetujuan", ret.Status)
		}
		res := tx.Model(&models.Retensi{}).
			Where("id = ? AND status = ?", ret.ID, models.RetensiProposed).
			Update("status", models.RetensiAgreed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status retensi berubah, ulangi dari data terbaru")
		}
		return addRetensiLog(tx, ret.ID, models.RetensiLogSystem, "Client menyetujui term retensi", "")
	})

	if err != nil {
		utils.Error(c, http.StatusConflict, "Gagal menyetujui retensi", err)
		return
	}

	utils.NotifyAsync(p.VendorEmail, "Retensi disetujui", "Client menyetujui term retensi.")
	utils.Success(c, "Retensi disetujui", nil)
}

// RetensiReject: client menolak; term kembali kosong.
func RetensiReject(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	p, _, err := requireProjectClient(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		ret, err := getRetensiLocked(tx, pid)
		if err != nil {
			return err
		}
		if ret.Status != models.RetensiProposed {
			return fmt.Errorf("status retensi %q tidak mengizinkan penolakan", ret.Status)
		}
		res := tx.Model(&models.Retensi{}).
			Where("id = ? AND status = ?", ret.ID, models.RetensiProposed).
			Updates(map[string]any{
				"status":  models.RetensiNone,
				"percent": 0,
				"days":    0,
				"value":   0,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status retensi berubah, ulangi dari data terbaru")
		}
		return addRetensiLog(tx, ret.ID, models.RetensiLogSystem, "Client menolak term retensi", "")
	})

	if err != nil {
		utils.Error(c, http.StatusConflict, "Gagal menolak retensi", err)
		return
	}

	utils.NotifyAsync(p.VendorEmail, "Retensi ditolak", "Client menolak term retensi.")
	utils.Success(c, "Retensi ditolak", nil)
}

type RetensiComplainInput struct {
	Catatan string   `json:"catatan" binding:"required"`
	Files   []string `json:"files" binding:"required,min=1"`
}

// RetensiComplain: client komplain selama countdown. Sisa durasi dihitung
// presisi ke milidetik dari endDate berjalan, lalu dibekukan sebagai endDate
// absolut; resume tidak pernah menghitung ulang dari "sekarang".
func RetensiComplain(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	p, _, err := requireProjectClient(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in RetensiComplainInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Catatan) == "" {
		utils.Error(c, http.StatusBadRequest, "catatan dan file bukti wajib diisi", err)
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		ret, err := getRetensiLocked(tx, pid)
		if err != nil {
			return err
		}
		if ret.Status != models.RetensiCountdown || ret.EndDate == nil {
			return fmt.Errorf("status retensi %q tidak mengizinkan komplain", ret.Status)
		}

		now := time.Now().UTC()
		remaining := ret.EndDate.Sub(now)
		if remaining < 0 {
			return errors.New("masa retensi sudah berakhir")
		}
		newEnd := now.Add(remaining)
		remainingDays := int(math.Ceil(remaining.Hours() / 24))

		res := tx.Model(&models.Retensi{}).
			Where("id = ? AND status = ?", ret.ID, models.RetensiCountdown).
			Updates(map[string]any{
				"status":         models.RetensiComplaintPaused,
				"paused_time":    now,
				"end_date":       newEnd,
				"remaining_days": remainingDays,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status retensi berubah, ulangi dari data terbaru")
		}
		return addRetensiLog(tx, ret.ID, models.RetensiLogComplain, in.Catatan, joinFiles(in.Files))
	})

	if err != nil {
		utils.Error(c, http.StatusConflict, "Gagal mencatat komplain retensi", err)
		return
	}

	utils.NotifyAsync(p.VendorEmail, "Komplain masa retensi", "Client mengajukan komplain: "+in.Catatan)
	utils.Success(c, "Komplain dicatat, countdown dijeda", nil)
}

// RetensiFix: vendor menyerahkan perbaikan saat jeda komplain.
func RetensiFix(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	p, _, err := requireProjectVendor(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in RetensiComplainInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Catatan) == "" {
		utils.Error(c, http.StatusBadRequest, "catatan dan file bukti wajib diisi", err)
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		ret, err := getRetensiLocked(tx, pid)
		if err != nil {
			return err
		}
		if ret.Status != models.RetensiComplaintPaused {
			return fmt.Errorf("status retensi %q tidak mengizinkan penyerahan perbaikan", ret.Status)
		}
		now := time.Now().UTC()
		// remainingDays dipertahankan, tidak di-reset
		res := tx.Model(&models.Retensi{}).
			Where("id = ? AND status = ?", ret.ID, models.RetensiComplaintPaused).
			Updates(map[string]any{
				"status":             models.RetensiWaitingConfirmation,
				"fix_submitted_time": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status retensi berubah, ulangi dari data terbaru")
		}
		return addRetensiLog(tx, ret.ID, models.RetensiLogFix, in.Catatan, joinFiles(in.Files))
	})

	if err != nil {
		utils.Error(c, http.StatusConflict, "Gagal menyerahkan perbaikan", err)
		return
	}

	utils.NotifyAsync(p.ClientEmail, "Perbaikan retensi diserahkan", "Vendor menyerahkan perbaikan, mohon dikonfirmasi.")
	utils.Success(c, "Perbaikan diserahkan, menunggu konfirmasi client", nil)
}

// RetensiConfirmFix: client menerima perbaikan; countdown lanjut ke endDate
// absolut yang sama, TANPA dihitung ulang.
func RetensiConfirmFix(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	p, _, err := requireProjectClient(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		ret, err := getRetensiLocked(tx, pid)
		if err != nil {
			return err
		}
		if ret.Status != models.RetensiWaitingConfirmation {
			return fmt.Errorf("status retensi %q tidak mengizinkan konfirmasi perbaikan", ret.Status)
		}
		res := tx.Model(&models.Retensi{}).
			Where("id = ? AND status = ?", ret.ID, models.RetensiWaitingConfirmation).
			Updates(map[string]any{
				"status":             models.RetensiCountdown,
				"paused_time":        nil,
				"fix_submitted_time": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status retensi berubah, ulangi dari data terbaru")
		}
		return addRetensiLog(tx, ret.ID, models.RetensiLogSystem, "Client menerima perbaikan, countdown dilanjutkan", "")
	})

	if err != nil {
		utils.Error(c, http.StatusConflict, "Gagal konfirmasi perbaikan", err)
		return
	}

	utils.NotifyAsync(p.VendorEmail, "Perbaikan diterima", "Client menerima perbaikan, masa retensi berjalan lagi.")
	utils.Success(c, "Perbaikan diterima, countdown dilanjutkan", nil)
}

// RetensiRejectFix: client menolak perbaikan, kembali ke jeda komplain untuk
// ronde perbaikan berikutnya.
func RetensiRejectFix(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	p, _, err := requireProjectClient(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in RetensiComplainInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Catatan) == "" {
		utils.Error(c, http.StatusBadRequest, "catatan dan file bukti wajib diisi", err)
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		ret, err := getRetensiLocked(tx, pid)
		if err != nil {
			return err
		}
		if ret.Status != models.RetensiWaitingConfirmation {
			return fmt.Errorf("status retensi %q tidak mengizinkan penolakan perbaikan", ret.Status)
		}
		res := tx.Model(&models.Retensi{}).
			Where("id = ? AND status = ?", ret.ID, models.RetensiWaitingConfirmation).
			Updates(map[string]any{
				"status":             models.RetensiComplaintPaused,
				"fix_submitted_time": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status retensi berubah, ulangi dari data terbaru")
		}
		return addRetensiLog(tx, ret.ID, models.RetensiLogComplain, in.Catatan, joinFiles(in.Files))
	})

	if err != nil {
		utils.Error(c, http.StatusConflict, "Gagal menolak perbaikan", err)
		return
	}

	utils.NotifyAsync(p.VendorEmail, "Perbaikan ditolak", "Client menolak perbaikan: "+in.Catatan)
	utils.Success(c, "Perbaikan ditolak, menunggu perbaikan ulang vendor", nil)
}

// AdminRetensiRelease: admin mencairkan dana retensi ke vendor. Boleh saat
// countdown (pencairan lebih awal), waiting_confirmation, atau
// pending_release. Proyek ikut ditandai completed.
func AdminRetensiRelease(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	if _, err := requireAdminRole(c); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var released int64
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		ret, err := getRetensiLocked(tx, pid)
		if err != nil {
			return err
		}
		switch ret.Status {
		case models.RetensiCountdown, models.RetensiWaitingConfirmation, models.RetensiPendingRelease:
		default:
			return fmt.Errorf("status retensi %q tidak mengizinkan pencairan", ret.Status)
		}
		released = ret.Value

		if _, err := applyLedgerDelta(tx, pid, ledgerDelta{
			VendorPaid:    released,
			AdminBalance:  -released,
			RetentionHeld: -released,
		}); err != nil {
			return err
		}

		res := tx.Model(&models.Retensi{}).
			Where("id = ? AND status = ?", ret.ID, ret.Status).
			Updates(map[string]any{
				"status":         models.RetensiPaid,
				"end_date":       nil,
				"remaining_days": 0,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status retensi berubah, ulangi dari data terbaru")
		}

		if err := tx.Model(&models.Project{}).
			Where("id = ?", pid).
			Update("status", models.ProjectCompleted).Error; err != nil {
			return err
		}

		return addRetensiLog(tx, ret.ID, models.RetensiLogSystem,
			fmt.Sprintf("Dana retensi %d dicairkan ke vendor, proyek selesai", released), "")
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Retensi tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusConflict, "Gagal mencairkan retensi", err)
		return
	}

	var p models.Project
	if config.DB.First(&p, pid).Error == nil {
		utils.NotifyAsync(p.VendorEmail, "Retensi dicairkan",
			fmt.Sprintf("Dana retensi %d sudah dicairkan, proyek selesai.", released))
	}
	utils.Success(c, "Retensi dicairkan, proyek selesai", gin.H{"released": released})
}

// GetRetensi mengambil record retensi dengan reconcile lazy lebih dulu.
// Dipakai di grup admin maupun grup pihak proyek; akses dicek sesuai konteks.
func GetRetensi(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	if email, err := currentUserEmail(c); err == nil {
		var p models.Project
		if err := config.DB.First(&p, pid).Error; err != nil {
			utils.Error(c, http.StatusNotFound, "Proyek tidak ditemukan", err)
			return
		}
		if !isProjectClient(&p, email) && !isProjectVendor(&p, email) {
			utils.Error(c, http.StatusForbidden, "Bukan pihak proyek ini", nil)
			return
		}
	} else if _, err := adminCanManageProject(config.DB, c, pid); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	if err := reconcileRetensiByProject(config.DB, pid); err != nil {
		utils.Error(c, http.StatusInternalServerError, "Gagal evaluasi retensi", err)
		return
	}

	var ret models.Retensi
	if err := config.DB.
		Preload("Logs", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("project_id = ?", pid).
		First(&ret).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Retensi tidak ditemukan", err)
		return
	}
	utils.Success(c, "Berhasil ambil retensi", ret)
}
