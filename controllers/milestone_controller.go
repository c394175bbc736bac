package controllers

import (
	"errors"
	"fmt"
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

type CreateMilestoneInput struct {
	Judul      string  `json:"judul" binding:"required"`
	Deskripsi  string  `json:"deskripsi"`
	Persentase float64 `json:"persentase" binding:"required"`
}

// AdminCreateMilestone menambah milestone ke proyek aktif. Total persentase
// milestone non-tambahan (termasuk yang baru) tidak boleh melebihi 100.
// Satu termin utama dibuat menyertainya.
func AdminCreateMilestone(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	if _, err := requireAdminRole(c); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in CreateMilestoneInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Persentase <= 0 {
		utils.Error(c, http.StatusBadRequest, "payload tidak valid", err)
		return
	}

	var created models.Milestone
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.Clauses(clauseUpdateLock()).First(&p, pid).Error; err != nil {
			return err
		}
		if p.Status != models.ProjectActive {
			return errors.New("proyek sudah selesai")
		}

		var totalPct float64
		if err := tx.Model(&models.Milestone{}).
			Where("project_id = ? AND is_additional_work = false", p.ID).
			Select("COALESCE(SUM(persentase), 0)").
			Scan(&totalPct).Error; err != nil {
			return err
		}
		if totalPct+in.Persentase > 100 {
			return fmt.Errorf("total persentase milestone akan melebihi 100 (sekarang %.2f)", totalPct)
		}

		var maxUrutan int
		if err := tx.Model(&models.Milestone{}).
			Where("project_id = ?", p.ID).
			Select("COALESCE(MAX(urutan), 0)").
			Scan(&maxUrutan).Error; err != nil {
			return err
		}

		price := utils.PercentOf(p.BaseTotal, in.Persentase)
		created = models.Milestone{
			ProjectID:     p.ID,
			Judul:         in.Judul,
			Deskripsi:     in.Deskripsi,
			Persentase:    in.Persentase,
			Price:         price,
			OriginalPrice: price,
			Status:        models.MilestonePending,
			Urutan:        maxUrutan + 1,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		bd := utils.CalculateTerminAmount(price, p.FeeClientPercent)
		t := models.Termin{
			ProjectID:       p.ID,
			Judul:           "Termin " + in.Judul,
			Type:            models.TerminMain,
			BaseAmount:      bd.BaseAmount,
			FeeClientAmount: bd.FeeClientAmount,
			TotalWithFee:    bd.TotalWithFee,
			Status:          models.TerminUnpaid,
			Urutan:          maxUrutan + 1,
		}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}

		return addLog(tx, p.ID, created.ID, models.LogSystem, "Milestone ditambahkan: "+in.Judul, "", nil)
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Proyek tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusBadRequest, "Gagal menambah milestone", err)
		return
	}

	utils.Created(c, "Milestone ditambahkan", created)
}

// AdminDeleteMilestone hanya boleh untuk milestone yang masih pending.
func AdminDeleteMilestone(c *gin.Context) {
	if _, err := requireAdminRole(c); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	mid64, _ := strconv.ParseUint(c.Param("mid"), 10, 64)

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var ms models.Milestone
		if err := tx.Clauses(clauseUpdateLock()).
			Where("id = ? AND project_id = ?", mid64, pid64).
			First(&ms).Error; err != nil {
			return err
		}
		if ms.Status != models.MilestonePending && ms.Status != models.MilestonePendingAdditional {
			return errors.New("hanya milestone pending yang bisa dihapus")
		}
		if err := tx.Where("milestone_id = ?", ms.ID).Delete(&models.ChangeRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("milestone_id = ?", ms.ID).Delete(&models.Log{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ms).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Milestone tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusConflict, "Gagal hapus milestone", err)
		return
	}

	utils.Success(c, "Milestone dihapus", nil)
}

type MilestoneActionInput struct {
	Catatan string   `json:"catatan"`
	Files   []string `json:"files"`
}

func joinFiles(files []string) string { return strings.Join(files, ",") }

// transitionMilestone menjalankan satu transisi status milestone secara atomik:
// lock baris, cek status asal, update dengan guard status, tulis log.
// RowsAffected nol berarti ada penulis lain yang menang duluan.
func transitionMilestone(tx *gorm.DB, projectID, milestoneID uint, from []models.MilestoneStatus, to models.MilestoneStatus) (*models.Milestone, error) {
	var ms models.Milestone
	if err := tx.Clauses(clauseUpdateLock()).
		Where("id = ? AND project_id = ?", milestoneID, projectID).
		First(&ms).Error; err != nil {
		return nil, err
	}

	ok := false
	for _, s := range from {
		if ms.Status == s {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("status milestone %q tidak mengizinkan aksi ini", ms.Status)
	}

	res := tx.Model(&models.Milestone{}).
		Where("id = ? AND status = ?", ms.ID, ms.Status).
		Update("status", to)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.New("status milestone berubah, ulangi dari data terbaru")
	}
	ms.Status = to
	return &ms, nil
}

// MilestoneStart: vendor memulai milestone pending. Gerbang lunak dana client
// 110% dari harga milestone.
func MilestoneStart(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	mid64, _ := strconv.ParseUint(c.Param("mid"), 10, 64)
	pid, mid := uint(pid64), uint(mid64)

	if _, _, err := requireProjectVendor(config.DB, c, pid); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var check utils.FundsCheck
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var ms models.Milestone
		if err := tx.Where("id = ? AND project_id = ?", mid, pid).First(&ms).Error; err != nil {
			return err
		}
		if ms.Status != models.MilestonePending && ms.Status != models.MilestonePendingAdditional {
			return fmt.Errorf("status milestone %q tidak mengizinkan aksi ini", ms.Status)
		}

		var ad models.AdminData
		if err := tx.Where("project_id = ?", pid).First(&ad).Error; err != nil {
			return err
		}
		check = utils.CheckClientFundsSufficient(ad.ClientFunds, ms.Price)
		if !check.Sufficient {
			return errors.New(check.Warning)
		}

		if _, err := transitionMilestone(tx, pid, mid,
			[]models.MilestoneStatus{models.MilestonePending, models.MilestonePendingAdditional},
			models.MilestoneActive); err != nil {
			return err
		}
		return addLog(tx, pid, mid, models.LogSystem, "Pekerjaan dimulai", "", nil)
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Milestone tidak ditemukan", err)
			return
		}
		if !check.Sufficient && check.Warning != "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"message":  "Dana client belum cukup",
				"error":    err.Error(),
				"required": check.Required,
				"shortage": check.Shortage,
			})
			return
		}
		utils.Error(c, http.StatusConflict, "Gagal memulai milestone", err)
		return
	}

	utils.Success(c, "Milestone dimulai", nil)
}

// MilestoneDaily: laporan harian vendor, tidak mengubah status.
func MilestoneDaily(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	mid64, _ := strconv.ParseUint(c.Param("mid"), 10, 64)
	pid, mid := uint(pid64), uint(mid64)

	if _, _, err := requireProjectVendor(config.DB, c, pid); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in MilestoneActionInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Catatan) == "" {
		utils.Error(c, http.StatusBadRequest, "catatan wajib diisi", err)
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var ms models.Milestone
		if err := tx.Where("id = ? AND project_id = ?", mid, pid).First(&ms).Error; err != nil {
			return err
		}
		if ms.Status != models.MilestoneActive {
			return fmt.Errorf("status milestone %q tidak mengizinkan laporan harian", ms.Status)
		}
		return addLog(tx, pid, mid, models.LogDaily, in.Catatan, joinFiles(in.Files), nil)
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Milestone tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusConflict, "Gagal mencatat laporan harian", err)
		return
	}

	utils.Success(c, "Laporan harian dicatat", nil)
}

// MilestoneFinish: vendor menandai selesai, menunggu review client.
func MilestoneFinish(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	mid64, _ := strconv.ParseUint(c.Param("mid"), 10, 64)
	pid, mid := uint(pid64), uint(mid64)

	p, _, err := requireProjectVendor(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in MilestoneActionInput
	_ = c.ShouldBindJSON(&in)

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := transitionMilestone(tx, pid, mid,
			[]models.MilestoneStatus{models.MilestoneActive}, models.MilestoneWaiting); err != nil {
			return err
		}
		catatan := in.Catatan
		if catatan == "" {
			catatan = "Pekerjaan selesai, menunggu review client"
		}
		return addLog(tx, pid, mid, models.LogFinish, catatan, joinFiles(in.Files), nil)
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Milestone tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusConflict, "Gagal menyelesaikan milestone", err)
		return
	}

	utils.NotifyAsync(p.ClientEmail, "Milestone selesai dikerjakan", "Vendor menandai milestone selesai, mohon direview.")
	utils.Success(c, "Milestone menunggu review client", nil)
}

// MilestoneComplain: client komplain atas hasil pekerjaan.
func MilestoneComplain(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	mid64, _ := strconv.ParseUint(c.Param("mid"), 10, 64)
	pid, mid := uint(pid64), uint(mid64)

	p, _, err := requireProjectClient(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in MilestoneActionInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Catatan) == "" {
		utils.Error(c, http.StatusBadRequest, "catatan komplain wajib diisi", err)
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := transitionMilestone(tx, pid, mid,
			[]models.MilestoneStatus{models.MilestoneWaiting}, models.MilestoneComplaint); err != nil {
			return err
		}
		return addLog(tx, pid, mid, models.LogComplain, in.Catatan, joinFiles(in.Files), nil)
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Milestone tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusConflict, "Gagal mencatat komplain", err)
		return
	}

	utils.NotifyAsync(p.VendorEmail, "Komplain milestone", "Client mengajukan komplain: "+in.Catatan)
	utils.Success(c, "Komplain dicatat", nil)
}

// MilestoneFixDone: vendor selesai memperbaiki, kembali menunggu review.
func MilestoneFixDone(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	mid64, _ := strconv.ParseUint(c.Param("mid"), 10, 64)
	pid, mid := uint(pid64), uint(mid64)

	p, _, err := requireProjectVendor(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in MilestoneActionInput
	_ = c.ShouldBindJSON(&in)

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := transitionMilestone(tx, pid, mid,
			[]models.MilestoneStatus{models.MilestoneComplaint}, models.MilestoneWaiting); err != nil {
			return err
		}
		catatan := in.Catatan
		if catatan == "" {
			catatan = "Perbaikan selesai"
		}
		return addLog(tx, pid, mid, models.LogFix, catatan, joinFiles(in.Files), nil)
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Milestone tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusConflict, "Gagal mencatat perbaikan", err)
		return
	}

	utils.NotifyAsync(p.ClientEmail, "Perbaikan milestone selesai", "Vendor sudah memperbaiki, mohon direview ulang.")
	utils.Success(c, "Perbaikan dicatat, menunggu review client", nil)
}

// MilestoneApprove: client menyetujui hasil, lanjut menunggu pembayaran admin.
func MilestoneApprove(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	mid64, _ := strconv.ParseUint(c.Param("mid"), 10, 64)
	pid, mid := uint(pid64), uint(mid64)

	if _, _, err := requireProjectClient(config.DB, c, pid); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := transitionMilestone(tx, pid, mid,
			[]models.MilestoneStatus{models.MilestoneWaiting}, models.MilestoneWaitingAdmin); err != nil {
			return err
		}
		return addLog(tx, pid, mid, models.LogSystem, "Hasil disetujui client, menunggu pembayaran admin", "", nil)
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Milestone tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusConflict, "Gagal menyetujui milestone", err)
		return
	}

	utils.Success(c, "Milestone disetujui, menunggu pembayaran admin", nil)
}

// MilestoneConfirmPayment: admin membayar vendor untuk satu milestone yang
// sudah disetujui client. Potongan retensi hanya berlaku kalau retensi proyek
// sedang mengikat (agreed sampai pending_release). Seluruh mutasi status,
// ledger, dan log berjalan dalam satu transaksi.
func MilestoneConfirmPayment(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	mid64, _ := strconv.ParseUint(c.Param("mid"), 10, 64)
	pid, mid := uint(pid64), uint(mid64)

	if _, err := adminCanManageProject(config.DB, c, pid); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var (
		project   models.Project
		breakdown utils.MilestonePaymentBreakdown
	)
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&project, pid).Error; err != nil {
			return err
		}

		var ret models.Retensi
		if err := tx.Clauses(clauseUpdateLock()).
			Where("project_id = ?", pid).
			First(&ret).Error; err != nil {
			return err
		}

		retentionPercent := 0.0
		if ret.IsActive() {
			retentionPercent = ret.Percent
		}

		ms, err := transitionMilestone(tx, pid, mid,
			[]models.MilestoneStatus{models.MilestoneWaitingAdmin}, models.MilestoneCompleted)
		if err != nil {
			return err
		}

		breakdown = utils.CalculateMilestonePayment(
			ms.Price, retentionPercent, project.FeeClientPercent, project.FeeVendorPercent)

		if _, err := applyLedgerDelta(tx, pid, ledgerDelta{
			VendorPaid:    breakdown.VendorNetAmount,
			AdminBalance:  -breakdown.VendorNetAmount,
			RetentionHeld: breakdown.RetentionAmount,
			FeeEarned:     breakdown.VendorFeeAmount,
		}); err != nil {
			return err
		}

		fee := breakdown.VendorFeeAmount
		if err := addLog(tx, pid, mid, models.LogAdmin,
			fmt.Sprintf("Pembayaran milestone dikonfirmasi: vendor menerima %d, retensi tertahan %d", breakdown.VendorNetAmount, breakdown.RetentionAmount),
			"", &fee); err != nil {
			return err
		}

		// semua milestone selesai + retensi masih agreed -> countdown dimulai
		var unfinished int64
		if err := tx.Model(&models.Milestone{}).
			Where("project_id = ? AND status <> ?", pid, models.MilestoneCompleted).
			Count(&unfinished).Error; err != nil {
			return err
		}
		if unfinished == 0 && ret.Status == models.RetensiAgreed {
			now := time.Now().UTC()
			end := now.Add(time.Duration(ret.Days) * 24 * time.Hour)
			res := tx.Model(&models.Retensi{}).
				Where("id = ? AND status = ?", ret.ID, models.RetensiAgreed).
				Updates(map[string]any{
					"status":         models.RetensiCountdown,
					"start_date":     now,
					"end_date":       end,
					"remaining_days": ret.Days,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				if err := addRetensiLog(tx, ret.ID, models.RetensiLogSystem,
					fmt.Sprintf("Masa retensi dimulai (%d hari)", ret.Days), ""); err != nil {
					return err
				}
			}
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Milestone tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusConflict, "Gagal konfirmasi pembayaran milestone", err)
		return
	}

	utils.NotifyAsync(project.VendorEmail, "Pembayaran milestone dikonfirmasi",
		fmt.Sprintf("Pembayaran bersih %d sudah dikonfirmasi admin.", breakdown.VendorNetAmount))
	utils.Success(c, "Pembayaran milestone dikonfirmasi", breakdown)
}

type AddCommentInput struct {
	Text  string   `json:"text" binding:"required"`
	Files []string `json:"files"`
}

// AddLogComment menambahkan balasan pada satu log aktivitas. Boleh oleh pihak
// proyek mana pun; tidak pernah mengubah status apa pun.
func AddLogComment(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	logID64, _ := strconv.ParseUint(c.Param("logId"), 10, 64)
	pid := uint(pid64)

	email, err := currentUserEmail(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	var p models.Project
	if err := config.DB.First(&p, pid).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Proyek tidak ditemukan", err)
		return
	}
	if !isProjectClient(&p, email) && !isProjectVendor(&p, email) {
		utils.Error(c, http.StatusForbidden, "Bukan pihak proyek ini", nil)
		return
	}

	var in AddCommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "payload tidak valid", err)
		return
	}

	var entry models.Log
	if err := config.DB.Where("id = ? AND project_id = ?", logID64, pid).First(&entry).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Log tidak ditemukan", err)
		return
	}

	author := p.ClientName
	if isProjectVendor(&p, email) {
		author = p.VendorName
	}

	comment := models.Comment{
		LogID:  entry.ID,
		Author: author,
		Text:   in.Text,
		Files:  joinFiles(in.Files),
	}
	if err := config.DB.Create(&comment).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Gagal menambah komentar", err)
		return
	}

	utils.Created(c, "Komentar ditambahkan", comment)
}
