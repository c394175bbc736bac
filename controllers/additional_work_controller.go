package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go-escrow-proyek/config"
	"go-escrow-proyek/models"
	"go-escrow-proyek/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateAdditionalWorkInput struct {
	Judul     string `json:"judul" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
	Deskripsi string `json:"deskripsi"`
}

// AdditionalWorkCreate: vendor mengusulkan pekerjaan tambahan.
func AdditionalWorkCreate(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	p, _, err := requireProjectVendor(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in CreateAdditionalWorkInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Amount <= 0 {
		utils.Error(c, http.StatusBadRequest, "judul wajib diisi dan nominal harus positif", err)
		return
	}

	aw := models.AdditionalWork{
		ProjectID: pid,
		Judul:     in.Judul,
		Amount:    in.Amount,
		Deskripsi: in.Deskripsi,
		Status:    models.ApprovalPending,
	}
	if err := config.DB.Create(&aw).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Gagal membuat usulan pekerjaan tambahan", err)
		return
	}

	utils.NotifyAsync(p.ClientEmail, "Usulan pekerjaan tambahan",
		fmt.Sprintf("Vendor mengusulkan pekerjaan tambahan %q senilai %d.", in.Judul, in.Amount))
	utils.Created(c, "Usulan pekerjaan tambahan dibuat", aw)
}

// approveAdditionalWork: inti approve — melahirkan milestone pending_additional
// dan termin additional yang menunjuk balik ke usulannya, atomik.
func approveAdditionalWork(awID, pid uint) (*models.Milestone, error) {
	var created models.Milestone
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.First(&p, pid).Error; err != nil {
			return err
		}

		var aw models.AdditionalWork
		if err := tx.Clauses(clauseUpdateLock()).
			Where("id = ? AND project_id = ?", awID, pid).
			First(&aw).Error; err != nil {
			return err
		}
		if aw.Status != models.ApprovalPending {
			return fmt.Errorf("status usulan %q tidak mengizinkan aksi ini", aw.Status)
		}

		var maxUrutan int
		if err := tx.Model(&models.Milestone{}).
			Where("project_id = ?", pid).
			Select("COALESCE(MAX(urutan), 0)").
			Scan(&maxUrutan).Error; err != nil {
			return err
		}

		created = models.Milestone{
			ProjectID:        pid,
			Judul:            "[Tambahan] " + aw.Judul,
			Deskripsi:        aw.Deskripsi,
			Price:            aw.Amount,
			OriginalPrice:    aw.Amount,
			Status:           models.MilestonePendingAdditional,
			IsAdditionalWork: true,
			Urutan:           maxUrutan + 1,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		bd := utils.CalculateTerminAmount(aw.Amount, p.FeeClientPercent)
		awRef := aw.ID
		t := models.Termin{
			ProjectID:       pid,
			Judul:           "Termin [Tambahan] " + aw.Judul,
			Type:            models.TerminAdditional,
			BaseAmount:      bd.BaseAmount,
			FeeClientAmount: bd.FeeClientAmount,
			TotalWithFee:    bd.TotalWithFee,
			Status:          models.TerminUnpaid,
			Urutan:          maxUrutan + 1,
			TerkaitID:       &awRef,
		}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}

		res := tx.Model(&models.AdditionalWork{}).
			Where("id = ? AND status = ?", aw.ID, models.ApprovalPending).
			Updates(map[string]any{
				"status":       models.ApprovalApproved,
				"milestone_id": created.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status usulan berubah, ulangi dari data terbaru")
		}

		return addLog(tx, pid, created.ID, models.LogSystem,
			fmt.Sprintf("Pekerjaan tambahan %q disetujui (nilai %d)", aw.Judul, aw.Amount), "", nil)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func rejectAdditionalWork(awID, pid uint) error {
	return config.DB.Transaction(func(tx *gorm.DB) error {
		var aw models.AdditionalWork
		if err := tx.Clauses(clauseUpdateLock()).
			Where("id = ? AND project_id = ?", awID, pid).
			First(&aw).Error; err != nil {
			return err
		}
		if aw.Status != models.ApprovalPending {
			return fmt.Errorf("status usulan %q tidak mengizinkan aksi ini", aw.Status)
		}
		res := tx.Model(&models.AdditionalWork{}).
			Where("id = ? AND status = ?", aw.ID, models.ApprovalPending).
			Update("status", models.ApprovalRejected)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status usulan berubah, ulangi dari data terbaru")
		}
		return nil
	})
}

func additionalWorkError(c *gin.Context, action string, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(c, http.StatusNotFound, "Usulan tidak ditemukan", err)
		return
	}
	utils.Error(c, http.StatusConflict, "Gagal "+action, err)
}

// AdditionalWorkApprove: client menyetujui usulan.
func AdditionalWorkApprove(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	awid64, _ := strconv.ParseUint(c.Param("awId"), 10, 64)

	p, _, err := requireProjectClient(config.DB, c, uint(pid64))
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	ms, err := approveAdditionalWork(uint(awid64), uint(pid64))
	if err != nil {
		additionalWorkError(c, "menyetujui pekerjaan tambahan", err)
		return
	}

	utils.NotifyAsync(p.VendorEmail, "Pekerjaan tambahan disetujui",
		"Usulan pekerjaan tambahan disetujui client.")
	utils.Success(c, "Pekerjaan tambahan disetujui", ms)
}

// AdditionalWorkReject: client menolak usulan, tanpa efek samping.
func AdditionalWorkReject(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	awid64, _ := strconv.ParseUint(c.Param("awId"), 10, 64)

	p, _, err := requireProjectClient(config.DB, c, uint(pid64))
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	if err := rejectAdditionalWork(uint(awid64), uint(pid64)); err != nil {
		additionalWorkError(c, "menolak pekerjaan tambahan", err)
		return
	}

	utils.NotifyAsync(p.VendorEmail, "Pekerjaan tambahan ditolak",
		"Usulan pekerjaan tambahan ditolak client.")
	utils.Success(c, "Pekerjaan tambahan ditolak", nil)
}

// AdminAdditionalWorkApprove / Reject: admin juga boleh memutus usulan.
func AdminAdditionalWorkApprove(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	awid64, _ := strconv.ParseUint(c.Param("awId"), 10, 64)

	if _, err := adminCanManageProject(config.DB, c, uint(pid64)); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	ms, err := approveAdditionalWork(uint(awid64), uint(pid64))
	if err != nil {
		additionalWorkError(c, "menyetujui pekerjaan tambahan", err)
		return
	}
	utils.Success(c, "Pekerjaan tambahan disetujui", ms)
}

func AdminAdditionalWorkReject(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	awid64, _ := strconv.ParseUint(c.Param("awId"), 10, 64)

	if _, err := adminCanManageProject(config.DB, c, uint(pid64)); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	if err := rejectAdditionalWork(uint(awid64), uint(pid64)); err != nil {
		additionalWorkError(c, "menolak pekerjaan tambahan", err)
		return
	}
	utils.Success(c, "Pekerjaan tambahan ditolak", nil)
}
