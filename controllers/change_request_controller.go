package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go-escrow-proyek/config"
	"go-escrow-proyek/models"
	"go-escrow-proyek/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateChangeRequestInput struct {
	Amount int64  `json:"amount" binding:"required"`
	Alasan string `json:"alasan" binding:"required"`
}

// ChangeRequestCreate: vendor mengusulkan pengurangan nilai satu milestone.
// Nominal tidak boleh melebihi harga berjalan milestone tersebut.
func ChangeRequestCreate(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	mid64, _ := strconv.ParseUint(c.Param("mid"), 10, 64)
	pid, mid := uint(pid64), uint(mid64)

	p, _, err := requireProjectVendor(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in CreateChangeRequestInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Amount <= 0 || strings.TrimSpace(in.Alasan) == "" {
		utils.Error(c, http.StatusBadRequest, "nominal harus positif dan alasan wajib diisi", err)
		return
	}

	var cr models.ChangeRequest
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var ms models.Milestone
		if err := tx.Where("id = ? AND project_id = ?", mid, pid).First(&ms).Error; err != nil {
			return err
		}
		if in.Amount > ms.Price {
			return fmt.Errorf("nominal pengurangan (%d) melebihi nilai milestone (%d)", in.Amount, ms.Price)
		}

		cr = models.ChangeRequest{
			ProjectID:   pid,
			MilestoneID: ms.ID,
			Amount:      in.Amount,
			Alasan:      in.Alasan,
			Tipe:        "reduction",
			Status:      models.ApprovalPending,
		}
		return tx.Create(&cr).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Milestone tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusBadRequest, "Gagal membuat usulan pengurangan", err)
		return
	}

	utils.NotifyAsync(p.ClientEmail, "Usulan pengurangan nilai",
		fmt.Sprintf("Vendor mengusulkan pengurangan %d: %s", in.Amount, in.Alasan))
	utils.Created(c, "Usulan pengurangan dibuat", cr)
}

// ChangeRequestApprove: client menyetujui pengurangan. Harga milestone turun
// (originalPrice tetap sebagai baseline), lalu dibuat termin reduction
// bernilai negatif. Uangnya sendiri baru keluar lewat refund termin,
// langkah terpisah di kemudian hari.
func ChangeRequestApprove(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	crid64, _ := strconv.ParseUint(c.Param("crId"), 10, 64)
	pid := uint(pid64)

	p, _, err := requireProjectClient(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var reduction models.Termin
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var cr models.ChangeRequest
		if err := tx.Clauses(clauseUpdateLock()).
			Where("id = ? AND project_id = ?", crid64, pid).
			First(&cr).Error; err != nil {
			return err
		}
		if cr.Status != models.ApprovalPending {
			return fmt.Errorf("status usulan %q tidak mengizinkan aksi ini", cr.Status)
		}

		var ms models.Milestone
		if err := tx.Clauses(clauseUpdateLock()).
			Where("id = ? AND project_id = ?", cr.MilestoneID, pid).
			First(&ms).Error; err != nil {
			return err
		}
		if cr.Amount > ms.Price {
			return fmt.Errorf("nominal pengurangan (%d) melebihi nilai milestone saat ini (%d)", cr.Amount, ms.Price)
		}

		if err := tx.Model(&models.Milestone{}).
			Where("id = ?", ms.ID).
			Update("price", gorm.Expr("price - ?", cr.Amount)).Error; err != nil {
			return err
		}

		// termin pengurangan: base dan total sama-sama negatif, tanpa fee
		crRef := cr.ID
		reduction = models.Termin{
			ProjectID:    pid,
			Judul:        "Pengurangan " + ms.Judul,
			Type:         models.TerminReduction,
			BaseAmount:   -cr.Amount,
			TotalWithFee: -cr.Amount,
			Status:       models.TerminUnpaid,
			TerkaitID:    &crRef,
		}
		if err := tx.Create(&reduction).Error; err != nil {
			return err
		}

		res := tx.Model(&models.ChangeRequest{}).
			Where("id = ? AND status = ?", cr.ID, models.ApprovalPending).
			Update("status", models.ApprovalApproved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status usulan berubah, ulangi dari data terbaru")
		}

		return addLog(tx, pid, ms.ID, models.LogChange,
			fmt.Sprintf("Pengurangan %d disetujui client (nilai milestone %d -> %d)", cr.Amount, ms.Price, ms.Price-cr.Amount),
			"", nil)
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Usulan tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusConflict, "Gagal menyetujui pengurangan", err)
		return
	}

	utils.NotifyAsync(p.VendorEmail, "Pengurangan disetujui",
		"Client menyetujui usulan pengurangan nilai milestone.")
	utils.Success(c, "Pengurangan disetujui, refund menyusul lewat termin", reduction)
}

// ChangeRequestReject: client menolak usulan; tidak ada efek samping.
func ChangeRequestReject(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	crid64, _ := strconv.ParseUint(c.Param("crId"), 10, 64)
	pid := uint(pid64)

	p, _, err := requireProjectClient(config.DB, c, pid)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var cr models.ChangeRequest
		if err := tx.Clauses(clauseUpdateLock()).
			Where("id = ? AND project_id = ?", crid64, pid).
			First(&cr).Error; err != nil {
			return err
		}
		if cr.Status != models.ApprovalPending {
			return fmt.Errorf("status usulan %q tidak mengizinkan aksi ini", cr.Status)
		}
		res := tx.Model(&models.ChangeRequest{}).
			Where("id = ? AND status = ?", cr.ID, models.ApprovalPending).
			Update("status", models.ApprovalRejected)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status usulan berubah, ulangi dari data terbaru")
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Usulan tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusConflict, "Gagal menolak pengurangan", err)
		return
	}

	utils.NotifyAsync(p.VendorEmail, "Pengurangan ditolak",
		"Client menolak usulan pengurangan nilai milestone.")
	utils.Success(c, "Usulan pengurangan ditolak", nil)
}
