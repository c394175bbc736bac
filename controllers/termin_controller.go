package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"go-escrow-proyek/config"
	"go-escrow-proyek/models"
	"go-escrow-proyek/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// transitionTermin: pola guard status yang sama dengan milestone.
func transitionTermin(tx *gorm.DB, projectID, terminID uint, from models.TerminStatus, to models.TerminStatus, extra map[string]any) (*models.Termin, error) {
	var t models.Termin
	if err := tx.Clauses(clauseUpdateLock()).
		Where("id = ? AND project_id = ?", terminID, projectID).
		First(&t).Error; err != nil {
		return nil, err
	}
	if t.Status != from {
		return nil, fmt.Errorf("status termin %q tidak mengizinkan aksi ini", t.Status)
	}

	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&models.Termin{}).
		Where("id = ? AND status = ?", t.ID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.New("status termin berubah, ulangi dari data terbaru")
	}
	t.Status = to
	return &t, nil
}

func setTerminPending(projectID, terminID uint) error {
	return config.DB.Transaction(func(tx *gorm.DB) error {
		_, err := transitionTermin(tx, projectID, terminID,
			models.TerminUnpaid, models.TerminPendingConfirmation, nil)
		return err
	})
}

func setTerminUnpaid(projectID, terminID uint) error {
	return config.DB.Transaction(func(tx *gorm.DB) error {
		_, err := transitionTermin(tx, projectID, terminID,
			models.TerminPendingConfirmation, models.TerminUnpaid, nil)
		return err
	})
}

func terminErrorResponse(c *gin.Context, action string, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(c, http.StatusNotFound, "Termin tidak ditemukan", err)
		return
	}
	utils.Error(c, http.StatusConflict, "Gagal "+action, err)
}

// TerminRequestPayment: client menandai sudah transfer, menunggu konfirmasi admin.
func TerminRequestPayment(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	tid64, _ := strconv.ParseUint(c.Param("tid"), 10, 64)

	if _, _, err := requireProjectClient(config.DB, c, uint(pid64)); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	if err := setTerminPending(uint(pid64), uint(tid64)); err != nil {
		terminErrorResponse(c, "mengajukan pembayaran termin", err)
		return
	}

	utils.NotifyAsync(os.Getenv("PLATFORM_NOTIFY_EMAIL"), "Pengajuan pembayaran termin",
		fmt.Sprintf("Client proyek %d mengajukan konfirmasi pembayaran termin %d.", pid64, tid64))
	utils.Success(c, "Pengajuan pembayaran dikirim, menunggu konfirmasi admin", nil)
}

// TerminCancelRequest: client membatalkan pengajuan yang belum dikonfirmasi.
func TerminCancelRequest(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	tid64, _ := strconv.ParseUint(c.Param("tid"), 10, 64)

	if _, _, err := requireProjectClient(config.DB, c, uint(pid64)); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	if err := setTerminUnpaid(uint(pid64), uint(tid64)); err != nil {
		terminErrorResponse(c, "membatalkan pengajuan termin", err)
		return
	}
	utils.Success(c, "Pengajuan pembayaran dibatalkan", nil)
}

// AdminTerminRequestPayment / AdminTerminCancelRequest: admin bisa mencatatkan
// pengajuan atas nama client (pembayaran offline).
func AdminTerminRequestPayment(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	tid64, _ := strconv.ParseUint(c.Param("tid"), 10, 64)

	if _, err := adminCanManageProject(config.DB, c, uint(pid64)); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}
	if err := setTerminPending(uint(pid64), uint(tid64)); err != nil {
		terminErrorResponse(c, "mengajukan pembayaran termin", err)
		return
	}
	utils.Success(c, "Pengajuan pembayaran dicatat", nil)
}

func AdminTerminCancelRequest(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	tid64, _ := strconv.ParseUint(c.Param("tid"), 10, 64)

	if _, err := adminCanManageProject(config.DB, c, uint(pid64)); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}
	if err := setTerminUnpaid(uint(pid64), uint(tid64)); err != nil {
		terminErrorResponse(c, "membatalkan pengajuan termin", err)
		return
	}
	utils.Success(c, "Pengajuan pembayaran dibatalkan", nil)
}

// AdminTerminConfirmPayment: admin (atau manager dengan akses proyek)
// mengonfirmasi uang masuk. Dana client dan saldo escrow naik sebesar
// totalWithFee dalam satu transaksi dengan update status.
func AdminTerminConfirmPayment(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	tid64, _ := strconv.ParseUint(c.Param("tid"), 10, 64)
	pid, tid := uint(pid64), uint(tid64)

	if _, err := adminCanManageProject(config.DB, c, pid); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var confirmed *models.Termin
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		t, err := transitionTermin(tx, pid, tid,
			models.TerminPendingConfirmation, models.TerminPaid,
			map[string]any{"paid_at": now})
		if err != nil {
			return err
		}
		confirmed = t

		if _, err := applyLedgerDelta(tx, pid, ledgerDelta{
			ClientFunds:  t.TotalWithFee,
			AdminBalance: t.TotalWithFee,
		}); err != nil {
			return err
		}

		fee := t.FeeClientAmount
		return addLog(tx, pid, 0, models.LogSystem,
			fmt.Sprintf("Pembayaran termin %q dikonfirmasi (total %d, fee client %d)", t.Judul, t.TotalWithFee, t.FeeClientAmount),
			"", &fee)
	})

	if err != nil {
		terminErrorResponse(c, "konfirmasi pembayaran termin", err)
		return
	}

	var p models.Project
	if config.DB.First(&p, pid).Error == nil {
		utils.NotifyAsync(p.ClientEmail, "Pembayaran termin dikonfirmasi",
			fmt.Sprintf("Pembayaran termin %q sebesar %d sudah diterima.", confirmed.Judul, confirmed.TotalWithFee))
	}
	utils.Success(c, "Pembayaran termin dikonfirmasi", confirmed)
}

// AdminTerminProcessRefund: mencairkan termin pengurangan (nominal negatif)
// kembali ke client. Hanya untuk type=reduction yang masih unpaid, dan dana
// client di escrow harus cukup.
func AdminTerminProcessRefund(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	tid64, _ := strconv.ParseUint(c.Param("tid"), 10, 64)
	pid, tid := uint(pid64), uint(tid64)

	if _, err := adminCanManageProject(config.DB, c, pid); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var refundAmount int64
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var t models.Termin
		if err := tx.Clauses(clauseUpdateLock()).
			Where("id = ? AND project_id = ?", tid, pid).
			First(&t).Error; err != nil {
			return err
		}
		if t.Type != models.TerminReduction {
			return errors.New("hanya termin pengurangan yang bisa direfund")
		}
		if t.Status != models.TerminUnpaid {
			return fmt.Errorf("status termin %q tidak mengizinkan refund", t.Status)
		}

		// TotalWithFee negatif untuk termin pengurangan
		refundAmount = -t.TotalWithFee
		if refundAmount <= 0 {
			return errors.New("nominal refund tidak valid")
		}

		if _, err := applyLedgerDelta(tx, pid, ledgerDelta{
			ClientFunds:  -refundAmount,
			AdminBalance: -refundAmount,
		}); err != nil {
			return err
		}

		res := tx.Model(&models.Termin{}).
			Where("id = ? AND status = ?", t.ID, models.TerminUnpaid).
			Update("status", models.TerminRefunded)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("status termin berubah, ulangi dari data terbaru")
		}

		return addLog(tx, pid, 0, models.LogRefund,
			fmt.Sprintf("Refund termin %q sebesar %d diproses", t.Judul, refundAmount), "", nil)
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Termin tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusUnprocessableEntity, "Gagal memproses refund", err)
		return
	}

	var p models.Project
	if config.DB.First(&p, pid).Error == nil {
		utils.NotifyAsync(p.ClientEmail, "Refund diproses",
			fmt.Sprintf("Refund sebesar %d sudah diproses.", refundAmount))
	}
	utils.Success(c, "Refund diproses", gin.H{"refund_amount": refundAmount})
}

var errTerminMenungguKonfirmasi = errors.New("ada termin utama yang menunggu konfirmasi, konfirmasi atau batalkan dulu")

// AdminRegenerateTermins (PUT): susun ulang termin utama yang masih unpaid
// dari daftar milestone reguler saat ini, satu termin per milestone. Milestone
// pekerjaan tambahan sudah punya termin additional sendiri dan dilewati.
// Selama masih ada termin utama pending_confirmation, penyusunan ulang ditolak
// supaya tagihan yang sedang menunggu konfirmasi tidak terduplikasi.
func AdminRegenerateTermins(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	if _, err := requireAdminRole(c); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var created []models.Termin
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.Clauses(clauseUpdateLock()).First(&p, pid).Error; err != nil {
			return err
		}

		var menunggu int64
		if err := tx.Model(&models.Termin{}).
			Where("project_id = ? AND type = ? AND status = ?",
				pid, models.TerminMain, models.TerminPendingConfirmation).
			Count(&menunggu).Error; err != nil {
			return err
		}
		if menunggu > 0 {
			return errTerminMenungguKonfirmasi
		}

		if err := tx.Where("project_id = ? AND type = ? AND status = ?",
			pid, models.TerminMain, models.TerminUnpaid).
			Delete(&models.Termin{}).Error; err != nil {
			return err
		}

		var milestones []models.Milestone
		if err := tx.Where("project_id = ? AND is_additional_work = false", pid).
			Order("urutan ASC, id ASC").
			Find(&milestones).Error; err != nil {
			return err
		}

		for _, ms := range milestones {
			bd := utils.CalculateTerminAmount(ms.Price, p.FeeClientPercent)
			t := models.Termin{
				ProjectID:       pid,
				Judul:           "Termin " + ms.Judul,
				Type:            models.TerminMain,
				BaseAmount:      bd.BaseAmount,
				FeeClientAmount: bd.FeeClientAmount,
				TotalWithFee:    bd.TotalWithFee,
				Status:          models.TerminUnpaid,
				Urutan:          ms.Urutan,
			}
			if err := tx.Create(&t).Error; err != nil {
				return err
			}
			created = append(created, t)
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Proyek tidak ditemukan", err)
			return
		}
		if errors.Is(err, errTerminMenungguKonfirmasi) {
			utils.Error(c, http.StatusConflict, "Gagal regenerate termin", err)
			return
		}
		utils.Error(c, http.StatusInternalServerError, "Gagal regenerate termin", err)
		return
	}

	utils.Success(c, "Termin utama disusun ulang", created)
}

type UpdateTerminInput struct {
	ID         uint   `json:"id" binding:"required"`
	Judul      string `json:"judul"`
	BaseAmount *int64 `json:"base_amount"`
}

type UpdateTerminsInput struct {
	Termins []UpdateTerminInput `json:"termins" binding:"required,min=1"`
}

// AdminUpdateTermins (PATCH): edit manual judul/nominal termin yang masih
// unpaid. Fee dan total dihitung ulang; termin terminal tidak bisa diedit.
func AdminUpdateTermins(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	if _, err := requireAdminRole(c); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in UpdateTerminsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "payload tidak valid", err)
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.First(&p, pid).Error; err != nil {
			return err
		}

		for _, item := range in.Termins {
			var t models.Termin
			if err := tx.Clauses(clauseUpdateLock()).
				Where("id = ? AND project_id = ?", item.ID, pid).
				First(&t).Error; err != nil {
				return err
			}
			if t.Status != models.TerminUnpaid {
				return fmt.Errorf("termin %d berstatus %q, hanya unpaid yang bisa diedit", t.ID, t.Status)
			}

			updates := map[string]any{}
			if item.Judul != "" {
				updates["judul"] = item.Judul
			}
			if item.BaseAmount != nil {
				bd := utils.CalculateTerminAmount(*item.BaseAmount, p.FeeClientPercent)
				updates["base_amount"] = bd.BaseAmount
				updates["fee_client_amount"] = bd.FeeClientAmount
				updates["total_with_fee"] = bd.TotalWithFee
			}
			if len(updates) == 0 {
				continue
			}
			if err := tx.Model(&models.Termin{}).Where("id = ?", t.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Termin tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusConflict, "Gagal update termin", err)
		return
	}

	utils.Success(c, "Termin diperbarui", nil)
}
