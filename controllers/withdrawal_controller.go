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

type CreateWithdrawalInput struct {
	Amount int64  `json:"amount" binding:"required"`
	Note   string `json:"note"`
}

// AdminCreateWithdrawal: admin mencairkan saldo bebas escrow. Dana retensi
// yang masih tertahan tidak pernah ikut tercairkan: guard saldo di
// applyLedgerDelta menolak kalau AdminBalance turun di bawah RetentionHeld.
func AdminCreateWithdrawal(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	aid, err := requireAdminRole(c)
	if err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in CreateWithdrawalInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Amount <= 0 {
		utils.Error(c, http.StatusBadRequest, "nominal penarikan harus positif", err)
		return
	}

	var w models.Withdrawal
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := applyLedgerDelta(tx, pid, ledgerDelta{
			AdminBalance: -in.Amount,
		}); err != nil {
			return err
		}

		w = models.Withdrawal{
			ProjectID: pid,
			Amount:    in.Amount,
			AdminID:   aid,
			Note:      in.Note,
		}
		if err := tx.Create(&w).Error; err != nil {
			return err
		}
		return addLog(tx, pid, 0, models.LogAdmin,
			fmt.Sprintf("Penarikan saldo %d oleh admin", in.Amount), "", nil)
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Proyek tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusUnprocessableEntity, "Gagal menarik saldo", err)
		return
	}

	utils.Success(c, "Penarikan saldo berhasil", w)
}

// AdminListWithdrawals: riwayat penarikan per proyek.
func AdminListWithdrawals(c *gin.Context) {
	pid64, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	pid := uint(pid64)

	if _, err := adminCanManageProject(config.DB, c, pid); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var rows []models.Withdrawal
	if err := config.DB.
		Where("project_id = ?", pid).
		Order("id DESC").
		Find(&rows).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Gagal ambil riwayat penarikan", err)
		return
	}
	utils.Success(c, "Berhasil ambil riwayat penarikan", rows)
}
