package controllers

import (
	"fmt"
	"time"

	"go-escrow-proyek/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func clauseUpdateLock() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// ledgerDelta = satu mutasi buku escrow. Tanda mengikuti arah uang:
// + masuk ke kolomnya, - keluar.
type ledgerDelta struct {
	ClientFunds   int64
	VendorPaid    int64
	AdminBalance  int64
	RetentionHeld int64
	FeeEarned     int64
}

// applyLedgerDelta mengunci baris AdminData proyek, menerapkan delta, dan
// menjaga invariant saldo: AdminBalance tidak boleh negatif dan tidak boleh
// turun di bawah RetentionHeld. Wajib dipanggil di dalam transaksi yang sama
// dengan update status entity pemicunya (all-or-nothing).
func applyLedgerDelta(tx *gorm.DB, projectID uint, d ledgerDelta) (*models.AdminData, error) {
	var ad models.AdminData
	if err := tx.Clauses(clauseUpdateLock()).
		Where("project_id = ?", projectID).
		First(&ad).Error; err != nil {
		return nil, err
	}

	ad.ClientFunds += d.ClientFunds
	ad.VendorPaid += d.VendorPaid
	ad.AdminBalance += d.AdminBalance
	ad.RetentionHeld += d.RetentionHeld
	ad.FeeEarned += d.FeeEarned

	if ad.ClientFunds < 0 {
		return nil, fmt.Errorf("dana client tidak cukup (saldo=%d, butuh=%d)", ad.ClientFunds-d.ClientFunds, -d.ClientFunds)
	}
	if ad.AdminBalance < 0 {
		return nil, fmt.Errorf("saldo escrow tidak cukup (saldo=%d, butuh=%d)", ad.AdminBalance-d.AdminBalance, -d.AdminBalance)
	}
	if ad.RetentionHeld < 0 {
		return nil, fmt.Errorf("saldo retensi tidak cukup (tertahan=%d, butuh=%d)", ad.RetentionHeld-d.RetentionHeld, -d.RetentionHeld)
	}
	if ad.AdminBalance < ad.RetentionHeld {
		return nil, fmt.Errorf("saldo escrow (%d) tidak boleh turun di bawah dana retensi tertahan (%d)", ad.AdminBalance, ad.RetentionHeld)
	}

	if err := tx.Model(&models.AdminData{}).
		Where("id = ?", ad.ID).
		Updates(map[string]any{
			"client_funds":   ad.ClientFunds,
			"vendor_paid":    ad.VendorPaid,
			"admin_balance":  ad.AdminBalance,
			"retention_held": ad.RetentionHeld,
			"fee_earned":     ad.FeeEarned,
		}).Error; err != nil {
		return nil, err
	}
	return &ad, nil
}

// addLog menulis catatan aktivitas append-only. milestoneID nol untuk event
// level proyek (termin, refund).
func addLog(tx *gorm.DB, projectID, milestoneID uint, tipe models.LogTipe, catatan, files string, amount *int64) error {
	entry := models.Log{
		ProjectID:   projectID,
		MilestoneID: milestoneID,
		Tipe:        tipe,
		Tanggal:     time.Now().UTC(),
		Catatan:     catatan,
		Files:       files,
		Amount:      amount,
	}
	return tx.Create(&entry).Error
}

func addRetensiLog(tx *gorm.DB, retensiID uint, tipe models.RetensiLogTipe, catatan, files string) error {
	entry := models.RetensiLog{
		RetensiID: retensiID,
		Tipe:      tipe,
		Tanggal:   time.Now().UTC(),
		Catatan:   catatan,
		Files:     files,
	}
	return tx.Create(&entry).Error
}
