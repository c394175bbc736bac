// utils/financial.go
package utils

import (
	"fmt"
	"math"
)

// Fee default platform (persen). Bisa dioverride per proyek.
const (
	DefaultFeeClientPercent = 1.0
	DefaultFeeVendorPercent = 2.0
)

// PercentOf menghitung persen dari nominal Rupiah utuh, dibulatkan ke Rupiah terdekat.
func PercentOf(amount int64, percent float64) int64 {
	return int64(math.Round(float64(amount) * percent / 100))
}

// MilestonePaymentBreakdown = rincian satu pembayaran milestone.
// Gross dilihat client (plus fee client), vendor menerima net setelah
// fee vendor dan potongan retensi.
type MilestonePaymentBreakdown struct {
	Gross              int64 `json:"gross"`
	ClientFeeAmount    int64 `json:"client_fee_amount"`
	TotalWithClientFee int64 `json:"total_with_client_fee"`
	VendorFeeAmount    int64 `json:"vendor_fee_amount"`
	RetentionAmount    int64 `json:"retention_amount"`
	VendorNetAmount    int64 `json:"vendor_net_amount"`
}

// CalculateMilestonePayment menghitung rincian pembayaran milestone.
// retentionPercent 0 jika retensi belum disepakati / sudah cair.
// VendorNetAmount bisa negatif hanya kalau total persen > 100 (salah konfigurasi
// pemanggil, tidak dijaga di sini).
func CalculateMilestonePayment(gross int64, retentionPercent, feeClientPercent, feeVendorPercent float64) MilestonePaymentBreakdown {
	clientFee := PercentOf(gross, feeClientPercent)
	vendorFee := PercentOf(gross, feeVendorPercent)
	retention := PercentOf(gross, retentionPercent)
	return MilestonePaymentBreakdown{
		Gross:              gross,
		ClientFeeAmount:    clientFee,
		TotalWithClientFee: gross + clientFee,
		VendorFeeAmount:    vendorFee,
		RetentionAmount:    retention,
		VendorNetAmount:    gross - vendorFee - retention,
	}
}

// TerminBreakdown = rincian tagihan termin. Nominal bertanda: termin pengurangan
// memakai baseAmount negatif dan fee ikut negatif (sign-preserving).
type TerminBreakdown struct {
	BaseAmount      int64 `json:"base_amount"`
	FeeClientAmount int64 `json:"fee_client_amount"`
	TotalWithFee    int64 `json:"total_with_fee"`
}

func CalculateTerminAmount(baseAmount int64, feeClientPercent float64) TerminBreakdown {
	fee := PercentOf(baseAmount, feeClientPercent)
	return TerminBreakdown{
		BaseAmount:      baseAmount,
		FeeClientAmount: fee,
		TotalWithFee:    baseAmount + fee,
	}
}

// FundsCheck = hasil cek kecukupan dana client sebelum milestone dimulai.
type FundsCheck struct {
	Sufficient bool   `json:"sufficient"`
	Required   int64  `json:"required"`
	Shortage   int64  `json:"shortage"`
	Warning    string `json:"warning,omitempty"`
}

// CheckClientFundsSufficient = gerbang lunak sebelum vendor memulai milestone:
// dana client di escrow minimal 110% dari harga milestone (buffer 10%).
// Tidak dipakai saat konfirmasi pembayaran.
func CheckClientFundsSufficient(clientFunds, milestonePrice int64) FundsCheck {
	required := milestonePrice + PercentOf(milestonePrice, 10)
	if clientFunds >= required {
		return FundsCheck{Sufficient: true, Required: required}
	}
	shortage := required - clientFunds
	return FundsCheck{
		Sufficient: false,
		Required:   required,
		Shortage:   shortage,
		Warning: fmt.Sprintf(
			"Dana client belum cukup: butuh %d (110%% dari %d), tersedia %d, kurang %d",
			required, milestonePrice, clientFunds, shortage),
	}
}

// DefaultTermin = satu baris termin hasil generate otomatis.
type DefaultTermin struct {
	Judul string `json:"judul"`
	TerminBreakdown
}

// Ambang pembagian termin default (Rupiah).
const (
	terminTier1Max = 15_000_000
	terminTier2Max = 50_000_000
)

// GenerateDefaultTermins membagi nilai kontrak jadi termin utama:
// <=15jt satu termin 100%; <=50jt dua termin 50/50; di atasnya tiga termin
// 40/30/30. Sisa pembulatan menempel di termin terakhir supaya totalnya pas.
func GenerateDefaultTermins(budget int64, feeClientPercent float64) []DefaultTermin {
	var parts []int64
	switch {
	case budget <= terminTier1Max:
		parts = []int64{budget}
	case budget <= terminTier2Max:
		half := PercentOf(budget, 50)
		parts = []int64{half, budget - half}
	default:
		p1 := PercentOf(budget, 40)
		p2 := PercentOf(budget, 30)
		parts = []int64{p1, p2, budget - p1 - p2}
	}

	out := make([]DefaultTermin, 0, len(parts))
	for i, p := range parts {
		out = append(out, DefaultTermin{
			Judul:           fmt.Sprintf("Termin %d", i+1),
			TerminBreakdown: CalculateTerminAmount(p, feeClientPercent),
		})
	}
	return out
}
