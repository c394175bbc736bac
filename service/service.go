package service

import (
	"context"
	"errors"
	"fmt"

	"go-escrow-proyek/models"
	"go-escrow-proyek/utils"

	"gorm.io/gorm"
)

// ProjectFinanceRow = satu baris rekap keuangan proyek untuk daftar admin.
type ProjectFinanceRow struct {
	ProjectID     uint   `json:"project_id"`
	Kode          string `json:"kode"`
	Judul         string `json:"judul"`
	Status        string `json:"status"`
	BaseTotal     int64  `json:"base_total"`
	ClientFunds   int64  `json:"client_funds"`
	VendorPaid    int64  `json:"vendor_paid"`
	AdminBalance  int64  `json:"admin_balance"`
	RetentionHeld int64  `json:"retention_held"`
	FeeEarned     int64  `json:"fee_earned"`
}

// FinanceSummary = rekap satu proyek: snapshot buku escrow + progres termin
// dan milestone.
type FinanceSummary struct {
	Ledger ProjectFinanceRow `json:"ledger"`

	TerminPaidTotal   int64 `json:"termin_paid_total"`
	TerminUnpaidTotal int64 `json:"termin_unpaid_total"`
	RefundedTotal     int64 `json:"refunded_total"`

	MilestoneTotal     int64 `json:"milestone_total"`
	MilestoneCompleted int64 `json:"milestone_completed"`
}

type FinanceFilter struct {
	Query    string // cari di kode/judul
	Status   string
	Page     int // mulai dari 1
	PageSize int
	SortBy   string // "judul","-judul","balance","-balance"

	// nil = semua proyek; non-nil = batasi ke id ini (allowlist manager),
	// dipakai sebelum Count supaya total dan halaman ikut terpotong
	AllowedProjectIDs []uint
}

// PaymentView = rincian pembayaran satu milestone yang sudah dibentuk per
// peran: vendor melihat net, client melihat gross+fee, admin melihat semua.
// Kalkulatornya sendiri tidak tahu peran.
type PaymentView struct {
	MilestoneID uint   `json:"milestone_id"`
	Judul       string `json:"judul"`
	Role        string `json:"role"`

	Amount int64            `json:"amount"`
	Detail map[string]int64 `json:"detail"`
}

type Service interface {
	FinanceRows(ctx context.Context, f FinanceFilter) ([]ProjectFinanceRow, int64, error)
	ProjectFinance(ctx context.Context, projectID uint) (FinanceSummary, error)
	MilestonePaymentView(ctx context.Context, projectID, milestoneID uint, role string) (PaymentView, error)
}

type service struct{ db *gorm.DB }

func NewService(db *gorm.DB) Service { return &service{db: db} }

const financeSelect = `
	projects.id AS project_id,
	projects.kode,
	projects.judul,
	projects.status,
	projects.base_total,
	ad.client_funds,
	ad.vendor_paid,
	ad.admin_balance,
	ad.retention_held,
	ad.fee_earned`

func (s *service) FinanceRows(ctx context.Context, f FinanceFilter) ([]ProjectFinanceRow, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 500 {
		f.PageSize = 50
	}

	q := s.db.WithContext(ctx).
		Table("projects").
		Select(financeSelect).
		Joins("INNER JOIN admin_data ad ON ad.project_id = projects.id")

	if f.Query != "" {
		like := "%" + f.Query + "%"
		q = q.Where("projects.kode ILIKE ? OR projects.judul ILIKE ?", like, like)
	}
	if f.Status != "" {
		q = q.Where("projects.status = ?", f.Status)
	}
	if f.AllowedProjectIDs != nil {
		q = q.Where("projects.id IN ?", f.AllowedProjectIDs)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch f.SortBy {
	case "judul":
		q = q.Order("projects.judul ASC")
	case "-judul":
		q = q.Order("projects.judul DESC")
	case "balance":
		q = q.Order("ad.admin_balance ASC")
	case "-balance":
		q = q.Order("ad.admin_balance DESC")
	default:
		q = q.Order("projects.id DESC")
	}

	offset := (f.Page - 1) * f.PageSize
	var rows []ProjectFinanceRow
	if err := q.Offset(offset).Limit(f.PageSize).Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *service) ProjectFinance(ctx context.Context, projectID uint) (FinanceSummary, error) {
	var out FinanceSummary

	if err := s.db.WithContext(ctx).
		Table("projects").
		Select(financeSelect).
		Joins("INNER JOIN admin_data ad ON ad.project_id = projects.id").
		Where("projects.id = ?", projectID).
		Scan(&out.Ledger).Error; err != nil {
		return FinanceSummary{}, err
	}
	if out.Ledger.ProjectID == 0 {
		return FinanceSummary{}, fmt.Errorf("proyek %d tidak ditemukan", projectID)
	}

	type sumRow struct {
		Status string
		Total  int64
	}
	var sums []sumRow
	if err := s.db.WithContext(ctx).
		Model(&models.Termin{}).
		Select("status, COALESCE(SUM(total_with_fee), 0) AS total").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&sums).Error; err != nil {
		return FinanceSummary{}, err
	}
	for _, r := range sums {
		switch models.TerminStatus(r.Status) {
		case models.TerminPaid:
			out.TerminPaidTotal = r.Total
		case models.TerminUnpaid, models.TerminPendingConfirmation:
			out.TerminUnpaidTotal += r.Total
		case models.TerminRefunded:
			out.RefundedTotal = -r.Total
		}
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Milestone{}).
		Where("project_id = ?", projectID).
		Count(&out.MilestoneTotal).Error; err != nil {
		return FinanceSummary{}, err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Milestone{}).
		Where("project_id = ? AND status = ?", projectID, models.MilestoneCompleted).
		Count(&out.MilestoneCompleted).Error; err != nil {
		return FinanceSummary{}, err
	}

	return out, nil
}

func (s *service) MilestonePaymentView(ctx context.Context, projectID, milestoneID uint, role string) (PaymentView, error) {
	var p models.Project
	if err := s.db.WithContext(ctx).First(&p, projectID).Error; err != nil {
		return PaymentView{}, err
	}
	var ms models.Milestone
	if err := s.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", milestoneID, projectID).
		First(&ms).Error; err != nil {
		return PaymentView{}, err
	}

	var ret models.Retensi
	retentionPercent := 0.0
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		First(&ret).Error; err == nil && ret.IsActive() {
		retentionPercent = ret.Percent
	}

	bd := utils.CalculateMilestonePayment(ms.Price, retentionPercent, p.FeeClientPercent, p.FeeVendorPercent)

	view := PaymentView{MilestoneID: ms.ID, Judul: ms.Judul, Role: role}
	switch role {
	case "vendor":
		view.Amount = bd.VendorNetAmount
		view.Detail = map[string]int64{
			"gross":             bd.Gross,
			"vendor_fee_amount": bd.VendorFeeAmount,
			"retention_amount":  bd.RetentionAmount,
			"vendor_net_amount": bd.VendorNetAmount,
		}
	case "client":
		view.Amount = bd.TotalWithClientFee
		view.Detail = map[string]int64{
			"gross":                 bd.Gross,
			"client_fee_amount":     bd.ClientFeeAmount,
			"total_with_client_fee": bd.TotalWithClientFee,
		}
	case "admin", "manager":
		view.Amount = bd.Gross
		view.Detail = map[string]int64{
			"gross":                 bd.Gross,
			"client_fee_amount":     bd.ClientFeeAmount,
			"total_with_client_fee": bd.TotalWithClientFee,
			"vendor_fee_amount":     bd.VendorFeeAmount,
			"retention_amount":      bd.RetentionAmount,
			"vendor_net_amount":     bd.VendorNetAmount,
		}
	default:
		return PaymentView{}, errors.New("role tidak dikenal")
	}
	return view, nil
}
