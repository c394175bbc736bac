package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"go-escrow-proyek/models"
	"go-escrow-proyek/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedTermin(t *testing.T, db *gorm.DB, projectID uint, tipe models.TerminType, base int64, status models.TerminStatus) *models.Termin {
	t.Helper()
	fee := base / 100 // fee client 1%
	tr := &models.Termin{
		ProjectID:       projectID,
		Judul:           "Termin Test",
		Type:            tipe,
		BaseAmount:      base,
		FeeClientAmount: fee,
		TotalWithFee:    base + fee,
		Status:          status,
		Urutan:          1,
	}
	require.NoError(t, db.Create(tr).Error)
	return tr
}

func getTermin(t *testing.T, db *gorm.DB, id uint) models.Termin {
	t.Helper()
	var tr models.Termin
	require.NoError(t, db.First(&tr, id).Error)
	return tr
}

func TestTerminRequestDanKonfirmasi(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)
	clientTok := testutil.UserToken(2, "client@test.local", "Client Test")

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	tr := seedTermin(t, db, p.ID, models.TerminMain, 5_000_000, models.TerminUnpaid)

	// client mengajukan
	path := fmt.Sprintf("/api/user/projects/%d/termins/%d/request", p.ID, tr.ID)
	w := testutil.DoRequest(r, http.MethodPost, path, nil, clientTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TerminPendingConfirmation, getTermin(t, db, tr.ID).Status)

	// admin konfirmasi: dana client dan saldo escrow naik sebesar total+fee
	confirm := fmt.Sprintf("/api/admin/projects/%d/termins/%d/confirm", p.ID, tr.ID)
	w = testutil.DoRequest(r, http.MethodPost, confirm, nil, adminTok)
	require.Equal(t, http.StatusOK, w.Code)

	got := getTermin(t, db, tr.ID)
	assert.Equal(t, models.TerminPaid, got.Status)
	assert.NotNil(t, got.PaidAt)

	ad := getAdminData(t, db, p.ID)
	assert.EqualValues(t, 5_050_000, ad.ClientFunds)
	assert.EqualValues(t, 5_050_000, ad.AdminBalance)
}

func TestTerminCancelRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	clientTok := testutil.UserToken(2, "client@test.local", "Client Test")
	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	tr := seedTermin(t, db, p.ID, models.TerminMain, 5_000_000, models.TerminPendingConfirmation)

	path := fmt.Sprintf("/api/user/projects/%d/termins/%d/cancel-request", p.ID, tr.ID)
	w := testutil.DoRequest(r, http.MethodPost, path, nil, clientTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TerminUnpaid, getTermin(t, db, tr.ID).Status)
}

func TestTerminPaidTerminal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)
	clientTok := testutil.UserToken(2, "client@test.local", "Client Test")

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	tr := seedTermin(t, db, p.ID, models.TerminMain, 5_000_000, models.TerminPaid)

	// tidak ada aksi yang bisa menyentuh termin paid
	w := testutil.DoRequest(r, http.MethodPost,
		fmt.Sprintf("/api/user/projects/%d/termins/%d/request", p.ID, tr.ID), nil, clientTok)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutil.DoRequest(r, http.MethodPost,
		fmt.Sprintf("/api/user/projects/%d/termins/%d/cancel-request", p.ID, tr.ID), nil, clientTok)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutil.DoRequest(r, http.MethodPost,
		fmt.Sprintf("/api/admin/projects/%d/termins/%d/confirm", p.ID, tr.ID), nil, adminTok)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, models.TerminPaid, getTermin(t, db, tr.ID).Status)
}

func TestTerminRefundPengurangan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	testutil.SetLedger(t, db, p.ID, 5_000_000, 5_000_000, 0)

	// termin pengurangan: nominal negatif
	red := seedTermin(t, db, p.ID, models.TerminReduction, -2_000_000, models.TerminUnpaid)

	path := fmt.Sprintf("/api/admin/projects/%d/termins/%d/refund", p.ID, red.ID)
	w := testutil.DoRequest(r, http.MethodPost, path, nil, adminTok)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, models.TerminRefunded, getTermin(t, db, red.ID).Status)
	ad := getAdminData(t, db, p.ID)
	assert.EqualValues(t, 5_000_000-2_020_000, ad.ClientFunds)
	assert.EqualValues(t, 5_000_000-2_020_000, ad.AdminBalance)

	// refund kedua ditolak, termin sudah terminal
	w = testutil.DoRequest(r, http.MethodPost, path, nil, adminTok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTerminRefundDanaKurang(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	testutil.SetLedger(t, db, p.ID, 1_000_000, 1_000_000, 0)
	red := seedTermin(t, db, p.ID, models.TerminReduction, -2_000_000, models.TerminUnpaid)

	path := fmt.Sprintf("/api/admin/projects/%d/termins/%d/refund", p.ID, red.ID)
	w := testutil.DoRequest(r, http.MethodPost, path, nil, adminTok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// ledger tidak bergeser dan termin tetap unpaid
	ad := getAdminData(t, db, p.ID)
	assert.EqualValues(t, 1_000_000, ad.ClientFunds)
	assert.Equal(t, models.TerminUnpaid, getTermin(t, db, red.ID).Status)
}

func TestTerminRefundHanyaTipeReduction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	testutil.SetLedger(t, db, p.ID, 5_000_000, 5_000_000, 0)
	tr := seedTermin(t, db, p.ID, models.TerminMain, 2_000_000, models.TerminUnpaid)

	path := fmt.Sprintf("/api/admin/projects/%d/termins/%d/refund", p.ID, tr.ID)
	w := testutil.DoRequest(r, http.MethodPost, path, nil, adminTok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAdminRegenerateTerminsTidakSentuhTerminal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 20_000_000)
	testutil.SeedMilestone(t, db, p.ID, "Pondasi", 50, 10_000_000, models.MilestonePending, 1)
	testutil.SeedMilestone(t, db, p.ID, "Atap", 50, 10_000_000, models.MilestonePending, 2)

	paid := seedTermin(t, db, p.ID, models.TerminMain, 3_000_000, models.TerminPaid)
	unpaid := seedTermin(t, db, p.ID, models.TerminMain, 4_000_000, models.TerminUnpaid)

	path := fmt.Sprintf("/api/admin/projects/%d/termins", p.ID)
	w := testutil.DoRequest(r, http.MethodPut, path, nil, adminTok)
	require.Equal(t, http.StatusOK, w.Code)

	// termin paid tidak disentuh, unpaid lama terganti
	assert.Equal(t, models.TerminPaid, getTermin(t, db, paid.ID).Status)
	var gone int64
	db.Model(&models.Termin{}).Where("id = ?", unpaid.ID).Count(&gone)
	assert.EqualValues(t, 0, gone)

	// satu termin baru per milestone
	var fresh []models.Termin
	require.NoError(t, db.Where("project_id = ? AND type = ? AND status = ?",
		p.ID, models.TerminMain, models.TerminUnpaid).
		Order("urutan ASC").Find(&fresh).Error)
	require.Len(t, fresh, 2)
	assert.Equal(t, "Termin Pondasi", fresh[0].Judul)
	assert.EqualValues(t, 10_000_000, fresh[0].BaseAmount)
}

func TestAdminRegenerateTerminsLewatiMilestoneTambahan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	testutil.SeedMilestone(t, db, p.ID, "Pondasi", 100, 10_000_000, models.MilestonePending, 1)

	// pekerjaan tambahan yang sudah disetujui: milestone tambahan + termin additional
	tambahan := testutil.SeedMilestone(t, db, p.ID, "[Tambahan] Kanopi", 0, 3_000_000, models.MilestonePendingAdditional, 2)
	require.NoError(t, db.Model(&models.Milestone{}).
		Where("id = ?", tambahan.ID).
		Update("is_additional_work", true).Error)
	addTermin := seedTermin(t, db, p.ID, models.TerminAdditional, 3_000_000, models.TerminUnpaid)

	path := fmt.Sprintf("/api/admin/projects/%d/termins", p.ID)
	w := testutil.DoRequest(r, http.MethodPut, path, nil, adminTok)
	require.Equal(t, http.StatusOK, w.Code)

	// termin additional tetap satu-satunya tagihan untuk pekerjaan tambahan
	assert.Equal(t, models.TerminUnpaid, getTermin(t, db, addTermin.ID).Status)
	var tagihanTambahan int64
	db.Model(&models.Termin{}).
		Where("project_id = ? AND judul LIKE ?", p.ID, "%Kanopi%").
		Count(&tagihanTambahan)
	assert.EqualValues(t, 1, tagihanTambahan)

	// hanya milestone reguler yang dapat termin utama baru
	var fresh []models.Termin
	require.NoError(t, db.Where("project_id = ? AND type = ?", p.ID, models.TerminMain).
		Find(&fresh).Error)
	require.Len(t, fresh, 1)
	assert.Equal(t, "Termin Pondasi", fresh[0].Judul)

	// total tagihan hidup tidak melebihi nilai kontrak + tambahan
	var totalTagihan int64
	db.Model(&models.Termin{}).
		Where("project_id = ? AND status <> ?", p.ID, models.TerminRefunded).
		Select("COALESCE(SUM(base_amount), 0)").Scan(&totalTagihan)
	assert.EqualValues(t, 13_000_000, totalTagihan)
}

func TestAdminRegenerateTerminsDitolakSaatMenungguKonfirmasi(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	testutil.SeedMilestone(t, db, p.ID, "Pondasi", 100, 10_000_000, models.MilestonePending, 1)
	menunggu := seedTermin(t, db, p.ID, models.TerminMain, 10_000_000, models.TerminPendingConfirmation)

	path := fmt.Sprintf("/api/admin/projects/%d/termins", p.ID)
	w := testutil.DoRequest(r, http.MethodPut, path, nil, adminTok)
	require.Equal(t, http.StatusConflict, w.Code)

	// tidak ada termin yang lahir atau berubah
	assert.Equal(t, models.TerminPendingConfirmation, getTermin(t, db, menunggu.ID).Status)
	var jumlah int64
	db.Model(&models.Termin{}).Where("project_id = ?", p.ID).Count(&jumlah)
	assert.EqualValues(t, 1, jumlah)
}

func TestAdminUpdateTerminsHanyaUnpaid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	unpaid := seedTermin(t, db, p.ID, models.TerminMain, 4_000_000, models.TerminUnpaid)
	paid := seedTermin(t, db, p.ID, models.TerminMain, 3_000_000, models.TerminPaid)

	path := fmt.Sprintf("/api/admin/projects/%d/termins", p.ID)

	newAmount := int64(6_000_000)
	w := testutil.DoRequest(r, http.MethodPatch, path, map[string]interface{}{
		"termins": []map[string]interface{}{
			{"id": unpaid.ID, "judul": "Termin Revisi", "base_amount": newAmount},
		},
	}, adminTok)
	require.Equal(t, http.StatusOK, w.Code)

	got := getTermin(t, db, unpaid.ID)
	assert.Equal(t, "Termin Revisi", got.Judul)
	assert.EqualValues(t, 6_000_000, got.BaseAmount)
	assert.EqualValues(t, 60_000, got.FeeClientAmount)
	assert.EqualValues(t, 6_060_000, got.TotalWithFee)

	// menyentuh termin paid menolak seluruh batch
	w = testutil.DoRequest(r, http.MethodPatch, path, map[string]interface{}{
		"termins": []map[string]interface{}{
			{"id": paid.ID, "judul": "Coba Edit"},
		},
	}, adminTok)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Termin Test", getTermin(t, db, paid.ID).Judul)
}
