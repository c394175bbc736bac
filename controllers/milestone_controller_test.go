package controllers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"go-escrow-proyek/models"
	"go-escrow-proyek/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func getAdminData(t *testing.T, db *gorm.DB, projectID uint) models.AdminData {
	t.Helper()
	var ad models.AdminData
	require.NoError(t, db.Where("project_id = ?", projectID).First(&ad).Error)
	return ad
}

func getMilestone(t *testing.T, db *gorm.DB, id uint) models.Milestone {
	t.Helper()
	var ms models.Milestone
	require.NoError(t, db.First(&ms, id).Error)
	return ms
}

func TestMilestoneStartGerbangDana(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	ms := testutil.SeedMilestone(t, db, p.ID, "Pondasi", 10, 1_000_000, models.MilestonePending, 1)
	vendorTok := testutil.UserToken(1, "vendor@test.local", "Vendor Test")

	path := fmt.Sprintf("/api/user/projects/%d/milestones/%d/start", p.ID, ms.ID)

	// dana pas harga milestone saja, belum menutup buffer 10%
	testutil.SetLedger(t, db, p.ID, 1_000_000, 1_000_000, 0)
	w := testutil.DoRequest(r, http.MethodPost, path, nil, vendorTok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := testutil.ParseResponse(w)
	assert.EqualValues(t, 1_100_000, body["required"])
	assert.EqualValues(t, 100_000, body["shortage"])
	assert.Equal(t, models.MilestonePending, getMilestone(t, db, ms.ID).Status)

	// dana 110% cukup
	testutil.SetLedger(t, db, p.ID, 1_100_000, 1_100_000, 0)
	w = testutil.DoRequest(r, http.MethodPost, path, nil, vendorTok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.MilestoneActive, getMilestone(t, db, ms.ID).Status)
}

func TestMilestoneStartStatusSalahBukan422(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	ms := testutil.SeedMilestone(t, db, p.ID, "Pondasi", 10, 1_000_000, models.MilestoneCompleted, 1)
	vendorTok := testutil.UserToken(1, "vendor@test.local", "Vendor Test")

	// dana kurang SEKALIGUS status salah: yang dilaporkan tetap konflik status
	testutil.SetLedger(t, db, p.ID, 0, 0, 0)
	path := fmt.Sprintf("/api/user/projects/%d/milestones/%d/start", p.ID, ms.ID)
	w := testutil.DoRequest(r, http.MethodPost, path, nil, vendorTok)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMilestoneStartHanyaVendor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	ms := testutil.SeedMilestone(t, db, p.ID, "Pondasi", 10, 1_000_000, models.MilestonePending, 1)
	testutil.SetLedger(t, db, p.ID, 2_000_000, 2_000_000, 0)

	clientTok := testutil.UserToken(2, "client@test.local", "Client Test")
	path := fmt.Sprintf("/api/user/projects/%d/milestones/%d/start", p.ID, ms.ID)
	w := testutil.DoRequest(r, http.MethodPost, path, nil, clientTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMilestoneSiklusLengkapSampaiBayar(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)
	vendorTok := testutil.UserToken(1, "vendor@test.local", "Vendor Test")
	clientTok := testutil.UserToken(2, "client@test.local", "Client Test")

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	ms := testutil.SeedMilestone(t, db, p.ID, "Pondasi", 100, 10_000_000, models.MilestonePending, 1)
	testutil.SetLedger(t, db, p.ID, 11_000_000, 11_000_000, 0)

	// retensi 5% sudah disepakati sebelum pembayaran
	require.NoError(t, db.Model(&models.Retensi{}).
		Where("project_id = ?", p.ID).
		Updates(map[string]interface{}{
			"status": models.RetensiAgreed, "percent": 5.0, "days": 14, "value": 500_000,
		}).Error)

	base := fmt.Sprintf("/api/user/projects/%d/milestones/%d", p.ID, ms.ID)

	w := testutil.DoRequest(r, http.MethodPost, base+"/start", nil, vendorTok)
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(r, http.MethodPost, base+"/daily",
		map[string]interface{}{"catatan": "galian selesai"}, vendorTok)
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(r, http.MethodPost, base+"/finish", nil, vendorTok)
	require.Equal(t, http.StatusOK, w.Code)

	// komplain lalu perbaikan lalu approve
	w = testutil.DoRequest(r, http.MethodPost, base+"/complain",
		map[string]interface{}{"catatan": "plester retak"}, clientTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.MilestoneComplaint, getMilestone(t, db, ms.ID).Status)

	w = testutil.DoRequest(r, http.MethodPost, base+"/fix-done", nil, vendorTok)
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(r, http.MethodPost, base+"/approve", nil, clientTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.MilestoneWaitingAdmin, getMilestone(t, db, ms.ID).Status)

	// admin konfirmasi pembayaran
	confirmPath := fmt.Sprintf("/api/admin/projects/%d/milestones/%d/confirm-payment", p.ID, ms.ID)
	w = testutil.DoRequest(r, http.MethodPost, confirmPath, nil, adminTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.MilestoneCompleted, getMilestone(t, db, ms.ID).Status)

	// gross 10jt, fee vendor 2% = 200rb, retensi 5% = 500rb, net = 9.3jt
	ad := getAdminData(t, db, p.ID)
	assert.EqualValues(t, 9_300_000, ad.VendorPaid)
	assert.EqualValues(t, 11_000_000-9_300_000, ad.AdminBalance)
	assert.EqualValues(t, 500_000, ad.RetentionHeld)
	assert.EqualValues(t, 200_000, ad.FeeEarned)

	// semua milestone selesai + retensi agreed -> countdown jalan
	var ret models.Retensi
	require.NoError(t, db.Where("project_id = ?", p.ID).First(&ret).Error)
	assert.Equal(t, models.RetensiCountdown, ret.Status)
	assert.NotNil(t, ret.StartDate)
	assert.NotNil(t, ret.EndDate)
	assert.Equal(t, 14, ret.RemainingDays)
}

func TestMilestoneConfirmPaymentDuaKaliTidakDobel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	ms := testutil.SeedMilestone(t, db, p.ID, "Pondasi", 50, 5_000_000, models.MilestoneWaitingAdmin, 1)
	testutil.SetLedger(t, db, p.ID, 6_000_000, 6_000_000, 0)

	path := fmt.Sprintf("/api/admin/projects/%d/milestones/%d/confirm-payment", p.ID, ms.ID)

	w := testutil.DoRequest(r, http.MethodPost, path, nil, adminTok)
	require.Equal(t, http.StatusOK, w.Code)
	first := getAdminData(t, db, p.ID)

	// konfirmasi kedua ditolak dan ledger tidak bergeser
	w = testutil.DoRequest(r, http.MethodPost, path, nil, adminTok)
	assert.Equal(t, http.StatusConflict, w.Code)
	second := getAdminData(t, db, p.ID)
	assert.Equal(t, first.VendorPaid, second.VendorPaid)
	assert.Equal(t, first.AdminBalance, second.AdminBalance)
	assert.Equal(t, first.FeeEarned, second.FeeEarned)
}

func TestMilestoneConfirmPaymentSaldoKurang(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	ms := testutil.SeedMilestone(t, db, p.ID, "Pondasi", 50, 5_000_000, models.MilestoneWaitingAdmin, 1)
	// escrow kosong, pembayaran akan membuat saldo negatif
	testutil.SetLedger(t, db, p.ID, 0, 0, 0)

	path := fmt.Sprintf("/api/admin/projects/%d/milestones/%d/confirm-payment", p.ID, ms.ID)
	w := testutil.DoRequest(r, http.MethodPost, path, nil, adminTok)
	assert.NotEqual(t, http.StatusOK, w.Code)

	// transaksi batal utuh: status milestone ikut kembali
	assert.Equal(t, models.MilestoneWaitingAdmin, getMilestone(t, db, ms.ID).Status)
	ad := getAdminData(t, db, p.ID)
	assert.EqualValues(t, 0, ad.VendorPaid)
}

func TestAdminCreateMilestoneBatasPersentase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	testutil.SeedMilestone(t, db, p.ID, "Pondasi", 60, 6_000_000, models.MilestonePending, 1)

	path := fmt.Sprintf("/api/admin/projects/%d/milestones", p.ID)

	// 60 + 50 > 100 ditolak
	w := testutil.DoRequest(r, http.MethodPost, path,
		map[string]interface{}{"judul": "Atap", "persentase": 50}, adminTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 60 + 40 = 100 diterima, harga dari persentase dan termin utama ikut dibuat
	w = testutil.DoRequest(r, http.MethodPost, path,
		map[string]interface{}{"judul": "Atap", "persentase": 40}, adminTok)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Milestone
	require.NoError(t, db.Where("project_id = ? AND judul = ?", p.ID, "Atap").First(&created).Error)
	assert.EqualValues(t, 4_000_000, created.Price)
	assert.Equal(t, created.Price, created.OriginalPrice)

	var termin models.Termin
	require.NoError(t, db.Where("project_id = ? AND judul = ?", p.ID, "Termin Atap").First(&termin).Error)
	assert.Equal(t, models.TerminMain, termin.Type)
	assert.EqualValues(t, 4_000_000, termin.BaseAmount)
}

func TestAdminCreateMilestoneHanyaRoleAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	mgr := testutil.SeedAdmin(t, db, "mgr1", models.RoleManager)
	mgrTok := testutil.AdminToken(mgr.ID, mgr.Username, mgr.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)

	path := fmt.Sprintf("/api/admin/projects/%d/milestones", p.ID)
	w := testutil.DoRequest(r, http.MethodPost, path,
		map[string]interface{}{"judul": "Atap", "persentase": 40}, mgrTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAddLogCommentTidakMengubahStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	ms := testutil.SeedMilestone(t, db, p.ID, "Pondasi", 10, 1_000_000, models.MilestoneActive, 1)

	entry := models.Log{ProjectID: p.ID, MilestoneID: ms.ID, Tipe: models.LogDaily, Tanggal: time.Now(), Catatan: "laporan"}
	require.NoError(t, db.Create(&entry).Error)

	clientTok := testutil.UserToken(2, "client@test.local", "Client Test")
	path := fmt.Sprintf("/api/user/projects/%d/logs/%d/comments", p.ID, entry.ID)
	w := testutil.DoRequest(r, http.MethodPost, path,
		map[string]interface{}{"text": "lanjutkan"}, clientTok)
	require.Equal(t, http.StatusCreated, w.Code)

	var comment models.Comment
	require.NoError(t, db.Where("log_id = ?", entry.ID).First(&comment).Error)
	assert.Equal(t, "Client Test", comment.Author)
	assert.Equal(t, models.MilestoneActive, getMilestone(t, db, ms.ID).Status)
}
