package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"go-escrow-proyek/models"
	"go-escrow-proyek/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminCreateWithdrawal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	testutil.SetLedger(t, db, p.ID, 5_000_000, 2_000_000, 500_000)

	path := fmt.Sprintf("/api/admin/projects/%d/withdrawals", p.ID)

	// saldo bebas = 2jt - 500rb retensi = 1.5jt
	w := testutil.DoRequest(r, http.MethodPost, path,
		map[string]interface{}{"amount": 1_500_000, "note": "fee bulan ini"}, adminTok)
	require.Equal(t, http.StatusOK, w.Code)

	ad := getAdminData(t, db, p.ID)
	assert.EqualValues(t, 500_000, ad.AdminBalance)
	assert.EqualValues(t, 500_000, ad.RetentionHeld)

	var row models.Withdrawal
	require.NoError(t, db.Where("project_id = ?", p.ID).First(&row).Error)
	assert.EqualValues(t, 1_500_000, row.Amount)
	assert.Equal(t, admin.ID, row.AdminID)
}

func TestAdminCreateWithdrawalTidakBolehSentuhRetensi(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	testutil.SetLedger(t, db, p.ID, 5_000_000, 2_000_000, 500_000)

	path := fmt.Sprintf("/api/admin/projects/%d/withdrawals", p.ID)

	// menarik 1.6jt akan menurunkan saldo di bawah dana retensi tertahan
	w := testutil.DoRequest(r, http.MethodPost, path,
		map[string]interface{}{"amount": 1_600_000}, adminTok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// saldo tidak bergeser dan tidak ada riwayat tercatat
	ad := getAdminData(t, db, p.ID)
	assert.EqualValues(t, 2_000_000, ad.AdminBalance)
	var count int64
	db.Model(&models.Withdrawal{}).Where("project_id = ?", p.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestAdminListWithdrawals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	p := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	require.NoError(t, db.Create(&models.Withdrawal{ProjectID: p.ID, Amount: 100_000, AdminID: admin.ID}).Error)
	require.NoError(t, db.Create(&models.Withdrawal{ProjectID: p.ID, Amount: 200_000, AdminID: admin.ID}).Error)

	path := fmt.Sprintf("/api/admin/projects/%d/withdrawals", p.ID)
	w := testutil.DoRequest(r, http.MethodGet, path, nil, adminTok)
	require.Equal(t, http.StatusOK, w.Code)

	body := testutil.ParseResponse(w)
	rows, ok := body["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, rows, 2)
}
