package controllers_test

import (
	"net/http"
	"testing"

	"go-escrow-proyek/models"
	"go-escrow-proyek/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminListFinanceManagerTerpotongSebelumPaginasi(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	manager := testutil.SeedAdmin(t, db, "manager1", models.RoleManager)
	managerTok := testutil.AdminToken(manager.ID, manager.Username, manager.Role)

	p1 := testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)
	testutil.SeedProject(t, db, "client2@test.local", "vendor2@test.local", 20_000_000)

	// manager hanya boleh melihat p1, yang di urutan default (id DESC) ada di
	// halaman kedua; filter allowlist harus masuk ke query, bukan ke hasil
	require.NoError(t, db.Create(&models.ManagerProjectAccess{
		AdminID:   manager.ID,
		ProjectID: p1.ID,
	}).Error)

	w := testutil.DoRequest(r, http.MethodGet, "/api/admin/finance?page_size=1", nil, managerTok)
	require.Equal(t, http.StatusOK, w.Code)

	body := testutil.ParseResponse(w)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["total"])

	rows := data["rows"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.EqualValues(t, p1.ID, row["project_id"])
}

func TestAdminListFinanceManagerTanpaAksesKosong(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	manager := testutil.SeedAdmin(t, db, "manager1", models.RoleManager)
	managerTok := testutil.AdminToken(manager.ID, manager.Username, manager.Role)

	testutil.SeedProject(t, db, "client@test.local", "vendor@test.local", 10_000_000)

	w := testutil.DoRequest(r, http.MethodGet, "/api/admin/finance", nil, managerTok)
	require.Equal(t, http.StatusOK, w.Code)

	body := testutil.ParseResponse(w)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 0, data["total"])
}
