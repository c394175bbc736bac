package controllers_test

import (
	"net/http"
	"testing"

	"go-escrow-proyek/models"
	"go-escrow-proyek/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRegisterLoginProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()
	_ = db

	w := testutil.DoRequest(r, http.MethodPost, "/api/admin/register", map[string]interface{}{
		"username": "admin1", "full_name": "Admin Satu", "password": "rahasia123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	// username ganda ditolak
	w = testutil.DoRequest(r, http.MethodPost, "/api/admin/register", map[string]interface{}{
		"username": "admin1", "full_name": "Kembaran", "password": "rahasia123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// role ngawur ditolak
	w = testutil.DoRequest(r, http.MethodPost, "/api/admin/register", map[string]interface{}{
		"username": "aneh", "full_name": "Aneh", "password": "rahasia123", "role": "superuser",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// login salah password
	w = testutil.DoRequest(r, http.MethodPost, "/api/admin/login", map[string]interface{}{
		"username": "admin1", "password": "salah",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// login benar, token bisa dipakai buka profile
	w = testutil.DoRequest(r, http.MethodPost, "/api/admin/login", map[string]interface{}{
		"username": "admin1", "password": "rahasia123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := testutil.ParseResponse(w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	w = testutil.DoRequest(r, http.MethodGet, "/api/admin/profile", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	// tanpa token ditolak
	w = testutil.DoRequest(r, http.MethodGet, "/api/admin/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminChangePassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	tok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	// password lama salah
	w := testutil.DoRequest(r, http.MethodPut, "/api/admin/profile/password", map[string]interface{}{
		"old_password": "ngawur", "new_password": "barubanget",
	}, tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.DoRequest(r, http.MethodPut, "/api/admin/profile/password", map[string]interface{}{
		"old_password": "rahasia123", "new_password": "barubanget",
	}, tok)
	require.Equal(t, http.StatusOK, w.Code)

	// login dengan password baru
	w = testutil.DoRequest(r, http.MethodPost, "/api/admin/login", map[string]interface{}{
		"username": "admin1", "password": "barubanget",
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserRegisterLoginEmailDinormalisasi(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	w := testutil.DoRequest(r, http.MethodPost, "/api/user/register", map[string]interface{}{
		"email": "  Client@Test.Local ", "full_name": "Client Test", "password": "rahasia123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var u models.User
	require.NoError(t, db.First(&u).Error)
	assert.Equal(t, "client@test.local", u.Email)

	// login pakai kapitalisasi lain tetap masuk
	w = testutil.DoRequest(r, http.MethodPost, "/api/user/login", map[string]interface{}{
		"email": "CLIENT@test.local", "password": "rahasia123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := testutil.ParseResponse(w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	w = testutil.DoRequest(r, http.MethodGet, "/api/user/profile", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTokenAdminTidakBerlakuDiGrupUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := testutil.SetupRouter()

	admin := testutil.SeedAdmin(t, db, "admin1", models.RoleAdmin)
	adminTok := testutil.AdminToken(admin.ID, admin.Username, admin.Role)

	// secret admin dan user terpisah: token admin ditolak middleware user
	w := testutil.DoRequest(r, http.MethodGet, "/api/user/profile", nil, adminTok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
