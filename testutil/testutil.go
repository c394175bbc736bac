package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"go-escrow-proyek/config"
	"go-escrow-proyek/models"
	"go-escrow-proyek/routes"
	"go-escrow-proyek/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const TestSchema = "test_escrow"

// projectRoot returns the project root directory by looking for go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

// SetupTestDB membuka koneksi Postgres dengan schema terisolasi per test.
// Schema di-drop otomatis saat test selesai. config.DB juga ditunjuk ke
// koneksi test supaya controller yang memakai global-nya ikut terisolasi.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "12345")
	dbname := getEnv("DB_NAME", "escrow_proyek_test")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Gagal konek database untuk setup schema: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// search_path di DSN supaya semua koneksi pool memakai schema test
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Gagal konek database test: %v", err)
	}

	err = db.AutoMigrate(
		&models.Admin{},
		&models.ManagerProjectAccess{},
		&models.User{},
		&models.Project{},
		&models.AdminData{},
		&models.Withdrawal{},
		&models.Milestone{},
		&models.Termin{},
		&models.Retensi{},
		&models.RetensiLog{},
		&models.AdditionalWork{},
		&models.ChangeRequest{},
		&models.Log{},
		&models.Comment{},
	)
	if err != nil {
		t.Fatalf("Gagal migrate tabel test: %v", err)
	}

	prevDB := config.DB
	config.DB = db

	t.Cleanup(func() {
		config.DB = prevDB
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			sqlClean, _ := cleanDB.DB()
			if sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupRouter membuat gin router test dengan seluruh route aplikasi terpasang.
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r)
	return r
}

// AdminToken membuat token admin valid untuk test.
func AdminToken(adminID uint, username string, role models.AdminRole) string {
	tok, _ := utils.GenerateAdminToken(adminID, username, string(role), 24*time.Hour)
	return tok
}

// UserToken membuat token user (client/vendor) valid untuk test.
func UserToken(userID uint, email, nama string) string {
	tok, _ := utils.GenerateUserToken(userID, email, nama, 24*time.Hour)
	return tok
}

// DoRequest menjalankan satu request HTTP terhadap router test.
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse membaca body JSON response menjadi map.
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedAdmin membuat admin aktif (role bebas) langsung di database.
func SeedAdmin(t *testing.T, db *gorm.DB, username string, role models.AdminRole) *models.Admin {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("rahasia123"), bcrypt.DefaultCost)
	a := &models.Admin{
		Username:     username,
		FullName:     "Admin " + username,
		Email:        username + "@test.local",
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("Gagal seed admin: %v", err)
	}
	return a
}

// SeedUser membuat user pihak proyek langsung di database.
func SeedUser(t *testing.T, db *gorm.DB, email, nama string) *models.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("rahasia123"), bcrypt.DefaultCost)
	u := &models.User{
		Email:        email,
		FullName:     nama,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("Gagal seed user: %v", err)
	}
	return u
}

// SeedProject membuat proyek minimal (proyek + buku escrow + retensi none)
// tanpa lewat API, untuk test yang butuh kontrol penuh atas milestone/termin.
func SeedProject(t *testing.T, db *gorm.DB, clientEmail, vendorEmail string, baseTotal int64) *models.Project {
	t.Helper()
	p := &models.Project{
		Kode:             utils.GenProjectCode(time.Now()),
		Judul:            "Proyek Test",
		ClientName:       "Client Test",
		ClientEmail:      clientEmail,
		VendorName:       "Vendor Test",
		VendorEmail:      vendorEmail,
		BaseTotal:        baseTotal,
		FeeClientPercent: utils.DefaultFeeClientPercent,
		FeeVendorPercent: utils.DefaultFeeVendorPercent,
		Status:           models.ProjectActive,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Gagal seed proyek: %v", err)
	}
	if err := db.Create(&models.AdminData{ProjectID: p.ID}).Error; err != nil {
		t.Fatalf("Gagal seed admin data: %v", err)
	}
	if err := db.Create(&models.Retensi{ProjectID: p.ID, Status: models.RetensiNone}).Error; err != nil {
		t.Fatalf("Gagal seed retensi: %v", err)
	}
	return p
}

// SeedMilestone menambah satu milestone langsung di database.
func SeedMilestone(t *testing.T, db *gorm.DB, projectID uint, judul string, persentase float64, price int64, status models.MilestoneStatus, urutan int) *models.Milestone {
	t.Helper()
	m := &models.Milestone{
		ProjectID:     projectID,
		Judul:         judul,
		Persentase:    persentase,
		Price:         price,
		OriginalPrice: price,
		Status:        status,
		Urutan:        urutan,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("Gagal seed milestone: %v", err)
	}
	return m
}

// SetLedger menimpa isi buku escrow proyek, untuk menyiapkan skenario dana.
func SetLedger(t *testing.T, db *gorm.DB, projectID uint, clientFunds, adminBalance, retentionHeld int64) {
	t.Helper()
	err := db.Model(&models.AdminData{}).
		Where("project_id = ?", projectID).
		Updates(map[string]interface{}{
			"client_funds":   clientFunds,
			"admin_balance":  adminBalance,
			"retention_held": retentionHeld,
		}).Error
	if err != nil {
		t.Fatalf("Gagal set ledger: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
