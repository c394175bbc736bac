package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go-escrow-proyek/config"
	"go-escrow-proyek/models"
	"go-escrow-proyek/utils"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type MilestoneInput struct {
	Judul      string  `json:"judul" binding:"required"`
	Deskripsi  string  `json:"deskripsi"`
	Persentase float64 `json:"persentase" binding:"required"`
}

type CreateProjectInput struct {
	Judul       string  `json:"judul" binding:"required"`
	ClientName  string  `json:"client_name" binding:"required"`
	ClientEmail string  `json:"client_email" binding:"required,email"`
	VendorName  string  `json:"vendor_name" binding:"required"`
	VendorEmail string  `json:"vendor_email" binding:"required,email"`
	BaseTotal   int64   `json:"base_total" binding:"required"`
	FeeClient   float64 `json:"fee_client_percent"`
	FeeVendor   float64 `json:"fee_vendor_percent"`
	RetensiPct  float64 `json:"retensi_percent"`
	RetensiDays int     `json:"retensi_days"`

	Milestones []MilestoneInput `json:"milestones" binding:"required,min=1"`
}

// AdminCreateProject membuat proyek lengkap: milestone awal, buku escrow,
// record retensi kosong, dan termin utama hasil generate otomatis.
func AdminCreateProject(c *gin.Context) {
	if _, err := requireAdminRole(c); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	var in CreateProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "payload tidak valid", err)
		return
	}
	if in.BaseTotal <= 0 {
		utils.Error(c, http.StatusBadRequest, "Nilai kontrak harus positif", nil)
		return
	}

	// total persentase milestone tidak boleh melebihi 100
	var totalPct float64
	for _, m := range in.Milestones {
		if m.Persentase <= 0 {
			utils.Error(c, http.StatusBadRequest, "Persentase milestone harus positif", nil)
			return
		}
		totalPct += m.Persentase
	}
	if totalPct > 100 {
		utils.Error(c, http.StatusBadRequest, "Total persentase milestone melebihi 100", nil)
		return
	}

	feeClient := in.FeeClient
	if feeClient == 0 {
		feeClient = utils.DefaultFeeClientPercent
	}
	feeVendor := in.FeeVendor
	if feeVendor == 0 {
		feeVendor = utils.DefaultFeeVendorPercent
	}

	project := models.Project{
		Kode:             utils.GenProjectCode(time.Now().UTC()),
		Judul:            in.Judul,
		ClientName:       in.ClientName,
		ClientEmail:      in.ClientEmail,
		VendorName:       in.VendorName,
		VendorEmail:      in.VendorEmail,
		BaseTotal:        in.BaseTotal,
		FeeClientPercent: feeClient,
		FeeVendorPercent: feeVendor,
		RetensiPercent:   in.RetensiPct,
		RetensiDays:      in.RetensiDays,
		Status:           models.ProjectActive,
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		if err := tx.Create(&models.AdminData{ProjectID: project.ID}).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.Retensi{ProjectID: project.ID, Status: models.RetensiNone}).Error; err != nil {
			return err
		}

		for i, m := range in.Milestones {
			price := utils.PercentOf(in.BaseTotal, m.Persentase)
			ms := models.Milestone{
				ProjectID:     project.ID,
				Judul:         m.Judul,
				Deskripsi:     m.Deskripsi,
				Persentase:    m.Persentase,
				Price:         price,
				OriginalPrice: price,
				Status:        models.MilestonePending,
				Urutan:        i + 1,
			}
			if err := tx.Create(&ms).Error; err != nil {
				return err
			}
		}

		for i, dt := range utils.GenerateDefaultTermins(in.BaseTotal, feeClient) {
			t := models.Termin{
				ProjectID:       project.ID,
				Judul:           dt.Judul,
				Type:            models.TerminMain,
				BaseAmount:      dt.BaseAmount,
				FeeClientAmount: dt.FeeClientAmount,
				TotalWithFee:    dt.TotalWithFee,
				Status:          models.TerminUnpaid,
				Urutan:          i + 1,
			}
			if err := tx.Create(&t).Error; err != nil {
				return err
			}
		}

		return addLog(tx, project.ID, 0, models.LogSystem, "Proyek dibuat", "", nil)
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			utils.Error(c, http.StatusConflict, "Kode proyek bentrok, coba lagi", err)
			return
		}
		utils.Error(c, http.StatusInternalServerError, "Gagal membuat proyek", err)
		return
	}

	utils.NotifyAsync(project.ClientEmail, "Proyek baru dibuat", "Proyek "+project.Judul+" siap dipantau.")
	utils.NotifyAsync(project.VendorEmail, "Proyek baru dibuat", "Proyek "+project.Judul+" siap dikerjakan.")
	utils.Created(c, "Proyek berhasil dibuat", project)
}

func AdminListProjects(c *gin.Context) {
	if _, err := currentAdminID(c); err != nil {
		utils.Error(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	q := config.DB.Order("id DESC")
	if currentAdminRole(c) == models.RoleManager {
		aid, _ := currentAdminID(c)
		q = q.Where("id IN (?)", config.DB.
			Model(&models.ManagerProjectAccess{}).
			Select("project_id").
			Where("admin_id = ?", aid))
	}
	if st := c.Query("status"); st != "" {
		q = q.Where("status = ?", st)
	}

	var rows []models.Project
	if err := q.Find(&rows).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Gagal ambil proyek", err)
		return
	}
	utils.Success(c, "Berhasil ambil proyek", rows)
}

// loadProjectDetail memuat proyek beserta seluruh anaknya dan menjalankan
// reconcile retensi (transisi countdown kedaluwarsa dievaluasi saat dibaca).
func loadProjectDetail(id uint) (*models.Project, error) {
	if err := reconcileRetensiByProject(config.DB, id); err != nil {
		return nil, err
	}

	var p models.Project
	err := config.DB.
		Preload("AdminData").
		Preload("Retensi").
		Preload("Retensi.Logs", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("urutan ASC, id ASC") }).
		Preload("Milestones.Logs", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Milestones.Logs.Comments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Milestones.ChangeRequests").
		Preload("Termins", func(db *gorm.DB) *gorm.DB { return db.Order("urutan ASC, id ASC") }).
		Preload("AdditionalWorks").
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func AdminGetProject(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	if _, err := adminCanManageProject(config.DB, c, uint(id)); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	p, err := loadProjectDetail(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Proyek tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusInternalServerError, "Gagal ambil proyek", err)
		return
	}
	utils.Success(c, "Berhasil ambil proyek", p)
}

// AdminDeleteProject menghapus proyek beserta seluruh anaknya.
func AdminDeleteProject(c *gin.Context) {
	if _, err := requireAdminRole(c); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	id, _ := strconv.Atoi(c.Param("id"))

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.Clauses(clauseUpdateLock()).First(&p, id).Error; err != nil {
			return err
		}

		var milestoneIDs []uint
		if err := tx.Model(&models.Milestone{}).
			Where("project_id = ?", p.ID).
			Pluck("id", &milestoneIDs).Error; err != nil {
			return err
		}

		var logIDs []uint
		if err := tx.Model(&models.Log{}).
			Where("project_id = ?", p.ID).
			Pluck("id", &logIDs).Error; err != nil {
			return err
		}
		if len(logIDs) > 0 {
			if err := tx.Where("log_id IN ?", logIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Log{}).Error; err != nil {
			return err
		}
		if len(milestoneIDs) > 0 {
			if err := tx.Where("milestone_id IN ?", milestoneIDs).Delete(&models.ChangeRequest{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Milestone{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Termin{}).Error; err != nil {
			return err
		}
		if err := tx.Where("retensi_id IN (?)", tx.Model(&models.Retensi{}).
			Select("id").Where("project_id = ?", p.ID)).
			Delete(&models.RetensiLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Retensi{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.AdditionalWork{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Withdrawal{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.AdminData{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.ManagerProjectAccess{}).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(c, http.StatusNotFound, "Proyek tidak ditemukan", err)
			return
		}
		utils.Error(c, http.StatusInternalServerError, "Gagal hapus proyek", err)
		return
	}

	utils.Success(c, "Proyek dihapus", nil)
}

// UserListProjects = daftar proyek di mana pemanggil menjadi client atau vendor.
func UserListProjects(c *gin.Context) {
	email, err := currentUserEmail(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	var rows []models.Project
	if err := config.DB.
		Where("client_email = ? OR vendor_email = ?", email, email).
		Order("id DESC").
		Find(&rows).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Gagal ambil proyek", err)
		return
	}
	utils.Success(c, "Berhasil ambil proyek", rows)
}

func UserGetProject(c *gin.Context) {
	email, err := currentUserEmail(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	id, _ := strconv.Atoi(c.Param("id"))

	var p models.Project
	if err := config.DB.First(&p, id).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Proyek tidak ditemukan", err)
		return
	}
	if !isProjectClient(&p, email) && !isProjectVendor(&p, email) {
		utils.Error(c, http.StatusForbidden, "Bukan pihak proyek ini", nil)
		return
	}

	detail, err := loadProjectDetail(p.ID)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Gagal ambil proyek", err)
		return
	}
	utils.Success(c, "Berhasil ambil proyek", detail)
}
