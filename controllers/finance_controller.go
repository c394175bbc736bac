package controllers

import (
	"net/http"
	"strconv"

	"go-escrow-proyek/config"
	"go-escrow-proyek/models"
	"go-escrow-proyek/service"
	"go-escrow-proyek/utils"

	"github.com/gin-gonic/gin"
)

// AdminListFinance menampilkan rekap keuangan semua proyek. Manager hanya
// melihat proyek yang ada di allowlist-nya.
func AdminListFinance(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	f := service.FinanceFilter{
		Query:    c.Query("q"),
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
		SortBy:   c.Query("sort"),
	}

	// allowlist manager masuk ke query supaya total dan paginasi ikut terpotong
	if currentAdminRole(c) == models.RoleManager {
		adminID, err := currentAdminID(c)
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, "Unauthorized", err)
			return
		}
		ids := []uint{}
		if err := config.DB.Model(&models.ManagerProjectAccess{}).
			Where("admin_id = ?", adminID).
			Pluck("project_id", &ids).Error; err != nil {
			utils.Error(c, http.StatusInternalServerError, "Gagal mengambil rekap keuangan", err)
			return
		}
		f.AllowedProjectIDs = ids
	}

	svc := service.NewService(config.DB)
	rows, total, err := svc.FinanceRows(c.Request.Context(), f)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Gagal mengambil rekap keuangan", err)
		return
	}

	utils.Success(c, "Rekap keuangan proyek", gin.H{
		"rows":  rows,
		"total": total,
		"page":  f.Page,
	})
}

// AdminGetProjectFinance menampilkan rekap keuangan satu proyek.
func AdminGetProjectFinance(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "ID proyek tidak valid", err)
		return
	}
	if _, err := adminCanManageProject(config.DB, c, uint(projectID)); err != nil {
		utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
		return
	}

	svc := service.NewService(config.DB)
	sum, err := svc.ProjectFinance(c.Request.Context(), uint(projectID))
	if err != nil {
		utils.Error(c, http.StatusNotFound, "Proyek tidak ditemukan", err)
		return
	}
	utils.Success(c, "Rekap keuangan proyek", sum)
}

// GetMilestonePaymentView menampilkan rincian pembayaran milestone sesuai
// peran pemanggil. Route ini dipasang di grup admin maupun user.
func GetMilestonePaymentView(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "ID proyek tidak valid", err)
		return
	}
	milestoneID, err := strconv.ParseUint(c.Param("mid"), 10, 64)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "ID milestone tidak valid", err)
		return
	}

	role := ""
	if email, uerr := currentUserEmail(c); uerr == nil {
		var p models.Project
		if err := config.DB.First(&p, uint(projectID)).Error; err != nil {
			utils.Error(c, http.StatusNotFound, "Proyek tidak ditemukan", err)
			return
		}
		switch {
		case isProjectClient(&p, email):
			role = "client"
		case isProjectVendor(&p, email):
			role = "vendor"
		default:
			utils.Error(c, http.StatusForbidden, "Bukan pihak proyek ini", nil)
			return
		}
	} else {
		if _, err := adminCanManageProject(config.DB, c, uint(projectID)); err != nil {
			utils.Error(c, http.StatusForbidden, "Akses ditolak", err)
			return
		}
		role = string(currentAdminRole(c))
	}

	svc := service.NewService(config.DB)
	view, err := svc.MilestonePaymentView(c.Request.Context(), uint(projectID), uint(milestoneID), role)
	if err != nil {
		utils.Error(c, http.StatusNotFound, "Milestone tidak ditemukan", err)
		return
	}
	utils.Success(c, "Rincian pembayaran milestone", view)
}
