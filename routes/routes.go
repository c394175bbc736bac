package routes

import (
	"go-escrow-proyek/controllers"
	"go-escrow-proyek/middlewares"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine) {

	api := r.Group("/api")
	{

		// ================= ADMIN APP =================
		admin := api.Group("/admin")
		{
			admin.POST("/register", controllers.AdminRegister)
			admin.POST("/login", controllers.AdminLogin)

			// Semua di bawah butuh token admin
			adminAuth := admin.Group("/", middlewares.AdminAuth())

			// Profile admin
			adminAuth.GET("/profile", controllers.GetDataAdminProfile)
			adminAuth.PUT("/profile/password", controllers.AdminChangePassword)

			// Allowlist manager per proyek
			adminAuth.POST("/manager-access", controllers.AdminGrantManagerAccess)
			adminAuth.DELETE("/manager-access", controllers.AdminRevokeManagerAccess)

			// Rekap keuangan lintas proyek
			adminAuth.GET("/finance", controllers.AdminListFinance)

			project := adminAuth.Group("/projects")
			{
				project.GET("/", controllers.AdminListProjects)
				project.POST("/", controllers.AdminCreateProject)
				project.GET("/:id", controllers.AdminGetProject)
				project.DELETE("/:id", controllers.AdminDeleteProject)
				project.GET("/:id/finance", controllers.AdminGetProjectFinance)

				// Milestone dikelola admin, pembayarannya dikonfirmasi admin
				project.POST("/:id/milestones", controllers.AdminCreateMilestone)
				project.DELETE("/:id/milestones/:mid", controllers.AdminDeleteMilestone)
				project.POST("/:id/milestones/:mid/confirm-payment", controllers.MilestoneConfirmPayment)
				project.GET("/:id/milestones/:mid/payment", controllers.GetMilestonePaymentView)

				// Termin: admin bisa menagih atas nama client, konfirmasi
				// pembayaran masuk, refund pengurangan, dan menata ulang
				project.POST("/:id/termins/:tid/request", controllers.AdminTerminRequestPayment)
				project.POST("/:id/termins/:tid/cancel-request", controllers.AdminTerminCancelRequest)
				project.POST("/:id/termins/:tid/confirm", controllers.AdminTerminConfirmPayment)
				project.POST("/:id/termins/:tid/refund", controllers.AdminTerminProcessRefund)
				project.PUT("/:id/termins", controllers.AdminRegenerateTermins)
				project.PATCH("/:id/termins", controllers.AdminUpdateTermins)

				// Retensi
				project.GET("/:id/retensi", controllers.GetRetensi)
				project.POST("/:id/retensi/release", controllers.AdminRetensiRelease)

				// Pekerjaan tambahan: admin boleh memutus atas nama client
				project.POST("/:id/additional-works/:awId/approve", controllers.AdminAdditionalWorkApprove)
				project.POST("/:id/additional-works/:awId/reject", controllers.AdminAdditionalWorkReject)

				// Penarikan saldo escrow
				project.GET("/:id/withdrawals", controllers.AdminListWithdrawals)
				project.POST("/:id/withdrawals", controllers.AdminCreateWithdrawal)
			}
		}

		// ================= USER APP (client & vendor) =================
		user := api.Group("/user")
		{
			user.POST("/register", controllers.UserRegister)
			user.POST("/login", controllers.UserLogin)

			userAuth := user.Group("/", middlewares.UserAuth())

			userAuth.GET("/profile", controllers.GetDataUserProfile)

			project := userAuth.Group("/projects")
			{
				project.GET("/", controllers.UserListProjects)
				project.GET("/:id", controllers.UserGetProject)

				// Siklus milestone: vendor mengerjakan, client menilai
				project.POST("/:id/milestones/:mid/start", controllers.MilestoneStart)
				project.POST("/:id/milestones/:mid/daily", controllers.MilestoneDaily)
				project.POST("/:id/milestones/:mid/finish", controllers.MilestoneFinish)
				project.POST("/:id/milestones/:mid/complain", controllers.MilestoneComplain)
				project.POST("/:id/milestones/:mid/fix-done", controllers.MilestoneFixDone)
				project.POST("/:id/milestones/:mid/approve", controllers.MilestoneApprove)
				project.GET("/:id/milestones/:mid/payment", controllers.GetMilestonePaymentView)
				project.POST("/:id/logs/:logId/comments", controllers.AddLogComment)

				// Termin: client menagih dirinya sendiri ke platform
				project.POST("/:id/termins/:tid/request", controllers.TerminRequestPayment)
				project.POST("/:id/termins/:tid/cancel-request", controllers.TerminCancelRequest)

				// Retensi
				project.GET("/:id/retensi", controllers.GetRetensi)
				project.POST("/:id/retensi/propose", controllers.RetensiPropose)
				project.POST("/:id/retensi/approve", controllers.RetensiApprove)
				project.POST("/:id/retensi/reject", controllers.RetensiReject)
				project.POST("/:id/retensi/complain", controllers.RetensiComplain)
				project.POST("/:id/retensi/fix", controllers.RetensiFix)
				project.POST("/:id/retensi/confirm-fix", controllers.RetensiConfirmFix)
				project.POST("/:id/retensi/reject-fix", controllers.RetensiRejectFix)

				// Pekerjaan tambahan (vendor mengusulkan, client memutus)
				project.POST("/:id/additional-works", controllers.AdditionalWorkCreate)
				project.POST("/:id/additional-works/:awId/approve", controllers.AdditionalWorkApprove)
				project.POST("/:id/additional-works/:awId/reject", controllers.AdditionalWorkReject)

				// Pengurangan nilai milestone
				project.POST("/:id/milestones/:mid/change-requests", controllers.ChangeRequestCreate)
				project.POST("/:id/change-requests/:crId/approve", controllers.ChangeRequestApprove)
				project.POST("/:id/change-requests/:crId/reject", controllers.ChangeRequestReject)
			}
		}
	}
}
