package main

import (
	"go-escrow-proyek/config"
	"go-escrow-proyek/models"
	"go-escrow-proyek/routes"
	"go-escrow-proyek/utils"

	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("tidak ada file .env, lanjut pakai environment")
	}

	config.ConnectDB()

	// Auto-migrate models (ADMIN & USER terpisah)
	config.DB.AutoMigrate(
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

	config.SeedBootstrapAdmin()

	// override secret dari ENV (Render)
	if s := os.Getenv("ADMIN_JWT_SECRET"); s != "" {
		utils.AdminSecret = []byte(s)
	}
	if s := os.Getenv("USER_JWT_SECRET"); s != "" {
		utils.UserSecret = []byte(s)
	}

	r := gin.Default()
	routes.SetupRoutes(r)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "🚀 Escrow Proyek API is running"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	_ = r.Run(":" + port)

}
