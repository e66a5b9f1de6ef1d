package main

import (
	"fmt"
	"os"

	"github.com/mycourse/catalog-backend/internal/db"
	"github.com/mycourse/catalog-backend/internal/handlers"
	"github.com/mycourse/catalog-backend/internal/logger"
	"github.com/mycourse/catalog-backend/internal/options"
	"github.com/mycourse/catalog-backend/internal/repos"
	"github.com/mycourse/catalog-backend/internal/server"
	"github.com/mycourse/catalog-backend/internal/services"
	"github.com/mycourse/catalog-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	port := utils.GetEnv("PORT", "8080", log)
	imageDir := utils.GetEnv("COURSE_IMAGE_DIR", "./media/courses", log)
	allowOrigins := utils.GetEnvAsList("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000"}, log)
	coursesOptions := options.Load(log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	courseRepo := repos.NewCourseRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	imagePersister := services.NewLocalImagePersister(imageDir, log)
	courseService := services.NewCourseService(thePG, log, courseRepo, imagePersister, coursesOptions)

	// Handlers
	log.Info("Setting up Handlers from main...")
	courseHandler := handlers.NewCourseHandler(log, courseService, coursesOptions)

	// Router
	router := server.NewRouter(server.RouterConfig{
		CourseHandler: courseHandler,
		AllowOrigins:  allowOrigins,
	})

	log.Info("Starting catalog server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
