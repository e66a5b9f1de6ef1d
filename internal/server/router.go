package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mycourse/catalog-backend/internal/handlers"
)

type RouterConfig struct {
	CourseHandler *handlers.CourseHandler
	AllowOrigins  []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/courses", cfg.CourseHandler.ListCourses)
		api.POST("/courses", cfg.CourseHandler.CreateCourse)
		api.GET("/courses/title-available", cfg.CourseHandler.IsTitleAvailable)
		api.GET("/courses/best-rating", cfg.CourseHandler.BestRatingCourses)
		api.GET("/courses/most-recent", cfg.CourseHandler.MostRecentCourses)
		api.GET("/courses/:id", cfg.CourseHandler.GetCourse)
		api.GET("/courses/:id/edit", cfg.CourseHandler.GetCourseForEditing)
		api.PUT("/courses/:id", cfg.CourseHandler.EditCourse)
	}

	return router
}
