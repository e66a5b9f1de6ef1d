package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mycourse/catalog-backend/internal/logger"
	"github.com/mycourse/catalog-backend/internal/options"
	"github.com/mycourse/catalog-backend/internal/services"
	"github.com/mycourse/catalog-backend/internal/types"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
	opts          options.CoursesOptions
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService, opts options.CoursesOptions) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
		opts:          opts,
	}
}

func (h *CourseHandler) ListCourses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	ascending := c.DefaultQuery("ascending", "false") == "true"

	input := services.ListInput{
		Search:    c.Query("search"),
		Page:      page,
		OrderBy:   c.Query("orderby"),
		Ascending: ascending,
		Limit:     limit,
		Order:     h.opts.Order,
	}
	list, err := h.courseService.GetCourses(c.Request.Context(), input)
	if err != nil {
		h.log.Error("ListCourses failed", "error", err)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, list)
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	detail, err := h.courseService.GetCourse(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, detail)
}

func (h *CourseHandler) GetCourseForEditing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	editModel, err := h.courseService.GetCourseForEditing(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, editModel)
}

func (h *CourseHandler) BestRatingCourses(c *gin.Context) {
	courses, err := h.courseService.GetBestRatingCourses(c.Request.Context())
	if err != nil {
		h.log.Error("BestRatingCourses failed", "error", err)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

func (h *CourseHandler) MostRecentCourses(c *gin.Context) {
	courses, err := h.courseService.GetMostRecentCourses(c.Request.Context())
	if err != nil {
		h.log.Error("MostRecentCourses failed", "error", err)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

type createCourseRequest struct {
	Title  string `json:"title" binding:"required"`
	Author string `json:"author" binding:"required"`
}

func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	detail, err := h.courseService.CreateCourse(c.Request.Context(), services.CreateInput{
		Title:  req.Title,
		Author: req.Author,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

// EditCourse accepts a multipart form so the new cover image can ride along
// with the field changes.
func (h *CourseHandler) EditCourse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}

	fullAmount, err := decimal.NewFromString(c.PostForm("full_price_amount"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_full_price", err)
		return
	}
	currentAmount, err := decimal.NewFromString(c.PostForm("current_price_amount"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_current_price", err)
		return
	}

	input := services.EditInput{
		ID:           id,
		Title:        c.PostForm("title"),
		Description:  c.PostForm("description"),
		Email:        c.PostForm("email"),
		FullPrice:    types.NewMoney(types.Currency(c.PostForm("full_price_currency")), fullAmount),
		CurrentPrice: types.NewMoney(types.Currency(c.PostForm("current_price_currency")), currentAmount),
		RowVersion:   c.PostForm("row_version"),
	}

	if fileHeader, err := c.FormFile("image"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_image_upload", err)
			return
		}
		defer file.Close()
		input.Image = &services.ImageUpload{Content: file, Name: fileHeader.Filename}
	}

	detail, err := h.courseService.EditCourse(c.Request.Context(), input)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, detail)
}

func (h *CourseHandler) IsTitleAvailable(c *gin.Context) {
	title := c.Query("title")
	if title == "" {
		RespondError(c, http.StatusBadRequest, "missing_title", nil)
		return
	}
	excludingID := uuid.Nil
	if raw := c.Query("exclude"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_exclude_id", err)
			return
		}
		excludingID = parsed
	}
	available, err := h.courseService.IsTitleAvailable(c.Request.Context(), title, excludingID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"available": available})
}
