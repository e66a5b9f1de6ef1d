package services

import (
	"io"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mycourse/catalog-backend/internal/types"
)

// ListInput is the listing request after transport decoding. Order is the
// allow-listed set of sort keys, supplied per call so the query service
// never reads ambient configuration.
type ListInput struct {
	Search    string
	Page      int
	OrderBy   string
	Ascending bool
	Limit     int
	Order     []string
}

type CreateInput struct {
	Title  string
	Author string
}

// ImageUpload is a new cover image attached to an edit.
type ImageUpload struct {
	Content io.Reader
	Name    string
}

type EditInput struct {
	ID           uuid.UUID
	Title        string
	Description  string
	Email        string
	FullPrice    types.Money
	CurrentPrice types.Money
	// RowVersion is the concurrency token read with the edit form; the
	// store rejects the write if it has since changed.
	RowVersion string
	// Image is optional; nil keeps the stored image path.
	Image *ImageUpload
}

// CourseSummary is the listing row projection.
type CourseSummary struct {
	ID           uuid.UUID          `json:"id"`
	Title        string             `json:"title"`
	Author       string             `json:"author"`
	ImagePath    string             `json:"image_path"`
	Rating       float64            `json:"rating"`
	FullPrice    types.Money        `json:"full_price"`
	CurrentPrice types.Money        `json:"current_price"`
	Status       types.CourseStatus `json:"status"`
}

type LessonSummary struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Duration    int            `json:"duration"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
}

// CourseDetail is the full read-only projection, lessons included.
type CourseDetail struct {
	CourseSummary
	Description string          `json:"description"`
	Email       string          `json:"email"`
	Lessons     []LessonSummary `json:"lessons"`
}

// CourseEditModel is the projection backing an edit form: the descriptive
// fields plus the row version that must travel back with the submit.
type CourseEditModel struct {
	ID           uuid.UUID   `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Email        string      `json:"email"`
	ImagePath    string      `json:"image_path"`
	FullPrice    types.Money `json:"full_price"`
	CurrentPrice types.Money `json:"current_price"`
	RowVersion   string      `json:"row_version"`
}

// CourseList pairs one page of results with the total match count across
// all pages.
type CourseList struct {
	Results    []CourseSummary `json:"results"`
	TotalCount int64           `json:"total_count"`
}

func summaryFromCourse(course *types.Course) CourseSummary {
	return CourseSummary{
		ID:           course.ID,
		Title:        course.Title,
		Author:       course.Author,
		ImagePath:    course.ImagePath,
		Rating:       course.Rating,
		FullPrice:    course.FullPrice,
		CurrentPrice: course.CurrentPrice,
		Status:       course.Status,
	}
}

func detailFromCourse(course *types.Course) *CourseDetail {
	lessons := make([]LessonSummary, 0, len(course.Lessons))
	for _, lesson := range course.Lessons {
		lessons = append(lessons, LessonSummary{
			ID:          lesson.ID,
			Title:       lesson.Title,
			Description: lesson.Description,
			Duration:    lesson.Duration,
			Metadata:    lesson.Metadata,
		})
	}
	return &CourseDetail{
		CourseSummary: summaryFromCourse(course),
		Description:   course.Description,
		Email:         course.Email,
		Lessons:       lessons,
	}
}

func editModelFromCourse(course *types.Course) *CourseEditModel {
	return &CourseEditModel{
		ID:           course.ID,
		Title:        course.Title,
		Description:  course.Description,
		Email:        course.Email,
		ImagePath:    course.ImagePath,
		FullPrice:    course.FullPrice,
		CurrentPrice: course.CurrentPrice,
		RowVersion:   course.RowVersion,
	}
}
