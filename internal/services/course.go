package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mycourse/catalog-backend/internal/apperr"
	"github.com/mycourse/catalog-backend/internal/logger"
	"github.com/mycourse/catalog-backend/internal/options"
	"github.com/mycourse/catalog-backend/internal/repos"
	"github.com/mycourse/catalog-backend/internal/types"
)

// Sort keys accepted by the listing, mapped to physical columns. "Id" means
// recency: with opaque ids the insertion order lives in created_at.
var orderColumns = map[string]string{
	"Title":        "title",
	"Rating":       "rating",
	"CurrentPrice": "current_price_amount",
	"Id":           "created_at",
}

type CourseService interface {
	GetCourses(ctx context.Context, input ListInput) (*CourseList, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*CourseDetail, error)
	GetCourseForEditing(ctx context.Context, id uuid.UUID) (*CourseEditModel, error)
	GetBestRatingCourses(ctx context.Context) ([]CourseSummary, error)
	GetMostRecentCourses(ctx context.Context) ([]CourseSummary, error)
	CreateCourse(ctx context.Context, input CreateInput) (*CourseDetail, error)
	EditCourse(ctx context.Context, input EditInput) (*CourseDetail, error)
	IsTitleAvailable(ctx context.Context, title string, excludingID uuid.UUID) (bool, error)
}

type courseService struct {
	db             *gorm.DB
	log            *logger.Logger
	courseRepo     repos.CourseRepo
	imagePersister ImagePersister
	opts           options.CoursesOptions
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	imagePersister ImagePersister,
	opts options.CoursesOptions,
) CourseService {
	serviceLog := baseLog.With("service", "CourseService")
	return &courseService{
		db:             db,
		log:            serviceLog,
		courseRepo:     courseRepo,
		imagePersister: imagePersister,
		opts:           opts,
	}
}

// GetCourses returns one page of summaries plus the total match count,
// counted across the whole predicate rather than the page.
func (cs *courseService) GetCourses(ctx context.Context, input ListInput) (*CourseList, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit <= 0 {
		limit = cs.opts.PerPage
	}

	query := repos.ListQuery{
		Search:      input.Search,
		OrderColumn: resolveOrderColumn(input.OrderBy, input.Order),
		Ascending:   input.Ascending,
		Offset:      (page - 1) * limit,
		Limit:       limit,
	}

	courses, err := cs.courseRepo.List(ctx, nil, query)
	if err != nil {
		cs.log.Error("GetCourses list failed", "error", err, "search", input.Search)
		return nil, apperr.Internal("course.list", err)
	}
	total, err := cs.courseRepo.Count(ctx, nil, input.Search)
	if err != nil {
		cs.log.Error("GetCourses count failed", "error", err, "search", input.Search)
		return nil, apperr.Internal("course.list", err)
	}

	results := make([]CourseSummary, 0, len(courses))
	for _, course := range courses {
		results = append(results, summaryFromCourse(course))
	}
	return &CourseList{Results: results, TotalCount: total}, nil
}

// resolveOrderColumn maps an allow-listed sort key to its column. A key
// outside the allow-list (or one with no column mapping) falls back to the
// store's natural order instead of failing; lenient on purpose.
func resolveOrderColumn(orderBy string, allowed []string) string {
	permitted := false
	for _, key := range allowed {
		if key == orderBy {
			permitted = true
			break
		}
	}
	if !permitted {
		return ""
	}
	return orderColumns[orderBy]
}

func (cs *courseService) GetCourse(ctx context.Context, id uuid.UUID) (*CourseDetail, error) {
	course, err := cs.courseRepo.GetByID(ctx, nil, id)
	if err != nil {
		cs.log.Error("GetCourse failed", "error", err, "course_id", id)
		return nil, apperr.Internal("course.get", err)
	}
	if course == nil {
		return nil, apperr.NotFound("course.get", fmt.Sprintf("course %s not found", id))
	}
	return detailFromCourse(course), nil
}

func (cs *courseService) GetCourseForEditing(ctx context.Context, id uuid.UUID) (*CourseEditModel, error) {
	course, err := cs.courseRepo.GetByID(ctx, nil, id)
	if err != nil {
		cs.log.Error("GetCourseForEditing failed", "error", err, "course_id", id)
		return nil, apperr.Internal("course.get_for_editing", err)
	}
	if course == nil {
		cs.log.Warn("Course not found for editing", "course_id", id)
		return nil, apperr.NotFound("course.get_for_editing", fmt.Sprintf("course %s not found", id))
	}
	return editModelFromCourse(course), nil
}

func (cs *courseService) GetBestRatingCourses(ctx context.Context) ([]CourseSummary, error) {
	list, err := cs.GetCourses(ctx, ListInput{
		Search:    "",
		Page:      1,
		OrderBy:   "Rating",
		Ascending: false,
		Limit:     cs.opts.InHome,
		Order:     cs.opts.Order,
	})
	if err != nil {
		return nil, err
	}
	return list.Results, nil
}

func (cs *courseService) GetMostRecentCourses(ctx context.Context) ([]CourseSummary, error) {
	list, err := cs.GetCourses(ctx, ListInput{
		Search:    "",
		Page:      1,
		OrderBy:   "Id",
		Ascending: false,
		Limit:     cs.opts.InHome,
		Order:     cs.opts.Order,
	})
	if err != nil {
		return nil, err
	}
	return list.Results, nil
}

func (cs *courseService) CreateCourse(ctx context.Context, input CreateInput) (*CourseDetail, error) {
	course, err := types.NewCourse(input.Title, input.Author)
	if err != nil {
		return nil, err
	}

	if err := cs.courseRepo.Create(ctx, nil, course); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.TitleUnavailable("course.create", input.Title, err)
		}
		cs.log.Error("CreateCourse failed", "error", err, "title", input.Title)
		return nil, apperr.Internal("course.create", err)
	}

	cs.log.Info("Course created", "course_id", course.ID, "title", course.Title)
	return detailFromCourse(course), nil
}

// EditCourse applies all field changes through the aggregate's validated
// operations, persists the new image if one was uploaded, then commits under
// the row version read at fetch time. Any validation failure aborts the
// whole edit; nothing is written.
func (cs *courseService) EditCourse(ctx context.Context, input EditInput) (*CourseDetail, error) {
	course, err := cs.courseRepo.GetByID(ctx, nil, input.ID)
	if err != nil {
		cs.log.Error("EditCourse load failed", "error", err, "course_id", input.ID)
		return nil, apperr.Internal("course.edit", err)
	}
	if course == nil {
		return nil, apperr.NotFound("course.edit", fmt.Sprintf("course %s not found", input.ID))
	}

	if err := course.ChangeTitle(input.Title); err != nil {
		return nil, err
	}
	if err := course.ChangePrices(input.FullPrice, input.CurrentPrice); err != nil {
		return nil, err
	}
	if err := course.ChangeDescription(input.Description); err != nil {
		return nil, err
	}
	if err := course.ChangeEmail(input.Email); err != nil {
		return nil, err
	}

	if input.Image != nil {
		imagePath, err := cs.imagePersister.SaveCourseImage(ctx, course.ID, input.Image.Content, input.Image.Name)
		if err != nil {
			cs.log.Error("EditCourse image persist failed", "error", err, "course_id", course.ID)
			return nil, fmt.Errorf("save course image: %w", err)
		}
		if err := course.ChangeImagePath(imagePath); err != nil {
			return nil, err
		}
	}

	if err := cs.courseRepo.UpdateWithVersion(ctx, nil, course, input.RowVersion); err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, apperr.TitleUnavailable("course.edit", input.Title, err)
		case errors.Is(err, repos.ErrStaleRowVersion):
			cs.log.Warn("EditCourse concurrency conflict", "course_id", course.ID)
			return nil, apperr.ConcurrencyConflict("course.edit",
				fmt.Sprintf("course %s was changed by another request", course.ID))
		default:
			cs.log.Error("EditCourse update failed", "error", err, "course_id", course.ID)
			return nil, apperr.Internal("course.edit", err)
		}
	}

	cs.log.Info("Course edited", "course_id", course.ID, "title", course.Title)
	return detailFromCourse(course), nil
}

func (cs *courseService) IsTitleAvailable(ctx context.Context, title string, excludingID uuid.UUID) (bool, error) {
	exists, err := cs.courseRepo.TitleExists(ctx, nil, title, excludingID)
	if err != nil {
		cs.log.Error("IsTitleAvailable failed", "error", err, "title", title)
		return false, apperr.Internal("course.is_title_available", err)
	}
	return !exists, nil
}
