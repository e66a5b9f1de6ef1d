package repos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mycourse/catalog-backend/internal/logger"
	"github.com/mycourse/catalog-backend/internal/types"
)

// ErrStaleRowVersion is returned by UpdateWithVersion when the stored row
// version no longer matches the one the caller read. The service layer maps
// it onto its concurrency-conflict error.
var ErrStaleRowVersion = errors.New("course row version is stale")

// likeEscaper neutralizes LIKE metacharacters so a search for a literal
// "%" or "_" matches those characters instead of everything.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ListQuery is the already-sanitized listing predicate. OrderColumn is a
// physical column name (the service resolves the allow-list); "" means the
// store's natural order.
type ListQuery struct {
	Search      string
	OrderColumn string
	Ascending   bool
	Offset      int
	Limit       int
}

type CourseRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error)
	List(ctx context.Context, tx *gorm.DB, q ListQuery) ([]*types.Course, error)
	Count(ctx context.Context, tx *gorm.DB, search string) (int64, error)
	Create(ctx context.Context, tx *gorm.DB, course *types.Course) error
	UpdateWithVersion(ctx context.Context, tx *gorm.DB, course *types.Course, expectedVersion string) error
	TitleExists(ctx context.Context, tx *gorm.DB, title string, excludingID uuid.UUID) (bool, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

// GetByID loads one course with its lessons. Returns (nil, nil) when no
// course has that id.
func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var course types.Course
	err := transaction.WithContext(ctx).
		Preload("Lessons").
		Where("id = ?", id).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) List(ctx context.Context, tx *gorm.DB, q ListQuery) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).Model(&types.Course{})
	if q.Search != "" {
		query = query.Where(`title LIKE ? ESCAPE '\'`, "%"+escapeLike(q.Search)+"%")
	}
	if q.OrderColumn != "" {
		direction := "DESC"
		if q.Ascending {
			direction = "ASC"
		}
		query = query.Order(fmt.Sprintf("%s %s", q.OrderColumn, direction))
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var results []*types.Course
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Count returns the total number of courses matching the search predicate,
// independent of any page window.
func (r *courseRepo) Count(ctx context.Context, tx *gorm.DB, search string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).Model(&types.Course{})
	if search != "" {
		query = query.Where(`title LIKE ? ESCAPE '\'`, "%"+escapeLike(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Create inserts the course (and any owned lessons), stamping the id and the
// initial row version. Unique-title violations surface as
// gorm.ErrDuplicatedKey.
func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, course *types.Course) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	course.RowVersion = uuid.NewString()
	for i := range course.Lessons {
		if course.Lessons[i].ID == uuid.Nil {
			course.Lessons[i].ID = uuid.New()
		}
		course.Lessons[i].CourseID = course.ID
	}

	if err := transaction.WithContext(ctx).Create(course).Error; err != nil {
		return err
	}
	return nil
}

// UpdateWithVersion writes the course's scalar fields guarded by the row
// version read at fetch time. A vanished row version means another writer
// got there first: ErrStaleRowVersion. Unique-title violations surface as
// gorm.ErrDuplicatedKey. On success the course carries its fresh row version.
func (r *courseRepo) UpdateWithVersion(ctx context.Context, tx *gorm.DB, course *types.Course, expectedVersion string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	newVersion := uuid.NewString()
	result := transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("id = ? AND row_version = ?", course.ID, expectedVersion).
		Updates(map[string]interface{}{
			"title":                  course.Title,
			"description":            course.Description,
			"author":                 course.Author,
			"email":                  course.Email,
			"image_path":             course.ImagePath,
			"status":                 course.Status,
			"full_price_currency":    course.FullPrice.Currency,
			"full_price_amount":      course.FullPrice.Amount,
			"current_price_currency": course.CurrentPrice.Currency,
			"current_price_amount":   course.CurrentPrice.Amount,
			"row_version":            newVersion,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleRowVersion
	}
	course.RowVersion = newVersion
	return nil
}

// TitleExists checks title uniqueness under the store's case-insensitive
// comparison rule, optionally excluding one course (the one being edited).
func (r *courseRepo) TitleExists(ctx context.Context, tx *gorm.DB, title string, excludingID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("LOWER(title) = LOWER(?)", title)
	if excludingID != uuid.Nil {
		query = query.Where("id <> ?", excludingID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
