package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mycourse/catalog-backend/internal/apperr"
	"github.com/mycourse/catalog-backend/internal/logger"
	"github.com/mycourse/catalog-backend/internal/options"
	"github.com/mycourse/catalog-backend/internal/repos"
	"github.com/mycourse/catalog-backend/internal/types"
)

type fakeImagePersister struct {
	calls    int
	lastName string
	path     string
	err      error
}

func (f *fakeImagePersister) SaveCourseImage(ctx context.Context, courseID uuid.UUID, content io.Reader, originalName string) (string, error) {
	f.calls++
	f.lastName = originalName
	if f.err != nil {
		return "", f.err
	}
	if f.path != "" {
		return f.path, nil
	}
	return "/courses/" + courseID.String() + ".jpg", nil
}

func newTestService(t *testing.T) (CourseService, repos.CourseRepo, *fakeImagePersister) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.Course{}, &types.Lesson{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_course_title_lower ON "course" (LOWER(title)) WHERE deleted_at IS NULL`,
	).Error; err != nil {
		t.Fatalf("create unique title index: %v", err)
	}
	repo := repos.NewCourseRepo(db, log)
	persister := &fakeImagePersister{}
	svc := NewCourseService(db, log, repo, persister, options.Default())
	return svc, repo, persister
}

func eur(amount string) types.Money {
	return types.NewMoney(types.CurrencyEUR, decimal.RequireFromString(amount))
}

func validEdit(detail *CourseDetail) EditInput {
	return EditInput{
		ID:           detail.ID,
		Title:        detail.Title,
		Description:  "A gentle introduction to Go",
		Email:        "author@example.com",
		FullPrice:    eur("49.90"),
		CurrentPrice: eur("29.90"),
	}
}

func TestCreateCourseDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)

	detail, err := svc.CreateCourse(context.Background(), CreateInput{Title: "Go from scratch", Author: "Ada Lovelace"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if detail.ID == uuid.Nil {
		t.Fatalf("create returned a nil id")
	}
	if detail.Status != types.CourseStatusDraft {
		t.Fatalf("status: want draft got %q", detail.Status)
	}
	if detail.ImagePath != types.DefaultImagePath {
		t.Fatalf("image path: want default got %q", detail.ImagePath)
	}
	if detail.FullPrice.Currency != types.DefaultCurrency || !detail.FullPrice.Amount.IsZero() {
		t.Fatalf("full price: want zero %s got %s", types.DefaultCurrency, detail.FullPrice)
	}
	if detail.CurrentPrice.Currency != types.DefaultCurrency || !detail.CurrentPrice.Amount.IsZero() {
		t.Fatalf("current price: want zero %s got %s", types.DefaultCurrency, detail.CurrentPrice)
	}
	if len(detail.Lessons) != 0 {
		t.Fatalf("lessons: want none got %d", len(detail.Lessons))
	}
}

func TestCreateCourseRejectsBlankTitle(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateCourse(context.Background(), CreateInput{Title: "   ", Author: "Ada Lovelace"})
	if !apperr.IsInvalidArgument(err) {
		t.Fatalf("blank title: want invalid_argument, got %v", err)
	}
}

func TestCreateCourseDuplicateTitle(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.CreateCourse(context.Background(), CreateInput{Title: "Go from scratch", Author: "Ada Lovelace"}); err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	_, err := svc.CreateCourse(context.Background(), CreateInput{Title: "go FROM scratch", Author: "Grace Hopper"})
	if !apperr.IsTitleUnavailable(err) {
		t.Fatalf("duplicate title: want title_unavailable, got %v", err)
	}
	if got := apperr.ConflictingTitle(err); got != "go FROM scratch" {
		t.Fatalf("conflicting title: want %q got %q", "go FROM scratch", got)
	}
}

func TestGetCourseNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetCourse(context.Background(), uuid.New())
	if !apperr.IsNotFound(err) {
		t.Fatalf("missing course: want not_found, got %v", err)
	}
}

func TestGetCourseIncludesLessons(t *testing.T) {
	svc, repo, _ := newTestService(t)

	course, err := types.NewCourse("Go from scratch", "Ada Lovelace")
	if err != nil {
		t.Fatalf("NewCourse: %v", err)
	}
	course.Lessons = []types.Lesson{
		{Title: "Hello, world", Description: "Setup", Duration: 20, Metadata: datatypes.JSON(`{"level":"beginner"}`)},
		{Title: "Slices and maps", Duration: 45},
	}
	if err := repo.Create(context.Background(), nil, course); err != nil {
		t.Fatalf("Create: %v", err)
	}

	detail, err := svc.GetCourse(context.Background(), course.ID)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if len(detail.Lessons) != 2 {
		t.Fatalf("lessons: want 2 got %d", len(detail.Lessons))
	}
	byTitle := map[string]LessonSummary{}
	for _, lesson := range detail.Lessons {
		byTitle[lesson.Title] = lesson
	}
	first, ok := byTitle["Hello, world"]
	if !ok {
		t.Fatalf("lesson projection missing %q: %v", "Hello, world", byTitle)
	}
	if _, ok := byTitle["Slices and maps"]; !ok {
		t.Fatalf("lesson projection missing %q: %v", "Slices and maps", byTitle)
	}
	if string(first.Metadata) != `{"level":"beginner"}` {
		t.Fatalf("lesson metadata not projected: %q", first.Metadata)
	}
}

func TestGetCoursesPagingAndTotal(t *testing.T) {
	svc, _, _ := newTestService(t)
	for i := 0; i < 8; i++ {
		if _, err := svc.CreateCourse(context.Background(), CreateInput{Title: fmt.Sprintf("Go course %d", i), Author: "Ada"}); err != nil {
			t.Fatalf("CreateCourse: %v", err)
		}
	}

	list, err := svc.GetCourses(context.Background(), ListInput{
		Search:    "",
		Page:      1,
		OrderBy:   "Rating",
		Ascending: false,
		Limit:     5,
		Order:     options.Default().Order,
	})
	if err != nil {
		t.Fatalf("GetCourses: %v", err)
	}
	if len(list.Results) != 5 {
		t.Fatalf("page: want 5 rows got %d", len(list.Results))
	}
	if list.TotalCount != 8 {
		t.Fatalf("total: want 8 got %d", list.TotalCount)
	}

	page2, err := svc.GetCourses(context.Background(), ListInput{Page: 2, Limit: 5, Order: options.Default().Order})
	if err != nil {
		t.Fatalf("GetCourses: %v", err)
	}
	if len(page2.Results) != 3 {
		t.Fatalf("page 2: want 3 rows got %d", len(page2.Results))
	}
}

func TestGetCoursesOrdersByRatingDescending(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ratings := map[string]float64{"Course A": 2.0, "Course B": 4.9, "Course C": 3.5}
	for title, rating := range ratings {
		course, err := types.NewCourse(title, "Ada")
		if err != nil {
			t.Fatalf("NewCourse: %v", err)
		}
		course.Rating = rating
		if err := repo.Create(context.Background(), nil, course); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	list, err := svc.GetCourses(context.Background(), ListInput{
		OrderBy: "Rating", Ascending: false, Limit: 10, Order: options.Default().Order,
	})
	if err != nil {
		t.Fatalf("GetCourses: %v", err)
	}
	got := []string{list.Results[0].Title, list.Results[1].Title, list.Results[2].Title}
	want := []string{"Course B", "Course C", "Course A"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rating order: want %v got %v", want, got)
		}
	}
}

func TestGetCoursesUnknownOrderByFallsBack(t *testing.T) {
	svc, _, _ := newTestService(t)
	for _, title := range []string{"First course", "Second course", "Third course"} {
		if _, err := svc.CreateCourse(context.Background(), CreateInput{Title: title, Author: "Ada"}); err != nil {
			t.Fatalf("CreateCourse: %v", err)
		}
	}

	list, err := svc.GetCourses(context.Background(), ListInput{
		OrderBy: "NotARealField", Limit: 10, Order: options.Default().Order,
	})
	if err != nil {
		t.Fatalf("unknown orderBy must not fail: %v", err)
	}
	if len(list.Results) != 3 {
		t.Fatalf("fallback list: want 3 got %d", len(list.Results))
	}
	// SQLite's natural order is insertion order here.
	if list.Results[0].Title != "First course" {
		t.Fatalf("natural order: want %q first got %q", "First course", list.Results[0].Title)
	}
}

func TestGetBestRatingCoursesUsesInHomeCount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	for i := 0; i < 9; i++ {
		course, err := types.NewCourse(fmt.Sprintf("Course %d", i), "Ada")
		if err != nil {
			t.Fatalf("NewCourse: %v", err)
		}
		course.Rating = float64(i)
		if err := repo.Create(context.Background(), nil, course); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	courses, err := svc.GetBestRatingCourses(context.Background())
	if err != nil {
		t.Fatalf("GetBestRatingCourses: %v", err)
	}
	if len(courses) != options.Default().InHome {
		t.Fatalf("home list: want %d got %d", options.Default().InHome, len(courses))
	}
	if courses[0].Title != "Course 8" {
		t.Fatalf("best rated first: want %q got %q", "Course 8", courses[0].Title)
	}
}

func TestEditCourseHappyPath(t *testing.T) {
	svc, _, persister := newTestService(t)

	created, err := svc.CreateCourse(context.Background(), CreateInput{Title: "Go from scratch", Author: "Ada Lovelace"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	editModel, err := svc.GetCourseForEditing(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetCourseForEditing: %v", err)
	}

	input := validEdit(created)
	input.Title = "Go, properly"
	input.RowVersion = editModel.RowVersion
	input.Image = &ImageUpload{Content: strings.NewReader("fake-bytes"), Name: "cover.png"}

	detail, err := svc.EditCourse(context.Background(), input)
	if err != nil {
		t.Fatalf("EditCourse: %v", err)
	}
	if detail.Title != "Go, properly" {
		t.Fatalf("title: want %q got %q", "Go, properly", detail.Title)
	}
	if detail.Description != input.Description || detail.Email != input.Email {
		t.Fatalf("descriptive fields not applied: %q / %q", detail.Description, detail.Email)
	}
	if !detail.FullPrice.Equals(input.FullPrice) || !detail.CurrentPrice.Equals(input.CurrentPrice) {
		t.Fatalf("prices not applied: %s / %s", detail.FullPrice, detail.CurrentPrice)
	}
	if persister.calls != 1 || persister.lastName != "cover.png" {
		t.Fatalf("image persister: calls=%d name=%q", persister.calls, persister.lastName)
	}
	if detail.ImagePath == types.DefaultImagePath {
		t.Fatalf("image path not updated")
	}

	// The stored row version rotated; the stale token no longer works.
	after, err := svc.GetCourseForEditing(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetCourseForEditing: %v", err)
	}
	if after.RowVersion == editModel.RowVersion {
		t.Fatalf("row version did not rotate on edit")
	}
}

func TestEditCourseWithoutImageKeepsPath(t *testing.T) {
	svc, _, persister := newTestService(t)

	created, err := svc.CreateCourse(context.Background(), CreateInput{Title: "Go from scratch", Author: "Ada"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	editModel, err := svc.GetCourseForEditing(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetCourseForEditing: %v", err)
	}

	input := validEdit(created)
	input.RowVersion = editModel.RowVersion

	detail, err := svc.EditCourse(context.Background(), input)
	if err != nil {
		t.Fatalf("EditCourse: %v", err)
	}
	if persister.calls != 0 {
		t.Fatalf("image persister called with no upload")
	}
	if detail.ImagePath != types.DefaultImagePath {
		t.Fatalf("image path: want unchanged default got %q", detail.ImagePath)
	}
}

func TestEditCourseNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := EditInput{
		ID:           uuid.New(),
		Title:        "Anything",
		Description:  "Anything",
		Email:        "a@example.com",
		FullPrice:    eur("20"),
		CurrentPrice: eur("10"),
		RowVersion:   uuid.NewString(),
	}
	_, err := svc.EditCourse(context.Background(), input)
	if !apperr.IsNotFound(err) {
		t.Fatalf("missing course: want not_found, got %v", err)
	}
}

func TestEditCourseValidationAbortsWholeEdit(t *testing.T) {
	svc, _, persister := newTestService(t)

	created, err := svc.CreateCourse(context.Background(), CreateInput{Title: "Go from scratch", Author: "Ada"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	editModel, err := svc.GetCourseForEditing(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetCourseForEditing: %v", err)
	}

	input := validEdit(created)
	input.Title = "A new title"
	input.Description = "" // fails ChangeDescription
	input.RowVersion = editModel.RowVersion
	input.Image = &ImageUpload{Content: strings.NewReader("bytes"), Name: "cover.png"}

	_, err = svc.EditCourse(context.Background(), input)
	if !apperr.IsInvalidArgument(err) {
		t.Fatalf("blank description: want invalid_argument, got %v", err)
	}
	if persister.calls != 0 {
		t.Fatalf("image persisted despite aborted edit")
	}

	// Nothing was written.
	detail, err := svc.GetCourse(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if detail.Title != "Go from scratch" {
		t.Fatalf("aborted edit leaked a write: title %q", detail.Title)
	}
}

func TestEditCoursePriceValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.CreateCourse(context.Background(), CreateInput{Title: "Go from scratch", Author: "Ada"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	editModel, err := svc.GetCourseForEditing(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetCourseForEditing: %v", err)
	}

	input := validEdit(created)
	input.RowVersion = editModel.RowVersion
	input.FullPrice = eur("10")
	input.CurrentPrice = eur("20")
	if _, err := svc.EditCourse(context.Background(), input); !apperr.IsInvalidArgument(err) {
		t.Fatalf("inverted prices: want invalid_argument, got %v", err)
	}

	input.FullPrice = eur("30")
	input.CurrentPrice = types.NewMoney(types.CurrencyUSD, decimal.NewFromInt(20))
	if _, err := svc.EditCourse(context.Background(), input); !apperr.IsCode(err, apperr.CodeCurrencyMismatch) {
		t.Fatalf("mixed currencies: want currency_mismatch, got %v", err)
	}
}

func TestEditCourseStaleVersionConflict(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.CreateCourse(context.Background(), CreateInput{Title: "Go from scratch", Author: "Ada"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	editModel, err := svc.GetCourseForEditing(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetCourseForEditing: %v", err)
	}

	first := validEdit(created)
	first.RowVersion = editModel.RowVersion
	if _, err := svc.EditCourse(context.Background(), first); err != nil {
		t.Fatalf("first edit: %v", err)
	}

	second := validEdit(created)
	second.Description = "Competing change"
	second.RowVersion = editModel.RowVersion // stale by now
	_, err = svc.EditCourse(context.Background(), second)
	if !apperr.IsConcurrencyConflict(err) {
		t.Fatalf("stale edit: want concurrency_conflict, got %v", err)
	}
}

func TestEditCourseTitleConflict(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.CreateCourse(context.Background(), CreateInput{Title: "Go from scratch", Author: "Ada"}); err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	created, err := svc.CreateCourse(context.Background(), CreateInput{Title: "Advanced Go", Author: "Grace"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	editModel, err := svc.GetCourseForEditing(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetCourseForEditing: %v", err)
	}

	input := validEdit(created)
	input.Title = "go from scratch"
	input.RowVersion = editModel.RowVersion
	_, err = svc.EditCourse(context.Background(), input)
	if !apperr.IsTitleUnavailable(err) {
		t.Fatalf("taken title: want title_unavailable, got %v", err)
	}
	if got := apperr.ConflictingTitle(err); got != "go from scratch" {
		t.Fatalf("conflicting title: want %q got %q", "go from scratch", got)
	}
}

func TestEditCourseImagePersisterFailurePropagates(t *testing.T) {
	svc, _, persister := newTestService(t)
	persister.err = errors.New("disk full")

	created, err := svc.CreateCourse(context.Background(), CreateInput{Title: "Go from scratch", Author: "Ada"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	editModel, err := svc.GetCourseForEditing(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetCourseForEditing: %v", err)
	}

	input := validEdit(created)
	input.RowVersion = editModel.RowVersion
	input.Image = &ImageUpload{Content: strings.NewReader("bytes"), Name: "cover.png"}

	_, err = svc.EditCourse(context.Background(), input)
	if err == nil || !errors.Is(err, persister.err) {
		t.Fatalf("persister failure: want wrapped %q, got %v", persister.err, err)
	}
}

func TestIsTitleAvailable(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.CreateCourse(context.Background(), CreateInput{Title: "Go from scratch", Author: "Ada"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}

	available, err := svc.IsTitleAvailable(context.Background(), "GO FROM SCRATCH", uuid.Nil)
	if err != nil {
		t.Fatalf("IsTitleAvailable: %v", err)
	}
	if available {
		t.Fatalf("taken title reported available")
	}

	available, err = svc.IsTitleAvailable(context.Background(), "Go from scratch", created.ID)
	if err != nil {
		t.Fatalf("IsTitleAvailable: %v", err)
	}
	if !available {
		t.Fatalf("own title reported unavailable during edit")
	}
}
