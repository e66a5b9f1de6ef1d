package types

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mycourse/catalog-backend/internal/apperr"
)

type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

// DefaultImagePath is assigned at construction; a course never has an empty
// image path.
const DefaultImagePath = "/courses/default.png"

// DefaultCurrency is the currency new courses are priced in until the author
// sets real prices.
const DefaultCurrency = CurrencyEUR

// Course is the catalog aggregate. It owns its Lessons and every scalar
// invariant: all mutation goes through the Change* methods, which validate
// before assigning so an invalid state is never observable, not even between
// two field writes.
//
// Rating is computed by the store from reviews and has no setter here.
// RowVersion is the optimistic-concurrency token: read with the entity,
// regenerated by the repo on every successful write.
type Course struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	Description  string         `gorm:"column:description" json:"description"`
	Author       string         `gorm:"column:author;not null" json:"author"`
	Email        string         `gorm:"column:email" json:"email"`
	ImagePath    string         `gorm:"column:image_path;not null" json:"image_path"`
	Rating       float64        `gorm:"column:rating;not null;default:0" json:"rating"`
	FullPrice    Money          `gorm:"embedded;embeddedPrefix:full_price_" json:"full_price"`
	CurrentPrice Money          `gorm:"embedded;embeddedPrefix:current_price_" json:"current_price"`
	Status       CourseStatus   `gorm:"column:status;not null;default:'draft'" json:"status"`
	RowVersion   string         `gorm:"column:row_version;not null" json:"row_version"`
	Lessons      []Lesson       `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"lessons,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

// NewCourse builds a draft course with zero prices and the default image.
// The store assigns nothing here; the repo stamps ID and RowVersion on insert.
func NewCourse(title, author string) (*Course, error) {
	course := &Course{
		FullPrice:    Zero(DefaultCurrency),
		CurrentPrice: Zero(DefaultCurrency),
		ImagePath:    DefaultImagePath,
		Lessons:      []Lesson{},
	}
	if err := course.ChangeTitle(title); err != nil {
		return nil, err
	}
	if err := course.ChangeAuthor(author); err != nil {
		return nil, err
	}
	course.ChangeStatus(CourseStatusDraft)
	return course, nil
}

func (c *Course) ChangeTitle(newTitle string) error {
	if strings.TrimSpace(newTitle) == "" {
		return apperr.InvalidArgument("course.change_title", "the course must have a title")
	}
	c.Title = newTitle
	return nil
}

func (c *Course) ChangeAuthor(newAuthor string) error {
	if strings.TrimSpace(newAuthor) == "" {
		return apperr.InvalidArgument("course.change_author", "the course must have an author")
	}
	c.Author = newAuthor
	return nil
}

func (c *Course) ChangeEmail(newEmail string) error {
	if newEmail == "" {
		return apperr.InvalidArgument("course.change_email", "email can't be empty")
	}
	if _, err := mail.ParseAddress(newEmail); err != nil {
		return apperr.InvalidArgument("course.change_email", "email is not a valid address")
	}
	c.Email = newEmail
	return nil
}

func (c *Course) ChangeDescription(newDescription string) error {
	if newDescription == "" {
		return apperr.InvalidArgument("course.change_description", "description can't be empty")
	}
	c.Description = newDescription
	return nil
}

func (c *Course) ChangeImagePath(newPath string) error {
	if newPath == "" {
		return apperr.InvalidArgument("course.change_image_path", "image path can't be empty")
	}
	c.ImagePath = newPath
	return nil
}

// ChangeStatus is intentionally unconditional. Transition rules (e.g. no
// publishing without priced lessons) are a product decision still pending.
func (c *Course) ChangeStatus(newStatus CourseStatus) {
	c.Status = newStatus
}

// ChangePrices assigns both prices or neither. Full price must be strictly
// above the current (discounted) price and both must share one currency.
func (c *Course) ChangePrices(newFullPrice, newCurrentPrice Money) error {
	const op = "course.change_prices"
	if newFullPrice.IsZero() || newCurrentPrice.IsZero() {
		return apperr.InvalidArgument(op, "the course must have both a full and a current price")
	}
	if !newFullPrice.Currency.Valid() || !newCurrentPrice.Currency.Valid() {
		return apperr.InvalidArgument(op, "the course prices must use a supported currency")
	}
	greater, err := newFullPrice.GreaterThan(newCurrentPrice)
	if err != nil {
		return err
	}
	if !greater {
		return apperr.InvalidArgument(op, "the full price must be greater than the current price")
	}
	c.FullPrice = newFullPrice
	c.CurrentPrice = newCurrentPrice
	return nil
}
