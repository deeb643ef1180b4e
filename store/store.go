// Package store persists the data of the admin panel: users, the admins
// allow-list, sessions, categories, contents and slider images.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spgsite/cms-api/config"
	"github.com/spgsite/cms-api/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the requested item does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint
var ErrConflict = errors.New("conflict")

// ContentFilter restricts which contents are listed
type ContentFilter struct {
	// CategoryID only lists contents in this category, ignored if empty
	CategoryID string

	// PublishedOnly only lists published contents
	PublishedOnly bool

	// FeaturedOnly only lists featured contents
	FeaturedOnly bool

	// Limit is the maximum number of contents returned, 0 means no limit
	Limit int64
}

// UserStore stores users which can sign in
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AdminStore stores the admins allow-list
type AdminStore interface {
	CreateAdmin(ctx context.Context, admin *models.Admin) error
	GetAdmin(ctx context.Context, id string) (*models.Admin, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	DeleteAdmin(ctx context.Context, id string) error
}

// SessionStore stores sessions by token hash
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, tokenHash string) (*models.Session, error)
	ExtendSession(ctx context.Context, tokenHash string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, tokenHash string) error

	// DeleteExpiredSessions removes sessions which expired at or before now,
	// returns the number of sessions removed
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// CategoryStore stores categories. Lists are ordered by display order.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, id string, patch models.CategoryPatch, updatedAt time.Time) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// ContentStore stores contents. Lists are ordered by display order and
// every content is returned with a summary of its category.
type ContentStore interface {
	ListContents(ctx context.Context, filter ContentFilter) ([]models.ContentWithCategory, error)
	CountContents(ctx context.Context, filter ContentFilter) (int64, error)
	GetContent(ctx context.Context, id string) (*models.ContentWithCategory, error)
	CreateContent(ctx context.Context, content *models.Content) error
	UpdateContent(ctx context.Context, id string, patch models.ContentPatch, updatedAt time.Time) (*models.ContentWithCategory, error)
	DeleteContent(ctx context.Context, id string) error
}

// SliderImageStore stores slider images. Lists are ordered by display order.
type SliderImageStore interface {
	ListSliderImages(ctx context.Context) ([]models.SliderImage, error)
	GetSliderImage(ctx context.Context, id string) (*models.SliderImage, error)
	CreateSliderImage(ctx context.Context, image *models.SliderImage) error
	SetSliderImageOrder(ctx context.Context, id string, displayOrder int) error
	DeleteSliderImage(ctx context.Context, id string) error
}

// Store holds all data
type Store interface {
	UserStore
	AdminStore
	SessionStore
	CategoryStore
	ContentStore
	SliderImageStore

	// ListImageURLs returns every image URL referenced by a category,
	// content or slider image
	ListImageURLs(ctx context.Context) ([]string, error)

	// Ping checks the connection to the database
	Ping(ctx context.Context) error

	// Close releases the connection to the database
	Close(ctx context.Context) error
}

// Open connects to the store selected by cfg.StoreDriver
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		return NewMongoStore(ctx, cfg)
	case config.StoreDriverSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver \"%s\"", cfg.StoreDriver)
	}
}

// normalizeTime drops precision the databases cannot store so values read
// back compare equal to values written
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NormalizeEmail lower cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newID returns an ID for a new item
func newID() string {
	return uuid.New().String()
}

// prepareUser fills in the defaults of a new user
func prepareUser(user *models.User) {
	if len(user.ID) == 0 {
		user.ID = newID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	user.Email = NormalizeEmail(user.Email)
	user.CreatedAt = normalizeTime(user.CreatedAt)
}

// prepareAdmin fills in the defaults of a new admin
func prepareAdmin(admin *models.Admin) {
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now()
	}

	admin.CreatedAt = normalizeTime(admin.CreatedAt)
}

// prepareSession normalizes the timestamps of a new session
func prepareSession(session *models.Session) {
	session.CreatedAt = normalizeTime(session.CreatedAt)
	session.ExpiresAt = normalizeTime(session.ExpiresAt)
}

// prepareCategory fills in the defaults of a new category
func prepareCategory(category *models.Category) {
	if len(category.ID) == 0 {
		category.ID = newID()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now()
	}
	if category.UpdatedAt.IsZero() {
		category.UpdatedAt = category.CreatedAt
	}

	category.CreatedAt = normalizeTime(category.CreatedAt)
	category.UpdatedAt = normalizeTime(category.UpdatedAt)
}

// prepareContent fills in the defaults of a new content
func prepareContent(content *models.Content) {
	if len(content.ID) == 0 {
		content.ID = newID()
	}
	if content.CreatedAt.IsZero() {
		content.CreatedAt = time.Now()
	}
	if content.UpdatedAt.IsZero() {
		content.UpdatedAt = content.CreatedAt
	}

	content.CreatedAt = normalizeTime(content.CreatedAt)
	content.UpdatedAt = normalizeTime(content.UpdatedAt)
}

// prepareSliderImage fills in the defaults of a new slider image
func prepareSliderImage(image *models.SliderImage) {
	if len(image.ID) == 0 {
		image.ID = newID()
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now()
	}

	image.CreatedAt = normalizeTime(image.CreatedAt)
}
