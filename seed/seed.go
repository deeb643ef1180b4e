// Package seed loads initial categories, contents and admins from a YAML file.
// Applying a seed file more than once only creates what is missing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spgsite/cms-api/auth"
	"github.com/spgsite/cms-api/models"
	"github.com/spgsite/cms-api/store"
	"github.com/spgsite/cms-api/validation"

	"github.com/Noah-Huppert/golog"
	"github.com/ghodss/yaml"
)

// Category is a category in a seed file
type Category struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	DisplayOrder int    `json:"display_order"`
}

// Content is a content in a seed file. Category is the slug of the category
// the content belongs to.
type Content struct {
	Category     string `json:"category"`
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	Body         string `json:"content"`
	ImageURL     string `json:"image_url"`
	Draft        bool   `json:"draft"`
	Featured     bool   `json:"featured"`
	DisplayOrder int    `json:"display_order"`
}

// Admin is a user who is granted admin access
type Admin struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// File is the content of a seed file
type File struct {
	Categories []Category `json:"categories"`
	Contents   []Content  `json:"contents"`
	Admins     []Admin    `json:"admins"`
}

// Result counts what applying a seed file created
type Result struct {
	Categories int
	Contents   int
	Users      int
	Admins     int
}

// String summarizes the result
func (r Result) String() string {
	return fmt.Sprintf("created %d categories, %d contents, %d users, %d admins",
		r.Categories, r.Contents, r.Users, r.Admins)
}

// Parse reads a seed file from YAML
func Parse(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	return &file, nil
}

// Load reads and parses the seed file at path
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	return Parse(data)
}

// Seeder applies seed files to a store
type Seeder struct {
	// Logger
	Logger golog.Logger

	// Store receives the seeded items
	Store store.Store
}

// Apply creates the items of file which do not exist yet. Categories and
// contents are matched by slug, users by email.
func (s Seeder) Apply(ctx context.Context, file *File) (*Result, error) {
	var res Result

	// {{{1 Categories
	categoryIDs := map[string]string{}

	for i, c := range file.Categories {
		category := models.Category{
			Name:         c.Name,
			Slug:         c.Slug,
			Description:  c.Description,
			ImageURL:     c.ImageURL,
			DisplayOrder: c.DisplayOrder,
		}
		if len(category.Slug) == 0 {
			category.Slug = models.Slugify(category.Name)
		}

		existing, err := s.Store.GetCategoryBySlug(ctx, category.Slug)
		if err == nil {
			categoryIDs[category.Slug] = existing.ID
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to get category \"%s\": %w", category.Slug, err)
		}

		if err := validation.ValidateCategory(category); err != nil {
			return nil, fmt.Errorf("categories[%d]: %s", i, validation.Message(err))
		}

		if err := s.Store.CreateCategory(ctx, &category); err != nil {
			return nil, fmt.Errorf("failed to create category \"%s\": %w", category.Slug, err)
		}

		s.Logger.Debugf("created category %s", category.Slug)
		categoryIDs[category.Slug] = category.ID
		res.Categories++
	}

	// {{{1 Contents
	existingContents, err := s.Store.ListContents(ctx, store.ContentFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list contents: %w", err)
	}

	contentSlugs := map[string]bool{}
	for _, c := range existingContents {
		contentSlugs[c.Slug] = true
	}

	for i, c := range file.Contents {
		content := models.Content{
			Title:        c.Title,
			Slug:         c.Slug,
			Description:  c.Description,
			Body:         c.Body,
			ImageURL:     c.ImageURL,
			IsPublished:  !c.Draft,
			Featured:     c.Featured,
			DisplayOrder: c.DisplayOrder,
		}
		if len(content.Slug) == 0 {
			content.Slug = models.Slugify(content.Title)
		}

		if contentSlugs[content.Slug] {
			continue
		}

		categoryID, err := s.categoryID(ctx, categoryIDs, c.Category)
		if err != nil {
			return nil, fmt.Errorf("contents[%d]: %w", i, err)
		}
		content.CategoryID = categoryID

		if err := validation.ValidateContent(content); err != nil {
			return nil, fmt.Errorf("contents[%d]: %s", i, validation.Message(err))
		}

		if err := s.Store.CreateContent(ctx, &content); err != nil {
			return nil, fmt.Errorf("failed to create content \"%s\": %w", content.Slug, err)
		}

		s.Logger.Debugf("created content %s", content.Slug)
		contentSlugs[content.Slug] = true
		res.Contents++
	}

	// {{{1 Admins
	for i, a := range file.Admins {
		createdUser, createdAdmin, err := GrantAdmin(ctx, s.Store, a.Email, a.Password, a.Username)
		if err != nil {
			return nil, fmt.Errorf("admins[%d]: %w", i, err)
		}

		if createdUser {
			res.Users++
		}
		if createdAdmin {
			s.Logger.Debugf("granted admin access to %s", store.NormalizeEmail(a.Email))
			res.Admins++
		}
	}

	return &res, nil
}

// categoryID resolves a category slug from the seed file or the store
func (s Seeder) categoryID(ctx context.Context, known map[string]string, slug string) (string, error) {
	if len(slug) == 0 {
		return "", fmt.Errorf("category is required")
	}

	if id, ok := known[slug]; ok {
		return id, nil
	}

	category, err := s.Store.GetCategoryBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("category \"%s\" does not exist", slug)
	} else if err != nil {
		return "", fmt.Errorf("failed to get category \"%s\": %w", slug, err)
	}

	known[slug] = category.ID
	return category.ID, nil
}

// AddUser creates a user which can sign in with email and password. Returns
// false if a user with the email already exists.
func AddUser(ctx context.Context, s store.UserStore, email, password string) (*models.User, bool, error) {
	email = store.NormalizeEmail(email)

	user, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}

	if len(password) == 0 {
		return nil, false, fmt.Errorf("password is required to create user %s", email)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, err
	}

	user = &models.User{
		Email:        email,
		PasswordHash: hash,
	}
	if err := validation.ValidateUser(*user); err != nil {
		return nil, false, fmt.Errorf("invalid user: %s", validation.Message(err))
	}

	if err := s.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	return user, true, nil
}

// GrantAdmin makes the user with email an admin, creating the user first if
// needed. An empty username defaults to the part of the email before the @.
// Returns whether the user and the admin entry were created.
func GrantAdmin(ctx context.Context, s store.Store, email, password, username string) (bool, bool, error) {
	user, createdUser, err := AddUser(ctx, s, email, password)
	if err != nil {
		return false, false, err
	}

	_, err = s.GetAdmin(ctx, user.ID)
	if err == nil {
		return createdUser, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return createdUser, false, fmt.Errorf("failed to get admin: %w", err)
	}

	if len(username) == 0 {
		username = strings.SplitN(user.Email, "@", 2)[0]
	}

	err = s.CreateAdmin(ctx, &models.Admin{
		ID:       user.ID,
		Username: username,
	})
	if errors.Is(err, store.ErrConflict) {
		return createdUser, false, nil
	} else if err != nil {
		return createdUser, false, fmt.Errorf("failed to create admin: %w", err)
	}

	return createdUser, true, nil
}
