package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spgsite/cms-api/models"

	_ "modernc.org/sqlite"
)

// sqliteSchema creates the tables. Timestamps are unix milliseconds.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS admins (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	token_hash TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expires_at ON sessions(expires_at);

CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	display_order INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS contents (
	id TEXT PRIMARY KEY,
	category_id TEXT NOT NULL,
	title TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	is_published INTEGER NOT NULL DEFAULT 0,
	featured INTEGER NOT NULL DEFAULT 0,
	display_order INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS contents_category ON contents(category_id, display_order);

CREATE TABLE IF NOT EXISTS slider_images (
	id TEXT PRIMARY KEY,
	image_url TEXT NOT NULL,
	display_order INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
`

// SQLiteStore is a Store kept in a single SQLite file. Used for local
// development and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database file at path, creating it and the
// schema if needed
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// sqliteErr converts driver errors into store errors
func sqliteErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %s", ErrConflict, err.Error())
	}

	return err
}

// millis converts a time to the stored representation
func millis(t time.Time) int64 {
	return normalizeTime(t).UnixMilli()
}

// fromMillis converts a stored timestamp to a time
func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// mustAffect returns ErrNotFound if the statement changed no rows
func mustAffect(res sql.Result, err error) error {
	if err != nil {
		return sqliteErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// updateStatement builds an UPDATE of the fields plus updated_at for the row with id
func updateStatement(table string, fields map[string]interface{}, id string, updatedAt time.Time) (string, []interface{}) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := []string{}
	args := []interface{}{}
	for _, k := range keys {
		sets = append(sets, k+" = ?")
		args = append(args, fields[k])
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, millis(updatedAt), id)

	return fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", ")), args
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// {{{1 Users

// CreateUser implements UserStore.CreateUser
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	prepareUser(user)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.ID, user.Email, user.PasswordHash, millis(user.CreatedAt))
	return sqliteErr(err)
}

// getUser returns the user matching the where clause
func (s *SQLiteStore) getUser(ctx context.Context, where string, arg string) (*models.User, error) {
	var user models.User
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE "+where, arg).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &createdAt)
	if err != nil {
		return nil, sqliteErr(err)
	}

	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}

// GetUser implements UserStore.GetUser
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByEmail implements UserStore.GetUserByEmail
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", NormalizeEmail(email))
}

// {{{1 Admins

// CreateAdmin implements AdminStore.CreateAdmin
func (s *SQLiteStore) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	prepareAdmin(admin)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO admins (id, username, created_at) VALUES (?, ?, ?)",
		admin.ID, admin.Username, millis(admin.CreatedAt))
	return sqliteErr(err)
}

// scanAdmin reads an admin row
func scanAdmin(row rowScanner) (*models.Admin, error) {
	var admin models.Admin
	var createdAt int64

	if err := row.Scan(&admin.ID, &admin.Username, &createdAt); err != nil {
		return nil, sqliteErr(err)
	}

	admin.CreatedAt = fromMillis(createdAt)
	return &admin, nil
}

// GetAdmin implements AdminStore.GetAdmin
func (s *SQLiteStore) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	return scanAdmin(s.db.QueryRowContext(ctx,
		"SELECT id, username, created_at FROM admins WHERE id = ?", id))
}

// ListAdmins implements AdminStore.ListAdmins
func (s *SQLiteStore) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, created_at FROM admins ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	defer rows.Close()

	admins := []models.Admin{}
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read admin: %w", err)
		}

		admins = append(admins, *admin)
	}

	return admins, rows.Err()
}

// DeleteAdmin implements AdminStore.DeleteAdmin
func (s *SQLiteStore) DeleteAdmin(ctx context.Context, id string) error {
	return mustAffect(s.db.ExecContext(ctx, "DELETE FROM admins WHERE id = ?", id))
}

// {{{1 Sessions

// CreateSession implements SessionStore.CreateSession
func (s *SQLiteStore) CreateSession(ctx context.Context, session *models.Session) error {
	prepareSession(session)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (token_hash, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		session.TokenHash, session.UserID, millis(session.CreatedAt), millis(session.ExpiresAt))
	return sqliteErr(err)
}

// GetSession implements SessionStore.GetSession
func (s *SQLiteStore) GetSession(ctx context.Context, tokenHash string) (*models.Session, error) {
	var session models.Session
	var createdAt, expiresAt int64

	err := s.db.QueryRowContext(ctx,
		"SELECT token_hash, user_id, created_at, expires_at FROM sessions WHERE token_hash = ?",
		tokenHash).Scan(&session.TokenHash, &session.UserID, &createdAt, &expiresAt)
	if err != nil {
		return nil, sqliteErr(err)
	}

	session.CreatedAt = fromMillis(createdAt)
	session.ExpiresAt = fromMillis(expiresAt)
	return &session, nil
}

// ExtendSession implements SessionStore.ExtendSession
func (s *SQLiteStore) ExtendSession(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	return mustAffect(s.db.ExecContext(ctx,
		"UPDATE sessions SET expires_at = ? WHERE token_hash = ?",
		millis(expiresAt), tokenHash))
}

// DeleteSession implements SessionStore.DeleteSession
func (s *SQLiteStore) DeleteSession(ctx context.Context, tokenHash string) error {
	return mustAffect(s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE token_hash = ?", tokenHash))
}

// DeleteExpiredSessions implements SessionStore.DeleteExpiredSessions
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?", millis(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return res.RowsAffected()
}

// {{{1 Categories

const categoryColumns = "id, name, slug, description, image_url, display_order, created_at, updated_at"

// scanCategory reads a category row
func scanCategory(row rowScanner) (*models.Category, error) {
	var category models.Category
	var createdAt, updatedAt int64

	err := row.Scan(&category.ID, &category.Name, &category.Slug,
		&category.Description, &category.ImageURL, &category.DisplayOrder,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, sqliteErr(err)
	}

	category.CreatedAt = fromMillis(createdAt)
	category.UpdatedAt = fromMillis(updatedAt)
	return &category, nil
}

// ListCategories implements CategoryStore.ListCategories
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories ORDER BY display_order, created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read category: %w", err)
		}

		categories = append(categories, *category)
	}

	return categories, rows.Err()
}

// GetCategory implements CategoryStore.GetCategory
func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = ?", id))
}

// GetCategoryBySlug implements CategoryStore.GetCategoryBySlug
func (s *SQLiteStore) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE slug = ?", slug))
}

// CreateCategory implements CategoryStore.CreateCategory
func (s *SQLiteStore) CreateCategory(ctx context.Context, category *models.Category) error {
	prepareCategory(category)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO categories ("+categoryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		category.ID, category.Name, category.Slug, category.Description,
		category.ImageURL, category.DisplayOrder,
		millis(category.CreatedAt), millis(category.UpdatedAt))
	return sqliteErr(err)
}

// UpdateCategory implements CategoryStore.UpdateCategory
func (s *SQLiteStore) UpdateCategory(ctx context.Context, id string, patch models.CategoryPatch, updatedAt time.Time) (*models.Category, error) {
	query, args := updateStatement("categories", patch.Fields(), id, updatedAt)
	if err := mustAffect(s.db.ExecContext(ctx, query, args...)); err != nil {
		return nil, err
	}

	return s.GetCategory(ctx, id)
}

// DeleteCategory implements CategoryStore.DeleteCategory
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	return mustAffect(s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id))
}

// {{{1 Contents

const contentSelect = `SELECT c.id, c.category_id, c.title, c.slug, c.description,
	c.body, c.image_url, c.is_published, c.featured, c.display_order,
	c.created_at, c.updated_at, cat.id, cat.name, cat.slug
FROM contents c LEFT JOIN categories cat ON cat.id = c.category_id`

// scanContent reads a row selected by contentSelect
func scanContent(row rowScanner) (*models.ContentWithCategory, error) {
	var content models.ContentWithCategory
	var createdAt, updatedAt int64
	var catID, catName, catSlug sql.NullString

	err := row.Scan(&content.ID, &content.CategoryID, &content.Title,
		&content.Slug, &content.Description, &content.Body, &content.ImageURL,
		&content.IsPublished, &content.Featured, &content.DisplayOrder,
		&createdAt, &updatedAt, &catID, &catName, &catSlug)
	if err != nil {
		return nil, sqliteErr(err)
	}

	content.CreatedAt = fromMillis(createdAt)
	content.UpdatedAt = fromMillis(updatedAt)

	if catID.Valid {
		content.Category = &models.CategorySummary{
			ID:   catID.String,
			Name: catName.String,
			Slug: catSlug.String,
		}
	}

	return &content, nil
}

// contentWhere builds the WHERE clause of a ContentFilter
func contentWhere(filter ContentFilter) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}

	if len(filter.CategoryID) > 0 {
		conds = append(conds, "c.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.PublishedOnly {
		conds = append(conds, "c.is_published = 1")
	}
	if filter.FeaturedOnly {
		conds = append(conds, "c.featured = 1")
	}

	if len(conds) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListContents implements ContentStore.ListContents
func (s *SQLiteStore) ListContents(ctx context.Context, filter ContentFilter) ([]models.ContentWithCategory, error) {
	where, args := contentWhere(filter)
	query := contentSelect + where + " ORDER BY c.display_order, c.created_at"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contents: %w", err)
	}
	defer rows.Close()

	contents := []models.ContentWithCategory{}
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read content: %w", err)
		}

		contents = append(contents, *content)
	}

	return contents, rows.Err()
}

// CountContents implements ContentStore.CountContents
func (s *SQLiteStore) CountContents(ctx context.Context, filter ContentFilter) (int64, error) {
	where, args := contentWhere(filter)

	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contents c"+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count contents: %w", err)
	}

	if filter.Limit > 0 && n > filter.Limit {
		n = filter.Limit
	}

	return n, nil
}

// GetContent implements ContentStore.GetContent
func (s *SQLiteStore) GetContent(ctx context.Context, id string) (*models.ContentWithCategory, error) {
	return scanContent(s.db.QueryRowContext(ctx, contentSelect+" WHERE c.id = ?", id))
}

// CreateContent implements ContentStore.CreateContent
func (s *SQLiteStore) CreateContent(ctx context.Context, content *models.Content) error {
	prepareContent(content)

	_, err := s.db.ExecContext(ctx, `INSERT INTO contents (id, category_id, title,
		slug, description, body, image_url, is_published, featured, display_order,
		created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		content.ID, content.CategoryID, content.Title, content.Slug,
		content.Description, content.Body, content.ImageURL, content.IsPublished,
		content.Featured, content.DisplayOrder,
		millis(content.CreatedAt), millis(content.UpdatedAt))
	return sqliteErr(err)
}

// UpdateContent implements ContentStore.UpdateContent
func (s *SQLiteStore) UpdateContent(ctx context.Context, id string, patch models.ContentPatch, updatedAt time.Time) (*models.ContentWithCategory, error) {
	query, args := updateStatement("contents", patch.Fields(), id, updatedAt)
	if err := mustAffect(s.db.ExecContext(ctx, query, args...)); err != nil {
		return nil, err
	}

	return s.GetContent(ctx, id)
}

// DeleteContent implements ContentStore.DeleteContent
func (s *SQLiteStore) DeleteContent(ctx context.Context, id string) error {
	return mustAffect(s.db.ExecContext(ctx, "DELETE FROM contents WHERE id = ?", id))
}

// {{{1 Slider images

// scanSliderImage reads a slider image row
func scanSliderImage(row rowScanner) (*models.SliderImage, error) {
	var image models.SliderImage
	var createdAt int64

	if err := row.Scan(&image.ID, &image.ImageURL, &image.DisplayOrder, &createdAt); err != nil {
		return nil, sqliteErr(err)
	}

	image.CreatedAt = fromMillis(createdAt)
	return &image, nil
}

// ListSliderImages implements SliderImageStore.ListSliderImages
func (s *SQLiteStore) ListSliderImages(ctx context.Context) ([]models.SliderImage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, image_url, display_order, created_at
		FROM slider_images ORDER BY display_order, created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query slider images: %w", err)
	}
	defer rows.Close()

	images := []models.SliderImage{}
	for rows.Next() {
		image, err := scanSliderImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read slider image: %w", err)
		}

		images = append(images, *image)
	}

	return images, rows.Err()
}

// GetSliderImage implements SliderImageStore.GetSliderImage
func (s *SQLiteStore) GetSliderImage(ctx context.Context, id string) (*models.SliderImage, error) {
	return scanSliderImage(s.db.QueryRowContext(ctx,
		"SELECT id, image_url, display_order, created_at FROM slider_images WHERE id = ?", id))
}

// CreateSliderImage implements SliderImageStore.CreateSliderImage
func (s *SQLiteStore) CreateSliderImage(ctx context.Context, image *models.SliderImage) error {
	prepareSliderImage(image)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO slider_images (id, image_url, display_order, created_at) VALUES (?, ?, ?, ?)",
		image.ID, image.ImageURL, image.DisplayOrder, millis(image.CreatedAt))
	return sqliteErr(err)
}

// SetSliderImageOrder implements SliderImageStore.SetSliderImageOrder
func (s *SQLiteStore) SetSliderImageOrder(ctx context.Context, id string, displayOrder int) error {
	return mustAffect(s.db.ExecContext(ctx,
		"UPDATE slider_images SET display_order = ? WHERE id = ?", displayOrder, id))
}

// DeleteSliderImage implements SliderImageStore.DeleteSliderImage
func (s *SQLiteStore) DeleteSliderImage(ctx context.Context, id string) error {
	return mustAffect(s.db.ExecContext(ctx, "DELETE FROM slider_images WHERE id = ?", id))
}

// {{{1 Other

// ListImageURLs implements Store.ListImageURLs
func (s *SQLiteStore) ListImageURLs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT image_url FROM categories WHERE image_url != ''
		UNION SELECT image_url FROM contents WHERE image_url != ''
		UNION SELECT image_url FROM slider_images WHERE image_url != ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to query image URLs: %w", err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to read image URL: %w", err)
		}

		urls = append(urls, u)
	}

	return urls, rows.Err()
}

// Ping implements Store.Ping
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.Close
func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}
