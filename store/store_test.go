package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spgsite/cms-api/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTime is a fixed instant used for created and updated timestamps
var testTime = time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.UTC)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }

// runStoreTests exercises a Store implementation. Each implementation's
// test calls it with a fresh, empty store.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Admins", func(t *testing.T) { testAdmins(t, newStore(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("Contents", func(t *testing.T) { testContents(t, newStore(t)) })
	t.Run("SliderImages", func(t *testing.T) { testSliderImages(t, newStore(t)) })
	t.Run("ImageURLs", func(t *testing.T) { testImageURLs(t, newStore(t)) })
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()

	user := &models.User{
		Email:        "  Admin@Example.com ",
		PasswordHash: "hash",
		CreatedAt:    testTime,
	}
	require.NoError(t, s.CreateUser(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "admin@example.com", user.Email)

	got, err := s.GetUserByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	if diff := cmp.Diff(user, got); diff != "" {
		t.Errorf("user mismatch (-want +got):\n%s", diff)
	}

	got, err = s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	err = s.CreateUser(ctx, &models.User{Email: "admin@example.com", PasswordHash: "x"})
	assert.True(t, errors.Is(err, ErrConflict), "email must be unique, got %v", err)

	_, err = s.GetUser(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func testAdmins(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.CreateAdmin(ctx, &models.Admin{ID: "u2", Username: "zoe", CreatedAt: testTime}))
	require.NoError(t, s.CreateAdmin(ctx, &models.Admin{ID: "u1", Username: "ana", CreatedAt: testTime}))

	err := s.CreateAdmin(ctx, &models.Admin{ID: "u1", Username: "again"})
	assert.True(t, errors.Is(err, ErrConflict))

	admin, err := s.GetAdmin(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ana", admin.Username)
	assert.Equal(t, testTime.Truncate(time.Millisecond), admin.CreatedAt)

	admins, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Equal(t, "ana", admins[0].Username)
	assert.Equal(t, "zoe", admins[1].Username)

	require.NoError(t, s.DeleteAdmin(ctx, "u1"))
	assert.True(t, errors.Is(s.DeleteAdmin(ctx, "u1"), ErrNotFound))

	_, err = s.GetAdmin(ctx, "u1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func testSessions(t *testing.T, s Store) {
	ctx := context.Background()

	for i, hash := range []string{"expired", "live"} {
		require.NoError(t, s.CreateSession(ctx, &models.Session{
			TokenHash: hash,
			UserID:    "u1",
			CreatedAt: testTime,
			ExpiresAt: testTime.Add(time.Duration(i) * time.Hour),
		}))
	}

	session, err := s.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, testTime.Add(time.Hour).Truncate(time.Millisecond), session.ExpiresAt)

	extended := testTime.Add(48 * time.Hour)
	require.NoError(t, s.ExtendSession(ctx, "live", extended))
	session, err = s.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, extended.Truncate(time.Millisecond), session.ExpiresAt)

	assert.True(t, errors.Is(s.ExtendSession(ctx, "missing", extended), ErrNotFound))

	n, err := s.DeleteExpiredSessions(ctx, testTime)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetSession(ctx, "expired")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.DeleteSession(ctx, "live"))
	assert.True(t, errors.Is(s.DeleteSession(ctx, "live"), ErrNotFound))
}

func testCategories(t *testing.T, s Store) {
	ctx := context.Background()

	news := &models.Category{Name: "News", Slug: "news", DisplayOrder: 2, CreatedAt: testTime}
	events := &models.Category{Name: "Events", Slug: "events", DisplayOrder: 1,
		Description: "Upcoming", CreatedAt: testTime}
	require.NoError(t, s.CreateCategory(ctx, news))
	require.NoError(t, s.CreateCategory(ctx, events))

	err := s.CreateCategory(ctx, &models.Category{Name: "Other news", Slug: "news"})
	assert.True(t, errors.Is(err, ErrConflict), "slug must be unique")

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	if diff := cmp.Diff([]models.Category{*events, *news}, categories); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}

	bySlug, err := s.GetCategoryBySlug(ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, events.ID, bySlug.ID)

	later := testTime.Add(time.Minute)
	updated, err := s.UpdateCategory(ctx, news.ID, models.CategoryPatch{
		Name:     strPtr("Latest news"),
		ImageURL: strPtr("https://cdn.example.com/news.png"),
	}, later)
	require.NoError(t, err)
	assert.Equal(t, "Latest news", updated.Name)
	assert.Equal(t, "news", updated.Slug)
	assert.Equal(t, "https://cdn.example.com/news.png", updated.ImageURL)
	assert.Equal(t, later.Truncate(time.Millisecond), updated.UpdatedAt)
	assert.Equal(t, news.CreatedAt, updated.CreatedAt)

	_, err = s.UpdateCategory(ctx, "missing", models.CategoryPatch{Name: strPtr("x")}, later)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.DeleteCategory(ctx, news.ID))
	assert.True(t, errors.Is(s.DeleteCategory(ctx, news.ID), ErrNotFound))
}

func testContents(t *testing.T, s Store) {
	ctx := context.Background()

	category := &models.Category{Name: "News", Slug: "news"}
	require.NoError(t, s.CreateCategory(ctx, category))

	contents := []*models.Content{
		{CategoryID: category.ID, Title: "Draft", Slug: "draft", DisplayOrder: 0},
		{CategoryID: category.ID, Title: "Second", Slug: "second", IsPublished: true,
			Featured: true, DisplayOrder: 2},
		{CategoryID: category.ID, Title: "First", Slug: "first", IsPublished: true,
			Featured: true, DisplayOrder: 1, Body: "Body text"},
		{CategoryID: "gone", Title: "Orphan", Slug: "orphan", IsPublished: true},
	}
	for _, c := range contents {
		c.CreatedAt = testTime
		require.NoError(t, s.CreateContent(ctx, c))
	}

	err := s.CreateContent(ctx, &models.Content{CategoryID: category.ID, Title: "Again", Slug: "first"})
	assert.True(t, errors.Is(err, ErrConflict), "slug must be unique")

	all, err := s.ListContents(ctx, ContentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	highlights, err := s.ListContents(ctx, ContentFilter{PublishedOnly: true, FeaturedOnly: true, Limit: 5})
	require.NoError(t, err)
	require.Len(t, highlights, 2)
	assert.Equal(t, "First", highlights[0].Title)
	assert.Equal(t, "Body text", highlights[0].Body)
	assert.Equal(t, "Second", highlights[1].Title)
	if diff := cmp.Diff(category.Summary(), highlights[0].Category); diff != "" {
		t.Errorf("category summary mismatch (-want +got):\n%s", diff)
	}

	limited, err := s.ListContents(ctx, ContentFilter{PublishedOnly: true, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	inCategory, err := s.ListContents(ctx, ContentFilter{CategoryID: category.ID})
	require.NoError(t, err)
	assert.Len(t, inCategory, 3)

	n, err := s.CountContents(ctx, ContentFilter{CategoryID: category.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	orphan, err := s.GetContent(ctx, contents[3].ID)
	require.NoError(t, err)
	assert.Nil(t, orphan.Category, "category no longer exists")

	later := testTime.Add(time.Hour)
	updated, err := s.UpdateContent(ctx, contents[0].ID, models.ContentPatch{
		IsPublished:  boolPtr(true),
		DisplayOrder: intPtr(9),
		Body:         strPtr("Now published"),
	}, later)
	require.NoError(t, err)
	assert.True(t, updated.IsPublished)
	assert.False(t, updated.Featured)
	assert.Equal(t, 9, updated.DisplayOrder)
	assert.Equal(t, "Now published", updated.Body)
	assert.Equal(t, "Draft", updated.Title)
	assert.Equal(t, later.Truncate(time.Millisecond), updated.UpdatedAt)
	require.NotNil(t, updated.Category)
	assert.Equal(t, "news", updated.Category.Slug)

	_, err = s.UpdateContent(ctx, "missing", models.ContentPatch{}, later)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.DeleteContent(ctx, contents[0].ID))
	_, err = s.GetContent(ctx, contents[0].ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.DeleteContent(ctx, contents[0].ID), ErrNotFound))
}

func testSliderImages(t *testing.T, s Store) {
	ctx := context.Background()

	a := &models.SliderImage{ImageURL: "https://cdn.example.com/a.png", DisplayOrder: 1, CreatedAt: testTime}
	b := &models.SliderImage{ImageURL: "https://cdn.example.com/b.png", DisplayOrder: 0, CreatedAt: testTime}
	require.NoError(t, s.CreateSliderImage(ctx, a))
	require.NoError(t, s.CreateSliderImage(ctx, b))

	images, err := s.ListSliderImages(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]models.SliderImage{*b, *a}, images); diff != "" {
		t.Errorf("slider images mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, s.SetSliderImageOrder(ctx, a.ID, 0))
	require.NoError(t, s.SetSliderImageOrder(ctx, b.ID, 1))
	assert.True(t, errors.Is(s.SetSliderImageOrder(ctx, "missing", 3), ErrNotFound))

	images, err = s.ListSliderImages(ctx)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, a.ID, images[0].ID)

	got, err := s.GetSliderImage(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.DisplayOrder)

	require.NoError(t, s.DeleteSliderImage(ctx, a.ID))
	assert.True(t, errors.Is(s.DeleteSliderImage(ctx, a.ID), ErrNotFound))
}

func testImageURLs(t *testing.T, s Store) {
	ctx := context.Background()

	category := &models.Category{Name: "News", Slug: "news", ImageURL: "https://x/cat.png"}
	require.NoError(t, s.CreateCategory(ctx, category))
	require.NoError(t, s.CreateContent(ctx, &models.Content{
		CategoryID: category.ID, Title: "A", Slug: "a", ImageURL: "https://x/shared.png",
	}))
	require.NoError(t, s.CreateContent(ctx, &models.Content{
		CategoryID: category.ID, Title: "B", Slug: "b",
	}))
	require.NoError(t, s.CreateSliderImage(ctx, &models.SliderImage{ImageURL: "https://x/shared.png"}))

	urls, err := s.ListImageURLs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"https://x/cat.png", "https://x/shared.png"}, urls)
}
