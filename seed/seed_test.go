package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spgsite/cms-api/auth"
	"github.com/spgsite/cms-api/store"

	"github.com/Noah-Huppert/golog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
categories:
  - name: Notícias
  - name: Eventos
    slug: agenda
    display_order: 1
contents:
  - category: agenda
    title: Festa Junina
    featured: true
  - category: noticias
    title: Rascunho
    draft: true
admins:
  - email: Boss@Example.com
    password: hunter22
    username: boss
`

func newTestSeeder(t *testing.T) Seeder {
	ctx := context.Background()

	s, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "cms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(ctx) })

	return Seeder{
		Logger: golog.NewStdLogger("seed-test"),
		Store:  s,
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	seeder := newTestSeeder(t)

	file, err := Parse([]byte(seedYAML))
	require.NoError(t, err)

	res, err := seeder.Apply(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, Result{Categories: 2, Contents: 2, Users: 1, Admins: 1}, *res)

	agenda, err := seeder.Store.GetCategoryBySlug(ctx, "agenda")
	require.NoError(t, err)
	assert.Equal(t, "Eventos", agenda.Name)

	contents, err := seeder.Store.ListContents(ctx, store.ContentFilter{CategoryID: agenda.ID})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, "festa-junina", contents[0].Slug)
	assert.True(t, contents[0].Featured)
	assert.True(t, contents[0].IsPublished)

	published, err := seeder.Store.CountContents(ctx, store.ContentFilter{PublishedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), published)

	user, err := seeder.Store.GetUserByEmail(ctx, "boss@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("hunter22", user.PasswordHash))

	admin, err := seeder.Store.GetAdmin(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "boss", admin.Username)

	res, err = seeder.Apply(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, Result{}, *res, "applying twice creates nothing")
}

func TestApplyErrors(t *testing.T) {
	ctx := context.Background()
	seeder := newTestSeeder(t)

	_, err := seeder.Apply(ctx, &File{Contents: []Content{{Title: "x", Category: "missing"}}})
	assert.ErrorContains(t, err, "category \"missing\" does not exist")

	_, err = seeder.Apply(ctx, &File{Categories: []Category{{Slug: "no-name"}}})
	assert.ErrorContains(t, err, "Name is required")

	_, err = seeder.Apply(ctx, &File{Admins: []Admin{{Email: "a@b.c"}}})
	assert.ErrorContains(t, err, "password is required")

	_, err = Parse([]byte("categories: {"))
	assert.Error(t, err)
}

func TestGrantAdminExistingUser(t *testing.T) {
	ctx := context.Background()
	seeder := newTestSeeder(t)

	user, created, err := AddUser(ctx, seeder.Store, "editor@example.com", "hunter22")
	require.NoError(t, err)
	assert.True(t, created)

	createdUser, createdAdmin, err := GrantAdmin(ctx, seeder.Store, "EDITOR@example.com", "", "")
	require.NoError(t, err)
	assert.False(t, createdUser)
	assert.True(t, createdAdmin)

	admin, err := seeder.Store.GetAdmin(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "editor", admin.Username)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0644))

	file, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, file.Categories, 2)
	assert.Equal(t, "agenda", file.Contents[0].Category)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
