package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":           "hello-world",
		"  Hello   World  ":     "hello-world",
		"Promoção de Verão":     "promocao-de-verao",
		"Café & Bar!":           "cafe-bar",
		"A - B":                 "a-b",
		"already-a-slug":        "already-a-slug",
		"snake_case Title 2024": "snake_case-title-2024",
		"!!!":                   "",
	}

	for in, expected := range cases {
		assert.Equalf(t, expected, Slugify(in), "Slugify(%q)", in)
	}
}

func TestSlugExp(t *testing.T) {
	for _, s := range []string{"a", "hello-world", "x_1-2"} {
		assert.Truef(t, SlugExp.MatchString(s), "%q should be a valid slug", s)
	}

	for _, s := range []string{"", "-a", "a-", "a--b", "Hello", "a b"} {
		assert.Falsef(t, SlugExp.MatchString(s), "%q should not be a valid slug", s)
	}
}

func TestContentPatchFields(t *testing.T) {
	title := "New title"
	published := false
	order := 3

	patch := ContentPatch{
		Title:        &title,
		IsPublished:  &published,
		DisplayOrder: &order,
	}

	assert.Equal(t, map[string]interface{}{
		"title":         "New title",
		"is_published":  false,
		"display_order": 3,
	}, patch.Fields())

	content := Content{Title: "Old", IsPublished: true, Slug: "old"}
	patch.Apply(&content)

	assert.Equal(t, "New title", content.Title)
	assert.False(t, content.IsPublished)
	assert.Equal(t, 3, content.DisplayOrder)
	assert.Equal(t, "old", content.Slug)
}
