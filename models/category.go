package models

import (
	"time"
)

// Category groups contents. Categories are shown as sections of the site.
type Category struct {
	// ID uniquely identifies the category
	ID string `json:"id" bson:"_id"`

	// Name to display to users
	Name string `json:"name" bson:"name" validate:"required,max=200"`

	// Slug is the URL safe version of Name
	Slug string `json:"slug" bson:"slug" validate:"required,slug"`

	// Description is optional text shown under the name
	Description string `json:"description,omitempty" bson:"description,omitempty"`

	// ImageURL is a link to the category cover image
	ImageURL string `json:"image_url,omitempty" bson:"image_url,omitempty" validate:"omitempty,image_url"`

	// DisplayOrder sorts categories, lowest first
	DisplayOrder int `json:"display_order" bson:"display_order"`

	// CreatedAt is when the category was created
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// UpdatedAt is when the category was last modified
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// CategorySummary is the part of a Category embedded in contents
type CategorySummary struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
	Slug string `json:"slug" bson:"slug"`
}

// Summary returns the CategorySummary of c
func (c Category) Summary() *CategorySummary {
	return &CategorySummary{
		ID:   c.ID,
		Name: c.Name,
		Slug: c.Slug,
	}
}

// CategoryPatch holds the category fields to change. Nil fields are left untouched.
type CategoryPatch struct {
	Name         *string `json:"name"`
	Slug         *string `json:"slug"`
	Description  *string `json:"description"`
	ImageURL     *string `json:"image_url"`
	DisplayOrder *int    `json:"display_order"`
}

// Fields returns the fields set in the patch keyed by storage field name
func (p CategoryPatch) Fields() map[string]interface{} {
	fields := map[string]interface{}{}

	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Slug != nil {
		fields["slug"] = *p.Slug
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.ImageURL != nil {
		fields["image_url"] = *p.ImageURL
	}
	if p.DisplayOrder != nil {
		fields["display_order"] = *p.DisplayOrder
	}

	return fields
}

// Apply copies the fields set in the patch onto c
func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Slug != nil {
		c.Slug = *p.Slug
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.ImageURL != nil {
		c.ImageURL = *p.ImageURL
	}
	if p.DisplayOrder != nil {
		c.DisplayOrder = *p.DisplayOrder
	}
}
