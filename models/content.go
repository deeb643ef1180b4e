package models

import (
	"time"
)

// Content is a piece of content which belongs to a category. Published,
// featured contents are shown as highlights on the home page.
type Content struct {
	// ID uniquely identifies the content
	ID string `json:"id" bson:"_id"`

	// CategoryID is the ID of the category the content belongs to
	CategoryID string `json:"category_id" bson:"category_id" validate:"required"`

	// Title to display to users
	Title string `json:"title" bson:"title" validate:"required,max=300"`

	// Slug is the URL safe version of Title
	Slug string `json:"slug" bson:"slug" validate:"required,slug"`

	// Description is a short summary
	Description string `json:"description,omitempty" bson:"description,omitempty"`

	// Body is the full text of the content
	Body string `json:"content,omitempty" bson:"body,omitempty"`

	// ImageURL is a link to the content image
	ImageURL string `json:"image_url,omitempty" bson:"image_url,omitempty" validate:"omitempty,image_url"`

	// IsPublished indicates the content is visible to the public
	IsPublished bool `json:"is_published" bson:"is_published"`

	// Featured contents are listed as highlights
	Featured bool `json:"featured" bson:"featured"`

	// DisplayOrder sorts contents, lowest first
	DisplayOrder int `json:"display_order" bson:"display_order"`

	// CreatedAt is when the content was created
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// UpdatedAt is when the content was last modified
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ContentWithCategory is a Content with a summary of its category.
// Category is nil if the category no longer exists.
type ContentWithCategory struct {
	Content `bson:",inline"`

	Category *CategorySummary `json:"categories" bson:"-"`
}

// ContentPatch holds the content fields to change. Nil fields are left untouched.
type ContentPatch struct {
	CategoryID   *string `json:"category_id"`
	Title        *string `json:"title"`
	Slug         *string `json:"slug"`
	Description  *string `json:"description"`
	Body         *string `json:"content"`
	ImageURL     *string `json:"image_url"`
	IsPublished  *bool   `json:"is_published"`
	Featured     *bool   `json:"featured"`
	DisplayOrder *int    `json:"display_order"`
}

// Fields returns the fields set in the patch keyed by storage field name
func (p ContentPatch) Fields() map[string]interface{} {
	fields := map[string]interface{}{}

	if p.CategoryID != nil {
		fields["category_id"] = *p.CategoryID
	}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Slug != nil {
		fields["slug"] = *p.Slug
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Body != nil {
		fields["body"] = *p.Body
	}
	if p.ImageURL != nil {
		fields["image_url"] = *p.ImageURL
	}
	if p.IsPublished != nil {
		fields["is_published"] = *p.IsPublished
	}
	if p.Featured != nil {
		fields["featured"] = *p.Featured
	}
	if p.DisplayOrder != nil {
		fields["display_order"] = *p.DisplayOrder
	}

	return fields
}

// Apply copies the fields set in the patch onto c
func (p ContentPatch) Apply(c *Content) {
	if p.CategoryID != nil {
		c.CategoryID = *p.CategoryID
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Slug != nil {
		c.Slug = *p.Slug
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Body != nil {
		c.Body = *p.Body
	}
	if p.ImageURL != nil {
		c.ImageURL = *p.ImageURL
	}
	if p.IsPublished != nil {
		c.IsPublished = *p.IsPublished
	}
	if p.Featured != nil {
		c.Featured = *p.Featured
	}
	if p.DisplayOrder != nil {
		c.DisplayOrder = *p.DisplayOrder
	}
}
