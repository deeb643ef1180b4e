package models

import (
	"time"
)

// SliderImage is an image in the home page slider
type SliderImage struct {
	// ID uniquely identifies the image
	ID string `json:"id" bson:"_id"`

	// ImageURL is the public URL of the image
	ImageURL string `json:"image_url" bson:"image_url" validate:"required,image_url"`

	// DisplayOrder sorts images, lowest first
	DisplayOrder int `json:"display_order" bson:"display_order"`

	// CreatedAt is when the image was uploaded
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// SliderImageOrder assigns a display order to a slider image
type SliderImageOrder struct {
	ID           string `json:"id" validate:"required"`
	DisplayOrder int    `json:"display_order"`
}
