package parsing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/spgsite/cms-api/models"
	"github.com/spgsite/cms-api/req"
)

// multipartMemory is how much of a multipart form is kept in memory, the rest
// is spooled to temporary files
const multipartMemory = 8 << 20

// ImageFieldName is the multipart field which holds an uploaded image
const ImageFieldName = "image"

// ImageUpload is an image file sent in a multipart form
type ImageUpload struct {
	// Filename is the name of the file on the client
	Filename string

	// ContentType is the MIME type declared by the client
	ContentType string

	// Size in bytes
	Size int64

	// File is the content of the upload
	File multipart.File
}

// Close releases the upload's file
func (u *ImageUpload) Close() error {
	if u == nil || u.File == nil {
		return nil
	}

	return u.File.Close()
}

// ContentForm is the body of a content or highlight create or update request
type ContentForm struct {
	models.ContentPatch

	// Image is an optional uploaded image
	Image *ImageUpload `json:"-"`
}

// CategoryForm is the body of a category create or update request
type CategoryForm struct {
	models.CategoryPatch

	// Image is an optional uploaded image
	Image *ImageUpload `json:"-"`
}

// SliderImageForm is the body of a slider image upload
type SliderImageForm struct {
	// DisplayOrder of the new image, 0 if not given or not a number
	DisplayOrder int

	// Image is the uploaded image, always set
	Image *ImageUpload
}

// ReorderRequest is the body of a slider reorder request
type ReorderRequest struct {
	Images []models.SliderImageOrder `json:"images"`
}

// LoginRequest is the body of an email and password login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// {{{1 Helpers

// DecodeJSON decodes a JSON request body into dest. An empty body leaves
// dest untouched.
func DecodeJSON(r *http.Request, dest interface{}) error {
	if !req.IsJSON(r) {
		return ParseError{
			What:            "request body",
			Why:             fmt.Sprintf("Content-Type \"%s\" is not supported", r.Header.Get("Content-Type")),
			FixInstructions: "send application/json or multipart/form-data",
		}
	}

	err := json.NewDecoder(r.Body).Decode(dest)
	if errors.Is(err, io.EOF) {
		return nil
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ParseError{
			What:            "request body",
			Why:             "too large",
			FixInstructions: fmt.Sprintf("send at most %d bytes", maxErr.Limit),
			InternalError:   err,
		}
	}

	if err != nil {
		return ParseError{
			What:            "request body",
			Why:             "not valid JSON",
			FixInstructions: "check the JSON syntax and field types",
			InternalError:   err,
		}
	}

	return nil
}

// parseMultipart reads a multipart form body
func parseMultipart(r *http.Request) error {
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil {
		return nil
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ParseError{
			What:            "request body",
			Why:             "too large",
			FixInstructions: fmt.Sprintf("send at most %d bytes", maxErr.Limit),
			InternalError:   err,
		}
	}

	return ParseError{
		What:          "request body",
		Why:           "not a valid multipart form",
		InternalError: err,
	}
}

// formImage returns the uploaded image of a parsed multipart form, nil if
// none was sent
func formImage(r *http.Request) (*ImageUpload, error) {
	file, header, err := r.FormFile(ImageFieldName)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	} else if err != nil {
		return nil, ParseError{
			What:          ImageFieldName,
			Why:           "could not be read",
			InternalError: err,
		}
	}

	if header.Size == 0 && len(header.Filename) == 0 {
		file.Close()
		return nil, nil
	}

	return &ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		File:        file,
	}, nil
}

// formString returns a pointer to the value of a form field, nil if the
// field was not sent
func formString(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}

	v := values[0]
	return &v
}

// formBool parses a checkbox style form field
func formBool(form *multipart.Form, key string) (*bool, error) {
	s := formString(form, key)
	if s == nil {
		return nil, nil
	}

	var b bool
	switch strings.ToLower(strings.TrimSpace(*s)) {
	case "1", "t", "true", "on", "yes":
		b = true
	case "", "0", "f", "false", "off", "no":
		b = false
	default:
		return nil, ParseError{
			What:            key,
			Why:             fmt.Sprintf("\"%s\" is not a boolean", *s),
			FixInstructions: "use \"true\" or \"false\"",
		}
	}

	return &b, nil
}

// formInt parses an integer form field
func formInt(form *multipart.Form, key string) (*int, error) {
	s := formString(form, key)
	if s == nil || len(strings.TrimSpace(*s)) == 0 {
		return nil, nil
	}

	i, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil {
		return nil, ParseError{
			What:            key,
			Why:             fmt.Sprintf("\"%s\" is not a whole number", *s),
			FixInstructions: "send an integer",
			InternalError:   err,
		}
	}

	return &i, nil
}

// {{{1 Forms

// ParseContentForm reads a content from a JSON or multipart body
func ParseContentForm(r *http.Request) (*ContentForm, error) {
	var form ContentForm

	if !req.IsMultipart(r) {
		if err := DecodeJSON(r, &form); err != nil {
			return nil, err
		}

		return &form, nil
	}

	if err := parseMultipart(r); err != nil {
		return nil, err
	}
	values := r.MultipartForm

	patch := &form.ContentPatch
	patch.CategoryID = formString(values, "category_id")
	patch.Title = formString(values, "title")
	patch.Slug = formString(values, "slug")
	patch.Description = formString(values, "description")
	patch.Body = formString(values, "content")
	patch.ImageURL = formString(values, "image_url")

	var err error
	if patch.IsPublished, err = formBool(values, "is_published"); err != nil {
		return nil, err
	}
	if patch.Featured, err = formBool(values, "featured"); err != nil {
		return nil, err
	}
	if patch.DisplayOrder, err = formInt(values, "display_order"); err != nil {
		return nil, err
	}

	if form.Image, err = formImage(r); err != nil {
		return nil, err
	}

	return &form, nil
}

// ParseCategoryForm reads a category from a JSON or multipart body
func ParseCategoryForm(r *http.Request) (*CategoryForm, error) {
	var form CategoryForm

	if !req.IsMultipart(r) {
		if err := DecodeJSON(r, &form); err != nil {
			return nil, err
		}

		return &form, nil
	}

	if err := parseMultipart(r); err != nil {
		return nil, err
	}
	values := r.MultipartForm

	patch := &form.CategoryPatch
	patch.Name = formString(values, "name")
	patch.Slug = formString(values, "slug")
	patch.Description = formString(values, "description")
	patch.ImageURL = formString(values, "image_url")

	var err error
	if patch.DisplayOrder, err = formInt(values, "display_order"); err != nil {
		return nil, err
	}

	if form.Image, err = formImage(r); err != nil {
		return nil, err
	}

	return &form, nil
}

// ParseSliderImageForm reads a slider image upload. The body must be a
// multipart form with an image.
func ParseSliderImageForm(r *http.Request) (*SliderImageForm, error) {
	if !req.IsMultipart(r) {
		return nil, ParseError{
			What:            "request body",
			Why:             "must be a multipart form",
			FixInstructions: "send the image as multipart/form-data",
		}
	}

	if err := parseMultipart(r); err != nil {
		return nil, err
	}

	image, err := formImage(r)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, ParseError{
			What:            ImageFieldName,
			Why:             "no image provided",
			FixInstructions: fmt.Sprintf("attach a file in the \"%s\" field", ImageFieldName),
		}
	}

	form := &SliderImageForm{Image: image}

	// Invalid orders fall back to 0
	if order, err := formInt(r.MultipartForm, "display_order"); err == nil && order != nil {
		form.DisplayOrder = *order
	}

	return form, nil
}

// ParseReorderRequest reads a slider reorder request
func ParseReorderRequest(r *http.Request) (*ReorderRequest, error) {
	var raw struct {
		Images json.RawMessage `json:"images"`
	}
	if err := DecodeJSON(r, &raw); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(raw.Images))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, ParseError{
			What:            "images",
			Why:             "invalid images array",
			FixInstructions: "send {\"images\": [{\"id\": ..., \"display_order\": ...}]}",
		}
	}

	var reorder ReorderRequest
	if err := json.Unmarshal(raw.Images, &reorder.Images); err != nil {
		return nil, ParseError{
			What:          "images",
			Why:           "items must be objects with an id and a display_order",
			InternalError: err,
		}
	}

	for i, image := range reorder.Images {
		if len(image.ID) == 0 {
			return nil, ParseError{
				What: fmt.Sprintf("images[%d].id", i),
				Why:  "missing",
			}
		}
	}

	return &reorder, nil
}

// ParseLoginRequest reads an email and password login body
func ParseLoginRequest(r *http.Request) (*LoginRequest, error) {
	var login LoginRequest
	if err := DecodeJSON(r, &login); err != nil {
		return nil, err
	}

	login.Email = strings.TrimSpace(login.Email)

	if len(login.Email) == 0 || len(login.Password) == 0 {
		return nil, ParseError{
			What: "login",
			Why:  "email and password are required",
		}
	}

	return &login, nil
}
