package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spgsite/cms-api/models"
	"github.com/spgsite/cms-api/parsing"
	"github.com/spgsite/cms-api/store"
	"github.com/spgsite/cms-api/validation"

	"github.com/gorilla/mux"
)

// ContentKind configures the content handlers for one of the routes serving
// the contents collection
type ContentKind struct {
	// Dir is the bucket directory images are uploaded to
	Dir string

	// FeaturedDefault is the featured flag of new contents which do not set it
	FeaturedDefault bool

	// NotFoundMsg is sent when a content does not exist
	NotFoundMsg string

	// Noun names the content in error messages
	Noun string
}

// HighlightsKind are featured contents shown on the home page
var HighlightsKind = ContentKind{
	Dir:             "highlights",
	FeaturedDefault: true,
	NotFoundMsg:     "Highlight not found",
	Noun:            "highlight",
}

// ContentsKind are all contents
var ContentsKind = ContentKind{
	Dir:             "contents",
	FeaturedDefault: false,
	NotFoundMsg:     "Content not found",
	Noun:            "content",
}

// ListHighlightsHandler returns the published, featured contents
type ListHighlightsHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h ListHighlightsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	contents, err := h.Store.ListContents(r.Context(), store.ContentFilter{
		PublishedOnly: true,
		FeaturedOnly:  true,
		Limit:         h.Cfg.HighlightsLimit,
	})
	if err != nil {
		h.RespondError(w, http.StatusInternalServerError, "Failed to fetch highlights", err)
		return
	}

	h.RespondJSON(w, http.StatusOK, contents)
}

// ListContentsHandler returns contents, optionally of one category given by
// the categoryId query parameter. Drafts are only listed for admins.
type ListContentsHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h ListContentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	contents, err := h.Store.ListContents(r.Context(), store.ContentFilter{
		CategoryID:    r.URL.Query().Get("categoryId"),
		PublishedOnly: !h.isAdmin(r),
	})
	if err != nil {
		h.RespondError(w, http.StatusInternalServerError, "Failed to fetch contents", err)
		return
	}

	h.RespondJSON(w, http.StatusOK, contents)
}

// GetContentHandler returns one content. Drafts are hidden from non admins.
type GetContentHandler struct {
	BaseHandler

	Kind ContentKind
}

// ServeHTTP implements http.Handler
func (h GetContentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	content, err := h.Store.GetContent(r.Context(), mux.Vars(r)["id"])
	if err == nil && !content.IsPublished && !h.isAdmin(r) {
		err = store.ErrNotFound
	}
	if err != nil {
		h.RespondStoreError(w, err, h.Kind.NotFoundMsg, "Failed to fetch "+h.Kind.Noun)
		return
	}

	h.RespondJSON(w, http.StatusOK, content)
}

// checkCategory returns a category's summary, or false and sends a 400 if it
// does not exist
func (h BaseHandler) checkCategory(ctx context.Context, w http.ResponseWriter, id string) (*models.CategorySummary, bool) {
	category, err := h.Store.GetCategory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		h.RespondError(w, http.StatusBadRequest, "Category does not exist", nil)
		return nil, false
	} else if err != nil {
		h.RespondError(w, http.StatusInternalServerError, "Failed to fetch category", err)
		return nil, false
	}

	return category.Summary(), true
}

// CreateContentHandler creates a content from a JSON or multipart body. The
// slug is derived from the title unless one is given.
type CreateContentHandler struct {
	BaseHandler

	Kind ContentKind
}

// ServeHTTP implements http.Handler
func (h CreateContentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	form, err := parsing.ParseContentForm(r)
	if err != nil {
		h.RespondParseError(w, err)
		return
	}
	defer form.Image.Close()

	// {{{1 Build
	content := models.Content{
		IsPublished: true,
		Featured:    h.Kind.FeaturedDefault,
	}
	form.ContentPatch.Apply(&content)

	if form.Slug == nil || len(*form.Slug) == 0 {
		content.Slug = models.Slugify(content.Title)
	}

	if err := validation.ValidateContent(content); err != nil {
		h.RespondError(w, http.StatusBadRequest, validation.Message(err), nil)
		return
	}

	category, ok := h.checkCategory(r.Context(), w, content.CategoryID)
	if !ok {
		return
	}

	// {{{1 Upload
	if form.Image != nil {
		content.ImageURL, err = h.uploadImage(r.Context(), h.Kind.Dir, form.Image, true)
		if err != nil {
			h.RespondUploadError(w, err)
			return
		}
	}

	// {{{1 Store
	if err := h.Store.CreateContent(r.Context(), &content); err != nil {
		if form.Image != nil {
			h.SubmitRemoveObjects(h.Ctx, content.ImageURL)
		}

		h.RespondStoreError(w, err, h.Kind.NotFoundMsg, "Failed to create "+h.Kind.Noun)
		return
	}

	h.RespondJSON(w, http.StatusCreated, models.ContentWithCategory{
		Content:  content,
		Category: category,
	})
}

// UpdateContentHandler changes the fields of a content which are present in
// the body. A new image replaces the old one.
type UpdateContentHandler struct {
	BaseHandler

	Kind ContentKind
}

// ServeHTTP implements http.Handler
func (h UpdateContentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	form, err := parsing.ParseContentForm(r)
	if err != nil {
		h.RespondParseError(w, err)
		return
	}
	defer form.Image.Close()

	existing, err := h.Store.GetContent(r.Context(), id)
	if err != nil {
		h.RespondStoreError(w, err, h.Kind.NotFoundMsg, "Failed to fetch "+h.Kind.Noun)
		return
	}

	// {{{1 Validate result
	patch := form.ContentPatch

	updated := existing.Content
	patch.Apply(&updated)

	if err := validation.ValidateContent(updated); err != nil {
		h.RespondError(w, http.StatusBadRequest, validation.Message(err), nil)
		return
	}

	if patch.CategoryID != nil && *patch.CategoryID != existing.CategoryID {
		if _, ok := h.checkCategory(r.Context(), w, *patch.CategoryID); !ok {
			return
		}
	}

	// {{{1 Upload
	if form.Image != nil {
		imageURL, err := h.uploadImage(r.Context(), h.Kind.Dir, form.Image, true)
		if err != nil {
			h.RespondUploadError(w, err)
			return
		}

		patch.ImageURL = &imageURL
	}

	// {{{1 Store
	content, err := h.Store.UpdateContent(r.Context(), id, patch, time.Now())
	if err != nil {
		if form.Image != nil {
			h.SubmitRemoveObjects(h.Ctx, *patch.ImageURL)
		}

		h.RespondStoreError(w, err, h.Kind.NotFoundMsg, "Failed to update "+h.Kind.Noun)
		return
	}

	if content.ImageURL != existing.ImageURL {
		h.SubmitRemoveObjects(h.Ctx, existing.ImageURL)
	}

	h.RespondJSON(w, http.StatusOK, content)
}

// DeleteContentHandler deletes a content and its image
type DeleteContentHandler struct {
	BaseHandler

	Kind ContentKind
}

// ServeHTTP implements http.Handler
func (h DeleteContentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	content, err := h.Store.GetContent(r.Context(), id)
	if err == nil {
		err = h.Store.DeleteContent(r.Context(), id)
	}
	if err != nil {
		h.RespondStoreError(w, err, h.Kind.NotFoundMsg, "Failed to delete "+h.Kind.Noun)
		return
	}

	h.SubmitRemoveObjects(h.Ctx, content.ImageURL)

	h.RespondJSON(w, http.StatusOK, map[string]bool{
		"success": true,
	})
}
