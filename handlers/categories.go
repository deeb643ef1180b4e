package handlers

import (
	"net/http"
	"time"

	"github.com/spgsite/cms-api/models"
	"github.com/spgsite/cms-api/parsing"
	"github.com/spgsite/cms-api/store"
	"github.com/spgsite/cms-api/validation"

	"github.com/gorilla/mux"
)

// categoriesDir is the bucket directory category images are uploaded to
const categoriesDir = "categories"

// ListCategoriesHandler returns all categories
type ListCategoriesHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h ListCategoriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Store.ListCategories(r.Context())
	if err != nil {
		h.RespondError(w, http.StatusInternalServerError, "Failed to fetch categories", err)
		return
	}

	h.RespondJSON(w, http.StatusOK, categories)
}

// GetCategoryHandler returns one category
type GetCategoryHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h GetCategoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	category, err := h.Store.GetCategory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.RespondStoreError(w, err, "Category not found", "Failed to fetch category")
		return
	}

	h.RespondJSON(w, http.StatusOK, category)
}

// CreateCategoryHandler creates a category from a JSON or multipart body
type CreateCategoryHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h CreateCategoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	form, err := parsing.ParseCategoryForm(r)
	if err != nil {
		h.RespondParseError(w, err)
		return
	}
	defer form.Image.Close()

	var category models.Category
	form.CategoryPatch.Apply(&category)

	if form.Slug == nil || len(*form.Slug) == 0 {
		category.Slug = models.Slugify(category.Name)
	}

	if err := validation.ValidateCategory(category); err != nil {
		h.RespondError(w, http.StatusBadRequest, validation.Message(err), nil)
		return
	}

	if form.Image != nil {
		category.ImageURL, err = h.uploadImage(r.Context(), categoriesDir, form.Image, true)
		if err != nil {
			h.RespondUploadError(w, err)
			return
		}
	}

	if err := h.Store.CreateCategory(r.Context(), &category); err != nil {
		if form.Image != nil {
			h.SubmitRemoveObjects(h.Ctx, category.ImageURL)
		}

		h.RespondStoreError(w, err, "Category not found", "Failed to create category")
		return
	}

	h.RespondJSON(w, http.StatusCreated, category)
}

// UpdateCategoryHandler changes the fields of a category which are present
// in the body
type UpdateCategoryHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h UpdateCategoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	form, err := parsing.ParseCategoryForm(r)
	if err != nil {
		h.RespondParseError(w, err)
		return
	}
	defer form.Image.Close()

	existing, err := h.Store.GetCategory(r.Context(), id)
	if err != nil {
		h.RespondStoreError(w, err, "Category not found", "Failed to fetch category")
		return
	}

	patch := form.CategoryPatch

	updated := *existing
	patch.Apply(&updated)

	if err := validation.ValidateCategory(updated); err != nil {
		h.RespondError(w, http.StatusBadRequest, validation.Message(err), nil)
		return
	}

	if form.Image != nil {
		imageURL, err := h.uploadImage(r.Context(), categoriesDir, form.Image, true)
		if err != nil {
			h.RespondUploadError(w, err)
			return
		}

		patch.ImageURL = &imageURL
	}

	category, err := h.Store.UpdateCategory(r.Context(), id, patch, time.Now())
	if err != nil {
		if form.Image != nil {
			h.SubmitRemoveObjects(h.Ctx, *patch.ImageURL)
		}

		h.RespondStoreError(w, err, "Category not found", "Failed to update category")
		return
	}

	if category.ImageURL != existing.ImageURL {
		h.SubmitRemoveObjects(h.Ctx, existing.ImageURL)
	}

	h.RespondJSON(w, http.StatusOK, category)
}

// DeleteCategoryHandler deletes a category. Categories which still have
// contents cannot be deleted.
type DeleteCategoryHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h DeleteCategoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	category, err := h.Store.GetCategory(r.Context(), id)
	if err != nil {
		h.RespondStoreError(w, err, "Category not found", "Failed to fetch category")
		return
	}

	// Not atomic: content created between the count and the delete keeps a
	// dangling category_id and is served with a null category.
	count, err := h.Store.CountContents(r.Context(), store.ContentFilter{
		CategoryID: id,
		Limit:      1,
	})
	if err != nil {
		h.RespondError(w, http.StatusInternalServerError, "Failed to count category contents", err)
		return
	}

	if count > 0 {
		h.RespondError(w, http.StatusConflict, "Category still has contents", nil)
		return
	}

	if err := h.Store.DeleteCategory(r.Context(), id); err != nil {
		h.RespondStoreError(w, err, "Category not found", "Failed to delete category")
		return
	}

	h.SubmitRemoveObjects(h.Ctx, category.ImageURL)

	h.RespondJSON(w, http.StatusOK, map[string]bool{
		"success": true,
	})
}
