package handlers

import (
	"errors"
	"net/http"

	"github.com/spgsite/cms-api/models"
	"github.com/spgsite/cms-api/parsing"
	"github.com/spgsite/cms-api/store"
	"github.com/spgsite/cms-api/validation"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

// sliderDir is the bucket directory slider images are uploaded to
const sliderDir = "slider"

// ListSliderImagesHandler returns the home page slider images
type ListSliderImagesHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h ListSliderImagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	images, err := h.Store.ListSliderImages(r.Context())
	if err != nil {
		h.RespondError(w, http.StatusInternalServerError, "Failed to fetch images", err)
		return
	}

	h.RespondJSON(w, http.StatusOK, images)
}

// CreateSliderImageHandler uploads a slider image. Uploads never fall back to
// data URLs.
type CreateSliderImageHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h CreateSliderImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	form, err := parsing.ParseSliderImageForm(r)
	if err != nil {
		h.RespondParseError(w, err)
		return
	}
	defer form.Image.Close()

	imageURL, err := h.uploadImage(r.Context(), sliderDir, form.Image, false)
	if err != nil {
		h.RespondUploadError(w, err)
		return
	}

	image := models.SliderImage{
		ImageURL:     imageURL,
		DisplayOrder: form.DisplayOrder,
	}

	if err := validation.ValidateSliderImage(image); err != nil {
		h.SubmitRemoveObjects(h.Ctx, imageURL)
		h.RespondError(w, http.StatusInternalServerError, "Uploaded image has an invalid URL", err)
		return
	}

	if err := h.Store.CreateSliderImage(r.Context(), &image); err != nil {
		h.SubmitRemoveObjects(h.Ctx, imageURL)
		h.RespondError(w, http.StatusInternalServerError, "Failed to save image", err)
		return
	}

	h.RespondJSON(w, http.StatusCreated, image)
}

// DeleteSliderImageHandler removes a slider image's object from the bucket,
// then its row
type DeleteSliderImageHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h DeleteSliderImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	image, err := h.Store.GetSliderImage(r.Context(), id)
	if err != nil {
		h.RespondStoreError(w, err, "Image not found", "Failed to fetch image")
		return
	}

	if path, ok := h.Bucket.ObjectPath(image.ImageURL); ok {
		if err := h.Bucket.Remove(r.Context(), path); err != nil {
			h.RespondError(w, http.StatusInternalServerError, "Failed to remove image file", err)
			return
		}
	}

	if err := h.Store.DeleteSliderImage(r.Context(), id); err != nil {
		h.RespondStoreError(w, err, "Image not found", "Failed to delete image")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]bool{
		"success": true,
	})
}

// ReorderSliderImagesHandler sets the display order of slider images
type ReorderSliderImagesHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h ReorderSliderImagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reorder, err := parsing.ParseReorderRequest(r)
	if err != nil {
		h.RespondParseError(w, err)
		return
	}

	group, ctx := errgroup.WithContext(r.Context())
	for _, order := range reorder.Images {
		order := order
		group.Go(func() error {
			err := h.Store.SetSliderImageOrder(ctx, order.ID, order.DisplayOrder)
			if errors.Is(err, store.ErrNotFound) {
				// Deleted since the client listed the images, nothing to order
				return nil
			}

			return err
		})
	}

	if err := group.Wait(); err != nil {
		h.RespondError(w, http.StatusInternalServerError, "Failed to reorder images", err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]bool{
		"success": true,
	})
}
