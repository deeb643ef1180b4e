package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spgsite/cms-api/parsing"
	"github.com/spgsite/cms-api/storage"

	"github.com/gabriel-vasile/mimetype"
)

// errUnsupportedImage is returned for uploads declared as a type the site
// never accepts, regardless of the bucket configuration
var errUnsupportedImage = errors.New("unsupported image type")

// rejectedImageTypes are declared MIME types refused before upload
var rejectedImageTypes = map[string]bool{
	"image/x-icon":             true,
	"image/vnd.microsoft.icon": true,
}

// uploadImage stores img under dir and returns its public URL. If the upload
// fails for any reason but the type, and dataURLFallback is true outside of
// production, the image is returned as a data URL instead.
func (h BaseHandler) uploadImage(ctx context.Context, dir string, img *parsing.ImageUpload, dataURLFallback bool) (string, error) {
	declared := strings.ToLower(strings.TrimSpace(img.ContentType))
	if rejectedImageTypes[declared] {
		return "", fmt.Errorf("%w: declared \"%s\"", errUnsupportedImage, declared)
	}

	path := storage.NewObjectPath(dir, img.Filename, time.Now())
	info, err := h.Bucket.Upload(ctx, path, img.File, img.ContentType, false)
	if err == nil {
		h.Metrics.UploadedBytesTotal.WithLabelValues(dir).Add(float64(info.Size))
		return h.Bucket.PublicURL(info.Path), nil
	}

	if errors.Is(err, storage.ErrMIMENotAllowed) || !dataURLFallback || h.Cfg.IsProduction() {
		return "", err
	}

	h.Logger.Errorf("failed to upload %s, embedding it as a data URL: %s", path, err.Error())

	return dataURL(img)
}

// dataURL reads an upload into a base64 data URL
func dataURL(img *parsing.ImageUpload) (string, error) {
	if _, err := img.File.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}

	content, err := io.ReadAll(img.File)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	mt := mimetype.Detect(content)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: detected \"%s\"", storage.ErrMIMENotAllowed, mt.String())
	}

	return fmt.Sprintf("data:%s;base64,%s", mt.String(),
		base64.StdEncoding.EncodeToString(content)), nil
}

// RespondUploadError sends the response for a failed image upload
func (h BaseHandler) RespondUploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrMIMENotAllowed) || errors.Is(err, errUnsupportedImage) {
		h.RespondError(w, http.StatusUnsupportedMediaType, "Unsupported image type", err)
		return
	}

	h.RespondError(w, http.StatusInternalServerError, "Failed to upload image", err)
}
