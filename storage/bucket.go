// Package storage stores uploaded files in buckets and builds the public URLs
// they are served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrObjectExists is returned when uploading to a path which already holds an
// object and overwriting was not requested
var ErrObjectExists = errors.New("object already exists")

// ErrObjectNotFound is returned when an object does not exist
var ErrObjectNotFound = errors.New("object not found")

// ErrMIMENotAllowed is returned when the content of an upload is not one of
// the bucket's allowed MIME types
var ErrMIMENotAllowed = errors.New("mime type not allowed")

// ErrInvalidPath is returned for object paths which are empty, absolute or
// escape the bucket
var ErrInvalidPath = errors.New("invalid object path")

// PublicPathPrefix is the URL path under which bucket objects are served.
// Followed by the bucket name and object path.
const PublicPathPrefix = "/storage/v1/object/public/"

// ObjectInfo describes a stored object
type ObjectInfo struct {
	// Path of the object inside the bucket, slash separated
	Path string

	// Size in bytes
	Size int64

	// ContentType is the detected MIME type, only set by Upload
	ContentType string

	// ModTime is when the object was last written
	ModTime time.Time
}

// Bucket stores objects under slash separated paths
type Bucket interface {
	// Name of the bucket
	Name() string

	// Upload stores the content of r at path. declaredType is the MIME type the
	// client claims, the stored type is detected from the content. Unless upsert
	// is true an existing object is never overwritten.
	Upload(ctx context.Context, path string, r io.Reader, declaredType string, upsert bool) (*ObjectInfo, error)

	// PublicURL returns the URL at which the object at path is served
	PublicURL(path string) string

	// ObjectPath is the inverse of PublicURL. Returns false if the URL does
	// not point into this bucket.
	ObjectPath(publicURL string) (string, bool)

	// Open returns the content of the object at path
	Open(path string) (io.ReadSeekCloser, *ObjectInfo, error)

	// Remove deletes objects. Paths which do not exist are ignored.
	Remove(ctx context.Context, paths ...string) error

	// List returns all objects in the bucket
	List(ctx context.Context) ([]ObjectInfo, error)
}

// invalidFilenameCharsExp matches characters which are removed from uploaded filenames
var invalidFilenameCharsExp *regexp.Regexp = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeFilename removes all characters except ASCII letters, digits, dots
// and dashes. Leading dots are dropped. If nothing is left a random name is used.
func SanitizeFilename(name string) string {
	name = invalidFilenameCharsExp.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, ".")

	if len(name) == 0 {
		return uuid.New().String()
	}

	return name
}

// NewObjectPath builds a unique-ish object path inside dir for an uploaded file
func NewObjectPath(dir string, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%d_%s", strings.Trim(dir, "/"), now.UnixMilli(),
		SanitizeFilename(filename))
}
