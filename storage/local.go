package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is the number of bytes read to detect the MIME type of an upload
const sniffLen = 3072

// LocalBucket is a Bucket kept in a directory on the local file system
type LocalBucket struct {
	// name of the bucket
	name string

	// root directory holding the bucket's objects
	root string

	// publicURL is the base URL objects are served from
	publicURL string

	// allowedTypes are the MIME types accepted by Upload
	allowedTypes []string
}

// NewLocalBucket creates a bucket in the directory dir/name. publicURL is the
// absolute URL of the server which serves the bucket under PublicPathPrefix.
func NewLocalBucket(dir, name, publicURL string, allowedTypes []string) (*LocalBucket, error) {
	if len(name) == 0 || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("bucket name \"%s\" is invalid", name)
	}

	root := filepath.Join(dir, name)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory: %w", err)
	}

	return &LocalBucket{
		name:         name,
		root:         root,
		publicURL:    strings.TrimRight(publicURL, "/"),
		allowedTypes: allowedTypes,
	}, nil
}

// Name implements Bucket.Name
func (b *LocalBucket) Name() string {
	return b.name
}

// cleanPath normalizes an object path and rejects paths which escape the bucket
func cleanPath(p string) (string, error) {
	if len(p) == 0 || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return "", fmt.Errorf("%w: \"%s\"", ErrInvalidPath, p)
	}

	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: \"%s\"", ErrInvalidPath, p)
	}

	return cleaned, nil
}

// resolve returns the file system path of an object
func (b *LocalBucket) resolve(p string) (string, string, error) {
	cleaned, err := cleanPath(p)
	if err != nil {
		return "", "", err
	}

	return cleaned, filepath.Join(b.root, filepath.FromSlash(cleaned)), nil
}

// allowed returns true if the detected MIME type is in the allow list
func (b *LocalBucket) allowed(mt *mimetype.MIME) bool {
	for _, t := range b.allowedTypes {
		if mt.Is(strings.TrimSpace(t)) {
			return true
		}
	}

	return false
}

// Upload implements Bucket.Upload
func (b *LocalBucket) Upload(ctx context.Context, p string, r io.Reader, declaredType string, upsert bool) (*ObjectInfo, error) {
	cleaned, file, err := b.resolve(p)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// {{{1 Detect type
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !b.allowed(mt) {
		return nil, fmt.Errorf("%w: detected \"%s\", declared \"%s\"",
			ErrMIMENotAllowed, mt.String(), declaredType)
	}

	// {{{1 Write
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if upsert {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(file, flags, 0644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w: \"%s\"", ErrObjectExists, cleaned)
	} else if err != nil {
		return nil, fmt.Errorf("failed to create object file: %w", err)
	}

	size, err := io.Copy(f, io.MultiReader(bytes.NewReader(head), r))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(file)
		return nil, fmt.Errorf("failed to write object: %w", err)
	}

	stat, err := os.Stat(file)
	if err != nil {
		return nil, fmt.Errorf("failed to stat written object: %w", err)
	}

	return &ObjectInfo{
		Path:        cleaned,
		Size:        size,
		ContentType: mt.String(),
		ModTime:     stat.ModTime(),
	}, nil
}

// PublicURL implements Bucket.PublicURL
func (b *LocalBucket) PublicURL(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return b.publicURL + PublicPathPrefix + b.name + "/" + strings.Join(segments, "/")
}

// ObjectPath implements Bucket.ObjectPath
func (b *LocalBucket) ObjectPath(publicURL string) (string, bool) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return "", false
	}

	parts := strings.SplitN(u.Path, PublicPathPrefix+b.name+"/", 2)
	if len(parts) != 2 || len(parts[1]) == 0 {
		return "", false
	}

	cleaned, err := cleanPath(parts[1])
	if err != nil {
		return "", false
	}

	return cleaned, true
}

// Open implements Bucket.Open
func (b *LocalBucket) Open(p string) (io.ReadSeekCloser, *ObjectInfo, error) {
	cleaned, file, err := b.resolve(p)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: \"%s\"", ErrObjectNotFound, cleaned)
	} else if err != nil {
		return nil, nil, fmt.Errorf("failed to open object: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat object: %w", err)
	}

	if stat.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: \"%s\"", ErrObjectNotFound, cleaned)
	}

	return f, &ObjectInfo{
		Path:    cleaned,
		Size:    stat.Size(),
		ModTime: stat.ModTime(),
	}, nil
}

// Remove implements Bucket.Remove
func (b *LocalBucket) Remove(ctx context.Context, paths ...string) error {
	var errs []error

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, file, err := b.resolve(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove \"%s\": %w", p, err))
		}
	}

	return errors.Join(errs...)
}

// List implements Bucket.List
func (b *LocalBucket) List(ctx context.Context) ([]ObjectInfo, error) {
	objects := []ObjectInfo{}

	err := filepath.WalkDir(b.root, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(b.root, file)
		if err != nil {
			return err
		}

		objects = append(objects, ObjectInfo{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket: %w", err)
	}

	return objects, nil
}
