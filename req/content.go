// Package req inspects incoming HTTP requests.
package req

import (
	"mime"
	"net/http"
)

// mediaType returns the media type of the request's Content-Type header,
// empty if the header is missing or malformed
func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}

	return mt
}

// IsMultipart returns true if the request body is a multipart form
func IsMultipart(r *http.Request) bool {
	return mediaType(r) == "multipart/form-data"
}

// IsJSON returns true if the request body is declared as JSON. Requests
// without a Content-Type are treated as JSON.
func IsJSON(r *http.Request) bool {
	mt := mediaType(r)
	return len(mt) == 0 || mt == "application/json"
}

// LimitBody caps the number of bytes handlers can read from the request body
func LimitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
}
