package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spgsite/cms-api/auth"
	"github.com/spgsite/cms-api/config"
	"github.com/spgsite/cms-api/jobs"
	"github.com/spgsite/cms-api/metrics"
	"github.com/spgsite/cms-api/parsing"
	"github.com/spgsite/cms-api/storage"
	"github.com/spgsite/cms-api/store"

	"github.com/Noah-Huppert/golog"
)

// BaseHandler provides helper methods and commonly used variables for API endpoints to base
// their http.Handlers off
type BaseHandler struct {
	// Ctx is the application context
	Ctx context.Context

	// Logger logs information
	Logger golog.Logger

	// Cfg is the application configuration
	Cfg *config.Config

	// Store holds all data
	Store store.Store

	// Bucket holds uploaded images
	Bucket storage.Bucket

	// Auth checks admin access
	Auth *auth.Authenticator

	// Metrics records API metrics
	Metrics *metrics.Metrics

	// Jobs runs background work
	Jobs jobs.Submitter
}

// GetChild makes a child instance of the base handler with a prefix
func (h BaseHandler) GetChild(prefix string) BaseHandler {
	h.Logger = h.Logger.GetChild(prefix)

	return h
}

// errorResponse is the body of every error response
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// RespondJSON sends an object as a JSON encoded response
func (h BaseHandler) RespondJSON(w http.ResponseWriter, status int, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	if err := encoder.Encode(resp); err != nil {
		panic(fmt.Errorf("failed to encode response as JSON: %s", err.Error()))
	}
}

// RespondError sends a JSON error. err is logged for server errors and, outside
// production, included as the response's detail.
func (h BaseHandler) RespondError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}

	if err != nil {
		if status >= http.StatusInternalServerError {
			h.Logger.Errorf("%s: %s", msg, err.Error())
		}

		if !h.Cfg.IsProduction() {
			resp.Detail = err.Error()
		}
	}

	h.RespondJSON(w, status, resp)
}

// RespondParseError sends a 400 describing a request the client got wrong
func (h BaseHandler) RespondParseError(w http.ResponseWriter, err error) {
	parseErr, ok := parsing.AsParseError(err)
	if !ok {
		h.RespondError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	h.RespondError(w, http.StatusBadRequest, parseErr.UserError(), parseErr.InternalError)
}

// RespondStoreError sends the response for a failed store operation. Missing
// items are 404 with notFoundMsg, uniqueness conflicts 409 and the rest 500
// with failMsg.
func (h BaseHandler) RespondStoreError(w http.ResponseWriter, err error, notFoundMsg, failMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.RespondError(w, http.StatusNotFound, notFoundMsg, nil)
	case errors.Is(err, store.ErrConflict):
		h.RespondError(w, http.StatusConflict, "An item with the same slug or email already exists", err)
	default:
		h.RespondError(w, http.StatusInternalServerError, failMsg, err)
	}
}

// SubmitRemoveObjects queues the removal of the objects behind urls. URLs
// which do not point into the bucket are ignored. Failures are only logged.
func (h BaseHandler) SubmitRemoveObjects(ctx context.Context, urls ...string) {
	paths := []string{}
	for _, u := range urls {
		if p, ok := h.Bucket.ObjectPath(u); ok {
			paths = append(paths, p)
		}
	}

	if len(paths) == 0 {
		return
	}

	req, err := jobs.NewRemoveObjectsRequest(paths...)
	if err == nil {
		err = h.Jobs.Submit(ctx, req)
	}

	if err != nil {
		h.Logger.Errorf("failed to submit removal of objects %v: %s", paths, err.Error())
	}
}
