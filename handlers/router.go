package handlers

import (
	"net/http"

	"github.com/spgsite/cms-api/req"
	"github.com/spgsite/cms-api/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// admin wraps a handler so only admins can reach it
func (h BaseHandler) admin(handler http.Handler) http.Handler {
	return AdminRequiredHandler{
		BaseHandler: h,
		Handler:     handler,
	}
}

// limitBody caps request bodies at the configured upload size
func (h BaseHandler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.LimitBody(w, r, h.Cfg.MaxUploadBytes)
		next.ServeHTTP(w, r)
	})
}

// NewRouter registers every API route. gatherer is exposed on /metrics.
func NewRouter(base BaseHandler, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter()

	router.Use(MetricsHandler{BaseHandler: base.GetChild("metrics")}.Middleware)
	router.Use(base.limitBody)

	router.Methods(http.MethodOptions).Handler(PreFlightOptionsHandler{
		base.GetChild("preflight"),
	})

	router.Handle("/health", HealthHandler{
		base.GetChild("health"),
	}).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).
		Methods(http.MethodGet)

	// {{{1 Admin session
	router.Handle("/api/admin/login", LoginHandler{
		base.GetChild("login"),
	}).Methods(http.MethodPost)

	router.Handle("/api/admin/logout", LogoutHandler{
		base.GetChild("logout"),
	}).Methods(http.MethodPost)

	meBase := base.GetChild("me")
	router.Handle("/api/admin/me", AdminRequiredHandler{
		BaseHandler:     meBase,
		Handler:         MeHandler{meBase},
		UnauthorizedMsg: "Not authenticated or not authorized",
	}).Methods(http.MethodGet)

	// {{{1 Slider images
	// Registered before the highlight routes so "images" is not taken as an ID
	sliderBase := base.GetChild("slider")

	router.Handle("/api/highlights/images", ListSliderImagesHandler{
		sliderBase,
	}).Methods(http.MethodGet)

	router.Handle("/api/highlights/images", sliderBase.admin(CreateSliderImageHandler{
		sliderBase,
	})).Methods(http.MethodPost)

	router.Handle("/api/highlights/images/reorder", sliderBase.admin(ReorderSliderImagesHandler{
		sliderBase,
	})).Methods(http.MethodPut)

	router.Handle("/api/highlights/images/{id}", sliderBase.admin(DeleteSliderImageHandler{
		sliderBase,
	})).Methods(http.MethodDelete)

	// {{{1 Highlights and contents
	highlightsBase := base.GetChild("highlights")
	router.Handle("/api/highlights", ListHighlightsHandler{
		highlightsBase,
	}).Methods(http.MethodGet)
	registerContentRoutes(router, "/api/highlights", highlightsBase, HighlightsKind)

	contentsBase := base.GetChild("contents")
	router.Handle("/api/contents", ListContentsHandler{
		contentsBase,
	}).Methods(http.MethodGet)
	registerContentRoutes(router, "/api/contents", contentsBase, ContentsKind)

	// {{{1 Categories
	categoriesBase := base.GetChild("categories")

	router.Handle("/api/categories", ListCategoriesHandler{
		categoriesBase,
	}).Methods(http.MethodGet)

	router.Handle("/api/categories", categoriesBase.admin(CreateCategoryHandler{
		categoriesBase,
	})).Methods(http.MethodPost)

	router.Handle("/api/categories/{id}", GetCategoryHandler{
		categoriesBase,
	}).Methods(http.MethodGet)

	router.Handle("/api/categories/{id}", categoriesBase.admin(UpdateCategoryHandler{
		categoriesBase,
	})).Methods(http.MethodPut)

	router.Handle("/api/categories/{id}", categoriesBase.admin(DeleteCategoryHandler{
		categoriesBase,
	})).Methods(http.MethodDelete)

	// {{{1 Stored objects
	router.Handle(storage.PublicPathPrefix+"{bucket}/{path:.+}", FilesHandler{
		base.GetChild("files"),
	}).Methods(http.MethodGet, http.MethodHead)

	return router
}

// registerContentRoutes adds the create, get, update and delete routes of a
// kind of content under prefix
func registerContentRoutes(router *mux.Router, prefix string, base BaseHandler, kind ContentKind) {
	router.Handle(prefix, base.admin(CreateContentHandler{
		BaseHandler: base,
		Kind:        kind,
	})).Methods(http.MethodPost)

	router.Handle(prefix+"/{id}", GetContentHandler{
		BaseHandler: base,
		Kind:        kind,
	}).Methods(http.MethodGet)

	router.Handle(prefix+"/{id}", base.admin(UpdateContentHandler{
		BaseHandler: base,
		Kind:        kind,
	})).Methods(http.MethodPut)

	router.Handle(prefix+"/{id}", base.admin(DeleteContentHandler{
		BaseHandler: base,
		Kind:        kind,
	})).Methods(http.MethodDelete)
}

// NewServerHandler wraps the router in the middleware every request passes
// through
func NewServerHandler(base BaseHandler, gatherer prometheus.Gatherer) http.Handler {
	return PanicHandler{
		BaseHandler: base.GetChild("panic"),
		Handler: CORSHandler{
			BaseHandler: base,
			Handler: ReqLoggerHandler{
				BaseHandler: base.GetChild("request"),
				Handler:     NewRouter(base, gatherer),
			},
		},
	}
}
