// Package api exposes the draft, posting and submission endpoints over HTTP.
package api

import (
	"net/http"
	"strings"
	"time"

	"application-workflow/internal/api/handlers"
	"application-workflow/internal/api/middleware"
	"application-workflow/internal/common/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDependencies struct {
	HealthHandler      *handlers.HealthHandler
	PostingHandler     *handlers.PostingHandler
	DraftHandler       *handlers.DraftHandler
	ApplicationHandler *handlers.ApplicationHandler
	Logger             logger.Logger
	RequestTimeout     time.Duration
	MaxBodyBytes       int64
}

type Router struct {
	deps    RouterDependencies
	handler http.Handler
}

const defaultMaxBodyBytes = 1 << 20

func NewRouter(deps RouterDependencies) http.Handler {
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = defaultMaxBodyBytes
	}
	r := &Router{deps: deps}
	r.handler = middleware.Chain(r.baseHandler(),
		middleware.RequestID,
		middleware.Logging(deps.Logger),
		middleware.BodyLimit(deps.MaxBodyBytes),
		middleware.Recover(deps.Logger),
		middleware.Metrics(routeLabel),
		middleware.Timeout(deps.RequestTimeout),
	)
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) baseHandler() http.Handler {
	metricsHandler := promhttp.Handler()

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path := strings.TrimSuffix(req.URL.Path, "/")

		switch {
		case req.Method == http.MethodGet && path == "/health":
			r.deps.HealthHandler.Health(w, req)
			return
		case req.Method == http.MethodGet && path == "/ready":
			r.deps.HealthHandler.Ready(w, req)
			return
		case req.Method == http.MethodGet && path == "/metrics":
			metricsHandler.ServeHTTP(w, req)
			return
		case req.Method == http.MethodGet && strings.HasPrefix(path, "/postings/"):
			r.deps.PostingHandler.Get(w, req)
			return
		case req.Method == http.MethodPost && path == "/questions/generate":
			r.deps.PostingHandler.GenerateQuestions(w, req)
			return
		case req.Method == http.MethodPut && path == "/drafts":
			r.deps.DraftHandler.Save(w, req)
			return
		case req.Method == http.MethodGet && path == "/drafts":
			r.deps.DraftHandler.Find(w, req)
			return
		case req.Method == http.MethodPost && path == "/applications":
			r.deps.ApplicationHandler.Submit(w, req)
			return
		case req.Method == http.MethodPost && strings.HasPrefix(path, "/applications/") && strings.HasSuffix(path, "/analysis"):
			r.deps.ApplicationHandler.Analyze(w, req)
			return
		}

		http.NotFound(w, req)
	})
}

// routeLabel keeps the metrics route label bounded.
func routeLabel(req *http.Request) string {
	path := strings.TrimSuffix(req.URL.Path, "/")
	switch {
	case strings.HasPrefix(path, "/postings/"):
		return "/postings/{id}"
	case strings.HasPrefix(path, "/applications/") && strings.HasSuffix(path, "/analysis"):
		return "/applications/{id}/analysis"
	}
	switch path {
	case "/health", "/ready", "/metrics", "/questions/generate", "/drafts", "/applications":
		return path
	}
	return "other"
}
