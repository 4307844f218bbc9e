package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter 组装管理面路由。请求网关按主机名分流在外层，
// 不是应用请求的流量才会落到这里。
func NewRouter(
	appH *AppHandler,
	fnH *FunctionHandler,
	apiToken string,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)
	r.Use(bodySizeLimitMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/apps", func(r chi.Router) {
		r.Use(authMiddleware(apiToken))
		r.Route("/deployed", func(r chi.Router) {
			r.Get("/", appH.List)
			r.Post("/", appH.Register)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", appH.Get)
				r.Delete("/", appH.Unregister)
			})
		})
		r.Post("/sync", appH.Sync)
		r.Get("/health", appH.Health)
	})

	r.Route("/functions", func(r chi.Router) {
		r.Use(authMiddleware(apiToken))
		r.Post("/", fnH.Create)
		r.Get("/", fnH.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", fnH.Get)
			r.Put("/", fnH.Update)
			r.Delete("/", fnH.Delete)
			r.Post("/rollback", fnH.Rollback)
			r.Post("/invoke", fnH.Invoke)
			r.Post("/invoke-async", fnH.InvokeAsync)
			r.HandleFunc("/http/*", fnH.HTTP)
			r.Get("/logs", fnH.Logs)
			r.Get("/metrics", fnH.Metrics)
		})
	})

	return r
}
