package http

import (
	"encoding/json"
	"net/http"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"github.com/jeju-platform/edge-engine/internal/registry"
	"github.com/go-chi/chi/v5"
)

type AppHandler struct {
	registry *registry.Registry
}

func NewAppHandler(reg *registry.Registry) *AppHandler {
	return &AppHandler{registry: reg}
}

func (h *AppHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

func (h *AppHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	app, ok := h.registry.Get(name)
	if !ok {
		writeError(w, domain.ErrAppNotFound)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// Register 注册或更新应用，回显存储后的记录；持久化降级时附带警告。
func (h *AppHandler) Register(w http.ResponseWriter, r *http.Request) {
	var app domain.DeployedApp
	if err := json.NewDecoder(r.Body).Decode(&app); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	stored, warning, err := h.registry.Register(r.Context(), &app)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONWarn(w, http.StatusOK, stored, warning)
}

func (h *AppHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	removed, warning, err := h.registry.Unregister(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, domain.ErrAppNotFound)
		return
	}
	writeJSONWarn(w, http.StatusOK, map[string]string{"deleted": name}, warning)
}

func (h *AppHandler) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.registry.Sync(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AppHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Health(r.Context()))
}
