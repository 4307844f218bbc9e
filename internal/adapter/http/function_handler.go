package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"github.com/jeju-platform/edge-engine/internal/port"
	"github.com/jeju-platform/edge-engine/internal/service"
	"github.com/go-chi/chi/v5"
)

// ownerHeader 携带调用方身份。认证由外层网关完成，这里只消费结果。
const ownerHeader = "X-Owner"

type FunctionHandler struct {
	svc          *service.FunctionService
	asyncTimeout time.Duration
}

func NewFunctionHandler(svc *service.FunctionService, asyncTimeout time.Duration) *FunctionHandler {
	return &FunctionHandler{svc: svc, asyncTimeout: asyncTimeout}
}

func (h *FunctionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.DeployFunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	fn, err := h.svc.Deploy(r.Context(), r.Header.Get(ownerHeader), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fn)
}

func (h *FunctionHandler) List(w http.ResponseWriter, r *http.Request) {
	fns, err := h.svc.List(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fns)
}

func (h *FunctionHandler) Get(w http.ResponseWriter, r *http.Request) {
	fn, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fn)
}

func (h *FunctionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateFunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	fn, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), r.Header.Get(ownerHeader), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fn)
}

func (h *FunctionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.svc.Delete(r.Context(), id, r.Header.Get(ownerHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *FunctionHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetVersion int `json:"target_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	fn, err := h.svc.Rollback(r.Context(), chi.URLParam(r, "id"), r.Header.Get(ownerHeader), req.TargetVersion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fn)
}

func (h *FunctionHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.svc.Invoke(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result)
}

func (h *FunctionHandler) InvokeAsync(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	h.svc.InvokeAsync(id, payload, h.asyncTimeout)
	writeJSON(w, http.StatusAccepted, map[string]string{"queued": id})
}

// HTTP 是全动词透传：把请求翻译为引擎事件，响应原样回放。
func (h *FunctionHandler) HTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	event := &port.HTTPEvent{
		Method:  r.Method,
		Path:    "/" + chi.URLParam(r, "*"),
		Query:   r.URL.Query(),
		Headers: r.Header,
		Body:    body,
	}
	result, err := h.svc.InvokeHTTP(r.Context(), id, event)
	if err != nil {
		writeError(w, err)
		return
	}

	for k, vv := range result.Headers {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	status := result.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(result.Body)
}

func (h *FunctionHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.Logs(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *FunctionHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Metrics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
